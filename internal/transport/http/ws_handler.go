package http

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"quiz-engine/internal/app"
	"quiz-engine/internal/domain"
)

type WSHandler struct {
	service  *app.QuizService
	sessions app.SessionRepository
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QuizService, sessions app.SessionRepository) *WSHandler {
	return &WSHandler{
		service:  service,
		sessions: sessions,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// ServeWS upgrades the request and plays one session over the connection.
// Query: quizId (required), name, topics (comma separated), difficulty.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	quizID := query.Get("quizId")
	if quizID == "" {
		http.Error(w, "missing quizId", http.StatusBadRequest)
		return
	}
	filter := h.service.Selection()
	if raw := query.Get("topics"); raw != "" {
		filter.Topics = splitTopics(raw)
	}
	if raw := query.Get("difficulty"); raw != "" {
		d, err := domain.ParseDifficulty(raw)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		filter.Difficulty = d
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	if name := query.Get("name"); name != "" {
		if err := h.service.Progress().SetPlayerName(name); err != nil {
			log.Printf("failed to save player name: %v", err)
		}
	}

	client := newWSClient(conn)
	go client.writeLoop()
	defer client.shutdown()

	unsubscribe := h.service.OnAchievementUnlocked(func(e app.AchievementUnlocked) {
		client.emit("achievementUnlocked", newAchievementPayload(e.Achievement))
	})
	defer unsubscribe()

	session, err := h.service.StartSessionWith(r.Context(), quizID, filter, func(s *app.Session) {
		s.OnQuestionLoaded(func(e app.QuestionLoaded) {
			client.emit("questionLoaded", newQuestionPayload(e))
		})
		s.OnQuestionResult(func(e app.QuestionResult) {
			client.emit("questionResult", newResultPayload(s, e))
		})
		s.OnQuizCompleted(func(e app.QuizCompleted) {
			client.emit("quizCompleted", newCompletedPayload(e))
		})
	})
	if err != nil {
		client.emit("error", errorPayload{Message: err.Error()})
		return
	}
	h.sessions.Put(session)
	defer h.sessions.Delete(session.ID())
	defer session.Close()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if err := h.dispatch(session, inbound); err != nil {
			client.emit("error", errorPayload{Message: err.Error()})
		}
	}
}

func (h *WSHandler) dispatch(session *app.Session, inbound inboundMessage) error {
	switch inbound.Type {
	case "answer":
		var payload answerPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.Position == nil {
			return errInvalidAnswer
		}
		_, err := session.SubmitAnswer(*payload.Position)
		return err
	case "skip":
		_, err := session.Skip()
		return err
	case "next":
		return session.Advance()
	}
	return errUnsupported
}

type wsError string

func (e wsError) Error() string { return string(e) }

const (
	errInvalidAnswer wsError = "invalid answer payload"
	errUnsupported   wsError = "unsupported message type"
)

// wsClient serializes writes: session events arrive from the reader and from
// timer goroutines, while gorilla connections allow a single writer.
type wsClient struct {
	conn       *websocket.Conn
	send       chan outboundMessage[any]
	done       chan struct{}
	stopOnce   sync.Once
	writerDone chan struct{}
}

func newWSClient(conn *websocket.Conn) *wsClient {
	return &wsClient{
		conn:       conn,
		send:       make(chan outboundMessage[any], 32),
		done:       make(chan struct{}),
		writerDone: make(chan struct{}),
	}
}

func (c *wsClient) emit(typ string, payload any) {
	select {
	case c.send <- outboundMessage[any]{Type: typ, Payload: payload}:
	case <-c.done:
	}
}

func (c *wsClient) writeLoop() {
	defer close(c.writerDone)
	for {
		select {
		case msg := <-c.send:
			if err := c.conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				c.stop()
				c.conn.Close()
				return
			}
		case <-c.done:
			c.flush()
			return
		}
	}
}

// flush writes whatever was queued before shutdown.
func (c *wsClient) flush() {
	for {
		select {
		case msg := <-c.send:
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (c *wsClient) stop() {
	c.stopOnce.Do(func() { close(c.done) })
}

func (c *wsClient) shutdown() {
	c.stop()
	<-c.writerDone
}

func splitTopics(raw string) []string {
	parts := strings.Split(raw, ",")
	topics := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			topics = append(topics, p)
		}
	}
	return topics
}
