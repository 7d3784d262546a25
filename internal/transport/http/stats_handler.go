package http

import (
	"encoding/json"
	"log"
	"net/http"

	"quiz-engine/internal/app"
)

// StatsHandler serves read-only JSON views of the stores and live sessions.
type StatsHandler struct {
	service  *app.QuizService
	sessions app.SessionRepository
}

func NewStatsHandler(service *app.QuizService, sessions app.SessionRepository) *StatsHandler {
	return &StatsHandler{service: service, sessions: sessions}
}

func (h *StatsHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"entries": h.service.Leaderboard().Entries()})
}

func (h *StatsHandler) Progress(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Progress().Progress())
}

func (h *StatsHandler) Achievements(w http.ResponseWriter, r *http.Request) {
	all := h.service.Achievements().All()
	out := make([]achievementPayload, 0, len(all))
	for _, a := range all {
		out = append(out, newAchievementPayload(a))
	}
	writeJSON(w, http.StatusOK, map[string]any{"achievements": out})
}

func (h *StatsHandler) Session(w http.ResponseWriter, r *http.Request) {
	session, ok := h.sessions.Get(r.PathValue("id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, errorPayload{Message: "session not found"})
		return
	}
	writeJSON(w, http.StatusOK, newSessionPayload(session))
}

// NewRouter mounts the websocket endpoint and the JSON views.
func NewRouter(service *app.QuizService, sessions app.SessionRepository) *http.ServeMux {
	ws := NewWSHandler(service, sessions)
	stats := NewStatsHandler(service, sessions)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", ws.ServeWS)
	mux.HandleFunc("GET /leaderboard", stats.Leaderboard)
	mux.HandleFunc("GET /progress", stats.Progress)
	mux.HandleFunc("GET /achievements", stats.Achievements)
	mux.HandleFunc("GET /sessions/{id}", stats.Session)
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}
