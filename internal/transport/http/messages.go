package http

import (
	"encoding/json"
	"time"

	"quiz-engine/internal/app"
	"quiz-engine/internal/domain"
)

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	Position *int `json:"position"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type questionPayload struct {
	SessionID        string   `json:"sessionId"`
	Index            int      `json:"index"`
	Total            int      `json:"total"`
	QuestionText     string   `json:"questionText"`
	Topic            string   `json:"topic"`
	Difficulty       string   `json:"difficulty"`
	Options          []string `json:"options"`
	TimeLimitSeconds int      `json:"timeLimitSeconds"`
}

// resultPayload positions refer to the displayed option order.
type resultPayload struct {
	SessionID       string `json:"sessionId"`
	Index           int    `json:"index"`
	Selected        int    `json:"selected"`
	CorrectPosition int    `json:"correctPosition"`
	Correct         bool   `json:"correct"`
	TimedOut        bool   `json:"timedOut"`
	Awarded         int    `json:"awarded"`
	TotalScore      int    `json:"totalScore"`
	Explanation     string `json:"explanation,omitempty"`
}

type completedPayload struct {
	SessionID      string  `json:"sessionId"`
	QuizID         string  `json:"quizId"`
	Score          int     `json:"score"`
	MaxScore       int     `json:"maxScore"`
	Correct        int     `json:"correct"`
	Total          int     `json:"total"`
	ElapsedSeconds float64 `json:"elapsedSeconds"`
}

type achievementPayload struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Unlocked    bool       `json:"isUnlocked"`
	UnlockedAt  *time.Time `json:"unlockedDate,omitempty"`
}

type sessionPayload struct {
	SessionID        string  `json:"sessionId"`
	QuizID           string  `json:"quizId"`
	State            string  `json:"state"`
	Index            int     `json:"index"`
	Total            int     `json:"total"`
	Score            int     `json:"score"`
	RemainingSeconds float64 `json:"remainingSeconds"`
}

func newQuestionPayload(e app.QuestionLoaded) questionPayload {
	return questionPayload{
		SessionID:        e.SessionID,
		Index:            e.Index,
		Total:            e.Total,
		QuestionText:     e.Question.Text,
		Topic:            e.Question.Topic,
		Difficulty:       e.Question.Difficulty.String(),
		Options:          e.Options,
		TimeLimitSeconds: int(e.TimeLimit / time.Second),
	}
}

func newResultPayload(session *app.Session, e app.QuestionResult) resultPayload {
	r := e.Result
	selected := domain.NoAnswer
	if r.Selected != domain.NoAnswer {
		selected = session.DisplayPosition(r.QuestionIndex, r.Selected)
	}
	return resultPayload{
		SessionID:       e.SessionID,
		Index:           r.QuestionIndex,
		Selected:        selected,
		CorrectPosition: session.DisplayPosition(r.QuestionIndex, r.CorrectIndex),
		Correct:         r.Correct,
		TimedOut:        r.TimedOut,
		Awarded:         r.Awarded,
		TotalScore:      r.TotalScore,
		Explanation:     r.Explanation,
	}
}

func newCompletedPayload(e app.QuizCompleted) completedPayload {
	o := e.Outcome
	return completedPayload{
		SessionID:      e.SessionID,
		QuizID:         o.QuizID,
		Score:          o.Score,
		MaxScore:       o.MaxScore,
		Correct:        o.Correct,
		Total:          o.Total,
		ElapsedSeconds: o.Elapsed.Seconds(),
	}
}

func newAchievementPayload(a domain.Achievement) achievementPayload {
	p := achievementPayload{
		ID:          a.ID,
		Title:       a.Title,
		Description: a.Description,
		Unlocked:    a.Unlocked,
	}
	if a.Unlocked {
		at := a.UnlockedAt
		p.UnlockedAt = &at
	}
	return p
}

func newSessionPayload(s *app.Session) sessionPayload {
	return sessionPayload{
		SessionID:        s.ID(),
		QuizID:           s.QuizID(),
		State:            s.State().String(),
		Index:            s.CurrentIndex(),
		Total:            s.TotalQuestions(),
		Score:            s.Score(),
		RemainingSeconds: s.Remaining().Seconds(),
	}
}
