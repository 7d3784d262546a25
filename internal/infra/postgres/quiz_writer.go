package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"quiz-engine/internal/domain"
)

// QuizRow is the quizzes table.
type QuizRow struct {
	bun.BaseModel `bun:"table:quizzes"`

	ID        string          `bun:"id,pk"`
	Data      json.RawMessage `bun:"data,type:jsonb,notnull"`
	UpdatedAt time.Time       `bun:"updated_at,notnull,default:current_timestamp"`
}

// QuizWriter upserts quizzes, used to seed the catalog table.
type QuizWriter struct {
	db *bun.DB
}

func NewQuizWriter(db *bun.DB) *QuizWriter {
	return &QuizWriter{db: db}
}

func (w *QuizWriter) SaveQuiz(ctx context.Context, quiz domain.Quiz) error {
	if err := quiz.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(quiz)
	if err != nil {
		return fmt.Errorf("encode quiz %s: %w", quiz.ID, err)
	}
	row := &QuizRow{ID: quiz.ID, Data: data, UpdatedAt: time.Now().UTC()}
	_, err = w.db.NewInsert().
		Model(row).
		On("CONFLICT (id) DO UPDATE").
		Set("data = EXCLUDED.data").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("save quiz %s: %w", quiz.ID, err)
	}
	return nil
}
