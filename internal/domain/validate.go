package domain

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks struct tags and that the correct option exists.
func (q Question) Validate() error {
	if err := validate.Struct(q); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidQuestion, err)
	}
	if q.CorrectIndex >= len(q.Options) {
		return fmt.Errorf("%w: correct index %d out of %d options", ErrInvalidQuestion, q.CorrectIndex, len(q.Options))
	}
	return nil
}

// Validate checks every question of the quiz.
func (q Quiz) Validate() error {
	if q.ID == "" {
		return fmt.Errorf("%w: quiz id is empty", ErrInvalidQuestion)
	}
	for i, question := range q.Questions {
		if err := question.Validate(); err != nil {
			return fmt.Errorf("quiz %s question %d: %w", q.ID, i, err)
		}
	}
	return nil
}

// ValidateStruct runs tag validation on decoded documents.
func ValidateStruct(v any) error {
	return validate.Struct(v)
}
