package domain

import "errors"

var (
	// ErrEmptyResult is returned when the session filter matches no question.
	ErrEmptyResult = errors.New("no questions match the selected topics and difficulty")
	// ErrInvalidState is returned when an operation is called outside its valid state.
	ErrInvalidState = errors.New("invalid session state")
	// ErrPersistenceUnavailable wraps durable read/write failures.
	ErrPersistenceUnavailable = errors.New("persistence unavailable")
	// ErrDocumentNotFound indicates a document has never been saved.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrOptionNotFound indicates a submitted option position is invalid.
	ErrOptionNotFound = errors.New("option not found")
	// ErrInvalidQuestion is returned for question records that break their invariants.
	ErrInvalidQuestion = errors.New("invalid question")
)
