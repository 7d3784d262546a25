package app

import (
	"sync"
	"time"

	"quiz-engine/internal/domain"
)

// QuestionLoaded is raised each time a question becomes active.
type QuestionLoaded struct {
	SessionID string
	Index     int
	Total     int
	Question  domain.Question
	Options   []string // display order
	TimeLimit time.Duration
}

// QuestionResult is raised once per question, after a manual answer, skip or timeout.
type QuestionResult struct {
	SessionID string
	Question  domain.Question
	Result    domain.AnswerResult
}

// QuizCompleted is raised exactly once, when the last question is advanced past.
type QuizCompleted struct {
	SessionID string
	Outcome   domain.QuizOutcome
}

// AchievementUnlocked is raised by QuizService for every new unlock.
type AchievementUnlocked struct {
	Achievement domain.Achievement
}

// listeners is an ordered observer list with per-subscription cancel.
type listeners[T any] struct {
	mu     sync.Mutex
	nextID int
	subs   []subscription[T]
}

type subscription[T any] struct {
	id int
	fn func(T)
}

func (l *listeners[T]) add(fn func(T)) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextID++
	id := l.nextID
	l.subs = append(l.subs, subscription[T]{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() { l.remove(id) })
	}
}

func (l *listeners[T]) remove(id int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, sub := range l.subs {
		if sub.id == id {
			l.subs = append(l.subs[:i:i], l.subs[i+1:]...)
			return
		}
	}
}

func (l *listeners[T]) clear() {
	l.mu.Lock()
	l.subs = nil
	l.mu.Unlock()
}

// publish calls every handler with a snapshot of the list, so handlers may unsubscribe.
func (l *listeners[T]) publish(event T) {
	l.mu.Lock()
	subs := make([]subscription[T], len(l.subs))
	copy(subs, l.subs)
	l.mu.Unlock()

	for _, sub := range subs {
		sub.fn(event)
	}
}
