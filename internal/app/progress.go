package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"quiz-engine/internal/domain"
)

const progressVersion = 2

// progressDocument is the on-disk shape of playerProgress.json.
// QuizzesCompleted is a pointer so version 1 documents, which lack it, can be defaulted.
type progressDocument struct {
	Version          int                          `json:"version"`
	PlayerName       string                       `json:"playerName"`
	QuizResults      map[string]domain.QuizResult `json:"quizResults" validate:"dive"`
	ModelCompletion  map[string]float64           `json:"modelCompletion" validate:"dive,gte=0,lte=1"`
	TotalScore       int                          `json:"totalScore" validate:"gte=0"`
	QuizzesCompleted *int                         `json:"quizzesCompleted,omitempty" validate:"omitempty,gte=0"`
	LastPlayed       time.Time                    `json:"lastPlayed"`
}

func (d progressDocument) toProgress(now time.Time) domain.PlayerProgress {
	p := domain.NewPlayerProgress(now)
	if d.PlayerName != "" {
		p.PlayerName = d.PlayerName
	}
	for k, v := range d.QuizResults {
		p.QuizResults[k] = v
	}
	for k, v := range d.ModelCompletion {
		p.ModelCompletion[k] = v
	}
	p.TotalScore = d.TotalScore
	if d.QuizzesCompleted != nil {
		p.QuizzesCompleted = *d.QuizzesCompleted
	} else {
		p.QuizzesCompleted = len(d.QuizResults)
	}
	if !d.LastPlayed.IsZero() {
		p.LastPlayed = d.LastPlayed
	}
	return p
}

func newProgressDocument(p domain.PlayerProgress) progressDocument {
	completed := p.QuizzesCompleted
	return progressDocument{
		Version:          progressVersion,
		PlayerName:       p.PlayerName,
		QuizResults:      p.QuizResults,
		ModelCompletion:  p.ModelCompletion,
		TotalScore:       p.TotalScore,
		QuizzesCompleted: &completed,
		LastPlayed:       p.LastPlayed,
	}
}

// ProgressStore owns the player's saved progress.
type ProgressStore struct {
	docs DocumentStore
	now  func() time.Time

	mu       sync.Mutex
	progress domain.PlayerProgress
}

// NewProgressStore loads saved progress, falling back to defaults when none can be read.
func NewProgressStore(ctx context.Context, docs DocumentStore) *ProgressStore {
	return NewProgressStoreWithClock(ctx, docs, time.Now)
}

// NewProgressStoreWithClock allows deterministic timestamps in tests.
func NewProgressStoreWithClock(ctx context.Context, docs DocumentStore, now func() time.Time) *ProgressStore {
	s := &ProgressStore{docs: docs, now: now}
	s.load(ctx)
	return s
}

func (s *ProgressStore) load(ctx context.Context) {
	var doc progressDocument
	err := loadDocument(ctx, s.docs, ProgressDocument, &doc)
	switch {
	case err == nil:
		s.progress = doc.toProgress(s.now())
		log.Printf("progress loaded for %s", s.progress.PlayerName)
	case errors.Is(err, domain.ErrDocumentNotFound):
		s.progress = domain.NewPlayerProgress(s.now())
		log.Printf("no saved progress, starting fresh")
	default:
		s.progress = domain.NewPlayerProgress(s.now())
		log.Printf("progress unavailable, using defaults: %v", err)
	}
}

// RecordQuizResult overwrites the result for quizID and adds score to the running total.
func (s *ProgressStore) RecordQuizResult(quizID string, score, maxScore int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.progress.QuizResults[quizID] = domain.QuizResult{
		Score:       score,
		MaxScore:    maxScore,
		CompletedAt: now,
		Completed:   true,
	}
	s.progress.TotalScore += score
	s.progress.QuizzesCompleted++
	return s.saveLocked()
}

// RecordModelCompletion stores a completion fraction, clamped to [0,1].
// NaN and infinite fractions are rejected without touching the stored progress.
func (s *ProgressStore) RecordModelCompletion(modelID string, fraction float64) error {
	if math.IsNaN(fraction) || math.IsInf(fraction, 0) {
		return fmt.Errorf("model %s: invalid completion fraction %v", modelID, fraction)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case fraction < 0:
		fraction = 0
	case fraction > 1:
		fraction = 1
	}
	s.progress.ModelCompletion[modelID] = fraction
	return s.saveLocked()
}

// SetPlayerName renames the local player; empty names reset to the default.
func (s *ProgressStore) SetPlayerName(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if name == "" {
		name = domain.DefaultPlayerName
	}
	s.progress.PlayerName = name
	return s.saveLocked()
}

// Reset replaces all progress with defaults.
func (s *ProgressStore) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.progress = domain.NewPlayerProgress(s.now())
	return s.saveLocked()
}

// Progress returns a snapshot the caller may keep.
func (s *ProgressStore) Progress() domain.PlayerProgress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progress.Clone()
}

// PlayerName is the current display name.
func (s *ProgressStore) PlayerName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progress.PlayerName
}

// QuizResult returns the latest result for quizID.
func (s *ProgressStore) QuizResult(quizID string) (domain.QuizResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, ok := s.progress.QuizResults[quizID]
	return res, ok
}

// saveLocked persists the in-memory state; on failure memory stays authoritative.
func (s *ProgressStore) saveLocked() error {
	s.progress.LastPlayed = s.now()
	return saveDocument(context.Background(), s.docs, ProgressDocument, newProgressDocument(s.progress))
}
