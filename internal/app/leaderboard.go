package app

import (
	"context"
	"errors"
	"log"
	"sort"
	"sync"
	"time"

	"quiz-engine/internal/domain"
)

// DefaultLeaderboardSize is the number of ranked entries kept.
const DefaultLeaderboardSize = 10

type leaderboardDocument struct {
	Entries []domain.LeaderboardEntry `json:"entries" validate:"dive"`
}

// LeaderboardStore keeps the top scores ranked by score descending.
type LeaderboardStore struct {
	docs     DocumentStore
	now      func() time.Time
	capacity int

	mu      sync.Mutex
	entries []domain.LeaderboardEntry
}

// NewLeaderboardStore loads the saved leaderboard or starts empty.
func NewLeaderboardStore(ctx context.Context, docs DocumentStore) *LeaderboardStore {
	return NewLeaderboardStoreWithClock(ctx, docs, DefaultLeaderboardSize, time.Now)
}

// NewLeaderboardStoreWithClock allows a custom capacity and deterministic timestamps.
func NewLeaderboardStoreWithClock(ctx context.Context, docs DocumentStore, capacity int, now func() time.Time) *LeaderboardStore {
	if capacity <= 0 {
		capacity = DefaultLeaderboardSize
	}
	s := &LeaderboardStore{docs: docs, now: now, capacity: capacity}

	var doc leaderboardDocument
	err := loadDocument(ctx, docs, LeaderboardDocument, &doc)
	switch {
	case err == nil:
		s.entries = rank(doc.Entries, capacity)
		log.Printf("leaderboard loaded with %d entries", len(s.entries))
	case errors.Is(err, domain.ErrDocumentNotFound):
		log.Printf("no saved leaderboard, starting empty")
	default:
		log.Printf("leaderboard unavailable, starting empty: %v", err)
	}
	return s
}

// AddScore inserts a new entry, re-ranks, trims to capacity and persists.
func (s *LeaderboardStore) AddScore(name string, score int) error {
	if name == "" {
		name = domain.DefaultPlayerName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries := append(s.entries, domain.LeaderboardEntry{
		PlayerName:   name,
		Score:        score,
		DateAchieved: s.now(),
	})
	s.entries = rank(entries, s.capacity)
	return saveDocument(context.Background(), s.docs, LeaderboardDocument, leaderboardDocument{Entries: s.entries})
}

// Entries returns a copy of the ranked list.
func (s *LeaderboardStore) Entries() []domain.LeaderboardEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.LeaderboardEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// rank sorts by score descending, keeping insertion order for ties.
func rank(entries []domain.LeaderboardEntry, capacity int) []domain.LeaderboardEntry {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})
	if len(entries) > capacity {
		entries = entries[:capacity]
	}
	return entries
}
