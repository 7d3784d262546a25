package app

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"quiz-engine/internal/domain"
)

// DefaultAchievements is the catalog seeded on every start.
func DefaultAchievements() []domain.Achievement {
	return []domain.Achievement{
		{ID: "score_100", Title: "First Steps", Description: "Score 100 points in a quiz", Kind: domain.ConditionScore, Target: 100},
		{ID: "score_500", Title: "Quiz Master", Description: "Score 500 points in a quiz", Kind: domain.ConditionScore, Target: 500},
		{ID: "score_1000", Title: "Knowledge Legend", Description: "Score 1000 points in a quiz", Kind: domain.ConditionScore, Target: 1000},

		{ID: "complete_5", Title: "Persistent Learner", Description: "Complete 5 quizzes", Kind: domain.ConditionCompletion, Target: 5},
		{ID: "complete_10", Title: "Dedicated Scholar", Description: "Complete 10 quizzes", Kind: domain.ConditionCompletion, Target: 10},
		{ID: "complete_all", Title: "Master Explorer", Description: "Complete all topics", Kind: domain.ConditionCompletion, Target: 100},

		{ID: "biology_100", Title: "Biologist", Description: "Score 100 points in biology topic", Kind: domain.ConditionTopicScore, Target: 100},
		{ID: "planets_100", Title: "Astronomer", Description: "Score 100 points in planets topic", Kind: domain.ConditionTopicScore, Target: 100},
		{ID: "mixed_100", Title: "Versatile Learner", Description: "Score 100 points in mixed topic", Kind: domain.ConditionTopicScore, Target: 100},

		{ID: "fast_quiz", Title: "Speed Demon", Description: "Complete a quiz in under 2 minutes", Kind: domain.ConditionTime, Target: 120},
	}
}

// achievementState is the persisted unlock state; definitions always come from the catalog.
type achievementState struct {
	ID         string    `json:"id" validate:"required"`
	Unlocked   bool      `json:"isUnlocked"`
	UnlockedAt time.Time `json:"unlockedDate"`
}

type achievementsDocument struct {
	Achievements []achievementState `json:"achievements" validate:"dive"`
}

// savedAchievementsDocument writes full definitions so the file stays readable on its own.
type savedAchievementsDocument struct {
	Achievements []domain.Achievement `json:"achievements"`
}

// AchievementStore tracks unlock state for a fixed achievement catalog.
type AchievementStore struct {
	docs DocumentStore
	now  func() time.Time

	mu           sync.Mutex
	achievements []domain.Achievement
}

// NewAchievementStore seeds the default catalog and restores saved unlocks.
func NewAchievementStore(ctx context.Context, docs DocumentStore) *AchievementStore {
	return NewAchievementStoreWithClock(ctx, docs, DefaultAchievements(), time.Now)
}

// NewAchievementStoreWithClock allows a custom catalog and deterministic timestamps.
func NewAchievementStoreWithClock(ctx context.Context, docs DocumentStore, catalog []domain.Achievement, now func() time.Time) *AchievementStore {
	s := &AchievementStore{
		docs:         docs,
		now:          now,
		achievements: make([]domain.Achievement, len(catalog)),
	}
	copy(s.achievements, catalog)

	var doc achievementsDocument
	err := loadDocument(ctx, docs, AchievementsDocument, &doc)
	switch {
	case err == nil:
		s.reconcile(doc.Achievements)
		log.Printf("achievements loaded")
	case errors.Is(err, domain.ErrDocumentNotFound):
		log.Printf("no saved achievements, starting with defaults")
	default:
		log.Printf("achievements unavailable, starting with defaults: %v", err)
	}
	return s
}

// reconcile copies unlock state onto matching catalog entries only.
func (s *AchievementStore) reconcile(saved []achievementState) {
	byID := make(map[string]achievementState, len(saved))
	for _, st := range saved {
		byID[st.ID] = st
	}
	for i := range s.achievements {
		if st, ok := byID[s.achievements[i].ID]; ok && st.Unlocked {
			s.achievements[i].Unlocked = true
			s.achievements[i].UnlockedAt = st.UnlockedAt
		}
	}
}

// Evaluate unlocks every locked achievement of kind whose condition value satisfies.
// topic is only consulted for topic_score achievements. It returns the new unlocks;
// their unlocked state is kept in memory even when saving fails.
func (s *AchievementStore) Evaluate(kind domain.ConditionKind, value int, topic string) ([]domain.Achievement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var unlocked []domain.Achievement
	now := s.now()
	for i := range s.achievements {
		a := &s.achievements[i]
		if a.Unlocked || a.Kind != kind {
			continue
		}
		if !a.Satisfied(value, topic) {
			continue
		}
		a.Unlocked = true
		a.UnlockedAt = now
		unlocked = append(unlocked, *a)
		log.Printf("achievement unlocked: %s - %s", a.Title, a.Description)
	}
	if len(unlocked) == 0 {
		return nil, nil
	}
	return unlocked, s.saveLocked()
}

// IsUnlocked reports whether id is unlocked.
func (s *AchievementStore) IsUnlocked(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.achievements {
		if a.ID == id {
			return a.Unlocked
		}
	}
	return false
}

// Get returns one achievement by id.
func (s *AchievementStore) Get(id string) (domain.Achievement, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.achievements {
		if a.ID == id {
			return a, true
		}
	}
	return domain.Achievement{}, false
}

// All returns every achievement in catalog order.
func (s *AchievementStore) All() []domain.Achievement {
	return s.filter(func(domain.Achievement) bool { return true })
}

// Unlocked returns unlocked achievements.
func (s *AchievementStore) Unlocked() []domain.Achievement {
	return s.filter(func(a domain.Achievement) bool { return a.Unlocked })
}

// Locked returns achievements still to earn.
func (s *AchievementStore) Locked() []domain.Achievement {
	return s.filter(func(a domain.Achievement) bool { return !a.Unlocked })
}

func (s *AchievementStore) filter(keep func(domain.Achievement) bool) []domain.Achievement {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Achievement, 0, len(s.achievements))
	for _, a := range s.achievements {
		if keep(a) {
			out = append(out, a)
		}
	}
	return out
}

func (s *AchievementStore) saveLocked() error {
	doc := savedAchievementsDocument{Achievements: s.achievements}
	return saveDocument(context.Background(), s.docs, AchievementsDocument, doc)
}
