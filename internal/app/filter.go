package app

import (
	"math/rand"
	"sync"
	"time"

	"quiz-engine/internal/domain"
)

// Filter narrows a catalog to the selected topics and difficulty ceiling.
type Filter struct {
	Topics     []string
	Difficulty domain.Difficulty
}

func (f Filter) unrestricted() bool {
	if len(f.Topics) == 0 {
		return true
	}
	for _, topic := range f.Topics {
		if topic == domain.MixedTopic {
			return true
		}
	}
	return false
}

func (f Filter) topicMatch(topic string) bool {
	if f.unrestricted() {
		return true
	}
	for _, t := range f.Topics {
		if t == topic {
			return true
		}
	}
	return false
}

// difficultyMatch is inclusive downward for Easy and Medium; Hard admits only Hard.
func (f Filter) difficultyMatch(d domain.Difficulty) bool {
	switch f.Difficulty {
	case domain.Easy:
		return d <= domain.Easy
	case domain.Medium:
		return d <= domain.Medium
	case domain.Hard:
		return d == domain.Hard
	}
	return true
}

// Matches reports whether q passes both the topic and difficulty checks.
func (f Filter) Matches(q domain.Question) bool {
	return f.topicMatch(q.Topic) && f.difficultyMatch(q.Difficulty)
}

// SelectQuestions returns the matching questions in shuffled order.
// The input slice is left untouched.
func SelectQuestions(questions []domain.Question, filter Filter, shuffler *Shuffler) ([]domain.Question, error) {
	selected := make([]domain.Question, 0, len(questions))
	for _, q := range questions {
		if filter.Matches(q) {
			selected = append(selected, q)
		}
	}
	if len(selected) == 0 {
		return nil, domain.ErrEmptyResult
	}
	if shuffler != nil {
		shuffler.Shuffle(len(selected), func(i, j int) {
			selected[i], selected[j] = selected[j], selected[i]
		})
	}
	return selected, nil
}

// Shuffler is a goroutine-safe, re-seedable source of uniform permutations.
type Shuffler struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewShuffler returns a deterministic shuffler for the given seed.
func NewShuffler(seed int64) *Shuffler {
	return &Shuffler{rnd: rand.New(rand.NewSource(seed))}
}

// NewRandomShuffler seeds from the current time.
func NewRandomShuffler() *Shuffler {
	return NewShuffler(time.Now().UnixNano())
}

// Seed resets the sequence.
func (s *Shuffler) Seed(seed int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rnd = rand.New(rand.NewSource(seed))
}

// Shuffle performs a Fisher–Yates shuffle through swap.
func (s *Shuffler) Shuffle(n int, swap func(i, j int)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rnd.Shuffle(n, swap)
}

// Perm returns a random permutation of [0, n).
func (s *Shuffler) Perm(n int) []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rnd.Perm(n)
}
