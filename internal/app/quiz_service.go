package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"quiz-engine/internal/domain"
)

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// SessionRepository tracks live sessions for transports that look them up by id.
type SessionRepository interface {
	Put(session *Session)
	Get(sessionID string) (*Session, bool)
	Delete(sessionID string)
}

// Settings are the session defaults applied by QuizService.
type Settings struct {
	TimePerQuestion  time.Duration
	RandomizeOptions bool
	Topics           []string
	Difficulty       domain.Difficulty
	Clock            Clock
	Shuffler         *Shuffler
}

// QuizService contains the core quiz use cases.
type QuizService struct {
	quizzes      QuizRepository
	progress     *ProgressStore
	leaderboard  *LeaderboardStore
	achievements *AchievementStore

	timePerQuestion  time.Duration
	randomizeOptions bool
	clock            Clock
	shuffler         *Shuffler

	mu         sync.RWMutex
	topics     []string
	difficulty domain.Difficulty

	unlocks listeners[AchievementUnlocked]
}

func NewQuizService(quizzes QuizRepository, progress *ProgressStore, leaderboard *LeaderboardStore, achievements *AchievementStore, settings Settings) *QuizService {
	if settings.Clock == nil {
		settings.Clock = SystemClock()
	}
	if settings.Shuffler == nil {
		settings.Shuffler = NewRandomShuffler()
	}
	if settings.Difficulty == 0 {
		settings.Difficulty = domain.Medium
	}
	return &QuizService{
		quizzes:          quizzes,
		progress:         progress,
		leaderboard:      leaderboard,
		achievements:     achievements,
		timePerQuestion:  settings.TimePerQuestion,
		randomizeOptions: settings.RandomizeOptions,
		clock:            settings.Clock,
		shuffler:         settings.Shuffler,
		topics:           append([]string(nil), settings.Topics...),
		difficulty:       settings.Difficulty,
	}
}

// SetTopics replaces the topic selection used by the next session.
func (s *QuizService) SetTopics(topics []string) {
	s.mu.Lock()
	s.topics = append([]string(nil), topics...)
	s.mu.Unlock()
	log.Printf("quiz topics set to: %s", strings.Join(topics, ", "))
}

// SetDifficulty replaces the difficulty ceiling used by the next session.
func (s *QuizService) SetDifficulty(d domain.Difficulty) {
	s.mu.Lock()
	s.difficulty = d
	s.mu.Unlock()
	log.Printf("quiz difficulty set to: %s", d)
}

// Selection returns the current filter.
func (s *QuizService) Selection() Filter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Filter{Topics: append([]string(nil), s.topics...), Difficulty: s.difficulty}
}

// StartSession loads the quiz, filters it and starts a session whose answers and
// completion are recorded in the stores. The caller owns the session and must Close it.
func (s *QuizService) StartSession(ctx context.Context, quizID string) (*Session, error) {
	return s.StartSessionWith(ctx, quizID, s.Selection(), nil)
}

// StartSessionWith is StartSession with an explicit filter. subscribe, when set, runs
// before the first question loads so no event is missed.
func (s *QuizService) StartSessionWith(ctx context.Context, quizID string, filter Filter, subscribe func(*Session)) (*Session, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	questions, err := SelectQuestions(quiz.Questions, filter, s.shuffler)
	if err != nil {
		log.Printf("no questions available for quiz %s with topics %v and difficulty %s", quizID, filter.Topics, filter.Difficulty)
		return nil, err
	}

	session, err := NewSession(SessionConfig{
		QuizID:           quizID,
		TimePerQuestion:  s.timePerQuestion,
		RandomizeOptions: s.randomizeOptions,
		Clock:            s.clock,
		Shuffler:         s.shuffler,
		Recorder:         progressRecorder{service: s},
	}, questions)
	if err != nil {
		return nil, err
	}
	if subscribe != nil {
		subscribe(session)
	}
	if err := session.Start(); err != nil {
		return nil, err
	}
	log.Printf("session %s started for quiz %s with %d questions", session.ID(), quizID, session.TotalQuestions())
	return session, nil
}

// OnAchievementUnlocked subscribes to unlocks produced by any session of this service.
func (s *QuizService) OnAchievementUnlocked(fn func(AchievementUnlocked)) (unsubscribe func()) {
	return s.unlocks.add(fn)
}

// Progress is the progress store.
func (s *QuizService) Progress() *ProgressStore { return s.progress }

// Leaderboard is the leaderboard store.
func (s *QuizService) Leaderboard() *LeaderboardStore { return s.leaderboard }

// Achievements is the achievement store.
func (s *QuizService) Achievements() *AchievementStore { return s.achievements }

func (s *QuizService) evaluate(kind domain.ConditionKind, value int, topic string) error {
	unlocked, err := s.achievements.Evaluate(kind, value, topic)
	for _, a := range unlocked {
		s.unlocks.publish(AchievementUnlocked{Achievement: a})
	}
	return err
}

// progressRecorder ties session transitions to the stores.
type progressRecorder struct {
	service *QuizService
}

// RecordAnswer evaluates score achievements with the running score after a correct answer.
func (r progressRecorder) RecordAnswer(question domain.Question, result domain.AnswerResult) error {
	if !result.Correct {
		return nil
	}
	return errors.Join(
		r.service.evaluate(domain.ConditionScore, result.TotalScore, ""),
		r.service.evaluate(domain.ConditionTopicScore, result.TotalScore, strings.ToLower(question.Topic)),
	)
}

// RecordCompletion saves the result, ranks the score and evaluates completion achievements.
// Every step runs even when an earlier one fails to persist.
func (r progressRecorder) RecordCompletion(outcome domain.QuizOutcome) error {
	s := r.service
	var errs []error
	if err := s.progress.RecordQuizResult(outcome.QuizID, outcome.Score, outcome.MaxScore); err != nil {
		errs = append(errs, fmt.Errorf("progress: %w", err))
	}
	if err := s.leaderboard.AddScore(s.progress.PlayerName(), outcome.Score); err != nil {
		errs = append(errs, fmt.Errorf("leaderboard: %w", err))
	}
	completed := s.progress.Progress().QuizzesCompleted
	if err := s.evaluate(domain.ConditionCompletion, completed, ""); err != nil {
		errs = append(errs, fmt.Errorf("achievements: %w", err))
	}
	// Partial seconds count as a full second so 120.5s misses a 120s target.
	elapsed := int((outcome.Elapsed + time.Second - 1) / time.Second)
	if err := s.evaluate(domain.ConditionTime, elapsed, ""); err != nil {
		errs = append(errs, fmt.Errorf("achievements: %w", err))
	}
	return errors.Join(errs...)
}
