package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// NoAnswer marks a question that was skipped or timed out.
const NoAnswer = -1

// MixedTopic selects questions from every topic.
const MixedTopic = "Mixed"

// Difficulty is the tier of a question and the ceiling of a session filter.
type Difficulty int

const (
	Easy   Difficulty = 1
	Medium Difficulty = 2
	Hard   Difficulty = 3
)

// ParseDifficulty accepts a tier name or its number.
func ParseDifficulty(raw string) (Difficulty, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "easy", "1":
		return Easy, nil
	case "medium", "2", "":
		return Medium, nil
	case "hard", "3":
		return Hard, nil
	}
	return 0, fmt.Errorf("unknown difficulty %q", raw)
}

func (d Difficulty) String() string {
	switch d {
	case Easy:
		return "Easy"
	case Medium:
		return "Medium"
	case Hard:
		return "Hard"
	}
	return "Difficulty(" + strconv.Itoa(int(d)) + ")"
}

// Points awarded for a correct answer to a question of this tier.
func (d Difficulty) Points() int {
	switch d {
	case Medium:
		return 15
	case Hard:
		return 20
	}
	return 10
}

// MaxPointsPerQuestion is the per-question denominator used for max scores.
const MaxPointsPerQuestion = 20

// Question models an MCQ question with exactly one correct option.
type Question struct {
	Text         string     `json:"questionText" yaml:"questionText" validate:"required"`
	Topic        string     `json:"topic" yaml:"topic" validate:"required"`
	Options      []string   `json:"options" yaml:"options" validate:"min=2,dive,required"`
	CorrectIndex int        `json:"correctAnswerIndex" yaml:"correctAnswerIndex" validate:"gte=0"`
	Explanation  string     `json:"explanation" yaml:"explanation"`
	Difficulty   Difficulty `json:"difficulty" yaml:"difficulty" validate:"min=1,max=3"`
}

// Quiz is a collection of questions.
type Quiz struct {
	ID        string     `json:"id" yaml:"id" validate:"required"`
	Questions []Question `json:"questions" yaml:"questions" validate:"dive"`
}

// AnswerResult summarizes the outcome of one question.
type AnswerResult struct {
	QuestionIndex int    `json:"questionIndex"`
	Selected      int    `json:"selected"`
	CorrectIndex  int    `json:"correctIndex"`
	Correct       bool   `json:"correct"`
	TimedOut      bool   `json:"timedOut"`
	Awarded       int    `json:"awarded"`
	TotalScore    int    `json:"totalScore"`
	Explanation   string `json:"explanation"`
}

// QuizOutcome is the final result of a completed session.
type QuizOutcome struct {
	QuizID      string        `json:"quizId"`
	Score       int           `json:"score"`
	MaxScore    int           `json:"maxScore"`
	Correct     int           `json:"correct"`
	Total       int           `json:"total"`
	StartedAt   time.Time     `json:"startedAt"`
	CompletedAt time.Time     `json:"completedAt"`
	Elapsed     time.Duration `json:"elapsed"`
}

// QuizResult stores the latest completion of a quiz.
type QuizResult struct {
	Score       int       `json:"score" validate:"gte=0"`
	MaxScore    int       `json:"maxScore" validate:"gte=0"`
	CompletedAt time.Time `json:"completedAt"`
	Completed   bool      `json:"completed"`
}

// DefaultPlayerName is used until the player picks a name.
const DefaultPlayerName = "Player"

// PlayerProgress is the saved state of the single local player.
type PlayerProgress struct {
	PlayerName       string                `json:"playerName"`
	QuizResults      map[string]QuizResult `json:"quizResults"`
	ModelCompletion  map[string]float64    `json:"modelCompletion"`
	TotalScore       int                   `json:"totalScore"`
	QuizzesCompleted int                   `json:"quizzesCompleted"`
	LastPlayed       time.Time             `json:"lastPlayed"`
}

// NewPlayerProgress returns first-run defaults.
func NewPlayerProgress(now time.Time) PlayerProgress {
	return PlayerProgress{
		PlayerName:      DefaultPlayerName,
		QuizResults:     make(map[string]QuizResult),
		ModelCompletion: make(map[string]float64),
		LastPlayed:      now,
	}
}

// Clone returns a deep copy safe to hand to callers.
func (p PlayerProgress) Clone() PlayerProgress {
	out := p
	out.QuizResults = make(map[string]QuizResult, len(p.QuizResults))
	for k, v := range p.QuizResults {
		out.QuizResults[k] = v
	}
	out.ModelCompletion = make(map[string]float64, len(p.ModelCompletion))
	for k, v := range p.ModelCompletion {
		out.ModelCompletion[k] = v
	}
	return out
}

// LeaderboardEntry is one ranked score.
type LeaderboardEntry struct {
	PlayerName   string    `json:"playerName"`
	Score        int       `json:"score" validate:"gte=0"`
	DateAchieved time.Time `json:"dateAchieved"`
}

// ConditionKind selects how an achievement target is compared.
type ConditionKind string

const (
	ConditionScore      ConditionKind = "score"
	ConditionCompletion ConditionKind = "completion"
	ConditionTopicScore ConditionKind = "topic_score"
	ConditionTime       ConditionKind = "time"
)

// Achievement is an unlockable goal.
type Achievement struct {
	ID          string        `json:"id" validate:"required"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Kind        ConditionKind `json:"conditionType" validate:"oneof=score completion topic_score time"`
	Target      int           `json:"unlockConditionValue"`
	Unlocked    bool          `json:"isUnlocked"`
	UnlockedAt  time.Time     `json:"unlockedDate"`
}

// Topic is the identifier segment before the first underscore.
//
// topic_score achievements are matched on this segment, which couples the id
// naming to question topics.
func (a Achievement) Topic() string {
	topic, _, _ := strings.Cut(a.ID, "_")
	return topic
}

// Satisfied reports whether value (and topic, for topic_score) meets the target.
func (a Achievement) Satisfied(value int, topic string) bool {
	switch a.Kind {
	case ConditionScore, ConditionCompletion:
		return value >= a.Target
	case ConditionTopicScore:
		return value >= a.Target && strings.EqualFold(topic, a.Topic())
	case ConditionTime:
		return value <= a.Target
	}
	return false
}
