package app

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"quiz-engine/internal/domain"
)

// DefaultTimePerQuestion is the countdown used when none is configured.
const DefaultTimePerQuestion = 30 * time.Second

// State is the lifecycle position of a Session.
type State int

const (
	StateNotStarted State = iota
	StateQuestionActive
	StateQuestionAnswered
	StateCompleted
	StateAbandoned
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateQuestionActive:
		return "question_active"
	case StateQuestionAnswered:
		return "question_answered"
	case StateCompleted:
		return "completed"
	case StateAbandoned:
		return "abandoned"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Recorder receives scored answers and the final outcome of a session.
// Errors are returned from the call that drove the transition.
type Recorder interface {
	RecordAnswer(question domain.Question, result domain.AnswerResult) error
	RecordCompletion(outcome domain.QuizOutcome) error
}

// SessionConfig configures a single play-through.
type SessionConfig struct {
	ID               string
	QuizID           string
	TimePerQuestion  time.Duration
	RandomizeOptions bool
	Clock            Clock
	Shuffler         *Shuffler
	Recorder         Recorder
}

// Session is the question-by-question state machine of one play-through.
type Session struct {
	id        string
	quizID    string
	timeLimit time.Duration
	randomize bool
	clock     Clock
	shuffler  *Shuffler
	recorder  Recorder

	mu         sync.Mutex
	state      State
	questions  []domain.Question
	index      int
	display    [][]int // display position -> canonical option index, per question
	answers    []int
	results    []bool
	timedOut   []bool
	score      int
	startedAt  time.Time
	activeAt   time.Time
	frozen     time.Duration
	timer      Timer
	generation uint64

	pending     []func()
	dispatching bool

	loaded    listeners[QuestionLoaded]
	answered  listeners[QuestionResult]
	completed listeners[QuizCompleted]
}

// NewSession builds a session over an already filtered and ordered question list.
func NewSession(cfg SessionConfig, questions []domain.Question) (*Session, error) {
	if len(questions) == 0 {
		return nil, domain.ErrEmptyResult
	}
	for i, q := range questions {
		if err := q.Validate(); err != nil {
			return nil, fmt.Errorf("question %d: %w", i, err)
		}
	}
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	if cfg.TimePerQuestion <= 0 {
		cfg.TimePerQuestion = DefaultTimePerQuestion
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock()
	}
	if cfg.Shuffler == nil {
		cfg.Shuffler = NewRandomShuffler()
	}

	qs := make([]domain.Question, len(questions))
	copy(qs, questions)
	answers := make([]int, len(qs))
	for i := range answers {
		answers[i] = domain.NoAnswer
	}
	return &Session{
		id:        cfg.ID,
		quizID:    cfg.QuizID,
		timeLimit: cfg.TimePerQuestion,
		randomize: cfg.RandomizeOptions,
		clock:     cfg.Clock,
		shuffler:  cfg.Shuffler,
		recorder:  cfg.Recorder,
		state:     StateNotStarted,
		questions: qs,
		display:   make([][]int, len(qs)),
		answers:   answers,
		results:   make([]bool, len(qs)),
		timedOut:  make([]bool, len(qs)),
	}, nil
}

// ID identifies the session in logs and transports.
func (s *Session) ID() string { return s.id }

// QuizID is the identifier progress is recorded under.
func (s *Session) QuizID() string { return s.quizID }

// OnQuestionLoaded subscribes to question-loaded events.
func (s *Session) OnQuestionLoaded(fn func(QuestionLoaded)) (unsubscribe func()) {
	return s.loaded.add(fn)
}

// OnQuestionResult subscribes to question-result events.
func (s *Session) OnQuestionResult(fn func(QuestionResult)) (unsubscribe func()) {
	return s.answered.add(fn)
}

// OnQuizCompleted subscribes to the completion event.
func (s *Session) OnQuizCompleted(fn func(QuizCompleted)) (unsubscribe func()) {
	return s.completed.add(fn)
}

// Start activates the first question.
func (s *Session) Start() error {
	s.mu.Lock()
	if s.state != StateNotStarted {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("%w: start in %s", domain.ErrInvalidState, state)
	}
	s.startedAt = s.clock.Now()
	s.loadLocked(0)
	s.mu.Unlock()

	s.drain()
	return nil
}

// SubmitAnswer answers the active question with a displayed option position,
// or domain.NoAnswer. A second submission for the same question is ignored and
// returns the recorded result.
func (s *Session) SubmitAnswer(position int) (domain.AnswerResult, error) {
	s.mu.Lock()
	switch s.state {
	case StateQuestionAnswered:
		res := s.resultLocked(s.index)
		s.mu.Unlock()
		return res, nil
	case StateQuestionActive:
	default:
		state := s.state
		s.mu.Unlock()
		return domain.AnswerResult{}, fmt.Errorf("%w: submit in %s", domain.ErrInvalidState, state)
	}

	canonical := domain.NoAnswer
	if position != domain.NoAnswer {
		order := s.display[s.index]
		if position < 0 || position >= len(order) {
			s.mu.Unlock()
			return domain.AnswerResult{}, fmt.Errorf("%w: position %d", domain.ErrOptionNotFound, position)
		}
		canonical = order[position]
	}
	question, res := s.answerLocked(canonical, false)
	s.mu.Unlock()

	err := s.recordAnswer(question, res)
	s.drain()
	return res, err
}

// Skip submits an explicit unanswered response.
func (s *Session) Skip() (domain.AnswerResult, error) {
	return s.SubmitAnswer(domain.NoAnswer)
}

// Advance moves past an answered question, completing the quiz after the last one.
func (s *Session) Advance() error {
	s.mu.Lock()
	if s.state != StateQuestionAnswered {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("%w: advance in %s", domain.ErrInvalidState, state)
	}

	if s.index < len(s.questions)-1 {
		s.loadLocked(s.index + 1)
		s.mu.Unlock()
		s.drain()
		return nil
	}

	s.state = StateCompleted
	s.stopTimerLocked()
	outcome := s.outcomeLocked()
	s.enqueueLocked(func() {
		s.completed.publish(QuizCompleted{SessionID: s.id, Outcome: outcome})
	})
	s.mu.Unlock()

	log.Printf("session %s completed: %d/%d", s.id, outcome.Score, outcome.MaxScore)
	var err error
	if s.recorder != nil {
		if rerr := s.recorder.RecordCompletion(outcome); rerr != nil {
			err = fmt.Errorf("record completion: %w", rerr)
		}
	}
	s.drain()
	return err
}

// NextQuestion is an alias of Advance.
func (s *Session) NextQuestion() error {
	return s.Advance()
}

// Close abandons an unfinished session, cancels its countdown and drops subscribers.
func (s *Session) Close() {
	s.mu.Lock()
	s.stopTimerLocked()
	if s.state != StateCompleted {
		s.state = StateAbandoned
	}
	s.mu.Unlock()

	s.loaded.clear()
	s.answered.clear()
	s.completed.clear()
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// CurrentIndex is the 0-based index of the current question.
func (s *Session) CurrentIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index
}

// CurrentQuestion returns the question on screen, if any.
func (s *Session) CurrentQuestion() (domain.Question, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateQuestionActive && s.state != StateQuestionAnswered {
		return domain.Question{}, false
	}
	return s.questions[s.index], true
}

// CurrentOptions returns the options of the current question in display order.
func (s *Session) CurrentOptions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateQuestionActive && s.state != StateQuestionAnswered {
		return nil
	}
	return s.optionsLocked(s.index)
}

// Score is the running score.
func (s *Session) Score() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.score
}

// TotalQuestions is the number of selected questions.
func (s *Session) TotalQuestions() int {
	return len(s.questions)
}

// Remaining is the countdown left on the current question, never negative.
func (s *Session) Remaining() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateQuestionActive {
		return s.remainingLocked()
	}
	return s.frozen
}

// DisplayPosition maps a canonical option index of question index to the
// position it was shown at, or domain.NoAnswer.
func (s *Session) DisplayPosition(index, canonical int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.display) {
		return domain.NoAnswer
	}
	for pos, c := range s.display[index] {
		if c == canonical {
			return pos
		}
	}
	return domain.NoAnswer
}

// Answers returns the recorded canonical answer per question.
func (s *Session) Answers() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int, len(s.answers))
	copy(out, s.answers)
	return out
}

// Results returns the correctness flag per question.
func (s *Session) Results() []bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]bool, len(s.results))
	copy(out, s.results)
	return out
}

func (s *Session) loadLocked(index int) {
	s.stopTimerLocked()
	s.index = index
	s.state = StateQuestionActive
	s.activeAt = s.clock.Now()
	s.frozen = s.timeLimit

	q := s.questions[index]
	if s.randomize {
		s.display[index] = s.shuffler.Perm(len(q.Options))
	} else {
		order := make([]int, len(q.Options))
		for i := range order {
			order[i] = i
		}
		s.display[index] = order
	}

	s.generation++
	gen := s.generation
	s.timer = s.clock.AfterFunc(s.timeLimit, func() { s.expire(index, gen) })

	event := QuestionLoaded{
		SessionID: s.id,
		Index:     index,
		Total:     len(s.questions),
		Question:  q,
		Options:   s.optionsLocked(index),
		TimeLimit: s.timeLimit,
	}
	s.enqueueLocked(func() { s.loaded.publish(event) })
}

// expire auto-submits NoAnswer unless the question it was armed for has already ended.
func (s *Session) expire(index int, gen uint64) {
	s.mu.Lock()
	if s.state != StateQuestionActive || s.index != index || s.generation != gen {
		s.mu.Unlock()
		return
	}
	question, res := s.answerLocked(domain.NoAnswer, true)
	s.mu.Unlock()

	log.Printf("session %s question %d timed out", s.id, index)
	if err := s.recordAnswer(question, res); err != nil {
		log.Printf("session %s: %v", s.id, err)
	}
	s.drain()
}

func (s *Session) answerLocked(canonical int, timedOut bool) (domain.Question, domain.AnswerResult) {
	s.frozen = s.remainingLocked()
	if timedOut {
		s.frozen = 0
	}
	s.stopTimerLocked()

	q := s.questions[s.index]
	correct := canonical != domain.NoAnswer && canonical == q.CorrectIndex
	s.answers[s.index] = canonical
	s.results[s.index] = correct
	s.timedOut[s.index] = timedOut
	if correct {
		s.score += q.Difficulty.Points()
	}
	s.state = StateQuestionAnswered

	res := s.resultLocked(s.index)
	event := QuestionResult{SessionID: s.id, Question: q, Result: res}
	s.enqueueLocked(func() { s.answered.publish(event) })
	return q, res
}

func (s *Session) resultLocked(index int) domain.AnswerResult {
	q := s.questions[index]
	awarded := 0
	if s.results[index] {
		awarded = q.Difficulty.Points()
	}
	return domain.AnswerResult{
		QuestionIndex: index,
		Selected:      s.answers[index],
		CorrectIndex:  q.CorrectIndex,
		Correct:       s.results[index],
		TimedOut:      s.timedOut[index],
		Awarded:       awarded,
		TotalScore:    s.score,
		Explanation:   q.Explanation,
	}
}

func (s *Session) outcomeLocked() domain.QuizOutcome {
	correct := 0
	for _, ok := range s.results {
		if ok {
			correct++
		}
	}
	now := s.clock.Now()
	return domain.QuizOutcome{
		QuizID:      s.quizID,
		Score:       s.score,
		MaxScore:    len(s.questions) * domain.MaxPointsPerQuestion,
		Correct:     correct,
		Total:       len(s.questions),
		StartedAt:   s.startedAt,
		CompletedAt: now,
		Elapsed:     now.Sub(s.startedAt),
	}
}

func (s *Session) optionsLocked(index int) []string {
	q := s.questions[index]
	order := s.display[index]
	out := make([]string, len(order))
	for pos, canonical := range order {
		out[pos] = q.Options[canonical]
	}
	return out
}

func (s *Session) remainingLocked() time.Duration {
	left := s.timeLimit - s.clock.Now().Sub(s.activeAt)
	if left < 0 {
		return 0
	}
	return left
}

func (s *Session) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Session) recordAnswer(question domain.Question, res domain.AnswerResult) error {
	if s.recorder == nil {
		return nil
	}
	if err := s.recorder.RecordAnswer(question, res); err != nil {
		return fmt.Errorf("record answer: %w", err)
	}
	return nil
}

func (s *Session) enqueueLocked(fn func()) {
	s.pending = append(s.pending, fn)
}

// drain delivers queued events in transition order. A handler that calls back
// into the session only enqueues; the outer drain delivers its events.
func (s *Session) drain() {
	s.mu.Lock()
	if s.dispatching {
		s.mu.Unlock()
		return
	}
	s.dispatching = true
	for len(s.pending) > 0 {
		fn := s.pending[0]
		s.pending = s.pending[1:]
		s.mu.Unlock()
		fn()
		s.mu.Lock()
	}
	s.dispatching = false
	s.mu.Unlock()
}
