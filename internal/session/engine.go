package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/classlight/quiz-session-service/internal/models"
)

var (
	ErrNotActive      = errors.New("session is not active")
	ErrClosed         = errors.New("session is closed")
	ErrSubmitInFlight = errors.New("submission already in flight")
	ErrLoadInFlight   = errors.New("load already in flight")
	ErrAlreadyLoaded  = errors.New("quiz already loaded")
)

// QuizLoader fetches quiz definitions from the quiz catalog service.
type QuizLoader interface {
	GetQuiz(ctx context.Context, quizID string) (*models.QuizDefinition, error)
}

// Grader submits an answer set to the grading service. The engine never
// computes correctness itself.
type Grader interface {
	SubmitAnswers(ctx context.Context, quizID string, payload models.SubmissionPayload) (*models.SubmissionResult, error)
}

// Hooks are invoked outside the engine lock after the corresponding phase
// transition. They fire for both manual and timeout-triggered submissions.
type Hooks struct {
	OnCompleted    func(snap models.SessionSnapshot, payload models.SubmissionPayload, result models.SubmissionResult)
	OnSubmitFailed func(snap models.SessionSnapshot, trigger models.SubmitTrigger)
}

type Config struct {
	ID     string
	Loader QuizLoader
	Grader Grader
	Clock  Clock
	Logger *slog.Logger
	Hooks  Hooks
}

// Engine drives one quiz attempt from load to graded result. It guarantees
// at most one submission reaches the grading service no matter how user
// submits and timer expiry interleave: the phase transition out of
// IN_PROGRESS is the single admission point, and the countdown is stopped
// before the grading call is issued.
type Engine struct {
	id     string
	loader QuizLoader
	grader Grader
	clock  Clock
	logger *slog.Logger
	hooks  Hooks

	mu           sync.Mutex
	phase        models.Phase
	quizID       string
	quiz         *models.QuizDefinition
	answers      map[string]models.AnswerValue
	remaining    *int
	result       *models.SubmissionResult
	endReason    *models.SubmitTrigger
	generation   uint64
	closed       bool
	loadInFlight bool
	tickerStop   chan struct{}
	subscribers  map[chan models.SessionSnapshot]struct{}
}

func New(cfg Config) *Engine {
	clock := cfg.Clock
	if clock == nil {
		clock = RealClock()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		id:          cfg.ID,
		loader:      cfg.Loader,
		grader:      cfg.Grader,
		clock:       clock,
		logger:      logger,
		hooks:       cfg.Hooks,
		phase:       models.PhaseLoading,
		answers:     make(map[string]models.AnswerValue),
		subscribers: make(map[chan models.SessionSnapshot]struct{}),
	}
}

// ID returns the session identifier.
func (e *Engine) ID() string { return e.id }

// Quiz returns the loaded quiz definition, or nil before a successful load.
func (e *Engine) Quiz() *models.QuizDefinition {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.quiz
}

// Load fetches the quiz definition and, on success, moves the session to
// IN_PROGRESS and starts the countdown if the quiz is timed. On failure the
// session lands in LOAD_FAILED and Load may be invoked again. A response
// arriving after Close is discarded.
func (e *Engine) Load(ctx context.Context, quizID string) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	if e.loadInFlight {
		e.mu.Unlock()
		return ErrLoadInFlight
	}
	if e.phase != models.PhaseLoading && e.phase != models.PhaseLoadFailed {
		e.mu.Unlock()
		return ErrAlreadyLoaded
	}
	e.phase = models.PhaseLoading
	e.loadInFlight = true
	e.quizID = quizID
	gen := e.generation
	e.mu.Unlock()

	quiz, err := e.loader.GetQuiz(ctx, quizID)

	e.mu.Lock()
	e.loadInFlight = false
	if e.closed || gen != e.generation {
		e.mu.Unlock()
		return ErrClosed
	}
	if err != nil {
		e.phase = models.PhaseLoadFailed
		e.mu.Unlock()
		e.broadcast()
		return fmt.Errorf("failed to load quiz %s: %w", quizID, err)
	}
	e.quiz = quiz
	e.phase = models.PhaseInProgress
	if quiz.TimeLimitSeconds != nil {
		limit := *quiz.TimeLimitSeconds
		e.remaining = &limit
		e.startCountdownLocked()
	}
	e.mu.Unlock()

	e.logger.Info("quiz session in progress",
		"session_id", e.id,
		"quiz_id", quizID,
		"timed", quiz.TimeLimitSeconds != nil)
	e.broadcast()
	return nil
}

// SetAnswer overwrites the draft answer for a question. Outside IN_PROGRESS
// it is a silent no-op: user input can legitimately race a timer-forced
// submission, and losing that race must not throw or corrupt state. The
// engine performs no validation of answer content.
func (e *Engine) SetAnswer(questionID string, value models.AnswerValue) {
	e.mu.Lock()
	if e.closed || e.phase != models.PhaseInProgress || value == nil {
		e.mu.Unlock()
		return
	}
	if e.quiz.QuestionByID(questionID) == nil {
		e.mu.Unlock()
		return
	}
	e.answers[questionID] = value
	e.mu.Unlock()
	e.broadcast()
}

// Submit serializes the current answers and sends them to the grading
// service. It is idempotent: once the session has left IN_PROGRESS only the
// first caller performs work; a completed session returns the existing
// result and an in-flight submission reports ErrSubmitInFlight. A manual
// retry is allowed from SUBMIT_FAILED with the drafts intact.
func (e *Engine) Submit(ctx context.Context, trigger models.SubmitTrigger) (*models.SubmissionResult, error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, ErrClosed
	}
	switch e.phase {
	case models.PhaseCompleted:
		result := e.result
		e.mu.Unlock()
		return result, nil
	case models.PhaseSubmitting:
		e.mu.Unlock()
		return nil, ErrSubmitInFlight
	case models.PhaseInProgress, models.PhaseSubmitFailed:
		// admitted
	default:
		e.mu.Unlock()
		return nil, ErrNotActive
	}

	// Stop the countdown before anything else so no further tick can race a
	// second submission while the grading call is in flight.
	e.stopCountdownLocked()
	e.phase = models.PhaseSubmitting
	reason := trigger
	e.endReason = &reason
	payload := e.payloadLocked()
	quizID := e.quizID
	gen := e.generation
	e.mu.Unlock()

	e.broadcast()
	result, err := e.grader.SubmitAnswers(ctx, quizID, payload)

	e.mu.Lock()
	if e.closed || gen != e.generation {
		e.mu.Unlock()
		return nil, ErrClosed
	}
	if err != nil {
		// Drafts are preserved; the caller may retry exactly this submission.
		e.phase = models.PhaseSubmitFailed
		snap := e.snapshotLocked()
		e.mu.Unlock()
		e.broadcast()
		if e.hooks.OnSubmitFailed != nil {
			e.hooks.OnSubmitFailed(snap, trigger)
		}
		return nil, fmt.Errorf("failed to submit quiz %s: %w", quizID, err)
	}
	e.phase = models.PhaseCompleted
	e.result = result
	snap := e.snapshotLocked()
	e.mu.Unlock()

	e.logger.Info("quiz session completed",
		"session_id", e.id,
		"quiz_id", quizID,
		"trigger", trigger,
		"score", result.Score,
		"passed", result.Passed)
	e.broadcast()
	if e.hooks.OnCompleted != nil {
		e.hooks.OnCompleted(snap, payload, *result)
	}
	return result, nil
}

// Tick advances the countdown by one second. The value clamps at zero, and
// reaching zero triggers a timeout submission exactly once; the phase guard
// in Submit makes later ticks no-ops.
func (e *Engine) Tick() {
	e.mu.Lock()
	if e.closed || e.phase != models.PhaseInProgress || e.remaining == nil {
		e.mu.Unlock()
		return
	}
	if *e.remaining > 0 {
		*e.remaining--
	}
	expired := *e.remaining == 0
	e.mu.Unlock()

	e.broadcast()
	if expired {
		if _, err := e.Submit(context.Background(), models.TriggerTimeout); err != nil {
			e.logger.Error("forced submission failed",
				"session_id", e.id,
				"error", err)
		}
	}
}

// Snapshot returns a read-only view of the session state.
func (e *Engine) Snapshot() models.SessionSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// Subscribe returns a channel receiving state snapshots after every
// mutation, seeded with the current state. The caller must invoke cancel to
// avoid leaks.
func (e *Engine) Subscribe() (<-chan models.SessionSnapshot, func()) {
	ch := make(chan models.SessionSnapshot, 8)

	e.mu.Lock()
	e.subscribers[ch] = struct{}{}
	initial := e.snapshotLocked()
	e.mu.Unlock()

	ch <- initial

	cancel := func() {
		e.mu.Lock()
		if _, ok := e.subscribers[ch]; ok {
			delete(e.subscribers, ch)
			close(ch)
		}
		e.mu.Unlock()
	}
	return ch, cancel
}

// Close tears the session down. The countdown stops, subscribers are
// released, and any load or submit response still in flight is discarded on
// arrival instead of mutating a destroyed session.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.generation++
	e.stopCountdownLocked()
	for ch := range e.subscribers {
		delete(e.subscribers, ch)
		close(ch)
	}
	e.mu.Unlock()

	e.logger.Info("quiz session closed", "session_id", e.id)
}

// ===== internals =====

func (e *Engine) startCountdownLocked() {
	ticker := e.clock.NewTicker(time.Second)
	stop := make(chan struct{})
	e.tickerStop = stop
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C():
				e.Tick()
			case <-stop:
				return
			}
		}
	}()
}

func (e *Engine) stopCountdownLocked() {
	if e.tickerStop != nil {
		close(e.tickerStop)
		e.tickerStop = nil
	}
}

// payloadLocked serializes the drafts in quiz question order. Unanswered
// questions are included, not dropped: a timed quiz must always produce a
// full submission at expiry.
func (e *Engine) payloadLocked() models.SubmissionPayload {
	answers := make([]models.AnswerPayload, 0, len(e.quiz.Questions))
	for _, q := range e.quiz.Questions {
		entry := models.AnswerPayload{QuestionID: q.ID}
		draft, ok := e.answers[q.ID]
		switch q.Type {
		case models.SingleChoice, models.TrueFalse:
			if ok {
				if oa, isOption := draft.(models.OptionAnswer); isOption && oa.OptionID != "" {
					selected := oa.OptionID
					entry.SelectedOptionID = &selected
				}
			}
		case models.ShortAnswer, models.LongAnswer:
			text := ""
			if ok {
				if ta, isText := draft.(models.TextAnswer); isText {
					text = ta.Text
				}
			}
			entry.TextResponse = &text
		}
		answers = append(answers, entry)
	}
	return models.SubmissionPayload{QuizID: e.quizID, Answers: answers}
}

func (e *Engine) snapshotLocked() models.SessionSnapshot {
	snap := models.SessionSnapshot{
		ID:        e.id,
		QuizID:    e.quizID,
		Phase:     e.phase,
		EndReason: e.endReason,
		Result:    e.result,
	}
	if e.remaining != nil {
		remaining := *e.remaining
		snap.RemainingSeconds = &remaining
	}
	if e.quiz != nil {
		snap.TotalQuestions = len(e.quiz.Questions)
		snap.QuestionsAnswered = e.answeredCountLocked()
	}
	return snap
}

func (e *Engine) answeredCountLocked() int {
	count := 0
	for _, q := range e.quiz.Questions {
		draft, ok := e.answers[q.ID]
		if !ok {
			continue
		}
		switch v := draft.(type) {
		case models.OptionAnswer:
			if q.Type.HasOptions() && v.OptionID != "" {
				count++
			}
		case models.TextAnswer:
			if !q.Type.HasOptions() && v.Text != "" {
				count++
			}
		}
	}
	return count
}

func (e *Engine) broadcast() {
	e.mu.Lock()
	defer e.mu.Unlock()
	snap := e.snapshotLocked()
	for ch := range e.subscribers {
		select {
		case ch <- snap:
		default:
			// Drop the oldest update so a slow subscriber cannot block the
			// engine.
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}
