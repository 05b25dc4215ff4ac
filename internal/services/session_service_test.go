package services

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/classlight/quiz-session-service/internal/archive"
	"github.com/classlight/quiz-session-service/internal/events"
	"github.com/classlight/quiz-session-service/internal/models"
	"github.com/classlight/quiz-session-service/internal/session"
	"github.com/classlight/quiz-session-service/internal/store"
	"github.com/classlight/quiz-session-service/internal/validator"
)

type stubLoader struct {
	mu   sync.Mutex
	quiz *models.QuizDefinition
	err  error
}

func (l *stubLoader) GetQuiz(context.Context, string) (*models.QuizDefinition, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.quiz, l.err
}

func (l *stubLoader) set(quiz *models.QuizDefinition, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.quiz, l.err = quiz, err
}

type stubGrader struct {
	mu     sync.Mutex
	result *models.SubmissionResult
	err    error
}

func (g *stubGrader) SubmitAnswers(context.Context, string, models.SubmissionPayload) (*models.SubmissionResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.result, g.err
}

// recordingArchiver captures archived attempts in memory.
type recordingArchiver struct {
	mu      sync.Mutex
	records []archive.AttemptRecord
}

func (a *recordingArchiver) Record(_ context.Context, snap models.SessionSnapshot, _ models.SubmissionPayload, result models.SubmissionResult) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records = append(a.records, archive.AttemptRecord{
		SessionID: snap.ID,
		QuizID:    snap.QuizID,
		Score:     result.Score,
		Passed:    result.Passed,
	})
	return nil
}

func (a *recordingArchiver) List(context.Context, int) ([]archive.AttemptRecord, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]archive.AttemptRecord, len(a.records))
	copy(out, a.records)
	return out, nil
}

type testEnv struct {
	service   SessionService
	loader    *stubLoader
	grader    *stubGrader
	publisher *events.MockEventPublisher
	archiver  *recordingArchiver
	store     *store.MemoryStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	limit := 120
	env := &testEnv{
		loader:    &stubLoader{quiz: defaultQuiz(&limit)},
		grader:    &stubGrader{result: &models.SubmissionResult{Score: 0.9, Passed: true}},
		publisher: events.NewMockEventPublisher(logger),
		archiver:  &recordingArchiver{},
		store:     store.NewMemoryStore(),
	}
	env.service = NewSessionService(Deps{
		Store:     env.store,
		Loader:    env.loader,
		Grader:    env.grader,
		Clock:     session.NewManualClock(),
		Logger:    logger,
		Validator: validator.New(),
		Publisher: env.publisher,
		Archiver:  env.archiver,
	})
	return env
}

func defaultQuiz(timeLimit *int) *models.QuizDefinition {
	return &models.QuizDefinition{
		ID:               "quiz-1",
		Title:            "Concurrency Basics",
		TimeLimitSeconds: timeLimit,
		PassThreshold:    0.6,
		Questions: []models.Question{
			{ID: "q1", Type: models.SingleChoice, Options: []models.Option{{ID: "a"}, {ID: "b"}}},
			{ID: "q2", Type: models.ShortAnswer},
		},
	}
}

func mustCreate(t *testing.T, env *testEnv) *SessionResponse {
	t.Helper()
	resp, err := env.service.Create(context.Background(), &CreateSessionRequest{QuizID: "quiz-1"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	return resp
}

func eventTypes(published []events.Event) []string {
	types := make([]string, len(published))
	for i, e := range published {
		types[i] = e.Type
	}
	return types
}

func TestSessionService_Create(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		env := newTestEnv(t)
		resp := mustCreate(t, env)

		if resp.Phase != models.PhaseInProgress {
			t.Errorf("Expected phase in_progress, got %s", resp.Phase)
		}
		if resp.Quiz == nil || resp.Quiz.ID != "quiz-1" {
			t.Error("Expected quiz definition in response")
		}
		if resp.RemainingSeconds == nil || *resp.RemainingSeconds != 120 {
			t.Errorf("Expected 120 seconds remaining, got %v", resp.RemainingSeconds)
		}
		if env.store.Count() != 1 {
			t.Errorf("Expected 1 stored session, got %d", env.store.Count())
		}

		published := env.publisher.GetPublishedEvents()
		if len(published) != 1 || published[0].Type != events.EventSessionStarted {
			t.Errorf("Expected session.started event, got %v", eventTypes(published))
		}
	})

	t.Run("validation failure", func(t *testing.T) {
		env := newTestEnv(t)
		if _, err := env.service.Create(context.Background(), &CreateSessionRequest{}); err == nil {
			t.Fatal("Expected validation error for empty quiz_id")
		}
	})

	t.Run("load failure keeps session for retry", func(t *testing.T) {
		env := newTestEnv(t)
		env.loader.set(nil, errors.New("catalog down"))

		resp := mustCreate(t, env)
		if resp.Phase != models.PhaseLoadFailed {
			t.Errorf("Expected phase load_failed, got %s", resp.Phase)
		}
		if env.store.Count() != 1 {
			t.Error("Session must survive a load failure")
		}

		published := env.publisher.GetPublishedEvents()
		if len(published) != 1 || published[0].Type != events.EventSessionLoadFailed {
			t.Errorf("Expected session.load_failed event, got %v", eventTypes(published))
		}

		// Retry once the catalog is back.
		env.loader.set(defaultQuiz(nil), nil)
		retried, err := env.service.RetryLoad(context.Background(), resp.ID)
		if err != nil {
			t.Fatalf("RetryLoad failed: %v", err)
		}
		if retried.Phase != models.PhaseInProgress {
			t.Errorf("Expected phase in_progress after retry, got %s", retried.Phase)
		}
	})
}

func TestSessionService_SetAnswer(t *testing.T) {
	env := newTestEnv(t)
	resp := mustCreate(t, env)

	t.Run("choice answer", func(t *testing.T) {
		selected := "a"
		got, err := env.service.SetAnswer(context.Background(), resp.ID, "q1", &SetAnswerRequest{SelectedOptionID: &selected})
		if err != nil {
			t.Fatalf("SetAnswer failed: %v", err)
		}
		if got.QuestionsAnswered != 1 {
			t.Errorf("Expected 1 answered, got %d", got.QuestionsAnswered)
		}
	})

	t.Run("text answer", func(t *testing.T) {
		text := "goroutines share an address space"
		got, err := env.service.SetAnswer(context.Background(), resp.ID, "q2", &SetAnswerRequest{TextResponse: &text})
		if err != nil {
			t.Fatalf("SetAnswer failed: %v", err)
		}
		if got.QuestionsAnswered != 2 {
			t.Errorf("Expected 2 answered, got %d", got.QuestionsAnswered)
		}
	})

	t.Run("wrong answer shape", func(t *testing.T) {
		text := "not an option pick"
		if _, err := env.service.SetAnswer(context.Background(), resp.ID, "q1", &SetAnswerRequest{TextResponse: &text}); !errors.Is(err, ErrInvalidAnswer) {
			t.Errorf("Expected ErrInvalidAnswer, got %v", err)
		}
	})

	t.Run("unknown question", func(t *testing.T) {
		selected := "a"
		if _, err := env.service.SetAnswer(context.Background(), resp.ID, "nope", &SetAnswerRequest{SelectedOptionID: &selected}); !errors.Is(err, ErrQuestionNotFound) {
			t.Errorf("Expected ErrQuestionNotFound, got %v", err)
		}
	})

	t.Run("unknown session", func(t *testing.T) {
		selected := "a"
		if _, err := env.service.SetAnswer(context.Background(), "missing", "q1", &SetAnswerRequest{SelectedOptionID: &selected}); !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("Expected ErrSessionNotFound, got %v", err)
		}
	})
}

func TestSessionService_Submit(t *testing.T) {
	t.Run("success archives and publishes", func(t *testing.T) {
		env := newTestEnv(t)
		resp := mustCreate(t, env)
		env.publisher.ClearEvents()

		selected := "b"
		if _, err := env.service.SetAnswer(context.Background(), resp.ID, "q1", &SetAnswerRequest{SelectedOptionID: &selected}); err != nil {
			t.Fatalf("SetAnswer failed: %v", err)
		}

		got, err := env.service.Submit(context.Background(), resp.ID)
		if err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
		if got.Phase != models.PhaseCompleted {
			t.Errorf("Expected phase completed, got %s", got.Phase)
		}
		if got.Result == nil || !got.Result.Passed {
			t.Errorf("Expected passing result, got %+v", got.Result)
		}
		if got.EndReason == nil || *got.EndReason != models.TriggerManual {
			t.Errorf("Expected manual end reason, got %v", got.EndReason)
		}

		records, _ := env.archiver.List(context.Background(), 0)
		if len(records) != 1 || records[0].SessionID != resp.ID {
			t.Errorf("Expected 1 archived attempt for %s, got %+v", resp.ID, records)
		}

		published := env.publisher.GetPublishedEvents()
		if len(published) != 1 || published[0].Type != events.EventSessionCompleted {
			t.Errorf("Expected session.completed event, got %v", eventTypes(published))
		}
		data, ok := published[0].Data.(events.SessionCompletedEvent)
		if !ok {
			t.Fatalf("Unexpected event data type %T", published[0].Data)
		}
		if data.Trigger != string(models.TriggerManual) || data.Score != 0.9 {
			t.Errorf("Unexpected event data: %+v", data)
		}
	})

	t.Run("grading failure surfaces and allows retry", func(t *testing.T) {
		env := newTestEnv(t)
		resp := mustCreate(t, env)
		env.publisher.ClearEvents()

		env.grader.mu.Lock()
		env.grader.result, env.grader.err = nil, errors.New("grading down")
		env.grader.mu.Unlock()

		if _, err := env.service.Submit(context.Background(), resp.ID); !errors.Is(err, ErrSubmitFailed) {
			t.Fatalf("Expected ErrSubmitFailed, got %v", err)
		}
		got, err := env.service.Get(context.Background(), resp.ID)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got.Phase != models.PhaseSubmitFailed {
			t.Errorf("Expected phase submit_failed, got %s", got.Phase)
		}

		published := env.publisher.GetPublishedEvents()
		if len(published) != 1 || published[0].Type != events.EventSessionSubmitFailed {
			t.Errorf("Expected session.submit_failed event, got %v", eventTypes(published))
		}

		env.grader.mu.Lock()
		env.grader.result, env.grader.err = &models.SubmissionResult{Score: 0.7, Passed: true}, nil
		env.grader.mu.Unlock()

		retried, err := env.service.Submit(context.Background(), resp.ID)
		if err != nil {
			t.Fatalf("Retry submit failed: %v", err)
		}
		if retried.Phase != models.PhaseCompleted {
			t.Errorf("Expected phase completed after retry, got %s", retried.Phase)
		}
	})

	t.Run("submit before load completes is rejected", func(t *testing.T) {
		env := newTestEnv(t)
		env.loader.set(nil, errors.New("catalog down"))
		resp := mustCreate(t, env)

		if _, err := env.service.Submit(context.Background(), resp.ID); !errors.Is(err, ErrSessionNotActive) {
			t.Errorf("Expected ErrSessionNotActive, got %v", err)
		}
	})
}

func TestSessionService_Close(t *testing.T) {
	env := newTestEnv(t)
	resp := mustCreate(t, env)
	env.publisher.ClearEvents()

	if err := env.service.Close(context.Background(), resp.ID); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, err := env.service.Get(context.Background(), resp.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound after close, got %v", err)
	}

	published := env.publisher.GetPublishedEvents()
	if len(published) != 1 || published[0].Type != events.EventSessionClosed {
		t.Errorf("Expected session.closed event, got %v", eventTypes(published))
	}

	if err := env.service.Close(context.Background(), resp.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound on repeat close, got %v", err)
	}
}

func TestSessionService_TimeRemaining(t *testing.T) {
	t.Run("timed", func(t *testing.T) {
		env := newTestEnv(t)
		resp := mustCreate(t, env)

		remaining, err := env.service.TimeRemaining(context.Background(), resp.ID)
		if err != nil {
			t.Fatalf("TimeRemaining failed: %v", err)
		}
		if remaining == nil || *remaining != 120 {
			t.Errorf("Expected 120, got %v", remaining)
		}
	})

	t.Run("untimed", func(t *testing.T) {
		env := newTestEnv(t)
		env.loader.set(defaultQuiz(nil), nil)
		resp := mustCreate(t, env)

		remaining, err := env.service.TimeRemaining(context.Background(), resp.ID)
		if err != nil {
			t.Fatalf("TimeRemaining failed: %v", err)
		}
		if remaining != nil {
			t.Errorf("Expected nil for untimed quiz, got %d", *remaining)
		}
	})
}

func TestSessionService_Watch(t *testing.T) {
	env := newTestEnv(t)
	resp := mustCreate(t, env)

	updates, cancel, err := env.service.Watch(context.Background(), resp.ID)
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}
	defer cancel()

	snap := <-updates
	if snap.Phase != models.PhaseInProgress {
		t.Errorf("Expected in_progress seed snapshot, got %s", snap.Phase)
	}

	selected := "a"
	if _, err := env.service.SetAnswer(context.Background(), resp.ID, "q1", &SetAnswerRequest{SelectedOptionID: &selected}); err != nil {
		t.Fatalf("SetAnswer failed: %v", err)
	}
	snap = <-updates
	if snap.QuestionsAnswered != 1 {
		t.Errorf("Expected answered count update, got %d", snap.QuestionsAnswered)
	}
}
