package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/classlight/quiz-session-service/internal/archive"
	"github.com/classlight/quiz-session-service/internal/clients"
	"github.com/classlight/quiz-session-service/internal/events"
	"github.com/classlight/quiz-session-service/internal/models"
	"github.com/classlight/quiz-session-service/internal/session"
	"github.com/classlight/quiz-session-service/internal/store"
	"github.com/classlight/quiz-session-service/internal/validator"
)

type sessionService struct {
	store     store.SessionStore
	loader    session.QuizLoader
	grader    session.Grader
	clock     session.Clock
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher
	archiver  archive.Archiver
}

type Deps struct {
	Store     store.SessionStore
	Loader    session.QuizLoader
	Grader    session.Grader
	Clock     session.Clock
	Logger    *slog.Logger
	Validator *validator.Validator
	Publisher events.EventPublisher
	Archiver  archive.Archiver
}

func NewSessionService(deps Deps) SessionService {
	if deps.Clock == nil {
		deps.Clock = session.RealClock()
	}
	if deps.Archiver == nil {
		deps.Archiver = archive.NewNoopArchiver()
	}
	return &sessionService{
		store:     deps.Store,
		loader:    deps.Loader,
		grader:    deps.Grader,
		clock:     deps.Clock,
		logger:    deps.Logger,
		validator: deps.Validator,
		publisher: deps.Publisher,
		archiver:  deps.Archiver,
	}
}

func (s *sessionService) Create(ctx context.Context, req *CreateSessionRequest) (*SessionResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	id := uuid.New().String()
	s.logger.Info("creating quiz session",
		"session_id", id,
		"quiz_id", req.QuizID)

	eng := session.New(session.Config{
		ID:     id,
		Loader: s.loader,
		Grader: s.grader,
		Clock:  s.clock,
		Logger: s.logger,
		Hooks:  s.hooks(),
	})
	s.store.Put(id, eng)

	if err := eng.Load(ctx, req.QuizID); err != nil {
		// The session survives in LOAD_FAILED so the caller can retry; the
		// engine does not retry on its own.
		s.logger.Warn("initial quiz load failed",
			"session_id", id,
			"quiz_id", req.QuizID,
			"error", err)
		s.publish(events.NewEvent(events.EventSessionLoadFailed, events.SessionLoadFailedEvent{
			SessionID: id,
			QuizID:    req.QuizID,
		}))
		return s.buildResponse(eng), nil
	}

	snap := eng.Snapshot()
	s.publish(events.NewEvent(events.EventSessionStarted, events.SessionStartedEvent{
		SessionID: id,
		QuizID:    req.QuizID,
		Timed:     snap.RemainingSeconds != nil,
	}))
	return s.buildResponse(eng), nil
}

func (s *sessionService) Get(_ context.Context, id string) (*SessionResponse, error) {
	eng, ok := s.store.Get(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s.buildResponse(eng), nil
}

func (s *sessionService) SetAnswer(_ context.Context, id, questionID string, req *SetAnswerRequest) (*SessionResponse, error) {
	eng, ok := s.store.Get(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	// Outside IN_PROGRESS the engine treats SetAnswer as a no-op; only
	// answer-shape problems are reported while a loaded quiz is active.
	if quiz := eng.Quiz(); quiz != nil {
		question := quiz.QuestionByID(questionID)
		if question == nil {
			return nil, ErrQuestionNotFound
		}
		value, err := draftFor(question, req)
		if err != nil {
			return nil, err
		}
		eng.SetAnswer(questionID, value)
	}
	return s.buildResponse(eng), nil
}

func (s *sessionService) Submit(ctx context.Context, id string) (*SessionResponse, error) {
	eng, ok := s.store.Get(id)
	if !ok {
		return nil, ErrSessionNotFound
	}

	_, err := eng.Submit(ctx, models.TriggerManual)
	switch {
	case err == nil:
		return s.buildResponse(eng), nil
	case errors.Is(err, session.ErrSubmitInFlight):
		// A timeout submission won the race; that is a legitimate no-op.
		return s.buildResponse(eng), nil
	case errors.Is(err, session.ErrNotActive):
		return nil, ErrSessionNotActive
	case errors.Is(err, session.ErrClosed):
		return nil, ErrSessionNotFound
	default:
		return nil, fmt.Errorf("%w: %w", ErrSubmitFailed, err)
	}
}

func (s *sessionService) RetryLoad(ctx context.Context, id string) (*SessionResponse, error) {
	eng, ok := s.store.Get(id)
	if !ok {
		return nil, ErrSessionNotFound
	}

	snap := eng.Snapshot()
	err := eng.Load(ctx, snap.QuizID)
	switch {
	case err == nil:
		loaded := eng.Snapshot()
		s.publish(events.NewEvent(events.EventSessionStarted, events.SessionStartedEvent{
			SessionID: id,
			QuizID:    loaded.QuizID,
			Timed:     loaded.RemainingSeconds != nil,
		}))
		return s.buildResponse(eng), nil
	case errors.Is(err, session.ErrAlreadyLoaded), errors.Is(err, session.ErrLoadInFlight):
		return s.buildResponse(eng), nil
	case errors.Is(err, session.ErrClosed):
		return nil, ErrSessionNotFound
	case errors.Is(err, clients.ErrQuizNotFound):
		return nil, ErrQuizNotFound
	default:
		return s.buildResponse(eng), nil
	}
}

func (s *sessionService) Close(_ context.Context, id string) error {
	eng, ok := s.store.Get(id)
	if !ok {
		return ErrSessionNotFound
	}
	snap := eng.Snapshot()
	s.store.Delete(id)
	eng.Close()

	s.publish(events.NewEvent(events.EventSessionClosed, events.SessionClosedEvent{
		SessionID: id,
		QuizID:    snap.QuizID,
		Phase:     string(snap.Phase),
	}))
	return nil
}

func (s *sessionService) TimeRemaining(_ context.Context, id string) (*int, error) {
	eng, ok := s.store.Get(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return eng.Snapshot().RemainingSeconds, nil
}

func (s *sessionService) Watch(_ context.Context, id string) (<-chan models.SessionSnapshot, func(), error) {
	eng, ok := s.store.Get(id)
	if !ok {
		return nil, nil, ErrSessionNotFound
	}
	ch, cancel := eng.Subscribe()
	return ch, cancel, nil
}

// ===== helpers =====

func (s *sessionService) hooks() session.Hooks {
	return session.Hooks{
		OnCompleted: func(snap models.SessionSnapshot, payload models.SubmissionPayload, result models.SubmissionResult) {
			ctx := context.Background()
			if err := s.archiver.Record(ctx, snap, payload, result); err != nil {
				s.logger.Error("failed to archive attempt",
					"session_id", snap.ID,
					"error", err)
			}
			trigger := ""
			if snap.EndReason != nil {
				trigger = string(*snap.EndReason)
			}
			s.publish(events.NewEvent(events.EventSessionCompleted, events.SessionCompletedEvent{
				SessionID: snap.ID,
				QuizID:    snap.QuizID,
				Trigger:   trigger,
				Score:     result.Score,
				Passed:    result.Passed,
			}))
		},
		OnSubmitFailed: func(snap models.SessionSnapshot, trigger models.SubmitTrigger) {
			s.publish(events.NewEvent(events.EventSessionSubmitFailed, events.SessionSubmitFailedEvent{
				SessionID: snap.ID,
				QuizID:    snap.QuizID,
				Trigger:   string(trigger),
			}))
		},
	}
}

func (s *sessionService) publish(event events.Event) {
	if err := s.publisher.Publish(context.Background(), event); err != nil {
		s.logger.Error("failed to publish event",
			"event_type", event.Type,
			"error", err)
	}
}

func (s *sessionService) buildResponse(eng *session.Engine) *SessionResponse {
	return &SessionResponse{
		SessionSnapshot: eng.Snapshot(),
		Quiz:            eng.Quiz(),
	}
}

// draftFor maps a request body onto the tagged answer variant required by
// the question's type.
func draftFor(question *models.Question, req *SetAnswerRequest) (models.AnswerValue, error) {
	if question.Type.HasOptions() {
		if req.SelectedOptionID == nil {
			return nil, ErrInvalidAnswer
		}
		return models.OptionAnswer{OptionID: *req.SelectedOptionID}, nil
	}
	if req.TextResponse == nil {
		return nil, ErrInvalidAnswer
	}
	return models.TextAnswer{Text: *req.TextResponse}, nil
}
