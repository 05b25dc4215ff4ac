package services

import (
	"context"
	"errors"

	"github.com/classlight/quiz-session-service/internal/models"
)

// ===== REQUEST/RESPONSE DTOs =====

type CreateSessionRequest struct {
	QuizID string `json:"quiz_id" validate:"required,max=64"`
}

// SetAnswerRequest carries one draft answer. Exactly one field applies per
// question type: selected_option_id for single_choice/true_false,
// text_response for short_answer/long_answer.
type SetAnswerRequest struct {
	SelectedOptionID *string `json:"selected_option_id" validate:"omitempty,max=64"`
	TextResponse     *string `json:"text_response" validate:"omitempty,max=20000"`
}

type SessionResponse struct {
	models.SessionSnapshot
	Quiz *models.QuizDefinition `json:"quiz,omitempty"`
}

// ===== ERRORS =====

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrQuizNotFound     = errors.New("quiz not found")
	ErrSessionNotActive = errors.New("session is not active")
	ErrQuestionNotFound = errors.New("question not found in quiz")
	ErrInvalidAnswer    = errors.New("answer does not match question type")
	ErrSubmitFailed     = errors.New("grading submission failed")
)

// ===== SERVICE INTERFACE =====

// SessionService hosts one engine per live quiz attempt and owns their
// lifecycle end to end.
type SessionService interface {
	// Create builds a session for a quiz and performs the initial load. A
	// load failure is not an error at this level: the session is created in
	// LOAD_FAILED and the caller may RetryLoad.
	Create(ctx context.Context, req *CreateSessionRequest) (*SessionResponse, error)
	Get(ctx context.Context, id string) (*SessionResponse, error)
	SetAnswer(ctx context.Context, id, questionID string, req *SetAnswerRequest) (*SessionResponse, error)
	Submit(ctx context.Context, id string) (*SessionResponse, error)
	RetryLoad(ctx context.Context, id string) (*SessionResponse, error)
	Close(ctx context.Context, id string) error
	TimeRemaining(ctx context.Context, id string) (*int, error)
	// Watch streams state snapshots; the cancel func must be called.
	Watch(ctx context.Context, id string) (<-chan models.SessionSnapshot, func(), error)
}
