package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/classlight/quiz-session-service/internal/services"
	"github.com/classlight/quiz-session-service/internal/utils"
	"github.com/classlight/quiz-session-service/internal/validator"
)

type SessionHandler struct {
	BaseHandler
	sessionService services.SessionService
}

func NewSessionHandler(sessionService services.SessionService, logger utils.Logger) *SessionHandler {
	return &SessionHandler{
		BaseHandler:    NewBaseHandler(logger),
		sessionService: sessionService,
	}
}

// CreateSession starts a new quiz attempt.
// @Summary Create quiz session
// @Description Creates a session for a quiz and performs the initial load
// @Tags sessions
// @Accept json
// @Produce json
// @Param session body services.CreateSessionRequest true "Create session data"
// @Success 201 {object} services.SessionResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /sessions [post]
func (h *SessionHandler) CreateSession(c *gin.Context) {
	h.LogRequest(c, "Creating quiz session")

	var req services.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	resp, err := h.sessionService.Create(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// GetSession returns the current session state.
// @Summary Get session state
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} services.SessionResponse
// @Failure 404 {object} ErrorResponse
// @Router /sessions/{id} [get]
func (h *SessionHandler) GetSession(c *gin.Context) {
	resp, err := h.sessionService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// SetAnswer stores a draft answer for a question.
// @Summary Set draft answer
// @Description Overwrites the draft answer for one question; a no-op unless the session is in progress
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param question_id path string true "Question ID"
// @Param answer body services.SetAnswerRequest true "Answer data"
// @Success 200 {object} services.SessionResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /sessions/{id}/answers/{question_id} [put]
func (h *SessionHandler) SetAnswer(c *gin.Context) {
	var req services.SetAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	resp, err := h.sessionService.SetAnswer(c.Request.Context(), c.Param("id"), c.Param("question_id"), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// SubmitSession submits the attempt for grading.
// @Summary Submit quiz session
// @Description Sends the answer set to the grading service; idempotent once the session has left IN_PROGRESS
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} services.SessionResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /sessions/{id}/submit [post]
func (h *SessionHandler) SubmitSession(c *gin.Context) {
	h.LogRequest(c, "Submitting quiz session", "session_id", c.Param("id"))

	resp, err := h.sessionService.Submit(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// RetryLoad re-invokes the quiz load after a load failure.
// @Summary Retry quiz load
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} services.SessionResponse
// @Failure 404 {object} ErrorResponse
// @Router /sessions/{id}/retry-load [post]
func (h *SessionHandler) RetryLoad(c *gin.Context) {
	h.LogRequest(c, "Retrying quiz load", "session_id", c.Param("id"))

	resp, err := h.sessionService.RetryLoad(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// CloseSession tears the session down.
// @Summary Close session
// @Description Discards the session; in-flight collaborator responses are dropped on arrival
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse
// @Router /sessions/{id} [delete]
func (h *SessionHandler) CloseSession(c *gin.Context) {
	h.LogRequest(c, "Closing quiz session", "session_id", c.Param("id"))

	if err := h.sessionService.Close(c.Request.Context(), c.Param("id")); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "Session closed"})
}

// GetTimeRemaining returns the countdown value, null for untimed quizzes.
// @Summary Get time remaining
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} SuccessResponse{data=int}
// @Failure 404 {object} ErrorResponse
// @Router /sessions/{id}/time-remaining [get]
func (h *SessionHandler) GetTimeRemaining(c *gin.Context) {
	remaining, err := h.sessionService.TimeRemaining(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Time remaining retrieved successfully",
		Data:    remaining,
	})
}

func (h *SessionHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: validationErrors,
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Session not found",
		})
	case errors.Is(err, services.ErrQuizNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Quiz not found",
		})
	case errors.Is(err, services.ErrQuestionNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Question not found in quiz",
		})
	case errors.Is(err, services.ErrInvalidAnswer):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Answer does not match question type",
		})
	case errors.Is(err, services.ErrSessionNotActive):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Session is not active",
		})
	case errors.Is(err, services.ErrSubmitFailed):
		c.JSON(http.StatusBadGateway, ErrorResponse{
			Message: "Grading submission failed; answers are preserved, retry when the grading service is reachable",
		})
	default:
		h.LogError(c, err, "Unexpected service error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Internal server error",
		})
	}
}
