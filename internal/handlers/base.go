package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/classlight/quiz-session-service/internal/utils"
)

type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

func (h *BaseHandler) LogRequest(c *gin.Context, msg string, args ...any) {
	args = append(args, "request_id", c.GetString("request_id"))
	h.logger.Info(msg, args...)
}

func (h *BaseHandler) LogError(c *gin.Context, err error, msg string) {
	h.logger.Error(msg,
		"error", err,
		"path", c.FullPath(),
		"request_id", c.GetString("request_id"))
}

type ErrorResponse struct {
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}
