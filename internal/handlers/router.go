package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/classlight/quiz-session-service/internal/reports"
	"github.com/classlight/quiz-session-service/internal/services"
	"github.com/classlight/quiz-session-service/internal/utils"
)

type HandlerManager struct {
	sessionHandler *SessionHandler
	watchHandler   *WatchHandler
	reportHandler  *ReportHandler
}

func NewHandlerManager(
	sessionService services.SessionService,
	exporter *reports.Exporter,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		sessionHandler: NewSessionHandler(sessionService, logger),
		watchHandler:   NewWatchHandler(sessionService, logger),
		reportHandler:  NewReportHandler(exporter, logger),
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	{
		sessions := v1.Group("/sessions")
		{
			sessions.POST("", hm.sessionHandler.CreateSession)
			sessions.GET("/:id", hm.sessionHandler.GetSession)
			sessions.DELETE("/:id", hm.sessionHandler.CloseSession)
			sessions.PUT("/:id/answers/:question_id", hm.sessionHandler.SetAnswer)
			sessions.POST("/:id/submit", hm.sessionHandler.SubmitSession)
			sessions.POST("/:id/retry-load", hm.sessionHandler.RetryLoad)
			sessions.GET("/:id/time-remaining", hm.sessionHandler.GetTimeRemaining)
			sessions.GET("/:id/watch", hm.watchHandler.Watch)
		}

		v1.GET("/reports/results.xlsx", hm.reportHandler.ExportResults)
	}
}
