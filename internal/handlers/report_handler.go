package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/classlight/quiz-session-service/internal/reports"
	"github.com/classlight/quiz-session-service/internal/utils"
)

const defaultReportLimit = 1000

type ReportHandler struct {
	BaseHandler
	exporter *reports.Exporter
}

func NewReportHandler(exporter *reports.Exporter, logger utils.Logger) *ReportHandler {
	return &ReportHandler{
		BaseHandler: NewBaseHandler(logger),
		exporter:    exporter,
	}
}

// ExportResults streams archived attempt results as an Excel workbook.
// @Summary Export attempt results
// @Tags reports
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param limit query int false "Maximum rows" default(1000)
// @Success 200 {file} binary
// @Failure 500 {object} ErrorResponse
// @Router /reports/results.xlsx [get]
func (h *ReportHandler) ExportResults(c *gin.Context) {
	h.LogRequest(c, "Exporting attempt results")

	limit := defaultReportLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Message: "limit must be a positive integer",
			})
			return
		}
		limit = parsed
	}

	filename := "quiz-results-" + time.Now().UTC().Format("20060102-150405") + ".xlsx"
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")

	if err := h.exporter.WriteResults(c.Request.Context(), c.Writer, limit); err != nil {
		h.LogError(c, err, "Failed to export attempt results")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Failed to export results",
		})
		return
	}
}
