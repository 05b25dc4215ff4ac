package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/classlight/quiz-session-service/internal/models"
)

var ErrGradingUnavailable = errors.New("grading service unavailable")

// GradingClient talks to the grading service, the sole scoring authority.
// It never retries on its own: a failed submission is reported so the
// session can surface SUBMIT_FAILED and let the caller retry explicitly.
type GradingClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewGradingClient(baseURL string, timeout time.Duration, logger *slog.Logger) *GradingClient {
	return &GradingClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// SubmitAnswers posts the answer set for grading and returns the
// authoritative result.
func (c *GradingClient) SubmitAnswers(ctx context.Context, quizID string, payload models.SubmissionPayload) (*models.SubmissionResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode submission: %w", err)
	}

	endpoint := fmt.Sprintf("%s/quizzes/%s/submit", c.baseURL, url.PathEscape(quizID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build grading request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("grading request failed: %w: %w", ErrGradingUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		c.logger.Error("grading returned unexpected status",
			"quiz_id", quizID,
			"status", resp.StatusCode)
		return nil, fmt.Errorf("grading returned status %d: %w", resp.StatusCode, ErrGradingUnavailable)
	}

	var result models.SubmissionResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode grading result: %w", err)
	}
	return &result, nil
}
