package clients

import (
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

var (
	ErrQuizNotFound       = errors.New("quiz not found")
	ErrCatalogUnavailable = errors.New("quiz catalog unavailable")
)

// CatalogClient talks to the quiz catalog service that owns quiz
// definitions.
type CatalogClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewCatalogClient(baseURL string, timeout time.Duration, logger *slog.Logger) *CatalogClient {
	return &CatalogClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// GetQuiz fetches a quiz definition by id.
func (c *CatalogClient) GetQuiz(ctx context.Context, quizID string) (*models.QuizDefinition, error) {
	endpoint := fmt.Sprintf("%s/quizzes/%s", c.baseURL, url.PathEscape(quizID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build catalog request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog request failed: %w: %w", ErrCatalogUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrQuizNotFound
	case resp.StatusCode != http.StatusOK:
		c.logger.Error("catalog returned unexpected status",
			"quiz_id", quizID,
			"status", resp.StatusCode)
		return nil, fmt.Errorf("catalog returned status %d: %w", resp.StatusCode, ErrCatalogUnavailable)
	}

	var quiz models.QuizDefinition
	if err := json.NewDecoder(resp.Body).Decode(&quiz); err != nil {
		return nil, fmt.Errorf("failed to decode quiz definition: %w", err)
	}
	return &quiz, nil
}
