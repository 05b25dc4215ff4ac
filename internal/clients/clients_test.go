package clients

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/classlight/quiz-session-service/internal/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestCatalogClient_GetQuiz(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		limit := 600
		quiz := models.QuizDefinition{
			ID:               "quiz-1",
			Title:            "Go Basics",
			TimeLimitSeconds: &limit,
			Questions: []models.Question{
				{ID: "q1", Type: models.SingleChoice, Options: []models.Option{{ID: "a"}}},
			},
		}
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/quizzes/quiz-1" {
				t.Errorf("Unexpected path %s", r.URL.Path)
			}
			json.NewEncoder(w).Encode(quiz)
		}))
		defer server.Close()

		client := NewCatalogClient(server.URL, time.Second, testLogger())
		got, err := client.GetQuiz(context.Background(), "quiz-1")
		if err != nil {
			t.Fatalf("GetQuiz failed: %v", err)
		}
		if got.ID != "quiz-1" || got.Title != "Go Basics" {
			t.Errorf("Unexpected quiz: %+v", got)
		}
		if got.TimeLimitSeconds == nil || *got.TimeLimitSeconds != 600 {
			t.Errorf("Expected 600 second limit, got %v", got.TimeLimitSeconds)
		}
	})

	t.Run("not found", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		client := NewCatalogClient(server.URL, time.Second, testLogger())
		if _, err := client.GetQuiz(context.Background(), "missing"); !errors.Is(err, ErrQuizNotFound) {
			t.Errorf("Expected ErrQuizNotFound, got %v", err)
		}
	})

	t.Run("server error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		client := NewCatalogClient(server.URL, time.Second, testLogger())
		if _, err := client.GetQuiz(context.Background(), "quiz-1"); !errors.Is(err, ErrCatalogUnavailable) {
			t.Errorf("Expected ErrCatalogUnavailable, got %v", err)
		}
	})

	t.Run("unreachable", func(t *testing.T) {
		client := NewCatalogClient("http://127.0.0.1:1", 100*time.Millisecond, testLogger())
		if _, err := client.GetQuiz(context.Background(), "quiz-1"); !errors.Is(err, ErrCatalogUnavailable) {
			t.Errorf("Expected ErrCatalogUnavailable, got %v", err)
		}
	})
}

func TestGradingClient_SubmitAnswers(t *testing.T) {
	selected := "a"
	text := "an answer"
	payload := models.SubmissionPayload{
		QuizID: "quiz-1",
		Answers: []models.AnswerPayload{
			{QuestionID: "q1", SelectedOptionID: &selected},
			{QuestionID: "q2", TextResponse: &text},
		},
	}

	t.Run("success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/quizzes/quiz-1/submit" {
				t.Errorf("Unexpected path %s", r.URL.Path)
			}
			if r.Method != http.MethodPost {
				t.Errorf("Unexpected method %s", r.Method)
			}
			var got models.SubmissionPayload
			if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
				t.Errorf("Failed to decode payload: %v", err)
			}
			if len(got.Answers) != 2 || got.Answers[0].QuestionID != "q1" {
				t.Errorf("Unexpected payload: %+v", got)
			}
			json.NewEncoder(w).Encode(models.SubmissionResult{Score: 0.85, Passed: true})
		}))
		defer server.Close()

		client := NewGradingClient(server.URL, time.Second, testLogger())
		result, err := client.SubmitAnswers(context.Background(), "quiz-1", payload)
		if err != nil {
			t.Fatalf("SubmitAnswers failed: %v", err)
		}
		if result.Score != 0.85 || !result.Passed {
			t.Errorf("Unexpected result: %+v", result)
		}
	})

	t.Run("server error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		client := NewGradingClient(server.URL, time.Second, testLogger())
		if _, err := client.SubmitAnswers(context.Background(), "quiz-1", payload); !errors.Is(err, ErrGradingUnavailable) {
			t.Errorf("Expected ErrGradingUnavailable, got %v", err)
		}
	})
}
