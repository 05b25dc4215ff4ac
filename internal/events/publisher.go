package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
)

// Session lifecycle event types.
const (
	EventSessionStarted      = "session.started"
	EventSessionLoadFailed   = "session.load_failed"
	EventSessionCompleted    = "session.completed"
	EventSessionSubmitFailed = "session.submit_failed"
	EventSessionClosed       = "session.closed"
)

const (
	eventSource  = "quiz-session-service"
	eventVersion = "1.0"
)

type Event struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Source    string      `json:"source"`
	Version   string      `json:"version"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// NewEvent stamps an event with id, source, version and timestamp.
func NewEvent(eventType string, data interface{}) Event {
	return Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Source:    eventSource,
		Version:   eventVersion,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// ===== KAFKA PUBLISHER =====

// KafkaEventPublisher publishes session lifecycle events to a Kafka topic
// through watermill.
type KafkaEventPublisher struct {
	publisher message.Publisher
	topic     string
	logger    *slog.Logger
}

func NewKafkaEventPublisher(brokers []string, topic string, logger *slog.Logger) (*KafkaEventPublisher, error) {
	publisher, err := kafka.NewPublisher(
		kafka.PublisherConfig{
			Brokers:   brokers,
			Marshaler: kafka.DefaultMarshaler{},
		},
		watermill.NewSlogLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka publisher: %w", err)
	}
	return &KafkaEventPublisher{
		publisher: publisher,
		topic:     topic,
		logger:    logger,
	}, nil
}

func (p *KafkaEventPublisher) Publish(_ context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(event.ID, payload)
	msg.Metadata.Set("event_type", event.Type)
	msg.Metadata.Set("source", event.Source)

	if err := p.publisher.Publish(p.topic, msg); err != nil {
		return fmt.Errorf("failed to publish event %s: %w", event.Type, err)
	}

	p.logger.Debug("event published",
		"event_id", event.ID,
		"event_type", event.Type,
		"topic", p.topic)
	return nil
}

func (p *KafkaEventPublisher) Close() error {
	return p.publisher.Close()
}

// ===== LOG PUBLISHER =====

// LogEventPublisher logs events instead of publishing them. Used when no
// Kafka brokers are configured.
type LogEventPublisher struct {
	logger *slog.Logger
}

func NewLogEventPublisher(logger *slog.Logger) *LogEventPublisher {
	return &LogEventPublisher{logger: logger}
}

func (p *LogEventPublisher) Publish(_ context.Context, event Event) error {
	p.logger.Info("event (log only)",
		"event_id", event.ID,
		"event_type", event.Type)
	return nil
}

func (p *LogEventPublisher) Close() error { return nil }

// ===== MOCK PUBLISHER =====

// MockEventPublisher records events in memory for tests.
type MockEventPublisher struct {
	mu     sync.Mutex
	events []Event
	logger *slog.Logger
}

func NewMockEventPublisher(logger *slog.Logger) *MockEventPublisher {
	return &MockEventPublisher{logger: logger}
}

func (p *MockEventPublisher) Publish(_ context.Context, event Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *MockEventPublisher) Close() error { return nil }

// GetPublishedEvents returns a copy of everything published so far.
func (p *MockEventPublisher) GetPublishedEvents() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Event, len(p.events))
	copy(out, p.events)
	return out
}

func (p *MockEventPublisher) ClearEvents() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
}

// ===== EVENT PAYLOADS =====

type SessionStartedEvent struct {
	SessionID string `json:"session_id"`
	QuizID    string `json:"quiz_id"`
	Timed     bool   `json:"timed"`
}

type SessionLoadFailedEvent struct {
	SessionID string `json:"session_id"`
	QuizID    string `json:"quiz_id"`
}

type SessionCompletedEvent struct {
	SessionID string  `json:"session_id"`
	QuizID    string  `json:"quiz_id"`
	Trigger   string  `json:"trigger"`
	Score     float64 `json:"score"`
	Passed    bool    `json:"passed"`
}

type SessionSubmitFailedEvent struct {
	SessionID string `json:"session_id"`
	QuizID    string `json:"quiz_id"`
	Trigger   string `json:"trigger"`
}

type SessionClosedEvent struct {
	SessionID string `json:"session_id"`
	QuizID    string `json:"quiz_id"`
	Phase     string `json:"phase"`
}
