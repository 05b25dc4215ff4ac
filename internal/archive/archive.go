package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/classlight/quiz-session-service/internal/models"
)

// AttemptRecord is the durable trace of one completed quiz attempt. The
// engine itself holds no persistent state; records exist for reporting and
// audit only and are written exactly once, when a session completes.
type AttemptRecord struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	SessionID   string         `json:"session_id" gorm:"uniqueIndex;size:64;not null"`
	QuizID      string         `json:"quiz_id" gorm:"index;size:64;not null"`
	Score       float64        `json:"score"`
	Passed      bool           `json:"passed"`
	EndReason   string         `json:"end_reason" gorm:"size:16"`
	Answers     datatypes.JSON `json:"answers" gorm:"type:jsonb"`
	SubmittedAt time.Time      `json:"submitted_at"`
	CreatedAt   time.Time      `json:"created_at"`
}

// Archiver records completed attempts.
type Archiver interface {
	Record(ctx context.Context, snap models.SessionSnapshot, payload models.SubmissionPayload, result models.SubmissionResult) error
	List(ctx context.Context, limit int) ([]AttemptRecord, error)
}

// Migrate creates the attempt_records table.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&AttemptRecord{})
}

type gormArchiver struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewArchiver(db *gorm.DB, logger *slog.Logger) Archiver {
	return &gormArchiver{db: db, logger: logger}
}

func (a *gormArchiver) Record(ctx context.Context, snap models.SessionSnapshot, payload models.SubmissionPayload, result models.SubmissionResult) error {
	answers, err := json.Marshal(payload.Answers)
	if err != nil {
		return fmt.Errorf("failed to encode answers: %w", err)
	}

	endReason := ""
	if snap.EndReason != nil {
		endReason = string(*snap.EndReason)
	}

	record := AttemptRecord{
		SessionID:   snap.ID,
		QuizID:      snap.QuizID,
		Score:       result.Score,
		Passed:      result.Passed,
		EndReason:   endReason,
		Answers:     answers,
		SubmittedAt: time.Now().UTC(),
	}
	if err := a.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("failed to archive attempt: %w", err)
	}

	a.logger.Info("attempt archived",
		"session_id", snap.ID,
		"quiz_id", snap.QuizID,
		"score", result.Score)
	return nil
}

func (a *gormArchiver) List(ctx context.Context, limit int) ([]AttemptRecord, error) {
	var records []AttemptRecord
	query := a.db.WithContext(ctx).Order("submitted_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list attempt records: %w", err)
	}
	return records, nil
}

// NoopArchiver is used when no database is configured; the service degrades
// gracefully and simply keeps no attempt history.
type NoopArchiver struct{}

func NewNoopArchiver() Archiver { return NoopArchiver{} }

func (NoopArchiver) Record(context.Context, models.SessionSnapshot, models.SubmissionPayload, models.SubmissionResult) error {
	return nil
}

func (NoopArchiver) List(context.Context, int) ([]AttemptRecord, error) {
	return nil, nil
}
