package reports

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/classlight/quiz-session-service/internal/archive"
)

const resultsSheet = "Results"

// Exporter renders archived attempt results as an Excel workbook.
type Exporter struct {
	archiver archive.Archiver
}

func NewExporter(archiver archive.Archiver) *Exporter {
	return &Exporter{archiver: archiver}
}

// WriteResults writes a workbook with one row per archived attempt.
func (e *Exporter) WriteResults(ctx context.Context, w io.Writer, limit int) error {
	records, err := e.archiver.List(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to load attempt records: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(resultsSheet)
	if err != nil {
		return fmt.Errorf("failed to create results sheet: %w", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	header := []interface{}{"Session ID", "Quiz ID", "Score", "Passed", "End Reason", "Submitted At"}
	if err := f.SetSheetRow(resultsSheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header row: %w", err)
	}

	for i, record := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("failed to compute cell name: %w", err)
		}
		row := []interface{}{
			record.SessionID,
			record.QuizID,
			record.Score,
			record.Passed,
			record.EndReason,
			record.SubmittedAt.Format("2006-01-02 15:04:05"),
		}
		if err := f.SetSheetRow(resultsSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write result row: %w", err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
