package repository

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/ivanoskov/sg_finance_bot/internal/model"
)

var feedbackHeader = []string{"Chat ID", "Feedback", "Timestamp"}

// CSVFeedbackRepository appends feedback records to a local CSV file.
type CSVFeedbackRepository struct {
	mu   sync.Mutex
	path string
}

func NewCSVFeedbackRepository(path string) *CSVFeedbackRepository {
	return &CSVFeedbackRepository{path: path}
}

func (r *CSVFeedbackRepository) SaveFeedback(ctx context.Context, feedback model.Feedback) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	f, err := os.OpenFile(r.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open feedback file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat feedback file: %w", err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(feedbackHeader); err != nil {
			return fmt.Errorf("failed to write feedback header: %w", err)
		}
	}
	record := []string{
		strconv.FormatInt(feedback.ChatID, 10),
		feedback.Text,
		feedback.Timestamp.UTC().Format(time.RFC3339Nano),
	}
	if err := w.Write(record); err != nil {
		return fmt.Errorf("failed to write feedback: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush feedback: %w", err)
	}
	return f.Sync()
}
