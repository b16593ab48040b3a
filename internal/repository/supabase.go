package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/supabase-community/supabase-go"
	"go.uber.org/zap"

	"github.com/ivanoskov/sg_finance_bot/internal/logger"
	"github.com/ivanoskov/sg_finance_bot/internal/model"
)

const feedbackTable = "feedback"

type feedbackRecord struct {
	ID        string `json:"id"`
	ChatID    int64  `json:"chat_id"`
	Feedback  string `json:"feedback"`
	Timestamp string `json:"timestamp"`
}

// SupabaseFeedbackRepository inserts feedback rows into a Supabase table.
type SupabaseFeedbackRepository struct {
	client *supabase.Client
}

func NewSupabaseFeedbackRepository(url, key string) (*SupabaseFeedbackRepository, error) {
	client, err := supabase.NewClient(url, key, &supabase.ClientOptions{})
	if err != nil {
		return nil, err
	}

	return &SupabaseFeedbackRepository{
		client: client,
	}, nil
}

func (r *SupabaseFeedbackRepository) SaveFeedback(ctx context.Context, feedback model.Feedback) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	record := feedbackRecord{
		ID:        feedback.ID,
		ChatID:    feedback.ChatID,
		Feedback:  feedback.Text,
		Timestamp: feedback.Timestamp.UTC().Format(time.RFC3339),
	}
	_, count, err := r.client.From(feedbackTable).Insert(record, false, "", "minimal", "").Execute()
	if err != nil {
		return fmt.Errorf("failed to insert feedback: %w", err)
	}
	logger.Get().Debug("feedback stored in supabase",
		zap.Int64("chat_id", feedback.ChatID),
		zap.Int64("count", count))
	return nil
}
