package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ivanoskov/sg_finance_bot/internal/advice"
	"github.com/ivanoskov/sg_finance_bot/internal/logger"
	"github.com/ivanoskov/sg_finance_bot/internal/model"
)

const (
	// FallbackTip is used when no tip could be generated for the top category.
	FallbackTip = "Consider reviewing your spending habits and adjust your budget accordingly."
	// StartTrackingTip is used when the chat has not recorded any expense.
	StartTrackingTip = "Start tracking your expenses to get personalized saving advice."
)

// TipAdviser generates short tips and substitutes fallback on failure.
type TipAdviser interface {
	AdviseOr(ctx context.Context, prompt, fallback string) string
}

// Sender delivers outbound messages.
type Sender interface {
	Send(ctx context.Context, msg model.Message) error
}

// Reminder sends the daily goal reminder to every chat that set a goal.
type Reminder struct {
	tracker *ExpenseTracker
	adviser TipAdviser
	sender  Sender
}

func NewReminder(tracker *ExpenseTracker, adviser TipAdviser, sender Sender) *Reminder {
	return &Reminder{tracker: tracker, adviser: adviser, sender: sender}
}

// RemindAll sends one reminder per goal. A failure for one chat does not
// stop the others; all failures are returned joined.
func (r *Reminder) RemindAll(ctx context.Context) error {
	goals, err := r.tracker.Goals(ctx)
	if err != nil {
		return fmt.Errorf("failed to list goals: %w", err)
	}

	var errs []error
	sent := 0
	for _, goal := range goals {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		msg, err := r.Build(ctx, goal)
		if err != nil {
			logger.Get().Error("failed to build reminder", zap.Int64("chat_id", goal.ChatID), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		if err := r.sender.Send(ctx, msg); err != nil {
			logger.Get().Error("failed to send reminder", zap.Int64("chat_id", goal.ChatID), zap.Error(err))
			errs = append(errs, fmt.Errorf("chat %d: %w", goal.ChatID, err))
			continue
		}
		sent++
	}

	logger.Get().Info("daily reminders sent", zap.Int("goals", len(goals)), zap.Int("sent", sent))
	return errors.Join(errs...)
}

// Build composes the reminder for one goal. The adviser is only consulted
// when the chat has expenses.
func (r *Reminder) Build(ctx context.Context, goal model.Goal) (model.Message, error) {
	summary, err := r.tracker.GetSummary(ctx, goal.ChatID)
	if err != nil {
		return model.Message{}, err
	}

	if summary.Empty() {
		return model.Message{
			ChatID: goal.ChatID,
			Format: model.FormatMarkdown,
			Text: fmt.Sprintf("⏰ *Daily Financial Reminder*\n\nYour goal: %s\n\n💡 *Tip:* %s",
				goal.Text, StartTrackingTip),
		}, nil
	}

	top := summary.TopCategory
	tip := r.adviser.AdviseOr(ctx, advice.TipPrompt(string(top)), FallbackTip)
	return model.Message{
		ChatID: goal.ChatID,
		Format: model.FormatMarkdown,
		Text: fmt.Sprintf("⏰ *Daily Financial Reminder*\n\n*Your goal:* %s\n\n💰 You've spent the most on %s.\n\n💡 *Tip:* %s",
			goal.Text, top.Label(), tip),
	}, nil
}
