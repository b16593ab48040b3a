package repository

import (
	"context"

	"github.com/ivanoskov/sg_finance_bot/internal/model"
)

// SessionRepository stores the conversation state of each chat. A chat
// without a stored session is idle.
type SessionRepository interface {
	GetSession(ctx context.Context, chatID int64) (model.Session, error)
	SaveSession(ctx context.Context, chatID int64, session model.Session) error
}

// LedgerRepository stores expenses and goals per chat.
type LedgerRepository interface {
	// Expenses, returned in insertion order
	CreateExpense(ctx context.Context, expense *model.Expense) error
	GetExpenses(ctx context.Context, chatID int64) ([]model.Expense, error)
	ClearExpenses(ctx context.Context, chatID int64) (int, error)

	// Goals
	SetGoal(ctx context.Context, goal model.Goal) error
	GetGoal(ctx context.Context, chatID int64) (model.Goal, bool, error)
	ListGoals(ctx context.Context) ([]model.Goal, error)
}

// Repository is the full conversation store.
type Repository interface {
	SessionRepository
	LedgerRepository
	Close() error
}

// FeedbackRepository is the append-only feedback sink.
type FeedbackRepository interface {
	SaveFeedback(ctx context.Context, feedback model.Feedback) error
}
