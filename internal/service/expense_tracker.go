package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ivanoskov/sg_finance_bot/internal/model"
	"github.com/ivanoskov/sg_finance_bot/internal/repository"
)

// ExpenseTracker provides the ledger and goal operations of a conversation
type ExpenseTracker struct {
	repo repository.LedgerRepository
	loc  *time.Location
	now  func() time.Time
}

// NewExpenseTracker creates an ExpenseTracker whose calendar dates are taken in loc
func NewExpenseTracker(repo repository.LedgerRepository, loc *time.Location) *ExpenseTracker {
	if loc == nil {
		loc = time.UTC
	}
	return &ExpenseTracker{
		repo: repo,
		loc:  loc,
		now:  time.Now,
	}
}

// SetClock replaces the time source, used by tests.
func (s *ExpenseTracker) SetClock(now func() time.Time) {
	s.now = now
}

// Now returns the current time in the tracker's location.
func (s *ExpenseTracker) Now() time.Time {
	return s.now().In(s.loc)
}

// Today returns the current calendar date at midnight in the tracker's location.
func (s *ExpenseTracker) Today() time.Time {
	now := s.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
}

// AddExpense appends an expense dated today to the chat's ledger.
func (s *ExpenseTracker) AddExpense(ctx context.Context, chatID int64, category model.Category, amount decimal.Decimal) (model.Expense, error) {
	if !amount.IsPositive() {
		return model.Expense{}, model.ErrInvalidAmount
	}
	expense := model.Expense{
		ChatID:    chatID,
		Amount:    amount.Round(2),
		Category:  category,
		Date:      s.Today(),
		CreatedAt: s.Now(),
	}
	expense.GenerateID()
	if err := s.repo.CreateExpense(ctx, &expense); err != nil {
		return model.Expense{}, fmt.Errorf("failed to add expense: %w", err)
	}
	return expense, nil
}

func (s *ExpenseTracker) ListExpenses(ctx context.Context, chatID int64) ([]model.Expense, error) {
	return s.repo.GetExpenses(ctx, chatID)
}

// ClearExpenses removes every entry of the chat and reports how many there were.
func (s *ExpenseTracker) ClearExpenses(ctx context.Context, chatID int64) (int, error) {
	return s.repo.ClearExpenses(ctx, chatID)
}

// GetSummary aggregates the chat's ledger.
func (s *ExpenseTracker) GetSummary(ctx context.Context, chatID int64) (Summary, error) {
	expenses, err := s.repo.GetExpenses(ctx, chatID)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to get expenses: %w", err)
	}
	return Summarize(expenses), nil
}

// SetGoal replaces the chat's goal with text, stored verbatim.
func (s *ExpenseTracker) SetGoal(ctx context.Context, chatID int64, text string) error {
	return s.repo.SetGoal(ctx, model.Goal{
		ChatID:    chatID,
		Text:      text,
		UpdatedAt: s.Now(),
	})
}

func (s *ExpenseTracker) GetGoal(ctx context.Context, chatID int64) (string, bool, error) {
	goal, ok, err := s.repo.GetGoal(ctx, chatID)
	if err != nil || !ok || goal.Text == "" {
		return "", false, err
	}
	return goal.Text, true, nil
}

// Goals lists every chat with a non-empty goal.
func (s *ExpenseTracker) Goals(ctx context.Context) ([]model.Goal, error) {
	goals, err := s.repo.ListGoals(ctx)
	if err != nil {
		return nil, err
	}
	out := goals[:0]
	for _, g := range goals {
		if g.Text != "" {
			out = append(out, g)
		}
	}
	return out, nil
}
