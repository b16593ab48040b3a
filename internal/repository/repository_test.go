package repository

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ivanoskov/sg_finance_bot/internal/model"
)

func exerciseRepository(t *testing.T, repo Repository) {
	t.Helper()
	ctx := context.Background()
	const chatID int64 = 42

	s, err := repo.GetSession(ctx, chatID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if s != model.Idle() {
		t.Fatalf("new chat should be idle, got %s", s)
	}

	if err := repo.SaveSession(ctx, chatID, model.AwaitingAmount(model.CategoryHousing)); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}
	s, _ = repo.GetSession(ctx, chatID)
	if c, ok := s.Category(); !ok || c != model.CategoryHousing {
		t.Fatalf("expected awaiting amount for Housing, got %s", s)
	}
	if err := repo.SaveSession(ctx, chatID, model.Idle()); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}
	if s, _ = repo.GetSession(ctx, chatID); s != model.Idle() {
		t.Fatalf("expected idle after overwrite, got %s", s)
	}

	date := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	for _, amount := range []string{"12.50", "3.10", "7.00"} {
		e := &model.Expense{
			ChatID:    chatID,
			Amount:    decimal.RequireFromString(amount),
			Category:  model.CategoryFood,
			Date:      date,
			CreatedAt: date,
		}
		if err := repo.CreateExpense(ctx, e); err != nil {
			t.Fatalf("CreateExpense: %v", err)
		}
		if e.ID == "" {
			t.Fatal("CreateExpense should assign an id")
		}
	}

	expenses, err := repo.GetExpenses(ctx, chatID)
	if err != nil {
		t.Fatalf("GetExpenses: %v", err)
	}
	if len(expenses) != 3 {
		t.Fatalf("expected 3 expenses, got %d", len(expenses))
	}
	if expenses[0].Amount.StringFixed(2) != "12.50" || expenses[2].Amount.StringFixed(2) != "7.00" {
		t.Fatalf("expenses not in insertion order: %v", expenses)
	}
	if other, _ := repo.GetExpenses(ctx, chatID+1); len(other) != 0 {
		t.Fatalf("ledgers must be per chat, got %d entries", len(other))
	}

	n, err := repo.ClearExpenses(ctx, chatID)
	if err != nil || n != 3 {
		t.Fatalf("ClearExpenses = %d, %v; want 3, nil", n, err)
	}
	n, err = repo.ClearExpenses(ctx, chatID)
	if err != nil || n != 0 {
		t.Fatalf("second ClearExpenses = %d, %v; want 0, nil", n, err)
	}

	if _, ok, _ := repo.GetGoal(ctx, chatID); ok {
		t.Fatal("no goal expected yet")
	}
	if err := repo.SetGoal(ctx, model.Goal{ChatID: chatID, Text: "first", UpdatedAt: date}); err != nil {
		t.Fatalf("SetGoal: %v", err)
	}
	if err := repo.SetGoal(ctx, model.Goal{ChatID: chatID, Text: "second", UpdatedAt: date}); err != nil {
		t.Fatalf("SetGoal: %v", err)
	}
	if err := repo.SetGoal(ctx, model.Goal{ChatID: 7, Text: "other", UpdatedAt: date}); err != nil {
		t.Fatalf("SetGoal: %v", err)
	}
	g, ok, err := repo.GetGoal(ctx, chatID)
	if err != nil || !ok || g.Text != "second" {
		t.Fatalf("GetGoal = %+v, %v, %v", g, ok, err)
	}
	goals, err := repo.ListGoals(ctx)
	if err != nil {
		t.Fatalf("ListGoals: %v", err)
	}
	if len(goals) != 2 || goals[0].ChatID != 7 || goals[1].Text != "second" {
		t.Fatalf("unexpected goals: %+v", goals)
	}
}

func TestMemoryRepository(t *testing.T) {
	exerciseRepository(t, NewMemoryRepository())
}

func TestSQLiteRepository(t *testing.T) {
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "bot.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	defer repo.Close()

	exerciseRepository(t, repo)
}

func TestCSVFeedbackRepository(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feedback.csv")
	repo := NewCSVFeedbackRepository(path)
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	for _, text := range []string{"great bot", "needs, commas\nand lines"} {
		if err := repo.SaveFeedback(context.Background(), model.NewFeedback(99, text, at)); err != nil {
			t.Fatalf("SaveFeedback: %v", err)
		}
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}

	if len(records) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(records))
	}
	if records[0][0] != "Chat ID" || records[0][1] != "Feedback" || records[0][2] != "Timestamp" {
		t.Fatalf("unexpected header %v", records[0])
	}
	if records[2][0] != "99" || records[2][1] != "needs, commas\nand lines" || records[2][2] != "2025-01-02T03:04:05Z" {
		t.Fatalf("unexpected row %v", records[2])
	}
}

func TestCSVFeedbackRepositoryFailure(t *testing.T) {
	repo := NewCSVFeedbackRepository(filepath.Join(t.TempDir(), "missing", "feedback.csv"))
	if err := repo.SaveFeedback(context.Background(), model.NewFeedback(1, "x", time.Now())); err == nil {
		t.Fatal("expected error when the directory does not exist")
	}
}
