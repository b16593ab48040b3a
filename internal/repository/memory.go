package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/ivanoskov/sg_finance_bot/internal/model"
)

// MemoryRepository keeps everything in process memory. Its lifetime is the
// process uptime.
type MemoryRepository struct {
	mu       sync.RWMutex
	sessions map[int64]model.Session
	expenses map[int64][]model.Expense
	goals    map[int64]model.Goal
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		sessions: make(map[int64]model.Session),
		expenses: make(map[int64][]model.Expense),
		goals:    make(map[int64]model.Goal),
	}
}

func (r *MemoryRepository) GetSession(_ context.Context, chatID int64) (model.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s, ok := r.sessions[chatID]; ok {
		return s, nil
	}
	return model.Idle(), nil
}

func (r *MemoryRepository) SaveSession(_ context.Context, chatID int64, session model.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[chatID] = session
	return nil
}

func (r *MemoryRepository) CreateExpense(_ context.Context, expense *model.Expense) error {
	expense.GenerateID()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.expenses[expense.ChatID] = append(r.expenses[expense.ChatID], *expense)
	return nil
}

func (r *MemoryRepository) GetExpenses(_ context.Context, chatID int64) ([]model.Expense, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]model.Expense(nil), r.expenses[chatID]...), nil
}

func (r *MemoryRepository) ClearExpenses(_ context.Context, chatID int64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(r.expenses[chatID])
	delete(r.expenses, chatID)
	return n, nil
}

func (r *MemoryRepository) SetGoal(_ context.Context, goal model.Goal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.goals[goal.ChatID] = goal
	return nil
}

func (r *MemoryRepository) GetGoal(_ context.Context, chatID int64) (model.Goal, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.goals[chatID]
	return g, ok, nil
}

// ListGoals returns every stored goal ordered by chat id.
func (r *MemoryRepository) ListGoals(_ context.Context) ([]model.Goal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	goals := make([]model.Goal, 0, len(r.goals))
	for _, g := range r.goals {
		goals = append(goals, g)
	}
	sort.Slice(goals, func(i, j int) bool {
		return goals[i].ChatID < goals[j].ChatID
	})
	return goals, nil
}

func (r *MemoryRepository) Close() error {
	return nil
}
