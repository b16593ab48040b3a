package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ivanoskov/sg_finance_bot/internal/model"
)

type sessionRow struct {
	ChatID    int64 `gorm:"primaryKey;autoIncrement:false"`
	State     string
	Category  string
	UpdatedAt time.Time
}

func (sessionRow) TableName() string { return "sessions" }

type expenseRow struct {
	Seq       uint   `gorm:"primaryKey;autoIncrement"`
	ID        string `gorm:"uniqueIndex"`
	ChatID    int64  `gorm:"index"`
	Amount    string
	Category  string
	Date      time.Time
	CreatedAt time.Time
}

func (expenseRow) TableName() string { return "expenses" }

type goalRow struct {
	ChatID    int64 `gorm:"primaryKey;autoIncrement:false"`
	Text      string
	UpdatedAt time.Time
}

func (goalRow) TableName() string { return "goals" }

// SQLiteRepository persists conversation state with gorm on SQLite.
type SQLiteRepository struct {
	db *gorm.DB
}

func NewSQLiteRepository(path string) (*SQLiteRepository, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.AutoMigrate(&sessionRow{}, &expenseRow{}, &goalRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) GetSession(ctx context.Context, chatID int64) (model.Session, error) {
	var row sessionRow
	err := r.db.WithContext(ctx).First(&row, "chat_id = ?", chatID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Idle(), nil
	}
	if err != nil {
		return model.Idle(), fmt.Errorf("failed to get session: %w", err)
	}
	return model.RestoreSession(model.ParseStateKind(row.State), row.Category), nil
}

func (r *SQLiteRepository) SaveSession(ctx context.Context, chatID int64, session model.Session) error {
	row := sessionRow{
		ChatID:    chatID,
		State:     session.Kind().String(),
		UpdatedAt: time.Now(),
	}
	if c, ok := session.Category(); ok {
		row.Category = string(c)
	}
	if err := r.db.WithContext(ctx).Save(&row).Error; err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) CreateExpense(ctx context.Context, expense *model.Expense) error {
	expense.GenerateID()
	row := expenseRow{
		ID:        expense.ID,
		ChatID:    expense.ChatID,
		Amount:    expense.Amount.StringFixed(2),
		Category:  string(expense.Category),
		Date:      expense.Date,
		CreatedAt: expense.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to create expense: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetExpenses(ctx context.Context, chatID int64) ([]model.Expense, error) {
	var rows []expenseRow
	if err := r.db.WithContext(ctx).Where("chat_id = ?", chatID).Order("seq asc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to get expenses: %w", err)
	}

	expenses := make([]model.Expense, 0, len(rows))
	for _, row := range rows {
		amount, err := decimal.NewFromString(row.Amount)
		if err != nil {
			return nil, fmt.Errorf("failed to parse amount of expense %s: %w", row.ID, err)
		}
		category, ok := model.ParseCategory(row.Category)
		if !ok {
			category = model.CategoryOthers
		}
		expenses = append(expenses, model.Expense{
			ID:        row.ID,
			ChatID:    row.ChatID,
			Amount:    amount,
			Category:  category,
			Date:      row.Date,
			CreatedAt: row.CreatedAt,
		})
	}
	return expenses, nil
}

func (r *SQLiteRepository) ClearExpenses(ctx context.Context, chatID int64) (int, error) {
	res := r.db.WithContext(ctx).Where("chat_id = ?", chatID).Delete(&expenseRow{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to clear expenses: %w", res.Error)
	}
	return int(res.RowsAffected), nil
}

func (r *SQLiteRepository) SetGoal(ctx context.Context, goal model.Goal) error {
	row := goalRow{ChatID: goal.ChatID, Text: goal.Text, UpdatedAt: goal.UpdatedAt}
	if err := r.db.WithContext(ctx).Save(&row).Error; err != nil {
		return fmt.Errorf("failed to set goal: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetGoal(ctx context.Context, chatID int64) (model.Goal, bool, error) {
	var row goalRow
	err := r.db.WithContext(ctx).First(&row, "chat_id = ?", chatID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Goal{}, false, nil
	}
	if err != nil {
		return model.Goal{}, false, fmt.Errorf("failed to get goal: %w", err)
	}
	return model.Goal{ChatID: row.ChatID, Text: row.Text, UpdatedAt: row.UpdatedAt}, true, nil
}

func (r *SQLiteRepository) ListGoals(ctx context.Context) ([]model.Goal, error) {
	var rows []goalRow
	if err := r.db.WithContext(ctx).Order("chat_id asc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list goals: %w", err)
	}
	goals := make([]model.Goal, 0, len(rows))
	for _, row := range rows {
		goals = append(goals, model.Goal{ChatID: row.ChatID, Text: row.Text, UpdatedAt: row.UpdatedAt})
	}
	return goals, nil
}

func (r *SQLiteRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
