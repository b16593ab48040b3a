package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Expense is one recorded ledger entry. It is never modified after creation.
type Expense struct {
	ID        string          `json:"id"`
	ChatID    int64           `json:"chat_id"`
	Amount    decimal.Decimal `json:"amount"`
	Category  Category        `json:"category"`
	Date      time.Time       `json:"date"`
	CreatedAt time.Time       `json:"created_at"`
}

// GenerateID assigns a new UUID if the expense does not have one yet.
func (e *Expense) GenerateID() {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
}

// DateString formats the capture date as YYYY-MM-DD.
func (e Expense) DateString() string {
	return e.Date.Format("2006-01-02")
}

// Goal is the free-text savings goal of a conversation.
type Goal struct {
	ChatID    int64     `json:"chat_id"`
	Text      string    `json:"text"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Feedback is one append-only feedback record.
type Feedback struct {
	ID        string    `json:"id"`
	ChatID    int64     `json:"chat_id"`
	Text      string    `json:"feedback"`
	Timestamp time.Time `json:"timestamp"`
}

// NewFeedback stamps a feedback record with a fresh id.
func NewFeedback(chatID int64, text string, at time.Time) Feedback {
	return Feedback{
		ID:        uuid.New().String(),
		ChatID:    chatID,
		Text:      text,
		Timestamp: at.UTC(),
	}
}
