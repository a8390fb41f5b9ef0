package broker

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/frahmantamala/expense-tracker/internal/core/events"
)

var ErrMalformedMessage = errors.New("malformed expense change message")

// ExpenseChangeMessage is the wire form of an expense change notification.
// Deletions carry only the expense id.
type ExpenseChangeMessage struct {
	EventID   string    `json:"event_id"`
	Type      string    `json:"type"`
	ExpenseID string    `json:"expense_id"`
	Title     string    `json:"title,omitempty"`
	Amount    string    `json:"amount,omitempty"`
	Category  string    `json:"category,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewExpenseChangeMessage(e *events.ExpenseChangedEvent) *ExpenseChangeMessage {
	return &ExpenseChangeMessage{
		EventID:   e.EventID(),
		Type:      e.EventType(),
		ExpenseID: e.ExpenseID,
		Title:     e.Title,
		Amount:    e.Amount,
		Category:  e.Category,
		Timestamp: e.OccurredAt(),
	}
}

func (m *ExpenseChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ExpenseChangeMessageFromJSON(data []byte) (*ExpenseChangeMessage, error) {
	var msg ExpenseChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, errors.Join(ErrMalformedMessage, err)
	}
	if msg.Type == "" || msg.ExpenseID == "" {
		return nil, ErrMalformedMessage
	}
	return &msg, nil
}
