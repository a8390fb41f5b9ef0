package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeExpenseCreated = "expense.created"
	EventTypeExpenseUpdated = "expense.updated"
	EventTypeExpenseDeleted = "expense.deleted"
)

// ExpenseEventTypes lists every change notification the expense service emits.
var ExpenseEventTypes = []string{
	EventTypeExpenseCreated,
	EventTypeExpenseUpdated,
	EventTypeExpenseDeleted,
}

// ExpenseChangedEvent is shared by the three change notifications. Amount is
// the decimal rendered as text so no precision is lost on the wire.
type ExpenseChangedEvent struct {
	BaseEvent
	ExpenseID string `json:"expense_id"`
	Title     string `json:"title,omitempty"`
	Amount    string `json:"amount,omitempty"`
	Category  string `json:"category,omitempty"`
}

func newExpenseChangedEvent(eventType, expenseID, title, amount, category string) *ExpenseChangedEvent {
	data := map[string]interface{}{
		"expense_id": expenseID,
	}
	if eventType != EventTypeExpenseDeleted {
		data["title"] = title
		data["amount"] = amount
		data["category"] = category
	}

	return &ExpenseChangedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      eventType,
			Timestamp: time.Now().UTC(),
			Data:      data,
		},
		ExpenseID: expenseID,
		Title:     title,
		Amount:    amount,
		Category:  category,
	}
}

func NewExpenseCreatedEvent(expenseID, title, amount, category string) *ExpenseChangedEvent {
	return newExpenseChangedEvent(EventTypeExpenseCreated, expenseID, title, amount, category)
}

func NewExpenseUpdatedEvent(expenseID, title, amount, category string) *ExpenseChangedEvent {
	return newExpenseChangedEvent(EventTypeExpenseUpdated, expenseID, title, amount, category)
}

func NewExpenseDeletedEvent(expenseID string) *ExpenseChangedEvent {
	return newExpenseChangedEvent(EventTypeExpenseDeleted, expenseID, "", "", "")
}
