package broker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/expense-tracker/internal/core/events"
)

var routingKeys = events.ExpenseEventTypes

type Publisher interface {
	Publish(ctx context.Context, msg *ExpenseChangeMessage) error
}

// Forwarder republishes in-process expense events to the broker.
type Forwarder struct {
	publisher Publisher
	logger    *slog.Logger
}

func NewForwarder(publisher Publisher, logger *slog.Logger) *Forwarder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Forwarder{publisher: publisher, logger: logger}
}

// Register subscribes the forwarder to every expense change type.
func (f *Forwarder) Register(bus *events.EventBus) {
	bus.SubscribeMany(events.ExpenseEventTypes, f.Handle)
}

func (f *Forwarder) Handle(ctx context.Context, event events.Event) error {
	changed, ok := event.(*events.ExpenseChangedEvent)
	if !ok {
		return fmt.Errorf("unexpected event %T for %s", event, event.EventType())
	}

	if err := f.publisher.Publish(ctx, NewExpenseChangeMessage(changed)); err != nil {
		f.logger.ErrorContext(ctx, "failed to forward expense change",
			"error", err,
			"event_type", changed.EventType(),
			"expense_id", changed.ExpenseID)
		return err
	}
	return nil
}
