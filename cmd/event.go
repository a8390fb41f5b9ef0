package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/frahmantamala/expense-tracker/internal/broker"
	"github.com/frahmantamala/expense-tracker/internal/core/events"
	"github.com/frahmantamala/expense-tracker/internal/expense"
	"github.com/frahmantamala/expense-tracker/pkg/logger"
	"github.com/spf13/cobra"
)

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Event management commands",
	Long:  `Publish expense change events by hand to exercise the bus and the broker`,
}

var publishEventCmd = &cobra.Command{
	Use:       "publish [event-type]",
	Short:     "Publish an expense change event",
	Long:      `Publish an expense change event to the in-process bus, forwarding it to the broker when enabled`,
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: events.ExpenseEventTypes,
	Run: func(cmd *cobra.Command, args []string) {
		publishTestEvent(args[0])
	},
}

var (
	eventExpenseID string
	eventTitle     string
	eventAmount    string
	eventCategory  string
)

func newChangeEvent(eventType string) *events.ExpenseChangedEvent {
	id := eventExpenseID
	if id == "" {
		id = expense.NewID()
	}
	switch eventType {
	case events.EventTypeExpenseCreated:
		return events.NewExpenseCreatedEvent(id, eventTitle, eventAmount, eventCategory)
	case events.EventTypeExpenseUpdated:
		return events.NewExpenseUpdatedEvent(id, eventTitle, eventAmount, eventCategory)
	default:
		return events.NewExpenseDeletedEvent(id)
	}
}

func publishTestEvent(eventType string) {
	cfg, err := setup()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logger.LoggerWrapper()
	eventBus := events.NewEventBus(logger)

	eventBus.Subscribe(eventType, func(ctx context.Context, event events.Event) error {
		logger.Info("test handler received event",
			"event_id", event.EventID(),
			"event_type", event.EventType(),
			"payload", event.Payload())
		return nil
	})

	if cfg.Broker.Enabled {
		client, err := broker.NewClient(cfg.Broker.URL, cfg.Broker.Exchange, cfg.Broker.Queue, logger)
		if err != nil {
			logger.Error("failed to connect to broker", "error", err)
			os.Exit(1)
		}
		defer client.Close()
		broker.NewForwarder(client, logger).Register(eventBus)
	}

	event := newChangeEvent(eventType)
	logger.Info("publishing test event", "event_type", eventType, "event_id", event.EventID(), "expense_id", event.ExpenseID)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := eventBus.Publish(ctx, event); err != nil {
		logger.Error("failed to publish event", "error", err)
		return
	}
	if err := eventBus.Wait(ctx); err != nil {
		logger.Error("event handlers did not finish", "error", err)
		return
	}
	logger.Info("test event published successfully")
}

func init() {
	publishEventCmd.Flags().StringVar(&eventExpenseID, "expense-id", "", "expense id carried by the event (random when empty)")
	publishEventCmd.Flags().StringVar(&eventTitle, "title", "Sample expense", "expense title")
	publishEventCmd.Flags().StringVar(&eventAmount, "amount", "10.00", "expense amount")
	publishEventCmd.Flags().StringVar(&eventCategory, "category", "Other", "expense category")

	eventCmd.AddCommand(publishEventCmd)

	rootCmd.AddCommand(eventCmd)
}
