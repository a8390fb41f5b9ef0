package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/frahmantamala/expense-tracker/internal/broker"
	"github.com/frahmantamala/expense-tracker/pkg/logger"
	"github.com/spf13/cobra"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start background workers",
	Long:  `Start background workers that react to expense changes.`,
}

// Event worker command
var eventWorkerCmd = &cobra.Command{
	Use:   "events",
	Short: "Consume expense change events from the broker",
	Long:  `Consume the expense change queue and log every created, updated and deleted expense.`,
	Run: func(cmd *cobra.Command, args []string) {
		startEventWorker()
	},
}

var workerQueue string

func startEventWorker() {
	cfg, err := setup()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logger.LoggerWrapper()

	queue := getStringFlag(workerQueue, cfg.Broker.Queue)
	if queue == "" {
		fmt.Fprintln(os.Stderr, "a broker queue is required")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("event worker started. Waiting for expense changes...",
		"exchange", cfg.Broker.Exchange,
		"queue", queue)

	err = broker.Listen(ctx, cfg.Broker.URL, cfg.Broker.Exchange, queue, func(ctx context.Context, msg *broker.ExpenseChangeMessage) error {
		logger.Info("expense changed",
			"event_id", msg.EventID,
			"event_type", msg.Type,
			"expense_id", msg.ExpenseID,
			"title", msg.Title,
			"amount", msg.Amount,
			"category", msg.Category,
			"occurred_at", msg.Timestamp)
		return nil
	}, logger)
	if err != nil {
		logger.Error("event worker stopped", "error", err)
		os.Exit(1)
	}

	logger.Info("event worker shutdown complete")
}

func getStringFlag(flagValue, configValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return configValue
}

func init() {
	eventWorkerCmd.Flags().StringVar(&workerQueue, "queue", "", "queue to consume (defaults to broker.queue)")

	workerCmd.AddCommand(eventWorkerCmd)
	rootCmd.AddCommand(workerCmd)
}
