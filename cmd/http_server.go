package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/expense-tracker/internal"
	"github.com/frahmantamala/expense-tracker/internal/broker"
	"github.com/frahmantamala/expense-tracker/internal/category"
	"github.com/frahmantamala/expense-tracker/internal/core/events"
	"github.com/frahmantamala/expense-tracker/internal/expense"
	"github.com/frahmantamala/expense-tracker/internal/store"
	"github.com/frahmantamala/expense-tracker/internal/transport"
	"github.com/frahmantamala/expense-tracker/internal/transport/rest"
	"github.com/frahmantamala/expense-tracker/pkg/logger"

	"github.com/go-chi/chi"
	"github.com/spf13/cobra"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config         *internal.Config
	Store          *store.Store
	EventBus       *events.EventBus
	Broker         *broker.Client
	ExpenseService *expense.Service
	Router         *chi.Mux
	Logger         *slog.Logger
}

// Close releases the backends in reverse order of acquisition.
func (d *Dependencies) Close(ctx context.Context) {
	if err := d.EventBus.Wait(ctx); err != nil {
		d.Logger.Warn("pending event handlers abandoned", "error", err)
	}
	if d.Broker != nil {
		if err := d.Broker.Close(); err != nil {
			d.Logger.Error("broker close error", "error", err)
		}
	}
	if err := d.Store.Close(ctx); err != nil {
		d.Logger.Error("database close error", "error", err)
	}
}

func startHTTPServer() {
	cfg, err := setup()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	deps, err := initializeDependencies(context.Background(), cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	setupRoutes(deps)

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("Starting HTTP server", "address", addr, "driver", deps.Store.Name())

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	shutdownTimeout := deps.Config.Server.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 30 * time.Second
	}

	select {
	case sig := <-sigChan:
		deps.Logger.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("Server shutdown error", "error", err)
		}
		deps.Close(ctx)
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			deps.Logger.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	deps.Logger.Info("Server stopped")
}

func setupRoutes(deps *Dependencies) {
	base := transport.NewBaseHandler(deps.Logger)
	base.ExposeErrorDetails = !deps.Config.App.IsProduction()

	expenseHandler := expense.NewHandler(base, deps.ExpenseService)
	categoryHandler := category.NewHandler(base, category.NewService(deps.Logger))

	rest.RegisterAllRoutes(deps.Router,
		rest.NewHealthHandler(deps.Store),
		expenseHandler,
		categoryHandler,
		rest.RouterOptions{
			AllowedOrigins: deps.Config.Server.Origins(),
			ExposeStack:    !deps.Config.App.IsProduction(),
		},
		deps.Logger,
	)
}

func initializeDependencies(ctx context.Context, cfg *internal.Config) (*Dependencies, error) {
	lg := logger.LoggerWrapper()

	st, err := store.Open(ctx, cfg, lg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if cfg.Database.AutoMigrate {
		if err := st.Migrate(ctx); err != nil {
			st.Close(ctx)
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	bus := events.NewEventBus(lg)

	var brokerClient *broker.Client
	if cfg.Broker.Enabled {
		brokerClient, err = broker.NewClient(cfg.Broker.URL, cfg.Broker.Exchange, cfg.Broker.Queue, lg)
		if err != nil {
			st.Close(ctx)
			return nil, fmt.Errorf("failed to connect to broker: %w", err)
		}
		broker.NewForwarder(brokerClient, lg).Register(bus)
	}

	svc := expense.NewService(st.Repository, lg,
		expense.WithQueryTimeout(cfg.Database.QueryTimeout),
		expense.WithPublisher(bus),
	)

	return &Dependencies{
		Config:         cfg,
		Store:          st,
		EventBus:       bus,
		Broker:         brokerClient,
		ExpenseService: svc,
		Router:         rest.NewRouter(),
		Logger:         lg,
	}, nil
}
