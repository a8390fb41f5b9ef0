package cmd

import (
	"context"
	"log"

	"github.com/frahmantamala/expense-tracker/internal/store"
	"github.com/frahmantamala/expense-tracker/pkg/logger"
	"github.com/spf13/cobra"
)

var (
	migrateCmd = &cobra.Command{
		RunE:  runMigration,
		Use:   "migrate",
		Short: "to run the embedded db migrations (indexes only for mongo)",
	}
	migrateRollback bool
)

func init() {
	migrateCmd.Flags().BoolVarP(&migrateRollback, "rollback", "r", false, "to rollback the latest version of sql migration")
}

func runMigration(_ *cobra.Command, _ []string) error {
	ctx := context.Background()
	cfg, err := setup()
	if err != nil {
		log.Fatal(err)
	}
	lg := logger.LoggerWrapper()

	st, err := store.Open(ctx, cfg, lg)
	if err != nil {
		log.Fatalf("migrate: failed to open store: %v\n", err)
	}
	defer st.Close(ctx)

	if migrateRollback {
		if err := st.Rollback(ctx); err != nil {
			log.Fatalf("goose down: %v", err)
		}
	} else if err := st.Migrate(ctx); err != nil {
		log.Fatalf("goose up: %v", err)
	}

	if version, err := st.Version(ctx); err == nil {
		lg.Info("migrations applied", "driver", st.Name(), "version", version)
	}
	return nil
}
