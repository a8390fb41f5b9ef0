// Package store opens the configured record store backend.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/frahmantamala/expense-tracker/db"
	"github.com/frahmantamala/expense-tracker/internal"
	"github.com/frahmantamala/expense-tracker/internal/expense"
	expenseMongo "github.com/frahmantamala/expense-tracker/internal/expense/mongo"
	expensePostgres "github.com/frahmantamala/expense-tracker/internal/expense/postgres"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Store bundles an opened backend. SQL is nil for document backends.
type Store struct {
	Driver     string
	Repository expense.RepositoryAPI
	SQL        *sqlx.DB

	dialect db.Dialect
	ping    func(ctx context.Context) error
	migrate func(ctx context.Context) error
	close   func(ctx context.Context) error
}

func (s *Store) Name() string {
	return s.Driver
}

func (s *Store) Ping(ctx context.Context) error {
	return s.ping(ctx)
}

// Migrate brings the schema up to date. For document backends it only
// ensures the indexes.
func (s *Store) Migrate(ctx context.Context) error {
	return s.migrate(ctx)
}

// Rollback reverts the latest SQL migration.
func (s *Store) Rollback(ctx context.Context) error {
	if s.SQL == nil {
		return fmt.Errorf("rollback is not supported for the %s driver", s.Driver)
	}
	return db.Rollback(ctx, s.SQL.DB, s.dialect)
}

// Version reports the applied SQL schema version.
func (s *Store) Version(ctx context.Context) (int64, error) {
	if s.SQL == nil {
		return 0, fmt.Errorf("schema versions are not tracked for the %s driver", s.Driver)
	}
	return db.Version(ctx, s.SQL.DB, s.dialect)
}

func (s *Store) Close(ctx context.Context) error {
	return s.close(ctx)
}

// Open connects to the backend named by cfg.Database.Driver.
func Open(ctx context.Context, cfg *internal.Config, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Database.Driver {
	case internal.DriverPostgres:
		return openPostgres(cfg.Database, logger)
	case internal.DriverSQLite:
		return openSQLite(cfg.Database, logger)
	case internal.DriverMongo:
		return openMongo(ctx, cfg.Database, cfg.Mongo, logger)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Database.Driver)
	}
}

func gormConfig(logger *slog.Logger) *gorm.Config {
	return &gorm.Config{
		Logger: gormlogger.New(
			slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
			gormlogger.Config{
				SlowThreshold:             200 * time.Millisecond,
				LogLevel:                  gormlogger.Warn,
				IgnoreRecordNotFoundError: true,
			},
		),
	}
}

func sqlStore(driver string, dialect db.Dialect, conn *sqlx.DB, gdb *gorm.DB) *Store {
	return &Store{
		Driver:     driver,
		Repository: expensePostgres.NewExpenseRepository(gdb),
		SQL:        conn,
		dialect:    dialect,
		ping:       conn.PingContext,
		migrate: func(ctx context.Context) error {
			return db.Migrate(ctx, conn.DB, dialect)
		},
		close: func(context.Context) error {
			return conn.Close()
		},
	}
}

func openPostgres(cfg internal.DatabaseConfig, logger *slog.Logger) (*Store, error) {
	const driver = "pgx"

	conn, err := sqlx.Connect(driver, cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		conn.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		conn.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	conn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	conn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: conn.DB}), gormConfig(logger))
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to initialize gorm: %w", err)
	}

	logger.Info("connected to postgres", "max_open_conns", cfg.MaxOpenConns)
	return sqlStore(internal.DriverPostgres, db.Postgres, conn, gdb), nil
}

func openSQLite(cfg internal.DatabaseConfig, logger *slog.Logger) (*Store, error) {
	gdb, err := gorm.Open(sqlite.Open(cfg.GetDSN()), gormConfig(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access sqlite pool: %w", err)
	}
	// sqlite serializes writers; one connection also keeps :memory: databases shared
	sqlDB.SetMaxOpenConns(1)

	logger.Info("opened sqlite database", "source", cfg.GetDSN(), "memory", strings.Contains(cfg.GetDSN(), ":memory:"))
	return sqlStore(internal.DriverSQLite, db.SQLite, sqlx.NewDb(sqlDB, "sqlite3"), gdb), nil
}

func openMongo(ctx context.Context, cfg internal.DatabaseConfig, mcfg internal.MongoConfig, logger *slog.Logger) (*Store, error) {
	opts := options.Client().ApplyURI(cfg.GetDSN())
	if cfg.MaxOpenConns > 0 {
		opts.SetMaxPoolSize(uint64(cfg.MaxOpenConns))
	}
	if cfg.ConnMaxIdleTime > 0 {
		opts.SetMaxConnIdleTime(cfg.ConnMaxIdleTime)
	}

	connectCtx, cancel := internal.QueryContext(ctx, cfg.QueryTimeout)
	defer cancel()

	client, err := mongodriver.Connect(connectCtx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	repo := expenseMongo.NewExpenseRepository(client.Database(mcfg.Database).Collection(mcfg.Collection))

	logger.Info("connected to mongo", "database", mcfg.Database, "collection", mcfg.Collection)
	return &Store{
		Driver:     internal.DriverMongo,
		Repository: repo,
		ping: func(ctx context.Context) error {
			return client.Ping(ctx, readpref.Primary())
		},
		migrate: repo.EnsureIndexes,
		close:   client.Disconnect,
	}, nil
}
