package bootstrap

import (
	"context"
	"fmt"
	"time"

	apihttp "github.com/memomeet/memomeet/adapters/http"
	"github.com/memomeet/memomeet/adapters/memory"
	"github.com/memomeet/memomeet/adapters/postgres"
	"github.com/memomeet/memomeet/adapters/sqlite"
	"github.com/memomeet/memomeet/config"
	"github.com/memomeet/memomeet/ports"
	"github.com/rs/zerolog"
)

// Stores groups the persistence ports behind one database handle.
type Stores struct {
	Accounts  ports.AccountStore
	Events    ports.EventStore
	Summaries ports.SummaryStore

	// Health is nil for the in-memory driver.
	Health apihttp.HealthChecker

	close func() error
}

// pinger adapts a database Ping to apihttp.HealthChecker.
type pinger func(ctx context.Context) error

func (p pinger) HealthCheck(ctx context.Context) error { return p(ctx) }

// OpenStores connects to the configured database and applies pending migrations.
func OpenStores(ctx context.Context, cfg config.DatabaseConfig, logger zerolog.Logger) (*Stores, error) {
	switch cfg.Driver {
	case "sqlite":
		db, err := sqlite.Open(cfg.DSN)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		logger.Info().Str("driver", "sqlite").Str("dsn", cfg.DSN).Msg("database initialized")
		return &Stores{
			Accounts:  sqlite.NewAccountStore(db),
			Events:    sqlite.NewEventStore(db),
			Summaries: sqlite.NewSummaryStore(db),
			Health:    pinger(db.Ping),
			close:     db.Close,
		}, nil

	case "postgres":
		db, err := postgres.Open(ctx, cfg.DSN, postgres.Options{
			RetryAttempts: 5,
			RetryInterval: time.Second,
		})
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(ctx, logger); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		logger.Info().Str("driver", "postgres").Msg("database initialized")
		return &Stores{
			Accounts:  postgres.NewAccountStore(db),
			Events:    postgres.NewEventStore(db),
			Summaries: postgres.NewSummaryStore(db),
			Health:    pinger(db.Ping),
			close:     db.Close,
		}, nil

	case "memory":
		logger.Warn().Msg("using in-memory storage, data is lost on restart")
		accounts := memory.NewAccountStore()
		return &Stores{
			Accounts:  accounts,
			Events:    memory.NewEventStore(accounts),
			Summaries: memory.NewSummaryStore(),
			close:     func() error { return nil },
		}, nil

	default:
		return nil, fmt.Errorf("unknown database driver: %s", cfg.Driver)
	}
}

// Close releases the database handle.
func (s *Stores) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}
