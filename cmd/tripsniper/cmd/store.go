package cmd

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/wonny/tripsniper/internal/api/handlers"
	"github.com/wonny/tripsniper/internal/domain/offer"
	"github.com/wonny/tripsniper/internal/infra/database/memory"
	"github.com/wonny/tripsniper/internal/infra/database/postgres"
	"github.com/wonny/tripsniper/internal/infra/database/postgres/offers"
	"github.com/wonny/tripsniper/internal/infra/database/sqlite"
)

// store is the opened persistence backend selected by DATABASE_URL.
type store struct {
	offers  offer.Repository
	runLogs offer.RunLogRepository    // nil for sqlite
	pool    handlers.PoolHealthChecker // postgres only
	close   func()
}

func openStore(ctx context.Context) (*store, error) {
	if err := cfg.ValidateDatabase(); err != nil {
		return nil, err
	}

	switch driver := cfg.Database.Driver(); driver {
	case "memory":
		log.Warn().Msg("Using in-memory store, offers are lost on exit")
		return &store{
			offers:  memory.NewOfferRepository(),
			runLogs: memory.NewRunLogRepository(),
			close:   func() {},
		}, nil

	case "sqlite":
		repo, err := sqlite.Open(ctx, cfg.Database.SQLitePath())
		if err != nil {
			return nil, err
		}
		return &store{
			offers: repo,
			close: func() {
				if err := repo.Close(); err != nil {
					log.Warn().Err(err).Msg("Failed to close SQLite store")
				}
			},
		}, nil

	default:
		pool, err := postgres.NewPool(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("connect %s: %w", driver, err)
		}
		if err := pool.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		return &store{
			offers:  offers.NewOfferRepository(pool),
			runLogs: offers.NewRunLogRepository(pool),
			pool:    pool,
			close:   pool.Close,
		}, nil
	}
}
