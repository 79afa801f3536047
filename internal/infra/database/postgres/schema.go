package postgres

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// Schema DDL for the tripsniper schema. Statements are idempotent.
var schemaStatements = []string{
	`CREATE SCHEMA IF NOT EXISTS tripsniper`,
	`CREATE TABLE IF NOT EXISTS tripsniper.offers (
		id                  TEXT PRIMARY KEY,
		price_per_person    DOUBLE PRECISION NOT NULL,
		avg_price           DOUBLE PRECISION NOT NULL,
		hotel_rating        DOUBLE PRECISION NOT NULL,
		stars               INTEGER NOT NULL,
		distance_from_beach DOUBLE PRECISION NOT NULL,
		direct              BOOLEAN NOT NULL,
		total_duration      INTEGER NOT NULL,
		date                TIMESTAMPTZ NOT NULL,
		location            TEXT NOT NULL,
		attraction_score    DOUBLE PRECISION NOT NULL,
		visible_from        TIMESTAMPTZ NOT NULL,
		steal_score         DOUBLE PRECISION NOT NULL,
		created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at          TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS offers_steal_score_idx
		ON tripsniper.offers (steal_score DESC, id ASC)`,
	`CREATE INDEX IF NOT EXISTS offers_visible_from_idx
		ON tripsniper.offers (visible_from)`,
	`CREATE TABLE IF NOT EXISTS tripsniper.pipeline_runs (
		run_id        UUID PRIMARY KEY,
		mode          TEXT NOT NULL,
		pairs         INTEGER NOT NULL,
		fetched       INTEGER NOT NULL,
		inserted      INTEGER NOT NULL,
		updated       INTEGER NOT NULL,
		skipped       INTEGER NOT NULL,
		failed        INTEGER NOT NULL,
		status        TEXT NOT NULL,
		error_message TEXT,
		started_at    TIMESTAMPTZ NOT NULL,
		finished_at   TIMESTAMPTZ,
		duration_ms   INTEGER
	)`,
}

// EnsureSchema creates the tripsniper schema and tables if missing.
func (p *Pool) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := p.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	log.Info().Msg("✅ Database schema OK")
	return nil
}
