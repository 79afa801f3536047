package offers

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/wonny/tripsniper/internal/domain/offer"
	"github.com/wonny/tripsniper/internal/infra/database/postgres"
)

// RunLogRepository PostgreSQL 실행 로그 (tripsniper.pipeline_runs)
type RunLogRepository struct {
	pool *postgres.Pool
}

// NewRunLogRepository 생성자
func NewRunLogRepository(pool *postgres.Pool) *RunLogRepository {
	return &RunLogRepository{pool: pool}
}

// Create 실행 로그 저장 (실행 종료 시)
func (r *RunLogRepository) Create(ctx context.Context, log *offer.RunLog) error {
	query := `
		INSERT INTO tripsniper.pipeline_runs (
			run_id, mode, pairs, fetched, inserted, updated, skipped, failed,
			status, error_message, started_at, finished_at, duration_ms
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
		)
	`

	_, err := r.pool.Exec(ctx, query,
		log.RunID,
		log.Mode,
		log.Pairs,
		log.Fetched,
		log.Inserted,
		log.Updated,
		log.Skipped,
		log.Failed,
		log.Status,
		log.ErrorMessage,
		log.StartedAt,
		log.FinishedAt,
		log.DurationMs,
	)
	if err != nil {
		return fmt.Errorf("create pipeline run: %w", err)
	}
	return nil
}

// GetRecent 최근 실행 로그 조회
func (r *RunLogRepository) GetRecent(ctx context.Context, limit int) ([]*offer.RunLog, error) {
	query := `
		SELECT run_id, mode, pairs, fetched, inserted, updated, skipped, failed,
		       status, error_message, started_at, finished_at, duration_ms
		FROM tripsniper.pipeline_runs
		ORDER BY started_at DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("get recent pipeline runs: %w", err)
	}

	runs, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[offer.RunLog])
	if err != nil {
		return nil, fmt.Errorf("scan pipeline runs: %w", err)
	}
	return runs, nil
}
