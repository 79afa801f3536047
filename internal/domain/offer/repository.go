package offer

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Sources
// =============================================================================

// Source fetches raw offers from one upstream provider.
// Errors wrap ErrTransient or ErrPermanent.
type Source interface {
	Name() string
	FetchOffers(ctx context.Context, q Query) ([]*Offer, error)
}

// =============================================================================
// Offer Repository
// =============================================================================

// Repository stores scored offers (tripsniper.offers).
type Repository interface {
	// Begin opens a write session; nothing is visible to readers until Commit.
	Begin(ctx context.Context) (Session, error)

	// List returns records for the read API, steal_score desc.
	List(ctx context.Context, filter ListFilter) ([]*Record, error)

	// Ping checks the backing store.
	Ping(ctx context.Context) error
}

// Session is one pipeline run's unit of work.
type Session interface {
	// Get returns ErrNotFound when no record has this id.
	Get(ctx context.Context, id string) (*Record, error)

	// Upsert inserts the record or overwrites every field of the existing one.
	// Returns true when a new row was inserted.
	Upsert(ctx context.Context, rec *Record) (bool, error)

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// =============================================================================
// Run log (tripsniper.pipeline_runs)
// =============================================================================

// RunStatus of a pipeline run
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunPartial   RunStatus = "partial"
	RunFailed    RunStatus = "failed"
)

// RunLog is a summary row per pipeline run.
type RunLog struct {
	RunID        uuid.UUID  `json:"run_id" db:"run_id"`
	Mode         string     `json:"mode" db:"mode"`
	Pairs        int        `json:"pairs" db:"pairs"`
	Fetched      int        `json:"fetched" db:"fetched"`
	Inserted     int        `json:"inserted" db:"inserted"`
	Updated      int        `json:"updated" db:"updated"`
	Skipped      int        `json:"skipped" db:"skipped"`
	Failed       int        `json:"failed" db:"failed"`
	Status       RunStatus  `json:"status" db:"status"`
	ErrorMessage *string    `json:"error_message" db:"error_message"`
	StartedAt    time.Time  `json:"started_at" db:"started_at"`
	FinishedAt   *time.Time `json:"finished_at" db:"finished_at"`
	DurationMs   *int       `json:"duration_ms" db:"duration_ms"`
}

// RunLogRepository records pipeline runs.
type RunLogRepository interface {
	Create(ctx context.Context, log *RunLog) error
	GetRecent(ctx context.Context, limit int) ([]*RunLog, error)
}
