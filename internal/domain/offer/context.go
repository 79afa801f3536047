package offer

import (
	"context"

	"github.com/google/uuid"
)

type runIDKey struct{}

// ContextWithRunID tags ctx with the pipeline run that issues the calls.
func ContextWithRunID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

// RunIDFromContext returns the run id set by ContextWithRunID.
func RunIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(runIDKey{}).(uuid.UUID)
	return id, ok
}
