package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/wonny/tripsniper/internal/domain/offer"
)

// RunLogRepository keeps run log rows in memory.
type RunLogRepository struct {
	mu   sync.Mutex
	runs []offer.RunLog
}

// NewRunLogRepository creates an empty run log
func NewRunLogRepository() *RunLogRepository {
	return &RunLogRepository{}
}

func (r *RunLogRepository) Create(ctx context.Context, log *offer.RunLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, *log)
	return nil
}

// GetRecent returns up to limit runs, newest first.
func (r *RunLogRepository) GetRecent(ctx context.Context, limit int) ([]*offer.RunLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*offer.RunLog, 0, len(r.runs))
	for i := range r.runs {
		run := r.runs[i]
		out = append(out, &run)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
