// Package memory is an in-process offer store used for dry runs and tests.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/wonny/tripsniper/internal/domain/offer"
)

// ErrSessionClosed is returned by operations on a committed or rolled back session.
var ErrSessionClosed = errors.New("session closed")

// OfferRepository keeps records in a map. Sessions stage writes and apply
// them atomically on Commit.
type OfferRepository struct {
	mu      sync.RWMutex
	records map[string]offer.Record
	commits int
}

// NewOfferRepository creates an empty store
func NewOfferRepository() *OfferRepository {
	return &OfferRepository{records: make(map[string]offer.Record)}
}

// Begin opens a staging session.
func (r *OfferRepository) Begin(ctx context.Context) (offer.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &session{repo: r, staged: make(map[string]offer.Record)}, nil
}

// List returns committed records matching filter, steal_score desc, id asc.
func (r *OfferRepository) List(ctx context.Context, filter offer.ListFilter) ([]*offer.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	out := make([]*offer.Record, 0, len(r.records))
	for _, rec := range r.records {
		if !matches(rec, filter) {
			continue
		}
		rec := rec
		out = append(out, &rec)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].StealScore != out[j].StealScore {
			return out[i].StealScore > out[j].StealScore
		}
		return out[i].ID < out[j].ID
	})

	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// Ping always succeeds
func (r *OfferRepository) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Get returns a committed record
func (r *OfferRepository) Get(id string) (*offer.Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[id]
	if !ok {
		return nil, false
	}
	return &rec, true
}

// Len returns the number of committed records.
func (r *OfferRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

// Commits returns how many sessions were committed.
func (r *OfferRepository) Commits() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.commits
}

func matches(rec offer.Record, f offer.ListFilter) bool {
	if !f.VisibleBefore.IsZero() && rec.VisibleFrom.After(f.VisibleBefore) {
		return false
	}
	if f.PriceMin != nil && rec.PricePerPerson < *f.PriceMin {
		return false
	}
	if f.PriceMax != nil && rec.PricePerPerson > *f.PriceMax {
		return false
	}
	if f.DirectOnly && !rec.Direct {
		return false
	}
	return true
}

type session struct {
	repo   *OfferRepository
	staged map[string]offer.Record
	closed bool
}

func (s *session) Get(ctx context.Context, id string) (*offer.Record, error) {
	if s.closed {
		return nil, ErrSessionClosed
	}
	if rec, ok := s.staged[id]; ok {
		return &rec, nil
	}
	if rec, ok := s.repo.Get(id); ok {
		return rec, nil
	}
	return nil, offer.ErrNotFound
}

func (s *session) Upsert(ctx context.Context, rec *offer.Record) (bool, error) {
	if s.closed {
		return false, ErrSessionClosed
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	_, err := s.Get(ctx, rec.ID)
	inserted := errors.Is(err, offer.ErrNotFound)
	s.staged[rec.ID] = *rec
	return inserted, nil
}

func (s *session) Commit(ctx context.Context) error {
	if s.closed {
		return ErrSessionClosed
	}
	s.closed = true

	s.repo.mu.Lock()
	defer s.repo.mu.Unlock()
	for id, rec := range s.staged {
		s.repo.records[id] = rec
	}
	s.repo.commits++
	return nil
}

func (s *session) Rollback(ctx context.Context) error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.staged = nil
	return nil
}
