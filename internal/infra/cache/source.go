// Package cache decorates an offer.Source with a TTL response cache.
package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/wonny/tripsniper/internal/domain/offer"
)

type entry struct {
	offers    []*offer.Offer
	expiresAt time.Time
}

// Source caches successful lookups of the wrapped source for a fixed TTL.
// Concurrent lookups for the same query share one upstream call.
// Errors are never cached.
type Source struct {
	next offer.Source
	ttl  time.Duration
	now  func() time.Time

	mu      sync.RWMutex
	entries map[string]entry

	sf singleflight.Group
}

// Wrap returns next unchanged when ttl <= 0.
func Wrap(next offer.Source, ttl time.Duration) offer.Source {
	if ttl <= 0 {
		return next
	}
	return newSource(next, ttl, time.Now)
}

func newSource(next offer.Source, ttl time.Duration, now func() time.Time) *Source {
	return &Source{
		next:    next,
		ttl:     ttl,
		now:     now,
		entries: make(map[string]entry),
	}
}

// Name implements offer.Source
func (s *Source) Name() string { return s.next.Name() }

// FetchOffers implements offer.Source
func (s *Source) FetchOffers(ctx context.Context, q offer.Query) ([]*offer.Offer, error) {
	key := cacheKey(s.next.Name(), q)

	if offers, ok := s.get(key); ok {
		log.Debug().Str("source", s.next.Name()).Str("key", key).Msg("cache hit")
		return offers, nil
	}

	v, err, _ := s.sf.Do(key, func() (interface{}, error) {
		if offers, ok := s.get(key); ok {
			return offers, nil
		}
		offers, err := s.next.FetchOffers(ctx, q)
		if err != nil {
			return nil, err
		}
		s.put(key, offers)
		return offers, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]*offer.Offer), nil
}

func (s *Source) get(key string) ([]*offer.Offer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	if !ok || !s.now().Before(e.expiresAt) {
		return nil, false
	}
	return e.offers, true
}

func (s *Source) put(key string, offers []*offer.Offer) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	for k, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, k)
		}
	}
	s.entries[key] = entry{offers: offers, expiresAt: now.Add(s.ttl)}
}

// Len returns the number of live entries.
func (s *Source) Len() int {
	now := s.now()
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, e := range s.entries {
		if now.Before(e.expiresAt) {
			n++
		}
	}
	return n
}

func cacheKey(source string, q offer.Query) string {
	return strings.Join([]string{source, q.Origin, q.Destination, q.Date, q.CheckOut}, ":")
}
