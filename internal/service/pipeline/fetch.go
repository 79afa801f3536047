package pipeline

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/wonny/tripsniper/internal/domain/offer"
)

// FetchMode selects how the two fetches of a pair are issued
type FetchMode string

const (
	ModeSequential FetchMode = "sequential"
	ModeConcurrent FetchMode = "concurrent"
)

// fetchResult is what one source returned for one query.
type fetchResult struct {
	offers []*offer.Offer
	err    error
}

// fetchPair fetches flights and, when hotelQ is non-nil, hotels.
// A failed fetch never cancels the other one.
func (s *Service) fetchPair(ctx context.Context, flightQ offer.Query, hotelQ *offer.Query) (flights, hotels fetchResult) {
	if hotelQ == nil {
		return s.fetch(ctx, s.flights, flightQ), fetchResult{}
	}

	if s.config.Mode != ModeConcurrent {
		flights = s.fetch(ctx, s.flights, flightQ)
		hotels = s.fetch(ctx, s.hotels, *hotelQ)
		return flights, hotels
	}

	var g errgroup.Group
	g.Go(func() error {
		flights = s.fetch(ctx, s.flights, flightQ)
		return nil
	})
	g.Go(func() error {
		hotels = s.fetch(ctx, s.hotels, *hotelQ)
		return nil
	})
	_ = g.Wait()

	return flights, hotels
}

// fetch runs one source call under the per-fetch timeout.
func (s *Service) fetch(ctx context.Context, src offer.Source, q offer.Query) fetchResult {
	fetchCtx, cancel := context.WithTimeout(ctx, s.config.FetchTimeout)
	defer cancel()

	start := time.Now()
	done := make(chan fetchResult, 1)
	go func() {
		offers, err := src.FetchOffers(fetchCtx, q)
		done <- fetchResult{offers: offers, err: err}
	}()

	var res fetchResult
	select {
	case res = <-done:
	case <-fetchCtx.Done():
		// late results are dropped
		res = fetchResult{err: offer.Transient(fetchCtx.Err())}
	}
	offers, err := res.offers, res.err
	elapsed := time.Since(start)

	s.metrics.ObserveFetch(src.Name(), fetchOutcome(err), elapsed)

	if err != nil {
		log.Warn().
			Err(err).
			Str("source", src.Name()).
			Str("dest", q.Destination).
			Str("date", q.Date).
			Dur("elapsed", elapsed).
			Bool("transient", offer.IsTransient(err)).
			Msg("Fetch failed, treating as zero offers")
		return fetchResult{err: err}
	}

	log.Debug().
		Str("source", src.Name()).
		Str("dest", q.Destination).
		Str("date", q.Date).
		Int("offers", len(offers)).
		Dur("elapsed", elapsed).
		Msg("Fetched offers")

	return fetchResult{offers: offers}
}

func fetchOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case offer.IsPermanent(err):
		return "permanent_error"
	case offer.IsTransient(err):
		return "transient_error"
	default:
		return "error"
	}
}
