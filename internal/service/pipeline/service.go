package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/wonny/tripsniper/internal/domain/offer"
	"github.com/wonny/tripsniper/internal/service/combiner"
	"github.com/wonny/tripsniper/internal/service/scoring"
)

// Config 파이프라인 설정
type Config struct {
	Mode         FetchMode
	FetchTimeout time.Duration
}

// DefaultConfig returns sequential mode with a 30s fetch timeout.
func DefaultConfig() *Config {
	return &Config{
		Mode:         ModeSequential,
		FetchTimeout: 30 * time.Second,
	}
}

// Metrics receives pipeline observations.
type Metrics interface {
	ObserveFetch(source, outcome string, elapsed time.Duration)
	ObserveItem(status string)
	ObserveRun(status string, elapsed time.Duration)
}

type noopMetrics struct{}

func (noopMetrics) ObserveFetch(string, string, time.Duration) {}
func (noopMetrics) ObserveItem(string)                         {}
func (noopMetrics) ObserveRun(string, time.Duration)           {}

// Service runs the fetch → combine → score → upsert pipeline.
type Service struct {
	config *Config

	flights offer.Source
	hotels  offer.Source // nil: flights-only

	repo    offer.Repository
	runLogs offer.RunLogRepository // optional
	engine  *scoring.Engine
	metrics Metrics
	now     func() time.Time
}

// Option configures a Service
type Option func(*Service)

// WithRunLog records every run in repo.
func WithRunLog(repo offer.RunLogRepository) Option {
	return func(s *Service) { s.runLogs = repo }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithClock overrides the clock used for run timestamps, visibility and scoring.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates the pipeline. hotels may be nil, which forces
// flights-only runs.
func NewService(
	config *Config,
	flights offer.Source,
	hotels offer.Source,
	repo offer.Repository,
	engine *scoring.Engine,
	opts ...Option,
) *Service {
	if config == nil {
		config = DefaultConfig()
	}
	if config.FetchTimeout <= 0 {
		config.FetchTimeout = DefaultConfig().FetchTimeout
	}
	if config.Mode == "" {
		config.Mode = ModeSequential
	}

	s := &Service{
		config:  config,
		flights: flights,
		hotels:  hotels,
		repo:    repo,
		engine:  engine,
		metrics: noopMetrics{},
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes plan inside a single store session and commits once.
// Pair and item failures are reported, not returned; the returned error is
// for run-level failures (invalid plan, begin, commit).
func (s *Service) Run(ctx context.Context, plan Plan) (*RunReport, error) {
	runTime := s.now()
	report := &RunReport{
		RunID:     uuid.New(),
		Mode:      s.config.Mode,
		StartedAt: runTime,
	}

	logger := log.With().Str("run_id", report.RunID.String()).Logger()
	ctx = offer.ContextWithRunID(ctx, report.RunID)

	err := s.run(ctx, plan, report)
	report.finish(s.now(), err)

	s.metrics.ObserveRun(string(report.Status), report.Duration())
	s.recordRun(ctx, report)

	if err != nil {
		logger.Error().Err(err).Object("report", report).Msg("Pipeline run failed")
		return report, err
	}

	logger.Info().Object("report", report).Msg("Pipeline run finished")
	return report, nil
}

func (s *Service) run(ctx context.Context, plan Plan, report *RunReport) error {
	if err := plan.Validate(); err != nil {
		return err
	}

	flightsOnly := plan.FlightsOnly || s.hotels == nil

	session, err := s.repo.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin session: %w", err)
	}

	for _, pair := range plan.pairs(flightsOnly) {
		if !flightsOnly && !pair.complete() {
			for _, date := range plan.Dates {
				log.Warn().
					Str("flight_dest", pair.flight).
					Str("hotel_dest", pair.hotel).
					Str("date", date).
					Msg("Skipping incomplete destination pair")
				report.tally(PairOutcome{
					FlightDestination: pair.flight,
					HotelDestination:  pair.hotel,
					Date:              date,
					Status:            PairIncomplete,
				})
			}
			continue
		}

		for _, date := range plan.Dates {
			if err := ctx.Err(); err != nil {
				_ = session.Rollback(ctx)
				return fmt.Errorf("run cancelled: %w", err)
			}
			outcome := s.processPair(ctx, session, plan, pair, date, flightsOnly)
			report.tally(outcome)
		}
	}

	if err := session.Commit(ctx); err != nil {
		_ = session.Rollback(ctx)
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// processPair handles one (flightDest, hotelDest, date) unit.
func (s *Service) processPair(
	ctx context.Context,
	session offer.Session,
	plan Plan,
	pair destinationPair,
	date string,
	flightsOnly bool,
) PairOutcome {
	outcome := PairOutcome{
		FlightDestination: pair.flight,
		HotelDestination:  pair.hotel,
		Date:              date,
		Status:            PairCompleted,
	}

	flightQ := offer.Query{Destination: pair.flight, Date: date, Origin: plan.Origin}
	var hotelQ *offer.Query
	if !flightsOnly {
		hotelQ = &offer.Query{Destination: pair.hotel, Date: date, CheckOut: plan.checkOut(date)}
	}

	flights, hotels := s.fetchPair(ctx, flightQ, hotelQ)
	// Sources stamp VisibleFrom with their fetch time, so the pair is
	// evaluated at one instant taken after both fetches returned.
	evalTime := s.now()
	outcome.FlightsFetched = len(flights.offers)
	outcome.HotelsFetched = len(hotels.offers)
	if flights.err != nil {
		outcome.Status = PairFetchFailed
		outcome.FlightError = flights.err.Error()
	}
	if hotels.err != nil {
		outcome.Status = PairFetchFailed
		outcome.HotelError = hotels.err.Error()
	}

	candidates := flights.offers
	if !flightsOnly {
		candidates = s.join(&outcome, pair.flight, flights.offers, hotels.offers)
	}

	for _, o := range candidates {
		outcome.add(s.persist(ctx, session, o, evalTime))
	}

	log.Info().
		Str("flight_dest", pair.flight).
		Str("hotel_dest", pair.hotel).
		Str("date", date).
		Str("status", string(outcome.Status)).
		Int("flights", outcome.FlightsFetched).
		Int("hotels", outcome.HotelsFetched).
		Int("items", len(outcome.Items)).
		Msg("Processed destination pair")

	return outcome
}

// join re-tags hotels with the flight destination and combines.
func (s *Service) join(outcome *PairOutcome, flightDest string, flights, hotels []*offer.Offer) []*offer.Offer {
	tagged := make([]*offer.Offer, 0, len(hotels))
	for _, h := range hotels {
		t, err := h.WithLocation(flightDest)
		if err != nil {
			outcome.add(s.invalid(h.ID(), err))
			continue
		}
		tagged = append(tagged, t)
	}

	combined, errs := combiner.Combine(flights, tagged)
	for _, err := range errs {
		id := ""
		var verr *offer.ValidationError
		if errors.As(err, &verr) {
			id = verr.OfferID
		}
		outcome.add(s.invalid(id, err))
	}
	return combined
}

func (s *Service) invalid(id string, err error) ItemOutcome {
	log.Warn().Err(err).Str("offer_id", id).Msg("Skipping invalid offer")
	s.metrics.ObserveItem(string(ItemInvalid))
	return ItemOutcome{OfferID: id, Status: ItemInvalid, Error: err.Error()}
}

// persist applies the visibility filter, scores and upserts one offer.
// Visibility and the time-dependent features share evalTime.
func (s *Service) persist(ctx context.Context, session offer.Session, o *offer.Offer, evalTime time.Time) ItemOutcome {
	if !o.IsVisibleAt(evalTime) {
		log.Debug().
			Str("offer_id", o.ID()).
			Time("visible_from", o.VisibleFrom()).
			Msg("Skipping offer not yet visible")
		s.metrics.ObserveItem(string(ItemSkippedNotVisible))
		return ItemOutcome{OfferID: o.ID(), Status: ItemSkippedNotVisible}
	}

	score := s.engine.StealScore(o, nil, evalTime)

	inserted, err := session.Upsert(ctx, offer.NewRecord(o, score))
	if err != nil {
		log.Error().Err(err).Str("offer_id", o.ID()).Msg("Failed to upsert offer")
		s.metrics.ObserveItem(string(ItemStoreFailed))
		return ItemOutcome{OfferID: o.ID(), Status: ItemStoreFailed, StealScore: score, Error: err.Error()}
	}

	s.metrics.ObserveItem(string(ItemUpserted))
	return ItemOutcome{OfferID: o.ID(), Status: ItemUpserted, StealScore: score, Inserted: inserted}
}

// recordRun writes the run log row; failures are logged only.
func (s *Service) recordRun(ctx context.Context, report *RunReport) {
	if s.runLogs == nil {
		return
	}
	if err := s.runLogs.Create(context.WithoutCancel(ctx), report.RunLog()); err != nil {
		log.Warn().Err(err).Str("run_id", report.RunID.String()).Msg("Failed to record pipeline run")
	}
}
