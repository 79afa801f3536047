package cmd

import (
	"github.com/rs/zerolog/log"

	"github.com/wonny/tripsniper/internal/domain/offer"
	"github.com/wonny/tripsniper/internal/infra/cache"
	"github.com/wonny/tripsniper/internal/infra/external/amadeus"
	"github.com/wonny/tripsniper/internal/infra/external/booking"
	"github.com/wonny/tripsniper/internal/obs"
	"github.com/wonny/tripsniper/internal/pkg/config"
	"github.com/wonny/tripsniper/internal/service/pipeline"
	"github.com/wonny/tripsniper/internal/service/scoring"
)

// newPipeline wires sources, scoring and st into a pipeline service.
func newPipeline(st *store, metrics *obs.Metrics) *pipeline.Service {
	weights := scoring.LoadWeights(cfg.Scoring.WeightsJSON, cfg.Scoring.WeightsFile)
	log.Info().
		Str("source", weights.Source()).
		Interface("weights", weights.Map()).
		Msg("Steal score weights loaded")

	flights := cache.Wrap(amadeus.NewClient(cfg.Amadeus), cfg.Cache.TTL)

	var hotels offer.Source
	if cfg.Pipeline.HotelsActive() {
		hotels = cache.Wrap(booking.NewClient(cfg.Booking), cfg.Cache.TTL)
	}

	mode := pipeline.ModeSequential
	if cfg.Pipeline.Async {
		mode = pipeline.ModeConcurrent
	}

	opts := []pipeline.Option{pipeline.WithMetrics(metrics)}
	if st.runLogs != nil {
		opts = append(opts, pipeline.WithRunLog(st.runLogs))
	}

	return pipeline.NewService(
		&pipeline.Config{Mode: mode, FetchTimeout: cfg.Pipeline.FetchTimeout},
		flights,
		hotels,
		st.offers,
		scoring.NewEngine(weights),
		opts...,
	)
}

func toPipelinePlan(p *config.RunPlan) pipeline.Plan {
	return pipeline.Plan{
		FlightDestinations: p.FlightDestinations,
		HotelDestinations:  p.HotelDestinations,
		Dates:              p.Dates,
		Origin:             p.Origin,
		FlightsOnly:        p.FlightsOnly,
		Nights:             p.Nights,
	}
}
