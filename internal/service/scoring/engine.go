package scoring

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wonny/tripsniper/internal/domain/offer"
)

// Engine computes steal scores (0-100) as a weighted sum of features.
// The weight table is fixed at construction; the evaluation time is passed
// in by the caller so one run scores every offer against the same instant.
type Engine struct {
	weights Weights
}

// NewEngine creates a scoring engine
func NewEngine(weights Weights) *Engine {
	return &Engine{weights: weights}
}

// Weights returns the engine's weight table.
func (e *Engine) Weights() Weights {
	return e.weights
}

// FeatureScore is one feature's value and its weighted contribution.
type FeatureScore struct {
	Name         string  `json:"name"`
	Value        float64 `json:"value"`
	Weight       float64 `json:"weight"`
	Contribution float64 `json:"contribution"`
}

// Breakdown of a steal score
type Breakdown struct {
	OfferID    string         `json:"offer_id"`
	PriceLimit float64        `json:"price_limit"`
	Features   []FeatureScore `json:"features"`
	Total      float64        `json:"total"`
}

// StealScore returns the clamped weighted sum of all features for o at now.
func (e *Engine) StealScore(o *offer.Offer, prefs *offer.Preferences, now time.Time) float64 {
	return e.Breakdown(o, prefs, now).Total
}

// Breakdown computes every feature and its contribution at now.
func (e *Engine) Breakdown(o *offer.Offer, prefs *offer.Preferences, now time.Time) Breakdown {
	priceLimit := o.AvgPrice()
	if maxPrice, ok := prefs.PositiveMaxPrice(); ok {
		priceLimit = maxPrice
	}

	values := map[string]float64{
		FeatureDiscountPct:        DiscountPct(o),
		FeatureAbsolutePriceScore: AbsolutePriceScore(o, priceLimit),
		FeatureHotelQuality:       HotelQuality(o),
		FeatureFlightComfort:      FlightComfort(o),
		FeatureUrgencyScore:       UrgencyScore(o, now),
		FeatureNoveltyScore:       NoveltyScore(o, now),
		FeatureCategoryMatch:      CategoryMatch(o, prefs),
	}

	b := Breakdown{
		OfferID:    o.ID(),
		PriceLimit: priceLimit,
		Features:   make([]FeatureScore, 0, len(FeatureNames)),
	}

	sum := 0.0
	for _, name := range FeatureNames {
		w := e.weights.Get(name)
		contribution := values[name] * w
		sum += contribution
		b.Features = append(b.Features, FeatureScore{
			Name:         name,
			Value:        values[name],
			Weight:       w,
			Contribution: contribution,
		})
	}
	b.Total = clamp(sum)

	log.Debug().
		Str("offer_id", o.ID()).
		Float64("price_limit", priceLimit).
		Float64("steal_score", b.Total).
		Msg("Calculated steal score")

	return b
}
