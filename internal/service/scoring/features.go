package scoring

import (
	"math"
	"time"

	"github.com/wonny/tripsniper/internal/domain/offer"
)

// Feature names (weight table keys)
const (
	FeatureDiscountPct        = "discount_pct"
	FeatureAbsolutePriceScore = "absolute_price_score"
	FeatureHotelQuality       = "hotel_quality"
	FeatureFlightComfort      = "flight_comfort"
	FeatureUrgencyScore       = "urgency_score"
	FeatureNoveltyScore       = "novelty_score"
	FeatureCategoryMatch      = "category_match"
)

// FeatureNames lists every feature in evaluation order.
var FeatureNames = []string{
	FeatureDiscountPct,
	FeatureAbsolutePriceScore,
	FeatureHotelQuality,
	FeatureFlightComfort,
	FeatureUrgencyScore,
	FeatureNoveltyScore,
	FeatureCategoryMatch,
}

const (
	maxComfortDuration = 720.0 // minutes; duration component is 0 beyond 12h
	urgencyHorizonDays = 30
	noveltyHorizonH    = 24.0
)

// clamp limits v to [0, 100]. NaN maps to 0.
func clamp(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// DiscountPct scores the price against the reference average.
func DiscountPct(o *offer.Offer) float64 {
	avg := o.AvgPrice()
	if avg <= 0 {
		return 0
	}
	return clamp((avg - o.PricePerPerson()) / avg * 100)
}

// AbsolutePriceScore is 100 at price 0 and 0 at priceLimit or above.
func AbsolutePriceScore(o *offer.Offer, priceLimit float64) float64 {
	if priceLimit <= 0 || math.IsNaN(priceLimit) {
		return 0
	}
	return clamp((1 - o.PricePerPerson()/priceLimit) * 100)
}

// HotelQuality: rating 60%, stars 40%
func HotelQuality(o *offer.Offer) float64 {
	ratingScore := clamp(o.HotelRating() / 10 * 60)
	starScore := clamp(float64(o.Stars()) / 5 * 40)
	return clamp(ratingScore + starScore)
}

// FlightComfort: shorter flights score higher, direct flights get +20.
func FlightComfort(o *offer.Offer) float64 {
	durationFactor := math.Max(0, 1-float64(o.TotalDuration())/maxComfortDuration)
	score := durationFactor * 80
	if o.Direct() {
		score += 20
	}
	return clamp(score)
}

// UrgencyScore is 100 for departures today and 0 for 30+ days out.
func UrgencyScore(o *offer.Offer, now time.Time) float64 {
	days := int(o.Date().Sub(now) / (24 * time.Hour))
	if days < 0 {
		days = 0
	}
	if days > urgencyHorizonDays {
		days = urgencyHorizonDays
	}
	return clamp((1 - float64(days)/urgencyHorizonDays) * 100)
}

// NoveltyScore is 100 for just-published offers and 0 after 24h.
func NoveltyScore(o *offer.Offer, now time.Time) float64 {
	hours := now.Sub(o.VisibleFrom()).Hours()
	if hours < 0 {
		hours = 0
	}
	hours = math.Min(hours, noveltyHorizonH)
	return clamp((1 - hours/noveltyHorizonH) * 100)
}

// CategoryMatch scores the offer against user preferences.
// Location 40, price 30, stars 30; absent or invalid preferences add 0.
func CategoryMatch(o *offer.Offer, prefs *offer.Preferences) float64 {
	if prefs == nil {
		return 0
	}

	score := 0.0
	if prefs.HasLocation(o.Location()) {
		score += 40
	}

	if maxPrice, ok := prefs.PositiveMaxPrice(); ok {
		score += clamp((1 - o.PricePerPerson()/maxPrice) * 30)
	}

	if minStars, ok := prefs.PositiveMinStars(); ok {
		starScore := 30.0
		if o.Stars() < minStars {
			starScore = float64(o.Stars()) / float64(minStars) * 30
		}
		score += clamp(starScore)
	}

	return clamp(score)
}
