package offer

import (
	"math"
	"time"
)

// =============================================================================
// Offer (value object)
// =============================================================================

// Attributes is the raw field set of an offer. It is only a construction
// input: use New to obtain a validated Offer.
type Attributes struct {
	ID                string
	PricePerPerson    float64
	AvgPrice          float64
	HotelRating       float64 // 0-10
	Stars             int     // 0-5
	DistanceFromBeach float64
	Direct            bool
	TotalDuration     int // minutes
	Date              time.Time
	Location          string
	AttractionScore   float64
	VisibleFrom       time.Time
}

// Offer is a normalized flight, hotel or combined flight+hotel offer.
// Offers are immutable; every instance has passed validation.
type Offer struct {
	attrs Attributes
}

// New validates attrs and returns the offer.
// Any negative (or NaN) numeric field fails with a *ValidationError.
func New(attrs Attributes) (*Offer, error) {
	if err := validate(attrs); err != nil {
		return nil, err
	}
	return &Offer{attrs: attrs}, nil
}

func validate(a Attributes) error {
	checks := []struct {
		field string
		value float64
	}{
		{"price_per_person", a.PricePerPerson},
		{"avg_price", a.AvgPrice},
		{"hotel_rating", a.HotelRating},
		{"stars", float64(a.Stars)},
		{"distance_from_beach", a.DistanceFromBeach},
		{"total_duration", float64(a.TotalDuration)},
		{"attraction_score", a.AttractionScore},
	}

	for _, c := range checks {
		if c.value < 0 || math.IsNaN(c.value) {
			return &ValidationError{OfferID: a.ID, Field: c.field, Value: c.value}
		}
	}
	return nil
}

func (o *Offer) ID() string                 { return o.attrs.ID }
func (o *Offer) PricePerPerson() float64    { return o.attrs.PricePerPerson }
func (o *Offer) AvgPrice() float64          { return o.attrs.AvgPrice }
func (o *Offer) HotelRating() float64       { return o.attrs.HotelRating }
func (o *Offer) Stars() int                 { return o.attrs.Stars }
func (o *Offer) DistanceFromBeach() float64 { return o.attrs.DistanceFromBeach }
func (o *Offer) Direct() bool               { return o.attrs.Direct }
func (o *Offer) TotalDuration() int         { return o.attrs.TotalDuration }
func (o *Offer) Date() time.Time            { return o.attrs.Date }
func (o *Offer) Location() string           { return o.attrs.Location }
func (o *Offer) AttractionScore() float64   { return o.attrs.AttractionScore }
func (o *Offer) VisibleFrom() time.Time     { return o.attrs.VisibleFrom }

// Attributes returns a copy of the offer's fields.
func (o *Offer) Attributes() Attributes {
	return o.attrs
}

// WithLocation returns a re-validated copy of the offer tagged with location.
func (o *Offer) WithLocation(location string) (*Offer, error) {
	attrs := o.attrs
	attrs.Location = location
	return New(attrs)
}

// IsVisibleAt reports whether the offer may be shown at t.
func (o *Offer) IsVisibleAt(t time.Time) bool {
	return !o.attrs.VisibleFrom.After(t)
}

// =============================================================================
// Persisted record (tripsniper.offers)
// =============================================================================

// Record is the persisted form of a scored offer, keyed by ID.
type Record struct {
	ID                string    `json:"id" db:"id"`
	PricePerPerson    float64   `json:"price_per_person" db:"price_per_person"`
	AvgPrice          float64   `json:"avg_price" db:"avg_price"`
	HotelRating       float64   `json:"hotel_rating" db:"hotel_rating"`
	Stars             int       `json:"stars" db:"stars"`
	DistanceFromBeach float64   `json:"distance_from_beach" db:"distance_from_beach"`
	Direct            bool      `json:"direct" db:"direct"`
	TotalDuration     int       `json:"total_duration" db:"total_duration"`
	Date              time.Time `json:"date" db:"date"`
	Location          string    `json:"location" db:"location"`
	AttractionScore   float64   `json:"attraction_score" db:"attraction_score"`
	VisibleFrom       time.Time `json:"visible_from" db:"visible_from"`
	StealScore        float64   `json:"steal_score" db:"steal_score"`
}

// NewRecord builds the persisted form of o with its score.
func NewRecord(o *Offer, stealScore float64) *Record {
	a := o.attrs
	return &Record{
		ID:                a.ID,
		PricePerPerson:    a.PricePerPerson,
		AvgPrice:          a.AvgPrice,
		HotelRating:       a.HotelRating,
		Stars:             a.Stars,
		DistanceFromBeach: a.DistanceFromBeach,
		Direct:            a.Direct,
		TotalDuration:     a.TotalDuration,
		Date:              a.Date,
		Location:          a.Location,
		AttractionScore:   a.AttractionScore,
		VisibleFrom:       a.VisibleFrom,
		StealScore:        stealScore,
	}
}

// =============================================================================
// Preferences
// =============================================================================

// Preferences are optional per-user hints for category matching.
// A nil pointer or non-positive value means "absent" and contributes 0.
type Preferences struct {
	Locations []string
	MaxPrice  *float64
	MinStars  *int
}

// HasLocation reports whether loc is one of the preferred locations.
func (p *Preferences) HasLocation(loc string) bool {
	if p == nil {
		return false
	}
	for _, l := range p.Locations {
		if l == loc {
			return true
		}
	}
	return false
}

// PositiveMaxPrice returns MaxPrice when it is set and usable.
func (p *Preferences) PositiveMaxPrice() (float64, bool) {
	if p == nil || p.MaxPrice == nil {
		return 0, false
	}
	v := *p.MaxPrice
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0, false
	}
	return v, true
}

// PositiveMinStars returns MinStars when it is set and usable.
func (p *Preferences) PositiveMinStars() (int, bool) {
	if p == nil || p.MinStars == nil || *p.MinStars <= 0 {
		return 0, false
	}
	return *p.MinStars, true
}

// =============================================================================
// Query / filter models
// =============================================================================

// Query describes one source lookup.
type Query struct {
	Destination string
	Date        string // YYYY-MM-DD (flight departure / hotel check-in)
	CheckOut    string // YYYY-MM-DD, hotels only; defaults to Date
	Origin      string // IATA code, flights only
}

// AccountType selects the read-side visibility tier.
type AccountType string

const (
	AccountFree    AccountType = "free"
	AccountPremium AccountType = "premium"
)

// ListFilter is the read API query over persisted records.
type ListFilter struct {
	VisibleBefore time.Time // visible_from <= VisibleBefore
	PriceMin      *float64
	PriceMax      *float64
	DirectOnly    bool
	Limit         int
}
