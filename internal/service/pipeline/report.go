package pipeline

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/wonny/tripsniper/internal/domain/offer"
)

// ItemStatus is the outcome of one offer within a pair
type ItemStatus string

const (
	ItemUpserted          ItemStatus = "upserted"
	ItemSkippedNotVisible ItemStatus = "skipped-not-visible"
	ItemInvalid           ItemStatus = "invalid"
	ItemStoreFailed       ItemStatus = "store-failed"
)

// PairStatus is the outcome of one (flightDest, hotelDest, date) unit
type PairStatus string

const (
	PairCompleted   PairStatus = "completed"
	PairFetchFailed PairStatus = "fetch-failed"
	PairIncomplete  PairStatus = "incomplete-pair"
)

// ItemOutcome records what happened to a single offer.
type ItemOutcome struct {
	OfferID    string     `json:"offer_id"`
	Status     ItemStatus `json:"status"`
	StealScore float64    `json:"steal_score,omitempty"`
	Inserted   bool       `json:"inserted,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// PairOutcome records one destination pair on one date.
type PairOutcome struct {
	FlightDestination string        `json:"flight_destination"`
	HotelDestination  string        `json:"hotel_destination"`
	Date              string        `json:"date"`
	Status            PairStatus    `json:"status"`
	FlightsFetched    int           `json:"flights_fetched"`
	HotelsFetched     int           `json:"hotels_fetched"`
	FlightError       string        `json:"flight_error,omitempty"`
	HotelError        string        `json:"hotel_error,omitempty"`
	Items             []ItemOutcome `json:"items"`
}

func (p *PairOutcome) add(item ItemOutcome) {
	p.Items = append(p.Items, item)
}

// RunReport summarizes one pipeline run.
type RunReport struct {
	RunID      uuid.UUID       `json:"run_id"`
	Mode       FetchMode       `json:"mode"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Status     offer.RunStatus `json:"status"`
	Error      string          `json:"error,omitempty"`
	Pairs      []PairOutcome   `json:"pairs"`

	Fetched           int `json:"fetched"`
	Inserted          int `json:"inserted"`
	Updated           int `json:"updated"`
	SkippedNotVisible int `json:"skipped_not_visible"`
	Invalid           int `json:"invalid"`
	StoreFailed       int `json:"store_failed"`
	FetchFailed       int `json:"fetch_failed"`
	IncompletePairs   int `json:"incomplete_pairs"`
}

// Upserted returns inserted + updated
func (r *RunReport) Upserted() int {
	return r.Inserted + r.Updated
}

// Duration of the run
func (r *RunReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// tally folds a finished pair into the run counters.
func (r *RunReport) tally(p PairOutcome) {
	r.Pairs = append(r.Pairs, p)
	r.Fetched += p.FlightsFetched + p.HotelsFetched

	switch p.Status {
	case PairFetchFailed:
		r.FetchFailed++
	case PairIncomplete:
		r.IncompletePairs++
	}

	for _, item := range p.Items {
		switch item.Status {
		case ItemUpserted:
			if item.Inserted {
				r.Inserted++
			} else {
				r.Updated++
			}
		case ItemSkippedNotVisible:
			r.SkippedNotVisible++
		case ItemInvalid:
			r.Invalid++
		case ItemStoreFailed:
			r.StoreFailed++
		}
	}
}

// finish sets the final status from the counters and the run-level error.
func (r *RunReport) finish(at time.Time, err error) {
	r.FinishedAt = at
	switch {
	case err != nil:
		r.Status = offer.RunFailed
		r.Error = err.Error()
	case r.FetchFailed > 0 || r.StoreFailed > 0 || r.Invalid > 0 || r.IncompletePairs > 0:
		r.Status = offer.RunPartial
	default:
		r.Status = offer.RunCompleted
	}
}

// RunLog converts the report into a run log row.
func (r *RunReport) RunLog() *offer.RunLog {
	finished := r.FinishedAt
	durationMs := int(r.Duration().Milliseconds())

	row := &offer.RunLog{
		RunID:      r.RunID,
		Mode:       string(r.Mode),
		Pairs:      len(r.Pairs),
		Fetched:    r.Fetched,
		Inserted:   r.Inserted,
		Updated:    r.Updated,
		Skipped:    r.SkippedNotVisible + r.IncompletePairs,
		Failed:     r.Invalid + r.StoreFailed + r.FetchFailed,
		Status:     r.Status,
		StartedAt:  r.StartedAt,
		FinishedAt: &finished,
		DurationMs: &durationMs,
	}
	if r.Error != "" {
		msg := r.Error
		row.ErrorMessage = &msg
	}
	return row
}

// MarshalZerologObject lets the report be logged with Object().
func (r *RunReport) MarshalZerologObject(e *zerolog.Event) {
	e.Str("run_id", r.RunID.String()).
		Str("mode", string(r.Mode)).
		Str("status", string(r.Status)).
		Int("pairs", len(r.Pairs)).
		Int("fetched", r.Fetched).
		Int("inserted", r.Inserted).
		Int("updated", r.Updated).
		Int("skipped_not_visible", r.SkippedNotVisible).
		Int("invalid", r.Invalid).
		Int("store_failed", r.StoreFailed).
		Int("fetch_failed", r.FetchFailed).
		Int("incomplete_pairs", r.IncompletePairs).
		Dur("duration", r.Duration())
}
