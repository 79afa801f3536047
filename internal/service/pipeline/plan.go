package pipeline

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire format of plan dates.
const DateLayout = "2006-01-02"

// ErrInvalidPlan is returned by Run for plans that cannot be executed.
var ErrInvalidPlan = errors.New("invalid pipeline plan")

// Plan describes one run: destination lists are zipped positionally and
// each pair is processed for every date.
type Plan struct {
	FlightDestinations []string
	HotelDestinations  []string
	Dates              []string
	Origin             string
	FlightsOnly        bool
	Nights             int // hotel stay; 0 means 1
}

// Validate checks dates and destination lists.
func (p Plan) Validate() error {
	if len(p.FlightDestinations) == 0 {
		return fmt.Errorf("%w: no flight destinations", ErrInvalidPlan)
	}
	if len(p.Dates) == 0 {
		return fmt.Errorf("%w: no dates", ErrInvalidPlan)
	}
	for _, d := range p.Dates {
		if _, err := time.Parse(DateLayout, d); err != nil {
			return fmt.Errorf("%w: date %q: %w", ErrInvalidPlan, d, err)
		}
	}
	for _, dest := range p.FlightDestinations {
		if strings.TrimSpace(dest) == "" {
			return fmt.Errorf("%w: empty flight destination", ErrInvalidPlan)
		}
	}
	for _, dest := range p.HotelDestinations {
		if strings.TrimSpace(dest) == "" {
			return fmt.Errorf("%w: empty hotel destination", ErrInvalidPlan)
		}
	}
	if p.Nights < 0 {
		return fmt.Errorf("%w: negative nights", ErrInvalidPlan)
	}
	return nil
}

// checkOut returns the hotel check-out date for check-in date.
func (p Plan) checkOut(date string) string {
	nights := p.Nights
	if nights == 0 {
		nights = 1
	}
	d, err := time.Parse(DateLayout, date)
	if err != nil {
		return date
	}
	return d.AddDate(0, 0, nights).Format(DateLayout)
}

// destinationPair is one zipped entry; a missing partner is "".
type destinationPair struct {
	flight string
	hotel  string
}

func (p destinationPair) complete() bool {
	return p.flight != "" && p.hotel != ""
}

// pairs zips the destination lists. In flights-only mode the hotel list is
// ignored and every flight destination is a complete unit.
func (p Plan) pairs(flightsOnly bool) []destinationPair {
	if flightsOnly {
		out := make([]destinationPair, len(p.FlightDestinations))
		for i, f := range p.FlightDestinations {
			out[i] = destinationPair{flight: f}
		}
		return out
	}

	n := max(len(p.FlightDestinations), len(p.HotelDestinations))
	out := make([]destinationPair, n)
	for i := range n {
		if i < len(p.FlightDestinations) {
			out[i].flight = p.FlightDestinations[i]
		}
		if i < len(p.HotelDestinations) {
			out[i].hotel = p.HotelDestinations[i]
		}
	}
	return out
}
