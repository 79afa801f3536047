// Package combiner joins flight and hotel offers into trip offers.
package combiner

import (
	"fmt"
	"math"
	"time"

	"github.com/wonny/tripsniper/internal/domain/offer"
)

// Combine pairs every flight with every hotel sharing its location and
// calendar date. Flights are the outer loop, so output order follows
// flights then hotels. Pairs that fail validation are reported in errs and
// do not stop the join.
func Combine(flights, hotels []*offer.Offer) (combined []*offer.Offer, errs []error) {
	for _, f := range flights {
		for _, h := range hotels {
			if f.Location() != h.Location() || !sameDay(f.Date(), h.Date()) {
				continue
			}

			o, err := Pair(f, h)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			combined = append(combined, o)
		}
	}
	return combined, errs
}

// Pair builds the combined offer of flight f and hotel h.
// Prices add up, hotel fields come from h, flight fields from f.
func Pair(f, h *offer.Offer) (*offer.Offer, error) {
	visibleFrom := f.VisibleFrom()
	if h.VisibleFrom().After(visibleFrom) {
		visibleFrom = h.VisibleFrom()
	}

	o, err := offer.New(offer.Attributes{
		ID:                f.ID() + "-" + h.ID(),
		PricePerPerson:    f.PricePerPerson() + h.PricePerPerson(),
		AvgPrice:          f.AvgPrice() + h.AvgPrice(),
		HotelRating:       h.HotelRating(),
		Stars:             h.Stars(),
		DistanceFromBeach: h.DistanceFromBeach(),
		Direct:            f.Direct(),
		TotalDuration:     f.TotalDuration(),
		Date:              f.Date(),
		Location:          f.Location(),
		AttractionScore:   math.Max(f.AttractionScore(), h.AttractionScore()),
		VisibleFrom:       visibleFrom,
	})
	if err != nil {
		return nil, fmt.Errorf("combine %s with %s: %w", f.ID(), h.ID(), err)
	}
	return o, nil
}

// sameDay compares year, month and day of each timestamp in its own location.
func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
