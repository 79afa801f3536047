package combiner

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/tripsniper/internal/domain/offer"
)

var day = time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

func makeOffer(t *testing.T, id, location string, date time.Time, mutate ...func(a *offer.Attributes)) *offer.Offer {
	t.Helper()
	attrs := offer.Attributes{
		ID:                id,
		PricePerPerson:    100,
		AvgPrice:          150,
		HotelRating:       5,
		Stars:             4,
		DistanceFromBeach: 0.2,
		Direct:            true,
		TotalDuration:     120,
		Date:              date,
		Location:          location,
		VisibleFrom:       day,
	}
	for _, m := range mutate {
		m(&attrs)
	}
	o, err := offer.New(attrs)
	require.NoError(t, err)
	return o
}

func TestCombine_OnlyMatchingLocationAndDate(t *testing.T) {
	f1 := makeOffer(t, "F1", "PAR", day)
	f2 := makeOffer(t, "F2", "LON", day)
	h1 := makeOffer(t, "H1", "PAR", day)
	h2 := makeOffer(t, "H2", "PAR", day.AddDate(0, 0, 1))

	combined, errs := Combine([]*offer.Offer{f1, f2}, []*offer.Offer{h1, h2})
	assert.Empty(t, errs)
	require.Len(t, combined, 1)

	o := combined[0]
	assert.Equal(t, "F1-H1", o.ID())
	assert.Equal(t, "PAR", o.Location())
	assert.Equal(t, day, o.Date())
}

func TestCombine_FieldDerivation(t *testing.T) {
	flight := makeOffer(t, "F", "PAR", day.Add(9*time.Hour), func(a *offer.Attributes) {
		a.PricePerPerson = 120
		a.AvgPrice = 200
		a.HotelRating = 0
		a.Stars = 0
		a.Direct = false
		a.TotalDuration = 300
		a.AttractionScore = 7
		a.VisibleFrom = day.Add(time.Hour)
	})
	hotel := makeOffer(t, "H", "PAR", day, func(a *offer.Attributes) {
		a.PricePerPerson = 80
		a.AvgPrice = 90
		a.HotelRating = 8.5
		a.Stars = 5
		a.DistanceFromBeach = 1.5
		a.TotalDuration = 0
		a.AttractionScore = 3
		a.VisibleFrom = day.Add(2 * time.Hour)
	})

	combined, errs := Combine([]*offer.Offer{flight}, []*offer.Offer{hotel})
	require.Empty(t, errs)
	require.Len(t, combined, 1)

	o := combined[0]
	assert.Equal(t, 200.0, o.PricePerPerson())
	assert.Equal(t, 290.0, o.AvgPrice())
	assert.Equal(t, 8.5, o.HotelRating())
	assert.Equal(t, 5, o.Stars())
	assert.Equal(t, 1.5, o.DistanceFromBeach())
	assert.False(t, o.Direct())
	assert.Equal(t, 300, o.TotalDuration())
	assert.Equal(t, flight.Date(), o.Date())
	assert.Equal(t, 7.0, o.AttractionScore())
	assert.Equal(t, day.Add(2*time.Hour), o.VisibleFrom(), "visible_from is the later of the two")
}

func TestCombine_CrossProduct(t *testing.T) {
	flights := []*offer.Offer{makeOffer(t, "F1", "PAR", day), makeOffer(t, "F2", "PAR", day)}
	hotels := []*offer.Offer{makeOffer(t, "H1", "PAR", day), makeOffer(t, "H2", "PAR", day)}

	combined, errs := Combine(flights, hotels)
	assert.Empty(t, errs)

	ids := make([]string, 0, len(combined))
	for _, o := range combined {
		ids = append(ids, o.ID())
	}
	assert.Equal(t, []string{"F1-H1", "F1-H2", "F2-H1", "F2-H2"}, ids)
}

func TestCombine_EmptyInputs(t *testing.T) {
	combined, errs := Combine(nil, []*offer.Offer{makeOffer(t, "H1", "PAR", day)})
	assert.Empty(t, combined)
	assert.Empty(t, errs)

	combined, errs = Combine([]*offer.Offer{makeOffer(t, "F1", "PAR", day)}, nil)
	assert.Empty(t, combined)
	assert.Empty(t, errs)
}

func TestCombine_DateComparedInOwnLocation(t *testing.T) {
	warsaw := time.FixedZone("CET", 3600)
	// 2023-01-01 00:30 in Warsaw is still 2022-12-31 in UTC.
	flight := makeOffer(t, "F1", "PAR", time.Date(2023, 1, 1, 0, 30, 0, 0, warsaw))
	hotel := makeOffer(t, "H1", "PAR", day)

	combined, errs := Combine([]*offer.Offer{flight}, []*offer.Offer{hotel})
	assert.Empty(t, errs)
	assert.Len(t, combined, 1)
}

func TestCombine_PriceOverflowStaysNonNegative(t *testing.T) {
	flight := makeOffer(t, "F1", "PAR", day, func(a *offer.Attributes) { a.PricePerPerson = math.MaxFloat64 })
	hotel := makeOffer(t, "H1", "PAR", day, func(a *offer.Attributes) { a.PricePerPerson = math.MaxFloat64 })

	combined, errs := Combine([]*offer.Offer{flight}, []*offer.Offer{hotel})
	assert.Empty(t, errs)
	require.Len(t, combined, 1)
	assert.True(t, math.IsInf(combined[0].PricePerPerson(), 1))
}
