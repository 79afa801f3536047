package booking

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/tripsniper/internal/domain/offer"
	"github.com/wonny/tripsniper/internal/pkg/config"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

const hotelsBody = `{
  "result": [
    {"hotel_id": 1001, "min_total_price": 300.5, "review_score": 8.7, "class": 4},
    {"hotel_id": "1002", "min_total_price": "120", "review_score": null, "class": 3.0},
    {"min_total_price": 99, "class": 2},
    {"hotel_id": 1004, "min_total_price": -10, "class": 2},
    {"hotel_id": 1005, "min_total_price": "abc"}
  ]
}`

func newTestServer(t *testing.T, status *atomic.Int32, lastQuery *atomic.Value, lastHeader *atomic.Value) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v3/hotels/search" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		lastQuery.Store(r.URL.Query())
		lastHeader.Store(r.Header.Clone())
		if code := status.Load(); code != 0 {
			w.WriteHeader(int(code))
			return
		}
		_, _ = w.Write([]byte(hotelsBody))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(baseURL string, limit int) *Client {
	return NewClient(config.BookingConfig{
		APIKey:      "rapid-key",
		Host:        "booking-com18.p.rapidapi.com",
		BaseURL:     baseURL,
		Currency:    "EUR",
		Adults:      2,
		Limit:       limit,
		Timeout:     2 * time.Second,
		MaxAttempts: 2,
	}, WithClock(func() time.Time { return fixedNow }), WithInitialBackoff(time.Millisecond))
}

func TestFetchOffers_MapsHotels(t *testing.T) {
	var status atomic.Int32
	var lastQuery, lastHeader atomic.Value
	srv := newTestServer(t, &status, &lastQuery, &lastHeader)
	client := newTestClient(srv.URL, 30)

	offers, err := client.FetchOffers(context.Background(), offer.Query{
		Destination: "-1456928",
		Date:        "2024-06-01",
		CheckOut:    "2024-06-04",
	})
	require.NoError(t, err)
	require.Len(t, offers, 2)

	first := offers[0]
	assert.Equal(t, "BK18-1001", first.ID())
	assert.InDelta(t, 150.25, first.PricePerPerson(), 1e-9)
	assert.InDelta(t, 150.25, first.AvgPrice(), 1e-9)
	assert.InDelta(t, 8.7, first.HotelRating(), 1e-9)
	assert.Equal(t, 4, first.Stars())
	assert.Equal(t, "-1456928", first.Location())
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), first.Date())
	assert.Equal(t, fixedNow, first.VisibleFrom())

	second := offers[1]
	assert.Equal(t, "BK18-1002", second.ID())
	assert.InDelta(t, 60.0, second.PricePerPerson(), 1e-9)
	assert.Zero(t, second.HotelRating())
	assert.Equal(t, 3, second.Stars())

	q := lastQuery.Load().(url.Values)
	assert.Equal(t, "2024-06-01", q.Get("checkin_date"))
	assert.Equal(t, "2024-06-04", q.Get("checkout_date"))
	assert.Equal(t, "2", q.Get("adults_number"))
	assert.Equal(t, "-1456928", q.Get("dest_id"))
	assert.Equal(t, "city", q.Get("dest_type"))
	assert.Equal(t, "price", q.Get("order_by"))
	assert.Equal(t, "EUR", q.Get("filter_by_currency"))
	assert.Equal(t, "true", q.Get("include_adjacency"))

	h := lastHeader.Load().(http.Header)
	assert.Equal(t, "rapid-key", h.Get("X-RapidAPI-Key"))
	assert.Equal(t, "booking-com18.p.rapidapi.com", h.Get("X-RapidAPI-Host"))
}

func TestFetchOffers_Limit(t *testing.T) {
	var status atomic.Int32
	var lastQuery, lastHeader atomic.Value
	srv := newTestServer(t, &status, &lastQuery, &lastHeader)
	client := newTestClient(srv.URL, 1)

	offers, err := client.FetchOffers(context.Background(), offer.Query{Destination: "PAR", Date: "2024-06-01"})
	require.NoError(t, err)
	require.Len(t, offers, 1)
	assert.Equal(t, "BK18-1001", offers[0].ID())

	q := lastQuery.Load().(url.Values)
	assert.Equal(t, "2024-06-01", q.Get("checkout_date"), "checkout defaults to checkin")
}

func TestFetchOffers_Errors(t *testing.T) {
	tests := []struct {
		name      string
		status    int32
		transient bool
	}{
		{"server error", http.StatusBadGateway, true},
		{"rate limited", http.StatusTooManyRequests, true},
		{"forbidden", http.StatusForbidden, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var status atomic.Int32
			var lastQuery, lastHeader atomic.Value
			status.Store(tt.status)
			srv := newTestServer(t, &status, &lastQuery, &lastHeader)
			client := newTestClient(srv.URL, 30)

			offers, err := client.FetchOffers(context.Background(), offer.Query{Destination: "PAR", Date: "2024-06-01"})
			assert.Nil(t, offers)
			assert.Equal(t, tt.transient, offer.IsTransient(err))
			assert.Equal(t, !tt.transient, offer.IsPermanent(err))
		})
	}
}

func TestFetchOffers_InvalidDate(t *testing.T) {
	client := newTestClient("http://127.0.0.1:0", 30)
	_, err := client.FetchOffers(context.Background(), offer.Query{Destination: "PAR", Date: "June 1st"})
	require.Error(t, err)
	assert.True(t, offer.IsPermanent(err))
	assert.True(t, strings.Contains(err.Error(), "checkin"))
}
