package amadeus

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/tripsniper/internal/domain/offer"
	"github.com/wonny/tripsniper/internal/pkg/config"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

const flightOffersBody = `{
  "data": [
    {
      "id": "1",
      "itineraries": [{"segments": [
        {"departure": {"iataCode": "WAW", "at": "2024-06-01T10:00:00"},
         "arrival":   {"iataCode": "CDG", "at": "2024-06-01T12:30:00"}}
      ]}],
      "price": {"currency": "PLN", "grandTotal": "512.30"}
    },
    {
      "id": "2",
      "itineraries": [{"segments": [
        {"departure": {"iataCode": "WAW", "at": "2024-06-01T06:00:00"},
         "arrival":   {"iataCode": "FRA", "at": "2024-06-01T08:00:00"}},
        {"departure": {"iataCode": "FRA", "at": "2024-06-01T09:00:00"},
         "arrival":   {"iataCode": "CDG", "at": "2024-06-01T10:15:00"}}
      ]}],
      "price": {"currency": "PLN", "grandTotal": "399.99"}
    },
    {"id": "3", "itineraries": [], "price": {"grandTotal": "100.00"}},
    {"id": "4", "itineraries": [{"segments": [
        {"departure": {"at": "2024-06-01T10:00:00"}, "arrival": {"at": "2024-06-01T11:00:00"}}
      ]}], "price": {"grandTotal": "-5"}},
    "garbage"
  ]
}`

type fakeAmadeus struct {
	tokenCalls  atomic.Int32
	searchCalls atomic.Int32
	failFirst   int32 // search calls answered with 500
	expireFirst int32 // search calls answered with 401
	lastQuery   atomic.Value
	header      http.Header
}

func (f *fakeAmadeus) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/security/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		n := f.tokenCalls.Add(1)
		if err := r.ParseForm(); err != nil || r.PostForm.Get("grant_type") != "client_credentials" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		fmt.Fprintf(w, `{"access_token": "token-%d", "token_type": "Bearer", "expires_in": 1799}`, n)
	})
	mux.HandleFunc("/v2/shopping/flight-offers", func(w http.ResponseWriter, r *http.Request) {
		n := f.searchCalls.Add(1)
		f.lastQuery.Store(r.URL.Query())
		if r.Header.Get("Authorization") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if n <= f.expireFirst {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if n <= f.expireFirst+f.failFirst {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		for k, v := range f.header {
			w.Header()[k] = v
		}
		_, _ = w.Write([]byte(flightOffersBody))
	})
	return mux
}

func newTestClient(t *testing.T, fake *fakeAmadeus) *Client {
	t.Helper()
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	return NewClient(config.AmadeusConfig{
		APIKey:      "key",
		APISecret:   "secret",
		BaseURL:     srv.URL,
		Currency:    "PLN",
		MaxResults:  20,
		Adults:      1,
		Timeout:     2 * time.Second,
		MaxAttempts: 3,
	}, WithClock(func() time.Time { return fixedNow }), WithInitialBackoff(time.Millisecond))
}

var query = offer.Query{Destination: "PAR", Date: "2024-06-01", Origin: "WAW"}

func TestFetchOffers_MapsAndSkipsMalformed(t *testing.T) {
	fake := &fakeAmadeus{}
	client := newTestClient(t, fake)

	offers, err := client.FetchOffers(context.Background(), query)
	require.NoError(t, err)
	require.Len(t, offers, 2)

	direct := offers[0]
	assert.Equal(t, "AM-WAW-PAR-2024-06-01-1", direct.ID())
	assert.InDelta(t, 512.30, direct.PricePerPerson(), 1e-9)
	assert.InDelta(t, 512.30, direct.AvgPrice(), 1e-9)
	assert.True(t, direct.Direct())
	assert.Equal(t, 150, direct.TotalDuration())
	assert.Equal(t, "PAR", direct.Location())
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), direct.Date())
	assert.Equal(t, fixedNow, direct.VisibleFrom())
	assert.Zero(t, direct.Stars())

	connecting := offers[1]
	assert.Equal(t, "AM-WAW-PAR-2024-06-01-2", connecting.ID())
	assert.False(t, connecting.Direct())
	assert.Equal(t, 255, connecting.TotalDuration())

	q := fake.lastQuery.Load().(url.Values)
	assert.Equal(t, []string{"WAW"}, q["originLocationCode"])
	assert.Equal(t, []string{"PAR"}, q["destinationLocationCode"])
	assert.Equal(t, []string{"2024-06-01"}, q["departureDate"])
	assert.Equal(t, []string{"1"}, q["adults"])
	assert.Equal(t, []string{"PLN"}, q["currencyCode"])
	assert.Equal(t, []string{"20"}, q["max"])
}

func TestFetchOffers_DefaultOrigin(t *testing.T) {
	fake := &fakeAmadeus{}
	client := newTestClient(t, fake)

	offers, err := client.FetchOffers(context.Background(), offer.Query{Destination: "PAR", Date: "2024-06-01"})
	require.NoError(t, err)
	require.NotEmpty(t, offers)
	assert.Equal(t, "AM-WAW-PAR-2024-06-01-1", offers[0].ID())
}

func TestFetchOffers_TokenIsCached(t *testing.T) {
	fake := &fakeAmadeus{}
	client := newTestClient(t, fake)

	for i := 0; i < 3; i++ {
		_, err := client.FetchOffers(context.Background(), query)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), fake.tokenCalls.Load())
	assert.Equal(t, int32(3), fake.searchCalls.Load())
}

func TestFetchOffers_RetriesServerErrors(t *testing.T) {
	fake := &fakeAmadeus{failFirst: 2}
	client := newTestClient(t, fake)

	offers, err := client.FetchOffers(context.Background(), query)
	require.NoError(t, err)
	assert.Len(t, offers, 2)
	assert.Equal(t, int32(3), fake.searchCalls.Load())
}

func TestFetchOffers_ExhaustedRetriesAreTransient(t *testing.T) {
	fake := &fakeAmadeus{failFirst: 10}
	client := newTestClient(t, fake)

	offers, err := client.FetchOffers(context.Background(), query)
	assert.Nil(t, offers)
	assert.True(t, offer.IsTransient(err))
	assert.Equal(t, int32(3), fake.searchCalls.Load())
}

func TestFetchOffers_ExpiredTokenIsRefreshed(t *testing.T) {
	fake := &fakeAmadeus{expireFirst: 1}
	client := newTestClient(t, fake)

	_, err := client.FetchOffers(context.Background(), query)
	require.NoError(t, err)
	assert.Equal(t, int32(2), fake.tokenCalls.Load())
}

func TestFetchOffers_InvalidDateIsPermanent(t *testing.T) {
	fake := &fakeAmadeus{}
	client := newTestClient(t, fake)

	_, err := client.FetchOffers(context.Background(), offer.Query{Destination: "PAR", Date: "01/06/2024"})
	assert.True(t, offer.IsPermanent(err))
	assert.Zero(t, fake.searchCalls.Load())
}

func TestRateLimitWait(t *testing.T) {
	header := func(remaining, reset string) http.Header {
		h := http.Header{}
		if remaining != "" {
			h.Set("X-RateLimit-Remaining", remaining)
		}
		if reset != "" {
			h.Set("X-RateLimit-Reset", reset)
		}
		return h
	}

	tests := []struct {
		name string
		h    http.Header
		want time.Duration
	}{
		{"no headers", header("", ""), 0},
		{"quota left", header("4", "10"), 0},
		{"exhausted without reset", header("0", ""), time.Second},
		{"reset in seconds", header("0", "3"), 3 * time.Second},
		{"reset as unix time", header("0", strconv.FormatInt(fixedNow.Add(5*time.Second).Unix(), 10)), 5 * time.Second},
		{"reset in the past", header("0", strconv.FormatInt(fixedNow.Add(-time.Hour).Unix(), 10)), time.Second},
		{"capped", header("0", "3600"), maxRateLimitWait},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, rateLimitWait(tt.h, fixedNow))
		})
	}
}
