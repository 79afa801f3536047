// Package booking fetches hotel offers from the Booking-com18 RapidAPI
// endpoint (GET /v3/hotels/search).
package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/wonny/tripsniper/internal/domain/offer"
	"github.com/wonny/tripsniper/internal/infra/external/transport"
	"github.com/wonny/tripsniper/internal/pkg/config"
)

// SourceName identifies Booking in logs, metrics and cache keys.
const SourceName = "booking"

// Client implements offer.Source for hotels.
type Client struct {
	http     *transport.Client
	apiKey   string
	host     string
	baseURL  string
	currency string
	adults   int
	limit    int
	now      func() time.Time
}

// Option configures a Client
type Option func(*options)

type options struct {
	now            func() time.Time
	initialBackoff time.Duration
}

// WithClock overrides time.Now (visible_from).
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithInitialBackoff sets the first retry delay.
func WithInitialBackoff(d time.Duration) Option {
	return func(o *options) { o.initialBackoff = d }
}

// NewClient creates a new Booking client
func NewClient(cfg config.BookingConfig, opts ...Option) *Client {
	o := options{now: time.Now, initialBackoff: time.Second}
	for _, opt := range opts {
		opt(&o)
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://" + cfg.Host
	}

	return &Client{
		http: transport.New(transport.Config{
			Name:              SourceName,
			Timeout:           cfg.Timeout,
			MaxAttempts:       cfg.MaxAttempts,
			RequestsPerSecond: cfg.RequestsPerSecond,
			InitialBackoff:    o.initialBackoff,
		}),
		apiKey:   cfg.APIKey,
		host:     cfg.Host,
		baseURL:  strings.TrimRight(baseURL, "/"),
		currency: cfg.Currency,
		adults:   max(cfg.Adults, 1),
		limit:    cfg.Limit,
		now:      o.now,
	}
}

// Name implements offer.Source
func (c *Client) Name() string { return SourceName }

// =============================================================================
// API models
// =============================================================================

type searchResponse struct {
	Result []json.RawMessage `json:"result"`
}

type hotel struct {
	HotelID       json.Number      `json:"hotel_id"`
	MinTotalPrice *decimal.Decimal `json:"min_total_price"`
	ReviewScore   *float64         `json:"review_score"`
	Class         float64          `json:"class"`
}

// =============================================================================
// Fetch
// =============================================================================

// FetchOffers searches hotels in city q.Destination (a Booking dest_id)
// for the stay q.Date .. q.CheckOut.
func (c *Client) FetchOffers(ctx context.Context, q offer.Query) ([]*offer.Offer, error) {
	checkIn, err := time.Parse(time.DateOnly, q.Date)
	if err != nil {
		return nil, offer.Permanent(fmt.Errorf("booking: invalid checkin date %q: %w", q.Date, err))
	}
	checkOut := q.CheckOut
	if checkOut == "" {
		checkOut = q.Date
	}

	params := url.Values{}
	params.Set("checkin_date", q.Date)
	params.Set("checkout_date", checkOut)
	params.Set("adults_number", strconv.Itoa(c.adults))
	params.Set("dest_id", q.Destination)
	params.Set("dest_type", "city")
	params.Set("order_by", "price")
	params.Set("room_number", "1")
	params.Set("units", "metric")
	params.Set("locale", "en-gb")
	params.Set("filter_by_currency", c.currency)
	params.Set("page_number", "0")
	params.Set("include_adjacency", "true")
	endpoint := c.baseURL + "/v3/hotels/search?" + params.Encode()

	newRequest := func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, offer.Permanent(fmt.Errorf("create request: %w", err))
		}
		req.Header.Set("X-RapidAPI-Key", c.apiKey)
		req.Header.Set("X-RapidAPI-Host", c.host)
		return req, nil
	}

	var resp searchResponse
	if _, err := c.http.GetJSON(ctx, newRequest, &resp); err != nil {
		return nil, err
	}

	results := resp.Result
	if c.limit > 0 && len(results) > c.limit {
		results = results[:c.limit]
	}

	now := c.now()
	offers := make([]*offer.Offer, 0, len(results))
	for _, raw := range results {
		o, err := c.mapOffer(raw, q.Destination, checkIn, now)
		if err != nil {
			log.Warn().Err(err).Str("source", SourceName).Str("dest", q.Destination).Msg("failed to map offer, skipping")
			continue
		}
		offers = append(offers, o)
	}

	log.Debug().
		Str("source", SourceName).
		Str("dest", q.Destination).
		Str("checkin", q.Date).
		Str("checkout", checkOut).
		Int("raw", len(resp.Result)).
		Int("mapped", len(offers)).
		Msg("hotel offers fetched")

	return offers, nil
}

// mapOffer converts one search result; the total stay price is split per adult.
func (c *Client) mapOffer(raw json.RawMessage, dest string, checkIn, now time.Time) (*offer.Offer, error) {
	var h hotel
	if err := json.Unmarshal(raw, &h); err != nil {
		return nil, fmt.Errorf("decode hotel: %w", err)
	}
	if h.HotelID == "" {
		return nil, errors.New("hotel without hotel_id")
	}

	total := decimal.Zero
	if h.MinTotalPrice != nil {
		total = *h.MinTotalPrice
	}
	perPerson := total.Div(decimal.NewFromInt(int64(c.adults))).InexactFloat64()

	var rating float64
	if h.ReviewScore != nil {
		rating = *h.ReviewScore
	}

	return offer.New(offer.Attributes{
		ID:             "BK18-" + h.HotelID.String(),
		PricePerPerson: perPerson,
		AvgPrice:       perPerson,
		HotelRating:    rating,
		Stars:          int(h.Class),
		Direct:         true,
		Date:           checkIn,
		Location:       dest,
		VisibleFrom:    now,
	})
}
