// Package amadeus fetches flight offers from the Amadeus Self-Service API
// (GET /v2/shopping/flight-offers).
package amadeus

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

const (
	// SourceName identifies Amadeus in logs, metrics and cache keys.
	SourceName = "amadeus"

	// DefaultOrigin is used when the query carries no origin.
	DefaultOrigin = "WAW"

	// maxRateLimitWait caps the pause requested by X-RateLimit-Reset.
	maxRateLimitWait = time.Minute
)

// Client implements offer.Source for flights.
type Client struct {
	auth       *AuthClient
	http       *transport.Client
	baseURL    string
	currency   string
	maxResults int
	adults     int
	now        func() time.Time
}

// Option configures a Client
type Option func(*options)

type options struct {
	now            func() time.Time
	initialBackoff time.Duration
}

// WithClock overrides time.Now (visible_from, token expiry).
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithInitialBackoff sets the first retry delay.
func WithInitialBackoff(d time.Duration) Option {
	return func(o *options) { o.initialBackoff = d }
}

// NewClient creates a new Amadeus client
func NewClient(cfg config.AmadeusConfig, opts ...Option) *Client {
	o := options{now: time.Now, initialBackoff: time.Second}
	for _, opt := range opts {
		opt(&o)
	}

	auth := NewAuthClient(cfg.APIKey, cfg.APISecret, cfg.BaseURL, cfg.Timeout)
	auth.now = o.now

	c := &Client{
		auth:       auth,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		currency:   cfg.Currency,
		maxResults: cfg.MaxResults,
		adults:     max(cfg.Adults, 1),
		now:        o.now,
	}
	c.http = transport.New(transport.Config{
		Name:              SourceName,
		Timeout:           cfg.Timeout,
		MaxAttempts:       cfg.MaxAttempts,
		RequestsPerSecond: cfg.RequestsPerSecond,
		InitialBackoff:    o.initialBackoff,
		Classify:          c.classify,
	})
	return c
}

// Name implements offer.Source
func (c *Client) Name() string { return SourceName }

// classify treats an expired token as transient so the retry re-authenticates.
func (c *Client) classify(status int, body []byte) error {
	if status == http.StatusUnauthorized {
		c.auth.ClearToken()
		return offer.Transient(transport.StatusError(SourceName, status, body))
	}
	return transport.ClassifyStatus(SourceName, status, body)
}

// =============================================================================
// API models
// =============================================================================

type searchResponse struct {
	Data []json.RawMessage `json:"data"`
}

type flightOffer struct {
	ID          string      `json:"id"`
	Itineraries []itinerary `json:"itineraries"`
	Price       struct {
		Currency   string           `json:"currency"`
		GrandTotal *decimal.Decimal `json:"grandTotal"`
	} `json:"price"`
}

type itinerary struct {
	Duration string    `json:"duration"`
	Segments []segment `json:"segments"`
}

type segment struct {
	Departure endpoint `json:"departure"`
	Arrival   endpoint `json:"arrival"`
}

type endpoint struct {
	IATACode string `json:"iataCode"`
	At       string `json:"at"`
}

// =============================================================================
// Fetch
// =============================================================================

// FetchOffers searches one-way offers from q.Origin to q.Destination on q.Date.
func (c *Client) FetchOffers(ctx context.Context, q offer.Query) ([]*offer.Offer, error) {
	origin := q.Origin
	if origin == "" {
		origin = DefaultOrigin
	}
	date, err := time.Parse(time.DateOnly, q.Date)
	if err != nil {
		return nil, offer.Permanent(fmt.Errorf("amadeus: invalid departure date %q: %w", q.Date, err))
	}

	params := url.Values{}
	params.Set("originLocationCode", origin)
	params.Set("destinationLocationCode", q.Destination)
	params.Set("departureDate", q.Date)
	params.Set("adults", strconv.Itoa(c.adults))
	params.Set("currencyCode", c.currency)
	params.Set("max", strconv.Itoa(c.maxResults))
	endpoint := c.baseURL + "/v2/shopping/flight-offers?" + params.Encode()

	newRequest := func(ctx context.Context) (*http.Request, error) {
		token, err := c.auth.GetAccessToken(ctx)
		if err != nil {
			return nil, fmt.Errorf("get access token: %w", err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, offer.Permanent(fmt.Errorf("create request: %w", err))
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Accept", "application/vnd.amadeus+json")
		return req, nil
	}

	var resp searchResponse
	header, err := c.http.GetJSON(ctx, newRequest, &resp)
	if err != nil {
		return nil, err
	}

	offers := c.mapOffers(resp.Data, origin, q.Destination, date)

	log.Debug().
		Str("source", SourceName).
		Str("origin", origin).
		Str("dest", q.Destination).
		Str("date", q.Date).
		Int("raw", len(resp.Data)).
		Int("mapped", len(offers)).
		Msg("flight offers fetched")

	c.respectRateLimit(ctx, header)
	return offers, nil
}

// respectRateLimit pauses when the quota is exhausted until X-RateLimit-Reset.
func (c *Client) respectRateLimit(ctx context.Context, header http.Header) {
	wait := rateLimitWait(header, c.now())
	if wait <= 0 {
		return
	}

	log.Info().Str("source", SourceName).Dur("wait", wait).Msg("rate limit exhausted, pausing")

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// rateLimitWait returns 0 unless X-RateLimit-Remaining is 0.
// Reset may be a unix timestamp or a number of seconds.
func rateLimitWait(header http.Header, now time.Time) time.Duration {
	remaining, err := strconv.Atoi(header.Get("X-RateLimit-Remaining"))
	if err != nil || remaining > 0 {
		return 0
	}

	wait := time.Second
	if reset, err := strconv.ParseInt(header.Get("X-RateLimit-Reset"), 10, 64); err == nil {
		if reset > 1_000_000_000 {
			wait = time.Unix(reset, 0).Sub(now)
		} else {
			wait = time.Duration(reset) * time.Second
		}
	}
	return min(max(wait, time.Second), maxRateLimitWait)
}

// =============================================================================
// Mapping
// =============================================================================

func (c *Client) mapOffers(data []json.RawMessage, origin, dest string, date time.Time) []*offer.Offer {
	now := c.now()
	offers := make([]*offer.Offer, 0, len(data))
	for _, raw := range data {
		o, err := mapOffer(raw, origin, dest, date, now)
		if err != nil {
			log.Warn().Err(err).Str("source", SourceName).Str("dest", dest).Msg("failed to map offer, skipping")
			continue
		}
		offers = append(offers, o)
	}
	return offers
}

func mapOffer(raw json.RawMessage, origin, dest string, date, now time.Time) (*offer.Offer, error) {
	var fo flightOffer
	if err := json.Unmarshal(raw, &fo); err != nil {
		return nil, fmt.Errorf("decode flight offer: %w", err)
	}
	if fo.ID == "" {
		return nil, errors.New("flight offer without id")
	}
	if len(fo.Itineraries) == 0 || len(fo.Itineraries[0].Segments) == 0 {
		return nil, fmt.Errorf("flight offer %s: no segments", fo.ID)
	}
	if fo.Price.GrandTotal == nil {
		return nil, fmt.Errorf("flight offer %s: no grandTotal", fo.ID)
	}

	segments := fo.Itineraries[0].Segments
	dep, err := parseTime(segments[0].Departure.At)
	if err != nil {
		return nil, fmt.Errorf("flight offer %s: departure: %w", fo.ID, err)
	}
	arr, err := parseTime(segments[len(segments)-1].Arrival.At)
	if err != nil {
		return nil, fmt.Errorf("flight offer %s: arrival: %w", fo.ID, err)
	}

	price := fo.Price.GrandTotal.InexactFloat64()
	return offer.New(offer.Attributes{
		ID:             fmt.Sprintf("AM-%s-%s-%s-%s", origin, dest, date.Format(time.DateOnly), fo.ID),
		PricePerPerson: price,
		AvgPrice:       price,
		Direct:         len(segments) == 1,
		TotalDuration:  int(arr.Sub(dep).Minutes()),
		Date:           date,
		Location:       dest,
		VisibleFrom:    now,
	})
}

// parseTime accepts Amadeus local timestamps (no zone) and RFC 3339.
func parseTime(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02T15:04:05", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
