// Package transport is the HTTP plumbing shared by the offer sources:
// client-side pacing, bounded retries and status classification.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/wonny/tripsniper/internal/domain/offer"
)

// maxErrorBody bounds the response body copied into error messages.
const maxErrorBody = 512

// Config transport 설정
type Config struct {
	Name              string        // source name used in logs and errors
	Timeout           time.Duration // per request
	MaxAttempts       int           // total attempts, including the first
	RequestsPerSecond float64       // <= 0 disables pacing
	InitialBackoff    time.Duration

	// Classify maps a non-2xx response to an error. Defaults to ClassifyStatus.
	Classify func(status int, body []byte) error
}

// Client sends paced, retried JSON requests.
type Client struct {
	name           string
	httpClient     *http.Client
	limiter        *rate.Limiter
	maxAttempts    int
	initialBackoff time.Duration
	classify       func(status int, body []byte) error
}

// New creates a Client
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = time.Second
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	c := &Client{
		name:           cfg.Name,
		httpClient:     &http.Client{Timeout: cfg.Timeout},
		limiter:        rate.NewLimiter(limit, 1),
		maxAttempts:    cfg.MaxAttempts,
		initialBackoff: cfg.InitialBackoff,
		classify:       cfg.Classify,
	}
	if c.classify == nil {
		c.classify = func(status int, body []byte) error {
			return ClassifyStatus(cfg.Name, status, body)
		}
	}
	return c
}

// RequestFunc builds a fresh request for every attempt.
type RequestFunc func(ctx context.Context) (*http.Request, error)

// GetJSON executes the request with retries and decodes the body into out.
// The headers of the successful response are returned.
func (c *Client) GetJSON(ctx context.Context, newRequest RequestFunc, out any) (http.Header, error) {
	var header http.Header
	attempt := 0

	op := func() error {
		attempt++
		h, body, err := c.do(ctx, newRequest)
		if err != nil {
			if !offer.IsTransient(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		if err := json.Unmarshal(body, out); err != nil {
			return backoff.Permanent(offer.Permanent(fmt.Errorf("%s: decode response: %w", c.name, err)))
		}
		header = h
		return nil
	}

	notify := func(err error, wait time.Duration) {
		log.Warn().
			Err(err).
			Str("source", c.name).
			Int("attempt", attempt).
			Dur("retry_in", wait).
			Msg("source request failed, retrying")
	}

	if err := backoff.RetryNotify(op, c.policy(ctx), notify); err != nil {
		if ctx.Err() != nil && !offer.IsTransient(err) && !offer.IsPermanent(err) {
			return nil, offer.Transient(fmt.Errorf("%s: %w", c.name, err))
		}
		return nil, err
	}
	return header, nil
}

func (c *Client) policy(ctx context.Context) backoff.BackOffContext {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.initialBackoff
	b.Multiplier = 2
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.maxAttempts-1)), ctx)
}

func (c *Client) do(ctx context.Context, newRequest RequestFunc) (http.Header, []byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, nil, offer.Transient(fmt.Errorf("%s: rate limiter: %w", c.name, err))
	}

	req, err := newRequest(ctx)
	if err != nil {
		return nil, nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, offer.Transient(fmt.Errorf("%s: execute request: %w", c.name, err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, offer.Transient(fmt.Errorf("%s: read response: %w", c.name, err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, nil, c.classify(resp.StatusCode, body)
	}
	return resp.Header, body, nil
}

// ClassifyStatus: 429 and 5xx are transient, every other status is permanent.
func ClassifyStatus(name string, status int, body []byte) error {
	err := StatusError(name, status, body)
	if status == http.StatusTooManyRequests || status >= 500 {
		return offer.Transient(err)
	}
	return offer.Permanent(err)
}

// StatusError formats an upstream error response.
func StatusError(name string, status int, body []byte) error {
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return fmt.Errorf("%s API error: status=%d body=%s", name, status, string(body))
}
