package amadeus

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/wonny/tripsniper/internal/domain/offer"
	"github.com/wonny/tripsniper/internal/infra/external/transport"
)

// tokenSkew refreshes a token this long before Amadeus expires it.
const tokenSkew = 30 * time.Second

// AuthClient handles the OAuth2 client-credentials flow
type AuthClient struct {
	apiKey    string
	apiSecret string
	baseURL   string

	// Token cache
	mu          sync.RWMutex
	accessToken string
	expiresAt   time.Time

	// Singleflight to prevent stampede
	sf singleflight.Group

	httpClient *http.Client
	now        func() time.Time
}

// NewAuthClient creates a new AuthClient
func NewAuthClient(apiKey, apiSecret, baseURL string, timeout time.Duration) *AuthClient {
	return &AuthClient{
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		now:        time.Now,
	}
}

// TokenResponse represents the Amadeus token API response
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"` // seconds
	State       string `json:"state"`
}

// GetAccessToken returns a valid access token (fetches a new one if expired)
func (c *AuthClient) GetAccessToken(ctx context.Context) (string, error) {
	c.mu.RLock()
	if c.valid(c.now()) {
		token := c.accessToken
		c.mu.RUnlock()
		return token, nil
	}
	c.mu.RUnlock()

	v, err, _ := c.sf.Do("refresh", func() (interface{}, error) {
		return c.fetchNewToken(ctx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (c *AuthClient) valid(now time.Time) bool {
	return c.accessToken != "" && now.Before(c.expiresAt.Add(-tokenSkew))
}

func (c *AuthClient) fetchNewToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Double-check after acquiring lock
	if c.valid(c.now()) {
		return c.accessToken, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", c.apiKey)
	form.Set("client_secret", c.apiSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/security/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", offer.Permanent(fmt.Errorf("create token request: %w", err))
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", offer.Transient(fmt.Errorf("execute token request: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", offer.Transient(fmt.Errorf("read token response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return "", transport.ClassifyStatus(SourceName+" auth", resp.StatusCode, respBody)
	}

	var tokenResp TokenResponse
	if err := json.Unmarshal(respBody, &tokenResp); err != nil {
		return "", offer.Permanent(fmt.Errorf("unmarshal token response: %w", err))
	}
	if tokenResp.AccessToken == "" {
		return "", offer.Permanent(fmt.Errorf("token response without access_token"))
	}

	c.accessToken = tokenResp.AccessToken
	c.expiresAt = c.now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second)
	return c.accessToken, nil
}

// ClearToken drops the cached token so the next call re-authenticates.
func (c *AuthClient) ClearToken() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessToken = ""
	c.expiresAt = time.Time{}
}
