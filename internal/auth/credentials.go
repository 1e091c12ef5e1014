package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoRefreshToken is returned when a refresh is requested but no refresh
// token is held.
var ErrNoRefreshToken = errors.New("no refresh token held")

// Credentials holds the access/refresh token pair and knows how to exchange
// the refresh token for a new pair. It implements api.TokenSource.
//
// Reads are cheap and concurrent; Refresh is single-flighted so that several
// requests hitting a 401 at once produce one exchange, not a stampede.
type Credentials struct {
	baseURL    string
	httpClient *http.Client

	mu        sync.Mutex
	access    string
	refresh   string
	flight    chan struct{} // non-nil while a refresh is in progress
	flightErr error
}

// NewCredentials creates an empty credential store. baseURL is the API base,
// e.g. "http://localhost:8000/api". Refresh calls bypass the wrapped client
// to avoid recursing through its own 401 handling.
func NewCredentials(baseURL string) *Credentials {
	return &Credentials{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Set stores a new token pair.
func (c *Credentials) Set(access, refresh string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.access = access
	c.refresh = refresh
}

// Clear drops both tokens.
func (c *Credentials) Clear() {
	c.Set("", "")
}

// AccessToken returns the current access token, or "" when logged out.
func (c *Credentials) AccessToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.access
}

// Authenticated reports whether an access token is held.
func (c *Credentials) Authenticated() bool {
	return c.AccessToken() != ""
}

// Expired reports whether the held access token is past its exp claim. The
// signature is never verified client-side; only the registered claims are
// inspected. An unparseable or claim-less token counts as expired.
func (c *Credentials) Expired() bool {
	token := c.AccessToken()
	if token == "" {
		return true
	}
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return true
	}
	if claims.ExpiresAt == nil {
		return true
	}
	return time.Now().After(claims.ExpiresAt.Time)
}

// Refresh exchanges the refresh token for a new pair. Concurrent callers
// share a single exchange and its result.
func (c *Credentials) Refresh(ctx context.Context) error {
	c.mu.Lock()
	if c.flight != nil {
		done := c.flight
		c.mu.Unlock()
		select {
		case <-done:
			c.mu.Lock()
			err := c.flightErr
			c.mu.Unlock()
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if c.refresh == "" {
		c.mu.Unlock()
		return ErrNoRefreshToken
	}
	done := make(chan struct{})
	c.flight = done
	refreshToken := c.refresh
	c.mu.Unlock()

	err := c.exchange(ctx, refreshToken)

	c.mu.Lock()
	c.flightErr = err
	c.flight = nil
	if err != nil {
		// A dead refresh token means the session is over.
		c.access = ""
		c.refresh = ""
	}
	c.mu.Unlock()
	close(done)
	return err
}

func (c *Credentials) exchange(ctx context.Context, refreshToken string) error {
	body, _ := json.Marshal(map[string]string{"refresh_token": refreshToken})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/auth/refresh", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("refresh token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("refresh token: status %d", resp.StatusCode)
	}

	var pair TokenPair
	if err := json.NewDecoder(resp.Body).Decode(&pair); err != nil {
		return fmt.Errorf("decode refresh response: %w", err)
	}

	c.mu.Lock()
	c.access = pair.AccessToken
	c.refresh = pair.RefreshToken
	c.mu.Unlock()
	return nil
}

// TokenPair is the backend's token response shape.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}
