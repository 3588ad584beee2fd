// Package auth checks dashboard sessions against the auth gateway. Token
// issuance and CSRF stay with the gateway; this client only asks "who is
// calling" and ends sessions.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "http://localhost:3000"

// User identifies an authenticated dashboard user.
type User struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Session is the result of a session check.
type Session struct {
	Authenticated bool `json:"isAuthenticated"`
	User          User `json:"user"`
}

// Client verifies and terminates sessions.
type Client interface {
	Check(ctx context.Context, cookie string) (Session, error)
	Login(ctx context.Context, email, password string) (Session, error)
	Logout(ctx context.Context, cookie string) error
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the gateway address.
func WithBaseURL(u string) Option {
	return func(c *httpClient) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) { c.http = hc }
}

type httpClient struct {
	baseURL string
	http    *http.Client
}

// NewClient creates an auth gateway client.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Check validates the caller's session cookie against GET /api/auth/me.
// An unauthenticated session is not an error.
func (c *httpClient) Check(ctx context.Context, cookie string) (Session, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/auth/me", nil)
	if err != nil {
		return Session{}, eris.Wrap(err, "auth: create request")
	}
	if cookie != "" {
		req.Header.Set("Cookie", cookie)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Session{}, eris.Wrap(err, "auth: check session")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Session{}, eris.Wrap(err, "auth: read response")
	}
	if resp.StatusCode != http.StatusOK {
		return Session{}, eris.Errorf("auth: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var s Session
	if err := json.Unmarshal(body, &s); err != nil {
		return Session{}, eris.Wrap(err, "auth: unmarshal session")
	}
	return s, nil
}

// Login exchanges credentials for a session via POST /api/login.
func (c *httpClient) Login(ctx context.Context, email, password string) (Session, error) {
	payload, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return Session{}, eris.Wrap(err, "auth: marshal credentials")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/login", bytes.NewReader(payload))
	if err != nil {
		return Session{}, eris.Wrap(err, "auth: create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Session{}, eris.Wrap(err, "auth: login")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return Session{}, eris.Errorf("auth: login rejected with status %d: %s", resp.StatusCode, string(body))
	}
	return Session{Authenticated: true, User: User{Email: email}}, nil
}

// Logout ends the session via POST /api/logout. A failed logout is
// reported but the gateway treats the cookie as expired regardless.
func (c *httpClient) Logout(ctx context.Context, cookie string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/logout", nil)
	if err != nil {
		return eris.Wrap(err, "auth: create request")
	}
	if cookie != "" {
		req.Header.Set("Cookie", cookie)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "auth: logout")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return eris.Errorf("auth: logout failed with status %d", resp.StatusCode)
	}
	return nil
}
