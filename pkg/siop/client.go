// Package siop talks to the SIOP dashboard backend, the service that caches
// budget amendment data pulled from SIOP via S3.
package siop

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/innovatis-mc/emendas-cli/internal/model"
	"github.com/innovatis-mc/emendas-cli/internal/normalize"
	"github.com/innovatis-mc/emendas-cli/internal/resilience"
)

const (
	defaultBaseURL  = "http://localhost:8000"
	defaultPageSize = 1000
)

// Client is the backend API surface the dashboard consumes.
type Client interface {
	Health(ctx context.Context) error
	Summary(ctx context.Context) (model.Summary, error)
	Opportunities(ctx context.Context, p Page) (*OpportunitiesResponse, error)
	Search(ctx context.Context, q SearchParams) (*OpportunitiesResponse, error)
	RefreshS3(ctx context.Context, force, wait bool) (*RefreshResponse, error)
}

// Page selects a window of the bulk dataset.
type Page struct {
	Limit    int
	Offset   int
	Ministry string
}

// SearchParams carries the term plus the filter dimensions the backend
// applies before searching. Slices marshal as comma-joined query values.
type SearchParams struct {
	Term        string
	Years       []int
	RP          []string
	Modalidades []string
	UFs         []string
	Partidos    []string
	Limit       int
	Offset      int
}

// OpportunitiesResponse is the envelope of /api/opportunities and
// /api/search. Records stay schemaless here; normalization happens in the
// Source adapter.
type OpportunitiesResponse struct {
	Opportunities []normalize.Record `json:"opportunities"`
	Total         int                `json:"total"`
	Limit         int                `json:"limit"`
	Offset        int                `json:"offset"`
	LastUpdate    string             `json:"last_update"`
}

// RefreshResponse reports the outcome of a POST /api/s3/refresh.
type RefreshResponse struct {
	Message     string `json:"message"`
	Success     bool   `json:"success"`
	Synchronous bool   `json:"synchronous"`
	Timestamp   string `json:"timestamp"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default backend address.
func WithBaseURL(u string) Option {
	return func(c *httpClient) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) { c.http = hc }
}

// WithRateLimit caps outgoing requests per second.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *httpClient) { c.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

// WithRetry overrides the retry policy.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *httpClient) { c.retry = cfg }
}

// WithBreaker installs a circuit breaker in front of every call.
func WithBreaker(b *resilience.Breaker) Option {
	return func(c *httpClient) { c.breaker = b }
}

type httpClient struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	retry   resilience.RetryConfig
	breaker *resilience.Breaker
}

// NewClient creates a backend API client.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 120 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(10, 5),
		retry:   resilience.DefaultRetryConfig(),
		breaker: resilience.NewBreaker(resilience.BreakerConfig{}),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Health(ctx context.Context) error {
	var out struct {
		Status string `json:"status"`
	}
	return c.get(ctx, "/health", nil, &out)
}

func (c *httpClient) Summary(ctx context.Context) (model.Summary, error) {
	var out model.Summary
	if err := c.get(ctx, "/api/summary", nil, &out); err != nil {
		return model.Summary{}, err
	}
	return out, nil
}

func (c *httpClient) Opportunities(ctx context.Context, p Page) (*OpportunitiesResponse, error) {
	if p.Limit <= 0 {
		p.Limit = defaultPageSize
	}
	q := url.Values{}
	q.Set("limit", strconv.Itoa(p.Limit))
	q.Set("offset", strconv.Itoa(p.Offset))
	if p.Ministry != "" {
		q.Set("ministry", p.Ministry)
	}

	var out OpportunitiesResponse
	if err := c.get(ctx, "/api/opportunities", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *httpClient) Search(ctx context.Context, sp SearchParams) (*OpportunitiesResponse, error) {
	q := url.Values{}
	q.Set("q", sp.Term)
	if len(sp.Years) > 0 {
		q.Set("years", joinInts(sp.Years))
	}
	if len(sp.RP) > 0 {
		q.Set("rp", strings.Join(sp.RP, ","))
	}
	if len(sp.Modalidades) > 0 {
		q.Set("modalidades", strings.Join(sp.Modalidades, ","))
	}
	if len(sp.UFs) > 0 {
		q.Set("ufs", strings.Join(sp.UFs, ","))
	}
	if len(sp.Partidos) > 0 {
		q.Set("partidos", strings.Join(sp.Partidos, ","))
	}
	if sp.Limit > 0 {
		q.Set("limit", strconv.Itoa(sp.Limit))
	}
	if sp.Offset > 0 {
		q.Set("offset", strconv.Itoa(sp.Offset))
	}

	var out OpportunitiesResponse
	if err := c.get(ctx, "/api/search", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *httpClient) RefreshS3(ctx context.Context, force, wait bool) (*RefreshResponse, error) {
	q := url.Values{}
	q.Set("force", strconv.FormatBool(force))
	q.Set("wait", strconv.FormatBool(wait))

	var out RefreshResponse
	if err := c.do(ctx, http.MethodPost, "/api/s3/refresh", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *httpClient) get(ctx context.Context, path string, q url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, q, out)
}

// do issues one request through the rate limiter, circuit breaker, and
// retry policy, decoding the JSON body into out.
func (c *httpClient) do(ctx context.Context, method, path string, q url.Values, out any) error {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	return resilience.Do(ctx, c.retry, func(ctx context.Context) error {
		return c.breaker.Execute(ctx, func(ctx context.Context) error {
			if err := c.limiter.Wait(ctx); err != nil {
				return eris.Wrap(err, "siop: rate limit wait")
			}

			req, err := http.NewRequestWithContext(ctx, method, u, nil)
			if err != nil {
				return eris.Wrapf(err, "siop: create request %s", path)
			}
			req.Header.Set("Accept", "application/json")

			resp, err := c.http.Do(req)
			if err != nil {
				return eris.Wrapf(err, "siop: %s %s", method, path)
			}
			defer resp.Body.Close()

			body, err := io.ReadAll(resp.Body)
			if err != nil {
				return eris.Wrapf(err, "siop: read response %s", path)
			}
			if resp.StatusCode != http.StatusOK {
				return eris.Wrapf(resilience.FromStatus(resp.StatusCode, truncateBody(body)), "siop: %s", path)
			}

			if err := json.Unmarshal(body, out); err != nil {
				return eris.Wrapf(err, "siop: unmarshal response %s", path)
			}
			return nil
		})
	})
}

func joinInts(vs []int) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

func truncateBody(b []byte) string {
	const max = 512
	if len(b) > max {
		return string(b[:max]) + "..."
	}
	return string(b)
}
