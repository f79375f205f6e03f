// Package geocode resolves Brazilian addresses to coordinates through
// Nominatim structured search, trying progressively looser query tiers.
package geocode

import (
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL   = "https://nominatim.openstreetmap.org/search"
	defaultUserAgent = "lojamap/1.0"

	// Bounding box covering Brazil; every search is constrained to it.
	brazilViewbox = "-74.1,5.5,-34.7,-33.9"
)

// SearchParams is one structured query. Empty values are omitted from the
// request entirely, never sent as empty parameters.
type SearchParams struct {
	Street     string
	PostalCode string
	City       string
	State      string
	Country    string
}

// Candidate is the best match for a query, with the exact request URL that
// produced it (persisted alongside cache entries for audit).
type Candidate struct {
	Lat   float64
	Lon   float64
	Query string
}

// Client issues structured Nominatim searches with enforced pacing.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// Option configures the client.
type Option func(*Client)

// WithBaseURL overrides the Nominatim endpoint (tests, self-hosted mirrors).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithUserAgent sets the User-Agent header. Nominatim's usage policy
// requires an identifying agent.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithMinInterval sets the minimum spacing between searches.
func WithMinInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.limiter = rate.NewLimiter(rate.Every(d), 1)
		} else {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
		}
	}
}

// NewClient creates a Nominatim client. Default pacing is one request per
// 1100 ms, just under the public instance's one-per-second limit.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		userAgent:  defaultUserAgent,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Every(1100*time.Millisecond), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// nominatimPlace mirrors one element of the search response; Nominatim
// serializes coordinates as strings.
type nominatimPlace struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// Search runs one structured query and returns the single best candidate,
// or (nil, nil) when Nominatim has no usable match.
func (c *Client) Search(ctx context.Context, p SearchParams) (*Candidate, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "geocode: rate limit")
	}

	qs := url.Values{}
	qs.Set("format", "json")
	qs.Set("limit", "1")
	qs.Set("countrycodes", "br")
	qs.Set("addressdetails", "0")
	qs.Set("viewbox", brazilViewbox)
	qs.Set("bounded", "1")
	for key, val := range map[string]string{
		"street":     p.Street,
		"postalcode": p.PostalCode,
		"city":       p.City,
		"state":      p.State,
		"country":    p.Country,
	} {
		if val != "" {
			qs.Set(key, val)
		}
	}

	reqURL := c.baseURL + "?" + qs.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: build request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("geocode: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: read body")
	}

	var places []nominatimPlace
	if err := json.Unmarshal(body, &places); err != nil {
		return nil, eris.Wrap(err, "geocode: parse response")
	}
	if len(places) == 0 {
		return nil, nil
	}

	lat, latErr := strconv.ParseFloat(places[0].Lat, 64)
	lon, lonErr := strconv.ParseFloat(places[0].Lon, 64)
	if latErr != nil || lonErr != nil ||
		math.IsNaN(lat) || math.IsInf(lat, 0) || math.IsNaN(lon) || math.IsInf(lon, 0) {
		return nil, nil
	}

	return &Candidate{Lat: lat, Lon: lon, Query: reqURL}, nil
}
