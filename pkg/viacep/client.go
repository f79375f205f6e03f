// Package viacep resolves Brazilian postal codes to locality metadata via
// the ViaCEP API, backed by the persistent CEP cache.
package viacep

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/lojamap/lojamap/internal/model"
	"github.com/lojamap/lojamap/internal/normalize"
)

const defaultBaseURL = "https://viacep.com.br"

// Cache is the CEP-cache surface the client needs; store.Store satisfies it.
type Cache interface {
	GetCEP(ctx context.Context, digits string) (*model.CEPEntry, error)
	SetCEP(ctx context.Context, digits string, entry model.CEPEntry) error
}

// Client looks up CEPs, consulting the cache before the network.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	cache      Cache
}

// Option configures the client.
type Option func(*Client)

// WithBaseURL overrides the ViaCEP endpoint (tests, mirrors).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithMinInterval sets the minimum spacing between network lookups.
func WithMinInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.limiter = rate.NewLimiter(rate.Every(d), 1)
		} else {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
		}
	}
}

// NewClient creates a ViaCEP client. The cache may be nil, in which case
// every lookup goes to the network.
func NewClient(cache Cache, opts ...Option) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		limiter:    rate.NewLimiter(rate.Every(250*time.Millisecond), 1),
		cache:      cache,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// viaCEPResponse mirrors the ViaCEP payload. The erro flag appears as a
// bool or as the string "true" depending on API version.
type viaCEPResponse struct {
	Erro       json.RawMessage `json:"erro"`
	Cep        string          `json:"cep"`
	UF         string          `json:"uf"`
	Localidade string          `json:"localidade"`
	Bairro     string          `json:"bairro"`
	Logradouro string          `json:"logradouro"`
}

func (r *viaCEPResponse) notFound() bool {
	s := string(r.Erro)
	return s != "" && s != "false" && s != `"false"`
}

// Lookup resolves a CEP to locality metadata. Returns (nil, nil) when the
// input does not normalize to 8 digits or the API reports the CEP unknown;
// unknown CEPs are not cached so future lookups retry.
func (c *Client) Lookup(ctx context.Context, cep string) (*model.CEPEntry, error) {
	digits := normalize.CEPDigits(cep)
	if digits == "" {
		return nil, nil
	}

	if c.cache != nil {
		cached, err := c.cache.GetCEP(ctx, digits)
		if err != nil {
			zap.L().Warn("viacep: cache read failed", zap.String("cep", digits), zap.Error(err))
		} else if cached != nil {
			return cached, nil
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "viacep: rate limit")
	}

	reqURL := c.baseURL + "/ws/" + digits + "/json/"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "viacep: build request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "viacep: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("viacep: status %d for %s", resp.StatusCode, digits)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "viacep: read body")
	}

	var payload viaCEPResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, eris.Wrap(err, "viacep: parse response")
	}
	if payload.notFound() {
		return nil, nil
	}

	entry := model.CEPEntry{
		CEP:        normalize.CEP(payload.Cep),
		UF:         payload.UF,
		Localidade: payload.Localidade,
		Bairro:     payload.Bairro,
		Logradouro: payload.Logradouro,
	}
	if entry.CEP == "" {
		entry.CEP = normalize.CEP(cep)
	}

	if c.cache != nil {
		if err := c.cache.SetCEP(ctx, digits, entry); err != nil {
			zap.L().Warn("viacep: cache write failed", zap.String("cep", digits), zap.Error(err))
		}
	}
	return &entry, nil
}
