package geocode

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSearchClient(srvURL string) *Client {
	return NewClient(WithBaseURL(srvURL), WithMinInterval(0))
}

func TestSearch_QueryShape(t *testing.T) {
	var got url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query()
		_, _ = io.WriteString(w, `[{"lat":"-23.5613","lon":"-46.6565"}]`)
	}))
	defer srv.Close()

	c := newTestSearchClient(srv.URL)
	cand, err := c.Search(context.Background(), SearchParams{
		Street: "Avenida Paulista, 1500", City: "São Paulo", State: "SP", Country: "Brazil",
	})
	require.NoError(t, err)
	require.NotNil(t, cand)

	assert.Equal(t, "json", got.Get("format"))
	assert.Equal(t, "1", got.Get("limit"))
	assert.Equal(t, "br", got.Get("countrycodes"))
	assert.Equal(t, "0", got.Get("addressdetails"))
	assert.Equal(t, "-74.1,5.5,-34.7,-33.9", got.Get("viewbox"))
	assert.Equal(t, "1", got.Get("bounded"))
	assert.Equal(t, "Avenida Paulista, 1500", got.Get("street"))
	assert.Equal(t, "São Paulo", got.Get("city"))
	assert.Equal(t, "SP", got.Get("state"))
	assert.Equal(t, "Brazil", got.Get("country"))

	// Empty parameters must be omitted, not sent empty.
	_, hasPostal := got["postalcode"]
	assert.False(t, hasPostal)

	assert.Equal(t, -23.5613, cand.Lat)
	assert.Equal(t, -46.6565, cand.Lon)
	assert.Contains(t, cand.Query, srv.URL)
}

func TestSearch_UserAgentSent(t *testing.T) {
	var ua string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua = r.Header.Get("User-Agent")
		_, _ = io.WriteString(w, `[]`)
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithMinInterval(0), WithUserAgent("lojamap-test/0.1"))
	_, err := c.Search(context.Background(), SearchParams{PostalCode: "01310-100"})
	require.NoError(t, err)
	assert.Equal(t, "lojamap-test/0.1", ua)
}

func TestSearch_NoCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `[]`)
	}))
	defer srv.Close()

	cand, err := newTestSearchClient(srv.URL).Search(context.Background(), SearchParams{PostalCode: "01310-100"})
	require.NoError(t, err)
	assert.Nil(t, cand)
}

func TestSearch_UnparsableCoordinates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `[{"lat":"not-a-number","lon":"-46.6"}]`)
	}))
	defer srv.Close()

	cand, err := newTestSearchClient(srv.URL).Search(context.Background(), SearchParams{PostalCode: "01310-100"})
	require.NoError(t, err)
	assert.Nil(t, cand, "non-numeric coordinates are a miss, not a crash")
}

func TestSearch_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	cand, err := newTestSearchClient(srv.URL).Search(context.Background(), SearchParams{PostalCode: "01310-100"})
	assert.Error(t, err)
	assert.Nil(t, cand)
}

func TestSearch_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"unexpected":"object"}`)
	}))
	defer srv.Close()

	cand, err := newTestSearchClient(srv.URL).Search(context.Background(), SearchParams{PostalCode: "01310-100"})
	assert.Error(t, err)
	assert.Nil(t, cand)
}
