// Package model defines the batch record, canonical address fields, cache
// entries, and the resolution-mode variants shared across the pipeline.
package model

import (
	"math"
	"strings"

	"github.com/lojamap/lojamap/internal/normalize"
)

// cacheKeyMaxLen bounds derived cache keys so pathological street lines
// cannot grow the store's key space without limit.
const cacheKeyMaxLen = 420

// Point is a true geographic coordinate.
type Point struct {
	Lat float64
	Lon float64
}

// Finite reports whether both components are usable numbers.
func (p Point) Finite() bool {
	return !math.IsNaN(p.Lat) && !math.IsInf(p.Lat, 0) &&
		!math.IsNaN(p.Lon) && !math.IsInf(p.Lon, 0)
}

// HaversineKm returns the great-circle distance between two points in
// kilometers. Distances are always computed over true coordinates, never
// the jittered visual ones.
func HaversineKm(a, b Point) float64 {
	const earthRadiusKm = 6371
	toRad := func(d float64) float64 { return d * math.Pi / 180 }
	dLat := toRad(b.Lat - a.Lat)
	dLon := toRad(b.Lon - a.Lon)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(a.Lat))*math.Cos(toRad(b.Lat))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// Fields holds the six address dimensions that determine a cache key and
// drive the resolver tiers.
type Fields struct {
	CEP      string
	Numero   string
	UF       string
	Cidade   string
	Endereco string
	Bairro   string
}

// CacheKey derives the deterministic cache key for the fields. Two records
// identical in these six dimensions always share a key regardless of name,
// complement, or headcount.
func (f Fields) CacheKey() string {
	parts := []string{
		normalize.CEP(f.CEP),
		normalize.StreetNumber(f.Numero),
		strings.ToUpper(strings.TrimSpace(f.UF)),
		strings.ToUpper(strings.TrimSpace(f.Cidade)),
		strings.ToUpper(strings.TrimSpace(f.Endereco)),
		strings.ToUpper(strings.TrimSpace(f.Bairro)),
	}
	key := strings.Join(parts, "::")
	if len(key) > cacheKeyMaxLen {
		key = key[:cacheKeyMaxLen]
	}
	return key
}

// Record is one row of a working batch. RowID is assigned once per load and
// never reused within a session.
type Record struct {
	RowID       int
	Nome        string
	CEP         string
	UF          string
	Cidade      string
	Bairro      string
	Endereco    string
	Numero      string
	Complemento string
	HC          float64

	// Resolution output. Point is nil until the record resolves; Visual is
	// the display-only jittered coordinate, nil until declustering runs.
	Point  *Point
	Visual *Point
	Mode   Mode
	Query  string
}

// Fields extracts the cache-key dimensions from the record's current state.
func (r *Record) Fields() Fields {
	return Fields{
		CEP:      r.CEP,
		Numero:   r.Numero,
		UF:       r.UF,
		Cidade:   r.Cidade,
		Endereco: r.Endereco,
		Bairro:   r.Bairro,
	}
}

// Resolved reports whether the record carries a usable true coordinate.
func (r *Record) Resolved() bool {
	return r.Point != nil && r.Point.Finite()
}

// GeocodeEntry is one persisted geocode cache value, keyed by Fields.CacheKey.
type GeocodeEntry struct {
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	Mode  Mode    `json:"mode,omitempty"`
	Query string  `json:"q,omitempty"`
	TS    int64   `json:"ts,omitempty"`
}

// Finite reports whether the entry's coordinates are usable.
func (e GeocodeEntry) Finite() bool {
	return Point{Lat: e.Lat, Lon: e.Lon}.Finite()
}

// CEPEntry is one persisted postal-lookup value, keyed by the 8-digit CEP.
type CEPEntry struct {
	CEP        string `json:"cep"`
	UF         string `json:"uf"`
	Localidade string `json:"localidade"`
	Bairro     string `json:"bairro"`
	Logradouro string `json:"logradouro"`
}
