// Package store persists the geocode and postal-lookup caches. Both caches
// are process-wide durable state shared across batches and sessions; writes
// are last-write-wins per key.
package store

import (
	"context"

	"github.com/lojamap/lojamap/internal/model"
)

// Store is the persistence interface the resolver, corrector, and cache
// commands depend on.
type Store interface {
	// Geocode cache, keyed by model.Fields.CacheKey.
	GetGeocode(ctx context.Context, key string) (*model.GeocodeEntry, error)
	SetGeocode(ctx context.Context, key string, entry model.GeocodeEntry) error

	// ImportMerge merges external entries, keeping only those with finite
	// coordinates. Entries sharing a key with an existing one are
	// overwritten. Returns the count actually merged; skipped entries never
	// abort the merge.
	ImportMerge(ctx context.Context, entries map[string]model.GeocodeEntry) (int, error)
	ExportGeocodes(ctx context.Context) (map[string]model.GeocodeEntry, error)

	// Postal-lookup cache, keyed by the 8-digit CEP.
	GetCEP(ctx context.Context, digits string) (*model.CEPEntry, error)
	SetCEP(ctx context.Context, digits string, entry model.CEPEntry) error

	// Reset clears both caches unconditionally. No undo.
	Reset(ctx context.Context) error

	// Lifecycle.
	Migrate(ctx context.Context) error
	Close() error
}

// mergeEntries implements the shared ImportMerge policy over any backend.
func mergeEntries(ctx context.Context, s Store, entries map[string]model.GeocodeEntry) (int, error) {
	merged := 0
	for key, entry := range entries {
		if !entry.Finite() {
			continue
		}
		if err := s.SetGeocode(ctx, key, entry); err != nil {
			return merged, err
		}
		merged++
	}
	return merged, nil
}
