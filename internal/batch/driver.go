// Package batch runs the sequential resolution loop over a loaded spreadsheet,
// exchanges the enriched result set as CSV, and applies manual corrections to
// the persistent cache.
package batch

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/lojamap/lojamap/internal/model"
	"github.com/lojamap/lojamap/internal/store"
	"github.com/lojamap/lojamap/pkg/geocode"
)

const (
	// Pauses applied after every record that touched the network, matching
	// the public usage policies of the upstream services.
	defaultNominatimDelay = 1100 * time.Millisecond
	defaultViaCEPDelay    = 250 * time.Millisecond
)

// Resolver is the tiered geocoder the driver consults on cache misses;
// geocode.Resolver satisfies it.
type Resolver interface {
	Resolve(ctx context.Context, f model.Fields) (*geocode.Result, error)
}

// Summary reports how a run ended. Cached+Resolved+Failed equals the number
// of records processed before any cancellation.
type Summary struct {
	Processed int
	Cached    int
	Resolved  int
	Failed    int
}

// Driver resolves records one at a time, strictly in input order. It never
// issues concurrent upstream requests: the per-record pauses are the rate
// contract with the public services.
type Driver struct {
	store    store.Store
	resolver Resolver

	nominatimDelay time.Duration
	viacepDelay    time.Duration

	// sleep is swappable so tests can assert pacing without waiting it out.
	sleep func(time.Duration)
}

// DriverOption configures a Driver.
type DriverOption func(*Driver)

// WithDelays overrides the post-miss pauses.
func WithDelays(nominatim, viacep time.Duration) DriverOption {
	return func(d *Driver) {
		d.nominatimDelay = nominatim
		d.viacepDelay = viacep
	}
}

// WithSleep replaces the pause implementation.
func WithSleep(fn func(time.Duration)) DriverOption {
	return func(d *Driver) { d.sleep = fn }
}

// NewDriver creates a Driver over the given cache store and resolver.
func NewDriver(s store.Store, r Resolver, opts ...DriverOption) *Driver {
	d := &Driver{
		store:          s,
		resolver:       r,
		nominatimDelay: defaultNominatimDelay,
		viacepDelay:    defaultViaCEPDelay,
		sleep:          time.Sleep,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run resolves every record in place and returns the tally. Cache hits adopt
// the stored coordinate without touching the network; misses go through the
// resolver and, on success, are written back to the cache. Failures are
// tagged on the record but never persisted, so the next run retries them.
// Cancellation stops between records; records already processed keep their
// results.
func (d *Driver) Run(ctx context.Context, records []*model.Record) (Summary, error) {
	runID := uuid.NewString()
	log := zap.L().With(zap.String("run_id", runID))
	log.Info("batch: starting", zap.Int("records", len(records)))

	var sum Summary
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			log.Warn("batch: cancelled",
				zap.Int("processed", sum.Processed),
				zap.Int("remaining", len(records)-sum.Processed),
			)
			return sum, eris.Wrap(err, "batch: run cancelled")
		}

		key := rec.Fields().CacheKey()
		entry, err := d.store.GetGeocode(ctx, key)
		if err != nil {
			return sum, eris.Wrap(err, "batch: cache lookup")
		}

		if entry != nil && entry.Finite() {
			rec.Point = &model.Point{Lat: entry.Lat, Lon: entry.Lon}
			rec.Mode = entry.Mode
			if rec.Mode == "" {
				rec.Mode = model.ModeCache
			}
			rec.Query = entry.Query
			sum.Processed++
			sum.Cached++
			continue
		}

		res, err := d.resolver.Resolve(ctx, rec.Fields())
		if err != nil {
			return sum, eris.Wrap(err, "batch: resolve")
		}

		if res != nil {
			rec.Point = &model.Point{Lat: res.Point.Lat, Lon: res.Point.Lon}
			rec.Mode = res.Mode
			rec.Query = res.Query
			if err := d.store.SetGeocode(ctx, key, model.GeocodeEntry{
				Lat:   res.Point.Lat,
				Lon:   res.Point.Lon,
				Mode:  res.Mode,
				Query: res.Query,
				TS:    time.Now().UnixMilli(),
			}); err != nil {
				return sum, eris.Wrap(err, "batch: cache write")
			}
			sum.Resolved++
		} else {
			rec.Point = nil
			rec.Mode = model.ModeFailed
			log.Debug("batch: record failed every tier",
				zap.Int("row", rec.RowID),
				zap.String("key", key),
			)
			sum.Failed++
		}
		sum.Processed++

		// The record hit the network, so pace before the next one.
		d.sleep(d.nominatimDelay)
		d.sleep(d.viacepDelay)
	}

	log.Info("batch: finished",
		zap.Int("processed", sum.Processed),
		zap.Int("cached", sum.Cached),
		zap.Int("resolved", sum.Resolved),
		zap.Int("failed", sum.Failed),
	)
	return sum, nil
}
