package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/lojamap/lojamap/internal/db"
	"github.com/lojamap/lojamap/internal/model"
)

// PostgresStore implements Store using pgxpool, for teams that share one
// geocode cache across machines instead of a per-machine SQLite file.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 4
	pgxCfg.MaxConnLifetime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresFromPool wraps an existing pool. Used by tests.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS geocode_cache (
	cache_key TEXT PRIMARY KEY,
	lat       DOUBLE PRECISION NOT NULL,
	lon       DOUBLE PRECISION NOT NULL,
	mode      TEXT NOT NULL DEFAULT '',
	query     TEXT NOT NULL DEFAULT '',
	ts        BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS cep_cache (
	cep        TEXT PRIMARY KEY,
	cep_fmt    TEXT NOT NULL DEFAULT '',
	uf         TEXT NOT NULL DEFAULT '',
	localidade TEXT NOT NULL DEFAULT '',
	bairro     TEXT NOT NULL DEFAULT '',
	logradouro TEXT NOT NULL DEFAULT '',
	cached_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) GetGeocode(ctx context.Context, key string) (*model.GeocodeEntry, error) {
	var e model.GeocodeEntry
	err := s.pool.QueryRow(ctx,
		`SELECT lat, lon, mode, query, ts FROM geocode_cache WHERE cache_key = $1`,
		key,
	).Scan(&e.Lat, &e.Lon, &e.Mode, &e.Query, &e.TS)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get geocode")
	}
	return &e, nil
}

func (s *PostgresStore) SetGeocode(ctx context.Context, key string, entry model.GeocodeEntry) error {
	if entry.TS == 0 {
		entry.TS = time.Now().UnixMilli()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO geocode_cache (cache_key, lat, lon, mode, query, ts)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (cache_key) DO UPDATE SET
			lat = EXCLUDED.lat,
			lon = EXCLUDED.lon,
			mode = EXCLUDED.mode,
			query = EXCLUDED.query,
			ts = EXCLUDED.ts`,
		key, entry.Lat, entry.Lon, string(entry.Mode), entry.Query, entry.TS,
	)
	return eris.Wrap(err, "postgres: set geocode")
}

func (s *PostgresStore) ImportMerge(ctx context.Context, entries map[string]model.GeocodeEntry) (int, error) {
	return mergeEntries(ctx, s, entries)
}

func (s *PostgresStore) ExportGeocodes(ctx context.Context) (map[string]model.GeocodeEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT cache_key, lat, lon, mode, query, ts FROM geocode_cache`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: export geocodes")
	}
	defer rows.Close()

	out := make(map[string]model.GeocodeEntry)
	for rows.Next() {
		var key string
		var e model.GeocodeEntry
		if err := rows.Scan(&key, &e.Lat, &e.Lon, &e.Mode, &e.Query, &e.TS); err != nil {
			return nil, eris.Wrap(err, "postgres: scan geocode row")
		}
		out[key] = e
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate geocodes")
	}
	return out, nil
}

func (s *PostgresStore) GetCEP(ctx context.Context, digits string) (*model.CEPEntry, error) {
	var e model.CEPEntry
	err := s.pool.QueryRow(ctx,
		`SELECT cep_fmt, uf, localidade, bairro, logradouro FROM cep_cache WHERE cep = $1`,
		digits,
	).Scan(&e.CEP, &e.UF, &e.Localidade, &e.Bairro, &e.Logradouro)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get cep")
	}
	return &e, nil
}

func (s *PostgresStore) SetCEP(ctx context.Context, digits string, entry model.CEPEntry) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO cep_cache (cep, cep_fmt, uf, localidade, bairro, logradouro)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (cep) DO UPDATE SET
			cep_fmt = EXCLUDED.cep_fmt,
			uf = EXCLUDED.uf,
			localidade = EXCLUDED.localidade,
			bairro = EXCLUDED.bairro,
			logradouro = EXCLUDED.logradouro,
			cached_at = now()`,
		digits, entry.CEP, entry.UF, entry.Localidade, entry.Bairro, entry.Logradouro,
	)
	return eris.Wrap(err, "postgres: set cep")
}

func (s *PostgresStore) Reset(ctx context.Context) error {
	for _, stmt := range []string{
		`DELETE FROM geocode_cache`,
		`DELETE FROM cep_cache`,
	} {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return eris.Wrapf(err, "postgres: reset %s", stmt)
		}
	}
	return nil
}
