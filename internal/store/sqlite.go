package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/lojamap/lojamap/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. This is the
// default backend: a single local file that survives process restarts.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS geocode_cache (
	cache_key TEXT PRIMARY KEY,
	lat       REAL NOT NULL,
	lon       REAL NOT NULL,
	mode      TEXT NOT NULL DEFAULT '',
	query     TEXT NOT NULL DEFAULT '',
	ts        INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS cep_cache (
	cep        TEXT PRIMARY KEY,
	cep_fmt    TEXT NOT NULL DEFAULT '',
	uf         TEXT NOT NULL DEFAULT '',
	localidade TEXT NOT NULL DEFAULT '',
	bairro     TEXT NOT NULL DEFAULT '',
	logradouro TEXT NOT NULL DEFAULT '',
	cached_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetGeocode(ctx context.Context, key string) (*model.GeocodeEntry, error) {
	var e model.GeocodeEntry
	err := s.db.QueryRowContext(ctx,
		`SELECT lat, lon, mode, query, ts FROM geocode_cache WHERE cache_key = ?`,
		key,
	).Scan(&e.Lat, &e.Lon, &e.Mode, &e.Query, &e.TS)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get geocode")
	}
	return &e, nil
}

func (s *SQLiteStore) SetGeocode(ctx context.Context, key string, entry model.GeocodeEntry) error {
	if entry.TS == 0 {
		entry.TS = time.Now().UnixMilli()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO geocode_cache (cache_key, lat, lon, mode, query, ts)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (cache_key) DO UPDATE SET
			lat = excluded.lat,
			lon = excluded.lon,
			mode = excluded.mode,
			query = excluded.query,
			ts = excluded.ts`,
		key, entry.Lat, entry.Lon, string(entry.Mode), entry.Query, entry.TS,
	)
	return eris.Wrap(err, "sqlite: set geocode")
}

func (s *SQLiteStore) ImportMerge(ctx context.Context, entries map[string]model.GeocodeEntry) (int, error) {
	return mergeEntries(ctx, s, entries)
}

func (s *SQLiteStore) ExportGeocodes(ctx context.Context) (map[string]model.GeocodeEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT cache_key, lat, lon, mode, query, ts FROM geocode_cache`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: export geocodes")
	}
	defer rows.Close()

	out := make(map[string]model.GeocodeEntry)
	for rows.Next() {
		var key string
		var e model.GeocodeEntry
		if err := rows.Scan(&key, &e.Lat, &e.Lon, &e.Mode, &e.Query, &e.TS); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan geocode row")
		}
		out[key] = e
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate geocodes")
	}
	return out, nil
}

func (s *SQLiteStore) GetCEP(ctx context.Context, digits string) (*model.CEPEntry, error) {
	var e model.CEPEntry
	err := s.db.QueryRowContext(ctx,
		`SELECT cep_fmt, uf, localidade, bairro, logradouro FROM cep_cache WHERE cep = ?`,
		digits,
	).Scan(&e.CEP, &e.UF, &e.Localidade, &e.Bairro, &e.Logradouro)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get cep")
	}
	return &e, nil
}

func (s *SQLiteStore) SetCEP(ctx context.Context, digits string, entry model.CEPEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cep_cache (cep, cep_fmt, uf, localidade, bairro, logradouro)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (cep) DO UPDATE SET
			cep_fmt = excluded.cep_fmt,
			uf = excluded.uf,
			localidade = excluded.localidade,
			bairro = excluded.bairro,
			logradouro = excluded.logradouro,
			cached_at = datetime('now')`,
		digits, entry.CEP, entry.UF, entry.Localidade, entry.Bairro, entry.Logradouro,
	)
	return eris.Wrap(err, "sqlite: set cep")
}

func (s *SQLiteStore) Reset(ctx context.Context) error {
	for _, stmt := range []string{
		`DELETE FROM geocode_cache`,
		`DELETE FROM cep_cache`,
	} {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return eris.Wrapf(err, "sqlite: reset %s", stmt)
		}
	}
	return nil
}
