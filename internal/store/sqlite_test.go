package store

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lojamap/lojamap/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	st, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestSQLite_Geocode_SetAndGet(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	entry := model.GeocodeEntry{Lat: -23.5505, Lon: -46.6333, Mode: model.ModeStreetNumber, Query: "https://example/q", TS: 1700000000000}
	require.NoError(t, st.SetGeocode(ctx, "01310-100::1500::SP::SÃO PAULO::AV PAULISTA::", entry))

	got, err := st.GetGeocode(ctx, "01310-100::1500::SP::SÃO PAULO::AV PAULISTA::")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, entry, *got)
}

func TestSQLite_Geocode_Missing(t *testing.T) {
	st := newTestStore(t)

	got, err := st.GetGeocode(context.Background(), "no-such-key")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLite_Geocode_Overwrite(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.SetGeocode(ctx, "k", model.GeocodeEntry{Lat: 1, Lon: 1, TS: 1}))
	require.NoError(t, st.SetGeocode(ctx, "k", model.GeocodeEntry{Lat: 2, Lon: 3, Mode: model.ModeManualMapPick, TS: 2}))

	got, err := st.GetGeocode(ctx, "k")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 2.0, got.Lat)
	assert.Equal(t, model.ModeManualMapPick, got.Mode)
}

func TestSQLite_Geocode_TimestampAssigned(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.SetGeocode(ctx, "k", model.GeocodeEntry{Lat: 1, Lon: 1}))
	got, err := st.GetGeocode(ctx, "k")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Positive(t, got.TS)
}

func TestSQLite_ImportMerge_SkipsNonFinite(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	merged, err := st.ImportMerge(ctx, map[string]model.GeocodeEntry{
		"good": {Lat: -23.5, Lon: -46.6, Mode: model.ModeImport, TS: 5},
		"nan":  {Lat: math.NaN(), Lon: -46.6},
		"inf":  {Lat: -23.5, Lon: math.Inf(1)},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, merged)

	got, err := st.GetGeocode(ctx, "nan")
	require.NoError(t, err)
	assert.Nil(t, got, "non-finite entry must not reach the store")

	got, err = st.GetGeocode(ctx, "good")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, -23.5, got.Lat)
}

func TestSQLite_ImportMerge_LastImportWins(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.SetGeocode(ctx, "k", model.GeocodeEntry{Lat: 1, Lon: 1, TS: 1}))
	merged, err := st.ImportMerge(ctx, map[string]model.GeocodeEntry{
		"k": {Lat: 9, Lon: 9, TS: 9},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, merged)

	got, err := st.GetGeocode(ctx, "k")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 9.0, got.Lat)
}

func TestSQLite_ExportImport_RoundTrip(t *testing.T) {
	src := newTestStore(t)
	ctx := context.Background()

	entries := map[string]model.GeocodeEntry{
		"a": {Lat: -23.5505, Lon: -46.6333, Mode: model.ModeStreetNumber, Query: "q1", TS: 10},
		"b": {Lat: -22.9068, Lon: -43.1729, Mode: model.ModePostalOnly, Query: "q2", TS: 20},
	}
	for k, e := range entries {
		require.NoError(t, src.SetGeocode(ctx, k, e))
	}

	exported, err := src.ExportGeocodes(ctx)
	require.NoError(t, err)

	dst := newTestStore(t)
	merged, err := dst.ImportMerge(ctx, exported)
	require.NoError(t, err)
	assert.Equal(t, len(entries), merged)

	roundTripped, err := dst.ExportGeocodes(ctx)
	require.NoError(t, err)
	assert.Equal(t, entries, roundTripped)
}

func TestSQLite_CEP_SetAndGet(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	entry := model.CEPEntry{CEP: "01310-100", UF: "SP", Localidade: "São Paulo", Bairro: "Bela Vista", Logradouro: "Avenida Paulista"}
	require.NoError(t, st.SetCEP(ctx, "01310100", entry))

	got, err := st.GetCEP(ctx, "01310100")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, entry, *got)

	missing, err := st.GetCEP(ctx, "99999999")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSQLite_Reset_ClearsBothCaches(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.SetGeocode(ctx, "k", model.GeocodeEntry{Lat: 1, Lon: 1, TS: 1}))
	require.NoError(t, st.SetCEP(ctx, "01310100", model.CEPEntry{CEP: "01310-100"}))

	require.NoError(t, st.Reset(ctx))

	geo, err := st.GetGeocode(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, geo)

	cep, err := st.GetCEP(ctx, "01310100")
	require.NoError(t, err)
	assert.Nil(t, cep)
}
