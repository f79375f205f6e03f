package batch

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lojamap/lojamap/internal/model"
)

func TestExportImportCSV_RoundTrip(t *testing.T) {
	resolved := rec("Avenida Paulista")
	resolved.Nome = "Loja Centro"
	resolved.HC = 12.5
	resolved.Point = &model.Point{Lat: -23.5613, Lon: -46.6565}
	resolved.Mode = model.ModeStreetNumber
	resolved.Query = "q-1"

	failed := rec("Rua Inexistente")
	failed.Nome = "Loja Perdida"
	failed.Mode = model.ModeFailed

	var buf bytes.Buffer
	require.NoError(t, ExportCSV(&buf, []*model.Record{resolved, failed}))

	st := newMemStore()
	got, merged, err := ImportCSV(context.Background(), &buf, st)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "Loja Centro", got[0].Nome)
	assert.Equal(t, 12.5, got[0].HC)
	require.NotNil(t, got[0].Point)
	assert.Equal(t, *resolved.Point, *got[0].Point)
	assert.Equal(t, model.ModeStreetNumber, got[0].Mode)
	assert.Equal(t, "q-1", got[0].Query)
	assert.Equal(t, 1, got[0].RowID)

	// The failed row comes back unresolved, not as a zero coordinate.
	assert.Nil(t, got[1].Point)
	assert.Equal(t, 2, got[1].RowID)

	// Only the resolved row reaches the cache.
	assert.Equal(t, 1, merged)
	entry, _ := st.GetGeocode(context.Background(), resolved.Fields().CacheKey())
	require.NotNil(t, entry)
	assert.Equal(t, model.ModeStreetNumber, entry.Mode)
}

func TestImportCSV_ToleratesReorderedAndExtraColumns(t *testing.T) {
	in := strings.Join([]string{
		"lat,lon,extra,CIDADE,uf,endereco,numero,cep,nome",
		`-23.55,-46.63,ignored,São Paulo,SP,Avenida Paulista,100,01310-100,Loja A`,
	}, "\n")

	got, merged, err := ImportCSV(context.Background(), strings.NewReader(in), newMemStore())
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, "São Paulo", got[0].Cidade)
	assert.Equal(t, "Avenida Paulista", got[0].Endereco)
	require.NotNil(t, got[0].Point)
	assert.Equal(t, model.Point{Lat: -23.55, Lon: -46.63}, *got[0].Point)
	assert.Equal(t, 1, merged)
}

func TestImportCSV_MissingModeDefaultsToImport(t *testing.T) {
	in := "nome,lat,lon\nLoja B,-22.9,-43.2\n"
	got, _, err := ImportCSV(context.Background(), strings.NewReader(in), nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, model.ModeImport, got[0].Mode)
}

func TestImportCSV_FailedModeNotResurrected(t *testing.T) {
	// A row tagged as failed but carrying coordinates (hand-edited file)
	// is treated as imported data, not replayed as a failure.
	in := "nome,lat,lon,_mode\nLoja C,-22.9,-43.2,falha\n"
	got, _, err := ImportCSV(context.Background(), strings.NewReader(in), nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, model.ModeImport, got[0].Mode)
}

func TestImportCSV_PtBRHeadcount(t *testing.T) {
	in := "nome,hc\nLoja D,\"1.234,5\"\n"
	got, _, err := ImportCSV(context.Background(), strings.NewReader(in), nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 1234.5, got[0].HC)
}

func TestImportCSV_NilStoreSkipsMerge(t *testing.T) {
	in := "nome,lat,lon\nLoja E,-22.9,-43.2\n"
	got, merged, err := ImportCSV(context.Background(), strings.NewReader(in), nil)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Zero(t, merged)
}

func TestImportCSV_BadHeaderFails(t *testing.T) {
	_, _, err := ImportCSV(context.Background(), strings.NewReader(""), nil)
	assert.Error(t, err)
}
