package batch

import (
	"context"
	"encoding/csv"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/lojamap/lojamap/internal/model"
	"github.com/lojamap/lojamap/internal/normalize"
	"github.com/lojamap/lojamap/internal/store"
)

// csvHeader is the enriched exchange layout. The underscore-prefixed columns
// carry resolution metadata and round-trip through re-import.
var csvHeader = []string{
	"nome", "cep", "uf", "cidade", "bairro", "endereco",
	"numero", "complemento", "hc", "lat", "lon", "_mode", "_q",
}

// ExportCSV writes every record, resolved or not, in input order. Unresolved
// records get empty coordinate cells so the failure rows stay visible in the
// output.
func ExportCSV(w io.Writer, records []*model.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return eris.Wrap(err, "batch: write csv header")
	}

	for _, rec := range records {
		lat, lon := "", ""
		if rec.Resolved() {
			lat = strconv.FormatFloat(rec.Point.Lat, 'f', -1, 64)
			lon = strconv.FormatFloat(rec.Point.Lon, 'f', -1, 64)
		}
		row := []string{
			rec.Nome, rec.CEP, rec.UF, rec.Cidade, rec.Bairro, rec.Endereco,
			rec.Numero, rec.Complemento,
			strconv.FormatFloat(rec.HC, 'f', -1, 64),
			lat, lon,
			string(rec.Mode), rec.Query,
		}
		if err := cw.Write(row); err != nil {
			return eris.Wrap(err, "batch: write csv row")
		}
	}

	cw.Flush()
	return eris.Wrap(cw.Error(), "batch: flush csv")
}

// ImportCSV reads a previously exported file back into a working batch.
// Columns are located by header name, so reordered or extra columns are
// tolerated. Rows with finite coordinates come back resolved; when s is
// non-nil those coordinates are also merged into the cache so a re-imported
// batch never re-queries addresses it already answered. Returns the records
// and the number of cache entries merged.
func ImportCSV(ctx context.Context, r io.Reader, s store.Store) ([]*model.Record, int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, 0, eris.Wrap(err, "batch: read csv header")
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	cell := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var records []*model.Record
	pending := make(map[string]model.GeocodeEntry)

	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, eris.Wrap(err, "batch: read csv row")
		}

		rec := &model.Record{
			RowID:       len(records) + 1,
			Nome:        cell(row, "nome"),
			CEP:         cell(row, "cep"),
			UF:          cell(row, "uf"),
			Cidade:      cell(row, "cidade"),
			Bairro:      cell(row, "bairro"),
			Endereco:    cell(row, "endereco"),
			Numero:      cell(row, "numero"),
			Complemento: cell(row, "complemento"),
			HC:          parseHC(cell(row, "hc")),
		}

		lat, latErr := strconv.ParseFloat(cell(row, "lat"), 64)
		lon, lonErr := strconv.ParseFloat(cell(row, "lon"), 64)
		if latErr == nil && lonErr == nil {
			p := model.Point{Lat: lat, Lon: lon}
			if p.Finite() {
				rec.Point = &p
				rec.Mode = model.Mode(cell(row, "_mode"))
				if rec.Mode == "" || rec.Mode == model.ModeFailed {
					rec.Mode = model.ModeImport
				}
				rec.Query = cell(row, "_q")
				pending[rec.Fields().CacheKey()] = model.GeocodeEntry{
					Lat:   lat,
					Lon:   lon,
					Mode:  rec.Mode,
					Query: rec.Query,
					TS:    time.Now().UnixMilli(),
				}
			}
		}
		records = append(records, rec)
	}

	merged := 0
	if s != nil && len(pending) > 0 {
		merged, err = s.ImportMerge(ctx, pending)
		if err != nil {
			return nil, 0, eris.Wrap(err, "batch: merge imported coordinates")
		}
		zap.L().Info("batch: csv import merged into cache",
			zap.Int("rows", len(records)),
			zap.Int("merged", merged),
		)
	}
	return records, merged, nil
}

// parseHC accepts the dot-decimal form the exporter writes and the pt-BR
// comma form spreadsheets produce.
func parseHC(raw string) float64 {
	if raw == "" {
		return 0
	}
	if n, err := strconv.ParseFloat(raw, 64); err == nil && !math.IsNaN(n) && !math.IsInf(n, 0) {
		return n
	}
	return normalize.DecimalBR(raw)
}
