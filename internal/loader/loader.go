// Package loader reads store spreadsheets (XLSX or CSV) into working
// records, locating columns by Portuguese header names and falling back to
// content sniffing for the postal code.
package loader

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/lojamap/lojamap/internal/model"
	"github.com/lojamap/lojamap/internal/normalize"
)

// sniffRows is how many data rows the CEP content sniff inspects when no
// header matches.
const sniffRows = 20

// Options configures loading.
type Options struct {
	SheetIndex int    // XLSX only, default 0
	SheetName  string // XLSX only, overrides SheetIndex when set
}

// Load reads the file at path, dispatching on extension. Records are
// numbered 1..n in sheet order.
func Load(path string, opts Options) ([]*model.Record, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return LoadXLSX(path, opts)
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrap(err, "loader: open csv")
		}
		defer f.Close() //nolint:errcheck
		return LoadCSV(f)
	default:
		return nil, eris.Errorf("loader: unsupported file type %q", filepath.Ext(path))
	}
}

// LoadXLSX reads one sheet of an XLSX workbook.
func LoadXLSX(path string, opts Options) ([]*model.Record, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "loader: open xlsx")
	}

	sheet, err := pickSheet(f, opts)
	if err != nil {
		return nil, err
	}

	rows := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		rows = append(rows, cells)
	}
	return fromRows(rows)
}

// LoadCSV reads comma-separated rows with the same header treatment as XLSX.
func LoadCSV(r io.Reader) ([]*model.Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "loader: read csv")
	}
	return fromRows(rows)
}

func pickSheet(f *xlsx.File, opts Options) (*xlsx.Sheet, error) {
	if opts.SheetName != "" {
		sheet, ok := f.Sheet[opts.SheetName]
		if !ok {
			return nil, eris.Errorf("loader: sheet %q not found", opts.SheetName)
		}
		return sheet, nil
	}
	if opts.SheetIndex >= len(f.Sheets) {
		return nil, eris.Errorf("loader: sheet index %d out of range (file has %d sheets)", opts.SheetIndex, len(f.Sheets))
	}
	return f.Sheets[opts.SheetIndex], nil
}

func fromRows(rows [][]string) ([]*model.Record, error) {
	if len(rows) == 0 {
		return nil, eris.New("loader: file has no rows")
	}

	cols := inferColumns(rows[0], rows[1:])
	zap.L().Debug("loader: columns mapped",
		zap.Int("rows", len(rows)-1),
		zap.Bool("cep_found", cols.cep >= 0),
		zap.Bool("endereco_found", cols.endereco >= 0),
	)

	cell := func(row []string, idx int) string {
		if idx < 0 || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	records := make([]*model.Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if blankRow(row) {
			continue
		}
		records = append(records, &model.Record{
			RowID:       len(records) + 1,
			Nome:        cell(row, cols.nome),
			CEP:         cell(row, cols.cep),
			UF:          cell(row, cols.uf),
			Cidade:      cell(row, cols.cidade),
			Bairro:      cell(row, cols.bairro),
			Endereco:    cell(row, cols.endereco),
			Numero:      cell(row, cols.numero),
			Complemento: cell(row, cols.complemento),
			HC:          normalize.DecimalBR(cell(row, cols.hc)),
		})
	}
	if len(records) == 0 {
		return nil, eris.New("loader: file has no data rows")
	}
	return records, nil
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
