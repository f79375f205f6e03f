package loader

import (
	"strings"

	"github.com/lojamap/lojamap/internal/normalize"
)

// columns maps each record field to a header index; -1 means absent.
type columns struct {
	nome        int
	cep         int
	uf          int
	cidade      int
	bairro      int
	endereco    int
	numero      int
	complemento int
	hc          int
}

// Header candidates per field, most specific first. Matching is exact on the
// lowercased, trimmed header.
var (
	nomeNames     = []string{"id", "loja", "unidade", "nome"}
	cepNames      = []string{"cep"}
	ufNames       = []string{"uf", "estado"}
	cidadeNames   = []string{"cidade", "municipio", "município", "localidade", "city"}
	bairroNames   = []string{"bairro"}
	enderecoNames = []string{"logradouro", "endereço", "endereco", "rua", "endereco_limpo", "endereço_limpo"}
	numeroNames   = []string{"numero", "número", "num"}
	compNames     = []string{"complemento", "compl", "comp"}
	hcNames       = []string{"hc", "headcount", "qtd", "qtd_colab", "qtd_colaboradores", "colaboradores"}
)

// inferColumns locates each field in the header row. When no CEP header is
// present, the first sniffRows data rows are scanned for a column whose
// values look like postal codes.
func inferColumns(header []string, data [][]string) columns {
	lower := make([]string, len(header))
	for i, h := range header {
		lower[i] = strings.ToLower(strings.TrimSpace(h))
	}

	find := func(names []string) int {
		for _, n := range names {
			for i, h := range lower {
				if h == n {
					return i
				}
			}
		}
		return -1
	}

	cols := columns{
		nome:        find(nomeNames),
		cep:         find(cepNames),
		uf:          find(ufNames),
		cidade:      find(cidadeNames),
		bairro:      find(bairroNames),
		endereco:    find(enderecoNames),
		numero:      find(numeroNames),
		complemento: find(compNames),
		hc:          find(hcNames),
	}

	if cols.cep < 0 {
		cols.cep = sniffCEPColumn(header, data)
	}
	return cols
}

// sniffCEPColumn returns the first column holding a CEP-shaped value within
// the sample window, or -1.
func sniffCEPColumn(header []string, data [][]string) int {
	limit := len(data)
	if limit > sniffRows {
		limit = sniffRows
	}
	for col := range header {
		for _, row := range data[:limit] {
			if col < len(row) && normalize.IsCEP(row[col]) {
				return col
			}
		}
	}
	return -1
}
