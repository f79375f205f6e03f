package geocode

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/lojamap/lojamap/internal/model"
	"github.com/lojamap/lojamap/internal/normalize"
)

// PostalLookup fills missing locality fields from a postal code;
// viacep.Client satisfies it.
type PostalLookup interface {
	Lookup(ctx context.Context, cep string) (*model.CEPEntry, error)
}

// Result is a successful resolution: the matched point, which tier matched,
// and the query that produced it.
type Result struct {
	Point model.Point
	Mode  model.Mode
	Query string
}

// Resolver tries up to four progressively looser query tiers, short-
// circuiting on the first match:
//
//  1. street+number, city, state (no postal code)
//  2. street+number+neighborhood, city, state (no postal code)
//  3. postal code, city, state (approximate)
//  4. postal code alone (approximate)
type Resolver struct {
	client *Client
	postal PostalLookup
}

// NewResolver creates a Resolver. postal may be nil to disable enrichment.
func NewResolver(client *Client, postal PostalLookup) *Resolver {
	return &Resolver{client: client, postal: postal}
}

// Resolve geocodes the given fields. Missing city/state/neighborhood/street
// are enriched from the postal lookup, but record-provided values always
// win. Returns (nil, nil) when every tier fails.
func (r *Resolver) Resolve(ctx context.Context, f model.Fields) (*Result, error) {
	cep := normalize.CEP(f.CEP)
	numero := normalize.StreetNumber(f.Numero)

	var via *model.CEPEntry
	if r.postal != nil && cep != "" {
		v, err := r.postal.Lookup(ctx, cep)
		if err != nil {
			zap.L().Debug("geocode: postal enrichment failed",
				zap.String("cep", cep),
				zap.Error(err),
			)
		} else {
			via = v
		}
	}
	if via == nil {
		via = &model.CEPEntry{}
	}

	city := firstNonEmpty(f.Cidade, via.Localidade)
	state := firstNonEmpty(f.UF, via.UF)
	bairro := firstNonEmpty(f.Bairro, via.Bairro)
	logradouro := firstNonEmpty(f.Endereco, via.Logradouro)
	street := buildStreet(logradouro, numero)
	const country = "Brazil"

	tiers := []struct {
		mode   model.Mode
		ready  bool
		params SearchParams
	}{
		{
			mode:   model.ModeStreetNumber,
			ready:  street != "" && city != "" && state != "",
			params: SearchParams{Street: street, City: city, State: state, Country: country},
		},
		{
			mode:   model.ModeStreetNumberBairro,
			ready:  street != "" && bairro != "" && city != "" && state != "",
			params: SearchParams{Street: street + " - " + bairro, City: city, State: state, Country: country},
		},
		{
			mode:   model.ModePostalCityState,
			ready:  cep != "" && city != "" && state != "",
			params: SearchParams{PostalCode: cep, City: city, State: state, Country: country},
		},
		{
			mode:   model.ModePostalOnly,
			ready:  cep != "",
			params: SearchParams{PostalCode: cep, Country: country},
		},
	}

	for _, tier := range tiers {
		if !tier.ready {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "geocode: resolve cancelled")
		}
		cand, err := r.client.Search(ctx, tier.params)
		if err != nil {
			zap.L().Debug("geocode: tier missed, trying next",
				zap.String("tier", string(tier.mode)),
				zap.Error(err),
			)
			continue
		}
		if cand == nil {
			continue
		}
		return &Result{
			Point: model.Point{Lat: cand.Lat, Lon: cand.Lon},
			Mode:  tier.mode,
			Query: cand.Query,
		}, nil
	}
	return nil, nil
}

// buildStreet joins the sanitized street line with the cleaned number, or
// returns whichever half is present.
func buildStreet(logradouro, numero string) string {
	street := normalize.StreetLine(logradouro)
	switch {
	case street != "" && numero != "":
		return street + ", " + numero
	case street != "":
		return street
	default:
		return numero
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
