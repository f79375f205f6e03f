package main

import (
	"math"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lojamap/lojamap/internal/batch"
	"github.com/lojamap/lojamap/internal/model"
)

var (
	correctFrom correctFields
	correctTo   correctFields
	correctLat  float64
	correctLon  float64
)

type correctFields struct {
	cep, numero, uf, cidade, endereco, bairro string
}

func (f correctFields) model() model.Fields {
	return model.Fields{
		CEP: f.cep, Numero: f.numero, UF: f.uf,
		Cidade: f.cidade, Endereco: f.endereco, Bairro: f.bairro,
	}
}

var correctCmd = &cobra.Command{
	Use:   "correct",
	Short: "Apply a manual correction to the geocode cache",
	Long: `Fixes one address in the cache. The --from-* flags identify the address
as it appears in the spreadsheet; the --to-* flags give the corrected
fields (unset flags keep the original value).

With --lat/--lon the given coordinate is pinned directly (a map pick).
Without them the corrected address is re-resolved through the geocoder.
Either way the fix is stored under both the original and the corrected
cache key, so future runs find it from either form of the address.

Examples:
  lojamap correct --from-cep 01310-100 --from-endereco "Av Paulista" \
      --to-endereco "Avenida Paulista" --from-cidade "São Paulo" --from-uf SP

  lojamap correct --from-cep 01310-100 --from-cidade "São Paulo" --from-uf SP \
      --lat -23.5613 --lon -46.6565`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return eris.Wrap(err, "correct: init store")
		}
		defer st.Close() //nolint:errcheck

		rec := &model.Record{
			CEP:      correctFrom.cep,
			Numero:   correctFrom.numero,
			UF:       correctFrom.uf,
			Cidade:   correctFrom.cidade,
			Endereco: correctFrom.endereco,
			Bairro:   correctFrom.bairro,
		}

		fixed := mergeFields(correctFrom, correctTo).model()

		var correction batch.Correction
		if cmd.Flags().Changed("lat") || cmd.Flags().Changed("lon") {
			if !cmd.Flags().Changed("lat") || !cmd.Flags().Changed("lon") {
				return eris.New("correct: --lat and --lon must be given together")
			}
			correction = batch.Correction{
				Fields: fixed,
				Point:  model.Point{Lat: correctLat, Lon: correctLon},
				Mode:   model.ModeManualMapPick,
			}
		} else {
			res, err := initResolver(st).Resolve(ctx, fixed)
			if err != nil {
				return eris.Wrap(err, "correct: resolve corrected address")
			}
			if res == nil {
				return eris.New("correct: corrected address did not resolve; adjust the fields or pin --lat/--lon")
			}
			correction = batch.Correction{
				Fields: fixed,
				Point:  res.Point,
				Mode:   model.Manual(res.Mode),
				Query:  res.Query,
			}
		}

		if err := batch.ApplyCorrection(ctx, st, rec, correction); err != nil {
			return err
		}

		zap.L().Info("correct: cache updated",
			zap.Float64("lat", correction.Point.Lat),
			zap.Float64("lon", correction.Point.Lon),
			zap.String("mode", string(correction.Mode)),
		)
		return nil
	},
}

// mergeFields overlays the set --to-* values on the originals.
func mergeFields(from, to correctFields) correctFields {
	pick := func(override, orig string) string {
		if override != "" {
			return override
		}
		return orig
	}
	return correctFields{
		cep:      pick(to.cep, from.cep),
		numero:   pick(to.numero, from.numero),
		uf:       pick(to.uf, from.uf),
		cidade:   pick(to.cidade, from.cidade),
		endereco: pick(to.endereco, from.endereco),
		bairro:   pick(to.bairro, from.bairro),
	}
}

func init() {
	f := correctCmd.Flags()
	f.StringVar(&correctFrom.cep, "from-cep", "", "original CEP")
	f.StringVar(&correctFrom.numero, "from-numero", "", "original street number")
	f.StringVar(&correctFrom.uf, "from-uf", "", "original state")
	f.StringVar(&correctFrom.cidade, "from-cidade", "", "original city")
	f.StringVar(&correctFrom.endereco, "from-endereco", "", "original street line")
	f.StringVar(&correctFrom.bairro, "from-bairro", "", "original neighborhood")
	f.StringVar(&correctTo.cep, "to-cep", "", "corrected CEP")
	f.StringVar(&correctTo.numero, "to-numero", "", "corrected street number")
	f.StringVar(&correctTo.uf, "to-uf", "", "corrected state")
	f.StringVar(&correctTo.cidade, "to-cidade", "", "corrected city")
	f.StringVar(&correctTo.endereco, "to-endereco", "", "corrected street line")
	f.StringVar(&correctTo.bairro, "to-bairro", "", "corrected neighborhood")
	f.Float64Var(&correctLat, "lat", math.NaN(), "pin this latitude instead of re-resolving")
	f.Float64Var(&correctLon, "lon", math.NaN(), "pin this longitude instead of re-resolving")
	rootCmd.AddCommand(correctCmd)
}
