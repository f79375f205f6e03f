package main

import (
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lojamap/lojamap/internal/batch"
	"github.com/lojamap/lojamap/internal/jitter"
	"github.com/lojamap/lojamap/internal/loader"
)

var (
	resolveInput  string
	resolveSheet  string
	resolveOutput string
	resolveLimit  int
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Geocode a store spreadsheet and export the enriched CSV",
	Long: `Loads an XLSX or CSV spreadsheet, resolves every row to coordinates
(cache first, then ViaCEP + Nominatim), declusters coincident points, and
writes the enriched CSV.

Examples:
  lojamap resolve --input lojas.xlsx --output lojas-geo.csv
  lojamap resolve --input lojas.xlsx --sheet Filiais --limit 10`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		records, err := loader.Load(resolveInput, loader.Options{SheetName: resolveSheet})
		if err != nil {
			return eris.Wrap(err, "resolve: load spreadsheet")
		}
		if resolveLimit > 0 && resolveLimit < len(records) {
			records = records[:resolveLimit]
		}
		zap.L().Info("resolve: spreadsheet loaded",
			zap.String("input", resolveInput),
			zap.Int("records", len(records)),
		)

		st, err := initStore(ctx)
		if err != nil {
			return eris.Wrap(err, "resolve: init store")
		}
		defer st.Close() //nolint:errcheck

		driver := batch.NewDriver(st, initResolver(st), batch.WithDelays(
			time.Duration(cfg.Geocoder.DelayMs)*time.Millisecond,
			time.Duration(cfg.ViaCEP.DelayMs)*time.Millisecond,
		))

		sum, err := driver.Run(ctx, records)
		if err != nil {
			return eris.Wrap(err, "resolve: run batch")
		}

		jitter.Apply(records)

		out, err := os.Create(resolveOutput)
		if err != nil {
			return eris.Wrap(err, "resolve: create output file")
		}
		defer out.Close() //nolint:errcheck

		if err := batch.ExportCSV(out, records); err != nil {
			return err
		}

		zap.L().Info("resolve: complete",
			zap.String("output", resolveOutput),
			zap.Int("processed", sum.Processed),
			zap.Int("cached", sum.Cached),
			zap.Int("resolved", sum.Resolved),
			zap.Int("failed", sum.Failed),
		)
		return nil
	},
}

func init() {
	resolveCmd.Flags().StringVar(&resolveInput, "input", "", "path to XLSX or CSV spreadsheet (required)")
	resolveCmd.Flags().StringVar(&resolveSheet, "sheet", "", "XLSX sheet name (default: first sheet)")
	resolveCmd.Flags().StringVar(&resolveOutput, "output", "lojas-geo.csv", "path for the enriched CSV")
	resolveCmd.Flags().IntVar(&resolveLimit, "limit", 0, "max rows to process (0 = all)")
	_ = resolveCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(resolveCmd)
}
