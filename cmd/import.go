package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lojamap/lojamap/internal/batch"
)

var importCSVPath string

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Merge a previously exported enriched CSV into the cache",
	Long: `Reads an enriched CSV (the resolve command's output) and merges every
row carrying coordinates into the geocode cache, so later runs answer those
addresses without touching the network.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return eris.Wrap(err, "import: init store")
		}
		defer st.Close() //nolint:errcheck

		f, err := os.Open(importCSVPath)
		if err != nil {
			return eris.Wrap(err, "import: open csv")
		}
		defer f.Close() //nolint:errcheck

		records, merged, err := batch.ImportCSV(ctx, f, st)
		if err != nil {
			return eris.Wrap(err, "import: read csv")
		}

		zap.L().Info("import complete",
			zap.String("csv", importCSVPath),
			zap.Int("rows", len(records)),
			zap.Int("merged", merged),
		)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importCSVPath, "csv", "", "path to enriched CSV file (required)")
	_ = importCmd.MarkFlagRequired("csv")
	rootCmd.AddCommand(importCmd)
}
