package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lojamap/lojamap/internal/store"
)

var cacheImportInput string

var cacheImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Merge a JSON cache dump into the geocode cache",
	Long: `Merges a dump produced by "cache export" (or a compatible export from
another machine) into the local cache. Entries without finite coordinates
are skipped; entries sharing a key with an existing one overwrite it.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		data, err := os.ReadFile(cacheImportInput)
		if err != nil {
			return eris.Wrap(err, "cache import: read file")
		}

		entries, err := store.DecodeDump(data)
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return eris.Wrap(err, "cache import: init store")
		}
		defer st.Close() //nolint:errcheck

		merged, err := st.ImportMerge(ctx, entries)
		if err != nil {
			return eris.Wrap(err, "cache import: merge entries")
		}

		zap.L().Info("cache import complete",
			zap.String("input", cacheImportInput),
			zap.Int("decoded", len(entries)),
			zap.Int("merged", merged),
			zap.Int("skipped", len(entries)-merged),
		)
		return nil
	},
}

func init() {
	cacheImportCmd.Flags().StringVar(&cacheImportInput, "input", "", "path to the JSON dump (required)")
	_ = cacheImportCmd.MarkFlagRequired("input")
	cacheCmd.AddCommand(cacheImportCmd)
}
