package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lojamap/lojamap/internal/store"
)

var cacheExportOutput string

var cacheExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the geocode cache as a JSON dump",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return eris.Wrap(err, "cache export: init store")
		}
		defer st.Close() //nolint:errcheck

		entries, err := st.ExportGeocodes(ctx)
		if err != nil {
			return eris.Wrap(err, "cache export: read entries")
		}

		data, err := store.EncodeDump(entries)
		if err != nil {
			return err
		}

		if cacheExportOutput == "" {
			_, err = os.Stdout.Write(append(data, '\n'))
			return eris.Wrap(err, "cache export: write stdout")
		}
		if err := os.WriteFile(cacheExportOutput, data, 0o644); err != nil {
			return eris.Wrap(err, "cache export: write file")
		}

		zap.L().Info("cache export complete",
			zap.String("output", cacheExportOutput),
			zap.Int("entries", len(entries)),
		)
		return nil
	},
}

func init() {
	cacheExportCmd.Flags().StringVar(&cacheExportOutput, "output", "", "path for the JSON dump (default: stdout)")
	cacheCmd.AddCommand(cacheExportCmd)
}
