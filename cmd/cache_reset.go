package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var cacheResetYes bool

var cacheResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear the geocode and CEP caches",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if !cacheResetYes {
			return eris.New("cache reset is irreversible; re-run with --yes to confirm")
		}

		st, err := initStore(ctx)
		if err != nil {
			return eris.Wrap(err, "cache reset: init store")
		}
		defer st.Close() //nolint:errcheck

		if err := st.Reset(ctx); err != nil {
			return eris.Wrap(err, "cache reset: clear caches")
		}

		zap.L().Info("cache reset complete")
		return nil
	},
}

func init() {
	cacheResetCmd.Flags().BoolVar(&cacheResetYes, "yes", false, "confirm clearing both caches")
	cacheCmd.AddCommand(cacheResetCmd)
}
