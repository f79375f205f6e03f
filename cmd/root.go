package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lojamap/lojamap/internal/config"
	"github.com/lojamap/lojamap/internal/store"
	"github.com/lojamap/lojamap/pkg/geocode"
	"github.com/lojamap/lojamap/pkg/viacep"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "lojamap",
	Short: "Geocoding pipeline for Brazilian store spreadsheets",
	Long:  "Loads store spreadsheets, resolves addresses through ViaCEP and Nominatim with a persistent cache, and exports enriched results for mapping.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// initStore opens and migrates the configured cache backend.
func initStore(ctx context.Context) (store.Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var (
		st  store.Store
		err error
	)
	switch cfg.Store.Driver {
	case "sqlite":
		st, err = store.NewSQLite(cfg.Store.Path)
	case "postgres":
		st, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// initResolver wires the postal and geocoding clients against the store.
func initResolver(st store.Store) *geocode.Resolver {
	postal := viacep.NewClient(st,
		viacep.WithBaseURL(cfg.ViaCEP.BaseURL),
		viacep.WithMinInterval(time.Duration(cfg.ViaCEP.DelayMs)*time.Millisecond),
	)
	client := geocode.NewClient(
		geocode.WithBaseURL(cfg.Geocoder.BaseURL),
		geocode.WithUserAgent(cfg.Geocoder.UserAgent),
		geocode.WithMinInterval(time.Duration(cfg.Geocoder.DelayMs)*time.Millisecond),
	)
	return geocode.NewResolver(client, postal)
}
