package main

import (
	"fmt"
	"math"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/lojamap/lojamap/internal/batch"
	"github.com/lojamap/lojamap/internal/model"
)

var (
	nearCSV string
	nearLat float64
	nearLon float64
	nearTop int
)

var nearCmd = &cobra.Command{
	Use:   "near",
	Short: "Rank stores in an enriched CSV by distance from a point",
	Long: `Reads an enriched CSV and prints the stores closest to the given
coordinate. Distances use true coordinates over the great circle, never
the declustered display positions.

Example:
  lojamap near --csv lojas-geo.csv --lat -23.5505 --lon -46.6333 --top 10`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		origin := model.Point{Lat: nearLat, Lon: nearLon}
		if !origin.Finite() {
			return eris.New("near: --lat and --lon must be finite coordinates")
		}

		f, err := os.Open(nearCSV)
		if err != nil {
			return eris.Wrap(err, "near: open csv")
		}
		defer f.Close() //nolint:errcheck

		records, _, err := batch.ImportCSV(cmd.Context(), f, nil)
		if err != nil {
			return eris.Wrap(err, "near: read csv")
		}

		type ranked struct {
			rec *model.Record
			km  float64
		}
		var rows []ranked
		for _, rec := range records {
			if !rec.Resolved() {
				continue
			}
			rows = append(rows, ranked{rec: rec, km: model.HaversineKm(origin, *rec.Point)})
		}
		if len(rows) == 0 {
			return eris.New("near: csv has no resolved rows")
		}

		sort.Slice(rows, func(i, j int) bool { return rows[i].km < rows[j].km })
		if nearTop > 0 && nearTop < len(rows) {
			rows = rows[:nearTop]
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "DIST\tNOME\tCEP\tCIDADE\tUF\tMODE")
		for _, r := range rows {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				formatKm(r.km), r.rec.Nome, r.rec.CEP, r.rec.Cidade, r.rec.UF, r.rec.Mode)
		}
		return w.Flush()
	},
}

// formatKm renders a distance with precision shrinking as it grows.
func formatKm(km float64) string {
	switch {
	case km < 10:
		return fmt.Sprintf("%.2f km", km)
	case km < 100:
		return fmt.Sprintf("%.1f km", km)
	default:
		return fmt.Sprintf("%d km", int(math.Round(km)))
	}
}

func init() {
	nearCmd.Flags().StringVar(&nearCSV, "csv", "", "path to enriched CSV file (required)")
	nearCmd.Flags().Float64Var(&nearLat, "lat", math.NaN(), "origin latitude (required)")
	nearCmd.Flags().Float64Var(&nearLon, "lon", math.NaN(), "origin longitude (required)")
	nearCmd.Flags().IntVar(&nearTop, "top", 10, "how many stores to list (0 = all)")
	_ = nearCmd.MarkFlagRequired("csv")
	_ = nearCmd.MarkFlagRequired("lat")
	_ = nearCmd.MarkFlagRequired("lon")
	rootCmd.AddCommand(nearCmd)
}
