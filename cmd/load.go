package cmd

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spf13/cobra"
	"github.com/wegman-software/osm2geojson-go/internal/feature"
	"github.com/wegman-software/osm2geojson-go/internal/loader"
	"github.com/wegman-software/osm2geojson-go/internal/logger"
)

var (
	createIndexes bool
	dropExisting  bool
)

var loadCmd = &cobra.Command{
	Use:   "load <features.geojson>",
	Short: "Load a GeoJSON feature collection into PostgreSQL/PostGIS",
	Long: `Bulk load a GeoJSON FeatureCollection into a PostGIS table.

The loader:
  1. Creates the target table if needed
  2. Streams features through COPY as EWKB
  3. Optionally creates spatial and property indexes`,
	Args: cobra.ExactArgs(1),
	Run:  runLoadCmd,
}

func init() {
	rootCmd.AddCommand(loadCmd)

	loadCmd.Flags().BoolVar(&createIndexes, "create-indexes", true, "Create indexes after loading")
	loadCmd.Flags().BoolVar(&dropExisting, "drop-existing", false, "Drop the existing table before loading")
}

func runLoadCmd(cmd *cobra.Command, args []string) {
	log := logger.Get()

	features, err := feature.Read(args[0])
	if err != nil {
		exitWithError("failed to read GeoJSON", err)
	}

	log.Info("starting PostgreSQL load",
		zap.String("input", args[0]),
		zap.Int("features", len(features)),
		zap.String("database", cfg.DBName),
		zap.String("host", cfg.DBHost),
		zap.String("table", cfg.DBSchema+"."+cfg.DBTable))
	start := time.Now()

	ldr, err := loader.NewLoader(cfg, dropExisting, createIndexes)
	if err != nil {
		exitWithError("failed to create loader", err)
	}
	defer ldr.Close()

	stats, err := ldr.Run(context.Background(), features)
	if err != nil {
		exitWithError("load failed", err)
	}

	elapsed := time.Since(start)
	log.Info("load complete",
		zap.Duration("duration", elapsed.Round(time.Second)),
		zap.Int64("rows", stats.RowsLoaded),
		zap.Float64("throughput_rows_s", float64(stats.RowsLoaded)/elapsed.Seconds()))
}
