package cmd

import (
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/spf13/cobra"
	"github.com/wegman-software/osm2geojson-go/internal/feature"
	"github.com/wegman-software/osm2geojson-go/internal/logger"
	"github.com/wegman-software/osm2geojson-go/internal/parquet"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export <features.geojson>",
	Short: "Export a GeoJSON feature collection to Parquet",
	Long: `Convert a GeoJSON FeatureCollection into a Parquet file with EWKB
geometry and JSON properties, for analytics engines that read Parquet
directly.`,
	Args: cobra.ExactArgs(1),
	Run:  runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVar(&exportOut, "out", "", "Output Parquet path (default: <output-dir>/features.parquet)")
	exportCmd.Flags().IntVar(&cfg.BatchSize, "batch-size", cfg.BatchSize, "Rows per Parquet row group")
}

func runExport(cmd *cobra.Command, args []string) {
	log := logger.Get()

	features, err := feature.Read(args[0])
	if err != nil {
		exitWithError("failed to read GeoJSON", err)
	}

	out := exportOut
	if out == "" {
		out = filepath.Join(cfg.OutputDir, "features.parquet")
	}

	start := time.Now()
	if err := parquet.Export(features, out, cfg.BatchSize); err != nil {
		exitWithError("export failed", err)
	}

	log.Info("export complete",
		zap.String("path", out),
		zap.Int("features", len(features)),
		zap.Duration("duration", time.Since(start).Round(time.Second)))
}
