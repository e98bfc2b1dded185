package cmd

import (
	"context"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/spf13/cobra"
	"github.com/wegman-software/osm2geojson-go/internal/feature"
	"github.com/wegman-software/osm2geojson-go/internal/logger"
	"github.com/wegman-software/osm2geojson-go/internal/source"
)

var (
	dumpDir    string
	geojsonOut string
)

var geojsonCmd = &cobra.Command{
	Use:   "geojson <job.yaml>",
	Short: "Build merged GeoJSON features from saved coordinate dumps",
	Long: `Read the coordinate dumps a previous fetch saved, buffer them into
polygon features, merge overlapping buffers, and write one GeoJSON
FeatureCollection.`,
	Args: cobra.ExactArgs(1),
	Run:  runGeojson,
}

func init() {
	rootCmd.AddCommand(geojsonCmd)
	addGeometryFlags(geojsonCmd)
	geojsonCmd.Flags().StringVar(&dumpDir, "dump-dir", "", "Directory with coordinate dumps (default: the output directory)")
	geojsonCmd.Flags().StringVar(&geojsonOut, "out", "", "Output GeoJSON path (default: <output-dir>/features.geojson)")
}

func runGeojson(cmd *cobra.Command, args []string) {
	log := logger.Get()

	job, err := loadJob(cmd, args[0])
	if err != nil {
		exitWithError("invalid job file", err)
	}
	hook, err := loadHook(job)
	if err != nil {
		exitWithError("failed to load property hook", err)
	}
	if hook != nil {
		defer hook.Close()
	}

	dir := dumpDir
	if dir == "" {
		dir = cfg.OutputDir
	}
	coord, err := newCoordinator(job, source.NewFile(dir), hook)
	if err != nil {
		exitWithError("failed to create pipeline", err)
	}

	start := time.Now()
	res, err := coord.Run(context.Background())
	if err != nil {
		exitWithError("pipeline failed", err)
	}

	out := geojsonOut
	if out == "" {
		out = filepath.Join(cfg.OutputDir, "features.geojson")
	}
	if err := feature.Save(res.Features, out); err != nil {
		exitWithError("failed to write GeoJSON", err)
	}

	log.Info("GeoJSON written",
		zap.String("path", out),
		zap.Int("features", len(res.Features)),
		zap.Int("components", res.MergeStats.Components),
		zap.Duration("duration", time.Since(start).Round(time.Second)))
}
