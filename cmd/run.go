package cmd

import (
	"context"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/spf13/cobra"
	"github.com/wegman-software/osm2geojson-go/internal/feature"
	"github.com/wegman-software/osm2geojson-go/internal/logger"
)

var runOut string

var runCmd = &cobra.Command{
	Use:   "run <job.yaml>",
	Short: "Run the full pipeline: fetch, simplify, buffer, merge, write",
	Long: `Execute a job end to end: fetch every filter's coordinates, simplify
them, buffer them into polygon features, merge overlapping buffers, and
write one GeoJSON FeatureCollection.`,
	Args: cobra.ExactArgs(1),
	Run:  runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
	addSourceFlags(runCmd)
	addGeometryFlags(runCmd)
	runCmd.Flags().StringVar(&runOut, "out", "", "Output GeoJSON path (default: <output-dir>/features.geojson)")
}

func runRun(cmd *cobra.Command, args []string) {
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
	src, cleanup, err := newSource(job)
	if err != nil {
		exitWithError("failed to create data source", err)
	}
	defer cleanup()

	coord, err := newCoordinator(job, src, hook)
	if err != nil {
		exitWithError("failed to create pipeline", err)
	}

	log.Info("starting pipeline",
		zap.Int("filters", len(job.Filters)),
		zap.Float64("epsilon", job.Epsilon),
		zap.Float64("buffer", job.Buffer),
		zap.Int("workers", cfg.Workers))
	start := time.Now()

	res, err := coord.Run(context.Background())
	if err != nil {
		exitWithError("pipeline failed", err)
	}

	out := runOut
	if out == "" {
		out = filepath.Join(cfg.OutputDir, "features.geojson")
	}
	if err := feature.Save(res.Features, out); err != nil {
		exitWithError("failed to write GeoJSON", err)
	}

	log.Info("run complete",
		zap.String("path", out),
		zap.Int("built", res.Built),
		zap.Int("skipped", res.Skipped),
		zap.Int("features", len(res.Features)),
		zap.Duration("duration", time.Since(start).Round(time.Second)))
}
