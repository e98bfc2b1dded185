package cmd

import (
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/spf13/cobra"
	"github.com/wegman-software/osm2geojson-go/internal/config"
	"github.com/wegman-software/osm2geojson-go/internal/logger"
	"github.com/wegman-software/osm2geojson-go/internal/overpass"
	"github.com/wegman-software/osm2geojson-go/internal/pipeline"
	"github.com/wegman-software/osm2geojson-go/internal/source"
	"github.com/wegman-software/osm2geojson-go/internal/style"
)

var (
	cfg             = config.DefaultConfig()
	verbose         bool
	logFile         string
	metricsInterval time.Duration
	bboxFlag        string
)

var rootCmd = &cobra.Command{
	Use:   "osm2geojson-go",
	Short: "Fetch, simplify, and buffer OSM elements into GeoJSON",
	Long: `osm2geojson-go extracts tagged OSM elements, simplifies their
coordinates, and renders them as buffered, merged GeoJSON features.

Features:
  - Overpass API or local PBF extracts as data source
  - Douglas-Peucker polyline simplification
  - Metric buffering with overlap merging
  - PostGIS loading and Parquet export`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg.Verbose = verbose
		cfg.LogFile = logFile
		cfg.MetricsInterval = metricsInterval

		if logFile != "" {
			logger.InitWithFile(verbose, logFile)
		} else {
			logger.Init(verbose)
		}
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&cfg.OutputDir, "output-dir", "o", cfg.OutputDir, "Directory for output files")
	rootCmd.PersistentFlags().IntVarP(&cfg.Workers, "workers", "j", cfg.Workers, "Number of parallel workers")

	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Path to log file for persistent logging (JSON format)")
	rootCmd.PersistentFlags().DurationVar(&metricsInterval, "metrics-interval", 30*time.Second, "Interval for system metrics logging (e.g., 10s, 1m)")

	rootCmd.PersistentFlags().StringVar(&cfg.DBHost, "db-host", cfg.DBHost, "PostgreSQL host")
	rootCmd.PersistentFlags().IntVar(&cfg.DBPort, "db-port", cfg.DBPort, "PostgreSQL port")
	rootCmd.PersistentFlags().StringVarP(&cfg.DBName, "db-name", "d", cfg.DBName, "PostgreSQL database name")
	rootCmd.PersistentFlags().StringVarP(&cfg.DBUser, "db-user", "U", cfg.DBUser, "PostgreSQL user")
	rootCmd.PersistentFlags().StringVarP(&cfg.DBPassword, "db-password", "W", cfg.DBPassword, "PostgreSQL password")
	rootCmd.PersistentFlags().StringVar(&cfg.DBSchema, "db-schema", cfg.DBSchema, "PostgreSQL schema")
	rootCmd.PersistentFlags().StringVar(&cfg.DBTable, "db-table", cfg.DBTable, "PostgreSQL table for features")
}

// addSourceFlags attaches the flags of commands that fetch from upstream.
func addSourceFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&cfg.Endpoint, "endpoint", "", "Overpass interpreter URL (default: the public endpoint)")
	cmd.Flags().StringVar(&cfg.InputFile, "input", "", "Local PBF extract; overrides the Overpass source")
	cmd.Flags().StringVar(&cfg.CacheDir, "cache-dir", "", "Directory for the on-disk fetch cache")
	cmd.Flags().StringVar(&bboxFlag, "bbox", "", "Bounding box filter: minlon,minlat,maxlon,maxlat")
}

// addGeometryFlags attaches the geometry override flags.
func addGeometryFlags(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&cfg.Epsilon, "epsilon", cfg.Epsilon, "Simplification tolerance in degrees (overrides the job file)")
	cmd.Flags().Float64Var(&cfg.Buffer, "buffer", cfg.Buffer, "Buffer radius in meters (overrides the job file)")
	cmd.Flags().IntVar(&cfg.UTMZone, "utm-zone", cfg.UTMZone, "UTM zone for metric buffering (overrides the job file)")
	cmd.Flags().Float64Var(&cfg.OutlineFactor, "outline-factor", cfg.OutlineFactor, "Buffer outline simplification in meters; 0 disables")
}

// loadJob reads the job file and applies the command-line overrides.
func loadJob(cmd *cobra.Command, path string) (*style.Job, error) {
	cfg.JobFile = path
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	job, err := style.LoadJob(path)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("epsilon") {
		job.Epsilon = cfg.Epsilon
	}
	if cmd.Flags().Changed("buffer") {
		job.Buffer = cfg.Buffer
	}
	if cmd.Flags().Changed("utm-zone") {
		job.UTMZone = cfg.UTMZone
	}
	return job, nil
}

// loadHook opens the job's Lua property hook, if any. The caller closes it.
func loadHook(job *style.Job) (*style.Hook, error) {
	if job.Script == "" {
		return nil, nil
	}
	return style.NewHook(job.Script)
}

// newSource builds the data source chain for a job: PBF extract or Overpass,
// behind a cache.
func newSource(job *style.Job) (source.DataSource, func() error, error) {
	bbox := job.BBox
	if bboxFlag != "" {
		parsed, err := config.ParseBBox(bboxFlag)
		if err != nil {
			return nil, nil, err
		}
		cfg.BBox = parsed
		bbox = parsed.OverpassString()
	}

	var upstream source.DataSource
	cleanup := func() error { return nil }
	if cfg.InputFile != "" {
		pbf := source.NewPBF(cfg.InputFile, cfg.OutputDir, cfg.Workers, logger.Get())
		upstream = pbf
		cleanup = pbf.Close
	} else {
		upstream = source.NewOverpass(overpass.New(cfg.Endpoint), job.Area, bbox, logger.Get())
	}

	cached, err := source.NewCached(upstream, cfg.Workers, len(job.Filters), cfg.CacheDir)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return cached, cleanup, nil
}

// newCoordinator wires a pipeline for the job over the given source.
func newCoordinator(job *style.Job, src source.DataSource, hook *style.Hook) (*pipeline.Coordinator, error) {
	return pipeline.New(pipeline.Options{
		Job:           job,
		Source:        src,
		Hook:          hook,
		Workers:       cfg.Workers,
		OutlineFactor: cfg.OutlineFactor,
		MergedProperties: map[string]interface{}{
			"merged": true,
		},
		MetricsInterval: cfg.MetricsInterval,
	})
}

func exitWithError(msg string, err error) {
	log := logger.Get()
	if err != nil {
		log.Error(msg, zap.Error(err))
	} else {
		log.Error(msg)
	}
	os.Exit(1)
}
