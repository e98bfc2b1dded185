// Package pipeline coordinates the fetch, simplify, build, and merge stages
// of one job.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wegman-software/osm2geojson-go/internal/coordset"
	"github.com/wegman-software/osm2geojson-go/internal/feature"
	"github.com/wegman-software/osm2geojson-go/internal/logger"
	"github.com/wegman-software/osm2geojson-go/internal/metrics"
	"github.com/wegman-software/osm2geojson-go/internal/proj"
	"github.com/wegman-software/osm2geojson-go/internal/simplify"
	"github.com/wegman-software/osm2geojson-go/internal/source"
	"github.com/wegman-software/osm2geojson-go/internal/style"
)

// Options configure a pipeline run.
type Options struct {
	Job    *style.Job
	Source source.DataSource
	// Hook optionally rewrites per-batch feature properties.
	Hook *style.Hook
	// Workers bounds concurrent per-filter processing.
	Workers int
	// OutlineFactor smooths buffer outlines before back-projection; 0
	// disables.
	OutlineFactor float64
	// MergedProperties is attached to merged components. The hook can
	// rewrite it under the "merged" kind.
	MergedProperties map[string]interface{}
	// MetricsInterval enables periodic system metrics logging when > 0.
	MetricsInterval time.Duration
}

// Result is the outcome of a full run.
type Result struct {
	Features   feature.Collection
	MergeStats *feature.MergeStats
	Built      int
	Skipped    int
	Duration   time.Duration
}

// Coordinator drives a job through the pipeline.
type Coordinator struct {
	opts Options
	proj *proj.Projector
	log  *zap.Logger
}

// New creates a coordinator. The projector is built once for the job's UTM
// zone and shared by all filters.
func New(opts Options) (*Coordinator, error) {
	if opts.Job == nil {
		return nil, fmt.Errorf("job is required")
	}
	if opts.Source == nil {
		return nil, fmt.Errorf("data source is required")
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}

	zone := opts.Job.UTMZone
	if zone == 0 {
		zone = proj.DefaultUTMZone
	}
	projector, err := proj.New(zone)
	if err != nil {
		return nil, err
	}

	return &Coordinator{
		opts: opts,
		proj: projector,
		log:  logger.Get(),
	}, nil
}

// FetchSets fetches and simplifies the coordinate set of every filter in
// parallel, keyed by filter name.
func (c *Coordinator) FetchSets(ctx context.Context) (map[string]coordset.Set, error) {
	var mu sync.Mutex
	out := make(map[string]coordset.Set, len(c.opts.Job.Filters))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Workers)
	for _, f := range c.opts.Job.Filters {
		f := f
		g.Go(func() error {
			set, err := c.fetchOne(gctx, f)
			if err != nil {
				return err
			}
			mu.Lock()
			out[f.Name()] = set
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Run executes the full pipeline: per-filter fetch, simplify, and build in
// parallel, then a single merge over everything.
func (c *Coordinator) Run(ctx context.Context) (*Result, error) {
	start := time.Now()

	if c.opts.MetricsInterval > 0 {
		mctx, cancel := context.WithCancel(ctx)
		defer cancel()
		go metrics.NewCollector(c.opts.MetricsInterval, c.log).Start(mctx)
	}

	var processed atomic.Int64
	tracker := NewProgressTracker(0, "building features")
	tctx, stopTicker := context.WithCancel(ctx)
	defer stopTicker()
	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-tctx.Done():
				return
			case <-ticker.C:
				p := tracker.Calculate(processed.Load())
				c.log.Info("progress",
					zap.Int64("elements", p.Current),
					zap.String("throughput", FormatThroughput(p.Throughput)),
					zap.Duration("elapsed", p.Elapsed))
			}
		}
	}()

	var mu sync.Mutex
	var all feature.Collection
	var built, skipped int

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Workers)
	for _, f := range c.opts.Job.Filters {
		f := f
		g.Go(func() error {
			set, err := c.fetchOne(gctx, f)
			if err != nil {
				return err
			}
			features, stats, err := c.buildOne(f, set, &processed)
			if err != nil {
				return err
			}
			mu.Lock()
			all = append(all, features...)
			built += stats.Built
			skipped += stats.Skipped
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	mergedProps, err := c.properties("", "merged", c.opts.MergedProperties)
	if err != nil {
		return nil, err
	}
	merged, mergeStats := feature.Merge(all, mergedProps)

	c.log.Info("pipeline complete",
		zap.Int("built", built),
		zap.Int("skipped", skipped),
		zap.Int("passthrough", mergeStats.Passthrough),
		zap.Int("components", mergeStats.Components),
		zap.Duration("duration", time.Since(start).Round(time.Millisecond)))

	return &Result{
		Features:   merged,
		MergeStats: mergeStats,
		Built:      built,
		Skipped:    skipped,
		Duration:   time.Since(start),
	}, nil
}

func (c *Coordinator) fetchOne(ctx context.Context, f style.Filter) (coordset.Set, error) {
	set, err := c.opts.Source.Fetch(ctx, f)
	if err != nil {
		return coordset.Set{}, fmt.Errorf("fetch %s: %w", f.Name(), err)
	}
	if eps := c.opts.Job.EpsilonFor(f); eps > 0 {
		set = simplify.Set(set, eps)
	}
	return set, nil
}

// buildOne converts a filter's coordinate set into features, one build per
// element kind so the hook can differentiate.
func (c *Coordinator) buildOne(f style.Filter, set coordset.Set, processed *atomic.Int64) (feature.Collection, *feature.BuildStats, error) {
	radius := c.opts.Job.BufferFor(f)
	total := &feature.BuildStats{}
	var out feature.Collection

	kinds := []struct {
		kind string
		set  coordset.Set
	}{
		{"node", coordset.Set{Nodes: set.Nodes}},
		{"way", coordset.Set{Ways: set.Ways}},
		{"relation", coordset.Set{Relations: set.Relations}},
	}
	for _, k := range kinds {
		if k.set.Empty() {
			continue
		}
		props, err := c.properties(f.Name(), k.kind, f.Properties)
		if err != nil {
			return nil, nil, err
		}
		builder := feature.NewBuilder(c.proj, feature.BuildOptions{
			BufferRadius:    radius,
			SimplifyOutline: c.opts.OutlineFactor > 0,
			OutlineFactor:   c.opts.OutlineFactor,
			Properties:      props,
		})
		var last int64
		builder.Progress = func(done int) {
			processed.Add(int64(done) - last)
			last = int64(done)
		}
		features, stats, err := builder.Build(k.set)
		if err != nil {
			return nil, nil, fmt.Errorf("build %s %ss: %w", f.Name(), k.kind, err)
		}
		out = append(out, features...)
		total.Built += stats.Built
		total.Skipped += stats.Skipped
	}
	return out, total, nil
}

// properties runs the hook if configured, else returns the defaults.
func (c *Coordinator) properties(key, kind string, defaults map[string]interface{}) (map[string]interface{}, error) {
	if c.opts.Hook == nil {
		return defaults, nil
	}
	props, err := c.opts.Hook.Properties(key, kind, defaults)
	if err != nil {
		return nil, err
	}
	return props, nil
}
