package feature

import (
	"fmt"

	"github.com/ctessum/geom"

	"github.com/wegman-software/osm2geojson-go/internal/coordset"
	"github.com/wegman-software/osm2geojson-go/internal/proj"
)

// BuildOptions control how coordinate sets become features.
type BuildOptions struct {
	// BufferRadius is the buffer distance in meters. Zero emits bare
	// points and lines instead of buffer polygons.
	BufferRadius float64
	// SimplifyOutline smooths buffer outlines with OutlineFactor before
	// back-projection.
	SimplifyOutline bool
	// OutlineFactor is the outline simplification tolerance in meters.
	OutlineFactor float64
	// Properties is attached to every emitted feature.
	Properties map[string]interface{}
}

// BuildStats reports what happened to a batch.
type BuildStats struct {
	Built   int
	Skipped int
}

// Builder converts coordinate sets into features using a shared projector.
type Builder struct {
	proj *proj.Projector
	opts BuildOptions

	// Progress, if set, is called with a monotonically increasing count of
	// elements processed. Reporting only; it must not fail.
	Progress func(done int)
}

// NewBuilder creates a builder. The projector is constructed once by the
// caller and reused across batches.
func NewBuilder(p *proj.Projector, opts BuildOptions) *Builder {
	return &Builder{proj: p, opts: opts}
}

// Build converts the set into a feature collection. Nodes become buffered
// disks (or bare points), ways and relations become buffered polygons (or
// bare lines). Degenerate polylines are skipped, never fatal; the stats
// report how many.
func (b *Builder) Build(s coordset.Set) (Collection, *BuildStats, error) {
	stats := &BuildStats{}
	total := 0
	out := make(Collection, 0, len(s.Nodes)+len(s.Ways)+len(s.Relations))

	step := func() {
		total++
		if b.Progress != nil {
			b.Progress(total)
		}
	}

	for _, node := range s.Nodes {
		f, ok, err := b.buildPoint(node)
		if err != nil {
			return nil, nil, err
		}
		if ok {
			out = append(out, f)
			stats.Built++
		} else {
			stats.Skipped++
		}
		step()
	}

	for _, group := range [][]coordset.Polyline{s.Ways, s.Relations} {
		for _, line := range group {
			f, ok, err := b.buildLine(line)
			if err != nil {
				return nil, nil, err
			}
			if ok {
				out = append(out, f)
				stats.Built++
			} else {
				stats.Skipped++
			}
			step()
		}
	}

	return out, stats, nil
}

func (b *Builder) buildPoint(c coordset.Coordinate) (Feature, bool, error) {
	pt, err := b.proj.ToMetricPoint(c.Lon(), c.Lat())
	if err != nil {
		// Unprojectable coordinate: tolerate and skip.
		return Feature{}, false, nil
	}

	if b.opts.BufferRadius <= 0 {
		back, err := b.proj.ToGeographicPoint(pt.X, pt.Y)
		if err != nil {
			return Feature{}, false, fmt.Errorf("failed to back-project point: %w", err)
		}
		return Feature{Geometry: back, Properties: b.opts.Properties}, true, nil
	}

	disk := Disk(pt, b.opts.BufferRadius)
	return b.finishPolygon(disk)
}

func (b *Builder) buildLine(line coordset.Polyline) (Feature, bool, error) {
	if len(line) == 0 {
		return Feature{}, false, nil
	}

	pts := make([]geom.Point, 0, len(line))
	for _, c := range line {
		pt, err := b.proj.ToMetricPoint(c.Lon(), c.Lat())
		if err != nil {
			return Feature{}, false, nil
		}
		pts = append(pts, pt)
	}

	if b.opts.BufferRadius <= 0 {
		if len(pts) < 2 {
			return Feature{}, false, nil
		}
		back := make(geom.LineString, 0, len(pts))
		for _, pt := range pts {
			g, err := b.proj.ToGeographicPoint(pt.X, pt.Y)
			if err != nil {
				return Feature{}, false, fmt.Errorf("failed to back-project line: %w", err)
			}
			back = append(back, g)
		}
		return Feature{Geometry: back, Properties: b.opts.Properties}, true, nil
	}

	if distinctPoints(pts) < 3 {
		return Feature{}, false, nil
	}

	buf := LineBuffer(pts, b.opts.BufferRadius)
	return b.finishPolygon(buf)
}

// finishPolygon applies optional outline simplification, projects the
// polygon back to geographic space, and wraps it as a feature. An empty
// buffer result is skipped.
func (b *Builder) finishPolygon(p geom.Polygon) (Feature, bool, error) {
	if len(p) == 0 {
		return Feature{}, false, nil
	}
	if b.opts.SimplifyOutline && b.opts.OutlineFactor > 0 {
		p = p.Simplify(b.opts.OutlineFactor).(geom.Polygon)
	}
	back, err := b.proj.ToGeographic(p)
	if err != nil {
		return Feature{}, false, fmt.Errorf("failed to back-project polygon: %w", err)
	}
	return Feature{Geometry: back, Properties: b.opts.Properties}, true, nil
}

// distinctPoints counts unique vertices.
func distinctPoints(pts []geom.Point) int {
	seen := make(map[geom.Point]struct{}, len(pts))
	for _, pt := range pts {
		seen[pt] = struct{}{}
	}
	return len(seen)
}
