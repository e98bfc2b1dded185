package feature

import (
	"math"

	"github.com/ctessum/geom"
)

// circleSegments is the number of edges approximating a full circle in
// buffer outlines.
const circleSegments = 64

// Disk returns a regular polygon approximating the disk of radius r around
// center. Radius must be positive.
func Disk(center geom.Point, r float64) geom.Polygon {
	return disk(center, r, 0)
}

// disk samples the circle starting at the given angular phase. Rotating the
// phase keeps neighboring disks in a line buffer from landing on coincident
// outline vertices, which the clipper cannot union.
func disk(center geom.Point, r, phase float64) geom.Polygon {
	ring := make([]geom.Point, 0, circleSegments)
	for i := 0; i < circleSegments; i++ {
		theta := phase + 2*math.Pi*float64(i)/circleSegments
		ring = append(ring, geom.Point{
			X: center.X + r*math.Cos(theta),
			Y: center.Y + r*math.Sin(theta),
		})
	}
	return geom.Polygon{ring}
}

// LineBuffer returns the polygon covering all points within distance r of
// the polyline. Each segment contributes a rectangle and each vertex a
// phase-rotated disk; adjacent pieces overlap with positive area and never
// share an outline vertex, so the running union stays well-formed. Duplicate
// consecutive vertices are tolerated; an empty result is possible only for
// an empty input line.
func LineBuffer(line []geom.Point, r float64) geom.Polygon {
	pts := dropCollinear(dedup(line))
	if len(pts) == 0 {
		return nil
	}

	var out geom.Polygonal
	add := func(p geom.Polygon) {
		if out == nil {
			out = p
		} else {
			out = out.Union(p)
		}
	}

	// Revisited vertices and retraced segments already have their geometry
	// in the union; folding an identical copy in again would degenerate it.
	halfStep := math.Pi / circleSegments
	diskSeen := make(map[geom.Point]struct{}, len(pts))
	rectSeen := make(map[[2]geom.Point]struct{}, len(pts))
	vertexDisk := func(pt geom.Point) {
		if _, ok := diskSeen[pt]; ok {
			return
		}
		phase := halfStep * (1 + float64(len(diskSeen)%3)) / 2
		diskSeen[pt] = struct{}{}
		add(disk(pt, r, phase))
	}

	vertexDisk(pts[0])
	for i := 1; i < len(pts); i++ {
		a, b := pts[i-1], pts[i]
		key := [2]geom.Point{a, b}
		if b.X < a.X || (b.X == a.X && b.Y < a.Y) {
			key = [2]geom.Point{b, a}
		}
		if _, ok := rectSeen[key]; !ok {
			rectSeen[key] = struct{}{}
			add(segmentRect(a, b, r))
		}
		vertexDisk(b)
	}
	return flatten(out)
}

// segmentRect is the rectangle of half-width r around a segment, wound
// counter-clockwise.
func segmentRect(a, b geom.Point, r float64) geom.Polygon {
	d := math.Hypot(b.X-a.X, b.Y-a.Y)
	nx := -(b.Y - a.Y) / d * r
	ny := (b.X - a.X) / d * r
	return geom.Polygon{{
		{X: a.X - nx, Y: a.Y - ny},
		{X: b.X - nx, Y: b.Y - ny},
		{X: b.X + nx, Y: b.Y + ny},
		{X: a.X + nx, Y: a.Y + ny},
	}}
}

// dedup drops consecutive duplicate vertices.
func dedup(line []geom.Point) []geom.Point {
	pts := make([]geom.Point, 0, len(line))
	for _, pt := range line {
		if len(pts) > 0 && pts[len(pts)-1] == pt {
			continue
		}
		pts = append(pts, pt)
	}
	return pts
}

// dropCollinear merges runs of exactly collinear forward segments so that
// consecutive rectangles cannot share a full edge.
func dropCollinear(pts []geom.Point) []geom.Point {
	if len(pts) < 3 {
		return pts
	}
	out := pts[:2]
	for _, pt := range pts[2:] {
		prev := out[len(out)-1]
		back := out[len(out)-2]
		ax, ay := prev.X-back.X, prev.Y-back.Y
		bx, by := pt.X-prev.X, pt.Y-prev.Y
		if ax*by-ay*bx == 0 && ax*bx+ay*by > 0 {
			out[len(out)-1] = pt
			continue
		}
		out = append(out, pt)
	}
	return out
}

// flatten collects the rings of a polygonal into one polygon.
func flatten(p geom.Polygonal) geom.Polygon {
	if p == nil {
		return nil
	}
	var out geom.Polygon
	for _, poly := range p.Polygons() {
		out = append(out, poly...)
	}
	return out
}
