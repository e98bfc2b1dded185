// Package simplify reduces polyline coordinate sequences with the
// Ramer-Douglas-Peucker algorithm.
// https://en.wikipedia.org/wiki/Ramer%E2%80%93Douglas%E2%80%93Peucker_algorithm
package simplify

import (
	"math"

	"github.com/wegman-software/osm2geojson-go/internal/coordset"
)

// Polyline simplifies a single polyline with tolerance epsilon (maximum
// perpendicular deviation, in coordinate units). The input is never mutated.
//
// Polylines with 4 or fewer points are returned as-is; this is the fixed
// terminal case of the recursion, not an optimization. Segments whose
// interior points all lie within epsilon of the chord collapse to exactly
// four points (the two endpoints plus two interior samples), which bounds
// the output size for any segment that passes the epsilon test.
func Polyline(points coordset.Polyline, epsilon float64) coordset.Polyline {
	if len(points) <= 4 {
		return points.Clone()
	}

	end := len(points) - 1
	dmax := 0.0
	index := 0
	for i := 1; i < end; i++ {
		// First occurrence wins on ties.
		if d := perpendicularDistance(points[i], points[0], points[end]); d > dmax {
			dmax = d
			index = i
		}
	}

	if dmax > epsilon {
		left := Polyline(points[:index+1], epsilon)
		right := Polyline(points[index:], epsilon)
		// The pivot point is shared between the halves; drop it from the left
		// result so it appears once.
		out := make(coordset.Polyline, 0, len(left)+len(right)-1)
		out = append(out, left[:len(left)-1]...)
		out = append(out, right...)
		return out
	}

	return coordset.Polyline{
		points[0],
		points[index/2],
		points[(index+end)/2],
		points[end],
	}
}

// perpendicularDistance is the distance from p to the infinite line through
// start and end. A degenerate chord (start == end) yields 0 for all points.
func perpendicularDistance(p, start, end coordset.Coordinate) float64 {
	x, y := p.Lon(), p.Lat()
	x1, y1 := start.Lon(), start.Lat()
	x2, y2 := end.Lon(), end.Lat()

	denominator := math.Hypot(y2-y1, x2-x1)
	if denominator == 0 {
		return 0
	}
	return math.Abs((y2-y1)*x-(x2-x1)*y+x2*y1-y2*x1) / denominator
}

// Set applies Polyline to every way and relation in the set independently
// and returns a new set. Nodes are points and pass through untouched.
func Set(s coordset.Set, epsilon float64) coordset.Set {
	out := coordset.Set{
		Nodes:     append([]coordset.Coordinate(nil), s.Nodes...),
		Ways:      make([]coordset.Polyline, len(s.Ways)),
		Relations: make([]coordset.Polyline, len(s.Relations)),
	}
	for i, way := range s.Ways {
		out.Ways[i] = Polyline(way, epsilon)
	}
	for i, rel := range s.Relations {
		out.Relations[i] = Polyline(rel, epsilon)
	}
	return out
}
