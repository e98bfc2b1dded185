package feature

import (
	"github.com/ctessum/geom"
)

// MergeStats reports the outcome of a merge.
type MergeStats struct {
	Input       int
	Passthrough int
	Components  int
}

// Merge unions all overlapping or touching polygonal features into maximal
// connected components. Features whose geometry has fewer than 3 coordinate
// points (points, two-point lines, degenerate rings) cannot be unioned
// meaningfully and pass through unchanged. Each merged component carries the
// given property set; source feature properties are not inherited.
//
// Merging an already-merged collection returns the same components.
func Merge(c Collection, properties map[string]interface{}) (Collection, *MergeStats) {
	stats := &MergeStats{Input: len(c)}

	var passthrough Collection
	var components []geom.Polygon

	for _, f := range c {
		poly, ok := polygonal(f.Geometry)
		if !ok {
			passthrough = append(passthrough, f)
			stats.Passthrough++
			continue
		}

		// Defensive repair before unioning: normalize rings so that
		// self-touching, unclosed, or reversed input does not poison the
		// union.
		poly = repair(poly)
		if len(poly) == 0 {
			passthrough = append(passthrough, f)
			stats.Passthrough++
			continue
		}

		// Fold the polygon into every component it connects to; merged
		// components collapse into one.
		merged := poly
		remaining := components[:0]
		for _, comp := range components {
			if connected(merged, comp) {
				merged = flatten(merged.Union(comp))
			} else {
				remaining = append(remaining, comp)
			}
		}
		components = append(remaining, merged)
	}

	stats.Components = len(components)

	out := make(Collection, 0, len(passthrough)+len(components))
	out = append(out, passthrough...)
	for _, comp := range components {
		out = append(out, Feature{Geometry: comp, Properties: properties})
	}
	return out, stats
}

// polygonal interprets a geometry as a polygonal region if it has at least
// 3 coordinate points. Lines with >=3 points are treated as implicitly
// closed rings, matching how buffered outlines round-trip through GeoJSON.
func polygonal(g geom.Geom) (geom.Polygon, bool) {
	switch t := g.(type) {
	case geom.Polygon:
		if len(t) == 0 || len(t[0]) < 3 {
			return nil, false
		}
		return t, true
	case geom.MultiPolygon:
		var flat geom.Polygon
		for _, p := range t {
			flat = append(flat, p...)
		}
		if len(flat) == 0 || len(flat[0]) < 3 {
			return nil, false
		}
		return flat, true
	case geom.LineString:
		if len(t) < 3 {
			return nil, false
		}
		return geom.Polygon{geom.Path(t)}, true
	default:
		// Points and anything else without area.
		return nil, false
	}
}

// repair drops consecutive duplicate vertices and an explicit closing
// vertex from each ring, discards rings left with fewer than 3 points, and
// normalizes winding. This is the zero-width-buffer analogue: it does not
// change the area of a valid polygon but removes the degeneracies that
// break the union.
func repair(p geom.Polygon) geom.Polygon {
	out := make(geom.Polygon, 0, len(p))
	for _, ring := range p {
		r := make(geom.Path, 0, len(ring))
		for _, pt := range ring {
			if len(r) > 0 && r[len(r)-1] == pt {
				continue
			}
			r = append(r, pt)
		}
		// Open the ring if it repeats the first point at the end.
		if len(r) > 1 && r[0] == r[len(r)-1] {
			r = r[:len(r)-1]
		}
		if len(r) >= 3 {
			out = append(out, r)
		}
	}
	return orient(out)
}

// orient winds shell rings counter-clockwise and holes clockwise. The
// clipper assumes this convention and silently miscomputes on reversed
// rings.
func orient(p geom.Polygon) geom.Polygon {
	out := make(geom.Polygon, len(p))
	for i, ring := range p {
		ccw := signedArea(ring) >= 0
		if ccw == isHole(p, i) {
			rev := make(geom.Path, len(ring))
			for j, pt := range ring {
				rev[len(ring)-1-j] = pt
			}
			out[i] = rev
		} else {
			out[i] = ring
		}
	}
	return out
}

// isHole reports whether ring i lies inside the region of the other rings.
func isHole(p geom.Polygon, i int) bool {
	if len(p) < 2 {
		return false
	}
	rest := make(geom.Polygon, 0, len(p)-1)
	rest = append(rest, p[:i]...)
	rest = append(rest, p[i+1:]...)
	for _, pt := range p[i] {
		// Edge contact is inconclusive; try the next vertex.
		switch pt.Within(rest) {
		case geom.Inside:
			return true
		case geom.Outside:
			return false
		}
	}
	return false
}

// signedArea is positive for counter-clockwise rings.
func signedArea(ring geom.Path) float64 {
	var s float64
	for i, pt := range ring {
		next := ring[(i+1)%len(ring)]
		s += pt.X*next.Y - next.X*pt.Y
	}
	return s / 2
}

// connected reports whether two polygons overlap or touch. Shared area
// shows up as a union smaller than the sum of the parts; touching
// contributes no area, so vertex containment catches it. Bounding boxes are
// checked first to avoid the expensive cases.
func connected(a, b geom.Polygon) bool {
	if !a.Bounds().Overlaps(b.Bounds()) {
		return false
	}
	areaA, areaB := a.Area(), b.Area()
	tol := 1e-9 * (areaA + areaB)
	if a.Union(b).Area() < areaA+areaB-tol {
		return true
	}
	return touches(a, b) || touches(b, a)
}

// touches reports whether any vertex of a lies on or inside b.
func touches(a, b geom.Polygon) bool {
	for _, ring := range a {
		for _, pt := range ring {
			if pt.Within(b) != geom.Outside {
				return true
			}
		}
	}
	return false
}
