// Package coordset holds raw OSM coordinate data partitioned by element kind.
package coordset

// Coordinate is a (longitude, latitude) pair in geographic degrees.
type Coordinate [2]float64

// Lon returns the longitude component.
func (c Coordinate) Lon() float64 { return c[0] }

// Lat returns the latitude component.
func (c Coordinate) Lat() float64 { return c[1] }

// Polyline is an ordered sequence of coordinates describing one way or one
// relation member chain. Order defines the path of the line.
type Polyline []Coordinate

// Clone returns an independent copy of the polyline.
func (p Polyline) Clone() Polyline {
	if p == nil {
		return nil
	}
	out := make(Polyline, len(p))
	copy(out, p)
	return out
}

// Set partitions coordinate data into the three OSM element kinds.
// Nodes are bare points; Ways and Relations are independent polylines.
// A relation polyline is the concatenation of its way members' geometries
// in the order they were encountered.
type Set struct {
	Nodes     []Coordinate
	Ways      []Polyline
	Relations []Polyline
}

// Empty reports whether the set contains no coordinates in any category.
func (s Set) Empty() bool {
	return len(s.Nodes) == 0 && len(s.Ways) == 0 && len(s.Relations) == 0
}

// Counts returns the number of entries per category.
func (s Set) Counts() (nodes, ways, relations int) {
	return len(s.Nodes), len(s.Ways), len(s.Relations)
}

// Merge appends the contents of other to s, preserving category boundaries.
// Used when combining fetches for multiple filter keys into one batch.
func (s Set) Merge(other Set) Set {
	out := Set{
		Nodes:     append(append([]Coordinate(nil), s.Nodes...), other.Nodes...),
		Ways:      append(append([]Polyline(nil), s.Ways...), other.Ways...),
		Relations: append(append([]Polyline(nil), s.Relations...), other.Relations...),
	}
	return out
}
