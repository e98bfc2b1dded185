package overpass

import (
	"encoding/json"
	"io"

	"github.com/wegman-software/osm2geojson-go/internal/coordset"
)

// Response is a parsed Overpass result reduced to coordinate data.
type Response struct {
	Generator string
	Count     int
	Set       coordset.Set
}

type rawResponse struct {
	Generator string       `json:"generator"`
	Elements  []rawElement `json:"elements"`
}

type rawElement struct {
	Type string `json:"type"`

	// node; pointers so a missing coordinate is distinguishable from a
	// legitimate 0.0 value
	Lat *float64 `json:"lat"`
	Lon *float64 `json:"lon"`

	// way ("out geom")
	Geometry []rawPoint `json:"geometry"`

	// relation
	Members []rawMember `json:"members"`
}

type rawMember struct {
	Type     string     `json:"type"`
	Geometry []rawPoint `json:"geometry"`
}

type rawPoint struct {
	Lat *float64 `json:"lat"`
	Lon *float64 `json:"lon"`
}

// ParseJSON decodes an Overpass JSON response. Nodes become coordinates,
// ways become one polyline each, and each relation becomes a single polyline
// formed by concatenating the geometries of its way members in order.
//
// Points with an absent lat or lon are dropped; points at exactly 0.0 are
// kept, they are valid positions.
func ParseJSON(v io.Reader) (*Response, error) {
	var resp rawResponse
	if err := json.NewDecoder(v).Decode(&resp); err != nil {
		return nil, err
	}

	out := &Response{
		Generator: resp.Generator,
		Count:     len(resp.Elements),
	}

	for _, el := range resp.Elements {
		switch el.Type {
		case "node":
			if el.Lat == nil || el.Lon == nil {
				continue
			}
			out.Set.Nodes = append(out.Set.Nodes, coordset.Coordinate{*el.Lon, *el.Lat})

		case "way":
			out.Set.Ways = append(out.Set.Ways, pointsToPolyline(el.Geometry))

		case "relation":
			var rel coordset.Polyline
			for _, member := range el.Members {
				if member.Type != "way" {
					continue
				}
				rel = append(rel, pointsToPolyline(member.Geometry)...)
			}
			out.Set.Relations = append(out.Set.Relations, rel)
		}
	}

	return out, nil
}

func pointsToPolyline(points []rawPoint) coordset.Polyline {
	line := make(coordset.Polyline, 0, len(points))
	for _, p := range points {
		if p.Lat == nil || p.Lon == nil {
			continue
		}
		line = append(line, coordset.Coordinate{*p.Lon, *p.Lat})
	}
	return line
}
