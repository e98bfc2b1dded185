package overpass

import (
	"fmt"
	"strings"
)

// BuildQuery assembles the Overpass QL query selecting nodes, ways, and
// relations matching the tag filter, with full geometry output.
//
// filter is a raw Overpass tag filter such as `"amenity"="school"`.
// area is an optional Overpass area filter such as
// `["ISO3166-1"="DE"][admin_level=2]`; empty means worldwide.
// bbox is an optional global bounding box "south,west,north,east".
func BuildQuery(filter, area, bbox string) string {
	var b strings.Builder

	b.WriteString("[out:json]")
	if bbox != "" {
		fmt.Fprintf(&b, "[bbox:%s]", bbox)
	}
	b.WriteString(";\n")

	if area != "" {
		fmt.Fprintf(&b, "area%s->.searchArea;\n", area)
		fmt.Fprintf(&b, "(\n  node[%s](area.searchArea);\n  way[%s](area.searchArea);\n  relation[%s](area.searchArea);\n);\n", filter, filter, filter)
	} else {
		fmt.Fprintf(&b, "(\n  node[%s];\n  way[%s];\n  relation[%s];\n);\n", filter, filter, filter)
	}

	b.WriteString("out geom;\n")
	return b.String()
}
