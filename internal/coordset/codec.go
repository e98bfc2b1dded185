package coordset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// The persisted coordinate format is a JSON array with one entry per element
// kind:
//
//	[{"type":"nodes","coordinates":[[lon,lat],...]},
//	 {"type":"ways","coordinates":[[[lon,lat],...],...]},
//	 {"type":"relations","coordinates":[[[lon,lat],...],...]}]
//
// The format is lossless for float64 coordinates.

type wireEntry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

type wireEntryOut struct {
	Type        string      `json:"type"`
	Coordinates interface{} `json:"coordinates"`
}

// Marshal encodes the set into the persisted coordinate format.
func Marshal(s Set) ([]byte, error) {
	nodes := make([][]float64, len(s.Nodes))
	for i, c := range s.Nodes {
		nodes[i] = []float64{c.Lon(), c.Lat()}
	}
	entries := []wireEntryOut{
		{Type: "nodes", Coordinates: nodes},
		{Type: "ways", Coordinates: polylinesOut(s.Ways)},
		{Type: "relations", Coordinates: polylinesOut(s.Relations)},
	}
	return json.Marshal(entries)
}

func polylinesOut(lines []Polyline) [][][]float64 {
	out := make([][][]float64, len(lines))
	for i, line := range lines {
		out[i] = make([][]float64, len(line))
		for j, c := range line {
			out[i][j] = []float64{c.Lon(), c.Lat()}
		}
	}
	return out
}

// Unmarshal decodes the persisted coordinate format. Unknown type tags,
// repeated tags, and coordinate tuples that are not [lon,lat] pairs are
// caller errors and fail hard rather than being skipped.
func Unmarshal(data []byte) (Set, error) {
	var entries []wireEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return Set{}, fmt.Errorf("invalid coordinate document: %w", err)
	}

	var s Set
	seen := make(map[string]bool, 3)
	for _, e := range entries {
		if seen[e.Type] {
			return Set{}, fmt.Errorf("duplicate coordinate entry type %q", e.Type)
		}
		seen[e.Type] = true

		switch e.Type {
		case "nodes":
			raw, err := decodePairs(e.Coordinates)
			if err != nil {
				return Set{}, fmt.Errorf("nodes: %w", err)
			}
			s.Nodes = raw
		case "ways":
			lines, err := decodePolylines(e.Coordinates)
			if err != nil {
				return Set{}, fmt.Errorf("ways: %w", err)
			}
			s.Ways = lines
		case "relations":
			lines, err := decodePolylines(e.Coordinates)
			if err != nil {
				return Set{}, fmt.Errorf("relations: %w", err)
			}
			s.Relations = lines
		default:
			return Set{}, fmt.Errorf("unknown coordinate entry type %q", e.Type)
		}
	}
	return s, nil
}

func decodePairs(raw json.RawMessage) ([]Coordinate, error) {
	var pairs [][]float64
	if err := json.Unmarshal(raw, &pairs); err != nil {
		return nil, err
	}
	out := make([]Coordinate, len(pairs))
	for i, p := range pairs {
		if len(p) != 2 {
			return nil, fmt.Errorf("coordinate %d has %d components, want 2", i, len(p))
		}
		out[i] = Coordinate{p[0], p[1]}
	}
	return out, nil
}

func decodePolylines(raw json.RawMessage) ([]Polyline, error) {
	var lines [][][]float64
	if err := json.Unmarshal(raw, &lines); err != nil {
		return nil, err
	}
	out := make([]Polyline, len(lines))
	for i, line := range lines {
		out[i] = make(Polyline, len(line))
		for j, p := range line {
			if len(p) != 2 {
				return nil, fmt.Errorf("polyline %d coordinate %d has %d components, want 2", i, j, len(p))
			}
			out[i][j] = Coordinate{p[0], p[1]}
		}
	}
	return out, nil
}

// Save writes the set to path in the persisted coordinate format, creating
// parent directories as needed.
func Save(s Set, path string) error {
	data, err := Marshal(s)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// Read loads a set previously written with Save.
func Read(path string) (Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Set{}, err
	}
	return Unmarshal(data)
}
