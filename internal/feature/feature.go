// Package feature converts coordinate sets into buffered GeoJSON features
// and merges overlapping features into disjoint collections.
package feature

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/geojson"
)

// Feature is a geometry with optional display properties. Features have no
// identity beyond their geometry; equality is structural.
type Feature struct {
	Geometry   geom.Geom
	Properties map[string]interface{}
}

// Equal reports structural equality of two features.
func (f Feature) Equal(other Feature) bool {
	return reflect.DeepEqual(f.Geometry, other.Geometry) &&
		reflect.DeepEqual(f.Properties, other.Properties)
}

// Collection is an ordered sequence of features. Order does not affect merge
// semantics but is preserved for output determinism.
type Collection []Feature

type geoJSONFeature struct {
	Type       string                 `json:"type"`
	Geometry   *geojson.Geometry      `json:"geometry"`
	Properties map[string]interface{} `json:"properties"`
}

type geoJSONCollection struct {
	Type     string           `json:"type"`
	Features []geoJSONFeature `json:"features"`
}

// MarshalGeoJSON encodes the collection as a GeoJSON FeatureCollection.
func MarshalGeoJSON(c Collection) ([]byte, error) {
	out := geoJSONCollection{
		Type:     "FeatureCollection",
		Features: make([]geoJSONFeature, 0, len(c)),
	}
	for i, f := range c {
		g, err := geojson.ToGeoJSON(f.Geometry)
		if err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}
		out.Features = append(out.Features, geoJSONFeature{
			Type:       "Feature",
			Geometry:   g,
			Properties: f.Properties,
		})
	}
	return json.Marshal(out)
}

// UnmarshalGeoJSON decodes a GeoJSON FeatureCollection. Features without a
// geometry are dropped, matching the read-back behavior for hand-edited
// files.
func UnmarshalGeoJSON(data []byte) (Collection, error) {
	var in geoJSONCollection
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("invalid GeoJSON document: %w", err)
	}
	if in.Type != "FeatureCollection" {
		return nil, fmt.Errorf("expected FeatureCollection, got %q", in.Type)
	}

	out := make(Collection, 0, len(in.Features))
	for i, f := range in.Features {
		if f.Geometry == nil {
			continue
		}
		g, err := geojson.FromGeoJSON(f.Geometry)
		if err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}
		out = append(out, Feature{Geometry: g, Properties: f.Properties})
	}
	return out, nil
}

// Save writes the collection as GeoJSON to path, creating parent directories
// as needed.
func Save(c Collection, path string) error {
	data, err := MarshalGeoJSON(c)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// Read loads a GeoJSON FeatureCollection from path.
func Read(path string) (Collection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return UnmarshalGeoJSON(data)
}
