// Package proj provides coordinate transformations between the geographic
// CRS (WGS84 lon/lat) and a metric UTM CRS used for buffering.
package proj

import (
	"fmt"

	"github.com/ctessum/geom"
	geomproj "github.com/ctessum/geom/proj"
)

// DefaultUTMZone covers central Europe (EPSG:32633).
const DefaultUTMZone = 33

// Projector transforms geometries between WGS84 and a fixed UTM zone.
// The zone is chosen per deployment, not per coordinate. A Projector is
// built once and reused; both directions are pure functions and safe for
// concurrent use.
type Projector struct {
	zone     int
	toMetric geomproj.Transformer
	toGeo    geomproj.Transformer
}

// New creates a projector for the given UTM zone (1-60).
func New(utmZone int) (*Projector, error) {
	if utmZone < 1 || utmZone > 60 {
		return nil, fmt.Errorf("invalid UTM zone %d (must be 1-60)", utmZone)
	}

	geographic, err := geomproj.Parse("+proj=longlat +datum=WGS84 +no_defs")
	if err != nil {
		return nil, fmt.Errorf("failed to parse geographic CRS: %w", err)
	}
	metric, err := geomproj.Parse(fmt.Sprintf("+proj=utm +zone=%d +datum=WGS84 +units=m +no_defs", utmZone))
	if err != nil {
		return nil, fmt.Errorf("failed to parse UTM zone %d CRS: %w", utmZone, err)
	}

	forward, err := geographic.NewTransform(metric)
	if err != nil {
		return nil, fmt.Errorf("failed to build forward transform: %w", err)
	}
	inverse, err := metric.NewTransform(geographic)
	if err != nil {
		return nil, fmt.Errorf("failed to build inverse transform: %w", err)
	}

	return &Projector{zone: utmZone, toMetric: forward, toGeo: inverse}, nil
}

// Zone returns the configured UTM zone.
func (p *Projector) Zone() int { return p.zone }

// ToMetric transforms a geographic geometry into UTM meters.
func (p *Projector) ToMetric(g geom.Geom) (geom.Geom, error) {
	return g.Transform(p.toMetric)
}

// ToGeographic transforms a UTM geometry back to WGS84 degrees.
func (p *Projector) ToGeographic(g geom.Geom) (geom.Geom, error) {
	return g.Transform(p.toGeo)
}

// ToMetricPoint projects a single lon/lat pair.
func (p *Projector) ToMetricPoint(lon, lat float64) (geom.Point, error) {
	x, y, err := p.toMetric(lon, lat)
	if err != nil {
		return geom.Point{}, err
	}
	return geom.Point{X: x, Y: y}, nil
}

// ToGeographicPoint projects a single UTM point back to lon/lat.
func (p *Projector) ToGeographicPoint(x, y float64) (geom.Point, error) {
	lon, lat, err := p.toGeo(x, y)
	if err != nil {
		return geom.Point{}, err
	}
	return geom.Point{X: lon, Y: lat}, nil
}
