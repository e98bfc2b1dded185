// Package source fetches coordinate sets for tag filters. Sources are
// interchangeable: the Overpass API for online use, a local PBF extract for
// offline runs, with an optional cache in front of either.
package source

import (
	"context"
	"errors"
	"net/url"

	"go.uber.org/zap"

	"github.com/wegman-software/osm2geojson-go/internal/coordset"
	"github.com/wegman-software/osm2geojson-go/internal/overpass"
	"github.com/wegman-software/osm2geojson-go/internal/style"
)

// DataSource produces the coordinate set for one filter.
type DataSource interface {
	Fetch(ctx context.Context, f style.Filter) (coordset.Set, error)
}

// OverpassSource fetches coordinate sets from an Overpass interpreter.
//
// Upstream failures (non-200 answers, transport errors) are not fatal: the
// source logs a warning and returns an empty set so a batch over many filters
// survives a flaky interpreter. Malformed response bodies are still hard
// errors.
type OverpassSource struct {
	client *overpass.Client
	area   string
	bbox   string
	log    *zap.Logger
}

// NewOverpass creates an Overpass-backed source. area and bbox scope every
// query; either may be empty.
func NewOverpass(client *overpass.Client, area, bbox string, log *zap.Logger) *OverpassSource {
	if log == nil {
		log = zap.NewNop()
	}
	return &OverpassSource{client: client, area: area, bbox: bbox, log: log}
}

// Fetch queries the interpreter for all elements matching the filter.
func (s *OverpassSource) Fetch(ctx context.Context, f style.Filter) (coordset.Set, error) {
	query := overpass.BuildQuery(f.Expression(), s.area, s.bbox)

	resp, err := s.client.Query(ctx, query)
	if err != nil {
		if ctx.Err() != nil {
			return coordset.Set{}, ctx.Err()
		}

		var qe *overpass.QueryError
		if errors.As(err, &qe) {
			s.log.Warn("overpass rejected query, continuing with empty set",
				zap.String("filter", f.Name()),
				zap.Int("status", qe.StatusCode))
			return coordset.Set{}, nil
		}
		var ue *url.Error
		if errors.As(err, &ue) {
			s.log.Warn("overpass unreachable, continuing with empty set",
				zap.String("filter", f.Name()),
				zap.Error(err))
			return coordset.Set{}, nil
		}
		return coordset.Set{}, err
	}

	nodes, ways, relations := resp.Set.Counts()
	s.log.Debug("fetched coordinate set",
		zap.String("filter", f.Name()),
		zap.Int("nodes", nodes),
		zap.Int("ways", ways),
		zap.Int("relations", relations))
	return resp.Set, nil
}
