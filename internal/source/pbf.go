package source

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"go.uber.org/zap"

	"github.com/wegman-software/osm2geojson-go/internal/coordset"
	"github.com/wegman-software/osm2geojson-go/internal/nodeindex"
	"github.com/wegman-software/osm2geojson-go/internal/style"
)

// PBFSource extracts coordinate sets from a local OSM PBF file for offline
// runs. The first fetch builds a memory-mapped node coordinate index next to
// the extract; subsequent fetches reuse it and only rescan ways and
// relations.
type PBFSource struct {
	path    string
	workDir string
	workers int
	log     *zap.Logger

	mu        sync.Mutex
	index     *nodeindex.MmapIndex
	indexPath string
}

// NewPBF creates a PBF-backed source. workDir holds the node index file;
// workers bounds PBF decoding parallelism (0 means NumCPU).
func NewPBF(path, workDir string, workers int, log *zap.Logger) *PBFSource {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &PBFSource{
		path:      path,
		workDir:   workDir,
		workers:   workers,
		log:       log,
		indexPath: filepath.Join(workDir, "node_index.bin"),
	}
}

// Close releases the node index and removes its backing file.
func (s *PBFSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index != nil {
		if err := s.index.Close(); err != nil {
			return err
		}
		s.index = nil
	}
	os.Remove(s.indexPath)
	return nil
}

// Fetch scans the extract for all elements matching the filter.
func (s *PBFSource) Fetch(ctx context.Context, f style.Filter) (coordset.Set, error) {
	if err := s.ensureIndex(ctx); err != nil {
		return coordset.Set{}, err
	}

	set, pending, err := s.collect(ctx, f)
	if err != nil {
		return coordset.Set{}, err
	}
	if len(pending) > 0 {
		relations, err := s.resolveRelations(ctx, pending)
		if err != nil {
			return coordset.Set{}, err
		}
		set.Relations = relations
	}

	nodes, ways, relations := set.Counts()
	s.log.Debug("extracted coordinate set",
		zap.String("filter", f.Name()),
		zap.Int("nodes", nodes),
		zap.Int("ways", ways),
		zap.Int("relations", relations))
	return set, nil
}

// ensureIndex builds the node coordinate index on first use.
func (s *PBFSource) ensureIndex(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index != nil {
		return nil
	}

	if err := os.MkdirAll(s.workDir, 0o755); err != nil {
		return fmt.Errorf("failed to create work directory: %w", err)
	}

	f, err := os.Open(s.path)
	if err != nil {
		return err
	}
	defer f.Close()

	idx, err := nodeindex.NewMmapIndex(s.indexPath)
	if err != nil {
		return err
	}

	s.log.Info("building node coordinate index", zap.String("file", s.path))
	start := time.Now()

	scanner := osmpbf.New(ctx, f, s.workers)
	defer scanner.Close()

	var count int64
scan:
	for scanner.Scan() {
		switch n := scanner.Object().(type) {
		case *osm.Node:
			idx.Put(int64(n.ID), n.Lat, n.Lon)
			count++
		case *osm.Way:
			// Nodes come first in a sorted extract.
			break scan
		}
	}
	if err := scanner.Err(); err != nil && err != io.EOF {
		idx.Close()
		return err
	}
	if err := idx.Close(); err != nil {
		return err
	}

	s.index, err = nodeindex.OpenMmapIndex(s.indexPath)
	if err != nil {
		return err
	}
	s.log.Info("node index complete",
		zap.Int64("nodes", count),
		zap.Duration("duration", time.Since(start).Round(time.Second)))
	return nil
}

// pendingRelation records a matching relation's way members until the
// resolve pass fills in their geometry.
type pendingRelation struct {
	members []int64
}

// collect gathers matching nodes and ways and records matching relations.
// Relations reference ways that were already scanned past, so their geometry
// is resolved in a second scan.
func (s *PBFSource) collect(ctx context.Context, f style.Filter) (coordset.Set, []pendingRelation, error) {
	file, err := os.Open(s.path)
	if err != nil {
		return coordset.Set{}, nil, err
	}
	defer file.Close()

	scanner := osmpbf.New(ctx, file, s.workers)
	defer scanner.Close()

	var set coordset.Set
	var pending []pendingRelation

	for scanner.Scan() {
		switch o := scanner.Object().(type) {
		case *osm.Node:
			if f.Matches(o.Tags.Map()) {
				set.Nodes = append(set.Nodes, coordset.Coordinate{o.Lon, o.Lat})
			}
		case *osm.Way:
			if !f.Matches(o.Tags.Map()) {
				continue
			}
			if line, ok := s.wayLine(o); ok {
				set.Ways = append(set.Ways, line)
			}
		case *osm.Relation:
			if !f.Matches(o.Tags.Map()) {
				continue
			}
			var members []int64
			for _, m := range o.Members {
				if m.Type == osm.TypeWay {
					members = append(members, int64(m.Ref))
				}
			}
			if len(members) > 0 {
				pending = append(pending, pendingRelation{members: members})
			}
		}
	}
	if err := scanner.Err(); err != nil && err != io.EOF {
		return coordset.Set{}, nil, err
	}
	return set, pending, nil
}

// resolveRelations rescans ways to build the member geometry of pending
// relations. Each relation becomes one polyline: its way members
// concatenated in member order, missing members skipped.
func (s *PBFSource) resolveRelations(ctx context.Context, pending []pendingRelation) ([]coordset.Polyline, error) {
	wanted := make(map[int64]coordset.Polyline)
	for _, rel := range pending {
		for _, id := range rel.members {
			wanted[id] = nil
		}
	}

	file, err := os.Open(s.path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	scanner := osmpbf.New(ctx, file, s.workers)
	scanner.SkipNodes = true
	scanner.SkipRelations = true
	defer scanner.Close()

	for scanner.Scan() {
		way, ok := scanner.Object().(*osm.Way)
		if !ok {
			continue
		}
		if _, want := wanted[int64(way.ID)]; !want {
			continue
		}
		if line, ok := s.wayLine(way); ok {
			wanted[int64(way.ID)] = line
		}
	}
	if err := scanner.Err(); err != nil && err != io.EOF {
		return nil, err
	}

	relations := make([]coordset.Polyline, 0, len(pending))
	for _, rel := range pending {
		var line coordset.Polyline
		for _, id := range rel.members {
			line = append(line, wanted[id]...)
		}
		if len(line) > 0 {
			relations = append(relations, line)
		}
	}
	return relations, nil
}

// wayLine resolves a way's node references against the index. A way with any
// unresolvable node is dropped whole rather than emitted with gaps.
func (s *PBFSource) wayLine(way *osm.Way) (coordset.Polyline, bool) {
	line := make(coordset.Polyline, 0, len(way.Nodes))
	for _, ref := range way.Nodes {
		lat, lon, ok := s.index.Get(int64(ref.ID))
		if !ok {
			return nil, false
		}
		line = append(line, coordset.Coordinate{lon, lat})
	}
	return line, true
}
