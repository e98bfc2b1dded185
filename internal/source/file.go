package source

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/wegman-software/osm2geojson-go/internal/coordset"
	"github.com/wegman-software/osm2geojson-go/internal/style"
)

// FileSource serves coordinate dumps saved by a previous fetch. Each filter
// reads <dir>/<name>.json.
type FileSource struct {
	dir string
}

// NewFile creates a source over a dump directory.
func NewFile(dir string) *FileSource {
	return &FileSource{dir: dir}
}

// Path returns the dump path for a filter.
func (s *FileSource) Path(f style.Filter) string {
	return filepath.Join(s.dir, f.Name()+".json")
}

// Fetch reads the filter's dump. A missing dump is an error; run fetch
// first.
func (s *FileSource) Fetch(ctx context.Context, f style.Filter) (coordset.Set, error) {
	set, err := coordset.Read(s.Path(f))
	if err != nil {
		return coordset.Set{}, fmt.Errorf("failed to read coordinate dump for %s: %w", f.Name(), err)
	}
	return set, nil
}
