package source

import (
	"context"
	"fmt"
	"os"

	"github.com/ctessum/requestcache"

	"github.com/wegman-software/osm2geojson-go/internal/coordset"
	"github.com/wegman-software/osm2geojson-go/internal/style"
)

// CachedSource wraps a DataSource with request deduplication, an in-memory
// LRU, and an optional on-disk layer keyed by filter name. Repeated fetches
// for the same filter hit the cache instead of the upstream.
type CachedSource struct {
	cache *requestcache.Cache
}

// NewCached builds the cache chain around src. workers bounds concurrent
// upstream fetches; memoryEntries bounds the in-memory layer; diskDir enables
// the on-disk layer when non-empty.
func NewCached(src DataSource, workers, memoryEntries int, diskDir string) (*CachedSource, error) {
	if workers < 1 {
		workers = 1
	}
	if memoryEntries < 1 {
		memoryEntries = 1
	}

	process := func(ctx context.Context, payload interface{}) (interface{}, error) {
		f, ok := payload.(style.Filter)
		if !ok {
			return nil, fmt.Errorf("unexpected cache payload %T", payload)
		}
		return src.Fetch(ctx, f)
	}

	funcs := []requestcache.CacheFunc{
		requestcache.Deduplicate(),
		requestcache.Memory(memoryEntries),
	}
	if diskDir != "" {
		if err := os.MkdirAll(diskDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
		funcs = append(funcs, requestcache.Disk(diskDir, marshalSet, unmarshalSet))
	}

	return &CachedSource{cache: requestcache.NewCache(process, workers, funcs...)}, nil
}

// Fetch returns the cached set for the filter, fetching on miss.
func (c *CachedSource) Fetch(ctx context.Context, f style.Filter) (coordset.Set, error) {
	req := c.cache.NewRequest(ctx, f, f.Name())
	result, err := req.Result()
	if err != nil {
		return coordset.Set{}, err
	}
	set, ok := result.(coordset.Set)
	if !ok {
		return coordset.Set{}, fmt.Errorf("unexpected cache result %T", result)
	}
	return set, nil
}

func marshalSet(v interface{}) ([]byte, error) {
	set, ok := v.(coordset.Set)
	if !ok {
		return nil, fmt.Errorf("cannot marshal %T as coordinate set", v)
	}
	return coordset.Marshal(set)
}

func unmarshalSet(data []byte) (interface{}, error) {
	return coordset.Unmarshal(data)
}
