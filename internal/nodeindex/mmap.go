// Package nodeindex stores node coordinates in a sparse memory-mapped file
// addressed by node ID. Lookup is O(1): entry offset = nodeID * 8, with lat
// and lon packed as fixed-point int32 (7 decimal places).
package nodeindex

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/edsrzf/mmap-go"
)

const (
	entrySize = 8
	// maxNodeID bounds the mapped address space. The file is sparse, so
	// only written entries consume disk.
	maxNodeID = 10_000_000_000
)

// MmapIndex is a memory-mapped node coordinate index.
type MmapIndex struct {
	file *os.File
	data mmap.MMap
	size int64
}

// NewMmapIndex creates an index for writing, truncating any existing file.
func NewMmapIndex(path string) (*MmapIndex, error) {
	size := int64(maxNodeID) * entrySize

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to create index file: %w", err)
	}
	if err := f.Truncate(size); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to size index file: %w", err)
	}

	data, err := mmap.MapRegion(f, int(size), mmap.RDWR, 0, 0)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to map index file: %w", err)
	}

	return &MmapIndex{file: f, data: data, size: size}, nil
}

// OpenMmapIndex opens an existing index read-only.
func OpenMmapIndex(path string) (*MmapIndex, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open index file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat index file: %w", err)
	}

	data, err := mmap.MapRegion(f, int(info.Size()), mmap.RDONLY, 0, 0)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to map index file: %w", err)
	}

	return &MmapIndex{file: f, data: data, size: info.Size()}, nil
}

// Put stores a node's coordinates. Out-of-range IDs are ignored. Concurrent
// writers are safe as long as each node ID is written once; every ID owns a
// distinct offset.
func (m *MmapIndex) Put(nodeID int64, lat, lon float64) {
	if nodeID < 0 || nodeID >= maxNodeID {
		return
	}
	offset := nodeID * entrySize
	binary.LittleEndian.PutUint32(m.data[offset:], uint32(int32(lat*1e7)))
	binary.LittleEndian.PutUint32(m.data[offset+4:], uint32(int32(lon*1e7)))
}

// Get retrieves a node's coordinates. A zero entry reads as missing; the
// exact point (0,0) in the Gulf of Guinea is sacrificed for not needing a
// presence bitmap.
func (m *MmapIndex) Get(nodeID int64) (lat, lon float64, ok bool) {
	if nodeID < 0 || nodeID >= maxNodeID {
		return 0, 0, false
	}
	offset := nodeID * entrySize
	if offset+entrySize > m.size {
		return 0, 0, false
	}

	latInt := int32(binary.LittleEndian.Uint32(m.data[offset:]))
	lonInt := int32(binary.LittleEndian.Uint32(m.data[offset+4:]))
	if latInt == 0 && lonInt == 0 {
		return 0, 0, false
	}
	return float64(latInt) / 1e7, float64(lonInt) / 1e7, true
}

// Sync flushes dirty pages to disk.
func (m *MmapIndex) Sync() error {
	return m.data.Flush()
}

// Close unmaps and closes the index.
func (m *MmapIndex) Close() error {
	if err := m.data.Unmap(); err != nil {
		m.file.Close()
		return err
	}
	return m.file.Close()
}
