// Package wkb encodes geometries as PostGIS extended WKB (EWKB with SRID).
package wkb

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/ctessum/geom"
)

// WKB type constants (ISO SQL/MM specification)
const (
	wkbPoint        = 1
	wkbLineString   = 2
	wkbPolygon      = 3
	wkbMultiPolygon = 6

	// SRID flag for EWKB (PostGIS extended WKB)
	wkbSRIDFlag = 0x20000000
)

// Common SRID constants
const (
	SRID4326 = 4326 // WGS84
	SRID3857 = 3857 // Web Mercator
)

// Encoder encodes geometries to EWKB. Little-endian byte order, SRID
// included. The buffer is reused across calls; callers that keep the bytes
// must copy them.
type Encoder struct {
	buf  []byte
	srid uint32
}

// NewEncoder creates an encoder with a pre-allocated buffer and SRID 4326.
func NewEncoder(initialSize int) *Encoder {
	return &Encoder{
		buf:  make([]byte, 0, initialSize),
		srid: SRID4326,
	}
}

// NewEncoderWithSRID creates an encoder with the given SRID.
func NewEncoderWithSRID(initialSize, srid int) *Encoder {
	return &Encoder{
		buf:  make([]byte, 0, initialSize),
		srid: uint32(srid),
	}
}

// SRID returns the encoder's SRID.
func (e *Encoder) SRID() int {
	return int(e.srid)
}

// Encode dispatches on the geometry type.
func (e *Encoder) Encode(g geom.Geom) ([]byte, error) {
	switch t := g.(type) {
	case geom.Point:
		return e.EncodePoint(t), nil
	case geom.LineString:
		return e.EncodeLineString(t), nil
	case geom.Polygon:
		return e.EncodePolygon(t), nil
	case geom.MultiPolygon:
		return e.EncodeMultiPolygon(t), nil
	default:
		return nil, fmt.Errorf("cannot encode %T as WKB", g)
	}
}

// EncodePoint encodes a point.
func (e *Encoder) EncodePoint(p geom.Point) []byte {
	e.reset()
	e.header(wkbPoint)
	e.appendFloat64(p.X)
	e.appendFloat64(p.Y)
	return e.buf
}

// EncodeLineString encodes a linestring.
func (e *Encoder) EncodeLineString(l geom.LineString) []byte {
	e.reset()
	e.header(wkbLineString)
	e.appendUint32(uint32(len(l)))
	for _, pt := range l {
		e.appendFloat64(pt.X)
		e.appendFloat64(pt.Y)
	}
	return e.buf
}

// EncodePolygon encodes a polygon. Rings are closed on output; PostGIS
// rejects open rings.
func (e *Encoder) EncodePolygon(p geom.Polygon) []byte {
	e.reset()
	e.header(wkbPolygon)
	e.appendUint32(uint32(len(p)))
	for _, ring := range p {
		e.appendRing(ring)
	}
	return e.buf
}

// EncodeMultiPolygon encodes a multipolygon. Embedded polygons carry no SRID
// of their own.
func (e *Encoder) EncodeMultiPolygon(mp geom.MultiPolygon) []byte {
	e.reset()
	e.header(wkbMultiPolygon)
	e.appendUint32(uint32(len(mp)))
	for _, p := range mp {
		e.buf = append(e.buf, 0x01)
		e.appendUint32(wkbPolygon)
		e.appendUint32(uint32(len(p)))
		for _, ring := range p {
			e.appendRing(ring)
		}
	}
	return e.buf
}

func (e *Encoder) reset() {
	e.buf = e.buf[:0]
}

// header writes byte order, type with SRID flag, and SRID.
func (e *Encoder) header(wkbType uint32) {
	e.buf = append(e.buf, 0x01)
	e.appendUint32(wkbType | wkbSRIDFlag)
	e.appendUint32(e.srid)
}

// appendRing writes a ring, repeating the first vertex at the end if the
// input ring is open.
func (e *Encoder) appendRing(ring []geom.Point) {
	if len(ring) == 0 {
		e.appendUint32(0)
		return
	}
	closed := ring[0] == ring[len(ring)-1]
	n := len(ring)
	if !closed {
		n++
	}
	e.appendUint32(uint32(n))
	for _, pt := range ring {
		e.appendFloat64(pt.X)
		e.appendFloat64(pt.Y)
	}
	if !closed {
		e.appendFloat64(ring[0].X)
		e.appendFloat64(ring[0].Y)
	}
}

func (e *Encoder) appendUint32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	e.buf = append(e.buf, b[:]...)
}

func (e *Encoder) appendFloat64(v float64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], math.Float64bits(v))
	e.buf = append(e.buf, b[:]...)
}
