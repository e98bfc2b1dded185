package wkb

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/ctessum/geom"
)

func readUint32(b []byte, off int) uint32 {
	return binary.LittleEndian.Uint32(b[off:])
}

func readFloat64(b []byte, off int) float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(b[off:]))
}

func TestEncodePoint(t *testing.T) {
	e := NewEncoder(64)
	b := e.EncodePoint(geom.Point{X: 13.4, Y: 52.5})

	if len(b) != 25 {
		t.Fatalf("point EWKB is %d bytes, want 25", len(b))
	}
	if b[0] != 0x01 {
		t.Error("byte order marker not little-endian")
	}
	if typ := readUint32(b, 1); typ != wkbPoint|wkbSRIDFlag {
		t.Errorf("type = %#x", typ)
	}
	if srid := readUint32(b, 5); srid != SRID4326 {
		t.Errorf("srid = %d", srid)
	}
	if x := readFloat64(b, 9); x != 13.4 {
		t.Errorf("x = %v", x)
	}
	if y := readFloat64(b, 17); y != 52.5 {
		t.Errorf("y = %v", y)
	}
}

func TestEncodeLineString(t *testing.T) {
	e := NewEncoderWithSRID(64, SRID3857)
	b := e.EncodeLineString(geom.LineString{{X: 0, Y: 0}, {X: 1, Y: 2}, {X: 3, Y: 4}})

	if srid := readUint32(b, 5); srid != SRID3857 {
		t.Errorf("srid = %d", srid)
	}
	if n := readUint32(b, 9); n != 3 {
		t.Errorf("point count = %d", n)
	}
	if len(b) != 13+3*16 {
		t.Errorf("length = %d", len(b))
	}
}

func TestEncodePolygonClosesRings(t *testing.T) {
	// Open ring on input; the encoded ring must repeat the first vertex.
	e := NewEncoder(64)
	b := e.EncodePolygon(geom.Polygon{{
		{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10},
	}})

	if rings := readUint32(b, 9); rings != 1 {
		t.Fatalf("ring count = %d", rings)
	}
	n := readUint32(b, 13)
	if n != 4 {
		t.Fatalf("ring point count = %d, want 4 (closed)", n)
	}
	firstX := readFloat64(b, 17)
	firstY := readFloat64(b, 25)
	lastX := readFloat64(b, 17+3*16)
	lastY := readFloat64(b, 25+3*16)
	if firstX != lastX || firstY != lastY {
		t.Errorf("ring not closed: (%v,%v) != (%v,%v)", firstX, firstY, lastX, lastY)
	}
}

func TestEncodePolygonKeepsClosedRings(t *testing.T) {
	e := NewEncoder(64)
	b := e.EncodePolygon(geom.Polygon{{
		{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 0},
	}})
	if n := readUint32(b, 13); n != 4 {
		t.Errorf("already-closed ring re-closed: %d points", n)
	}
}

func TestEncodeMultiPolygon(t *testing.T) {
	e := NewEncoder(256)
	b := e.EncodeMultiPolygon(geom.MultiPolygon{
		{{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}}},
		{{{X: 5, Y: 5}, {X: 6, Y: 5}, {X: 6, Y: 6}}},
	})

	if typ := readUint32(b, 1); typ != wkbMultiPolygon|wkbSRIDFlag {
		t.Errorf("type = %#x", typ)
	}
	if n := readUint32(b, 9); n != 2 {
		t.Errorf("polygon count = %d", n)
	}
	// First embedded polygon: byte order + plain polygon type, no SRID flag.
	if b[13] != 0x01 {
		t.Error("embedded polygon byte order")
	}
	if typ := readUint32(b, 14); typ != wkbPolygon {
		t.Errorf("embedded polygon type = %#x", typ)
	}
}

func TestEncodeDispatch(t *testing.T) {
	e := NewEncoder(64)

	if _, err := e.Encode(geom.Point{X: 1, Y: 2}); err != nil {
		t.Errorf("point dispatch failed: %v", err)
	}
	if _, err := e.Encode(geom.MultiPoint{}); err == nil {
		t.Error("unsupported geometry accepted")
	}
}
