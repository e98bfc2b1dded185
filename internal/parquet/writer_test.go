package parquet

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/parquet/file"
	"github.com/apache/arrow/go/v14/parquet/pqarrow"
	"github.com/ctessum/geom"

	"github.com/wegman-software/osm2geojson-go/internal/feature"
)

func readBack(t *testing.T, path string) (rows int64, kinds []string) {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	pf, err := file.NewParquetReader(f)
	if err != nil {
		t.Fatal(err)
	}
	defer pf.Close()

	reader, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	tbl, err := reader.ReadTable(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer tbl.Release()

	kindCol := tbl.Column(0).Data()
	for _, chunk := range kindCol.Chunks() {
		s := chunk.(*array.String)
		for i := 0; i < s.Len(); i++ {
			kinds = append(kinds, s.Value(i))
		}
	}
	return tbl.NumRows(), kinds
}

func TestExport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "features.parquet")
	c := feature.Collection{
		{Geometry: geom.Point{X: 13.4, Y: 52.5}, Properties: map[string]interface{}{"color": "red"}},
		{Geometry: geom.LineString{{X: 0, Y: 0}, {X: 1, Y: 1}}},
		{Geometry: geom.Polygon{{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}}}},
		{Geometry: nil}, // dropped
	}

	if err := Export(c, path, 2); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	rows, kinds := readBack(t, path)
	if rows != 3 {
		t.Fatalf("got %d rows, want 3", rows)
	}
	want := []string{"Point", "LineString", "Polygon"}
	for i, k := range want {
		if kinds[i] != k {
			t.Errorf("row %d kind = %q, want %q", i, kinds[i], k)
		}
	}
}

func TestWriterBatching(t *testing.T) {
	// More features than the batch size forces an intermediate flush.
	path := filepath.Join(t.TempDir(), "batched.parquet")
	w, err := NewFeatureWriter(path, 3)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		f := feature.Feature{Geometry: geom.Point{X: float64(i), Y: float64(i)}}
		if err := w.Write(f); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	rows, _ := readBack(t, path)
	if rows != 10 {
		t.Errorf("got %d rows, want 10", rows)
	}
}

func TestWriterRejectsUnsupportedGeometry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.parquet")
	w, err := NewFeatureWriter(path, 10)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := w.Write(feature.Feature{Geometry: geom.MultiPoint{}}); err == nil {
		t.Error("unsupported geometry accepted")
	}
}
