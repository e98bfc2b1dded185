// Package parquet exports feature collections as Parquet for downstream
// analytics.
package parquet

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/memory"
	"github.com/apache/arrow/go/v14/parquet"
	"github.com/apache/arrow/go/v14/parquet/compress"
	"github.com/apache/arrow/go/v14/parquet/pqarrow"
	"github.com/ctessum/geom"

	"github.com/wegman-software/osm2geojson-go/internal/feature"
	"github.com/wegman-software/osm2geojson-go/internal/wkb"
)

// FeatureWriter writes feature records to a Parquet file. Geometry is stored
// as EWKB, properties as a JSON string.
type FeatureWriter struct {
	file      *os.File
	writer    *pqarrow.FileWriter
	builder   *array.RecordBuilder
	encoder   *wkb.Encoder
	batchSize int
	count     int
}

// NewFeatureWriter creates a feature Parquet writer.
func NewFeatureWriter(path string, batchSize int) (*FeatureWriter, error) {
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "kind", Type: arrow.BinaryTypes.String, Nullable: false},
		{Name: "properties", Type: arrow.BinaryTypes.String, Nullable: false},
		{Name: "geom_wkb", Type: arrow.BinaryTypes.Binary, Nullable: false},
	}, nil)

	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	writerProps := parquet.NewWriterProperties(
		parquet.WithCompression(compress.Codecs.Zstd),
		parquet.WithDictionaryDefault(false),
	)

	writer, err := pqarrow.NewFileWriter(schema, f, writerProps, pqarrow.DefaultWriterProps())
	if err != nil {
		f.Close()
		return nil, err
	}

	return &FeatureWriter{
		file:      f,
		writer:    writer,
		builder:   array.NewRecordBuilder(memory.DefaultAllocator, schema),
		encoder:   wkb.NewEncoder(1024),
		batchSize: batchSize,
	}, nil
}

// Write appends one feature.
func (w *FeatureWriter) Write(f feature.Feature) error {
	if f.Geometry == nil {
		return nil
	}
	ewkb, err := w.encoder.Encode(f.Geometry)
	if err != nil {
		return err
	}
	props, err := json.Marshal(f.Properties)
	if err != nil {
		return fmt.Errorf("failed to encode properties: %w", err)
	}

	w.builder.Field(0).(*array.StringBuilder).Append(kindOf(f))
	w.builder.Field(1).(*array.StringBuilder).Append(string(props))
	w.builder.Field(2).(*array.BinaryBuilder).Append(ewkb)

	w.count++
	if w.count >= w.batchSize {
		return w.flush()
	}
	return nil
}

// WriteCollection appends a whole collection.
func (w *FeatureWriter) WriteCollection(c feature.Collection) error {
	for _, f := range c {
		if err := w.Write(f); err != nil {
			return err
		}
	}
	return nil
}

func (w *FeatureWriter) flush() error {
	if w.count == 0 {
		return nil
	}
	rec := w.builder.NewRecord()
	defer rec.Release()
	err := w.writer.Write(rec)
	w.count = 0
	return err
}

// Close flushes the last batch and finalizes the file.
func (w *FeatureWriter) Close() error {
	if err := w.flush(); err != nil {
		return err
	}
	if err := w.writer.Close(); err != nil {
		return err
	}
	return w.file.Close()
}

// Export writes a collection to path in one call.
func Export(c feature.Collection, path string, batchSize int) error {
	w, err := NewFeatureWriter(path, batchSize)
	if err != nil {
		return err
	}
	if err := w.WriteCollection(c); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

func kindOf(f feature.Feature) string {
	switch f.Geometry.(type) {
	case geom.Point:
		return "Point"
	case geom.LineString:
		return "LineString"
	case geom.Polygon:
		return "Polygon"
	case geom.MultiPolygon:
		return "MultiPolygon"
	default:
		return "Geometry"
	}
}
