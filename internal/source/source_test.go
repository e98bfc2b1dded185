package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/wegman-software/osm2geojson-go/internal/overpass"
	"github.com/wegman-software/osm2geojson-go/internal/style"
)

const sampleResponse = `{
  "generator": "Overpass API",
  "elements": [
    {"type": "node", "id": 1, "lat": 52.5, "lon": 13.4},
    {"type": "way", "id": 2, "geometry": [
      {"lat": 52.1, "lon": 13.1}, {"lat": 52.2, "lon": 13.2}
    ]}
  ]
}`

func TestOverpassFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleResponse))
	}))
	defer srv.Close()

	src := NewOverpass(overpass.New(srv.URL), "", "", nil)
	set, err := src.Fetch(context.Background(), style.Filter{Key: "amenity"})
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	nodes, ways, _ := set.Counts()
	if nodes != 1 || ways != 1 {
		t.Errorf("counts = %d nodes, %d ways", nodes, ways)
	}
}

func TestOverpassDegradesOnServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	src := NewOverpass(overpass.New(srv.URL), "", "", nil)
	set, err := src.Fetch(context.Background(), style.Filter{Key: "amenity"})
	if err != nil {
		t.Fatalf("server error must degrade, got %v", err)
	}
	if !set.Empty() {
		t.Errorf("expected empty set, got %+v", set)
	}
}

func TestOverpassDegradesOnUnreachableEndpoint(t *testing.T) {
	// Closed server: connection refused.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	src := NewOverpass(overpass.New(srv.URL), "", "", nil)
	set, err := src.Fetch(context.Background(), style.Filter{Key: "amenity"})
	if err != nil {
		t.Fatalf("transport error must degrade, got %v", err)
	}
	if !set.Empty() {
		t.Errorf("expected empty set, got %+v", set)
	}
}

func TestOverpassMalformedBodyIsFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"elements": "not an array"}`))
	}))
	defer srv.Close()

	src := NewOverpass(overpass.New(srv.URL), "", "", nil)
	if _, err := src.Fetch(context.Background(), style.Filter{Key: "amenity"}); err == nil {
		t.Error("malformed response body must be a hard error")
	}
}

func TestOverpassCancellationPropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleResponse))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := NewOverpass(overpass.New(srv.URL), "", "", nil)
	if _, err := src.Fetch(ctx, style.Filter{Key: "amenity"}); err == nil {
		t.Error("cancelled context must not degrade to an empty set")
	}
}
