package style

import (
	"os"
	"path/filepath"
	"testing"
)

func writeJob(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "job.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadJob(t *testing.T) {
	path := writeJob(t, `
area: '["ISO3166-1"="DE"][admin_level=2]'
epsilon: 0.001
buffer: 100
utm_zone: 33
filters:
  - key: amenity
    value: drinking_water
    properties:
      color: "#0055ff"
  - key: highway
    epsilon: 0.002
    buffer: 25
`)

	job, err := LoadJob(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if len(job.Filters) != 2 {
		t.Fatalf("got %d filters", len(job.Filters))
	}
	water := job.Filters[0]
	if water.Name() != "amenity_drinking_water" {
		t.Errorf("name = %q", water.Name())
	}
	if want := `"amenity"="drinking_water"`; water.Expression() != want {
		t.Errorf("expression = %q, want %q", water.Expression(), want)
	}
	if water.Properties["color"] != "#0055ff" {
		t.Errorf("properties = %v", water.Properties)
	}
	if job.EpsilonFor(water) != 0.001 || job.BufferFor(water) != 100 {
		t.Errorf("job-level settings not inherited")
	}

	highway := job.Filters[1]
	if highway.Expression() != `"highway"` {
		t.Errorf("keyless-value expression = %q", highway.Expression())
	}
	if job.EpsilonFor(highway) != 0.002 || job.BufferFor(highway) != 25 {
		t.Errorf("per-filter overrides ignored: eps=%v buf=%v",
			job.EpsilonFor(highway), job.BufferFor(highway))
	}
}

func TestJobValidation(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"no filters", `epsilon: 0.1`},
		{"empty key", "filters:\n  - value: x\n"},
		{"duplicate filter", "filters:\n  - key: amenity\n  - key: amenity\n"},
		{"negative epsilon", "epsilon: -1\nfilters:\n  - key: amenity\n"},
		{"negative buffer override", "filters:\n  - key: amenity\n    buffer: -5\n"},
		{"bad utm zone", "utm_zone: 61\nfilters:\n  - key: amenity\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := LoadJob(writeJob(t, tc.yaml)); err == nil {
				t.Errorf("expected validation error")
			}
		})
	}
}

func TestFilterMatches(t *testing.T) {
	keyOnly := Filter{Key: "amenity"}
	exact := Filter{Key: "amenity", Value: "school"}

	tags := map[string]string{"amenity": "school", "name": "x"}
	if !keyOnly.Matches(tags) || !exact.Matches(tags) {
		t.Error("expected both filters to match")
	}
	if exact.Matches(map[string]string{"amenity": "bench"}) {
		t.Error("value mismatch should not match")
	}
	if keyOnly.Matches(map[string]string{"highway": "primary"}) {
		t.Error("missing key should not match")
	}
}
