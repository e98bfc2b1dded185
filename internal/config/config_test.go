package config

import (
	"strings"
	"testing"
)

func TestParseBBox(t *testing.T) {
	bbox, err := ParseBBox("13.0,52.3,13.8,52.7")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if !bbox.IsSet || bbox.MinLon != 13.0 || bbox.MaxLat != 52.7 {
		t.Errorf("bbox = %+v", bbox)
	}

	if !bbox.Contains(52.5, 13.4) {
		t.Error("point inside reported outside")
	}
	if bbox.Contains(51.0, 13.4) {
		t.Error("point outside reported inside")
	}

	if got := bbox.OverpassString(); got != "52.3,13,52.7,13.8" {
		t.Errorf("overpass string = %q", got)
	}
}

func TestParseBBoxEmpty(t *testing.T) {
	bbox, err := ParseBBox("")
	if err != nil {
		t.Fatal(err)
	}
	if bbox.IsSet {
		t.Error("empty string must produce an unset bbox")
	}
	if !bbox.Contains(0, 0) {
		t.Error("unset bbox must contain everything")
	}
	if bbox.OverpassString() != "" {
		t.Error("unset bbox must render empty")
	}
}

func TestParseBBoxErrors(t *testing.T) {
	cases := []string{
		"1,2,3",         // too few
		"1,2,3,4,5",     // too many
		"a,2,3,4",       // not a number
		"10,2,3,4",      // minlon > maxlon
		"1,50,3,40",     // minlat > maxlat
	}
	for _, s := range cases {
		if _, err := ParseBBox(s); err == nil {
			t.Errorf("ParseBBox(%q) accepted", s)
		}
	}
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.JobFile = "job.yaml"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config with job file invalid: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing job file", func(c *Config) { c.JobFile = "" }, "job file"},
		{"zero workers", func(c *Config) { c.Workers = 0 }, "workers"},
		{"negative epsilon", func(c *Config) { c.Epsilon = -1 }, "epsilon"},
		{"negative buffer", func(c *Config) { c.Buffer = -1 }, "buffer"},
		{"bad utm zone", func(c *Config) { c.UTMZone = 61 }, "utm zone"},
		{"zero batch size", func(c *Config) { c.BatchSize = 0 }, "batch size"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.JobFile = "job.yaml"
			tc.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Errorf("err = %v, want mention of %q", err, tc.want)
			}
		})
	}
}

func TestConnectionString(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DBPassword = "secret"
	s := cfg.ConnectionString()
	if !strings.Contains(s, "host=localhost") || !strings.Contains(s, "password=secret") {
		t.Errorf("connection string = %q", s)
	}
}
