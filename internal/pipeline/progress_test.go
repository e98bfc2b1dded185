package pipeline

import (
	"testing"
	"time"
)

func TestProgressCalculate(t *testing.T) {
	tracker := NewProgressTracker(200, "test batch")
	tracker.startTime = time.Now().Add(-10 * time.Second)

	p := tracker.Calculate(50)
	if p.Current != 50 || p.Total != 200 {
		t.Fatalf("progress = %+v", p)
	}
	if p.Percentage != 25 {
		t.Errorf("percentage = %v, want 25", p.Percentage)
	}
	// 50 elements in ~10s: throughput near 5/s, ETA near 30s.
	if p.Throughput < 4 || p.Throughput > 6 {
		t.Errorf("throughput = %v, want about 5", p.Throughput)
	}
	if p.ETA < 25*time.Second || p.ETA > 35*time.Second {
		t.Errorf("eta = %v, want about 30s", p.ETA)
	}
	if p.Description != "test batch" {
		t.Errorf("description = %q", p.Description)
	}
}

func TestProgressUnknownTotal(t *testing.T) {
	tracker := NewProgressTracker(0, "streaming")
	tracker.startTime = time.Now().Add(-2 * time.Second)

	p := tracker.Calculate(100)
	if p.Percentage != 0 || p.ETA != 0 {
		t.Errorf("unknown total must leave percentage and ETA zero: %+v", p)
	}
	if p.Throughput <= 0 {
		t.Errorf("throughput = %v, want positive", p.Throughput)
	}
}

func TestProgressComplete(t *testing.T) {
	tracker := NewProgressTracker(100, "done")
	tracker.startTime = time.Now().Add(-time.Second)

	p := tracker.Calculate(100)
	if p.Percentage != 100 {
		t.Errorf("percentage = %v, want 100", p.Percentage)
	}
	if p.ETA != 0 {
		t.Errorf("eta = %v, want 0 at completion", p.ETA)
	}
}

func TestFormatThroughput(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{12, "12/s"},
		{2_500, "2.5K/s"},
		{3_200_000, "3.2M/s"},
	}
	for _, tc := range cases {
		if got := FormatThroughput(tc.in); got != tc.want {
			t.Errorf("FormatThroughput(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
