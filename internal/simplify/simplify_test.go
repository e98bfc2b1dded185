package simplify

import (
	"math"
	"reflect"
	"testing"

	"github.com/wegman-software/osm2geojson-go/internal/coordset"
)

func line(pts ...[2]float64) coordset.Polyline {
	out := make(coordset.Polyline, len(pts))
	for i, p := range pts {
		out[i] = coordset.Coordinate{p[0], p[1]}
	}
	return out
}

func TestShortPolylinesUnchanged(t *testing.T) {
	// Up to 4 points is the terminal case and must come back as-is.
	cases := []coordset.Polyline{
		{},
		line([2]float64{1, 2}),
		line([2]float64{1, 2}, [2]float64{3, 4}),
		line([2]float64{1, 2}, [2]float64{3, 4}, [2]float64{5, 0}),
		line([2]float64{1, 2}, [2]float64{3, 4}, [2]float64{5, 0}, [2]float64{7, 9}),
	}
	for _, in := range cases {
		got := Polyline(in, 0.5)
		if !reflect.DeepEqual(got, in.Clone()) {
			t.Errorf("Polyline(%v) = %v, want unchanged", in, got)
		}
	}
}

func TestDoesNotMutateInput(t *testing.T) {
	in := line([2]float64{0, 0}, [2]float64{1, 5}, [2]float64{2, -3}, [2]float64{3, 4}, [2]float64{4, 0}, [2]float64{5, 1})
	orig := in.Clone()
	Polyline(in, 0.1)
	if !reflect.DeepEqual(in, orig) {
		t.Errorf("input mutated: %v != %v", in, orig)
	}
}

func TestCollinearCollapsesToFourPoints(t *testing.T) {
	// All interior distances are 0, so dmax <= epsilon for any epsilon >= 0
	// and the fixed four-point form is returned. With dmax = 0 the max index
	// stays 0, so the form is [p0, p0, p[end/2], p[end]].
	in := line([2]float64{0, 0}, [2]float64{1, 1}, [2]float64{2, 2}, [2]float64{3, 3}, [2]float64{4, 4}, [2]float64{5, 5})

	for _, epsilon := range []float64{0, 0.001, 10} {
		got := Polyline(in, epsilon)
		want := coordset.Polyline{in[0], in[0], in[2], in[5]}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("epsilon=%v: got %v, want %v", epsilon, got, want)
		}
	}
}

func TestDegenerateChordDistanceIsZero(t *testing.T) {
	// Closed loop: first == last, so every interior distance is defined as 0
	// and the four-point form applies.
	in := line([2]float64{1, 1}, [2]float64{5, 1}, [2]float64{5, 5}, [2]float64{1, 5}, [2]float64{1, 1})
	got := Polyline(in, 0)
	want := coordset.Polyline{in[0], in[0], in[2], in[4]}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestDominantPointSplit(t *testing.T) {
	// The far point at (3,0) has the maximum chord distance, forcing a split
	// there; both halves are then at or below four points and come back
	// unchanged, so the overall result keeps all five points.
	in := line([2]float64{0, 0}, [2]float64{1, 0.01}, [2]float64{2, -0.01}, [2]float64{3, 0}, [2]float64{4, 5})
	got := Polyline(in, 0.05)
	if !reflect.DeepEqual(got, in.Clone()) {
		t.Errorf("got %v, want %v", got, in)
	}
	if got[0] != in[0] || got[len(got)-1] != in[len(in)-1] {
		t.Errorf("endpoints not preserved: %v", got)
	}
}

func TestNearCollinearRunCollapses(t *testing.T) {
	// Six near-collinear points followed by an outlier: the split at the
	// outlier leaves a >4 point left half whose interior is within epsilon,
	// which collapses to the four-point form.
	in := line(
		[2]float64{0, 0}, [2]float64{1, 0.01}, [2]float64{2, -0.01},
		[2]float64{3, 0.02}, [2]float64{4, -0.02}, [2]float64{5, 0},
		[2]float64{6, 8},
	)
	got := Polyline(in, 0.1)

	// Split happens at (6,8)'s neighbor with max distance; the left run of
	// near-collinear points must shrink.
	if len(got) >= len(in) {
		t.Fatalf("expected reduction, got %d of %d points: %v", len(got), len(in), got)
	}
	if got[0] != in[0] || got[len(got)-1] != in[len(in)-1] {
		t.Errorf("endpoints not preserved: %v", got)
	}
}

func TestPivotNotDuplicated(t *testing.T) {
	// Zigzag forcing several recursive splits; shared pivots must appear once.
	in := line(
		[2]float64{0, 0}, [2]float64{1, 4}, [2]float64{2, -4}, [2]float64{3, 4},
		[2]float64{4, -4}, [2]float64{5, 4}, [2]float64{6, 0},
	)
	got := Polyline(in, 0.5)
	for i := 1; i < len(got); i++ {
		if got[i] == got[i-1] {
			t.Errorf("consecutive duplicate at %d: %v", i, got)
		}
	}
}

func TestZeroEpsilonConvergesToFixedPoint(t *testing.T) {
	in := line(
		[2]float64{0, 0}, [2]float64{1, 0.3}, [2]float64{2, -0.2}, [2]float64{3, 0.7},
		[2]float64{4, -0.5}, [2]float64{5, 0.1}, [2]float64{6, 0.9}, [2]float64{7, 0},
		[2]float64{8, 0.4}, [2]float64{9, -0.3}, [2]float64{10, 0},
	)

	cur := Polyline(in, 0)
	for i := 0; i < 50; i++ {
		next := Polyline(cur, 0)
		if reflect.DeepEqual(next, cur) {
			// Fixed point reached; one more application must be a no-op too.
			again := Polyline(next, 0)
			if !reflect.DeepEqual(again, next) {
				t.Fatalf("fixed point not stable: %v -> %v", next, again)
			}
			if len(next) > len(in) {
				t.Fatalf("fixed point longer than input: %d > %d", len(next), len(in))
			}
			return
		}
		cur = next
	}
	t.Fatalf("did not converge after 50 iterations, last %v", cur)
}

func TestTieBreakFirstOccurrence(t *testing.T) {
	// Two interior points at the same distance from the chord; the first
	// must be chosen as the pivot. With epsilon large enough to stop the
	// recursion, the four-point form exposes the chosen index.
	in := line(
		[2]float64{0, 0}, [2]float64{1, 1}, [2]float64{2, 0}, [2]float64{3, -1},
		[2]float64{4, 0}, [2]float64{5, 0},
	)
	// dmax = 1 at indexes 1 and 3; index must be 1.
	got := Polyline(in, 1.0)
	end := len(in) - 1
	want := coordset.Polyline{in[0], in[1/2], in[(1+end)/2], in[end]}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v (pivot index 1)", got, want)
	}
}

func TestSetDispatch(t *testing.T) {
	nodes := []coordset.Coordinate{{1, 2}, {3, 4}}
	longWay := line(
		[2]float64{0, 0}, [2]float64{1, 0.001}, [2]float64{2, -0.001},
		[2]float64{3, 0.001}, [2]float64{4, 0}, [2]float64{5, 0.001}, [2]float64{6, 0},
	)
	s := coordset.Set{
		Nodes:     nodes,
		Ways:      []coordset.Polyline{longWay, line([2]float64{0, 0}, [2]float64{1, 1})},
		Relations: []coordset.Polyline{longWay.Clone()},
	}

	got := Set(s, 0.01)

	if !reflect.DeepEqual(got.Nodes, nodes) {
		t.Errorf("nodes changed: %v", got.Nodes)
	}
	if len(got.Ways) != 2 || len(got.Relations) != 1 {
		t.Fatalf("structure not preserved: %d ways, %d relations", len(got.Ways), len(got.Relations))
	}
	if len(got.Ways[0]) >= len(longWay) {
		t.Errorf("way not simplified: %d points", len(got.Ways[0]))
	}
	if !reflect.DeepEqual(got.Ways[1], s.Ways[1]) {
		t.Errorf("short way changed: %v", got.Ways[1])
	}
	if !reflect.DeepEqual(got.Relations[0], got.Ways[0]) {
		t.Errorf("relation simplified differently from identical way")
	}
	// Input set untouched
	if len(s.Ways[0]) != len(longWay) {
		t.Errorf("input mutated")
	}
}

func TestOutputDeviationWithinReason(t *testing.T) {
	// Every surviving point is an input point.
	in := make(coordset.Polyline, 0, 40)
	for i := 0; i < 40; i++ {
		x := float64(i)
		in = append(in, coordset.Coordinate{x, math.Sin(x / 3)})
	}
	got := Polyline(in, 0.2)

	seen := make(map[coordset.Coordinate]bool, len(in))
	for _, p := range in {
		seen[p] = true
	}
	for _, p := range got {
		if !seen[p] {
			t.Errorf("output point %v not in input", p)
		}
	}
	if len(got) >= len(in) {
		t.Errorf("no reduction: %d -> %d", len(in), len(got))
	}
}
