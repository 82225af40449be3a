package compute

import (
	"testing"

	"github.com/trendrank/trendrank/pkg/types"
)

// --- Aggregate() table-driven tests ---

func TestAggregate(t *testing.T) {
	tests := []struct {
		name   string
		series []float64
		want   int
	}{
		{"nil series scores zero", nil, 0},
		{"empty series scores zero", []float64{}, 0},
		{"single value", []float64{42}, 42},
		{"exact mean", []float64{10, 20, 30}, 20},
		{"rounds to nearest", []float64{10, 11, 11}, 11},        // 10.67 → 11
		{"rounds down below half", []float64{50, 50, 50, 51}, 50}, // 50.25 → 50
		{"half goes to even (down)", []float64{2, 3}, 2},       // 2.5 → 2
		{"half goes to even (up)", []float64{3, 4}, 4},         // 3.5 → 4
		{"all zeros", []float64{0, 0, 0, 0}, 0},
		{"full scale", []float64{100, 100}, 100},
		{"out of range clamped high", []float64{150, 150}, 100},
		{"out of range clamped low", []float64{-10}, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Aggregate(tc.series); got != tc.want {
				t.Errorf("Aggregate(%v) = %d, want %d", tc.series, got, tc.want)
			}
		})
	}
}

func TestAggregate_ScoreInRange(t *testing.T) {
	// Property test: any series of bounded provider values stays in [0, 100].
	cases := [][]float64{
		{0, 100},
		{99.5, 99.5, 99.5},
		{0.4},
		{1, 2, 3, 4, 5, 6, 7, 8, 9, 100},
	}
	for _, series := range cases {
		got := Aggregate(series)
		if got < MinScore || got > MaxScore {
			t.Errorf("Aggregate(%v) = %d, out of [0,100]", series, got)
		}
	}
}

// --- Momentum() ---

func TestMomentum_Boundaries(t *testing.T) {
	tests := []struct {
		score int
		want  string
	}{
		{100, types.MomentumRising},
		{71, types.MomentumRising},
		{70, types.MomentumPopular},
		{55, types.MomentumPopular},
		{40, types.MomentumPopular},
		{39, types.MomentumNiche},
		{0, types.MomentumNiche},
	}
	for _, tc := range tests {
		if got := Momentum(tc.score); got != tc.want {
			t.Errorf("Momentum(%d) = %q, want %q", tc.score, got, tc.want)
		}
	}
}

func TestMomentum_Exhaustive(t *testing.T) {
	for s := MinScore; s <= MaxScore; s++ {
		got := Momentum(s)
		var want string
		switch {
		case s > 70:
			want = types.MomentumRising
		case s >= 40:
			want = types.MomentumPopular
		default:
			want = types.MomentumNiche
		}
		if got != want {
			t.Fatalf("Momentum(%d) = %q, want %q", s, got, want)
		}
	}
}

func TestScore(t *testing.T) {
	rec := Score("Pottery", []float64{60, 70, 80})
	if rec.Name != "Pottery" {
		t.Errorf("Name = %q, want Pottery", rec.Name)
	}
	if rec.TrendScore != 70 {
		t.Errorf("TrendScore = %d, want 70", rec.TrendScore)
	}
}

// --- clampScore ---

func TestClampScore(t *testing.T) {
	tests := []struct{ in, want int }{
		{-1, 0}, {0, 0}, {50, 50}, {100, 100}, {101, 100},
	}
	for _, tc := range tests {
		if got := clampScore(tc.in); got != tc.want {
			t.Errorf("clampScore(%d) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
