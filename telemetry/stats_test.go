package telemetry

import (
	"math"
	"testing"
)

func TestPercentile(t *testing.T) {
	tests := []struct {
		name   string
		sorted []float64
		p      float64
		want   float64
	}{
		{"empty slice", []float64{}, 0.5, 0},
		{"single element", []float64{5.0}, 0.5, 5.0},
		{"p0", []float64{1, 2, 3, 4, 5}, 0.0, 1.0},
		{"p100", []float64{1, 2, 3, 4, 5}, 1.0, 5.0},
		{"p50 odd", []float64{1, 2, 3, 4, 5}, 0.5, 3.0},
		{"p50 even", []float64{1, 2, 3, 4}, 0.5, 2.5},
		{"p90", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 0.9, 9.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Percentile(tt.sorted, tt.p)
			if math.Abs(got-tt.want) > 0.001 {
				t.Errorf("Percentile(%v, %v) = %v, want %v", tt.sorted, tt.p, got, tt.want)
			}
		})
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize([]float64{4, 2, 8, 6})

	if s.N != 4 || s.Max != 8 {
		t.Errorf("n %d max %v", s.N, s.Max)
	}
	if math.Abs(s.Mean-5) > 1e-9 {
		t.Errorf("mean = %v, want 5", s.Mean)
	}
	// sample standard deviation of 2,4,6,8
	if math.Abs(s.Std-math.Sqrt(20.0/3)) > 1e-9 {
		t.Errorf("std = %v", s.Std)
	}
	if math.Abs(s.P50-5) > 1e-9 {
		t.Errorf("p50 = %v, want 5", s.P50)
	}

	if got := Summarize(nil); got != (Summary{}) {
		t.Errorf("empty summary = %+v", got)
	}
	if got := Summarize([]float64{3}); got.Mean != 3 || got.Std != 0 {
		t.Errorf("single value summary = %+v", got)
	}
}
