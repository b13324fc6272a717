package model

import (
	"math"
	"testing"
)

func TestRepoweringWindowFor(t *testing.T) {
	tests := []struct {
		name  string
		years float64
		want  RepoweringWindow
	}{
		{name: "long expired", years: -3, want: WindowExpired},
		{name: "expires today", years: 0, want: WindowExpired},
		{name: "just inside immediate", years: 0.01, want: WindowImmediate},
		{name: "immediate upper edge", years: 2, want: WindowImmediate},
		{name: "just inside urgent", years: 2.0001, want: WindowUrgent},
		{name: "urgent upper edge", years: 5, want: WindowUrgent},
		{name: "optimal", years: 7.5, want: WindowOptimal},
		{name: "optimal upper edge", years: 10, want: WindowOptimal},
		{name: "planning", years: 10.5, want: WindowPlanning},
		{name: "positive infinity", years: math.Inf(1), want: WindowPlanning},
		{name: "negative infinity", years: math.Inf(-1), want: WindowExpired},
		{name: "nan", years: math.NaN(), want: WindowExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RepoweringWindowFor(tt.years)
			if got != tt.want {
				t.Errorf("RepoweringWindowFor(%v) = %s, want %s", tt.years, got, tt.want)
			}
			if again := RepoweringWindowFor(tt.years); again != got {
				t.Errorf("RepoweringWindowFor(%v) not deterministic: %s then %s", tt.years, got, again)
			}
		})
	}
}

// Every sampled value must land in exactly one window, and that window's
// bounds must contain it.
func TestRepoweringWindowPartition(t *testing.T) {
	windows := []RepoweringWindow{WindowExpired, WindowImmediate, WindowUrgent, WindowOptimal, WindowPlanning}
	for y := -20.0; y <= 30.0; y += 0.25 {
		matches := 0
		for _, w := range windows {
			lo, hi := w.Bounds()
			inside := (lo == nil || y > *lo) && (hi == nil || y <= *hi)
			if inside {
				matches++
				if got := RepoweringWindowFor(y); got != w {
					t.Errorf("years %v: bounds say %s, function says %s", y, w, got)
				}
			}
		}
		if matches != 1 {
			t.Errorf("years %v matched %d windows, want exactly 1", y, matches)
		}
	}
}

func TestYearsBoundContains(t *testing.T) {
	upper := 3.0
	b := YearsBound{Max: &upper}
	if !b.Contains(3) {
		t.Error("expected upper bound to be inclusive")
	}
	if b.Contains(3.1) {
		t.Error("expected 3.1 to be outside a max of 3")
	}
}
