package model

import "math"

// RepoweringWindow classifies how soon an installation's subsidy expires
type RepoweringWindow string

const (
	WindowExpired   RepoweringWindow = "expired"
	WindowImmediate RepoweringWindow = "immediate"
	WindowUrgent    RepoweringWindow = "urgent"
	WindowOptimal   RepoweringWindow = "optimal"
	WindowPlanning  RepoweringWindow = "planning"
)

// Window thresholds in years remaining on subsidy. Upper bounds are inclusive.
const (
	immediateMaxYears = 2.0
	urgentMaxYears    = 5.0
	optimalMaxYears   = 10.0
)

// RepoweringWindowFor is the only place a window is derived from years remaining.
// Expired <= 0 < Immediate <= 2 < Urgent <= 5 < Optimal <= 10 < Planning.
// NaN is treated as expired so the function stays total.
func RepoweringWindowFor(yearsRemaining float64) RepoweringWindow {
	switch {
	case math.IsNaN(yearsRemaining) || yearsRemaining <= 0:
		return WindowExpired
	case yearsRemaining <= immediateMaxYears:
		return WindowImmediate
	case yearsRemaining <= urgentMaxYears:
		return WindowUrgent
	case yearsRemaining <= optimalMaxYears:
		return WindowOptimal
	default:
		return WindowPlanning
	}
}

// Valid reports whether w is a known window
func (w RepoweringWindow) Valid() bool {
	switch w {
	case WindowExpired, WindowImmediate, WindowUrgent, WindowOptimal, WindowPlanning:
		return true
	}
	return false
}

// Bounds returns the half-open interval (lower, upper] of years remaining covered by w.
// Open ends are reported as nil.
func (w RepoweringWindow) Bounds() (lower, upper *float64) {
	f := func(v float64) *float64 { return &v }
	switch w {
	case WindowExpired:
		return nil, f(0)
	case WindowImmediate:
		return f(0), f(immediateMaxYears)
	case WindowUrgent:
		return f(immediateMaxYears), f(urgentMaxYears)
	case WindowOptimal:
		return f(urgentMaxYears), f(optimalMaxYears)
	case WindowPlanning:
		return f(optimalMaxYears), nil
	}
	return nil, nil
}

// YearsBound is an explicit constraint on years remaining, e.g. "within 3 years"
type YearsBound struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// Contains reports whether years falls inside the bound (both ends inclusive)
func (b YearsBound) Contains(years float64) bool {
	if b.Min != nil && years < *b.Min {
		return false
	}
	if b.Max != nil && years > *b.Max {
		return false
	}
	return true
}
