package model

// DefaultCapacityToleranceKW is the window applied around a target capacity
const DefaultCapacityToleranceKW = 25.0

// CapacityBound is either an explicit range or a target value widened by a tolerance.
// After compilation a target bound always carries the derived MinKW/MaxKW as well.
type CapacityBound struct {
	MinKW       *float64 `json:"min_kw,omitempty"`
	MaxKW       *float64 `json:"max_kw,omitempty"`
	TargetKW    *float64 `json:"target_kw,omitempty"`
	ToleranceKW float64  `json:"tolerance_kw,omitempty"`
}

// IsTarget reports whether the bound came from a single value without a comparator
func (c CapacityBound) IsTarget() bool {
	return c.TargetKW != nil
}

// Contains reports whether kw satisfies the bound
func (c CapacityBound) Contains(kw float64) bool {
	if c.MinKW != nil && kw < *c.MinKW {
		return false
	}
	if c.MaxKW != nil && kw > *c.MaxKW {
		return false
	}
	return true
}

// Range returns the bound with target information removed
func (c CapacityBound) Range() CapacityBound {
	return CapacityBound{MinKW: c.MinKW, MaxKW: c.MaxKW}
}
