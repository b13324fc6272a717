package model

import "slices"

// SortKey names a deterministic ordering the search collaborator must apply
type SortKey string

const (
	SortCapacityDesc       SortKey = "capacity_desc"
	SortCapacityAsc        SortKey = "capacity_asc"
	SortYearsRemainingAsc  SortKey = "years_remaining_asc"
	SortDistanceFromTarget SortKey = "distance_from_target"
	SortDistanceFromCenter SortKey = "distance_from_center"
)

// SortDirective is a sort key plus its reference value where one is needed
type SortDirective struct {
	Key      SortKey  `json:"key"`
	TargetKW *float64 `json:"target_kw,omitempty"`
}

// SortByDistanceFrom orders by |capacity - target|, closest first
func SortByDistanceFrom(targetKW float64) *SortDirective {
	return &SortDirective{Key: SortDistanceFromTarget, TargetKW: &targetKW}
}

// Field is an output column the user asked to see
type Field string

const (
	FieldCapacity    Field = "capacity"
	FieldPostcode    Field = "postcode"
	FieldExpiry      Field = "expiry"
	FieldIncome      Field = "income"
	FieldCoordinates Field = "coordinates"
	FieldDescription Field = "description"
)

// FieldSet is a sorted set of requested fields. Empty means the default projection.
type FieldSet []Field

// Add inserts f keeping the set sorted and unique
func (s FieldSet) Add(f Field) FieldSet {
	if slices.Contains(s, f) {
		return s
	}
	s = append(s, f)
	slices.Sort(s)
	return s
}

// Has reports whether f is requested
func (s FieldSet) Has(f Field) bool {
	return slices.Contains(s, f)
}

// FilterSpec is the canonical compiled query. It is the only artifact handed to
// the search collaborator.
type FilterSpec struct {
	Technology          *Technology       `json:"technology,omitempty"`
	CompareTechnologies []Technology      `json:"compare_technologies,omitempty"`
	Capacity            *CapacityBound    `json:"capacity,omitempty"`
	Location            *LocationSpec     `json:"location,omitempty"`
	Window              *RepoweringWindow `json:"window,omitempty"`
	YearsRemaining      *YearsBound       `json:"years_remaining,omitempty"`
	Identifier          *string           `json:"identifier,omitempty"`
	Sort                *SortDirective    `json:"sort,omitempty"`
	Limit               *int              `json:"limit,omitempty"`
	RequestedFields     FieldSet          `json:"requested_fields,omitempty"`
}

// IsEmpty reports whether the filter constrains nothing
func (f *FilterSpec) IsEmpty() bool {
	return f == nil || (f.Technology == nil && len(f.CompareTechnologies) == 0 && f.Capacity == nil &&
		f.Location == nil && f.Window == nil && f.YearsRemaining == nil && f.Identifier == nil)
}

// Clone returns a deep copy so sessions never share mutable state with callers
func (f *FilterSpec) Clone() *FilterSpec {
	if f == nil {
		return nil
	}
	out := *f
	if f.Technology != nil {
		t := *f.Technology
		out.Technology = &t
	}
	out.CompareTechnologies = slices.Clone(f.CompareTechnologies)
	if f.Capacity != nil {
		c := cloneCapacity(*f.Capacity)
		out.Capacity = &c
	}
	if f.Location != nil {
		l := *f.Location
		l.PostcodePrefixes = slices.Clone(f.Location.PostcodePrefixes)
		if f.Location.Center != nil {
			c := *f.Location.Center
			l.Center = &c
		}
		out.Location = &l
	}
	if f.Window != nil {
		w := *f.Window
		out.Window = &w
	}
	if f.YearsRemaining != nil {
		y := YearsBound{Min: cloneFloat(f.YearsRemaining.Min), Max: cloneFloat(f.YearsRemaining.Max)}
		out.YearsRemaining = &y
	}
	if f.Identifier != nil {
		id := *f.Identifier
		out.Identifier = &id
	}
	if f.Sort != nil {
		s := SortDirective{Key: f.Sort.Key, TargetKW: cloneFloat(f.Sort.TargetKW)}
		out.Sort = &s
	}
	if f.Limit != nil {
		n := *f.Limit
		out.Limit = &n
	}
	out.RequestedFields = slices.Clone(f.RequestedFields)
	return &out
}

func cloneCapacity(c CapacityBound) CapacityBound {
	return CapacityBound{
		MinKW:       cloneFloat(c.MinKW),
		MaxKW:       cloneFloat(c.MaxKW),
		TargetKW:    cloneFloat(c.TargetKW),
		ToleranceKW: c.ToleranceKW,
	}
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	x := *v
	return &x
}
