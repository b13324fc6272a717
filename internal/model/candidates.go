package model

// Span is a half-open byte range [Start, End) in the normalized query text
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Overlaps reports whether two spans share at least one byte
func (s Span) Overlaps(o Span) bool {
	return s.Start < o.End && o.Start < s.End
}

// CandidateField names one slot of EntityCandidates
type CandidateField string

const (
	SlotTechnology     CandidateField = "technology"
	SlotCapacity       CandidateField = "capacity"
	SlotLocation       CandidateField = "location"
	SlotWindow         CandidateField = "window"
	SlotYearsRemaining CandidateField = "years_remaining"
	SlotIdentifier     CandidateField = "identifier"
	SlotSort           CandidateField = "sort"
	SlotLimit          CandidateField = "limit"
	SlotRequested      CandidateField = "requested_fields"
)

// TechnologyCandidate is a synonym already normalized to the canonical enum
type TechnologyCandidate struct {
	Value Technology `json:"value"`
	Token string     `json:"token"`
	Span  Span       `json:"span"`
}

// CapacityCandidate holds kW values; MW input has already been converted
type CapacityCandidate struct {
	MinKW       *float64 `json:"min_kw,omitempty"`
	MaxKW       *float64 `json:"max_kw,omitempty"`
	TargetKW    *float64 `json:"target_kw,omitempty"`
	ToleranceKW float64  `json:"tolerance_kw,omitempty"`
	Token       string   `json:"token"`
}

// LocationCandidateKind tells the compiler how to resolve a location token
type LocationCandidateKind string

const (
	CandidatePostcode LocationCandidateKind = "postcode"
	CandidatePlace    LocationCandidateKind = "place"
	CandidateRadius   LocationCandidateKind = "radius"
)

// LocationCandidate is an unresolved location mention, or a carried-forward spec
type LocationCandidate struct {
	Kind LocationCandidateKind `json:"kind"`
	// Token is the place or postcode text; for a radius it is the centre and may be empty
	Token    string  `json:"token"`
	Outcode  string  `json:"outcode,omitempty"`
	Incode   string  `json:"incode,omitempty"`
	RadiusKM float64 `json:"radius_km,omitempty"`
	Span     Span    `json:"span"`

	// Resolved is set when the candidate was carried forward from a compiled filter
	Resolved *LocationSpec `json:"resolved,omitempty"`
}

// IdentifierCandidate is a possible installation identifier
type IdentifierCandidate struct {
	Value string `json:"value"`
	// Keyword is true when the digits followed "id", "fit" or "installation"
	Keyword bool `json:"keyword"`
	Span    Span `json:"span"`
}

// EntityCandidates is everything the extractor found in one turn. Absent slots are nil.
type EntityCandidates struct {
	Technology         *TechnologyCandidate `json:"technology,omitempty"`
	TechnologyMentions []Technology         `json:"technology_mentions,omitempty"`
	UnknownTechnology  string               `json:"unknown_technology,omitempty"`

	Capacity  *CapacityCandidate  `json:"capacity,omitempty"`
	Locations []LocationCandidate `json:"locations,omitempty"`

	Windows        []RepoweringWindow `json:"windows,omitempty"`
	YearsRemaining *YearsBound        `json:"years_remaining,omitempty"`

	Identifier *IdentifierCandidate `json:"identifier,omitempty"`

	Sort   *SortDirective `json:"sort,omitempty"`
	Limit  *int           `json:"limit,omitempty"`
	Fields FieldSet       `json:"fields,omitempty"`

	// CompareTechnologies is filled by the merger for comparative turns
	CompareTechnologies []Technology `json:"compare_technologies,omitempty"`

	// Carried marks slots that came from the session's previous filter
	Carried map[CandidateField]bool `json:"carried,omitempty"`
}

// IsCarried reports whether the slot was inherited from a previous turn
func (c *EntityCandidates) IsCarried(f CandidateField) bool {
	return c.Carried != nil && c.Carried[f]
}

// MarkCarried flags a slot as inherited
func (c *EntityCandidates) MarkCarried(f CandidateField) {
	if c.Carried == nil {
		c.Carried = make(map[CandidateField]bool)
	}
	c.Carried[f] = true
}

// HasFilterFields reports whether the turn constrains anything other than location
func (c *EntityCandidates) HasFilterFields() bool {
	return c.Technology != nil || c.Capacity != nil || len(c.Windows) > 0 ||
		c.YearsRemaining != nil || c.Identifier != nil || c.UnknownTechnology != ""
}
