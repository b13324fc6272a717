package model

import (
	"slices"
	"strings"
)

// Coordinate is a WGS84 latitude/longitude pair in degrees
type Coordinate struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lon float64 `json:"lon" yaml:"lon"`
}

// LocationSource records how a location record was produced
type LocationSource string

const (
	SourceGazetteerExact           LocationSource = "gazetteer_exact"
	SourceGazetteerFuzzySuggestion LocationSource = "gazetteer_fuzzy_suggestion"
	SourcePostcodeLookup           LocationSource = "postcode_lookup"
)

// Accuracy tells radius consumers whether a centre is a real point or an area centroid
type Accuracy string

const (
	AccuracyExact       Accuracy = "exact"
	AccuracyApproximate Accuracy = "approximate"
)

// LocationRecord is a resolved place. It is immutable once produced for a turn.
type LocationRecord struct {
	CanonicalName string         `json:"canonical_name"`
	Outcode       string         `json:"outcode,omitempty"`
	Coordinate    Coordinate     `json:"coordinate"`
	Source        LocationSource `json:"source"`
	Accuracy      Accuracy       `json:"accuracy"`
	Confidence    float64        `json:"confidence"`
}

// LocationKind selects the active LocationSpec variant
type LocationKind string

const (
	LocationNamed         LocationKind = "named"
	LocationPostcodeExact LocationKind = "postcode_exact"
	LocationRadius        LocationKind = "radius"
)

// LocationSpec is a tagged union. Only the fields of the active Kind are populated;
// constructors below are the intended way to build one.
type LocationSpec struct {
	Kind LocationKind `json:"kind"`

	// Named
	RegionName       string   `json:"region_name,omitempty"`
	PostcodePrefixes []string `json:"postcode_prefixes,omitempty"`

	// PostcodeExact
	Outcode string `json:"outcode,omitempty"`
	Incode  string `json:"incode,omitempty"`

	// RadiusSearch
	Center     *Coordinate `json:"center,omitempty"`
	RadiusKM   float64     `json:"radius_km,omitempty"`
	CenterName string      `json:"center_name,omitempty"`
	Accuracy   Accuracy    `json:"accuracy,omitempty"`

	// Token is the normalized user text this location was resolved from
	Token string `json:"token,omitempty"`
}

// NamedLocation builds a region spec; prefixes are upper-cased, deduplicated and sorted
func NamedLocation(region string, prefixes []string, token string) LocationSpec {
	set := make([]string, 0, len(prefixes))
	for _, p := range prefixes {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p != "" && !slices.Contains(set, p) {
			set = append(set, p)
		}
	}
	slices.Sort(set)
	return LocationSpec{Kind: LocationNamed, RegionName: region, PostcodePrefixes: set, Token: token}
}

// PostcodeLocation builds an outcode or full-postcode spec
func PostcodeLocation(outcode, incode, token string) LocationSpec {
	return LocationSpec{
		Kind:    LocationPostcodeExact,
		Outcode: strings.ToUpper(outcode),
		Incode:  strings.ToUpper(incode),
		Token:   token,
	}
}

// RadiusLocation builds a radius spec around a resolved record
func RadiusLocation(center LocationRecord, radiusKM float64, token string) LocationSpec {
	c := center.Coordinate
	return LocationSpec{
		Kind:       LocationRadius,
		Center:     &c,
		RadiusKM:   radiusKM,
		CenterName: center.CanonicalName,
		Accuracy:   center.Accuracy,
		Token:      token,
	}
}

// Valid checks that exactly the fields of the active variant are set
func (l LocationSpec) Valid() bool {
	switch l.Kind {
	case LocationNamed:
		return l.RegionName != "" && len(l.PostcodePrefixes) > 0 &&
			l.Outcode == "" && l.Center == nil
	case LocationPostcodeExact:
		return l.Outcode != "" && len(l.PostcodePrefixes) == 0 && l.Center == nil
	case LocationRadius:
		return l.Center != nil && l.RadiusKM > 0 && len(l.PostcodePrefixes) == 0 && l.Outcode == ""
	}
	return false
}

// SameAs reports whether two specs select the same place, ignoring the source token
func (l LocationSpec) SameAs(other LocationSpec) bool {
	if l.Kind != other.Kind {
		return false
	}
	switch l.Kind {
	case LocationNamed:
		return strings.EqualFold(l.RegionName, other.RegionName) && slices.Equal(l.PostcodePrefixes, other.PostcodePrefixes)
	case LocationPostcodeExact:
		return l.Outcode == other.Outcode && l.Incode == other.Incode
	case LocationRadius:
		return l.Center != nil && other.Center != nil && *l.Center == *other.Center && l.RadiusKM == other.RadiusKM
	}
	return false
}

// Describe renders the location for logs and CLI output
func (l LocationSpec) Describe() string {
	switch l.Kind {
	case LocationNamed:
		return l.RegionName + " (" + strings.Join(l.PostcodePrefixes, ",") + ")"
	case LocationPostcodeExact:
		if l.Incode != "" {
			return l.Outcode + " " + l.Incode
		}
		return l.Outcode
	case LocationRadius:
		return "radius around " + l.CenterName
	}
	return ""
}
