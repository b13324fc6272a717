package geo

import (
	"regexp"
	"slices"
	"strings"
)

// PostcodeKind is the structural classification of a token
type PostcodeKind int

const (
	NotPostcode PostcodeKind = iota
	OutcodeOnly
	CompletePostcode
)

func (k PostcodeKind) String() string {
	switch k {
	case OutcodeOnly:
		return "outcode"
	case CompletePostcode:
		return "complete"
	}
	return "none"
}

// Postcode is a parsed UK postcode. Incode is empty for outcode-only input.
type Postcode struct {
	Area    string
	Outcode string
	Incode  string
}

// String renders the canonical spaced form ("YO17 7AB" or "YO17")
func (p Postcode) String() string {
	if p.Incode == "" {
		return p.Outcode
	}
	return p.Outcode + " " + p.Incode
}

// UK postcode grammar. The incode letters exclude C, I, K, M, O and V.
var (
	reOutcode  = regexp.MustCompile(`^([A-Z]{1,2})(\d[A-Z\d]?)$`)
	reComplete = regexp.MustCompile(`^([A-Z]{1,2}\d[A-Z\d]?)\s*(\d[ABD-HJLNP-UW-Z]{2})$`)

	// rePostcodeInText finds postcodes inside free text; the incode is optional.
	rePostcodeInText = regexp.MustCompile(`(?i)\b([a-z]{1,2}\d[a-z\d]?)(?:\s*(\d[abd-hjlnp-uw-z]{2}))?\b`)
)

// postcodeAreas is the set of live UK postcode areas
var postcodeAreas = []string{
	"AB", "AL", "B", "BA", "BB", "BD", "BH", "BL", "BN", "BR", "BS", "BT",
	"CA", "CB", "CF", "CH", "CM", "CO", "CR", "CT", "CV", "CW",
	"DA", "DD", "DE", "DG", "DH", "DL", "DN", "DT", "DY",
	"E", "EC", "EH", "EN", "EX", "FK", "FY", "G", "GL", "GU", "GY",
	"HA", "HD", "HG", "HP", "HR", "HS", "HU", "HX", "IG", "IM", "IP", "IV",
	"JE", "KA", "KT", "KW", "KY", "L", "LA", "LD", "LE", "LL", "LN", "LS", "LU",
	"M", "ME", "MK", "ML", "N", "NE", "NG", "NN", "NP", "NR", "NW",
	"OL", "OX", "PA", "PE", "PH", "PL", "PO", "PR",
	"RG", "RH", "RM", "S", "SA", "SE", "SG", "SK", "SL", "SM", "SN", "SO", "SP", "SR", "SS", "ST", "SW", "SY",
	"TA", "TD", "TF", "TN", "TQ", "TR", "TS", "TW", "UB",
	"W", "WA", "WC", "WD", "WF", "WN", "WR", "WS", "WV", "YO", "ZE",
}

// IsPostcodeArea reports whether area is a live UK postcode area
func IsPostcodeArea(area string) bool {
	_, found := slices.BinarySearch(postcodeAreas, strings.ToUpper(area))
	return found
}

// ParsePostcode classifies token against the UK postcode grammar before any lookup.
func ParsePostcode(token string) (Postcode, PostcodeKind) {
	s := strings.ToUpper(strings.TrimSpace(token))
	if m := reComplete.FindStringSubmatch(s); m != nil {
		area := areaOf(m[1])
		if IsPostcodeArea(area) {
			return Postcode{Area: area, Outcode: m[1], Incode: m[2]}, CompletePostcode
		}
		return Postcode{}, NotPostcode
	}
	if m := reOutcode.FindStringSubmatch(s); m != nil {
		if IsPostcodeArea(m[1]) {
			return Postcode{Area: m[1], Outcode: s}, OutcodeOnly
		}
	}
	return Postcode{}, NotPostcode
}

// PostcodeMatch is a postcode found in free text with its byte span
type PostcodeMatch struct {
	Postcode Postcode
	Kind     PostcodeKind
	Start    int
	End      int
}

// FindPostcodes returns every grammatical postcode in text, left to right.
func FindPostcodes(text string) []PostcodeMatch {
	var out []PostcodeMatch
	for _, loc := range rePostcodeInText.FindAllStringSubmatchIndex(text, -1) {
		raw := text[loc[0]:loc[1]]
		pc, kind := ParsePostcode(raw)
		if kind == NotPostcode {
			continue
		}
		out = append(out, PostcodeMatch{Postcode: pc, Kind: kind, Start: loc[0], End: loc[1]})
	}
	return out
}

// PostcodeArea returns the leading letters of a postcode ("SL6 1AA" -> "SL").
func PostcodeArea(postcode string) string {
	return areaOf(strings.ToUpper(strings.TrimSpace(postcode)))
}

// PostcodeOutcode returns the outward code of a stored postcode, spaced or not.
func PostcodeOutcode(postcode string) string {
	s := strings.ToUpper(strings.TrimSpace(postcode))
	if pc, kind := ParsePostcode(s); kind != NotPostcode {
		return pc.Outcode
	}
	if i := strings.IndexByte(s, ' '); i > 0 {
		return s[:i]
	}
	return s
}

// InAreas is the region membership test: area equality, never distance.
// Matching on the whole area keeps "S" from swallowing "SL".
func InAreas(postcode string, areas []string) bool {
	area := PostcodeArea(postcode)
	if area == "" {
		return false
	}
	for _, a := range areas {
		if strings.EqualFold(a, area) {
			return true
		}
	}
	return false
}

func areaOf(s string) string {
	i := 0
	for i < len(s) && s[i] >= 'A' && s[i] <= 'Z' {
		i++
	}
	return s[:i]
}
