package service

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"fitsearch/internal/geo"
	"fitsearch/internal/model"
	"fitsearch/internal/utils"
)

// Extraction runs as a fixed sequence of pattern tables over the normalized text.
// Every accepted match claims its byte span and later stages skip claimed spans,
// so the same digits are never bound twice. Order:
//
//	radius phrases, postcodes, capacity, subsidy years, sort and limit,
//	window keywords, technology, place names, requested fields, identifier.

const (
	numberPattern   = `(\d{1,3}(?:,\d{3})+(?:\.\d+)?|\d+(?:\.\d+)?)`
	powerUnit       = `(kwp|kw|mwp|mw|kilowatts?|megawatts?)`
	distanceUnit    = `(miles?|mi|kms?|kilomet(?:re|er)s?)`
	yearNumber      = `(\d+(?:\.\d+)?)`
	calendarYear    = `((?:19|20)\d\d)`
	maxUnknownWords = 3
)

var (
	// "within 10 miles of york", "5 km from yo17", "a 20 mile radius around leeds"
	reRadiusForward = regexp.MustCompile(`\b(?:(?:within|inside|up to|in) )?(?:an? )?` + numberPattern + ` ?` + distanceUnit + `(?: radius)? (?:of|from|around|round) `)
	// "near york within 10 miles", "make it 20 miles"
	reRadiusBare = regexp.MustCompile(`\b(?:(?:within|inside|up to|make it|expand(?: it)? to|widen(?: it)? to|extend(?: it)? to|in) )?(?:an? )?` + numberPattern + ` ?` + distanceUnit + `(?: radius)?\b`)
	// keyword that may introduce a place immediately before a bare radius
	rePlaceLead = regexp.MustCompile(`\b(?:near|around|in|of|from|at|close to) `)

	reCapacityRange  = regexp.MustCompile(`\b(?:between|from) ` + numberPattern + ` ?` + powerUnit + `? (?:and|to) ` + numberPattern + ` ?` + powerUnit + `\b`)
	reCapacityDashed = regexp.MustCompile(`\b` + numberPattern + ` ?` + powerUnit + `? ?(?:-|to) ?` + numberPattern + ` ?` + powerUnit + `\b`)
	reCapacityLower  = regexp.MustCompile(`(?:\b(?:over|above|more than|greater than|bigger than|larger than|at least|no less than|minimum(?: of)?|min|exceeding)|>=?) ?` + numberPattern + ` ?` + powerUnit + `\b`)
	reCapacityUpper  = regexp.MustCompile(`(?:\b(?:under|below|less than|smaller than|at most|no more than|up to|maximum(?: of)?|max)|<=?) ?` + numberPattern + ` ?` + powerUnit + `\b`)
	// Comparators with no unit read as kW: "over 5000", "between 100 and 200"
	reCapacityRangeBare = regexp.MustCompile(`\bbetween ` + numberPattern + ` and ` + numberPattern + `\b`)
	reCapacityLowerBare = regexp.MustCompile(`(?:\b(?:over|above|more than|greater than|bigger than|larger than|at least|no less than|minimum(?: of)?|exceeding)|>=?) ?` + numberPattern + `\b`)
	reCapacityUpperBare = regexp.MustCompile(`(?:\b(?:under|below|less than|smaller than|at most|no more than|maximum(?: of)?)|<=?) ?` + numberPattern + `\b`)
	reCapacityTarget    = regexp.MustCompile(`\b(?:(?:around|about|approximately|approx|roughly|circa|~) ?)?` + numberPattern + ` ?` + powerUnit + `\b(?: ?(?:\+/-|±|plus or minus) ?` + numberPattern + `(?: ?` + powerUnit + `)?)?`)

	reYearsWithin = regexp.MustCompile(`\b(?:within(?: the next)?|in the next|next|less than|under|fewer than) ` + yearNumber + ` years?(?: (?:left|remaining|to go))?\b`)
	reYearsOver   = regexp.MustCompile(`\b(?:more than|over|at least|beyond) ` + yearNumber + ` years? (?:left|remaining|to go)\b`)
	reYearBefore  = regexp.MustCompile(`\b(?:ending |expiring |expires |ends )?(before|by|until|till) ` + calendarYear + `\b`)
	reYearAfter   = regexp.MustCompile(`\b(?:ending |expiring |expires |ends )?(?:after|beyond) ` + calendarYear + `\b`)
	reBareYear    = regexp.MustCompile(`\b` + calendarYear + `\b`)

	reLimit      = regexp.MustCompile(`\b(?:top|first|best|show(?: me)?|list|give me) (\d{1,3})\b`)
	reLimitAfter = regexp.MustCompile(`\b(\d{1,3}) (?:results|matches|records)\b`)

	reIdentifierKeyword = regexp.MustCompile(`(?:\b(?:fit|installation|site|id)(?: (?:id|number|no\.?|ref))?\s*[#:]?\s*|#)(\d{4,8})\b`)
	reIdentifierBare    = regexp.MustCompile(`\b(\d{4,6})\b`)
)

type keywordRule[T any] struct {
	phrase string
	value  T
	re     *regexp.Regexp
}

func compileKeywords[T any](table map[string]T) []keywordRule[T] {
	rules := make([]keywordRule[T], 0, len(table))
	for phrase, v := range table {
		rules = append(rules, keywordRule[T]{
			phrase: phrase,
			value:  v,
			re:     regexp.MustCompile(`\b` + regexp.QuoteMeta(phrase) + `\b`),
		})
	}
	// Longer phrases first so "wind farm" beats "wind", then alphabetical for stability.
	sort.Slice(rules, func(i, j int) bool {
		if len(rules[i].phrase) != len(rules[j].phrase) {
			return len(rules[i].phrase) > len(rules[j].phrase)
		}
		return rules[i].phrase < rules[j].phrase
	})
	return rules
}

var technologySynonyms = compileKeywords(map[string]model.Technology{
	"wind":                    model.TechWind,
	"winds":                   model.TechWind,
	"windfarm":                model.TechWind,
	"windfarms":               model.TechWind,
	"wind farm":               model.TechWind,
	"wind farms":              model.TechWind,
	"wind turbine":            model.TechWind,
	"wind turbines":           model.TechWind,
	"wind power":              model.TechWind,
	"onshore wind":            model.TechWind,
	"turbine":                 model.TechWind,
	"turbines":                model.TechWind,
	"solar":                   model.TechPhotovoltaic,
	"solar pv":                model.TechPhotovoltaic,
	"solar panel":             model.TechPhotovoltaic,
	"solar panels":            model.TechPhotovoltaic,
	"solar farm":              model.TechPhotovoltaic,
	"solar farms":             model.TechPhotovoltaic,
	"pv":                      model.TechPhotovoltaic,
	"photovoltaic":            model.TechPhotovoltaic,
	"photovoltaics":           model.TechPhotovoltaic,
	"hydro":                   model.TechHydro,
	"hydropower":              model.TechHydro,
	"hydroelectric":           model.TechHydro,
	"hydro-electric":          model.TechHydro,
	"hydro electric":          model.TechHydro,
	"anaerobic":               model.TechAnaerobicDigestion,
	"anaerobic digestion":     model.TechAnaerobicDigestion,
	"anaerobic digester":      model.TechAnaerobicDigestion,
	"biogas":                  model.TechAnaerobicDigestion,
	"ad plant":                model.TechAnaerobicDigestion,
	"ad plants":               model.TechAnaerobicDigestion,
	"chp":                     model.TechMicroCHP,
	"micro chp":               model.TechMicroCHP,
	"micro-chp":               model.TechMicroCHP,
	"microchp":                model.TechMicroCHP,
	"combined heat and power": model.TechMicroCHP,
})

// Technology-shaped words that are not in the synonym table
var unknownTechnologies = compileKeywords(map[string]string{
	"geothermal":  "geothermal",
	"tidal":       "tidal",
	"biomass":     "biomass",
	"nuclear":     "nuclear",
	"wave power":  "wave power",
	"wave energy": "wave energy",
	"heat pump":   "heat pump",
	"heat pumps":  "heat pump",
	"battery":     "battery",
	"batteries":   "battery",
	"coal":        "coal",
})

var windowKeywords = compileKeywords(map[string]model.RepoweringWindow{
	"expiring soon":   model.WindowImmediate,
	"expire soon":     model.WindowImmediate,
	"expires soon":    model.WindowImmediate,
	"ending soon":     model.WindowImmediate,
	"immediate":       model.WindowImmediate,
	"immediately":     model.WindowImmediate,
	"urgent":          model.WindowUrgent,
	"urgently":        model.WindowUrgent,
	"optimal":         model.WindowOptimal,
	"ideal":           model.WindowOptimal,
	"planning":        model.WindowPlanning,
	"long term":       model.WindowPlanning,
	"long-term":       model.WindowPlanning,
	"expired":         model.WindowExpired,
	"already expired": model.WindowExpired,
	"lapsed":          model.WindowExpired,
})

var sortKeywords = compileKeywords(map[string]model.SortKey{
	"largest":          model.SortCapacityDesc,
	"biggest":          model.SortCapacityDesc,
	"highest capacity": model.SortCapacityDesc,
	"most powerful":    model.SortCapacityDesc,
	"smallest":         model.SortCapacityAsc,
	"lowest capacity":  model.SortCapacityAsc,
	"most urgent":      model.SortYearsRemainingAsc,
	"expiring soonest": model.SortYearsRemainingAsc,
	"expiring first":   model.SortYearsRemainingAsc,
	"soonest":          model.SortYearsRemainingAsc,
	"closest":          model.SortDistanceFromCenter,
	"nearest":          model.SortDistanceFromCenter,
})

var fieldKeywords = compileKeywords(map[string]model.Field{
	"income":       model.FieldIncome,
	"revenue":      model.FieldIncome,
	"earnings":     model.FieldIncome,
	"postcode":     model.FieldPostcode,
	"postcodes":    model.FieldPostcode,
	"capacity":     model.FieldCapacity,
	"capacities":   model.FieldCapacity,
	"expiry":       model.FieldExpiry,
	"expiry date":  model.FieldExpiry,
	"end date":     model.FieldExpiry,
	"coordinates":  model.FieldCoordinates,
	"lat/lon":      model.FieldCoordinates,
	"location":     model.FieldCoordinates,
	"locations":    model.FieldCoordinates,
	"description":  model.FieldDescription,
	"descriptions": model.FieldDescription,
})

// placeStopwords end an unknown place token
var placeStopwords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true, "with": true, "without": true,
	"over": true, "under": true, "above": true, "below": true, "between": true, "than": true,
	"for": true, "that": true, "which": true, "who": true, "where": true, "is": true, "are": true,
	"at": true, "of": true, "in": true, "near": true, "around": true, "from": true, "within": true,
	"by": true, "before": true, "after": true, "until": true, "to": true, "on": true,
	"expiring": true, "expire": true, "expires": true, "ending": true, "sites": true, "site": true,
	"installations": true, "installation": true, "schemes": true, "projects": true,
	"more": true, "less": true, "only": true, "please": true, "sorted": true, "ordered": true,
	"years": true, "year": true, "miles": true, "mile": true, "km": true, "kw": true, "mw": true,
	"total": true, "average": true, "count": true, "me": true, "my": true, "them": true, "those": true,
	"here": true, "there": true, "this": true, "these": true, "all": true, "any": true,
}

// Extractor pulls typed candidates out of free text. It never fails.
type Extractor struct {
	gazetteer *geo.Gazetteer
	now       func() time.Time
}

// NewExtractor creates an extractor; now anchors calendar-year phrases
func NewExtractor(gazetteer *geo.Gazetteer, now func() time.Time) *Extractor {
	if now == nil {
		now = time.Now
	}
	return &Extractor{gazetteer: gazetteer, now: now}
}

type extraction struct {
	text    string
	claimed []model.Span
	out     model.EntityCandidates
}

func (x *extraction) free(s model.Span) bool {
	for _, c := range x.claimed {
		if c.Overlaps(s) {
			return false
		}
	}
	return true
}

func (x *extraction) claim(s model.Span) {
	x.claimed = append(x.claimed, s)
}

// Extract returns every candidate found in text. Absent slots stay nil.
func (e *Extractor) Extract(text string) model.EntityCandidates {
	x := &extraction{text: utils.NormalizeText(text)}
	if x.text == "" {
		return x.out
	}

	e.extractRadius(x)
	e.extractPostcodes(x)
	e.extractCapacity(x)
	e.extractYears(x)
	e.extractSortAndLimit(x)
	e.extractWindows(x)
	e.extractTechnology(x)
	e.extractPlaces(x)
	e.extractFields(x)
	e.extractIdentifier(x)

	return x.out
}

func (e *Extractor) extractRadius(x *extraction) {
	for _, m := range reRadiusForward.FindAllStringSubmatchIndex(x.text, -1) {
		span := model.Span{Start: m[0], End: m[1]}
		if !x.free(span) {
			continue
		}
		token, end, _ := e.placeAt(x.text, m[1])
		if token == "" {
			continue
		}
		span.End = end
		if !x.free(span) {
			continue
		}
		km := distanceKM(x.text[m[2]:m[3]], x.text[m[4]:m[5]])
		x.addLocation(radiusCandidate(token, km, span))
		x.claim(span)
	}

	for _, m := range reRadiusBare.FindAllStringSubmatchIndex(x.text, -1) {
		span := model.Span{Start: m[0], End: m[1]}
		if !x.free(span) {
			continue
		}
		km := distanceKM(x.text[m[2]:m[3]], x.text[m[4]:m[5]])

		// transposed order: the place sits right before the radius phrase
		token := ""
		if start, tok := e.placeEndingAt(x.text, m[0]); tok != "" {
			full := model.Span{Start: start, End: m[1]}
			if x.free(full) {
				token, span = tok, full
			}
		}
		x.addLocation(radiusCandidate(token, km, span))
		x.claim(span)
	}
}

func radiusCandidate(token string, km float64, span model.Span) model.LocationCandidate {
	c := model.LocationCandidate{Kind: model.CandidateRadius, Token: token, RadiusKM: km, Span: span}
	if pc, kind := geo.ParsePostcode(token); kind != geo.NotPostcode {
		c.Token = pc.String()
		c.Outcode, c.Incode = pc.Outcode, pc.Incode
	}
	return c
}

func (e *Extractor) extractPostcodes(x *extraction) {
	for _, m := range geo.FindPostcodes(x.text) {
		span := model.Span{Start: m.Start, End: m.End}
		if !x.free(span) {
			continue
		}
		x.addLocation(model.LocationCandidate{
			Kind:    model.CandidatePostcode,
			Token:   m.Postcode.String(),
			Outcode: m.Postcode.Outcode,
			Incode:  m.Postcode.Incode,
			Span:    span,
		})
		x.claim(span)
	}
}

func (e *Extractor) extractCapacity(x *extraction) {
	var c model.CapacityCandidate
	var tokens []string
	found := false

	for _, re := range []*regexp.Regexp{reCapacityRange, reCapacityDashed} {
		for _, m := range re.FindAllStringSubmatchIndex(x.text, -1) {
			span := model.Span{Start: m[0], End: m[1]}
			if !x.free(span) || c.MinKW != nil || c.MaxKW != nil {
				continue
			}
			unitA, unitB := group(x.text, m, 2), group(x.text, m, 4)
			if unitA == "" {
				unitA = unitB
			}
			a := toKW(parseNumber(group(x.text, m, 1)), unitA)
			b := toKW(parseNumber(group(x.text, m, 3)), unitB)
			lo, hi := math.Min(a, b), math.Max(a, b)
			c.MinKW, c.MaxKW = &lo, &hi
			tokens = append(tokens, x.text[m[0]:m[1]])
			x.claim(span)
			found = true
		}
	}

	for _, m := range reCapacityRangeBare.FindAllStringSubmatchIndex(x.text, -1) {
		span := model.Span{Start: m[0], End: m[1]}
		if !x.free(span) || c.MinKW != nil || c.MaxKW != nil || notCapacityFollows(x.text, m[1]) {
			continue
		}
		a, b := parseNumber(group(x.text, m, 1)), parseNumber(group(x.text, m, 2))
		lo, hi := math.Min(a, b), math.Max(a, b)
		c.MinKW, c.MaxKW = &lo, &hi
		tokens = append(tokens, x.text[m[0]:m[1]])
		x.claim(span)
		found = true
	}

	for _, re := range []*regexp.Regexp{reCapacityLower, reCapacityLowerBare} {
		for _, m := range re.FindAllStringSubmatchIndex(x.text, -1) {
			span := model.Span{Start: m[0], End: m[1]}
			if !x.free(span) || c.MinKW != nil || (re == reCapacityLowerBare && notCapacityFollows(x.text, m[1])) {
				continue
			}
			v := toKW(parseNumber(group(x.text, m, 1)), group(x.text, m, 2))
			c.MinKW = &v
			tokens = append(tokens, x.text[m[0]:m[1]])
			x.claim(span)
			found = true
		}
	}

	for _, re := range []*regexp.Regexp{reCapacityUpper, reCapacityUpperBare} {
		for _, m := range re.FindAllStringSubmatchIndex(x.text, -1) {
			span := model.Span{Start: m[0], End: m[1]}
			if !x.free(span) || c.MaxKW != nil || (re == reCapacityUpperBare && notCapacityFollows(x.text, m[1])) {
				continue
			}
			v := toKW(parseNumber(group(x.text, m, 1)), group(x.text, m, 2))
			c.MaxKW = &v
			tokens = append(tokens, x.text[m[0]:m[1]])
			x.claim(span)
			found = true
		}
	}

	// A bare magnitude is a target only when no comparator or range was given.
	if !found {
		for _, m := range reCapacityTarget.FindAllStringSubmatchIndex(x.text, -1) {
			span := model.Span{Start: m[0], End: m[1]}
			if !x.free(span) {
				continue
			}
			unit := group(x.text, m, 2)
			v := toKW(parseNumber(group(x.text, m, 1)), unit)
			c.TargetKW = &v
			if tol := group(x.text, m, 3); tol != "" {
				tolUnit := group(x.text, m, 4)
				if tolUnit == "" {
					tolUnit = unit
				}
				c.ToleranceKW = toKW(parseNumber(tol), tolUnit)
			}
			tokens = append(tokens, x.text[m[0]:m[1]])
			x.claim(span)
			found = true
			break
		}
	}

	if found {
		c.Token = strings.Join(tokens, " ")
		x.out.Capacity = &c
	}
}

// nonCapacityWords after a unitless comparator number mean it counts something else
var nonCapacityWords = map[string]bool{
	"year": true, "years": true, "yr": true, "yrs": true, "month": true, "months": true,
	"mile": true, "miles": true, "mi": true, "km": true, "kms": true, "percent": true,
	"result": true, "results": true, "match": true, "matches": true, "record": true, "records": true,
	"site": true, "sites": true, "installation": true, "installations": true,
	"turbine": true, "turbines": true, "panel": true, "panels": true,
}

// notCapacityFollows reports whether the word at end shows the preceding number
// is not a capacity ("over 10 years", "under 50%")
func notCapacityFollows(text string, end int) bool {
	rest := strings.TrimLeft(text[end:], " ")
	if strings.HasPrefix(rest, "%") {
		return true
	}
	n := 0
	for n < len(rest) && isWordByte(rest[n]) {
		n++
	}
	return nonCapacityWords[rest[:n]]
}

func (e *Extractor) extractYears(x *extraction) {
	var bound model.YearsBound
	set := false
	setMax := func(v float64) {
		if bound.Max == nil || v < *bound.Max {
			bound.Max = &v
		}
		set = true
	}
	setMin := func(v float64) {
		if bound.Min == nil || v > *bound.Min {
			bound.Min = &v
		}
		set = true
	}

	for _, m := range reYearsOver.FindAllStringSubmatchIndex(x.text, -1) {
		span := model.Span{Start: m[0], End: m[1]}
		if x.free(span) {
			setMin(parseNumber(group(x.text, m, 1)))
			x.claim(span)
		}
	}
	for _, m := range reYearsWithin.FindAllStringSubmatchIndex(x.text, -1) {
		span := model.Span{Start: m[0], End: m[1]}
		if x.free(span) {
			setMax(parseNumber(group(x.text, m, 1)))
			x.claim(span)
		}
	}

	now := e.now()
	for _, m := range reYearBefore.FindAllStringSubmatchIndex(x.text, -1) {
		span := model.Span{Start: m[0], End: m[1]}
		if !x.free(span) {
			continue
		}
		year, _ := strconv.Atoi(group(x.text, m, 2))
		// "before 2030" ends at the start of 2030, "by 2030" at the end of it
		if group(x.text, m, 1) != "before" {
			year++
		}
		setMax(yearsUntil(now, year))
		x.claim(span)
	}
	for _, m := range reYearAfter.FindAllStringSubmatchIndex(x.text, -1) {
		span := model.Span{Start: m[0], End: m[1]}
		if !x.free(span) {
			continue
		}
		year, _ := strconv.Atoi(group(x.text, m, 1))
		setMin(yearsUntil(now, year+1))
		x.claim(span)
	}

	// Remaining calendar years are claimed so they never read as identifiers.
	for _, m := range reBareYear.FindAllStringIndex(x.text, -1) {
		span := model.Span{Start: m[0], End: m[1]}
		if x.free(span) {
			x.claim(span)
		}
	}

	if set {
		x.out.YearsRemaining = &bound
	}
}

// yearsUntil is the fractional number of years from now to 1 January of year
func yearsUntil(now time.Time, year int) float64 {
	target := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	years := target.Sub(now.UTC()).Hours() / 24 / 365.25
	return math.Round(years*100) / 100
}

func (e *Extractor) extractSortAndLimit(x *extraction) {
	for _, rule := range sortKeywords {
		if x.out.Sort != nil {
			break
		}
		for _, m := range rule.re.FindAllStringIndex(x.text, -1) {
			span := model.Span{Start: m[0], End: m[1]}
			if x.free(span) {
				x.out.Sort = &model.SortDirective{Key: rule.value}
				x.claim(span)
				break
			}
		}
	}

	for _, re := range []*regexp.Regexp{reLimit, reLimitAfter} {
		for _, m := range re.FindAllStringSubmatchIndex(x.text, -1) {
			span := model.Span{Start: m[0], End: m[1]}
			if x.out.Limit != nil || !x.free(span) {
				continue
			}
			n, err := strconv.Atoi(group(x.text, m, 1))
			if err != nil || n <= 0 {
				continue
			}
			x.out.Limit = &n
			x.claim(span)
		}
	}
}

func (e *Extractor) extractWindows(x *extraction) {
	type hit struct {
		w     model.RepoweringWindow
		start int
	}
	var hits []hit
	for _, rule := range windowKeywords {
		for _, m := range rule.re.FindAllStringIndex(x.text, -1) {
			span := model.Span{Start: m[0], End: m[1]}
			if x.free(span) {
				hits = append(hits, hit{rule.value, m[0]})
				x.claim(span)
			}
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].start < hits[j].start })
	for _, h := range hits {
		if !containsWindow(x.out.Windows, h.w) {
			x.out.Windows = append(x.out.Windows, h.w)
		}
	}
}

func containsWindow(ws []model.RepoweringWindow, w model.RepoweringWindow) bool {
	for _, v := range ws {
		if v == w {
			return true
		}
	}
	return false
}

func (e *Extractor) extractTechnology(x *extraction) {
	var hits []model.TechnologyCandidate
	for _, rule := range technologySynonyms {
		for _, m := range rule.re.FindAllStringIndex(x.text, -1) {
			span := model.Span{Start: m[0], End: m[1]}
			if x.free(span) {
				hits = append(hits, model.TechnologyCandidate{Value: rule.value, Token: x.text[m[0]:m[1]], Span: span})
				x.claim(span)
			}
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Span.Start < hits[j].Span.Start })
	for i, h := range hits {
		if i == 0 {
			first := h
			x.out.Technology = &first
		}
		if !containsTechnology(x.out.TechnologyMentions, h.Value) {
			x.out.TechnologyMentions = append(x.out.TechnologyMentions, h.Value)
		}
	}

	for _, rule := range unknownTechnologies {
		if x.out.UnknownTechnology != "" {
			break
		}
		if m := rule.re.FindStringIndex(x.text); m != nil {
			span := model.Span{Start: m[0], End: m[1]}
			if x.free(span) {
				x.out.UnknownTechnology = rule.value
				x.claim(span)
			}
		}
	}
}

func containsTechnology(ts []model.Technology, t model.Technology) bool {
	for _, v := range ts {
		if v == t {
			return true
		}
	}
	return false
}

func (e *Extractor) extractPlaces(x *extraction) {
	if e.gazetteer == nil {
		return
	}

	// Keyword-led places: "in berkshire", "near malton"
	for _, m := range rePlaceLead.FindAllStringIndex(x.text, -1) {
		lead := strings.TrimSpace(x.text[m[0]:m[1]])
		if !x.free(model.Span{Start: m[0], End: m[1] - 1}) {
			continue
		}
		token, end, known := e.placeAt(x.text, m[1])
		if token == "" {
			continue
		}
		span := model.Span{Start: m[1], End: end}
		if !x.free(span) {
			continue
		}
		// "in"/"at"/"of"/"from" also introduce non-places, so unknown words after
		// them only count when they look like a misspelt gazetteer name.
		if !known && lead != "near" && lead != "around" && lead != "close to" {
			if len(e.gazetteer.Suggest(token, 1)) == 0 {
				continue
			}
		}
		x.addLocation(placeCandidate(token, span))
		x.claim(span)
	}

	// Bare gazetteer names anywhere else: "berkshire wind sites"
	words := wordSpans(x.text, 0, -1)
	maxWords := max(1, e.gazetteer.MaxNameWords())
	for i := 0; i < len(words); i++ {
		for n := min(maxWords, len(words)-i); n >= 1; n-- {
			span := model.Span{Start: words[i].Start, End: words[i+n-1].End}
			if !contiguous(x.text, words[i:i+n]) || !x.free(span) {
				continue
			}
			token := x.text[span.Start:span.End]
			if len(token) < 3 || !e.gazetteer.Knows(token) {
				continue
			}
			x.addLocation(placeCandidate(token, span))
			x.claim(span)
			i += n - 1
			break
		}
	}
}

func placeCandidate(token string, span model.Span) model.LocationCandidate {
	if pc, kind := geo.ParsePostcode(token); kind != geo.NotPostcode {
		return model.LocationCandidate{
			Kind:    model.CandidatePostcode,
			Token:   pc.String(),
			Outcode: pc.Outcode,
			Incode:  pc.Incode,
			Span:    span,
		}
	}
	return model.LocationCandidate{Kind: model.CandidatePlace, Token: token, Span: span}
}

func (e *Extractor) extractFields(x *extraction) {
	for _, rule := range fieldKeywords {
		if rule.re.MatchString(x.text) {
			x.out.Fields = x.out.Fields.Add(rule.value)
		}
	}
}

func (e *Extractor) extractIdentifier(x *extraction) {
	for _, m := range reIdentifierKeyword.FindAllStringSubmatchIndex(x.text, -1) {
		span := model.Span{Start: m[2], End: m[3]}
		if x.free(span) {
			x.out.Identifier = &model.IdentifierCandidate{Value: x.text[m[2]:m[3]], Keyword: true, Span: span}
			x.claim(span)
			return
		}
	}
	for _, m := range reIdentifierBare.FindAllStringSubmatchIndex(x.text, -1) {
		span := model.Span{Start: m[2], End: m[3]}
		if !x.free(span) || partOfDecimal(x.text, span) {
			continue
		}
		x.out.Identifier = &model.IdentifierCandidate{Value: x.text[m[2]:m[3]], Span: span}
		x.claim(span)
		return
	}
}

func partOfDecimal(text string, s model.Span) bool {
	if s.Start > 0 && (text[s.Start-1] == '.' || text[s.Start-1] == ',') {
		return true
	}
	return s.End < len(text) && (text[s.End] == '.' || text[s.End] == ',') && s.End+1 < len(text) && isDigit(text[s.End+1])
}

func (x *extraction) addLocation(c model.LocationCandidate) {
	x.out.Locations = append(x.out.Locations, c)
	sort.SliceStable(x.out.Locations, func(i, j int) bool {
		return x.out.Locations[i].Span.Start < x.out.Locations[j].Span.Start
	})
}

// placeAt reads a location token starting at pos. A postcode wins outright; otherwise
// the longest run of words the gazetteer knows, and failing that up to three words
// before the first stopword. known is false for the fallback.
func (e *Extractor) placeAt(text string, pos int) (token string, end int, known bool) {
	if pos >= len(text) {
		return "", pos, false
	}
	if pcs := geo.FindPostcodes(text[pos:]); len(pcs) > 0 && pcs[0].Start == 0 {
		return pcs[0].Postcode.String(), pos + pcs[0].End, true
	}
	words := wordSpans(text, pos, 8)
	if len(words) == 0 || words[0].Start != pos {
		return "", pos, false
	}
	if e.gazetteer != nil {
		for n := min(e.gazetteer.MaxNameWords()+1, len(words)); n >= 1; n-- {
			if !contiguous(text, words[:n]) {
				continue
			}
			cand := text[words[0].Start:words[n-1].End]
			if e.gazetteer.Knows(cand) {
				return cand, words[n-1].End, true
			}
		}
	}
	n := 0
	for n < len(words) && n < maxUnknownWords && contiguous(text, words[:n+1]) {
		w := text[words[n].Start:words[n].End]
		if placeStopwords[w] || isTechnologyWord(w) {
			break
		}
		n++
	}
	if n == 0 {
		return "", pos, false
	}
	return text[words[0].Start:words[n-1].End], words[n-1].End, false
}

// placeEndingAt finds a place token that ends right before end (ignoring one space)
func (e *Extractor) placeEndingAt(text string, end int) (int, string) {
	prefix := strings.TrimRight(text[:end], " ")
	if prefix == "" {
		return 0, ""
	}
	if pcs := geo.FindPostcodes(prefix); len(pcs) > 0 && pcs[len(pcs)-1].End == len(prefix) {
		last := pcs[len(pcs)-1]
		return last.Start, last.Postcode.String()
	}
	if leads := rePlaceLead.FindAllStringIndex(prefix, -1); len(leads) > 0 {
		lead := leads[len(leads)-1]
		if token, tokEnd, _ := e.placeAt(prefix, lead[1]); token != "" && tokEnd == len(prefix) {
			return lead[0], token
		}
	}
	return e.knownNameEndingAt(prefix)
}

// knownNameEndingAt finds the longest gazetteer name that closes text with no
// lead word before it ("wind farms york" -> "york").
func (e *Extractor) knownNameEndingAt(text string) (int, string) {
	if e.gazetteer == nil {
		return 0, ""
	}
	words := wordSpans(text, 0, -1)
	if len(words) == 0 || words[len(words)-1].End != len(text) {
		return 0, ""
	}
	for n := min(e.gazetteer.MaxNameWords(), len(words)); n >= 1; n-- {
		run := words[len(words)-n:]
		if !contiguous(text, run) {
			continue
		}
		token := text[run[0].Start:run[n-1].End]
		if len(token) >= 3 && e.gazetteer.Knows(token) {
			return run[0].Start, token
		}
	}
	return 0, ""
}

// wordSpans splits text from pos into words of letters, apostrophes and hyphens.
// Tokens containing digits are skipped, which leaves a gap that breaks contiguity.
// limit < 0 means no limit.
func wordSpans(text string, pos, limit int) []model.Span {
	var out []model.Span
	i := pos
	for i < len(text) && (limit < 0 || len(out) < limit) {
		if !isWordByte(text[i]) && !isDigit(text[i]) {
			i++
			continue
		}
		start, digits := i, false
		for i < len(text) && (isWordByte(text[i]) || isDigit(text[i])) {
			digits = digits || isDigit(text[i])
			i++
		}
		if !digits {
			out = append(out, model.Span{Start: start, End: i})
		}
	}
	return out
}

// contiguous reports whether the words are separated by single spaces only
func contiguous(text string, words []model.Span) bool {
	for i := 1; i < len(words); i++ {
		if words[i].Start != words[i-1].End+1 || text[words[i-1].End] != ' ' {
			return false
		}
	}
	return true
}

func isWordByte(b byte) bool {
	return (b >= 'a' && b <= 'z') || b == '\'' || b == '-' || b >= 0x80
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

var technologyWords = func() map[string]bool {
	words := make(map[string]bool)
	for _, rule := range technologySynonyms {
		for _, w := range strings.Fields(rule.phrase) {
			words[w] = true
		}
	}
	for _, rule := range unknownTechnologies {
		for _, w := range strings.Fields(rule.phrase) {
			words[w] = true
		}
	}
	return words
}()

func isTechnologyWord(w string) bool {
	return technologyWords[w]
}

func group(text string, m []int, n int) string {
	if 2*n+1 >= len(m) || m[2*n] < 0 {
		return ""
	}
	return text[m[2*n]:m[2*n+1]]
}

func parseNumber(s string) float64 {
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return 0
	}
	return v
}

// toKW converts a magnitude to kilowatts; MW values are multiplied by 1000
func toKW(v float64, unit string) float64 {
	if strings.HasPrefix(unit, "m") {
		return v * 1000
	}
	return v
}

func distanceKM(value, unit string) float64 {
	v := parseNumber(value)
	if strings.HasPrefix(unit, "k") {
		return v
	}
	return geo.MilesToKM(v)
}
