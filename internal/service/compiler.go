package service

import (
	"math"
	"slices"
	"strconv"

	"fitsearch/internal/geo"
	"fitsearch/internal/model"
	"fitsearch/internal/utils"
)

// DefaultPlaceRadiusKM is the radius used for a town without an explicit distance (10 miles)
const DefaultPlaceRadiusKM = 16.09

// CompilerConfig holds the tunables of filter compilation
type CompilerConfig struct {
	ToleranceKW     float64
	DefaultRadiusKM float64
}

// Compiler turns merged candidates into a validated FilterSpec. It is the only
// place that enforces FilterSpec invariants.
type Compiler struct {
	gazetteer *geo.Gazetteer
	cfg       CompilerConfig
}

// NewCompiler creates a compiler; zero config values fall back to defaults
func NewCompiler(gazetteer *geo.Gazetteer, cfg CompilerConfig) *Compiler {
	if cfg.ToleranceKW <= 0 {
		cfg.ToleranceKW = model.DefaultCapacityToleranceKW
	}
	if cfg.DefaultRadiusKM <= 0 {
		cfg.DefaultRadiusKM = DefaultPlaceRadiusKM
	}
	return &Compiler{gazetteer: gazetteer, cfg: cfg}
}

// Compile validates merged and builds the canonical filter. It fails closed:
// conflicting candidates produce *AmbiguousEntitiesError rather than a guess.
func (c *Compiler) Compile(merged model.EntityCandidates) (*model.FilterSpec, error) {
	spec := &model.FilterSpec{}

	if merged.UnknownTechnology != "" {
		return nil, &UnknownTechnologySynonymError{Token: merged.UnknownTechnology}
	}
	if len(merged.CompareTechnologies) >= 2 {
		for _, t := range merged.CompareTechnologies {
			if !t.Valid() {
				return nil, &UnknownTechnologySynonymError{Token: string(t)}
			}
		}
		spec.CompareTechnologies = slices.Clone(merged.CompareTechnologies)
	} else if merged.Technology != nil {
		t := merged.Technology.Value
		if !t.Valid() {
			return nil, &UnknownTechnologySynonymError{Token: merged.Technology.Token}
		}
		spec.Technology = &t
	}

	var targetSort *model.SortDirective
	if capacity := merged.Capacity; capacity != nil {
		bound, sort, err := c.compileCapacity(*capacity)
		if err != nil {
			return nil, err
		}
		spec.Capacity, targetSort = bound, sort
	}

	var conflicts []string
	if id := merged.Identifier; id != nil && !id.Keyword && merged.Capacity != nil &&
		!merged.IsCarried(model.SlotIdentifier) && !merged.IsCarried(model.SlotCapacity) {
		conflicts = append(conflicts, "identifier", "capacity")
	}

	windows := distinctWindows(merged.Windows)
	switch len(windows) {
	case 0:
	case 1:
		w := windows[0]
		spec.Window = &w
	default:
		conflicts = append(conflicts, "window")
	}

	if y := merged.YearsRemaining; y != nil {
		if y.Min != nil && y.Max != nil && *y.Min > *y.Max {
			conflicts = append(conflicts, "years_remaining")
		} else {
			spec.YearsRemaining = &model.YearsBound{Min: cloneFloat(y.Min), Max: cloneFloat(y.Max)}
		}
	}

	chosen, locConflict := c.chooseLocation(merged.Locations)
	if locConflict != "" {
		conflicts = append(conflicts, locConflict)
	}

	if len(conflicts) > 0 {
		return nil, &AmbiguousEntitiesError{Fields: conflicts}
	}

	if chosen != nil {
		loc, err := c.resolveLocation(*chosen)
		if err != nil {
			return nil, err
		}
		spec.Location = loc
	}

	if merged.Identifier != nil {
		id := merged.Identifier.Value
		spec.Identifier = &id
	}

	spec.Sort = c.chooseSort(merged, targetSort, spec.Location)

	if merged.Limit != nil && *merged.Limit > 0 {
		n := *merged.Limit
		spec.Limit = &n
	}
	spec.RequestedFields = slices.Clone(merged.Fields)

	return spec, nil
}

func (c *Compiler) compileCapacity(cand model.CapacityCandidate) (*model.CapacityBound, *model.SortDirective, error) {
	if cand.MinKW != nil && cand.MaxKW != nil && *cand.MinKW > *cand.MaxKW {
		return nil, nil, &InvalidCapacityRangeError{MinKW: *cand.MinKW, MaxKW: *cand.MaxKW}
	}
	if cand.TargetKW != nil && cand.MinKW == nil && cand.MaxKW == nil {
		target := *cand.TargetKW
		tol := cand.ToleranceKW
		if tol <= 0 {
			tol = c.cfg.ToleranceKW
		}
		lo := math.Max(0, target-tol)
		hi := target + tol
		return &model.CapacityBound{MinKW: &lo, MaxKW: &hi, TargetKW: &target, ToleranceKW: tol},
			model.SortByDistanceFrom(target), nil
	}
	if cand.MinKW == nil && cand.MaxKW == nil {
		return nil, nil, nil
	}
	return &model.CapacityBound{MinKW: cloneFloat(cand.MinKW), MaxKW: cloneFloat(cand.MaxKW)}, nil, nil
}

// chooseLocation picks the single location candidate that becomes the filter's
// location. A radius or postcode beats a bare place name on another span; two
// distinct candidates of the same strength are a conflict.
func (c *Compiler) chooseLocation(cands []model.LocationCandidate) (*model.LocationCandidate, string) {
	if len(cands) == 0 {
		return nil, ""
	}
	var radii, postcodes, places []model.LocationCandidate
	for _, l := range cands {
		switch l.Kind {
		case model.CandidateRadius:
			radii = append(radii, l)
		case model.CandidatePostcode:
			postcodes = append(postcodes, l)
		default:
			places = append(places, l)
		}
	}

	switch {
	case len(radii) > 0:
		if distinctLocations(c, radii) > 1 {
			return nil, "location"
		}
		r := radii[0]
		if r.Token == "" && r.Resolved == nil {
			// "york 10 miles": the centre is named elsewhere in the turn
			anchors := append(slices.Clone(postcodes), places...)
			if len(anchors) == 0 {
				return &r, ""
			}
			if distinctLocations(c, anchors) > 1 {
				return nil, "location"
			}
			r.Token, r.Outcode, r.Incode = anchors[0].Token, anchors[0].Outcode, anchors[0].Incode
			return &r, ""
		}
		if distinctLocations(c, postcodes) > 0 {
			return nil, "location"
		}
		return &r, ""
	case len(postcodes) > 0:
		if distinctLocations(c, postcodes) > 1 {
			return nil, "location"
		}
		for _, p := range places {
			if !c.postcodeAgrees(postcodes[0], p) {
				return nil, "location"
			}
		}
		return &postcodes[0], ""
	default:
		if distinctLocations(c, places) > 1 {
			return nil, "location"
		}
		return &places[0], ""
	}
}

// postcodeAgrees reports whether a postcode and a place named in the same turn
// can describe the same area: the postcode area belongs to the region, or to the
// place's own outcode. Places the gazetteer cannot place give no evidence either way.
func (c *Compiler) postcodeAgrees(pc, place model.LocationCandidate) bool {
	if c.gazetteer == nil {
		return true
	}
	parsed, kind := geo.ParsePostcode(pc.Outcode)
	if kind == geo.NotPostcode {
		return true
	}
	if r, ok := c.gazetteer.Region(place.Token); ok {
		return slices.Contains(r.Areas, parsed.Area)
	}
	if p, ok := c.gazetteer.Place(place.Token); ok && p.Outcode != "" {
		own, _ := geo.ParsePostcode(p.Outcode)
		return own.Area == parsed.Area
	}
	return true
}

func distinctLocations(c *Compiler, cands []model.LocationCandidate) int {
	seen := map[string]bool{}
	for _, l := range cands {
		key := c.locationKey(l)
		if l.Kind == model.CandidateRadius {
			key += "|" + strconv.FormatFloat(l.RadiusKM, 'f', 2, 64)
		}
		seen[key] = true
	}
	return len(seen)
}

func (c *Compiler) locationKey(l model.LocationCandidate) string {
	if l.Resolved != nil {
		return l.Resolved.Describe()
	}
	if l.Outcode != "" {
		return l.Outcode + " " + l.Incode
	}
	if c.gazetteer != nil {
		if r, ok := c.gazetteer.Region(l.Token); ok {
			return r.Name
		}
		if p, ok := c.gazetteer.Place(l.Token); ok {
			return p.Name
		}
	}
	return utils.NormalizeName(l.Token)
}

func (c *Compiler) resolveLocation(l model.LocationCandidate) (*model.LocationSpec, error) {
	if l.Resolved != nil {
		loc := *l.Resolved
		if l.Kind == model.CandidateRadius && l.RadiusKM > 0 {
			loc.RadiusKM = l.RadiusKM
		}
		if !loc.Valid() {
			return nil, &AmbiguousEntitiesError{Fields: []string{"location"}}
		}
		return &loc, nil
	}

	switch l.Kind {
	case model.CandidatePostcode:
		loc := model.PostcodeLocation(l.Outcode, l.Incode, l.Token)
		return &loc, nil

	case model.CandidateRadius:
		if l.Token == "" {
			return nil, &AmbiguousEntitiesError{Fields: []string{"location.radius"}}
		}
		rec, err := c.resolve(l.Token)
		if err != nil {
			return nil, err
		}
		loc := model.RadiusLocation(rec, l.RadiusKM, l.Token)
		return &loc, nil
	}

	if c.gazetteer != nil {
		if r, ok := c.gazetteer.Region(l.Token); ok {
			loc := model.NamedLocation(r.Name, r.Areas, l.Token)
			return &loc, nil
		}
	}
	rec, err := c.resolve(l.Token)
	if err != nil {
		return nil, err
	}
	loc := model.RadiusLocation(rec, c.cfg.DefaultRadiusKM, l.Token)
	return &loc, nil
}

func (c *Compiler) resolve(token string) (model.LocationRecord, error) {
	if c.gazetteer == nil {
		return model.LocationRecord{}, &geo.UnresolvedLocationError{Token: token}
	}
	return c.gazetteer.ResolveLocation(token)
}

// chooseSort: an explicit sort in this turn wins, then the target-capacity
// ordering, then a sort carried from the previous turn. Distance from centre
// only survives when the location is a radius.
func (c *Compiler) chooseSort(merged model.EntityCandidates, targetSort *model.SortDirective, loc *model.LocationSpec) *model.SortDirective {
	usable := func(s *model.SortDirective) bool {
		if s == nil {
			return false
		}
		if s.Key == model.SortDistanceFromCenter {
			return loc != nil && loc.Kind == model.LocationRadius
		}
		if s.Key == model.SortDistanceFromTarget {
			return s.TargetKW != nil
		}
		return true
	}
	explicit := merged.Sort
	if explicit != nil && !merged.IsCarried(model.SlotSort) && usable(explicit) {
		return &model.SortDirective{Key: explicit.Key, TargetKW: cloneFloat(explicit.TargetKW)}
	}
	if targetSort != nil {
		return targetSort
	}
	if usable(explicit) {
		return &model.SortDirective{Key: explicit.Key, TargetKW: cloneFloat(explicit.TargetKW)}
	}
	return nil
}

func distinctWindows(ws []model.RepoweringWindow) []model.RepoweringWindow {
	var out []model.RepoweringWindow
	for _, w := range ws {
		if w.Valid() && !slices.Contains(out, w) {
			out = append(out, w)
		}
	}
	return out
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	x := *v
	return &x
}
