package service

import (
	"slices"

	"fitsearch/internal/model"
)

// Merger combines a turn's candidates with the session's previous filter. Every
// field follows one rule: present in the turn replaces, absent is carried only
// when the intent reuses the prior filter. Nothing is ever unioned.
type Merger struct {
	compiler *Compiler
}

// NewMerger creates a merger that compiles through compiler
func NewMerger(compiler *Compiler) *Merger {
	return &Merger{compiler: compiler}
}

// Merge overlays cand on prior according to intent and compiles the result
func (m *Merger) Merge(prior *model.FilterSpec, cand model.EntityCandidates, intent model.Intent) (*model.FilterSpec, error) {
	return m.compiler.Compile(m.Overlay(prior, cand, intent))
}

// Overlay returns the merged candidate set without compiling it
func (m *Merger) Overlay(prior *model.FilterSpec, cand model.EntityCandidates, intent model.Intent) model.EntityCandidates {
	var out model.EntityCandidates
	if prior == nil || !intent.ReusesPrior() {
		prior = nil
		out = cand
		out.Carried = nil
	} else {
		out = candidatesFromFilter(prior, intent)
		overlay(&out, cand, prior)
	}

	if intent.Kind == model.IntentComparative {
		compareTechnologies(&out, cand, prior)
	}
	return out
}

// overlay applies the fields present in cand on top of base
func overlay(base *model.EntityCandidates, cand model.EntityCandidates, prior *model.FilterSpec) {
	if cand.Technology != nil {
		base.Technology = cand.Technology
		base.TechnologyMentions = cand.TechnologyMentions
		base.CompareTechnologies = nil
		unmark(base, model.SlotTechnology)
	}
	if cand.UnknownTechnology != "" {
		base.UnknownTechnology = cand.UnknownTechnology
	}
	if cand.Capacity != nil {
		base.Capacity = cand.Capacity
		unmark(base, model.SlotCapacity)
	}
	if len(cand.Locations) > 0 {
		base.Locations = changedLocation(cand.Locations, prior.Location)
		unmark(base, model.SlotLocation)
	}
	if len(cand.Windows) > 0 {
		base.Windows = slices.Clone(cand.Windows)
		unmark(base, model.SlotWindow)
	}
	if cand.YearsRemaining != nil {
		base.YearsRemaining = cand.YearsRemaining
		unmark(base, model.SlotYearsRemaining)
	}
	if cand.Identifier != nil {
		base.Identifier = cand.Identifier
		unmark(base, model.SlotIdentifier)
	}
	if cand.Sort != nil {
		base.Sort = cand.Sort
		unmark(base, model.SlotSort)
	}
	if cand.Limit != nil {
		base.Limit = cand.Limit
		unmark(base, model.SlotLimit)
	}
	if len(cand.Fields) > 0 {
		base.Fields = slices.Clone(cand.Fields)
		unmark(base, model.SlotRequested)
	}
}

// changedLocation is the location-change detector. A new location always replaces
// the old one outright; the only thing taken from the old location is the centre
// of a radius when the turn gives a distance but no place ("make it 20 miles").
func changedLocation(next []model.LocationCandidate, prev *model.LocationSpec) []model.LocationCandidate {
	out := slices.Clone(next)
	if len(out) != 1 || out[0].Kind != model.CandidateRadius || out[0].Token != "" || prev == nil {
		return out
	}
	switch prev.Kind {
	case model.LocationRadius:
		loc := *prev
		c := *prev.Center
		loc.Center = &c
		loc.RadiusKM = out[0].RadiusKM
		out[0].Token = prev.CenterName
		out[0].Resolved = &loc
	case model.LocationPostcodeExact:
		out[0].Token = prev.Outcode
		out[0].Outcode, out[0].Incode = prev.Outcode, prev.Incode
		if prev.Incode != "" {
			out[0].Token = prev.Outcode + " " + prev.Incode
		}
	}
	return out
}

// compareTechnologies fills the comparison set for a comparative turn: every
// technology the turn mentions, or the prior technology (or set) plus a single
// new mention. prior is nil when the turn does not build on the previous filter.
func compareTechnologies(out *model.EntityCandidates, cand model.EntityCandidates, prior *model.FilterSpec) {
	mentions := cand.TechnologyMentions
	switch {
	case len(mentions) >= 2:
		out.CompareTechnologies = slices.Clone(mentions)
	case len(mentions) == 1 && prior != nil && len(prior.CompareTechnologies) >= 2:
		out.CompareTechnologies = slices.Clone(prior.CompareTechnologies)
		if !slices.Contains(out.CompareTechnologies, mentions[0]) {
			out.CompareTechnologies = append(out.CompareTechnologies, mentions[0])
		}
	case len(mentions) == 1 && prior != nil && prior.Technology != nil && *prior.Technology != mentions[0]:
		out.CompareTechnologies = []model.Technology{*prior.Technology, mentions[0]}
	default:
		return
	}
	out.Technology = nil
}

// candidatesFromFilter turns a compiled filter back into carried candidates.
// Identifiers only carry into follow-ups that act on the same result set.
func candidatesFromFilter(f *model.FilterSpec, intent model.Intent) model.EntityCandidates {
	var c model.EntityCandidates
	if f.Technology != nil {
		c.Technology = &model.TechnologyCandidate{Value: *f.Technology, Token: string(*f.Technology)}
		c.TechnologyMentions = []model.Technology{*f.Technology}
		c.MarkCarried(model.SlotTechnology)
	}
	if len(f.CompareTechnologies) > 0 {
		c.CompareTechnologies = slices.Clone(f.CompareTechnologies)
		c.MarkCarried(model.SlotTechnology)
	}
	if b := f.Capacity; b != nil {
		if b.IsTarget() {
			c.Capacity = &model.CapacityCandidate{TargetKW: cloneFloat(b.TargetKW), ToleranceKW: b.ToleranceKW}
		} else {
			c.Capacity = &model.CapacityCandidate{MinKW: cloneFloat(b.MinKW), MaxKW: cloneFloat(b.MaxKW)}
		}
		c.MarkCarried(model.SlotCapacity)
	}
	if f.Location != nil {
		loc := f.Clone().Location
		c.Locations = []model.LocationCandidate{{
			Kind:     candidateKind(loc.Kind),
			Token:    loc.Token,
			Outcode:  loc.Outcode,
			Incode:   loc.Incode,
			RadiusKM: loc.RadiusKM,
			Resolved: loc,
		}}
		c.MarkCarried(model.SlotLocation)
	}
	if f.Window != nil {
		c.Windows = []model.RepoweringWindow{*f.Window}
		c.MarkCarried(model.SlotWindow)
	}
	if f.YearsRemaining != nil {
		c.YearsRemaining = &model.YearsBound{Min: cloneFloat(f.YearsRemaining.Min), Max: cloneFloat(f.YearsRemaining.Max)}
		c.MarkCarried(model.SlotYearsRemaining)
	}
	if f.Identifier != nil && intent.Kind == model.IntentFollowupReuse && intent.Action != model.ActionRefine {
		c.Identifier = &model.IdentifierCandidate{Value: *f.Identifier, Keyword: true}
		c.MarkCarried(model.SlotIdentifier)
	}
	// distance-from-target is rebuilt from the carried capacity
	if f.Sort != nil && f.Sort.Key != model.SortDistanceFromTarget {
		c.Sort = &model.SortDirective{Key: f.Sort.Key, TargetKW: cloneFloat(f.Sort.TargetKW)}
		c.MarkCarried(model.SlotSort)
	}
	if f.Limit != nil {
		n := *f.Limit
		c.Limit = &n
		c.MarkCarried(model.SlotLimit)
	}
	if len(f.RequestedFields) > 0 {
		c.Fields = slices.Clone(f.RequestedFields)
		c.MarkCarried(model.SlotRequested)
	}
	return c
}

func candidateKind(k model.LocationKind) model.LocationCandidateKind {
	switch k {
	case model.LocationRadius:
		return model.CandidateRadius
	case model.LocationPostcodeExact:
		return model.CandidatePostcode
	}
	return model.CandidatePlace
}

func unmark(c *model.EntityCandidates, f model.CandidateField) {
	if c.Carried != nil {
		delete(c.Carried, f)
	}
}
