package service

import (
	"math"
	"sort"

	"fitsearch/internal/geo"
	"fitsearch/internal/model"
)

// Match reason constants
const (
	ReasonTechnologyMatch  = "Technology match"
	ReasonCapacityInRange  = "Capacity within range"
	ReasonNearTarget       = "Close to target capacity"
	ReasonInRegion         = "In region"
	ReasonPostcodeMatch    = "Postcode match"
	ReasonWithinRadius     = "Within radius"
	ReasonWindowMatch      = "Repowering window match"
	ReasonSubsidyEndsSoon  = "Subsidy ending soon"
	ReasonContentRelevant  = "Content relevant"
	ReasonIdentifierLookup = "Identifier match"
	ReasonGeneralMatch     = "General match"
)

// Ranker scores installations returned by the catalogue
type Ranker struct {
	weightText     float64
	weightCapacity float64
	weightUrgency  float64
}

// NewRanker creates a new ranker with specified weights
func NewRanker(weightText, weightCapacity, weightUrgency float64) *Ranker {
	return &Ranker{
		weightText:     weightText,
		weightCapacity: weightCapacity,
		weightUrgency:  weightUrgency,
	}
}

// RankResults scores installations against filter. When the filter carries a
// sort directive the catalogue's order is authoritative and is kept as is;
// otherwise results are ordered by score.
func (r *Ranker) RankResults(installations []model.Installation, filter *model.FilterSpec) []model.InstallationSearchResult {
	results := make([]model.InstallationSearchResult, 0, len(installations))

	for _, inst := range installations {
		result := model.InstallationSearchResult{
			Installation:   inst,
			Window:         inst.Window(),
			MatchedReasons: []string{},
		}
		result.DistanceKM = distanceFromCenter(inst, filter)

		var textRank float64
		if inst.TextRank != nil {
			textRank = *inst.TextRank
		}
		textScore := r.normalizeTextScore(textRank)
		capacityScore := r.calculateCapacityScore(inst.CapacityKW, filter)
		urgencyScore := r.calculateUrgencyScore(result.Window)

		result.Score = (r.weightText * textScore) +
			(r.weightCapacity * capacityScore) +
			(r.weightUrgency * urgencyScore)

		result.MatchedReasons = r.generateMatchedReasons(result, filter, textScore)

		results = append(results, result)
	}

	if filter == nil || filter.Sort == nil {
		sort.SliceStable(results, func(i, j int) bool {
			return results[i].Score > results[j].Score
		})
	}

	return results
}

// normalizeTextScore caps ts_rank at 1.0
func (r *Ranker) normalizeTextScore(rank float64) float64 {
	if rank > 1.0 {
		return 1.0
	}
	if rank < 0 {
		return 0
	}
	return rank
}

// calculateCapacityScore rewards closeness to a target, or to the middle of a range
func (r *Ranker) calculateCapacityScore(kw float64, filter *model.FilterSpec) float64 {
	if filter == nil {
		return 1.0
	}

	var target, tolerance *float64
	if c := filter.Capacity; c != nil && c.IsTarget() {
		target, tolerance = c.TargetKW, &c.ToleranceKW
	} else if s := filter.Sort; s != nil && s.Key == model.SortDistanceFromTarget {
		target = s.TargetKW
	}
	if target != nil {
		scale := math.Max(*target, 1)
		if tolerance != nil && *tolerance > 0 {
			scale = *tolerance
		}
		return math.Max(0, 1.0-math.Abs(kw-*target)/scale)
	}

	c := filter.Capacity
	if c == nil || (c.MinKW == nil && c.MaxKW == nil) {
		return 1.0
	}
	if !c.Contains(kw) {
		return 0.0
	}
	if c.MinKW != nil && c.MaxKW != nil {
		midpoint := (*c.MinKW + *c.MaxKW) / 2
		halfRange := (*c.MaxKW - *c.MinKW) / 2
		if halfRange == 0 {
			return 1.0
		}
		return math.Max(0, 1.0-math.Abs(kw-midpoint)/halfRange)
	}
	return 1.0
}

// calculateUrgencyScore favours installations whose subsidy ends sooner
func (r *Ranker) calculateUrgencyScore(w model.RepoweringWindow) float64 {
	switch w {
	case model.WindowImmediate:
		return 1.0
	case model.WindowUrgent:
		return 0.8
	case model.WindowOptimal:
		return 0.5
	case model.WindowPlanning:
		return 0.2
	}
	return 0.1
}

func distanceFromCenter(inst model.Installation, filter *model.FilterSpec) *float64 {
	if filter == nil || filter.Location == nil || filter.Location.Kind != model.LocationRadius || filter.Location.Center == nil {
		return nil
	}
	coord, ok := inst.Coordinate()
	if !ok {
		return nil
	}
	d := math.Round(geo.DistanceKM(*filter.Location.Center, coord)*100) / 100
	return &d
}

// generateMatchedReasons explains which filter constraints an installation satisfied
func (r *Ranker) generateMatchedReasons(result model.InstallationSearchResult, filter *model.FilterSpec, textScore float64) []string {
	reasons := []string{}

	if filter != nil {
		if filter.Identifier != nil && result.InstallationID == *filter.Identifier {
			reasons = append(reasons, ReasonIdentifierLookup)
		}
		if filter.Technology != nil && result.Technology == *filter.Technology {
			reasons = append(reasons, ReasonTechnologyMatch)
		}
		if c := filter.Capacity; c != nil && c.Contains(result.CapacityKW) {
			if c.IsTarget() {
				reasons = append(reasons, ReasonNearTarget)
			} else {
				reasons = append(reasons, ReasonCapacityInRange)
			}
		} else if s := filter.Sort; s != nil && s.Key == model.SortDistanceFromTarget {
			reasons = append(reasons, ReasonNearTarget)
		}
		if loc := filter.Location; loc != nil {
			switch loc.Kind {
			case model.LocationNamed:
				reasons = append(reasons, ReasonInRegion)
			case model.LocationPostcodeExact:
				reasons = append(reasons, ReasonPostcodeMatch)
			case model.LocationRadius:
				if result.DistanceKM != nil {
					reasons = append(reasons, ReasonWithinRadius)
				}
			}
		}
		if filter.Window != nil && result.Window == *filter.Window {
			reasons = append(reasons, ReasonWindowMatch)
		}
	}

	if textScore > 0.1 {
		reasons = append(reasons, ReasonContentRelevant)
	}

	if result.Window == model.WindowImmediate {
		reasons = append(reasons, ReasonSubsidyEndsSoon)
	}

	if len(reasons) == 0 {
		reasons = append(reasons, ReasonGeneralMatch)
	}

	return reasons
}
