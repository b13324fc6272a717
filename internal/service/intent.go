package service

import (
	"regexp"

	"fitsearch/internal/model"
	"fitsearch/internal/utils"
)

var (
	reAverageCue = regexp.MustCompile(`\b(?:average|mean|avg)\b`)
	reCountCue   = regexp.MustCompile(`\b(?:how many|number of|count(?: of)?)\b`)
	reTotalCue   = regexp.MustCompile(`\b(?:total|sum of|combined capacity|in aggregate)\b`)

	reGeoCue = regexp.MustCompile(`\b(?:near|nearby|close to|around|surrounding|radius|within \d+(?:\.\d+)? ?(?:miles?|mi|kms?))\b`)

	reCompareCue = regexp.MustCompile(`\b(?:compare|comparing|comparison|versus|vs|compared (?:to|with)|against)\b`)
	reExportCue  = regexp.MustCompile(`\b(?:export|download|csv|spreadsheet|excel)\b`)

	reFollowupCue = regexp.MustCompile(`^(?:and|now|also|ok|okay|then|so)\b|\b(?:those|these|them|they|their|theirs|same ones|the same|previous|earlier|last (?:results|search|ones)|what about|how about|instead|only the|just the|of them|give me more|show(?: me)? more|tell me more|more details|next(?: page| ones| results)?|the rest|any more|others)\b`)

	reFinancialCue = regexp.MustCompile(`\b(?:income|revenue|earnings|financials?|earn|make per year)\b`)
	reDetailsCue   = regexp.MustCompile(`\b(?:details?|tell me more|more info(?:rmation)?|about (?:them|those|these|it))\b`)
	reMoreCue      = regexp.MustCompile(`\b(?:give me more|show(?: me)? more|more results|more of (?:them|those|these)|next(?: page| ones| results)?|the rest|any more|others)\b`)
)

// IntentClassifier labels a turn. It never fails; with no usable cue the turn is a NewSearch.
type IntentClassifier struct {
	extractor *Extractor
}

// NewIntentClassifier creates a classifier. The extractor is only used by Classify
// when the caller has not already extracted candidates.
func NewIntentClassifier(extractor *Extractor) *IntentClassifier {
	return &IntentClassifier{extractor: extractor}
}

// Classify labels text in the context of session, which may be nil
func (c *IntentClassifier) Classify(text string, session *model.Session) model.Intent {
	var cand model.EntityCandidates
	if c.extractor != nil {
		cand = c.extractor.Extract(text)
	}
	return c.ClassifyCandidates(text, session, cand)
}

// ClassifyCandidates applies the priority order: identifier lookup, aggregate,
// radius or geographic phrasing, comparative, export, follow-up (only when the
// session holds results), new search.
func (c *IntentClassifier) ClassifyCandidates(text string, session *model.Session, cand model.EntityCandidates) model.Intent {
	q := utils.NormalizeText(text)
	hasResults := session.HasResults()
	refersBack := hasResults && reFollowupCue.MatchString(q)

	if id := cand.Identifier; id != nil && (id.Keyword || cand.Capacity == nil) {
		return model.Intent{Kind: model.IntentLookup}
	}

	if metric, ok := aggregateMetric(q); ok {
		return model.Intent{Kind: model.IntentAggregate, Metric: metric, ReferencesPrior: refersBack}
	}

	if hasRadius(cand) || reGeoCue.MatchString(q) {
		return model.Intent{Kind: model.IntentGeographicSearch, ReferencesPrior: refersBack || (hasResults && isElliptical(cand))}
	}

	// "compare with solar" after a wind search compares against the wind results
	if reCompareCue.MatchString(q) {
		return model.Intent{Kind: model.IntentComparative, ReferencesPrior: refersBack || (hasResults && len(cand.TechnologyMentions) == 1)}
	}

	if reExportCue.MatchString(q) {
		return model.Intent{Kind: model.IntentExport, ReferencesPrior: refersBack}
	}

	if refersBack || (hasResults && isElliptical(cand)) {
		return model.Intent{Kind: model.IntentFollowupReuse, Action: followupAction(q)}
	}

	return model.Intent{Kind: model.IntentNewSearch}
}

func aggregateMetric(q string) (model.AggregateMetric, bool) {
	switch {
	case reAverageCue.MatchString(q):
		return model.MetricAverage, true
	case reCountCue.MatchString(q):
		return model.MetricCount, true
	case reTotalCue.MatchString(q):
		return model.MetricTotal, true
	}
	return "", false
}

func followupAction(q string) model.FollowupAction {
	switch {
	case reFinancialCue.MatchString(q):
		return model.ActionFinancials
	case reDetailsCue.MatchString(q):
		return model.ActionDetails
	case reMoreCue.MatchString(q):
		return model.ActionMore
	}
	return model.ActionRefine
}

func hasRadius(cand model.EntityCandidates) bool {
	for _, l := range cand.Locations {
		if l.Kind == model.CandidateRadius {
			return true
		}
	}
	return false
}

// isElliptical reports a turn that only restates where (or how many), e.g. "what
// about leeds?" or "make it 20 miles", which only makes sense against prior results.
func isElliptical(cand model.EntityCandidates) bool {
	return len(cand.Locations) > 0 && !cand.HasFilterFields()
}
