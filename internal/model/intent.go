package model

// IntentKind labels what a conversational turn is asking for
type IntentKind string

const (
	IntentNewSearch        IntentKind = "new_search"
	IntentFollowupReuse    IntentKind = "followup_reuse"
	IntentAggregate        IntentKind = "aggregate"
	IntentGeographicSearch IntentKind = "geographic_search"
	IntentComparative      IntentKind = "comparative"
	IntentExport           IntentKind = "export"
	IntentLookup           IntentKind = "lookup"
)

// FollowupAction says what a follow-up wants done with the previous results
type FollowupAction string

const (
	ActionDetails    FollowupAction = "details"
	ActionMore       FollowupAction = "more"
	ActionRefine     FollowupAction = "refine"
	ActionFinancials FollowupAction = "financials"
)

// AggregateMetric is the statistic requested by an aggregate turn
type AggregateMetric string

const (
	MetricCount   AggregateMetric = "count"
	MetricTotal   AggregateMetric = "total"
	MetricAverage AggregateMetric = "average"
)

// Intent is the classification of one turn
type Intent struct {
	Kind   IntentKind      `json:"kind"`
	Action FollowupAction  `json:"action,omitempty"`
	Metric AggregateMetric `json:"metric,omitempty"`

	// ReferencesPrior is set when the turn points back at the previous result set
	// and the session actually has one.
	ReferencesPrior bool `json:"references_prior,omitempty"`
}

// ReusesPrior reports whether the merger should start from the previous filter
func (i Intent) ReusesPrior() bool {
	return i.Kind == IntentFollowupReuse || i.ReferencesPrior
}

// ExecutionModeKind tells the search collaborator how to run a filter
type ExecutionModeKind string

const (
	ModeRankedTopK        ExecutionModeKind = "ranked_top_k"
	ModeFullScanAggregate ExecutionModeKind = "full_scan_aggregate"
	ModeFullScanExport    ExecutionModeKind = "full_scan_export"
)

// ExecutionMode is consumed by the search collaborator, not by the engine
type ExecutionMode struct {
	Kind   ExecutionModeKind `json:"kind"`
	K      int               `json:"k,omitempty"`
	Metric AggregateMetric   `json:"metric,omitempty"`
}

// ExecutionModeFor maps an intent to the way its filter must be executed
func ExecutionModeFor(intent Intent, limit *int, defaultK int) ExecutionMode {
	switch intent.Kind {
	case IntentAggregate:
		metric := intent.Metric
		if metric == "" {
			metric = MetricCount
		}
		return ExecutionMode{Kind: ModeFullScanAggregate, Metric: metric}
	case IntentComparative:
		return ExecutionMode{Kind: ModeFullScanAggregate, Metric: MetricCount}
	case IntentExport:
		return ExecutionMode{Kind: ModeFullScanExport}
	}
	k := defaultK
	if limit != nil && *limit > 0 {
		k = *limit
	}
	return ExecutionMode{Kind: ModeRankedTopK, K: k}
}
