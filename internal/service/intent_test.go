package service

import (
	"testing"

	"fitsearch/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	c := NewIntentClassifier(newTestExtractor())
	withResults := &model.Session{
		ID:               "s1",
		TurnCount:        1,
		LastFilter:       &model.FilterSpec{Technology: ptr(model.TechWind)},
		LastResultHandle: &model.ResultHandle{SearchID: "search-1", Total: 3, InstallationIDs: []string{"100101"}},
	}
	withoutResults := &model.Session{ID: "s2", TurnCount: 1}

	tests := []struct {
		name    string
		text    string
		session *model.Session
		want    model.Intent
	}{
		{
			name: "plain search",
			text: "wind sites over 100kw in berkshire",
			want: model.Intent{Kind: model.IntentNewSearch},
		},
		{
			name: "identifier lookup",
			text: "fit id 123456",
			want: model.Intent{Kind: model.IntentLookup},
		},
		{
			name: "lookup beats aggregate",
			text: "how many days left for fit id 123456",
			want: model.Intent{Kind: model.IntentLookup},
		},
		{
			name: "count",
			text: "how many wind sites in yorkshire",
			want: model.Intent{Kind: model.IntentAggregate, Metric: model.MetricCount},
		},
		{
			name: "average",
			text: "average capacity of solar farms",
			want: model.Intent{Kind: model.IntentAggregate, Metric: model.MetricAverage},
		},
		{
			name: "total",
			text: "total capacity of hydro in wales",
			want: model.Intent{Kind: model.IntentAggregate, Metric: model.MetricTotal},
		},
		{
			name: "aggregate beats radius",
			text: "how many wind sites within 10 miles of york",
			want: model.Intent{Kind: model.IntentAggregate, Metric: model.MetricCount},
		},
		{
			name: "radius",
			text: "wind within 10 miles of york",
			want: model.Intent{Kind: model.IntentGeographicSearch},
		},
		{
			name: "near a town",
			text: "wind near malton",
			want: model.Intent{Kind: model.IntentGeographicSearch},
		},
		{
			name: "comparative",
			text: "compare wind and solar in cornwall",
			want: model.Intent{Kind: model.IntentComparative},
		},
		{
			name: "export",
			text: "export wind sites in cornwall",
			want: model.Intent{Kind: model.IntentExport},
		},
		{
			name:    "follow-up without a session is a new search",
			text:    "show me more",
			session: nil,
			want:    model.Intent{Kind: model.IntentNewSearch},
		},
		{
			name:    "follow-up on a session without results is a new search",
			text:    "show me more",
			session: withoutResults,
			want:    model.Intent{Kind: model.IntentNewSearch},
		},
		{
			name:    "more",
			text:    "show me more",
			session: withResults,
			want:    model.Intent{Kind: model.IntentFollowupReuse, Action: model.ActionMore},
		},
		{
			name:    "details",
			text:    "tell me more about them",
			session: withResults,
			want:    model.Intent{Kind: model.IntentFollowupReuse, Action: model.ActionDetails},
		},
		{
			name:    "financials",
			text:    "what income do they make",
			session: withResults,
			want:    model.Intent{Kind: model.IntentFollowupReuse, Action: model.ActionFinancials},
		},
		{
			name:    "location swap refines",
			text:    "what about leeds?",
			session: withResults,
			want:    model.Intent{Kind: model.IntentFollowupReuse, Action: model.ActionRefine},
		},
		{
			name:    "bare radius refers back",
			text:    "make it 20 miles",
			session: withResults,
			want:    model.Intent{Kind: model.IntentGeographicSearch, ReferencesPrior: true},
		},
		{
			name:    "aggregate over previous results",
			text:    "how many of those are hydro",
			session: withResults,
			want:    model.Intent{Kind: model.IntentAggregate, Metric: model.MetricCount, ReferencesPrior: true},
		},
		{
			name:    "compare against previous technology",
			text:    "compare with solar",
			session: withResults,
			want:    model.Intent{Kind: model.IntentComparative, ReferencesPrior: true},
		},
		{
			name:    "fresh search with results in session",
			text:    "solar farms in devon",
			session: withResults,
			want:    model.Intent{Kind: model.IntentNewSearch},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.text, tt.session))
		})
	}
}

func TestIntentReusesPrior(t *testing.T) {
	assert.True(t, model.Intent{Kind: model.IntentFollowupReuse}.ReusesPrior())
	assert.True(t, model.Intent{Kind: model.IntentAggregate, ReferencesPrior: true}.ReusesPrior())
	assert.False(t, model.Intent{Kind: model.IntentNewSearch}.ReusesPrior())
}
