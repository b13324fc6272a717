package service

import (
	"testing"

	"fitsearch/internal/geo"
	"fitsearch/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeOverridesLocation(t *testing.T) {
	x := newTestExtractor()
	m := NewMerger(newTestCompiler())

	prior, err := m.Merge(nil, x.Extract("wind sites in yorkshire"), model.Intent{Kind: model.IntentNewSearch})
	require.NoError(t, err)
	require.Equal(t, model.LocationNamed, prior.Location.Kind)
	assert.Contains(t, prior.Location.PostcodePrefixes, "YO")

	refine := model.Intent{Kind: model.IntentFollowupReuse, Action: model.ActionRefine}
	got, err := m.Merge(prior, x.Extract("what about cornwall"), refine)
	require.NoError(t, err)

	assert.Equal(t, model.TechWind, *got.Technology)
	assert.Equal(t, "Cornwall", got.Location.RegionName)
	assert.Equal(t, []string{"PL", "TR"}, got.Location.PostcodePrefixes)
	assert.NotContains(t, got.Location.PostcodePrefixes, "YO")

	// the prior filter is untouched
	assert.Equal(t, "Yorkshire", prior.Location.RegionName)
}

func TestMergeRadiusKeepsCentre(t *testing.T) {
	x := newTestExtractor()
	m := NewMerger(newTestCompiler())

	prior, err := m.Merge(nil, x.Extract("wind within 5 miles of york"), model.Intent{Kind: model.IntentGeographicSearch})
	require.NoError(t, err)
	require.Equal(t, model.LocationRadius, prior.Location.Kind)

	intent := model.Intent{Kind: model.IntentGeographicSearch, ReferencesPrior: true}
	got, err := m.Merge(prior, x.Extract("make it 20 miles"), intent)
	require.NoError(t, err)

	require.Equal(t, model.LocationRadius, got.Location.Kind)
	assert.Equal(t, *prior.Location.Center, *got.Location.Center)
	assert.Equal(t, "York", got.Location.CenterName)
	assert.InDelta(t, geo.MilesToKM(20), got.Location.RadiusKM, 0.001)
	assert.Equal(t, model.TechWind, *got.Technology)
}

func TestMergeNewSearchDropsPrior(t *testing.T) {
	x := newTestExtractor()
	m := NewMerger(newTestCompiler())

	prior, err := m.Merge(nil, x.Extract("wind over 100kw in berkshire"), model.Intent{Kind: model.IntentNewSearch})
	require.NoError(t, err)

	got, err := m.Merge(prior, x.Extract("solar farms"), model.Intent{Kind: model.IntentNewSearch})
	require.NoError(t, err)
	assert.Equal(t, model.TechPhotovoltaic, *got.Technology)
	assert.Nil(t, got.Capacity)
	assert.Nil(t, got.Location)
}

func TestMergeReplacesNeverUnions(t *testing.T) {
	x := newTestExtractor()
	m := NewMerger(newTestCompiler())
	refine := model.Intent{Kind: model.IntentFollowupReuse, Action: model.ActionRefine}

	prior, err := m.Merge(nil, x.Extract("urgent wind sites over 100kw"), model.Intent{Kind: model.IntentNewSearch})
	require.NoError(t, err)

	got, err := m.Merge(prior, x.Extract("only the optimal ones under 400kw"), refine)
	require.NoError(t, err)
	assert.Equal(t, model.WindowOptimal, *got.Window)
	require.NotNil(t, got.Capacity)
	assert.Nil(t, got.Capacity.MinKW)
	assert.Equal(t, 400.0, *got.Capacity.MaxKW)
	assert.Equal(t, model.TechWind, *got.Technology)
}

func TestMergeComparative(t *testing.T) {
	x := newTestExtractor()
	m := NewMerger(newTestCompiler())

	prior, err := m.Merge(nil, x.Extract("wind sites in cornwall"), model.Intent{Kind: model.IntentNewSearch})
	require.NoError(t, err)

	compare := model.Intent{Kind: model.IntentComparative, ReferencesPrior: true}
	got, err := m.Merge(prior, x.Extract("compare with solar"), compare)
	require.NoError(t, err)
	assert.Nil(t, got.Technology)
	assert.Equal(t, []model.Technology{model.TechWind, model.TechPhotovoltaic}, got.CompareTechnologies)
	assert.Equal(t, "Cornwall", got.Location.RegionName)

	// a third technology joins the existing set
	got, err = m.Merge(got, x.Extract("and hydro"), compare)
	require.NoError(t, err)
	assert.Equal(t, []model.Technology{model.TechWind, model.TechPhotovoltaic, model.TechHydro}, got.CompareTechnologies)

	fresh, err := m.Merge(nil, x.Extract("compare wind and hydro"), model.Intent{Kind: model.IntentComparative})
	require.NoError(t, err)
	assert.Equal(t, []model.Technology{model.TechWind, model.TechHydro}, fresh.CompareTechnologies)
}

func TestMergeTargetCapacityCarries(t *testing.T) {
	x := newTestExtractor()
	m := NewMerger(newTestCompiler())

	prior, err := m.Merge(nil, x.Extract("335kw wind turbine in yo17"), model.Intent{Kind: model.IntentNewSearch})
	require.NoError(t, err)

	got, err := m.Merge(prior, x.Extract("what about yo18"), model.Intent{Kind: model.IntentFollowupReuse, Action: model.ActionRefine})
	require.NoError(t, err)
	assert.Equal(t, "YO18", got.Location.Outcode)
	assert.Equal(t, 335.0, *got.Capacity.TargetKW)
	require.NotNil(t, got.Sort)
	assert.Equal(t, model.SortDistanceFromTarget, got.Sort.Key)
}
