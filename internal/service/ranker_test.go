package service

import (
	"testing"

	"fitsearch/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func installation(id string, tech model.Technology, kw, years float64) model.Installation {
	return model.Installation{InstallationID: id, Technology: tech, CapacityKW: kw, YearsRemaining: years}
}

func TestRankResultsOrdersByScore(t *testing.T) {
	r := NewRanker(0.4, 0.35, 0.25)
	items := []model.Installation{
		installation("a", model.TechWind, 200, 12),
		installation("b", model.TechWind, 200, 1.5),
		installation("c", model.TechWind, 200, 4),
	}

	got := r.RankResults(items, &model.FilterSpec{Technology: ptr(model.TechWind)})
	require.Len(t, got, 3)
	assert.Equal(t, []string{"b", "c", "a"}, []string{got[0].InstallationID, got[1].InstallationID, got[2].InstallationID})
	assert.Equal(t, model.WindowImmediate, got[0].Window)
	assert.Contains(t, got[0].MatchedReasons, ReasonTechnologyMatch)
	assert.Contains(t, got[0].MatchedReasons, ReasonSubsidyEndsSoon)
}

func TestRankResultsKeepsSortedOrder(t *testing.T) {
	r := NewRanker(0.4, 0.35, 0.25)
	items := []model.Installation{
		installation("big", model.TechWind, 900, 15),
		installation("mid", model.TechWind, 300, 1),
		installation("small", model.TechWind, 50, 3),
	}

	got := r.RankResults(items, &model.FilterSpec{Sort: &model.SortDirective{Key: model.SortCapacityDesc}})
	assert.Equal(t, "big", got[0].InstallationID)
	assert.Equal(t, "mid", got[1].InstallationID)
	assert.Equal(t, "small", got[2].InstallationID)
}

func TestCapacityScore(t *testing.T) {
	r := NewRanker(0, 1, 0)
	target := &model.FilterSpec{Capacity: &model.CapacityBound{
		MinKW: ptr(310.0), MaxKW: ptr(360.0), TargetKW: ptr(335.0), ToleranceKW: 25,
	}}
	between := &model.FilterSpec{Capacity: &model.CapacityBound{MinKW: ptr(100.0), MaxKW: ptr(300.0)}}
	relaxed := &model.FilterSpec{Sort: model.SortByDistanceFrom(800)}

	tests := []struct {
		name   string
		kw     float64
		filter *model.FilterSpec
		want   float64
	}{
		{"on target", 335, target, 1},
		{"edge of tolerance", 360, target, 0},
		{"half way to the edge", 322.5, target, 0.5},
		{"range midpoint", 200, between, 1},
		{"range edge", 300, between, 0},
		{"outside range", 400, between, 0},
		{"relaxed target", 400, relaxed, 0.5},
		{"no filter", 123, nil, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, r.calculateCapacityScore(tt.kw, tt.filter), 1e-9)
		})
	}
}

func TestRankResultsDistance(t *testing.T) {
	r := NewRanker(0.4, 0.35, 0.25)
	lat, lon := 54.14, -0.80
	near := installation("near", model.TechWind, 330, 6)
	near.Latitude, near.Longitude = &lat, &lon
	unplaced := installation("unplaced", model.TechWind, 330, 6)

	center := model.Coordinate{Lat: 54.1364, Lon: -0.7973}
	filter := &model.FilterSpec{
		Location: ptr(model.RadiusLocation(model.LocationRecord{CanonicalName: "Malton", Coordinate: center}, 10, "malton")),
	}

	got := r.RankResults([]model.Installation{near, unplaced}, filter)
	require.Len(t, got, 2)
	require.NotNil(t, got[0].DistanceKM)
	assert.Less(t, *got[0].DistanceKM, 1.0)
	assert.Contains(t, got[0].MatchedReasons, ReasonWithinRadius)
	assert.Nil(t, got[1].DistanceKM)
	assert.Equal(t, []string{ReasonGeneralMatch}, got[1].MatchedReasons)
}
