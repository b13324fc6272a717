package repository

import (
	"context"
	"testing"

	"fitsearch/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadFixture(t *testing.T) *MemoryRepository {
	t.Helper()
	repo, err := LoadMemoryRepository("testdata/installations.yaml")
	require.NoError(t, err)
	return repo
}

func ids(items []model.Installation) []string {
	out := make([]string, len(items))
	for i, inst := range items {
		out[i] = inst.InstallationID
	}
	return out
}

func TestLoadMemoryRepository(t *testing.T) {
	repo := loadFixture(t)
	assert.Equal(t, 17, repo.Len())

	_, err := LoadMemoryRepository("testdata/missing.yaml")
	assert.Error(t, err)
}

func TestMemorySearch(t *testing.T) {
	repo := loadFixture(t)
	malton := model.LocationRecord{CanonicalName: "Malton", Coordinate: model.Coordinate{Lat: 54.1364, Lon: -0.7973}}

	tests := []struct {
		name   string
		filter *model.FilterSpec
		want   []string
	}{
		{
			name: "wind over 100kw in berkshire excludes the S area",
			filter: &model.FilterSpec{
				Technology: ptr(model.TechWind),
				Capacity:   &model.CapacityBound{MinKW: ptr(100.0)},
				Location:   ptr(model.NamedLocation("Berkshire", []string{"RG", "SL"}, "berkshire")),
				Sort:       &model.SortDirective{Key: model.SortCapacityAsc},
			},
			want: []string{"100101", "100103"},
		},
		{
			name: "target capacity in an outcode sorted by closeness",
			filter: &model.FilterSpec{
				Technology: ptr(model.TechWind),
				Capacity:   &model.CapacityBound{MinKW: ptr(310.0), MaxKW: ptr(360.0), TargetKW: ptr(335.0), ToleranceKW: 25},
				Location:   ptr(model.PostcodeLocation("YO17", "", "yo17")),
				Sort:       model.SortByDistanceFrom(335),
			},
			want: []string{"100201", "100202"},
		},
		{
			name: "full postcode",
			filter: &model.FilterSpec{
				Location: ptr(model.PostcodeLocation("YO17", "8DB", "yo17 8db")),
			},
			want: []string{"100202"},
		},
		{
			name: "urgent window",
			filter: &model.FilterSpec{
				Window: ptr(model.WindowUrgent),
				Sort:   &model.SortDirective{Key: model.SortYearsRemainingAsc},
			},
			want: []string{"100402", "100101", "100105", "100502", "100302"},
		},
		{
			name: "radius around a town sorted by distance",
			filter: &model.FilterSpec{
				Location: ptr(model.RadiusLocation(malton, 10, "malton")),
				Sort:     &model.SortDirective{Key: model.SortDistanceFromCenter},
			},
			want: []string{"100201", "100202", "100203"},
		},
		{
			name: "years remaining bound",
			filter: &model.FilterSpec{
				YearsRemaining: &model.YearsBound{Min: ptr(12.0)},
				Sort:           &model.SortDirective{Key: model.SortCapacityDesc},
			},
			want: []string{"100303", "100501", "100104"},
		},
		{
			name:   "identifier",
			filter: &model.FilterSpec{Identifier: ptr("100403")},
			want:   []string{"100403"},
		},
		{
			name: "nothing matches",
			filter: &model.FilterSpec{
				Technology: ptr(model.TechWind),
				Capacity:   &model.CapacityBound{MinKW: ptr(775.0), MaxKW: ptr(825.0)},
			},
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, total, err := repo.Search(context.Background(), Query{Filter: tt.filter, Limit: 50})
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
			assert.Equal(t, len(tt.want), total)
		})
	}
}

func TestMemorySearchPaging(t *testing.T) {
	repo := loadFixture(t)
	filter := &model.FilterSpec{
		Technology: ptr(model.TechWind),
		Sort:       &model.SortDirective{Key: model.SortCapacityDesc},
	}

	page, total, err := repo.Search(context.Background(), Query{Filter: filter, Limit: 3})
	require.NoError(t, err)
	assert.Equal(t, 10, total)
	assert.Equal(t, []string{"100303", "100501", "100203"}, ids(page))

	page, _, err = repo.Search(context.Background(), Query{Filter: filter, Limit: 3, Offset: 3})
	require.NoError(t, err)
	assert.Equal(t, []string{"100105", "100202", "100201"}, ids(page))

	page, total, err = repo.Search(context.Background(), Query{Filter: filter, Limit: 3, Offset: 30})
	require.NoError(t, err)
	assert.Empty(t, page)
	assert.Equal(t, 10, total)
}

func TestMemorySearchKeywords(t *testing.T) {
	repo := loadFixture(t)
	got, _, err := repo.Search(context.Background(), Query{
		Filter:   &model.FilterSpec{Technology: ptr(model.TechWind)},
		Keywords: []string{"farm"},
		Limit:    2,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"100101", "100201"}, ids(got))
	require.NotNil(t, got[0].TextRank)
	assert.Equal(t, 1.0, *got[0].TextRank)
}

func TestMemoryAggregate(t *testing.T) {
	repo := loadFixture(t)
	yorkshire := model.NamedLocation("Yorkshire", []string{"YO", "HU", "LS", "BD", "HG", "HD", "HX", "WF", "DN", "S"}, "yorkshire")

	t.Run("total", func(t *testing.T) {
		got, err := repo.Aggregate(context.Background(), &model.FilterSpec{
			Technology: ptr(model.TechWind),
			Location:   &yorkshire,
		})
		require.NoError(t, err)
		assert.Equal(t, 4, got.Count)
		assert.InDelta(t, 1775, got.TotalCapacityKW, 1e-9)
		assert.InDelta(t, 443.75, got.AverageCapacityKW, 1e-9)
		assert.Nil(t, got.ByTechnology)
	})

	t.Run("comparison", func(t *testing.T) {
		got, err := repo.Aggregate(context.Background(), &model.FilterSpec{
			CompareTechnologies: []model.Technology{model.TechWind, model.TechHydro, model.TechMicroCHP},
			Location:            &yorkshire,
		})
		require.NoError(t, err)
		assert.Equal(t, 5, got.Count)
		assert.Equal(t, model.GroupStat{Count: 4, TotalCapacityKW: 1775}, got.ByTechnology[model.TechWind])
		assert.Equal(t, model.GroupStat{Count: 1, TotalCapacityKW: 50}, got.ByTechnology[model.TechHydro])
		assert.Equal(t, model.GroupStat{}, got.ByTechnology[model.TechMicroCHP])
	})
}

func TestMemoryBatchUpdateEmbeddings(t *testing.T) {
	repo := loadFixture(t)
	success, errs := repo.BatchUpdateEmbeddings(context.Background(), []model.EmbeddingItem{
		{InstallationID: "100101", Embedding: []float32{1, 0}},
		{InstallationID: "999999", Embedding: []float32{0, 1}},
	})
	assert.Equal(t, 1, success)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "999999")

	inst, err := repo.GetInstallation(context.Background(), "100101")
	require.NoError(t, err)
	require.NotNil(t, inst)
	assert.Equal(t, []float32{1, 0}, inst.Embedding.Slice())

	missing, err := repo.GetInstallation(context.Background(), "999999")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
