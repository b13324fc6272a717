package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"fitsearch/internal/model"
)

func TestDistanceKM(t *testing.T) {
	york := model.Coordinate{Lat: 53.9590, Lon: -1.0815}
	leeds := model.Coordinate{Lat: 53.7997, Lon: -1.5492}

	tests := []struct {
		name string
		a, b model.Coordinate
		want float64
		tol  float64
	}{
		{"same point", york, york, 0, 1e-9},
		{"york to leeds", york, leeds, 35.4, 1.0},
		{"one degree of latitude", model.Coordinate{Lat: 0, Lon: 0}, model.Coordinate{Lat: 1, Lon: 0}, 111.19, 0.05},
		{"antipodal", model.Coordinate{Lat: 0, Lon: 0}, model.Coordinate{Lat: 0, Lon: 180}, math.Pi * EarthRadiusKM, 0.01},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DistanceKM(tt.a, tt.b)
			assert.InDelta(t, tt.want, got, tt.tol)
			assert.InDelta(t, got, DistanceKM(tt.b, tt.a), 1e-9, "distance must be symmetric")
		})
	}
}

func TestWithinRadius(t *testing.T) {
	center := model.Coordinate{Lat: 54.1364, Lon: -0.7973}
	near := model.Coordinate{Lat: 54.2462, Lon: -0.7758}
	d := DistanceKM(center, near)

	assert.True(t, WithinRadius(center, d, near), "boundary is inclusive")
	assert.False(t, WithinRadius(center, d-0.01, near))
	assert.True(t, WithinRadius(center, 0, center))
}

func TestMilesToKM(t *testing.T) {
	assert.InDelta(t, 16.09344, MilesToKM(10), 1e-9)
	assert.Equal(t, 0.0, MilesToKM(0))
}
