package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHaversineSymmetry(t *testing.T) {
	pairs := [][4]float64{
		{37.4019, -122.111, 37.3861, -122.0839},
		{45.815, 15.9819, 43.5081, 16.4402},
		{-33.8688, 151.2093, 51.5074, -0.1278},
		{0, 0, 0, 180},
	}

	for _, p := range pairs {
		ab := HaversineKm(p[0], p[1], p[2], p[3])
		ba := HaversineKm(p[2], p[3], p[0], p[1])
		assert.InDelta(t, ab, ba, 1e-9, "distance must be symmetric")
	}
}

func TestHaversineIdentity(t *testing.T) {
	assert.Equal(t, 0.0, HaversineKm(37.4019, -122.111, 37.4019, -122.111))
	assert.Equal(t, 0.0, HaversineKm(0, 0, 0, 0))
}

func TestHaversineKnownDistance(t *testing.T) {
	// Mountain View to Sunnyvale, roughly 3 km.
	d := HaversineKm(37.4019, -122.111, 37.3688, -122.0363)
	assert.Greater(t, d, 5.0)
	assert.Less(t, d, 10.0)
}

func TestEstimateTravelTimeMonotonic(t *testing.T) {
	distances := []float64{0, 0.5, 1, 2.5, 10, 50, 100}
	prev := -1.0
	for _, d := range distances {
		m := EstimateTravelTimeMin(d)
		assert.GreaterOrEqual(t, m, prev)
		prev = m
	}

	// 30 km at 30 km/h is an hour.
	assert.InDelta(t, 60.0, EstimateTravelTimeMin(30), 1e-9)
}

func TestEstimateInstoreTime(t *testing.T) {
	assert.InDelta(t, 5.0, EstimateInstoreTimeMin(0), 1e-9)
	assert.InDelta(t, 6.5, EstimateInstoreTimeMin(1), 1e-9)
	assert.InDelta(t, 20.0, EstimateInstoreTimeMin(10), 1e-9)
}

func TestNearestNeighborOrderVisitsAllOnce(t *testing.T) {
	origin := Point{Lat: 37.4019, Lon: -122.111}
	points := []Point{
		{Lat: 37.44, Lon: -122.16},
		{Lat: 37.39, Lon: -122.08},
		{Lat: 37.42, Lon: -122.10},
		{Lat: 37.35, Lon: -122.03},
	}

	order := NearestNeighborOrder(origin, points)
	assert.Len(t, order, len(points))

	seen := make(map[int]bool)
	for _, idx := range order {
		assert.False(t, seen[idx], "index %d visited twice", idx)
		seen[idx] = true
	}
}

func TestNearestNeighborOrderPicksClosestFirst(t *testing.T) {
	origin := Point{Lat: 0, Lon: 0}
	points := []Point{
		{Lat: 0, Lon: 3}, // far
		{Lat: 0, Lon: 1}, // closest
		{Lat: 0, Lon: 2},
	}

	order := NearestNeighborOrder(origin, points)
	assert.Equal(t, []int{1, 2, 0}, order)
}

func TestNearestNeighborOrderEmpty(t *testing.T) {
	assert.Empty(t, NearestNeighborOrder(Point{}, nil))
}

func TestRouteDistance(t *testing.T) {
	origin := Point{Lat: 0, Lon: 0}
	stops := []Point{{Lat: 0, Lon: 1}, {Lat: 0, Lon: 2}}

	leg1 := HaversineKm(0, 0, 0, 1)
	leg2 := HaversineKm(0, 1, 0, 2)
	assert.InDelta(t, leg1+leg2, RouteDistanceKm(origin, stops), 1e-9)
	assert.Equal(t, 0.0, RouteDistanceKm(origin, nil))
}
