// Package geo provides pure geographic math for trip planning: great-circle
// distances, travel and in-store time estimates, and greedy route ordering.
package geo

import (
	"math"
)

const (
	// earthRadiusKm is the mean Earth radius used for haversine distances.
	earthRadiusKm = 6371.0

	// avgSpeedKmh is the assumed average urban driving speed, accounting
	// for traffic and lights.
	avgSpeedKmh = 30.0

	// instoreBaseMin covers parking, entering and checkout.
	instoreBaseMin = 5.0

	// instorePerItemMin is the time to locate and grab one item.
	instorePerItemMin = 1.5
)

// Point is a WGS84 coordinate pair.
type Point struct {
	Lat float64
	Lon float64
}

// HaversineKm calculates the great-circle distance between two points in
// kilometers. Symmetric: HaversineKm(a, b) == HaversineKm(b, a).
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}

// EstimateTravelTimeMin estimates driving time in minutes for a distance,
// using the linear urban-speed model. Monotonically non-decreasing.
func EstimateTravelTimeMin(distanceKm float64) float64 {
	return distanceKm / avgSpeedKmh * 60
}

// EstimateInstoreTimeMin estimates shopping time in minutes for a stop
// with the given number of items.
func EstimateInstoreTimeMin(itemCount int) float64 {
	return instoreBaseMin + instorePerItemMin*float64(itemCount)
}

// NearestNeighborOrder returns the indices of points in greedy
// nearest-neighbor visit order starting from origin: repeatedly pick the
// unvisited point closest to the current position and advance to it.
// O(n^2); store counts per plan are small. Ties keep the first-encountered
// point, so output is deterministic for a deterministic input order.
func NearestNeighborOrder(origin Point, points []Point) []int {
	order := make([]int, 0, len(points))
	visited := make([]bool, len(points))
	current := origin

	for len(order) < len(points) {
		nearest := -1
		nearestDist := math.Inf(1)
		for i, p := range points {
			if visited[i] {
				continue
			}
			if d := HaversineKm(current.Lat, current.Lon, p.Lat, p.Lon); d < nearestDist {
				nearestDist = d
				nearest = i
			}
		}
		visited[nearest] = true
		order = append(order, nearest)
		current = points[nearest]
	}

	return order
}

// RouteDistanceKm sums the consecutive leg distances of a route that starts
// at origin and visits the points in order.
func RouteDistanceKm(origin Point, ordered []Point) float64 {
	total := 0.0
	prev := origin
	for _, p := range ordered {
		total += HaversineKm(prev.Lat, prev.Lon, p.Lat, p.Lon)
		prev = p
	}
	return total
}
