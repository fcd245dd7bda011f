// Package distance resolves driving distance and duration between
// coordinate pairs. It wraps the Google Distance Matrix API and degrades
// to haversine estimates whenever the provider cannot answer; a provider
// outage is never an error for callers.
package distance

import (
	"fmt"

	"github.com/patricknguyendev/simplygrocery/internal/geo"
)

// Source tags where a matrix element came from.
type Source string

const (
	// SourceReal marks elements answered by the external provider.
	SourceReal Source = "real"
	// SourceFallback marks elements synthesized from haversine distance.
	SourceFallback Source = "fallback"
	// SourceMixed is used at aggregate level when legs disagree.
	SourceMixed Source = "mixed"
)

// Status is the per-element outcome.
type Status string

const (
	StatusOK          Status = "ok"
	StatusZeroResults Status = "zero_results"
	StatusError       Status = "error"
)

// Element holds the resolved distance and duration for one pair.
type Element struct {
	DistanceMeters  int
	DurationSeconds int
	DistanceText    string
	DurationText    string
}

// Result is one origin-destination pair with its resolved element.
type Result struct {
	Origin       geo.Point
	Destination  geo.Point
	Element      Element
	Source       Source
	Status       Status
	ErrorMessage string
}

// DistanceKm returns the element distance in kilometers.
func (r Result) DistanceKm() float64 {
	return float64(r.Element.DistanceMeters) / 1000
}

// DurationMin returns the element duration in minutes.
func (r Result) DurationMin() float64 {
	return float64(r.Element.DurationSeconds) / 60
}

// Options control the provider request.
type Options struct {
	Mode string // driving, walking, bicycling, transit
}

// Set indexes results by origin-destination pair for leg lookups during
// route building. Coordinates are quantized to ~0.1m so that points
// round-tripped through the provider still match.
type Set struct {
	byPair map[string]Result
}

// NewSet builds a Set from provider results. Later results for the same
// pair win, which keeps real data over fallback when both were fetched.
func NewSet(results []Result) *Set {
	s := &Set{byPair: make(map[string]Result, len(results))}
	for _, r := range results {
		existing, ok := s.byPair[pairKey(r.Origin, r.Destination)]
		if ok && existing.Source == SourceReal && r.Source == SourceFallback {
			continue
		}
		s.byPair[pairKey(r.Origin, r.Destination)] = r
	}
	return s
}

// Lookup returns the result for a pair, if any was fetched.
func (s *Set) Lookup(origin, destination geo.Point) (Result, bool) {
	if s == nil {
		return Result{}, false
	}
	r, ok := s.byPair[pairKey(origin, destination)]
	return r, ok
}

// Len returns the number of distinct pairs in the set.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.byPair)
}

func pairKey(o, d geo.Point) string {
	return fmt.Sprintf("%.6f,%.6f|%.6f,%.6f", o.Lat, o.Lon, d.Lat, d.Lon)
}

// Fallback synthesizes a fallback result for a pair from haversine
// distance and the linear travel-time model, preserving the reason.
func Fallback(origin, destination geo.Point, status Status, reason string) Result {
	distanceKm := geo.HaversineKm(origin.Lat, origin.Lon, destination.Lat, destination.Lon)
	durationMin := geo.EstimateTravelTimeMin(distanceKm)

	return Result{
		Origin:      origin,
		Destination: destination,
		Element: Element{
			DistanceMeters:  int(distanceKm*1000 + 0.5),
			DurationSeconds: int(durationMin*60 + 0.5),
			DistanceText:    fmt.Sprintf("%.1f km", distanceKm),
			DurationText:    fmt.Sprintf("%d mins", int(durationMin+0.5)),
		},
		Source:       SourceFallback,
		Status:       status,
		ErrorMessage: reason,
	}
}
