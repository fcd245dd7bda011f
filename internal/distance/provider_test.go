package distance

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patricknguyendev/simplygrocery/internal/geo"
	"github.com/patricknguyendev/simplygrocery/internal/httpx"
	"github.com/patricknguyendev/simplygrocery/internal/httpx/ratelimit"
)

func testClient() *httpx.Client {
	cfg := ratelimit.Config{RequestsPerSecond: 1000, MaxRetries: 0, InitialBackoffMs: 1, MaxBackoffMs: 2}
	return httpx.NewClient(cfg, 2*time.Second)
}

func TestMatrixWithoutAPIKeyFallsBackForAllPairs(t *testing.T) {
	p := NewGoogleProvider("", testClient(), DefaultLimits(), DefaultBreakerConfig())

	origins := []geo.Point{{Lat: 37.40, Lon: -122.11}, {Lat: 37.41, Lon: -122.12}}
	destinations := []geo.Point{{Lat: 37.39, Lon: -122.08}, {Lat: 37.42, Lon: -122.10}, {Lat: 37.35, Lon: -122.03}}

	results := p.Matrix(context.Background(), origins, destinations, Options{})

	require.Len(t, results, len(origins)*len(destinations))
	for _, r := range results {
		assert.Equal(t, SourceFallback, r.Source)
		assert.Equal(t, StatusError, r.Status)
		assert.NotEmpty(t, r.ErrorMessage)
		assert.Greater(t, r.Element.DistanceMeters, 0)
	}
}

func TestMatrixProviderFailureFallsBackForAllPairs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	p := NewGoogleProvider("test-key", testClient(), DefaultLimits(), DefaultBreakerConfig())
	p.baseURL = srv.URL

	origins := []geo.Point{{Lat: 45.81, Lon: 15.98}}
	destinations := []geo.Point{{Lat: 45.80, Lon: 15.97}, {Lat: 45.79, Lon: 15.96}}

	results := p.Matrix(context.Background(), origins, destinations, Options{})

	require.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, SourceFallback, r.Source)
		assert.NotEmpty(t, r.ErrorMessage)
	}
}

func TestMatrixParsesProviderResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"status": "OK",
			"rows": []map[string]any{
				{
					"elements": []map[string]any{
						{
							"status":   "OK",
							"distance": map[string]any{"value": 4200, "text": "4.2 km"},
							"duration": map[string]any{"value": 600, "text": "10 mins"},
						},
						{
							"status": "ZERO_RESULTS",
						},
					},
				},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	p := NewGoogleProvider("test-key", testClient(), DefaultLimits(), DefaultBreakerConfig())
	p.baseURL = srv.URL

	origin := geo.Point{Lat: 37.40, Lon: -122.11}
	destinations := []geo.Point{{Lat: 37.39, Lon: -122.08}, {Lat: 37.36, Lon: -122.02}}

	results := p.Matrix(context.Background(), []geo.Point{origin}, destinations, Options{})
	require.Len(t, results, 2)

	assert.Equal(t, SourceReal, results[0].Source)
	assert.Equal(t, StatusOK, results[0].Status)
	assert.Equal(t, 4200, results[0].Element.DistanceMeters)
	assert.Equal(t, 600, results[0].Element.DurationSeconds)

	// ZERO_RESULTS degrades to fallback for that pair only.
	assert.Equal(t, SourceFallback, results[1].Source)
	assert.Equal(t, StatusZeroResults, results[1].Status)
	assert.NotEmpty(t, results[1].ErrorMessage)
}

func TestBreakerOpensAfterRepeatedFailures(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	cfg := BreakerConfig{MaxFailures: 2, ResetTimeout: time.Hour}
	p := NewGoogleProvider("test-key", testClient(), DefaultLimits(), cfg)
	p.baseURL = srv.URL

	origins := []geo.Point{{Lat: 1, Lon: 1}}
	destinations := []geo.Point{{Lat: 2, Lon: 2}}

	for i := 0; i < 5; i++ {
		p.Matrix(context.Background(), origins, destinations, Options{})
	}

	assert.Equal(t, circuitOpen, p.breaker.currentState())
	assert.Equal(t, 2, calls, "provider should not be called once the breaker opens")
}

func TestSplitBatchesRespectsLimits(t *testing.T) {
	p := NewGoogleProvider("key", testClient(), Limits{MaxOrigins: 3, MaxDestinations: 3, MaxElements: 6}, DefaultBreakerConfig())

	points := func(n int) []geo.Point {
		out := make([]geo.Point, n)
		for i := range out {
			out[i] = geo.Point{Lat: float64(i), Lon: float64(i)}
		}
		return out
	}

	batches := p.splitBatches(points(7), points(5))

	totalElements := 0
	for _, b := range batches {
		assert.LessOrEqual(t, len(b.origins), 3)
		assert.LessOrEqual(t, len(b.destinations), 3)
		assert.LessOrEqual(t, len(b.origins)*len(b.destinations), 6)
		totalElements += len(b.origins) * len(b.destinations)
	}
	assert.Equal(t, 7*5, totalElements, "batches must cover the full cross product")
}

func TestRouteReturnsOneResultPerLeg(t *testing.T) {
	p := NewGoogleProvider("", testClient(), DefaultLimits(), DefaultBreakerConfig())

	origin := geo.Point{Lat: 0, Lon: 0}
	stops := []geo.Point{{Lat: 0, Lon: 1}, {Lat: 0, Lon: 2}, {Lat: 0, Lon: 3}}

	legs := p.Route(context.Background(), origin, stops, Options{})

	require.Len(t, legs, 3)
	assert.Equal(t, origin, legs[0].Origin)
	assert.Equal(t, stops[0], legs[0].Destination)
	assert.Equal(t, stops[0], legs[1].Origin)
	assert.Equal(t, stops[1], legs[1].Destination)
}

func TestSetPrefersRealOverFallback(t *testing.T) {
	o := geo.Point{Lat: 1, Lon: 1}
	d := geo.Point{Lat: 2, Lon: 2}

	real := Result{Origin: o, Destination: d, Source: SourceReal, Status: StatusOK}
	fb := Fallback(o, d, StatusError, "provider down")

	set := NewSet([]Result{real, fb})
	got, ok := set.Lookup(o, d)
	require.True(t, ok)
	assert.Equal(t, SourceReal, got.Source)

	_, ok = set.Lookup(d, o)
	assert.False(t, ok, "reverse pair was never fetched")
}
