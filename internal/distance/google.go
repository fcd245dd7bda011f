package distance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/patricknguyendev/simplygrocery/internal/geo"
	"github.com/patricknguyendev/simplygrocery/internal/httpx"
)

const googleMatrixURL = "https://maps.googleapis.com/maps/api/distancematrix/json"

// Provider resolves distance matrices. Implementations must degrade, not
// fail: the returned slice always has len(origins)*len(destinations)
// results regardless of provider health.
type Provider interface {
	// Matrix returns a result for every origin-destination pair, in
	// row-major order (all destinations for the first origin, then the
	// second, and so on).
	Matrix(ctx context.Context, origins, destinations []geo.Point, opts Options) []Result

	// Route returns results only for the consecutive legs of a route
	// starting at origin: origin->stops[0], stops[0]->stops[1], ...
	Route(ctx context.Context, origin geo.Point, stops []geo.Point, opts Options) []Result
}

// Limits bound a single provider request. These mirror the external
// API's documented maximums and are configurable, not hard-coded.
type Limits struct {
	MaxOrigins      int
	MaxDestinations int
	MaxElements     int
}

// DefaultLimits returns the Google Distance Matrix per-request maximums.
func DefaultLimits() Limits {
	return Limits{MaxOrigins: 25, MaxDestinations: 25, MaxElements: 100}
}

// GoogleProvider calls the Google Distance Matrix API, batching within
// the configured limits and synthesizing fallback elements for any pair
// the provider cannot answer.
type GoogleProvider struct {
	apiKey  string
	baseURL string
	client  *httpx.Client
	limits  Limits
	breaker *breaker
	logger  zerolog.Logger
}

// NewGoogleProvider creates a provider. An empty apiKey is valid and
// yields fallback-only results, which keeps local development and tests
// working without credentials.
func NewGoogleProvider(apiKey string, client *httpx.Client, limits Limits, breakerCfg BreakerConfig) *GoogleProvider {
	if client == nil {
		client = httpx.NewClientDefault()
	}
	if limits.MaxOrigins <= 0 || limits.MaxDestinations <= 0 || limits.MaxElements <= 0 {
		limits = DefaultLimits()
	}
	logger := log.With().Str("component", "distance_provider").Logger()
	return &GoogleProvider{
		apiKey:  apiKey,
		baseURL: googleMatrixURL,
		client:  client,
		limits:  limits,
		breaker: newBreaker(breakerCfg, logger),
		logger:  logger,
	}
}

// googleResponse mirrors the wire format of the Distance Matrix API.
type googleResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Rows         []struct {
		Elements []struct {
			Status   string `json:"status"`
			Distance *struct {
				Value int    `json:"value"`
				Text  string `json:"text"`
			} `json:"distance"`
			Duration *struct {
				Value int    `json:"value"`
				Text  string `json:"text"`
			} `json:"duration"`
		} `json:"elements"`
	} `json:"rows"`
}

// Matrix implements Provider.
func (p *GoogleProvider) Matrix(ctx context.Context, origins, destinations []geo.Point, opts Options) []Result {
	if len(origins) == 0 || len(destinations) == 0 {
		return nil
	}

	total := len(origins) * len(destinations)
	results := make([]Result, 0, total)

	if p.apiKey == "" {
		for _, o := range origins {
			for _, d := range destinations {
				results = append(results, Fallback(o, d, StatusError, "API key not configured"))
			}
		}
		recordMatrixElements(0, total)
		return results
	}

	start := time.Now()
	for _, b := range p.splitBatches(origins, destinations) {
		results = append(results, p.fetchBatch(ctx, b.origins, b.destinations, opts)...)
	}

	real, fallback := 0, 0
	for _, r := range results {
		if r.Source == SourceReal {
			real++
		} else {
			fallback++
		}
	}
	recordMatrixElements(real, fallback)
	p.logger.Debug().
		Int("pairs", total).
		Int("real", real).
		Int("fallback", fallback).
		Dur("elapsed", time.Since(start)).
		Msg("distance matrix resolved")

	return results
}

// Route implements Provider. Only the consecutive legs of the route are
// needed, so the pairs are fetched as paired origin/destination lists and
// the diagonal of the resulting matrix is extracted.
func (p *GoogleProvider) Route(ctx context.Context, origin geo.Point, stops []geo.Point, opts Options) []Result {
	if len(stops) == 0 {
		return nil
	}

	legOrigins := make([]geo.Point, 0, len(stops))
	legDests := make([]geo.Point, 0, len(stops))

	legOrigins = append(legOrigins, origin)
	legDests = append(legDests, stops[0])
	for i := 0; i < len(stops)-1; i++ {
		legOrigins = append(legOrigins, stops[i])
		legDests = append(legDests, stops[i+1])
	}

	all := p.Matrix(ctx, legOrigins, legDests, opts)

	legs := make([]Result, 0, len(legOrigins))
	for i := range legOrigins {
		idx := i*len(legDests) + i
		if idx < len(all) {
			legs = append(legs, all[idx])
		}
	}
	return legs
}

type matrixBatch struct {
	origins      []geo.Point
	destinations []geo.Point
}

// splitBatches splits the cross product into requests that respect the
// origin, destination and element limits.
func (p *GoogleProvider) splitBatches(origins, destinations []geo.Point) []matrixBatch {
	var batches []matrixBatch

	for i := 0; i < len(origins); i += p.limits.MaxOrigins {
		originBatch := origins[i:min(i+p.limits.MaxOrigins, len(origins))]

		for j := 0; j < len(destinations); j += p.limits.MaxDestinations {
			destBatch := destinations[j:min(j+p.limits.MaxDestinations, len(destinations))]

			if len(originBatch)*len(destBatch) <= p.limits.MaxElements {
				batches = append(batches, matrixBatch{origins: originBatch, destinations: destBatch})
				continue
			}

			// A full origin batch times a full destination batch can
			// exceed the element budget; shrink the destination side.
			maxDests := p.limits.MaxElements / len(originBatch)
			if maxDests < 1 {
				maxDests = 1
			}
			for k := 0; k < len(destBatch); k += maxDests {
				batches = append(batches, matrixBatch{
					origins:      originBatch,
					destinations: destBatch[k:min(k+maxDests, len(destBatch))],
				})
			}
		}
	}

	return batches
}

// fetchBatch resolves one batch, falling back per pair on any failure.
func (p *GoogleProvider) fetchBatch(ctx context.Context, origins, destinations []geo.Point, opts Options) []Result {
	fallbackAll := func(reason string) []Result {
		out := make([]Result, 0, len(origins)*len(destinations))
		for _, o := range origins {
			for _, d := range destinations {
				out = append(out, Fallback(o, d, StatusError, reason))
			}
		}
		return out
	}

	if !p.breaker.allow() {
		return fallbackAll("provider circuit open")
	}

	resp, err := p.callGoogle(ctx, origins, destinations, opts)
	if err != nil {
		p.breaker.recordFailure(err)
		recordProviderCall("error")
		p.logger.Warn().Err(err).
			Int("origins", len(origins)).
			Int("destinations", len(destinations)).
			Msg("distance matrix batch failed, using fallback")
		return fallbackAll(err.Error())
	}
	p.breaker.recordSuccess()
	recordProviderCall("ok")

	results := make([]Result, 0, len(origins)*len(destinations))
	for i, o := range origins {
		if i >= len(resp.Rows) {
			for _, d := range destinations {
				results = append(results, Fallback(o, d, StatusError, "missing row in provider response"))
			}
			continue
		}
		row := resp.Rows[i]
		for j, d := range destinations {
			if j >= len(row.Elements) {
				results = append(results, Fallback(o, d, StatusError, "missing element in provider response"))
				continue
			}
			el := row.Elements[j]
			switch {
			case el.Status == "OK" && el.Distance != nil && el.Duration != nil:
				results = append(results, Result{
					Origin:      o,
					Destination: d,
					Element: Element{
						DistanceMeters:  el.Distance.Value,
						DurationSeconds: el.Duration.Value,
						DistanceText:    el.Distance.Text,
						DurationText:    el.Duration.Text,
					},
					Source: SourceReal,
					Status: StatusOK,
				})
			case el.Status == "ZERO_RESULTS":
				results = append(results, Fallback(o, d, StatusZeroResults, "no route found by provider"))
			default:
				results = append(results, Fallback(o, d, StatusError, "provider element status: "+el.Status))
			}
		}
	}

	return results
}

func (p *GoogleProvider) callGoogle(ctx context.Context, origins, destinations []geo.Point, opts Options) (*googleResponse, error) {
	mode := opts.Mode
	if mode == "" {
		mode = "driving"
	}

	params := url.Values{}
	params.Set("origins", formatPoints(origins))
	params.Set("destinations", formatPoints(destinations))
	params.Set("key", p.apiKey)
	params.Set("mode", mode)
	params.Set("units", "metric")

	resp, err := p.client.Get(ctx, p.baseURL+"?"+params.Encode())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("provider HTTP status %d", resp.StatusCode)
	}

	var decoded googleResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decoding provider response: %w", err)
	}

	if decoded.Status != "OK" {
		msg := decoded.Status
		if decoded.ErrorMessage != "" {
			msg += ": " + decoded.ErrorMessage
		}
		return nil, fmt.Errorf("provider status %s", msg)
	}

	return &decoded, nil
}

func formatPoints(points []geo.Point) string {
	parts := make([]string, len(points))
	for i, p := range points {
		parts[i] = fmt.Sprintf("%f,%f", p.Lat, p.Lon)
	}
	return strings.Join(parts, "|")
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
