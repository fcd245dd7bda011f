// Package optimizer contains the trip planning engine: the three
// planning strategies (cheapest, fastest, balanced), the single-chain
// comparison baselines, and the orchestrator that turns a shopping list
// plus a home location into persisted, explainable trip plans.
package optimizer

import (
	"github.com/patricknguyendev/simplygrocery/internal/catalog"
	"github.com/patricknguyendev/simplygrocery/internal/distance"
	"github.com/patricknguyendev/simplygrocery/internal/geo"
)

// Strategy names a planning algorithm.
type Strategy string

const (
	StrategyCheapest Strategy = "CHEAPEST"
	StrategyFastest  Strategy = "FASTEST"
	StrategyBalanced Strategy = "BALANCED"

	// StrategyAll runs every strategy and returns one plan per algorithm.
	StrategyAll Strategy = "ALL"
)

// Valid reports whether s is a recognized strategy selector.
func (s Strategy) Valid() bool {
	switch s {
	case StrategyCheapest, StrategyFastest, StrategyBalanced, StrategyAll:
		return true
	}
	return false
}

// Origin is the shopper's starting point.
type Origin struct {
	Lat float64
	Lon float64
	Zip string
}

// Point returns the origin's coordinates.
func (o Origin) Point() geo.Point {
	return geo.Point{Lat: o.Lat, Lon: o.Lon}
}

// ListItem is one free-text shopping list entry as requested.
type ListItem struct {
	Query    string
	Quantity int
}

// Preferences are the recognized trip tuning knobs. Zero values mean
// "use the configured default".
type Preferences struct {
	MaxStores     int
	MaxRadiusKm   float64
	Strategy      Strategy
	IncludeChains []string
	ExcludeChains []string
}

// Request is one trip optimization request.
type Request struct {
	Origin      Origin
	Items       []ListItem
	Preferences Preferences
}

// Validate checks the request against the configured limits. All
// violations are caller-fixable and reported with the offending field.
func (r *Request) Validate(cfg *Config) error {
	if r.Origin.Lat < -90 || r.Origin.Lat > 90 {
		return ErrInvalidRequest{Field: "origin.lat", Reason: "must be between -90 and 90"}
	}
	if r.Origin.Lon < -180 || r.Origin.Lon > 180 {
		return ErrInvalidRequest{Field: "origin.lon", Reason: "must be between -180 and 180"}
	}
	if r.Origin.Lat == 0 && r.Origin.Lon == 0 {
		return ErrInvalidRequest{Field: "origin", Reason: "latitude and longitude are required"}
	}
	if len(r.Items) == 0 {
		return ErrInvalidRequest{Field: "items", Reason: "at least one item is required"}
	}
	if len(r.Items) > cfg.MaxItems {
		return ErrInvalidRequest{Field: "items", Reason: "exceeds maximum allowed"}
	}
	for i, item := range r.Items {
		if item.Query == "" {
			return ErrInvalidRequest{Field: "items", Reason: "query cannot be empty", Index: i}
		}
		if item.Quantity <= 0 {
			return ErrInvalidRequest{Field: "items", Reason: "quantity must be positive", Index: i}
		}
	}
	if r.Preferences.MaxStores < 0 {
		return ErrInvalidRequest{Field: "preferences.maxStores", Reason: "cannot be negative"}
	}
	if r.Preferences.MaxRadiusKm < 0 {
		return ErrInvalidRequest{Field: "preferences.maxRadiusKm", Reason: "cannot be negative"}
	}
	if r.Preferences.MaxRadiusKm > cfg.MaxRadiusKm {
		return ErrInvalidRequest{Field: "preferences.maxRadiusKm", Reason: "exceeds maximum allowed"}
	}
	if r.Preferences.Strategy != "" && !r.Preferences.Strategy.Valid() {
		return ErrInvalidRequest{Field: "preferences.strategy", Reason: "must be CHEAPEST, FASTEST, BALANCED or ALL"}
	}
	return nil
}

// MatchedItem is a list entry resolved to a catalog product.
type MatchedItem struct {
	Query      string
	Quantity   int
	Product    catalog.Product
	MatchScore float64

	// TripItemID is filled once the trip line is persisted.
	TripItemID string
}

// UnmatchedItem is a list entry no catalog product matched. Unmatched
// items are surfaced to the caller, never silently dropped.
type UnmatchedItem struct {
	Query    string
	Quantity int
}

// ItemAssignment says: buy Quantity of ProductID at StoreID for
// UnitPrice each. The store always has an in-stock price entry for the
// product.
type ItemAssignment struct {
	TripItemID string
	ProductID  int64
	StoreID    int64
	UnitPrice  float64
	Quantity   int
}

// StoreVisit is one stop in a plan's route. The previous point is the
// origin for OrderIndex 0, otherwise the prior visit's store.
type StoreVisit struct {
	Store                 catalog.Store
	OrderIndex            int
	DistanceFromPrevKm    float64
	TravelTimeFromPrevMin float64
	ItemCount             int
	DistanceSource        distance.Source
}

// PlanResult is one complete, internally consistent shopping route.
// Computed once per optimization run and immutable afterwards.
type PlanResult struct {
	Label                   string
	Strategy                Strategy
	TotalPrice              float64
	TotalDistanceKm         float64
	TotalTravelTimeMin      float64
	EstimatedInstoreTimeMin float64
	EstimatedTotalTimeMin   float64
	Visits                  []StoreVisit
	Assignments             []ItemAssignment
}

// DistanceSource reports where the plan's leg distances came from:
// real when every leg used provider data, fallback when none did,
// mixed otherwise.
func (p *PlanResult) DistanceSource() distance.Source {
	real, fallback := 0, 0
	for _, v := range p.Visits {
		if v.DistanceSource == distance.SourceReal {
			real++
		} else {
			fallback++
		}
	}
	switch {
	case real > 0 && fallback == 0:
		return distance.SourceReal
	case real == 0:
		return distance.SourceFallback
	default:
		return distance.SourceMixed
	}
}

// SavedPlan pairs a computed plan with its persisted ID and the savings
// against each chain baseline. A nil savings entry means the baseline
// was not meaningful (some item unavailable at that chain).
type SavedPlan struct {
	PlanID  string
	Plan    PlanResult
	Savings map[string]*float64
}

// TripResult is the outcome of one optimization run.
type TripResult struct {
	TripID      string
	Origin      Origin
	Matched     []MatchedItem
	Unmatched   []UnmatchedItem
	Plans       []SavedPlan
	ChainTotals map[string]*float64
}
