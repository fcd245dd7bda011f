package optimizer

import (
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/patricknguyendev/simplygrocery/internal/catalog"
	"github.com/patricknguyendev/simplygrocery/internal/distance"
	"github.com/patricknguyendev/simplygrocery/internal/geo"
)

// StrategyInput is the shared contract all three strategies consume.
// Stores are already filtered to the radius and chain preferences;
// Distances may be nil or partial, in which case legs fall back to
// haversine estimates.
type StrategyInput struct {
	Origin    geo.Point
	Items     []MatchedItem
	Stores    []catalog.Store
	Prices    catalog.PriceMap
	MaxStores int
	Distances *distance.Set
}

// Engine computes plans. Strategy methods return nil when no feasible
// assignment exists, which is not an error.
type Engine struct {
	config  *Config
	metrics *MetricsRecorder
	logger  zerolog.Logger
}

// NewEngine creates a strategy engine.
func NewEngine(config *Config) *Engine {
	if config == nil {
		config = Defaults()
	}
	return &Engine{
		config:  config,
		metrics: NewMetricsRecorder(),
		logger:  log.With().Str("component", "strategy_engine").Logger(),
	}
}

// Cheapest assigns every item to its lowest in-stock price, prunes the
// store set down to the cap keeping the stores that supply the most
// items, and reassigns displaced items within the retained set. Fewer
// stops may raise an item's price or lose items only pruned stores
// stocked; that trade is intentional.
func (e *Engine) Cheapest(in StrategyInput) *PlanResult {
	if len(in.Items) == 0 || len(in.Stores) == 0 {
		return nil
	}
	maxStores := in.MaxStores
	if maxStores <= 0 {
		maxStores = e.config.DefaultMaxStores
	}

	assignments := make([]ItemAssignment, 0, len(in.Items))
	itemsPerStore := make(map[int64]int)

	for _, item := range in.Items {
		var bestStore *catalog.Store
		bestPrice := math.Inf(1)
		for i, store := range in.Stores {
			if price, ok := in.Prices.Available(store.ID, item.Product.ID); ok && price < bestPrice {
				bestPrice = price
				bestStore = &in.Stores[i]
			}
		}
		if bestStore == nil {
			continue
		}
		assignments = append(assignments, ItemAssignment{
			TripItemID: item.TripItemID,
			ProductID:  item.Product.ID,
			StoreID:    bestStore.ID,
			UnitPrice:  bestPrice,
			Quantity:   item.Quantity,
		})
		itemsPerStore[bestStore.ID]++
	}
	if len(assignments) == 0 {
		return nil
	}

	usedIDs := storeIDsOf(assignments)
	if len(usedIDs) > maxStores {
		assignments, usedIDs = e.pruneAndReassign(assignments, usedIDs, itemsPerStore, maxStores, in.Prices)
	}

	visits := e.buildVisits(in, usedIDs, assignments)
	return finalizePlan("Cheapest", StrategyCheapest, assignments, visits)
}

// pruneAndReassign keeps the maxStores stores supplying the most items
// and moves every displaced assignment to its cheapest in-stock price
// among the retained stores. An item no retained store stocks falls out
// of the plan entirely; every surviving assignment points at a store
// that actually sells the item.
func (e *Engine) pruneAndReassign(assignments []ItemAssignment, usedIDs []int64, itemsPerStore map[int64]int, maxStores int, prices catalog.PriceMap) ([]ItemAssignment, []int64) {
	sort.SliceStable(usedIDs, func(i, j int) bool {
		ci, cj := itemsPerStore[usedIDs[i]], itemsPerStore[usedIDs[j]]
		if ci != cj {
			return ci > cj
		}
		return usedIDs[i] < usedIDs[j]
	})
	retained := usedIDs[:maxStores]
	keep := make(map[int64]bool, len(retained))
	for _, id := range retained {
		keep[id] = true
	}

	kept := assignments[:0]
	dropped := 0
	for _, a := range assignments {
		if keep[a.StoreID] {
			kept = append(kept, a)
			continue
		}
		var bestStoreID int64
		bestPrice := math.Inf(1)
		for _, storeID := range retained {
			if price, ok := prices.Available(storeID, a.ProductID); ok && price < bestPrice {
				bestPrice = price
				bestStoreID = storeID
			}
		}
		if math.IsInf(bestPrice, 1) {
			dropped++
			continue
		}
		a.StoreID = bestStoreID
		a.UnitPrice = bestPrice
		kept = append(kept, a)
	}

	e.logger.Debug().
		Int("retained", len(retained)).
		Int("pruned", len(usedIDs)-len(retained)).
		Int("dropped_items", dropped).
		Msg("cheapest plan pruned to store cap")

	return kept, retained
}

// Fastest picks the single store scoring highest on
// itemsAvailable*weight - distanceKm: availability dominates, distance
// breaks ties. The plan covers only the items that store stocks.
func (e *Engine) Fastest(in StrategyInput) *PlanResult {
	if len(in.Items) == 0 || len(in.Stores) == 0 {
		return nil
	}

	var best *catalog.Store
	bestScore := math.Inf(-1)
	for i, store := range in.Stores {
		available := 0
		for _, item := range in.Items {
			if _, ok := in.Prices.Available(store.ID, item.Product.ID); ok {
				available++
			}
		}
		if available == 0 {
			continue
		}
		km := geo.HaversineKm(in.Origin.Lat, in.Origin.Lon, store.Lat, store.Lon)
		score := float64(available)*e.config.AvailabilityWeight - km
		if score > bestScore {
			bestScore = score
			best = &in.Stores[i]
		}
	}
	if best == nil {
		return nil
	}

	assignments := make([]ItemAssignment, 0, len(in.Items))
	for _, item := range in.Items {
		if price, ok := in.Prices.Available(best.ID, item.Product.ID); ok {
			assignments = append(assignments, ItemAssignment{
				TripItemID: item.TripItemID,
				ProductID:  item.Product.ID,
				StoreID:    best.ID,
				UnitPrice:  price,
				Quantity:   item.Quantity,
			})
		}
	}

	visits := e.buildVisits(in, []int64{best.ID}, assignments)
	return finalizePlan("Fastest", StrategyFastest, assignments, visits)
}

// Balanced ranks stores by savings-per-kilometer against the priciest
// observed price of each product, keeps the top few, and buys each item
// at the cheapest store within that selection.
func (e *Engine) Balanced(in StrategyInput) *PlanResult {
	if len(in.Items) == 0 || len(in.Stores) == 0 {
		return nil
	}
	maxStores := e.config.BalancedMaxStores

	// Reference ceiling: the highest price seen for each product across
	// the candidate set.
	ceilings := make(map[int64]float64, len(in.Items))
	for _, item := range in.Items {
		ceiling := 0.0
		for _, store := range in.Stores {
			if entry, ok := in.Prices[catalog.PriceKey{StoreID: store.ID, ProductID: item.Product.ID}]; ok && entry.Price > ceiling {
				ceiling = entry.Price
			}
		}
		ceilings[item.Product.ID] = ceiling
	}

	type valued struct {
		store catalog.Store
		score float64
	}
	ranked := make([]valued, 0, len(in.Stores))
	for _, store := range in.Stores {
		km := geo.HaversineKm(in.Origin.Lat, in.Origin.Lon, store.Lat, store.Lon)
		totalSavings := 0.0
		stocked := 0
		for _, item := range in.Items {
			if price, ok := in.Prices.Available(store.ID, item.Product.ID); ok {
				totalSavings += (ceilings[item.Product.ID] - price) * float64(item.Quantity)
				stocked++
			}
		}
		if stocked == 0 {
			continue
		}
		avgSavings := totalSavings / float64(stocked)
		ranked = append(ranked, valued{
			store: store,
			score: avgSavings / math.Max(km, e.config.DistanceFloorKm),
		})
	}
	if len(ranked) == 0 {
		return nil
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	if len(ranked) > maxStores {
		ranked = ranked[:maxStores]
	}
	selected := make([]catalog.Store, len(ranked))
	for i, v := range ranked {
		selected[i] = v.store
	}

	assignments := make([]ItemAssignment, 0, len(in.Items))
	for _, item := range in.Items {
		var bestStore *catalog.Store
		bestPrice := math.Inf(1)
		for i, store := range selected {
			if price, ok := in.Prices.Available(store.ID, item.Product.ID); ok && price < bestPrice {
				bestPrice = price
				bestStore = &selected[i]
			}
		}
		if bestStore == nil {
			continue
		}
		assignments = append(assignments, ItemAssignment{
			TripItemID: item.TripItemID,
			ProductID:  item.Product.ID,
			StoreID:    bestStore.ID,
			UnitPrice:  bestPrice,
			Quantity:   item.Quantity,
		})
	}
	if len(assignments) == 0 {
		return nil
	}

	visits := e.buildVisits(in, storeIDsOf(assignments), assignments)
	return finalizePlan("Balanced", StrategyBalanced, assignments, visits)
}

// Plan dispatches to the strategy implementation and records the
// computation duration.
func (e *Engine) Plan(strategy Strategy, in StrategyInput) *PlanResult {
	start := time.Now()
	defer func() {
		e.metrics.RecordStrategyDuration(string(strategy), time.Since(start))
	}()

	switch strategy {
	case StrategyCheapest:
		return e.Cheapest(in)
	case StrategyFastest:
		return e.Fastest(in)
	case StrategyBalanced:
		return e.Balanced(in)
	default:
		return nil
	}
}

// SingleChainTotal sums the cheapest in-stock price per item restricted
// to one chain's stores. Returns nil when the chain has no candidate
// stores or any item is entirely unavailable there: the comparison is
// not meaningful and must not render as a zero-dollar saving.
func SingleChainTotal(chain string, items []MatchedItem, stores []catalog.Store, prices catalog.PriceMap) *float64 {
	chainStores := make([]catalog.Store, 0, len(stores))
	for _, s := range stores {
		if s.Chain == chain {
			chainStores = append(chainStores, s)
		}
	}
	if len(chainStores) == 0 {
		return nil
	}

	total := 0.0
	for _, item := range items {
		bestPrice := math.Inf(1)
		for _, store := range chainStores {
			if price, ok := prices.Available(store.ID, item.Product.ID); ok && price < bestPrice {
				bestPrice = price
			}
		}
		if math.IsInf(bestPrice, 1) {
			return nil
		}
		total += bestPrice * float64(item.Quantity)
	}

	total = roundCents(total)
	return &total
}

// buildVisits orders the used stores by nearest neighbor from the
// origin and resolves each leg, preferring real provider data for the
// exact leg and falling back to haversine estimates otherwise.
func (e *Engine) buildVisits(in StrategyInput, usedIDs []int64, assignments []ItemAssignment) []StoreVisit {
	byID := make(map[int64]catalog.Store, len(in.Stores))
	for _, s := range in.Stores {
		byID[s.ID] = s
	}

	used := make([]catalog.Store, 0, len(usedIDs))
	points := make([]geo.Point, 0, len(usedIDs))
	for _, id := range usedIDs {
		s := byID[id]
		used = append(used, s)
		points = append(points, s.Location())
	}
	order := geo.NearestNeighborOrder(in.Origin, points)

	itemCounts := make(map[int64]int, len(usedIDs))
	for _, a := range assignments {
		itemCounts[a.StoreID]++
	}

	visits := make([]StoreVisit, 0, len(order))
	prev := in.Origin
	for i, idx := range order {
		store := used[idx]
		km, min, source := resolveLeg(in.Distances, prev, store.Location())
		visits = append(visits, StoreVisit{
			Store:                 store,
			OrderIndex:            i,
			DistanceFromPrevKm:    km,
			TravelTimeFromPrevMin: min,
			ItemCount:             itemCounts[store.ID],
			DistanceSource:        source,
		})
		prev = store.Location()
	}
	return visits
}

// resolveLeg returns distance and travel time for one leg. Provider
// results with OK status win; everything else is a haversine estimate.
func resolveLeg(distances *distance.Set, from, to geo.Point) (km, min float64, source distance.Source) {
	if r, ok := distances.Lookup(from, to); ok && r.Status == distance.StatusOK && r.Source == distance.SourceReal {
		return r.DistanceKm(), r.DurationMin(), distance.SourceReal
	}
	km = geo.HaversineKm(from.Lat, from.Lon, to.Lat, to.Lon)
	return km, geo.EstimateTravelTimeMin(km), distance.SourceFallback
}

// finalizePlan aggregates totals from the visits and assignments and
// applies display rounding once, here, so intermediate math never
// compounds rounding error.
func finalizePlan(label string, strategy Strategy, assignments []ItemAssignment, visits []StoreVisit) *PlanResult {
	if len(assignments) == 0 || len(visits) == 0 {
		return nil
	}

	totalPrice := 0.0
	for _, a := range assignments {
		totalPrice += a.UnitPrice * float64(a.Quantity)
	}

	totalKm, travelMin, instoreMin := 0.0, 0.0, 0.0
	for i := range visits {
		totalKm += visits[i].DistanceFromPrevKm
		travelMin += visits[i].TravelTimeFromPrevMin
		instoreMin += geo.EstimateInstoreTimeMin(visits[i].ItemCount)

		visits[i].DistanceFromPrevKm = roundCents(visits[i].DistanceFromPrevKm)
		visits[i].TravelTimeFromPrevMin = math.Round(visits[i].TravelTimeFromPrevMin)
	}

	return &PlanResult{
		Label:                   label,
		Strategy:                strategy,
		TotalPrice:              roundCents(totalPrice),
		TotalDistanceKm:         roundCents(totalKm),
		TotalTravelTimeMin:      math.Round(travelMin),
		EstimatedInstoreTimeMin: math.Round(instoreMin),
		EstimatedTotalTimeMin:   math.Round(travelMin + instoreMin),
		Visits:                  visits,
		Assignments:             assignments,
	}
}

// storeIDsOf returns the distinct store IDs of the assignments in first
// use order.
func storeIDsOf(assignments []ItemAssignment) []int64 {
	seen := make(map[int64]bool)
	out := make([]int64, 0, len(assignments))
	for _, a := range assignments {
		if !seen[a.StoreID] {
			seen[a.StoreID] = true
			out = append(out, a.StoreID)
		}
	}
	return out
}

// roundCents rounds to two decimals for money and display distances.
func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
