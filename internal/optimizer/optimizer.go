package optimizer

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/patricknguyendev/simplygrocery/internal/catalog"
	"github.com/patricknguyendev/simplygrocery/internal/distance"
	"github.com/patricknguyendev/simplygrocery/internal/geo"
	"github.com/patricknguyendev/simplygrocery/internal/matcher"
)

// ProductMatcher resolves free-text list entries to catalog products.
type ProductMatcher interface {
	MatchItems(ctx context.Context, queries []string) ([]matcher.Result, error)
}

// AnalyticsDispatcher receives the fire-and-forget completion event.
// Dispatch must never block the caller or surface failures.
type AnalyticsDispatcher interface {
	Dispatch(event catalog.AnalyticsEvent)
}

// TripOptimizer wires the planning pipeline end to end: nearby stores,
// distance data, product matching, pricing, strategies, baselines,
// persistence. It owns all intermediate data for one call and never
// constructs a data client itself.
type TripOptimizer struct {
	stores    catalog.StoreDirectory
	prices    catalog.PriceStore
	trips     catalog.TripStore
	matcher   ProductMatcher
	distances distance.Provider
	analytics AnalyticsDispatcher
	engine    *Engine
	config    *Config
	metrics   *MetricsRecorder
	logger    zerolog.Logger
}

// New creates a trip optimizer. The analytics dispatcher may be nil,
// in which case no completion events are emitted.
func New(
	stores catalog.StoreDirectory,
	prices catalog.PriceStore,
	trips catalog.TripStore,
	productMatcher ProductMatcher,
	distances distance.Provider,
	analytics AnalyticsDispatcher,
	config *Config,
) *TripOptimizer {
	if config == nil {
		config = Defaults()
	}
	return &TripOptimizer{
		stores:    stores,
		prices:    prices,
		trips:     trips,
		matcher:   productMatcher,
		distances: distances,
		analytics: analytics,
		engine:    NewEngine(config),
		config:    config,
		metrics:   NewMetricsRecorder(),
		logger:    log.With().Str("component", "trip_optimizer").Logger(),
	}
}

// OptimizeTrip runs one optimization: validates, gathers data, computes
// the requested plans, persists the trip, and returns the result.
// Distance provider degradation never fails the trip; persistence
// failures do.
func (o *TripOptimizer) OptimizeTrip(ctx context.Context, req *Request, userID *string) (*TripResult, error) {
	start := time.Now()
	errKind := ""
	defer func() {
		o.metrics.RecordTrip(time.Since(start), errKind)
	}()

	if err := req.Validate(o.config); err != nil {
		errKind = "invalid_request"
		return nil, err
	}
	o.metrics.RecordListSize(len(req.Items))

	radiusKm := req.Preferences.MaxRadiusKm
	if radiusKm <= 0 {
		radiusKm = o.config.DefaultRadiusKm
	}
	maxStores := req.Preferences.MaxStores
	if maxStores <= 0 {
		maxStores = o.config.DefaultMaxStores
	}
	mode := req.Preferences.Strategy
	if mode == "" {
		mode = StrategyAll
	}

	stores, err := o.findCandidateStores(ctx, req.Origin.Point(), radiusKm, req.Preferences)
	if err != nil {
		errKind = "store_lookup"
		return nil, err
	}
	if len(stores) == 0 {
		errKind = "no_stores"
		return nil, ErrNoStoresFound
	}
	o.metrics.RecordCandidateStores(len(stores))

	// The two matrix fetches are independent; matching can also proceed
	// while they run. All must finish before strategy computation.
	var originToStores, storeToStore []distance.Result
	var matchResults []matcher.Result
	storePoints := make([]geo.Point, len(stores))
	for i, s := range stores {
		storePoints[i] = s.Location()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		originToStores = o.distances.Matrix(gctx, []geo.Point{req.Origin.Point()}, storePoints, distance.Options{Mode: "driving"})
		return nil
	})
	g.Go(func() error {
		if len(stores) > 1 {
			storeToStore = o.distances.Matrix(gctx, storePoints, storePoints, distance.Options{Mode: "driving"})
		}
		return nil
	})
	g.Go(func() error {
		queries := make([]string, len(req.Items))
		for i, item := range req.Items {
			queries[i] = item.Query
		}
		var merr error
		matchResults, merr = o.matcher.MatchItems(gctx, queries)
		return merr
	})
	if err := g.Wait(); err != nil {
		errKind = "matching"
		return nil, err
	}
	distanceSet := distance.NewSet(append(originToStores, storeToStore...))

	matched, unmatched := splitMatches(req.Items, matchResults)
	o.metrics.RecordMatchOutcomes(len(matched), len(unmatched))
	if len(matched) == 0 {
		errKind = "no_matches"
		return nil, ErrNoProductsMatched
	}

	productIDs := make([]int64, len(matched))
	for i, m := range matched {
		productIDs[i] = m.Product.ID
	}
	storeIDs := make([]int64, len(stores))
	for i, s := range stores {
		storeIDs[i] = s.ID
	}
	priceMap, err := o.prices.Prices(ctx, storeIDs, productIDs)
	if err != nil {
		errKind = "price_lookup"
		return nil, err
	}

	tripID, err := o.persistTrip(ctx, req, mode, maxStores, radiusKm, userID, matched, unmatched)
	if err != nil {
		errKind = "persistence"
		return nil, err
	}

	input := StrategyInput{
		Origin:    req.Origin.Point(),
		Items:     matched,
		Stores:    stores,
		Prices:    priceMap,
		MaxStores: maxStores,
		Distances: distanceSet,
	}
	plans := make([]*PlanResult, 0, 3)
	for _, s := range []Strategy{StrategyCheapest, StrategyFastest, StrategyBalanced} {
		if mode != StrategyAll && mode != s {
			continue
		}
		if plan := o.engine.Plan(s, input); plan != nil {
			plans = append(plans, plan)
		}
	}
	if len(plans) == 0 {
		errKind = "no_plans"
		return nil, ErrNoPlansGenerated
	}

	chainTotals := o.chainBaselines(matched, stores, priceMap)

	saved, err := o.persistPlans(ctx, tripID, plans, chainTotals)
	if err != nil {
		errKind = "persistence"
		return nil, err
	}

	if o.analytics != nil {
		o.analytics.Dispatch(catalog.AnalyticsEvent{
			TripID:           tripID,
			ItemCount:        len(req.Items),
			SelectedStrategy: string(mode),
		})
	}

	o.logger.Info().
		Str("trip_id", tripID).
		Int("items", len(req.Items)).
		Int("matched", len(matched)).
		Int("stores", len(stores)).
		Int("plans", len(saved)).
		Dur("elapsed", time.Since(start)).
		Msg("trip optimized")

	return &TripResult{
		TripID:      tripID,
		Origin:      req.Origin,
		Matched:     matched,
		Unmatched:   unmatched,
		Plans:       saved,
		ChainTotals: chainTotals,
	}, nil
}

// findCandidateStores applies the radius and chain filters. Chain
// names compare case-insensitively.
func (o *TripOptimizer) findCandidateStores(ctx context.Context, origin geo.Point, radiusKm float64, prefs Preferences) ([]catalog.Store, error) {
	stores, err := o.stores.StoresNear(ctx, origin, radiusKm)
	if err != nil {
		return nil, err
	}
	if len(prefs.IncludeChains) == 0 && len(prefs.ExcludeChains) == 0 {
		return stores, nil
	}

	out := stores[:0]
	for _, s := range stores {
		if len(prefs.IncludeChains) > 0 && !containsChain(prefs.IncludeChains, s.Chain) {
			continue
		}
		if containsChain(prefs.ExcludeChains, s.Chain) {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func containsChain(chains []string, chain string) bool {
	for _, c := range chains {
		if strings.EqualFold(c, chain) {
			return true
		}
	}
	return false
}

// splitMatches partitions the request items by match outcome. Every
// input item lands in exactly one of the two slices.
func splitMatches(items []ListItem, results []matcher.Result) ([]MatchedItem, []UnmatchedItem) {
	matched := make([]MatchedItem, 0, len(items))
	unmatched := make([]UnmatchedItem, 0)
	for i, item := range items {
		if i < len(results) && results[i].Product != nil {
			matched = append(matched, MatchedItem{
				Query:      item.Query,
				Quantity:   item.Quantity,
				Product:    *results[i].Product,
				MatchScore: results[i].Score,
			})
		} else {
			unmatched = append(unmatched, UnmatchedItem{Query: item.Query, Quantity: item.Quantity})
		}
	}
	return matched, unmatched
}

// persistTrip writes the trip and its item lines, wiring the returned
// item IDs back into the matched items so assignments can reference
// them.
func (o *TripOptimizer) persistTrip(ctx context.Context, req *Request, mode Strategy, maxStores int, radiusKm float64, userID *string, matched []MatchedItem, unmatched []UnmatchedItem) (string, error) {
	tripID, err := o.trips.CreateTrip(ctx, catalog.TripRecord{
		OriginLat: req.Origin.Lat,
		OriginLon: req.Origin.Lon,
		OriginZip: req.Origin.Zip,
		Mode:      string(mode),
		MaxStores: maxStores,
		RadiusKm:  radiusKm,
		UserID:    userID,
	})
	if err != nil {
		return "", &PersistenceError{Op: "trip", Err: err}
	}

	records := make([]catalog.TripItemRecord, 0, len(matched)+len(unmatched))
	for i := range matched {
		productID := matched[i].Product.ID
		score := matched[i].MatchScore
		records = append(records, catalog.TripItemRecord{
			Query:      matched[i].Query,
			Quantity:   matched[i].Quantity,
			ProductID:  &productID,
			MatchScore: &score,
		})
	}
	for _, u := range unmatched {
		records = append(records, catalog.TripItemRecord{Query: u.Query, Quantity: u.Quantity})
	}

	itemIDs, err := o.trips.CreateTripItems(ctx, tripID, records)
	if err != nil {
		return "", &PersistenceError{Op: "trip items", Err: err}
	}
	for i := range matched {
		matched[i].TripItemID = itemIDs[i]
	}
	return tripID, nil
}

// chainBaselines computes the single-chain comparison totals for every
// configured chain present in the candidate set.
func (o *TripOptimizer) chainBaselines(matched []MatchedItem, stores []catalog.Store, prices catalog.PriceMap) map[string]*float64 {
	present := make(map[string]bool, len(stores))
	for _, s := range stores {
		present[s.Chain] = true
	}
	totals := make(map[string]*float64, len(o.config.BaselineChains))
	for _, chain := range o.config.BaselineChains {
		if !present[chain] {
			totals[chain] = nil
			continue
		}
		totals[chain] = SingleChainTotal(chain, matched, stores, prices)
	}
	return totals
}

// persistPlans writes each plan, its route, and its assignments. The
// item IDs in the assignments are wired by persistTrip, so TripItemID
// is always set by the time a strategy runs.
func (o *TripOptimizer) persistPlans(ctx context.Context, tripID string, plans []*PlanResult, chainTotals map[string]*float64) ([]SavedPlan, error) {
	saved := make([]SavedPlan, 0, len(plans))
	for _, plan := range plans {
		savings := make(map[string]*float64, len(chainTotals))
		for chain, total := range chainTotals {
			if total == nil {
				savings[chain] = nil
				continue
			}
			s := roundCents(*total - plan.TotalPrice)
			savings[chain] = &s
		}

		planID, err := o.trips.SavePlan(ctx, tripID, catalog.PlanRecord{
			Label:                   plan.Label,
			Strategy:                string(plan.Strategy),
			TotalPrice:              plan.TotalPrice,
			TotalDistanceKm:         plan.TotalDistanceKm,
			TotalTravelTimeMin:      plan.TotalTravelTimeMin,
			EstimatedInstoreTimeMin: plan.EstimatedInstoreTimeMin,
			EstimatedTotalTimeMin:   plan.EstimatedTotalTimeMin,
			DistanceSource:          string(plan.DistanceSource()),
			Savings:                 savings,
		})
		if err != nil {
			return nil, &PersistenceError{Op: "plan", Err: err}
		}

		visits := make([]catalog.StoreVisitRecord, len(plan.Visits))
		for i, v := range plan.Visits {
			visits[i] = catalog.StoreVisitRecord{
				StoreID:               v.Store.ID,
				OrderIndex:            v.OrderIndex,
				DistanceFromPrevKm:    v.DistanceFromPrevKm,
				TravelTimeFromPrevMin: v.TravelTimeFromPrevMin,
				ItemCount:             v.ItemCount,
				DistanceSource:        string(v.DistanceSource),
			}
		}
		if err := o.trips.SaveStoreVisits(ctx, planID, visits); err != nil {
			return nil, &PersistenceError{Op: "store visits", Err: err}
		}

		assignments := make([]catalog.ItemAssignmentRecord, len(plan.Assignments))
		for i, a := range plan.Assignments {
			assignments[i] = catalog.ItemAssignmentRecord{
				TripItemID: a.TripItemID,
				StoreID:    a.StoreID,
				ProductID:  a.ProductID,
				UnitPrice:  a.UnitPrice,
				Quantity:   a.Quantity,
			}
		}
		if err := o.trips.SaveItemAssignments(ctx, planID, assignments); err != nil {
			return nil, &PersistenceError{Op: "item assignments", Err: err}
		}

		saved = append(saved, SavedPlan{PlanID: planID, Plan: *plan, Savings: savings})
	}
	return saved, nil
}
