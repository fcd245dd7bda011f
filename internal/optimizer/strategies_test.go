package optimizer

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patricknguyendev/simplygrocery/internal/catalog"
	"github.com/patricknguyendev/simplygrocery/internal/geo"
)

var testOrigin = geo.Point{Lat: 36.10, Lon: -115.15}

func testStores() []catalog.Store {
	return []catalog.Store{
		{ID: 1, Name: "Walmart Supercenter", Chain: "WALMART", Lat: 36.10, Lon: -115.16},
		{ID: 2, Name: "Target", Chain: "TARGET", Lat: 36.11, Lon: -115.14},
		{ID: 3, Name: "Kroger", Chain: "KROGER", Lat: 36.12, Lon: -115.15},
	}
}

func matchedItem(productID int64, name string, quantity int) MatchedItem {
	return MatchedItem{
		Query:    name,
		Quantity: quantity,
		Product:  catalog.Product{ID: productID, Name: name},
	}
}

func inStock(storeID, productID int64, price float64) (catalog.PriceKey, catalog.PriceEntry) {
	return catalog.PriceKey{StoreID: storeID, ProductID: productID}, catalog.PriceEntry{Price: price, InStock: true}
}

func outOfStock(storeID, productID int64, price float64) (catalog.PriceKey, catalog.PriceEntry) {
	return catalog.PriceKey{StoreID: storeID, ProductID: productID}, catalog.PriceEntry{Price: price, InStock: false}
}

func buildPrices(pairs ...func() (catalog.PriceKey, catalog.PriceEntry)) catalog.PriceMap {
	m := make(catalog.PriceMap, len(pairs))
	for _, pair := range pairs {
		k, v := pair()
		m[k] = v
	}
	return m
}

func pricesOf(cells [][4]float64) catalog.PriceMap {
	// cells: {storeID, productID, price, inStock(1/0)}
	m := make(catalog.PriceMap, len(cells))
	for _, c := range cells {
		m[catalog.PriceKey{StoreID: int64(c[0]), ProductID: int64(c[1])}] = catalog.PriceEntry{
			Price:   c[2],
			InStock: c[3] == 1,
		}
	}
	return m
}

func TestCheapestPicksLowestInStockPricePerItem(t *testing.T) {
	e := NewEngine(Defaults())
	in := StrategyInput{
		Origin: testOrigin,
		Items:  []MatchedItem{matchedItem(10, "milk", 1), matchedItem(20, "eggs", 1)},
		Stores: testStores(),
		Prices: pricesOf([][4]float64{
			{1, 10, 3.00, 1}, {2, 10, 2.50, 1},
			{1, 20, 2.50, 1}, {2, 20, 3.00, 1},
		}),
	}

	plan := e.Cheapest(in)
	require.NotNil(t, plan)
	assert.Equal(t, 5.00, plan.TotalPrice)
	assert.Len(t, plan.Visits, 2)
	require.Len(t, plan.Assignments, 2)

	byProduct := map[int64]ItemAssignment{}
	for _, a := range plan.Assignments {
		byProduct[a.ProductID] = a
	}
	assert.Equal(t, int64(2), byProduct[10].StoreID)
	assert.Equal(t, 2.50, byProduct[10].UnitPrice)
	assert.Equal(t, int64(1), byProduct[20].StoreID)
	assert.Equal(t, 2.50, byProduct[20].UnitPrice)
}

func TestCheapestPruneReassignsToRetainedStores(t *testing.T) {
	e := NewEngine(Defaults())
	in := StrategyInput{
		Origin:    testOrigin,
		Items:     []MatchedItem{matchedItem(10, "milk", 1), matchedItem(20, "eggs", 1)},
		Stores:    testStores(),
		MaxStores: 1,
		Prices: pricesOf([][4]float64{
			{1, 10, 3.00, 1}, {2, 10, 2.50, 1},
			{1, 20, 2.50, 1}, {2, 20, 3.00, 1},
		}),
	}

	plan := e.Cheapest(in)
	require.NotNil(t, plan)

	// One stop only; both stores supply one item each, the tie keeps the
	// lower store ID, and the displaced item pays that store's price.
	require.Len(t, plan.Visits, 1)
	assert.Equal(t, int64(1), plan.Visits[0].Store.ID)
	assert.Equal(t, 2, plan.Visits[0].ItemCount)
	assert.Equal(t, 5.50, plan.TotalPrice)

	for _, a := range plan.Assignments {
		assert.Equal(t, int64(1), a.StoreID)
	}
}

func TestCheapestPruneDropsItemsNoRetainedStoreStocks(t *testing.T) {
	e := NewEngine(Defaults())
	// Store 1 supplies two items, store 2 alone stocks the third. With a
	// one-stop cap, store 1 is retained and the bread has nowhere to go.
	in := StrategyInput{
		Origin:    testOrigin,
		Items:     []MatchedItem{matchedItem(10, "milk", 1), matchedItem(11, "eggs", 1), matchedItem(12, "bread", 1)},
		Stores:    testStores()[:2],
		MaxStores: 1,
		Prices: pricesOf([][4]float64{
			{1, 10, 3.00, 1}, {1, 11, 2.00, 1},
			{2, 12, 2.50, 1},
		}),
	}

	plan := e.Cheapest(in)
	require.NotNil(t, plan)

	require.Len(t, plan.Visits, 1)
	assert.Equal(t, int64(1), plan.Visits[0].Store.ID)
	assert.Equal(t, 2, plan.Visits[0].ItemCount)

	require.Len(t, plan.Assignments, 2, "the unstockable item falls out of the plan")
	for _, a := range plan.Assignments {
		assert.Equal(t, int64(1), a.StoreID)
		assert.NotEqual(t, int64(12), a.ProductID)
		_, ok := in.Prices.Available(a.StoreID, a.ProductID)
		assert.True(t, ok, "every assignment points at an in-stock price")
	}
	assert.Equal(t, 5.00, plan.TotalPrice)
	assert.False(t, math.IsInf(plan.TotalPrice, 1))
}

func TestCheapestTotalMatchesAssignments(t *testing.T) {
	e := NewEngine(Defaults())
	in := StrategyInput{
		Origin:    testOrigin,
		Items:     []MatchedItem{matchedItem(10, "milk", 2), matchedItem(20, "eggs", 3), matchedItem(30, "bread", 1)},
		Stores:    testStores(),
		MaxStores: 2,
		Prices: pricesOf([][4]float64{
			{1, 10, 3.49, 1}, {2, 10, 3.29, 1}, {3, 10, 2.99, 1},
			{1, 20, 2.19, 1}, {3, 20, 2.49, 1},
			{2, 30, 1.99, 1}, {3, 30, 2.29, 1},
		}),
	}

	plan := e.Cheapest(in)
	require.NotNil(t, plan)
	assert.LessOrEqual(t, len(plan.Visits), 2)

	sum := 0.0
	for _, a := range plan.Assignments {
		sum += a.UnitPrice * float64(a.Quantity)
	}
	assert.InDelta(t, plan.TotalPrice, sum, 0.005, "total must be recomputed from the final assignments")
}

func TestCheapestIgnoresOutOfStock(t *testing.T) {
	e := NewEngine(Defaults())
	in := StrategyInput{
		Origin: testOrigin,
		Items:  []MatchedItem{matchedItem(10, "milk", 1)},
		Stores: testStores(),
		Prices: buildPrices(
			func() (catalog.PriceKey, catalog.PriceEntry) { return outOfStock(1, 10, 1.99) },
			func() (catalog.PriceKey, catalog.PriceEntry) { return inStock(2, 10, 3.99) },
		),
	}

	plan := e.Cheapest(in)
	require.NotNil(t, plan)
	require.Len(t, plan.Assignments, 1)
	assert.Equal(t, int64(2), plan.Assignments[0].StoreID)
	assert.Equal(t, 3.99, plan.Assignments[0].UnitPrice)
}

func TestCheapestNilWhenNothingAvailable(t *testing.T) {
	e := NewEngine(Defaults())
	in := StrategyInput{
		Origin: testOrigin,
		Items:  []MatchedItem{matchedItem(10, "milk", 1)},
		Stores: testStores(),
		Prices: catalog.PriceMap{},
	}
	assert.Nil(t, e.Cheapest(in))
}

func TestFastestSingleStoreCoversStockedSubset(t *testing.T) {
	e := NewEngine(Defaults())
	in := StrategyInput{
		Origin: testOrigin,
		Items:  []MatchedItem{matchedItem(10, "milk", 1), matchedItem(20, "eggs", 1), matchedItem(30, "bread", 1)},
		Stores: testStores(),
		Prices: pricesOf([][4]float64{
			{1, 10, 3.00, 1}, {1, 20, 2.50, 1},
			{2, 10, 2.00, 1},
		}),
	}

	plan := e.Fastest(in)
	require.NotNil(t, plan)

	// Store 1 stocks two of three items; one stop, partial coverage.
	require.Len(t, plan.Visits, 1)
	assert.Equal(t, int64(1), plan.Visits[0].Store.ID)
	assert.Len(t, plan.Assignments, 2)
	assert.Equal(t, 5.50, plan.TotalPrice)
}

func TestFastestAvailabilityBeatsDistance(t *testing.T) {
	e := NewEngine(Defaults())
	// Store 3 is the farthest but stocks both items; the near stores
	// stock one each.
	in := StrategyInput{
		Origin: testOrigin,
		Items:  []MatchedItem{matchedItem(10, "milk", 1), matchedItem(20, "eggs", 1)},
		Stores: testStores(),
		Prices: pricesOf([][4]float64{
			{1, 10, 1.00, 1},
			{2, 20, 1.00, 1},
			{3, 10, 5.00, 1}, {3, 20, 5.00, 1},
		}),
	}

	plan := e.Fastest(in)
	require.NotNil(t, plan)
	require.Len(t, plan.Visits, 1)
	assert.Equal(t, int64(3), plan.Visits[0].Store.ID)
	assert.Len(t, plan.Assignments, 2)
}

func TestBalancedRespectsStoreCap(t *testing.T) {
	cfg := Defaults()
	e := NewEngine(cfg)
	in := StrategyInput{
		Origin: testOrigin,
		Items:  []MatchedItem{matchedItem(10, "milk", 1), matchedItem(20, "eggs", 1), matchedItem(30, "bread", 1)},
		Stores: testStores(),
		Prices: pricesOf([][4]float64{
			{1, 10, 3.00, 1}, {2, 10, 2.00, 1}, {3, 10, 2.50, 1},
			{1, 20, 2.00, 1}, {2, 20, 3.00, 1}, {3, 20, 2.50, 1},
			{1, 30, 2.50, 1}, {2, 30, 2.50, 1}, {3, 30, 2.00, 1},
		}),
	}

	plan := e.Balanced(in)
	require.NotNil(t, plan)
	assert.LessOrEqual(t, len(plan.Visits), cfg.BalancedMaxStores)
	assert.Len(t, plan.Assignments, 3, "every stocked item is covered within the selection")
}

func TestBalancedBuysEachItemAtCheapestSelectedStore(t *testing.T) {
	e := NewEngine(Defaults())
	in := StrategyInput{
		Origin: testOrigin,
		Items:  []MatchedItem{matchedItem(10, "milk", 1)},
		Stores: testStores()[:2],
		Prices: pricesOf([][4]float64{
			{1, 10, 3.00, 1}, {2, 10, 2.00, 1},
		}),
	}

	plan := e.Balanced(in)
	require.NotNil(t, plan)
	require.Len(t, plan.Assignments, 1)
	assert.Equal(t, 2.00, plan.Assignments[0].UnitPrice)
	assert.Equal(t, int64(2), plan.Assignments[0].StoreID)
}

func TestSingleChainTotal(t *testing.T) {
	stores := testStores()
	items := []MatchedItem{matchedItem(10, "milk", 2), matchedItem(20, "eggs", 1)}
	prices := pricesOf([][4]float64{
		{1, 10, 3.00, 1}, {1, 20, 2.00, 1},
		{2, 10, 2.50, 1},
	})

	walmart := SingleChainTotal("WALMART", items, stores, prices)
	require.NotNil(t, walmart)
	assert.Equal(t, 8.00, *walmart)

	// Target is missing eggs entirely; no meaningful baseline.
	assert.Nil(t, SingleChainTotal("TARGET", items, stores, prices))

	// No stores for the chain at all.
	assert.Nil(t, SingleChainTotal("COSTCO", items, stores, prices))
}

func TestSingleChainTotalSkipsOutOfStock(t *testing.T) {
	stores := testStores()
	items := []MatchedItem{matchedItem(10, "milk", 1)}
	prices := buildPrices(
		func() (catalog.PriceKey, catalog.PriceEntry) { return outOfStock(1, 10, 1.00) },
	)
	assert.Nil(t, SingleChainTotal("WALMART", items, stores, prices))
}

func TestPlanRoundingAppliedOnce(t *testing.T) {
	e := NewEngine(Defaults())
	in := StrategyInput{
		Origin: testOrigin,
		Items:  []MatchedItem{matchedItem(10, "milk", 3), matchedItem(20, "eggs", 1)},
		Stores: testStores(),
		Prices: pricesOf([][4]float64{
			{1, 10, 1.11, 1}, {2, 20, 2.22, 1},
		}),
	}

	plan := e.Cheapest(in)
	require.NotNil(t, plan)

	assert.Equal(t, 5.55, plan.TotalPrice)
	assert.Equal(t, plan.TotalDistanceKm, roundCents(plan.TotalDistanceKm), "distance rounded to 2 decimals")
	assert.Equal(t, plan.TotalTravelTimeMin, math.Round(plan.TotalTravelTimeMin), "travel time rounded to whole minutes")
	assert.Equal(t, plan.EstimatedTotalTimeMin, math.Round(plan.EstimatedTotalTimeMin))
	for _, v := range plan.Visits {
		assert.Equal(t, v.DistanceFromPrevKm, roundCents(v.DistanceFromPrevKm))
		assert.Equal(t, v.TravelTimeFromPrevMin, math.Round(v.TravelTimeFromPrevMin))
	}
}

func TestVisitsOrderedNearestNeighbor(t *testing.T) {
	e := NewEngine(Defaults())
	in := StrategyInput{
		Origin: testOrigin,
		Items:  []MatchedItem{matchedItem(10, "milk", 1), matchedItem(20, "eggs", 1), matchedItem(30, "bread", 1)},
		Stores: testStores(),
		Prices: pricesOf([][4]float64{
			{1, 10, 1.00, 1},
			{2, 20, 1.00, 1},
			{3, 30, 1.00, 1},
		}),
	}

	plan := e.Cheapest(in)
	require.NotNil(t, plan)
	require.Len(t, plan.Visits, 3)
	for i, v := range plan.Visits {
		assert.Equal(t, i, v.OrderIndex)
	}
	// Store 1 is the closest to the origin and must be visited first.
	assert.Equal(t, int64(1), plan.Visits[0].Store.ID)
}
