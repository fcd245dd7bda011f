package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/patricknguyendev/simplygrocery/internal/geo"
	"github.com/patricknguyendev/simplygrocery/internal/pkg/cuid2"
)

// Memory is an in-process implementation of the catalog interfaces.
// It backs the CLI's file-seeded mode and tests; the server uses the
// Postgres implementations instead.
type Memory struct {
	mu       sync.RWMutex
	stores   map[int64]Store
	products map[int64]Product
	prices   PriceMap
	trips    map[string]*StoredTrip
	events   []AnalyticsEvent
}

// NewMemory returns an empty in-memory catalog.
func NewMemory() *Memory {
	return &Memory{
		stores:   make(map[int64]Store),
		products: make(map[int64]Product),
		prices:   make(PriceMap),
		trips:    make(map[string]*StoredTrip),
	}
}

// AddStore inserts or replaces a store.
func (m *Memory) AddStore(s Store) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stores[s.ID] = s
}

// AddProduct inserts or replaces a product.
func (m *Memory) AddProduct(p Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[p.ID] = p
}

// SetPrice records the price of a product at a store.
func (m *Memory) SetPrice(storeID, productID int64, price float64, inStock bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prices[PriceKey{StoreID: storeID, ProductID: productID}] = PriceEntry{Price: price, InStock: inStock}
}

func (m *Memory) StoresNear(_ context.Context, origin geo.Point, radiusKm float64) ([]Store, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	type withDist struct {
		store Store
		km    float64
	}
	candidates := make([]withDist, 0, len(m.stores))
	for _, s := range m.stores {
		km := geo.HaversineKm(origin.Lat, origin.Lon, s.Lat, s.Lon)
		if radiusKm > 0 && km > radiusKm {
			continue
		}
		candidates = append(candidates, withDist{store: s, km: km})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].km != candidates[j].km {
			return candidates[i].km < candidates[j].km
		}
		return candidates[i].store.ID < candidates[j].store.ID
	})

	out := make([]Store, len(candidates))
	for i, c := range candidates {
		out[i] = c.store
	}
	return out, nil
}

func (m *Memory) StoreByID(_ context.Context, id int64) (*Store, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.stores[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *Memory) AllStores(_ context.Context) ([]Store, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Store, 0, len(m.stores))
	for _, s := range m.stores {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) AllProducts(_ context.Context) ([]Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Product, 0, len(m.products))
	for _, p := range m.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) SearchProducts(_ context.Context, query string, limit int) ([]Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]Product, 0, limit)
	ids := make([]int64, 0, len(m.products))
	for id := range m.products {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		p := m.products[id]
		if q == "" ||
			strings.Contains(strings.ToLower(p.Name), q) ||
			strings.Contains(strings.ToLower(p.Brand), q) ||
			strings.Contains(strings.ToLower(p.Category), q) {
			out = append(out, p)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (m *Memory) Prices(_ context.Context, storeIDs, productIDs []int64) (PriceMap, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	wantStore := make(map[int64]bool, len(storeIDs))
	for _, id := range storeIDs {
		wantStore[id] = true
	}
	wantProduct := make(map[int64]bool, len(productIDs))
	for _, id := range productIDs {
		wantProduct[id] = true
	}

	out := make(PriceMap)
	for key, entry := range m.prices {
		if wantStore[key.StoreID] && wantProduct[key.ProductID] {
			out[key] = entry
		}
	}
	return out, nil
}

func (m *Memory) MinPrices(_ context.Context, productIDs []int64) (map[int64]float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	want := make(map[int64]bool, len(productIDs))
	for _, id := range productIDs {
		want[id] = true
	}

	out := make(map[int64]float64)
	for key, entry := range m.prices {
		if !want[key.ProductID] || !entry.InStock {
			continue
		}
		if best, ok := out[key.ProductID]; !ok || entry.Price < best {
			out[key.ProductID] = entry.Price
		}
	}
	return out, nil
}

func (m *Memory) ProductsByID(_ context.Context, ids []int64) ([]Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *Memory) CreateTrip(_ context.Context, rec TripRecord) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := cuid2.GeneratePrefixedId("trip", cuid2.PrefixedIdOptions{TimeSortable: true})
	m.trips[id] = &StoredTrip{
		ID:        id,
		OriginLat: rec.OriginLat,
		OriginLon: rec.OriginLon,
		OriginZip: rec.OriginZip,
		Mode:      rec.Mode,
		CreatedAt: time.Now(),
	}
	return id, nil
}

func (m *Memory) CreateTripItems(_ context.Context, tripID string, items []TripItemRecord) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	trip, ok := m.trips[tripID]
	if !ok {
		return nil, fmt.Errorf("trip %s not found", tripID)
	}
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = cuid2.GeneratePrefixedId("titem", cuid2.PrefixedIdOptions{TimeSortable: true})
		trip.Items = append(trip.Items, StoredTripItem{
			ID:         ids[i],
			Query:      item.Query,
			Quantity:   item.Quantity,
			ProductID:  item.ProductID,
			MatchScore: item.MatchScore,
		})
	}
	return ids, nil
}

func (m *Memory) SavePlan(_ context.Context, tripID string, plan PlanRecord) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	trip, ok := m.trips[tripID]
	if !ok {
		return "", fmt.Errorf("trip %s not found", tripID)
	}
	id := cuid2.GeneratePrefixedId("plan", cuid2.PrefixedIdOptions{TimeSortable: true})
	trip.Plans = append(trip.Plans, StoredPlan{ID: id, PlanRecord: plan})
	return id, nil
}

func (m *Memory) SaveStoreVisits(_ context.Context, planID string, visits []StoreVisitRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	plan := m.planByID(planID)
	if plan == nil {
		return fmt.Errorf("plan %s not found", planID)
	}
	plan.Visits = append(plan.Visits, visits...)
	return nil
}

func (m *Memory) SaveItemAssignments(_ context.Context, planID string, assignments []ItemAssignmentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	plan := m.planByID(planID)
	if plan == nil {
		return fmt.Errorf("plan %s not found", planID)
	}
	plan.Assignments = append(plan.Assignments, assignments...)
	return nil
}

func (m *Memory) TripByID(_ context.Context, id string) (*StoredTrip, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	trip, ok := m.trips[id]
	if !ok {
		return nil, nil
	}
	copied := *trip
	return &copied, nil
}

// planByID must be called with the lock held.
func (m *Memory) planByID(planID string) *StoredPlan {
	for _, trip := range m.trips {
		for i := range trip.Plans {
			if trip.Plans[i].ID == planID {
				return &trip.Plans[i]
			}
		}
	}
	return nil
}

// UpsertStore satisfies the ingest writer contract.
func (m *Memory) UpsertStore(_ context.Context, s Store) error {
	m.AddStore(s)
	return nil
}

// UpsertProduct satisfies the ingest writer contract.
func (m *Memory) UpsertProduct(_ context.Context, p Product) error {
	m.AddProduct(p)
	return nil
}

// UpsertPrice satisfies the ingest writer contract.
func (m *Memory) UpsertPrice(_ context.Context, storeID, productID int64, price float64, inStock bool) error {
	m.SetPrice(storeID, productID, price, inStock)
	return nil
}

func (m *Memory) RecordOptimization(_ context.Context, event AnalyticsEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

// Events returns a copy of the recorded analytics events.
func (m *Memory) Events() []AnalyticsEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]AnalyticsEvent, len(m.events))
	copy(out, m.events)
	return out
}
