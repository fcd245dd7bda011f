package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/patricknguyendev/simplygrocery/internal/geo"
	"github.com/patricknguyendev/simplygrocery/internal/pkg/cuid2"
)

// Postgres implements every catalog collaborator against a pgx pool.
// It exercises the contracts; schema migrations are owned elsewhere.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres wraps an existing connection pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) StoresNear(ctx context.Context, origin geo.Point, radiusKm float64) ([]Store, error) {
	// The directory is small; fetch and filter by great-circle distance
	// here, matching the contract that radius filtering is geo math,
	// not a storage concern.
	all, err := p.AllStores(ctx)
	if err != nil {
		return nil, err
	}

	type withDist struct {
		store Store
		km    float64
	}
	candidates := make([]withDist, 0, len(all))
	for _, s := range all {
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

func (p *Postgres) StoreByID(ctx context.Context, id int64) (*Store, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT id, name, chain, latitude, longitude,
		       COALESCE(address, ''), COALESCE(city, ''), COALESCE(state, ''), COALESCE(postal_code, '')
		FROM stores WHERE id = $1
	`, id)

	var s Store
	err := row.Scan(&s.ID, &s.Name, &s.Chain, &s.Lat, &s.Lon, &s.AddressLine1, &s.City, &s.State, &s.PostalCode)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying store %d: %w", id, err)
	}
	return &s, nil
}

func (p *Postgres) AllStores(ctx context.Context) ([]Store, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, name, chain, latitude, longitude,
		       COALESCE(address, ''), COALESCE(city, ''), COALESCE(state, ''), COALESCE(postal_code, '')
		FROM stores ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying stores: %w", err)
	}
	defer rows.Close()

	var out []Store
	for rows.Next() {
		var s Store
		if err := rows.Scan(&s.ID, &s.Name, &s.Chain, &s.Lat, &s.Lon, &s.AddressLine1, &s.City, &s.State, &s.PostalCode); err != nil {
			return nil, fmt.Errorf("scanning store: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (p *Postgres) AllProducts(ctx context.Context) ([]Product, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, name, COALESCE(brand, ''), COALESCE(category, ''),
		       COALESCE(size_value, 0), COALESCE(size_unit, ''), COALESCE(upc, '')
		FROM products ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying products: %w", err)
	}
	defer rows.Close()
	return scanProducts(rows)
}

func (p *Postgres) SearchProducts(ctx context.Context, query string, limit int) ([]Product, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := p.pool.Query(ctx, `
		SELECT id, name, COALESCE(brand, ''), COALESCE(category, ''),
		       COALESCE(size_value, 0), COALESCE(size_unit, ''), COALESCE(upc, '')
		FROM products
		WHERE name ILIKE '%' || $1 || '%'
		   OR brand ILIKE '%' || $1 || '%'
		   OR category ILIKE '%' || $1 || '%'
		ORDER BY id
		LIMIT $2
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("searching products: %w", err)
	}
	defer rows.Close()
	return scanProducts(rows)
}

func (p *Postgres) ProductsByID(ctx context.Context, ids []int64) ([]Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := p.pool.Query(ctx, `
		SELECT id, name, COALESCE(brand, ''), COALESCE(category, ''),
		       COALESCE(size_value, 0), COALESCE(size_unit, ''), COALESCE(upc, '')
		FROM products WHERE id = ANY($1) ORDER BY id
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("querying products by id: %w", err)
	}
	defer rows.Close()
	return scanProducts(rows)
}

func scanProducts(rows pgx.Rows) ([]Product, error) {
	var out []Product
	for rows.Next() {
		var pr Product
		if err := rows.Scan(&pr.ID, &pr.Name, &pr.Brand, &pr.Category, &pr.SizeValue, &pr.SizeUnit, &pr.UPC); err != nil {
			return nil, fmt.Errorf("scanning product: %w", err)
		}
		out = append(out, pr)
	}
	return out, rows.Err()
}

func (p *Postgres) Prices(ctx context.Context, storeIDs, productIDs []int64) (PriceMap, error) {
	if len(storeIDs) == 0 || len(productIDs) == 0 {
		return PriceMap{}, nil
	}
	rows, err := p.pool.Query(ctx, `
		SELECT store_id, product_id, price, in_stock
		FROM store_product_prices
		WHERE store_id = ANY($1) AND product_id = ANY($2)
	`, storeIDs, productIDs)
	if err != nil {
		return nil, fmt.Errorf("querying prices: %w", err)
	}
	defer rows.Close()

	out := make(PriceMap)
	for rows.Next() {
		var key PriceKey
		var entry PriceEntry
		if err := rows.Scan(&key.StoreID, &key.ProductID, &entry.Price, &entry.InStock); err != nil {
			return nil, fmt.Errorf("scanning price: %w", err)
		}
		out[key] = entry
	}
	return out, rows.Err()
}

func (p *Postgres) MinPrices(ctx context.Context, productIDs []int64) (map[int64]float64, error) {
	if len(productIDs) == 0 {
		return map[int64]float64{}, nil
	}
	rows, err := p.pool.Query(ctx, `
		SELECT product_id, MIN(price)
		FROM store_product_prices
		WHERE product_id = ANY($1) AND in_stock
		GROUP BY product_id
	`, productIDs)
	if err != nil {
		return nil, fmt.Errorf("querying min prices: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]float64)
	for rows.Next() {
		var id int64
		var price float64
		if err := rows.Scan(&id, &price); err != nil {
			return nil, fmt.Errorf("scanning min price: %w", err)
		}
		out[id] = price
	}
	return out, rows.Err()
}

func (p *Postgres) CreateTrip(ctx context.Context, rec TripRecord) (string, error) {
	id := cuid2.GeneratePrefixedId("trip", cuid2.PrefixedIdOptions{TimeSortable: true})
	_, err := p.pool.Exec(ctx, `
		INSERT INTO trips (id, user_id, latitude, longitude, postal_code, mode, max_stores, radius_km, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
	`, id, rec.UserID, rec.OriginLat, rec.OriginLon, rec.OriginZip, rec.Mode, rec.MaxStores, rec.RadiusKm)
	if err != nil {
		return "", fmt.Errorf("inserting trip: %w", err)
	}
	return id, nil
}

func (p *Postgres) CreateTripItems(ctx context.Context, tripID string, items []TripItemRecord) ([]string, error) {
	ids := make([]string, len(items))
	batch := &pgx.Batch{}
	for i, item := range items {
		ids[i] = cuid2.GeneratePrefixedId("titem", cuid2.PrefixedIdOptions{TimeSortable: true})
		batch.Queue(`
			INSERT INTO trip_items (id, trip_id, query, quantity, product_id, match_score, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, NOW())
		`, ids[i], tripID, item.Query, item.Quantity, item.ProductID, item.MatchScore)
	}
	if err := p.sendBatch(ctx, batch); err != nil {
		return nil, fmt.Errorf("inserting trip items: %w", err)
	}
	return ids, nil
}

func (p *Postgres) SavePlan(ctx context.Context, tripID string, plan PlanRecord) (string, error) {
	id := cuid2.GeneratePrefixedId("plan", cuid2.PrefixedIdOptions{TimeSortable: true})
	savings, err := json.Marshal(plan.Savings)
	if err != nil {
		return "", fmt.Errorf("encoding savings: %w", err)
	}
	_, err = p.pool.Exec(ctx, `
		INSERT INTO trip_plans (id, trip_id, label, strategy, total_price, total_distance_km,
			total_travel_time_min, estimated_instore_time_min, estimated_total_time_min,
			distance_source, baseline_savings, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
	`, id, tripID, plan.Label, plan.Strategy, plan.TotalPrice, plan.TotalDistanceKm,
		plan.TotalTravelTimeMin, plan.EstimatedInstoreTimeMin, plan.EstimatedTotalTimeMin,
		plan.DistanceSource, savings)
	if err != nil {
		return "", fmt.Errorf("inserting plan: %w", err)
	}
	return id, nil
}

func (p *Postgres) SaveStoreVisits(ctx context.Context, planID string, visits []StoreVisitRecord) error {
	batch := &pgx.Batch{}
	for _, v := range visits {
		batch.Queue(`
			INSERT INTO trip_plan_stores (id, plan_id, store_id, order_index,
				distance_from_prev_km, travel_time_from_prev_min, item_count, distance_source)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, cuid2.GeneratePrefixedId("visit", cuid2.PrefixedIdOptions{TimeSortable: true}),
			planID, v.StoreID, v.OrderIndex, v.DistanceFromPrevKm, v.TravelTimeFromPrevMin, v.ItemCount, v.DistanceSource)
	}
	if err := p.sendBatch(ctx, batch); err != nil {
		return fmt.Errorf("inserting store visits: %w", err)
	}
	return nil
}

func (p *Postgres) SaveItemAssignments(ctx context.Context, planID string, assignments []ItemAssignmentRecord) error {
	batch := &pgx.Batch{}
	for _, a := range assignments {
		batch.Queue(`
			INSERT INTO trip_plan_item_assignments (id, plan_id, trip_item_id, store_id, product_id, unit_price, quantity)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, cuid2.GeneratePrefixedId("assign", cuid2.PrefixedIdOptions{TimeSortable: true}),
			planID, a.TripItemID, a.StoreID, a.ProductID, a.UnitPrice, a.Quantity)
	}
	if err := p.sendBatch(ctx, batch); err != nil {
		return fmt.Errorf("inserting item assignments: %w", err)
	}
	return nil
}

func (p *Postgres) TripByID(ctx context.Context, id string) (*StoredTrip, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT id, latitude, longitude, COALESCE(postal_code, ''), mode, created_at
		FROM trips WHERE id = $1
	`, id)

	var trip StoredTrip
	err := row.Scan(&trip.ID, &trip.OriginLat, &trip.OriginLon, &trip.OriginZip, &trip.Mode, &trip.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying trip %s: %w", id, err)
	}

	if trip.Items, err = p.tripItems(ctx, id); err != nil {
		return nil, err
	}
	if trip.Plans, err = p.tripPlans(ctx, id); err != nil {
		return nil, err
	}
	return &trip, nil
}

func (p *Postgres) tripItems(ctx context.Context, tripID string) ([]StoredTripItem, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, query, quantity, product_id, match_score
		FROM trip_items WHERE trip_id = $1 ORDER BY created_at, id
	`, tripID)
	if err != nil {
		return nil, fmt.Errorf("querying trip items: %w", err)
	}
	defer rows.Close()

	var out []StoredTripItem
	for rows.Next() {
		var item StoredTripItem
		if err := rows.Scan(&item.ID, &item.Query, &item.Quantity, &item.ProductID, &item.MatchScore); err != nil {
			return nil, fmt.Errorf("scanning trip item: %w", err)
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (p *Postgres) tripPlans(ctx context.Context, tripID string) ([]StoredPlan, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, label, strategy, total_price, total_distance_km, total_travel_time_min,
		       estimated_instore_time_min, estimated_total_time_min, distance_source, baseline_savings
		FROM trip_plans WHERE trip_id = $1 ORDER BY created_at, id
	`, tripID)
	if err != nil {
		return nil, fmt.Errorf("querying plans: %w", err)
	}
	defer rows.Close()

	var out []StoredPlan
	for rows.Next() {
		var plan StoredPlan
		var savings []byte
		if err := rows.Scan(&plan.ID, &plan.Label, &plan.Strategy, &plan.TotalPrice, &plan.TotalDistanceKm,
			&plan.TotalTravelTimeMin, &plan.EstimatedInstoreTimeMin, &plan.EstimatedTotalTimeMin,
			&plan.DistanceSource, &savings); err != nil {
			return nil, fmt.Errorf("scanning plan: %w", err)
		}
		if len(savings) > 0 {
			if err := json.Unmarshal(savings, &plan.Savings); err != nil {
				return nil, fmt.Errorf("decoding savings: %w", err)
			}
		}
		out = append(out, plan)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		var err error
		if out[i].Visits, err = p.planVisits(ctx, out[i].ID); err != nil {
			return nil, err
		}
		if out[i].Assignments, err = p.planAssignments(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (p *Postgres) planVisits(ctx context.Context, planID string) ([]StoreVisitRecord, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT store_id, order_index, distance_from_prev_km, travel_time_from_prev_min, item_count, distance_source
		FROM trip_plan_stores WHERE plan_id = $1 ORDER BY order_index
	`, planID)
	if err != nil {
		return nil, fmt.Errorf("querying visits: %w", err)
	}
	defer rows.Close()

	var out []StoreVisitRecord
	for rows.Next() {
		var v StoreVisitRecord
		if err := rows.Scan(&v.StoreID, &v.OrderIndex, &v.DistanceFromPrevKm, &v.TravelTimeFromPrevMin, &v.ItemCount, &v.DistanceSource); err != nil {
			return nil, fmt.Errorf("scanning visit: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (p *Postgres) planAssignments(ctx context.Context, planID string) ([]ItemAssignmentRecord, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT trip_item_id, store_id, product_id, unit_price, quantity
		FROM trip_plan_item_assignments WHERE plan_id = $1 ORDER BY id
	`, planID)
	if err != nil {
		return nil, fmt.Errorf("querying assignments: %w", err)
	}
	defer rows.Close()

	var out []ItemAssignmentRecord
	for rows.Next() {
		var a ItemAssignmentRecord
		if err := rows.Scan(&a.TripItemID, &a.StoreID, &a.ProductID, &a.UnitPrice, &a.Quantity); err != nil {
			return nil, fmt.Errorf("scanning assignment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (p *Postgres) RecordOptimization(ctx context.Context, event AnalyticsEvent) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO analytics_events (id, trip_id, item_count, selected_strategy, created_at)
		VALUES ($1, $2, $3, $4, NOW())
	`, cuid2.GeneratePrefixedId("evt", cuid2.PrefixedIdOptions{TimeSortable: true}),
		event.TripID, event.ItemCount, event.SelectedStrategy)
	if err != nil {
		return fmt.Errorf("inserting analytics event: %w", err)
	}
	return nil
}

// UpsertStore inserts or updates a store. Used by catalog seeding.
func (p *Postgres) UpsertStore(ctx context.Context, s Store) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO stores (id, name, chain, latitude, longitude, address, city, state, postal_code, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, chain = EXCLUDED.chain,
			latitude = EXCLUDED.latitude, longitude = EXCLUDED.longitude,
			address = EXCLUDED.address, city = EXCLUDED.city,
			state = EXCLUDED.state, postal_code = EXCLUDED.postal_code,
			updated_at = NOW()
	`, s.ID, s.Name, s.Chain, s.Lat, s.Lon, s.AddressLine1, s.City, s.State, s.PostalCode)
	if err != nil {
		return fmt.Errorf("upserting store %d: %w", s.ID, err)
	}
	return nil
}

// UpsertProduct inserts or updates a product. Used by catalog seeding.
func (p *Postgres) UpsertProduct(ctx context.Context, pr Product) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO products (id, name, brand, category, size_value, size_unit, upc, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, brand = EXCLUDED.brand, category = EXCLUDED.category,
			size_value = EXCLUDED.size_value, size_unit = EXCLUDED.size_unit,
			upc = EXCLUDED.upc, updated_at = NOW()
	`, pr.ID, pr.Name, pr.Brand, pr.Category, pr.SizeValue, pr.SizeUnit, pr.UPC)
	if err != nil {
		return fmt.Errorf("upserting product %d: %w", pr.ID, err)
	}
	return nil
}

// UpsertPrice inserts or updates one price cell. Used by catalog
// seeding.
func (p *Postgres) UpsertPrice(ctx context.Context, storeID, productID int64, price float64, inStock bool) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO store_product_prices (store_id, product_id, price, in_stock, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (store_id, product_id) DO UPDATE SET
			price = EXCLUDED.price, in_stock = EXCLUDED.in_stock, updated_at = NOW()
	`, storeID, productID, price, inStock)
	if err != nil {
		return fmt.Errorf("upserting price (%d, %d): %w", storeID, productID, err)
	}
	return nil
}

func (p *Postgres) sendBatch(ctx context.Context, batch *pgx.Batch) error {
	results := p.pool.SendBatch(ctx, batch)
	defer results.Close()
	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}
	return nil
}
