package database

import (
	"time"
)

// StoreRow is a row in the stores table.
type StoreRow struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`       // Store name as displayed to users
	Chain     string    `json:"chain"`      // Retail chain (WALMART, TARGET, etc.)
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Address   *string   `json:"address"`    // Street address
	City      *string   `json:"city"`
	State     *string   `json:"state"`
	PostalCode *string  `json:"postal_code"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProductRow is a row in the products table.
type ProductRow struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Brand     *string   `json:"brand"`
	Category  *string   `json:"category"`
	SizeValue *float64  `json:"size_value"` // Numeric part of the package size
	SizeUnit  *string   `json:"size_unit"`  // oz, lb, ct, gal, etc.
	UPC       *string   `json:"upc"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StorePriceRow is a row in the store_product_prices table. Absence of
// a row means the product is not carried at that store.
type StorePriceRow struct {
	StoreID   int64     `json:"store_id"`   // FK to stores.id
	ProductID int64     `json:"product_id"` // FK to products.id
	Price     float64   `json:"price"`      // Dollars
	InStock   bool      `json:"in_stock"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TripRow is a row in the trips table: one optimization request.
type TripRow struct {
	ID        string    `json:"id"` // CUID2
	UserID    *string   `json:"user_id"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Mode      string    `json:"mode"`      // CHEAPEST | FASTEST | BALANCED | ALL
	MaxStores int       `json:"max_stores"`
	RadiusKm  float64   `json:"radius_km"`
	CreatedAt time.Time `json:"created_at"`
}

// TripItemRow is one shopping list line of a trip, matched or not.
type TripItemRow struct {
	ID        string    `json:"id"` // CUID2
	TripID    string    `json:"trip_id"`    // FK to trips.id
	Query     string    `json:"query"`      // Raw list entry as typed
	Quantity  int       `json:"quantity"`
	ProductID *int64    `json:"product_id"` // Nil when unmatched
	MatchScore *float64 `json:"match_score"`
	CreatedAt time.Time `json:"created_at"`
}

// PlanRow is one computed plan for a trip.
type PlanRow struct {
	ID               string    `json:"id"` // CUID2
	TripID           string    `json:"trip_id"` // FK to trips.id
	Strategy         string    `json:"strategy"` // CHEAPEST | FASTEST | BALANCED
	TotalCost        float64   `json:"total_cost"`
	TotalDistanceKm  float64   `json:"total_distance_km"`
	TotalTimeMin     float64   `json:"total_time_min"`
	DistanceSource   string    `json:"distance_source"` // real | fallback | mixed
	BaselineSavings  []byte    `json:"baseline_savings"` // JSON map chain -> savings, null entries preserved
	CreatedAt        time.Time `json:"created_at"`
}

// StoreVisitRow is one stop in a plan's route, in visit order.
type StoreVisitRow struct {
	ID            string  `json:"id"` // CUID2
	PlanID        string  `json:"plan_id"` // FK to plans.id
	StoreID       int64   `json:"store_id"`
	Position      int     `json:"position"`       // 0-based visit order
	LegDistanceKm float64 `json:"leg_distance_km"`
	LegTimeMin    float64 `json:"leg_time_min"`
	InstoreTimeMin float64 `json:"instore_time_min"`
	ItemCount     int     `json:"item_count"`
}

// ItemAssignmentRow maps one trip item to the store a plan buys it at.
type ItemAssignmentRow struct {
	ID         string  `json:"id"` // CUID2
	PlanID     string  `json:"plan_id"` // FK to plans.id
	TripItemID string  `json:"trip_item_id"` // FK to trip_items.id
	StoreID    int64   `json:"store_id"`
	ProductID  int64   `json:"product_id"`
	UnitPrice  float64 `json:"unit_price"`
	Quantity   int     `json:"quantity"`
}

// AnalyticsEventRow is a row in the analytics_events table.
type AnalyticsEventRow struct {
	ID               string    `json:"id"` // CUID2
	TripID           string    `json:"trip_id"`
	ItemCount        int       `json:"item_count"`
	SelectedStrategy string    `json:"selected_strategy"`
	CreatedAt        time.Time `json:"created_at"`
}
