package catalog

import (
	"context"

	"github.com/patricknguyendev/simplygrocery/internal/geo"
)

// StoreDirectory exposes store lookup for planning and browsing.
type StoreDirectory interface {
	// StoresNear returns all stores within radiusKm of origin, nearest
	// first. A radiusKm <= 0 means no radius filter.
	StoresNear(ctx context.Context, origin geo.Point, radiusKm float64) ([]Store, error)
	// StoreByID returns the store or (nil, nil) when it does not exist.
	StoreByID(ctx context.Context, id int64) (*Store, error)
	// AllStores returns the full directory.
	AllStores(ctx context.Context) ([]Store, error)
}

// ProductCatalog exposes the product reference data.
type ProductCatalog interface {
	// AllProducts returns every catalog entry. The matcher scores the
	// full set; the catalog is small enough that this is the simplest
	// correct contract.
	AllProducts(ctx context.Context) ([]Product, error)
	// SearchProducts returns products whose name, brand, or category
	// matches the query, up to limit entries.
	SearchProducts(ctx context.Context, query string, limit int) ([]Product, error)
	// ProductsByID returns the products with the given IDs; unknown IDs
	// are skipped.
	ProductsByID(ctx context.Context, ids []int64) ([]Product, error)
}

// PriceStore exposes per-store prices for a set of products.
type PriceStore interface {
	// Prices returns every price entry for the given store and product
	// sets. Pairs with no entry are simply absent from the map.
	Prices(ctx context.Context, storeIDs, productIDs []int64) (PriceMap, error)
	// MinPrices returns, per product, the lowest in-stock price across
	// all stores. Products with no in-stock price anywhere are absent.
	MinPrices(ctx context.Context, productIDs []int64) (map[int64]float64, error)
}

// AnalyticsSink receives optimization completion events. Implementations
// must be safe for concurrent use; callers treat failures as non-fatal.
type AnalyticsSink interface {
	RecordOptimization(ctx context.Context, event AnalyticsEvent) error
}
