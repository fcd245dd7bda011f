// Package catalog defines the reference data the optimizer consumes
// (stores, products, prices) and the narrow collaborator contracts it is
// fetched through. The optimizer never constructs a data client itself;
// it receives these interfaces.
package catalog

import (
	"strings"

	"github.com/patricknguyendev/simplygrocery/internal/geo"
)

// Store is one retail location. Immutable reference data for the
// duration of a planning run.
type Store struct {
	ID           int64
	Name         string
	Chain        string
	Lat          float64
	Lon          float64
	AddressLine1 string
	City         string
	State        string
	PostalCode   string
}

// Location returns the store's coordinates.
func (s Store) Location() geo.Point {
	return geo.Point{Lat: s.Lat, Lon: s.Lon}
}

// Address renders the store's address fields as a single display line.
func (s Store) Address() string {
	parts := make([]string, 0, 4)
	for _, p := range []string{s.AddressLine1, s.City, s.State, s.PostalCode} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// Product is one catalog entry. Immutable reference data.
type Product struct {
	ID        int64
	Name      string
	Brand     string
	Category  string
	SizeValue float64
	SizeUnit  string
	UPC       string
}

// PriceKey identifies one (store, product) price cell.
type PriceKey struct {
	StoreID   int64
	ProductID int64
}

// PriceEntry is the price of a product at a store. Absence of an entry
// means the product is not sold there, which is different from a zero
// price or out-of-stock.
type PriceEntry struct {
	Price   float64
	InStock bool
}

// PriceMap is the {store, product} -> {price, inStock} lookup the
// planning strategies consume.
type PriceMap map[PriceKey]PriceEntry

// Available reports whether the product can actually be bought at the
// store: priced there and in stock.
func (m PriceMap) Available(storeID, productID int64) (float64, bool) {
	entry, ok := m[PriceKey{StoreID: storeID, ProductID: productID}]
	if !ok || !entry.InStock {
		return 0, false
	}
	return entry.Price, true
}

// AnalyticsEvent is the fire-and-forget record emitted after a trip
// optimization completes.
type AnalyticsEvent struct {
	TripID           string
	ItemCount        int
	SelectedStrategy string
}
