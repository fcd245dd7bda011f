// Package handlers exposes the trip optimizer over HTTP. Handlers bind
// and validate JSON, translate the optimizer's error taxonomy to status
// codes, and mirror internal types into response DTOs.
package handlers

// OriginRequest is the shopper's starting point.
type OriginRequest struct {
	Lat float64 `json:"lat" binding:"min=-90,max=90"`
	Lon float64 `json:"lon" binding:"min=-180,max=180"`
	Zip string  `json:"zip,omitempty"`
}

// TripItemRequest is one shopping list entry. Quantity defaults to 1.
type TripItemRequest struct {
	RawQuery string `json:"rawQuery" binding:"required"`
	Quantity int    `json:"quantity,omitempty"`
}

// TripPreferences are the recognized tuning knobs.
type TripPreferences struct {
	MaxStores     int      `json:"maxStores,omitempty"`
	MaxRadiusKm   float64  `json:"maxRadiusKm,omitempty"`
	Strategy      string   `json:"strategy,omitempty"`
	IncludeChains []string `json:"includeChains,omitempty"`
	ExcludeChains []string `json:"excludeChains,omitempty"`
}

// TripRequest is the trip optimization request body.
type TripRequest struct {
	Origin      OriginRequest     `json:"origin" binding:"required"`
	Items       []TripItemRequest `json:"items" binding:"required"`
	Preferences *TripPreferences  `json:"preferences,omitempty"`
}

// ProductRef identifies a matched catalog product.
type ProductRef struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Brand    string `json:"brand,omitempty"`
	Category string `json:"category,omitempty"`
}

// TripItemResponse is one list line; MatchedProduct is null for
// unmatched entries.
type TripItemResponse struct {
	RawQuery       string      `json:"rawQuery"`
	Quantity       int         `json:"quantity"`
	MatchedProduct *ProductRef `json:"matchedProduct"`
}

// StoreResponse describes one store of a plan.
type StoreResponse struct {
	ID      int64   `json:"id"`
	Name    string  `json:"name"`
	Chain   string  `json:"chain"`
	Address string  `json:"address"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// VisitItemResponse is one purchase at a stop.
type VisitItemResponse struct {
	ProductID   int64   `json:"productId"`
	ProductName string  `json:"productName"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
	LineTotal   float64 `json:"lineTotal"`
}

// StoreVisitResponse is one stop of a plan's route.
type StoreVisitResponse struct {
	Store                 StoreResponse       `json:"store"`
	OrderIndex            int                 `json:"orderIndex"`
	DistanceFromPrevKm    float64             `json:"distanceFromPrevKm"`
	TravelTimeFromPrevMin float64             `json:"travelTimeFromPrevMin"`
	DistanceSource        string              `json:"distanceSource"`
	Items                 []VisitItemResponse `json:"items"`
}

// PlanResponse is one computed plan. Savings fields are null when the
// chain baseline was not meaningful.
type PlanResponse struct {
	ID                      string               `json:"id"`
	Label                   string               `json:"label"`
	Strategy                string               `json:"strategy"`
	TotalPrice              float64              `json:"totalPrice"`
	TotalDistanceKm         float64              `json:"totalDistanceKm"`
	TotalTravelTimeMin      float64              `json:"totalTravelTimeMin"`
	EstimatedInstoreTimeMin float64              `json:"estimatedInstoreTimeMin"`
	EstimatedTotalTimeMin   float64              `json:"estimatedTotalTimeMin"`
	SavingsVsWalmart        *float64             `json:"savingsVsWalmart"`
	SavingsVsTarget         *float64             `json:"savingsVsTarget"`
	SavingsVsCostco         *float64             `json:"savingsVsCostco"`
	Stores                  []StoreVisitResponse `json:"stores"`
}

// TripResponse is the full optimization result.
type TripResponse struct {
	TripID         string             `json:"tripId"`
	Origin         OriginRequest      `json:"origin"`
	Items          []TripItemResponse `json:"items"`
	Plans          []PlanResponse     `json:"plans"`
	DistanceSource string             `json:"distanceSource"`
}

// StoreListResponse wraps the store directory listing.
type StoreListResponse struct {
	Stores []StoreResponse `json:"stores"`
	Total  int             `json:"total"`
}

// ProductSearchResponse wraps a product search.
type ProductSearchResponse struct {
	Products []ProductRef `json:"products"`
	Total    int          `json:"total"`
}

// ErrorResponse is the uniform failure body.
type ErrorResponse struct {
	Error string `json:"error"`
}
