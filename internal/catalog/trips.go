package catalog

import (
	"context"
	"time"
)

// TripRecord is the durable form of one optimization request.
type TripRecord struct {
	OriginLat float64
	OriginLon float64
	OriginZip string
	Mode      string
	MaxStores int
	RadiusKm  float64
	UserID    *string
}

// TripItemRecord is one shopping list line, matched or not. A nil
// ProductID marks an unmatched line.
type TripItemRecord struct {
	Query      string
	Quantity   int
	ProductID  *int64
	MatchScore *float64
}

// PlanRecord is the durable form of one computed plan. Savings holds
// the per-chain comparison; nil entries mean the baseline was not
// meaningful and must persist as null, not zero.
type PlanRecord struct {
	Label                   string
	Strategy                string
	TotalPrice              float64
	TotalDistanceKm         float64
	TotalTravelTimeMin      float64
	EstimatedInstoreTimeMin float64
	EstimatedTotalTimeMin   float64
	DistanceSource          string
	Savings                 map[string]*float64
}

// StoreVisitRecord is one stop of a plan's route in visit order.
type StoreVisitRecord struct {
	StoreID               int64
	OrderIndex            int
	DistanceFromPrevKm    float64
	TravelTimeFromPrevMin float64
	ItemCount             int
	DistanceSource        string
}

// ItemAssignmentRecord maps a trip item to the store a plan buys it at.
type ItemAssignmentRecord struct {
	TripItemID string
	StoreID    int64
	ProductID  int64
	UnitPrice  float64
	Quantity   int
}

// StoredTrip is a persisted trip with its plans, fetched back for the
// read path.
type StoredTrip struct {
	ID        string
	OriginLat float64
	OriginLon float64
	OriginZip string
	Mode      string
	CreatedAt time.Time
	Items     []StoredTripItem
	Plans     []StoredPlan
}

// StoredTripItem is one persisted list line.
type StoredTripItem struct {
	ID         string
	Query      string
	Quantity   int
	ProductID  *int64
	MatchScore *float64
}

// StoredPlan is one persisted plan with its route and assignments.
type StoredPlan struct {
	ID string
	PlanRecord
	Visits      []StoreVisitRecord
	Assignments []ItemAssignmentRecord
}

// TripStore persists trips, their plans, routes and assignments. All
// writes for one trip are scoped to that trip's ID; records are
// write-once, recomputation creates a new trip.
type TripStore interface {
	// CreateTrip persists the request and returns the new trip ID.
	CreateTrip(ctx context.Context, rec TripRecord) (string, error)
	// CreateTripItems persists one line per list entry, returning the
	// item IDs in input order.
	CreateTripItems(ctx context.Context, tripID string, items []TripItemRecord) ([]string, error)
	// SavePlan persists a plan and returns its ID.
	SavePlan(ctx context.Context, tripID string, plan PlanRecord) (string, error)
	// SaveStoreVisits persists a plan's route.
	SaveStoreVisits(ctx context.Context, planID string, visits []StoreVisitRecord) error
	// SaveItemAssignments persists a plan's item assignments.
	SaveItemAssignments(ctx context.Context, planID string, assignments []ItemAssignmentRecord) error
	// TripByID fetches a stored trip, or (nil, nil) when it does not
	// exist.
	TripByID(ctx context.Context, id string) (*StoredTrip, error)
}
