package handlers

import (
	"errors"
	"math"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/patricknguyendev/simplygrocery/internal/catalog"
	"github.com/patricknguyendev/simplygrocery/internal/distance"
	"github.com/patricknguyendev/simplygrocery/internal/optimizer"
)

// TripHandler serves trip optimization and retrieval.
type TripHandler struct {
	optimizer *optimizer.TripOptimizer
	trips     catalog.TripStore
	stores    catalog.StoreDirectory
	products  catalog.ProductCatalog
	logger    zerolog.Logger
}

// NewTripHandler creates the handler.
func NewTripHandler(opt *optimizer.TripOptimizer, trips catalog.TripStore, stores catalog.StoreDirectory, products catalog.ProductCatalog) *TripHandler {
	return &TripHandler{
		optimizer: opt,
		trips:     trips,
		stores:    stores,
		products:  products,
		logger:    log.With().Str("component", "trip_handler").Logger(),
	}
}

// Create handles POST /api/trips.
func (h *TripHandler) Create(c *gin.Context) {
	var req TripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	items := make([]optimizer.ListItem, len(req.Items))
	for i, item := range req.Items {
		quantity := item.Quantity
		if quantity == 0 {
			quantity = 1
		}
		items[i] = optimizer.ListItem{Query: item.RawQuery, Quantity: quantity}
	}

	optReq := &optimizer.Request{
		Origin: optimizer.Origin{Lat: req.Origin.Lat, Lon: req.Origin.Lon, Zip: req.Origin.Zip},
		Items:  items,
	}
	if req.Preferences != nil {
		optReq.Preferences = optimizer.Preferences{
			MaxStores:     req.Preferences.MaxStores,
			MaxRadiusKm:   req.Preferences.MaxRadiusKm,
			Strategy:      optimizer.Strategy(req.Preferences.Strategy),
			IncludeChains: req.Preferences.IncludeChains,
			ExcludeChains: req.Preferences.ExcludeChains,
		}
	}

	var userID *string
	if uid := c.GetString("user_id"); uid != "" {
		userID = &uid
	}

	result, err := h.optimizer.OptimizeTrip(c.Request.Context(), optReq, userID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, buildTripResponse(result))
}

// Get handles GET /api/trips/:id.
func (h *TripHandler) Get(c *gin.Context) {
	trip, err := h.trips.TripByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.logger.Error().Err(err).Msg("trip lookup failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to load trip"})
		return
	}
	if trip == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "trip not found"})
		return
	}

	resp, err := h.buildStoredTripResponse(c, trip)
	if err != nil {
		h.logger.Error().Err(err).Str("trip_id", trip.ID).Msg("trip assembly failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to load trip"})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// respondError maps the optimizer error taxonomy to HTTP statuses:
// caller-fixable requests are 400, infeasible data is 404 or 422, and
// anything unexpected, including persistence failures, is 500.
func (h *TripHandler) respondError(c *gin.Context, err error) {
	var invalid optimizer.ErrInvalidRequest
	switch {
	case errors.As(err, &invalid):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: invalid.Error()})
	case errors.Is(err, optimizer.ErrNoStoresFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case errors.Is(err, optimizer.ErrNoProductsMatched), errors.Is(err, optimizer.ErrNoPlansGenerated):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error()})
	default:
		h.logger.Error().Err(err).Msg("trip optimization failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "trip optimization failed"})
	}
}

// buildTripResponse mirrors a fresh optimization result into the API
// shape.
func buildTripResponse(result *optimizer.TripResult) TripResponse {
	items := make([]TripItemResponse, 0, len(result.Matched)+len(result.Unmatched))
	productNames := make(map[int64]string, len(result.Matched))
	for _, m := range result.Matched {
		productNames[m.Product.ID] = m.Product.Name
		items = append(items, TripItemResponse{
			RawQuery: m.Query,
			Quantity: m.Quantity,
			MatchedProduct: &ProductRef{
				ID:       m.Product.ID,
				Name:     m.Product.Name,
				Brand:    m.Product.Brand,
				Category: m.Product.Category,
			},
		})
	}
	for _, u := range result.Unmatched {
		items = append(items, TripItemResponse{RawQuery: u.Query, Quantity: u.Quantity})
	}

	plans := make([]PlanResponse, 0, len(result.Plans))
	real, fallback := 0, 0
	for _, saved := range result.Plans {
		plan := saved.Plan
		visits := make([]StoreVisitResponse, 0, len(plan.Visits))
		for _, v := range plan.Visits {
			if v.DistanceSource == distance.SourceReal {
				real++
			} else {
				fallback++
			}
			visitItems := make([]VisitItemResponse, 0, v.ItemCount)
			for _, a := range plan.Assignments {
				if a.StoreID != v.Store.ID {
					continue
				}
				visitItems = append(visitItems, VisitItemResponse{
					ProductID:   a.ProductID,
					ProductName: productNames[a.ProductID],
					Quantity:    a.Quantity,
					UnitPrice:   a.UnitPrice,
					LineTotal:   lineTotal(a.UnitPrice, a.Quantity),
				})
			}
			visits = append(visits, StoreVisitResponse{
				Store:                 storeResponse(v.Store),
				OrderIndex:            v.OrderIndex,
				DistanceFromPrevKm:    v.DistanceFromPrevKm,
				TravelTimeFromPrevMin: v.TravelTimeFromPrevMin,
				DistanceSource:        string(v.DistanceSource),
				Items:                 visitItems,
			})
		}

		plans = append(plans, PlanResponse{
			ID:                      saved.PlanID,
			Label:                   plan.Label,
			Strategy:                string(plan.Strategy),
			TotalPrice:              plan.TotalPrice,
			TotalDistanceKm:         plan.TotalDistanceKm,
			TotalTravelTimeMin:      plan.TotalTravelTimeMin,
			EstimatedInstoreTimeMin: plan.EstimatedInstoreTimeMin,
			EstimatedTotalTimeMin:   plan.EstimatedTotalTimeMin,
			SavingsVsWalmart:        saved.Savings["WALMART"],
			SavingsVsTarget:         saved.Savings["TARGET"],
			SavingsVsCostco:         saved.Savings["COSTCO"],
			Stores:                  visits,
		})
	}

	return TripResponse{
		TripID: result.TripID,
		Origin: OriginRequest{
			Lat: result.Origin.Lat,
			Lon: result.Origin.Lon,
			Zip: result.Origin.Zip,
		},
		Items:          items,
		Plans:          plans,
		DistanceSource: overallSource(real, fallback),
	}
}

// buildStoredTripResponse reassembles the API shape from persisted
// records, resolving stores and products from the catalog.
func (h *TripHandler) buildStoredTripResponse(c *gin.Context, trip *catalog.StoredTrip) (*TripResponse, error) {
	ctx := c.Request.Context()

	productIDs := make([]int64, 0, len(trip.Items))
	for _, item := range trip.Items {
		if item.ProductID != nil {
			productIDs = append(productIDs, *item.ProductID)
		}
	}
	products, err := h.products.ProductsByID(ctx, productIDs)
	if err != nil {
		return nil, err
	}
	productByID := make(map[int64]catalog.Product, len(products))
	for _, p := range products {
		productByID[p.ID] = p
	}

	items := make([]TripItemResponse, 0, len(trip.Items))
	for _, item := range trip.Items {
		resp := TripItemResponse{RawQuery: item.Query, Quantity: item.Quantity}
		if item.ProductID != nil {
			if p, ok := productByID[*item.ProductID]; ok {
				resp.MatchedProduct = &ProductRef{ID: p.ID, Name: p.Name, Brand: p.Brand, Category: p.Category}
			}
		}
		items = append(items, resp)
	}

	real, fallback := 0, 0
	plans := make([]PlanResponse, 0, len(trip.Plans))
	for _, plan := range trip.Plans {
		visits := make([]StoreVisitResponse, 0, len(plan.Visits))
		for _, v := range plan.Visits {
			if distance.Source(v.DistanceSource) == distance.SourceReal {
				real++
			} else {
				fallback++
			}
			store, err := h.stores.StoreByID(ctx, v.StoreID)
			if err != nil {
				return nil, err
			}
			visit := StoreVisitResponse{
				OrderIndex:            v.OrderIndex,
				DistanceFromPrevKm:    v.DistanceFromPrevKm,
				TravelTimeFromPrevMin: v.TravelTimeFromPrevMin,
				DistanceSource:        v.DistanceSource,
				Items:                 []VisitItemResponse{},
			}
			if store != nil {
				visit.Store = storeResponse(*store)
			}
			for _, a := range plan.Assignments {
				if a.StoreID != v.StoreID {
					continue
				}
				visit.Items = append(visit.Items, VisitItemResponse{
					ProductID:   a.ProductID,
					ProductName: productByID[a.ProductID].Name,
					Quantity:    a.Quantity,
					UnitPrice:   a.UnitPrice,
					LineTotal:   lineTotal(a.UnitPrice, a.Quantity),
				})
			}
			visits = append(visits, visit)
		}

		plans = append(plans, PlanResponse{
			ID:                      plan.ID,
			Label:                   plan.Label,
			Strategy:                plan.Strategy,
			TotalPrice:              plan.TotalPrice,
			TotalDistanceKm:         plan.TotalDistanceKm,
			TotalTravelTimeMin:      plan.TotalTravelTimeMin,
			EstimatedInstoreTimeMin: plan.EstimatedInstoreTimeMin,
			EstimatedTotalTimeMin:   plan.EstimatedTotalTimeMin,
			SavingsVsWalmart:        plan.Savings["WALMART"],
			SavingsVsTarget:         plan.Savings["TARGET"],
			SavingsVsCostco:         plan.Savings["COSTCO"],
			Stores:                  visits,
		})
	}

	return &TripResponse{
		TripID: trip.ID,
		Origin: OriginRequest{
			Lat: trip.OriginLat,
			Lon: trip.OriginLon,
			Zip: trip.OriginZip,
		},
		Items:          items,
		Plans:          plans,
		DistanceSource: overallSource(real, fallback),
	}, nil
}

func storeResponse(s catalog.Store) StoreResponse {
	return StoreResponse{
		ID:      s.ID,
		Name:    s.Name,
		Chain:   s.Chain,
		Address: s.Address(),
		Lat:     s.Lat,
		Lon:     s.Lon,
	}
}

func lineTotal(unitPrice float64, quantity int) float64 {
	return math.Round(unitPrice*float64(quantity)*100) / 100
}

func overallSource(real, fallback int) string {
	switch {
	case real > 0 && fallback == 0:
		return string(distance.SourceReal)
	case real == 0:
		return string(distance.SourceFallback)
	default:
		return string(distance.SourceMixed)
	}
}
