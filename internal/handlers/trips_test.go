package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patricknguyendev/simplygrocery/internal/catalog"
	"github.com/patricknguyendev/simplygrocery/internal/distance"
	"github.com/patricknguyendev/simplygrocery/internal/geo"
	"github.com/patricknguyendev/simplygrocery/internal/matcher"
	"github.com/patricknguyendev/simplygrocery/internal/optimizer"
)

type fallbackProvider struct{}

func (fallbackProvider) Matrix(_ context.Context, origins, destinations []geo.Point, _ distance.Options) []distance.Result {
	out := make([]distance.Result, 0, len(origins)*len(destinations))
	for _, o := range origins {
		for _, d := range destinations {
			out = append(out, distance.Fallback(o, d, distance.StatusError, "test"))
		}
	}
	return out
}

func (fallbackProvider) Route(_ context.Context, origin geo.Point, stops []geo.Point, _ distance.Options) []distance.Result {
	out := make([]distance.Result, 0, len(stops))
	prev := origin
	for _, s := range stops {
		out = append(out, distance.Fallback(prev, s, distance.StatusError, "test"))
		prev = s
	}
	return out
}

func setupRouter(t *testing.T) (*gin.Engine, *catalog.Memory) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mem := catalog.NewMemory()
	mem.AddStore(catalog.Store{ID: 1, Name: "Walmart Supercenter", Chain: "WALMART", Lat: 36.10, Lon: -115.16, City: "Las Vegas"})
	mem.AddStore(catalog.Store{ID: 2, Name: "Target", Chain: "TARGET", Lat: 36.11, Lon: -115.14, City: "Las Vegas"})

	mem.AddProduct(catalog.Product{ID: 10, Name: "Whole Milk", Brand: "DairyLand", Category: "Dairy"})
	mem.AddProduct(catalog.Product{ID: 20, Name: "Large Eggs", Category: "Dairy"})

	mem.SetPrice(1, 10, 3.49, true)
	mem.SetPrice(2, 10, 3.29, true)
	mem.SetPrice(1, 20, 2.19, true)
	mem.SetPrice(2, 20, 2.49, true)

	productMatcher := matcher.New(mem, mem, zerolog.Nop())
	opt := optimizer.New(mem, mem, mem, productMatcher, fallbackProvider{}, nil, optimizer.Defaults())

	router := gin.New()
	tripHandler := NewTripHandler(opt, mem, mem, mem)
	router.POST("/api/trips", tripHandler.Create)
	router.GET("/api/trips/:id", tripHandler.Get)
	router.GET("/api/stores", NewStoreHandler(mem).List)
	router.GET("/api/products/search", NewProductHandler(mem).Search)
	return router, mem
}

func postTrip(t *testing.T, router *gin.Engine, body any) *httptest.ResponseRecorder {
	t.Helper()
	jsonBody, err := json.Marshal(body)
	require.NoError(t, err)

	req, err := http.NewRequest("POST", "/api/trips", bytes.NewBuffer(jsonBody))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCreateTripHappyPath(t *testing.T) {
	router, _ := setupRouter(t)

	w := postTrip(t, router, TripRequest{
		Origin: OriginRequest{Lat: 36.10, Lon: -115.15},
		Items: []TripItemRequest{
			{RawQuery: "milk", Quantity: 2},
			{RawQuery: "eggs"},
		},
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	var resp TripResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.NotEmpty(t, resp.TripID)
	require.Len(t, resp.Items, 2)
	for _, item := range resp.Items {
		assert.NotNil(t, item.MatchedProduct)
	}
	// Quantity defaults to 1 when omitted.
	assert.Equal(t, 1, resp.Items[1].Quantity)

	require.Len(t, resp.Plans, 3)
	for _, plan := range resp.Plans {
		assert.NotEmpty(t, plan.ID)
		assert.Greater(t, plan.TotalPrice, 0.0)
		require.NotEmpty(t, plan.Stores)
		for _, visit := range plan.Stores {
			assert.NotEmpty(t, visit.Store.Name)
			assert.NotEmpty(t, visit.Items)
		}
		// Both chains stock both items, so those baselines resolve.
		assert.NotNil(t, plan.SavingsVsWalmart)
		assert.NotNil(t, plan.SavingsVsTarget)
		assert.Nil(t, plan.SavingsVsCostco)
	}
	assert.Equal(t, "fallback", resp.DistanceSource)
}

func TestCreateTripInvalidBody(t *testing.T) {
	router, _ := setupRouter(t)

	req, err := http.NewRequest("POST", "/api/trips", bytes.NewBufferString("{not json"))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateTripValidationFailure(t *testing.T) {
	router, _ := setupRouter(t)

	w := postTrip(t, router, TripRequest{
		Origin: OriginRequest{Lat: 36.10, Lon: -115.15},
		Items:  []TripItemRequest{{RawQuery: "milk", Quantity: -1}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp.Error, "quantity")
}

func TestCreateTripNoStoresNearby(t *testing.T) {
	router, _ := setupRouter(t)

	w := postTrip(t, router, TripRequest{
		Origin: OriginRequest{Lat: 40.71, Lon: -74.00},
		Items:  []TripItemRequest{{RawQuery: "milk"}},
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateTripNothingMatches(t *testing.T) {
	router, _ := setupRouter(t)

	w := postTrip(t, router, TripRequest{
		Origin: OriginRequest{Lat: 36.10, Lon: -115.15},
		Items:  []TripItemRequest{{RawQuery: "unobtainium ingots"}},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestGetTripRoundTrip(t *testing.T) {
	router, _ := setupRouter(t)

	w := postTrip(t, router, TripRequest{
		Origin: OriginRequest{Lat: 36.10, Lon: -115.15},
		Items:  []TripItemRequest{{RawQuery: "milk"}, {RawQuery: "eggs"}},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var created TripResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	req, err := http.NewRequest("GET", "/api/trips/"+created.TripID, nil)
	require.NoError(t, err)
	get := httptest.NewRecorder()
	router.ServeHTTP(get, req)
	require.Equal(t, http.StatusOK, get.Code)

	var fetched TripResponse
	require.NoError(t, json.Unmarshal(get.Body.Bytes(), &fetched))

	assert.Equal(t, created.TripID, fetched.TripID)
	assert.Len(t, fetched.Items, len(created.Items))
	assert.Len(t, fetched.Plans, len(created.Plans))
	for i, plan := range fetched.Plans {
		assert.Equal(t, created.Plans[i].TotalPrice, plan.TotalPrice)
		assert.Equal(t, created.Plans[i].Strategy, plan.Strategy)
		assert.Len(t, plan.Stores, len(created.Plans[i].Stores))
	}
}

func TestGetTripNotFound(t *testing.T) {
	router, _ := setupRouter(t)

	req, err := http.NewRequest("GET", "/api/trips/trip_doesnotexist", nil)
	require.NoError(t, err)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListStores(t *testing.T) {
	router, _ := setupRouter(t)

	req, err := http.NewRequest("GET", "/api/stores", nil)
	require.NoError(t, err)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp StoreListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Total)

	// Chain filter is case-insensitive.
	req, err = http.NewRequest("GET", "/api/stores?chain=walmart", nil)
	require.NoError(t, err)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Total)
	assert.Equal(t, "WALMART", resp.Stores[0].Chain)
}

func TestSearchProducts(t *testing.T) {
	router, _ := setupRouter(t)

	req, err := http.NewRequest("GET", "/api/products/search?q=milk", nil)
	require.NoError(t, err)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp ProductSearchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Total)
	assert.Equal(t, "Whole Milk", resp.Products[0].Name)
}

func TestSearchProductsRequiresQuery(t *testing.T) {
	router, _ := setupRouter(t)

	req, err := http.NewRequest("GET", "/api/products/search", nil)
	require.NoError(t, err)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLineTotalRoundsToCents(t *testing.T) {
	// Same rounding as plan totals: math.Round on cents.
	assert.Equal(t, 9.87, lineTotal(3.29, 3))
	assert.Equal(t, 6.58, lineTotal(3.29, 2))
	assert.Equal(t, 0.30, lineTotal(0.10, 3))
	assert.Equal(t, 0.0, lineTotal(0, 5))
}
