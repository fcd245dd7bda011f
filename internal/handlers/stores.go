package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/patricknguyendev/simplygrocery/internal/catalog"
)

// StoreHandler serves the store directory.
type StoreHandler struct {
	stores catalog.StoreDirectory
	logger zerolog.Logger
}

// NewStoreHandler creates the handler.
func NewStoreHandler(stores catalog.StoreDirectory) *StoreHandler {
	return &StoreHandler{
		stores: stores,
		logger: log.With().Str("component", "store_handler").Logger(),
	}
}

// List handles GET /api/stores. An optional chain query parameter
// filters case-insensitively.
func (h *StoreHandler) List(c *gin.Context) {
	stores, err := h.stores.AllStores(c.Request.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("store listing failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to list stores"})
		return
	}

	chain := c.Query("chain")
	out := make([]StoreResponse, 0, len(stores))
	for _, s := range stores {
		if chain != "" && !strings.EqualFold(s.Chain, chain) {
			continue
		}
		out = append(out, storeResponse(s))
	}

	c.JSON(http.StatusOK, StoreListResponse{Stores: out, Total: len(out)})
}
