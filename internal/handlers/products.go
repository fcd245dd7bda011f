package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/patricknguyendev/simplygrocery/internal/catalog"
)

const defaultSearchLimit = 20

// ProductHandler serves product search.
type ProductHandler struct {
	products catalog.ProductCatalog
	logger   zerolog.Logger
}

// NewProductHandler creates the handler.
func NewProductHandler(products catalog.ProductCatalog) *ProductHandler {
	return &ProductHandler{
		products: products,
		logger:   log.With().Str("component", "product_handler").Logger(),
	}
}

// Search handles GET /api/products/search.
func (h *ProductHandler) Search(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "query parameter q is required"})
		return
	}

	limit := defaultSearchLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	products, err := h.products.SearchProducts(c.Request.Context(), query, limit)
	if err != nil {
		h.logger.Error().Err(err).Str("query", query).Msg("product search failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "product search failed"})
		return
	}

	out := make([]ProductRef, 0, len(products))
	for _, p := range products {
		out = append(out, ProductRef{ID: p.ID, Name: p.Name, Brand: p.Brand, Category: p.Category})
	}

	c.JSON(http.StatusOK, ProductSearchResponse{Products: out, Total: len(out)})
}
