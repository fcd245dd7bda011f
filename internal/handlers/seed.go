package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/patricknguyendev/simplygrocery/internal/ingest"
)

// maxSeedUpload bounds the accepted workbook size.
const maxSeedUpload = 32 << 20 // 32 MiB

// SeedResponse reports what a catalog seed did.
type SeedResponse struct {
	Stores      int `json:"stores"`
	Products    int `json:"products"`
	Prices      int `json:"prices"`
	SkippedRows int `json:"skippedRows"`
}

// SeedHandler loads catalog workbooks on the admin surface.
type SeedHandler struct {
	loader *ingest.Loader
	logger zerolog.Logger
}

// NewSeedHandler creates the handler.
func NewSeedHandler(loader *ingest.Loader) *SeedHandler {
	return &SeedHandler{
		loader: loader,
		logger: log.With().Str("component", "seed_handler").Logger(),
	}
}

// Seed handles POST /internal/admin/seed. The body is the raw XLSX
// workbook.
func (h *SeedHandler) Seed(c *gin.Context) {
	content, err := io.ReadAll(io.LimitReader(c.Request.Body, maxSeedUpload+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "failed to read request body"})
		return
	}
	if len(content) == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "workbook body is required"})
		return
	}
	if len(content) > maxSeedUpload {
		c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Error: "workbook exceeds size limit"})
		return
	}

	summary, err := h.loader.LoadWorkbook(c.Request.Context(), content)
	if err != nil {
		h.logger.Error().Err(err).Msg("catalog seed failed")
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, SeedResponse{
		Stores:      summary.Stores,
		Products:    summary.Products,
		Prices:      summary.Prices,
		SkippedRows: summary.SkippedRows,
	})
}
