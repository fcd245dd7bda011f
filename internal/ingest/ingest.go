// Package ingest loads reference catalog data (stores, products,
// prices) from an XLSX workbook. It replaces an admin UI for
// operations: seed a database from a spreadsheet and go.
package ingest

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"

	"github.com/patricknguyendev/simplygrocery/internal/catalog"
)

// Sheet names the loader expects. Column order within a sheet is fixed
// and documented per parse function; the first row is a header.
const (
	SheetStores   = "Stores"
	SheetProducts = "Products"
	SheetPrices   = "Prices"
)

// Writer receives parsed catalog rows. Both the in-memory catalog and
// the Postgres catalog satisfy it.
type Writer interface {
	UpsertStore(ctx context.Context, s catalog.Store) error
	UpsertProduct(ctx context.Context, p catalog.Product) error
	UpsertPrice(ctx context.Context, storeID, productID int64, price float64, inStock bool) error
}

// Summary reports what one load did.
type Summary struct {
	Stores      int
	Products    int
	Prices      int
	SkippedRows int
}

// Loader parses seed workbooks into a Writer.
type Loader struct {
	writer Writer
	logger zerolog.Logger
}

// NewLoader creates a loader writing to the given catalog.
func NewLoader(writer Writer) *Loader {
	return &Loader{
		writer: writer,
		logger: log.With().Str("component", "ingest").Logger(),
	}
}

// LoadWorkbook parses the workbook bytes and writes every row. Rows
// that cannot be parsed are skipped and counted, not fatal; a missing
// sheet is fatal because the workbook is the wrong shape.
func (l *Loader) LoadWorkbook(ctx context.Context, content []byte) (*Summary, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	summary := &Summary{}
	if err := l.loadStores(ctx, f, summary); err != nil {
		return nil, err
	}
	if err := l.loadProducts(ctx, f, summary); err != nil {
		return nil, err
	}
	if err := l.loadPrices(ctx, f, summary); err != nil {
		return nil, err
	}

	l.logger.Info().
		Int("stores", summary.Stores).
		Int("products", summary.Products).
		Int("prices", summary.Prices).
		Int("skipped", summary.SkippedRows).
		Msg("catalog workbook loaded")
	return summary, nil
}

// loadStores reads the Stores sheet:
// ID | Name | Chain | Latitude | Longitude | Address | City | State | PostalCode
func (l *Loader) loadStores(ctx context.Context, f *excelize.File, summary *Summary) error {
	rows, err := sheetRows(f, SheetStores)
	if err != nil {
		return err
	}
	for i, row := range rows {
		if i == 0 || emptyRow(row) {
			continue
		}
		id, err1 := parseInt(cell(row, 0))
		lat, err2 := parseFloat(cell(row, 3))
		lon, err3 := parseFloat(cell(row, 4))
		name := cell(row, 1)
		if err1 != nil || err2 != nil || err3 != nil || name == "" {
			l.logger.Warn().Int("row", i+1).Str("sheet", SheetStores).Msg("skipping unparseable row")
			summary.SkippedRows++
			continue
		}
		store := catalog.Store{
			ID:           id,
			Name:         name,
			Chain:        strings.ToUpper(cell(row, 2)),
			Lat:          lat,
			Lon:          lon,
			AddressLine1: cell(row, 5),
			City:         cell(row, 6),
			State:        cell(row, 7),
			PostalCode:   cell(row, 8),
		}
		if err := l.writer.UpsertStore(ctx, store); err != nil {
			return fmt.Errorf("writing store %d: %w", id, err)
		}
		summary.Stores++
	}
	return nil
}

// loadProducts reads the Products sheet:
// ID | Name | Brand | Category | SizeValue | SizeUnit | UPC
func (l *Loader) loadProducts(ctx context.Context, f *excelize.File, summary *Summary) error {
	rows, err := sheetRows(f, SheetProducts)
	if err != nil {
		return err
	}
	for i, row := range rows {
		if i == 0 || emptyRow(row) {
			continue
		}
		id, err1 := parseInt(cell(row, 0))
		name := cell(row, 1)
		if err1 != nil || name == "" {
			l.logger.Warn().Int("row", i+1).Str("sheet", SheetProducts).Msg("skipping unparseable row")
			summary.SkippedRows++
			continue
		}
		sizeValue, _ := parseFloat(cell(row, 4))
		product := catalog.Product{
			ID:        id,
			Name:      name,
			Brand:     cell(row, 2),
			Category:  cell(row, 3),
			SizeValue: sizeValue,
			SizeUnit:  cell(row, 5),
			UPC:       cell(row, 6),
		}
		if err := l.writer.UpsertProduct(ctx, product); err != nil {
			return fmt.Errorf("writing product %d: %w", id, err)
		}
		summary.Products++
	}
	return nil
}

// loadPrices reads the Prices sheet:
// StoreID | ProductID | Price | InStock
func (l *Loader) loadPrices(ctx context.Context, f *excelize.File, summary *Summary) error {
	rows, err := sheetRows(f, SheetPrices)
	if err != nil {
		return err
	}
	for i, row := range rows {
		if i == 0 || emptyRow(row) {
			continue
		}
		storeID, err1 := parseInt(cell(row, 0))
		productID, err2 := parseInt(cell(row, 1))
		price, err3 := parseFloat(cell(row, 2))
		if err1 != nil || err2 != nil || err3 != nil || price < 0 {
			l.logger.Warn().Int("row", i+1).Str("sheet", SheetPrices).Msg("skipping unparseable row")
			summary.SkippedRows++
			continue
		}
		inStock := parseBool(cell(row, 3))
		if err := l.writer.UpsertPrice(ctx, storeID, productID, price, inStock); err != nil {
			return fmt.Errorf("writing price (%d, %d): %w", storeID, productID, err)
		}
		summary.Prices++
	}
	return nil
}

func sheetRows(f *excelize.File, sheet string) ([][]string, error) {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", sheet, err)
	}
	return rows, nil
}

func cell(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func emptyRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func parseInt(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
}

// parseBool treats empty as true: a priced row without a stock flag is
// assumed sellable.
func parseBool(s string) bool {
	switch strings.ToLower(s) {
	case "", "true", "yes", "y", "1":
		return true
	default:
		return false
	}
}
