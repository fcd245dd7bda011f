package ingest

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/patricknguyendev/simplygrocery/internal/catalog"
)

func buildWorkbook(t *testing.T, sheets map[string][][]string) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for name, rows := range sheets {
		_, err := f.NewSheet(name)
		require.NoError(t, err)
		for i, row := range rows {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetSheetRow(name, cell, &row))
		}
	}

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return buf.Bytes()
}

func validSheets() map[string][][]string {
	return map[string][][]string{
		SheetStores: {
			{"ID", "Name", "Chain", "Latitude", "Longitude", "Address", "City", "State", "PostalCode"},
			{"1", "Walmart Supercenter", "walmart", "36.10", "-115.16", "100 Main St", "Las Vegas", "NV", "89101"},
			{"2", "Target", "TARGET", "36.11", "-115.14", "", "Las Vegas", "NV", ""},
		},
		SheetProducts: {
			{"ID", "Name", "Brand", "Category", "SizeValue", "SizeUnit", "UPC"},
			{"10", "Whole Milk", "DairyLand", "Dairy", "1", "gal", "0001111041700"},
			{"20", "Large Eggs", "", "Dairy", "12", "ct", ""},
		},
		SheetPrices: {
			{"StoreID", "ProductID", "Price", "InStock"},
			{"1", "10", "3.49", "true"},
			{"1", "20", "2.19", ""},
			{"2", "10", "3.29", "false"},
		},
	}
}

func TestLoadWorkbook(t *testing.T) {
	mem := catalog.NewMemory()
	loader := NewLoader(mem)

	summary, err := loader.LoadWorkbook(context.Background(), buildWorkbook(t, validSheets()))
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Stores)
	assert.Equal(t, 2, summary.Products)
	assert.Equal(t, 3, summary.Prices)
	assert.Equal(t, 0, summary.SkippedRows)

	stores, err := mem.AllStores(context.Background())
	require.NoError(t, err)
	require.Len(t, stores, 2)
	assert.Equal(t, "WALMART", stores[0].Chain, "chain names are normalized to upper case")
	assert.Equal(t, "100 Main St", stores[0].AddressLine1)

	// An empty InStock cell means sellable; an explicit false does not.
	prices, err := mem.Prices(context.Background(), []int64{1, 2}, []int64{10, 20})
	require.NoError(t, err)
	_, ok := prices.Available(1, 20)
	assert.True(t, ok)
	_, ok = prices.Available(2, 10)
	assert.False(t, ok)
}

func TestLoadWorkbookSkipsBadRows(t *testing.T) {
	sheets := validSheets()
	sheets[SheetStores] = append(sheets[SheetStores],
		[]string{"not-a-number", "Broken Store", "KROGER", "36.0", "-115.0"},
		[]string{"3", "", "KROGER", "36.0", "-115.0"},
	)
	sheets[SheetPrices] = append(sheets[SheetPrices],
		[]string{"1", "10", "-4.00", "true"},
	)

	mem := catalog.NewMemory()
	summary, err := NewLoader(mem).LoadWorkbook(context.Background(), buildWorkbook(t, sheets))
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Stores)
	assert.Equal(t, 3, summary.SkippedRows)
}

func TestLoadWorkbookMissingSheetFatal(t *testing.T) {
	sheets := validSheets()
	delete(sheets, SheetPrices)

	_, err := NewLoader(catalog.NewMemory()).LoadWorkbook(context.Background(), buildWorkbook(t, sheets))
	require.Error(t, err)
	assert.Contains(t, err.Error(), SheetPrices)
}

func TestLoadWorkbookGarbageInput(t *testing.T) {
	_, err := NewLoader(catalog.NewMemory()).LoadWorkbook(context.Background(), []byte("not an xlsx file"))
	assert.Error(t, err)
}
