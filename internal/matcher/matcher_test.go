package matcher

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patricknguyendev/simplygrocery/internal/catalog"
)

func testCatalog() *catalog.Memory {
	mem := catalog.NewMemory()
	mem.AddProduct(catalog.Product{ID: 1, Name: "Whole Milk", Category: "Dairy"})
	mem.AddProduct(catalog.Product{ID: 2, Name: "Marinara Sauce", Category: "Pasta"})
	mem.AddProduct(catalog.Product{ID: 3, Name: "Organic Whole Milk", Category: "Dairy"})
	mem.AddProduct(catalog.Product{ID: 4, Name: "Spaghetti", Category: "Pasta"})
	mem.AddProduct(catalog.Product{ID: 5, Name: "Cheddar Cheese", Category: "Dairy"})
	mem.AddProduct(catalog.Product{ID: 6, Name: "Sourdough Bread", Category: "Bread"})
	return mem
}

func newTestMatcher(mem *catalog.Memory) *Matcher {
	return New(mem, mem, zerolog.Nop())
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Whole Milk", "whole milk"},
		{"  Crème   Fraîche ", "creme fraiche"},
		{"Ben & Jerry's", "ben jerry s"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.in), "input %q", tt.in)
	}
}

func TestExpandSynonyms(t *testing.T) {
	got := ExpandSynonyms("Spaghetti Sauce")
	assert.Equal(t, "spaghetti sauce", got[0])
	assert.Contains(t, got, "marinara sauce")
	assert.Contains(t, got, "tomato sauce")

	// No synonym group triggered: only the query itself.
	assert.Len(t, ExpandSynonyms("bananas"), 1)
}

func TestMatchExactName(t *testing.T) {
	m := newTestMatcher(testCatalog())
	results, err := m.MatchItems(context.Background(), []string{"whole milk"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.NotNil(t, results[0].Product)
	assert.Equal(t, int64(1), results[0].Product.ID)
	assert.Equal(t, scoreExact, results[0].Score)
}

func TestMatchSynonym(t *testing.T) {
	m := newTestMatcher(testCatalog())
	results, err := m.MatchItems(context.Background(), []string{"spaghetti sauce"})
	require.NoError(t, err)
	require.NotNil(t, results[0].Product)
	assert.Equal(t, "Marinara Sauce", results[0].Product.Name)
	assert.Equal(t, scoreSynonym, results[0].Score)
}

func TestMatchWholeWordBeatsPartial(t *testing.T) {
	m := newTestMatcher(testCatalog())
	results, err := m.MatchItems(context.Background(), []string{"milk"})
	require.NoError(t, err)
	require.NotNil(t, results[0].Product)
	// "milk" is a whole word in both milk products; the shorter name has
	// better word coverage.
	assert.Equal(t, int64(1), results[0].Product.ID)
	assert.Greater(t, results[0].Score, scoreWholeWord)
}

func TestMatchCategoryFallback(t *testing.T) {
	mem := testCatalog()
	m := newTestMatcher(mem)
	// "yogurt" appears in no product name but is a Dairy keyword.
	results, err := m.MatchItems(context.Background(), []string{"greek yogurt"})
	require.NoError(t, err)
	require.NotNil(t, results[0].Product)
	assert.Equal(t, "Dairy", results[0].Product.Category)
	assert.Equal(t, scoreCategory, results[0].Score)
}

func TestMatchUnmatched(t *testing.T) {
	m := newTestMatcher(testCatalog())
	results, err := m.MatchItems(context.Background(), []string{"motor oil"})
	require.NoError(t, err)
	assert.Nil(t, results[0].Product)
	assert.Zero(t, results[0].Score)
}

func TestMatchPartition(t *testing.T) {
	m := newTestMatcher(testCatalog())
	queries := []string{"whole milk", "motor oil", "spaghetti", "xyzzy"}
	results, err := m.MatchItems(context.Background(), queries)
	require.NoError(t, err)
	require.Len(t, results, len(queries))

	matched, unmatched := 0, 0
	for i, r := range results {
		assert.Equal(t, queries[i], r.Query)
		if r.Product != nil {
			matched++
		} else {
			unmatched++
		}
	}
	assert.Equal(t, len(queries), matched+unmatched)
	assert.Equal(t, 2, matched)
}

func TestMatchTieBrokenByCheapestPrice(t *testing.T) {
	mem := catalog.NewMemory()
	// Two products with identical names tie at the exact score.
	mem.AddProduct(catalog.Product{ID: 10, Name: "Butter", Brand: "Alpine", Category: "Dairy"})
	mem.AddProduct(catalog.Product{ID: 11, Name: "Butter", Brand: "Meadow", Category: "Dairy"})
	mem.AddStore(catalog.Store{ID: 1, Name: "Store A"})
	mem.SetPrice(1, 10, 4.99, true)
	mem.SetPrice(1, 11, 3.49, true)

	m := newTestMatcher(mem)
	results, err := m.MatchItems(context.Background(), []string{"butter"})
	require.NoError(t, err)
	require.NotNil(t, results[0].Product)
	assert.Equal(t, int64(11), results[0].Product.ID)
}

func TestMatchTieWithoutPricesUsesLowestID(t *testing.T) {
	mem := catalog.NewMemory()
	mem.AddProduct(catalog.Product{ID: 21, Name: "Butter", Category: "Dairy"})
	mem.AddProduct(catalog.Product{ID: 20, Name: "Butter", Category: "Dairy"})

	m := newTestMatcher(mem)
	results, err := m.MatchItems(context.Background(), []string{"butter"})
	require.NoError(t, err)
	require.NotNil(t, results[0].Product)
	assert.Equal(t, int64(20), results[0].Product.ID)
}
