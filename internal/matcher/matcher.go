package matcher

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/patricknguyendev/simplygrocery/internal/catalog"
)

// Score bands. A candidate's score is the maximum band it qualifies for;
// in-band bonuses reward tighter matches without letting a lower band
// overtake a higher one.
const (
	scoreExact       = 1000.0
	scoreSynonym     = 900.0
	scoreWholeWord   = 800.0
	scorePartialWord = 600.0
	scoreSubstring   = 400.0
	scoreSignificant = 200.0
	scoreCategory    = 100.0
)

// Result is the outcome for one list entry. A nil Product means the
// entry matched nothing and stays on the unmatched list.
type Result struct {
	Query   string
	Product *catalog.Product
	Score   float64
}

// Matcher resolves list entries against the product catalog.
type Matcher struct {
	products catalog.ProductCatalog
	prices   catalog.PriceStore
	logger   zerolog.Logger
}

// New builds a Matcher. The price store is only consulted to break
// score ties by cheapest cross-store price.
func New(products catalog.ProductCatalog, prices catalog.PriceStore, logger zerolog.Logger) *Matcher {
	return &Matcher{
		products: products,
		prices:   prices,
		logger:   logger.With().Str("component", "matcher").Logger(),
	}
}

// MatchItems resolves every query. The returned slice has exactly one
// Result per input query, in input order; no query is dropped or
// duplicated.
func (m *Matcher) MatchItems(ctx context.Context, queries []string) ([]Result, error) {
	products, err := m.products.AllProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading products: %w", err)
	}

	results := make([]Result, len(queries))
	ties := make([][]catalog.Product, len(queries))
	tieProducts := make(map[int64]bool)

	for i, query := range queries {
		results[i] = Result{Query: query}
		top, topScore := topCandidates(query, products)
		if topScore <= 0 {
			m.logger.Debug().Str("query", query).Msg("no match found")
			continue
		}
		results[i].Score = topScore
		if len(top) == 1 {
			p := top[0]
			results[i].Product = &p
			continue
		}
		ties[i] = top
		for _, p := range top {
			tieProducts[p.ID] = true
		}
	}

	if len(tieProducts) > 0 {
		ids := make([]int64, 0, len(tieProducts))
		for id := range tieProducts {
			ids = append(ids, id)
		}
		minPrices, err := m.prices.MinPrices(ctx, ids)
		if err != nil {
			// Tie-break degrades to product ID order.
			m.logger.Warn().Err(err).Msg("min price lookup failed, using id order for ties")
			minPrices = map[int64]float64{}
		}
		for i, top := range ties {
			if len(top) == 0 {
				continue
			}
			p := breakTie(top, minPrices)
			results[i].Product = &p
		}
	}

	return results, nil
}

// topCandidates scores every product against the query and returns all
// candidates sharing the maximum positive score.
func topCandidates(query string, products []catalog.Product) ([]catalog.Product, float64) {
	expansions := ExpandSynonyms(query)
	queryWords := Words(query)
	categories := CategoriesFor(query)

	var top []catalog.Product
	best := 0.0
	for _, p := range products {
		s := scoreProduct(expansions, queryWords, categories, p)
		if s <= 0 {
			continue
		}
		switch {
		case s > best:
			best = s
			top = top[:0]
			top = append(top, p)
		case s == best:
			top = append(top, p)
		}
	}
	sort.Slice(top, func(i, j int) bool { return top[i].ID < top[j].ID })
	return top, best
}

func scoreProduct(expansions []string, queryWords []string, categories []string, p catalog.Product) float64 {
	name := Normalize(p.Name)
	if name == "" {
		return 0
	}
	query := expansions[0]

	if name == query {
		return scoreExact
	}
	for _, syn := range expansions[1:] {
		if name == syn {
			return scoreSynonym
		}
	}

	best := 0.0
	nameWords := strings.Fields(name)
	nameSet := make(map[string]bool, len(nameWords))
	for _, w := range nameWords {
		nameSet[w] = true
	}

	if len(queryWords) > 0 {
		matched := 0
		for _, w := range queryWords {
			if nameSet[w] {
				matched++
			}
		}
		switch {
		case matched == len(queryWords):
			coverage := float64(len(queryWords)) / float64(len(nameWords))
			if coverage > 1 {
				coverage = 1
			}
			best = scoreWholeWord + coverage*100
		case matched > 0:
			ratio := float64(matched) / float64(len(queryWords))
			best = maxScore(best, scorePartialWord+ratio*100)
		}
	}

	if best < scoreSubstring && (strings.Contains(name, query) || strings.Contains(query, name)) {
		diff := len(name) - len(query)
		if diff < 0 {
			diff = -diff
		}
		penalty := float64(diff) * 4
		if penalty > 100 {
			penalty = 100
		}
		best = maxScore(best, scoreSubstring-penalty)
	}

	if best < scoreSignificant+100 {
		sig := significantWords(queryWords)
		if len(sig) > 0 {
			partial := 0
			for _, w := range sig {
				if strings.Contains(name, w) {
					partial++
				}
			}
			if partial > 0 {
				ratio := float64(partial) / float64(len(sig))
				best = maxScore(best, scoreSignificant+ratio*100)
			}
		}
	}

	if best == 0 {
		for _, c := range categories {
			if p.Category == c {
				best = scoreCategory
				break
			}
		}
	}

	return best
}

// breakTie picks the cheapest candidate by minimum in-stock price across
// stores. Candidates with no in-stock price anywhere sort last; ties
// after price fall back to lowest product ID. Callers pass candidates
// already sorted by ID, so the fallback is the first element.
func breakTie(candidates []catalog.Product, minPrices map[int64]float64) catalog.Product {
	best := candidates[0]
	bestPrice, bestOK := minPrices[best.ID]
	for _, p := range candidates[1:] {
		price, ok := minPrices[p.ID]
		if !ok {
			continue
		}
		if !bestOK || price < bestPrice {
			best, bestPrice, bestOK = p, price, true
		}
	}
	return best
}

func maxScore(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
