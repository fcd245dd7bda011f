package matcher

import "strings"

// synonymGroups are bidirectional: a query containing any member expands
// to every other member of the group. Kept small on purpose; this covers
// the list entries users actually type differently from catalog names.
var synonymGroups = [][]string{
	{"spaghetti sauce", "marinara sauce", "pasta sauce", "tomato sauce"},
	{"soda", "pop", "soft drink"},
	{"ground beef", "hamburger meat", "minced beef"},
	{"scallions", "green onions", "spring onions"},
	{"cilantro", "coriander"},
	{"garbanzo beans", "chickpeas"},
	{"confectioners sugar", "powdered sugar", "icing sugar"},
	{"kitchen roll", "paper towels"},
	{"oatmeal", "rolled oats", "oats"},
}

// categoryKeywords maps list words to catalog categories for the
// lowest-priority fallback. A query mentioning any keyword can fall
// back to any product in that category.
var categoryKeywords = map[string][]string{
	"Dairy":    {"milk", "cheese", "yogurt", "butter", "cream", "egg"},
	"Produce":  {"apple", "banana", "lettuce", "tomato", "onion", "potato", "garlic", "lemon", "avocado", "spinach"},
	"Meat":     {"beef", "chicken", "pork", "bacon", "sausage"},
	"Seafood":  {"fish", "salmon", "shrimp", "tuna", "tilapia"},
	"Bread":    {"bread", "loaf"},
	"Pasta":    {"pasta", "spaghetti", "penne", "noodle"},
	"Beverage": {"juice", "coffee", "water", "soda", "cola"},
	"Frozen":   {"frozen", "ice cream", "pizza", "waffle"},
	"Snacks":   {"chips", "nuts", "granola", "almonds"},
}

// ExpandSynonyms returns the normalized query plus every synonym whose
// group is triggered by a substring of the query. The query itself is
// always the first element.
func ExpandSynonyms(query string) []string {
	q := Normalize(query)
	out := []string{q}
	seen := map[string]bool{q: true}
	for _, group := range synonymGroups {
		triggered := false
		for _, member := range group {
			if strings.Contains(q, member) {
				triggered = true
				break
			}
		}
		if !triggered {
			continue
		}
		for _, member := range group {
			if !seen[member] {
				seen[member] = true
				out = append(out, member)
			}
		}
	}
	return out
}

// CategoriesFor returns the categories whose keyword list intersects the
// query, in deterministic order.
func CategoriesFor(query string) []string {
	q := Normalize(query)
	var out []string
	for _, category := range []string{"Dairy", "Produce", "Meat", "Seafood", "Bread", "Pasta", "Beverage", "Frozen", "Snacks"} {
		for _, kw := range categoryKeywords[category] {
			if strings.Contains(q, kw) {
				out = append(out, category)
				break
			}
		}
	}
	return out
}
