package models

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// monetaryKeywords mark workings keys whose numeric values are amounts of money.
var monetaryKeywords = []string{"cost", "value", "revenue", "profit", "income", "expense"}

// IsMonetaryKey reports whether key names a monetary quantity.
func IsMonetaryKey(key string) bool {
	lower := strings.ToLower(key)
	for _, keyword := range monetaryKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

// Label turns a snake_case field name into a display label, e.g.
// "ending_inventory_cost" becomes "Ending Inventory Cost". Letters other than
// the first of each word keep their case.
func Label(key string) string {
	spaced := strings.ReplaceAll(key, "_", " ")
	// Casers carry state, so one is built per call.
	return cases.Title(language.Und, cases.NoLower).String(spaced)
}
