// Package classify categorizes batches of emails with a generative
// model via Amazon Bedrock.
package classify

import "strings"

// Category is one of the fixed coarse email categories.
type Category string

// The closed category set. Every classification result is coerced
// into this set before leaving the package.
const (
	CategoryPromotions Category = "Promotions"
	CategorySocial     Category = "Social"
	CategoryUpdates    Category = "Updates"
	CategoryForums     Category = "Forums"
	CategoryPurchases  Category = "Purchases"
	CategoryTravel     Category = "Travel"
	CategoryOther      Category = "Other"
)

// Categories lists the closed set in prompt order.
var Categories = []Category{
	CategoryPromotions,
	CategorySocial,
	CategoryUpdates,
	CategoryForums,
	CategoryPurchases,
	CategoryTravel,
	CategoryOther,
}

// categoryStems maps a normalized label prefix to its category. Order
// matters only for readability; stems are mutually exclusive.
var categoryStems = []struct {
	stem     string
	category Category
}{
	{"prom", CategoryPromotions},
	{"soci", CategorySocial},
	{"updat", CategoryUpdates},
	{"foru", CategoryForums},
	{"purc", CategoryPurchases},
	{"trav", CategoryTravel},
}

// SanitizeCategory coerces a free-form model label into the closed
// set. The label is trimmed, lowercased, and matched by prefix against
// the known stems; anything unmatched becomes Other.
func SanitizeCategory(label string) Category {
	normalized := strings.ToLower(strings.TrimSpace(label))
	for _, s := range categoryStems {
		if strings.HasPrefix(normalized, s.stem) {
			return s.category
		}
	}
	return CategoryOther
}
