package domain

import "strings"

// ProductDescriptor describes a store product as fetched from the platform
// catalog. Immutable once fetched.
type ProductDescriptor struct {
	ID     string
	Period Period
	Price  string
	Locale string
}

// Catalog maps store product identifiers to subscription periods and
// identifies the consumable product family that is routed elsewhere.
type Catalog struct {
	periods     map[string]Period
	consumables map[string]struct{}
}

// NewCatalog creates a catalog from a product-id table and a consumable-id list.
func NewCatalog(periods map[string]Period, consumables []string) *Catalog {
	p := make(map[string]Period, len(periods))
	for id, period := range periods {
		p[id] = period
	}
	c := make(map[string]struct{}, len(consumables))
	for _, id := range consumables {
		c[id] = struct{}{}
	}
	return &Catalog{periods: p, consumables: c}
}

// DefaultProductTable is the shipped subscription product table.
func DefaultProductTable() map[string]Period {
	return map[string]Period{
		"sub.monthly":    PeriodMonthly,
		"sub.quarterly":  PeriodQuarterly,
		"sub.halfyearly": PeriodHalfYearly,
		"sub.yearly":     PeriodYearly,
	}
}

// Classify resolves a product id to its subscription period. Exact table
// matches win; otherwise a recognized period substring in the id is used as a
// correction for id-scheme drift. Unrecognized ids classify as PeriodNone.
// Classify never panics.
func (c *Catalog) Classify(productID string) Period {
	if c != nil {
		if period, ok := c.periods[productID]; ok {
			return period
		}
	}
	return inferPeriod(productID)
}

// IsConsumable reports whether the product id belongs to the consumable
// family (import credits), which this engine never processes.
func (c *Catalog) IsConsumable(productID string) bool {
	if c != nil {
		if _, ok := c.consumables[productID]; ok {
			return true
		}
	}
	id := strings.ToLower(productID)
	return strings.Contains(id, "credit")
}

// SubscriptionIDs returns the configured subscription product ids.
func (c *Catalog) SubscriptionIDs() []string {
	if c == nil {
		return nil
	}
	ids := make([]string, 0, len(c.periods))
	for id := range c.periods {
		ids = append(ids, id)
	}
	return ids
}

// inferPeriod guesses a period from substrings of the id. Longer period names
// are checked first so "halfyear" does not classify as yearly.
func inferPeriod(productID string) Period {
	id := strings.ToLower(productID)
	switch {
	case strings.Contains(id, "half") || strings.Contains(id, "6month"):
		return PeriodHalfYearly
	case strings.Contains(id, "quarter") || strings.Contains(id, "3month"):
		return PeriodQuarterly
	case strings.Contains(id, "year") || strings.Contains(id, "annual"):
		return PeriodYearly
	case strings.Contains(id, "month"):
		return PeriodMonthly
	default:
		return PeriodNone
	}
}
