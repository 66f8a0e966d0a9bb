package estimate

import "strings"

// CategorySet is the configured set of mutually exclusive primary
// categories. A room may hold at most one product from any of them.
type CategorySet struct {
	ids map[string]struct{}
}

// NewCategorySet builds a set from category ids. Matching is case-insensitive.
func NewCategorySet(ids ...string) CategorySet {
	set := CategorySet{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		id = normalizeCategory(id)
		if id != "" {
			set.ids[id] = struct{}{}
		}
	}
	return set
}

// Contains reports whether id is a primary category.
func (s CategorySet) Contains(id string) bool {
	_, ok := s.ids[normalizeCategory(id)]
	return ok
}

// IsPrimary reports whether any of the categories is primary.
func (s CategorySet) IsPrimary(categoryIDs []string) bool {
	for _, id := range categoryIDs {
		if s.Contains(id) {
			return true
		}
	}
	return false
}

// Len returns the number of primary categories.
func (s CategorySet) Len() int {
	return len(s.ids)
}

// LineItem builds the room entry for a concrete product.
func (s CategorySet) LineItem(p Product) ProductLineItem {
	return ProductLineItem{
		ID:                p.ID,
		Name:              p.Name,
		CategoryIDs:       append([]string(nil), p.CategoryIDs...),
		IsPrimaryCategory: s.IsPrimary(p.CategoryIDs),
		MinPrice:          p.MinPrice,
		MaxPrice:          p.MaxPrice,
	}
}

func normalizeCategory(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}
