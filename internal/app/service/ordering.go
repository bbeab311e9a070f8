package service

import (
	"sort"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// sortCanonical orders items by display_order, breaking ties with a
// locale-aware name comparison. The sort is stable, so equal names keep the
// repository order (id ascending).
func sortCanonical[T any](items []T, tag language.Tag, order func(T) int, name func(T) string) {
	// a Collator is not safe for concurrent use
	c := collate.New(tag)
	sort.SliceStable(items, func(i, j int) bool {
		oi, oj := order(items[i]), order(items[j])
		if oi != oj {
			return oi < oj
		}
		return c.CompareString(name(items[i]), name(items[j])) < 0
	})
}

func sortSections(sections []model.Section, tag language.Tag) {
	sortCanonical(sections, tag,
		func(s model.Section) int { return s.DisplayOrder },
		func(s model.Section) string { return s.Name })
}

func sortCategories(categories []model.Category, tag language.Tag) {
	sortCanonical(categories, tag,
		func(c model.Category) int { return c.DisplayOrder },
		func(c model.Category) string { return c.Name })
}
