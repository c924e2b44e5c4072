package profile

import (
	"github.com/storely-ai/discovery-engine/internal/nlp"
)

// DefaultMaxLastSearches caps the recent-search list when the caller
// passes no limit.
const DefaultMaxLastSearches = 10

// maxLearnedKeywords is how many normalized tokens one message may
// contribute to the search history.
const maxLearnedKeywords = 3

// Learn applies one chat turn to a profile and returns the updated copy
// plus a flag reporting whether anything changed. The input profile is
// never mutated.
//
// Rules: an extracted category is appended to PreferredCategories if
// absent; extracted budget bounds are recorded first-write-wins; up to
// the first three normalized message tokens are prepended to
// LastSearches if absent, most recent first, capped at historyLimit
// (ten when historyLimit is zero or negative).
func Learn(p Profile, message string, entities nlp.Entities, historyLimit int) (Profile, bool) {
	if historyLimit <= 0 {
		historyLimit = DefaultMaxLastSearches
	}
	updated := p.Clone()
	changed := false

	if entities.Category != nil && !contains(updated.PreferredCategories, *entities.Category) {
		updated.PreferredCategories = append(updated.PreferredCategories, *entities.Category)
		changed = true
	}

	if entities.PriceRange != nil {
		if entities.PriceRange.Max != nil && updated.BudgetRange.Max == nil {
			max := *entities.PriceRange.Max
			updated.BudgetRange.Max = &max
			changed = true
		}
		if entities.PriceRange.Min != nil && updated.BudgetRange.Min == nil {
			min := *entities.PriceRange.Min
			updated.BudgetRange.Min = &min
			changed = true
		}
	}

	keywords := nlp.Normalize(message)
	if len(keywords) > maxLearnedKeywords {
		keywords = keywords[:maxLearnedKeywords]
	}
	for _, keyword := range keywords {
		if contains(updated.LastSearches, keyword) {
			continue
		}
		updated.LastSearches = append([]string{keyword}, updated.LastSearches...)
		if len(updated.LastSearches) > historyLimit {
			updated.LastSearches = updated.LastSearches[:historyLimit]
		}
		changed = true
	}

	return updated, changed
}

func contains(list []string, value string) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}
