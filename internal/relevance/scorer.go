// Package relevance scores and ranks catalog items against one query.
package relevance

import (
	"sort"
	"strings"

	"github.com/storely-ai/discovery-engine/internal/nlp"
	"github.com/storely-ai/discovery-engine/internal/storage"
)

// DefaultLimit is the result cap when the caller passes no limit.
const DefaultLimit = 5

// Scoring weights. Scores only order results within one request;
// they carry no meaning across requests.
const (
	categoryWeight    = 5
	titleWeight       = 3
	descriptionWeight = 2
	priceWeight       = 1
)

type scoredProduct struct {
	product storage.Product
	score   int
}

// ScoreAndRank scores every catalog item against the query keywords and
// extracted entities, drops zero-score items, sorts by score descending
// and truncates to limit. The sort is stable: equal scores keep catalog
// iteration order. An empty result means the caller should fall back to
// a secondary query; it is never an error.
func ScoreAndRank(keywords []string, entities nlp.Entities, catalog []storage.Product, limit int) []storage.Product {
	if limit <= 0 {
		limit = DefaultLimit
	}

	scored := make([]scoredProduct, 0, len(catalog))
	for _, product := range catalog {
		score := Score(keywords, entities, product)
		if score > 0 {
			scored = append(scored, scoredProduct{product: product, score: score})
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})

	if len(scored) > limit {
		scored = scored[:limit]
	}

	ranked := make([]storage.Product, len(scored))
	for i, s := range scored {
		ranked[i] = s.product
	}
	return ranked
}

// Score computes the relevance of a single catalog item. Always >= 0.
func Score(keywords []string, entities nlp.Entities, product storage.Product) int {
	score := 0

	if entities.Category != nil && product.Category == *entities.Category {
		score += categoryWeight
	}

	title := strings.ToLower(product.Title)
	description := strings.ToLower(product.Description)
	for _, keyword := range distinct(keywords) {
		if strings.Contains(title, keyword) {
			score += titleWeight
		}
		if strings.Contains(description, keyword) {
			score += descriptionWeight
		}
	}

	if entities.PriceRange != nil && entities.PriceRange.Max != nil &&
		product.Price <= *entities.PriceRange.Max {
		score += priceWeight
	}

	return score
}

func distinct(keywords []string) []string {
	seen := make(map[string]struct{}, len(keywords))
	out := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
