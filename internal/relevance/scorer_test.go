package relevance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storely-ai/discovery-engine/internal/nlp"
	"github.com/storely-ai/discovery-engine/internal/storage"
)

func product(title, category, description string, price float64) storage.Product {
	return storage.Product{
		Title:       title,
		Category:    category,
		Description: description,
		Price:       price,
	}
}

func TestScore(t *testing.T) {
	fiction := "Fiction"
	maxPrice := 25.0

	tests := []struct {
		name     string
		keywords []string
		entities nlp.Entities
		product  storage.Product
		expected int
	}{
		{
			name:     "no signal scores zero",
			keywords: []string{"space"},
			product:  product("Cooking Basics", "Food", "Simple recipes", 30),
			expected: 0,
		},
		{
			name:     "category match",
			entities: nlp.Entities{Category: &fiction},
			product:  product("Dune", "Fiction", "", 30),
			expected: 5,
		},
		{
			name:     "title keyword",
			keywords: []string{"dune"},
			product:  product("Dune Messiah", "Fiction", "", 30),
			expected: 3,
		},
		{
			name:     "description keyword",
			keywords: []string{"desert"},
			product:  product("Dune", "Fiction", "A desert planet saga", 30),
			expected: 2,
		},
		{
			name:     "keyword in title and description counts both",
			keywords: []string{"dune"},
			product:  product("Dune", "Fiction", "The dune saga begins", 30),
			expected: 5,
		},
		{
			name:     "duplicate keywords count once",
			keywords: []string{"dune", "dune"},
			product:  product("Dune", "Fiction", "", 30),
			expected: 3,
		},
		{
			name:     "price under extracted max",
			entities: nlp.Entities{PriceRange: &nlp.PriceRange{Max: &maxPrice}},
			product:  product("Dune", "Fiction", "", 20),
			expected: 1,
		},
		{
			name:     "price over extracted max adds nothing",
			entities: nlp.Entities{PriceRange: &nlp.PriceRange{Max: &maxPrice}},
			product:  product("Dune", "Fiction", "", 26),
			expected: 0,
		},
		{
			name:     "all signals combine",
			keywords: []string{"dune"},
			entities: nlp.Entities{Category: &fiction, PriceRange: &nlp.PriceRange{Max: &maxPrice}},
			product:  product("Dune", "Fiction", "The dune saga", 20),
			expected: 11,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Score(tt.keywords, tt.entities, tt.product)
			assert.Equal(t, tt.expected, got)
			assert.GreaterOrEqual(t, got, 0)
		})
	}
}

func TestScoreAndRankDropsZeroScores(t *testing.T) {
	catalog := []storage.Product{
		product("Dune", "Fiction", "", 20),
		product("Cooking Basics", "Food", "", 30),
	}

	ranked := ScoreAndRank([]string{"dune"}, nlp.Entities{}, catalog, 5)
	require.Len(t, ranked, 1)
	assert.Equal(t, "Dune", ranked[0].Title)
}

func TestScoreAndRankStableTies(t *testing.T) {
	// Equal scores keep catalog iteration order.
	catalog := []storage.Product{
		product("Space Opera One", "Fiction", "", 20),
		product("Space Opera Two", "Fiction", "", 20),
		product("Space Opera Three", "Fiction", "", 20),
	}

	ranked := ScoreAndRank([]string{"space"}, nlp.Entities{}, catalog, 5)
	require.Len(t, ranked, 3)
	assert.Equal(t, "Space Opera One", ranked[0].Title)
	assert.Equal(t, "Space Opera Two", ranked[1].Title)
	assert.Equal(t, "Space Opera Three", ranked[2].Title)
}

func TestScoreAndRankOrdersByScoreDesc(t *testing.T) {
	fiction := "Fiction"
	catalog := []storage.Product{
		product("History of Rome", "History", "rome through the ages", 20),
		product("Rome", "Fiction", "a novel about rome", 20),
	}

	ranked := ScoreAndRank([]string{"rome"}, nlp.Entities{Category: &fiction}, catalog, 5)
	require.Len(t, ranked, 2)
	assert.Equal(t, "Rome", ranked[0].Title)
	assert.Equal(t, "History of Rome", ranked[1].Title)
}

func TestScoreAndRankTruncatesToLimit(t *testing.T) {
	var catalog []storage.Product
	for i := 0; i < 10; i++ {
		catalog = append(catalog, product("Space Chronicles", "Fiction", "", 20))
	}

	assert.Len(t, ScoreAndRank([]string{"space"}, nlp.Entities{}, catalog, 3), 3)

	// Zero limit falls back to the default.
	assert.Len(t, ScoreAndRank([]string{"space"}, nlp.Entities{}, catalog, 0), DefaultLimit)
}
