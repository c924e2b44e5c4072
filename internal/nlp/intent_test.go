package nlp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyIntent(t *testing.T) {
	tests := []struct {
		name     string
		message  string
		expected Intent
	}{
		{
			name:     "greeting",
			message:  "hello",
			expected: IntentGreeting,
		},
		{
			name:     "greeting with time of day",
			message:  "good morning",
			expected: IntentGreeting,
		},
		{
			name:     "product search",
			message:  "find book about space travel",
			expected: IntentProductSearch,
		},
		{
			name:     "category search",
			message:  "what genre do you carry",
			expected: IntentCategorySearch,
		},
		{
			name:     "recommendation",
			message:  "recommend a good mystery",
			expected: IntentRecommendation,
		},
		{
			name:     "checkout",
			message:  "proceed to checkout",
			expected: IntentCheckout,
		},
		{
			name:     "author search",
			message:  "who wrote Dune",
			expected: IntentAuthorSearch,
		},
		{
			name:     "thanks",
			message:  "thanks a lot",
			expected: IntentThanks,
		},
		{
			name:     "no match falls through to general",
			message:  "zzz qqq",
			expected: IntentGeneral,
		},
		{
			name:     "empty message is general",
			message:  "",
			expected: IntentGeneral,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ClassifyIntent(tt.message))
		})
	}
}

func TestClassifyIntentPricePriority(t *testing.T) {
	// Price patterns win even when the message also matches another
	// intent's keywords.
	tests := []struct {
		name    string
		message string
	}{
		{"price with product keyword", "Show me fiction books under $20"},
		{"price word alone", "what is the price"},
		{"numeric bound", "anything less than 30"},
		{"cheap", "cheap novels please"},
		{"discount with greeting", "hello, any discount today?"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, IntentPriceQuery, ClassifyIntent(tt.message))
		})
	}
}

func TestClassifyIntentTableOrder(t *testing.T) {
	// "author" appears in both product_search and author_search pattern
	// lists; the earlier table entry wins.
	assert.Equal(t, IntentProductSearch, ClassifyIntent("search by author"))

	// "writer" only matches author_search.
	assert.Equal(t, IntentAuthorSearch, ClassifyIntent("a famous writer"))
}
