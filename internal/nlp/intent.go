package nlp

import (
	"regexp"
	"strings"
)

// Intent is the coarse purpose assigned to one user message.
type Intent string

// Known intents.
const (
	IntentGreeting       Intent = "greeting"
	IntentProductSearch  Intent = "product_search"
	IntentCategorySearch Intent = "category_search"
	IntentPriceQuery     Intent = "price_query"
	IntentAvailability   Intent = "availability"
	IntentRecommendation Intent = "recommendation"
	IntentCheckout       Intent = "checkout"
	IntentHelp           Intent = "help"
	IntentAuthorSearch   Intent = "author_search"
	IntentThanks         Intent = "thanks"
	IntentGeneral        Intent = "general"
)

type intentPatterns struct {
	intent   Intent
	patterns []*regexp.Regexp
}

func compileAll(exprs ...string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, len(exprs))
	for i, expr := range exprs {
		compiled[i] = regexp.MustCompile(expr)
	}
	return compiled
}

// pricePatterns are checked before everything else: a message that
// mentions a price is a price query even when it also names a product.
var pricePatterns = compileAll(
	`price`, `cost`, `how much`, `affordable`, `expensive`, `cheap`,
	`budget`, `discount`, `offer`, `deal`, `sale`,
	`under \d+`, `less than \d+`, `below \d+`, `cheaper than \d+`,
	`maximum \d+`, `under \$\d+`, `less than \$\d+`,
)

// intentTable is evaluated top to bottom after the price check;
// the first matching pattern decides. Loaded once, never mutated.
var intentTable = []intentPatterns{
	{IntentGreeting, compileAll(
		`hello`, `hi`, `hey`, `greetings`,
		`good morning`, `good afternoon`, `good evening`,
	)},
	{IntentProductSearch, compileAll(
		`book`, `novel`, `fiction`, `non-fiction`, `textbook`, `author`,
		`title`, `reading`, `literature`, `story`, `find book`,
	)},
	{IntentCategorySearch, compileAll(
		`category`, `genre`, `type`, `section`, `group`,
		`classification`, `collection`,
	)},
	{IntentAvailability, compileAll(
		`available`, `in stock`, `stock`, `have`, `get`, `when`,
		`deliver`, `shipping`,
	)},
	{IntentRecommendation, compileAll(
		`recommend`, `suggestion`, `best`, `popular`, `top`, `trending`,
		`bestseller`, `most read`, `award winning`,
	)},
	{IntentCheckout, compileAll(
		`checkout`, `buy`, `purchase`, `cart`, `basket`, `order`,
		`payment`, `pay`,
	)},
	{IntentHelp, compileAll(
		`help`, `support`, `assist`, `guide`, `how to`, `explain`,
		`what can you do`,
	)},
	{IntentAuthorSearch, compileAll(
		`author`, `writer`, `who wrote`, `written by`,
	)},
	{IntentThanks, compileAll(
		`thank`, `thanks`, `appreciate`,
	)},
}

// ClassifyIntent assigns an intent to a raw user message. Price patterns
// win over every other intent; otherwise the table order decides and the
// first match wins. Messages matching nothing classify as general.
func ClassifyIntent(message string) Intent {
	lowered := strings.ToLower(message)

	for _, p := range pricePatterns {
		if p.MatchString(lowered) {
			return IntentPriceQuery
		}
	}

	for _, row := range intentTable {
		for _, p := range row.patterns {
			if p.MatchString(lowered) {
				return row.intent
			}
		}
	}
	return IntentGeneral
}
