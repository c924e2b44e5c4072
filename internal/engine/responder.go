package engine

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/storely-ai/discovery-engine/internal/nlp"
	"github.com/storely-ai/discovery-engine/internal/profile"
	"github.com/storely-ai/discovery-engine/internal/relevance"
	"github.com/storely-ai/discovery-engine/internal/storage"
)

var thanksVariants = []string{
	"You're very welcome! Happy to help you find great books!",
	"My pleasure! Is there anything else you'd like to explore?",
	"Glad I could help! Feel free to ask about more books anytime!",
}

// synthesize builds the reply for one classified turn. No-match outcomes
// become clarifying questions or fallback content; only store failures
// return an error.
func (e *Engine) synthesize(ctx context.Context, sessionID, message string, intent nlp.Intent, entities nlp.Entities, sentiment nlp.Sentiment, prefs *profile.Profile) (Response, error) {
	switch intent {
	case nlp.IntentGreeting:
		return e.respondGreeting(sentiment), nil
	case nlp.IntentProductSearch:
		return e.respondProductSearch(ctx, message, entities)
	case nlp.IntentRecommendation:
		return e.respondRecommendation(ctx, prefs)
	case nlp.IntentPriceQuery:
		return e.respondPriceQuery(ctx, entities)
	case nlp.IntentCategorySearch:
		return e.respondCategorySearch(ctx)
	case nlp.IntentCheckout:
		return respondCheckout(), nil
	case nlp.IntentHelp:
		return respondHelp(), nil
	case nlp.IntentThanks:
		return respondThanks(sessionID), nil
	case nlp.IntentAuthorSearch:
		return e.respondAuthorSearch(ctx, entities)
	default:
		return e.respondGeneral(ctx, message)
	}
}

func (e *Engine) respondGreeting(sentiment nlp.Sentiment) Response {
	message := "Hi there! I'm here to help you find the perfect books. What are you looking for today?"
	if sentiment == nlp.SentimentPositive {
		message = "Hello! I'm excited to help you find amazing books today! What can I help you discover?"
	}
	return Response{
		Message: message,
		Type:    TypeText,
		Suggestions: []string{
			"Browse bestsellers", "Find books by genre",
			"Get recommendations", "Search by author",
		},
	}
}

func (e *Engine) respondProductSearch(ctx context.Context, message string, entities nlp.Entities) (Response, error) {
	var (
		results []storage.Product
		text    string
		err     error
	)

	switch {
	case entities.Category != nil:
		filter := storage.CatalogFilter{Category: entities.Category, Limit: e.cfg.SearchLimit}
		if entities.PriceRange != nil {
			filter.MinPrice = entities.PriceRange.Min
			filter.MaxPrice = entities.PriceRange.Max
		}
		results, err = e.catalog.Filter(ctx, filter)
		if err != nil {
			return Response{}, err
		}
		text = fmt.Sprintf("Here are some great %s books", strings.ToLower(*entities.Category))
		if entities.PriceRange != nil && entities.PriceRange.Max != nil {
			text += fmt.Sprintf(" under $%.0f", *entities.PriceRange.Max)
		}
		text += ":"

	case entities.Author != nil:
		results, err = e.scanByAuthor(ctx, *entities.Author)
		if err != nil {
			return Response{}, err
		}
		if len(results) > 0 {
			text = fmt.Sprintf("Here are books by or about %s:", *entities.Author)
		} else {
			text = fmt.Sprintf("I couldn't find books by %s. Here are some popular alternatives:", *entities.Author)
			results, err = e.catalog.TopRated(ctx, 4)
			if err != nil {
				return Response{}, err
			}
		}

	default:
		keywords := nlp.Normalize(message)
		if len(keywords) > 0 {
			var catalog []storage.Product
			catalog, err = e.catalog.ListAll(ctx)
			if err != nil {
				return Response{}, err
			}
			results = relevance.ScoreAndRank(keywords, entities, catalog, e.cfg.SearchLimit)
			if len(results) > 0 {
				shown := keywords
				if len(shown) > 2 {
					shown = shown[:2]
				}
				text = fmt.Sprintf("Here are books matching '%s':", strings.Join(shown, " "))
			} else {
				// Nothing scored above zero; fall back to a popularity query.
				text = "Let me show you some popular books instead:"
				results, err = e.catalog.TopRated(ctx, e.cfg.SearchLimit)
				if err != nil {
					return Response{}, err
				}
			}
		}
	}

	if len(results) > 0 {
		return Response{
			Message:  text,
			Type:     TypeProduct,
			Products: toViews(results),
			Suggestions: []string{
				"Show more", "Filter by price", "Different category", "Add to cart",
			},
		}, nil
	}
	return Response{
		Message:     "I couldn't find any books matching your request. Could you try different keywords or browse our categories?",
		Type:        TypeText,
		Suggestions: []string{"Browse categories", "Popular books", "New arrivals"},
	}, nil
}

func (e *Engine) respondRecommendation(ctx context.Context, prefs *profile.Profile) (Response, error) {
	if prefs != nil && !prefs.IsEmpty() {
		recommended, err := e.catalog.TopRatedInCategories(ctx,
			prefs.PreferredCategories,
			prefs.BudgetRange.Min, prefs.BudgetRange.Max,
			e.cfg.RecommendMinRating, 8,
		)
		if err != nil {
			return Response{}, err
		}
		if len(recommended) > e.cfg.SearchLimit {
			recommended = recommended[:e.cfg.SearchLimit]
		}
		if len(recommended) > 0 {
			return Response{
				Message:  "Based on your preferences, here are some books you might love:",
				Type:     TypeProduct,
				Products: toViews(recommended),
				Suggestions: []string{
					"More like these", "Different genre", "Budget options", "Add to cart",
				},
			}, nil
		}
	}

	top, err := e.catalog.TopRated(ctx, e.cfg.SearchLimit)
	if err != nil {
		return Response{}, err
	}
	return Response{
		Message:  "Here are our highest-rated books:",
		Type:     TypeProduct,
		Products: toViews(top),
		Suggestions: []string{
			"More like these", "Different genre", "Budget options", "Add to cart",
		},
	}, nil
}

func (e *Engine) respondPriceQuery(ctx context.Context, entities nlp.Entities) (Response, error) {
	if entities.PriceRange == nil {
		return Response{
			Message:     "I can help you find books in any price range! What's your budget?",
			Type:        TypeText,
			Suggestions: []string{"Under $20", "$20-50", "$50-100", "Show all prices"},
		}, nil
	}

	pr := entities.PriceRange
	filter := storage.CatalogFilter{MinPrice: pr.Min, MaxPrice: pr.Max, Limit: e.cfg.SearchLimit}
	results, err := e.catalog.Filter(ctx, filter)
	if err != nil {
		return Response{}, err
	}

	var text string
	if pr.Min != nil && pr.Max != nil {
		text = fmt.Sprintf("Here are great books between $%.0f and $%.0f:", *pr.Min, *pr.Max)
	} else if pr.Max != nil {
		text = fmt.Sprintf("Here are highly-rated books under $%.0f:", *pr.Max)
	}

	if len(results) == 0 {
		// The fallback message still names the requested bound.
		if pr.Min != nil && pr.Max != nil {
			text = fmt.Sprintf("I couldn't find books between $%.0f and $%.0f. Here are some affordable options:", *pr.Min, *pr.Max)
		} else if pr.Max != nil {
			text = fmt.Sprintf("I couldn't find books under $%.0f. Here are some affordable options:", *pr.Max)
		}
		results, err = e.catalog.Cheapest(ctx, e.cfg.SearchLimit)
		if err != nil {
			return Response{}, err
		}
		return Response{
			Message:  text,
			Type:     TypeProduct,
			Products: toViews(results),
		}, nil
	}

	return Response{
		Message:  text,
		Type:     TypeProduct,
		Products: toViews(results),
		Suggestions: []string{
			"Show more", "Different price range", "Filter by category",
		},
	}, nil
}

func (e *Engine) respondCategorySearch(ctx context.Context) (Response, error) {
	categories, err := e.catalog.DistinctCategories(ctx)
	if err != nil {
		return Response{}, err
	}
	if len(categories) > 6 {
		categories = categories[:6]
	}
	return Response{
		Message:     "We have books in these categories. Which one interests you?",
		Type:        TypeSuggestions,
		Suggestions: categories,
	}, nil
}

func respondCheckout() Response {
	return Response{
		Message: "Ready to complete your purchase? I can help you review your cart or proceed to checkout.",
		Type:    TypeText,
		Suggestions: []string{
			"View cart", "Proceed to checkout", "Continue shopping", "Apply coupon",
		},
	}
}

func respondHelp() Response {
	return Response{
		Message: "I'm your personal book assistant! I can help you:\n" +
			"- Find books by title, author, or genre\n" +
			"- Get personalized recommendations\n" +
			"- Check prices and deals\n" +
			"- Manage your cart and checkout",
		Type: TypeText,
		Suggestions: []string{
			"Find a book", "Get recommendations", "Browse categories", "Price search",
		},
	}
}

// respondThanks varies the reply deterministically per session so a
// session sees a consistent voice and tests stay reproducible.
func respondThanks(sessionID string) Response {
	h := fnv.New32a()
	h.Write([]byte(sessionID))
	variant := thanksVariants[int(h.Sum32())%len(thanksVariants)]
	return Response{
		Message: variant,
		Type:    TypeText,
		Suggestions: []string{
			"Find more books", "Browse categories", "Check my cart",
		},
	}
}

func (e *Engine) respondAuthorSearch(ctx context.Context, entities nlp.Entities) (Response, error) {
	if entities.Author == nil {
		return Response{
			Message: "Which author are you interested in?",
			Type:    TypeText,
			Suggestions: []string{
				"Search by title instead", "Browse authors", "Popular authors",
			},
		}, nil
	}

	author := *entities.Author
	results, err := e.scanByAuthor(ctx, author)
	if err != nil {
		return Response{}, err
	}

	if len(results) == 0 {
		top, err := e.catalog.TopRated(ctx, 4)
		if err != nil {
			return Response{}, err
		}
		return Response{
			Message:  fmt.Sprintf("I couldn't find books by %s. Here are some popular alternatives:", author),
			Type:     TypeProduct,
			Products: toViews(top),
			Suggestions: []string{
				"Browse authors", "Search by title", "Popular authors",
			},
		}, nil
	}

	if len(results) > e.cfg.ResultLimit {
		results = results[:e.cfg.ResultLimit]
	}
	return Response{
		Message:  fmt.Sprintf("Here are books by or about %s:", author),
		Type:     TypeProduct,
		Products: toViews(results),
	}, nil
}

func (e *Engine) respondGeneral(ctx context.Context, message string) (Response, error) {
	lowered := strings.ToLower(message)

	if strings.Contains(lowered, "expensive") || strings.Contains(lowered, "cheap") {
		cheapest, err := e.catalog.Cheapest(ctx, 4)
		if err != nil {
			return Response{}, err
		}
		return Response{
			Message:  "Here are some budget-friendly options:",
			Type:     TypeProduct,
			Products: toViews(cheapest),
		}, nil
	}

	for _, word := range []string{"bestseller", "popular", "trending"} {
		if strings.Contains(lowered, word) {
			top, err := e.catalog.TopRated(ctx, 4)
			if err != nil {
				return Response{}, err
			}
			return Response{
				Message:  "Here are our most popular books:",
				Type:     TypeProduct,
				Products: toViews(top),
			}, nil
		}
	}

	return Response{
		Message: "I'd love to help you find the perfect books! What are you interested in?",
		Type:    TypeText,
		Suggestions: []string{
			"Browse books", "Get recommendations", "Search by category", "Price ranges",
		},
	}, nil
}

// scanByAuthor does a full-catalog substring scan for an author mention
// in titles and descriptions.
func (e *Engine) scanByAuthor(ctx context.Context, author string) ([]storage.Product, error) {
	catalog, err := e.catalog.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(author)
	var matches []storage.Product
	for _, p := range catalog {
		if strings.Contains(strings.ToLower(p.Title), needle) ||
			strings.Contains(strings.ToLower(p.Description), needle) {
			matches = append(matches, p)
		}
	}
	return matches, nil
}
