package engine

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storely-ai/discovery-engine/internal/config"
	"github.com/storely-ai/discovery-engine/internal/nlp"
	"github.com/storely-ai/discovery-engine/internal/observability"
	"github.com/storely-ai/discovery-engine/internal/profile"
	"github.com/storely-ai/discovery-engine/internal/storage"
)

type fakeCatalog struct {
	products []storage.Product
	failing  bool
}

var errStoreDown = errors.New("store unavailable")

func (f *fakeCatalog) ListAll(ctx context.Context) ([]storage.Product, error) {
	if f.failing {
		return nil, errStoreDown
	}
	return append([]storage.Product(nil), f.products...), nil
}

func (f *fakeCatalog) Filter(ctx context.Context, filter storage.CatalogFilter) ([]storage.Product, error) {
	if f.failing {
		return nil, errStoreDown
	}
	var out []storage.Product
	for _, p := range f.products {
		if filter.Category != nil && p.Category != *filter.Category {
			continue
		}
		if filter.MinPrice != nil && p.Price < *filter.MinPrice {
			continue
		}
		if filter.MaxPrice != nil && p.Price > *filter.MaxPrice {
			continue
		}
		if filter.Query != nil {
			q := strings.ToLower(*filter.Query)
			if !strings.Contains(strings.ToLower(p.Title), q) &&
				!strings.Contains(strings.ToLower(p.Description), q) {
				continue
			}
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Rating > out[j].Rating })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (f *fakeCatalog) TopRated(ctx context.Context, limit int) ([]storage.Product, error) {
	if f.failing {
		return nil, errStoreDown
	}
	out := append([]storage.Product(nil), f.products...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Rating > out[j].Rating })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeCatalog) Cheapest(ctx context.Context, limit int) ([]storage.Product, error) {
	if f.failing {
		return nil, errStoreDown
	}
	out := append([]storage.Product(nil), f.products...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeCatalog) DistinctCategories(ctx context.Context) ([]string, error) {
	if f.failing {
		return nil, errStoreDown
	}
	seen := map[string]struct{}{}
	var out []string
	for _, p := range f.products {
		if _, ok := seen[p.Category]; !ok {
			seen[p.Category] = struct{}{}
			out = append(out, p.Category)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (f *fakeCatalog) TopRatedInCategories(ctx context.Context, categories []string, minPrice, maxPrice *float64, minRating float64, limit int) ([]storage.Product, error) {
	if f.failing {
		return nil, errStoreDown
	}
	inCats := func(c string) bool {
		if len(categories) == 0 {
			return true
		}
		for _, cat := range categories {
			if cat == c {
				return true
			}
		}
		return false
	}
	var out []storage.Product
	for _, p := range f.products {
		if !inCats(p.Category) || p.Rating < minRating {
			continue
		}
		if minPrice != nil && p.Price < *minPrice {
			continue
		}
		if maxPrice != nil && p.Price > *maxPrice {
			continue
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Rating > out[j].Rating })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeSessions struct {
	sessions map[string]*storage.ChatSession
	messages map[string][]storage.ChatMessage
	failing  bool
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{
		sessions: make(map[string]*storage.ChatSession),
		messages: make(map[string][]storage.ChatMessage),
	}
}

func (f *fakeSessions) GetOrCreate(ctx context.Context, id string, userID *uuid.UUID) (*storage.ChatSession, error) {
	if f.failing {
		return nil, errStoreDown
	}
	if id == "" {
		id = uuid.NewString()
	}
	if s, ok := f.sessions[id]; ok {
		return s, nil
	}
	s := &storage.ChatSession{ID: id, UserID: userID}
	f.sessions[id] = s
	return s, nil
}

func (f *fakeSessions) AppendMessage(ctx context.Context, msg *storage.ChatMessage) error {
	if f.failing {
		return errStoreDown
	}
	f.messages[msg.SessionID] = append(f.messages[msg.SessionID], *msg)
	return nil
}

type fakeProfiles struct {
	profiles map[uuid.UUID]profile.Profile
}

func (f *fakeProfiles) GetPreferences(ctx context.Context, userID uuid.UUID) (profile.Profile, error) {
	if p, ok := f.profiles[userID]; ok {
		return p, nil
	}
	return profile.New(), nil
}

func (f *fakeProfiles) SavePreferences(ctx context.Context, userID uuid.UUID, p profile.Profile) error {
	f.profiles[userID] = p
	return nil
}

func seedCatalog() *fakeCatalog {
	mk := func(title, category, description string, price, rating float64) storage.Product {
		return storage.Product{
			ID: uuid.New(), Title: title, Category: category,
			Description: description, Price: price, Rating: rating, Stock: 10,
		}
	}
	return &fakeCatalog{products: []storage.Product{
		mk("Dune", "Fiction", "A desert planet saga by Frank Herbert", 15.99, 4.8),
		mk("The Martian", "Fiction", "Stranded on Mars", 12.50, 4.5),
		mk("A Brief History of Time", "Science", "Cosmology for everyone", 18.00, 4.7),
		mk("The Selfish Gene", "Science", "Evolutionary biology classic", 22.00, 4.6),
		mk("SPQR", "History", "A history of ancient Rome", 25.00, 4.4),
		mk("Long Walk to Freedom", "Biography", "Autobiography of Nelson Mandela", 19.99, 4.9),
		mk("Calculus Made Easy", "Education", "A classic textbook", 35.00, 4.2),
		mk("Budget Tales", "Fiction", "Short stories", 5.99, 3.8),
	}}
}

func newTestEngine(catalog *fakeCatalog, sessions *fakeSessions, profiles ProfileStore) *Engine {
	cfg := config.ChatConfig{
		ResultLimit:        5,
		SearchLimit:        6,
		RecommendMinRating: 4.0,
		MaxRecentSearches:  10,
	}
	return New(catalog, sessions, profiles, observability.NewTestLogger(), cfg)
}

func TestProcessGreeting(t *testing.T) {
	sessions := newFakeSessions()
	e := newTestEngine(seedCatalog(), sessions, nil)

	result, err := e.Process(context.Background(), Request{Message: "hello"})
	require.NoError(t, err)

	assert.Equal(t, TypeText, result.Response.Type)
	assert.Len(t, result.Response.Suggestions, 4)
	assert.Empty(t, result.Response.Products)
	assert.NotEmpty(t, result.SessionID)
	assert.False(t, result.PreferencesUpdated)

	// Both the user message and the reply were persisted, in order.
	msgs := sessions.messages[result.SessionID]
	require.Len(t, msgs, 2)
	assert.Equal(t, storage.SenderUser, msgs[0].Sender)
	assert.Equal(t, "hello", msgs[0].Message)
	assert.Equal(t, storage.SenderBot, msgs[1].Sender)
}

func TestProcessPricePatternWinsOverProductKeyword(t *testing.T) {
	e := newTestEngine(seedCatalog(), newFakeSessions(), nil)

	result, err := e.Process(context.Background(), Request{Message: "Show me fiction books under $20"})
	require.NoError(t, err)

	require.NotNil(t, result.Response.Entities.PriceRange)
	require.NotNil(t, result.Response.Entities.PriceRange.Max)
	assert.Equal(t, 20.0, *result.Response.Entities.PriceRange.Max)
	assert.Nil(t, result.Response.Entities.PriceRange.Min)

	assert.Equal(t, TypeProduct, result.Response.Type)
	for _, p := range result.Response.Products {
		assert.LessOrEqual(t, p.Price, 20.0)
	}
}

func TestProcessBetweenRange(t *testing.T) {
	e := newTestEngine(seedCatalog(), newFakeSessions(), nil)

	result, err := e.Process(context.Background(), Request{Message: "books between 10 and 50"})
	require.NoError(t, err)

	pr := result.Response.Entities.PriceRange
	require.NotNil(t, pr)
	require.NotNil(t, pr.Min)
	require.NotNil(t, pr.Max)
	assert.Equal(t, 10.0, *pr.Min)
	assert.Equal(t, 50.0, *pr.Max)
}

func TestProcessRecommendationWithoutProfile(t *testing.T) {
	e := newTestEngine(seedCatalog(), newFakeSessions(), nil)

	result, err := e.Process(context.Background(), Request{Message: "recommend a good read"})
	require.NoError(t, err)

	assert.Equal(t, TypeProduct, result.Response.Type)
	require.NotEmpty(t, result.Response.Products)
	for i := 1; i < len(result.Response.Products); i++ {
		assert.GreaterOrEqual(t, result.Response.Products[i-1].Rating, result.Response.Products[i].Rating)
	}
}

func TestProcessRecommendationWithProfile(t *testing.T) {
	e := newTestEngine(seedCatalog(), newFakeSessions(), nil)

	prefs := profile.New()
	prefs.PreferredCategories = []string{"Science"}

	result, err := e.Process(context.Background(), Request{
		Message:     "recommend a good read",
		Preferences: &prefs,
	})
	require.NoError(t, err)

	require.NotEmpty(t, result.Response.Products)
	for _, p := range result.Response.Products {
		assert.Equal(t, "Science", p.Category)
		assert.GreaterOrEqual(t, p.Rating, 4.0)
	}
}

func TestProcessLearnsPreferences(t *testing.T) {
	e := newTestEngine(seedCatalog(), newFakeSessions(), nil)

	prefs := profile.New()
	result, err := e.Process(context.Background(), Request{
		Message:     "fiction books under 30",
		Preferences: &prefs,
	})
	require.NoError(t, err)

	assert.True(t, result.PreferencesUpdated)
	learned := result.Response.LearnedPreferences
	require.NotNil(t, learned)
	assert.Equal(t, []string{"Fiction"}, learned.PreferredCategories)
	require.NotNil(t, learned.BudgetRange.Max)
	assert.Equal(t, 30.0, *learned.BudgetRange.Max)
	assert.Nil(t, learned.BudgetRange.Min)
	assert.NotEmpty(t, learned.LastSearches)
	assert.LessOrEqual(t, len(learned.LastSearches), 10)
}

func TestProcessHistoryLimitFromConfig(t *testing.T) {
	cfg := config.ChatConfig{
		ResultLimit:        5,
		SearchLimit:        6,
		RecommendMinRating: 4.0,
		MaxRecentSearches:  2,
	}
	e := New(seedCatalog(), newFakeSessions(), nil, observability.NewTestLogger(), cfg)

	prefs := profile.New()
	result, err := e.Process(context.Background(), Request{
		Message:     "desert planet saga",
		Preferences: &prefs,
	})
	require.NoError(t, err)

	learned := result.Response.LearnedPreferences
	require.NotNil(t, learned)
	assert.Equal(t, []string{"saga", "planet"}, learned.LastSearches)
}

func TestProcessPersistsProfileForUser(t *testing.T) {
	profiles := &fakeProfiles{profiles: make(map[uuid.UUID]profile.Profile)}
	e := newTestEngine(seedCatalog(), newFakeSessions(), profiles)

	userID := uuid.New()
	result, err := e.Process(context.Background(), Request{
		Message: "fiction books under 30",
		UserID:  &userID,
	})
	require.NoError(t, err)
	assert.True(t, result.PreferencesUpdated)

	stored := profiles.profiles[userID]
	assert.Equal(t, []string{"Fiction"}, stored.PreferredCategories)

	// A second turn builds on the persisted profile.
	result, err = e.Process(context.Background(), Request{
		Message: "any science books",
		UserID:  &userID,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Fiction", "Science"}, profiles.profiles[userID].PreferredCategories)
	_ = result
}

func TestProcessAuthorSearchClarifies(t *testing.T) {
	e := newTestEngine(seedCatalog(), newFakeSessions(), nil)

	result, err := e.Process(context.Background(), Request{Message: "who wrote Dune"})
	require.NoError(t, err)

	// "who wrote X" carries no author entity; the engine asks instead.
	assert.Nil(t, result.Response.Entities.Author)
	assert.Empty(t, result.Response.Products)
	assert.NotEmpty(t, result.Response.Suggestions)
}

func TestProcessKeywordSearchRanksByRelevance(t *testing.T) {
	e := newTestEngine(seedCatalog(), newFakeSessions(), nil)

	result, err := e.Process(context.Background(), Request{Message: "find a book about the desert planet"})
	require.NoError(t, err)

	// "desert" and "planet" both hit the Dune description, so it outranks
	// weaker keyword matches elsewhere in the catalog.
	assert.Equal(t, TypeProduct, result.Response.Type)
	require.NotEmpty(t, result.Response.Products)
	assert.Equal(t, "Dune", result.Response.Products[0].Title)
}

func TestProcessKeywordSearchFallsBackWhenNothingScores(t *testing.T) {
	e := newTestEngine(seedCatalog(), newFakeSessions(), nil)

	result, err := e.Process(context.Background(), Request{Message: "reading about zzyzx"})
	require.NoError(t, err)

	assert.Equal(t, TypeProduct, result.Response.Type)
	assert.Contains(t, result.Response.Message, "popular")
	require.NotEmpty(t, result.Response.Products)
	assert.Equal(t, "Long Walk to Freedom", result.Response.Products[0].Title)
}

func TestProcessAuthorSearchByName(t *testing.T) {
	e := newTestEngine(seedCatalog(), newFakeSessions(), nil)

	result, err := e.Process(context.Background(), Request{Message: "written by Frank Herbert"})
	require.NoError(t, err)

	require.NotNil(t, result.Response.Entities.Author)
	assert.Equal(t, "Frank Herbert", *result.Response.Entities.Author)
	require.NotEmpty(t, result.Response.Products)
	assert.Equal(t, "Dune", result.Response.Products[0].Title)
}

func TestProcessCategorySearch(t *testing.T) {
	e := newTestEngine(seedCatalog(), newFakeSessions(), nil)

	result, err := e.Process(context.Background(), Request{Message: "browse genres"})
	require.NoError(t, err)

	assert.Equal(t, TypeSuggestions, result.Response.Type)
	assert.NotEmpty(t, result.Response.Suggestions)
	assert.LessOrEqual(t, len(result.Response.Suggestions), 6)
}

func TestProcessThanksDeterministicPerSession(t *testing.T) {
	e := newTestEngine(seedCatalog(), newFakeSessions(), nil)

	first, err := e.Process(context.Background(), Request{Message: "thanks", SessionID: "session-a"})
	require.NoError(t, err)
	second, err := e.Process(context.Background(), Request{Message: "thank you so much", SessionID: "session-a"})
	require.NoError(t, err)

	assert.Equal(t, first.Response.Message, second.Response.Message)
}

func TestProcessGeneralFallback(t *testing.T) {
	e := newTestEngine(seedCatalog(), newFakeSessions(), nil)

	result, err := e.Process(context.Background(), Request{Message: "zzz qqq"})
	require.NoError(t, err)

	assert.Equal(t, TypeText, result.Response.Type)
	assert.Empty(t, result.Response.Products)
	assert.NotEmpty(t, result.Response.Suggestions)
}

func TestProcessSessionStoreFailurePropagates(t *testing.T) {
	sessions := newFakeSessions()
	sessions.failing = true
	e := newTestEngine(seedCatalog(), sessions, nil)

	_, err := e.Process(context.Background(), Request{Message: "hello"})
	require.Error(t, err)
	assert.ErrorIs(t, err, errStoreDown)
}

func TestProcessCatalogFailurePropagates(t *testing.T) {
	catalog := seedCatalog()
	catalog.failing = true
	e := newTestEngine(catalog, newFakeSessions(), nil)

	_, err := e.Process(context.Background(), Request{Message: "recommend a good read"})
	require.Error(t, err)
	assert.ErrorIs(t, err, errStoreDown)
}

func TestProcessReusesExistingSession(t *testing.T) {
	sessions := newFakeSessions()
	e := newTestEngine(seedCatalog(), sessions, nil)

	first, err := e.Process(context.Background(), Request{Message: "hello", SessionID: "abc"})
	require.NoError(t, err)
	assert.Equal(t, "abc", first.SessionID)

	_, err = e.Process(context.Background(), Request{Message: "hello again", SessionID: "abc"})
	require.NoError(t, err)
	assert.Len(t, sessions.messages["abc"], 4)
}

func TestProcessSentimentAttached(t *testing.T) {
	e := newTestEngine(seedCatalog(), newFakeSessions(), nil)

	result, err := e.Process(context.Background(), Request{Message: "hello, what a great day"})
	require.NoError(t, err)
	assert.Equal(t, nlp.SentimentPositive, result.Response.Sentiment)
}
