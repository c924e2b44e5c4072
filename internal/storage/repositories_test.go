package storage

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/mattn/go-sqlite3"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping database test in short mode")
	}

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	// :memory: databases are per-connection
	db.SetMaxOpenConns(1)

	require.NoError(t, Migrate(context.Background(), db))
	return db
}

func seedProduct(t *testing.T, repo *CatalogRepository, title, category string, price, rating float64) Product {
	t.Helper()

	p := Product{
		ID:       uuid.New(),
		Title:    title,
		Category: category,
		Price:    price,
		Rating:   rating,
		Stock:    10,
	}
	require.NoError(t, repo.Upsert(context.Background(), &p))
	return p
}

func TestCatalogUpsertIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	repo := NewCatalogRepository(db)
	ctx := context.Background()

	p := Product{ID: uuid.New(), Title: "Dune", Category: "Fiction", Price: 22.50, Rating: 4.8}
	require.NoError(t, repo.Upsert(ctx, &p))

	p.Price = 18.99
	require.NoError(t, repo.Upsert(ctx, &p))

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, 18.99, all[0].Price)
	assert.Equal(t, "Dune", all[0].Title)
}

func TestCatalogGetByIDNotFound(t *testing.T) {
	db := openTestDB(t)
	repo := NewCatalogRepository(db)

	_, err := repo.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCatalogFilter(t *testing.T) {
	db := openTestDB(t)
	repo := NewCatalogRepository(db)
	ctx := context.Background()

	seedProduct(t, repo, "Dune", "Fiction", 22.50, 4.8)
	seedProduct(t, repo, "Sapiens", "History", 29.99, 4.6)
	seedProduct(t, repo, "The Hobbit", "Fiction", 14.99, 4.9)

	fiction := "Fiction"
	max := 20.0

	t.Run("by category", func(t *testing.T) {
		results, err := repo.Filter(ctx, CatalogFilter{Category: &fiction})
		require.NoError(t, err)
		require.Len(t, results, 2)
		// rating desc
		assert.Equal(t, "The Hobbit", results[0].Title)
	})

	t.Run("by category and max price", func(t *testing.T) {
		results, err := repo.Filter(ctx, CatalogFilter{Category: &fiction, MaxPrice: &max})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "The Hobbit", results[0].Title)
	})

	t.Run("by text query", func(t *testing.T) {
		q := "hobbit"
		results, err := repo.Filter(ctx, CatalogFilter{Query: &q})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "The Hobbit", results[0].Title)
	})

	t.Run("limit", func(t *testing.T) {
		results, err := repo.Filter(ctx, CatalogFilter{Limit: 2})
		require.NoError(t, err)
		assert.Len(t, results, 2)
	})
}

func TestCatalogTopRatedInCategories(t *testing.T) {
	db := openTestDB(t)
	repo := NewCatalogRepository(db)
	ctx := context.Background()

	seedProduct(t, repo, "Dune", "Fiction", 22.50, 4.8)
	seedProduct(t, repo, "Pulp Novel", "Fiction", 5.99, 3.1)
	seedProduct(t, repo, "Sapiens", "History", 29.99, 4.6)

	max := 25.0
	results, err := repo.TopRatedInCategories(ctx, []string{"Fiction"}, nil, &max, 4.0, 8)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Dune", results[0].Title)
}

func TestCatalogDistinctCategories(t *testing.T) {
	db := openTestDB(t)
	repo := NewCatalogRepository(db)

	seedProduct(t, repo, "Dune", "Fiction", 22.50, 4.8)
	seedProduct(t, repo, "The Hobbit", "Fiction", 14.99, 4.9)
	seedProduct(t, repo, "Sapiens", "History", 29.99, 4.6)

	categories, err := repo.DistinctCategories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Fiction", "History"}, categories)
}

func TestSessionLifecycle(t *testing.T) {
	db := openTestDB(t)
	repo := NewSessionRepository(db)
	ctx := context.Background()

	// empty ID creates a new session
	session, err := repo.GetOrCreate(ctx, "", nil)
	require.NoError(t, err)
	require.NotEmpty(t, session.ID)

	// same ID returns the existing session
	again, err := repo.GetOrCreate(ctx, session.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, session.ID, again.ID)

	products := `[{"id":"p1","title":"Dune"}]`
	msgs := []ChatMessage{
		{SessionID: session.ID, Sender: SenderUser, Message: "find me a book"},
		{SessionID: session.ID, Sender: SenderBot, Message: "Here are some books:", ProductsJSON: &products},
	}
	for i := range msgs {
		require.NoError(t, repo.AppendMessage(ctx, &msgs[i]))
	}

	loaded, err := repo.GetByID(ctx, session.ID, true)
	require.NoError(t, err)
	require.Len(t, loaded.Messages, 2)
	assert.Equal(t, SenderUser, loaded.Messages[0].Sender)
	assert.Equal(t, SenderBot, loaded.Messages[1].Sender)
	require.NotNil(t, loaded.Messages[1].ProductsJSON)

	require.NoError(t, repo.Delete(ctx, session.ID))
	_, err = repo.GetByID(ctx, session.ID, false)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSessionDeleteMissing(t *testing.T) {
	db := openTestDB(t)
	repo := NewSessionRepository(db)

	err := repo.Delete(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSessionListByUser(t *testing.T) {
	db := openTestDB(t)
	repo := NewSessionRepository(db)
	ctx := context.Background()

	userID := uuid.New()

	first, err := repo.GetOrCreate(ctx, "", &userID)
	require.NoError(t, err)
	second, err := repo.GetOrCreate(ctx, "", &userID)
	require.NoError(t, err)

	// bump the second session so it sorts first
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, repo.AppendMessage(ctx, &ChatMessage{
		SessionID: second.ID, Sender: SenderUser, Message: "hello",
	}))

	sessions, err := repo.ListByUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, second.ID, sessions[0].ID)
	assert.Equal(t, first.ID, sessions[1].ID)
}

func TestUserCreateAndConflict(t *testing.T) {
	db := openTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := &User{
		Name:         "Reader",
		Email:        "reader@example.com",
		PasswordHash: "hash",
	}
	require.NoError(t, repo.Create(ctx, user))
	require.NotEqual(t, uuid.Nil, user.ID)

	dup := &User{Email: "reader@example.com", PasswordHash: "hash"}
	assert.ErrorIs(t, repo.Create(ctx, dup), ErrConflict)

	loaded, err := repo.GetByEmail(ctx, "reader@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, loaded.ID)
	assert.True(t, loaded.IsActive)
	assert.Nil(t, loaded.LastLogin)
}

func TestUserUpdatePreferences(t *testing.T) {
	db := openTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := &User{Email: "reader@example.com", PasswordHash: "hash"}
	require.NoError(t, repo.Create(ctx, user))

	prefs := `{"preferredCategories":["Fiction"],"budgetRange":{"min":null,"max":30},"lastSearches":["fiction"]}`
	require.NoError(t, repo.UpdatePreferences(ctx, user.ID, prefs))

	loaded, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.JSONEq(t, prefs, loaded.PreferencesJSON)
}

func TestUserUpdateMissing(t *testing.T) {
	db := openTestDB(t)
	repo := NewUserRepository(db)

	err := repo.UpdateProfile(context.Background(), uuid.New(), "New Name")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserTouchLastLogin(t *testing.T) {
	db := openTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := &User{Email: "reader@example.com", PasswordHash: "hash"}
	require.NoError(t, repo.Create(ctx, user))

	require.NoError(t, repo.TouchLastLogin(ctx, user.ID))

	loaded, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded.LastLogin)
}
