package storage

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storely-ai/discovery-engine/internal/profile"
)

func TestPreferenceStoreRoundTrip(t *testing.T) {
	db := openTestDB(t)
	users := NewUserRepository(db)
	store := NewPreferenceStore(users)
	ctx := context.Background()

	user := &User{Email: "reader@example.com", PasswordHash: "hash"}
	require.NoError(t, users.Create(ctx, user))

	max := 30.0
	p := profile.New()
	p.PreferredCategories = []string{"Fiction"}
	p.BudgetRange.Max = &max
	p.LastSearches = []string{"fiction", "book"}

	require.NoError(t, store.SavePreferences(ctx, user.ID, p))

	loaded, err := store.GetPreferences(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Fiction"}, loaded.PreferredCategories)
	require.NotNil(t, loaded.BudgetRange.Max)
	assert.Equal(t, 30.0, *loaded.BudgetRange.Max)
	assert.Equal(t, []string{"fiction", "book"}, loaded.LastSearches)
}

func TestPreferenceStoreUnknownUser(t *testing.T) {
	db := openTestDB(t)
	store := NewPreferenceStore(NewUserRepository(db))
	ctx := context.Background()

	// reads come back empty, writes are dropped
	loaded, err := store.GetPreferences(ctx, uuid.New())
	require.NoError(t, err)
	assert.True(t, loaded.IsEmpty())

	assert.NoError(t, store.SavePreferences(ctx, uuid.New(), profile.New()))
}
