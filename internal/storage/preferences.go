package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/storely-ai/discovery-engine/internal/profile"
)

// PreferenceStore exposes the preference profile column on users as a
// typed read/write surface. Unknown user IDs read as an empty profile
// and writes for them are dropped, so anonymous caller-supplied IDs
// cannot fail a chat turn.
type PreferenceStore struct {
	users *UserRepository
}

// NewPreferenceStore creates a preference store over the user repository.
func NewPreferenceStore(users *UserRepository) *PreferenceStore {
	return &PreferenceStore{users: users}
}

// GetPreferences loads a user's preference profile.
func (s *PreferenceStore) GetPreferences(ctx context.Context, userID uuid.UUID) (profile.Profile, error) {
	user, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return profile.New(), nil
	}
	if err != nil {
		return profile.Profile{}, err
	}
	return profile.Parse([]byte(user.PreferencesJSON))
}

// SavePreferences stores a user's preference profile.
func (s *PreferenceStore) SavePreferences(ctx context.Context, userID uuid.UUID, p profile.Profile) error {
	data, err := p.Encode()
	if err != nil {
		return err
	}
	err = s.users.UpdatePreferences(ctx, userID, string(data))
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}
