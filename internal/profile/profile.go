// Package profile holds the durable per-user preference state and the
// learning rules that evolve it from chat turns.
package profile

import "encoding/json"

// BudgetRange is the learned spending band. Fields are first-write-wins:
// once set they are never overwritten by later extractions.
type BudgetRange struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// Profile is the per-user preference state accumulated across turns.
// The JSON field names match the stored profile documents.
type Profile struct {
	PreferredCategories []string    `json:"preferredCategories"`
	BudgetRange         BudgetRange `json:"budgetRange"`
	LastSearches        []string    `json:"lastSearches"`
}

// New returns an empty profile with non-nil slices so it serializes as
// empty arrays rather than nulls.
func New() Profile {
	return Profile{
		PreferredCategories: []string{},
		LastSearches:        []string{},
	}
}

// Clone returns a deep copy.
func (p Profile) Clone() Profile {
	clone := p
	clone.PreferredCategories = append([]string(nil), p.PreferredCategories...)
	clone.LastSearches = append([]string(nil), p.LastSearches...)
	if p.BudgetRange.Min != nil {
		min := *p.BudgetRange.Min
		clone.BudgetRange.Min = &min
	}
	if p.BudgetRange.Max != nil {
		max := *p.BudgetRange.Max
		clone.BudgetRange.Max = &max
	}
	return clone
}

// IsEmpty reports whether nothing has been learned yet.
func (p Profile) IsEmpty() bool {
	return len(p.PreferredCategories) == 0 &&
		len(p.LastSearches) == 0 &&
		p.BudgetRange.Min == nil && p.BudgetRange.Max == nil
}

// Parse decodes a stored profile document. Empty or absent documents
// decode to a fresh profile.
func Parse(data []byte) (Profile, error) {
	p := New()
	if len(data) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return Profile{}, err
	}
	if p.PreferredCategories == nil {
		p.PreferredCategories = []string{}
	}
	if p.LastSearches == nil {
		p.LastSearches = []string{}
	}
	return p, nil
}

// Encode serializes the profile for storage.
func (p Profile) Encode() ([]byte, error) {
	return json.Marshal(p)
}
