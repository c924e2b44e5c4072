// Package catalog loads the book catalog from seed files and keeps the
// store in sync with the seed during development.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/storely-ai/discovery-engine/internal/storage"
)

// SeedItem is one catalog entry in a seed file. ID is optional; items
// without one get a stable ID derived from the title so re-seeding
// updates rather than duplicates.
type SeedItem struct {
	ID          string  `json:"id,omitempty"`
	Title       string  `json:"title"`
	Category    string  `json:"category"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
	Rating      float64 `json:"rating"`
	Stock       int     `json:"stock"`
}

// seedNamespace scopes title-derived IDs.
var seedNamespace = uuid.MustParse("2f9c5a4e-8f11-4d8a-9a6b-3d2f1c0b7e55")

// LoadSeedFile reads and validates a JSON seed file.
func LoadSeedFile(path string) ([]storage.Product, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return ParseSeed(data)
}

// ParseSeed decodes seed JSON into catalog products.
func ParseSeed(data []byte) ([]storage.Product, error) {
	var items []SeedItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}

	products := make([]storage.Product, 0, len(items))
	for i, item := range items {
		if item.Title == "" {
			return nil, fmt.Errorf("seed item %d: missing title", i)
		}
		if item.Price < 0 {
			return nil, fmt.Errorf("seed item %d (%s): negative price", i, item.Title)
		}

		id := uuid.NewSHA1(seedNamespace, []byte(item.Title))
		if item.ID != "" {
			parsed, err := uuid.Parse(item.ID)
			if err != nil {
				return nil, fmt.Errorf("seed item %d (%s): invalid id: %w", i, item.Title, err)
			}
			id = parsed
		}

		products = append(products, storage.Product{
			ID:          id,
			Title:       item.Title,
			Category:    item.Category,
			Price:       item.Price,
			Description: item.Description,
			Rating:      item.Rating,
			Stock:       item.Stock,
		})
	}
	return products, nil
}

// CatalogWriter is the store surface seeding needs.
type CatalogWriter interface {
	Upsert(ctx context.Context, product *storage.Product) error
}

// Seed upserts every product from a seed file into the store. The
// progress callback, when non-nil, is invoked after each item.
func Seed(ctx context.Context, store CatalogWriter, path string, progress func(done, total int)) (int, error) {
	products, err := LoadSeedFile(path)
	if err != nil {
		return 0, err
	}

	for i := range products {
		if err := store.Upsert(ctx, &products[i]); err != nil {
			return i, fmt.Errorf("upsert %q: %w", products[i].Title, err)
		}
		if progress != nil {
			progress(i+1, len(products))
		}
	}
	return len(products), nil
}
