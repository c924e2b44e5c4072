package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/storely-ai/discovery-engine/internal/cache"
	"github.com/storely-ai/discovery-engine/internal/observability"
	"github.com/storely-ai/discovery-engine/internal/storage"
)

// ProductsHandler serves catalog reads. Category and top-rated listings
// are cached briefly since they back every category_search turn.
type ProductsHandler struct {
	logger   *observability.Logger
	catalog  *storage.CatalogRepository
	cache    cache.Client
	cacheTTL time.Duration
}

// NewProductsHandler creates a new products handler.
func NewProductsHandler(logger *observability.Logger, catalog *storage.CatalogRepository, cacheClient cache.Client, cacheTTL time.Duration) *ProductsHandler {
	return &ProductsHandler{
		logger:   logger,
		catalog:  catalog,
		cache:    cacheClient,
		cacheTTL: cacheTTL,
	}
}

// ProductDTO is the wire shape of a catalog product.
type ProductDTO struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Category    string  `json:"category"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
	Rating      float64 `json:"rating"`
	Stock       int     `json:"stock"`
}

// List handles GET /products with optional category and limit.
func (h *ProductsHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := storage.CatalogFilter{Limit: queryInt(r, "limit", 10)}
	if category := r.URL.Query().Get("category"); category != "" {
		filter.Category = &category
	}

	products, err := h.catalog.Filter(r.Context(), filter)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list products")
		writeError(w, http.StatusInternalServerError, "internal server error", "")
		return
	}
	writeJSON(w, http.StatusOK, toProductDTOs(products))
}

// Get handles GET /products/{productID}.
func (h *ProductsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "productID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid product id", "")
		return
	}

	product, err := h.catalog.GetByID(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "product not found", "")
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to load product")
		writeError(w, http.StatusInternalServerError, "internal server error", "")
		return
	}
	writeJSON(w, http.StatusOK, toProductDTO(*product))
}

// Categories handles GET /categories.
func (h *ProductsHandler) Categories(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key := cache.CatalogCacheKey("categories")

	if cached, err := h.cache.Get(ctx, key); err == nil {
		var categories []string
		if json.Unmarshal(cached, &categories) == nil {
			writeJSON(w, http.StatusOK, map[string][]string{"categories": categories})
			return
		}
	}

	categories, err := h.catalog.DistinctCategories(ctx)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list categories")
		writeError(w, http.StatusInternalServerError, "internal server error", "")
		return
	}
	if categories == nil {
		categories = []string{}
	}

	if data, err := json.Marshal(categories); err == nil {
		if err := h.cache.Set(ctx, key, data, h.cacheTTL); err != nil {
			h.logger.Warn().Err(err).Msg("Failed to cache categories")
		}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"categories": categories})
}

// Search handles GET /search with q, category, min_price, max_price, limit.
func (h *ProductsHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := storage.CatalogFilter{Limit: queryInt(r, "limit", 10)}

	if q := query.Get("q"); q != "" {
		filter.Query = &q
	}
	if category := query.Get("category"); category != "" {
		filter.Category = &category
	}
	if raw := query.Get("min_price"); raw != "" {
		min, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid min_price", "")
			return
		}
		filter.MinPrice = &min
	}
	if raw := query.Get("max_price"); raw != "" {
		max, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid max_price", "")
			return
		}
		filter.MaxPrice = &max
	}

	products, err := h.catalog.Filter(r.Context(), filter)
	if err != nil {
		h.logger.Error().Err(err).Msg("Search failed")
		writeError(w, http.StatusInternalServerError, "internal server error", "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"results": toProductDTOs(products),
		"count":   len(products),
	})
}

func toProductDTO(p storage.Product) ProductDTO {
	return ProductDTO{
		ID:          p.ID.String(),
		Title:       p.Title,
		Category:    p.Category,
		Price:       p.Price,
		Description: p.Description,
		Rating:      p.Rating,
		Stock:       p.Stock,
	}
}

func toProductDTOs(products []storage.Product) []ProductDTO {
	dtos := make([]ProductDTO, 0, len(products))
	for _, p := range products {
		dtos = append(dtos, toProductDTO(p))
	}
	return dtos
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
