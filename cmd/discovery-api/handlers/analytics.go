package handlers

import (
	"encoding/json"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/storely-ai/discovery-engine/internal/observability"
	"github.com/storely-ai/discovery-engine/internal/storage"
)

// AnalyticsHandler serves usage analytics derived from the chat log.
type AnalyticsHandler struct {
	logger   *observability.Logger
	sessions *storage.SessionRepository
	catalog  *storage.CatalogRepository
}

// NewAnalyticsHandler creates a new analytics handler.
func NewAnalyticsHandler(logger *observability.Logger, sessions *storage.SessionRepository, catalog *storage.CatalogRepository) *AnalyticsHandler {
	return &AnalyticsHandler{logger: logger, sessions: sessions, catalog: catalog}
}

// SessionAnalyticsDTO summarizes one session.
type SessionAnalyticsDTO struct {
	Session         SessionDTO `json:"session"`
	TotalMessages   int        `json:"total_messages"`
	UserMessages    int        `json:"user_messages"`
	BotMessages     int        `json:"bot_messages"`
	DurationMinutes float64    `json:"duration_minutes"`
}

// UserSessions handles GET /analytics/users/{userID}/sessions.
func (h *AnalyticsHandler) UserSessions(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id", "")
		return
	}

	sessions, err := h.sessions.ListByUser(r.Context(), userID)
	if err != nil {
		h.logger.WithUser(userID.String()).Error().Err(err).Msg("Failed to list sessions")
		writeError(w, http.StatusInternalServerError, "internal server error", "")
		return
	}

	out := make([]SessionAnalyticsDTO, 0, len(sessions))
	for i := range sessions {
		session := &sessions[i]
		dto := SessionAnalyticsDTO{
			Session:         toSessionDTO(session),
			TotalMessages:   len(session.Messages),
			DurationMinutes: session.UpdatedAt.Sub(session.CreatedAt).Minutes(),
		}
		for _, msg := range session.Messages {
			switch msg.Sender {
			case storage.SenderUser:
				dto.UserMessages++
			case storage.SenderBot:
				dto.BotMessages++
			}
		}
		out = append(out, dto)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sessions":       out,
		"total_sessions": len(out),
	})
}

// PopularProductDTO is one entry in the popular-products ranking.
type PopularProductDTO struct {
	Product  ProductDTO `json:"product"`
	Mentions int        `json:"mentions"`
}

// PopularProducts handles GET /analytics/popular-products: products
// ranked by how often they appeared in bot replies.
func (h *AnalyticsHandler) PopularProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit := queryInt(r, "limit", 10)

	messages, err := h.sessions.BotMessagesWithProducts(ctx)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to load bot messages")
		writeError(w, http.StatusInternalServerError, "internal server error", "")
		return
	}

	mentions := make(map[string]int)
	for _, msg := range messages {
		if msg.ProductsJSON == nil {
			continue
		}
		var products []struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal([]byte(*msg.ProductsJSON), &products); err != nil {
			continue
		}
		for _, p := range products {
			if p.ID != "" {
				mentions[p.ID]++
			}
		}
	}

	type ranked struct {
		id    string
		count int
	}
	ranking := make([]ranked, 0, len(mentions))
	for id, count := range mentions {
		ranking = append(ranking, ranked{id: id, count: count})
	}
	sort.Slice(ranking, func(i, j int) bool {
		if ranking[i].count != ranking[j].count {
			return ranking[i].count > ranking[j].count
		}
		return ranking[i].id < ranking[j].id
	})
	if len(ranking) > limit {
		ranking = ranking[:limit]
	}

	out := make([]PopularProductDTO, 0, len(ranking))
	for _, entry := range ranking {
		id, err := uuid.Parse(entry.id)
		if err != nil {
			continue
		}
		product, err := h.catalog.GetByID(ctx, id)
		if err != nil {
			// Product may have been removed from the catalog since.
			continue
		}
		out = append(out, PopularProductDTO{
			Product:  toProductDTO(*product),
			Mentions: entry.count,
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"popular_products": out,
	})
}
