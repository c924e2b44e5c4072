package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/storely-ai/discovery-engine/internal/observability"
	"github.com/storely-ai/discovery-engine/internal/storage"
)

// SessionsHandler handles chat session management.
type SessionsHandler struct {
	logger   *observability.Logger
	sessions *storage.SessionRepository
}

// NewSessionsHandler creates a new sessions handler.
func NewSessionsHandler(logger *observability.Logger, sessions *storage.SessionRepository) *SessionsHandler {
	return &SessionsHandler{logger: logger, sessions: sessions}
}

// SessionDTO is the wire shape of a chat session.
type SessionDTO struct {
	ID        string       `json:"id"`
	UserID    *string      `json:"user_id"`
	CreatedAt string       `json:"created_at"`
	UpdatedAt string       `json:"updated_at"`
	Messages  []MessageDTO `json:"messages"`
}

// MessageDTO is the wire shape of one chat message.
type MessageDTO struct {
	ID          string          `json:"id"`
	Sender      string          `json:"sender"`
	Message     string          `json:"message"`
	Products    json.RawMessage `json:"products,omitempty"`
	Suggestions json.RawMessage `json:"suggestions,omitempty"`
	Timestamp   string          `json:"timestamp"`
}

// Create handles POST /sessions.
func (h *SessionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var userID *uuid.UUID
	if id, ok := userFromRequest(r); ok {
		userID = &id
	}

	session, err := h.sessions.GetOrCreate(r.Context(), "", userID)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to create session")
		writeError(w, http.StatusInternalServerError, "internal server error", "")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"session_id": session.ID})
}

// Get handles GET /sessions/{sessionID}.
func (h *SessionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	session, err := h.sessions.GetByID(r.Context(), sessionID, true)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "session not found", "")
		return
	}
	if err != nil {
		h.logger.WithSession(sessionID).Error().Err(err).Msg("Failed to load session")
		writeError(w, http.StatusInternalServerError, "internal server error", "")
		return
	}

	writeJSON(w, http.StatusOK, map[string]SessionDTO{"session": toSessionDTO(session)})
}

// Delete handles DELETE /sessions/{sessionID}.
func (h *SessionsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	err := h.sessions.Delete(r.Context(), sessionID)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "session not found", "")
		return
	}
	if err != nil {
		h.logger.WithSession(sessionID).Error().Err(err).Msg("Failed to delete session")
		writeError(w, http.StatusInternalServerError, "internal server error", "")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Session deleted successfully"})
}

func toSessionDTO(session *storage.ChatSession) SessionDTO {
	dto := SessionDTO{
		ID:        session.ID,
		CreatedAt: session.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: session.UpdatedAt.UTC().Format(time.RFC3339),
		Messages:  make([]MessageDTO, 0, len(session.Messages)),
	}
	if session.UserID != nil {
		id := session.UserID.String()
		dto.UserID = &id
	}
	for _, msg := range session.Messages {
		m := MessageDTO{
			ID:        msg.ID.String(),
			Sender:    string(msg.Sender),
			Message:   msg.Message,
			Timestamp: msg.Timestamp.UTC().Format(time.RFC3339),
		}
		if msg.ProductsJSON != nil {
			m.Products = json.RawMessage(*msg.ProductsJSON)
		}
		if msg.SuggestionsJSON != nil {
			m.Suggestions = json.RawMessage(*msg.SuggestionsJSON)
		}
		dto.Messages = append(dto.Messages, m)
	}
	return dto
}
