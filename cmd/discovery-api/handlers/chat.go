// Package handlers provides HTTP handlers for the discovery API.
package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/storely-ai/discovery-engine/cmd/discovery-api/middleware"
	"github.com/storely-ai/discovery-engine/internal/engine"
	"github.com/storely-ai/discovery-engine/internal/observability"
	"github.com/storely-ai/discovery-engine/internal/profile"
)

// ChatHandler handles chat turns.
type ChatHandler struct {
	logger *observability.Logger
	engine *engine.Engine
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(logger *observability.Logger, eng *engine.Engine) *ChatHandler {
	return &ChatHandler{logger: logger, engine: eng}
}

// ChatRequestDTO is the chat API request body.
type ChatRequestDTO struct {
	Message     string          `json:"message"`
	SessionID   string          `json:"session_id,omitempty"`
	UserID      string          `json:"user_id,omitempty"`
	Preferences json.RawMessage `json:"preferences,omitempty"`
	Timestamp   string          `json:"timestamp,omitempty"`
}

// ChatResponseDTO is the chat API response body.
type ChatResponseDTO struct {
	Response               engine.Response `json:"response"`
	SessionID              string          `json:"session_id"`
	Timestamp              string          `json:"timestamp"`
	UserPreferencesUpdated bool            `json:"user_preferences_updated"`
}

// Chat handles POST /chat.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var dto ChatRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if dto.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required", "")
		return
	}

	req := engine.Request{
		Message:   dto.Message,
		SessionID: dto.SessionID,
	}

	// Authenticated user wins over a user_id in the body.
	if userID, ok := middleware.UserFromContext(ctx); ok {
		req.UserID = &userID
	} else if dto.UserID != "" {
		if userID, err := uuid.Parse(dto.UserID); err == nil {
			req.UserID = &userID
		}
	}

	// A present preferences object, even an empty one, opts the caller
	// into request-scoped learning.
	if len(dto.Preferences) > 0 && !bytes.Equal(bytes.TrimSpace(dto.Preferences), []byte("null")) {
		prefs, err := profile.Parse(dto.Preferences)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid preferences", err.Error())
			return
		}
		req.Preferences = &prefs
	}

	result, err := h.engine.Process(ctx, req)
	if err != nil {
		h.logger.WithSession(dto.SessionID).Error().Err(err).Msg("Chat turn failed")
		writeError(w, http.StatusInternalServerError, "internal server error", "")
		return
	}

	timestamp := dto.Timestamp
	if timestamp == "" {
		timestamp = time.Now().UTC().Format(time.RFC3339)
	}

	writeJSON(w, http.StatusOK, ChatResponseDTO{
		Response:               result.Response,
		SessionID:              result.SessionID,
		Timestamp:              timestamp,
		UserPreferencesUpdated: result.PreferencesUpdated,
	})
}

func userFromRequest(r *http.Request) (uuid.UUID, bool) {
	return middleware.UserFromContext(r.Context())
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message, detail string) {
	resp := map[string]string{"error": message}
	if detail != "" {
		resp["detail"] = detail
	}
	writeJSON(w, status, resp)
}
