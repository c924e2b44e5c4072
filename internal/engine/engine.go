// Package engine orchestrates one chat turn: session bookkeeping, the
// NLP stages, preference learning and response synthesis.
package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/storely-ai/discovery-engine/internal/config"
	"github.com/storely-ai/discovery-engine/internal/nlp"
	"github.com/storely-ai/discovery-engine/internal/observability"
	"github.com/storely-ai/discovery-engine/internal/profile"
	"github.com/storely-ai/discovery-engine/internal/storage"
)

// CatalogStore is the read-only catalog surface the engine consumes.
type CatalogStore interface {
	ListAll(ctx context.Context) ([]storage.Product, error)
	Filter(ctx context.Context, f storage.CatalogFilter) ([]storage.Product, error)
	TopRated(ctx context.Context, limit int) ([]storage.Product, error)
	Cheapest(ctx context.Context, limit int) ([]storage.Product, error)
	DistinctCategories(ctx context.Context) ([]string, error)
	TopRatedInCategories(ctx context.Context, categories []string, minPrice, maxPrice *float64, minRating float64, limit int) ([]storage.Product, error)
}

// SessionStore persists chat sessions and their messages.
type SessionStore interface {
	GetOrCreate(ctx context.Context, id string, userID *uuid.UUID) (*storage.ChatSession, error)
	AppendMessage(ctx context.Context, msg *storage.ChatMessage) error
}

// ProfileStore reads and writes server-persisted preference profiles.
// Optional: when nil, only caller-supplied preferences are used.
type ProfileStore interface {
	GetPreferences(ctx context.Context, userID uuid.UUID) (profile.Profile, error)
	SavePreferences(ctx context.Context, userID uuid.UUID, p profile.Profile) error
}

// Request is one inbound chat turn.
type Request struct {
	Message     string
	SessionID   string
	UserID      *uuid.UUID
	Preferences *profile.Profile
}

// ProductView is the wire shape of a catalog item inside a response.
type ProductView struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Category    string  `json:"category"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
	Rating      float64 `json:"rating"`
	Stock       int     `json:"stock"`
}

// Response is the synthesized reply payload for one turn.
type Response struct {
	Message            string           `json:"message"`
	Type               string           `json:"type"`
	Products           []ProductView    `json:"products,omitempty"`
	Suggestions        []string         `json:"suggestions,omitempty"`
	Sentiment          nlp.Sentiment    `json:"sentiment"`
	Entities           nlp.Entities     `json:"entities"`
	LearnedPreferences *profile.Profile `json:"learned_preferences,omitempty"`
}

// Response types.
const (
	TypeText        = "text"
	TypeProduct     = "product"
	TypeSuggestions = "suggestions"
)

// Result is the outcome of one processed turn.
type Result struct {
	Response           Response
	SessionID          string
	PreferencesUpdated bool
}

// Engine runs the discovery pipeline. All turn processing is sequential
// and request-scoped; the only shared state is behind the stores and the
// per-user profile lock.
type Engine struct {
	catalog  CatalogStore
	sessions SessionStore
	profiles ProfileStore
	locks    *profile.KeyedMutex
	logger   *observability.Logger
	cfg      config.ChatConfig
}

// New creates an engine. profiles may be nil when server-side profile
// persistence is disabled.
func New(catalog CatalogStore, sessions SessionStore, profiles ProfileStore, logger *observability.Logger, cfg config.ChatConfig) *Engine {
	return &Engine{
		catalog:  catalog,
		sessions: sessions,
		profiles: profiles,
		locks:    profile.NewKeyedMutex(),
		logger:   logger,
		cfg:      cfg,
	}
}

// Process runs one chat turn: session get-or-create, user message
// append, classification/extraction/sentiment, preference learning,
// response synthesis and bot message append. Store failures propagate;
// no-match outcomes never error.
func (e *Engine) Process(ctx context.Context, req Request) (*Result, error) {
	session, err := e.sessions.GetOrCreate(ctx, req.SessionID, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("get or create session: %w", err)
	}

	userMsg := &storage.ChatMessage{
		SessionID: session.ID,
		Sender:    storage.SenderUser,
		Message:   req.Message,
	}
	if err := e.sessions.AppendMessage(ctx, userMsg); err != nil {
		return nil, fmt.Errorf("append user message: %w", err)
	}

	entities := nlp.ExtractEntities(req.Message)
	sentiment := nlp.EstimateSentiment(req.Message)
	intent := nlp.ClassifyIntent(req.Message)

	e.logger.WithSession(session.ID).Debug().
		Str("intent", string(intent)).
		Str("sentiment", string(sentiment)).
		Msg("Classified message")

	learned, err := e.learn(ctx, req, entities)
	if err != nil {
		return nil, err
	}

	response, err := e.synthesize(ctx, session.ID, req.Message, intent, entities, sentiment, learned.effective)
	if err != nil {
		return nil, fmt.Errorf("synthesize response: %w", err)
	}
	response.Sentiment = sentiment
	response.Entities = entities
	if learned.changed {
		updated := learned.updated
		response.LearnedPreferences = &updated
	}

	botMsg := &storage.ChatMessage{
		SessionID: session.ID,
		Sender:    storage.SenderBot,
		Message:   response.Message,
	}
	if len(response.Products) > 0 {
		data, err := json.Marshal(response.Products)
		if err != nil {
			return nil, fmt.Errorf("marshal products: %w", err)
		}
		s := string(data)
		botMsg.ProductsJSON = &s
	}
	if len(response.Suggestions) > 0 {
		data, err := json.Marshal(response.Suggestions)
		if err != nil {
			return nil, fmt.Errorf("marshal suggestions: %w", err)
		}
		s := string(data)
		botMsg.SuggestionsJSON = &s
	}
	if err := e.sessions.AppendMessage(ctx, botMsg); err != nil {
		return nil, fmt.Errorf("append bot message: %w", err)
	}

	return &Result{
		Response:           response,
		SessionID:          session.ID,
		PreferencesUpdated: response.LearnedPreferences != nil,
	}, nil
}

type learnOutcome struct {
	effective *profile.Profile
	updated   profile.Profile
	changed   bool
}

// learn resolves the profile for this turn (caller-supplied first, then
// server-persisted), applies the learning rules and persists the result
// for authenticated users. The read-modify-write is serialized per user.
func (e *Engine) learn(ctx context.Context, req Request, entities nlp.Entities) (learnOutcome, error) {
	switch {
	case req.Preferences != nil:
		updated, changed := profile.Learn(*req.Preferences, req.Message, entities, e.cfg.MaxRecentSearches)
		return learnOutcome{effective: &updated, updated: updated, changed: changed}, nil

	case req.UserID != nil && e.profiles != nil:
		key := req.UserID.String()
		e.locks.Lock(key)
		defer e.locks.Unlock(key)

		current, err := e.profiles.GetPreferences(ctx, *req.UserID)
		if err != nil {
			return learnOutcome{}, fmt.Errorf("load preferences: %w", err)
		}
		updated, changed := profile.Learn(current, req.Message, entities, e.cfg.MaxRecentSearches)
		if changed {
			if err := e.profiles.SavePreferences(ctx, *req.UserID, updated); err != nil {
				return learnOutcome{}, fmt.Errorf("save preferences: %w", err)
			}
		}
		return learnOutcome{effective: &updated, updated: updated, changed: changed}, nil

	default:
		return learnOutcome{}, nil
	}
}

func toViews(products []storage.Product) []ProductView {
	views := make([]ProductView, len(products))
	for i, p := range products {
		views[i] = ProductView{
			ID:          p.ID.String(),
			Title:       p.Title,
			Category:    p.Category,
			Price:       p.Price,
			Description: p.Description,
			Rating:      p.Rating,
			Stock:       p.Stock,
		}
	}
	return views
}
