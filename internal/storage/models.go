// Package storage provides database models and repositories for the discovery engine.
package storage

import (
	"time"

	"github.com/google/uuid"
)

// MessageSender identifies who authored a chat message.
type MessageSender string

const (
	SenderUser MessageSender = "user"
	SenderBot  MessageSender = "bot"
)

// Product is a catalog item. Read-only to the chat pipeline.
type Product struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Category    string    `json:"category"`
	Price       float64   `json:"price"`
	Description string    `json:"description"`
	Rating      float64   `json:"rating"`
	Stock       int       `json:"stock"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ChatSession groups the messages of one conversation.
type ChatSession struct {
	ID        string        `json:"id"`
	UserID    *uuid.UUID    `json:"user_id,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
	Messages  []ChatMessage `json:"messages,omitempty"`
}

// ChatMessage is one turn in a session. Immutable once created.
// Bot messages carry the products and suggestions they were rendered with,
// serialized as JSON, so analytics can replay them later.
type ChatMessage struct {
	ID              uuid.UUID     `json:"id"`
	SessionID       string        `json:"session_id"`
	Sender          MessageSender `json:"sender"`
	Message         string        `json:"message"`
	ProductsJSON    *string       `json:"-"`
	SuggestionsJSON *string       `json:"-"`
	Timestamp       time.Time     `json:"timestamp"`
}

// User is a registered shopper. PreferencesJSON holds the serialized
// preference profile; the profile package owns its shape.
type User struct {
	ID              uuid.UUID  `json:"id"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	PasswordHash    string     `json:"-"`
	PreferencesJSON string     `json:"-"`
	IsActive        bool       `json:"is_active"`
	LastLogin       *time.Time `json:"last_login,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// CatalogFilter narrows a catalog query. Nil fields are ignored.
type CatalogFilter struct {
	Category *string
	MinPrice *float64
	MaxPrice *float64
	Query    *string // substring match over title and description
	Limit    int
}

// SessionAnalytics summarizes one session for the analytics endpoints.
type SessionAnalytics struct {
	Session         ChatSession `json:"session"`
	TotalMessages   int         `json:"total_messages"`
	UserMessages    int         `json:"user_messages"`
	BotMessages     int         `json:"bot_messages"`
	DurationMinutes float64     `json:"duration_minutes"`
}
