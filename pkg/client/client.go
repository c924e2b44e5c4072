// Package client provides the public Go SDK for the Discovery Engine API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Client is the public SDK client for the Discovery Engine.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// ClientConfig holds client configuration.
type ClientConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// NewClient creates a new Discovery Engine client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8090"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &Client{
		baseURL: cfg.BaseURL,
		token:   cfg.Token,
		http:    &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// SetToken sets the bearer token used for authenticated endpoints.
func (c *Client) SetToken(token string) {
	c.token = token
}

// APIError is a non-2xx response from the API.
type APIError struct {
	StatusCode int
	Message    string
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("api error %d: %s (%s)", e.StatusCode, e.Message, e.Detail)
	}
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// ChatRequest represents one chat turn request.
type ChatRequest struct {
	Message     string          `json:"message"`
	SessionID   string          `json:"session_id,omitempty"`
	UserID      string          `json:"user_id,omitempty"`
	Preferences json.RawMessage `json:"preferences,omitempty"`
}

// PriceRange is an extracted price constraint.
type PriceRange struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// Entities holds the extracted entities for a turn.
type Entities struct {
	PriceRange    *PriceRange `json:"price_range"`
	Category      *string     `json:"category"`
	Author        *string     `json:"author"`
	SpecificTerms []string    `json:"specific_terms"`
}

// Product represents a catalog item.
type Product struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Category    string  `json:"category"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
	Rating      float64 `json:"rating"`
	Stock       int     `json:"stock"`
}

// ChatReply is the synthesized reply payload.
type ChatReply struct {
	Message     string    `json:"message"`
	Type        string    `json:"type"`
	Products    []Product `json:"products,omitempty"`
	Suggestions []string  `json:"suggestions,omitempty"`
	Sentiment   string    `json:"sentiment"`
	Entities    Entities  `json:"entities"`
}

// ChatResponse represents one chat turn response.
type ChatResponse struct {
	Response               ChatReply `json:"response"`
	SessionID              string    `json:"session_id"`
	Timestamp              string    `json:"timestamp"`
	UserPreferencesUpdated bool      `json:"user_preferences_updated"`
}

// Chat sends one message through the discovery pipeline.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	var resp ChatResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/chat", nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Message represents a stored chat message.
type Message struct {
	ID          string          `json:"id"`
	Sender      string          `json:"sender"`
	Message     string          `json:"message"`
	Products    json.RawMessage `json:"products,omitempty"`
	Suggestions json.RawMessage `json:"suggestions,omitempty"`
	Timestamp   string          `json:"timestamp"`
}

// Session represents a stored chat session.
type Session struct {
	ID        string    `json:"id"`
	UserID    *string   `json:"user_id"`
	Messages  []Message `json:"messages"`
	CreatedAt string    `json:"created_at"`
	UpdatedAt string    `json:"updated_at"`
}

// CreateSession creates a new empty chat session.
func (c *Client) CreateSession(ctx context.Context) (string, error) {
	var resp struct {
		SessionID string `json:"session_id"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/sessions", nil, map[string]string{}, &resp); err != nil {
		return "", err
	}
	return resp.SessionID, nil
}

// GetSession retrieves a session with its message history.
func (c *Client) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	var resp struct {
		Session Session `json:"session"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/sessions/"+url.PathEscape(sessionID), nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Session, nil
}

// DeleteSession deletes a session and its messages.
func (c *Client) DeleteSession(ctx context.Context, sessionID string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/sessions/"+url.PathEscape(sessionID), nil, nil, nil)
}

// ListProducts lists catalog items, optionally filtered by category.
func (c *Client) ListProducts(ctx context.Context, category string, limit int) ([]Product, error) {
	q := url.Values{}
	if category != "" {
		q.Set("category", category)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	var products []Product
	if err := c.do(ctx, http.MethodGet, "/api/v1/products", q, nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// GetProduct retrieves a single catalog item by ID.
func (c *Client) GetProduct(ctx context.Context, productID string) (*Product, error) {
	var product Product
	if err := c.do(ctx, http.MethodGet, "/api/v1/products/"+url.PathEscape(productID), nil, nil, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

// Categories lists the distinct catalog categories.
func (c *Client) Categories(ctx context.Context) ([]string, error) {
	var resp struct {
		Categories []string `json:"categories"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/categories", nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Categories, nil
}

// SearchParams holds catalog search filters.
type SearchParams struct {
	Query    string
	Category string
	MinPrice *float64
	MaxPrice *float64
	Limit    int
}

// Search searches the catalog directly, outside the chat pipeline.
func (c *Client) Search(ctx context.Context, params SearchParams) ([]Product, error) {
	q := url.Values{}
	if params.Query != "" {
		q.Set("q", params.Query)
	}
	if params.Category != "" {
		q.Set("category", params.Category)
	}
	if params.MinPrice != nil {
		q.Set("min_price", strconv.FormatFloat(*params.MinPrice, 'f', -1, 64))
	}
	if params.MaxPrice != nil {
		q.Set("max_price", strconv.FormatFloat(*params.MaxPrice, 'f', -1, 64))
	}
	if params.Limit > 0 {
		q.Set("limit", strconv.Itoa(params.Limit))
	}

	var resp struct {
		Results []Product `json:"results"`
		Count   int       `json:"count"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/search", q, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// User represents an account.
type User struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Email     string  `json:"email"`
	IsActive  bool    `json:"is_active"`
	LastLogin *string `json:"last_login"`
	CreatedAt string  `json:"created_at"`
}

// AuthResponse represents a signup or login response.
type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Signup registers a new account. On success the client keeps the
// returned token for subsequent calls.
func (c *Client) Signup(ctx context.Context, name, email, password string) (*AuthResponse, error) {
	body := map[string]string{
		"name":            name,
		"email":           email,
		"password":        password,
		"confirmPassword": password,
	}

	var resp AuthResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/signup", nil, body, &resp); err != nil {
		return nil, err
	}
	c.token = resp.Token
	return &resp, nil
}

// Login authenticates an existing account. On success the client keeps
// the returned token for subsequent calls.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	body := map[string]string{
		"email":    email,
		"password": password,
	}

	var resp AuthResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/login", nil, body, &resp); err != nil {
		return nil, err
	}
	c.token = resp.Token
	return &resp, nil
}

// Profile retrieves the authenticated user's account.
func (c *Client) Profile(ctx context.Context) (*User, error) {
	var resp struct {
		User User `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/auth/profile", nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

// HealthResponse represents a health check response.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// Health checks the service health.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.do(ctx, http.MethodGet, "/health", nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// do performs one API round trip and decodes the response into out.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: resp.Status}
		var errBody struct {
			Error  string `json:"error"`
			Detail string `json:"detail"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&errBody); err == nil && errBody.Error != "" {
			apiErr.Message = errBody.Error
			apiErr.Detail = errBody.Detail
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
