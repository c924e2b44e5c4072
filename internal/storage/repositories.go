package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("record conflict")
)

// DB represents a database connection interface.
type DB interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

const productColumns = `id, title, category, price, description, rating, stock, created_at, updated_at`

// CatalogRepository handles catalog item queries. The chat pipeline only
// reads from it; writes come from seeding and the dev-mode seed watcher.
type CatalogRepository struct {
	db DB
}

// NewCatalogRepository creates a new catalog repository.
func NewCatalogRepository(db DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// Upsert inserts a product or replaces an existing row with the same ID.
func (r *CatalogRepository) Upsert(ctx context.Context, product *Product) error {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	now := time.Now()
	if product.CreatedAt.IsZero() {
		product.CreatedAt = now
	}
	product.UpdatedAt = now

	query := `
		INSERT INTO products (id, title, category, price, description, rating, stock, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			title = excluded.title, category = excluded.category, price = excluded.price,
			description = excluded.description, rating = excluded.rating, stock = excluded.stock,
			updated_at = excluded.updated_at
	`
	_, err := r.db.ExecContext(ctx, query,
		product.ID, product.Title, product.Category, product.Price,
		product.Description, product.Rating, product.Stock,
		product.CreatedAt, product.UpdatedAt,
	)
	return err
}

// GetByID retrieves a product by ID.
func (r *CatalogRepository) GetByID(ctx context.Context, id uuid.UUID) (*Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	product := &Product{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&product.ID, &product.Title, &product.Category, &product.Price,
		&product.Description, &product.Rating, &product.Stock,
		&product.CreatedAt, &product.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return product, err
}

// ListAll retrieves the full catalog in insertion order.
// The relevance scorer depends on this order for its tie-break rule.
func (r *CatalogRepository) ListAll(ctx context.Context) ([]Product, error) {
	query := `SELECT ` + productColumns + ` FROM products ORDER BY created_at, id`
	return r.queryProducts(ctx, query)
}

// Filter retrieves products matching the given filter.
func (r *CatalogRepository) Filter(ctx context.Context, f CatalogFilter) ([]Product, error) {
	var (
		conds []string
		args  []interface{}
	)
	next := func() string { return fmt.Sprintf("$%d", len(args)) }

	if f.Category != nil {
		args = append(args, *f.Category)
		conds = append(conds, "category = "+next())
	}
	if f.MinPrice != nil {
		args = append(args, *f.MinPrice)
		conds = append(conds, "price >= "+next())
	}
	if f.MaxPrice != nil {
		args = append(args, *f.MaxPrice)
		conds = append(conds, "price <= "+next())
	}
	if f.Query != nil {
		args = append(args, "%"+strings.ToLower(*f.Query)+"%")
		p := next()
		conds = append(conds, "(LOWER(title) LIKE "+p+" OR LOWER(description) LIKE "+p+")")
	}

	query := `SELECT ` + productColumns + ` FROM products`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY rating DESC"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += " LIMIT " + next()
	}

	return r.queryProducts(ctx, query, args...)
}

// TopRated retrieves the highest-rated products.
func (r *CatalogRepository) TopRated(ctx context.Context, limit int) ([]Product, error) {
	query := `SELECT ` + productColumns + ` FROM products ORDER BY rating DESC LIMIT $1`
	return r.queryProducts(ctx, query, limit)
}

// Cheapest retrieves the lowest-priced products.
func (r *CatalogRepository) Cheapest(ctx context.Context, limit int) ([]Product, error) {
	query := `SELECT ` + productColumns + ` FROM products ORDER BY price ASC LIMIT $1`
	return r.queryProducts(ctx, query, limit)
}

// DistinctCategories retrieves all catalog categories.
func (r *CatalogRepository) DistinctCategories(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT category FROM products ORDER BY category`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		if c != "" {
			categories = append(categories, c)
		}
	}
	return categories, rows.Err()
}

// TopRatedInCategories retrieves highly rated products within the given
// categories and optional price bounds. Used for personalized recommendations.
func (r *CatalogRepository) TopRatedInCategories(ctx context.Context, categories []string, minPrice, maxPrice *float64, minRating float64, limit int) ([]Product, error) {
	var (
		conds []string
		args  []interface{}
	)
	next := func() string { return fmt.Sprintf("$%d", len(args)) }

	if len(categories) > 0 {
		placeholders := make([]string, 0, len(categories))
		for _, c := range categories {
			args = append(args, c)
			placeholders = append(placeholders, next())
		}
		conds = append(conds, "category IN ("+strings.Join(placeholders, ", ")+")")
	}
	if minPrice != nil {
		args = append(args, *minPrice)
		conds = append(conds, "price >= "+next())
	}
	if maxPrice != nil {
		args = append(args, *maxPrice)
		conds = append(conds, "price <= "+next())
	}
	args = append(args, minRating)
	conds = append(conds, "rating >= "+next())

	query := `SELECT ` + productColumns + ` FROM products WHERE ` +
		strings.Join(conds, " AND ") + " ORDER BY rating DESC"
	args = append(args, limit)
	query += " LIMIT " + next()

	return r.queryProducts(ctx, query, args...)
}

func (r *CatalogRepository) queryProducts(ctx context.Context, query string, args ...interface{}) ([]Product, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(
			&p.ID, &p.Title, &p.Category, &p.Price,
			&p.Description, &p.Rating, &p.Stock,
			&p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// SessionRepository handles chat session and message persistence.
type SessionRepository struct {
	db DB
}

// NewSessionRepository creates a new session repository.
func NewSessionRepository(db DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// GetOrCreate returns the session with the given ID, creating it if absent.
// An empty ID creates a fresh session with a generated ID.
func (r *SessionRepository) GetOrCreate(ctx context.Context, id string, userID *uuid.UUID) (*ChatSession, error) {
	if id == "" {
		id = uuid.NewString()
	}

	session := &ChatSession{}
	var nullUser uuid.NullUUID
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, created_at, updated_at FROM chat_sessions WHERE id = $1`, id,
	).Scan(&session.ID, &nullUser, &session.CreatedAt, &session.UpdatedAt)
	if err == nil {
		if nullUser.Valid {
			session.UserID = &nullUser.UUID
		}
		return session, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	now := time.Now()
	session = &ChatSession{ID: id, UserID: userID, CreatedAt: now, UpdatedAt: now}
	var userVal interface{}
	if userID != nil {
		userVal = *userID
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO chat_sessions (id, user_id, created_at, updated_at) VALUES ($1, $2, $3, $4)`,
		id, userVal, now, now,
	)
	if err != nil {
		return nil, err
	}
	return session, nil
}

// AppendMessage appends a message to a session and bumps its updated_at.
func (r *SessionRepository) AppendMessage(ctx context.Context, msg *ChatMessage) error {
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO chat_messages (id, session_id, sender, message, products_json, suggestions_json, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		msg.ID, msg.SessionID, msg.Sender, msg.Message,
		msg.ProductsJSON, msg.SuggestionsJSON, msg.Timestamp,
	)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx,
		`UPDATE chat_sessions SET updated_at = $1 WHERE id = $2`,
		msg.Timestamp, msg.SessionID,
	)
	return err
}

// GetByID retrieves a session, optionally with its messages in order.
func (r *SessionRepository) GetByID(ctx context.Context, id string, withMessages bool) (*ChatSession, error) {
	session := &ChatSession{}
	var nullUser uuid.NullUUID
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, created_at, updated_at FROM chat_sessions WHERE id = $1`, id,
	).Scan(&session.ID, &nullUser, &session.CreatedAt, &session.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if nullUser.Valid {
		session.UserID = &nullUser.UUID
	}

	if withMessages {
		session.Messages, err = r.messagesBySession(ctx, id)
		if err != nil {
			return nil, err
		}
	}
	return session, nil
}

// Delete removes a session and its messages.
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM chat_messages WHERE session_id = $1`, id); err != nil {
		return err
	}
	result, err := r.db.ExecContext(ctx, `DELETE FROM chat_sessions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByUser retrieves all sessions for a user with their messages,
// most recently updated first.
func (r *SessionRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]ChatSession, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, created_at, updated_at FROM chat_sessions
		 WHERE user_id = $1 ORDER BY updated_at DESC`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []ChatSession
	for rows.Next() {
		var s ChatSession
		var nullUser uuid.NullUUID
		if err := rows.Scan(&s.ID, &nullUser, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		if nullUser.Valid {
			s.UserID = &nullUser.UUID
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range sessions {
		sessions[i].Messages, err = r.messagesBySession(ctx, sessions[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return sessions, nil
}

// BotMessagesWithProducts retrieves bot messages that carried product
// payloads, for popular-product analytics.
func (r *SessionRepository) BotMessagesWithProducts(ctx context.Context) ([]ChatMessage, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, session_id, sender, message, products_json, suggestions_json, created_at
		 FROM chat_messages WHERE sender = $1 AND products_json IS NOT NULL`, SenderBot,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessages(rows)
}

func (r *SessionRepository) messagesBySession(ctx context.Context, sessionID string) ([]ChatMessage, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, session_id, sender, message, products_json, suggestions_json, created_at
		 FROM chat_messages WHERE session_id = $1 ORDER BY created_at, id`, sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessages(rows)
}

func scanMessages(rows *sql.Rows) ([]ChatMessage, error) {
	var messages []ChatMessage
	for rows.Next() {
		var m ChatMessage
		if err := rows.Scan(
			&m.ID, &m.SessionID, &m.Sender, &m.Message,
			&m.ProductsJSON, &m.SuggestionsJSON, &m.Timestamp,
		); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// UserRepository handles user accounts and their preference profiles.
type UserRepository struct {
	db DB
}

// NewUserRepository creates a new user repository.
func NewUserRepository(db DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, name, email, password_hash, preferences_json, is_active, last_login, created_at, updated_at`

// Create creates a new user. Returns ErrConflict if the email is taken.
func (r *UserRepository) Create(ctx context.Context, user *User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	user.IsActive = true
	if user.PreferencesJSON == "" {
		user.PreferencesJSON = "{}"
	}

	if existing, err := r.GetByEmail(ctx, user.Email); err == nil && existing != nil {
		return ErrConflict
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		user.ID, user.Name, user.Email, user.PasswordHash, user.PreferencesJSON,
		user.IsActive, user.LastLogin, user.CreatedAt, user.UpdatedAt,
	)
	return err
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// GetByEmail retrieves a user by email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg interface{}) (*User, error) {
	user := &User{}
	var lastLogin sql.NullTime
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.PreferencesJSON,
		&user.IsActive, &lastLogin, &user.CreatedAt, &user.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if lastLogin.Valid {
		user.LastLogin = &lastLogin.Time
	}
	return user, nil
}

// UpdateProfile updates mutable profile fields.
func (r *UserRepository) UpdateProfile(ctx context.Context, id uuid.UUID, name string) error {
	return r.exec(ctx,
		`UPDATE users SET name = $1, updated_at = $2 WHERE id = $3`,
		name, time.Now(), id,
	)
}

// UpdatePassword replaces the stored password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return r.exec(ctx,
		`UPDATE users SET password_hash = $1, updated_at = $2 WHERE id = $3`,
		passwordHash, time.Now(), id,
	)
}

// UpdatePreferences replaces the serialized preference profile.
func (r *UserRepository) UpdatePreferences(ctx context.Context, id uuid.UUID, preferencesJSON string) error {
	return r.exec(ctx,
		`UPDATE users SET preferences_json = $1, updated_at = $2 WHERE id = $3`,
		preferencesJSON, time.Now(), id,
	)
}

// TouchLastLogin records a successful login.
func (r *UserRepository) TouchLastLogin(ctx context.Context, id uuid.UUID) error {
	return r.exec(ctx, `UPDATE users SET last_login = $1 WHERE id = $2`, time.Now(), id)
}

func (r *UserRepository) exec(ctx context.Context, query string, args ...interface{}) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// Repositories bundles all repositories together.
type Repositories struct {
	Catalog  *CatalogRepository
	Sessions *SessionRepository
	Users    *UserRepository
}

// NewRepositories creates all repositories with the given database connection.
func NewRepositories(db DB) *Repositories {
	return &Repositories{
		Catalog:  NewCatalogRepository(db),
		Sessions: NewSessionRepository(db),
		Users:    NewUserRepository(db),
	}
}
