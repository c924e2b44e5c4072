package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/storely-ai/discovery-engine/cmd/discovery-api/middleware"
	"github.com/storely-ai/discovery-engine/internal/observability"
	"github.com/storely-ai/discovery-engine/internal/storage"
)

const minPasswordLength = 6

// AuthHandler handles signup, login and account management.
type AuthHandler struct {
	logger *observability.Logger
	users  *storage.UserRepository
	tokens *middleware.TokenManager
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(logger *observability.Logger, users *storage.UserRepository, tokens *middleware.TokenManager) *AuthHandler {
	return &AuthHandler{logger: logger, users: users, tokens: tokens}
}

// UserDTO is the wire shape of a user account.
type UserDTO struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Email     string  `json:"email"`
	IsActive  bool    `json:"is_active"`
	LastLogin *string `json:"last_login"`
	CreatedAt string  `json:"created_at"`
}

// SignupRequestDTO is the signup request body.
type SignupRequestDTO struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// Signup handles POST /auth/signup.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var dto SignupRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	switch {
	case dto.Name == "":
		writeError(w, http.StatusBadRequest, "Name is required", "")
		return
	case dto.Email == "" || dto.Password == "":
		writeError(w, http.StatusBadRequest, "Email and password are required", "")
		return
	case dto.Password != dto.ConfirmPassword:
		writeError(w, http.StatusBadRequest, "Passwords do not match", "")
		return
	case len(dto.Password) < minPasswordLength:
		writeError(w, http.StatusBadRequest, "Password must be at least 6 characters", "")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(dto.Password), bcrypt.DefaultCost)
	if err != nil {
		h.logger.Error().Err(err).Msg("Password hashing failed")
		writeError(w, http.StatusInternalServerError, "internal server error", "")
		return
	}

	user := &storage.User{
		Name:         dto.Name,
		Email:        dto.Email,
		PasswordHash: string(hash),
	}
	err = h.users.Create(r.Context(), user)
	if errors.Is(err, storage.ErrConflict) {
		writeError(w, http.StatusConflict, "Email already registered", "")
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to create user")
		writeError(w, http.StatusInternalServerError, "internal server error", "")
		return
	}

	token, err := h.tokens.Issue(user.ID, user.Email)
	if err != nil {
		h.logger.Error().Err(err).Msg("Token issue failed")
		writeError(w, http.StatusInternalServerError, "internal server error", "")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Account created successfully",
		"token":   token,
		"user":    toUserDTO(user),
	})
}

// LoginRequestDTO is the login request body.
type LoginRequestDTO struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var dto LoginRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if dto.Email == "" || dto.Password == "" {
		writeError(w, http.StatusBadRequest, "Email and password are required", "")
		return
	}

	user, err := h.users.GetByEmail(r.Context(), dto.Email)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusUnauthorized, "Invalid email or password", "")
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Msg("Login lookup failed")
		writeError(w, http.StatusInternalServerError, "internal server error", "")
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(dto.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "Invalid email or password", "")
		return
	}
	if !user.IsActive {
		writeError(w, http.StatusUnauthorized, "Account is deactivated", "")
		return
	}

	if err := h.users.TouchLastLogin(r.Context(), user.ID); err != nil {
		h.logger.WithUser(user.ID.String()).Warn().Err(err).Msg("Failed to record login")
	}

	token, err := h.tokens.Issue(user.ID, user.Email)
	if err != nil {
		h.logger.Error().Err(err).Msg("Token issue failed")
		writeError(w, http.StatusInternalServerError, "internal server error", "")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Login successful",
		"token":   token,
		"user":    toUserDTO(user),
	})
}

// Profile handles GET /auth/profile.
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]UserDTO{"user": toUserDTO(user)})
}

// UpdateProfileRequestDTO is the profile update body.
type UpdateProfileRequestDTO struct {
	Name string `json:"name"`
}

// UpdateProfile handles PUT /auth/profile.
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	var dto UpdateProfileRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if dto.Name != "" {
		if err := h.users.UpdateProfile(r.Context(), user.ID, dto.Name); err != nil {
			h.logger.WithUser(user.ID.String()).Error().Err(err).Msg("Profile update failed")
			writeError(w, http.StatusInternalServerError, "internal server error", "")
			return
		}
		user.Name = dto.Name
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Profile updated successfully",
		"user":    toUserDTO(user),
	})
}

// ChangePasswordRequestDTO is the change-password body.
type ChangePasswordRequestDTO struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

// ChangePassword handles POST /auth/change-password.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	var dto ChangePasswordRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	switch {
	case dto.CurrentPassword == "" || dto.NewPassword == "" || dto.ConfirmPassword == "":
		writeError(w, http.StatusBadRequest, "All password fields are required", "")
		return
	case dto.NewPassword != dto.ConfirmPassword:
		writeError(w, http.StatusBadRequest, "New passwords do not match", "")
		return
	case len(dto.NewPassword) < minPasswordLength:
		writeError(w, http.StatusBadRequest, "New password must be at least 6 characters", "")
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(dto.CurrentPassword)) != nil {
		writeError(w, http.StatusUnauthorized, "Current password is incorrect", "")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(dto.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		h.logger.Error().Err(err).Msg("Password hashing failed")
		writeError(w, http.StatusInternalServerError, "internal server error", "")
		return
	}
	if err := h.users.UpdatePassword(r.Context(), user.ID, string(hash)); err != nil {
		h.logger.WithUser(user.ID.String()).Error().Err(err).Msg("Password update failed")
		writeError(w, http.StatusInternalServerError, "internal server error", "")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Password changed successfully"})
}

// RefreshToken handles POST /auth/refresh-token.
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	token, err := h.tokens.Issue(user.ID, user.Email)
	if err != nil {
		h.logger.Error().Err(err).Msg("Token issue failed")
		writeError(w, http.StatusInternalServerError, "internal server error", "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// Logout handles POST /auth/logout. Tokens are stateless; invalidation
// is a client-side discard.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logout successful"})
}

func (h *AuthHandler) currentUser(w http.ResponseWriter, r *http.Request) (*storage.User, bool) {
	userID, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required", "")
		return nil, false
	}

	user, err := h.users.GetByID(r.Context(), userID)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "User not found", "")
		return nil, false
	}
	if err != nil {
		h.logger.WithUser(userID.String()).Error().Err(err).Msg("User lookup failed")
		writeError(w, http.StatusInternalServerError, "internal server error", "")
		return nil, false
	}
	return user, true
}

func toUserDTO(user *storage.User) UserDTO {
	dto := UserDTO{
		ID:        user.ID.String(),
		Name:      user.Name,
		Email:     user.Email,
		IsActive:  user.IsActive,
		CreatedAt: user.CreatedAt.UTC().Format(time.RFC3339),
	}
	if user.LastLogin != nil {
		t := user.LastLogin.UTC().Format(time.RFC3339)
		dto.LastLogin = &t
	}
	return dto
}
