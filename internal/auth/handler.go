package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/ayush/recipe-catalog/backend/internal/httpx"
	"github.com/ayush/recipe-catalog/backend/internal/models"
)

// UserStore defines the interface for user persistence.
type UserStore interface {
	CreateUser(ctx context.Context, name, email, hashedPassword, role string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	RecordLogin(ctx context.Context, id string) error
	SetOffline(ctx context.Context, id string) error
	UpdatePassword(ctx context.Context, id, hashedPassword string) error
}

// RecipeLister resolves the recipes a user has authored, for the profile view.
type RecipeLister interface {
	ListByCreator(ctx context.Context, userID string) ([]models.Recipe, error)
}

// Handler holds auth-related HTTP handlers.
type Handler struct {
	users       UserStore
	recipes     RecipeLister
	tokens      *Tokens
	adminCode   string
	frontendURL string
}

func NewHandler(users UserStore, recipes RecipeLister, tokens *Tokens, adminCode, frontendURL string) *Handler {
	return &Handler{
		users:       users,
		recipes:     recipes,
		tokens:      tokens,
		adminCode:   adminCode,
		frontendURL: strings.TrimRight(frontendURL, "/"),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Signup creates a new user. Registering as admin requires the process-wide
// admin code.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req models.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Email = normalizeEmail(req.Email)
	if req.Name == "" || req.Email == "" || req.Password == "" {
		httpx.WriteMessage(w, http.StatusBadRequest, "Please provide all fields")
		return
	}

	role := models.RoleUser
	if req.Role == models.RoleAdmin {
		if req.AdminCode != h.adminCode {
			httpx.WriteMessage(w, http.StatusForbidden, "Invalid admin code")
			return
		}
		role = models.RoleAdmin
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		httpx.WriteMessage(w, http.StatusInternalServerError, "Server error")
		return
	}

	user, err := h.users.CreateUser(r.Context(), req.Name, req.Email, string(hashed), role)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			httpx.WriteMessage(w, http.StatusBadRequest, "User already exists")
			return
		}
		log.Error().Err(err).Str("email", req.Email).Msg("signup failed")
		httpx.WriteMessage(w, http.StatusInternalServerError, "Server error")
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "User registered successfully",
		"user": map[string]string{
			"name":  user.Name,
			"email": user.Email,
			"role":  user.Role,
		},
	})
}

// Login verifies credentials and issues a bearer token. Unknown email and
// wrong password produce the same response.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Email = normalizeEmail(req.Email)
	if req.Email == "" || req.Password == "" {
		httpx.WriteMessage(w, http.StatusBadRequest, "Email and password required")
		return
	}

	user, err := h.users.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		httpx.WriteMessage(w, http.StatusBadRequest, "Invalid email or password")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		httpx.WriteMessage(w, http.StatusBadRequest, "Invalid email or password")
		return
	}

	if err := h.users.RecordLogin(r.Context(), user.ID); err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("failed to record login")
		httpx.WriteMessage(w, http.StatusInternalServerError, "Server error")
		return
	}

	token, err := h.tokens.IssueLogin(*user)
	if err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("failed to issue token")
		httpx.WriteMessage(w, http.StatusInternalServerError, "Server error")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Login successful",
		"token":   token,
	})
}

// Logout clears the caller's online flag. Idempotent; an absent user row is a
// no-op.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFrom(r.Context())
	if !ok {
		httpx.WriteMessage(w, http.StatusUnauthorized, "Invalid token.")
		return
	}

	if err := h.users.SetOffline(r.Context(), claims.UserID); err != nil {
		log.Error().Err(err).Str("user_id", claims.UserID).Msg("logout failed")
		httpx.WriteMessage(w, http.StatusInternalServerError, "Server error")
		return
	}

	httpx.WriteMessage(w, http.StatusOK, "Logged out successfully")
}

// ListUsers returns every account without password hashes. Admin only.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.ListUsers(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("list users failed")
		httpx.WriteMessage(w, http.StatusInternalServerError, "Server error")
		return
	}
	if users == nil {
		users = []models.User{}
	}
	httpx.WriteJSON(w, http.StatusOK, users)
}

// Me returns the caller's own record plus the recipes they authored.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFrom(r.Context())
	if !ok {
		httpx.WriteMessage(w, http.StatusUnauthorized, "Invalid token.")
		return
	}

	user, err := h.users.GetUserByID(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			httpx.WriteMessage(w, http.StatusNotFound, "User not found")
			return
		}
		log.Error().Err(err).Str("user_id", claims.UserID).Msg("profile lookup failed")
		httpx.WriteMessage(w, http.StatusInternalServerError, "Server error")
		return
	}

	recipes, err := h.recipes.ListByCreator(r.Context(), claims.UserID)
	if err != nil {
		log.Error().Err(err).Str("user_id", claims.UserID).Msg("profile recipes lookup failed")
		httpx.WriteMessage(w, http.StatusInternalServerError, "Server error")
		return
	}
	if recipes == nil {
		recipes = []models.Recipe{}
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"user":    user,
		"recipes": recipes,
	})
}

// ForgotPassword issues a short-lived reset token and returns the reset link.
// Delivery of the link is the caller's concern.
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req models.ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Email = normalizeEmail(req.Email)

	user, err := h.users.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			httpx.WriteMessage(w, http.StatusNotFound, "User not found")
			return
		}
		log.Error().Err(err).Str("email", req.Email).Msg("forgot-password lookup failed")
		httpx.WriteMessage(w, http.StatusInternalServerError, "Server error")
		return
	}

	token, err := h.tokens.IssueReset(user.ID)
	if err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("failed to issue reset token")
		httpx.WriteMessage(w, http.StatusInternalServerError, "Server error")
		return
	}

	resetLink := h.frontendURL + "/reset-password?token=" + url.QueryEscape(token) + "&email=" + url.QueryEscape(user.Email)
	httpx.WriteJSON(w, http.StatusOK, map[string]string{
		"message":   "Reset link generated",
		"resetLink": resetLink,
	})
}

// ResetPassword replaces the password hash after verifying the reset token
// and that its embedded user still owns the supplied email.
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req models.ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Email = normalizeEmail(req.Email)
	if req.Email == "" || req.Token == "" || req.NewPassword == "" {
		httpx.WriteMessage(w, http.StatusBadRequest, "Email, token, and new password are required")
		return
	}

	claims, err := h.tokens.Verify(req.Token)
	if err != nil {
		httpx.WriteMessage(w, http.StatusBadRequest, "Invalid or expired token")
		return
	}

	// A valid token reused with a different mailbox must not reset anything.
	user, err := h.users.GetUserByID(r.Context(), claims.UserID)
	if err != nil || user.Email != req.Email {
		httpx.WriteMessage(w, http.StatusNotFound, "User not found or email mismatch")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		httpx.WriteMessage(w, http.StatusInternalServerError, "Server error")
		return
	}
	if err := h.users.UpdatePassword(r.Context(), user.ID, string(hashed)); err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("password reset failed")
		httpx.WriteMessage(w, http.StatusInternalServerError, "Server error")
		return
	}

	httpx.WriteMessage(w, http.StatusOK, "Password reset successful")
}
