package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/zapagenda/zapagenda/internal/store"
	"github.com/zapagenda/zapagenda/pkg/logging"
)

const adminTokenTTL = 12 * time.Hour

// AdminAccountStore is the slice of the account repository the login flow needs.
type AdminAccountStore interface {
	GetByUsername(ctx context.Context, username string) (*store.AdminAccount, error)
	Ensure(ctx context.Context, username, passwordHash string) error
}

// AuthHandler issues admin JWTs against bcrypt-hashed console accounts.
type AuthHandler struct {
	accounts  AdminAccountStore
	jwtSecret string
	now       func() time.Time
	logger    *logging.Logger
}

func NewAuthHandler(accounts AdminAccountStore, jwtSecret string, logger *logging.Logger) *AuthHandler {
	if accounts == nil {
		panic("handlers: accounts required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &AuthHandler{
		accounts:  accounts,
		jwtSecret: jwtSecret,
		now:       time.Now,
		logger:    logger,
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login handles POST /admin/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if h.jwtSecret == "" {
		http.Error(w, "admin auth disabled", http.StatusServiceUnavailable)
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		http.Error(w, "Username and password are required", http.StatusBadRequest)
		return
	}

	account, err := h.accounts.GetByUsername(r.Context(), req.Username)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}
	if err != nil {
		h.logger.Error("failed to load admin account", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.Password)) != nil {
		h.logger.Warn("admin login rejected", "username", req.Username)
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	now := h.now()
	claims := jwt.RegisteredClaims{
		Subject:   account.Username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(adminTokenTTL)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(h.jwtSecret))
	if err != nil {
		h.logger.Error("failed to sign admin token", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	h.logger.Info("admin login", "username", account.Username)
	writeJSON(w, http.StatusOK, map[string]any{
		"token":      token,
		"expires_at": claims.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// BootstrapAdminAccount hashes the configured password and creates the account
// if it does not exist yet. With no credentials configured it is a no-op.
func BootstrapAdminAccount(ctx context.Context, accounts AdminAccountStore, username, password string, logger *logging.Logger) error {
	if username == "" || password == "" {
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := accounts.Ensure(ctx, username, string(hash)); err != nil {
		return err
	}
	if logger != nil {
		logger.Info("admin account ensured", "username", username)
	}
	return nil
}
