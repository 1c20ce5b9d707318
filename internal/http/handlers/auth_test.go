package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/zapagenda/zapagenda/internal/store"
)

type fakeAccountStore struct {
	accounts map[string]*store.AdminAccount
	ensured  map[string]string
	err      error
}

func newFakeAccountStore() *fakeAccountStore {
	return &fakeAccountStore{
		accounts: make(map[string]*store.AdminAccount),
		ensured:  make(map[string]string),
	}
}

func (f *fakeAccountStore) GetByUsername(_ context.Context, username string) (*store.AdminAccount, error) {
	if f.err != nil {
		return nil, f.err
	}
	a, ok := f.accounts[username]
	if !ok {
		return nil, store.ErrNotFound
	}
	return a, nil
}

func (f *fakeAccountStore) Ensure(_ context.Context, username, passwordHash string) error {
	if f.err != nil {
		return f.err
	}
	f.ensured[username] = passwordHash
	return nil
}

func postLogin(t *testing.T, h *AuthHandler, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/admin/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.Login(rec, req)
	return rec
}

func TestLoginIssuesToken(t *testing.T) {
	const secret = "test-secret"
	hash, err := bcrypt.GenerateFromPassword([]byte("s3nha"), bcrypt.MinCost)
	require.NoError(t, err)

	accounts := newFakeAccountStore()
	accounts.accounts["admin"] = &store.AdminAccount{ID: 1, Username: "admin", PasswordHash: string(hash)}
	h := NewAuthHandler(accounts, secret, nil)

	rec := postLogin(t, h, loginRequest{Username: "admin", Password: "s3nha"})
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotEmpty(t, body.Token)

	claims := jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(body.Token, &claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	})
	require.NoError(t, err)
	assert.True(t, token.Valid)
	assert.Equal(t, "admin", claims.Subject)
}

func TestLoginRejections(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3nha"), bcrypt.MinCost)
	require.NoError(t, err)

	accounts := newFakeAccountStore()
	accounts.accounts["admin"] = &store.AdminAccount{ID: 1, Username: "admin", PasswordHash: string(hash)}
	h := NewAuthHandler(accounts, "test-secret", nil)

	tests := []struct {
		name     string
		payload  loginRequest
		wantCode int
	}{
		{"wrong password", loginRequest{Username: "admin", Password: "errada"}, http.StatusUnauthorized},
		{"unknown user", loginRequest{Username: "nobody", Password: "s3nha"}, http.StatusUnauthorized},
		{"missing username", loginRequest{Password: "s3nha"}, http.StatusBadRequest},
		{"missing password", loginRequest{Username: "admin"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postLogin(t, h, tt.payload)
			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
}

func TestLoginStoreFailure(t *testing.T) {
	accounts := newFakeAccountStore()
	accounts.err = errors.New("connection refused")
	h := NewAuthHandler(accounts, "test-secret", nil)

	rec := postLogin(t, h, loginRequest{Username: "admin", Password: "s3nha"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestLoginDisabledWithoutSecret(t *testing.T) {
	h := NewAuthHandler(newFakeAccountStore(), "", nil)
	rec := postLogin(t, h, loginRequest{Username: "admin", Password: "s3nha"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestBootstrapAdminAccount(t *testing.T) {
	accounts := newFakeAccountStore()
	require.NoError(t, BootstrapAdminAccount(context.Background(), accounts, "admin", "s3nha", nil))

	hash, ok := accounts.ensured["admin"]
	require.True(t, ok)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3nha")))
}

func TestBootstrapAdminAccountNoCredentials(t *testing.T) {
	accounts := newFakeAccountStore()
	require.NoError(t, BootstrapAdminAccount(context.Background(), accounts, "", "", nil))
	assert.Empty(t, accounts.ensured)
}
