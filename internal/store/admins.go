package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// AdminAccountRepository manages console logins.
type AdminAccountRepository struct {
	db DBTX
}

// NewAdminAccountRepository initializes a repo backed by pgx.
func NewAdminAccountRepository(db DBTX) *AdminAccountRepository {
	if db == nil {
		panic("store: db required")
	}
	return &AdminAccountRepository{db: db}
}

// Ensure creates the account if no row with that username exists. Existing
// accounts are left untouched so a redeploy never rotates a password.
func (r *AdminAccountRepository) Ensure(ctx context.Context, username, passwordHash string) error {
	query := `
		INSERT INTO admin_accounts (username, password_hash)
		VALUES ($1, $2)
		ON CONFLICT (username) DO NOTHING
	`
	if _, err := r.db.Exec(ctx, query, username, passwordHash); err != nil {
		return fmt.Errorf("store: ensure admin account: %w", err)
	}
	return nil
}

// GetByUsername loads one account.
func (r *AdminAccountRepository) GetByUsername(ctx context.Context, username string) (*AdminAccount, error) {
	query := `SELECT id, username, password_hash FROM admin_accounts WHERE username = $1`
	var a AdminAccount
	if err := r.db.QueryRow(ctx, query, username).Scan(&a.ID, &a.Username, &a.PasswordHash); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: select admin account: %w", err)
	}
	return &a, nil
}
