package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// UserRepository persists per-sender conversation records.
type UserRepository struct {
	db DBTX
}

// NewUserRepository initializes a repo backed by pgx.
func NewUserRepository(db DBTX) *UserRepository {
	if db == nil {
		panic("store: db required")
	}
	return &UserRepository{db: db}
}

const userColumns = `id, phone, COALESCE(display_name, ''), conversation_state, last_interaction_at,
	pending_service_id, pending_date, pending_address, pending_complaint, pending_btu, pending_brand`

// GetByPhone loads a user by its unique phone number.
func (r *UserRepository) GetByPhone(ctx context.Context, phone string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE phone = $1`
	row := r.db.QueryRow(ctx, query, phone)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: select user: %w", err)
	}
	return u, nil
}

// Create inserts a new user in the given initial state.
func (r *UserRepository) Create(ctx context.Context, phone string, state ConversationState) (*User, error) {
	query := `
		INSERT INTO users (phone, conversation_state, last_interaction_at)
		VALUES ($1, $2, now())
		RETURNING id, last_interaction_at
	`
	u := &User{Phone: phone, State: state}
	if err := r.db.QueryRow(ctx, query, phone, string(state)).Scan(&u.ID, &u.LastInteractionAt); err != nil {
		return nil, fmt.Errorf("store: insert user: %w", err)
	}
	return u, nil
}

// Update writes back every mutable column, scratch fields included.
func (r *UserRepository) Update(ctx context.Context, u *User) error {
	query := `
		UPDATE users SET
			display_name = $2,
			conversation_state = $3,
			last_interaction_at = $4,
			pending_service_id = $5,
			pending_date = $6,
			pending_address = $7,
			pending_complaint = $8,
			pending_btu = $9,
			pending_brand = $10
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query,
		u.ID,
		u.DisplayName,
		string(u.State),
		u.LastInteractionAt,
		u.PendingServiceID,
		u.PendingDate,
		u.PendingAddress,
		u.PendingComplaint,
		u.PendingBTU,
		u.PendingBrand,
	)
	if err != nil {
		return fmt.Errorf("store: update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (*User, error) {
	var u User
	var state string
	var lastInteraction time.Time
	if err := row.Scan(
		&u.ID,
		&u.Phone,
		&u.DisplayName,
		&state,
		&lastInteraction,
		&u.PendingServiceID,
		&u.PendingDate,
		&u.PendingAddress,
		&u.PendingComplaint,
		&u.PendingBTU,
		&u.PendingBrand,
	); err != nil {
		return nil, err
	}
	u.State = ConversationState(state)
	u.LastInteractionAt = lastInteraction
	return &u, nil
}
