package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// ServiceRepository reads the bookable offerings. Services are managed by the
// admin console; the bot only lists them.
type ServiceRepository struct {
	db DBTX
}

// NewServiceRepository initializes a repo backed by pgx.
func NewServiceRepository(db DBTX) *ServiceRepository {
	if db == nil {
		panic("store: db required")
	}
	return &ServiceRepository{db: db}
}

// List returns all services in insertion order. The bot's numbered menus
// depend on this ordering being stable.
func (r *ServiceRepository) List(ctx context.Context) ([]Service, error) {
	query := `
		SELECT id, name, COALESCE(description, ''), duration_minutes
		FROM services
		ORDER BY id
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("store: list services: %w", err)
	}
	defer rows.Close()

	var services []Service
	for rows.Next() {
		var s Service
		if err := rows.Scan(&s.ID, &s.Name, &s.Description, &s.DurationMinutes); err != nil {
			return nil, fmt.Errorf("store: scan service: %w", err)
		}
		services = append(services, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list services: %w", err)
	}
	return services, nil
}

// GetByID loads one service.
func (r *ServiceRepository) GetByID(ctx context.Context, id int64) (*Service, error) {
	query := `
		SELECT id, name, COALESCE(description, ''), duration_minutes
		FROM services
		WHERE id = $1
	`
	var s Service
	if err := r.db.QueryRow(ctx, query, id).Scan(&s.ID, &s.Name, &s.Description, &s.DurationMinutes); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: select service: %w", err)
	}
	return &s, nil
}
