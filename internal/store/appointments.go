package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// AppointmentRepository persists bookings.
type AppointmentRepository struct {
	db DBTX
}

// NewAppointmentRepository initializes a repo backed by pgx.
func NewAppointmentRepository(db DBTX) *AppointmentRepository {
	if db == nil {
		panic("store: db required")
	}
	return &AppointmentRepository{db: db}
}

// CreateAppointmentParams carries the fields captured during the booking flow.
type CreateAppointmentParams struct {
	UserID       int64
	ServiceID    int64
	ScheduledAt  time.Time
	Address      string
	Complaint    string
	EquipmentBTU string
	Brand        string
}

// Create inserts a new appointment with status open.
func (r *AppointmentRepository) Create(ctx context.Context, p CreateAppointmentParams) (*Appointment, error) {
	query := `
		INSERT INTO appointments (user_id, service_id, scheduled_at, status, address, complaint, equipment_btu, brand)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`
	appt := &Appointment{
		UserID:       p.UserID,
		ServiceID:    p.ServiceID,
		ScheduledAt:  p.ScheduledAt.UTC(),
		Status:       AppointmentOpen,
		Address:      p.Address,
		Complaint:    p.Complaint,
		EquipmentBTU: p.EquipmentBTU,
		Brand:        p.Brand,
	}
	if err := r.db.QueryRow(ctx, query,
		p.UserID,
		p.ServiceID,
		p.ScheduledAt.UTC(),
		string(AppointmentOpen),
		p.Address,
		p.Complaint,
		p.EquipmentBTU,
		p.Brand,
	).Scan(&appt.ID, &appt.CreatedAt); err != nil {
		return nil, fmt.Errorf("store: insert appointment: %w", err)
	}
	return appt, nil
}

// ScheduledBetween returns the UTC timestamps of all non-cancelled
// appointments inside [from, to), any service.
func (r *AppointmentRepository) ScheduledBetween(ctx context.Context, from, to time.Time) ([]time.Time, error) {
	query := `
		SELECT scheduled_at
		FROM appointments
		WHERE status <> $1 AND scheduled_at >= $2 AND scheduled_at < $3
	`
	rows, err := r.db.Query(ctx, query, string(AppointmentCancelled), from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("store: scheduled between: %w", err)
	}
	defer rows.Close()

	var times []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("store: scan scheduled_at: %w", err)
		}
		times = append(times, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: scheduled between: %w", err)
	}
	return times, nil
}

// GetByID loads one appointment.
func (r *AppointmentRepository) GetByID(ctx context.Context, id int64) (*Appointment, error) {
	query := `
		SELECT id, user_id, service_id, scheduled_at, status, created_at,
			COALESCE(address, ''), COALESCE(complaint, ''), COALESCE(equipment_btu, ''), COALESCE(brand, ''),
			assigned_to, completed_by, completed_at
		FROM appointments
		WHERE id = $1
	`
	var a Appointment
	var status string
	if err := r.db.QueryRow(ctx, query, id).Scan(
		&a.ID,
		&a.UserID,
		&a.ServiceID,
		&a.ScheduledAt,
		&status,
		&a.CreatedAt,
		&a.Address,
		&a.Complaint,
		&a.EquipmentBTU,
		&a.Brand,
		&a.AssignedTo,
		&a.CompletedBy,
		&a.CompletedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: select appointment: %w", err)
	}
	a.Status = AppointmentStatus(status)
	return &a, nil
}

// MarkCompleted moves an appointment to completed, recording who closed it.
// Used by the bot's admin shortcut.
func (r *AppointmentRepository) MarkCompleted(ctx context.Context, id int64, completedBy string) error {
	query := `
		UPDATE appointments
		SET status = $2, completed_by = $3, completed_at = now()
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query, id, string(AppointmentCompleted), completedBy)
	if err != nil {
		return fmt.Errorf("store: mark completed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
