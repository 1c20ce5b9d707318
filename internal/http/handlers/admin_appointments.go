package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	httpmiddleware "github.com/zapagenda/zapagenda/internal/http/middleware"
	"github.com/zapagenda/zapagenda/internal/schedule"
	"github.com/zapagenda/zapagenda/pkg/logging"
)

// AdminAppointmentsHandler exposes the back-office appointment views and the
// assign/complete lifecycle transitions.
type AdminAppointmentsHandler struct {
	db     *sql.DB
	loc    *time.Location
	logger *logging.Logger
}

func NewAdminAppointmentsHandler(db *sql.DB, loc *time.Location, logger *logging.Logger) *AdminAppointmentsHandler {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminAppointmentsHandler{db: db, loc: loc, logger: logger}
}

type appointmentCustomerJSON struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type appointmentServiceJSON struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type appointmentDetailsJSON struct {
	Address      string `json:"address"`
	Complaint    string `json:"complaint"`
	EquipmentBTU string `json:"equipment_btu"`
	Brand        string `json:"brand"`
}

type appointmentJSON struct {
	ID          int64                   `json:"id"`
	Status      string                  `json:"status"`
	Date        string                  `json:"date"`
	Time        string                  `json:"time"`
	CreatedAt   string                  `json:"created_at"`
	Customer    appointmentCustomerJSON `json:"customer"`
	Service     appointmentServiceJSON  `json:"service"`
	Details     appointmentDetailsJSON  `json:"details"`
	AssignedTo  *string                 `json:"assigned_to,omitempty"`
	CompletedBy *string                 `json:"completed_by,omitempty"`
	CompletedAt *string                 `json:"completed_at,omitempty"`
}

const appointmentListQuery = `
	SELECT a.id, a.status, a.scheduled_at, a.created_at,
	       COALESCE(u.display_name, ''), u.phone,
	       s.name, s.description,
	       COALESCE(a.address, ''), COALESCE(a.complaint, ''),
	       COALESCE(a.equipment_btu, ''), COALESCE(a.brand, ''),
	       a.assigned_to, a.completed_by, a.completed_at
	FROM appointments a
	JOIN users u ON u.id = a.user_id
	JOIN services s ON s.id = a.service_id`

// ListOpen handles GET /admin/appointments/open. It returns appointments that
// still need a technician, soonest first.
func (h *AdminAppointmentsHandler) ListOpen(w http.ResponseWriter, r *http.Request) {
	query := appointmentListQuery + `
	WHERE a.status IN ('open', 'confirmed', 'in_progress')
	ORDER BY a.scheduled_at ASC`
	h.list(w, r, query)
}

// ListCompleted handles GET /admin/appointments/completed, most recent first.
func (h *AdminAppointmentsHandler) ListCompleted(w http.ResponseWriter, r *http.Request) {
	query := appointmentListQuery + `
	WHERE a.status = 'completed'
	ORDER BY a.scheduled_at DESC`
	h.list(w, r, query)
}

func (h *AdminAppointmentsHandler) list(w http.ResponseWriter, r *http.Request, query string) {
	rows, err := h.db.QueryContext(r.Context(), query)
	if err != nil {
		h.logger.Error("failed to query appointments", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	appointments := make([]appointmentJSON, 0)
	for rows.Next() {
		var (
			item        appointmentJSON
			scheduledAt time.Time
			createdAt   time.Time
			completedAt sql.NullTime
			assignedTo  sql.NullString
			completedBy sql.NullString
		)
		if err := rows.Scan(
			&item.ID, &item.Status, &scheduledAt, &createdAt,
			&item.Customer.Name, &item.Customer.Phone,
			&item.Service.Name, &item.Service.Description,
			&item.Details.Address, &item.Details.Complaint,
			&item.Details.EquipmentBTU, &item.Details.Brand,
			&assignedTo, &completedBy, &completedAt,
		); err != nil {
			h.logger.Error("failed to scan appointment row", "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		local := scheduledAt.In(h.loc)
		item.Date = local.Format(schedule.DateLayout)
		item.Time = local.Format("15:04")
		item.CreatedAt = createdAt.UTC().Format(time.RFC3339)
		if assignedTo.Valid {
			item.AssignedTo = &assignedTo.String
		}
		if completedBy.Valid {
			item.CompletedBy = &completedBy.String
		}
		if completedAt.Valid {
			ts := completedAt.Time.UTC().Format(time.RFC3339)
			item.CompletedAt = &ts
		}
		appointments = append(appointments, item)
	}
	if err := rows.Err(); err != nil {
		h.logger.Error("failed to iterate appointment rows", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"appointments": appointments})
}

type technicianRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

func (req *technicianRequest) validate() error {
	req.Name = strings.TrimSpace(req.Name)
	req.Phone = strings.TrimSpace(req.Phone)
	if req.Name == "" {
		return errors.New("name is required")
	}
	if req.Phone == "" {
		return errors.New("phone is required")
	}
	return nil
}

// Assign handles POST /admin/appointments/{id}/assign. Only open appointments
// can be assigned; the appointment moves to in_progress.
func (h *AdminAppointmentsHandler) Assign(w http.ResponseWriter, r *http.Request) {
	id, ok := h.appointmentID(w, r)
	if !ok {
		return
	}
	var req technicianRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := req.validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	status, ok := h.currentStatus(w, r, id)
	if !ok {
		return
	}
	if status != "open" {
		http.Error(w, "Appointment is not open for assignment", http.StatusBadRequest)
		return
	}

	_, err := h.db.ExecContext(r.Context(),
		`UPDATE appointments SET status = 'in_progress', assigned_to = $1 WHERE id = $2`,
		req.Name, id)
	if err != nil {
		h.logger.Error("failed to assign appointment", "error", err, "appointment_id", id)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	adminUser, _ := httpmiddleware.AdminUserFromContext(r.Context())
	h.logger.Info("appointment assigned",
		"appointment_id", id, "technician", req.Name, "by", adminUser)
	writeJSON(w, http.StatusOK, map[string]any{
		"message":        "Appointment assigned",
		"appointment_id": id,
		"technician":     req.Name,
		"performed_by":   adminUser,
	})
}

// Complete handles POST /admin/appointments/{id}/complete. A completed
// appointment is final; completing it again is rejected.
func (h *AdminAppointmentsHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.appointmentID(w, r)
	if !ok {
		return
	}
	var req technicianRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := req.validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	status, ok := h.currentStatus(w, r, id)
	if !ok {
		return
	}
	switch status {
	case "open", "in_progress":
	default:
		http.Error(w, "Appointment cannot be completed in its current status", http.StatusBadRequest)
		return
	}

	_, err := h.db.ExecContext(r.Context(),
		`UPDATE appointments SET status = 'completed', completed_by = $1, completed_at = now() WHERE id = $2`,
		req.Name, id)
	if err != nil {
		h.logger.Error("failed to complete appointment", "error", err, "appointment_id", id)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	adminUser, _ := httpmiddleware.AdminUserFromContext(r.Context())
	h.logger.Info("appointment completed",
		"appointment_id", id, "technician", req.Name, "by", adminUser)
	writeJSON(w, http.StatusOK, map[string]any{
		"message":        "Appointment completed",
		"appointment_id": id,
		"technician":     req.Name,
		"performed_by":   adminUser,
	})
}

func (h *AdminAppointmentsHandler) appointmentID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "Invalid appointment ID", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func (h *AdminAppointmentsHandler) currentStatus(w http.ResponseWriter, r *http.Request, id int64) (string, bool) {
	var status string
	err := h.db.QueryRowContext(r.Context(),
		`SELECT status FROM appointments WHERE id = $1`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		http.Error(w, "Appointment not found", http.StatusNotFound)
		return "", false
	}
	if err != nil {
		h.logger.Error("failed to load appointment status", "error", err, "appointment_id", id)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return "", false
	}
	return status, true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
