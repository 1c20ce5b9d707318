package store

import "time"

// ConversationState is the closed set of per-user dialogue states.
type ConversationState string

const (
	StateAwaitingName              ConversationState = "awaiting_name"
	StateMenu                      ConversationState = "menu"
	StateSelectingService          ConversationState = "selecting_service"
	StateCollectingAddress         ConversationState = "collecting_address"
	StateCollectingComplaint       ConversationState = "collecting_complaint"
	StateCollectingEquipmentRating ConversationState = "collecting_equipment_rating"
	StateCollectingBrand           ConversationState = "collecting_brand"
	StateSelectingDate             ConversationState = "selecting_date"
	StateSelectingTime             ConversationState = "selecting_time"
)

// Valid reports whether s is a known state. The column can hold stale values
// from older deployments, so callers must still handle the unknown case.
func (s ConversationState) Valid() bool {
	switch s {
	case StateAwaitingName, StateMenu, StateSelectingService,
		StateCollectingAddress, StateCollectingComplaint,
		StateCollectingEquipmentRating, StateCollectingBrand,
		StateSelectingDate, StateSelectingTime:
		return true
	}
	return false
}

// InBookingFlow reports whether s is one of the states where scratch fields
// carry meaning.
func (s ConversationState) InBookingFlow() bool {
	switch s {
	case StateSelectingService, StateCollectingAddress, StateCollectingComplaint,
		StateCollectingEquipmentRating, StateCollectingBrand,
		StateSelectingDate, StateSelectingTime:
		return true
	}
	return false
}

// AppointmentStatus enumerates the appointment lifecycle.
type AppointmentStatus string

const (
	AppointmentOpen       AppointmentStatus = "open"
	AppointmentConfirmed  AppointmentStatus = "confirmed"
	AppointmentInProgress AppointmentStatus = "in_progress"
	AppointmentCompleted  AppointmentStatus = "completed"
	AppointmentCancelled  AppointmentStatus = "cancelled"
)

// User is one row per distinct WhatsApp sender.
type User struct {
	ID                int64
	Phone             string
	DisplayName       string
	State             ConversationState
	LastInteractionAt time.Time

	// Scratch fields, populated only while a booking flow is in progress.
	PendingServiceID *int64
	PendingDate      *string
	PendingAddress   *string
	PendingComplaint *string
	PendingBTU       *string
	PendingBrand     *string
}

// ClearScratch drops all transient booking-flow fields.
func (u *User) ClearScratch() {
	u.PendingServiceID = nil
	u.PendingDate = nil
	u.PendingAddress = nil
	u.PendingComplaint = nil
	u.PendingBTU = nil
	u.PendingBrand = nil
}

// Service is a bookable offering, managed by the admin console.
type Service struct {
	ID              int64
	Name            string
	Description     string
	DurationMinutes int
}

// Appointment is a committed booking. ScheduledAt is always stored in UTC;
// local wall-clock conversion happens at the boundaries.
type Appointment struct {
	ID           int64
	UserID       int64
	ServiceID    int64
	ScheduledAt  time.Time
	Status       AppointmentStatus
	CreatedAt    time.Time
	Address      string
	Complaint    string
	EquipmentBTU string
	Brand        string
	AssignedTo   *string
	CompletedBy  *string
	CompletedAt  *time.Time
}

// AdminAccount is a console login backed by a bcrypt hash.
type AdminAccount struct {
	ID           int64
	Username     string
	PasswordHash string
}
