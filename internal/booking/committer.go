// Package booking validates and persists a completed booking flow.
package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/zapagenda/zapagenda/internal/schedule"
	"github.com/zapagenda/zapagenda/internal/store"
	"github.com/zapagenda/zapagenda/pkg/logging"
)

// ValidationError marks user-correctable commit failures (bad slot index,
// unparsable date). The state machine turns them into a re-prompt.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "booking: " + e.Reason
}

// Notice describes a committed booking for the internal notification.
type Notice struct {
	AppointmentID int64
	CustomerName  string
	CustomerPhone string
	ServiceName   string
	ScheduledAt   time.Time // local wall-clock time
}

// Notifier announces a committed booking. Delivery is best-effort; errors are
// logged by the committer and never affect the commit.
type Notifier interface {
	BookingCreated(ctx context.Context, n Notice) error
}

// AppointmentCreator persists the new appointment row.
type AppointmentCreator interface {
	Create(ctx context.Context, p store.CreateAppointmentParams) (*store.Appointment, error)
}

// SlotResolver recomputes the slot list for a date.
type SlotResolver interface {
	AvailableSlots(ctx context.Context, dateStr string) ([]schedule.Slot, error)
}

// Committer turns a validated (user, service, date, slot index) tuple into a
// stored appointment plus a fire-and-forget internal notification.
type Committer struct {
	appointments AppointmentCreator
	calendar     SlotResolver
	notifier     Notifier
	logger       *logging.Logger

	notifyTimeout time.Duration
}

// NewCommitter wires the committer. notifier may be nil when no outbound
// transport is configured.
func NewCommitter(appointments AppointmentCreator, calendar SlotResolver, notifier Notifier, logger *logging.Logger) *Committer {
	if appointments == nil {
		panic("booking: appointment creator required")
	}
	if calendar == nil {
		panic("booking: calendar required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Committer{
		appointments:  appointments,
		calendar:      calendar,
		notifier:      notifier,
		logger:        logger,
		notifyTimeout: 10 * time.Second,
	}
}

// Commit re-resolves slotIndex against a freshly computed slot list for
// dateStr, converts the chosen local time to UTC, and persists the
// appointment with the intake fields captured on the user's scratch columns.
// The slot list shown to the user earlier may have drifted; an index that no
// longer resolves is a *ValidationError so the user can pick again.
func (c *Committer) Commit(ctx context.Context, user *store.User, service *store.Service, dateStr string, slotIndex int) (*store.Appointment, error) {
	slots, err := c.calendar.AvailableSlots(ctx, dateStr)
	if err != nil {
		return nil, fmt.Errorf("booking: resolve slots: %w", err)
	}
	if slotIndex < 1 || slotIndex > len(slots) {
		return nil, &ValidationError{Reason: fmt.Sprintf("slot index %d not in 1..%d for %s", slotIndex, len(slots), dateStr)}
	}
	slot := slots[slotIndex-1]

	appt, err := c.appointments.Create(ctx, store.CreateAppointmentParams{
		UserID:       user.ID,
		ServiceID:    service.ID,
		ScheduledAt:  slot.Start.UTC(),
		Address:      deref(user.PendingAddress),
		Complaint:    deref(user.PendingComplaint),
		EquipmentBTU: deref(user.PendingBTU),
		Brand:        deref(user.PendingBrand),
	})
	if err != nil {
		return nil, err
	}

	c.dispatchNotification(Notice{
		AppointmentID: appt.ID,
		CustomerName:  user.DisplayName,
		CustomerPhone: user.Phone,
		ServiceName:   service.Name,
		ScheduledAt:   slot.Start,
	})

	return appt, nil
}

// dispatchNotification sends the internal heads-up without blocking the turn.
// Failures are observed only through the log.
func (c *Committer) dispatchNotification(n Notice) {
	if c.notifier == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.notifyTimeout)
		defer cancel()
		if err := c.notifier.BookingCreated(ctx, n); err != nil {
			c.logger.Warn("booking notification failed",
				"error", err,
				"appointment_id", n.AppointmentID,
				"customer_phone", n.CustomerPhone,
			)
		}
	}()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
