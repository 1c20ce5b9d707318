// Package notify delivers internal heads-up messages when a booking lands.
package notify

import (
	"context"
	"fmt"

	"github.com/zapagenda/zapagenda/internal/booking"
	"github.com/zapagenda/zapagenda/pkg/logging"
)

// Messenger sends a single text message to a phone-number-like address.
type Messenger interface {
	SendText(ctx context.Context, to, body string) error
}

// Service formats booking notices and sends them to the internal recipient:
// the configured group number when present, otherwise the first admin number.
type Service struct {
	messenger    Messenger
	groupNumber  string
	adminNumbers []string
	logger       *logging.Logger
}

// NewService builds the notification service.
func NewService(messenger Messenger, groupNumber string, adminNumbers []string, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		messenger:    messenger,
		groupNumber:  groupNumber,
		adminNumbers: adminNumbers,
		logger:       logger,
	}
}

var _ booking.Notifier = (*Service)(nil)

// BookingCreated sends the new-booking message. A missing transport or
// recipient is not an error; it is logged and skipped.
func (s *Service) BookingCreated(ctx context.Context, n booking.Notice) error {
	if s.messenger == nil {
		s.logger.Debug("booking notification skipped: no messenger configured")
		return nil
	}
	recipient := s.recipient()
	if recipient == "" {
		s.logger.Debug("booking notification skipped: no recipient configured")
		return nil
	}

	body := fmt.Sprintf(
		"🎉 Novo Agendamento!\n\nCliente: %s\nTelefone: %s\nServiço: %s\nData: %s às %s",
		n.CustomerName,
		n.CustomerPhone,
		n.ServiceName,
		n.ScheduledAt.Format("02/01/2006"),
		n.ScheduledAt.Format("15:04"),
	)
	if err := s.messenger.SendText(ctx, recipient, body); err != nil {
		return fmt.Errorf("notify: booking notification: %w", err)
	}
	s.logger.Info("booking notification sent",
		"appointment_id", n.AppointmentID,
		"recipient", recipient,
	)
	return nil
}

func (s *Service) recipient() string {
	if s.groupNumber != "" {
		return s.groupNumber
	}
	if len(s.adminNumbers) > 0 {
		return s.adminNumbers[0]
	}
	return ""
}
