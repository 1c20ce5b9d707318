// Package bot owns the per-user conversational state machine.
package bot

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/zapagenda/zapagenda/internal/booking"
	"github.com/zapagenda/zapagenda/internal/observability/metrics"
	"github.com/zapagenda/zapagenda/internal/schedule"
	"github.com/zapagenda/zapagenda/internal/store"
	"github.com/zapagenda/zapagenda/pkg/logging"
)

// Reply is the outbound payload of one turn: one or more message segments,
// rendered to the transport's markup by the webhook handler.
type Reply struct {
	Messages []string
}

func reply(segments ...string) Reply {
	return Reply{Messages: segments}
}

// UserStore loads and persists per-sender records.
type UserStore interface {
	GetByPhone(ctx context.Context, phone string) (*store.User, error)
	Create(ctx context.Context, phone string, state store.ConversationState) (*store.User, error)
	Update(ctx context.Context, u *store.User) error
}

// ServiceStore reads the bookable offerings.
type ServiceStore interface {
	List(ctx context.Context) ([]store.Service, error)
	GetByID(ctx context.Context, id int64) (*store.Service, error)
}

// AppointmentStore is the slice of appointment persistence the admin
// shortcut needs.
type AppointmentStore interface {
	GetByID(ctx context.Context, id int64) (*store.Appointment, error)
	MarkCompleted(ctx context.Context, id int64, completedBy string) error
}

// SlotCalendar recomputes the bookable slots for a date.
type SlotCalendar interface {
	AvailableSlots(ctx context.Context, dateStr string) ([]schedule.Slot, error)
}

// Committer finalizes a booking.
type Committer interface {
	Commit(ctx context.Context, user *store.User, service *store.Service, dateStr string, slotIndex int) (*store.Appointment, error)
}

// Engine executes one turn per inbound message: timeout policy, admin
// shortcut, menu escape, then state dispatch. All collaborators are injected
// so tests run against fakes.
type Engine struct {
	users        UserStore
	services     ServiceStore
	appointments AppointmentStore
	calendar     SlotCalendar
	committer    Committer
	loc          *time.Location
	admins       map[string]struct{}
	idleTimeout  time.Duration
	now          func() time.Time
	logger       *logging.Logger
	metrics      *metrics.BotMetrics
}

// Config wires an Engine.
type Config struct {
	Users        UserStore
	Services     ServiceStore
	Appointments AppointmentStore
	Calendar     SlotCalendar
	Committer    Committer
	Location     *time.Location
	AdminPhones  []string
	IdleTimeout  time.Duration
	Now          func() time.Time
	Logger       *logging.Logger
	Metrics      *metrics.BotMetrics
}

// NewEngine validates the wiring and builds the state machine.
func NewEngine(cfg Config) *Engine {
	if cfg.Users == nil || cfg.Services == nil || cfg.Appointments == nil {
		panic("bot: stores required")
	}
	if cfg.Calendar == nil || cfg.Committer == nil {
		panic("bot: calendar and committer required")
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 900 * time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	admins := make(map[string]struct{}, len(cfg.AdminPhones))
	for _, p := range cfg.AdminPhones {
		if p = strings.TrimSpace(p); p != "" {
			admins[p] = struct{}{}
		}
	}
	return &Engine{
		users:        cfg.Users,
		services:     cfg.Services,
		appointments: cfg.Appointments,
		calendar:     cfg.Calendar,
		committer:    cfg.Committer,
		loc:          cfg.Location,
		admins:       admins,
		idleTimeout:  cfg.IdleTimeout,
		now:          cfg.Now,
		logger:       cfg.Logger,
		metrics:      cfg.Metrics,
	}
}

// HandleMessage processes one inbound message and returns the reply. Every
// inbound message yields a reply; only storage failures bubble up as errors.
func (e *Engine) HandleMessage(ctx context.Context, from, body string) (Reply, error) {
	phone := strings.TrimSpace(from)
	body = strings.TrimSpace(body)
	now := e.now()

	user, err := e.users.GetByPhone(ctx, phone)
	if errors.Is(err, store.ErrNotFound) {
		if _, err := e.users.Create(ctx, phone, store.StateAwaitingName); err != nil {
			return Reply{}, err
		}
		e.metrics.ObserveTurn(string(store.StateAwaitingName), "created")
		return reply(welcomePrompt), nil
	}
	if err != nil {
		return Reply{}, err
	}

	isMenuEscape := strings.EqualFold(body, "menu")

	// Idle timeout: reset to menu unless the user is already asking for it.
	if now.Sub(user.LastInteractionAt) > e.idleTimeout && !isMenuEscape {
		user.State = store.StateMenu
		user.LastInteractionAt = now
		if err := e.users.Update(ctx, user); err != nil {
			return Reply{}, err
		}
		e.metrics.ObserveTurn(string(store.StateMenu), "timeout")
		return reply(timeoutMessage), nil
	}
	user.LastInteractionAt = now

	if out, handled, err := e.adminShortcut(ctx, user, body); handled {
		if err != nil {
			return Reply{}, err
		}
		if uerr := e.users.Update(ctx, user); uerr != nil {
			return Reply{}, uerr
		}
		e.metrics.ObserveTurn(string(user.State), "admin")
		return out, nil
	}

	var out Reply
	if isMenuEscape {
		user.State = store.StateMenu
		out = reply(backToMenu(user.DisplayName))
	} else {
		out, err = e.dispatch(ctx, user, body)
		if err != nil {
			return Reply{}, err
		}
	}

	if err := e.users.Update(ctx, user); err != nil {
		return Reply{}, err
	}
	e.metrics.ObserveTurn(string(user.State), "ok")
	return out, nil
}

// dispatch handles one message according to the current state, mutating the
// user in memory; the caller persists exactly once per turn.
func (e *Engine) dispatch(ctx context.Context, user *store.User, body string) (Reply, error) {
	switch user.State {
	case store.StateAwaitingName:
		user.DisplayName = body
		user.State = store.StateMenu
		return reply(greetingMenu(user.DisplayName)), nil

	case store.StateMenu:
		return e.handleMenu(ctx, user, body)

	case store.StateSelectingService:
		return e.handleServiceSelection(ctx, user, body)

	case store.StateCollectingAddress:
		user.PendingAddress = &body
		user.State = store.StateCollectingComplaint
		return reply(complaintPrompt), nil

	case store.StateCollectingComplaint:
		user.PendingComplaint = &body
		user.State = store.StateCollectingEquipmentRating
		return reply(equipmentPrompt), nil

	case store.StateCollectingEquipmentRating:
		user.PendingBTU = &body
		user.State = store.StateCollectingBrand
		return reply(brandPrompt), nil

	case store.StateCollectingBrand:
		user.PendingBrand = &body
		user.State = store.StateSelectingDate
		return reply(datePrompt), nil

	case store.StateSelectingDate:
		return e.handleDateSelection(ctx, user, body)

	case store.StateSelectingTime:
		return e.handleTimeSelection(ctx, user, body)

	default:
		// Legacy or corrupted state column value.
		e.logger.Warn("unknown conversation state, resetting to menu",
			"phone", user.Phone, "state", string(user.State))
		user.State = store.StateMenu
		return reply(lostStateMessage + "\n\n" + menuOptions), nil
	}
}

func (e *Engine) handleMenu(ctx context.Context, user *store.User, body string) (Reply, error) {
	switch body {
	case "1":
		services, err := e.services.List(ctx)
		if err != nil {
			return Reply{}, err
		}
		return reply(serviceList(services), "Digite '2' para agendar ou 'menu' para voltar."), nil
	case "2":
		services, err := e.services.List(ctx)
		if err != nil {
			return Reply{}, err
		}
		user.State = store.StateSelectingService
		return reply(serviceList(services), "Por favor, digite o *número* do serviço que você deseja agendar."), nil
	default:
		return reply(invalidOptionMessage), nil
	}
}

func (e *Engine) handleServiceSelection(ctx context.Context, user *store.User, body string) (Reply, error) {
	services, err := e.services.List(ctx)
	if err != nil {
		return Reply{}, err
	}
	n, err := strconv.Atoi(body)
	if err != nil || n < 1 || n > len(services) {
		return reply(serviceIndexPrompt), nil
	}
	chosen := services[n-1]
	user.PendingServiceID = &chosen.ID
	user.State = store.StateCollectingAddress
	return reply(serviceChosen(chosen.Name)), nil
}

func (e *Engine) handleDateSelection(ctx context.Context, user *store.User, body string) (Reply, error) {
	slots, err := e.calendar.AvailableSlots(ctx, body)
	if err != nil {
		return Reply{}, err
	}
	if len(slots) == 0 {
		return reply(invalidDateMessage), nil
	}
	dateStr := body
	user.PendingDate = &dateStr
	user.State = store.StateSelectingTime
	return reply(slotList(dateStr, slots)), nil
}

func (e *Engine) handleTimeSelection(ctx context.Context, user *store.User, body string) (Reply, error) {
	if user.PendingServiceID == nil || user.PendingDate == nil {
		// Scratch fields lost; restart the flow rather than guessing.
		user.ClearScratch()
		user.State = store.StateMenu
		return reply(lostStateMessage + "\n\n" + menuOptions), nil
	}
	n, err := strconv.Atoi(body)
	if err != nil {
		return reply(slotIndexPrompt), nil
	}
	service, err := e.services.GetByID(ctx, *user.PendingServiceID)
	if err != nil {
		return Reply{}, err
	}

	appt, err := e.committer.Commit(ctx, user, service, *user.PendingDate, n)
	if err != nil {
		var verr *booking.ValidationError
		if errors.As(err, &verr) {
			return reply(slotIndexPrompt), nil
		}
		// Unexpected commit failure: generic reply, state unchanged so the
		// user can retry the same step.
		e.logger.Error("booking commit failed", "error", err, "phone", user.Phone)
		return reply(commitFailureMessage), nil
	}

	local := appt.ScheduledAt.In(e.loc)
	user.ClearScratch()
	user.State = store.StateMenu
	e.metrics.ObserveBooking()
	return reply(bookingConfirmed(service.Name, local.Format(schedule.DateLayout), local.Format("15:04"))), nil
}

// adminShortcut handles "concluir <id>" from allow-listed numbers. It reports
// handled=true whenever the sender is an admin and the message matches the
// command prefix, regardless of outcome.
func (e *Engine) adminShortcut(ctx context.Context, user *store.User, body string) (Reply, bool, error) {
	if _, ok := e.admins[user.Phone]; !ok {
		return Reply{}, false, nil
	}
	const prefix = "concluir "
	if len(body) < len(prefix) || !strings.EqualFold(body[:len(prefix)], prefix) {
		return Reply{}, false, nil
	}
	arg := strings.TrimSpace(body[len(prefix):])
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return reply(adminUsageHint), true, nil
	}

	if _, err := e.appointments.GetByID(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return reply(adminNotFound(id)), true, nil
		}
		return Reply{}, true, err
	}
	completedBy := user.DisplayName
	if completedBy == "" {
		completedBy = user.Phone
	}
	if err := e.appointments.MarkCompleted(ctx, id, completedBy); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return reply(adminNotFound(id)), true, nil
		}
		return Reply{}, true, err
	}
	e.logger.Info("appointment completed via admin shortcut", "appointment_id", id, "by", user.Phone)
	return reply(adminCompleted(id)), true, nil
}
