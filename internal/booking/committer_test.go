package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zapagenda/zapagenda/internal/schedule"
	"github.com/zapagenda/zapagenda/internal/store"
)

type stubCalendar struct {
	slots []schedule.Slot
	err   error
}

func (s *stubCalendar) AvailableSlots(context.Context, string) ([]schedule.Slot, error) {
	return s.slots, s.err
}

type recordingCreator struct {
	params store.CreateAppointmentParams
	appt   *store.Appointment
	err    error
}

func (r *recordingCreator) Create(_ context.Context, p store.CreateAppointmentParams) (*store.Appointment, error) {
	r.params = p
	if r.err != nil {
		return nil, r.err
	}
	return r.appt, nil
}

type channelNotifier struct {
	notices chan Notice
	err     error
}

func (c *channelNotifier) BookingCreated(_ context.Context, n Notice) error {
	c.notices <- n
	return c.err
}

func saoPaulo(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)
	return loc
}

func testSlots(loc *time.Location) []schedule.Slot {
	return []schedule.Slot{
		{Index: 1, Label: "09:00", Start: time.Date(2025, 12, 25, 9, 0, 0, 0, loc)},
		{Index: 2, Label: "10:00", Start: time.Date(2025, 12, 25, 10, 0, 0, 0, loc)},
		{Index: 3, Label: "11:00", Start: time.Date(2025, 12, 25, 11, 0, 0, 0, loc)},
	}
}

func testUser() *store.User {
	addr := "Rua A, 123"
	btu := "12000"
	return &store.User{
		ID:             42,
		Phone:          "+5511999990000",
		DisplayName:    "Maria",
		PendingAddress: &addr,
		PendingBTU:     &btu,
	}
}

func TestCommitPersistsUTC(t *testing.T) {
	loc := saoPaulo(t)
	creator := &recordingCreator{appt: &store.Appointment{ID: 7}}
	c := NewCommitter(creator, &stubCalendar{slots: testSlots(loc)}, nil, nil)

	appt, err := c.Commit(context.Background(), testUser(), &store.Service{ID: 2, Name: "Instalação"}, "25/12/2025", 3)

	require.NoError(t, err)
	assert.Equal(t, int64(7), appt.ID)
	assert.Equal(t, int64(42), creator.params.UserID)
	assert.Equal(t, int64(2), creator.params.ServiceID)
	// 11:00 in São Paulo is 14:00 UTC.
	assert.Equal(t, time.Date(2025, 12, 25, 14, 0, 0, 0, time.UTC), creator.params.ScheduledAt)
	assert.Equal(t, time.UTC, creator.params.ScheduledAt.Location())
	assert.Equal(t, "Rua A, 123", creator.params.Address)
	assert.Equal(t, "12000", creator.params.EquipmentBTU)
	assert.Empty(t, creator.params.Brand)
}

func TestCommitRejectsStaleSlotIndex(t *testing.T) {
	loc := saoPaulo(t)
	creator := &recordingCreator{}
	c := NewCommitter(creator, &stubCalendar{slots: testSlots(loc)}, nil, nil)

	for _, index := range []int{0, -1, 4} {
		_, err := c.Commit(context.Background(), testUser(), &store.Service{ID: 2}, "25/12/2025", index)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr, "index %d", index)
	}
	assert.Zero(t, creator.params.UserID, "no appointment should be created")
}

func TestCommitCalendarFailure(t *testing.T) {
	c := NewCommitter(&recordingCreator{}, &stubCalendar{err: errors.New("db down")}, nil, nil)

	_, err := c.Commit(context.Background(), testUser(), &store.Service{ID: 2}, "25/12/2025", 1)

	require.Error(t, err)
	var verr *ValidationError
	assert.False(t, errors.As(err, &verr))
}

func TestCommitCreateFailure(t *testing.T) {
	loc := saoPaulo(t)
	creator := &recordingCreator{err: errors.New("insert failed")}
	notifier := &channelNotifier{notices: make(chan Notice, 1)}
	c := NewCommitter(creator, &stubCalendar{slots: testSlots(loc)}, notifier, nil)

	_, err := c.Commit(context.Background(), testUser(), &store.Service{ID: 2}, "25/12/2025", 1)

	require.Error(t, err)
	select {
	case <-notifier.notices:
		t.Fatal("no notification expected on failed commit")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCommitDispatchesNotification(t *testing.T) {
	loc := saoPaulo(t)
	creator := &recordingCreator{appt: &store.Appointment{ID: 7}}
	notifier := &channelNotifier{notices: make(chan Notice, 1)}
	c := NewCommitter(creator, &stubCalendar{slots: testSlots(loc)}, notifier, nil)

	_, err := c.Commit(context.Background(), testUser(), &store.Service{ID: 2, Name: "Instalação"}, "25/12/2025", 2)
	require.NoError(t, err)

	select {
	case n := <-notifier.notices:
		assert.Equal(t, int64(7), n.AppointmentID)
		assert.Equal(t, "Maria", n.CustomerName)
		assert.Equal(t, "+5511999990000", n.CustomerPhone)
		assert.Equal(t, "Instalação", n.ServiceName)
		// The notice carries the local wall-clock time.
		assert.Equal(t, time.Date(2025, 12, 25, 10, 0, 0, 0, loc), n.ScheduledAt)
	case <-time.After(time.Second):
		t.Fatal("notification not dispatched")
	}
}

func TestCommitNotificationFailureIsSwallowed(t *testing.T) {
	loc := saoPaulo(t)
	creator := &recordingCreator{appt: &store.Appointment{ID: 7}}
	notifier := &channelNotifier{notices: make(chan Notice, 1), err: errors.New("twilio 500")}
	c := NewCommitter(creator, &stubCalendar{slots: testSlots(loc)}, notifier, nil)

	appt, err := c.Commit(context.Background(), testUser(), &store.Service{ID: 2}, "25/12/2025", 1)

	require.NoError(t, err)
	assert.Equal(t, int64(7), appt.ID)
	select {
	case <-notifier.notices:
	case <-time.After(time.Second):
		t.Fatal("notification not attempted")
	}
}

func TestCommitWithoutNotifier(t *testing.T) {
	loc := saoPaulo(t)
	creator := &recordingCreator{appt: &store.Appointment{ID: 7}}
	c := NewCommitter(creator, &stubCalendar{slots: testSlots(loc)}, nil, nil)

	_, err := c.Commit(context.Background(), testUser(), &store.Service{ID: 2}, "25/12/2025", 1)
	assert.NoError(t, err)
}
