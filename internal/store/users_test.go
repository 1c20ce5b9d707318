package store

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUserRepoMock(t *testing.T) (*UserRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewUserRepository(mock), mock
}

var userTestColumns = []string{
	"id", "phone", "display_name", "conversation_state", "last_interaction_at",
	"pending_service_id", "pending_date", "pending_address", "pending_complaint", "pending_btu", "pending_brand",
}

func TestGetByPhone(t *testing.T) {
	repo, mock := newUserRepoMock(t)
	last := time.Date(2025, 12, 20, 12, 0, 0, 0, time.UTC)
	serviceID := int64(2)
	date := "25/12/2025"

	mock.ExpectQuery("SELECT .+ FROM users WHERE phone").
		WithArgs("+5511999990000").
		WillReturnRows(pgxmock.NewRows(userTestColumns).
			AddRow(int64(1), "+5511999990000", "Maria", "selecting_time", last,
				&serviceID, &date, (*string)(nil), (*string)(nil), (*string)(nil), (*string)(nil)))

	u, err := repo.GetByPhone(context.Background(), "+5511999990000")
	require.NoError(t, err)

	assert.Equal(t, int64(1), u.ID)
	assert.Equal(t, "Maria", u.DisplayName)
	assert.Equal(t, StateSelectingTime, u.State)
	require.NotNil(t, u.PendingServiceID)
	assert.Equal(t, int64(2), *u.PendingServiceID)
	require.NotNil(t, u.PendingDate)
	assert.Equal(t, "25/12/2025", *u.PendingDate)
	assert.Nil(t, u.PendingAddress)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByPhoneNotFound(t *testing.T) {
	repo, mock := newUserRepoMock(t)

	mock.ExpectQuery("SELECT .+ FROM users WHERE phone").
		WithArgs("+5511999990000").
		WillReturnRows(pgxmock.NewRows(userTestColumns))

	_, err := repo.GetByPhone(context.Background(), "+5511999990000")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateUser(t *testing.T) {
	repo, mock := newUserRepoMock(t)
	created := time.Date(2025, 12, 20, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery("INSERT INTO users").
		WithArgs("+5511999990000", "awaiting_name").
		WillReturnRows(pgxmock.NewRows([]string{"id", "last_interaction_at"}).AddRow(int64(5), created))

	u, err := repo.Create(context.Background(), "+5511999990000", StateAwaitingName)
	require.NoError(t, err)

	assert.Equal(t, int64(5), u.ID)
	assert.Equal(t, StateAwaitingName, u.State)
	assert.Equal(t, created, u.LastInteractionAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateUser(t *testing.T) {
	repo, mock := newUserRepoMock(t)
	last := time.Date(2025, 12, 20, 12, 0, 0, 0, time.UTC)
	u := &User{
		ID:                1,
		Phone:             "+5511999990000",
		DisplayName:       "Maria",
		State:             StateMenu,
		LastInteractionAt: last,
	}

	mock.ExpectExec("UPDATE users SET").
		WithArgs(u.ID, u.DisplayName, "menu", last,
			(*int64)(nil), (*string)(nil), (*string)(nil), (*string)(nil), (*string)(nil), (*string)(nil)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, repo.Update(context.Background(), u))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateUserMissingRow(t *testing.T) {
	repo, mock := newUserRepoMock(t)
	u := &User{ID: 99, Phone: "+5511999990000", State: StateMenu}

	mock.ExpectExec("UPDATE users SET").
		WithArgs(u.ID, "", "menu", u.LastInteractionAt,
			(*int64)(nil), (*string)(nil), (*string)(nil), (*string)(nil), (*string)(nil), (*string)(nil)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	assert.ErrorIs(t, repo.Update(context.Background(), u), ErrNotFound)
}
