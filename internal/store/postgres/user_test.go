package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/teamboard/internal/domain"
)

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewWithPool(mock), mock
}

const insertUser = `INSERT INTO users \(id, username, email, created_at\) VALUES \(\$1, \$2, \$3, \$4\)`
const selectUser = `SELECT id, username, email, created_at FROM users WHERE lower\(email\) = \$1`

func TestUserRepo_Create(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()
	u := &domain.User{ID: "u1", Username: "Ann", Email: "a@x.com", CreatedAt: time.Now().UTC()}

	mock.ExpectExec(insertUser).
		WithArgs(u.ID, u.Username, u.Email, u.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, s.Users().Create(ctx, u))

	mock.ExpectExec(insertUser).
		WithArgs(u.ID, u.Username, u.Email, u.CreatedAt).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	require.ErrorIs(t, s.Users().Create(ctx, u), domain.ErrConflict)

	mock.ExpectExec(insertUser).
		WithArgs(u.ID, u.Username, u.Email, u.CreatedAt).
		WillReturnError(errors.New("connection reset"))
	err := s.Users().Create(ctx, u)
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrConflict)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_GetByEmail(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectQuery(selectUser).
		WithArgs("a@x.com").
		WillReturnRows(pgxmock.NewRows([]string{"id", "username", "email", "created_at"}).
			AddRow("u1", "Ann", "A@x.com", created))
	u, err := s.Users().GetByEmail(ctx, "  A@X.com ")
	require.NoError(t, err)
	assert.Equal(t, &domain.User{ID: "u1", Username: "Ann", Email: "A@x.com", CreatedAt: created}, u)

	mock.ExpectQuery(selectUser).
		WithArgs("b@x.com").
		WillReturnError(pgx.ErrNoRows)
	_, err = s.Users().GetByEmail(ctx, "b@x.com")
	require.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Ping(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectPing()
	require.NoError(t, s.Ping(context.Background()))

	mock.ExpectPing().WillReturnError(errors.New("down"))
	require.Error(t, s.Ping(context.Background()))
}
