package limiter

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"
)

func newLimiter(t *testing.T) (*PG, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	return NewPGWithQuerier(mock, time.Hour, 3, 24*time.Hour), mock
}

func TestPG_Allow_NoHistory(t *testing.T) {
	l, mock := newLimiter(t)
	defer mock.Close()

	mock.ExpectQuery(`SELECT blocked_until FROM submit_limiter`).
		WithArgs("u1").
		WillReturnError(pgx.ErrNoRows)

	ok, retry, err := l.Allow(context.Background(), "u1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Zero(t, retry)
}

func TestPG_Allow_ExpiredBlock(t *testing.T) {
	l, mock := newLimiter(t)
	defer mock.Close()

	mock.ExpectQuery(`SELECT blocked_until FROM submit_limiter`).
		WithArgs("u1").
		WillReturnRows(pgxmock.NewRows([]string{"blocked_until"}).AddRow(time.Now().Add(-time.Minute)))

	ok, _, err := l.Allow(context.Background(), "u1")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestPG_Allow_ActiveBlock(t *testing.T) {
	l, mock := newLimiter(t)
	defer mock.Close()

	mock.ExpectQuery(`SELECT blocked_until FROM submit_limiter`).
		WithArgs("u1").
		WillReturnRows(pgxmock.NewRows([]string{"blocked_until"}).AddRow(time.Now().Add(time.Hour)))

	ok, retry, err := l.Allow(context.Background(), "u1")
	require.NoError(t, err)
	require.False(t, ok)
	require.Greater(t, retry, 59*time.Minute)
}

func TestPG_Note_UnderCap(t *testing.T) {
	l, mock := newLimiter(t)
	defer mock.Close()

	mock.ExpectQuery(`INSERT INTO submit_limiter`).
		WithArgs("u1", time.Hour).
		WillReturnRows(pgxmock.NewRows([]string{"submit_count"}).AddRow(2))

	blocked, _, err := l.Note(context.Background(), "u1")
	require.NoError(t, err)
	require.False(t, blocked)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPG_Note_CapPlacesBlock(t *testing.T) {
	l, mock := newLimiter(t)
	defer mock.Close()

	mock.ExpectQuery(`INSERT INTO submit_limiter`).
		WithArgs("u1", time.Hour).
		WillReturnRows(pgxmock.NewRows([]string{"submit_count"}).AddRow(3))
	mock.ExpectExec(`UPDATE submit_limiter SET blocked_until=\$2`).
		WithArgs("u1", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	blocked, dur, err := l.Note(context.Background(), "u1")
	require.NoError(t, err)
	require.True(t, blocked)
	require.Equal(t, 24*time.Hour, dur)
	require.NoError(t, mock.ExpectationsWereMet())
}
