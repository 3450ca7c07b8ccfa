package database_test

import (
	"context"
	"regexp"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paycore/payroll-backend/pkg/database"
	"github.com/paycore/payroll-backend/pkg/errors"
	"github.com/paycore/payroll-backend/pkg/logger"
)

type stubTrust struct {
	mu    sync.Mutex
	local bool
}

func (s *stubTrust) set(v bool) {
	s.mu.Lock()
	s.local = v
	s.mu.Unlock()
}

func (s *stubTrust) UsingLocalTime() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.local
}

func newGatedMock(t *testing.T) (*database.DB, sqlmock.Sqlmock, *stubTrust) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { raw.Close() })

	trust := &stubTrust{}
	db := database.NewWithDB(sqlx.NewDb(raw, "sqlite3"), trust, logger.New("test", "development"))
	return db, mock, trust
}

func TestExecRefusedUnderLocalTime(t *testing.T) {
	db, mock, trust := newGatedMock(t)
	trust.set(true)

	// No expectations registered: a single statement reaching the driver
	// fails the test.
	_, err := db.ExecContext(context.Background(),
		"INSERT INTO salaries (emp_id, month) VALUES (?, ?)", "EMP20240101000000", "2024-01")

	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrWriteRefused))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReadsPassUnderLocalTime(t *testing.T) {
	db, mock, trust := newGatedMock(t)
	trust.set(true)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM employees")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	var count int
	err := db.GetContext(context.Background(), &count, "SELECT COUNT(*) FROM employees")

	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRefusedWholesaleUnderLocalTime(t *testing.T) {
	db, mock, trust := newGatedMock(t)
	trust.set(true)

	called := false
	err := db.Transaction(context.Background(), func(tx *sqlx.Tx) error {
		called = true
		return nil
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrWriteRefused))
	assert.False(t, called, "transaction body must not run when refused")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWritesResumeAfterTrustRestored(t *testing.T) {
	db, mock, trust := newGatedMock(t)

	trust.set(true)
	_, err := db.ExecContext(context.Background(), "DELETE FROM expenses WHERE id = ?", 1)
	require.Error(t, err)

	trust.set(false)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM expenses WHERE id = ?")).
		WithArgs(1).
		WillReturnResult(sqlmock.NewResult(0, 1))

	_, err = db.ExecContext(context.Background(), "DELETE FROM expenses WHERE id = ?", 1)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
