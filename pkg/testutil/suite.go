package testutil

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/paycore/payroll-backend/pkg/config"
	"github.com/paycore/payroll-backend/pkg/database"
	"github.com/paycore/payroll-backend/pkg/logger"
	"github.com/stretchr/testify/require"
)

// StubTrust is a controllable TrustState for tests.
type StubTrust struct {
	mu    sync.Mutex
	local bool
}

// SetLocal flips the simulated trust state.
func (s *StubTrust) SetLocal(v bool) {
	s.mu.Lock()
	s.local = v
	s.mu.Unlock()
}

// UsingLocalTime implements database.TrustState.
func (s *StubTrust) UsingLocalTime() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.local
}

// Suite provides a migrated temporary SQLite database for tests. The
// store is an embedded file, so tests run against the real thing instead
// of a container.
type Suite struct {
	DB     *database.DB
	Trust  *StubTrust
	Logger *logger.Logger
}

// NewSuite opens a fresh database under t.TempDir with the schema and
// default seeds applied. The database is closed when the test finishes.
func NewSuite(t *testing.T) *Suite {
	t.Helper()

	cfg := &config.DatabaseConfig{
		Path:        filepath.Join(t.TempDir(), "salary_test.db"),
		BusyTimeout: time.Second,
	}

	trust := &StubTrust{}
	log := logger.New("test", "development")

	db, err := database.New(cfg, trust, log)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.Migrate(context.Background(), "2024-01-01 00:00:00"))

	return &Suite{DB: db, Trust: trust, Logger: log}
}

// Exec runs a raw statement, failing the test on error. Convenience for
// fixture setup.
func (s *Suite) Exec(t *testing.T, query string, args ...interface{}) {
	t.Helper()
	_, err := s.DB.ExecContext(context.Background(), query, args...)
	require.NoError(t, err)
}
