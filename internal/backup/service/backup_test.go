package service_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paycore/payroll-backend/internal/backup/repository"
	"github.com/paycore/payroll-backend/internal/backup/service"
	"github.com/paycore/payroll-backend/pkg/actor"
	"github.com/paycore/payroll-backend/pkg/errors"
	"github.com/paycore/payroll-backend/pkg/testutil"
)

type fixedClock struct {
	t time.Time
}

func (c fixedClock) Now(context.Context) time.Time { return c.t }

func newBackupService(t *testing.T) (*service.BackupService, *testutil.Suite, string, string) {
	t.Helper()
	suite := testutil.NewSuite(t)

	dir := t.TempDir()
	dbPath := filepath.Join(dir, "live.db")
	require.NoError(t, os.WriteFile(dbPath, []byte("live database content"), 0o644))

	backupDir := filepath.Join(dir, "backups")
	clock := fixedClock{t: time.Date(2024, 5, 20, 19, 40, 0, 0, time.UTC)}

	svc := service.NewBackupService(
		repository.NewBackupRepository(suite.DB), clock, dbPath, backupDir, suite.Logger)
	return svc, suite, dbPath, backupDir
}

func adminCtx() context.Context {
	return actor.WithActor(context.Background(), &actor.Actor{Username: "admin", Role: actor.RoleAdmin})
}

func operatorCtx() context.Context {
	return actor.WithActor(context.Background(), &actor.Actor{Username: "op", Role: actor.RoleOperator})
}

func TestBackupCreatesSnapshotAndLedgerEntry(t *testing.T) {
	svc, _, _, backupDir := newBackupService(t)

	entry, err := svc.Backup(adminCtx())
	require.NoError(t, err)

	assert.Equal(t, "admin", entry.CreatedBy)
	assert.Equal(t, "2024-05-20 19:40:00", entry.BackupTime)
	assert.Equal(t, filepath.Join(backupDir, "salary_system_20240520_194000.db"), entry.FilePath)
	assert.Equal(t, int64(len("live database content")), entry.Size)

	data, err := os.ReadFile(entry.FilePath)
	require.NoError(t, err)
	assert.Equal(t, "live database content", string(data))

	list, err := svc.List(adminCtx())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, entry.ID, list[0].ID)
}

func TestBackupRequiresAdmin(t *testing.T) {
	svc, _, _, _ := newBackupService(t)

	_, err := svc.Backup(operatorCtx())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrForbidden))

	_, err = svc.Backup(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrUnauthorized))
}

func TestBackupUnderLocalTimeKeepsSnapshot(t *testing.T) {
	svc, suite, _, _ := newBackupService(t)

	suite.Trust.SetLocal(true)

	// The file copy sits outside the write gate; the refused ledger
	// insert must not undo it.
	entry, err := svc.Backup(adminCtx())
	require.NoError(t, err)

	data, err := os.ReadFile(entry.FilePath)
	require.NoError(t, err)
	assert.Equal(t, "live database content", string(data))

	list, err := svc.List(adminCtx())
	require.NoError(t, err)
	assert.Empty(t, list, "the ledger row is best effort under an unverified clock")
}

func TestRestoreWorksUnderLocalTime(t *testing.T) {
	svc, suite, dbPath, _ := newBackupService(t)

	entry, err := svc.Backup(adminCtx())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(dbPath, []byte("corrupted"), 0o644))
	suite.Trust.SetLocal(true)

	require.NoError(t, svc.Restore(adminCtx(), entry.ID))

	data, readErr := os.ReadFile(dbPath)
	require.NoError(t, readErr)
	assert.Equal(t, "live database content", string(data))
}

func TestDeleteRefusedUnderLocalTimeKeepsSnapshot(t *testing.T) {
	svc, suite, _, _ := newBackupService(t)

	entry, err := svc.Backup(adminCtx())
	require.NoError(t, err)

	suite.Trust.SetLocal(true)

	err = svc.Delete(adminCtx(), entry.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrWriteRefused))

	_, statErr := os.Stat(entry.FilePath)
	assert.NoError(t, statErr, "snapshot file must survive a refused delete")
}

func TestRestoreOverwritesLiveFile(t *testing.T) {
	svc, _, dbPath, _ := newBackupService(t)

	entry, err := svc.Backup(adminCtx())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(dbPath, []byte("corrupted"), 0o644))

	require.NoError(t, svc.Restore(adminCtx(), entry.ID))

	data, err := os.ReadFile(dbPath)
	require.NoError(t, err)
	assert.Equal(t, "live database content", string(data))
}

func TestRestoreMissingSnapshotFileFails(t *testing.T) {
	svc, _, _, _ := newBackupService(t)

	entry, err := svc.Backup(adminCtx())
	require.NoError(t, err)

	require.NoError(t, os.Remove(entry.FilePath))

	err = svc.Restore(adminCtx(), entry.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestDeleteRemovesLedgerRowEvenWithoutFile(t *testing.T) {
	svc, _, _, _ := newBackupService(t)

	entry, err := svc.Backup(adminCtx())
	require.NoError(t, err)

	require.NoError(t, os.Remove(entry.FilePath))

	require.NoError(t, svc.Delete(adminCtx(), entry.ID))

	list, err := svc.List(adminCtx())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestDeleteRemovesSnapshotFile(t *testing.T) {
	svc, _, _, _ := newBackupService(t)

	entry, err := svc.Backup(adminCtx())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(adminCtx(), entry.ID))

	_, err = os.Stat(entry.FilePath)
	assert.True(t, os.IsNotExist(err))
}

func TestListRequiresAdmin(t *testing.T) {
	svc, _, _, _ := newBackupService(t)

	_, err := svc.List(operatorCtx())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrForbidden))
}
