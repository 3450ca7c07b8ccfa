package service

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/paycore/payroll-backend/internal/backup/repository"
	"github.com/paycore/payroll-backend/pkg/actor"
	"github.com/paycore/payroll-backend/pkg/errors"
	"github.com/paycore/payroll-backend/pkg/logger"
)

const snapshotTimeLayout = "20060102_150405"

// Clock resolves the current trusted time.
type Clock interface {
	Now(ctx context.Context) time.Time
}

// BackupService snapshots the live data file and keeps a ledger of the
// snapshots. The file copy runs outside the write gate: a snapshot must
// be takeable even under an unverified clock. Only the ledger row goes
// through the gated gateway.
type BackupService struct {
	repo   *repository.BackupRepository
	clock  Clock
	dbPath string
	dir    string
	logger *logger.Logger
}

// NewBackupService creates a new backup service
func NewBackupService(repo *repository.BackupRepository, clock Clock, dbPath, dir string, log *logger.Logger) *BackupService {
	return &BackupService{
		repo:   repo,
		clock:  clock,
		dbPath: dbPath,
		dir:    dir,
		logger: log.WithComponent("backup"),
	}
}

func copyFile(src, dst string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return 0, err
	}
	defer out.Close()

	n, err := io.Copy(out, in)
	if err != nil {
		return 0, err
	}
	return n, out.Sync()
}

// Backup copies the live data file into the snapshot directory and
// appends a ledger entry. Administrator only.
func (s *BackupService) Backup(ctx context.Context) (*repository.Backup, error) {
	a, err := actor.RequireAdmin(ctx)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "BACKUP_FAILED", "failed to create backup directory", 500)
	}

	now := s.clock.Now(ctx)
	name := "salary_system_" + now.Format(snapshotTimeLayout) + ".db"
	dst := filepath.Join(s.dir, name)

	size, err := copyFile(s.dbPath, dst)
	if err != nil {
		return nil, errors.Wrap(err, "BACKUP_FAILED", "failed to copy data file", 500)
	}

	entry := &repository.Backup{
		BackupTime: now.Format("2006-01-02 15:04:05"),
		FilePath:   dst,
		Size:       size,
		CreatedBy:  a.Username,
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		if !errors.Is(err, errors.ErrWriteRefused) {
			os.Remove(dst)
			return nil, err
		}
		// The snapshot stands on its own; the ledger row is best effort
		// and a refused insert under an unverified clock must not undo
		// the copy.
		s.logger.Warn().Str("file", dst).Msg("snapshot kept without ledger entry, writes are disabled")
		return entry, nil
	}

	s.logger.Info().Int64("id", entry.ID).Str("file", dst).Int64("size", size).Msg("backup created")
	return entry, nil
}

// Restore overwrites the live data file with the named snapshot. The
// caller is expected to restart the process afterwards; open connections
// keep reading the pre-restore pages. Administrator only.
func (s *BackupService) Restore(ctx context.Context, id int64) error {
	if _, err := actor.RequireAdmin(ctx); err != nil {
		return err
	}

	entry, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if _, err := os.Stat(entry.FilePath); err != nil {
		return errors.NotFound("backup file")
	}

	if _, err := copyFile(entry.FilePath, s.dbPath); err != nil {
		return errors.Wrap(err, "RESTORE_FAILED", "failed to restore data file", 500)
	}

	s.logger.Info().Int64("id", id).Str("file", entry.FilePath).Msg("backup restored")
	return nil
}

// Delete removes a snapshot's ledger entry, and its file when it still
// exists. A missing file does not block the ledger cleanup.
func (s *BackupService) Delete(ctx context.Context, id int64) error {
	if _, err := actor.RequireAdmin(ctx); err != nil {
		return err
	}

	entry, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	// Ledger first: if the gated delete is refused, the snapshot file is
	// untouched and the ledger stays consistent.
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	if err := os.Remove(entry.FilePath); err != nil && !os.IsNotExist(err) {
		s.logger.Warn().Err(err).Str("file", entry.FilePath).Msg("failed to remove backup file")
	}

	s.logger.Info().Int64("id", id).Msg("backup deleted")
	return nil
}

// List returns the snapshot ledger. Administrator only.
func (s *BackupService) List(ctx context.Context) ([]*repository.Backup, error) {
	if _, err := actor.RequireAdmin(ctx); err != nil {
		return nil, err
	}
	return s.repo.List(ctx)
}
