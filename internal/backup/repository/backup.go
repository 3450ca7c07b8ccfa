package repository

import (
	"context"
	"database/sql"

	"github.com/paycore/payroll-backend/pkg/database"
	"github.com/paycore/payroll-backend/pkg/errors"
)

// Backup is one ledger entry describing a full-file snapshot.
type Backup struct {
	ID         int64  `db:"id" json:"id"`
	BackupTime string `db:"backup_time" json:"backup_time"`
	FilePath   string `db:"file_path" json:"file_path"`
	Size       int64  `db:"size" json:"size"`
	CreatedBy  string `db:"created_by" json:"created_by"`
}

// BackupRepository handles the snapshot ledger
type BackupRepository struct {
	db *database.DB
}

// NewBackupRepository creates a new backup repository
func NewBackupRepository(db *database.DB) *BackupRepository {
	return &BackupRepository{db: db}
}

// Create appends a ledger entry
func (r *BackupRepository) Create(ctx context.Context, b *Backup) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO backups (backup_time, file_path, size, created_by) VALUES (?, ?, ?, ?)",
		b.BackupTime, b.FilePath, b.Size, b.CreatedBy)
	if err != nil {
		return err
	}
	b.ID, _ = res.LastInsertId()
	return nil
}

// GetByID returns one ledger entry
func (r *BackupRepository) GetByID(ctx context.Context, id int64) (*Backup, error) {
	var b Backup
	err := r.db.GetContext(ctx, &b,
		"SELECT id, backup_time, file_path, size, created_by FROM backups WHERE id = ?", id)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("backup")
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// Delete removes a ledger entry
func (r *BackupRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM backups WHERE id = ?", id)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return errors.NotFound("backup")
	}
	return nil
}

// List returns all ledger entries, newest first.
func (r *BackupRepository) List(ctx context.Context) ([]*Backup, error) {
	backups := []*Backup{}
	err := r.db.SelectContext(ctx, &backups,
		"SELECT id, backup_time, file_path, size, created_by FROM backups ORDER BY backup_time DESC, id DESC")
	if err != nil {
		return nil, err
	}
	return backups, nil
}
