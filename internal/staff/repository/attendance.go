package repository

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/paycore/payroll-backend/pkg/database"
	"github.com/paycore/payroll-backend/pkg/errors"
)

// Attendance statuses
const (
	AttendancePresent = "present"
	AttendanceAbsent  = "absent"
	AttendanceLeave   = "leave"
	AttendanceLate    = "late"
)

// Attendance is one record per employee per calendar day.
type Attendance struct {
	ID     int64  `db:"id" json:"id"`
	EmpID  string `db:"emp_id" json:"emp_id"`
	Date   string `db:"date" json:"date"`
	Status string `db:"status" json:"status"` // present, absent, leave, late
	Note   string `db:"note" json:"note,omitempty"`
}

// AttendanceRepository handles attendance persistence
type AttendanceRepository struct {
	db *database.DB
}

// NewAttendanceRepository creates a new attendance repository
func NewAttendanceRepository(db *database.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// Upsert records attendance for (employee, date). The existence check and
// the write run in one transaction so the one-row-per-day invariant holds
// even if two sessions race.
func (r *AttendanceRepository) Upsert(ctx context.Context, att *Attendance) error {
	return r.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		var existingID int64
		err := tx.GetContext(ctx, &existingID,
			"SELECT id FROM attendance WHERE emp_id = ? AND date = ?", att.EmpID, att.Date)
		switch {
		case err == sql.ErrNoRows:
			res, err := tx.ExecContext(ctx,
				"INSERT INTO attendance (emp_id, date, status, note) VALUES (?, ?, ?, ?)",
				att.EmpID, att.Date, att.Status, att.Note)
			if err != nil {
				return err
			}
			att.ID, _ = res.LastInsertId()
			return nil
		case err != nil:
			return err
		default:
			_, err := tx.ExecContext(ctx,
				"UPDATE attendance SET status = ?, note = ? WHERE id = ?",
				att.Status, att.Note, existingID)
			att.ID = existingID
			return err
		}
	})
}

// Delete removes the attendance record for (employee, date).
func (r *AttendanceRepository) Delete(ctx context.Context, empID, date string) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM attendance WHERE emp_id = ? AND date = ?", empID, date)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return errors.NotFound("attendance record")
	}
	return nil
}

// ListByEmployee returns attendance rows for an employee within a date range.
func (r *AttendanceRepository) ListByEmployee(ctx context.Context, empID, start, end string) ([]*Attendance, error) {
	records := []*Attendance{}
	err := r.db.SelectContext(ctx, &records,
		`SELECT id, emp_id, date, status, COALESCE(note, '') AS note
		 FROM attendance WHERE emp_id = ? AND date BETWEEN ? AND ? ORDER BY date`,
		empID, start, end)
	if err != nil {
		return nil, err
	}
	return records, nil
}

// CountAbsences returns the number of absent and leave days for an
// employee within a date range. Feeds the default payroll deduction.
func (r *AttendanceRepository) CountAbsences(ctx context.Context, empID, start, end string) (absent int, leave int, err error) {
	rows := []struct {
		Status string `db:"status"`
		N      int    `db:"n"`
	}{}
	err = r.db.SelectContext(ctx, &rows,
		`SELECT status, COUNT(*) AS n FROM attendance
		 WHERE emp_id = ? AND date BETWEEN ? AND ? GROUP BY status`,
		empID, start, end)
	if err != nil {
		return 0, 0, err
	}
	for _, row := range rows {
		switch row.Status {
		case AttendanceAbsent:
			absent = row.N
		case AttendanceLeave:
			leave = row.N
		}
	}
	return absent, leave, nil
}
