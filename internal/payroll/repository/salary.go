package repository

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/paycore/payroll-backend/pkg/database"
	"github.com/paycore/payroll-backend/pkg/errors"
)

// Salary payment statuses
const (
	SalaryUnpaid = "unpaid"
	SalaryPaid   = "paid"
)

// SalaryRecord is the per-employee, per-month salary row. Base salary is
// snapshotted at generation time; tax is never persisted and is
// recomputed from the stored fields whenever the record is read.
type SalaryRecord struct {
	ID          int64   `db:"id" json:"id"`
	EmpID       string  `db:"emp_id" json:"emp_id"`
	Month       string  `db:"month" json:"month"`
	BaseSalary  float64 `db:"base_salary" json:"base_salary"`
	Bonus       float64 `db:"bonus" json:"bonus"`
	Deduction   float64 `db:"deduction" json:"deduction"`
	FinalSalary float64 `db:"final_salary" json:"final_salary"`
	PaymentDate *string `db:"payment_date" json:"payment_date,omitempty"`
	Status      string  `db:"status" json:"status"` // unpaid, paid

	// Tax is display-only, derived from the persisted fields.
	Tax float64 `db:"-" json:"tax"`
}

// TaxableAmount is the input to the tax engine for this record.
func (s *SalaryRecord) TaxableAmount() float64 {
	return s.BaseSalary + s.Bonus - s.Deduction
}

const salaryColumns = `id, emp_id, month, base_salary,
	COALESCE(bonus, 0) AS bonus, COALESCE(deduction, 0) AS deduction,
	final_salary, payment_date, COALESCE(status, 'unpaid') AS status`

// SalaryRepository handles salary record persistence
type SalaryRepository struct {
	db *database.DB
}

// NewSalaryRepository creates a new salary repository
func NewSalaryRepository(db *database.DB) *SalaryRepository {
	return &SalaryRepository{db: db}
}

// GetByKey returns the record for (employee, month) or a NotFound error.
func (r *SalaryRepository) GetByKey(ctx context.Context, empID, month string) (*SalaryRecord, error) {
	var rec SalaryRecord
	err := r.db.GetContext(ctx, &rec,
		"SELECT "+salaryColumns+" FROM salaries WHERE emp_id = ? AND month = ?", empID, month)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("salary record")
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// CreateIfAbsent inserts rec unless a record for the same (employee,
// month) key already exists. The existence check and the insert share one
// transaction, so the at-most-one-record-per-month invariant holds even
// against a racing writer. Returns the stored record and whether this
// call created it.
func (r *SalaryRepository) CreateIfAbsent(ctx context.Context, rec *SalaryRecord) (*SalaryRecord, bool, error) {
	var stored SalaryRecord
	created := false

	err := r.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		err := tx.GetContext(ctx, &stored,
			"SELECT "+salaryColumns+" FROM salaries WHERE emp_id = ? AND month = ?",
			rec.EmpID, rec.Month)
		if err == nil {
			return nil
		}
		if err != sql.ErrNoRows {
			return err
		}

		res, err := tx.ExecContext(ctx,
			`INSERT INTO salaries (emp_id, month, base_salary, bonus, deduction, final_salary, status)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			rec.EmpID, rec.Month, rec.BaseSalary, rec.Bonus, rec.Deduction, rec.FinalSalary, rec.Status)
		if err != nil {
			return err
		}
		rec.ID, _ = res.LastInsertId()
		stored = *rec
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return &stored, created, nil
}

// UpdateBonus sets a new bonus together with the re-derived final salary
// in a single statement, keeping the row self-consistent.
func (r *SalaryRepository) UpdateBonus(ctx context.Context, empID, month string, bonus, finalSalary float64) error {
	return r.updateAmounts(ctx,
		"UPDATE salaries SET bonus = ?, final_salary = ? WHERE emp_id = ? AND month = ?",
		bonus, finalSalary, empID, month)
}

// UpdateDeduction sets a new deduction together with the re-derived final
// salary in a single statement.
func (r *SalaryRepository) UpdateDeduction(ctx context.Context, empID, month string, deduction, finalSalary float64) error {
	return r.updateAmounts(ctx,
		"UPDATE salaries SET deduction = ?, final_salary = ? WHERE emp_id = ? AND month = ?",
		deduction, finalSalary, empID, month)
}

func (r *SalaryRepository) updateAmounts(ctx context.Context, query string, amount, finalSalary float64, empID, month string) error {
	res, err := r.db.ExecContext(ctx, query, amount, finalSalary, empID, month)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return errors.NotFound("salary record")
	}
	return nil
}

// MarkPaid transitions the record to paid with the given payment date.
func (r *SalaryRepository) MarkPaid(ctx context.Context, empID, month, paymentDate string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE salaries SET status = ?, payment_date = ? WHERE emp_id = ? AND month = ?",
		SalaryPaid, paymentDate, empID, month)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return errors.NotFound("salary record")
	}
	return nil
}

// MarkUnpaid reverts the record to unpaid and clears the payment date.
func (r *SalaryRepository) MarkUnpaid(ctx context.Context, empID, month string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE salaries SET status = ?, payment_date = NULL WHERE emp_id = ? AND month = ?",
		SalaryUnpaid, empID, month)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return errors.NotFound("salary record")
	}
	return nil
}

// ListByMonth returns all salary records for a month.
func (r *SalaryRepository) ListByMonth(ctx context.Context, month string) ([]*SalaryRecord, error) {
	records := []*SalaryRecord{}
	err := r.db.SelectContext(ctx, &records,
		"SELECT "+salaryColumns+" FROM salaries WHERE month = ? ORDER BY emp_id", month)
	if err != nil {
		return nil, err
	}
	return records, nil
}
