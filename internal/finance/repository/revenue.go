package repository

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/paycore/payroll-backend/pkg/database"
	"github.com/paycore/payroll-backend/pkg/errors"
)

// Revenue is one income entry, optionally attributed to an employee.
// When attributed, at most one entry exists per (employee, date).
type Revenue struct {
	ID          int64   `db:"id" json:"id"`
	Date        string  `db:"date" json:"date"`
	EmpID       *string `db:"emp_id" json:"emp_id,omitempty"`
	Amount      float64 `db:"amount" json:"amount"`
	Description string  `db:"description" json:"description"`
	AddedBy     string  `db:"added_by" json:"added_by"`
}

const revenueColumns = `id, date, emp_id, amount, COALESCE(description, '') AS description, added_by`

// RevenueRepository handles revenue persistence
type RevenueRepository struct {
	db *database.DB
}

// NewRevenueRepository creates a new revenue repository
func NewRevenueRepository(db *database.DB) *RevenueRepository {
	return &RevenueRepository{db: db}
}

// Create inserts a revenue entry. When the entry names an employee, the
// per-(employee, date) uniqueness check and the insert share one
// transaction.
func (r *RevenueRepository) Create(ctx context.Context, rev *Revenue) error {
	return r.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		if rev.EmpID != nil {
			var count int
			err := tx.GetContext(ctx, &count,
				"SELECT COUNT(*) FROM revenue WHERE emp_id = ? AND date = ?", *rev.EmpID, rev.Date)
			if err != nil {
				return err
			}
			if count > 0 {
				return errors.Conflict("a revenue entry already exists for this employee and date")
			}
		}

		res, err := tx.ExecContext(ctx,
			"INSERT INTO revenue (date, emp_id, amount, description, added_by) VALUES (?, ?, ?, ?, ?)",
			rev.Date, rev.EmpID, rev.Amount, rev.Description, rev.AddedBy)
		if err != nil {
			return err
		}
		rev.ID, _ = res.LastInsertId()
		return nil
	})
}

// Update replaces a revenue entry, re-checking (employee, date)
// uniqueness against every row except the one being edited.
func (r *RevenueRepository) Update(ctx context.Context, rev *Revenue) error {
	return r.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		if rev.EmpID != nil {
			var count int
			err := tx.GetContext(ctx, &count,
				"SELECT COUNT(*) FROM revenue WHERE emp_id = ? AND date = ? AND id != ?",
				*rev.EmpID, rev.Date, rev.ID)
			if err != nil {
				return err
			}
			if count > 0 {
				return errors.Conflict("a revenue entry already exists for this employee and date")
			}
		}

		res, err := tx.ExecContext(ctx,
			"UPDATE revenue SET date = ?, emp_id = ?, amount = ?, description = ? WHERE id = ?",
			rev.Date, rev.EmpID, rev.Amount, rev.Description, rev.ID)
		if err != nil {
			return err
		}
		affected, _ := res.RowsAffected()
		if affected == 0 {
			return errors.NotFound("revenue entry")
		}
		return nil
	})
}

// Delete removes a revenue entry by ID
func (r *RevenueRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM revenue WHERE id = ?", id)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return errors.NotFound("revenue entry")
	}
	return nil
}

// GetByID returns one revenue entry
func (r *RevenueRepository) GetByID(ctx context.Context, id int64) (*Revenue, error) {
	var rev Revenue
	err := r.db.GetContext(ctx, &rev,
		"SELECT "+revenueColumns+" FROM revenue WHERE id = ?", id)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("revenue entry")
	}
	if err != nil {
		return nil, err
	}
	return &rev, nil
}

// List returns revenue entries with date in [start, end], newest first.
func (r *RevenueRepository) List(ctx context.Context, start, end string) ([]*Revenue, error) {
	entries := []*Revenue{}
	err := r.db.SelectContext(ctx, &entries,
		"SELECT "+revenueColumns+" FROM revenue WHERE date >= ? AND date <= ? ORDER BY date DESC, id DESC",
		start, end)
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// SumByDateRange totals revenue with date in [start, end].
func (r *RevenueRepository) SumByDateRange(ctx context.Context, start, end string) (float64, error) {
	var total float64
	err := r.db.GetContext(ctx, &total,
		"SELECT COALESCE(SUM(amount), 0) FROM revenue WHERE date >= ? AND date <= ?", start, end)
	if err != nil {
		return 0, err
	}
	return total, nil
}
