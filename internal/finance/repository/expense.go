package repository

import (
	"context"
	"database/sql"

	"github.com/paycore/payroll-backend/pkg/database"
	"github.com/paycore/payroll-backend/pkg/errors"
)

// Expense is one non-salary outgoing entry.
type Expense struct {
	ID          int64   `db:"id" json:"id"`
	Date        string  `db:"date" json:"date"`
	Category    string  `db:"category" json:"category"`
	Amount      float64 `db:"amount" json:"amount"`
	Description string  `db:"description" json:"description"`
	AddedBy     string  `db:"added_by" json:"added_by"`
}

const expenseColumns = `id, date, category, amount, COALESCE(description, '') AS description, added_by`

// ExpenseRepository handles expense persistence
type ExpenseRepository struct {
	db *database.DB
}

// NewExpenseRepository creates a new expense repository
func NewExpenseRepository(db *database.DB) *ExpenseRepository {
	return &ExpenseRepository{db: db}
}

// Create inserts an expense entry
func (r *ExpenseRepository) Create(ctx context.Context, exp *Expense) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO expenses (date, category, amount, description, added_by) VALUES (?, ?, ?, ?, ?)",
		exp.Date, exp.Category, exp.Amount, exp.Description, exp.AddedBy)
	if err != nil {
		return err
	}
	exp.ID, _ = res.LastInsertId()
	return nil
}

// Update replaces an expense entry
func (r *ExpenseRepository) Update(ctx context.Context, exp *Expense) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE expenses SET date = ?, category = ?, amount = ?, description = ? WHERE id = ?",
		exp.Date, exp.Category, exp.Amount, exp.Description, exp.ID)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return errors.NotFound("expense entry")
	}
	return nil
}

// Delete removes an expense entry by ID
func (r *ExpenseRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM expenses WHERE id = ?", id)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return errors.NotFound("expense entry")
	}
	return nil
}

// GetByID returns one expense entry
func (r *ExpenseRepository) GetByID(ctx context.Context, id int64) (*Expense, error) {
	var exp Expense
	err := r.db.GetContext(ctx, &exp,
		"SELECT "+expenseColumns+" FROM expenses WHERE id = ?", id)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("expense entry")
	}
	if err != nil {
		return nil, err
	}
	return &exp, nil
}

// List returns expense entries with date in [start, end], newest first.
func (r *ExpenseRepository) List(ctx context.Context, start, end string) ([]*Expense, error) {
	entries := []*Expense{}
	err := r.db.SelectContext(ctx, &entries,
		"SELECT "+expenseColumns+" FROM expenses WHERE date >= ? AND date <= ? ORDER BY date DESC, id DESC",
		start, end)
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// SumByDateRange totals expenses with date in [start, end].
func (r *ExpenseRepository) SumByDateRange(ctx context.Context, start, end string) (float64, error) {
	var total float64
	err := r.db.GetContext(ctx, &total,
		"SELECT COALESCE(SUM(amount), 0) FROM expenses WHERE date >= ? AND date <= ?", start, end)
	if err != nil {
		return 0, err
	}
	return total, nil
}
