package repository

import (
	"context"
	"database/sql"

	"github.com/paycore/payroll-backend/pkg/database"
	"github.com/paycore/payroll-backend/pkg/errors"
)

// TaxBracket is one row of the progressive bracket table. Brackets are
// contiguous [min, max) ranges; the quick deduction makes the marginal
// formula equivalent to summing lower-bracket rates.
type TaxBracket struct {
	ID        int64   `db:"id" json:"id"`
	MinSalary float64 `db:"min_salary" json:"min_salary"`
	MaxSalary float64 `db:"max_salary" json:"max_salary"`
	Rate      float64 `db:"rate" json:"rate"`
	Deduction float64 `db:"deduction" json:"deduction"`
}

// TaxRateRepository handles tax bracket persistence
type TaxRateRepository struct {
	db *database.DB
}

// NewTaxRateRepository creates a new tax rate repository
func NewTaxRateRepository(db *database.DB) *TaxRateRepository {
	return &TaxRateRepository{db: db}
}

// FindBracket returns the bracket whose [min, max) range contains amount,
// or nil when no bracket matches.
func (r *TaxRateRepository) FindBracket(ctx context.Context, amount float64) (*TaxBracket, error) {
	var bracket TaxBracket
	err := r.db.GetContext(ctx, &bracket,
		`SELECT id, min_salary, max_salary, rate, deduction FROM tax_rates
		 WHERE min_salary <= ? AND max_salary > ?`,
		amount, amount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &bracket, nil
}

// List returns all brackets ordered by their lower bound.
func (r *TaxRateRepository) List(ctx context.Context) ([]*TaxBracket, error) {
	brackets := []*TaxBracket{}
	err := r.db.SelectContext(ctx, &brackets,
		"SELECT id, min_salary, max_salary, rate, deduction FROM tax_rates ORDER BY min_salary")
	if err != nil {
		return nil, err
	}
	return brackets, nil
}

// Create inserts a new bracket
func (r *TaxRateRepository) Create(ctx context.Context, b *TaxBracket) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO tax_rates (min_salary, max_salary, rate, deduction) VALUES (?, ?, ?, ?)",
		b.MinSalary, b.MaxSalary, b.Rate, b.Deduction)
	if err != nil {
		return err
	}
	b.ID, _ = res.LastInsertId()
	return nil
}

// Update replaces an existing bracket
func (r *TaxRateRepository) Update(ctx context.Context, b *TaxBracket) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE tax_rates SET min_salary=?, max_salary=?, rate=?, deduction=? WHERE id=?",
		b.MinSalary, b.MaxSalary, b.Rate, b.Deduction, b.ID)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return errors.NotFound("tax bracket")
	}
	return nil
}
