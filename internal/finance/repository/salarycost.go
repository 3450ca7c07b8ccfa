package repository

import (
	"context"

	"github.com/paycore/payroll-backend/pkg/database"
)

// SalaryCostRepository reads aggregate salary cost for profit statements.
// It only ever sums over the salaries table; all writes to salary records
// stay with the payroll package.
type SalaryCostRepository struct {
	db *database.DB
}

// NewSalaryCostRepository creates a new salary cost repository
func NewSalaryCostRepository(db *database.DB) *SalaryCostRepository {
	return &SalaryCostRepository{db: db}
}

// SumByMonthRange totals final salaries whose month string falls in
// [startMonth, endMonth]. Months sort lexicographically in YYYY-MM form,
// so a plain range comparison is correct. Payment status is ignored.
func (r *SalaryCostRepository) SumByMonthRange(ctx context.Context, startMonth, endMonth string) (float64, error) {
	var total float64
	err := r.db.GetContext(ctx, &total,
		"SELECT COALESCE(SUM(final_salary), 0) FROM salaries WHERE month >= ? AND month <= ?",
		startMonth, endMonth)
	if err != nil {
		return 0, err
	}
	return total, nil
}

// SumByPaymentDate totals final salaries paid within [start, end]. Unpaid
// records have a null payment date and fall out of the comparison.
func (r *SalaryCostRepository) SumByPaymentDate(ctx context.Context, start, end string) (float64, error) {
	var total float64
	err := r.db.GetContext(ctx, &total,
		"SELECT COALESCE(SUM(final_salary), 0) FROM salaries WHERE payment_date >= ? AND payment_date <= ?",
		start, end)
	if err != nil {
		return 0, err
	}
	return total, nil
}
