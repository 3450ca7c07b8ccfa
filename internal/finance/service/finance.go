package service

import (
	"context"

	"github.com/paycore/payroll-backend/internal/finance/repository"
	"github.com/paycore/payroll-backend/internal/payroll/tax"
	staffrepo "github.com/paycore/payroll-backend/internal/staff/repository"
	"github.com/paycore/payroll-backend/pkg/actor"
	"github.com/paycore/payroll-backend/pkg/errors"
	"github.com/paycore/payroll-backend/pkg/logger"
	"github.com/paycore/payroll-backend/pkg/validation"
)

// Salary alignment modes for profit statements.
const (
	SalaryByMonth       = "byMonth"
	SalaryByPaymentDate = "byPaymentDate"
)

// ProfitStatement is the aggregate over a date range. Every total is 0,
// never absent, when no rows match.
type ProfitStatement struct {
	StartDate          string  `json:"start_date"`
	EndDate            string  `json:"end_date"`
	SalaryMode         string  `json:"salary_mode"`
	TotalRevenue       float64 `json:"total_revenue"`
	TotalSalary        float64 `json:"total_salary"`
	TotalOtherExpenses float64 `json:"total_other_expenses"`
	TotalExpenses      float64 `json:"total_expenses"`
	Profit             float64 `json:"profit"`
}

// FinanceService owns revenue and expense bookkeeping plus the profit
// aggregation over a date range.
type FinanceService struct {
	revenueRepo  *repository.RevenueRepository
	expenseRepo  *repository.ExpenseRepository
	salaryCosts  *repository.SalaryCostRepository
	employeeRepo *staffrepo.EmployeeRepository
	logger       *logger.Logger
}

// NewFinanceService creates a new finance service
func NewFinanceService(
	revenueRepo *repository.RevenueRepository,
	expenseRepo *repository.ExpenseRepository,
	salaryCosts *repository.SalaryCostRepository,
	employeeRepo *staffrepo.EmployeeRepository,
	log *logger.Logger,
) *FinanceService {
	return &FinanceService{
		revenueRepo:  revenueRepo,
		expenseRepo:  expenseRepo,
		salaryCosts:  salaryCosts,
		employeeRepo: employeeRepo,
		logger:       log.WithComponent("finance"),
	}
}

func validateDateRange(start, end string) error {
	details := map[string]string{}
	if !validation.IsValidDate(start) {
		details["start_date"] = "must be a valid date (YYYY-MM-DD)"
	}
	if !validation.IsValidDate(end) {
		details["end_date"] = "must be a valid date (YYYY-MM-DD)"
	}
	if len(details) == 0 && start > end {
		details["end_date"] = "must not precede start_date"
	}
	if len(details) > 0 {
		return errors.Validation(details)
	}
	return nil
}

func (s *FinanceService) validateRevenue(ctx context.Context, rev *repository.Revenue) error {
	details := map[string]string{}
	if !validation.IsValidDate(rev.Date) {
		details["date"] = "must be a valid date (YYYY-MM-DD)"
	}
	if !validation.IsValidAmount(rev.Amount) {
		details["amount"] = "must be a non-negative amount"
	}
	if rev.EmpID != nil && !validation.IsValidEmployeeID(*rev.EmpID) {
		details["emp_id"] = "invalid employee ID format"
	}
	if len(details) > 0 {
		return errors.Validation(details)
	}

	if rev.EmpID != nil {
		if _, err := s.employeeRepo.GetByID(ctx, *rev.EmpID); err != nil {
			return err
		}
	}
	return nil
}

// AddRevenue records a revenue entry attributed to the calling user.
func (s *FinanceService) AddRevenue(ctx context.Context, rev *repository.Revenue) error {
	a, err := actor.Require(ctx)
	if err != nil {
		return err
	}
	if err := s.validateRevenue(ctx, rev); err != nil {
		return err
	}

	rev.AddedBy = a.Username
	if err := s.revenueRepo.Create(ctx, rev); err != nil {
		return err
	}

	s.logger.Info().Int64("id", rev.ID).Str("date", rev.Date).Float64("amount", rev.Amount).Msg("revenue recorded")
	return nil
}

// UpdateRevenue replaces a revenue entry. The original creator is kept.
func (s *FinanceService) UpdateRevenue(ctx context.Context, rev *repository.Revenue) error {
	if _, err := actor.Require(ctx); err != nil {
		return err
	}
	if err := s.validateRevenue(ctx, rev); err != nil {
		return err
	}

	existing, err := s.revenueRepo.GetByID(ctx, rev.ID)
	if err != nil {
		return err
	}
	rev.AddedBy = existing.AddedBy

	if err := s.revenueRepo.Update(ctx, rev); err != nil {
		return err
	}

	s.logger.Info().Int64("id", rev.ID).Msg("revenue updated")
	return nil
}

// DeleteRevenue removes a revenue entry. Administrator only.
func (s *FinanceService) DeleteRevenue(ctx context.Context, id int64) error {
	if _, err := actor.RequireAdmin(ctx); err != nil {
		return err
	}
	if err := s.revenueRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Int64("id", id).Msg("revenue deleted")
	return nil
}

// ListRevenue returns revenue entries in a validated date range.
func (s *FinanceService) ListRevenue(ctx context.Context, start, end string) ([]*repository.Revenue, error) {
	if err := validateDateRange(start, end); err != nil {
		return nil, err
	}
	return s.revenueRepo.List(ctx, start, end)
}

func validateExpense(exp *repository.Expense) error {
	details := map[string]string{}
	if !validation.IsValidDate(exp.Date) {
		details["date"] = "must be a valid date (YYYY-MM-DD)"
	}
	if exp.Category == "" {
		details["category"] = "is required"
	}
	if !validation.IsValidAmount(exp.Amount) {
		details["amount"] = "must be a non-negative amount"
	}
	if len(details) > 0 {
		return errors.Validation(details)
	}
	return nil
}

// AddExpense records an expense entry attributed to the calling user.
func (s *FinanceService) AddExpense(ctx context.Context, exp *repository.Expense) error {
	a, err := actor.Require(ctx)
	if err != nil {
		return err
	}
	if err := validateExpense(exp); err != nil {
		return err
	}

	exp.AddedBy = a.Username
	if err := s.expenseRepo.Create(ctx, exp); err != nil {
		return err
	}

	s.logger.Info().Int64("id", exp.ID).Str("category", exp.Category).Float64("amount", exp.Amount).Msg("expense recorded")
	return nil
}

// UpdateExpense replaces an expense entry. The original creator is kept.
func (s *FinanceService) UpdateExpense(ctx context.Context, exp *repository.Expense) error {
	if _, err := actor.Require(ctx); err != nil {
		return err
	}
	if err := validateExpense(exp); err != nil {
		return err
	}

	existing, err := s.expenseRepo.GetByID(ctx, exp.ID)
	if err != nil {
		return err
	}
	exp.AddedBy = existing.AddedBy

	if err := s.expenseRepo.Update(ctx, exp); err != nil {
		return err
	}

	s.logger.Info().Int64("id", exp.ID).Msg("expense updated")
	return nil
}

// DeleteExpense removes an expense entry. Administrator only.
func (s *FinanceService) DeleteExpense(ctx context.Context, id int64) error {
	if _, err := actor.RequireAdmin(ctx); err != nil {
		return err
	}
	if err := s.expenseRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Int64("id", id).Msg("expense deleted")
	return nil
}

// ListExpenses returns expense entries in a validated date range.
func (s *FinanceService) ListExpenses(ctx context.Context, start, end string) ([]*repository.Expense, error) {
	if err := validateDateRange(start, end); err != nil {
		return nil, err
	}
	return s.expenseRepo.List(ctx, start, end)
}

// ComputeProfit builds a profit statement over [start, end]. Salary cost
// follows the requested mode: byMonth sums records whose month falls in
// the range's month span regardless of payment status, byPaymentDate
// sums only records actually paid within the range.
func (s *FinanceService) ComputeProfit(ctx context.Context, start, end, mode string) (*ProfitStatement, error) {
	if err := validateDateRange(start, end); err != nil {
		return nil, err
	}
	if mode != SalaryByMonth && mode != SalaryByPaymentDate {
		return nil, errors.Validation(map[string]string{"salary_mode": "must be byMonth or byPaymentDate"})
	}

	revenue, err := s.revenueRepo.SumByDateRange(ctx, start, end)
	if err != nil {
		return nil, err
	}

	var salary float64
	if mode == SalaryByMonth {
		salary, err = s.salaryCosts.SumByMonthRange(ctx, start[:7], end[:7])
	} else {
		salary, err = s.salaryCosts.SumByPaymentDate(ctx, start, end)
	}
	if err != nil {
		return nil, err
	}

	other, err := s.expenseRepo.SumByDateRange(ctx, start, end)
	if err != nil {
		return nil, err
	}

	stmt := &ProfitStatement{
		StartDate:          start,
		EndDate:            end,
		SalaryMode:         mode,
		TotalRevenue:       tax.Round2(revenue),
		TotalSalary:        tax.Round2(salary),
		TotalOtherExpenses: tax.Round2(other),
	}
	stmt.TotalExpenses = tax.Round2(stmt.TotalSalary + stmt.TotalOtherExpenses)
	stmt.Profit = tax.Round2(stmt.TotalRevenue - stmt.TotalExpenses)
	return stmt, nil
}
