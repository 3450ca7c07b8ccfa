package service

import (
	"context"
	"time"

	"github.com/paycore/payroll-backend/internal/payroll/repository"
	"github.com/paycore/payroll-backend/internal/payroll/tax"
	staffrepo "github.com/paycore/payroll-backend/internal/staff/repository"
	"github.com/paycore/payroll-backend/pkg/actor"
	"github.com/paycore/payroll-backend/pkg/errors"
	"github.com/paycore/payroll-backend/pkg/logger"
	"github.com/paycore/payroll-backend/pkg/validation"
)

// dailyAbsenceDeduction is charged per accumulated absent or leave day
// when no manual deduction has been entered for the month.
const dailyAbsenceDeduction = 50.0

// Clock resolves the current trusted time.
type Clock interface {
	Now(ctx context.Context) time.Time
}

// PayrollService owns the per-employee, per-month salary state machine:
// generate-or-fetch, bonus/deduction edits with consistent recomputation,
// and the paid/unpaid transitions.
type PayrollService struct {
	salaryRepo     *repository.SalaryRepository
	bracketRepo    *repository.TaxRateRepository
	employeeRepo   *staffrepo.EmployeeRepository
	attendanceRepo *staffrepo.AttendanceRepository
	taxEngine      *tax.Engine
	clock          Clock
	logger         *logger.Logger
}

// NewPayrollService creates a new payroll service
func NewPayrollService(
	salaryRepo *repository.SalaryRepository,
	bracketRepo *repository.TaxRateRepository,
	employeeRepo *staffrepo.EmployeeRepository,
	attendanceRepo *staffrepo.AttendanceRepository,
	taxEngine *tax.Engine,
	clock Clock,
	log *logger.Logger,
) *PayrollService {
	return &PayrollService{
		salaryRepo:     salaryRepo,
		bracketRepo:    bracketRepo,
		employeeRepo:   employeeRepo,
		attendanceRepo: attendanceRepo,
		taxEngine:      taxEngine,
		clock:          clock,
		logger:         log.WithComponent("payroll"),
	}
}

// monthBounds returns the first and last calendar day of a YYYY-MM month.
func monthBounds(month string) (string, string, error) {
	t, err := time.Parse(validation.MonthLayout, month)
	if err != nil {
		return "", "", errors.Validation(map[string]string{"month": "must be a valid month (YYYY-MM)"})
	}
	first := t.Format(validation.DateLayout)
	last := t.AddDate(0, 1, -1).Format(validation.DateLayout)
	return first, last, nil
}

// employedInMonth reports whether the employee was still employed on the
// first day of the month. An inactive employee whose leave date precedes
// the month is excluded from payroll for that and all later months.
func employedInMonth(emp *staffrepo.Employee, monthFirstDay string) bool {
	if emp.Status != staffrepo.StatusInactive || emp.LeaveDate == nil {
		return true
	}
	return *emp.LeaveDate >= monthFirstDay
}

// GenerateOrFetch returns the salary record for (employee, month),
// creating it from current base salary and attendance when absent.
// Calling it again without an intervening edit returns identical content.
// Returns (nil, nil) for employees excluded from the month.
func (s *PayrollService) GenerateOrFetch(ctx context.Context, empID, month string) (*repository.SalaryRecord, error) {
	if !validation.IsValidEmployeeID(empID) {
		return nil, errors.Validation(map[string]string{"emp_id": "invalid employee ID format"})
	}
	if !validation.IsValidMonth(month) {
		return nil, errors.Validation(map[string]string{"month": "must be a valid month (YYYY-MM)"})
	}

	emp, err := s.employeeRepo.GetByID(ctx, empID)
	if err != nil {
		return nil, err
	}

	firstDay, lastDay, err := monthBounds(month)
	if err != nil {
		return nil, err
	}

	if !employedInMonth(emp, firstDay) {
		s.logger.Debug().Str("emp_id", empID).Str("month", month).Msg("employee left before month, skipping")
		return nil, nil
	}

	existing, err := s.salaryRepo.GetByKey(ctx, empID, month)
	if err != nil && !errors.Is(err, errors.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return s.withDisplayTax(ctx, existing)
	}

	absent, leave, err := s.attendanceRepo.CountAbsences(ctx, empID, firstDay, lastDay)
	if err != nil {
		return nil, err
	}

	rec := &repository.SalaryRecord{
		EmpID:      empID,
		Month:      month,
		BaseSalary: emp.BaseSalary,
		Bonus:      0,
		Deduction:  dailyAbsenceDeduction * float64(absent+leave),
		Status:     repository.SalaryUnpaid,
	}

	taxDue, err := s.taxEngine.ComputeTax(ctx, rec.TaxableAmount())
	if err != nil {
		return nil, err
	}
	rec.FinalSalary = tax.Round2(rec.TaxableAmount() - taxDue)

	stored, created, err := s.salaryRepo.CreateIfAbsent(ctx, rec)
	if err != nil {
		return nil, err
	}
	if !created {
		// A record appeared between the read and the insert; reuse it.
		return s.withDisplayTax(ctx, stored)
	}

	stored.Tax = taxDue
	s.logger.Info().
		Str("emp_id", empID).
		Str("month", month).
		Float64("final_salary", stored.FinalSalary).
		Msg("salary record generated")
	return stored, nil
}

// withDisplayTax recomputes the display-only tax from the stored fields.
func (s *PayrollService) withDisplayTax(ctx context.Context, rec *repository.SalaryRecord) (*repository.SalaryRecord, error) {
	taxDue, err := s.taxEngine.ComputeTax(ctx, rec.TaxableAmount())
	if err != nil {
		return nil, err
	}
	rec.Tax = taxDue
	return rec, nil
}

// SheetEntry is one employee's line in a monthly salary sheet.
type SheetEntry struct {
	Name string `json:"name"`
	*repository.SalaryRecord
}

// GenerateSheet generates or fetches the salary record of every active
// employee for the month.
func (s *PayrollService) GenerateSheet(ctx context.Context, month string) ([]*SheetEntry, error) {
	if !validation.IsValidMonth(month) {
		return nil, errors.Validation(map[string]string{"month": "must be a valid month (YYYY-MM)"})
	}

	employees, err := s.employeeRepo.List(ctx, staffrepo.StatusActive)
	if err != nil {
		return nil, err
	}

	sheet := []*SheetEntry{}
	for _, emp := range employees {
		rec, err := s.GenerateOrFetch(ctx, emp.EmpID, month)
		if err != nil {
			return nil, err
		}
		if rec == nil {
			continue
		}
		sheet = append(sheet, &SheetEntry{Name: emp.Name, SalaryRecord: rec})
	}
	return sheet, nil
}

// SetBonus updates the bonus for an existing record, re-deriving tax and
// final salary from the new taxable total before persisting. Fails with
// NotFound when no record exists: edits never create rows implicitly.
func (s *PayrollService) SetBonus(ctx context.Context, empID, month string, bonus float64) (*repository.SalaryRecord, error) {
	return s.setAmount(ctx, empID, month, bonus, "bonus")
}

// SetDeduction updates the deduction for an existing record, re-deriving
// tax and final salary before persisting.
func (s *PayrollService) SetDeduction(ctx context.Context, empID, month string, deduction float64) (*repository.SalaryRecord, error) {
	return s.setAmount(ctx, empID, month, deduction, "deduction")
}

func (s *PayrollService) setAmount(ctx context.Context, empID, month string, amount float64, field string) (*repository.SalaryRecord, error) {
	if !validation.IsValidEmployeeID(empID) {
		return nil, errors.Validation(map[string]string{"emp_id": "invalid employee ID format"})
	}
	if !validation.IsValidMonth(month) {
		return nil, errors.Validation(map[string]string{"month": "must be a valid month (YYYY-MM)"})
	}
	if !validation.IsValidAmount(amount) {
		return nil, errors.Validation(map[string]string{field: "must be a non-negative amount"})
	}

	rec, err := s.salaryRepo.GetByKey(ctx, empID, month)
	if err != nil {
		return nil, err
	}

	if field == "bonus" {
		rec.Bonus = amount
	} else {
		rec.Deduction = amount
	}

	taxDue, err := s.taxEngine.ComputeTax(ctx, rec.TaxableAmount())
	if err != nil {
		return nil, err
	}
	// Tax is floored at 0 but final salary is not: a deduction larger
	// than base+bonus legitimately produces a negative month.
	rec.FinalSalary = tax.Round2(rec.TaxableAmount() - taxDue)
	rec.Tax = taxDue

	if field == "bonus" {
		err = s.salaryRepo.UpdateBonus(ctx, empID, month, rec.Bonus, rec.FinalSalary)
	} else {
		err = s.salaryRepo.UpdateDeduction(ctx, empID, month, rec.Deduction, rec.FinalSalary)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("emp_id", empID).
		Str("month", month).
		Str("field", field).
		Float64("amount", amount).
		Float64("final_salary", rec.FinalSalary).
		Msg("salary record updated")
	return rec, nil
}

// MarkPaid transitions a record to paid with the current trusted date.
// Administrator only.
func (s *PayrollService) MarkPaid(ctx context.Context, empID, month string) error {
	if _, err := actor.RequireAdmin(ctx); err != nil {
		return err
	}
	if !validation.IsValidMonth(month) {
		return errors.Validation(map[string]string{"month": "must be a valid month (YYYY-MM)"})
	}

	paymentDate := s.clock.Now(ctx).Format(validation.DateLayout)
	if err := s.salaryRepo.MarkPaid(ctx, empID, month, paymentDate); err != nil {
		return err
	}

	s.logger.Info().Str("emp_id", empID).Str("month", month).Str("payment_date", paymentDate).Msg("salary marked paid")
	return nil
}

// MarkUnpaid reverts a record to unpaid, clearing its payment date.
// Administrator only.
func (s *PayrollService) MarkUnpaid(ctx context.Context, empID, month string) error {
	if _, err := actor.RequireAdmin(ctx); err != nil {
		return err
	}
	if !validation.IsValidMonth(month) {
		return errors.Validation(map[string]string{"month": "must be a valid month (YYYY-MM)"})
	}

	if err := s.salaryRepo.MarkUnpaid(ctx, empID, month); err != nil {
		return err
	}

	s.logger.Info().Str("emp_id", empID).Str("month", month).Msg("salary marked unpaid")
	return nil
}

// SalaryKey identifies one salary record in a batch operation.
type SalaryKey struct {
	EmpID string `json:"emp_id"`
	Month string `json:"month"`
}

// BatchFailure records one key that failed in a batch operation.
type BatchFailure struct {
	EmpID  string `json:"emp_id"`
	Month  string `json:"month"`
	Reason string `json:"reason"`
}

// BatchResult reports the outcome of a batch transition. Keys succeed or
// fail independently; partial success is expected, not an error.
type BatchResult struct {
	Succeeded int            `json:"succeeded"`
	Failed    []BatchFailure `json:"failed,omitempty"`
}

// MarkPaidBatch applies MarkPaid to every key independently.
func (s *PayrollService) MarkPaidBatch(ctx context.Context, keys []SalaryKey) (*BatchResult, error) {
	return s.batch(ctx, keys, s.MarkPaid)
}

// MarkUnpaidBatch applies MarkUnpaid to every key independently.
func (s *PayrollService) MarkUnpaidBatch(ctx context.Context, keys []SalaryKey) (*BatchResult, error) {
	return s.batch(ctx, keys, s.MarkUnpaid)
}

func (s *PayrollService) batch(ctx context.Context, keys []SalaryKey, apply func(context.Context, string, string) error) (*BatchResult, error) {
	if _, err := actor.RequireAdmin(ctx); err != nil {
		return nil, err
	}

	result := &BatchResult{}
	for _, key := range keys {
		if err := apply(ctx, key.EmpID, key.Month); err != nil {
			result.Failed = append(result.Failed, BatchFailure{
				EmpID:  key.EmpID,
				Month:  key.Month,
				Reason: err.Error(),
			})
			continue
		}
		result.Succeeded++
	}
	return result, nil
}

// ListBrackets returns the tax bracket table.
func (s *PayrollService) ListBrackets(ctx context.Context) ([]*repository.TaxBracket, error) {
	return s.bracketRepo.List(ctx)
}

// CreateBracket adds a tax bracket. Administrator only.
func (s *PayrollService) CreateBracket(ctx context.Context, b *repository.TaxBracket) error {
	if _, err := actor.RequireAdmin(ctx); err != nil {
		return err
	}
	if err := validateBracket(b); err != nil {
		return err
	}
	if err := s.bracketRepo.Create(ctx, b); err != nil {
		return err
	}
	s.logger.Info().Float64("min", b.MinSalary).Float64("max", b.MaxSalary).Msg("tax bracket created")
	return nil
}

// UpdateBracket replaces a tax bracket. Administrator only.
func (s *PayrollService) UpdateBracket(ctx context.Context, b *repository.TaxBracket) error {
	if _, err := actor.RequireAdmin(ctx); err != nil {
		return err
	}
	if err := validateBracket(b); err != nil {
		return err
	}
	if err := s.bracketRepo.Update(ctx, b); err != nil {
		return err
	}
	s.logger.Info().Int64("id", b.ID).Msg("tax bracket updated")
	return nil
}

func validateBracket(b *repository.TaxBracket) error {
	details := map[string]string{}
	if b.MinSalary < 0 {
		details["min_salary"] = "must be non-negative"
	}
	if b.MaxSalary <= b.MinSalary {
		details["max_salary"] = "must be greater than min_salary"
	}
	if b.Rate < 0 || b.Rate > 1 {
		details["rate"] = "must be between 0 and 1"
	}
	if b.Deduction < 0 {
		details["deduction"] = "must be non-negative"
	}
	if len(details) > 0 {
		return errors.Validation(details)
	}
	return nil
}
