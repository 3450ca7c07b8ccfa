package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	payrollrepo "github.com/paycore/payroll-backend/internal/payroll/repository"
	"github.com/paycore/payroll-backend/internal/payroll/service"
	"github.com/paycore/payroll-backend/internal/payroll/tax"
	staffrepo "github.com/paycore/payroll-backend/internal/staff/repository"
	"github.com/paycore/payroll-backend/pkg/actor"
	"github.com/paycore/payroll-backend/pkg/errors"
	"github.com/paycore/payroll-backend/pkg/testutil"
)

type fixedClock struct {
	t time.Time
}

func (c fixedClock) Now(context.Context) time.Time { return c.t }

const (
	empAlice = "EMP20240101090000"
	empBob   = "EMP20240102090000"
)

func newPayrollService(t *testing.T) (*service.PayrollService, *testutil.Suite) {
	t.Helper()
	suite := testutil.NewSuite(t)

	salaryRepo := payrollrepo.NewSalaryRepository(suite.DB)
	taxRateRepo := payrollrepo.NewTaxRateRepository(suite.DB)
	employeeRepo := staffrepo.NewEmployeeRepository(suite.DB)
	attendanceRepo := staffrepo.NewAttendanceRepository(suite.DB)
	engine := tax.NewEngine(taxRateRepo, suite.Logger)
	clock := fixedClock{t: time.Date(2024, 5, 20, 10, 0, 0, 0, time.UTC)}

	svc := service.NewPayrollService(salaryRepo, taxRateRepo, employeeRepo, attendanceRepo, engine, clock, suite.Logger)

	suite.Exec(t, `INSERT INTO employees (emp_id, name, department, position, base_salary, hire_date, status)
		VALUES (?, 'Alice', 'Engineering', 'Engineer', 5000, '2023-06-01', 'active')`, empAlice)
	suite.Exec(t, `INSERT INTO employees (emp_id, name, department, position, base_salary, hire_date, status)
		VALUES (?, 'Bob', 'Sales', 'Manager', 12000, '2023-01-15', 'active')`, empBob)

	return svc, suite
}

func adminCtx() context.Context {
	return actor.WithActor(context.Background(), &actor.Actor{Username: "admin", Role: actor.RoleAdmin})
}

func operatorCtx() context.Context {
	return actor.WithActor(context.Background(), &actor.Actor{Username: "op", Role: actor.RoleOperator})
}

func TestGenerateOrFetchIdempotent(t *testing.T) {
	svc, _ := newPayrollService(t)
	ctx := context.Background()

	first, err := svc.GenerateOrFetch(ctx, empBob, "2024-04")
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := svc.GenerateOrFetch(ctx, empBob, "2024-04")
	require.NoError(t, err)

	assert.Equal(t, first, second, "repeated generation must return identical content")
}

func TestGenerateAppliesAbsenceDeduction(t *testing.T) {
	svc, suite := newPayrollService(t)
	ctx := context.Background()

	suite.Exec(t, "INSERT INTO attendance (emp_id, date, status) VALUES (?, '2024-04-03', 'absent')", empAlice)
	suite.Exec(t, "INSERT INTO attendance (emp_id, date, status) VALUES (?, '2024-04-04', 'absent')", empAlice)

	rec, err := svc.GenerateOrFetch(ctx, empAlice, "2024-04")
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.Equal(t, 100.0, rec.Deduction)
	assert.Equal(t, 0.0, rec.Tax) // 4900 sits in the zero-rate bracket
	assert.Equal(t, 4900.0, rec.FinalSalary)
	assert.Equal(t, payrollrepo.SalaryUnpaid, rec.Status)
}

func TestGenerateCountsLeaveDays(t *testing.T) {
	svc, suite := newPayrollService(t)
	ctx := context.Background()

	suite.Exec(t, "INSERT INTO attendance (emp_id, date, status) VALUES (?, '2024-04-08', 'leave')", empAlice)
	suite.Exec(t, "INSERT INTO attendance (emp_id, date, status) VALUES (?, '2024-04-09', 'late')", empAlice)
	suite.Exec(t, "INSERT INTO attendance (emp_id, date, status) VALUES (?, '2024-04-10', 'present')", empAlice)

	rec, err := svc.GenerateOrFetch(ctx, empAlice, "2024-04")
	require.NoError(t, err)

	// Only absent and leave days count toward the deduction.
	assert.Equal(t, 50.0, rec.Deduction)
}

func TestGenerateIgnoresAttendanceOutsideMonth(t *testing.T) {
	svc, suite := newPayrollService(t)
	ctx := context.Background()

	suite.Exec(t, "INSERT INTO attendance (emp_id, date, status) VALUES (?, '2024-03-31', 'absent')", empAlice)
	suite.Exec(t, "INSERT INTO attendance (emp_id, date, status) VALUES (?, '2024-05-01', 'absent')", empAlice)

	rec, err := svc.GenerateOrFetch(ctx, empAlice, "2024-04")
	require.NoError(t, err)

	assert.Zero(t, rec.Deduction)
}

func TestGenerateExcludesDepartedEmployee(t *testing.T) {
	svc, suite := newPayrollService(t)
	ctx := context.Background()

	suite.Exec(t, `INSERT INTO employees (emp_id, name, department, position, base_salary, hire_date, status, leave_date)
		VALUES ('EMP20230101090000', 'Carol', 'HR', 'Clerk', 6000, '2023-01-01', 'inactive', '2024-03-10')`)

	rec, err := svc.GenerateOrFetch(ctx, "EMP20230101090000", "2024-04")
	require.NoError(t, err)
	assert.Nil(t, rec, "employee who left before the month gets no record")

	// The leave month itself is still payable.
	rec, err = svc.GenerateOrFetch(ctx, "EMP20230101090000", "2024-03")
	require.NoError(t, err)
	assert.NotNil(t, rec)
}

func TestGenerateComputesTax(t *testing.T) {
	svc, _ := newPayrollService(t)
	ctx := context.Background()

	rec, err := svc.GenerateOrFetch(ctx, empBob, "2024-04")
	require.NoError(t, err)

	// (12000-8000)*0.10 - 210 = 190
	assert.InDelta(t, 190.0, rec.Tax, 0.001)
	assert.InDelta(t, 11810.0, rec.FinalSalary, 0.001)
}

func TestSetBonusRecomputesConsistently(t *testing.T) {
	svc, _ := newPayrollService(t)
	ctx := context.Background()

	_, err := svc.GenerateOrFetch(ctx, empAlice, "2024-04")
	require.NoError(t, err)

	rec, err := svc.SetBonus(ctx, empAlice, "2024-04", 4000)
	require.NoError(t, err)

	// taxable 9000 -> (9000-8000)*0.10 - 210 floored at 0
	assert.Equal(t, 4000.0, rec.Bonus)
	assert.Equal(t, 0.0, rec.Tax)
	assert.InDelta(t, 9000.0, rec.FinalSalary, 0.001)

	// Stored row matches the returned value.
	fetched, err := svc.GenerateOrFetch(ctx, empAlice, "2024-04")
	require.NoError(t, err)
	assert.Equal(t, rec.FinalSalary, fetched.FinalSalary)
	assert.Equal(t, rec.Bonus, fetched.Bonus)
}

func TestSetBonusWithoutRecordFails(t *testing.T) {
	svc, _ := newPayrollService(t)

	_, err := svc.SetBonus(context.Background(), empAlice, "2024-04", 1000)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound), "edits must not create records implicitly")
}

func TestSetDeductionAllowsNegativeFinalSalary(t *testing.T) {
	svc, _ := newPayrollService(t)
	ctx := context.Background()

	_, err := svc.GenerateOrFetch(ctx, empAlice, "2024-04")
	require.NoError(t, err)

	rec, err := svc.SetDeduction(ctx, empAlice, "2024-04", 6000)
	require.NoError(t, err)

	assert.Equal(t, 0.0, rec.Tax, "tax is floored at zero")
	assert.Equal(t, -1000.0, rec.FinalSalary, "final salary is not floored")
}

func TestMarkPaidSetsPaymentDateFromClock(t *testing.T) {
	svc, _ := newPayrollService(t)
	ctx := adminCtx()

	_, err := svc.GenerateOrFetch(ctx, empAlice, "2024-04")
	require.NoError(t, err)

	require.NoError(t, svc.MarkPaid(ctx, empAlice, "2024-04"))

	rec, err := svc.GenerateOrFetch(ctx, empAlice, "2024-04")
	require.NoError(t, err)
	assert.Equal(t, payrollrepo.SalaryPaid, rec.Status)
	require.NotNil(t, rec.PaymentDate)
	assert.Equal(t, "2024-05-20", *rec.PaymentDate)
}

func TestMarkUnpaidClearsPaymentDate(t *testing.T) {
	svc, _ := newPayrollService(t)
	ctx := adminCtx()

	_, err := svc.GenerateOrFetch(ctx, empAlice, "2024-04")
	require.NoError(t, err)
	require.NoError(t, svc.MarkPaid(ctx, empAlice, "2024-04"))

	require.NoError(t, svc.MarkUnpaid(ctx, empAlice, "2024-04"))

	rec, err := svc.GenerateOrFetch(ctx, empAlice, "2024-04")
	require.NoError(t, err)
	assert.Equal(t, payrollrepo.SalaryUnpaid, rec.Status)
	assert.Nil(t, rec.PaymentDate)
}

func TestMarkPaidRequiresAdmin(t *testing.T) {
	svc, _ := newPayrollService(t)

	_, err := svc.GenerateOrFetch(context.Background(), empAlice, "2024-04")
	require.NoError(t, err)

	err = svc.MarkPaid(operatorCtx(), empAlice, "2024-04")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrForbidden))

	err = svc.MarkPaid(context.Background(), empAlice, "2024-04")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrUnauthorized))
}

func TestMarkPaidBatchCountsIndependently(t *testing.T) {
	svc, _ := newPayrollService(t)
	ctx := adminCtx()

	_, err := svc.GenerateOrFetch(ctx, empAlice, "2024-04")
	require.NoError(t, err)
	_, err = svc.GenerateOrFetch(ctx, empBob, "2024-04")
	require.NoError(t, err)

	result, err := svc.MarkPaidBatch(ctx, []service.SalaryKey{
		{EmpID: empAlice, Month: "2024-04"},
		{EmpID: empBob, Month: "2024-04"},
		{EmpID: empBob, Month: "2024-07"}, // no record
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Succeeded)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, empBob, result.Failed[0].EmpID)
	assert.Equal(t, "2024-07", result.Failed[0].Month)
}

func TestGenerateSheetCoversActiveEmployees(t *testing.T) {
	svc, _ := newPayrollService(t)
	ctx := context.Background()

	sheet, err := svc.GenerateSheet(ctx, "2024-04")
	require.NoError(t, err)

	require.Len(t, sheet, 2)
	names := []string{sheet[0].Name, sheet[1].Name}
	assert.Contains(t, names, "Alice")
	assert.Contains(t, names, "Bob")
}

func TestCreateBracketValidation(t *testing.T) {
	svc, _ := newPayrollService(t)

	err := svc.CreateBracket(adminCtx(), &payrollrepo.TaxBracket{
		MinSalary: 10, MaxSalary: 5, Rate: 0.1, Deduction: 0,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidation))

	err = svc.CreateBracket(adminCtx(), &payrollrepo.TaxBracket{
		MinSalary: 0, MaxSalary: 100, Rate: 1.5, Deduction: 0,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidation))

	err = svc.CreateBracket(operatorCtx(), &payrollrepo.TaxBracket{
		MinSalary: 1e15, MaxSalary: 2e15, Rate: 0.5, Deduction: 0,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrForbidden))
}

func TestListBracketsReturnsSeededTable(t *testing.T) {
	svc, _ := newPayrollService(t)

	brackets, err := svc.ListBrackets(context.Background())
	require.NoError(t, err)

	require.Len(t, brackets, 8)
	assert.Equal(t, 0.0, brackets[0].MinSalary)
	assert.Equal(t, 5000.0, brackets[0].MaxSalary)
	assert.Equal(t, 0.45, brackets[len(brackets)-1].Rate)
}
