package service

import (
	"context"
	"time"

	"github.com/paycore/payroll-backend/internal/staff/repository"
	"github.com/paycore/payroll-backend/pkg/errors"
	"github.com/paycore/payroll-backend/pkg/logger"
	"github.com/paycore/payroll-backend/pkg/validation"
)

// Clock resolves the current trusted time.
type Clock interface {
	Now(ctx context.Context) time.Time
}

// StaffService handles employee and attendance business logic
type StaffService struct {
	employeeRepo   *repository.EmployeeRepository
	attendanceRepo *repository.AttendanceRepository
	clock          Clock
	logger         *logger.Logger
}

// NewStaffService creates a new staff service
func NewStaffService(
	employeeRepo *repository.EmployeeRepository,
	attendanceRepo *repository.AttendanceRepository,
	clock Clock,
	log *logger.Logger,
) *StaffService {
	return &StaffService{
		employeeRepo:   employeeRepo,
		attendanceRepo: attendanceRepo,
		clock:          clock,
		logger:         log.WithComponent("staff"),
	}
}

// validateEmployee checks every field rule shared by create and update.
func (s *StaffService) validateEmployee(emp *repository.Employee) error {
	details := map[string]string{}

	if !validation.IsValidName(emp.Name) {
		details["name"] = "may only contain letters and digits, max 50 characters"
	}
	if !validation.IsValidAmount(emp.BaseSalary) {
		details["base_salary"] = "must be a non-negative amount"
	}
	if !validation.IsValidDate(emp.HireDate) {
		details["hire_date"] = "must be a valid date (YYYY-MM-DD)"
	}
	if !validation.IsValidPhone(emp.Contact) {
		details["contact"] = "must be a valid 11-digit mobile number"
	}
	if emp.Status != repository.StatusActive && emp.Status != repository.StatusInactive {
		details["status"] = "must be active or inactive"
	}

	if emp.LeaveDate != nil && !validation.IsValidDate(*emp.LeaveDate) {
		details["leave_date"] = "must be a valid date (YYYY-MM-DD)"
	}
	if emp.Status == repository.StatusInactive {
		switch {
		case emp.LeaveDate == nil:
			details["leave_date"] = "required for inactive employees"
		case validation.IsValidDate(*emp.LeaveDate) && validation.IsValidDate(emp.HireDate) && *emp.LeaveDate < emp.HireDate:
			details["leave_date"] = "must not precede the hire date"
		}
	}

	if len(details) > 0 {
		return errors.Validation(details)
	}
	return nil
}

// CreateEmployee validates and inserts a new employee. The ID is
// generated from the trusted clock so it encodes creation time.
func (s *StaffService) CreateEmployee(ctx context.Context, emp *repository.Employee) error {
	if emp.Status == "" {
		emp.Status = repository.StatusActive
	}
	if err := s.validateEmployee(emp); err != nil {
		return err
	}

	count, err := s.employeeRepo.CountByName(ctx, emp.Name, "")
	if err != nil {
		return err
	}
	if count > 0 {
		return errors.Conflict("an employee with this name already exists")
	}

	emp.EmpID = validation.GenerateEmployeeID(s.clock.Now(ctx))

	if err := s.employeeRepo.Create(ctx, emp); err != nil {
		return err
	}

	s.logger.Info().Str("emp_id", emp.EmpID).Str("name", emp.Name).Msg("employee created")
	return nil
}

// UpdateEmployee replaces an employee record in full.
func (s *StaffService) UpdateEmployee(ctx context.Context, emp *repository.Employee) error {
	if !validation.IsValidEmployeeID(emp.EmpID) {
		return errors.Validation(map[string]string{"emp_id": "invalid employee ID format"})
	}
	if err := s.validateEmployee(emp); err != nil {
		return err
	}

	count, err := s.employeeRepo.CountByName(ctx, emp.Name, emp.EmpID)
	if err != nil {
		return err
	}
	if count > 0 {
		return errors.Conflict("an employee with this name already exists")
	}

	if err := s.employeeRepo.Update(ctx, emp); err != nil {
		return err
	}

	s.logger.Info().Str("emp_id", emp.EmpID).Msg("employee updated")
	return nil
}

// GetEmployee gets an employee by ID
func (s *StaffService) GetEmployee(ctx context.Context, empID string) (*repository.Employee, error) {
	if !validation.IsValidEmployeeID(empID) {
		return nil, errors.Validation(map[string]string{"emp_id": "invalid employee ID format"})
	}
	return s.employeeRepo.GetByID(ctx, empID)
}

// ListEmployees lists employees, optionally filtered by status.
func (s *StaffService) ListEmployees(ctx context.Context, status string) ([]*repository.Employee, error) {
	if status != "" && status != repository.StatusActive && status != repository.StatusInactive {
		return nil, errors.Validation(map[string]string{"status": "must be active or inactive"})
	}
	return s.employeeRepo.List(ctx, status)
}

// DeleteEmployee removes an employee. Historical rows referencing the
// employee are left in place.
func (s *StaffService) DeleteEmployee(ctx context.Context, empID string) error {
	if !validation.IsValidEmployeeID(empID) {
		return errors.Validation(map[string]string{"emp_id": "invalid employee ID format"})
	}
	if err := s.employeeRepo.Delete(ctx, empID); err != nil {
		return err
	}
	s.logger.Info().Str("emp_id", empID).Msg("employee deleted")
	return nil
}

// RecordAttendance validates and upserts an attendance record.
func (s *StaffService) RecordAttendance(ctx context.Context, att *repository.Attendance) error {
	details := map[string]string{}
	if !validation.IsValidEmployeeID(att.EmpID) {
		details["emp_id"] = "invalid employee ID format"
	}
	if !validation.IsValidDate(att.Date) {
		details["date"] = "must be a valid date (YYYY-MM-DD)"
	}
	switch att.Status {
	case repository.AttendancePresent, repository.AttendanceAbsent,
		repository.AttendanceLeave, repository.AttendanceLate:
	default:
		details["status"] = "must be one of: present, absent, leave, late"
	}
	if len(details) > 0 {
		return errors.Validation(details)
	}

	if _, err := s.employeeRepo.GetByID(ctx, att.EmpID); err != nil {
		return err
	}

	return s.attendanceRepo.Upsert(ctx, att)
}

// DeleteAttendance removes the record for (employee, date).
func (s *StaffService) DeleteAttendance(ctx context.Context, empID, date string) error {
	if !validation.IsValidEmployeeID(empID) {
		return errors.Validation(map[string]string{"emp_id": "invalid employee ID format"})
	}
	if !validation.IsValidDate(date) {
		return errors.Validation(map[string]string{"date": "must be a valid date (YYYY-MM-DD)"})
	}
	return s.attendanceRepo.Delete(ctx, empID, date)
}

// ListAttendance returns attendance rows for an employee in a date range.
func (s *StaffService) ListAttendance(ctx context.Context, empID, start, end string) ([]*repository.Attendance, error) {
	if !validation.IsValidEmployeeID(empID) {
		return nil, errors.Validation(map[string]string{"emp_id": "invalid employee ID format"})
	}
	if !validation.IsValidDate(start) || !validation.IsValidDate(end) {
		return nil, errors.Validation(map[string]string{"range": "start and end must be valid dates (YYYY-MM-DD)"})
	}
	return s.attendanceRepo.ListByEmployee(ctx, empID, start, end)
}
