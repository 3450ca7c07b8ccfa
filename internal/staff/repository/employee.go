package repository

import (
	"context"
	"database/sql"

	"github.com/paycore/payroll-backend/pkg/database"
	"github.com/paycore/payroll-backend/pkg/errors"
)

// Employee statuses
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// Employee represents an employee. All dates are stored as YYYY-MM-DD
// text; the employee ID is system-generated and encodes creation time.
type Employee struct {
	EmpID      string  `db:"emp_id" json:"emp_id"`
	Name       string  `db:"name" json:"name"`
	Department string  `db:"department" json:"department"`
	Position   string  `db:"position" json:"position"`
	BaseSalary float64 `db:"base_salary" json:"base_salary"`
	HireDate   string  `db:"hire_date" json:"hire_date"`
	Status     string  `db:"status" json:"status"` // active, inactive
	LeaveDate  *string `db:"leave_date" json:"leave_date,omitempty"`
	Contact    string  `db:"contact" json:"contact,omitempty"`
}

const employeeColumns = "emp_id, name, department, position, base_salary, hire_date, status, leave_date, COALESCE(contact, '') AS contact"

// EmployeeRepository handles employee persistence
type EmployeeRepository struct {
	db *database.DB
}

// NewEmployeeRepository creates a new employee repository
func NewEmployeeRepository(db *database.DB) *EmployeeRepository {
	return &EmployeeRepository{db: db}
}

// Create inserts a new employee
func (r *EmployeeRepository) Create(ctx context.Context, emp *Employee) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO employees (emp_id, name, department, position, base_salary, hire_date, status, leave_date, contact)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		emp.EmpID, emp.Name, emp.Department, emp.Position,
		emp.BaseSalary, emp.HireDate, emp.Status, emp.LeaveDate, emp.Contact,
	)
	return err
}

// Update replaces every mutable field of an employee record
func (r *EmployeeRepository) Update(ctx context.Context, emp *Employee) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE employees
		 SET name=?, department=?, position=?, base_salary=?, hire_date=?, status=?, leave_date=?, contact=?
		 WHERE emp_id=?`,
		emp.Name, emp.Department, emp.Position, emp.BaseSalary,
		emp.HireDate, emp.Status, emp.LeaveDate, emp.Contact, emp.EmpID,
	)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return errors.NotFound("employee")
	}
	return nil
}

// GetByID gets an employee by ID
func (r *EmployeeRepository) GetByID(ctx context.Context, empID string) (*Employee, error) {
	var emp Employee
	err := r.db.GetContext(ctx, &emp,
		"SELECT "+employeeColumns+" FROM employees WHERE emp_id = ?", empID)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("employee")
	}
	if err != nil {
		return nil, err
	}
	return &emp, nil
}

// List returns employees, optionally filtered by status.
func (r *EmployeeRepository) List(ctx context.Context, status string) ([]*Employee, error) {
	employees := []*Employee{}
	var err error
	if status != "" {
		err = r.db.SelectContext(ctx, &employees,
			"SELECT "+employeeColumns+" FROM employees WHERE status = ? ORDER BY emp_id", status)
	} else {
		err = r.db.SelectContext(ctx, &employees,
			"SELECT "+employeeColumns+" FROM employees ORDER BY emp_id")
	}
	if err != nil {
		return nil, err
	}
	return employees, nil
}

// CountByName counts employees with the given name, excluding excludeID
// when non-empty. Name uniqueness spans active and inactive records.
func (r *EmployeeRepository) CountByName(ctx context.Context, name, excludeID string) (int, error) {
	var count int
	var err error
	if excludeID != "" {
		err = r.db.GetContext(ctx, &count,
			"SELECT COUNT(*) FROM employees WHERE name = ? AND emp_id != ?", name, excludeID)
	} else {
		err = r.db.GetContext(ctx, &count,
			"SELECT COUNT(*) FROM employees WHERE name = ?", name)
	}
	return count, err
}

// Delete removes an employee row. Historical salary and attendance rows
// keep their foreign-key reference; nothing cascades.
func (r *EmployeeRepository) Delete(ctx context.Context, empID string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM employees WHERE emp_id = ?", empID)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return errors.NotFound("employee")
	}
	return nil
}
