package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/paycore/payroll-backend/internal/staff/repository"
	"github.com/paycore/payroll-backend/internal/staff/service"
	"github.com/paycore/payroll-backend/pkg/httputil"
	"github.com/paycore/payroll-backend/pkg/logger"
)

// EmployeeHandler handles employee endpoints
type EmployeeHandler struct {
	service *service.StaffService
	logger  *logger.Logger
}

// NewEmployeeHandler creates a new employee handler
func NewEmployeeHandler(svc *service.StaffService, log *logger.Logger) *EmployeeHandler {
	return &EmployeeHandler{service: svc, logger: log}
}

// List lists employees, optionally filtered by ?status=
func (h *EmployeeHandler) List(w http.ResponseWriter, r *http.Request) {
	employees, err := h.service.ListEmployees(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, employees)
}

// Get gets an employee by ID
func (h *EmployeeHandler) Get(w http.ResponseWriter, r *http.Request) {
	employee, err := h.service.GetEmployee(r.Context(), chi.URLParam(r, "empID"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, employee)
}

// Create creates a new employee
func (h *EmployeeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var emp repository.Employee
	if err := httputil.DecodeJSON(r, &emp); err != nil {
		httputil.Error(w, err)
		return
	}

	if err := h.service.CreateEmployee(r.Context(), &emp); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, emp)
}

// Update replaces an employee record
func (h *EmployeeHandler) Update(w http.ResponseWriter, r *http.Request) {
	var emp repository.Employee
	if err := httputil.DecodeJSON(r, &emp); err != nil {
		httputil.Error(w, err)
		return
	}
	emp.EmpID = chi.URLParam(r, "empID")

	if err := h.service.UpdateEmployee(r.Context(), &emp); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, emp)
}

// Delete removes an employee
func (h *EmployeeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteEmployee(r.Context(), chi.URLParam(r, "empID")); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.NoContent(w)
}
