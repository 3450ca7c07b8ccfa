package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/paycore/payroll-backend/internal/staff/repository"
	"github.com/paycore/payroll-backend/internal/staff/service"
	"github.com/paycore/payroll-backend/pkg/httputil"
	"github.com/paycore/payroll-backend/pkg/logger"
)

// AttendanceHandler handles attendance endpoints
type AttendanceHandler struct {
	service *service.StaffService
	logger  *logger.Logger
}

// NewAttendanceHandler creates a new attendance handler
func NewAttendanceHandler(svc *service.StaffService, log *logger.Logger) *AttendanceHandler {
	return &AttendanceHandler{service: svc, logger: log}
}

// Record upserts the attendance record for (employee, date)
func (h *AttendanceHandler) Record(w http.ResponseWriter, r *http.Request) {
	var att repository.Attendance
	if err := httputil.DecodeJSON(r, &att); err != nil {
		httputil.Error(w, err)
		return
	}

	if err := h.service.RecordAttendance(r.Context(), &att); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, att)
}

// List returns attendance rows for an employee in ?start=&end=
func (h *AttendanceHandler) List(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.ListAttendance(r.Context(),
		chi.URLParam(r, "empID"),
		r.URL.Query().Get("start"),
		r.URL.Query().Get("end"),
	)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, records)
}

// Delete removes the attendance record for (employee, date)
func (h *AttendanceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.service.DeleteAttendance(r.Context(), chi.URLParam(r, "empID"), chi.URLParam(r, "date"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.NoContent(w)
}
