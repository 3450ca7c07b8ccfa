package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/paycore/payroll-backend/internal/payroll/repository"
	"github.com/paycore/payroll-backend/internal/payroll/service"
	"github.com/paycore/payroll-backend/pkg/errors"
	"github.com/paycore/payroll-backend/pkg/httputil"
	"github.com/paycore/payroll-backend/pkg/logger"
)

// PayrollHandler handles salary and tax bracket endpoints
type PayrollHandler struct {
	service *service.PayrollService
	logger  *logger.Logger
}

// NewPayrollHandler creates a new payroll handler
func NewPayrollHandler(svc *service.PayrollService, log *logger.Logger) *PayrollHandler {
	return &PayrollHandler{service: svc, logger: log}
}

// GenerateRequest identifies the record to generate or fetch
type GenerateRequest struct {
	EmpID string `json:"emp_id" validate:"required"`
	Month string `json:"month" validate:"required"`
}

// Generate returns the salary record for (employee, month), creating it
// when it does not exist yet.
func (h *PayrollHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	rec, err := h.service.GenerateOrFetch(r.Context(), req.EmpID, req.Month)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	if rec == nil {
		httputil.Error(w, errors.NotFound("salary record"))
		return
	}

	httputil.JSON(w, http.StatusOK, rec)
}

// SheetRequest identifies the month to build a sheet for
type SheetRequest struct {
	Month string `json:"month" validate:"required"`
}

// Sheet generates or fetches the salary records of all active employees
// for one month.
func (h *PayrollHandler) Sheet(w http.ResponseWriter, r *http.Request) {
	var req SheetRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	sheet, err := h.service.GenerateSheet(r.Context(), req.Month)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, sheet)
}

// AmountRequest carries a bonus or deduction value
type AmountRequest struct {
	Amount float64 `json:"amount"`
}

// SetBonus updates the bonus on an existing salary record
func (h *PayrollHandler) SetBonus(w http.ResponseWriter, r *http.Request) {
	h.setAmount(w, r, h.service.SetBonus)
}

// SetDeduction updates the deduction on an existing salary record
func (h *PayrollHandler) SetDeduction(w http.ResponseWriter, r *http.Request) {
	h.setAmount(w, r, h.service.SetDeduction)
}

func (h *PayrollHandler) setAmount(w http.ResponseWriter, r *http.Request,
	apply func(ctx context.Context, empID, month string, amount float64) (*repository.SalaryRecord, error)) {
	var req AmountRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	rec, err := apply(r.Context(), chi.URLParam(r, "empID"), chi.URLParam(r, "month"), req.Amount)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, rec)
}

// MarkPaid transitions a salary record to paid
func (h *PayrollHandler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	err := h.service.MarkPaid(r.Context(), chi.URLParam(r, "empID"), chi.URLParam(r, "month"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.NoContent(w)
}

// MarkUnpaid reverts a salary record to unpaid
func (h *PayrollHandler) MarkUnpaid(w http.ResponseWriter, r *http.Request) {
	err := h.service.MarkUnpaid(r.Context(), chi.URLParam(r, "empID"), chi.URLParam(r, "month"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.NoContent(w)
}

// BatchRequest lists the records for a batch transition
type BatchRequest struct {
	Keys []service.SalaryKey `json:"keys" validate:"required,min=1,dive"`
}

// MarkPaidBatch marks a set of records paid, counting successes
func (h *PayrollHandler) MarkPaidBatch(w http.ResponseWriter, r *http.Request) {
	h.batch(w, r, h.service.MarkPaidBatch)
}

// MarkUnpaidBatch marks a set of records unpaid, counting successes
func (h *PayrollHandler) MarkUnpaidBatch(w http.ResponseWriter, r *http.Request) {
	h.batch(w, r, h.service.MarkUnpaidBatch)
}

func (h *PayrollHandler) batch(w http.ResponseWriter, r *http.Request,
	apply func(ctx context.Context, keys []service.SalaryKey) (*service.BatchResult, error)) {
	var req BatchRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	result, err := apply(r.Context(), req.Keys)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, result)
}

// ListBrackets returns the tax bracket table
func (h *PayrollHandler) ListBrackets(w http.ResponseWriter, r *http.Request) {
	brackets, err := h.service.ListBrackets(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, brackets)
}

// CreateBracket adds a tax bracket
func (h *PayrollHandler) CreateBracket(w http.ResponseWriter, r *http.Request) {
	var b repository.TaxBracket
	if err := httputil.DecodeJSON(r, &b); err != nil {
		httputil.Error(w, err)
		return
	}

	if err := h.service.CreateBracket(r.Context(), &b); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, b)
}

// UpdateBracket replaces a tax bracket
func (h *PayrollHandler) UpdateBracket(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httputil.Error(w, errors.BadRequest("invalid id"))
		return
	}

	var b repository.TaxBracket
	if err := httputil.DecodeJSON(r, &b); err != nil {
		httputil.Error(w, err)
		return
	}
	b.ID = id

	if err := h.service.UpdateBracket(r.Context(), &b); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, b)
}
