package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/paycore/payroll-backend/internal/finance/repository"
	"github.com/paycore/payroll-backend/internal/finance/service"
	"github.com/paycore/payroll-backend/pkg/errors"
	"github.com/paycore/payroll-backend/pkg/httputil"
	"github.com/paycore/payroll-backend/pkg/logger"
)

// FinanceHandler handles revenue, expense and profit endpoints
type FinanceHandler struct {
	service *service.FinanceService
	logger  *logger.Logger
}

// NewFinanceHandler creates a new finance handler
func NewFinanceHandler(svc *service.FinanceService, log *logger.Logger) *FinanceHandler {
	return &FinanceHandler{service: svc, logger: log}
}

func idParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, errors.BadRequest("invalid id")
	}
	return id, nil
}

// AddRevenue records a revenue entry
func (h *FinanceHandler) AddRevenue(w http.ResponseWriter, r *http.Request) {
	var rev repository.Revenue
	if err := httputil.DecodeJSON(r, &rev); err != nil {
		httputil.Error(w, err)
		return
	}

	if err := h.service.AddRevenue(r.Context(), &rev); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, rev)
}

// UpdateRevenue replaces a revenue entry
func (h *FinanceHandler) UpdateRevenue(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var rev repository.Revenue
	if err := httputil.DecodeJSON(r, &rev); err != nil {
		httputil.Error(w, err)
		return
	}
	rev.ID = id

	if err := h.service.UpdateRevenue(r.Context(), &rev); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, rev)
}

// DeleteRevenue removes a revenue entry
func (h *FinanceHandler) DeleteRevenue(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	if err := h.service.DeleteRevenue(r.Context(), id); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.NoContent(w)
}

// ListRevenue returns revenue entries in ?start=&end=
func (h *FinanceHandler) ListRevenue(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.ListRevenue(r.Context(),
		r.URL.Query().Get("start"), r.URL.Query().Get("end"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, entries)
}

// AddExpense records an expense entry
func (h *FinanceHandler) AddExpense(w http.ResponseWriter, r *http.Request) {
	var exp repository.Expense
	if err := httputil.DecodeJSON(r, &exp); err != nil {
		httputil.Error(w, err)
		return
	}

	if err := h.service.AddExpense(r.Context(), &exp); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, exp)
}

// UpdateExpense replaces an expense entry
func (h *FinanceHandler) UpdateExpense(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var exp repository.Expense
	if err := httputil.DecodeJSON(r, &exp); err != nil {
		httputil.Error(w, err)
		return
	}
	exp.ID = id

	if err := h.service.UpdateExpense(r.Context(), &exp); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, exp)
}

// DeleteExpense removes an expense entry
func (h *FinanceHandler) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	if err := h.service.DeleteExpense(r.Context(), id); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.NoContent(w)
}

// ListExpenses returns expense entries in ?start=&end=
func (h *FinanceHandler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.ListExpenses(r.Context(),
		r.URL.Query().Get("start"), r.URL.Query().Get("end"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, entries)
}

// Profit computes a profit statement for ?start=&end=&salary_mode=
func (h *FinanceHandler) Profit(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("salary_mode")
	if mode == "" {
		mode = service.SalaryByMonth
	}

	stmt, err := h.service.ComputeProfit(r.Context(),
		r.URL.Query().Get("start"), r.URL.Query().Get("end"), mode)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, stmt)
}
