package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/paycore/payroll-backend/internal/backup/service"
	"github.com/paycore/payroll-backend/pkg/errors"
	"github.com/paycore/payroll-backend/pkg/httputil"
	"github.com/paycore/payroll-backend/pkg/logger"
)

// BackupHandler handles snapshot endpoints
type BackupHandler struct {
	service *service.BackupService
	logger  *logger.Logger
}

// NewBackupHandler creates a new backup handler
func NewBackupHandler(svc *service.BackupService, log *logger.Logger) *BackupHandler {
	return &BackupHandler{service: svc, logger: log}
}

func idParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, errors.BadRequest("invalid id")
	}
	return id, nil
}

// Create takes a snapshot of the live data file
func (h *BackupHandler) Create(w http.ResponseWriter, r *http.Request) {
	entry, err := h.service.Backup(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.Created(w, entry)
}

// Restore overwrites the live data file with a snapshot
func (h *BackupHandler) Restore(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	if err := h.service.Restore(r.Context(), id); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.NoContent(w)
}

// Delete removes a snapshot and its ledger entry
func (h *BackupHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.NoContent(w)
}

// List returns the snapshot ledger
func (h *BackupHandler) List(w http.ResponseWriter, r *http.Request) {
	backups, err := h.service.List(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, backups)
}
