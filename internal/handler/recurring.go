package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/homestead/homestead/internal/auth"
	"github.com/homestead/homestead/internal/handler/dto"
	"github.com/homestead/homestead/internal/model"
	"github.com/homestead/homestead/internal/scheduler"
	"github.com/homestead/homestead/internal/service"
)

// RecurringHandler serves recurring payments and the scheduler controls.
type RecurringHandler struct {
	svc       *service.RecurringService
	scheduler *scheduler.Scheduler
	logger    *slog.Logger
	now       func() time.Time
}

// NewRecurringHandler creates a new RecurringHandler. sched may be nil when
// the background scheduler is disabled.
func NewRecurringHandler(svc *service.RecurringService, sched *scheduler.Scheduler, logger *slog.Logger) *RecurringHandler {
	return &RecurringHandler{
		svc:       svc,
		scheduler: sched,
		logger:    logger,
		now:       time.Now,
	}
}

// List handles GET /api/cospend/recurring-payments. ?active=true hides
// deactivated items.
func (h *RecurringHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.List(r.Context(), queryBool(r, "active"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	if items == nil {
		items = []*model.RecurringPayment{}
	}
	writeJSON(w, http.StatusOK, dto.RecurringListResponse{RecurringPayments: items})
}

// Create handles POST /api/cospend/recurring-payments.
func (h *RecurringHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.RecurringRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	user := auth.UsernameFromContext(r.Context())
	rp, err := h.svc.Create(r.Context(), user, req.ToInput())
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("recurring_payment_created",
		"recurring_payment_id", rp.ID,
		"user", user,
		"frequency", rp.Frequency,
		"next_execution", rp.NextExecutionDate,
	)
	writeJSON(w, http.StatusCreated, dto.RecurringResponse{RecurringPayment: rp})
}

// Get handles GET /api/cospend/recurring-payments/{id}.
func (h *RecurringHandler) Get(w http.ResponseWriter, r *http.Request) {
	rp, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.RecurringResponse{RecurringPayment: rp})
}

// Update handles PUT /api/cospend/recurring-payments/{id}.
func (h *RecurringHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req dto.RecurringRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	rp, err := h.svc.Update(r.Context(), id, req.ToInput())
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("recurring_payment_updated",
		"recurring_payment_id", id,
		"user", auth.UsernameFromContext(r.Context()),
	)
	writeJSON(w, http.StatusOK, dto.RecurringResponse{RecurringPayment: rp})
}

// Delete handles DELETE /api/cospend/recurring-payments/{id}.
func (h *RecurringHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.Delete(r.Context(), id); err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("recurring_payment_deleted", "recurring_payment_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// Execute handles POST /api/cospend/recurring-payments/execute and runs the
// due items created by the current user.
func (h *RecurringHandler) Execute(w http.ResponseWriter, r *http.Request) {
	user := auth.UsernameFromContext(r.Context())
	run, err := h.svc.ExecuteDue(r.Context(), h.now(), user)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("recurring_payments_executed",
		"user", user,
		"processed", run.Processed,
		"failed", run.Failed,
	)
	writeJSON(w, http.StatusOK, run)
}

// SchedulerStatus handles GET /api/cospend/recurring-payments/scheduler.
func (h *RecurringHandler) SchedulerStatus(w http.ResponseWriter, r *http.Request) {
	if h.scheduler == nil {
		writeJSON(w, http.StatusOK, scheduler.Status{})
		return
	}
	writeJSON(w, http.StatusOK, h.scheduler.Status())
}

// SchedulerAction handles POST /api/cospend/recurring-payments/scheduler.
// The actions "run" and "execute" trigger an immediate pass over all users.
func (h *RecurringHandler) SchedulerAction(w http.ResponseWriter, r *http.Request) {
	var req dto.SchedulerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	switch req.Action {
	case "run", "execute":
	default:
		writeError(w, http.StatusBadRequest, "INVALID_ACTION", "action must be run or execute")
		return
	}

	var (
		run *model.RecurringRun
		err error
	)
	if h.scheduler != nil {
		run, err = h.scheduler.Trigger(r.Context())
	} else {
		run, err = h.svc.ExecuteAllDue(r.Context(), h.now())
	}
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("scheduler_triggered",
		"user", auth.UsernameFromContext(r.Context()),
		"processed", run.Processed,
	)
	writeJSON(w, http.StatusOK, run)
}

// handleServiceError maps service errors to HTTP responses.
func (h *RecurringHandler) handleServiceError(w http.ResponseWriter, err error) {
	if errors.Is(err, scheduler.ErrAlreadyRunning) {
		writeError(w, http.StatusConflict, "SCHEDULER_BUSY", "A scheduler run is already in progress")
		return
	}
	if status, code, ok := cospendErrorStatus(err); ok {
		writeError(w, status, code, err.Error())
		return
	}
	h.logger.Error("internal_error", "error", err)
	writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
}
