package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/homestead/homestead/internal/auth"
	"github.com/homestead/homestead/internal/handler/dto"
	"github.com/homestead/homestead/internal/service"
)

// Paging defaults of the payment list.
const (
	defaultPaymentLimit = 20
	defaultMonths       = 12
)

// PaymentHandler serves payments, balances and exchange rates.
type PaymentHandler struct {
	svc    *service.PaymentService
	logger *slog.Logger
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(svc *service.PaymentService, logger *slog.Logger) *PaymentHandler {
	return &PaymentHandler{
		svc:    svc,
		logger: logger,
	}
}

// List handles GET /api/cospend/payments.
func (h *PaymentHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", defaultPaymentLimit)
	offset := queryInt(r, "offset", 0)

	payments, err := h.svc.List(r.Context(), limit, offset)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.PaymentListResponse{
		Payments: payments,
		Limit:    limit,
		Offset:   offset,
	})
}

// Create handles POST /api/cospend/payments.
func (h *PaymentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.PaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	user := auth.UsernameFromContext(r.Context())
	payment, err := h.svc.Create(r.Context(), user, req.ToInput())
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("payment_created",
		"payment_id", payment.ID,
		"user", user,
		"amount", payment.Amount,
		"currency", payment.Currency,
		"splits", len(payment.Splits),
	)
	writeJSON(w, http.StatusCreated, dto.PaymentResponse{Payment: payment})
}

// Get handles GET /api/cospend/payments/{id}.
func (h *PaymentHandler) Get(w http.ResponseWriter, r *http.Request) {
	payment, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.PaymentResponse{Payment: payment})
}

// Update handles PUT /api/cospend/payments/{id}.
func (h *PaymentHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req dto.PaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	user := auth.UsernameFromContext(r.Context())
	payment, err := h.svc.Update(r.Context(), id, user, req.ToInput())
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("payment_updated", "payment_id", id, "user", user)
	writeJSON(w, http.StatusOK, dto.PaymentResponse{Payment: payment})
}

// Delete handles DELETE /api/cospend/payments/{id}.
func (h *PaymentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	user := auth.UsernameFromContext(r.Context())

	if err := h.svc.Delete(r.Context(), id, user); err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("payment_deleted", "payment_id", id, "user", user)
	w.WriteHeader(http.StatusNoContent)
}

// Balance handles GET /api/cospend/balance. With ?all=true the balance table
// of every user is included.
func (h *PaymentHandler) Balance(w http.ResponseWriter, r *http.Request) {
	overview, err := h.svc.Overview(r.Context(), auth.UsernameFromContext(r.Context()), queryBool(r, "all"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

// Debts handles GET /api/cospend/debts.
func (h *PaymentHandler) Debts(w http.ResponseWriter, r *http.Request) {
	debts, err := h.svc.Debts(r.Context(), auth.UsernameFromContext(r.Context()))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, debts)
}

// Monthly handles GET /api/cospend/monthly-expenses.
func (h *PaymentHandler) Monthly(w http.ResponseWriter, r *http.Request) {
	summary, err := h.svc.Monthly(r.Context(), queryInt(r, "months", defaultMonths))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// ExchangeRate handles GET /api/cospend/exchange-rates.
func (h *PaymentHandler) ExchangeRate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("from") == "" {
		writeError(w, http.StatusBadRequest, "MISSING_CURRENCY", "from is required")
		return
	}
	quote, err := h.svc.ExchangeRate(r.Context(), q.Get("from"), q.Get("date"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

// Currencies handles GET /api/cospend/currencies.
func (h *PaymentHandler) Currencies(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, dto.CurrenciesResponse{Currencies: h.svc.Currencies(r.Context())})
}

// handleServiceError maps service errors to HTTP responses.
func (h *PaymentHandler) handleServiceError(w http.ResponseWriter, err error) {
	if status, code, ok := cospendErrorStatus(err); ok {
		writeError(w, status, code, err.Error())
		return
	}
	h.logger.Error("internal_error", "error", err)
	writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
}

// cospendErrorStatus maps the validation errors shared by payments and
// recurring payments.
func cospendErrorStatus(err error) (int, string, bool) {
	switch {
	case errors.Is(err, service.ErrPaymentNotFound):
		return http.StatusNotFound, "PAYMENT_NOT_FOUND", true
	case errors.Is(err, service.ErrRecurringNotFound):
		return http.StatusNotFound, "RECURRING_PAYMENT_NOT_FOUND", true
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, "FORBIDDEN", true
	case errors.Is(err, service.ErrPaymentFieldsMissing),
		errors.Is(err, service.ErrRecurringFieldsMissing):
		return http.StatusBadRequest, "MISSING_FIELDS", true
	case errors.Is(err, service.ErrInvalidAmount):
		return http.StatusBadRequest, "INVALID_AMOUNT", true
	case errors.Is(err, service.ErrInvalidCategory):
		return http.StatusBadRequest, "INVALID_CATEGORY", true
	case errors.Is(err, service.ErrInvalidSplitMethod):
		return http.StatusBadRequest, "INVALID_SPLIT_METHOD", true
	case errors.Is(err, service.ErrInvalidCurrency):
		return http.StatusBadRequest, "INVALID_CURRENCY", true
	case errors.Is(err, service.ErrPersonalExceedsTotal):
		return http.StatusBadRequest, "PERSONAL_EXCEEDS_TOTAL", true
	case errors.Is(err, service.ErrInvalidProportions):
		return http.StatusBadRequest, "INVALID_PROPORTIONS", true
	case errors.Is(err, service.ErrInvalidDate):
		return http.StatusBadRequest, "INVALID_DATE", true
	case errors.Is(err, service.ErrInvalidPageSize):
		return http.StatusBadRequest, "INVALID_PAGINATION", true
	case errors.Is(err, service.ErrInvalidFrequency):
		return http.StatusBadRequest, "INVALID_FREQUENCY", true
	case errors.Is(err, service.ErrInvalidCronExpression):
		return http.StatusBadRequest, "INVALID_CRON_EXPRESSION", true
	case errors.Is(err, service.ErrEndBeforeStart):
		return http.StatusBadRequest, "INVALID_DATE_RANGE", true
	case errors.Is(err, service.ErrExchangeRateUnavailable):
		return http.StatusBadGateway, "EXCHANGE_RATE_UNAVAILABLE", true
	}
	return 0, "", false
}
