package handler

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/homestead/homestead/internal/service"
)

func TestCospendErrorStatus(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
		wantCode   string
	}{
		{service.ErrPaymentNotFound, http.StatusNotFound, "PAYMENT_NOT_FOUND"},
		{service.ErrRecurringNotFound, http.StatusNotFound, "RECURRING_PAYMENT_NOT_FOUND"},
		{service.ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
		{service.ErrRecurringFieldsMissing, http.StatusBadRequest, "MISSING_FIELDS"},
		{service.ErrPersonalExceedsTotal, http.StatusBadRequest, "PERSONAL_EXCEEDS_TOTAL"},
		{service.ErrInvalidCronExpression, http.StatusBadRequest, "INVALID_CRON_EXPRESSION"},
		{service.ErrEndBeforeStart, http.StatusBadRequest, "INVALID_DATE_RANGE"},
		{fmt.Errorf("convert USD: %w", service.ErrExchangeRateUnavailable), http.StatusBadGateway, "EXCHANGE_RATE_UNAVAILABLE"},
	}

	for _, tt := range tests {
		t.Run(tt.wantCode, func(t *testing.T) {
			status, code, ok := cospendErrorStatus(tt.err)
			if !ok {
				t.Fatalf("cospendErrorStatus(%v) not mapped", tt.err)
			}
			if status != tt.wantStatus || code != tt.wantCode {
				t.Errorf("got %d %s, want %d %s", status, code, tt.wantStatus, tt.wantCode)
			}
		})
	}

	if _, _, ok := cospendErrorStatus(errors.New("connection reset")); ok {
		t.Error("unexpected mapping for an unknown error")
	}
}
