package dto

import (
	"fmt"
	"time"

	"github.com/homestead/homestead/internal/cospend"
	"github.com/homestead/homestead/internal/model"
	"github.com/homestead/homestead/internal/service"
)

// DateLayout is the calendar date format used in request bodies.
const DateLayout = "2006-01-02"

// Date accepts "YYYY-MM-DD" as well as RFC 3339 timestamps.
type Date struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Date) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" || s == `""` {
		return nil
	}
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return fmt.Errorf("date must be a string")
	}
	s = s[1 : len(s)-1]
	for _, layout := range []string{DateLayout, time.RFC3339, time.RFC3339Nano} {
		if t, err := time.Parse(layout, s); err == nil {
			d.Time = t
			return nil
		}
	}
	return fmt.Errorf("invalid date %q", s)
}

// Ptr returns nil for an unset date.
func (d *Date) Ptr() *time.Time {
	if d == nil || d.IsZero() {
		return nil
	}
	t := d.Time
	return &t
}

// ParticipantRequest lets the server compute splits.
type ParticipantRequest struct {
	Username       string  `json:"username"`
	Proportion     float64 `json:"proportion,omitempty"`
	PersonalAmount float64 `json:"personal_amount,omitempty"`
}

// PaymentRequest is the body of payment create and update.
type PaymentRequest struct {
	Title        string                `json:"title"`
	Description  string                `json:"description"`
	Amount       float64               `json:"amount"`
	Currency     string                `json:"currency"`
	PaidBy       string                `json:"paid_by"`
	Date         *Date                 `json:"date"`
	Image        string                `json:"image"`
	Category     model.PaymentCategory `json:"category"`
	SplitMethod  model.SplitMethod     `json:"split_method"`
	Splits       []service.SplitInput  `json:"splits"`
	Participants []ParticipantRequest  `json:"participants"`
}

// ToInput converts the request into service input.
func (r *PaymentRequest) ToInput() service.PaymentInput {
	in := service.PaymentInput{
		Title:       r.Title,
		Description: r.Description,
		Amount:      r.Amount,
		Currency:    r.Currency,
		PaidBy:      r.PaidBy,
		Date:        r.Date.Ptr(),
		Image:       r.Image,
		Category:    r.Category,
		SplitMethod: r.SplitMethod,
		Splits:      r.Splits,
	}
	for _, p := range r.Participants {
		in.Participants = append(in.Participants, cospend.Participant{
			Username:       p.Username,
			Proportion:     p.Proportion,
			PersonalAmount: p.PersonalAmount,
		})
	}
	return in
}

// PaymentListResponse is one page of payments.
type PaymentListResponse struct {
	Payments []*model.Payment `json:"payments"`
	Limit    int              `json:"limit"`
	Offset   int              `json:"offset"`
}

// PaymentResponse wraps a single payment.
type PaymentResponse struct {
	Payment *model.Payment `json:"payment"`
}

// UploadRequest carries a receipt image as base64 or data URL.
type UploadRequest struct {
	Data     string `json:"data"`
	Filename string `json:"filename"`
}

// UploadResponse names the stored receipt relative to the media root.
type UploadResponse struct {
	Path string `json:"path"`
}

// CurrenciesResponse lists convertible currencies.
type CurrenciesResponse struct {
	Currencies []string `json:"currencies"`
}

// RecurringRequest is the body of recurring payment create and update.
type RecurringRequest struct {
	Title          string                 `json:"title"`
	Description    string                 `json:"description"`
	Amount         float64                `json:"amount"`
	Currency       string                 `json:"currency"`
	PaidBy         string                 `json:"paid_by"`
	Category       model.PaymentCategory  `json:"category"`
	SplitMethod    model.SplitMethod      `json:"split_method"`
	Splits         []model.RecurringSplit `json:"splits"`
	Frequency      model.Frequency        `json:"frequency"`
	CronExpression string                 `json:"cron_expression"`
	StartDate      *Date                  `json:"start_date"`
	EndDate        *Date                  `json:"end_date"`
	IsActive       *bool                  `json:"is_active"`
}

// ToInput converts the request into service input.
func (r *RecurringRequest) ToInput() service.RecurringInput {
	return service.RecurringInput{
		Title:          r.Title,
		Description:    r.Description,
		Amount:         r.Amount,
		Currency:       r.Currency,
		PaidBy:         r.PaidBy,
		Category:       r.Category,
		SplitMethod:    r.SplitMethod,
		Splits:         r.Splits,
		Frequency:      r.Frequency,
		CronExpression: r.CronExpression,
		StartDate:      r.StartDate.Ptr(),
		EndDate:        r.EndDate.Ptr(),
		IsActive:       r.IsActive,
	}
}

// RecurringListResponse lists recurring payments.
type RecurringListResponse struct {
	RecurringPayments []*model.RecurringPayment `json:"recurring_payments"`
}

// RecurringResponse wraps a single recurring payment.
type RecurringResponse struct {
	RecurringPayment *model.RecurringPayment `json:"recurring_payment"`
}

// SchedulerRequest triggers scheduler actions.
type SchedulerRequest struct {
	Action string `json:"action"`
}
