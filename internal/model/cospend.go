package model

import (
	"slices"
	"time"
)

// BaseCurrency is the ledger currency. Foreign amounts are converted into it.
const BaseCurrency = "CHF"

// PaymentCategory classifies an expense.
type PaymentCategory string

const (
	CategoryGroceries  PaymentCategory = "groceries"
	CategoryShopping   PaymentCategory = "shopping"
	CategoryTravel     PaymentCategory = "travel"
	CategoryRestaurant PaymentCategory = "restaurant"
	CategoryUtilities  PaymentCategory = "utilities"
	CategoryFun        PaymentCategory = "fun"
	CategorySettlement PaymentCategory = "settlement"
)

// PaymentCategories lists every valid category.
var PaymentCategories = []PaymentCategory{
	CategoryGroceries, CategoryShopping, CategoryTravel, CategoryRestaurant,
	CategoryUtilities, CategoryFun, CategorySettlement,
}

// IsValid checks the category against the known set.
func (c PaymentCategory) IsValid() bool {
	return slices.Contains(PaymentCategories, c)
}

// SplitMethod describes how a payment is divided among participants.
type SplitMethod string

const (
	SplitEqual         SplitMethod = "equal"
	SplitFull          SplitMethod = "full"
	SplitProportional  SplitMethod = "proportional"
	SplitPersonalEqual SplitMethod = "personal_equal"
)

// IsValid checks the split method against the known set.
func (m SplitMethod) IsValid() bool {
	switch m {
	case SplitEqual, SplitFull, SplitProportional, SplitPersonalEqual:
		return true
	}
	return false
}

// Payment is a single shared expense.
type Payment struct {
	ID             string          `json:"id"`
	Title          string          `json:"title"`
	Description    string          `json:"description,omitempty"`
	Amount         float64         `json:"amount"`
	Currency       string          `json:"currency"`
	OriginalAmount *float64        `json:"original_amount,omitempty"`
	ExchangeRate   *float64        `json:"exchange_rate,omitempty"`
	PaidBy         string          `json:"paid_by"`
	Date           time.Time       `json:"date"`
	Image          string          `json:"image,omitempty"`
	Category       PaymentCategory `json:"category"`
	SplitMethod    SplitMethod     `json:"split_method"`
	CreatedBy      string          `json:"created_by"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	Splits         []*PaymentSplit `json:"splits,omitempty"`
}

// Participants returns the usernames that appear in the payment's splits.
func (p *Payment) Participants() []string {
	out := make([]string, 0, len(p.Splits))
	for _, s := range p.Splits {
		out = append(out, s.Username)
	}
	return out
}

// PaymentSplit is one participant's share of a payment.
// A positive amount means the user owes, a negative amount means the user is owed.
type PaymentSplit struct {
	ID             string     `json:"id"`
	PaymentID      string     `json:"payment_id"`
	Username       string     `json:"username"`
	Amount         float64    `json:"amount"`
	Proportion     *float64   `json:"proportion,omitempty"`
	PersonalAmount *float64   `json:"personal_amount,omitempty"`
	Settled        bool       `json:"settled"`
	SettledAt      *time.Time `json:"settled_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// SplitWithPayment joins a split with its payment for balance views.
type SplitWithPayment struct {
	PaymentSplit
	Payment   *Payment `json:"payment"`
	OtherUser string   `json:"other_user,omitempty"`
}

// UserBalance aggregates a user's position across all splits.
type UserBalance struct {
	Username   string  `json:"username"`
	TotalOwed  float64 `json:"total_owed"`
	TotalOwing float64 `json:"total_owing"`
	NetBalance float64 `json:"net_balance"`
}

// DebtEntry is the net position between the current user and one other user.
type DebtEntry struct {
	Username     string   `json:"username"`
	NetAmount    float64  `json:"net_amount"`
	PaymentCount int      `json:"payment_count"`
	PaymentIDs   []string `json:"payment_ids,omitempty"`
}

// DebtSummary splits debts by direction.
type DebtSummary struct {
	WhoOwesMe     []DebtEntry `json:"who_owes_me"`
	WhoIOwe       []DebtEntry `json:"who_i_owe"`
	TotalOwedToMe float64     `json:"total_owed_to_me"`
	TotalIOwe     float64     `json:"total_i_owe"`
}

// MonthlyExpense is one month/category bucket.
type MonthlyExpense struct {
	Month    string          `json:"month"`
	Category PaymentCategory `json:"category"`
	Total    float64         `json:"total"`
	Count    int             `json:"count"`
}

// ExchangeRate is a cached daily conversion rate.
type ExchangeRate struct {
	FromCurrency string    `json:"from_currency"`
	ToCurrency   string    `json:"to_currency"`
	Rate         float64   `json:"rate"`
	Date         string    `json:"date"`
	CreatedAt    time.Time `json:"created_at"`
}

// Frequency controls how often a recurring payment fires.
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyCustom  Frequency = "custom"
)

// IsValid checks the frequency against the known set.
func (f Frequency) IsValid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyCustom:
		return true
	}
	return false
}

// RecurringSplit is the template for a split created on each execution.
type RecurringSplit struct {
	Username       string   `json:"username"`
	Amount         float64  `json:"amount"`
	Proportion     *float64 `json:"proportion,omitempty"`
	PersonalAmount *float64 `json:"personal_amount,omitempty"`
}

// RecurringPayment generates payments on a schedule.
type RecurringPayment struct {
	ID                string           `json:"id"`
	Title             string           `json:"title"`
	Description       string           `json:"description,omitempty"`
	Amount            float64          `json:"amount"`
	Currency          string           `json:"currency"`
	PaidBy            string           `json:"paid_by"`
	Category          PaymentCategory  `json:"category"`
	SplitMethod       SplitMethod      `json:"split_method"`
	Splits            []RecurringSplit `json:"splits"`
	Frequency         Frequency        `json:"frequency"`
	CronExpression    string           `json:"cron_expression,omitempty"`
	IsActive          bool             `json:"is_active"`
	NextExecutionDate time.Time        `json:"next_execution_date"`
	LastExecutionDate *time.Time       `json:"last_execution_date,omitempty"`
	StartDate         time.Time        `json:"start_date"`
	EndDate           *time.Time       `json:"end_date,omitempty"`
	CreatedBy         string           `json:"created_by"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

// IsDue reports whether the payment should run at now.
func (r *RecurringPayment) IsDue(now time.Time) bool {
	if !r.IsActive || r.NextExecutionDate.After(now) {
		return false
	}
	return r.EndDate == nil || !r.EndDate.Before(now)
}

// RecurringExecution is the outcome of running one recurring payment.
type RecurringExecution struct {
	RecurringPaymentID string     `json:"recurring_payment_id"`
	PaymentID          string     `json:"payment_id,omitempty"`
	Title              string     `json:"title"`
	Amount             float64    `json:"amount"`
	NextExecution      *time.Time `json:"next_execution,omitempty"`
	Success            bool       `json:"success"`
	Error              string     `json:"error,omitempty"`
}

// RecurringRun summarizes one pass over due recurring payments.
type RecurringRun struct {
	Timestamp  time.Time            `json:"timestamp"`
	Processed  int                  `json:"processed"`
	Successful int                  `json:"successful"`
	Failed     int                  `json:"failed"`
	Results    []RecurringExecution `json:"results"`
}
