package cospend

import (
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/homestead/homestead/internal/model"
)

// Recurring schedule errors.
var (
	ErrCronRequired     = errors.New("cron expression required for custom frequency")
	ErrInvalidCron      = errors.New("invalid cron expression")
	ErrInvalidFrequency = errors.New("invalid frequency")
)

// AutoDescriptionSuffix is appended to payments generated from a recurring payment.
const AutoDescriptionSuffix = " (Auto-generated from recurring payment)"

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ParseCron validates a standard five-field cron expression.
func ParseCron(expr string) (cron.Schedule, error) {
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCron, err)
	}
	return sched, nil
}

// NextExecution returns the next run after from for the given frequency.
func NextExecution(freq model.Frequency, cronExpr string, from time.Time) (time.Time, error) {
	switch freq {
	case model.FrequencyDaily:
		return from.AddDate(0, 0, 1), nil
	case model.FrequencyWeekly:
		return from.AddDate(0, 0, 7), nil
	case model.FrequencyMonthly:
		return from.AddDate(0, 1, 0), nil
	case model.FrequencyCustom:
		if cronExpr == "" {
			return time.Time{}, ErrCronRequired
		}
		sched, err := ParseCron(cronExpr)
		if err != nil {
			return time.Time{}, err
		}
		return sched.Next(from), nil
	default:
		return time.Time{}, ErrInvalidFrequency
	}
}

// ValidateSchedule checks frequency and cron expression together.
func ValidateSchedule(freq model.Frequency, cronExpr string) error {
	if !freq.IsValid() {
		return ErrInvalidFrequency
	}
	if freq != model.FrequencyCustom {
		return nil
	}
	if cronExpr == "" {
		return ErrCronRequired
	}
	_, err := ParseCron(cronExpr)
	return err
}

// Materialize builds the payment generated by one execution of r at now.
func Materialize(r *model.RecurringPayment, now time.Time) *model.Payment {
	p := &model.Payment{
		Title:       r.Title,
		Description: r.Description + AutoDescriptionSuffix,
		Amount:      r.Amount,
		Currency:    r.Currency,
		PaidBy:      r.PaidBy,
		Date:        now,
		Category:    r.Category,
		SplitMethod: r.SplitMethod,
		CreatedBy:   r.CreatedBy + " (Auto)",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for _, s := range r.Splits {
		split := &model.PaymentSplit{
			Username:  s.Username,
			Amount:    s.Amount,
			CreatedAt: now,
		}
		if s.Proportion != nil {
			v := *s.Proportion
			split.Proportion = &v
		}
		if s.PersonalAmount != nil {
			v := *s.PersonalAmount
			split.PersonalAmount = &v
		}
		p.Splits = append(p.Splits, split)
	}
	return p
}

// Advance records an execution at now and schedules the next one. The payment
// is deactivated when the next run falls after its end date.
func Advance(r *model.RecurringPayment, now time.Time) error {
	next, err := NextExecution(r.Frequency, r.CronExpression, now)
	if err != nil {
		return err
	}
	last := now
	r.LastExecutionDate = &last
	r.NextExecutionDate = next
	if r.EndDate != nil && next.After(*r.EndDate) {
		r.IsActive = false
	}
	r.UpdatedAt = now
	return nil
}
