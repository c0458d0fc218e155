package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/homestead/homestead/internal/cospend"
	"github.com/homestead/homestead/internal/exchange"
	"github.com/homestead/homestead/internal/metrics"
	"github.com/homestead/homestead/internal/model"
	"github.com/homestead/homestead/internal/repository"
)

// Recurring payment errors.
var (
	ErrRecurringNotFound      = errors.New("recurring payment not found")
	ErrRecurringFieldsMissing = errors.New("title, amount, paid_by, frequency and splits are required")
	ErrInvalidFrequency       = errors.New("invalid frequency")
	ErrInvalidCronExpression  = errors.New("valid cron expression required for custom frequency")
	ErrEndBeforeStart         = errors.New("end_date must not be before start_date")
)

// RecurringStore persists recurring payments.
type RecurringStore interface {
	CreateRecurring(ctx context.Context, rp *model.RecurringPayment) error
	UpdateRecurring(ctx context.Context, rp *model.RecurringPayment) error
	DeleteRecurring(ctx context.Context, id string) error
	GetRecurring(ctx context.Context, id string) (*model.RecurringPayment, error)
	ListRecurring(ctx context.Context, activeOnly bool) ([]*model.RecurringPayment, error)
	ListDueRecurring(ctx context.Context, now time.Time, username string) ([]*model.RecurringPayment, error)
	ExecuteRecurring(ctx context.Context, rp *model.RecurringPayment, payment *model.Payment) error
}

// RecurringService manages recurring payments and their execution.
type RecurringService struct {
	repo      RecurringStore
	cache     CospendCache
	converter CurrencyConverter
	logger    *slog.Logger
	metrics   metrics.Recorder
	now       func() time.Time
}

// NewRecurringService creates a new RecurringService.
func NewRecurringService(repo RecurringStore, c CospendCache, converter CurrencyConverter, logger *slog.Logger, recorder metrics.Recorder) *RecurringService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &RecurringService{
		repo:      repo,
		cache:     c,
		converter: converter,
		logger:    logger.With("component", "recurring"),
		metrics:   recorder,
		now:       time.Now,
	}
}

// RecurringInput carries the editable fields of a recurring payment.
type RecurringInput struct {
	Title          string
	Description    string
	Amount         float64
	Currency       string
	PaidBy         string
	Category       model.PaymentCategory
	SplitMethod    model.SplitMethod
	Splits         []model.RecurringSplit
	Frequency      model.Frequency
	CronExpression string
	StartDate      *time.Time
	EndDate        *time.Time
	IsActive       *bool
}

func (s *RecurringService) validate(in *RecurringInput) error {
	in.Title = strings.TrimSpace(in.Title)
	in.PaidBy = strings.TrimSpace(in.PaidBy)
	in.CronExpression = strings.TrimSpace(in.CronExpression)
	if in.Title == "" || in.Amount == 0 || in.PaidBy == "" || in.Frequency == "" || len(in.Splits) == 0 {
		return ErrRecurringFieldsMissing
	}
	if in.Amount < 0 {
		return ErrInvalidAmount
	}
	if in.Category == "" {
		in.Category = model.CategoryGroceries
	}
	if !in.Category.IsValid() {
		return ErrInvalidCategory
	}
	if in.SplitMethod == "" {
		in.SplitMethod = model.SplitEqual
	}
	if !in.SplitMethod.IsValid() {
		return ErrInvalidSplitMethod
	}
	in.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))
	if in.Currency == "" {
		in.Currency = model.BaseCurrency
	}
	if !exchange.IsValidCurrency(in.Currency) {
		return ErrInvalidCurrency
	}

	if err := cospend.ValidateSchedule(in.Frequency, in.CronExpression); err != nil {
		if errors.Is(err, cospend.ErrInvalidFrequency) {
			return ErrInvalidFrequency
		}
		return ErrInvalidCronExpression
	}
	if in.Frequency != model.FrequencyCustom {
		in.CronExpression = ""
	}

	if in.SplitMethod == model.SplitPersonalEqual {
		var personal float64
		for _, sp := range in.Splits {
			if sp.PersonalAmount != nil {
				personal += *sp.PersonalAmount
			}
		}
		if personal > in.Amount+0.005 {
			return ErrPersonalExceedsTotal
		}
	}

	if in.StartDate != nil && in.EndDate != nil && in.EndDate.Before(*in.StartDate) {
		return ErrEndBeforeStart
	}
	return nil
}

// Create stores a recurring payment. The first execution is the first
// occurrence after the start date.
func (s *RecurringService) Create(ctx context.Context, username string, in RecurringInput) (*model.RecurringPayment, error) {
	if err := s.validate(&in); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	start := now
	if in.StartDate != nil {
		start = in.StartDate.UTC()
	}
	next, err := cospend.NextExecution(in.Frequency, in.CronExpression, start)
	if err != nil {
		return nil, ErrInvalidCronExpression
	}

	rp := &model.RecurringPayment{
		ID:                newID(),
		Title:             in.Title,
		Description:       strings.TrimSpace(in.Description),
		Amount:            in.Amount,
		Currency:          in.Currency,
		PaidBy:            in.PaidBy,
		Category:          in.Category,
		SplitMethod:       in.SplitMethod,
		Splits:            in.Splits,
		Frequency:         in.Frequency,
		CronExpression:    in.CronExpression,
		IsActive:          true,
		NextExecutionDate: next,
		StartDate:         start,
		EndDate:           in.EndDate,
		CreatedBy:         username,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if in.IsActive != nil {
		rp.IsActive = *in.IsActive
	}

	if err := s.repo.CreateRecurring(ctx, rp); err != nil {
		return nil, fmt.Errorf("failed to create recurring payment: %w", err)
	}
	return rp, nil
}

// Get returns one recurring payment.
func (s *RecurringService) Get(ctx context.Context, id string) (*model.RecurringPayment, error) {
	rp, err := s.repo.GetRecurring(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrRecurringNotFound) {
			return nil, ErrRecurringNotFound
		}
		return nil, err
	}
	return rp, nil
}

// List returns recurring payments ordered by next execution.
func (s *RecurringService) List(ctx context.Context, activeOnly bool) ([]*model.RecurringPayment, error) {
	list, err := s.repo.ListRecurring(ctx, activeOnly)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []*model.RecurringPayment{}
	}
	return list, nil
}

// Update replaces the editable fields. The next execution is recomputed when
// the schedule or start date changed.
func (s *RecurringService) Update(ctx context.Context, id string, in RecurringInput) (*model.RecurringPayment, error) {
	rp, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.StartDate == nil {
		start := rp.StartDate
		in.StartDate = &start
	}
	if err := s.validate(&in); err != nil {
		return nil, err
	}

	reschedule := in.Frequency != rp.Frequency ||
		in.CronExpression != rp.CronExpression ||
		!in.StartDate.Equal(rp.StartDate)

	rp.Title = in.Title
	rp.Description = strings.TrimSpace(in.Description)
	rp.Amount = in.Amount
	rp.Currency = in.Currency
	rp.PaidBy = in.PaidBy
	rp.Category = in.Category
	rp.SplitMethod = in.SplitMethod
	rp.Splits = in.Splits
	rp.Frequency = in.Frequency
	rp.CronExpression = in.CronExpression
	rp.StartDate = in.StartDate.UTC()
	rp.EndDate = in.EndDate
	if in.IsActive != nil {
		rp.IsActive = *in.IsActive
	}
	if reschedule {
		next, err := cospend.NextExecution(rp.Frequency, rp.CronExpression, rp.StartDate)
		if err != nil {
			return nil, ErrInvalidCronExpression
		}
		rp.NextExecutionDate = next
	}
	rp.UpdatedAt = s.now().UTC()

	if err := s.repo.UpdateRecurring(ctx, rp); err != nil {
		if errors.Is(err, repository.ErrRecurringNotFound) {
			return nil, ErrRecurringNotFound
		}
		return nil, fmt.Errorf("failed to update recurring payment: %w", err)
	}
	return rp, nil
}

// Delete removes a recurring payment. Payments it generated are kept.
func (s *RecurringService) Delete(ctx context.Context, id string) error {
	if err := s.repo.DeleteRecurring(ctx, id); err != nil {
		if errors.Is(err, repository.ErrRecurringNotFound) {
			return ErrRecurringNotFound
		}
		return err
	}
	return nil
}

// ExecuteAllDue runs the due payments of every user.
func (s *RecurringService) ExecuteAllDue(ctx context.Context, now time.Time) (*model.RecurringRun, error) {
	return s.ExecuteDue(ctx, now, "")
}

// ExecuteDue runs every due payment created by username, or by anyone when
// username is empty. One failing item does not stop the others.
func (s *RecurringService) ExecuteDue(ctx context.Context, now time.Time, username string) (*model.RecurringRun, error) {
	now = now.UTC()
	due, err := s.repo.ListDueRecurring(ctx, now, username)
	if err != nil {
		return nil, fmt.Errorf("failed to list due recurring payments: %w", err)
	}

	run := &model.RecurringRun{Timestamp: now, Results: []model.RecurringExecution{}}
	for _, rp := range due {
		if err := ctx.Err(); err != nil {
			return run, err
		}

		res, skipped := s.execute(ctx, rp, now)
		if skipped {
			continue
		}
		run.Processed++
		if res.Success {
			run.Successful++
			s.metrics.IncRecurringExecution(metrics.StatusSuccess)
		} else {
			run.Failed++
			s.metrics.IncRecurringExecution(metrics.StatusFailed)
		}
		run.Results = append(run.Results, res)
	}
	return run, nil
}

// execute materializes one payment. skipped is set when a concurrent run
// already handled the item.
func (s *RecurringService) execute(ctx context.Context, rp *model.RecurringPayment, now time.Time) (res model.RecurringExecution, skipped bool) {
	res = model.RecurringExecution{
		RecurringPaymentID: rp.ID,
		Title:              rp.Title,
		Amount:             rp.Amount,
	}

	payment := cospend.Materialize(rp, now)
	payment.ID = newID()
	for _, sp := range payment.Splits {
		sp.ID = newID()
		sp.PaymentID = payment.ID
	}
	s.convert(ctx, payment)

	if err := cospend.Advance(rp, now); err != nil {
		return s.failed(res, rp, err), false
	}

	if err := s.repo.ExecuteRecurring(ctx, rp, payment); err != nil {
		if errors.Is(err, repository.ErrRecurringNotDue) || errors.Is(err, repository.ErrRecurringNotFound) {
			return res, true
		}
		return s.failed(res, rp, err), false
	}

	next := rp.NextExecutionDate
	res.PaymentID = payment.ID
	res.Amount = payment.Amount
	res.NextExecution = &next
	res.Success = true

	if s.cache != nil {
		if err := s.cache.InvalidateCospend(ctx, payment.ID, involved(payment)...); err != nil {
			_ = err
		}
	}

	s.logger.Info("recurring_payment_executed",
		slog.String("recurring_payment_id", rp.ID),
		slog.String("payment_id", payment.ID),
		slog.Time("next_execution", next),
	)
	return res, false
}

func (s *RecurringService) failed(res model.RecurringExecution, rp *model.RecurringPayment, err error) model.RecurringExecution {
	s.logger.Error("recurring_payment_failed",
		slog.String("recurring_payment_id", rp.ID),
		slog.String("error", err.Error()),
	)
	res.Error = err.Error()
	return res
}

// convert turns a foreign-currency payment into CHF. When no rate can be
// found the payment keeps its original amount.
func (s *RecurringService) convert(ctx context.Context, p *model.Payment) {
	if p.Currency == model.BaseCurrency || s.converter == nil {
		return
	}
	chf, rate, err := s.converter.Convert(ctx, p.Amount, p.Currency, p.Date)
	if err != nil {
		s.logger.Warn("recurring_conversion_failed",
			slog.String("currency", p.Currency),
			slog.String("error", err.Error()),
		)
		return
	}
	original := p.Amount
	p.OriginalAmount = &original
	p.ExchangeRate = &rate
	p.Amount = cospend.Round2(chf)
	cospend.ConvertSplits(p.Splits, rate)
}
