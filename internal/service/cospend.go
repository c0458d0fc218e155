package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/homestead/homestead/internal/cache"
	"github.com/homestead/homestead/internal/cospend"
	"github.com/homestead/homestead/internal/exchange"
	"github.com/homestead/homestead/internal/metrics"
	"github.com/homestead/homestead/internal/model"
	"github.com/homestead/homestead/internal/repository"
)

// Payment errors.
var (
	ErrPaymentNotFound         = errors.New("payment not found")
	ErrPaymentFieldsMissing    = errors.New("title, amount, paid_by and splits are required")
	ErrInvalidAmount           = errors.New("amount must be positive")
	ErrInvalidCategory         = errors.New("invalid category")
	ErrInvalidSplitMethod      = errors.New("invalid split method")
	ErrInvalidCurrency         = errors.New("currency must be a three-letter code")
	ErrPersonalExceedsTotal    = errors.New("personal amounts cannot exceed total payment amount")
	ErrInvalidProportions      = errors.New("proportions must be positive")
	ErrExchangeRateUnavailable = errors.New("exchange rate unavailable")
	ErrInvalidDate             = errors.New("date must be YYYY-MM-DD")
)

// Payment listing and report limits.
const (
	DefaultPaymentPageSize = 20
	MaxPaymentPageSize     = 100
	RecentSplitsLimit      = 30
	DefaultMonthlyWindow   = 12
	MaxMonthlyWindow       = 60
)

// PaymentStore persists payments and splits.
type PaymentStore interface {
	CreatePayment(ctx context.Context, p *model.Payment) error
	UpdatePayment(ctx context.Context, p *model.Payment) error
	DeletePayment(ctx context.Context, id string) error
	GetPayment(ctx context.Context, id string) (*model.Payment, error)
	ListPayments(ctx context.Context, limit, offset int) ([]*model.Payment, error)
	ListPaymentsForUser(ctx context.Context, username string) ([]*model.Payment, error)
	ListPaymentsSince(ctx context.Context, since time.Time) ([]*model.Payment, error)
	ListSplits(ctx context.Context, username string) ([]*model.PaymentSplit, error)
	RecentSplits(ctx context.Context, username string, limit int) ([]*model.SplitWithPayment, error)
}

// CospendCache caches balances, debts and payment pages.
type CospendCache interface {
	JSONCache
	InvalidateCospend(ctx context.Context, paymentID string, usernames ...string) error
}

// CurrencyConverter converts foreign amounts into CHF.
type CurrencyConverter interface {
	Rate(ctx context.Context, from string, date time.Time) (float64, error)
	Convert(ctx context.Context, amount float64, from string, date time.Time) (float64, float64, error)
	Currencies(ctx context.Context) []string
}

// PaymentService handles payment business logic.
type PaymentService struct {
	repo      PaymentStore
	cache     CospendCache
	converter CurrencyConverter
	metrics   metrics.Recorder
	now       func() time.Time
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(repo PaymentStore, c CospendCache, converter CurrencyConverter, recorder metrics.Recorder) *PaymentService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &PaymentService{
		repo:      repo,
		cache:     c,
		converter: converter,
		metrics:   recorder,
		now:       time.Now,
	}
}

func (s *PaymentService) jsonCache() JSONCache {
	if s.cache == nil {
		return nil
	}
	return s.cache
}

// SplitInput is a client supplied split in the payment currency.
type SplitInput struct {
	Username       string   `json:"username"`
	Amount         float64  `json:"amount"`
	Proportion     *float64 `json:"proportion,omitempty"`
	PersonalAmount *float64 `json:"personal_amount,omitempty"`
}

// PaymentInput defines input for creating or replacing a payment. When Splits
// is empty they are computed from Participants and SplitMethod.
type PaymentInput struct {
	Title        string
	Description  string
	Amount       float64
	Currency     string
	PaidBy       string
	Date         *time.Time
	Image        string
	Category     model.PaymentCategory
	SplitMethod  model.SplitMethod
	Splits       []SplitInput
	Participants []cospend.Participant
}

// build validates in and turns it into a payment with CHF amounts.
func (s *PaymentService) build(ctx context.Context, in PaymentInput) (*model.Payment, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.PaidBy = strings.TrimSpace(in.PaidBy)
	if in.Title == "" || in.Amount == 0 || in.PaidBy == "" || (len(in.Splits) == 0 && len(in.Participants) == 0) {
		return nil, ErrPaymentFieldsMissing
	}
	if in.Amount < 0 || math.IsNaN(in.Amount) || math.IsInf(in.Amount, 0) {
		return nil, ErrInvalidAmount
	}
	if in.Category == "" {
		in.Category = model.CategoryGroceries
	}
	if !in.Category.IsValid() {
		return nil, ErrInvalidCategory
	}
	if in.SplitMethod == "" {
		in.SplitMethod = model.SplitEqual
	}
	if !in.SplitMethod.IsValid() {
		return nil, ErrInvalidSplitMethod
	}
	in.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))
	if in.Currency == "" {
		in.Currency = model.BaseCurrency
	}
	if !exchange.IsValidCurrency(in.Currency) {
		return nil, ErrInvalidCurrency
	}

	date := s.now().UTC()
	if in.Date != nil {
		date = in.Date.UTC()
	}

	var splits []*model.PaymentSplit
	if len(in.Splits) > 0 {
		splits = make([]*model.PaymentSplit, 0, len(in.Splits))
		for _, sp := range in.Splits {
			if strings.TrimSpace(sp.Username) == "" {
				return nil, ErrPaymentFieldsMissing
			}
			splits = append(splits, &model.PaymentSplit{
				Username:       sp.Username,
				Amount:         sp.Amount,
				Proportion:     sp.Proportion,
				PersonalAmount: sp.PersonalAmount,
			})
		}
		if in.SplitMethod == model.SplitPersonalEqual && cospend.PersonalTotal(splits) > in.Amount+0.005 {
			return nil, ErrPersonalExceedsTotal
		}
	} else {
		var err error
		splits, err = cospend.CalculateSplits(in.Amount, in.PaidBy, in.SplitMethod, in.Participants)
		if err != nil {
			switch {
			case errors.Is(err, cospend.ErrPersonalExceedsTotal):
				return nil, ErrPersonalExceedsTotal
			case errors.Is(err, cospend.ErrInvalidProportions):
				return nil, ErrInvalidProportions
			case errors.Is(err, cospend.ErrInvalidSplitMethod):
				return nil, ErrInvalidSplitMethod
			}
			return nil, err
		}
	}

	p := &model.Payment{
		Title:       in.Title,
		Description: strings.TrimSpace(in.Description),
		Amount:      in.Amount,
		Currency:    in.Currency,
		PaidBy:      in.PaidBy,
		Date:        date,
		Image:       in.Image,
		Category:    in.Category,
		SplitMethod: in.SplitMethod,
		Splits:      splits,
	}
	if err := s.convert(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// convert rewrites a foreign-currency payment into CHF, keeping the original amount.
func (s *PaymentService) convert(ctx context.Context, p *model.Payment) error {
	if p.Currency == model.BaseCurrency {
		p.OriginalAmount = nil
		p.ExchangeRate = nil
		return nil
	}
	if s.converter == nil {
		return ErrExchangeRateUnavailable
	}

	chf, rate, err := s.converter.Convert(ctx, p.Amount, p.Currency, p.Date)
	if err != nil {
		if errors.Is(err, exchange.ErrInvalidCurrency) {
			return ErrInvalidCurrency
		}
		return fmt.Errorf("%w: %v", ErrExchangeRateUnavailable, err)
	}

	original := p.Amount
	p.OriginalAmount = &original
	p.ExchangeRate = &rate
	p.Amount = cospend.Round2(chf)
	cospend.ConvertSplits(p.Splits, rate)
	return nil
}

func involved(payments ...*model.Payment) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(u string) {
		if u != "" && !seen[u] {
			seen[u] = true
			out = append(out, u)
		}
	}
	for _, p := range payments {
		if p == nil {
			continue
		}
		add(p.PaidBy)
		for _, sp := range p.Splits {
			add(sp.Username)
		}
	}
	return out
}

func (s *PaymentService) invalidate(ctx context.Context, paymentID string, payments ...*model.Payment) {
	if s.cache == nil {
		return
	}
	// Balances expire after cache.BalanceTTL when invalidation fails.
	_ = s.cache.InvalidateCospend(ctx, paymentID, involved(payments...)...)
}

// Create stores a new payment on behalf of username.
func (s *PaymentService) Create(ctx context.Context, username string, in PaymentInput) (*model.Payment, error) {
	p, err := s.build(ctx, in)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	p.ID = newID()
	p.CreatedBy = username
	p.CreatedAt = now
	p.UpdatedAt = now
	for _, sp := range p.Splits {
		sp.ID = newID()
		sp.PaymentID = p.ID
		sp.CreatedAt = now
	}

	if err := s.repo.CreatePayment(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create payment: %w", err)
	}

	s.metrics.IncPaymentCreated()
	s.invalidate(ctx, p.ID, p)
	return p, nil
}

// Get returns a payment with its splits.
func (s *PaymentService) Get(ctx context.Context, id string) (*model.Payment, error) {
	return readThrough(ctx, s.jsonCache(), cache.PaymentKey(id), cache.DefaultTTL, nil,
		func() (*model.Payment, error) {
			p, err := s.repo.GetPayment(ctx, id)
			if err != nil {
				if errors.Is(err, repository.ErrPaymentNotFound) {
					return nil, ErrPaymentNotFound
				}
				return nil, err
			}
			return p, nil
		})
}

func (s *PaymentService) owned(ctx context.Context, id, username string) (*model.Payment, error) {
	p, err := s.repo.GetPayment(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrPaymentNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	if p.CreatedBy != username {
		return nil, ErrForbidden
	}
	return p, nil
}

// Update replaces a payment and its splits. Only the creator may edit.
func (s *PaymentService) Update(ctx context.Context, id, username string, in PaymentInput) (*model.Payment, error) {
	existing, err := s.owned(ctx, id, username)
	if err != nil {
		return nil, err
	}
	p, err := s.build(ctx, in)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	p.ID = existing.ID
	p.CreatedBy = existing.CreatedBy
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = now
	for _, sp := range p.Splits {
		sp.ID = newID()
		sp.PaymentID = p.ID
		sp.CreatedAt = now
	}

	if err := s.repo.UpdatePayment(ctx, p); err != nil {
		if errors.Is(err, repository.ErrPaymentNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to update payment: %w", err)
	}

	s.invalidate(ctx, p.ID, existing, p)
	return p, nil
}

// Delete removes a payment. Only the creator may delete.
func (s *PaymentService) Delete(ctx context.Context, id, username string) error {
	existing, err := s.owned(ctx, id, username)
	if err != nil {
		return err
	}
	if err := s.repo.DeletePayment(ctx, id); err != nil {
		if errors.Is(err, repository.ErrPaymentNotFound) {
			return ErrPaymentNotFound
		}
		return err
	}
	s.invalidate(ctx, id, existing)
	return nil
}

// List returns a page of payments, newest first.
func (s *PaymentService) List(ctx context.Context, limit, offset int) ([]*model.Payment, error) {
	if limit < 0 || offset < 0 {
		return nil, ErrInvalidPageSize
	}
	limit, offset = pageBounds(limit, offset, DefaultPaymentPageSize, MaxPaymentPageSize)
	return readThrough(ctx, s.jsonCache(), cache.PaymentListKey(limit, offset), cache.DefaultTTL, nil,
		func() ([]*model.Payment, error) {
			payments, err := s.repo.ListPayments(ctx, limit, offset)
			if err != nil {
				return nil, err
			}
			if payments == nil {
				payments = []*model.Payment{}
			}
			return payments, nil
		})
}

// Balance is a user's net position with their latest splits.
type Balance struct {
	NetBalance   float64                   `json:"net_balance"`
	RecentSplits []*model.SplitWithPayment `json:"recent_splits"`
}

// AllBalances is the balance table of every user.
type AllBalances struct {
	CurrentUser string              `json:"current_user"`
	Balances    []model.UserBalance `json:"all_balances"`
}

// BalanceOverview combines both views.
type BalanceOverview struct {
	Balance
	*AllBalances
}

// Balance returns the net balance and recent splits of username.
func (s *PaymentService) Balance(ctx context.Context, username string) (*Balance, error) {
	return readThrough(ctx, s.jsonCache(), cache.BalanceKey(username), cache.BalanceTTL, nil,
		func() (*Balance, error) {
			splits, err := s.repo.ListSplits(ctx, username)
			if err != nil {
				return nil, err
			}
			recent, err := s.repo.RecentSplits(ctx, username, RecentSplitsLimit)
			if err != nil {
				return nil, err
			}
			for _, r := range recent {
				if r.Payment != nil && r.Payment.Category == model.CategorySettlement {
					r.OtherUser = otherParticipant(r.Payment, username)
				}
			}
			if recent == nil {
				recent = []*model.SplitWithPayment{}
			}
			return &Balance{NetBalance: cospend.NetBalance(splits), RecentSplits: recent}, nil
		})
}

func otherParticipant(p *model.Payment, username string) string {
	for _, sp := range p.Splits {
		if sp.Username != username {
			return sp.Username
		}
	}
	return ""
}

// AllBalances returns the balance table of every user.
func (s *PaymentService) AllBalances(ctx context.Context, currentUser string) (*AllBalances, error) {
	balances, err := readThrough(ctx, s.jsonCache(), cache.AllBalancesKey(), cache.BalanceTTL, nil,
		func() ([]model.UserBalance, error) {
			splits, err := s.repo.ListSplits(ctx, "")
			if err != nil {
				return nil, err
			}
			return cospend.Balances(splits), nil
		})
	if err != nil {
		return nil, err
	}
	return &AllBalances{CurrentUser: currentUser, Balances: balances}, nil
}

// Overview loads the user's balance and, when all is set, the full table concurrently.
func (s *PaymentService) Overview(ctx context.Context, username string, all bool) (*BalanceOverview, error) {
	out := &BalanceOverview{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		b, err := s.Balance(gctx, username)
		if err != nil {
			return err
		}
		out.Balance = *b
		return nil
	})
	if all {
		g.Go(func() error {
			a, err := s.AllBalances(gctx, username)
			if err != nil {
				return err
			}
			out.AllBalances = a
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Debts returns who owes username and whom username owes.
func (s *PaymentService) Debts(ctx context.Context, username string) (*model.DebtSummary, error) {
	return readThrough(ctx, s.jsonCache(), cache.DebtsKey(username), cache.BalanceTTL, nil,
		func() (*model.DebtSummary, error) {
			payments, err := s.repo.ListPaymentsForUser(ctx, username)
			if err != nil {
				return nil, err
			}
			summary := cospend.Debts(username, payments)
			return &summary, nil
		})
}

// Monthly returns expenses per month and category over the last months.
func (s *PaymentService) Monthly(ctx context.Context, months int) (*cospend.MonthlySummary, error) {
	if months <= 0 {
		months = DefaultMonthlyWindow
	}
	if months > MaxMonthlyWindow {
		months = MaxMonthlyWindow
	}
	now := s.now().UTC()
	payments, err := s.repo.ListPaymentsSince(ctx, cospend.MonthlyWindowStart(now, months))
	if err != nil {
		return nil, err
	}
	summary := cospend.Monthly(payments, now, months)
	return &summary, nil
}

// RateQuote is the answer of the exchange-rate endpoint.
type RateQuote struct {
	Rate float64 `json:"rate"`
	From string  `json:"from"`
	To   string  `json:"to"`
	Date string  `json:"date"`
}

// ExchangeRate returns the rate from currency into CHF on date (YYYY-MM-DD,
// default today in UTC).
func (s *PaymentService) ExchangeRate(ctx context.Context, from, date string) (*RateQuote, error) {
	from = strings.ToUpper(strings.TrimSpace(from))
	if !exchange.IsValidCurrency(from) {
		return nil, ErrInvalidCurrency
	}

	day := s.now().UTC()
	if date != "" {
		parsed, err := time.Parse(exchange.DateLayout, date)
		if err != nil {
			return nil, ErrInvalidDate
		}
		day = parsed
	}
	if s.converter == nil {
		return nil, ErrExchangeRateUnavailable
	}

	rate, err := s.converter.Rate(ctx, from, day)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExchangeRateUnavailable, err)
	}
	return &RateQuote{
		Rate: rate,
		From: from,
		To:   model.BaseCurrency,
		Date: day.Format(exchange.DateLayout),
	}, nil
}

// Currencies lists currencies that can be converted.
func (s *PaymentService) Currencies(ctx context.Context) []string {
	if s.converter == nil {
		return append([]string{model.BaseCurrency}, exchange.FallbackCurrencies...)
	}
	return s.converter.Currencies(ctx)
}
