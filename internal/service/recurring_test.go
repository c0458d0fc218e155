package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/homestead/homestead/internal/metrics"
	"github.com/homestead/homestead/internal/model"
	"github.com/homestead/homestead/internal/repository"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeRecurringStore struct {
	items    map[string]*model.RecurringPayment
	executed []*model.Payment
	execErr  map[string]error
}

func newFakeRecurringStore() *fakeRecurringStore {
	return &fakeRecurringStore{items: map[string]*model.RecurringPayment{}, execErr: map[string]error{}}
}

func (s *fakeRecurringStore) CreateRecurring(_ context.Context, rp *model.RecurringPayment) error {
	s.items[rp.ID] = rp
	return nil
}

func (s *fakeRecurringStore) UpdateRecurring(_ context.Context, rp *model.RecurringPayment) error {
	if _, ok := s.items[rp.ID]; !ok {
		return repository.ErrRecurringNotFound
	}
	s.items[rp.ID] = rp
	return nil
}

func (s *fakeRecurringStore) DeleteRecurring(_ context.Context, id string) error {
	if _, ok := s.items[id]; !ok {
		return repository.ErrRecurringNotFound
	}
	delete(s.items, id)
	return nil
}

func (s *fakeRecurringStore) GetRecurring(_ context.Context, id string) (*model.RecurringPayment, error) {
	rp, ok := s.items[id]
	if !ok {
		return nil, repository.ErrRecurringNotFound
	}
	cp := *rp
	return &cp, nil
}

func (s *fakeRecurringStore) ListRecurring(_ context.Context, activeOnly bool) ([]*model.RecurringPayment, error) {
	var out []*model.RecurringPayment
	for _, rp := range s.items {
		if !activeOnly || rp.IsActive {
			out = append(out, rp)
		}
	}
	return out, nil
}

func (s *fakeRecurringStore) ListDueRecurring(_ context.Context, now time.Time, username string) ([]*model.RecurringPayment, error) {
	var out []*model.RecurringPayment
	for _, rp := range s.items {
		if rp.IsDue(now) && (username == "" || rp.CreatedBy == username) {
			cp := *rp
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *fakeRecurringStore) ExecuteRecurring(_ context.Context, rp *model.RecurringPayment, payment *model.Payment) error {
	if err := s.execErr[rp.ID]; err != nil {
		return err
	}
	s.items[rp.ID] = rp
	s.executed = append(s.executed, payment)
	return nil
}

func rent() RecurringInput {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return RecurringInput{
		Title:       "Rent",
		Amount:      2000,
		PaidBy:      "anna",
		Category:    model.CategoryUtilities,
		SplitMethod: model.SplitEqual,
		Splits: []model.RecurringSplit{
			{Username: "anna", Amount: -1000},
			{Username: "ben", Amount: 1000},
		},
		Frequency: model.FrequencyMonthly,
		StartDate: &start,
	}
}

func TestRecurringServiceValidation(t *testing.T) {
	svc := NewRecurringService(newFakeRecurringStore(), nil, nil, discardLogger(), nil)
	ctx := context.Background()

	tests := []struct {
		name    string
		mutate  func(*RecurringInput)
		wantErr error
	}{
		{"missing_splits", func(in *RecurringInput) { in.Splits = nil }, ErrRecurringFieldsMissing},
		{"bad_frequency", func(in *RecurringInput) { in.Frequency = "yearly" }, ErrInvalidFrequency},
		{"custom_without_cron", func(in *RecurringInput) { in.Frequency = model.FrequencyCustom }, ErrInvalidCronExpression},
		{"custom_bad_cron", func(in *RecurringInput) {
			in.Frequency = model.FrequencyCustom
			in.CronExpression = "every day"
		}, ErrInvalidCronExpression},
		{"end_before_start", func(in *RecurringInput) {
			end := in.StartDate.AddDate(0, 0, -1)
			in.EndDate = &end
		}, ErrEndBeforeStart},
		{"bad_currency", func(in *RecurringInput) { in.Currency = "XX" }, ErrInvalidCurrency},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			in := rent()
			test.mutate(&in)
			if _, err := svc.Create(ctx, "anna", in); !errors.Is(err, test.wantErr) {
				t.Fatalf("expected %v, got %v", test.wantErr, err)
			}
		})
	}
}

func TestRecurringServiceCreateSchedulesFirstRun(t *testing.T) {
	svc := NewRecurringService(newFakeRecurringStore(), nil, nil, discardLogger(), nil)

	rp, err := svc.Create(context.Background(), "anna", rent())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	want := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	if !rp.NextExecutionDate.Equal(want) {
		t.Fatalf("expected next execution %v, got %v", want, rp.NextExecutionDate)
	}
	if !rp.IsActive || rp.CreatedBy != "anna" || rp.Currency != model.BaseCurrency {
		t.Fatalf("unexpected recurring payment: %+v", rp)
	}

	in := rent()
	in.Frequency = model.FrequencyWeekly
	updated, err := svc.Update(context.Background(), rp.ID, in)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	want = time.Date(2026, 1, 8, 0, 0, 0, 0, time.UTC)
	if !updated.NextExecutionDate.Equal(want) {
		t.Fatalf("expected rescheduled execution %v, got %v", want, updated.NextExecutionDate)
	}
}

func TestRecurringServiceExecuteDue(t *testing.T) {
	store := newFakeRecurringStore()
	c := newMemoryCache()
	rec := metrics.NewInMemory()
	svc := NewRecurringService(store, c, &fixedConverter{rate: 0.9}, discardLogger(), rec)
	ctx := context.Background()

	due, err := svc.Create(ctx, "anna", rent())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	later := rent()
	later.Title = "Insurance"
	future := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	later.StartDate = &future
	if _, err := svc.Create(ctx, "anna", later); err != nil {
		t.Fatalf("Create: %v", err)
	}

	euro := rent()
	euro.Title = "Streaming"
	euro.Currency = "EUR"
	euro.Amount = 20
	euro.Splits = []model.RecurringSplit{{Username: "anna", Amount: -10}, {Username: "ben", Amount: 10}}
	if _, err := svc.Create(ctx, "ben", euro); err != nil {
		t.Fatalf("Create: %v", err)
	}

	broken := rent()
	broken.Title = "Broken"
	failing, err := svc.Create(ctx, "ben", broken)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	store.execErr[failing.ID] = errors.New("disk full")

	now := time.Date(2026, 2, 1, 6, 0, 0, 0, time.UTC)
	run, err := svc.ExecuteAllDue(ctx, now)
	if err != nil {
		t.Fatalf("ExecuteAllDue: %v", err)
	}
	if run.Processed != 3 || run.Successful != 2 || run.Failed != 1 {
		t.Fatalf("unexpected run: %+v", run)
	}

	snap := rec.Snapshot()
	if snap.RecurringSucceeded != 2 || snap.RecurringFailed != 1 {
		t.Fatalf("unexpected recurring metrics: %+v", snap)
	}

	stored := store.items[due.ID]
	if stored.LastExecutionDate == nil || !stored.LastExecutionDate.Equal(now) {
		t.Fatalf("expected last execution %v, got %v", now, stored.LastExecutionDate)
	}
	if !stored.NextExecutionDate.Equal(now.AddDate(0, 1, 0)) {
		t.Fatalf("expected next execution advanced by a month, got %v", stored.NextExecutionDate)
	}

	for _, p := range store.executed {
		if p.CreatedBy != "anna (Auto)" && p.CreatedBy != "ben (Auto)" {
			t.Fatalf("unexpected creator %q", p.CreatedBy)
		}
		if p.Title == "Streaming" {
			if p.Amount != 18 || p.OriginalAmount == nil || *p.OriginalAmount != 20 {
				t.Fatalf("expected converted streaming payment, got %+v", p)
			}
		}
	}
	if len(c.cospend) != 2 {
		t.Fatalf("expected cache invalidation per executed payment, got %d", len(c.cospend))
	}

	own, err := svc.ExecuteDue(ctx, now, "ben")
	if err != nil {
		t.Fatalf("ExecuteDue: %v", err)
	}
	if own.Processed != 1 || own.Results[0].RecurringPaymentID != failing.ID {
		t.Fatalf("expected only the failed payment of ben to be retried, got %+v", own)
	}
}

func TestRecurringServiceSkipsConcurrentExecution(t *testing.T) {
	store := newFakeRecurringStore()
	svc := NewRecurringService(store, nil, nil, discardLogger(), nil)
	ctx := context.Background()

	rp, err := svc.Create(ctx, "anna", rent())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	store.execErr[rp.ID] = repository.ErrRecurringNotDue

	run, err := svc.ExecuteAllDue(ctx, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("ExecuteAllDue: %v", err)
	}
	if run.Processed != 0 || len(run.Results) != 0 {
		t.Fatalf("expected item to be skipped, got %+v", run)
	}
}

func TestRecurringServiceConversionFallback(t *testing.T) {
	store := newFakeRecurringStore()
	svc := NewRecurringService(store, nil, &fixedConverter{err: errors.New("offline")}, discardLogger(), nil)
	ctx := context.Background()

	in := rent()
	in.Currency = "USD"
	if _, err := svc.Create(ctx, "anna", in); err != nil {
		t.Fatalf("Create: %v", err)
	}

	run, err := svc.ExecuteAllDue(ctx, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("ExecuteAllDue: %v", err)
	}
	if run.Successful != 1 {
		t.Fatalf("expected success despite conversion failure, got %+v", run)
	}
	p := store.executed[0]
	if p.Amount != 2000 || p.Currency != "USD" || p.OriginalAmount != nil {
		t.Fatalf("expected unconverted payment, got %+v", p)
	}
}
