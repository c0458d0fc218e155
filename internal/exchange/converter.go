package exchange

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/homestead/homestead/internal/metrics"
	"github.com/homestead/homestead/internal/model"
	"github.com/homestead/homestead/internal/repository"
)

// DateLayout is the rate date format.
const DateLayout = "2006-01-02"

// ErrInvalidCurrency is returned for codes that are not three letters.
var ErrInvalidCurrency = errors.New("invalid currency code")

// FallbackCurrencies is served when the API cannot list currencies.
var FallbackCurrencies = []string{"EUR", "USD", "GBP", "JPY", "CAD", "AUD", "SEK", "NOK", "DKK"}

var currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

// IsValidCurrency reports whether code is a three-letter ISO code (any case).
func IsValidCurrency(code string) bool {
	return currencyPattern.MatchString(strings.ToUpper(code))
}

// RateStore persists fetched rates.
type RateStore interface {
	GetExchangeRate(ctx context.Context, from, to, date string) (*model.ExchangeRate, error)
	SaveExchangeRate(ctx context.Context, rate *model.ExchangeRate) error
}

// RateSource fetches rates from upstream.
type RateSource interface {
	Rate(ctx context.Context, from, date string) (float64, error)
	Currencies(ctx context.Context) ([]string, error)
}

// Converter resolves rates from the store first, then the API.
type Converter struct {
	store   RateStore
	source  RateSource
	logger  *slog.Logger
	metrics metrics.Recorder
}

// NewConverter creates a Converter.
func NewConverter(store RateStore, source RateSource, logger *slog.Logger, recorder metrics.Recorder) *Converter {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Converter{store: store, source: source, logger: logger, metrics: recorder}
}

// Rate returns the rate converting one unit of from into CHF on date.
func (c *Converter) Rate(ctx context.Context, from string, date time.Time) (float64, error) {
	from = strings.ToUpper(from)
	if !IsValidCurrency(from) {
		return 0, ErrInvalidCurrency
	}
	if from == model.BaseCurrency {
		return 1, nil
	}
	day := date.UTC().Format(DateLayout)

	cached, err := c.store.GetExchangeRate(ctx, from, model.BaseCurrency, day)
	if err == nil {
		c.metrics.IncExchangeRateLookup(metrics.SourceCache)
		return cached.Rate, nil
	}
	if !errors.Is(err, repository.ErrExchangeRateNotFound) {
		c.logger.Warn("exchange_rate_cache_read_failed",
			slog.String("from", from),
			slog.String("date", day),
			slog.String("error", err.Error()),
		)
	}

	rate, err := c.source.Rate(ctx, from, day)
	if err != nil {
		c.metrics.IncExchangeRateLookup(metrics.SourceError)
		c.logger.Error("exchange_rate_fetch_failed",
			slog.String("from", from),
			slog.String("date", day),
			slog.String("error", err.Error()),
		)
		return 0, fmt.Errorf("failed to fetch %s rate for %s: %w", from, day, err)
	}
	c.metrics.IncExchangeRateLookup(metrics.SourceAPI)

	if err := c.store.SaveExchangeRate(ctx, &model.ExchangeRate{
		FromCurrency: from,
		ToCurrency:   model.BaseCurrency,
		Rate:         rate,
		Date:         day,
	}); err != nil {
		c.logger.Warn("exchange_rate_cache_write_failed",
			slog.String("from", from),
			slog.String("date", day),
			slog.String("error", err.Error()),
		)
	}

	return rate, nil
}

// Convert returns amount in CHF and the rate used.
func (c *Converter) Convert(ctx context.Context, amount float64, from string, date time.Time) (float64, float64, error) {
	rate, err := c.Rate(ctx, from, date)
	if err != nil {
		return 0, 0, err
	}
	return amount * rate, rate, nil
}

// Currencies lists supported currencies, falling back to a fixed list.
func (c *Converter) Currencies(ctx context.Context) []string {
	list, err := c.source.Currencies(ctx)
	if err != nil || len(list) == 0 {
		if err != nil {
			c.logger.Warn("exchange_currencies_fetch_failed", slog.String("error", err.Error()))
		}
		return slices.Clone(FallbackCurrencies)
	}
	slices.Sort(list)
	return list
}
