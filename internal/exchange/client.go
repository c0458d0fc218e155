// Package exchange converts foreign currency amounts into the ledger
// currency using daily rates from the Frankfurter API, cached in Postgres.
package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/homestead/homestead/internal/model"
)

const (
	// DefaultBaseURL is the public Frankfurter endpoint.
	DefaultBaseURL = "https://api.frankfurter.app"
	// ClientTimeout is the total request timeout.
	ClientTimeout = 10 * time.Second
	// DialTimeout is the connection timeout.
	DialTimeout = 5 * time.Second

	userAgent = "homestead-cospend/1.0"
)

// Client errors.
var (
	ErrRateUnavailable = errors.New("exchange rate unavailable")
	ErrUpstream        = errors.New("exchange rate API request failed")
)

// NewHTTPClient creates an HTTP client with bounded timeouts for rate lookups.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = ClientTimeout
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   DialTimeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   DialTimeout,
			ResponseHeaderTimeout: timeout,
			MaxIdleConns:          10,
			MaxIdleConnsPerHost:   2,
			IdleConnTimeout:       90 * time.Second,
		},
	}
}

// Client talks to a Frankfurter-compatible API.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	maxAttempts int
	sleep       func(ctx context.Context, d time.Duration) error
}

// NewClient creates a Client. A nil httpClient uses NewHTTPClient defaults.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = NewHTTPClient(ClientTimeout)
	}
	return &Client{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		httpClient:  httpClient,
		maxAttempts: DefaultMaxAttempts,
		sleep:       sleepContext,
	}
}

type ratesResponse struct {
	Amount float64            `json:"amount"`
	Base   string             `json:"base"`
	Date   string             `json:"date"`
	Rates  map[string]float64 `json:"rates"`
}

// Rate fetches the from→CHF rate for date (YYYY-MM-DD).
// Transport errors and 5xx responses are retried with jittered backoff.
func (c *Client) Rate(ctx context.Context, from, date string) (float64, error) {
	q := url.Values{}
	q.Set("from", from)
	q.Set("to", model.BaseCurrency)
	endpoint := fmt.Sprintf("%s/%s?%s", c.baseURL, url.PathEscape(date), q.Encode())

	var resp ratesResponse
	if err := c.getJSON(ctx, endpoint, &resp); err != nil {
		return 0, err
	}

	rate, ok := resp.Rates[model.BaseCurrency]
	if !ok || rate <= 0 {
		return 0, fmt.Errorf("%w: no %s rate for %s on %s", ErrRateUnavailable, model.BaseCurrency, from, date)
	}
	return rate, nil
}

// Currencies lists the currency codes the API supports, sorted by the API.
func (c *Client) Currencies(ctx context.Context) ([]string, error) {
	var resp map[string]string
	if err := c.getJSON(ctx, c.baseURL+"/currencies", &resp); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(resp))
	for code := range resp {
		out = append(out, code)
	}
	return out, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, dst any) error {
	var lastErr error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			if err := c.sleep(ctx, NextRetryDelay(attempt-1)); err != nil {
				return err
			}
		}

		retry, err := c.do(ctx, endpoint, dst)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retry {
			break
		}
	}
	return lastErr
}

// do performs one request. The bool reports whether the failure is retryable.
func (c *Client) do(ctx context.Context, endpoint string, dst any) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		return true, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		err := fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
		if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusUnprocessableEntity {
			return false, fmt.Errorf("%w: %v", ErrRateUnavailable, err)
		}
		return resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests, err
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(dst); err != nil {
		return false, fmt.Errorf("%w: invalid response: %v", ErrUpstream, err)
	}
	return false, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
