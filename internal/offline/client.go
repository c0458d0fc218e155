package offline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/homestead/homestead/internal/model"
)

// DefaultTimeout bounds a single API request.
const DefaultTimeout = 15 * time.Second

// ErrOffline is returned when the server could not be reached.
var ErrOffline = errors.New("server unreachable")

// StatusError is a non-2xx answer from the server.
type StatusError struct {
	Code int
	Path string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d", e.Path, e.Code)
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusNotFound
}

// Client calls the homestead API network-first. A request that fails below
// HTTP marks the client offline until the next request succeeds.
type Client struct {
	baseURL    string
	httpClient *http.Client
	offline    atomic.Bool
}

// NewClient creates a Client for baseURL. A nil httpClient gets DefaultTimeout.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
	}
}

// BaseURL returns the server origin.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Offline reports whether the last request failed to reach the server.
func (c *Client) Offline() bool {
	return c.offline.Load()
}

// Get fetches path and returns the open response body. The caller closes it.
func (c *Client) Get(ctx context.Context, path string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() == nil {
			c.offline.Store(true)
		}
		return nil, fmt.Errorf("%w: %v", ErrOffline, err)
	}
	c.offline.Store(false)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &StatusError{Code: resp.StatusCode, Path: path}
	}
	return resp.Body, nil
}

func (c *Client) getJSON(ctx context.Context, path string, dst any) error {
	body, err := c.Get(ctx, path)
	if err != nil {
		return err
	}
	defer body.Close()

	if err := json.NewDecoder(body).Decode(dst); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

// OfflineDump downloads the full recipe catalog.
func (c *Client) OfflineDump(ctx context.Context) (*model.OfflineDump, error) {
	var dump model.OfflineDump
	if err := c.getJSON(ctx, "/api/"+string(model.LangDE)+"/offline-db", &dump); err != nil {
		return nil, err
	}
	return &dump, nil
}

// AllBrief fetches the brief list of lang.
func (c *Client) AllBrief(ctx context.Context, lang model.Lang) ([]*model.BriefRecipe, error) {
	var out []*model.BriefRecipe
	err := c.getJSON(ctx, "/api/"+string(lang)+"/items/all_brief", &out)
	return out, err
}

// InSeason fetches the briefs in season for month.
func (c *Client) InSeason(ctx context.Context, lang model.Lang, month int) ([]*model.BriefRecipe, error) {
	var out []*model.BriefRecipe
	err := c.getJSON(ctx, "/api/"+string(lang)+"/items/in_season/"+strconv.Itoa(month), &out)
	return out, err
}

// Recipe fetches one recipe without query flags. Yeast swaps are applied by
// the Loader so that network and local answers are treated alike.
func (c *Client) Recipe(ctx context.Context, lang model.Lang, name string) (*model.Recipe, error) {
	var out model.Recipe
	if err := c.getJSON(ctx, "/api/"+string(lang)+"/items/"+url.PathEscape(name), &out); err != nil {
		return nil, err
	}
	return &out, nil
}
