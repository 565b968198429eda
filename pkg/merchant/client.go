// Package merchant is the REST client for the Magento-style admin API that
// supplies orders and the product catalog. It centralizes token auth,
// bounded retries, searchCriteria pagination, and error mapping; callers
// receive fully materialized domain records.
package merchant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/angelmondragon/clientpulse/pkg/config"
	pkgerrors "github.com/angelmondragon/clientpulse/pkg/errors"
	"github.com/angelmondragon/clientpulse/pkg/logger"
	"github.com/schollz/progressbar/v3"
)

const (
	apiPrefix = "/rest/V1"
	userAgent = "clientpulse/1.0"

	defaultInitialBackoff = 500 * time.Millisecond
	defaultMaximumBackoff = 5 * time.Second
)

var (
	errLoggerRequired = errors.New("merchant logger is required")
	errNotAuthed      = errors.New("merchant client is not authenticated")
)

// Client talks to the merchant admin REST API.
type Client struct {
	httpClient *http.Client
	cfg        config.MerchantConfig
	baseURL    string
	token      string
	logger     *logger.Logger
	progress   bool
}

// Option tweaks client construction.
type Option func(*Client)

// WithoutProgress disables the terminal progress bar (used by tests and
// non-interactive runs).
func WithoutProgress() Option {
	return func(c *Client) { c.progress = false }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient validates the config and builds a client. Call Authenticate
// before any fetch.
func NewClient(cfg config.MerchantConfig, logg *logger.Logger, opts ...Option) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	base := cfg.NormalizedBaseURL()
	if base == "" {
		return nil, pkgerrors.New(pkgerrors.CodeConfig, "merchant base url required")
	}

	c := &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cfg:        cfg,
		baseURL:    base,
		logger:     logg,
		progress:   true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Authenticate obtains an admin token. Idempotent once a token is held.
func (c *Client) Authenticate(ctx context.Context) error {
	if c.token != "" {
		return nil
	}

	payload, err := json.Marshal(map[string]string{
		"username": c.cfg.Username,
		"password": c.cfg.Password,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode auth payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+apiPrefix+"/integration/admin/token", bytes.NewReader(payload))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build auth request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "merchant auth request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read auth response")
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return pkgerrors.New(pkgerrors.CodeAuthentication, "invalid merchant credentials")
	}
	if resp.StatusCode != http.StatusOK {
		return pkgerrors.New(pkgerrors.CodeDependency,
			fmt.Sprintf("merchant auth returned status %d", resp.StatusCode))
	}

	var token string
	if err := json.Unmarshal(body, &token); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode auth token")
	}
	c.token = token
	c.logger.Info(ctx, "merchant authentication successful")
	return nil
}

// get performs an authenticated GET with bounded retries on 429/5xx and
// transport errors, decoding the JSON response into out.
func (c *Client) get(ctx context.Context, endpoint string, query url.Values, out any) error {
	if c.token == "" {
		return pkgerrors.Wrap(pkgerrors.CodeAuthentication, errNotAuthed, "call Authenticate first")
	}

	target := c.baseURL + apiPrefix + endpoint
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	backoff := defaultInitialBackoff
	attempts := c.cfg.MaxRetries + 1
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		body, status, err := c.doOnce(ctx, target)
		switch {
		case err != nil:
			lastErr = err
		case status == http.StatusOK:
			if err := json.Unmarshal(body, out); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err,
					fmt.Sprintf("decode response from %s", endpoint))
			}
			return nil
		case status == http.StatusNotFound:
			return pkgerrors.New(pkgerrors.CodeNotFound,
				fmt.Sprintf("merchant endpoint %s returned 404", endpoint))
		case status == http.StatusUnauthorized || status == http.StatusForbidden:
			return pkgerrors.New(pkgerrors.CodeAuthentication,
				fmt.Sprintf("merchant rejected token with status %d", status))
		case retryableStatus(status):
			lastErr = fmt.Errorf("merchant returned status %d", status)
		default:
			return pkgerrors.New(pkgerrors.CodeDependency,
				fmt.Sprintf("merchant endpoint %s returned status %d", endpoint, status))
		}

		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return pkgerrors.Wrap(pkgerrors.CodeDependency, ctx.Err(), "merchant request canceled")
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > defaultMaximumBackoff {
			backoff = defaultMaximumBackoff
		}
	}

	return pkgerrors.Wrap(pkgerrors.CodeDependency, lastErr,
		fmt.Sprintf("merchant request to %s failed after %d attempts", endpoint, attempts))
}

func (c *Client) doOnce(ctx context.Context, target string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}

func retryableStatus(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// searchPage is the common envelope of searchCriteria list endpoints.
type searchPage struct {
	Items      []json.RawMessage `json:"items"`
	TotalCount int               `json:"total_count"`
}

// paginate walks every page of a searchCriteria endpoint, invoking handle
// per item. A progress bar is shown once the result spans multiple pages.
func (c *Client) paginate(ctx context.Context, endpoint string, filters []filterSpec, desc string, handle func(json.RawMessage) error) error {
	pageSize := c.cfg.PageSize
	currentPage := 1
	seen := 0

	var bar *progressbar.ProgressBar

	for {
		query := searchQuery(pageSize, currentPage, filters)
		var page searchPage
		if err := c.get(ctx, endpoint, query, &page); err != nil {
			return err
		}

		if currentPage == 1 {
			c.logger.Info(c.logger.WithFields(ctx, map[string]any{
				"endpoint": endpoint,
				"total":    page.TotalCount,
			}), "fetching paginated resource")
			if c.progress && page.TotalCount > pageSize {
				bar = progressbar.Default(int64(page.TotalCount), desc)
			}
		}

		for _, item := range page.Items {
			if err := handle(item); err != nil {
				return err
			}
		}
		seen += len(page.Items)
		if bar != nil {
			_ = bar.Add(len(page.Items))
		}

		if len(page.Items) < pageSize || seen >= page.TotalCount {
			return nil
		}
		currentPage++
	}
}

// searchQuery encodes the Magento searchCriteria query parameters: page
// size, current page, and one filter group per filter (groups AND together).
func searchQuery(pageSize, currentPage int, filters []filterSpec) url.Values {
	query := url.Values{}
	query.Set("searchCriteria[pageSize]", strconv.Itoa(pageSize))
	query.Set("searchCriteria[currentPage]", strconv.Itoa(currentPage))
	for i, f := range filters {
		prefix := fmt.Sprintf("searchCriteria[filterGroups][%d][filters][0]", i)
		query.Set(prefix+"[field]", f.field)
		query.Set(prefix+"[value]", f.value)
		query.Set(prefix+"[conditionType]", f.condition)
	}
	return query
}

// filterSpec is one searchCriteria filter.
type filterSpec struct {
	field     string
	value     string
	condition string
}
