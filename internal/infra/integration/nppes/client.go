package nppes

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
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "https://npiregistry.cms.hhs.gov/api/"
	APIVersion     = "2.1"
	MaxPageSize    = 200
)

var ErrMissingCriteria = errors.New("nppes: at least one search criterion besides enumeration_type is required")

type ClientOptions struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *zap.Logger

	// RequestsPerSecond throttles every outgoing request, retries included.
	RequestsPerSecond float64
	Burst             int

	// MaxRetries < 0 disables retries; 0 selects the default.
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration

	Concurrency int
	WaveDelay   time.Duration
}

type Client struct {
	baseURL     string
	httpClient  *http.Client
	logger      *zap.Logger
	limiter     *rate.Limiter
	maxRetries  int
	baseDelay   time.Duration
	maxDelay    time.Duration
	concurrency int
	waveDelay   time.Duration
}

func NewClient(opts ClientOptions) *Client {
	baseURL := strings.TrimSpace(opts.BaseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	rps := opts.RequestsPerSecond
	if rps <= 0 {
		rps = 5
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 3
	}
	maxRetries := opts.MaxRetries
	if maxRetries == 0 {
		maxRetries = 3
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	baseDelay := opts.BaseDelay
	if baseDelay <= 0 {
		baseDelay = 250 * time.Millisecond
	}
	maxDelay := opts.MaxDelay
	if maxDelay <= 0 {
		maxDelay = 5 * time.Second
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 3
	}
	waveDelay := opts.WaveDelay
	if waveDelay <= 0 {
		waveDelay = 200 * time.Millisecond
	}
	return &Client{
		baseURL:     baseURL,
		httpClient:  httpClient,
		logger:      logger.Named("nppes"),
		limiter:     rate.NewLimiter(rate.Limit(rps), burst),
		maxRetries:  maxRetries,
		baseDelay:   baseDelay,
		maxDelay:    maxDelay,
		concurrency: concurrency,
		waveDelay:   waveDelay,
	}
}

// Search runs one registry query. limit is clamped to 1..MaxPageSize.
func (c *Client) Search(ctx context.Context, params SearchParams, limit, skip int) (*SearchResponse, error) {
	if !params.HasCriteria() {
		return nil, ErrMissingCriteria
	}
	if limit <= 0 || limit > MaxPageSize {
		limit = MaxPageSize
	}
	if skip < 0 {
		skip = 0
	}

	endpoint := c.baseURL + "?" + buildQuery(params, limit, skip).Encode()

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var result SearchResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("nppes: decode response: %w", err)
	}
	if len(result.Errors) > 0 {
		descriptions := make([]string, 0, len(result.Errors))
		for _, apiErr := range result.Errors {
			descriptions = append(descriptions, apiErr.Description)
		}
		return nil, fmt.Errorf("nppes: registry rejected query: %s", strings.Join(descriptions, "; "))
	}
	return &result, nil
}

func buildQuery(params SearchParams, limit, skip int) url.Values {
	q := url.Values{}
	q.Set("version", APIVersion)
	set := func(key, value string) {
		if v := strings.TrimSpace(value); v != "" {
			q.Set(key, v)
		}
	}
	set("enumeration_type", params.EnumerationType)
	set("first_name", params.FirstName)
	set("last_name", params.LastName)
	set("organization_name", params.OrganizationName)
	set("city", params.City)
	set("state", params.State)
	set("postal_code", params.PostalCode)
	set("taxonomy_description", params.TaxonomyDescription)
	q.Set("limit", strconv.Itoa(limit))
	q.Set("skip", strconv.Itoa(skip))
	return q
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if attempt < c.maxRetries && ctx.Err() == nil {
				if waitErr := sleepContext(ctx, c.retryDelay(attempt+1, "")); waitErr != nil {
					return nil, waitErr
				}
				continue
			}
			return nil, fmt.Errorf("nppes: request failed: %w", err)
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			return nil, readErr
		}
		if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
			return body, nil
		}

		if (resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500) && attempt < c.maxRetries {
			c.logger.Warn("retrying registry request",
				zap.Int("status", resp.StatusCode),
				zap.Int("attempt", attempt+1),
			)
			if waitErr := sleepContext(ctx, c.retryDelay(attempt+1, resp.Header.Get("Retry-After"))); waitErr != nil {
				return nil, waitErr
			}
			continue
		}

		return nil, fmt.Errorf("nppes: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
}

func (c *Client) retryDelay(attempt int, retryAfterHeader string) time.Duration {
	if retryAfter := parseRetryAfterSeconds(retryAfterHeader); retryAfter > 0 {
		if retryAfter > c.maxDelay {
			return c.maxDelay
		}
		return retryAfter
	}
	delay := c.baseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= c.maxDelay {
			return c.maxDelay
		}
	}
	return delay
}

func parseRetryAfterSeconds(header string) time.Duration {
	header = strings.TrimSpace(header)
	if header == "" {
		return 0
	}
	seconds, err := strconv.Atoi(header)
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

func sleepContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
