package fpl

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/riskibarqy/fpl-assistant/internal/platform/cache"
	"github.com/riskibarqy/fpl-assistant/internal/platform/logging"
	"github.com/riskibarqy/fpl-assistant/internal/platform/resilience"
)

const (
	defaultBaseURL = "https://fantasy.premierleague.com/api"
	// The league API rejects Go's default agent, so requests present a
	// browser-style one.
	defaultUserAgent = "Mozilla/5.0"
	defaultTimeout   = 15 * time.Second
	minTimeout       = 10 * time.Second
	maxTimeout       = 30 * time.Second
	defaultRetries   = 3
	defaultStaticTTL = time.Hour
	staticCacheKey   = "bootstrap"
	maxResponseBytes = 6 << 20
)

type ClientConfig struct {
	HTTPClient *http.Client
	BaseURL    string
	UserAgent  string
	Timeout    time.Duration
	// MaxRetries is the number of extra attempts after the first failed
	// request. Zero selects the default; pass a negative value to disable
	// retries.
	MaxRetries     int
	StaticTTL      time.Duration
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

type Client struct {
	httpClient     *http.Client
	baseURL        string
	userAgent      string
	maxRetries     int
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
	flight         resilience.SingleFlight
	static         *cache.Store
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = clampTimeout(cfg.Timeout)
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = defaultRetries
	}
	if maxRetries < 0 {
		maxRetries = 0
	}

	staticTTL := cfg.StaticTTL
	if staticTTL <= 0 {
		staticTTL = defaultStaticTTL
	}

	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)

	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		userAgent:      userAgent,
		maxRetries:     maxRetries,
		logger:         logger,
		breaker:        resilience.NewCircuitBreaker(breakerCfg.FailureLimit, breakerCfg.Cooldown, breakerCfg.ProbeLimit),
		circuitEnabled: breakerCfg.Enabled,
		static:         cache.NewStore(staticTTL),
	}
}

// FetchStaticData returns the bootstrap dataset, served from the process-wide
// cache when fresh. Expiry swaps in a freshly fetched value whole, and
// concurrent misses share one upstream request.
func (c *Client) FetchStaticData(ctx context.Context) (*StaticData, error) {
	value, err := c.static.GetOrLoad(ctx, staticCacheKey, func(ctx context.Context) (any, error) {
		return c.fetchStaticLive(ctx)
	})
	if err != nil {
		return nil, err
	}

	data, ok := value.(*StaticData)
	if !ok {
		return nil, fmt.Errorf("unexpected cached payload type %T", value)
	}

	return data, nil
}

func (c *Client) fetchStaticLive(ctx context.Context) (*StaticData, error) {
	var data StaticData
	if err := c.doJSON(ctx, "/bootstrap-static/", nil, &data); err != nil {
		return nil, fmt.Errorf("fetch bootstrap: %w", err)
	}

	if len(data.Elements) == 0 {
		return nil, fmt.Errorf("%w: bootstrap has no elements", ErrParse)
	}
	if len(data.Events) == 0 {
		return nil, fmt.Errorf("%w: bootstrap has no events", ErrParse)
	}
	if len(data.Teams) == 0 {
		return nil, fmt.Errorf("%w: bootstrap has no teams", ErrParse)
	}
	if len(data.ElementTypes) == 0 {
		return nil, fmt.Errorf("%w: bootstrap has no element types", ErrParse)
	}

	data.BuildIndexes()
	return &data, nil
}

func (c *Client) FetchManagerPicks(ctx context.Context, managerID int64, gameweek int) (*ManagerPicks, error) {
	if managerID <= 0 {
		return nil, fmt.Errorf("manager id must be greater than zero")
	}
	if gameweek < 1 || gameweek > 38 {
		return nil, fmt.Errorf("gameweek out of range: %d", gameweek)
	}

	path := fmt.Sprintf("/entry/%d/event/%d/picks/", managerID, gameweek)
	var picks ManagerPicks
	if err := c.doJSON(ctx, path, nil, &picks); err != nil {
		return nil, fmt.Errorf("fetch picks manager_id=%d gameweek=%d: %w", managerID, gameweek, err)
	}
	if len(picks.Picks) == 0 {
		return nil, fmt.Errorf("%w: picks payload has no picks", ErrParse)
	}

	return &picks, nil
}

func (c *Client) FetchManagerHistory(ctx context.Context, managerID int64) (*ManagerHistory, error) {
	if managerID <= 0 {
		return nil, fmt.Errorf("manager id must be greater than zero")
	}

	path := fmt.Sprintf("/entry/%d/history/", managerID)
	var history ManagerHistory
	if err := c.doJSON(ctx, path, nil, &history); err != nil {
		return nil, fmt.Errorf("fetch history manager_id=%d: %w", managerID, err)
	}

	return &history, nil
}

func (c *Client) FetchManagerEntry(ctx context.Context, managerID int64) (*ManagerEntry, error) {
	if managerID <= 0 {
		return nil, fmt.Errorf("manager id must be greater than zero")
	}

	path := fmt.Sprintf("/entry/%d/", managerID)
	var entry ManagerEntry
	if err := c.doJSON(ctx, path, nil, &entry); err != nil {
		return nil, fmt.Errorf("fetch entry manager_id=%d: %w", managerID, err)
	}
	if entry.ID <= 0 {
		return nil, fmt.Errorf("%w: entry payload missing id", ErrParse)
	}

	return &entry, nil
}

func (c *Client) FetchFixtures(ctx context.Context, gameweek int) ([]Fixture, error) {
	if gameweek < 1 || gameweek > 38 {
		return nil, fmt.Errorf("gameweek out of range: %d", gameweek)
	}

	query := url.Values{}
	query.Set("event", strconv.Itoa(gameweek))

	var fixtures []Fixture
	if err := c.doJSON(ctx, "/fixtures/", query, &fixtures); err != nil {
		return nil, fmt.Errorf("fetch fixtures gameweek=%d: %w", gameweek, err)
	}

	return fixtures, nil
}

func (c *Client) doJSON(ctx context.Context, path string, query url.Values, target any) error {
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "fpl circuit breaker rejected request", "state", c.breaker.State())
			return fmt.Errorf("%w: league api temporarily unavailable", ErrNetwork)
		}
	}

	fullURL := c.baseURL + path
	if encoded := query.Encode(); encoded != "" {
		fullURL += "?" + encoded
	}

	out, err, _ := c.flight.Do(fullURL, func() (any, error) {
		raw, reqErr := c.executeRequest(ctx, fullURL)
		if c.circuitEnabled {
			if reqErr != nil && isCircuitFailure(reqErr) {
				c.breaker.RecordFailure()
			} else {
				c.breaker.RecordSuccess()
			}
		}
		return raw, reqErr
	})
	if err != nil {
		return err
	}

	raw, ok := out.([]byte)
	if !ok {
		return fmt.Errorf("unexpected response payload type %T", out)
	}

	if err := sonic.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrParse, path, err)
	}

	return nil
}

func (c *Client) executeRequest(ctx context.Context, fullURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Accept", "application/json, text/plain, */*")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%w: send request: %v", ErrNetwork, err)
		} else {
			raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
			_ = resp.Body.Close()
			switch {
			case readErr != nil:
				lastErr = fmt.Errorf("%w: read response body: %v", ErrNetwork, readErr)
			case resp.StatusCode >= 200 && resp.StatusCode < 300:
				return raw, nil
			case resp.StatusCode == http.StatusNotFound:
				return nil, fmt.Errorf("%w: status=404 url=%s", ErrNotFound, fullURL)
			case isRetryableStatus(resp.StatusCode):
				lastErr = fmt.Errorf("%w: status=%d body=%s", ErrNetwork, resp.StatusCode, abbreviateBody(raw))
			default:
				return nil, fmt.Errorf("%w: status=%d body=%s", ErrNetwork, resp.StatusCode, abbreviateBody(raw))
			}
		}

		if attempt == c.maxRetries {
			break
		}
		backoff := time.Duration(1<<attempt) * time.Second
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("%w: request failed", ErrNetwork)
	}
	c.logger.WarnContext(ctx, "fpl request failed", "url", fullURL, "error", lastErr)
	return nil, lastErr
}

func isCircuitFailure(err error) bool {
	if err == nil {
		return false
	}
	return stderrors.Is(err, ErrNetwork)
}

func isRetryableStatus(code int) bool {
	return code == http.StatusRequestTimeout ||
		code == http.StatusTooManyRequests ||
		code >= http.StatusInternalServerError
}

func clampTimeout(timeout time.Duration) time.Duration {
	switch {
	case timeout <= 0:
		return defaultTimeout
	case timeout < minTimeout:
		return minTimeout
	case timeout > maxTimeout:
		return maxTimeout
	}
	return timeout
}

func abbreviateBody(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) <= 240 {
		return text
	}
	return text[:240] + "..."
}
