package github

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

const (
	defaultBaseURL = "https://api.github.com"

	// rateLimitPad is added to every quota wait so that the request lands
	// after the reset instant rather than on it.
	rateLimitPad = time.Second
)

// Sleeper blocks for d or until ctx is done
type Sleeper func(ctx context.Context, d time.Duration) error

// Client performs authenticated GET requests against the GitHub REST API.
// Quota state is shared by all goroutines using the same Client.
type Client struct {
	client  *http.Client
	baseURL string
	logger  *logrus.Logger
	quota   *quotaTracker

	maxRetries       int
	initialBackoff   time.Duration
	maxBackoff       time.Duration
	maxRateLimitWait time.Duration

	sleep Sleeper
	now   func() time.Time
}

// ClientOption allows configuring the GitHub client
type ClientOption func(*Client)

// WithRetryConfig configures retry behavior for transient failures
func WithRetryConfig(maxRetries int, initialBackoff, maxBackoff time.Duration) ClientOption {
	return func(c *Client) {
		if maxRetries > 0 {
			c.maxRetries = maxRetries
		}
		c.initialBackoff = initialBackoff
		c.maxBackoff = maxBackoff
	}
}

// WithBaseURL points the client at a different API root, e.g. GitHub Enterprise
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithMaxRateLimitWait bounds how long a call may block waiting for quota
func WithMaxRateLimitWait(d time.Duration) ClientOption {
	return func(c *Client) {
		c.maxRateLimitWait = d
	}
}

// WithRequestTimeout sets the per-request HTTP timeout
func WithRequestTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.client.Timeout = d
	}
}

// WithHTTPClient replaces the underlying HTTP client. The caller is
// responsible for authentication when using this option.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.client = hc
	}
}

// WithSleeper replaces the function used for backoff and quota waits
func WithSleeper(s Sleeper) ClientOption {
	return func(c *Client) {
		c.sleep = s
	}
}

// WithClock replaces the time source used for quota decisions
func WithClock(now func() time.Time) ClientOption {
	return func(c *Client) {
		c.now = now
	}
}

// NewClient creates a new GitHub client with the given token and options.
// An empty token produces an unauthenticated client.
func NewClient(token string, logger *logrus.Logger, opts ...ClientOption) *Client {
	var httpClient *http.Client
	if token != "" {
		ts := oauth2.StaticTokenSource(
			&oauth2.Token{AccessToken: token},
		)
		httpClient = oauth2.NewClient(context.Background(), ts)
	} else {
		httpClient = &http.Client{}
	}
	httpClient.Timeout = 30 * time.Second

	client := &Client{
		client:           httpClient,
		baseURL:          defaultBaseURL,
		logger:           logger,
		quota:            &quotaTracker{},
		maxRetries:       3,
		initialBackoff:   time.Second,
		maxBackoff:       30 * time.Second,
		maxRateLimitWait: 15 * time.Minute,
		sleep:            sleepContext,
		now:              time.Now,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// RateLimit returns the last observed quota state
func (c *Client) RateLimit() RateLimitInfo {
	return c.quota.snapshot()
}

// Fetch issues a GET for resource (a path such as "/repos/o/r") and returns
// the raw JSON body. A 404 yields (nil, nil).
func (c *Client) Fetch(ctx context.Context, resource string, params url.Values) (json.RawMessage, error) {
	if !strings.HasPrefix(resource, "/") {
		return nil, NewValidationError("resource", resource)
	}
	target := c.baseURL + resource
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	var lastErr error
	backoff := c.initialBackoff
	rateLimitRetried := false

	for attempt := 0; attempt < c.maxRetries; {
		if err := c.waitForQuota(ctx); err != nil {
			return nil, err
		}

		body, err := c.doRequest(ctx, target)
		if err == nil {
			return body, nil
		}

		var rle *RateLimitError
		var te *TransientError
		switch {
		case stderrors.As(err, &rle):
			// One retry after the reset; a second rejection is surfaced.
			if rateLimitRetried {
				return nil, err
			}
			rateLimitRetried = true
			if werr := c.waitUntil(ctx, rle.ResetTime, rle); werr != nil {
				return nil, werr
			}
		case stderrors.As(err, &te):
			lastErr = err
			attempt++
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if attempt >= c.maxRetries {
				continue
			}
			c.logger.WithFields(logrus.Fields{
				"resource": resource,
				"attempt":  attempt,
				"backoff":  backoff,
			}).WithError(err).Warn("Transient GitHub API failure, backing off")
			if serr := c.sleep(ctx, backoff); serr != nil {
				return nil, serr
			}
			backoff = time.Duration(math.Min(float64(backoff*2), float64(c.maxBackoff)))
		case stderrors.Is(err, errNotFound):
			return nil, nil
		default:
			return nil, err
		}
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

var errNotFound = stderrors.New("not found")

// doRequest performs a single attempt and classifies the response
func (c *Client) doRequest(ctx context.Context, target string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, NewValidationError("url", target)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, NewTransientError(0, "request failed", err)
	}
	defer resp.Body.Close()

	now := c.now()
	c.quota.update(resp.Header, now)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewTransientError(resp.StatusCode, "failed to read response body", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		if !json.Valid(body) {
			return nil, NewGitHubError(resp.StatusCode, "failed to decode response", nil)
		}
		return json.RawMessage(body), nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, errNotFound
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, NewAuthError(resp.StatusCode, githubMessage(body))
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests:
		if resp.StatusCode == http.StatusForbidden && !hasRateLimitSignal(resp.Header) {
			return nil, NewAuthError(resp.StatusCode, githubMessage(body))
		}
		info := c.quota.snapshot()
		reset := info.ResetTime
		if !info.SecondaryLimitReset.IsZero() && info.SecondaryLimitReset.After(now) {
			reset = info.SecondaryLimitReset
		}
		return nil, NewRateLimitError(reset, info.Limit, info.Remaining)
	case resp.StatusCode >= 500:
		return nil, NewTransientError(resp.StatusCode, githubMessage(body), nil)
	default:
		return nil, NewGitHubError(resp.StatusCode, githubMessage(body), nil)
	}
}

// waitForQuota blocks while the shared quota is exhausted
func (c *Client) waitForQuota(ctx context.Context) error {
	info := c.quota.snapshot()
	exhausted, until := info.Exhausted(c.now())
	if !exhausted {
		return nil
	}
	return c.waitUntil(ctx, until, &RateLimitError{
		ResetTime: until,
		Limit:     info.Limit,
		Remaining: info.Remaining,
	})
}

// waitUntil sleeps until reset plus the pad, or returns cause when that
// would exceed the configured bound.
func (c *Client) waitUntil(ctx context.Context, reset time.Time, cause error) error {
	wait := reset.Sub(c.now()) + rateLimitPad
	if wait < rateLimitPad {
		wait = rateLimitPad
	}
	if wait > c.maxRateLimitWait {
		c.logger.WithFields(logrus.Fields{
			"reset":    reset,
			"wait":     wait,
			"max_wait": c.maxRateLimitWait,
		}).Error("Rate limit reset is beyond the allowed wait")
		return cause
	}

	c.logger.WithFields(logrus.Fields{
		"reset": reset,
		"wait":  wait,
	}).Warn("Rate limit exhausted. Waiting before next request")
	return c.sleep(ctx, wait)
}

// githubMessage extracts the "message" field of a GitHub error body
func githubMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	return strings.TrimSpace(string(body))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// IsRateLimitError checks if an error is a rate limit error
func IsRateLimitError(err error) bool {
	var rle *RateLimitError
	return stderrors.As(err, &rle)
}

// IsAuthError checks if an error is an authentication error
func IsAuthError(err error) bool {
	var ae *AuthError
	return stderrors.As(err, &ae)
}
