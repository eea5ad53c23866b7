// Package skyscanner is the client for the RapidAPI sky-scrapper flight API. It
// covers the two endpoints the search page needs: airport autocomplete and
// one-way flight search.
package skyscanner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/dharmasatrya/skyfinder/internal/logger"
	"github.com/dharmasatrya/skyfinder/internal/ratelimit"
)

const (
	airportsPath = "/api/v1/flights/searchAirport"
	flightsPath  = "/api/v1/flights/searchFlights"

	// Upper bound on the response body we are willing to decode.
	maxBodyBytes = 8 << 20
)

type Config struct {
	BaseURL    string
	APIKey     string
	APIHost    string
	Locale     string
	Timeout    time.Duration
	MaxRetries int
	Limiter    *ratelimit.EndpointLimiter
	HTTPClient *http.Client
}

type Client struct {
	baseURL string
	apiKey  string
	apiHost string
	locale  string
	http    *retryablehttp.Client
	limiter *ratelimit.EndpointLimiter
}

var (
	ErrMissingCredentials = errors.New("skyscanner: api key and host are required")
	ErrMissingBaseURL     = errors.New("skyscanner: base url is required")
)

func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" || cfg.APIHost == "" {
		return nil, ErrMissingCredentials
	}
	if cfg.BaseURL == "" {
		return nil, ErrMissingBaseURL
	}

	rc := retryablehttp.NewClient()
	if cfg.HTTPClient != nil {
		rc.HTTPClient = cfg.HTTPClient
	}
	if cfg.Timeout > 0 {
		rc.HTTPClient.Timeout = cfg.Timeout
	}
	rc.RetryMax = max(cfg.MaxRetries, 0)
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.Logger = leveledLogger{}
	rc.CheckRetry = retryPolicy
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	locale := cfg.Locale
	if locale == "" {
		locale = "en-US"
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		apiHost: cfg.APIHost,
		locale:  locale,
		http:    rc,
		limiter: cfg.Limiter,
	}, nil
}

// retryPolicy never retries once the caller has given up, and otherwise defers
// to the library default (connection errors, 429, 5xx).
func retryPolicy(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}

// get issues a GET and returns the body of a 2xx response. Failures come back as
// *SearchError so callers can branch on transport versus status.
func (c *Client) get(ctx context.Context, endpoint, path string, query url.Values) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, endpoint); err != nil {
			return nil, &SearchError{Kind: FailureTransport, Err: err}
		}
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return nil, &SearchError{Kind: FailureTransport, Err: err}
	}
	req.Header.Set("x-rapidapi-key", c.apiKey)
	req.Header.Set("x-rapidapi-host", c.apiHost)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return nil, &SearchError{Kind: FailureTransport, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &SearchError{
			Kind:       FailureStatus,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(snippet))),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &SearchError{Kind: FailureTransport, Err: err}
	}
	return body, nil
}

// leveledLogger routes retryablehttp's request logging into the structured logger.
type leveledLogger struct{}

func (leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	logger.Error(nil, msg, keysAndValues...)
}

func (leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.Debug(msg, keysAndValues...)
}

func (leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	logger.Debug(msg, keysAndValues...)
}

func (leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	logger.Warn(msg, keysAndValues...)
}
