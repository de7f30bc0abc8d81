package fetcher

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"resty.dev/v3"
)

const (
	// DefaultUserAgent mimics a desktop browser; finance sites reject the Go default.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

	defaultTimeout          = 30 * time.Second
	defaultRetryWaitTime    = 1 * time.Second
	defaultRetryMaxWaitTime = 10 * time.Second
)

// Options tune the HTTP client used by the data sources.
type Options struct {
	// UserAgent defaults to DefaultUserAgent.
	UserAgent string

	// Timeout bounds a single HTTP request. Defaults to 30s.
	Timeout time.Duration

	// TransportRetries enables resty's own retry loop. The pipeline already
	// retries whole items, so this is zero unless a source needs it.
	TransportRetries int
}

// NewHTTPClient creates a new HTTP client for baseURL with JSON defaults
func NewHTTPClient(baseURL string, opts Options) *resty.Client {
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(opts.Timeout).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", opts.UserAgent)

	if opts.TransportRetries > 0 {
		client.
			SetRetryCount(opts.TransportRetries).
			SetRetryWaitTime(defaultRetryWaitTime).
			SetRetryMaxWaitTime(defaultRetryMaxWaitTime).
			AddRetryConditions(retryCondition).
			AddRetryHooks(retryHook)
	}

	return client
}

// retryCondition determines whether a request should be retried based on the response and error
func retryCondition(r *resty.Response, err error) bool {
	// Retry on network errors
	if err != nil {
		return true
	}

	switch code := r.StatusCode(); {
	case code >= 500:
		return true
	case code == http.StatusTooManyRequests, code == http.StatusRequestTimeout:
		return true
	default:
		return false
	}
}

// retryHook logs retry attempts for observability
func retryHook(r *resty.Response, err error) {
	if r == nil || r.Request == nil {
		log.Debug().Err(err).Msg("retrying request")
		return
	}
	if err != nil {
		log.Debug().
			Str("url", r.Request.URL).
			Int("attempt", r.Request.Attempt).
			Err(err).
			Msg("retrying request due to error")
		return
	}

	log.Debug().
		Str("url", r.Request.URL).
		Int("attempt", r.Request.Attempt).
		Int("status_code", r.StatusCode()).
		Msg("retrying request due to status code")
}

// CheckResponse maps the outcome of a resty request onto the FetchError
// taxonomy. It returns nil for 2xx responses.
func CheckResponse(resp *resty.Response, err error) error {
	if err != nil {
		var netErr net.Error
		switch {
		case errors.Is(err, context.Canceled):
			return err
		case errors.Is(err, context.DeadlineExceeded):
			return NewTimeoutError(err)
		case errors.As(err, &netErr) && netErr.Timeout():
			return NewTimeoutError(err)
		default:
			return NewNetworkError(err)
		}
	}
	if resp == nil {
		return NewNetworkError(errors.New("no response"))
	}
	if !resp.IsSuccess() {
		return ClassifyHTTPError(resp.StatusCode())
	}
	return nil
}
