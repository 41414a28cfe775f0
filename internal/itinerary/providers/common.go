package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/sony/gobreaker"

	"github.com/i474232898/trip-context-aggregation/internal/itinerary"
	"github.com/i474232898/trip-context-aggregation/internal/obs"
)

// BackoffConfig controls exponential backoff behaviour.
type BackoffConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// HTTPClientConfig bundles HTTP client and resilience settings shared by all
// providers. Client.Timeout bounds each attempt, not the whole retry sequence.
type HTTPClientConfig struct {
	Client  *http.Client
	Backoff BackoffConfig

	// Breaker enables a per-provider circuit breaker.
	Breaker bool

	Metrics *obs.Metrics
	Logger  *slog.Logger
}

// DefaultBackoff mirrors the upstream defaults: 1 initial attempt + 2 retries.
var DefaultBackoff = BackoffConfig{
	MaxRetries:      2,
	InitialInterval: 500 * time.Millisecond,
	MaxInterval:     5 * time.Second,
}

var (
	errNoHTTPClient  = errors.New("http client not configured")
	errInvalidConfig = errors.New("invalid backoff configuration")
	errCircuitOpen   = errors.New("circuit breaker open")
)

// maxErrorBody caps how much of a failed response is drained before closing.
const maxErrorBody = 4 << 10

func newBreaker(name string, enabled bool) *gobreaker.CircuitBreaker {
	if !enabled {
		return nil
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})
}

func (c HTTPClientConfig) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// doRequestWithResilience executes the request built by buildRequest and
// returns the response body of the first 2xx attempt. Non-2xx responses are
// retried with exponential backoff up to Backoff.MaxRetries times; transport
// errors and an open breaker fail immediately.
func doRequestWithResilience(
	ctx context.Context,
	provider string,
	cfg HTTPClientConfig,
	cb *gobreaker.CircuitBreaker,
	buildRequest func(ctx context.Context) (*http.Request, error),
) ([]byte, error) {
	if cfg.Client == nil {
		return nil, errNoHTTPClient
	}
	if cfg.Backoff.MaxRetries < 0 || cfg.Backoff.InitialInterval <= 0 {
		return nil, errInvalidConfig
	}

	log := cfg.logger()

	operation := func() ([]byte, error) {
		req, err := buildRequest(ctx)
		if err != nil {
			return nil, backoff.Permanent(err)
		}

		body, err := executeAttempt(cfg, provider, cb, req)
		if err == nil {
			return body, nil
		}

		var transient *itinerary.UpstreamTransientError
		if errors.As(err, &transient) {
			return nil, err
		}
		return nil, backoff.Permanent(err)
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = cfg.Backoff.InitialInterval
	eb.Multiplier = 2
	if cfg.Backoff.MaxInterval > 0 {
		eb.MaxInterval = cfg.Backoff.MaxInterval
	}

	body, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(eb),
		backoff.WithMaxTries(uint(cfg.Backoff.MaxRetries+1)),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.Warn("retrying upstream request",
				"provider", provider,
				"error", err,
				"backoff", next)
		}),
	)
	if err != nil {
		var permanent *backoff.PermanentError
		if errors.As(err, &permanent) {
			err = permanent.Err
		}
		return nil, err
	}
	return body, nil
}

// executeAttempt performs a single HTTP round trip, through cb when set.
func executeAttempt(cfg HTTPClientConfig, provider string, cb *gobreaker.CircuitBreaker, req *http.Request) ([]byte, error) {
	attempt := func() (interface{}, error) {
		start := time.Now()
		resp, err := cfg.Client.Do(req)
		if err != nil {
			cfg.Metrics.ObserveAttempt(provider, "transport_error", time.Since(start))
			return nil, &itinerary.UpstreamError{Provider: provider, Err: redactURL(err)}
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
			cfg.Metrics.ObserveAttempt(provider, "status_error", time.Since(start))
			return nil, &itinerary.UpstreamTransientError{Provider: provider, StatusCode: resp.StatusCode}
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			cfg.Metrics.ObserveAttempt(provider, "transport_error", time.Since(start))
			return nil, &itinerary.UpstreamError{Provider: provider, Err: redactURL(err)}
		}
		cfg.Metrics.ObserveAttempt(provider, "ok", time.Since(start))
		return body, nil
	}

	if cb == nil {
		result, err := attempt()
		if err != nil {
			return nil, err
		}
		return result.([]byte), nil
	}

	result, err := cb.Execute(attempt)
	if err != nil {
		// If circuit is open, propagate immediately.
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &itinerary.UpstreamError{Provider: provider, Err: fmt.Errorf("%w: %v", errCircuitOpen, err)}
		}
		return nil, err
	}

	body, ok := result.([]byte)
	if !ok {
		return nil, fmt.Errorf("unexpected result type from circuit breaker")
	}
	return body, nil
}

// redactURL strips query parameters (which may carry API keys) from any
// *url.Error in err.
func redactURL(err error) error {
	var uerr *url.Error
	if !errors.As(err, &uerr) {
		return err
	}
	u, perr := url.Parse(uerr.URL)
	if perr != nil {
		return &url.Error{Op: uerr.Op, URL: "<redacted>", Err: uerr.Err}
	}
	u.RawQuery = ""
	return &url.Error{Op: uerr.Op, URL: u.String(), Err: uerr.Err}
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
