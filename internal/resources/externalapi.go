package resources

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"preflight/internal/config"
	"preflight/pkg/errors"
)

// ExternalAPI brings an upstream HTTP dependency online. Health probes go
// through a circuit breaker so a flapping upstream does not burn the whole
// retry budget, and probe failures are retried with backoff below the
// breaker.
type ExternalAPI struct {
	base
	cfg     *config.ExternalAPIConfig
	retry   retryer
	breaker *gobreaker.CircuitBreaker

	mu     sync.Mutex
	client *http.Client
}

// NewExternalAPI creates the external API variant from its configuration.
func NewExternalAPI(name string, cfg *config.ExternalAPIConfig, logger *zap.Logger) *ExternalAPI {
	a := &ExternalAPI{
		base: newBase(name, logger),
		cfg:  cfg,
	}
	if cfg == nil {
		return a
	}
	a.retry = newRetryer(cfg.Retry, a.status, a.logger)

	br := cfg.Breaker
	maxRequests := br.MaxRequests
	if maxRequests == 0 {
		maxRequests = 3
	}
	threshold := br.FailureThreshold
	if threshold == 0 {
		threshold = 0.6
	}
	minRequests := br.MinRequests
	if minRequests == 0 {
		minRequests = 3
	}
	a.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: maxRequests,
		Interval:    br.Interval.Std(),
		Timeout:     br.Timeout.Std(),
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < minRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			a.logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return a
}

func (a *ExternalAPI) ValidateConfiguration() error {
	if a.cfg == nil {
		return a.fail(errors.NewConfiguration("external API configuration is missing"))
	}
	return validateConfig(a.status, a.cfg)
}

// TestConnection probes the health endpoint, retrying transient failures.
// An open breaker short-circuits the remaining attempts.
func (a *ExternalAPI) TestConnection(ctx context.Context) error {
	client := a.newHTTPClient()
	defer client.CloseIdleConnections()

	return a.retry.do(ctx, "external API health probe", func(ctx context.Context) error {
		return a.probe(ctx, client)
	})
}

// Initialize keeps the tuned HTTP client for the rest of the process and
// records the resolved health endpoint.
func (a *ExternalAPI) Initialize(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.client != nil {
		return nil
	}

	client := a.newHTTPClient()
	if err := a.retry.do(ctx, "external API health probe", func(ctx context.Context) error {
		return a.probe(ctx, client)
	}); err != nil {
		client.CloseIdleConnections()
		return err
	}

	a.status.AddData("base_url", a.cfg.BaseURL)
	a.status.AddData("health_url", a.healthURL())

	a.client = client
	a.logger.Info("external API reachable", zap.String("base_url", a.cfg.BaseURL))
	return nil
}

// Client returns the live HTTP client, or nil before initialization.
func (a *ExternalAPI) Client() *http.Client {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.client
}

// Close releases idle connections held by the client.
func (a *ExternalAPI) Close(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.client != nil {
		a.client.CloseIdleConnections()
		a.client = nil
	}
	return nil
}

// probe issues one breaker-guarded GET against the health endpoint.
func (a *ExternalAPI) probe(ctx context.Context, client *http.Client) error {
	_, err := a.breaker.Execute(func() (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.healthURL(), nil)
		if err != nil {
			return nil, errors.NewConfigurationf("invalid health endpoint: %v", err)
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, errors.NewConnectivity("health probe request failed", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 500 {
			return nil, errors.NewConnectivityf("health endpoint returned %s", resp.Status)
		}
		if resp.StatusCode >= 400 {
			return nil, errors.NewResourcef("health endpoint rejected the probe with %s", resp.Status)
		}
		return nil, nil
	})
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return errors.NewConnectivity("circuit breaker is open", err)
	}
	return err
}

func (a *ExternalAPI) healthURL() string {
	path := a.cfg.HealthPath
	if path == "" {
		path = "/health"
	}
	return strings.TrimRight(a.cfg.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

func (a *ExternalAPI) newHTTPClient() *http.Client {
	timeout := a.cfg.Timeout.Std()
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   timeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:        10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
	}
}
