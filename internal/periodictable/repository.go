package periodictable

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net"
	"net/http"
	"time"

	"github.com/WOCOMLABS/jmv-arch/internal/config"
	"github.com/WOCOMLABS/jmv-arch/internal/metrics"
)

// maxBodyBytes bounds how much of a response body is read.
const maxBodyBytes = 1 << 20

// RepositoryError describes a failed repository interaction after all
// attempts.
type RepositoryError struct {
	Op         string
	URL        string
	StatusCode int // 0 when no response was received
	Attempts   int
	Err        error
}

func (e *RepositoryError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: status %d after %d attempt(s): %v", e.Op, e.URL, e.StatusCode, e.Attempts, e.Err)
	}
	return fmt.Sprintf("%s %s: failed after %d attempt(s): %v", e.Op, e.URL, e.Attempts, e.Err)
}

func (e *RepositoryError) Unwrap() error {
	return e.Err
}

// Retryable reports whether another attempt could have succeeded: transport
// errors, timeouts, 429 and 5xx.
func (e *RepositoryError) Retryable() bool {
	if e.StatusCode != 0 {
		return retryableStatus(e.StatusCode)
	}
	return retryableError(e.Err)
}

// IsRetryable reports whether err is (or wraps) a retryable RepositoryError.
func IsRetryable(err error) bool {
	var re *RepositoryError
	if errors.As(err, &re) {
		return re.Retryable()
	}
	return false
}

// errStatus is the cause recorded for a non-2xx response.
var errStatus = errors.New("unexpected status")

// HTTPRepository fetches the periodic table from the configured backend.
//
// Every call performs one logical interaction: a GET with a per-attempt
// timeout, retried with exponential backoff on retryable failures.
// Cancelling the caller's context aborts at once.
type HTTPRepository struct {
	backend config.Backend
	client  *http.Client
	logger  *slog.Logger
	metrics bool
	sleep   func(ctx context.Context, d time.Duration) error
}

// RepositoryOption configures an HTTPRepository.
type RepositoryOption func(*HTTPRepository)

// WithHTTPClient sets the HTTP client. Default: a client without an overall
// timeout (the per-attempt timeout applies).
func WithHTTPClient(client *http.Client) RepositoryOption {
	return func(r *HTTPRepository) {
		r.client = client
	}
}

// WithRepositoryLogger sets the logger. Default: slog.Default().
func WithRepositoryLogger(logger *slog.Logger) RepositoryOption {
	return func(r *HTTPRepository) {
		r.logger = logger
	}
}

// WithRepositoryMetrics toggles Prometheus recording. Default: enabled.
func WithRepositoryMetrics(enabled bool) RepositoryOption {
	return func(r *HTTPRepository) {
		r.metrics = enabled
	}
}

// NewHTTPRepository creates a repository for backend.
func NewHTTPRepository(backend config.Backend, opts ...RepositoryOption) *HTTPRepository {
	r := &HTTPRepository{
		backend: backend,
		client:  &http.Client{},
		logger:  slog.Default(),
		metrics: true,
		sleep:   sleepContext,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("repository", "periodic-table")
	return r
}

// InteractWith fetches and validates the periodic table. The action is
// carried for logging only: every action reads the same resource.
func (r *HTTPRepository) InteractWith(ctx context.Context, action Action) (TableDTO, error) {
	start := time.Now()
	url := r.backend.URL()

	var (
		lastErr    error
		lastStatus int
		attempts   int
	)

	for attempt := 0; attempt <= r.backend.Retries; attempt++ {
		if attempt > 0 {
			if err := r.sleep(ctx, r.backoff(attempt)); err != nil {
				lastErr = err
				break
			}
		}
		attempts++

		dto, status, err := r.attempt(ctx, url)
		if err == nil {
			r.record(start, true)
			r.logger.InfoContext(ctx, "repository ok",
				"action", action.ActionName(),
				"url", url,
				"attempts", attempts,
				"elements", len(dto.Elements),
				"duration", time.Since(start),
			)
			return dto, nil
		}

		lastErr, lastStatus = err, status
		if ctx.Err() != nil || !isRetryable(status, err) {
			break
		}
		r.logger.WarnContext(ctx, "repository attempt failed",
			"action", action.ActionName(),
			"attempt", attempts,
			"status", status,
			"error", err,
		)
	}

	r.record(start, false)
	repoErr := &RepositoryError{
		Op:         http.MethodGet,
		URL:        url,
		StatusCode: lastStatus,
		Attempts:   attempts,
		Err:        lastErr,
	}
	r.logger.ErrorContext(ctx, "repository fail",
		"action", action.ActionName(),
		"url", url,
		"attempts", attempts,
		"status", lastStatus,
		"error", lastErr,
	)
	return TableDTO{}, repoErr
}

// attempt performs one GET bounded by the per-attempt timeout.
func (r *HTTPRepository) attempt(ctx context.Context, url string) (TableDTO, int, error) {
	ctx, cancel := context.WithTimeout(ctx, r.backend.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return TableDTO{}, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range r.backend.Headers {
		req.Header.Set(k, v)
	}
	if r.backend.Token != "" {
		req.Header.Set("Authorization", "Bearer "+r.backend.Token)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return TableDTO{}, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return TableDTO{}, resp.StatusCode, fmt.Errorf("%w: %s", errStatus, resp.Status)
	}

	var dto TableDTO
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&dto); err != nil {
		return TableDTO{}, resp.StatusCode, fmt.Errorf("decode response: %w", err)
	}
	if err := dto.Validate(); err != nil {
		return TableDTO{}, resp.StatusCode, err
	}
	return dto, resp.StatusCode, nil
}

// backoff returns the delay before the given retry (1-based).
func (r *HTTPRepository) backoff(retry int) time.Duration {
	d := float64(r.backend.Backoff) * math.Pow(2, float64(retry-1))
	if ceiling := float64(r.backend.MaxBackoff); ceiling > 0 && d > ceiling {
		d = ceiling
	}
	return time.Duration(d)
}

func (r *HTTPRepository) record(start time.Time, ok bool) {
	if r.metrics {
		metrics.RecordRepositoryRequest("periodic-table", time.Since(start), ok)
	}
}

// isRetryable classifies one attempt. A response with a 2xx status that
// failed decoding or validation is final.
func isRetryable(status int, err error) bool {
	if status != 0 {
		return retryableStatus(status)
	}
	return retryableError(err)
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

func retryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
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
