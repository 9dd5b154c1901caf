package periodictable

import (
	"context"
	"net"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/WOCOMLABS/jmv-arch/internal/config"
)

// backendFor points a backend config at srv with fast retry timings.
func backendFor(t *testing.T, srv *httptest.Server) config.Backend {
	t.Helper()

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	host, portStr, err := net.SplitHostPort(u.Host)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	b := config.Default().Backend
	b.Host = host
	b.Port = port
	b.Token = "test-token"
	b.Timeout = time.Second
	b.Backoff = time.Millisecond
	b.MaxBackoff = 5 * time.Millisecond
	return b
}

// newTestRepository builds a repository that does not sleep between
// retries and records the delays it would have used.
func newTestRepository(t *testing.T, b config.Backend) (*HTTPRepository, *[]time.Duration) {
	t.Helper()

	var delays []time.Duration
	repo := NewHTTPRepository(b, WithRepositoryMetrics(false))
	repo.sleep = func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return ctx.Err()
	}
	return repo, &delays
}
