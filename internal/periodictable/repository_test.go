package periodictable

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WOCOMLABS/jmv-arch/internal/config"
	"github.com/WOCOMLABS/jmv-arch/internal/featuretest"
	"github.com/WOCOMLABS/jmv-arch/internal/fixture"
)

// scriptedServer answers the i-th request with statuses[i]; requests past
// the script get the last status. 200 responses carry body.
func scriptedServer(t *testing.T, body []byte, statuses ...int) (*httptest.Server, *atomic.Int32) {
	t.Helper()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(calls.Add(1)) - 1
		if n >= len(statuses) {
			n = len(statuses) - 1
		}
		status := statuses[n]
		if status != http.StatusOK {
			http.Error(w, http.StatusText(status), status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestHTTPRepository_ReturnsFixture(t *testing.T) {
	var gotPath, gotAuth, gotClient string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotClient = r.Header.Get("X-Client")
		_, _ = w.Write(fixture.MustRead(fixture.Elements))
	}))
	defer srv.Close()

	b := backendFor(t, srv)
	b.Headers = map[string]string{"x-client": "jmv"}
	repo, _ := newTestRepository(t, b)
	expected, err := fixture.Load[TableDTO](fixture.Elements)
	require.NoError(t, err)

	featuretest.AssertInteracts[Action, TableDTO](t, repo, ActionLoad, expected)
	assert.Equal(t, "/periodic-table", gotPath)
	assert.Equal(t, "Bearer test-token", gotAuth)
	assert.Equal(t, "jmv", gotClient)
}

func TestHTTPRepository_NoTokenNoAuthorization(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write(fixture.MustRead(fixture.Elements))
	}))
	defer srv.Close()

	b := backendFor(t, srv)
	b.Token = ""
	repo, _ := newTestRepository(t, b)

	_, err := repo.InteractWith(context.Background(), ActionData)
	require.NoError(t, err)
	assert.Empty(t, gotAuth)
}

func TestHTTPRepository_RetriesServerErrors(t *testing.T) {
	srv, calls := scriptedServer(t, fixture.MustRead(fixture.Elements),
		http.StatusServiceUnavailable, http.StatusTooManyRequests, http.StatusOK)

	repo, delays := newTestRepository(t, backendFor(t, srv))

	dto, err := repo.InteractWith(context.Background(), ActionData)
	require.NoError(t, err)
	assert.Len(t, dto.Elements, 10)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, []time.Duration{time.Millisecond, 2 * time.Millisecond}, *delays)
}

func TestHTTPRepository_GivesUpAfterRetries(t *testing.T) {
	srv, calls := scriptedServer(t, nil, http.StatusInternalServerError)

	b := backendFor(t, srv)
	b.Retries = 2
	repo, _ := newTestRepository(t, b)

	_, err := repo.InteractWith(context.Background(), ActionData)
	require.Error(t, err)

	var repoErr *RepositoryError
	require.ErrorAs(t, err, &repoErr)
	assert.Equal(t, http.StatusInternalServerError, repoErr.StatusCode)
	assert.Equal(t, 3, repoErr.Attempts)
	assert.Equal(t, http.MethodGet, repoErr.Op)
	assert.True(t, repoErr.Retryable())
	assert.True(t, IsRetryable(err))
	assert.Equal(t, int32(3), calls.Load())
}

func TestHTTPRepository_ClientErrorIsFinal(t *testing.T) {
	srv, calls := scriptedServer(t, nil, http.StatusNotFound)

	repo, _ := newTestRepository(t, backendFor(t, srv))

	_, err := repo.InteractWith(context.Background(), ActionData)
	require.Error(t, err)
	assert.False(t, IsRetryable(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestHTTPRepository_MalformedBodyIsFinal(t *testing.T) {
	srv, calls := scriptedServer(t, []byte(`{"elements": [`), http.StatusOK)

	repo, _ := newTestRepository(t, backendFor(t, srv))

	_, err := repo.InteractWith(context.Background(), ActionData)
	require.Error(t, err)
	assert.False(t, IsRetryable(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestHTTPRepository_InvalidPayloadIsFinal(t *testing.T) {
	srv, _ := scriptedServer(t, []byte(`{"elements": [{"name": "Hydrogen", "number": 1}]}`), http.StatusOK)

	repo, _ := newTestRepository(t, backendFor(t, srv))

	_, err := repo.InteractWith(context.Background(), ActionData)
	assert.ErrorIs(t, err, ErrInvalidPayload)
	assert.False(t, IsRetryable(err))
}

func TestHTTPRepository_AttemptTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	b := backendFor(t, srv)
	b.Timeout = 20 * time.Millisecond
	b.Retries = 1
	repo, delays := newTestRepository(t, b)

	_, err := repo.InteractWith(context.Background(), ActionData)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, IsRetryable(err))
	assert.Len(t, *delays, 1, "timed-out attempt is retried")
}

func TestHTTPRepository_CallerCancellationAborts(t *testing.T) {
	srv, calls := scriptedServer(t, nil, http.StatusBadGateway)

	ctx, cancel := context.WithCancel(context.Background())
	b := backendFor(t, srv)
	b.Retries = 5
	repo := NewHTTPRepository(b, WithRepositoryMetrics(false))
	repo.sleep = func(context.Context, time.Duration) error {
		cancel()
		return context.Canceled
	}

	_, err := repo.InteractWith(ctx, ActionData)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(1), calls.Load())
}

func TestHTTPRepository_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	b := backendFor(t, srv)
	srv.Close()

	b.Retries = 1
	repo, delays := newTestRepository(t, b)

	_, err := repo.InteractWith(context.Background(), ActionData)
	require.Error(t, err)
	assert.True(t, IsRetryable(err))
	assert.Len(t, *delays, 1)
}

func TestHTTPRepository_Backoff(t *testing.T) {
	b := config.Default().Backend
	b.Backoff = 100 * time.Millisecond
	b.MaxBackoff = 300 * time.Millisecond
	repo := NewHTTPRepository(b)

	assert.Equal(t, 100*time.Millisecond, repo.backoff(1))
	assert.Equal(t, 200*time.Millisecond, repo.backoff(2))
	assert.Equal(t, 300*time.Millisecond, repo.backoff(3))
	assert.Equal(t, 300*time.Millisecond, repo.backoff(10))
}

func TestRepositoryError_Error(t *testing.T) {
	err := &RepositoryError{Op: "GET", URL: "http://x/p", StatusCode: 503, Attempts: 3, Err: errors.New("unexpected status: 503")}
	assert.Equal(t, "GET http://x/p: status 503 after 3 attempt(s): unexpected status: 503", err.Error())

	err = &RepositoryError{Op: "GET", URL: "http://x/p", Attempts: 1, Err: errors.New("refused")}
	assert.Equal(t, "GET http://x/p: failed after 1 attempt(s): refused", err.Error())
	assert.False(t, err.Retryable())
}
