package backend

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WOCOMLABS/jmv-arch/internal/config"
	"github.com/WOCOMLABS/jmv-arch/internal/fixture"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, cfg config.Server, opts ...Option) *httptest.Server {
	t.Helper()

	s, err := New(cfg, append([]Option{WithLogger(quietLogger())}, opts...)...)
	require.NoError(t, err)
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, url string, header http.Header) (*http.Response, string) {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestServer_PeriodicTable(t *testing.T) {
	srv := newTestServer(t, config.Default().Server)

	resp, body := get(t, srv.URL+"/periodic-table", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Equal(t, string(fixture.MustRead(fixture.Elements)), body)
}

func TestServer_CustomPayload(t *testing.T) {
	srv := newTestServer(t, config.Default().Server, WithPayload([]byte(`{"elements":[]}`)))

	_, body := get(t, srv.URL+"/periodic-table", nil)
	assert.Equal(t, `{"elements":[]}`, body)
}

func TestNew_RejectsInvalidPayload(t *testing.T) {
	_, err := New(config.Default().Server, WithPayload([]byte(`{`)))
	assert.Error(t, err)
}

func TestServer_Token(t *testing.T) {
	srv := newTestServer(t, config.Default().Server, WithToken("s3cret"))

	resp, body := get(t, srv.URL+"/periodic-table", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.JSONEq(t, `{"error":"unauthorized"}`, body)

	resp, _ = get(t, srv.URL+"/periodic-table", http.Header{"Authorization": {"Bearer s3cret"}})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_Health(t *testing.T) {
	srv := newTestServer(t, config.Default().Server)

	resp, body := get(t, srv.URL+"/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, body)
}

func TestServer_Metrics(t *testing.T) {
	srv := newTestServer(t, config.Default().Server)

	get(t, srv.URL+"/healthz", nil)
	resp, body := get(t, srv.URL+"/metrics", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `jmv_http_requests_total{method="GET",path="/healthz",status="200"}`)
}

func TestServer_MethodAndRouteErrors(t *testing.T) {
	srv := newTestServer(t, config.Default().Server)

	resp, _ := get(t, srv.URL+"/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	postResp, err := http.Post(srv.URL+"/periodic-table", "application/json", nil)
	require.NoError(t, err)
	postResp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, postResp.StatusCode)
}

func TestServer_RateLimit(t *testing.T) {
	srv := newTestServer(t, config.Server{Addr: ":0", RateLimit: 0.001, Burst: 2})

	for i := 0; i < 2; i++ {
		resp, _ := get(t, srv.URL+"/healthz", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode, "request %d within burst", i)
	}

	resp, body := get(t, srv.URL+"/healthz", nil)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "1", resp.Header.Get("Retry-After"))
	assert.JSONEq(t, `{"error":"rate limit exceeded"}`, body)
}

func TestRateLimiter_KeysByHost(t *testing.T) {
	rl := NewRateLimiter(1, 1, quietLogger())
	h := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	for _, addr := range []string{"10.0.0.1:1000", "10.0.0.1:2000", "10.0.0.2:1000"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		h.ServeHTTP(httptest.NewRecorder(), req)
	}
	assert.Equal(t, 2, rl.Clients())
}

func TestRateLimiter_CleanupForgetsIdleClients(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	rl := NewRateLimiter(1, 1, quietLogger())
	rl.now = func() time.Time { return now }

	rl.limiter("10.0.0.1")
	now = now.Add(ClientIdleTimeout / 2)
	rl.limiter("10.0.0.2")

	now = now.Add(ClientIdleTimeout/2 + time.Second)
	assert.Equal(t, 1, rl.Cleanup(), "only the client idle past the timeout goes")
	assert.Equal(t, 1, rl.Clients())

	now = now.Add(ClientIdleTimeout)
	assert.Equal(t, 1, rl.Cleanup())
	assert.Equal(t, 0, rl.Clients())
}

func TestRateLimiter_StartCleanupStopsWithContext(t *testing.T) {
	rl := NewRateLimiter(1, 1, quietLogger())
	rl.idle = 0
	rl.limiter("10.0.0.1")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rl.StartCleanup(ctx, 5*time.Millisecond)

	assert.Eventually(t, func() bool { return rl.Clients() == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestServer_ServeShutsDownOnCancel(t *testing.T) {
	s, err := New(config.Default().Server, WithLogger(quietLogger()))
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	resp, _ := get(t, "http://"+ln.Addr().String()+"/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(ShutdownTimeout + time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestServer_RunReportsListenError(t *testing.T) {
	s, err := New(config.Server{Addr: "256.0.0.1:bad", RateLimit: 1, Burst: 1}, WithLogger(quietLogger()))
	require.NoError(t, err)

	assert.Error(t, s.Run(context.Background()))
}
