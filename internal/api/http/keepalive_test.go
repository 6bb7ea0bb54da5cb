package http_test

import (
	"context"
	"io"
	"net"
	"net/http"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	httptransport "github.com/spec-kit/crm-gateway/internal/api/http"
	"github.com/spec-kit/crm-gateway/internal/ratelimit"
)

type syncedLimiter struct {
	mu   sync.Mutex
	keys []string
}

func (l *syncedLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.keys = append(l.keys, key)
	return true, nil
}

func (l *syncedLimiter) recorded() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.keys...)
}

// listen serves the global chain on a real socket so requests share one
// keep-alive connection.
func listen(t *testing.T, limiter ratelimit.Limiter) (string, *http.Client) {
	t.Helper()
	app := fiber.New(fiber.Config{ErrorHandler: httptransport.ErrorHandler, DisableStartupMessage: true})
	httptransport.RegisterMiddlewares(app, httptransport.MiddlewareConfig{Limiter: limiter})
	app.Get("/ping", func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusNoContent)
	})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = app.Listener(ln) }()

	transport := &http.Transport{MaxConnsPerHost: 1}
	t.Cleanup(func() {
		transport.CloseIdleConnections()
		_ = app.Shutdown()
	})
	return "http://" + ln.Addr().String(), &http.Client{Transport: transport}
}

func get(t *testing.T, client *http.Client, url string, headers map[string]string) int {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := client.Do(req)
	require.NoError(t, err)
	_, _ = io.Copy(io.Discard, resp.Body)
	require.NoError(t, resp.Body.Close())
	return resp.StatusCode
}

func TestRateLimitKeysSurviveConnectionReuse(t *testing.T) {
	limiter := &syncedLimiter{}
	base, client := listen(t, limiter)

	sent := []string{"10.0.0.1", "10.9.9.99", "172.16.0.200"}
	for _, ip := range sent {
		require.Equal(t, http.StatusNoContent, get(t, client, base+"/ping", map[string]string{fiber.HeaderXForwardedFor: ip}))
	}
	require.Equal(t, sent, limiter.recorded())
}

func TestMemoryLimiterOverKeepAlive(t *testing.T) {
	base, client := listen(t, ratelimit.NewMemory(1, 1))

	codes := []int{
		get(t, client, base+"/ping", map[string]string{fiber.HeaderXForwardedFor: "10.0.0.1"}),
		get(t, client, base+"/ping", map[string]string{fiber.HeaderXForwardedFor: "10.0.0.1", "X-Trace": "abc"}),
		get(t, client, base+"/ping", map[string]string{fiber.HeaderXForwardedFor: "10.0.0.1", "X-Trace": "def"}),
	}
	require.Equal(t, []int{http.StatusNoContent, http.StatusTooManyRequests, http.StatusTooManyRequests}, codes)
}
