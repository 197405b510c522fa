package httpx_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/grantd/pkg/httpx"
	"github.com/stretchr/testify/require"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func requestFrom(addr string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/v1/oauth2/token", nil)
	req.RemoteAddr = addr
	return req
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		header     map[string]string
		trustProxy bool
		want       string
	}{
		{"remote addr", nil, false, "192.168.1.1"},
		{"forwarded for ignored without proxy", map[string]string{"X-Forwarded-For": "203.0.113.1"}, false, "192.168.1.1"},
		{"real ip ignored without proxy", map[string]string{"X-Real-IP": "203.0.113.2"}, false, "192.168.1.1"},
		{"last forwarded hop behind proxy", map[string]string{"X-Forwarded-For": "6.6.6.6, 203.0.113.1"}, true, "203.0.113.1"},
		{"real ip behind proxy", map[string]string{"X-Real-IP": "203.0.113.2"}, true, "203.0.113.2"},
		{"no headers behind proxy", nil, true, "192.168.1.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := requestFrom("192.168.1.1:12345")
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			require.Equal(t, tt.want, httpx.ClientIP(req, tt.trustProxy))
		})
	}
}

func TestKeyExtractors(t *testing.T) {
	t.Run("basic client", func(t *testing.T) {
		req := requestFrom("192.168.1.1:12345")
		require.Empty(t, httpx.BasicClientKeyExtractor(req))

		req.SetBasicAuth("client-1", "secret")
		require.Equal(t, "client-1", httpx.BasicClientKeyExtractor(req))
	})

	t.Run("form field", func(t *testing.T) {
		form := url.Values{"client_id": {"abc"}}
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		require.Equal(t, "abc", httpx.FormFieldKeyExtractor("client_id")(req))

		query := httptest.NewRequest(http.MethodGet, "/?client_id=q", nil)
		require.Equal(t, "q", httpx.FormFieldKeyExtractor("client_id")(query))
	})

	t.Run("composite skips empty parts", func(t *testing.T) {
		extract := httpx.CompositeKeyExtractor(":", httpx.IPKeyExtractor(false), httpx.BasicClientKeyExtractor)

		req := requestFrom("10.0.0.1:1")
		require.Equal(t, "10.0.0.1", extract(req))

		req.SetBasicAuth("c", "s")
		require.Equal(t, "10.0.0.1:c", extract(req))
	})
}

func TestRateLimiter(t *testing.T) {
	config := httpx.RateLimitConfig{RequestsPerWindow: 3, Window: time.Minute, Burst: 3}
	rl := httpx.NewRateLimiter(httpx.DefaultRateLimits(), false)

	t.Run("blocks over limit", func(t *testing.T) {
		h := rl.ByIP(config)(okHandler)
		for i := range 3 {
			require.Equal(t, http.StatusOK, serve(h, requestFrom("192.168.1.1:1")).Code, "request %d", i+1)
		}

		rec := serve(h, requestFrom("192.168.1.1:1"))
		require.Equal(t, http.StatusTooManyRequests, rec.Code)
		require.Equal(t, "20", rec.Header().Get("Retry-After"))
		require.Equal(t, "3", rec.Header().Get("X-RateLimit-Limit"))
		require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
		require.Contains(t, rec.Body.String(), "rate_limit_exceeded")

		require.Equal(t, http.StatusOK, serve(h, requestFrom("192.168.1.2:1")).Code, "other IPs are tracked separately")
	})

	t.Run("spoofed forwarding header does not reset the budget", func(t *testing.T) {
		h := rl.ByIP(config)(okHandler)
		for i := range 4 {
			req := requestFrom("10.9.9.9:1")
			req.Header.Set("X-Forwarded-For", "1.2.3."+string(rune('0'+i)))
			serve(h, req)
		}
		req := requestFrom("10.9.9.9:1")
		req.Header.Set("X-Forwarded-For", "9.9.9.9")
		require.Equal(t, http.StatusTooManyRequests, serve(h, req).Code)
	})

	t.Run("clients behind one address are separate", func(t *testing.T) {
		h := rl.ByIPAndClient(config)(okHandler)
		for range 3 {
			req := requestFrom("10.0.0.1:1")
			req.SetBasicAuth("noisy", "x")
			serve(h, req)
		}

		noisy := requestFrom("10.0.0.1:1")
		noisy.SetBasicAuth("noisy", "x")
		require.Equal(t, http.StatusTooManyRequests, serve(h, noisy).Code)

		quiet := requestFrom("10.0.0.1:1")
		quiet.SetBasicAuth("quiet", "x")
		require.Equal(t, http.StatusOK, serve(h, quiet).Code)
	})

	t.Run("each middleware has its own buckets", func(t *testing.T) {
		one := httpx.RateLimitConfig{RequestsPerWindow: 1, Window: time.Minute, Burst: 1}
		a := rl.ByIP(one)(okHandler)
		b := rl.ByIP(one)(okHandler)
		require.Equal(t, http.StatusOK, serve(a, requestFrom("10.1.1.1:1")).Code)
		require.Equal(t, http.StatusOK, serve(b, requestFrom("10.1.1.1:1")).Code)
		require.Equal(t, http.StatusTooManyRequests, serve(a, requestFrom("10.1.1.1:1")).Code)
	})

	t.Run("empty key is allowed", func(t *testing.T) {
		one := httpx.RateLimitConfig{RequestsPerWindow: 1, Window: time.Minute, Burst: 1}
		h := httpx.RateLimitMiddleware(one, func(*http.Request) string { return "" })(okHandler)
		for range 3 {
			require.Equal(t, http.StatusOK, serve(h, requestFrom("1.1.1.1:1")).Code)
		}
	})
}

func TestRateLimitsFromEnv(t *testing.T) {
	t.Setenv("RATELIMIT_STRICT_REQUESTS", "200")
	t.Setenv("RATELIMIT_STRICT_WINDOW_SEC", "30")
	t.Setenv("RATELIMIT_STRICT_BURST", "250")
	t.Setenv("RATELIMIT_MODERATE_REQUESTS", "x")
	t.Setenv("RATELIMIT_MODERATE_WINDOW_SEC", "-10")
	t.Setenv("RATELIMIT_MODERATE_BURST", "0")

	got := httpx.RateLimitsFromEnv()
	def := httpx.DefaultRateLimits()

	require.Equal(t, httpx.RateLimitConfig{RequestsPerWindow: 200, Window: 30 * time.Second, Burst: 250}, got.Strict)
	require.Equal(t, def.Moderate, got.Moderate, "invalid values keep the default")
	require.Equal(t, def.Lenient, got.Lenient)
	require.Equal(t, def.Public, got.Public)
}
