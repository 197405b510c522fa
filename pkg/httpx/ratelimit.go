package httpx

import (
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aussiebroadwan/grantd/pkg/slogx"
	"golang.org/x/time/rate"
)

// RateLimitConfig is one token bucket profile.
type RateLimitConfig struct {
	// RequestsPerWindow is the sustained number of requests per Window
	RequestsPerWindow int
	Window            time.Duration
	// Burst is the bucket size, i.e. how many requests may arrive at once
	Burst int
}

// RateLimits groups the profiles the router assigns to endpoints.
type RateLimits struct {
	Strict   RateLimitConfig // credential checks: token endpoint, bootstrap
	Moderate RateLimitConfig // revoke, introspect, client administration
	Lenient  RateLimitConfig // authorize redirects, health checks
	Public   RateLimitConfig
}

// DefaultRateLimits returns the production profiles.
func DefaultRateLimits() RateLimits {
	return RateLimits{
		Strict:   RateLimitConfig{RequestsPerWindow: 5, Window: time.Minute, Burst: 5},
		Moderate: RateLimitConfig{RequestsPerWindow: 20, Window: time.Minute, Burst: 20},
		Lenient:  RateLimitConfig{RequestsPerWindow: 100, Window: time.Minute, Burst: 100},
		Public:   RateLimitConfig{RequestsPerWindow: 1000, Window: time.Minute, Burst: 1000},
	}
}

// RateLimitsFromEnv applies RATELIMIT_{STRICT,MODERATE,LENIENT,PUBLIC}_*
// overrides to the defaults.
func RateLimitsFromEnv() RateLimits {
	l := DefaultRateLimits()
	l.Strict = ParseRateLimitFromEnv("STRICT", l.Strict)
	l.Moderate = ParseRateLimitFromEnv("MODERATE", l.Moderate)
	l.Lenient = ParseRateLimitFromEnv("LENIENT", l.Lenient)
	l.Public = ParseRateLimitFromEnv("PUBLIC", l.Public)
	return l
}

// ParseRateLimitFromEnv reads RATELIMIT_{prefix}_REQUESTS, _WINDOW_SEC and
// _BURST. Missing or non-positive values keep the default.
func ParseRateLimitFromEnv(prefix string, def RateLimitConfig) RateLimitConfig {
	positive := func(field string) (int, bool) {
		n, err := strconv.Atoi(os.Getenv("RATELIMIT_" + prefix + "_" + field))
		return n, err == nil && n > 0
	}

	cfg := def
	if n, ok := positive("REQUESTS"); ok {
		cfg.RequestsPerWindow = n
	}
	if n, ok := positive("WINDOW_SEC"); ok {
		cfg.Window = time.Duration(n) * time.Second
	}
	if n, ok := positive("BURST"); ok {
		cfg.Burst = n
	}
	return cfg
}

// KeyExtractor picks the bucket a request is counted against. An empty key
// means the request is not limited.
type KeyExtractor func(*http.Request) string

// ClientIP returns the caller's address. Forwarding headers are only
// believed behind a trusted proxy, where the last X-Forwarded-For hop is the
// one our proxy appended.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			hops := strings.Split(xff, ",")
			if last := strings.TrimSpace(hops[len(hops)-1]); last != "" {
				return last
			}
		}
		if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
			return xri
		}
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// IPKeyExtractor keys on ClientIP.
func IPKeyExtractor(trustProxy bool) KeyExtractor {
	return func(r *http.Request) string { return ClientIP(r, trustProxy) }
}

// UserIDKeyExtractor keys on the session subject.
func UserIDKeyExtractor(r *http.Request) string {
	return UserIDFromContext(r.Context())
}

// BasicClientKeyExtractor keys on the client_id of HTTP Basic credentials.
// The secret is never part of the key.
func BasicClientKeyExtractor(r *http.Request) string {
	if id, _, ok := r.BasicAuth(); ok {
		return id
	}
	return ""
}

// FormFieldKeyExtractor keys on a query or form parameter.
func FormFieldKeyExtractor(field string) KeyExtractor {
	return func(r *http.Request) string {
		if err := r.ParseForm(); err != nil {
			return ""
		}
		return r.Form.Get(field)
	}
}

// CompositeKeyExtractor joins the non-empty keys of each extractor with sep.
func CompositeKeyExtractor(sep string, extractors ...KeyExtractor) KeyExtractor {
	return func(r *http.Request) string {
		parts := make([]string, 0, len(extractors))
		for _, extract := range extractors {
			if key := extract(r); key != "" {
				parts = append(parts, key)
			}
		}
		return strings.Join(parts, sep)
	}
}

// bucketSet holds one token bucket per key. Buckets untouched for a full
// window are refilled anyway, so they are dropped on the next sweep.
type bucketSet struct {
	limit rate.Limit
	burst int
	idle  time.Duration
	now   func() time.Time

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newBucketSet(cfg RateLimitConfig, now func() time.Time) *bucketSet {
	limit := rate.Inf
	if cfg.RequestsPerWindow > 0 && cfg.Window > 0 {
		limit = rate.Limit(float64(cfg.RequestsPerWindow) / cfg.Window.Seconds())
	}
	idle := cfg.Window
	if idle <= 0 {
		idle = time.Minute
	}
	return &bucketSet{
		limit:     limit,
		burst:     cfg.Burst,
		idle:      idle,
		now:       now,
		buckets:   make(map[string]*bucket),
		lastSweep: now(),
	}
}

// allow takes a token for key. When none is left it returns how long until
// the next one.
func (s *bucketSet) allow(key string) (bool, time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastSweep) >= s.idle {
		for k, b := range s.buckets {
			if now.Sub(b.lastSeen) >= s.idle {
				delete(s.buckets, k)
			}
		}
		s.lastSweep = now
	}

	b, ok := s.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.buckets[key] = b
	}
	b.lastSeen = now

	if b.limiter.AllowN(now, 1) {
		return true, 0
	}
	r := b.limiter.ReserveN(now, 1)
	delay := r.DelayFrom(now)
	r.CancelAt(now)
	return false, delay
}

func (s *bucketSet) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buckets)
}

// RateLimitMiddleware limits requests per key to config.
func RateLimitMiddleware(config RateLimitConfig, keyExtractor KeyExtractor) Middleware {
	set := newBucketSet(config, time.Now)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyExtractor(r)
			if key == "" {
				slogx.FromContext(r.Context()).Warn("rate limit: unable to extract key, allowing request")
				next.ServeHTTP(w, r)
				return
			}

			ok, delay := set.allow(key)
			if ok {
				next.ServeHTTP(w, r)
				return
			}

			retryAfter := max(int(delay.Round(time.Second).Seconds()), 1)
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(config.RequestsPerWindow))
			w.Header().Set("X-RateLimit-Window", config.Window.String())

			slogx.FromContext(r.Context()).Warn("rate limit exceeded",
				"key", key,
				"endpoint", r.URL.Path,
				"retry_after", retryAfter,
			)
			WriteJSON(w, http.StatusTooManyRequests, map[string]string{
				"error":             "rate_limit_exceeded",
				"error_description": "Too many requests. Please try again later.",
			})
		})
	}
}

// RateLimiter builds the per-endpoint limiters of one router. Every call
// returns a middleware with its own buckets.
type RateLimiter struct {
	Limits     RateLimits
	TrustProxy bool
}

func NewRateLimiter(limits RateLimits, trustProxy bool) *RateLimiter {
	return &RateLimiter{Limits: limits, TrustProxy: trustProxy}
}

// ByIP limits by caller address.
func (l *RateLimiter) ByIP(cfg RateLimitConfig) Middleware {
	return RateLimitMiddleware(cfg, IPKeyExtractor(l.TrustProxy))
}

// ByUser limits by session subject, falling back to the address for
// anonymous requests.
func (l *RateLimiter) ByUser(cfg RateLimitConfig) Middleware {
	return RateLimitMiddleware(cfg, CompositeKeyExtractor(":",
		UserIDKeyExtractor,
		IPKeyExtractor(l.TrustProxy),
	))
}

// ByIPAndClient limits by address and Basic client_id, so one client
// guessing secrets cannot starve others behind the same address.
func (l *RateLimiter) ByIPAndClient(cfg RateLimitConfig) Middleware {
	return RateLimitMiddleware(cfg, CompositeKeyExtractor(":",
		IPKeyExtractor(l.TrustProxy),
		BasicClientKeyExtractor,
	))
}

// ByIPAndFormField limits by address and a request parameter.
func (l *RateLimiter) ByIPAndFormField(cfg RateLimitConfig, field string) Middleware {
	return RateLimitMiddleware(cfg, CompositeKeyExtractor(":",
		IPKeyExtractor(l.TrustProxy),
		FormFieldKeyExtractor(field),
	))
}
