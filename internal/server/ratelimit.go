package server

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"resumegenius/internal/errors"

	redis_rate "github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// Decision is the outcome of one rate limit check
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Limiter decides whether the request identified by key may proceed
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
	GetStats() map[string]any
	Close()
}

// LimiterManager manages a collection of in-process rate limiters for different keys (IPs, API keys).
type LimiterManager struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	lastSeen map[string]time.Time
	rate     rate.Limit
	burst    int
	done     chan struct{}
	stopOnce sync.Once
	logger   *errors.Logger
}

// NewRateLimiter creates a new manager.
// requestsPerMin is the number of requests allowed per minute.
// burstCapacity is the token bucket size.
func NewRateLimiter(requestsPerMin int, burstCapacity int, logger *errors.Logger) *LimiterManager {
	m := &LimiterManager{
		limiters: make(map[string]*rate.Limiter),
		lastSeen: make(map[string]time.Time),
		rate:     rate.Limit(float64(requestsPerMin) / 60.0),
		burst:    burstCapacity,
		done:     make(chan struct{}),
		logger:   logger,
	}

	go m.cleanupRoutine(10 * time.Minute)
	return m
}

// GetLimiter retrieves or creates a limiter for a given key.
func (m *LimiterManager) GetLimiter(key string) *rate.Limiter {
	m.mu.Lock()
	defer m.mu.Unlock()

	limiter, exists := m.limiters[key]
	if !exists {
		limiter = rate.NewLimiter(m.rate, m.burst)
		m.limiters[key] = limiter
	}
	m.lastSeen[key] = time.Now()

	return limiter
}

// Allow takes a token for key without blocking
func (m *LimiterManager) Allow(_ context.Context, key string) (Decision, error) {
	limiter := m.GetLimiter(key)

	now := time.Now()
	res := limiter.ReserveN(now, 1)
	if !res.OK() {
		return Decision{Allowed: false, RetryAfter: time.Minute}, nil
	}
	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)
		return Decision{Allowed: false, RetryAfter: delay}, nil
	}

	remaining := int(limiter.TokensAt(now))
	if remaining < 0 {
		remaining = 0
	}
	return Decision{Allowed: true, Remaining: remaining}, nil
}

// GetStats returns current rate limiter statistics
func (m *LimiterManager) GetStats() map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()

	return map[string]any{
		"backend":         "local",
		"active_limiters": len(m.limiters),
		"rate_per_second": float64(m.rate),
		"rate_per_minute": float64(m.rate) * 60.0,
		"burst_capacity":  m.burst,
	}
}

// cleanupRoutine periodically removes inactive limiters
func (m *LimiterManager) cleanupRoutine(cleanupInterval time.Duration) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.cleanup(cleanupInterval)
		case <-m.done:
			return
		}
	}
}

// cleanup removes limiters that haven't been used for the specified duration
func (m *LimiterManager) cleanup(evictionAge time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for key, lastSeen := range m.lastSeen {
		if now.Sub(lastSeen) > evictionAge {
			delete(m.limiters, key)
			delete(m.lastSeen, key)
		}
	}

	if m.logger != nil {
		m.logger.Debug("Rate limiter cleanup completed",
			"remaining_limiters", len(m.limiters))
	}
}

// Close stops the cleanup goroutine
func (m *LimiterManager) Close() {
	m.stopOnce.Do(func() { close(m.done) })
}

// DistributedLimiter shares counters between replicas through Redis
type DistributedLimiter struct {
	limiter  *redis_rate.Limiter
	limit    redis_rate.Limit
	fallback *LimiterManager
	failOpen bool
	logger   *errors.Logger
}

// NewDistributedLimiter limits through rdb. When Redis fails and failOpen
// is set, fallback decides instead.
func NewDistributedLimiter(rdb *redis.Client, requestsPerMin, burst int, failOpen bool, fallback *LimiterManager, logger *errors.Logger) *DistributedLimiter {
	return &DistributedLimiter{
		limiter: redis_rate.NewLimiter(rdb),
		limit: redis_rate.Limit{
			Rate:   requestsPerMin,
			Burst:  burst,
			Period: time.Minute,
		},
		fallback: fallback,
		failOpen: failOpen,
		logger:   logger,
	}
}

// Allow checks key against the shared bucket
func (d *DistributedLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	res, err := d.limiter.Allow(ctx, "ratelimit:"+key, d.limit)
	if err != nil {
		if d.failOpen && d.fallback != nil {
			d.logger.Warn("Redis rate limiter unavailable, using in-process limiter", "error", err)
			return d.fallback.Allow(ctx, key)
		}
		return Decision{}, errors.NewNetworkError(errors.ErrCodeNetworkTimeout, "rate limiter unavailable", err)
	}
	return Decision{
		Allowed:    res.Allowed > 0,
		Remaining:  res.Remaining,
		RetryAfter: res.RetryAfter,
	}, nil
}

// GetStats describes the shared limit
func (d *DistributedLimiter) GetStats() map[string]any {
	stats := map[string]any{
		"backend":         "redis",
		"rate_per_minute": d.limit.Rate,
		"burst_capacity":  d.limit.Burst,
		"fail_open":       d.failOpen,
	}
	if d.fallback != nil {
		stats["fallback"] = d.fallback.GetStats()
	}
	return stats
}

// Close stops the fallback limiter
func (d *DistributedLimiter) Close() {
	if d.fallback != nil {
		d.fallback.Close()
	}
}

// rateLimitMiddleware rejects requests over the configured budget
func (s *Server) rateLimitMiddleware() func(http.Handler) http.Handler {
	if s.RateLimiter == nil || s.RateLimit == nil || !s.RateLimit.Enabled {
		return func(next http.Handler) http.Handler { return next }
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := getRateLimitKey(r, s.RateLimit.ByAPIKey, s.RateLimit.ByIP)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			decision, err := s.RateLimiter.Allow(r.Context(), key)
			if err != nil {
				s.Logger.LogError(err, "Rate limiter failed", "endpoint", r.URL.Path)
				writeErrorResponse(w, "Service unavailable", "Rate limiter unavailable", http.StatusServiceUnavailable)
				return
			}

			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
			if !decision.Allowed {
				s.om.RecordRateLimitHit(r.Context(), keyScope(key))
				s.Logger.Info("Rate limit exceeded",
					"key_scope", keyScope(key),
					"endpoint", r.URL.Path,
					"client_ip", getClientIP(r))
				w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(decision.RetryAfter)))
				writeErrorResponse(w, "Rate limit exceeded", "Too many requests", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func retryAfterSeconds(d time.Duration) int {
	secs := int(d.Round(time.Second) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}

func keyScope(key string) string {
	scope, _, _ := strings.Cut(key, ":")
	return scope
}

// getRateLimitKey prefers the API key, then the client IP
func getRateLimitKey(r *http.Request, byAPIKey, byIP bool) string {
	if byAPIKey {
		if apiKey := r.Header.Get("X-API-Key"); apiKey != "" {
			return "api:" + apiKey
		}
	}

	if byIP {
		return "ip:" + getClientIP(r)
	}

	return ""
}

// getClientIP extracts the client IP address from the request. Only the
// last X-Forwarded-For entry is trusted since it was added by our own proxy.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if ip := parseLastIP(xff); ip != "" {
			return ip
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		if ip := net.ParseIP(xri); ip != nil {
			return xri
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// parseLastIP returns the last valid IP of a comma-separated list
func parseLastIP(ips string) string {
	parts := strings.Split(ips, ",")
	for i := len(parts) - 1; i >= 0; i-- {
		ip := strings.TrimSpace(parts[i])
		if net.ParseIP(ip) != nil {
			return ip
		}
	}
	return ""
}
