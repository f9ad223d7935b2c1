package auth

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

type ipWindow struct {
	startedAt time.Time
	hits      int
}

// LoginRateLimiter throttles login attempts per client IP with a fixed
// window. It complements the per-account lockout: the lockout protects a
// single account, the limiter slows an IP cycling through many accounts.
type LoginRateLimiter struct {
	mu         sync.Mutex
	maxHits    int
	window     time.Duration
	windowByIP map[string]ipWindow
	maxEntries int
}

func NewLoginRateLimiter(maxHits int, window time.Duration) *LoginRateLimiter {
	if maxHits <= 0 {
		maxHits = 10
	}
	if window <= 0 {
		window = time.Minute
	}

	return &LoginRateLimiter{
		maxHits:    maxHits,
		window:     window,
		windowByIP: make(map[string]ipWindow),
		maxEntries: 5000,
	}
}

func (l *LoginRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, retryAfter := l.allow(clientIP(r), time.Now().UTC())
		if !allowed {
			w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
			writeError(w, http.StatusTooManyRequests, "Too many requests from this IP, please try again later.")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (l *LoginRateLimiter) allow(ip string, now time.Time) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	current, ok := l.windowByIP[ip]
	if !ok || now.Sub(current.startedAt) >= l.window {
		current = ipWindow{startedAt: now}
	}

	current.hits++
	l.windowByIP[ip] = current

	if current.hits > l.maxHits {
		retryAfter := current.startedAt.Add(l.window).Sub(now)
		if retryAfter < time.Second {
			retryAfter = time.Second
		}
		return false, retryAfter
	}

	if len(l.windowByIP) > l.maxEntries {
		threshold := now.Add(-l.window)
		for key, value := range l.windowByIP {
			if value.startedAt.Before(threshold) {
				delete(l.windowByIP, key)
			}
		}
	}

	return true, 0
}

func clientIP(r *http.Request) string {
	xForwardedFor := strings.TrimSpace(r.Header.Get("X-Forwarded-For"))
	if xForwardedFor != "" {
		if ip := strings.TrimSpace(strings.Split(xForwardedFor, ",")[0]); ip != "" {
			return ip
		}
	}

	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}

	return "unknown"
}
