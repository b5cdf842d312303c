package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type clientLimiter struct {
	general  *rate.Limiter
	upload   *rate.Limiter
	lastSeen time.Time
}

// RateLimitMiddleware keeps one pair of token buckets per client IP: a
// general bucket for every API call and a stricter one for uploads.
type RateLimitMiddleware struct {
	generalRPM int
	uploadRPM  int
	mu         sync.Mutex
	clients    map[string]*clientLimiter
}

func NewRateLimitMiddleware(generalRPM int, uploadRPM int) *RateLimitMiddleware {
	if generalRPM <= 0 {
		generalRPM = 300
	}
	if uploadRPM <= 0 {
		uploadRPM = 20
	}

	return &RateLimitMiddleware{
		generalRPM: generalRPM,
		uploadRPM:  uploadRPM,
		clients:    map[string]*clientLimiter{},
	}
}

// Handler applies the general bucket.
func (m *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return m.limit(next, func(l *clientLimiter) *rate.Limiter { return l.general })
}

// UploadHandler applies the upload bucket. Mount it on upload routes only.
func (m *RateLimitMiddleware) UploadHandler(next http.Handler) http.Handler {
	return m.limit(next, func(l *clientLimiter) *rate.Limiter { return l.upload })
}

func (m *RateLimitMiddleware) limit(next http.Handler, pick func(*clientLimiter) *rate.Limiter) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limiter := pick(m.getLimiter(extractClientIP(r)))
		if !limiter.Allow() {
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (m *RateLimitMiddleware) getLimiter(clientIP string) *clientLimiter {
	m.mu.Lock()
	defer m.mu.Unlock()

	if limiter, exists := m.clients[clientIP]; exists {
		limiter.lastSeen = time.Now()
		m.gcLocked()
		return limiter
	}

	created := &clientLimiter{
		general:  rate.NewLimiter(rate.Every(time.Minute/time.Duration(m.generalRPM)), m.generalRPM),
		upload:   rate.NewLimiter(rate.Every(time.Minute/time.Duration(m.uploadRPM)), m.uploadRPM),
		lastSeen: time.Now(),
	}
	m.clients[clientIP] = created
	m.gcLocked()

	return created
}

func (m *RateLimitMiddleware) gcLocked() {
	if len(m.clients) < 1000 {
		return
	}

	cutoff := time.Now().Add(-10 * time.Minute)
	for ip, limiter := range m.clients {
		if limiter.lastSeen.Before(cutoff) {
			delete(m.clients, ip)
		}
	}
}

func extractClientIP(r *http.Request) string {
	if forwarded := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}

	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}

	if strings.TrimSpace(r.RemoteAddr) == "" {
		return "unknown"
	}

	return r.RemoteAddr
}
