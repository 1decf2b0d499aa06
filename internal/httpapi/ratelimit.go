package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"braidsbar/queue-service/internal/validation"
)

type RateLimitConfig struct {
	IPPerMinute    int
	IPBurst        int
	PhonePerMinute int
	PhoneBurst     int
}

// RateLimiter throttles every request by client IP and, on ticket creation,
// by the customer's phone number as well.
type RateLimiter struct {
	ipLimiter    *tokenLimiter
	phoneLimiter *tokenLimiter
}

func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		ipLimiter:    newTokenLimiter(cfg.IPPerMinute, cfg.IPBurst),
		phoneLimiter: newTokenLimiter(cfg.PhonePerMinute, cfg.PhoneBurst),
	}
}

func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if ip != "" && !l.ipLimiter.allow(ip) {
			writeError(w, requestIDFrom(r), http.StatusTooManyRequests, "rate_limited", "too many requests")
			return
		}

		if r.Method == http.MethodPost && r.URL.Path == "/api/tickets" {
			if phone := extractPhone(r); phone != "" && !l.phoneLimiter.allow(phone) {
				writeError(w, requestIDFrom(r), http.StatusTooManyRequests, "rate_limited", "too many tickets for this phone number")
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

type tokenLimiter struct {
	mu     sync.Mutex
	rate   float64
	burst  float64
	bucket map[string]*bucket
	now    func() time.Time
}

type bucket struct {
	tokens float64
	last   time.Time
}

func newTokenLimiter(perMinute, burst int) *tokenLimiter {
	if perMinute <= 0 {
		perMinute = 60
	}
	if burst <= 0 {
		burst = 20
	}
	return &tokenLimiter{
		rate:   float64(perMinute) / 60.0,
		burst:  float64(burst),
		bucket: make(map[string]*bucket),
		now:    time.Now,
	}
}

func (l *tokenLimiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.bucket[key]
	if !ok {
		l.bucket[key] = &bucket{tokens: l.burst - 1, last: now}
		return true
	}
	elapsed := now.Sub(b.last).Seconds()
	b.tokens = min(l.burst, b.tokens+elapsed*l.rate)
	b.last = now
	if b.tokens < 1 {
		return false
	}
	b.tokens -= 1
	return true
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// extractPhone peeks at the JSON body for phone_number and leaves the body
// readable for the handler.
func extractPhone(r *http.Request) string {
	if r.Body == nil {
		return ""
	}
	body, err := readBody(r)
	if err != nil {
		return ""
	}
	var payload struct {
		PhoneNumber string `json:"phone_number"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return validation.NormalizePhone(payload.PhoneNumber)
}

func readBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))
	return body, nil
}
