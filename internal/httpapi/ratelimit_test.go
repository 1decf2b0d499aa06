package httpapi

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenLimiterRefills(t *testing.T) {
	now := time.Date(2026, time.October, 12, 9, 0, 0, 0, time.UTC)
	limiter := newTokenLimiter(60, 2)
	limiter.now = func() time.Time { return now }

	assert.True(t, limiter.allow("a"))
	assert.True(t, limiter.allow("a"))
	assert.False(t, limiter.allow("a"))
	assert.True(t, limiter.allow("b"))

	now = now.Add(time.Second)
	assert.True(t, limiter.allow("a"))
	assert.False(t, limiter.allow("a"))
}

func TestRateLimiterPhoneBucket(t *testing.T) {
	var bodies []string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		bodies = append(bodies, string(data))
		w.WriteHeader(http.StatusCreated)
	})
	limiter := NewRateLimiter(RateLimitConfig{IPPerMinute: 600, IPBurst: 100, PhonePerMinute: 1, PhoneBurst: 1})
	handler := limiter.Middleware(next)

	post := func(phone string) int {
		body := []byte(`{"phone_number":"` + phone + `"}`)
		req := httptest.NewRequest(http.MethodPost, "/api/tickets", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusCreated, post("0241234567"))
	assert.Equal(t, http.StatusTooManyRequests, post("024 123 4567"))
	assert.Equal(t, http.StatusCreated, post("0551234567"))
	require.Len(t, bodies, 2)
	assert.Equal(t, `{"phone_number":"0241234567"}`, bodies[0])
}

func TestRateLimiterByIP(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := NewRateLimiter(RateLimitConfig{IPPerMinute: 1, IPBurst: 1}).Middleware(next)

	get := func(forwarded string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/branches", nil)
		req.Header.Set("X-Forwarded-For", forwarded)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, get("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, get("10.0.0.1, 172.16.0.1"))
	assert.Equal(t, http.StatusOK, get("10.0.0.2"))
}
