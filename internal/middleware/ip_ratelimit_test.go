package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLimiter struct {
	allowed bool
	resetAt time.Time
	gotKey  string
}

func (s *stubLimiter) CheckLimit(_ context.Context, key string, _ int, _ time.Duration) (bool, time.Time) {
	s.gotKey = key
	return s.allowed, s.resetAt
}

func TestIPRateLimitMiddleware(t *testing.T) {
	okHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("passes through under the limit", func(t *testing.T) {
		limiter := &stubLimiter{allowed: true, resetAt: time.Now().Add(time.Minute)}
		mw := NewIPRateLimitMiddleware(limiter, 60, time.Minute, "state")

		req := httptest.NewRequest(http.MethodGet, "/api/match/m_1/state", nil)
		req.RemoteAddr = "203.0.113.9:51234"
		rec := httptest.NewRecorder()
		mw.Handler(okHandler).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "ip:state:203.0.113.9", limiter.gotKey)
		assert.Equal(t, "60", rec.Header().Get("X-RateLimit-Limit"))
	})

	t.Run("over the limit replies 429 with Retry-After", func(t *testing.T) {
		limiter := &stubLimiter{allowed: false, resetAt: time.Now().Add(30 * time.Second)}
		mw := NewIPRateLimitMiddleware(limiter, 60, time.Minute, "state")

		req := httptest.NewRequest(http.MethodGet, "/api/match/m_1/state", nil)
		req.RemoteAddr = "203.0.113.9:51234"
		rec := httptest.NewRecorder()
		mw.Handler(okHandler).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.NotEmpty(t, rec.Header().Get("Retry-After"))

		var body struct {
			Code string `json:"code"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "RATE_LIMIT_EXCEEDED", body.Code)
	})
}
