package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(now *time.Time) *rateLimiter {
	return &rateLimiter{
		window:        10 * time.Second,
		last:          make(map[string]time.Time),
		sweepInterval: 10 * time.Second,
		now: func() time.Time {
			return *now
		},
	}
}

func runLimited(l *rateLimiter, path string) *gin.Context {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("POST", path, nil)
	l.handle(c)
	return c
}

func TestRateLimiterHandle_BlocksWithinWindow(t *testing.T) {
	gin.SetMode(gin.TestMode)
	now := time.Now()
	limiter := newTestLimiter(&now)

	require.False(t, runLimited(limiter, "/api/v1/upload").IsAborted())
	require.True(t, runLimited(limiter, "/api/v1/upload").IsAborted())
	require.False(t, runLimited(limiter, "/api/v1/other").IsAborted())

	now = now.Add(11 * time.Second)
	require.False(t, runLimited(limiter, "/api/v1/upload").IsAborted())
}

func TestRateLimiterDisabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	now := time.Now()
	limiter := newTestLimiter(&now)
	limiter.window = 0
	require.False(t, runLimited(limiter, "/api/v1/upload").IsAborted())
	require.False(t, runLimited(limiter, "/api/v1/upload").IsAborted())
}

func TestRateLimiterCleanupExpiredLocked_RemovesExpiredEntries(t *testing.T) {
	base := time.Now()
	limiter := &rateLimiter{
		window:        10 * time.Second,
		last:          make(map[string]time.Time),
		sweepInterval: 10 * time.Second,
		now:           time.Now,
	}
	limiter.last["expired"] = base.Add(-20 * time.Second)
	limiter.last["active"] = base.Add(-2 * time.Second)

	limiter.mu.Lock()
	limiter.cleanupExpiredLocked(base)
	limiter.mu.Unlock()

	require.NotContains(t, limiter.last, "expired")
	require.Contains(t, limiter.last, "active")
	require.False(t, limiter.lastSweep.IsZero())
}
