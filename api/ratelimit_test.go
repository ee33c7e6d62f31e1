package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golang.org/x/time/rate"

	"github.com/engramhq/engram/internal/log"
)

func TestRateLimiter_PerClientIsolation(t *testing.T) {
	// No refill: each client gets exactly its burst.
	rl := newRateLimiter(rate.Limit(0), 1)

	assert.True(t, rl.allow("10.0.0.1"))
	assert.False(t, rl.allow("10.0.0.1"), "first client exhausted its budget")

	// A different client still has its own full budget.
	assert.True(t, rl.allow("10.0.0.2"))
}

func TestRateLimiter_BurstSize(t *testing.T) {
	rl := newRateLimiter(rate.Limit(0), 3)

	for i := 0; i < 3; i++ {
		assert.True(t, rl.allow("10.0.0.1"), "request %d within burst", i+1)
	}
	assert.False(t, rl.allow("10.0.0.1"))
}

func TestRateLimiter_CleansUpStaleVisitors(t *testing.T) {
	rl := newRateLimiter(rate.Limit(0), 1)
	rl.allow("10.0.0.1")

	// Age the visitor and the last sweep past their thresholds.
	rl.mu.Lock()
	rl.visitors["10.0.0.1"].lastSeen = time.Now().Add(-2 * rateLimiterStaleThreshold)
	rl.lastCleanup = time.Now().Add(-2 * rateLimiterCleanupInterval)
	rl.mu.Unlock()

	// The next call sweeps the stale entry; the client starts fresh.
	assert.True(t, rl.allow("10.0.0.2"))
	rl.mu.Lock()
	_, stale := rl.visitors["10.0.0.1"]
	rl.mu.Unlock()
	assert.False(t, stale)
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		trustProxy bool
		want       string
	}{
		{
			name:       "remote addr, port stripped",
			remoteAddr: "192.0.2.7:4711",
			want:       "192.0.2.7",
		},
		{
			name:       "proxy headers ignored when untrusted",
			remoteAddr: "192.0.2.7:4711",
			headers:    map[string]string{"X-Real-IP": "203.0.113.9"},
			want:       "192.0.2.7",
		},
		{
			name:       "x-real-ip honored when trusted",
			remoteAddr: "192.0.2.7:4711",
			headers:    map[string]string{"X-Real-IP": "203.0.113.9"},
			trustProxy: true,
			want:       "203.0.113.9",
		},
		{
			name:       "x-forwarded-for first entry",
			remoteAddr: "192.0.2.7:4711",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.9, 10.0.0.5"},
			trustProxy: true,
			want:       "203.0.113.9",
		},
		{
			name:       "non-ip header value falls back to remote addr",
			remoteAddr: "192.0.2.7:4711",
			headers:    map[string]string{"X-Real-IP": "evil-string"},
			trustProxy: true,
			want:       "192.0.2.7",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/health", nil)
			r.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, clientIP(r, tt.trustProxy))
		})
	}
}

func TestRateLimitMiddleware_OneClientCannotStarveAnother(t *testing.T) {
	f := newFixture(t)
	srv, err := NewServer(ServerConfig{
		Logger:        log.NewNop(),
		Verifier:      f.verifier,
		Chat:          f.chat,
		Memories:      f.memories,
		Profiles:      f.profiles,
		Conversations: f.convs,
	})
	require.NoError(t, err)
	// No refill so exhaustion is deterministic.
	srv.limiter = newRateLimiter(rate.Limit(0), 1)
	handler := srv.Handler()

	send := func(remoteAddr string) int {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.RemoteAddr = remoteAddr
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send("192.0.2.1:1000"))
	assert.Equal(t, http.StatusTooManyRequests, send("192.0.2.1:1001"))

	// The abusive client's exhaustion does not affect another tenant.
	assert.Equal(t, http.StatusOK, send("198.51.100.2:1000"))
}
