package ratelimit

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRedis struct {
	mock.Mock
}

func (m *mockRedis) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, int, error) {
	args := m.Called(key, limit, window)
	return args.Bool(0), args.Int(1), args.Error(2)
}

func TestConfigValidate(t *testing.T) {
	cfg := Config{Limit: 5, Window: time.Second}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 5, cfg.Burst)
	assert.Equal(t, "ratelimit:", cfg.KeyPrefix)
	assert.Equal(t, 10000, cfg.MaxKeys)

	assert.Error(t, (&Config{Limit: 0, Window: time.Second}).Validate())
	assert.Error(t, (&Config{Limit: 1}).Validate())
}

func TestLocalLimiterPerKey(t *testing.T) {
	limiter, err := NewLocal(Config{Limit: 2, Window: time.Minute})
	require.NoError(t, err)

	assert.True(t, limiter.Allow("ip:1.1.1.1"))
	assert.True(t, limiter.Allow("ip:1.1.1.1"))
	assert.False(t, limiter.Allow("ip:1.1.1.1"))

	assert.True(t, limiter.Allow("ip:2.2.2.2"), "keys have separate buckets")
	assert.Equal(t, 2, limiter.Limit())
}

func TestLocalLimiterWaitHonoursContext(t *testing.T) {
	limiter, err := NewLocal(Config{Limit: 1, Window: time.Hour})
	require.NoError(t, err)
	require.True(t, limiter.Allow("mailchimp"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, limiter.Wait(ctx, "mailchimp"))
}

func TestDistributedLimiter(t *testing.T) {
	redis := &mockRedis{}
	redis.On("CheckRateLimit", "gate:ip:1.1.1.1", 3, time.Minute).Return(true, 1, nil).Once()
	redis.On("CheckRateLimit", "gate:ip:1.1.1.1", 3, time.Minute).Return(false, 3, nil).Once()
	redis.On("CheckRateLimit", "gate:ip:9.9.9.9", 3, time.Minute).Return(false, 0, assert.AnError)

	limiter, err := NewDistributed(Config{Limit: 3, Window: time.Minute, KeyPrefix: "gate:"}, redis)
	require.NoError(t, err)

	assert.True(t, limiter.Allow("ip:1.1.1.1"))
	assert.False(t, limiter.Allow("ip:1.1.1.1"))
	assert.True(t, limiter.Allow("ip:9.9.9.9"), "redis failures fail open")
	redis.AssertExpectations(t)

	_, err = NewDistributed(Config{Limit: 3, Window: time.Minute}, nil)
	assert.Error(t, err)
}

func TestNewSelectsBackend(t *testing.T) {
	local, err := New(Config{Limit: 1, Window: time.Second}, nil)
	require.NoError(t, err)
	assert.IsType(t, &localLimiter{}, local)

	dist, err := New(Config{Limit: 1, Window: time.Second}, &mockRedis{})
	require.NoError(t, err)
	assert.IsType(t, &distributedLimiter{}, dist)
}

func TestHTTPMiddleware(t *testing.T) {
	limiter, err := NewLocal(Config{Limit: 1, Window: time.Minute})
	require.NoError(t, err)

	handler := HTTPMiddleware(limiter, IPKey)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/gate/check", nil)
	req.RemoteAddr = "10.0.0.1:5555"

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Limit"))
	assert.JSONEq(t, `{"success":false,"data":"Too many requests. Please try again shortly."}`, rec.Body.String())
}

func TestIPKey_IgnoresForwardingHeaders(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.7:4000"
	req.Header.Set("X-Forwarded-For", "10.0.0.1")
	req.Header.Set("X-Real-IP", "10.0.0.2")

	assert.Equal(t, "ip:203.0.113.7", IPKey(req))

	req.RemoteAddr = "[::1]:1234"
	assert.Equal(t, "ip:::1", IPKey(req))
}

func TestIPKeyFunc(t *testing.T) {
	_, proxies, err := net.ParseCIDR("10.0.0.0/8")
	require.NoError(t, err)
	key := IPKeyFunc([]*net.IPNet{proxies})

	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"untrusted remote ignores headers", map[string]string{"X-Forwarded-For": "198.51.100.1"}, "203.0.113.7:1", "ip:203.0.113.7"},
		{"trusted remote uses forwarded client", map[string]string{"X-Forwarded-For": "198.51.100.1"}, "10.0.0.1:1", "ip:198.51.100.1"},
		{"spoofed left hops are skipped", map[string]string{"X-Forwarded-For": "1.2.3.4, 198.51.100.1, 10.0.0.9"}, "10.0.0.1:1", "ip:198.51.100.1"},
		{"all hops trusted", map[string]string{"X-Forwarded-For": "10.1.1.1, 10.0.0.9"}, "10.0.0.1:1", "ip:10.1.1.1"},
		{"garbage hop falls back to remote", map[string]string{"X-Forwarded-For": "not-an-ip"}, "10.0.0.1:1", "ip:10.0.0.1"},
		{"real ip from trusted remote", map[string]string{"X-Real-IP": "198.51.100.7"}, "10.0.0.1:1", "ip:198.51.100.7"},
		{"no headers", nil, "10.0.0.1:1", "ip:10.0.0.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, key(req))
		})
	}
}

func TestHTTPMiddleware_ChangingForwardedFor(t *testing.T) {
	limiter, err := NewLocal(Config{Limit: 2, Window: time.Minute})
	require.NoError(t, err)

	handler := HTTPMiddleware(limiter, IPKeyFunc(nil))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	allowed := 0
	for i := 0; i < 50; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/gate/check", nil)
		req.RemoteAddr = "203.0.113.7:5555"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("10.0.0.%d", i))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code == http.StatusNoContent {
			allowed++
		}
	}
	assert.Equal(t, 2, allowed)
}
