package httpmiddleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-faster/jx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func doRequest(h http.Handler, remoteAddr string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	req.RemoteAddr = remoteAddr
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRateLimit(t *testing.T) {
	h := RateLimit(RateLimitConfig{Max: 3, Window: time.Minute})(okHandler())

	for i := range 3 {
		w := doRequest(h, "10.0.0.1:4000", nil)
		require.Equal(t, http.StatusOK, w.Code, "request %d", i+1)
		assert.Equal(t, "3", w.Header().Get("X-RateLimit-Limit"))
		assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))
	}

	w := doRequest(h, "10.0.0.1:4000", nil)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var (
		code    int
		message string
	)
	require.NoError(t, jx.DecodeBytes(w.Body.Bytes()).ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "code":
			code, err = d.Int()
		case "message":
			message, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	}))
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.Equal(t, "rate limit exceeded", message)

	// Other clients have their own bucket.
	w = doRequest(h, "10.0.0.2:4000", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimit_Refill(t *testing.T) {
	rl := newRateLimiter(RateLimitConfig{Max: 2, Window: 2 * time.Second})
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	remaining, _, _, ok := rl.take("k")
	require.True(t, ok)
	assert.Equal(t, 1, remaining)

	remaining, resetAt, _, ok := rl.take("k")
	require.True(t, ok)
	assert.Equal(t, 0, remaining)
	assert.Equal(t, now.Add(2*time.Second), resetAt)

	_, _, retryAfter, ok := rl.take("k")
	require.False(t, ok)
	assert.Equal(t, time.Second, retryAfter)

	now = now.Add(time.Second)
	_, _, _, ok = rl.take("k")
	assert.True(t, ok, "one token refilled after Window/Max")

	_, _, _, ok = rl.take("k")
	assert.False(t, ok)
}

func TestRateLimit_Evict(t *testing.T) {
	rl := newRateLimiter(RateLimitConfig{Max: 1, Window: time.Minute})
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.take("idle")
	now = now.Add(30 * time.Second)
	rl.take("active")

	rl.evict(now.Add(45 * time.Second))
	assert.NotContains(t, rl.visitors, "idle")
	assert.Contains(t, rl.visitors, "active")
}

func TestRateLimit_KeyFunc(t *testing.T) {
	h := RateLimit(RateLimitConfig{
		Max:    1,
		Window: time.Minute,
		KeyFunc: func(r *http.Request) string {
			return r.Header.Get("X-API-Key")
		},
	})(okHandler())

	assert.Equal(t, http.StatusOK, doRequest(h, "10.0.0.1:1", map[string]string{"X-API-Key": "a"}).Code)
	assert.Equal(t, http.StatusTooManyRequests, doRequest(h, "10.0.0.2:1", map[string]string{"X-API-Key": "a"}).Code)
	assert.Equal(t, http.StatusOK, doRequest(h, "10.0.0.1:1", map[string]string{"X-API-Key": "b"}).Code)
}

func TestClientIP(t *testing.T) {
	for _, tt := range []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{name: "RemoteAddr", remoteAddr: "192.0.2.1:5555", want: "192.0.2.1"},
		{name: "NoPort", remoteAddr: "192.0.2.1", want: "192.0.2.1"},
		{
			name:       "ForwardedFirstHop",
			remoteAddr: "10.0.0.1:80",
			headers:    map[string]string{"X-Forwarded-For": " 203.0.113.7 , 10.0.0.1"},
			want:       "203.0.113.7",
		},
		{
			name:       "RealIP",
			remoteAddr: "10.0.0.1:80",
			headers:    map[string]string{"X-Real-IP": "198.51.100.4"},
			want:       "198.51.100.4",
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ClientIP(req))
		})
	}
}
