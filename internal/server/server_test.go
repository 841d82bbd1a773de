package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agbru/zkfib/internal/config"
	"github.com/agbru/zkfib/internal/fibonacci"
	"github.com/agbru/zkfib/internal/logging"
	"github.com/agbru/zkfib/internal/publicvalues"
	"github.com/agbru/zkfib/internal/service"
)

const (
	testMaxRecursiveN = 100
	testMaxN          = 100_000
)

func createTestServer(t *testing.T, factory fibonacci.CalculatorFactory, opts ...Option) *Server {
	t.Helper()
	if factory == nil {
		factory = fibonacci.NewDefaultFactory()
	}
	limits := service.Limits{MaxN: testMaxN, MaxRecursiveN: testMaxRecursiveN}
	svc := service.NewCalculatorService(factory, nil, limits, nil)
	opts = append([]Option{WithLogger(logging.NopLogger{})}, opts...)
	s := NewServer(svc, config.AppConfig{Port: "0", MaxN: testMaxN, MaxRecursiveN: testMaxRecursiveN}, opts...)
	t.Cleanup(s.rateLimiter.Stop)
	return s
}

func do(t *testing.T, s *Server, method, target string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHandleCalculate(t *testing.T) {
	s := createTestServer(t, nil)

	t.Run("Success", func(t *testing.T) {
		w := do(t, s, http.MethodGet, "/calculate?n=10&algo=matrix", http.NoBody)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

		resp := decode[CalculateResponse](t, w)
		assert.Equal(t, uint32(10), resp.N)
		assert.Equal(t, uint32(55), resp.A)
		assert.Equal(t, uint32(89), resp.B)
		assert.Equal(t, "matrix", resp.Algorithm)
		assert.Equal(t, uint64(11), resp.Ops.Calls)
		assert.False(t, resp.Cached)

		pv, err := publicvalues.DecodeHex(resp.PublicValues)
		require.NoError(t, err)
		assert.Equal(t, publicvalues.PublicValues{N: 10, A: 55, B: 89}, pv)
		digest, err := pv.Digest()
		require.NoError(t, err)
		assert.Equal(t, digest.Hex(), resp.Digest)
	})

	t.Run("Default algorithm is iterative", func(t *testing.T) {
		w := do(t, s, http.MethodGet, "/calculate?n=100", http.NoBody)
		require.Equal(t, http.StatusOK, w.Code)
		resp := decode[CalculateResponse](t, w)
		assert.Equal(t, fibonacci.AlgoIterative, resp.Algorithm)
		assert.Equal(t, uint32(3314859971), resp.A)
		assert.Equal(t, uint32(2425370821), resp.B)
	})

	badRequests := []struct {
		name, query, contains string
	}{
		{"Missing n", "", "missing 'n'"},
		{"Invalid n", "?n=abc", "invalid 'n'"},
		{"Negative n", "?n=-1", "invalid 'n'"},
		{"n above uint32", "?n=4294967296", "invalid 'n'"},
		{"Unknown algorithm", "?n=10&algo=unknown", "unknown calculator"},
		{"Recursion limit", "?n=101&algo=recursive", "must be at most 100"},
		{"Index limit matrix", "?n=100001&algo=matrix", "must be at most 100000"},
		{"Index limit iterative", "?n=4294967295", "must be at most 100000"},
	}
	for _, tt := range badRequests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, s, http.MethodGet, "/calculate"+tt.query, http.NoBody)
			require.Equal(t, http.StatusBadRequest, w.Code)
			errResp := decode[ErrorResponse](t, w)
			assert.Equal(t, "Bad Request", errResp.Error)
			assert.Contains(t, errResp.Message, tt.contains)
		})
	}
}

func TestHandleCalculate_ServiceFailures(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"Calculation error", errors.New("calc error"), http.StatusInternalServerError},
		{"Deadline", context.DeadlineExceeded, http.StatusGatewayTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			factory := fibonacci.NewTestFactory(map[string]fibonacci.Calculator{
				fibonacci.AlgoIterative: &fibonacci.MockCalculator{Err: tt.err},
			})
			s := createTestServer(t, factory)
			w := do(t, s, http.MethodGet, "/calculate?n=10", http.NoBody)
			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, decode[ErrorResponse](t, w).Message, tt.err.Error())
		})
	}
}

func TestHandleCompare(t *testing.T) {
	s := createTestServer(t, nil)

	w := do(t, s, http.MethodGet, "/compare?n=30", http.NoBody)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[CompareResponse](t, w)
	assert.True(t, resp.Consistent)
	assert.Empty(t, resp.Skipped)
	require.Len(t, resp.Results, 4)
	want := fibonacci.Iterative(30)
	for _, r := range resp.Results {
		assert.Equal(t, want.A, r.A, r.Algorithm)
		assert.Equal(t, want.B, r.B, r.Algorithm)
	}

	w = do(t, s, http.MethodGet, "/compare?n=1000", http.NoBody)
	require.Equal(t, http.StatusOK, w.Code)
	resp = decode[CompareResponse](t, w)
	assert.Len(t, resp.Results, 2)
	assert.ElementsMatch(t, []string{"memoized", "recursive"}, resp.Skipped)

	w = do(t, s, http.MethodGet, "/compare", http.NoBody)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, s, http.MethodGet, "/compare?n=4294967295", http.NoBody)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode[ErrorResponse](t, w).Message, "must be at most 100000")
}

func TestHandleSequence(t *testing.T) {
	s := createTestServer(t, nil)

	t.Run("Defaults", func(t *testing.T) {
		w := do(t, s, http.MethodGet, "/sequence", http.NoBody)
		require.Equal(t, http.StatusOK, w.Code)
		resp := decode[SequenceResponse](t, w)
		assert.Equal(t, SequenceResponse{
			Start: 0, Count: 10,
			Values: []uint32{0, 1, 1, 2, 3, 5, 8, 13, 21, 34},
		}, resp)
	})

	t.Run("Across wraparound", func(t *testing.T) {
		w := do(t, s, http.MethodGet, "/sequence?start=46&count=3", http.NoBody)
		require.Equal(t, http.StatusOK, w.Code)
		resp := decode[SequenceResponse](t, w)
		assert.Equal(t, []uint32{1836311903, 2971215073, 512559680}, resp.Values)
	})

	badRequests := []struct {
		name, query, contains string
	}{
		{"Invalid start", "?start=x", "invalid 'start'"},
		{"Invalid count", "?count=-3", "invalid 'count'"},
		{"Zero count", "?count=0", "must be between 1 and"},
		{"Count too large", fmt.Sprintf("?count=%d", service.MaxSequenceCount+1), "must be between 1 and"},
		{"Index limit", "?start=99995&count=10", "must be at most 100000"},
	}
	for _, tt := range badRequests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, s, http.MethodGet, "/sequence"+tt.query, http.NoBody)
			require.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, decode[ErrorResponse](t, w).Message, tt.contains)
		})
	}
}

func TestHandleVerify(t *testing.T) {
	s := createTestServer(t, nil)

	body := func(pv publicvalues.PublicValues) io.Reader {
		encoded, err := pv.Hex()
		require.NoError(t, err)
		return strings.NewReader(`{"public_values":"` + encoded + `"}`)
	}

	t.Run("Valid", func(t *testing.T) {
		w := do(t, s, http.MethodPost, "/verify", body(publicvalues.New(48, fibonacci.Iterative(48))))
		require.Equal(t, http.StatusOK, w.Code)
		resp := decode[VerifyResponse](t, w)
		assert.True(t, resp.Valid)
		assert.Nil(t, resp.Expected)
		assert.Equal(t, uint32(48), resp.N)
	})

	t.Run("Mismatch", func(t *testing.T) {
		w := do(t, s, http.MethodPost, "/verify", body(publicvalues.PublicValues{N: 10, A: 55, B: 90}))
		require.Equal(t, http.StatusOK, w.Code)
		resp := decode[VerifyResponse](t, w)
		assert.False(t, resp.Valid)
		require.NotNil(t, resp.Expected)
		assert.Equal(t, fibonacci.Pair{A: 55, B: 89}, *resp.Expected)
		assert.Equal(t, fibonacci.Pair{A: 55, B: 90}, resp.Got)
	})

	for name, raw := range map[string]string{
		"Bad hex":       `{"public_values":"0xzz"}`,
		"Short record":  `{"public_values":"0x00"}`,
		"Unknown field": `{"values":"0x00"}`,
		"Not JSON":      `public_values`,
	} {
		t.Run(name, func(t *testing.T) {
			w := do(t, s, http.MethodPost, "/verify", strings.NewReader(raw))
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestHandleHealthAndAlgorithms(t *testing.T) {
	s := createTestServer(t, nil)

	w := do(t, s, http.MethodGet, "/health", http.NoBody)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", decode[map[string]any](t, w)["status"])

	w = do(t, s, http.MethodGet, "/algorithms", http.NoBody)
	require.Equal(t, http.StatusOK, w.Code)
	algos := decode[map[string][]string](t, w)["algorithms"]
	assert.Equal(t, []string{"iterative", "matrix", "memoized", "recursive"}, algos)
}

func TestHandleMetrics(t *testing.T) {
	s := createTestServer(t, nil)
	do(t, s, http.MethodGet, "/health", http.NoBody)

	w := do(t, s, http.MethodGet, "/metrics", http.NoBody)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "zkfib_http_active_requests")
	assert.Contains(t, w.Body.String(), `zkfib_http_requests_total{code="200",path="/health"}`)
}

func TestMethodNotAllowed(t *testing.T) {
	s := createTestServer(t, nil)
	tests := []struct {
		endpoint string
		method   string
	}{
		{"/calculate", http.MethodPost},
		{"/compare", http.MethodPost},
		{"/sequence", http.MethodPost},
		{"/verify", http.MethodGet},
		{"/health", http.MethodPost},
		{"/algorithms", http.MethodPost},
		{"/metrics", http.MethodPost},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.endpoint, func(t *testing.T) {
			w := do(t, s, tt.method, tt.endpoint, http.NoBody)
			assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
		})
	}
}

func TestRequestID(t *testing.T) {
	s := createTestServer(t, nil)

	w := do(t, s, http.MethodGet, "/health", http.NoBody)
	_, err := uuid.Parse(w.Header().Get(RequestIDHeader))
	assert.NoError(t, err)

	id := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/health", http.NoBody)
	req.Header.Set(RequestIDHeader, id)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, id, rec.Header().Get(RequestIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/health", http.NoBody)
	req.Header.Set(RequestIDHeader, "not-a-uuid")
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.NotEqual(t, "not-a-uuid", rec.Header().Get(RequestIDHeader))
}

func TestSecurityHeadersAndPreflight(t *testing.T) {
	s := createTestServer(t, nil)

	w := do(t, s, http.MethodGet, "/health", http.NoBody)
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	w = do(t, s, http.MethodOptions, "/calculate", http.NoBody)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRateLimit(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{RequestsPerMinute: 1, Burst: 1})
	s := createTestServer(t, nil, WithRateLimiter(rl))

	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/health", http.NoBody).Code)
	w := do(t, s, http.MethodGet, "/health", http.NoBody)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
}

func healthFrom(s *Server, remoteAddr, forwardedFor string) int {
	req := httptest.NewRequest(http.MethodGet, "/health", http.NoBody)
	req.RemoteAddr = remoteAddr
	if forwardedFor != "" {
		req.Header.Set("X-Forwarded-For", forwardedFor)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec.Code
}

func TestRateLimit_RotatingForwardedForFromOnePeer(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{RequestsPerMinute: 1, Burst: 1})
	s := createTestServer(t, nil, WithRateLimiter(rl))

	codes := map[int]int{}
	for i := range 50 {
		codes[healthFrom(s, "198.51.100.2:4242", fmt.Sprintf("1.2.3.%d", i))]++
	}
	assert.Equal(t, map[int]int{http.StatusOK: 1, http.StatusTooManyRequests: 49}, codes)

	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.Len(t, rl.clients, 1, "forwarded addresses from an untrusted peer must not create buckets")
}

func TestRateLimit_TrustedProxy(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{
		RequestsPerMinute: 1,
		Burst:             1,
		TrustedProxies:    []netip.Prefix{netip.MustParsePrefix("10.0.0.0/8")},
	})
	s := createTestServer(t, nil, WithRateLimiter(rl))

	assert.Equal(t, http.StatusOK, healthFrom(s, "10.0.0.1:80", "203.0.113.7"))
	assert.Equal(t, http.StatusTooManyRequests, healthFrom(s, "10.0.0.2:80", "203.0.113.7"))
	assert.Equal(t, http.StatusOK, healthFrom(s, "10.0.0.1:80", "203.0.113.8"))
}

func TestRateLimiter_ClientIP(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{TrustedProxies: []netip.Prefix{
		netip.MustParsePrefix("10.0.0.0/8"),
		netip.MustParsePrefix("2001:db8::/32"),
	}})
	t.Cleanup(rl.Stop)

	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		xri        string
		want       string
	}{
		{"untrusted peer ignores headers", "198.51.100.2:4242", "203.0.113.7", "192.0.2.9", "198.51.100.2"},
		{"trusted peer without headers", "10.0.0.1:80", "", "", "10.0.0.1"},
		{"trusted peer with X-Real-IP", "10.0.0.1:80", "", "192.0.2.9", "192.0.2.9"},
		{"rightmost untrusted hop wins", "10.0.0.1:80", "6.6.6.6, 203.0.113.7, 10.0.0.5", "", "203.0.113.7"},
		{"all hops trusted", "10.0.0.1:80", "10.1.1.1, 10.2.2.2", "", "10.1.1.1"},
		{"malformed hop stops the walk", "10.0.0.1:80", "garbage", "", "10.0.0.1"},
		{"ipv6 proxy", "[2001:db8::1]:443", "203.0.113.9", "", "203.0.113.9"},
		{"ipv4-mapped peer", "[::ffff:10.0.0.1]:80", "203.0.113.7", "", "203.0.113.7"},
		{"unparseable remote address", "pipe", "203.0.113.7", "", "pipe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				req.Header.Set("X-Real-IP", tt.xri)
			}
			assert.Equal(t, tt.want, rl.ClientIP(req))
		})
	}
}

func TestConcurrentRequests(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{RequestsPerMinute: 10000})
	s := createTestServer(t, nil, WithRateLimiter(rl))

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			algo := []string{"iterative", "matrix", "memoized", "recursive"}[i%4]
			w := do(t, s, http.MethodGet, "/calculate?n=50&algo="+algo, http.NoBody)
			assert.Equal(t, http.StatusOK, w.Code)
		}()
	}
	wg.Wait()
}

func TestServeGracefulShutdown(t *testing.T) {
	s := createTestServer(t, nil, WithTimeouts(Timeouts{
		RequestTimeout:  time.Second,
		ShutdownTimeout: time.Second,
		ReadTimeout:     time.Second,
		WriteTimeout:    time.Second,
		IdleTimeout:     time.Second,
	}))
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
