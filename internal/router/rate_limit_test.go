package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	handlershared "github.com/Bmariten/afripulse-v2-sub001/internal/http/handlers/shared"
	"github.com/Bmariten/afripulse-v2-sub001/internal/http/response"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// memoryRateLimitRunner 按限流脚本的语义在内存中计数，时钟由测试推进
type memoryRateLimitRunner struct {
	now          time.Time
	counts       map[string]int64
	windowEnds   map[string]time.Time
	blockedUntil map[string]time.Time
	keys         []string
	err          error
}

func newMemoryRateLimitRunner() *memoryRateLimitRunner {
	return &memoryRateLimitRunner{
		now:          time.Unix(1_700_000_000, 0),
		counts:       map[string]int64{},
		windowEnds:   map[string]time.Time{},
		blockedUntil: map[string]time.Time{},
	}
}

func (m *memoryRateLimitRunner) Run(_ context.Context, keys []string, rule RateLimitRule) (interface{}, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.keys = keys
	countKey, blockKey := keys[0], keys[1]
	if until, ok := m.blockedUntil[blockKey]; ok && until.After(m.now) {
		return []interface{}{int64(-1), int64(until.Sub(m.now) / time.Second)}, nil
	}
	end, ok := m.windowEnds[countKey]
	if !ok || !end.After(m.now) {
		m.counts[countKey] = 0
		end = m.now.Add(time.Duration(rule.WindowSeconds) * time.Second)
		m.windowEnds[countKey] = end
	}
	m.counts[countKey]++
	current := m.counts[countKey]
	if current > int64(rule.MaxRequests) && rule.BlockSeconds > 0 {
		m.blockedUntil[blockKey] = m.now.Add(time.Duration(rule.BlockSeconds) * time.Second)
		return []interface{}{current, int64(rule.BlockSeconds)}, nil
	}
	return []interface{}{current, int64(end.Sub(m.now) / time.Second)}, nil
}

func (m *memoryRateLimitRunner) advance(d time.Duration) {
	m.now = m.now.Add(d)
}

type limitResult struct {
	code       int
	retryAfter int
}

func newLimitedEngine(handler gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/login", handler, func(c *gin.Context) {
		response.Success(c, gin.H{"ok": true})
	})
	return r
}

func hitLimited(t *testing.T, r *gin.Engine, ip, body string) limitResult {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = ip + ":5678"
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("http status want 200 got %d", w.Code)
	}
	var env struct {
		StatusCode int `json:"status_code"`
		Data       struct {
			RetryAfter int `json:"retry_after"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode response failed: %v, body=%s", err, w.Body.String())
	}
	return limitResult{code: env.StatusCode, retryAfter: env.Data.RetryAfter}
}

func TestRateLimitBlocksBeyondWindow(t *testing.T) {
	runner := newMemoryRateLimitRunner()
	rule := RateLimitRule{Prefix: "login", WindowSeconds: 10, MaxRequests: 2, BlockSeconds: 60}
	r := newLimitedEngine(rateLimitMiddleware(runner, rule, KeyByIP))

	for i := 0; i < 2; i++ {
		if got := hitLimited(t, r, "1.2.3.4", `{}`); got.code != 0 {
			t.Fatalf("request %d within limit should pass, got %d", i+1, got.code)
		}
	}
	if runner.keys[0] != "login:1.2.3.4" || runner.keys[1] != "login:1.2.3.4:blocked" {
		t.Fatalf("unexpected keys: %v", runner.keys)
	}

	got := hitLimited(t, r, "1.2.3.4", `{}`)
	if got.code != response.CodeTooManyRequests || got.retryAfter != 60 {
		t.Fatalf("over limit want 429/60 got %d/%d", got.code, got.retryAfter)
	}

	// 计数窗口已过期，但封禁仍生效
	runner.advance(15 * time.Second)
	got = hitLimited(t, r, "1.2.3.4", `{}`)
	if got.code != response.CodeTooManyRequests || got.retryAfter != 45 {
		t.Fatalf("blocked want 429/45 got %d/%d", got.code, got.retryAfter)
	}

	if other := hitLimited(t, r, "5.6.7.8", `{}`); other.code != 0 {
		t.Fatalf("other client must not share the block, got %d", other.code)
	}

	runner.advance(46 * time.Second)
	if got := hitLimited(t, r, "1.2.3.4", `{}`); got.code != 0 {
		t.Fatalf("block expired, request should pass, got %d", got.code)
	}
}

func TestRateLimitWithoutBlockWaitsForWindow(t *testing.T) {
	runner := newMemoryRateLimitRunner()
	rule := RateLimitRule{WindowSeconds: 30, MaxRequests: 1, Message: "slow down"}
	r := newLimitedEngine(rateLimitMiddleware(runner, rule, KeyByIP))

	if got := hitLimited(t, r, "1.2.3.4", `{}`); got.code != 0 {
		t.Fatalf("first request should pass, got %d", got.code)
	}
	runner.advance(10 * time.Second)
	got := hitLimited(t, r, "1.2.3.4", `{}`)
	if got.code != response.CodeTooManyRequests || got.retryAfter != 20 {
		t.Fatalf("want 429/20 got %d/%d", got.code, got.retryAfter)
	}
	if _, blocked := runner.blockedUntil["1.2.3.4:blocked"]; blocked {
		t.Fatalf("rule without block seconds must not set a block key")
	}
	runner.advance(21 * time.Second)
	if got := hitLimited(t, r, "1.2.3.4", `{}`); got.code != 0 {
		t.Fatalf("new window should pass, got %d", got.code)
	}
}

func TestRateLimitKeyedByEmailAndIP(t *testing.T) {
	runner := newMemoryRateLimitRunner()
	rule := RateLimitRule{Prefix: "login", WindowSeconds: 60, MaxRequests: 1, BlockSeconds: 300}
	r := newLimitedEngine(rateLimitMiddleware(runner, rule, KeyByIPAndJSONField("email")))

	hitLimited(t, r, "1.2.3.4", `{"email":"amina@example.com"}`)
	if got := hitLimited(t, r, "1.2.3.4", `{"email":"AMINA@example.com"}`); got.code != response.CodeTooManyRequests {
		t.Fatalf("same email must be limited case-insensitively, got %d", got.code)
	}
	if got := hitLimited(t, r, "1.2.3.4", `{"email":"juma@example.com"}`); got.code != 0 {
		t.Fatalf("different email should pass, got %d", got.code)
	}
}

func TestRateLimitRunnerFailure(t *testing.T) {
	runner := newMemoryRateLimitRunner()
	runner.err = errors.New("redis: connection refused")
	r := newLimitedEngine(rateLimitMiddleware(runner, RateLimitRule{WindowSeconds: 60, MaxRequests: 5}, KeyByIP))

	if got := hitLimited(t, r, "1.2.3.4", `{}`); got.code != response.CodeInternal {
		t.Fatalf("runner failure want 500 got %d", got.code)
	}
}

func TestRateLimitMiddlewareWithoutClient(t *testing.T) {
	r := newLimitedEngine(RateLimitMiddleware(nil, RateLimitRule{WindowSeconds: 60, MaxRequests: 1}, KeyByIP))
	for i := 0; i < 3; i++ {
		if got := hitLimited(t, r, "1.2.3.4", `{}`); got.code != 0 {
			t.Fatalf("nil client must not limit, got %d", got.code)
		}
	}
}

func TestKeyByIPAndJSONField(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":" Seller@Example.com "}`))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Request.RemoteAddr = "1.2.3.4:5678"

	key := KeyByIPAndJSONField("email")(c)
	if key != "seller@example.com|1.2.3.4" {
		t.Fatalf("key want seller@example.com|1.2.3.4 got %s", key)
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		t.Fatalf("read body after key extraction failed: %v", err)
	}
	if !strings.Contains(string(body), "Seller@Example.com") {
		t.Fatalf("request body should be restored after reading field")
	}
}

func TestKeyByUserID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodPost, "/checkout", nil)
	c.Request.RemoteAddr = "1.2.3.4:5678"

	if key := keyByUserID(c); key != "1.2.3.4" {
		t.Fatalf("anonymous request should fall back to ip, got %s", key)
	}
	c.Set(handlershared.ContextUserIDKey, uint(42))
	if key := keyByUserID(c); key != "u42" {
		t.Fatalf("key want u42 got %s", key)
	}
}

func TestToInt64(t *testing.T) {
	cases := []struct {
		name  string
		input interface{}
		want  int64
		ok    bool
	}{
		{name: "int64", input: int64(-1), want: -1, ok: true},
		{name: "int", input: int(11), want: 11, ok: true},
		{name: "uint8", input: uint8(12), want: 12, ok: true},
		{name: "float64", input: float64(13.9), want: 13, ok: true},
		{name: "string", input: "bad", want: 0, ok: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := toInt64(tc.input)
			if ok != tc.ok {
				t.Fatalf("ok want %v got %v", tc.ok, ok)
			}
			if got != tc.want {
				t.Fatalf("value want %d got %d", tc.want, got)
			}
		})
	}
}

// 设置 MARKETPLACE_TEST_REDIS_ADDR 时针对真实 Redis 执行限流脚本
func TestRateLimitScriptAgainstRedis(t *testing.T) {
	addr := strings.TrimSpace(os.Getenv("MARKETPLACE_TEST_REDIS_ADDR"))
	if addr == "" {
		t.Skip("MARKETPLACE_TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis unavailable: %v", err)
	}
	prefix := fmt.Sprintf("ratelimit_test_%d", time.Now().UnixNano())
	t.Cleanup(func() {
		_ = client.Del(context.Background(), prefix+":1.2.3.4", prefix+":1.2.3.4:blocked").Err()
	})

	rule := RateLimitRule{Prefix: prefix, WindowSeconds: 30, MaxRequests: 1, BlockSeconds: 120}
	r := newLimitedEngine(RateLimitMiddleware(client, rule, KeyByIP))

	if got := hitLimited(t, r, "1.2.3.4", `{}`); got.code != 0 {
		t.Fatalf("first request should pass, got %d", got.code)
	}
	got := hitLimited(t, r, "1.2.3.4", `{}`)
	if got.code != response.CodeTooManyRequests || got.retryAfter != 120 {
		t.Fatalf("want 429/120 got %d/%d", got.code, got.retryAfter)
	}
	got = hitLimited(t, r, "1.2.3.4", `{}`)
	if got.code != response.CodeTooManyRequests || got.retryAfter < 1 || got.retryAfter > 120 {
		t.Fatalf("blocked request want 429 with remaining block, got %d/%d", got.code, got.retryAfter)
	}
}
