package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

// TestMiddlewareChain_FullChain は本番同様の順序で重ねたミドルウェアチェーンを
// リクエストが通過することを検証する。
func TestMiddlewareChain_FullChain(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	rl := NewRateLimiter(RateLimiterConfig{
		GeneralRate:     rate.Limit(100),
		GeneralBurst:    100,
		AccountRegRate:  rate.Limit(100),
		AccountRegBurst: 100,
		CleanupInterval: time.Minute,
	})
	defer rl.Stop()

	handlerCalled := false
	var handler http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
		w.WriteHeader(http.StatusOK)
	})

	// 内側から外側へ適用
	handler = rl.GeneralMiddleware()(handler)
	handler = NewSecurityHeadersMiddleware()(handler)
	handler = NewCORSMiddleware("http://localhost:3000")(handler)
	handler = NewLoggingMiddleware(logger)(handler)
	handler = NewRecoveryMiddleware()(handler)

	req := httptest.NewRequest(http.MethodGet, "/api/accounts/acc-1", nil)
	req.RemoteAddr = "203.0.113.7:51234"
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
	if !handlerCalled {
		t.Error("handler should have been called")
	}
	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want nosniff", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Access-Control-Allow-Origin = %q, want http://localhost:3000", got)
	}
	if buf.Len() == 0 {
		t.Error("expected request log output")
	}
}

// TestMiddlewareChain_PanicInsideChain はチェーン内のpanicがrecoveryで
// 統一JSON形式の500に変換されることを検証する。
func TestMiddlewareChain_PanicInsideChain(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	var handler http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	handler = NewLoggingMiddleware(logger)(handler)
	handler = NewRecoveryMiddleware()(handler)

	req := httptest.NewRequest(http.MethodGet, "/api/accounts/acc-1", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusInternalServerError)
	}

	var body ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	if body.Code != "INTERNAL_ERROR" {
		t.Errorf("code = %q, want INTERNAL_ERROR", body.Code)
	}
}
