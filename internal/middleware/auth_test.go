package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// TestBearerAuthMiddleware_ValidToken は正しいトークンでリクエストが通過することを検証する。
func TestBearerAuthMiddleware_ValidToken(t *testing.T) {
	called := false
	handler := NewBearerAuthMiddleware("cron-secret", discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/cron/scrape", nil)
	req.Header.Set("Authorization", "Bearer cron-secret")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if !called {
		t.Error("expected next handler to be called")
	}
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

// TestBearerAuthMiddleware_MissingHeader はヘッダーなしのリクエストが401になることを検証する。
func TestBearerAuthMiddleware_MissingHeader(t *testing.T) {
	called := false
	handler := NewBearerAuthMiddleware("cron-secret", discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/cron/scrape", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if called {
		t.Error("next handler should not be called without credentials")
	}
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

// TestBearerAuthMiddleware_WrongToken は誤ったトークンが401になることを検証する。
func TestBearerAuthMiddleware_WrongToken(t *testing.T) {
	handler := NewBearerAuthMiddleware("cron-secret", discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("next handler should not be called with a wrong token")
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/cron/discover", nil)
	req.Header.Set("Authorization", "Bearer wrong-secret")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

// TestBearerAuthMiddleware_NonBearerScheme はBearer以外のスキームを拒否することを検証する。
func TestBearerAuthMiddleware_NonBearerScheme(t *testing.T) {
	handler := NewBearerAuthMiddleware("cron-secret", discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("next handler should not be called with a non-bearer scheme")
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/cron/scrape", nil)
	req.Header.Set("Authorization", "Basic cron-secret")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

// TestBearerAuthMiddleware_EmptySecret_FailsClosed はシークレット未設定時に
// 有効に見えるリクエストも500で拒否することを検証する。
func TestBearerAuthMiddleware_EmptySecret_FailsClosed(t *testing.T) {
	handler := NewBearerAuthMiddleware("", discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("next handler should never be called when the secret is unset")
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/cron/scrape", nil)
	req.Header.Set("Authorization", "Bearer ")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}
