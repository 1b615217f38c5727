package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
)

// authErrorResponse はベアラートークン認証失敗時のレスポンスボディ。
type authErrorResponse struct {
	Error string `json:"error"`
}

// NewBearerAuthMiddleware は共有シークレットによるベアラートークン認証を行う
// ミドルウェアを生成する。cronトリガーと手動スクレイプAPIの保護に使う。
//
// シークレットが空文字列の場合は設定不備としてすべてのリクエストを500で
// 拒否する（fail closed）。トークン比較は一定時間比較で行う。
func NewBearerAuthMiddleware(secret string, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				logger.Error("bearer auth is misconfigured: secret is empty",
					slog.String("path", r.URL.Path),
				)
				writeAuthError(w, http.StatusInternalServerError, "server is not configured for authenticated requests")
				return
			}

			token, ok := bearerToken(r)
			if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
				writeAuthError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// bearerToken はAuthorizationヘッダーからベアラートークンを取り出す。
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return header[len(prefix):], true
}

// writeAuthError は認証エラーレスポンスをJSONで書き込む。
func writeAuthError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(authErrorResponse{Error: message})
}
