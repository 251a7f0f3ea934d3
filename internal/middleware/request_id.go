package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-ID"

// requestIDKey はリクエストIDをコンテキストに格納するためのキー。
var requestIDKey = contextKey("request_id")

// maxRequestIDLen は受け入れるX-Request-IDヘッダーの最大長。超える場合は新規発行する。
const maxRequestIDLen = 128

// NewRequestIDMiddleware はリクエストごとにIDを割り当て、コンテキストとレスポンスヘッダーに設定する。
// 上流のプロキシが付与したX-Request-IDがあればそれを引き継ぐ。
func NewRequestIDMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(requestIDHeader)
			if id == "" || len(id) > maxRequestIDLen {
				id = uuid.New().String()
			}
			w.Header().Set(requestIDHeader, id)
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
		})
	}
}

// RequestIDFromContext はコンテキストからリクエストIDを取得する。未設定の場合は空文字列。
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
