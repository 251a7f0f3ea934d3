// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hitoshi/skillswap/internal/model"
)

// SessionCookieName はセッションIDを保持するCookieの名前。
const SessionCookieName = "session_id"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// actorContextKey はリクエストコンテキストに操作者を格納するためのキー。
var actorContextKey = contextKey("actor")

// ActorResolver はセッションIDから操作者を解決する。
// セッションが無効な場合は(nil, nil)を返す。
type ActorResolver interface {
	ResolveActor(ctx context.Context, sessionID string) (*model.Actor, error)
}

// ActorResolverFunc は関数をActorResolverとして扱うアダプター。
type ActorResolverFunc func(ctx context.Context, sessionID string) (*model.Actor, error)

// ResolveActor はf(ctx, sessionID)を呼び出す。
func (f ActorResolverFunc) ResolveActor(ctx context.Context, sessionID string) (*model.Actor, error) {
	return f(ctx, sessionID)
}

// NewSessionMiddleware はHTTP Only Cookieからセッションを読み取り、
// 操作者をリクエストコンテキストに注入するミドルウェアを返す。
// 未認証リクエストには401 Unauthorizedを返す。
func NewSessionMiddleware(resolver ActorResolver) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			actor, err := resolver.ResolveActor(r.Context(), cookie.Value)
			if err != nil {
				slog.Error("failed to resolve session",
					slog.String("error", err.Error()),
				)
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}
			if actor == nil {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			recordUserID(r.Context(), actor.UserID)
			next.ServeHTTP(w, r.WithContext(ContextWithActor(r.Context(), *actor)))
		})
	}
}

// RequireStaff はスタッフ以外のリクエストを403で拒否するミドルウェア。
// セッションミドルウェアの後に配置する。
func RequireStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, err := ActorFromContext(r.Context())
		if err != nil {
			WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
			return
		}
		if !actor.IsStaff {
			WriteErrorResponse(w, http.StatusForbidden, model.NewForbiddenError("管理者のみアクセスできます。"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ActorFromContext はリクエストコンテキストから操作者を取得する。
// セッションミドルウェアを通過したリクエストでのみ有効。
func ActorFromContext(ctx context.Context) (model.Actor, error) {
	actor, ok := ctx.Value(actorContextKey).(model.Actor)
	if !ok || actor.UserID == "" {
		return model.Actor{}, fmt.Errorf("actor not found in context")
	}
	return actor, nil
}

// UserIDFromContext はリクエストコンテキストから操作者のユーザーIDを取得する。
func UserIDFromContext(ctx context.Context) (string, error) {
	actor, err := ActorFromContext(ctx)
	if err != nil {
		return "", err
	}
	return actor.UserID, nil
}

// ContextWithActor はコンテキストに操作者を注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithActor(ctx context.Context, actor model.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey, actor)
}

// ContextWithUserID は一般ユーザーの操作者をコンテキストに注入する。
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return ContextWithActor(ctx, model.Actor{UserID: userID})
}
