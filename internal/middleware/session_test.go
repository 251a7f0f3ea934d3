package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/skillswap/internal/model"
)

// --- モック定義 ---

type mockActorResolver struct {
	resolveFn func(ctx context.Context, sessionID string) (*model.Actor, error)
}

func (m *mockActorResolver) ResolveActor(ctx context.Context, sessionID string) (*model.Actor, error) {
	if m.resolveFn != nil {
		return m.resolveFn(ctx, sessionID)
	}
	return nil, nil
}

// staticResolver は指定のセッションIDにのみ操作者を返すリゾルバーを生成する。
func staticResolver(sessionID string, actor model.Actor) *mockActorResolver {
	return &mockActorResolver{
		resolveFn: func(ctx context.Context, id string) (*model.Actor, error) {
			if id == sessionID {
				a := actor
				return &a, nil
			}
			return nil, nil
		},
	}
}

// --- テスト ---

func TestSessionMiddleware_ValidSession_InjectsActor(t *testing.T) {
	mw := NewSessionMiddleware(staticResolver("valid-session-id", model.Actor{UserID: "user-123", IsStaff: true}))

	var captured model.Actor
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, err := ActorFromContext(r.Context())
		if err != nil {
			t.Errorf("expected no error, got %v", err)
		}
		captured = actor
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/test", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "valid-session-id"})
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if captured.UserID != "user-123" || !captured.IsStaff {
		t.Errorf("actor = %+v, want user-123 staff", captured)
	}
}

func TestSessionMiddleware_Rejects(t *testing.T) {
	tests := []struct {
		name     string
		cookie   *http.Cookie
		resolver *mockActorResolver
	}{
		{"no cookie", nil, &mockActorResolver{}},
		{"empty cookie", &http.Cookie{Name: "session_id", Value: ""}, &mockActorResolver{}},
		{"expired session", &http.Cookie{Name: "session_id", Value: "expired"}, &mockActorResolver{}},
		{
			"resolver error",
			&http.Cookie{Name: "session_id", Value: "some-session"},
			&mockActorResolver{resolveFn: func(ctx context.Context, id string) (*model.Actor, error) {
				return nil, context.DeadlineExceeded
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewSessionMiddleware(tt.resolver)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatal("handler should not be called")
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/test", nil)
			if tt.cookie != nil {
				req.AddCookie(tt.cookie)
			}
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			if w.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
			}
			if ct := w.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q, want application/json", ct)
			}
		})
	}
}

func TestRequireStaff(t *testing.T) {
	tests := []struct {
		name       string
		ctx        func(context.Context) context.Context
		wantStatus int
	}{
		{"staff", func(ctx context.Context) context.Context {
			return ContextWithActor(ctx, model.Actor{UserID: "admin", IsStaff: true})
		}, http.StatusOK},
		{"member", func(ctx context.Context) context.Context {
			return ContextWithUserID(ctx, "user-1")
		}, http.StatusForbidden},
		{"anonymous", func(ctx context.Context) context.Context { return ctx }, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := RequireStaff(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/admin/dashboard", nil)
			req = req.WithContext(tt.ctx(req.Context()))
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}

func TestUserIDFromContext_NoValue_ReturnsError(t *testing.T) {
	if _, err := UserIDFromContext(context.Background()); err == nil {
		t.Error("expected error for missing actor in context")
	}
}

func TestUserIDFromContext_ValidValue_ReturnsUserID(t *testing.T) {
	ctx := ContextWithUserID(context.Background(), "user-456")
	userID, err := UserIDFromContext(ctx)
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if userID != "user-456" {
		t.Errorf("userID = %q, want %q", userID, "user-456")
	}
}
