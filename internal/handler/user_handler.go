package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/skillswap/internal/middleware"
	"github.com/hitoshi/skillswap/internal/model"
	"github.com/hitoshi/skillswap/internal/user"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	GetProfile(ctx context.Context, username string) (*user.ProfileView, error)
	UpdateProfile(ctx context.Context, actor model.Actor, in user.ProfileInput) (*model.Profile, error)
	SearchUsers(ctx context.Context, actor model.Actor, query string) ([]*model.User, error)
	// DeleteAccount はセッションを削除した後、ユーザーを削除する。
	// スキル、リクエスト、メッセージ等はCASCADE削除される。
	DeleteAccount(ctx context.Context, actor model.Actor) error
}

// UserHandler はプロフィールとアカウント管理のHTTPハンドラー。
type UserHandler struct {
	service      UserServiceInterface
	cookieDomain string
	cookieSecure bool
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface, config AuthHandlerConfig) *UserHandler {
	return &UserHandler{
		service:      service,
		cookieDomain: config.CookieDomain,
		cookieSecure: config.CookieSecure,
	}
}

// GetProfile はユーザーのプロフィール、スキル、受け取ったレビューを返す。
// GET /api/profile/{username}
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	view, err := h.service.GetProfile(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	isSelf := view.User.ID == actor.UserID
	writeJSON(w, http.StatusOK, map[string]any{
		"user":    toUserResponse(view.User, isSelf || actor.IsStaff),
		"profile": toProfileResponse(view.Profile),
		"skills":  toSkillWithStatsResponses(view.Skills),
		"reviews": toReviewResponses(view.Reviews),
		"is_self": isSelf,
	})
}

// UpdateProfile は自分のプロフィールを更新する。
// PUT /api/profile
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var in user.ProfileInput
	if !decodeJSON(w, r, &in) {
		return
	}

	profile, err := h.service.UpdateProfile(r.Context(), actor, in)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toProfileResponse(profile))
}

// SearchUsers はユーザー名・氏名でユーザーを検索する。
// GET /api/users/search?q=
func (h *UserHandler) SearchUsers(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	users, err := h.service.SearchUsers(r.Context(), actor, r.URL.Query().Get("q"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"users": toUserResponses(users, false)})
}

// DeleteAccount は自分のアカウントを削除し、セッションCookieをクリアする。
// DELETE /api/account
func (h *UserHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteAccount(r.Context(), actor); err != nil {
		handleServiceError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.cookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}
