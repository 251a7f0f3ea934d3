package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/skillswap/internal/model"
	"github.com/hitoshi/skillswap/internal/skillrequest"
)

// dashboardPath はライフサイクル操作後の遷移先。
const dashboardPath = "/api/dashboard"

// SkillRequestServiceInterface はスキルリクエストハンドラーが必要とするサービスインターフェース。
type SkillRequestServiceInterface interface {
	Request(ctx context.Context, actor model.Actor, skillID string) (*model.SkillRequest, error)
	Accept(ctx context.Context, actor model.Actor, requestID string) (*model.SkillRequest, error)
	Reject(ctx context.Context, actor model.Actor, requestID string) (*model.SkillRequest, error)
	Start(ctx context.Context, actor model.Actor, requestID string) (*model.SkillRequest, error)
	Complete(ctx context.Context, actor model.Actor, requestID string) (*model.SkillRequest, error)
	ListForUser(ctx context.Context, actor model.Actor) (*skillrequest.Lists, error)
}

// SkillRequestHandler はスキルリクエストのライフサイクルのHTTPハンドラー。
type SkillRequestHandler struct {
	service SkillRequestServiceInterface
}

// NewSkillRequestHandler はSkillRequestHandlerを生成する。
func NewSkillRequestHandler(service SkillRequestServiceInterface) *SkillRequestHandler {
	return &SkillRequestHandler{service: service}
}

// lifecycleResponse はライフサイクル操作成功時のレスポンス。
type lifecycleResponse struct {
	Message    string               `json:"message"`
	RedirectTo string               `json:"redirect_to"`
	Request    skillRequestResponse `json:"request"`
}

// RequestSkill はスキルへのリクエストを送信する。
// POST /api/skills/{id}/request
func (h *SkillRequestHandler) RequestSkill(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	req, err := h.service.Request(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, lifecycleResponse{
		Message:    "リクエストを送信しました。",
		RedirectTo: dashboardPath,
		Request:    toSkillRequestResponse(req),
	})
}

// ListRequests は自分が送信・受信したリクエストを返す。
// GET /api/requests
func (h *SkillRequestHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	lists, err := h.service.ListForUser(r.Context(), actor)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"sent":     toSkillRequestResponses(lists.Sent),
		"received": toSkillRequestResponses(lists.Received),
	})
}

// Accept はリクエストを承認する。
// POST /api/requests/{id}/accept
func (h *SkillRequestHandler) Accept(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Accept, "リクエストを承認しました。")
}

// Reject はリクエストを拒否する。
// POST /api/requests/{id}/reject
func (h *SkillRequestHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Reject, "リクエストを拒否しました。")
}

// Start はセッションを開始する。
// POST /api/requests/{id}/start
func (h *SkillRequestHandler) Start(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Start, "セッションを開始しました。")
}

// Complete はセッションを完了する。
// POST /api/requests/{id}/complete
func (h *SkillRequestHandler) Complete(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Complete, "セッションを完了しました。")
}

func (h *SkillRequestHandler) transition(
	w http.ResponseWriter,
	r *http.Request,
	op func(ctx context.Context, actor model.Actor, requestID string) (*model.SkillRequest, error),
	message string,
) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	req, err := op(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, lifecycleResponse{
		Message:    message,
		RedirectTo: dashboardPath,
		Request:    toSkillRequestResponse(req),
	})
}
