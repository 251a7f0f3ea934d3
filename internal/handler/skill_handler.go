package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/skillswap/internal/model"
	"github.com/hitoshi/skillswap/internal/skill"
)

// SkillServiceInterface はスキルハンドラーが必要とするサービスインターフェース。
type SkillServiceInterface interface {
	Create(ctx context.Context, actor model.Actor, in skill.CreateInput) (*model.Skill, error)
	List(ctx context.Context, q skill.ListQuery) (*skill.ListResult, error)
	Search(ctx context.Context, query string) ([]*model.Skill, error)
	Detail(ctx context.Context, skillID string) (*skill.Detail, error)
	Dashboard(ctx context.Context, actor model.Actor) (*skill.Dashboard, error)
}

// SkillHandler はスキルとダッシュボードのHTTPハンドラー。
type SkillHandler struct {
	service SkillServiceInterface
}

// NewSkillHandler はSkillHandlerを生成する。
func NewSkillHandler(service SkillServiceInterface) *SkillHandler {
	return &SkillHandler{service: service}
}

// ListSkills はスキル一覧を検索条件・並び順・ページ指定で返す。
// GET /api/skills?q=&category=&level=&sort=&page=
func (h *SkillHandler) ListSkills(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	result, err := h.service.List(r.Context(), skill.ListQuery{
		Query:    query.Get("q"),
		Category: query.Get("category"),
		Level:    query.Get("level"),
		Sort:     query.Get("sort"),
		Page:     query.Get("page"),
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	items := make([]skillListItemResponse, len(result.Items))
	for i, item := range result.Items {
		items[i] = toSkillListItemResponse(item.SkillListItem, item.IsNew)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"skills":      items,
		"page":        result.Page,
		"total_pages": result.TotalPages,
		"total_count": result.TotalCount,
		"has_next":    result.Page < result.TotalPages,
		"has_prev":    result.Page > 1,
		"sort":        result.Sort,
		"categories":  result.Categories,
		"levels":      result.Levels,
	})
}

// CreateSkill はスキルを登録する。
// POST /api/skills
func (h *SkillHandler) CreateSkill(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var in skill.CreateInput
	if !decodeJSON(w, r, &in) {
		return
	}

	created, err := h.service.Create(r.Context(), actor, in)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toSkillResponse(created))
}

// SearchSkills はタイトルの部分一致でスキルを検索する。
// GET /api/skills/search?q=
func (h *SkillHandler) SearchSkills(w http.ResponseWriter, r *http.Request) {
	skills, err := h.service.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"skills": toSkillResponses(skills)})
}

// GetSkill はスキル詳細、レビュー、リクエスト統計を返す。
// GET /api/skills/{id}
func (h *SkillHandler) GetSkill(w http.ResponseWriter, r *http.Request) {
	detail, err := h.service.Detail(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"skill":                toSkillResponse(detail.Skill),
		"reviews":              toReviewResponses(detail.Reviews),
		"total_requests":       detail.TotalRequests,
		"accepted_requests":    detail.AcceptedRequests,
		"pending_requests":     detail.PendingRequests,
		"in_progress_requests": detail.InProgressRequests,
		"completed_requests":   detail.CompletedRequests,
		"approval_rate":        detail.ApprovalRate,
		"active_sessions":      toSkillRequestResponses(detail.ActiveSessions),
	})
}

// Dashboard は自分のスキルと送受信したリクエストを返す。
// GET /api/dashboard
func (h *SkillHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	dash, err := h.service.Dashboard(r.Context(), actor)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"skills":            toSkillWithStatsResponses(dash.Skills),
		"requests_made":     toSkillRequestResponses(dash.Made),
		"requests_received": toSkillRequestResponses(dash.Received),
	})
}
