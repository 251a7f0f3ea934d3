package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/skillswap/internal/admin"
	"github.com/hitoshi/skillswap/internal/model"
	"github.com/hitoshi/skillswap/internal/repository"
)

// AdminServiceInterface は管理ハンドラーが必要とするサービスインターフェース。
type AdminServiceInterface interface {
	Dashboard(ctx context.Context, actor model.Actor) (*repository.DashboardStats, error)
	Users(ctx context.Context, actor model.Actor) ([]*model.User, error)
	Skills(ctx context.Context, actor model.Actor) ([]repository.SkillListItem, error)
	Requests(ctx context.Context, actor model.Actor, status string) ([]repository.SkillRequestWithNames, error)
	Reviews(ctx context.Context, actor model.Actor) ([]repository.ReviewWithNames, error)
	Meetings(ctx context.Context, actor model.Actor) ([]*model.Meeting, error)
	Reports(ctx context.Context, actor model.Actor) ([]repository.ReportWithNames, error)
	EditUser(ctx context.Context, actor model.Actor, userID, username, email string) error
	DeleteUser(ctx context.Context, actor model.Actor, userID string) error
	EditSkill(ctx context.Context, actor model.Actor, skillID string, in admin.SkillInput) (*model.Skill, error)
	DeleteSkill(ctx context.Context, actor model.Actor, skillID string) error
	ApproveRequest(ctx context.Context, actor model.Actor, requestID string) error
	RejectRequest(ctx context.Context, actor model.Actor, requestID string) error
	DeleteRequest(ctx context.Context, actor model.Actor, requestID string) error
	DeleteReview(ctx context.Context, actor model.Actor, reviewID string) error
	EditMeeting(ctx context.Context, actor model.Actor, meetingID string, in admin.MeetingInput) (*model.Meeting, error)
	DeleteMeeting(ctx context.Context, actor model.Actor, meetingID string) error
	ResolveReport(ctx context.Context, actor model.Actor, reportID string) error
}

// AdminHandler はスタッフ向け管理画面のHTTPハンドラー。
type AdminHandler struct {
	service AdminServiceInterface
}

// NewAdminHandler はAdminHandlerを生成する。
func NewAdminHandler(service AdminServiceInterface) *AdminHandler {
	return &AdminHandler{service: service}
}

type categoryCountResponse struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

type editUserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

type editSkillRequest struct {
	Title        string `json:"title"`
	Category     string `json:"category"`
	Description  string `json:"description"`
	Level        string `json:"level"`
	Availability string `json:"availability"`
}

type editMeetingRequest struct {
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	ScheduledAt     time.Time `json:"scheduled_at"`
	DurationMinutes int       `json:"duration_minutes"`
	Location        string    `json:"location"`
	Status          string    `json:"status"`
}

// Dashboard は管理ダッシュボードの統計を返す。
// GET /api/admin/dashboard
func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	stats, err := h.service.Dashboard(r.Context(), actor)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	top := make([]categoryCountResponse, len(stats.TopCategories))
	for i, c := range stats.TopCategories {
		top[i] = categoryCountResponse{Category: c.Category, Count: c.Count}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total_users":     stats.TotalUsers,
		"total_skills":    stats.TotalSkills,
		"total_requests":  stats.TotalRequests,
		"completed_swaps": stats.CompletedSwaps,
		"average_rating":  stats.AverageRating,
		"total_meetings":  stats.TotalMeetings,
		"top_categories":  top,
	})
}

// Users は全ユーザーを返す。
// GET /api/admin/users
func (h *AdminHandler) Users(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	users, err := h.service.Users(r.Context(), actor)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": toUserResponses(users, true)})
}

// Skills は全スキルを返す。
// GET /api/admin/skills
func (h *AdminHandler) Skills(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	skills, err := h.service.Skills(r.Context(), actor)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	items := make([]skillListItemResponse, len(skills))
	for i, s := range skills {
		items[i] = toSkillListItemResponse(s, false)
	}
	writeJSON(w, http.StatusOK, map[string]any{"skills": items})
}

// Requests は全リクエストを返す。
// GET /api/admin/requests?status=
func (h *AdminHandler) Requests(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	status := r.URL.Query().Get("status")
	requests, err := h.service.Requests(r.Context(), actor, status)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"requests":      toSkillRequestResponses(requests),
		"status_filter": status,
	})
}

// Reviews は全レビューを返す。
// GET /api/admin/reviews
func (h *AdminHandler) Reviews(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	reviews, err := h.service.Reviews(r.Context(), actor)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reviews": toReviewResponses(reviews)})
}

// Meetings は全ミーティングを返す。
// GET /api/admin/meetings
func (h *AdminHandler) Meetings(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	meetings, err := h.service.Meetings(r.Context(), actor)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"meetings": toMeetingResponses(meetings)})
}

// Reports は全通報を返す。
// GET /api/admin/reports
func (h *AdminHandler) Reports(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	reports, err := h.service.Reports(r.Context(), actor)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reports": toReportResponses(reports)})
}

// EditUser はユーザー名とメールアドレスを変更する。
// PUT /api/admin/users/{id}
func (h *AdminHandler) EditUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req editUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.service.EditUser(r.Context(), actor, chi.URLParam(r, "id"), req.Username, req.Email); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeDone(w, "ユーザーを更新しました。")
}

// DeleteUser はユーザーを削除する。
// DELETE /api/admin/users/{id}
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, h.service.DeleteUser, "ユーザーを削除しました。")
}

// EditSkill はスキルを編集する。
// PUT /api/admin/skills/{id}
func (h *AdminHandler) EditSkill(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req editSkillRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	updated, err := h.service.EditSkill(r.Context(), actor, chi.URLParam(r, "id"), admin.SkillInput{
		Title:        req.Title,
		Category:     req.Category,
		Description:  req.Description,
		Level:        req.Level,
		Availability: req.Availability,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSkillResponse(updated))
}

// DeleteSkill はスキルを削除する。
// DELETE /api/admin/skills/{id}
func (h *AdminHandler) DeleteSkill(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, h.service.DeleteSkill, "スキルを削除しました。")
}

// ApproveRequest はリクエストを承認済みにする。
// POST /api/admin/requests/{id}/approve
func (h *AdminHandler) ApproveRequest(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, h.service.ApproveRequest, "リクエストを承認しました。")
}

// RejectRequest はリクエストを拒否済みにする。
// POST /api/admin/requests/{id}/reject
func (h *AdminHandler) RejectRequest(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, h.service.RejectRequest, "リクエストを拒否しました。")
}

// DeleteRequest はリクエストを削除する。
// DELETE /api/admin/requests/{id}
func (h *AdminHandler) DeleteRequest(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, h.service.DeleteRequest, "リクエストを削除しました。")
}

// DeleteReview はレビューを削除する。
// DELETE /api/admin/reviews/{id}
func (h *AdminHandler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, h.service.DeleteReview, "レビューを削除しました。")
}

// EditMeeting はミーティングを編集する。
// PUT /api/admin/meetings/{id}
func (h *AdminHandler) EditMeeting(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req editMeetingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	updated, err := h.service.EditMeeting(r.Context(), actor, chi.URLParam(r, "id"), admin.MeetingInput{
		Title:           req.Title,
		Description:     req.Description,
		ScheduledAt:     req.ScheduledAt,
		DurationMinutes: req.DurationMinutes,
		Location:        req.Location,
		Status:          model.MeetingStatus(req.Status),
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMeetingResponse(updated))
}

// DeleteMeeting はミーティングを削除する。
// DELETE /api/admin/meetings/{id}
func (h *AdminHandler) DeleteMeeting(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, h.service.DeleteMeeting, "ミーティングを削除しました。")
}

// ResolveReport は通報を解決済みにする。
// POST /api/admin/reports/{id}/resolve
func (h *AdminHandler) ResolveReport(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, h.service.ResolveReport, "通報を解決済みにしました。")
}

// action はURLの{id}を対象にボディを持たない管理操作を実行する。
func (h *AdminHandler) action(
	w http.ResponseWriter,
	r *http.Request,
	op func(ctx context.Context, actor model.Actor, id string) error,
	message string,
) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	if err := op(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeDone(w, message)
}

func writeDone(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusOK, map[string]string{"message": message})
}
