package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/skillswap/internal/model"
	"github.com/hitoshi/skillswap/internal/review"
)

// ReviewServiceInterface はレビューハンドラーが必要とするサービスインターフェース。
type ReviewServiceInterface interface {
	Add(ctx context.Context, actor model.Actor, skillID string, in review.Input) (*model.Review, error)
	Edit(ctx context.Context, actor model.Actor, reviewID string, in review.Input) (*model.Review, error)
	Delete(ctx context.Context, actor model.Actor, reviewID string) (*model.Review, error)
}

// ReviewHandler はレビューのHTTPハンドラー。
type ReviewHandler struct {
	service ReviewServiceInterface
}

// NewReviewHandler はReviewHandlerを生成する。
func NewReviewHandler(service ReviewServiceInterface) *ReviewHandler {
	return &ReviewHandler{service: service}
}

// AddReview はスキルにレビューを投稿する。
// POST /api/skills/{id}/reviews
func (h *ReviewHandler) AddReview(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var in review.Input
	if !decodeJSON(w, r, &in) {
		return
	}

	created, err := h.service.Add(r.Context(), actor, chi.URLParam(r, "id"), in)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toReviewResponse(created))
}

// EditReview は自分のレビューを編集する。
// PUT /api/reviews/{id}
func (h *ReviewHandler) EditReview(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var in review.Input
	if !decodeJSON(w, r, &in) {
		return
	}

	updated, err := h.service.Edit(r.Context(), actor, chi.URLParam(r, "id"), in)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toReviewResponse(updated))
}

// DeleteReview は自分のレビューを削除する。
// DELETE /api/reviews/{id}
func (h *ReviewHandler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	deleted, err := h.service.Delete(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":     "レビューを削除しました。",
		"redirect_to": "/api/skills/" + deleted.SkillID,
	})
}
