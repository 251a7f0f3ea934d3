package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/skillswap/internal/model"
)

// ReportServiceInterface は通報ハンドラーが必要とするサービスインターフェース。
type ReportServiceInterface interface {
	Create(ctx context.Context, actor model.Actor, reportedUsername, reason string) (*model.Report, error)
}

// ReportHandler は通報のHTTPハンドラー。
type ReportHandler struct {
	service ReportServiceInterface
}

// NewReportHandler はReportHandlerを生成する。
func NewReportHandler(service ReportServiceInterface) *ReportHandler {
	return &ReportHandler{service: service}
}

type createReportRequest struct {
	Username string `json:"username"`
	Reason   string `json:"reason"`
}

// CreateReport は他ユーザーを通報する。
// POST /api/reports
func (h *ReportHandler) CreateReport(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req createReportRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	report, err := h.service.Create(r.Context(), actor, req.Username, req.Reason)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toReportResponse(report))
}
