package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/skillswap/internal/meeting"
	"github.com/hitoshi/skillswap/internal/model"
)

// MeetingServiceInterface はミーティングハンドラーが必要とするサービスインターフェース。
type MeetingServiceInterface interface {
	Schedule(ctx context.Context, actor model.Actor, in meeting.ScheduleInput) (*model.Meeting, error)
	QuickSchedule(ctx context.Context, actor model.Actor, username string, in meeting.ScheduleInput) (*model.Meeting, error)
	Detail(ctx context.Context, actor model.Actor, meetingID string) (*model.Meeting, error)
	MyMeetings(ctx context.Context, actor model.Actor) (*meeting.MyMeetings, error)
	UpdateStatus(ctx context.Context, actor model.Actor, meetingID string, status model.MeetingStatus) (*model.Meeting, error)
	Calendar(ctx context.Context, actor model.Actor) ([]meeting.CalendarEvent, error)
}

// MeetingHandler はミーティングのHTTPハンドラー。
type MeetingHandler struct {
	service MeetingServiceInterface
}

// NewMeetingHandler はMeetingHandlerを生成する。
func NewMeetingHandler(service MeetingServiceInterface) *MeetingHandler {
	return &MeetingHandler{service: service}
}

// MyMeetings は自分が参加する今後と過去のミーティングを返す。
// GET /api/meetings
func (h *MeetingHandler) MyMeetings(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	mine, err := h.service.MyMeetings(r.Context(), actor)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"upcoming": toMeetingResponses(mine.Upcoming),
		"past":     toMeetingResponses(mine.Past),
	})
}

// Schedule はミーティングを作成し、参加者に招待通知を送る。
// POST /api/meetings
func (h *MeetingHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var in meeting.ScheduleInput
	if !decodeJSON(w, r, &in) {
		return
	}

	m, err := h.service.Schedule(r.Context(), actor, in)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toMeetingResponse(m))
}

// QuickSchedule は指定ユーザーとの1対1ミーティングを作成する。
// POST /api/meetings/quick/{username}
func (h *MeetingHandler) QuickSchedule(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var in meeting.ScheduleInput
	if !decodeJSON(w, r, &in) {
		return
	}

	m, err := h.service.QuickSchedule(r.Context(), actor, chi.URLParam(r, "username"), in)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toMeetingResponse(m))
}

// Calendar はカレンダー表示用のイベント一覧を返す。
// GET /api/meetings/calendar
func (h *MeetingHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	events, err := h.service.Calendar(r.Context(), actor)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, events)
}

// GetMeeting はミーティング詳細を返す。主催者と参加者のみ閲覧できる。
// GET /api/meetings/{id}
func (h *MeetingHandler) GetMeeting(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	m, err := h.service.Detail(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toMeetingResponse(m))
}

// UpdateStatus はミーティングの状態を変更する。
// POST /api/meetings/{id}/status/{status}
func (h *MeetingHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	status := model.MeetingStatus(chi.URLParam(r, "status"))
	m, err := h.service.UpdateStatus(r.Context(), actor, chi.URLParam(r, "id"), status)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "ミーティングの状態を更新しました。",
		"meeting": toMeetingResponse(m),
	})
}
