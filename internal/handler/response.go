package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/hitoshi/skillswap/internal/middleware"
	"github.com/hitoshi/skillswap/internal/model"
	"github.com/hitoshi/skillswap/internal/repository"
)

// maxBodyBytes はリクエストボディの上限サイズ。
const maxBodyBytes = 1 << 20

// writeJSON はvをJSONで書き込む。
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// decodeJSON はリクエストボディをdstにデコードする。失敗時は400を書き込みfalseを返す。
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "リクエストボディの解析に失敗しました。",
			Category: "validation",
			Action:   "正しいJSON形式でリクエストしてください。",
			Kind:     model.KindValidation,
		})
		return false
	}
	return true
}

// requireActor はコンテキストから操作者を取得する。未認証の場合は401を書き込みfalseを返す。
func requireActor(w http.ResponseWriter, r *http.Request) (model.Actor, bool) {
	actor, err := middleware.ActorFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return model.Actor{}, false
	}
	return actor, true
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPレスポンスに変換する。
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	middleware.WriteError(w, r, err)
}

// --- レスポンス型 ---

type userResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email,omitempty"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	IsStaff   bool      `json:"is_staff"`
	CreatedAt time.Time `json:"created_at"`
}

// toUserResponse はユーザーをレスポンス型に変換する。
// withEmailがfalseの場合はメールアドレスを含めない。
func toUserResponse(u *model.User, withEmail bool) userResponse {
	resp := userResponse{
		ID:        u.ID,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		IsStaff:   u.IsStaff,
		CreatedAt: u.CreatedAt,
	}
	if withEmail {
		resp.Email = u.Email
	}
	return resp
}

func toUserResponses(users []*model.User, withEmail bool) []userResponse {
	out := make([]userResponse, len(users))
	for i, u := range users {
		out[i] = toUserResponse(u, withEmail)
	}
	return out
}

type profileResponse struct {
	PhotoURL      string  `json:"photo_url"`
	Bio           string  `json:"bio"`
	Course        string  `json:"course"`
	Year          int     `json:"year"`
	Rating        float64 `json:"rating"`
	SkillsOffered string  `json:"skills_offered"`
	SkillsWanted  string  `json:"skills_wanted"`
}

func toProfileResponse(p *model.Profile) *profileResponse {
	if p == nil {
		return nil
	}
	return &profileResponse{
		PhotoURL:      p.PhotoURL,
		Bio:           p.Bio,
		Course:        p.Course,
		Year:          p.Year,
		Rating:        p.Rating,
		SkillsOffered: p.SkillsOffered,
		SkillsWanted:  p.SkillsWanted,
	}
}

type skillResponse struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"owner_id"`
	Title        string    `json:"title"`
	Category     string    `json:"category"`
	Description  string    `json:"description"`
	Level        string    `json:"level"`
	Availability string    `json:"availability"`
	CreatedAt    time.Time `json:"created_at"`
}

func toSkillResponse(s *model.Skill) skillResponse {
	return skillResponse{
		ID:           s.ID,
		OwnerID:      s.OwnerID,
		Title:        s.Title,
		Category:     s.Category,
		Description:  s.Description,
		Level:        s.Level,
		Availability: s.Availability,
		CreatedAt:    s.CreatedAt,
	}
}

func toSkillResponses(skills []*model.Skill) []skillResponse {
	out := make([]skillResponse, len(skills))
	for i, s := range skills {
		out[i] = toSkillResponse(s)
	}
	return out
}

type skillListItemResponse struct {
	skillResponse
	OwnerUsername string   `json:"owner_username"`
	OwnerName     string   `json:"owner_name"`
	AverageRating *float64 `json:"average_rating"`
	RequestCount  int      `json:"request_count"`
	IsNew         bool     `json:"is_new"`
}

func toSkillListItemResponse(item repository.SkillListItem, isNew bool) skillListItemResponse {
	return skillListItemResponse{
		skillResponse: toSkillResponse(&item.Skill),
		OwnerUsername: item.OwnerUsername,
		OwnerName:     fullName(item.OwnerFirstName, item.OwnerLastName),
		AverageRating: item.AverageRating,
		RequestCount:  item.RequestCount,
		IsNew:         isNew,
	}
}

type skillWithStatsResponse struct {
	skillResponse
	TotalRequests      int `json:"total_requests"`
	AcceptedRequests   int `json:"accepted_requests"`
	InProgressRequests int `json:"in_progress_requests"`
}

func toSkillWithStatsResponses(skills []repository.SkillWithStats) []skillWithStatsResponse {
	out := make([]skillWithStatsResponse, len(skills))
	for i, s := range skills {
		out[i] = skillWithStatsResponse{
			skillResponse:      toSkillResponse(&s.Skill),
			TotalRequests:      s.TotalRequests,
			AcceptedRequests:   s.AcceptedRequests,
			InProgressRequests: s.InProgressRequests,
		}
	}
	return out
}

type skillRequestResponse struct {
	ID                string     `json:"id"`
	SkillID           string     `json:"skill_id"`
	RequesterID       string     `json:"requester_id"`
	OwnerID           string     `json:"owner_id"`
	Status            string     `json:"status"`
	CreatedAt         time.Time  `json:"created_at"`
	ScheduledFor      *time.Time `json:"scheduled_for"`
	StartedAt         *time.Time `json:"started_at"`
	CompletedAt       *time.Time `json:"completed_at"`
	SkillTitle        string     `json:"skill_title,omitempty"`
	RequesterUsername string     `json:"requester_username,omitempty"`
	OwnerUsername     string     `json:"owner_username,omitempty"`
}

func toSkillRequestResponse(req *model.SkillRequest) skillRequestResponse {
	return skillRequestResponse{
		ID:           req.ID,
		SkillID:      req.SkillID,
		RequesterID:  req.RequesterID,
		OwnerID:      req.OwnerID,
		Status:       string(req.Status),
		CreatedAt:    req.CreatedAt,
		ScheduledFor: req.ScheduledFor,
		StartedAt:    req.StartedAt,
		CompletedAt:  req.CompletedAt,
	}
}

func toSkillRequestResponses(reqs []repository.SkillRequestWithNames) []skillRequestResponse {
	out := make([]skillRequestResponse, len(reqs))
	for i, req := range reqs {
		resp := toSkillRequestResponse(&req.SkillRequest)
		resp.SkillTitle = req.SkillTitle
		resp.RequesterUsername = req.RequesterUsername
		resp.OwnerUsername = req.OwnerUsername
		out[i] = resp
	}
	return out
}

type reviewResponse struct {
	ID               string    `json:"id"`
	SkillID          string    `json:"skill_id"`
	ReviewerID       string    `json:"reviewer_id"`
	Rating           int       `json:"rating"`
	Comment          string    `json:"comment"`
	CreatedAt        time.Time `json:"created_at"`
	SkillTitle       string    `json:"skill_title,omitempty"`
	ReviewerUsername string    `json:"reviewer_username,omitempty"`
}

func toReviewResponse(r *model.Review) reviewResponse {
	return reviewResponse{
		ID:         r.ID,
		SkillID:    r.SkillID,
		ReviewerID: r.ReviewerID,
		Rating:     r.Rating,
		Comment:    r.Comment,
		CreatedAt:  r.CreatedAt,
	}
}

func toReviewResponses(reviews []repository.ReviewWithNames) []reviewResponse {
	out := make([]reviewResponse, len(reviews))
	for i, r := range reviews {
		resp := toReviewResponse(&r.Review)
		resp.SkillTitle = r.SkillTitle
		resp.ReviewerUsername = r.ReviewerUsername
		out[i] = resp
	}
	return out
}

type messageResponse struct {
	ID            string    `json:"id"`
	FromUserID    string    `json:"from_user_id"`
	ToUserID      string    `json:"to_user_id"`
	Content       string    `json:"content"`
	SentAt        time.Time `json:"sent_at"`
	IsRead        bool      `json:"is_read"`
	AttachmentURL string    `json:"attachment_url,omitempty"`
	ReplyToID     *string   `json:"reply_to_id"`
}

func toMessageResponse(m *model.Message) messageResponse {
	return messageResponse{
		ID:            m.ID,
		FromUserID:    m.FromUserID,
		ToUserID:      m.ToUserID,
		Content:       m.Content,
		SentAt:        m.SentAt,
		IsRead:        m.IsRead,
		AttachmentURL: m.AttachmentURL,
		ReplyToID:     m.ReplyToID,
	}
}

func toMessageResponses(messages []*model.Message) []messageResponse {
	out := make([]messageResponse, len(messages))
	for i, m := range messages {
		out[i] = toMessageResponse(m)
	}
	return out
}

type chatResponse struct {
	PartnerID       string          `json:"partner_id"`
	PartnerUsername string          `json:"partner_username"`
	PartnerName     string          `json:"partner_name"`
	LastMessage     messageResponse `json:"last_message"`
	UnreadCount     int             `json:"unread_count"`
}

func toChatResponses(chats []repository.ChatSummary) []chatResponse {
	out := make([]chatResponse, len(chats))
	for i, c := range chats {
		out[i] = chatResponse{
			PartnerID:       c.PartnerID,
			PartnerUsername: c.PartnerUsername,
			PartnerName:     fullName(c.PartnerFirstName, c.PartnerLastName),
			LastMessage:     toMessageResponse(&c.LastMessage),
			UnreadCount:     c.UnreadCount,
		}
	}
	return out
}

type meetingResponse struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	OrganizerID     string    `json:"organizer_id"`
	MeetingType     string    `json:"meeting_type"`
	ScheduledAt     time.Time `json:"scheduled_at"`
	EndsAt          time.Time `json:"ends_at"`
	DurationMinutes int       `json:"duration_minutes"`
	Location        string    `json:"location"`
	Status          string    `json:"status"`
	RelatedSkillID  *string   `json:"related_skill_id"`
	ParticipantIDs  []string  `json:"participant_ids"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func toMeetingResponse(m *model.Meeting) meetingResponse {
	participants := m.ParticipantIDs
	if participants == nil {
		participants = []string{}
	}
	return meetingResponse{
		ID:              m.ID,
		Title:           m.Title,
		Description:     m.Description,
		OrganizerID:     m.OrganizerID,
		MeetingType:     string(m.MeetingType),
		ScheduledAt:     m.ScheduledAt,
		EndsAt:          m.EndsAt(),
		DurationMinutes: m.DurationMinutes,
		Location:        m.Location,
		Status:          string(m.Status),
		RelatedSkillID:  m.RelatedSkillID,
		ParticipantIDs:  participants,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

func toMeetingResponses(meetings []*model.Meeting) []meetingResponse {
	out := make([]meetingResponse, len(meetings))
	for i, m := range meetings {
		out[i] = toMeetingResponse(m)
	}
	return out
}

type notificationResponse struct {
	ID               string    `json:"id"`
	Message          string    `json:"message"`
	Type             string    `json:"notification_type"`
	IsRead           bool      `json:"is_read"`
	CreatedAt        time.Time `json:"created_at"`
	RelatedMeetingID *string   `json:"related_meeting_id"`
}

func toNotificationResponses(ns []*model.Notification) []notificationResponse {
	out := make([]notificationResponse, len(ns))
	for i, n := range ns {
		out[i] = notificationResponse{
			ID:               n.ID,
			Message:          n.Message,
			Type:             string(n.Type),
			IsRead:           n.IsRead,
			CreatedAt:        n.CreatedAt,
			RelatedMeetingID: n.RelatedMeetingID,
		}
	}
	return out
}

type reportResponse struct {
	ID                   string    `json:"id"`
	ReporterID           string    `json:"reporter_id"`
	ReportedUserID       string    `json:"reported_user_id"`
	Reason               string    `json:"reason"`
	Resolved             bool      `json:"resolved"`
	CreatedAt            time.Time `json:"created_at"`
	ReporterUsername     string    `json:"reporter_username,omitempty"`
	ReportedUserUsername string    `json:"reported_user_username,omitempty"`
}

func toReportResponse(r *model.Report) reportResponse {
	return reportResponse{
		ID:             r.ID,
		ReporterID:     r.ReporterID,
		ReportedUserID: r.ReportedUserID,
		Reason:         r.Reason,
		Resolved:       r.Resolved,
		CreatedAt:      r.CreatedAt,
	}
}

func toReportResponses(reports []repository.ReportWithNames) []reportResponse {
	out := make([]reportResponse, len(reports))
	for i, r := range reports {
		resp := toReportResponse(&r.Report)
		resp.ReporterUsername = r.ReporterUsername
		resp.ReportedUserUsername = r.ReportedUserUsername
		out[i] = resp
	}
	return out
}

// fullName は姓名を空白で連結する。どちらかが空の場合は片方のみ返す。
func fullName(first, last string) string {
	switch {
	case first == "":
		return last
	case last == "":
		return first
	}
	return first + " " + last
}
