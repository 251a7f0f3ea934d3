// Package meeting はミーティングの予定作成、参照、状態更新、カレンダー表示を提供する。
package meeting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/hitoshi/skillswap/internal/model"
	"github.com/hitoshi/skillswap/internal/repository"
	"github.com/hitoshi/skillswap/internal/security"
)

const (
	// DefaultDuration は所要時間が未指定の場合の分数。
	DefaultDuration = 60
	// MinDuration は所要時間の下限（分）。
	MinDuration = 15
	// MaxDuration は所要時間の上限（分）。
	MaxDuration = 480
	// maxAdvance は予定を作成できる最大の先日付。
	maxAdvance = 365 * 24 * time.Hour
	// MaxTitleLength はタイトルの最大文字数。meetingsテーブルの列長と一致する。
	MaxTitleLength = 200
	// MaxLocationLength は場所の最大文字数。
	MaxLocationLength = 300

	organizerColor   = "#6366f1"
	participantColor = "#10b981"
)

// NotificationSink は通知の送信先。
type NotificationSink interface {
	Notify(ctx context.Context, userID string, nType model.NotificationType, message string, relatedMeetingID *string) error
}

// ScheduleInput はミーティング作成の入力値。
type ScheduleInput struct {
	Title           string            `json:"title"`
	Description     string            `json:"description"`
	MeetingType     model.MeetingType `json:"meeting_type"`
	ScheduledAt     time.Time         `json:"scheduled_at"`
	DurationMinutes int               `json:"duration_minutes"`
	Location        string            `json:"location"`
	ParticipantIDs  []string          `json:"participant_ids"`
	RelatedSkillID  *string           `json:"related_skill_id"`
}

// MyMeetings はユーザーの今後と過去のミーティング。
type MyMeetings struct {
	Upcoming []*model.Meeting
	Past     []*model.Meeting
}

// CalendarEvent はカレンダー表示用のイベント。
type CalendarEvent struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	URL       string    `json:"url"`
	Color     string    `json:"color"`
	TextColor string    `json:"textColor"`
}

// Service はミーティングのサービス層。
type Service struct {
	meetings  repository.MeetingRepository
	users     repository.UserRepository
	skills    repository.SkillRepository
	sink      NotificationSink
	sanitizer security.ContentSanitizerService
	now       func() time.Time
}

// NewService はServiceを生成する。
func NewService(
	meetings repository.MeetingRepository,
	users repository.UserRepository,
	skills repository.SkillRepository,
	sink NotificationSink,
	sanitizer security.ContentSanitizerService,
) *Service {
	return &Service{
		meetings:  meetings,
		users:     users,
		skills:    skills,
		sink:      sink,
		sanitizer: sanitizer,
		now:       time.Now,
	}
}

// Schedule はactorを主催者としてミーティングを作成し、各参加者にmeeting_invite通知を送る。
func (s *Service) Schedule(ctx context.Context, actor model.Actor, in ScheduleInput) (*model.Meeting, error) {
	return s.schedule(ctx, actor, in)
}

// QuickSchedule は指定ユーザーを必ず参加者に含めてミーティングを作成する。
func (s *Service) QuickSchedule(ctx context.Context, actor model.Actor, username string, in ScheduleInput) (*model.Meeting, error) {
	target, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if target == nil {
		return nil, model.NewUserNotFoundError()
	}
	if target.ID == actor.UserID {
		return nil, model.NewValidationError("自分自身とのミーティングは作成できません。")
	}
	if strings.TrimSpace(in.Title) == "" {
		in.Title = fmt.Sprintf("%s さんとのミーティング", displayName(target))
	}
	in.ParticipantIDs = append(in.ParticipantIDs, target.ID)
	return s.schedule(ctx, actor, in)
}

func (s *Service) schedule(ctx context.Context, actor model.Actor, in ScheduleInput) (*model.Meeting, error) {
	now := s.now()

	title := s.sanitizer.StripTags(in.Title)
	location := s.sanitizer.StripTags(in.Location)
	if err := ValidateText(title, location); err != nil {
		return nil, err
	}
	if in.MeetingType == "" {
		in.MeetingType = model.MeetingTypeGeneral
	}
	if !in.MeetingType.Valid() {
		return nil, model.NewValidationError(fmt.Sprintf("ミーティングの種類が正しくありません: %s", in.MeetingType))
	}
	if in.DurationMinutes == 0 {
		in.DurationMinutes = DefaultDuration
	}
	if err := ValidateSchedule(in.ScheduledAt, in.DurationMinutes, now); err != nil {
		return nil, err
	}

	participants, err := s.resolveParticipants(ctx, actor.UserID, in.ParticipantIDs)
	if err != nil {
		return nil, err
	}

	var relatedSkillID *string
	if in.RelatedSkillID != nil && *in.RelatedSkillID != "" {
		skill, err := s.skills.FindByID(ctx, *in.RelatedSkillID)
		if err != nil {
			return nil, fmt.Errorf("スキルの取得に失敗しました: %w", err)
		}
		if skill == nil {
			return nil, model.NewSkillNotFoundError(*in.RelatedSkillID)
		}
		relatedSkillID = &skill.ID
	}

	m := &model.Meeting{
		ID:              uuid.New().String(),
		Title:           title,
		Description:     s.sanitizer.Sanitize(in.Description),
		OrganizerID:     actor.UserID,
		MeetingType:     in.MeetingType,
		ScheduledAt:     in.ScheduledAt,
		DurationMinutes: in.DurationMinutes,
		Location:        location,
		Status:          model.MeetingStatusScheduled,
		RelatedSkillID:  relatedSkillID,
		ParticipantIDs:  participants,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.meetings.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("ミーティングの作成に失敗しました: %w", err)
	}

	slog.Info("meeting scheduled",
		slog.String("meeting_id", m.ID),
		slog.String("organizer_id", actor.UserID),
		slog.Int("participants", len(participants)),
	)

	organizer := s.username(ctx, actor.UserID)
	for _, pid := range participants {
		msg := fmt.Sprintf("%s さんからミーティング「%s」に招待されました。", organizer, m.Title)
		s.deliver(ctx, pid, model.NotificationMeetingInvite, msg, m.ID)
	}

	return m, nil
}

// Detail はミーティングを返す。主催者または参加者のみ参照できる。
func (s *Service) Detail(ctx context.Context, actor model.Actor, meetingID string) (*model.Meeting, error) {
	return s.findForMember(ctx, actor, meetingID)
}

// MyMeetings はactorが主催または参加するミーティングを今後と過去に分けて返す。
// 今後: 開催日時がnow以降かつ状態がscheduledまたはconfirmed。
// 過去: 開催日時がnowより前、または状態がcompleted。
func (s *Service) MyMeetings(ctx context.Context, actor model.Actor) (*MyMeetings, error) {
	all, err := s.meetings.ListForUser(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("ミーティングの取得に失敗しました: %w", err)
	}
	return Partition(all, s.now()), nil
}

// UpdateStatus はミーティングの状態を更新し、actor以外の主催者・参加者にmeeting_update通知を送る。
func (s *Service) UpdateStatus(ctx context.Context, actor model.Actor, meetingID string, status model.MeetingStatus) (*model.Meeting, error) {
	m, err := s.findForMember(ctx, actor, meetingID)
	if err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, model.NewValidationError(fmt.Sprintf("ミーティングの状態が正しくありません: %s", status))
	}

	now := s.now()
	if err := s.meetings.UpdateStatus(ctx, m.ID, status, now); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, model.NewMeetingNotFoundError(meetingID)
		}
		return nil, fmt.Errorf("ミーティングの状態更新に失敗しました: %w", err)
	}
	m.Status = status
	m.UpdatedAt = now

	slog.Info("meeting status updated",
		slog.String("meeting_id", m.ID),
		slog.String("status", string(status)),
		slog.String("actor_id", actor.UserID),
	)

	msg := fmt.Sprintf("ミーティング「%s」の状態が %s に更新されました（%s さん）。",
		m.Title, status, s.username(ctx, actor.UserID))
	for _, uid := range append([]string{m.OrganizerID}, m.ParticipantIDs...) {
		if uid == actor.UserID {
			continue
		}
		s.deliver(ctx, uid, model.NotificationMeetingUpdate, msg, m.ID)
	}

	return m, nil
}

// Calendar はactorのミーティングをカレンダーイベントとして返す。
// 主催するミーティングと参加するミーティングは色で区別する。
func (s *Service) Calendar(ctx context.Context, actor model.Actor) ([]CalendarEvent, error) {
	all, err := s.meetings.ListForUser(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("ミーティングの取得に失敗しました: %w", err)
	}

	events := make([]CalendarEvent, 0, len(all))
	for _, m := range all {
		color := participantColor
		if m.OrganizerID == actor.UserID {
			color = organizerColor
		}
		events = append(events, CalendarEvent{
			ID:        m.ID,
			Title:     m.Title,
			Start:     m.ScheduledAt,
			End:       m.EndsAt(),
			URL:       "/api/meetings/" + m.ID,
			Color:     color,
			TextColor: "white",
		})
	}
	return events, nil
}

// ValidateSchedule は開催日時と所要時間を検証する。
// 過去の日時、365日を超える先日付、終了時刻が過去になる組み合わせは不正。
func ValidateSchedule(scheduledAt time.Time, durationMinutes int, now time.Time) error {
	if durationMinutes < MinDuration || durationMinutes > MaxDuration {
		return model.NewValidationError(fmt.Sprintf("所要時間は%d分から%d分の範囲で指定してください。", MinDuration, MaxDuration))
	}
	if scheduledAt.IsZero() {
		return model.NewValidationError("開催日時は必須です。")
	}
	if scheduledAt.Before(now) {
		return model.NewValidationError("過去の日時にはミーティングを設定できません。")
	}
	if scheduledAt.After(now.Add(maxAdvance)) {
		return model.NewValidationError("1年より先の日時にはミーティングを設定できません。")
	}
	end := scheduledAt.Add(time.Duration(durationMinutes) * time.Minute)
	if end.Before(now) {
		return model.NewValidationError("終了時刻が過去になるため設定できません。")
	}
	return nil
}

// ValidateText はサニタイズ済みのタイトルと場所を検証する。
func ValidateText(title, location string) error {
	if title == "" {
		return model.NewValidationError("タイトルは必須です。")
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return model.NewValidationError(fmt.Sprintf("タイトルは%d文字以内で入力してください。", MaxTitleLength))
	}
	if utf8.RuneCountInString(location) > MaxLocationLength {
		return model.NewValidationError(fmt.Sprintf("場所は%d文字以内で入力してください。", MaxLocationLength))
	}
	return nil
}

// Partition はミーティングを今後と過去に分ける。どちらにも該当しないもの（今後のキャンセル済み）は含めない。
func Partition(meetings []*model.Meeting, now time.Time) *MyMeetings {
	result := &MyMeetings{Upcoming: []*model.Meeting{}, Past: []*model.Meeting{}}
	for _, m := range meetings {
		active := m.Status == model.MeetingStatusScheduled || m.Status == model.MeetingStatusConfirmed
		if !m.ScheduledAt.Before(now) && active {
			result.Upcoming = append(result.Upcoming, m)
		}
		if m.ScheduledAt.Before(now) || m.Status == model.MeetingStatusCompleted {
			result.Past = append(result.Past, m)
		}
	}
	return result
}

// resolveParticipants は参加者IDの重複と主催者を除き、全員が存在することを確認する。
func (s *Service) resolveParticipants(ctx context.Context, organizerID string, ids []string) ([]string, error) {
	seen := make(map[string]bool, len(ids))
	result := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || id == organizerID || seen[id] {
			continue
		}
		seen[id] = true

		u, err := s.users.FindByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("参加者の取得に失敗しました: %w", err)
		}
		if u == nil {
			return nil, model.NewValidationError(fmt.Sprintf("参加者が見つかりません: %s", id))
		}
		result = append(result, id)
	}
	return result, nil
}

func (s *Service) findForMember(ctx context.Context, actor model.Actor, meetingID string) (*model.Meeting, error) {
	m, err := s.meetings.FindByID(ctx, meetingID)
	if err != nil {
		return nil, fmt.Errorf("ミーティングの取得に失敗しました: %w", err)
	}
	if m == nil {
		return nil, model.NewMeetingNotFoundError(meetingID)
	}
	if !m.HasMember(actor.UserID) {
		return nil, model.NewForbiddenError("このミーティングを参照する権限がありません。")
	}
	return m, nil
}

// deliver は通知を送信する。失敗はログに記録し、呼び出し元には返さない。
func (s *Service) deliver(ctx context.Context, userID string, nType model.NotificationType, message, meetingID string) {
	if s.sink == nil {
		return
	}
	if err := s.sink.Notify(ctx, userID, nType, message, &meetingID); err != nil {
		slog.Error("failed to deliver notification",
			slog.String("user_id", userID),
			slog.String("type", string(nType)),
			slog.String("meeting_id", meetingID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *Service) username(ctx context.Context, userID string) string {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil || u == nil {
		return "ユーザー"
	}
	return displayName(u)
}

// displayName は氏名があれば氏名、なければユーザー名を返す。
func displayName(u *model.User) string {
	full := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if full != "" {
		return full
	}
	return u.Username
}
