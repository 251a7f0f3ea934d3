package model

import "time"

// Message はユーザー間のダイレクトメッセージを表す。
type Message struct {
	ID            string
	FromUserID    string
	ToUserID      string
	Content       string
	SentAt        time.Time
	IsRead        bool
	AttachmentURL string
	ReplyToID     *string
}

// MeetingType はミーティングの種類を表す。
type MeetingType string

const (
	MeetingTypeSkillSwap MeetingType = "skill_swap"
	MeetingTypeTutoring  MeetingType = "tutoring"
	MeetingTypeProject   MeetingType = "project"
	MeetingTypeGeneral   MeetingType = "general"
)

// Valid は定義済みの種類かどうかを返す。
func (t MeetingType) Valid() bool {
	switch t {
	case MeetingTypeSkillSwap, MeetingTypeTutoring, MeetingTypeProject, MeetingTypeGeneral:
		return true
	}
	return false
}

// MeetingStatus はミーティングの状態を表す。
type MeetingStatus string

const (
	MeetingStatusScheduled MeetingStatus = "scheduled"
	MeetingStatusConfirmed MeetingStatus = "confirmed"
	MeetingStatusCancelled MeetingStatus = "cancelled"
	MeetingStatusCompleted MeetingStatus = "completed"
)

// Valid は定義済みの状態かどうかを返す。
func (s MeetingStatus) Valid() bool {
	switch s {
	case MeetingStatusScheduled, MeetingStatusConfirmed, MeetingStatusCancelled, MeetingStatusCompleted:
		return true
	}
	return false
}

// Meeting はユーザー間のミーティング予定を表す。
type Meeting struct {
	ID              string
	Title           string
	Description     string
	OrganizerID     string
	MeetingType     MeetingType
	ScheduledAt     time.Time
	DurationMinutes int
	Location        string
	Status          MeetingStatus
	RelatedSkillID  *string
	ParticipantIDs  []string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// EndsAt はミーティングの終了予定時刻を返す。
func (m *Meeting) EndsAt() time.Time {
	return m.ScheduledAt.Add(time.Duration(m.DurationMinutes) * time.Minute)
}

// HasMember は指定ユーザーが主催者または参加者かどうかを返す。
func (m *Meeting) HasMember(userID string) bool {
	if m.OrganizerID == userID {
		return true
	}
	for _, id := range m.ParticipantIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// NotificationType は通知の種類を表す。
type NotificationType string

const (
	NotificationMessage        NotificationType = "message"
	NotificationMeetingInvite  NotificationType = "meeting_invite"
	NotificationMeetingUpdate  NotificationType = "meeting_update"
	NotificationSkillRequest   NotificationType = "skill_request"
	NotificationSkillSession   NotificationType = "skill_session"
	NotificationSkillCompleted NotificationType = "skill_completed"
	NotificationReview         NotificationType = "review"
)

// Notification はユーザー向けの通知を表す。
type Notification struct {
	ID               string
	UserID           string
	Message          string
	Type             NotificationType
	IsRead           bool
	CreatedAt        time.Time
	RelatedMeetingID *string
}
