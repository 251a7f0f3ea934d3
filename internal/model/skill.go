package model

import "time"

// Skill はユーザーが提供するスキルを表す。OwnerIDは作成後に変更されない。
type Skill struct {
	ID           string
	OwnerID      string
	Title        string
	Category     string
	Description  string
	Level        string
	Availability string
	CreatedAt    time.Time
}

// SkillRequestStatus はスキルリクエストの状態を表す。
type SkillRequestStatus string

const (
	// SkillRequestPending は承認待ちの状態。
	SkillRequestPending SkillRequestStatus = "PENDING"
	// SkillRequestAccepted はオーナーが承認した状態。
	SkillRequestAccepted SkillRequestStatus = "ACCEPTED"
	// SkillRequestRejected はオーナーが拒否した状態（終端）。
	SkillRequestRejected SkillRequestStatus = "REJECTED"
	// SkillRequestInProgress はセッション実施中の状態。
	SkillRequestInProgress SkillRequestStatus = "IN_PROGRESS"
	// SkillRequestCompleted はセッションが完了した状態（終端）。
	SkillRequestCompleted SkillRequestStatus = "COMPLETED"
)

// Valid は定義済みの状態かどうかを返す。
func (s SkillRequestStatus) Valid() bool {
	switch s {
	case SkillRequestPending, SkillRequestAccepted, SkillRequestRejected,
		SkillRequestInProgress, SkillRequestCompleted:
		return true
	}
	return false
}

// SkillRequest はスキルの受講リクエストを表す。
// OwnerIDは作成時点のスキルオーナーを保持する。
type SkillRequest struct {
	ID           string
	SkillID      string
	RequesterID  string
	OwnerID      string
	Status       SkillRequestStatus
	CreatedAt    time.Time
	ScheduledFor *time.Time
	StartedAt    *time.Time
	CompletedAt  *time.Time
}

// Review はスキルに対するレビューを表す。
type Review struct {
	ID         string
	SkillID    string
	ReviewerID string
	Rating     int
	Comment    string
	CreatedAt  time.Time
}

// Report はユーザーによる他ユーザーの通報を表す。
type Report struct {
	ID             string
	ReporterID     string
	ReportedUserID string
	Reason         string
	Resolved       bool
	CreatedAt      time.Time
}
