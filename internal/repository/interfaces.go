// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/hitoshi/skillswap/internal/model"
)

var (
	// ErrNotFound は更新・削除対象のレコードが存在しない場合に返される。
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate はユニーク制約に違反した場合に返される。
	ErrDuplicate = errors.New("duplicate record")
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByUsername はユーザー名（大文字小文字を区別しない）でユーザーを取得する。
	// 見つからない場合はnilを返す。
	FindByUsername(ctx context.Context, username string) (*model.User, error)

	// CreateWithProfile はユーザーとプロフィールを同一トランザクションで作成する。
	// ユーザー名が重複する場合はErrDuplicateを返す。
	CreateWithProfile(ctx context.Context, user *model.User, profile *model.Profile) error

	// Search はユーザー名・氏名の部分一致でユーザーを検索する。excludeIDのユーザーは除外する。
	Search(ctx context.Context, query, excludeID string, limit int) ([]*model.User, error)

	// List は全ユーザーを作成日時の降順で返す。
	List(ctx context.Context) ([]*model.User, error)

	// UpdateAccount はユーザー名とメールアドレスを更新する。
	UpdateAccount(ctx context.Context, id, username, email string) error

	// SetStaff はユーザー名（大文字小文字を区別しない）で指定したユーザーのスタッフ権限を設定する。
	// 該当するユーザーがいない場合はErrNotFoundを返す。
	SetStaff(ctx context.Context, username string, isStaff bool) error

	// DeleteByID は指定IDのユーザーを削除する。
	// 関連するprofiles、sessions、skills等はCASCADE削除される。
	DeleteByID(ctx context.Context, id string) error
}

// ProfileRepository はプロフィールデータの永続化インターフェース。
type ProfileRepository interface {
	// FindByUserID は指定ユーザーのプロフィールを取得する。見つからない場合はnilを返す。
	FindByUserID(ctx context.Context, userID string) (*model.Profile, error)

	// Update はプロフィールを更新する。
	Update(ctx context.Context, profile *model.Profile) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// FindActor は有効なセッションに紐づくユーザーを操作主体として返す。該当しない場合はnil。
	FindActor(ctx context.Context, id string) (*model.Actor, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// SkillFilter はスキル一覧の検索条件。
type SkillFilter struct {
	Query    string // タイトル・説明・カテゴリ・オーナー名の部分一致
	Category string // 大文字小文字を区別しない完全一致
	Level    string // 大文字小文字を区別しない完全一致
	Sort     string // recent, popular, rating, name
}

// SkillRepository はスキルデータの永続化インターフェース。
type SkillRepository interface {
	// FindByID は指定IDのスキルを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Skill, error)

	// Create はスキルを作成する。
	Create(ctx context.Context, skill *model.Skill) error

	// Update はスキルのタイトル・カテゴリ・説明・レベル・受講可能時間を更新する。
	// オーナーは変更しない。
	Update(ctx context.Context, skill *model.Skill) error

	// Delete は指定IDのスキルを削除する。
	Delete(ctx context.Context, id string) error

	// Count は検索条件に一致するスキル数を返す。
	Count(ctx context.Context, filter SkillFilter) (int, error)

	// List は検索条件に一致するスキルをオーナー名・評価・リクエスト数付きで返す。
	List(ctx context.Context, filter SkillFilter, limit, offset int) ([]SkillListItem, error)

	// SearchByTitle はタイトルの部分一致でスキルを検索する。
	SearchByTitle(ctx context.Context, query string) ([]*model.Skill, error)

	// ListByOwner は指定ユーザーのスキルをリクエスト集計付きで返す。
	ListByOwner(ctx context.Context, ownerID string) ([]SkillWithStats, error)

	// DistinctCategories は登録済みのカテゴリ一覧を返す。
	DistinctCategories(ctx context.Context) ([]string, error)

	// DistinctLevels は登録済みのレベル一覧を返す。
	DistinctLevels(ctx context.Context) ([]string, error)
}

// SkillRequestRepository はスキルリクエストの永続化インターフェース。
type SkillRequestRepository interface {
	// FindByID は指定IDのリクエストを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.SkillRequest, error)

	// FindBySkillAndRequester はスキルIDとリクエスト者IDでリクエストを検索する。
	// 見つからない場合はnilを返す。
	FindBySkillAndRequester(ctx context.Context, skillID, requesterID string) (*model.SkillRequest, error)

	// Create はリクエストを作成する。(skill_id, requester_id)が重複する場合はErrDuplicateを返す。
	Create(ctx context.Context, request *model.SkillRequest) error

	// TransitionStatus は現在の状態がfromの場合に限りtoへ更新する。
	// IN_PROGRESSへの遷移ではstarted_at、COMPLETEDへの遷移ではcompleted_atにatを記録する。
	// 状態が一致せず更新されなかった場合はfalseを返す。
	TransitionStatus(ctx context.Context, id string, from, to model.SkillRequestStatus, at time.Time) (bool, error)

	// SetStatus は現在の状態に関わらず状態を更新する。管理者操作で使用する。
	SetStatus(ctx context.Context, id string, status model.SkillRequestStatus) error

	// Delete は指定IDのリクエストを削除する。
	Delete(ctx context.Context, id string) error

	// ListByRequester は指定ユーザーが送信したリクエストを新しい順に返す。
	ListByRequester(ctx context.Context, requesterID string) ([]SkillRequestWithNames, error)

	// ListByOwner は指定ユーザーが受信したリクエストを新しい順に返す。
	ListByOwner(ctx context.Context, ownerID string) ([]SkillRequestWithNames, error)

	// ListBySkillAndStatus は指定スキルの指定状態のリクエストを返す。
	ListBySkillAndStatus(ctx context.Context, skillID string, status model.SkillRequestStatus) ([]SkillRequestWithNames, error)

	// CountByStatusForSkill は指定スキルのリクエスト数を状態ごとに返す。
	CountByStatusForSkill(ctx context.Context, skillID string) (map[model.SkillRequestStatus]int, error)

	// ListAll は全リクエストを返す。statusが空でない場合はその状態のみ返す。
	ListAll(ctx context.Context, status model.SkillRequestStatus) ([]SkillRequestWithNames, error)
}

// ReviewRepository はレビューの永続化インターフェース。
type ReviewRepository interface {
	// FindByID は指定IDのレビューを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Review, error)
	// Create はレビューを作成する。
	Create(ctx context.Context, review *model.Review) error
	// Update はレビューの評価とコメントを更新する。
	Update(ctx context.Context, review *model.Review) error
	// Delete は指定IDのレビューを削除する。
	Delete(ctx context.Context, id string) error
	// ListBySkill は指定スキルのレビューを新しい順に返す。
	ListBySkill(ctx context.Context, skillID string) ([]ReviewWithNames, error)
	// ListBySkillOwner は指定ユーザーのスキルに付いたレビューを新しい順に返す。
	ListBySkillOwner(ctx context.Context, ownerID string) ([]ReviewWithNames, error)
	// ListAll は全レビューを新しい順に返す。
	ListAll(ctx context.Context) ([]ReviewWithNames, error)
}

// MessageRepository はメッセージの永続化インターフェース。
type MessageRepository interface {
	// FindByID は指定IDのメッセージを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Message, error)
	// Create はメッセージを作成する。
	Create(ctx context.Context, message *model.Message) error
	// ListForUser は指定ユーザーが送受信した全メッセージを送信日時順に返す。
	ListForUser(ctx context.Context, userID string) ([]*model.Message, error)
	// ListConversation は2ユーザー間のメッセージを送信日時順に返す。
	ListConversation(ctx context.Context, userID, otherID string) ([]*model.Message, error)
	// MarkConversationRead はotherIDからuserIDへの未読メッセージを既読にする。
	MarkConversationRead(ctx context.Context, userID, otherID string) (int64, error)
	// ListChats は会話相手ごとの最新メッセージと未読数を新しい順に返す。
	ListChats(ctx context.Context, userID string) ([]ChatSummary, error)
}

// MeetingRepository はミーティングの永続化インターフェース。
type MeetingRepository interface {
	// FindByID は参加者付きでミーティングを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Meeting, error)
	// Create はミーティングと参加者を同一トランザクションで作成する。
	Create(ctx context.Context, meeting *model.Meeting) error
	// Update はミーティングのタイトル・説明・日時・所要時間・場所・状態を更新する。
	Update(ctx context.Context, meeting *model.Meeting) error
	// UpdateStatus はミーティングの状態を更新する。
	UpdateStatus(ctx context.Context, id string, status model.MeetingStatus, at time.Time) error
	// Delete は指定IDのミーティングを削除する。
	Delete(ctx context.Context, id string) error
	// ListForUser は指定ユーザーが主催または参加するミーティングを開催日時順に返す。
	ListForUser(ctx context.Context, userID string) ([]*model.Meeting, error)
	// ListAll は全ミーティングを開催日時の降順で返す。
	ListAll(ctx context.Context) ([]*model.Meeting, error)
}

// NotificationRepository は通知の永続化インターフェース。
type NotificationRepository interface {
	// Create は通知を作成する。
	Create(ctx context.Context, notification *model.Notification) error
	// ListByUser は指定ユーザーの通知を新しい順に返す。
	ListByUser(ctx context.Context, userID string) ([]*model.Notification, error)
	// MarkRead は指定ユーザーの通知を既読にする。対象が存在しない場合はErrNotFoundを返す。
	MarkRead(ctx context.Context, id, userID string) error
	// MarkAllRead は指定ユーザーの全通知を既読にする。
	MarkAllRead(ctx context.Context, userID string) (int64, error)
}

// ReportRepository は通報の永続化インターフェース。
type ReportRepository interface {
	// Create は通報を作成する。
	Create(ctx context.Context, report *model.Report) error
	// ListAll は全通報を新しい順に返す。
	ListAll(ctx context.Context) ([]ReportWithNames, error)
	// Resolve は通報を解決済みにする。対象が存在しない場合はErrNotFoundを返す。
	Resolve(ctx context.Context, id string) error
}

// StatsRepository は集計クエリのインターフェース。
type StatsRepository interface {
	// Dashboard は管理ダッシュボードの統計を返す。
	Dashboard(ctx context.Context, topCategories int) (*DashboardStats, error)
	// BadgeCounts はナビゲーションバッジ用の件数を返す。
	// newSkillsSince以降に作成された他ユーザーのスキルを新着として数える。
	BadgeCounts(ctx context.Context, userID string, newSkillsSince time.Time) (*BadgeCounts, error)
}

// SkillListItem はスキルとオーナー名、平均評価、リクエスト数を結合した構造体。
type SkillListItem struct {
	model.Skill
	OwnerUsername  string
	OwnerFirstName string
	OwnerLastName  string
	AverageRating  *float64 // レビューがない場合はnil
	RequestCount   int
}

// SkillWithStats はスキルとリクエスト集計を結合した構造体。
type SkillWithStats struct {
	model.Skill
	TotalRequests      int
	AcceptedRequests   int
	InProgressRequests int
}

// SkillRequestWithNames はリクエストとスキル名、当事者のユーザー名を結合した構造体。
type SkillRequestWithNames struct {
	model.SkillRequest
	SkillTitle        string
	RequesterUsername string
	OwnerUsername     string
}

// ReviewWithNames はレビューとスキル名、レビュー者のユーザー名を結合した構造体。
type ReviewWithNames struct {
	model.Review
	SkillTitle       string
	ReviewerUsername string
}

// ChatSummary は会話相手ごとの最新メッセージと未読数。
type ChatSummary struct {
	PartnerID        string
	PartnerUsername  string
	PartnerFirstName string
	PartnerLastName  string
	LastMessage      model.Message
	UnreadCount      int
}

// ReportWithNames は通報と当事者のユーザー名を結合した構造体。
type ReportWithNames struct {
	model.Report
	ReporterUsername     string
	ReportedUserUsername string
}

// CategoryCount はカテゴリごとのスキル数。
type CategoryCount struct {
	Category string
	Count    int
}

// DashboardStats は管理ダッシュボードの統計値。
type DashboardStats struct {
	TotalUsers     int
	TotalSkills    int
	TotalRequests  int
	CompletedSwaps int
	AverageRating  float64 // レビューがない場合は0
	TotalMeetings  int
	TopCategories  []CategoryCount
}

// BadgeCounts はナビゲーションバッジ用の件数。
type BadgeCounts struct {
	NewSkills           int
	PendingReceived     int
	PendingSent         int
	UnreadMessages      int
	UnreadNotifications int
}

