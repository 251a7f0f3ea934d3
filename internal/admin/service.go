// Package admin はスタッフ向けの統計と管理操作を提供する。
// すべての操作はスタッフ以外に対してAuthorizationエラーを返す。
package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/badoux/checkmail"
	"github.com/go-playground/validator/v10"
	"github.com/hitoshi/skillswap/internal/meeting"
	"github.com/hitoshi/skillswap/internal/metrics"
	"github.com/hitoshi/skillswap/internal/model"
	"github.com/hitoshi/skillswap/internal/repository"
	"github.com/hitoshi/skillswap/internal/security"
	"github.com/hitoshi/skillswap/internal/skill"
)

const (
	topCategories  = 5
	skillListLimit = 500
)

// Repositories は管理操作が使用するリポジトリ群。
type Repositories struct {
	Users    repository.UserRepository
	Skills   repository.SkillRepository
	Requests repository.SkillRequestRepository
	Reviews  repository.ReviewRepository
	Meetings repository.MeetingRepository
	Reports  repository.ReportRepository
	Stats    repository.StatsRepository
}

// SkillInput はスキル編集の入力。検証規則はスキル登録と共通。
type SkillInput = skill.CreateInput

// MeetingInput はミーティング編集の入力。
type MeetingInput struct {
	Title           string
	Description     string
	ScheduledAt     time.Time
	DurationMinutes int
	Location        string
	Status          model.MeetingStatus
}

// Service は管理操作のサービス層。
type Service struct {
	repos     Repositories
	sanitizer security.ContentSanitizerService
	validate  *validator.Validate
	metrics   metrics.MetricsCollector
	now       func() time.Time
}

// NewService はServiceを生成する。
func NewService(repos Repositories, sanitizer security.ContentSanitizerService, collector metrics.MetricsCollector) *Service {
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &Service{
		repos:     repos,
		sanitizer: sanitizer,
		validate:  validator.New(),
		metrics:   collector,
		now:       time.Now,
	}
}

func requireStaff(actor model.Actor) error {
	if !actor.IsStaff {
		return model.NewForbiddenError("管理者のみ実行できます。")
	}
	return nil
}

// Dashboard は管理ダッシュボードの統計を返す。平均評価は小数点以下2桁に丸める。
func (s *Service) Dashboard(ctx context.Context, actor model.Actor) (*repository.DashboardStats, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	stats, err := s.repos.Stats.Dashboard(ctx, topCategories)
	if err != nil {
		return nil, fmt.Errorf("統計の取得に失敗しました: %w", err)
	}
	stats.AverageRating = math.Round(stats.AverageRating*100) / 100
	if stats.TopCategories == nil {
		stats.TopCategories = []repository.CategoryCount{}
	}
	return stats, nil
}

// Users は全ユーザーを返す。
func (s *Service) Users(ctx context.Context, actor model.Actor) ([]*model.User, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	users, err := s.repos.Users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("ユーザー一覧の取得に失敗しました: %w", err)
	}
	if users == nil {
		users = []*model.User{}
	}
	return users, nil
}

// Skills は全スキルを新しい順に返す。
func (s *Service) Skills(ctx context.Context, actor model.Actor) ([]repository.SkillListItem, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	skills, err := s.repos.Skills.List(ctx, repository.SkillFilter{Sort: "recent"}, skillListLimit, 0)
	if err != nil {
		return nil, fmt.Errorf("スキル一覧の取得に失敗しました: %w", err)
	}
	if skills == nil {
		skills = []repository.SkillListItem{}
	}
	return skills, nil
}

// Requests は全リクエストを返す。statusが空でない場合はその状態に絞り込む。
func (s *Service) Requests(ctx context.Context, actor model.Actor, status string) ([]repository.SkillRequestWithNames, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	st := model.SkillRequestStatus(strings.ToUpper(strings.TrimSpace(status)))
	if st != "" && !st.Valid() {
		return nil, model.NewValidationError(fmt.Sprintf("不明な状態です: %s", status))
	}
	requests, err := s.repos.Requests.ListAll(ctx, st)
	if err != nil {
		return nil, fmt.Errorf("リクエスト一覧の取得に失敗しました: %w", err)
	}
	if requests == nil {
		requests = []repository.SkillRequestWithNames{}
	}
	return requests, nil
}

// Reviews は全レビューを返す。
func (s *Service) Reviews(ctx context.Context, actor model.Actor) ([]repository.ReviewWithNames, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	reviews, err := s.repos.Reviews.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("レビュー一覧の取得に失敗しました: %w", err)
	}
	if reviews == nil {
		reviews = []repository.ReviewWithNames{}
	}
	return reviews, nil
}

// Meetings は参加者付きで全ミーティングを返す。
func (s *Service) Meetings(ctx context.Context, actor model.Actor) ([]*model.Meeting, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	meetings, err := s.repos.Meetings.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("ミーティング一覧の取得に失敗しました: %w", err)
	}
	if meetings == nil {
		meetings = []*model.Meeting{}
	}
	return meetings, nil
}

// Reports は全通報を返す。
func (s *Service) Reports(ctx context.Context, actor model.Actor) ([]repository.ReportWithNames, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	reports, err := s.repos.Reports.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("通報一覧の取得に失敗しました: %w", err)
	}
	if reports == nil {
		reports = []repository.ReportWithNames{}
	}
	return reports, nil
}

// EditUser はユーザー名とメールアドレスを変更する。
func (s *Service) EditUser(ctx context.Context, actor model.Actor, userID, username, email string) error {
	if err := requireStaff(actor); err != nil {
		return err
	}
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" {
		return model.NewValidationError("ユーザー名は必須です。")
	}
	if len([]rune(username)) > 150 {
		return model.NewValidationError("ユーザー名は150文字以内で入力してください。")
	}
	if email != "" {
		if err := checkmail.ValidateFormat(email); err != nil {
			return model.NewValidationError("メールアドレスの形式が正しくありません。")
		}
	}

	err := s.repos.Users.UpdateAccount(ctx, userID, username, email)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return model.NewUserNotFoundError()
	case errors.Is(err, repository.ErrDuplicate):
		return model.NewUsernameTakenError(username)
	case err != nil:
		return fmt.Errorf("ユーザーの更新に失敗しました: %w", err)
	}
	s.audit(actor, "edit_user", userID)
	return nil
}

// DeleteUser はユーザーを削除する。
func (s *Service) DeleteUser(ctx context.Context, actor model.Actor, userID string) error {
	if err := requireStaff(actor); err != nil {
		return err
	}
	if err := s.repos.Users.DeleteByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewUserNotFoundError()
		}
		return fmt.Errorf("ユーザーの削除に失敗しました: %w", err)
	}
	s.audit(actor, "delete_user", userID)
	return nil
}

// EditSkill はスキルの内容を変更する。オーナーは変更しない。
func (s *Service) EditSkill(ctx context.Context, actor model.Actor, skillID string, in SkillInput) (*model.Skill, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	target, err := s.repos.Skills.FindByID(ctx, skillID)
	if err != nil {
		return nil, fmt.Errorf("スキルの取得に失敗しました: %w", err)
	}
	if target == nil {
		return nil, model.NewSkillNotFoundError(skillID)
	}

	in, err = skill.PrepareInput(s.validate, s.sanitizer, in)
	if err != nil {
		return nil, err
	}
	target.Title = in.Title
	target.Category = in.Category
	target.Description = in.Description
	target.Level = in.Level
	target.Availability = in.Availability

	if err := s.repos.Skills.Update(ctx, target); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, model.NewSkillNotFoundError(skillID)
		}
		return nil, fmt.Errorf("スキルの更新に失敗しました: %w", err)
	}
	s.audit(actor, "edit_skill", skillID)
	return target, nil
}

// DeleteSkill はスキルを削除する。
func (s *Service) DeleteSkill(ctx context.Context, actor model.Actor, skillID string) error {
	if err := requireStaff(actor); err != nil {
		return err
	}
	if err := s.repos.Skills.Delete(ctx, skillID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewSkillNotFoundError(skillID)
		}
		return fmt.Errorf("スキルの削除に失敗しました: %w", err)
	}
	s.audit(actor, "delete_skill", skillID)
	return nil
}

// ApproveRequest はリクエストの状態に関わらずACCEPTEDにする。
func (s *Service) ApproveRequest(ctx context.Context, actor model.Actor, requestID string) error {
	return s.overrideRequest(ctx, actor, requestID, model.SkillRequestAccepted)
}

// RejectRequest はリクエストの状態に関わらずREJECTEDにする。
func (s *Service) RejectRequest(ctx context.Context, actor model.Actor, requestID string) error {
	return s.overrideRequest(ctx, actor, requestID, model.SkillRequestRejected)
}

func (s *Service) overrideRequest(ctx context.Context, actor model.Actor, requestID string, status model.SkillRequestStatus) error {
	if err := requireStaff(actor); err != nil {
		return err
	}
	if err := s.repos.Requests.SetStatus(ctx, requestID, status); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewSkillRequestNotFoundError(requestID)
		}
		return fmt.Errorf("リクエストの状態更新に失敗しました: %w", err)
	}
	s.metrics.RecordTransition(string(status))
	s.audit(actor, "override_request_"+strings.ToLower(string(status)), requestID)
	return nil
}

// DeleteRequest はリクエストを削除する。
func (s *Service) DeleteRequest(ctx context.Context, actor model.Actor, requestID string) error {
	if err := requireStaff(actor); err != nil {
		return err
	}
	if err := s.repos.Requests.Delete(ctx, requestID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewSkillRequestNotFoundError(requestID)
		}
		return fmt.Errorf("リクエストの削除に失敗しました: %w", err)
	}
	s.audit(actor, "delete_request", requestID)
	return nil
}

// DeleteReview はレビューを削除する。
func (s *Service) DeleteReview(ctx context.Context, actor model.Actor, reviewID string) error {
	if err := requireStaff(actor); err != nil {
		return err
	}
	if err := s.repos.Reviews.Delete(ctx, reviewID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewReviewNotFoundError(reviewID)
		}
		return fmt.Errorf("レビューの削除に失敗しました: %w", err)
	}
	s.audit(actor, "delete_review", reviewID)
	return nil
}

// EditMeeting はミーティングの内容を変更する。過去の日時への変更も許可する。
func (s *Service) EditMeeting(ctx context.Context, actor model.Actor, meetingID string, in MeetingInput) (*model.Meeting, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	m, err := s.repos.Meetings.FindByID(ctx, meetingID)
	if err != nil {
		return nil, fmt.Errorf("ミーティングの取得に失敗しました: %w", err)
	}
	if m == nil {
		return nil, model.NewMeetingNotFoundError(meetingID)
	}

	title := s.sanitizer.StripTags(in.Title)
	location := s.sanitizer.StripTags(in.Location)
	if err := meeting.ValidateText(title, location); err != nil {
		return nil, err
	}
	if in.ScheduledAt.IsZero() {
		return nil, model.NewValidationError("開催日時は必須です。")
	}
	if in.DurationMinutes < meeting.MinDuration || in.DurationMinutes > meeting.MaxDuration {
		return nil, model.NewValidationError(fmt.Sprintf("所要時間は%d分から%d分の範囲で指定してください。", meeting.MinDuration, meeting.MaxDuration))
	}
	status := in.Status
	if status == "" {
		status = m.Status
	}
	if !status.Valid() {
		return nil, model.NewValidationError(fmt.Sprintf("不明な状態です: %s", in.Status))
	}

	m.Title = title
	m.Description = s.sanitizer.Sanitize(in.Description)
	m.ScheduledAt = in.ScheduledAt
	m.DurationMinutes = in.DurationMinutes
	m.Location = location
	m.Status = status
	m.UpdatedAt = s.now()

	if err := s.repos.Meetings.Update(ctx, m); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, model.NewMeetingNotFoundError(meetingID)
		}
		return nil, fmt.Errorf("ミーティングの更新に失敗しました: %w", err)
	}
	s.audit(actor, "edit_meeting", meetingID)
	return m, nil
}

// DeleteMeeting はミーティングを削除する。
func (s *Service) DeleteMeeting(ctx context.Context, actor model.Actor, meetingID string) error {
	if err := requireStaff(actor); err != nil {
		return err
	}
	if err := s.repos.Meetings.Delete(ctx, meetingID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewMeetingNotFoundError(meetingID)
		}
		return fmt.Errorf("ミーティングの削除に失敗しました: %w", err)
	}
	s.audit(actor, "delete_meeting", meetingID)
	return nil
}

// ResolveReport は通報を解決済みにする。
func (s *Service) ResolveReport(ctx context.Context, actor model.Actor, reportID string) error {
	if err := requireStaff(actor); err != nil {
		return err
	}
	if err := s.repos.Reports.Resolve(ctx, reportID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewReportNotFoundError(reportID)
		}
		return fmt.Errorf("通報の更新に失敗しました: %w", err)
	}
	s.audit(actor, "resolve_report", reportID)
	return nil
}

func (s *Service) audit(actor model.Actor, action, targetID string) {
	slog.Info("admin action",
		slog.String("action", action),
		slog.String("target_id", targetID),
		slog.String("staff_id", actor.UserID),
	)
}
