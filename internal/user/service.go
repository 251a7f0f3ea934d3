// Package user はプロフィール、ユーザー検索、退会のドメインロジックを提供する。
package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/hitoshi/skillswap/internal/model"
	"github.com/hitoshi/skillswap/internal/repository"
	"github.com/hitoshi/skillswap/internal/security"
)

// searchLimit はユーザー検索の最大件数。
const searchLimit = 10

// ProfileView はプロフィール画面に表示する情報。
type ProfileView struct {
	User    *model.User
	Profile *model.Profile
	Skills  []repository.SkillWithStats
	Reviews []repository.ReviewWithNames
}

// ProfileInput はプロフィール更新の入力値。
type ProfileInput struct {
	PhotoURL      string `json:"photo_url" validate:"omitempty,url,max=500"`
	Bio           string `json:"bio" validate:"max=2000"`
	Course        string `json:"course" validate:"max=100"`
	Year          int    `json:"year" validate:"min=0,max=10"`
	SkillsOffered string `json:"skills_offered" validate:"max=1000"`
	SkillsWanted  string `json:"skills_wanted" validate:"max=1000"`
}

// Service はユーザー管理のサービス層。
type Service struct {
	userRepo    repository.UserRepository
	profileRepo repository.ProfileRepository
	sessionRepo repository.SessionRepository
	skillRepo   repository.SkillRepository
	reviewRepo  repository.ReviewRepository
	sanitizer   security.ContentSanitizerService
	validate    *validator.Validate
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	userRepo repository.UserRepository,
	profileRepo repository.ProfileRepository,
	sessionRepo repository.SessionRepository,
	skillRepo repository.SkillRepository,
	reviewRepo repository.ReviewRepository,
	sanitizer security.ContentSanitizerService,
) *Service {
	return &Service{
		userRepo:    userRepo,
		profileRepo: profileRepo,
		sessionRepo: sessionRepo,
		skillRepo:   skillRepo,
		reviewRepo:  reviewRepo,
		sanitizer:   sanitizer,
		validate:    validator.New(),
	}
}

// GetProfile はユーザー名からプロフィール、スキル、受け取ったレビューを取得する。
func (s *Service) GetProfile(ctx context.Context, username string) (*ProfileView, error) {
	u, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if u == nil {
		return nil, model.NewUserNotFoundError()
	}

	profile, err := s.profileRepo.FindByUserID(ctx, u.ID)
	if err != nil {
		return nil, fmt.Errorf("プロフィールの取得に失敗しました: %w", err)
	}
	if profile == nil {
		profile = &model.Profile{UserID: u.ID}
	}

	skills, err := s.skillRepo.ListByOwner(ctx, u.ID)
	if err != nil {
		return nil, fmt.Errorf("スキルの取得に失敗しました: %w", err)
	}
	reviews, err := s.reviewRepo.ListBySkillOwner(ctx, u.ID)
	if err != nil {
		return nil, fmt.Errorf("レビューの取得に失敗しました: %w", err)
	}
	if skills == nil {
		skills = []repository.SkillWithStats{}
	}
	if reviews == nil {
		reviews = []repository.ReviewWithNames{}
	}

	return &ProfileView{User: u, Profile: profile, Skills: skills, Reviews: reviews}, nil
}

// UpdateProfile はactor自身のプロフィールを更新する。自由記述の項目はサニタイズして保存する。
func (s *Service) UpdateProfile(ctx context.Context, actor model.Actor, in ProfileInput) (*model.Profile, error) {
	in.PhotoURL = strings.TrimSpace(in.PhotoURL)
	if err := s.validate.Struct(in); err != nil {
		return nil, model.NewValidationError("プロフィールの入力内容が正しくありません。")
	}

	current, err := s.profileRepo.FindByUserID(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("プロフィールの取得に失敗しました: %w", err)
	}
	if current == nil {
		return nil, model.NewUserNotFoundError()
	}

	current.PhotoURL = in.PhotoURL
	current.Bio = s.sanitizer.Sanitize(in.Bio)
	current.Course = s.sanitizer.StripTags(in.Course)
	current.Year = in.Year
	current.SkillsOffered = s.sanitizer.StripTags(in.SkillsOffered)
	current.SkillsWanted = s.sanitizer.StripTags(in.SkillsWanted)
	current.UpdatedAt = time.Now()

	if err := s.profileRepo.Update(ctx, current); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, model.NewUserNotFoundError()
		}
		return nil, fmt.Errorf("プロフィールの更新に失敗しました: %w", err)
	}

	slog.Info("profile updated", slog.String("user_id", actor.UserID))
	return current, nil
}

// SearchUsers はユーザー名・氏名の部分一致でactor以外のユーザーを最大10件返す。
// 空のクエリには空の一覧を返す。
func (s *Service) SearchUsers(ctx context.Context, actor model.Actor, query string) ([]*model.User, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []*model.User{}, nil
	}

	users, err := s.userRepo.Search(ctx, query, actor.UserID, searchLimit)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの検索に失敗しました: %w", err)
	}
	if users == nil {
		users = []*model.User{}
	}
	return users, nil
}

// DeleteAccount はactorの退会処理を実行する。
// 削除順序: sessions → user（+ CASCADE: profiles, skills, skill_requests, reviews,
// messages, meetings, notifications, reports）
func (s *Service) DeleteAccount(ctx context.Context, actor model.Actor) error {
	// ユーザー存在確認
	u, err := s.userRepo.FindByID(ctx, actor.UserID)
	if err != nil {
		return fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if u == nil {
		return model.NewUserNotFoundError()
	}

	slog.Info("退会処理を開始します",
		slog.String("user_id", actor.UserID),
	)

	// 1. セッションを削除
	if s.sessionRepo != nil {
		if err := s.sessionRepo.DeleteByUserID(ctx, actor.UserID); err != nil {
			return fmt.Errorf("セッションの削除に失敗しました: %w", err)
		}
	}

	// 2. ユーザーを削除
	if err := s.userRepo.DeleteByID(ctx, actor.UserID); err != nil {
		return fmt.Errorf("ユーザーの削除に失敗しました: %w", err)
	}

	slog.Info("退会処理が完了しました",
		slog.String("user_id", actor.UserID),
	)

	return nil
}
