// Package review はスキルレビューの追加・編集・削除を提供する。
package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/skillswap/internal/model"
	"github.com/hitoshi/skillswap/internal/repository"
	"github.com/hitoshi/skillswap/internal/security"
)

const (
	minRating        = 0
	maxRating        = 5
	maxCommentLength = 2000
)

// NotificationSink は通知の送信先。
type NotificationSink interface {
	Notify(ctx context.Context, userID string, nType model.NotificationType, message string, relatedMeetingID *string) error
}

// Input はレビューの入力値。
type Input struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// Service はレビューのサービス層。
type Service struct {
	reviews   repository.ReviewRepository
	skills    repository.SkillRepository
	users     repository.UserRepository
	sink      NotificationSink
	sanitizer security.ContentSanitizerService
	now       func() time.Time
}

// NewService はServiceを生成する。
func NewService(
	reviews repository.ReviewRepository,
	skills repository.SkillRepository,
	users repository.UserRepository,
	sink NotificationSink,
	sanitizer security.ContentSanitizerService,
) *Service {
	return &Service{
		reviews:   reviews,
		skills:    skills,
		users:     users,
		sink:      sink,
		sanitizer: sanitizer,
		now:       time.Now,
	}
}

// Add はスキルにレビューを追加する。オーナー自身もレビューできる。
// レビュー者がオーナーでない場合はオーナーにreview通知を送る。
func (s *Service) Add(ctx context.Context, actor model.Actor, skillID string, in Input) (*model.Review, error) {
	comment, err := s.validate(in)
	if err != nil {
		return nil, err
	}

	skill, err := s.skills.FindByID(ctx, skillID)
	if err != nil {
		return nil, fmt.Errorf("スキルの取得に失敗しました: %w", err)
	}
	if skill == nil {
		return nil, model.NewSkillNotFoundError(skillID)
	}

	review := &model.Review{
		ID:         uuid.New().String(),
		SkillID:    skillID,
		ReviewerID: actor.UserID,
		Rating:     in.Rating,
		Comment:    comment,
		CreatedAt:  s.now(),
	}
	if err := s.reviews.Create(ctx, review); err != nil {
		return nil, fmt.Errorf("レビューの登録に失敗しました: %w", err)
	}

	slog.Info("review added",
		slog.String("review_id", review.ID),
		slog.String("skill_id", skillID),
		slog.String("reviewer_id", actor.UserID),
	)

	if skill.OwnerID != actor.UserID && s.sink != nil {
		msg := fmt.Sprintf("%s さんが「%s」にレビューを投稿しました（評価 %d）。",
			s.username(ctx, actor.UserID), skill.Title, in.Rating)
		if err := s.sink.Notify(ctx, skill.OwnerID, model.NotificationReview, msg, nil); err != nil {
			slog.Error("failed to deliver notification",
				slog.String("user_id", skill.OwnerID),
				slog.String("type", string(model.NotificationReview)),
				slog.String("error", err.Error()),
			)
		}
	}

	return review, nil
}

// Edit はレビューの評価とコメントを更新する。レビュー者のみ実行できる。
func (s *Service) Edit(ctx context.Context, actor model.Actor, reviewID string, in Input) (*model.Review, error) {
	review, err := s.findOwned(ctx, actor, reviewID, "自分のレビューのみ編集できます。")
	if err != nil {
		return nil, err
	}
	comment, err := s.validate(in)
	if err != nil {
		return nil, err
	}

	review.Rating = in.Rating
	review.Comment = comment
	if err := s.reviews.Update(ctx, review); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, model.NewReviewNotFoundError(reviewID)
		}
		return nil, fmt.Errorf("レビューの更新に失敗しました: %w", err)
	}

	slog.Info("review edited", slog.String("review_id", reviewID))
	return review, nil
}

// Delete はレビューを削除する。レビュー者のみ実行できる。削除したレビューを返す。
func (s *Service) Delete(ctx context.Context, actor model.Actor, reviewID string) (*model.Review, error) {
	review, err := s.findOwned(ctx, actor, reviewID, "自分のレビューのみ削除できます。")
	if err != nil {
		return nil, err
	}

	if err := s.reviews.Delete(ctx, reviewID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, model.NewReviewNotFoundError(reviewID)
		}
		return nil, fmt.Errorf("レビューの削除に失敗しました: %w", err)
	}

	slog.Info("review deleted", slog.String("review_id", reviewID))
	return review, nil
}

func (s *Service) findOwned(ctx context.Context, actor model.Actor, reviewID, forbidden string) (*model.Review, error) {
	review, err := s.reviews.FindByID(ctx, reviewID)
	if err != nil {
		return nil, fmt.Errorf("レビューの取得に失敗しました: %w", err)
	}
	if review == nil {
		return nil, model.NewReviewNotFoundError(reviewID)
	}
	if review.ReviewerID != actor.UserID {
		return nil, model.NewForbiddenError(forbidden)
	}
	return review, nil
}

// validate は評価の範囲を検証し、サニタイズ済みのコメントを返す。
func (s *Service) validate(in Input) (string, error) {
	if in.Rating < minRating || in.Rating > maxRating {
		return "", model.NewValidationError(fmt.Sprintf("評価は%dから%dの範囲で指定してください。", minRating, maxRating))
	}
	comment := s.sanitizer.Sanitize(in.Comment)
	if len([]rune(comment)) > maxCommentLength {
		return "", model.NewValidationError(fmt.Sprintf("コメントは%d文字以内で入力してください。", maxCommentLength))
	}
	return comment, nil
}

func (s *Service) username(ctx context.Context, userID string) string {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil || u == nil {
		return "ユーザー"
	}
	return u.Username
}
