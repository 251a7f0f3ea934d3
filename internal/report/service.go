// Package report はユーザーによる他ユーザーの通報を提供する。
package report

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/skillswap/internal/model"
	"github.com/hitoshi/skillswap/internal/repository"
	"github.com/hitoshi/skillswap/internal/security"
)

const maxReasonLength = 1000

// Service は通報のサービス層。
type Service struct {
	reports   repository.ReportRepository
	users     repository.UserRepository
	sanitizer security.ContentSanitizerService
	now       func() time.Time
}

// NewService はServiceを生成する。
func NewService(
	reports repository.ReportRepository,
	users repository.UserRepository,
	sanitizer security.ContentSanitizerService,
) *Service {
	return &Service{
		reports:   reports,
		users:     users,
		sanitizer: sanitizer,
		now:       time.Now,
	}
}

// Create はactorから指定ユーザーへの通報を作成する。理由は必須で、自分自身は通報できない。
func (s *Service) Create(ctx context.Context, actor model.Actor, reportedUsername, reason string) (*model.Report, error) {
	reason = s.sanitizer.StripTags(reason)
	if reason == "" {
		return nil, model.NewValidationError("通報理由は必須です。")
	}
	if len([]rune(reason)) > maxReasonLength {
		return nil, model.NewValidationError(fmt.Sprintf("通報理由は%d文字以内で入力してください。", maxReasonLength))
	}

	reported, err := s.users.FindByUsername(ctx, reportedUsername)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if reported == nil {
		return nil, model.NewUserNotFoundError()
	}
	if reported.ID == actor.UserID {
		return nil, model.NewSelfReportError()
	}

	r := &model.Report{
		ID:             uuid.New().String(),
		ReporterID:     actor.UserID,
		ReportedUserID: reported.ID,
		Reason:         reason,
		CreatedAt:      s.now(),
	}
	if err := s.reports.Create(ctx, r); err != nil {
		return nil, fmt.Errorf("通報の登録に失敗しました: %w", err)
	}

	slog.Info("user reported",
		slog.String("report_id", r.ID),
		slog.String("reporter_id", actor.UserID),
		slog.String("reported_user_id", reported.ID),
	)
	return r, nil
}
