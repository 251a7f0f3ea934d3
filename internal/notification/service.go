// Package notification はユーザー通知の作成・一覧・既読管理を提供する。
package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/skillswap/internal/metrics"
	"github.com/hitoshi/skillswap/internal/model"
	"github.com/hitoshi/skillswap/internal/repository"
)

// maxMessageLength は通知メッセージの最大文字数。
const maxMessageLength = 255

// Counts はナビゲーションバッジ用の件数。
type Counts struct {
	NewSkills           int `json:"new_skills"`
	PendingReceived     int `json:"pending_received"`
	PendingSent         int `json:"pending_sent"`
	UnreadMessages      int `json:"unread_messages"`
	UnreadNotifications int `json:"unread_notifications"`
	Total               int `json:"total"`
}

// Service は通知のサービス層。
// 他モジュールからはNotifyを通じて通知を作成する。
type Service struct {
	repo    repository.NotificationRepository
	stats   repository.StatsRepository
	metrics metrics.MetricsCollector
	now     func() time.Time
}

// NewService はServiceを生成する。
func NewService(repo repository.NotificationRepository, stats repository.StatsRepository, collector metrics.MetricsCollector) *Service {
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &Service{
		repo:    repo,
		stats:   stats,
		metrics: collector,
		now:     time.Now,
	}
}

// Notify は指定ユーザーへの通知を作成する。
// relatedMeetingIDはミーティング関連の通知の場合のみ指定する。
func (s *Service) Notify(ctx context.Context, userID string, nType model.NotificationType, message string, relatedMeetingID *string) error {
	n := &model.Notification{
		ID:               uuid.New().String(),
		UserID:           userID,
		Message:          truncate(message, maxMessageLength),
		Type:             nType,
		CreatedAt:        s.now(),
		RelatedMeetingID: relatedMeetingID,
	}

	if err := s.repo.Create(ctx, n); err != nil {
		s.metrics.RecordNotificationFailure(string(nType))
		return fmt.Errorf("通知の作成に失敗しました: %w", err)
	}

	s.metrics.RecordNotification(string(nType))
	slog.Debug("notification created",
		slog.String("user_id", userID),
		slog.String("type", string(nType)),
	)
	return nil
}

// List はユーザーの通知を新しい順に返す。
func (s *Service) List(ctx context.Context, actor model.Actor) ([]*model.Notification, error) {
	notifications, err := s.repo.ListByUser(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("通知一覧の取得に失敗しました: %w", err)
	}
	if notifications == nil {
		notifications = []*model.Notification{}
	}
	return notifications, nil
}

// MarkRead は通知を既読にする。他ユーザーの通知は見つからないものとして扱う。
func (s *Service) MarkRead(ctx context.Context, actor model.Actor, notificationID string) error {
	err := s.repo.MarkRead(ctx, notificationID, actor.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.NewNotificationNotFoundError(notificationID)
	}
	if err != nil {
		return fmt.Errorf("通知の既読化に失敗しました: %w", err)
	}
	return nil
}

// MarkAllRead はユーザーの全通知を既読にし、更新件数を返す。
func (s *Service) MarkAllRead(ctx context.Context, actor model.Actor) (int64, error) {
	n, err := s.repo.MarkAllRead(ctx, actor.UserID)
	if err != nil {
		return 0, fmt.Errorf("通知の一括既読化に失敗しました: %w", err)
	}
	return n, nil
}

// Counts はナビゲーションバッジ用の件数を返す。
// 新着スキルは当日（UTC）に作成された他ユーザーのスキル。
// Totalは未読通知を除く4項目の合計。
func (s *Service) Counts(ctx context.Context, actor model.Actor) (*Counts, error) {
	now := s.now().UTC()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	bc, err := s.stats.BadgeCounts(ctx, actor.UserID, startOfDay)
	if err != nil {
		return nil, fmt.Errorf("バッジ件数の取得に失敗しました: %w", err)
	}

	return &Counts{
		NewSkills:           bc.NewSkills,
		PendingReceived:     bc.PendingReceived,
		PendingSent:         bc.PendingSent,
		UnreadMessages:      bc.UnreadMessages,
		UnreadNotifications: bc.UnreadNotifications,
		Total:               bc.NewSkills + bc.PendingReceived + bc.PendingSent + bc.UnreadMessages,
	}, nil
}

// truncate は文字列を最大max文字（rune単位）に切り詰める。
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
