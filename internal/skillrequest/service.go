// Package skillrequest はスキルリクエストのライフサイクル管理を提供する。
//
// 状態遷移:
//
//	PENDING -> ACCEPTED | REJECTED
//	ACCEPTED -> IN_PROGRESS
//	IN_PROGRESS -> COMPLETED
//
// REJECTEDとCOMPLETEDは終端状態。失敗した操作は状態を変更しない。
package skillrequest

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

// NotificationSink は通知の送信先。
type NotificationSink interface {
	Notify(ctx context.Context, userID string, nType model.NotificationType, message string, relatedMeetingID *string) error
}

// Lists はユーザーが送信・受信したリクエストの一覧。
type Lists struct {
	Sent     []repository.SkillRequestWithNames
	Received []repository.SkillRequestWithNames
}

// Service はスキルリクエストのライフサイクルを管理するサービス層。
type Service struct {
	requests repository.SkillRequestRepository
	skills   repository.SkillRepository
	users    repository.UserRepository
	sink     NotificationSink
	metrics  metrics.MetricsCollector
	now      func() time.Time
}

// NewService はServiceを生成する。
func NewService(
	requests repository.SkillRequestRepository,
	skills repository.SkillRepository,
	users repository.UserRepository,
	sink NotificationSink,
	collector metrics.MetricsCollector,
) *Service {
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &Service{
		requests: requests,
		skills:   skills,
		users:    users,
		sink:     sink,
		metrics:  collector,
		now:      time.Now,
	}
}

// transition は1つの状態遷移操作の定義。
type transition struct {
	name    string
	from    model.SkillRequestStatus
	to      model.SkillRequestStatus
	allowed func(actor model.Actor, req *model.SkillRequest) bool
	// notify は遷移成功後の通知先と内容を返す。通知しない場合はrecipientが空。
	notify func(ctx context.Context, s *Service, actor model.Actor, req *model.SkillRequest) (recipient string, nType model.NotificationType, message string)
}

func ownerOnly(actor model.Actor, req *model.SkillRequest) bool {
	return actor.UserID == req.OwnerID
}

func ownerOrRequester(actor model.Actor, req *model.SkillRequest) bool {
	return actor.UserID == req.OwnerID || actor.UserID == req.RequesterID
}

var (
	acceptTransition = transition{
		name:    "accept",
		from:    model.SkillRequestPending,
		to:      model.SkillRequestAccepted,
		allowed: ownerOnly,
	}
	rejectTransition = transition{
		name:    "reject",
		from:    model.SkillRequestPending,
		to:      model.SkillRequestRejected,
		allowed: ownerOnly,
	}
	startTransition = transition{
		name:    "start",
		from:    model.SkillRequestAccepted,
		to:      model.SkillRequestInProgress,
		allowed: ownerOnly,
		notify: func(ctx context.Context, s *Service, actor model.Actor, req *model.SkillRequest) (string, model.NotificationType, string) {
			msg := fmt.Sprintf("「%s」のセッションが %s さんとの間で開始されました。",
				s.skillTitle(ctx, req.SkillID), s.username(ctx, req.OwnerID))
			return req.RequesterID, model.NotificationSkillSession, msg
		},
	}
	completeTransition = transition{
		name:    "complete",
		from:    model.SkillRequestInProgress,
		to:      model.SkillRequestCompleted,
		allowed: ownerOrRequester,
		notify: func(ctx context.Context, s *Service, actor model.Actor, req *model.SkillRequest) (string, model.NotificationType, string) {
			recipient := req.OwnerID
			if actor.UserID == req.OwnerID {
				recipient = req.RequesterID
			}
			msg := fmt.Sprintf("%s さんが「%s」のセッションを完了しました。",
				s.username(ctx, actor.UserID), s.skillTitle(ctx, req.SkillID))
			return recipient, model.NotificationSkillCompleted, msg
		},
	}
)

// Request はactorからスキルへのリクエストをPENDINGで作成する。
// 自分のスキルへのリクエスト、および同じスキルへの既存リクエスト（状態を問わない）がある場合はConflict。
func (s *Service) Request(ctx context.Context, actor model.Actor, skillID string) (*model.SkillRequest, error) {
	if !validID(skillID) {
		return nil, s.reject("request", model.NewSkillNotFoundError(skillID))
	}
	skill, err := s.skills.FindByID(ctx, skillID)
	if err != nil {
		return nil, fmt.Errorf("スキルの取得に失敗しました: %w", err)
	}
	if skill == nil {
		return nil, s.reject("request", model.NewSkillNotFoundError(skillID))
	}
	if skill.OwnerID == actor.UserID {
		return nil, s.reject("request", model.NewOwnSkillRequestError())
	}

	existing, err := s.requests.FindBySkillAndRequester(ctx, skillID, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("既存リクエストの確認に失敗しました: %w", err)
	}
	if existing != nil {
		return nil, s.reject("request", model.NewDuplicateSkillRequestError())
	}

	req := &model.SkillRequest{
		ID:          uuid.New().String(),
		SkillID:     skillID,
		RequesterID: actor.UserID,
		OwnerID:     skill.OwnerID,
		Status:      model.SkillRequestPending,
		CreatedAt:   s.now(),
	}
	if err := s.requests.Create(ctx, req); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, s.reject("request", model.NewDuplicateSkillRequestError())
		}
		return nil, fmt.Errorf("リクエストの作成に失敗しました: %w", err)
	}

	s.metrics.RecordTransition(string(model.SkillRequestPending))
	slog.Info("skill request created",
		slog.String("request_id", req.ID),
		slog.String("skill_id", skillID),
		slog.String("requester_id", actor.UserID),
	)
	return req, nil
}

// Accept はPENDINGのリクエストを承認する。スキルオーナーのみ実行できる。
func (s *Service) Accept(ctx context.Context, actor model.Actor, requestID string) (*model.SkillRequest, error) {
	return s.apply(ctx, actor, requestID, acceptTransition)
}

// Reject はPENDINGのリクエストを拒否する。スキルオーナーのみ実行できる。
func (s *Service) Reject(ctx context.Context, actor model.Actor, requestID string) (*model.SkillRequest, error) {
	return s.apply(ctx, actor, requestID, rejectTransition)
}

// Start はACCEPTEDのリクエストのセッションを開始する。スキルオーナーのみ実行できる。
// started_atを記録し、リクエスト者にskill_session通知を1件送る。
func (s *Service) Start(ctx context.Context, actor model.Actor, requestID string) (*model.SkillRequest, error) {
	return s.apply(ctx, actor, requestID, startTransition)
}

// Complete はIN_PROGRESSのリクエストのセッションを完了する。オーナーまたはリクエスト者が実行できる。
// completed_atを記録し、相手側にskill_completed通知を1件送る。
func (s *Service) Complete(ctx context.Context, actor model.Actor, requestID string) (*model.SkillRequest, error) {
	return s.apply(ctx, actor, requestID, completeTransition)
}

// ListForUser はactorが送信・受信したリクエストを返す。
func (s *Service) ListForUser(ctx context.Context, actor model.Actor) (*Lists, error) {
	sent, err := s.requests.ListByRequester(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("送信済みリクエストの取得に失敗しました: %w", err)
	}
	received, err := s.requests.ListByOwner(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("受信リクエストの取得に失敗しました: %w", err)
	}
	if sent == nil {
		sent = []repository.SkillRequestWithNames{}
	}
	if received == nil {
		received = []repository.SkillRequestWithNames{}
	}
	return &Lists{Sent: sent, Received: received}, nil
}

// apply は権限と現在の状態を検証し、条件付き更新で状態を遷移させる。
// 検証の順序は NotFound -> Authorization -> InvalidTransition。
func (s *Service) apply(ctx context.Context, actor model.Actor, requestID string, t transition) (*model.SkillRequest, error) {
	if !validID(requestID) {
		return nil, s.reject(t.name, model.NewSkillRequestNotFoundError(requestID))
	}
	req, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("リクエストの取得に失敗しました: %w", err)
	}
	if req == nil {
		return nil, s.reject(t.name, model.NewSkillRequestNotFoundError(requestID))
	}
	if !t.allowed(actor, req) {
		return nil, s.reject(t.name, model.NewForbiddenError("このリクエストを操作する権限がありません。"))
	}
	if req.Status != t.from {
		return nil, s.reject(t.name, model.NewInvalidTransitionError(t.name, req.Status))
	}

	at := s.now()
	ok, err := s.requests.TransitionStatus(ctx, req.ID, t.from, t.to, at)
	if err != nil {
		return nil, fmt.Errorf("リクエストの状態更新に失敗しました: %w", err)
	}
	if !ok {
		// 読み取り後に他の操作で状態が変わった
		current := req.Status
		if latest, err := s.requests.FindByID(ctx, req.ID); err == nil && latest != nil {
			current = latest.Status
		}
		return nil, s.reject(t.name, model.NewInvalidTransitionError(t.name, current))
	}

	req.Status = t.to
	switch t.to {
	case model.SkillRequestInProgress:
		req.StartedAt = &at
	case model.SkillRequestCompleted:
		req.CompletedAt = &at
	}

	s.metrics.RecordTransition(string(t.to))
	slog.Info("skill request transitioned",
		slog.String("request_id", req.ID),
		slog.String("operation", t.name),
		slog.String("from", string(t.from)),
		slog.String("to", string(t.to)),
		slog.String("actor_id", actor.UserID),
	)

	if t.notify != nil {
		recipient, nType, message := t.notify(ctx, s, actor, req)
		s.deliver(ctx, recipient, nType, message)
	}

	return req, nil
}

// validID はIDがUUIDとして解釈できるかどうかを返す。
// 解釈できないIDに一致するリクエストやスキルは存在しない。
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// deliver は通知を送信する。失敗はログに記録し、呼び出し元には返さない。
func (s *Service) deliver(ctx context.Context, userID string, nType model.NotificationType, message string) {
	if s.sink == nil || userID == "" {
		return
	}
	if err := s.sink.Notify(ctx, userID, nType, message, nil); err != nil {
		slog.Error("failed to deliver notification",
			slog.String("user_id", userID),
			slog.String("type", string(nType)),
			slog.String("error", err.Error()),
		)
	}
}

// reject は拒否された操作をメトリクスに記録してエラーを返す。
func (s *Service) reject(operation string, apiErr *model.APIError) error {
	s.metrics.RecordTransitionRejected(operation, string(apiErr.Kind))
	return apiErr
}

// skillTitle は通知文に使うスキル名を返す。取得できない場合は汎用の名称を返す。
func (s *Service) skillTitle(ctx context.Context, skillID string) string {
	skill, err := s.skills.FindByID(ctx, skillID)
	if err != nil || skill == nil {
		return "スキル"
	}
	return skill.Title
}

// username は通知文に使うユーザー名を返す。取得できない場合は汎用の名称を返す。
func (s *Service) username(ctx context.Context, userID string) string {
	if s.users == nil {
		return "ユーザー"
	}
	u, err := s.users.FindByID(ctx, userID)
	if err != nil || u == nil {
		return "ユーザー"
	}
	return u.Username
}
