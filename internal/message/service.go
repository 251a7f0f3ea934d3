// Package message はユーザー間のダイレクトメッセージを提供する。
package message

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/hitoshi/skillswap/internal/model"
	"github.com/hitoshi/skillswap/internal/repository"
	"github.com/hitoshi/skillswap/internal/security"
)

const maxContentLength = 5000

// NotificationSink は通知の送信先。
type NotificationSink interface {
	Notify(ctx context.Context, userID string, nType model.NotificationType, message string, relatedMeetingID *string) error
}

// SendInput はメッセージ送信の入力値。
type SendInput struct {
	ToUserID      string  `json:"to_user_id"`
	Content       string  `json:"content"`
	AttachmentURL string  `json:"attachment_url"`
	ReplyToID     *string `json:"reply_to_id"`
}

// Conversation は2ユーザー間の会話。
type Conversation struct {
	Other    *model.User
	Messages []*model.Message
}

// Service はメッセージのサービス層。
type Service struct {
	messages  repository.MessageRepository
	users     repository.UserRepository
	sink      NotificationSink
	sanitizer security.ContentSanitizerService
	validate  *validator.Validate
	now       func() time.Time
}

// NewService はServiceを生成する。
func NewService(
	messages repository.MessageRepository,
	users repository.UserRepository,
	sink NotificationSink,
	sanitizer security.ContentSanitizerService,
) *Service {
	return &Service{
		messages:  messages,
		users:     users,
		sink:      sink,
		sanitizer: sanitizer,
		validate:  validator.New(),
		now:       time.Now,
	}
}

// Send はactorからメッセージを送信し、受信者にmessage通知を送る。
// 本文と添付URLのどちらかが必要。返信先は送受信者間のメッセージである必要がある。
func (s *Service) Send(ctx context.Context, actor model.Actor, in SendInput) (*model.Message, error) {
	content := s.sanitizer.Sanitize(in.Content)
	attachment := strings.TrimSpace(in.AttachmentURL)

	if content == "" && attachment == "" {
		return nil, model.NewValidationError("メッセージ本文または添付ファイルが必要です。")
	}
	if len([]rune(content)) > maxContentLength {
		return nil, model.NewValidationError(fmt.Sprintf("メッセージは%d文字以内で入力してください。", maxContentLength))
	}
	if attachment != "" {
		if err := s.validate.Var(attachment, "url,max=500"); err != nil {
			return nil, model.NewValidationError("添付ファイルのURLが正しくありません。")
		}
	}

	recipient, err := s.users.FindByID(ctx, in.ToUserID)
	if err != nil {
		return nil, fmt.Errorf("受信者の取得に失敗しました: %w", err)
	}
	if recipient == nil {
		return nil, model.NewUserNotFoundError()
	}

	if in.ReplyToID != nil && *in.ReplyToID != "" {
		parent, err := s.messages.FindByID(ctx, *in.ReplyToID)
		if err != nil {
			return nil, fmt.Errorf("返信先メッセージの取得に失敗しました: %w", err)
		}
		if parent == nil {
			return nil, model.NewMessageNotFoundError(*in.ReplyToID)
		}
		if !between(parent, actor.UserID, recipient.ID) {
			return nil, model.NewValidationError("返信先のメッセージがこの会話に含まれていません。")
		}
	} else {
		in.ReplyToID = nil
	}

	msg := &model.Message{
		ID:            uuid.New().String(),
		FromUserID:    actor.UserID,
		ToUserID:      recipient.ID,
		Content:       content,
		SentAt:        s.now(),
		AttachmentURL: attachment,
		ReplyToID:     in.ReplyToID,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("メッセージの送信に失敗しました: %w", err)
	}

	slog.Info("message sent",
		slog.String("message_id", msg.ID),
		slog.String("from_user_id", actor.UserID),
		slog.String("to_user_id", recipient.ID),
	)

	if s.sink != nil && recipient.ID != actor.UserID {
		text := fmt.Sprintf("%s さんから新しいメッセージが届きました。", s.username(ctx, actor.UserID))
		if err := s.sink.Notify(ctx, recipient.ID, model.NotificationMessage, text, nil); err != nil {
			slog.Error("failed to deliver notification",
				slog.String("user_id", recipient.ID),
				slog.String("type", string(model.NotificationMessage)),
				slog.String("error", err.Error()),
			)
		}
	}

	return msg, nil
}

// Inbox はactorが送受信した全メッセージを送信日時順に返す。
func (s *Service) Inbox(ctx context.Context, actor model.Actor) ([]*model.Message, error) {
	msgs, err := s.messages.ListForUser(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("メッセージの取得に失敗しました: %w", err)
	}
	if msgs == nil {
		msgs = []*model.Message{}
	}
	return msgs, nil
}

// Conversation はactorと指定ユーザーの会話を返し、相手からの未読メッセージを既読にする。
func (s *Service) Conversation(ctx context.Context, actor model.Actor, username string) (*Conversation, error) {
	other, err := s.findUser(ctx, username)
	if err != nil {
		return nil, err
	}

	if _, err := s.messages.MarkConversationRead(ctx, actor.UserID, other.ID); err != nil {
		return nil, fmt.Errorf("既読処理に失敗しました: %w", err)
	}

	msgs, err := s.messages.ListConversation(ctx, actor.UserID, other.ID)
	if err != nil {
		return nil, fmt.Errorf("会話の取得に失敗しました: %w", err)
	}
	if msgs == nil {
		msgs = []*model.Message{}
	}
	return &Conversation{Other: other, Messages: msgs}, nil
}

// Chats は会話相手ごとの最新メッセージと未読数を新しい順に返す。
func (s *Service) Chats(ctx context.Context, actor model.Actor) ([]repository.ChatSummary, error) {
	chats, err := s.messages.ListChats(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("会話一覧の取得に失敗しました: %w", err)
	}
	if chats == nil {
		chats = []repository.ChatSummary{}
	}
	return chats, nil
}

// MarkRead は指定ユーザーからの未読メッセージを既読にし、件数を返す。
func (s *Service) MarkRead(ctx context.Context, actor model.Actor, username string) (int64, error) {
	other, err := s.findUser(ctx, username)
	if err != nil {
		return 0, err
	}
	n, err := s.messages.MarkConversationRead(ctx, actor.UserID, other.ID)
	if err != nil {
		return 0, fmt.Errorf("既読処理に失敗しました: %w", err)
	}
	return n, nil
}

func (s *Service) findUser(ctx context.Context, username string) (*model.User, error) {
	u, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if u == nil {
		return nil, model.NewUserNotFoundError()
	}
	return u, nil
}

func (s *Service) username(ctx context.Context, userID string) string {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil || u == nil {
		return "ユーザー"
	}
	return u.Username
}

// between はメッセージが2ユーザー間でやり取りされたものかを返す。
func between(m *model.Message, a, b string) bool {
	return (m.FromUserID == a && m.ToUserID == b) || (m.FromUserID == b && m.ToUserID == a)
}
