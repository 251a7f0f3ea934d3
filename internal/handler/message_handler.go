package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/skillswap/internal/message"
	"github.com/hitoshi/skillswap/internal/model"
	"github.com/hitoshi/skillswap/internal/repository"
)

// MessageServiceInterface はメッセージハンドラーが必要とするサービスインターフェース。
type MessageServiceInterface interface {
	Send(ctx context.Context, actor model.Actor, in message.SendInput) (*model.Message, error)
	Inbox(ctx context.Context, actor model.Actor) ([]*model.Message, error)
	Conversation(ctx context.Context, actor model.Actor, username string) (*message.Conversation, error)
	Chats(ctx context.Context, actor model.Actor) ([]repository.ChatSummary, error)
	MarkRead(ctx context.Context, actor model.Actor, username string) (int64, error)
}

// MessageHandler はダイレクトメッセージのHTTPハンドラー。
type MessageHandler struct {
	service MessageServiceInterface
}

// NewMessageHandler はMessageHandlerを生成する。
func NewMessageHandler(service MessageServiceInterface) *MessageHandler {
	return &MessageHandler{service: service}
}

// Inbox は自分が送受信したメッセージを返す。
// GET /api/messages
func (h *MessageHandler) Inbox(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	messages, err := h.service.Inbox(r.Context(), actor)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"messages": toMessageResponses(messages)})
}

// Send はメッセージを送信する。
// POST /api/messages
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var in message.SendInput
	if !decodeJSON(w, r, &in) {
		return
	}

	sent, err := h.service.Send(r.Context(), actor, in)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toMessageResponse(sent))
}

// Chats は会話相手ごとの最新メッセージと未読数を返す。
// GET /api/chats
func (h *MessageHandler) Chats(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	chats, err := h.service.Chats(r.Context(), actor)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"chats": toChatResponses(chats)})
}

// Conversation は指定ユーザーとの会話を既読にして返す。
// GET /api/conversations/{username}
func (h *MessageHandler) Conversation(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	conv, err := h.service.Conversation(r.Context(), actor, chi.URLParam(r, "username"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"other":    toUserResponse(conv.Other, false),
		"messages": toMessageResponses(conv.Messages),
	})
}

// MarkRead は指定ユーザーからの未読メッセージを既読にする。
// POST /api/conversations/{username}/read
func (h *MessageHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	count, err := h.service.MarkRead(r.Context(), actor, chi.URLParam(r, "username"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "marked": count})
}
