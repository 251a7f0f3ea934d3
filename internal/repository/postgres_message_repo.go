package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/skillswap/internal/model"
)

const messageColumns = `id, from_user_id, to_user_id, content, sent_at, is_read, attachment_url, reply_to_id`

// PostgresMessageRepo はPostgreSQLを使用したメッセージリポジトリ。
type PostgresMessageRepo struct {
	db *sql.DB
}

// NewPostgresMessageRepo はPostgresMessageRepoを生成する。
func NewPostgresMessageRepo(db *sql.DB) *PostgresMessageRepo {
	return &PostgresMessageRepo{db: db}
}

// FindByID は指定IDのメッセージを取得する。見つからない場合はnilを返す。
func (r *PostgresMessageRepo) FindByID(ctx context.Context, id string) (*model.Message, error) {
	msg, err := scanMessage(r.db.QueryRowContext(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE id = $1`,
		id,
	))
	if isNoRow(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find message: %w", err)
	}
	return msg, nil
}

// Create はメッセージを作成する。
func (r *PostgresMessageRepo) Create(ctx context.Context, msg *model.Message) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO messages (id, from_user_id, to_user_id, content, sent_at, is_read, attachment_url, reply_to_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		msg.ID, msg.FromUserID, msg.ToUserID, msg.Content, msg.SentAt, msg.IsRead, msg.AttachmentURL, msg.ReplyToID,
	)
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

// ListForUser は指定ユーザーが送受信した全メッセージを送信日時順に返す。
func (r *PostgresMessageRepo) ListForUser(ctx context.Context, userID string) ([]*model.Message, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+messageColumns+`
		 FROM messages
		 WHERE from_user_id = $1 OR to_user_id = $1
		 ORDER BY sent_at`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()
	return collectMessages(rows)
}

// ListConversation は2ユーザー間のメッセージを送信日時順に返す。
func (r *PostgresMessageRepo) ListConversation(ctx context.Context, userID, otherID string) ([]*model.Message, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+messageColumns+`
		 FROM messages
		 WHERE (from_user_id = $1 AND to_user_id = $2) OR (from_user_id = $2 AND to_user_id = $1)
		 ORDER BY sent_at`,
		userID, otherID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversation: %w", err)
	}
	defer rows.Close()
	return collectMessages(rows)
}

// MarkConversationRead はotherIDからuserIDへの未読メッセージを既読にする。
func (r *PostgresMessageRepo) MarkConversationRead(ctx context.Context, userID, otherID string) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE messages SET is_read = true
		 WHERE to_user_id = $1 AND from_user_id = $2 AND is_read = false`,
		userID, otherID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to mark conversation read: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

// ListChats は会話相手ごとの最新メッセージと未読数を新しい順に返す。
func (r *PostgresMessageRepo) ListChats(ctx context.Context, userID string) ([]ChatSummary, error) {
	rows, err := r.db.QueryContext(ctx,
		`WITH latest AS (
		     SELECT DISTINCT ON (partner_id) partner_id, `+messageColumns+`
		     FROM (
		         SELECT CASE WHEN from_user_id = $1 THEN to_user_id ELSE from_user_id END AS partner_id, `+messageColumns+`
		         FROM messages
		         WHERE from_user_id = $1 OR to_user_id = $1
		     ) conv
		     ORDER BY partner_id, sent_at DESC
		 )
		 SELECT l.partner_id, u.username, u.first_name, u.last_name,
		        l.id, l.from_user_id, l.to_user_id, l.content, l.sent_at, l.is_read, l.attachment_url, l.reply_to_id,
		        (SELECT count(*) FROM messages x
		         WHERE x.from_user_id = l.partner_id AND x.to_user_id = $1 AND x.is_read = false)
		 FROM latest l
		 JOIN users u ON u.id = l.partner_id
		 ORDER BY l.sent_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list chats: %w", err)
	}
	defer rows.Close()

	var chats []ChatSummary
	for rows.Next() {
		var c ChatSummary
		var replyTo sql.NullString
		m := &c.LastMessage
		err := rows.Scan(&c.PartnerID, &c.PartnerUsername, &c.PartnerFirstName, &c.PartnerLastName,
			&m.ID, &m.FromUserID, &m.ToUserID, &m.Content, &m.SentAt, &m.IsRead, &m.AttachmentURL, &replyTo,
			&c.UnreadCount)
		if err != nil {
			return nil, fmt.Errorf("failed to scan chat: %w", err)
		}
		m.ReplyToID = nullStringPtr(replyTo)
		chats = append(chats, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate chats: %w", err)
	}
	return chats, nil
}

func scanMessage(row rowScanner) (*model.Message, error) {
	m := &model.Message{}
	var replyTo sql.NullString
	err := row.Scan(&m.ID, &m.FromUserID, &m.ToUserID, &m.Content, &m.SentAt, &m.IsRead, &m.AttachmentURL, &replyTo)
	if err != nil {
		return nil, err
	}
	m.ReplyToID = nullStringPtr(replyTo)
	return m, nil
}

func collectMessages(rows *sql.Rows) ([]*model.Message, error) {
	var messages []*model.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}
	return messages, nil
}

// nullStringPtr はsql.NullStringを*stringに変換する。
func nullStringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

// compile-time interface check
var _ MessageRepository = (*PostgresMessageRepo)(nil)
