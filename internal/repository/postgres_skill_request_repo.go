package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/skillswap/internal/model"
)

const skillRequestColumns = `sr.id, sr.skill_id, sr.requester_id, sr.owner_id, sr.status, sr.created_at,
	sr.scheduled_for, sr.started_at, sr.completed_at`

const skillRequestWithNamesQuery = `SELECT ` + skillRequestColumns + `, s.title, req.username, own.username
	FROM skill_requests sr
	JOIN skills s ON s.id = sr.skill_id
	JOIN users req ON req.id = sr.requester_id
	JOIN users own ON own.id = sr.owner_id`

// PostgresSkillRequestRepo はPostgreSQLを使用したスキルリクエストリポジトリ。
type PostgresSkillRequestRepo struct {
	db *sql.DB
}

// NewPostgresSkillRequestRepo はPostgresSkillRequestRepoを生成する。
func NewPostgresSkillRequestRepo(db *sql.DB) *PostgresSkillRequestRepo {
	return &PostgresSkillRequestRepo{db: db}
}

// FindByID は指定IDのリクエストを取得する。見つからない場合はnilを返す。
func (r *PostgresSkillRequestRepo) FindByID(ctx context.Context, id string) (*model.SkillRequest, error) {
	req, err := scanSkillRequest(r.db.QueryRowContext(ctx,
		`SELECT `+skillRequestColumns+` FROM skill_requests sr WHERE sr.id = $1`,
		id,
	))
	if isNoRow(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find skill request: %w", err)
	}
	return req, nil
}

// FindBySkillAndRequester はスキルIDとリクエスト者IDでリクエストを検索する。
func (r *PostgresSkillRequestRepo) FindBySkillAndRequester(ctx context.Context, skillID, requesterID string) (*model.SkillRequest, error) {
	req, err := scanSkillRequest(r.db.QueryRowContext(ctx,
		`SELECT `+skillRequestColumns+` FROM skill_requests sr WHERE sr.skill_id = $1 AND sr.requester_id = $2`,
		skillID, requesterID,
	))
	if isNoRow(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find skill request by skill and requester: %w", err)
	}
	return req, nil
}

// Create はリクエストを作成する。
func (r *PostgresSkillRequestRepo) Create(ctx context.Context, req *model.SkillRequest) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO skill_requests (id, skill_id, requester_id, owner_id, status, created_at, scheduled_for)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		req.ID, req.SkillID, req.RequesterID, req.OwnerID, string(req.Status), req.CreatedAt, req.ScheduledFor,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create skill request: %w", err)
	}
	return nil
}

// TransitionStatus は現在の状態がfromの場合に限りtoへ更新する。
// 同時に実行された遷移のうち1つだけが成功する。
func (r *PostgresSkillRequestRepo) TransitionStatus(ctx context.Context, id string, from, to model.SkillRequestStatus, at time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE skill_requests
		 SET status = $3::varchar,
		     started_at = CASE WHEN $3::varchar = 'IN_PROGRESS' THEN $4::timestamptz ELSE started_at END,
		     completed_at = CASE WHEN $3::varchar = 'COMPLETED' THEN $4::timestamptz ELSE completed_at END
		 WHERE id = $1 AND status = $2`,
		id, string(from), string(to), at,
	)
	if err != nil {
		return false, fmt.Errorf("failed to transition skill request status: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected == 1, nil
}

// SetStatus は現在の状態に関わらず状態を更新する。
func (r *PostgresSkillRequestRepo) SetStatus(ctx context.Context, id string, status model.SkillRequestStatus) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE skill_requests SET status = $2 WHERE id = $1`,
		id, string(status),
	)
	if err != nil {
		if isInvalidTextRepresentation(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to set skill request status: %w", err)
	}
	return requireAffected(result)
}

// Delete は指定IDのリクエストを削除する。
func (r *PostgresSkillRequestRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM skill_requests WHERE id = $1`, id)
	if err != nil {
		if isInvalidTextRepresentation(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete skill request: %w", err)
	}
	return requireAffected(result)
}

// ListByRequester は指定ユーザーが送信したリクエストを新しい順に返す。
func (r *PostgresSkillRequestRepo) ListByRequester(ctx context.Context, requesterID string) ([]SkillRequestWithNames, error) {
	return r.listWithNames(ctx,
		skillRequestWithNamesQuery+` WHERE sr.requester_id = $1 ORDER BY sr.created_at DESC`,
		requesterID,
	)
}

// ListByOwner は指定ユーザーが受信したリクエストを新しい順に返す。
func (r *PostgresSkillRequestRepo) ListByOwner(ctx context.Context, ownerID string) ([]SkillRequestWithNames, error) {
	return r.listWithNames(ctx,
		skillRequestWithNamesQuery+` WHERE sr.owner_id = $1 ORDER BY sr.created_at DESC`,
		ownerID,
	)
}

// ListBySkillAndStatus は指定スキルの指定状態のリクエストを返す。
func (r *PostgresSkillRequestRepo) ListBySkillAndStatus(ctx context.Context, skillID string, status model.SkillRequestStatus) ([]SkillRequestWithNames, error) {
	return r.listWithNames(ctx,
		skillRequestWithNamesQuery+` WHERE sr.skill_id = $1 AND sr.status = $2 ORDER BY sr.created_at DESC`,
		skillID, string(status),
	)
}

// ListAll は全リクエストを返す。statusが空でない場合はその状態のみ返す。
func (r *PostgresSkillRequestRepo) ListAll(ctx context.Context, status model.SkillRequestStatus) ([]SkillRequestWithNames, error) {
	if status == "" {
		return r.listWithNames(ctx, skillRequestWithNamesQuery+` ORDER BY sr.created_at DESC`)
	}
	return r.listWithNames(ctx,
		skillRequestWithNamesQuery+` WHERE sr.status = $1 ORDER BY sr.created_at DESC`,
		string(status),
	)
}

// CountByStatusForSkill は指定スキルのリクエスト数を状態ごとに返す。
func (r *PostgresSkillRequestRepo) CountByStatusForSkill(ctx context.Context, skillID string) (map[model.SkillRequestStatus]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT status, count(*) FROM skill_requests WHERE skill_id = $1 GROUP BY status`,
		skillID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to count skill requests: %w", err)
	}
	defer rows.Close()

	counts := make(map[model.SkillRequestStatus]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan skill request count: %w", err)
		}
		counts[model.SkillRequestStatus(status)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate skill request counts: %w", err)
	}
	return counts, nil
}

func (r *PostgresSkillRequestRepo) listWithNames(ctx context.Context, query string, args ...any) ([]SkillRequestWithNames, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list skill requests: %w", err)
	}
	defer rows.Close()

	var requests []SkillRequestWithNames
	for rows.Next() {
		var item SkillRequestWithNames
		var status string
		var scheduledFor, startedAt, completedAt sql.NullTime
		err := rows.Scan(
			&item.ID, &item.SkillID, &item.RequesterID, &item.OwnerID, &status, &item.CreatedAt,
			&scheduledFor, &startedAt, &completedAt,
			&item.SkillTitle, &item.RequesterUsername, &item.OwnerUsername,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan skill request: %w", err)
		}
		item.Status = model.SkillRequestStatus(status)
		item.ScheduledFor = nullTimePtr(scheduledFor)
		item.StartedAt = nullTimePtr(startedAt)
		item.CompletedAt = nullTimePtr(completedAt)
		requests = append(requests, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate skill requests: %w", err)
	}
	return requests, nil
}

func scanSkillRequest(row rowScanner) (*model.SkillRequest, error) {
	req := &model.SkillRequest{}
	var status string
	var scheduledFor, startedAt, completedAt sql.NullTime
	err := row.Scan(&req.ID, &req.SkillID, &req.RequesterID, &req.OwnerID, &status, &req.CreatedAt,
		&scheduledFor, &startedAt, &completedAt)
	if err != nil {
		return nil, err
	}
	req.Status = model.SkillRequestStatus(status)
	req.ScheduledFor = nullTimePtr(scheduledFor)
	req.StartedAt = nullTimePtr(startedAt)
	req.CompletedAt = nullTimePtr(completedAt)
	return req, nil
}

// nullTimePtr はsql.NullTimeを*time.Timeに変換する。
func nullTimePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

// compile-time interface check
var _ SkillRequestRepository = (*PostgresSkillRequestRepo)(nil)
