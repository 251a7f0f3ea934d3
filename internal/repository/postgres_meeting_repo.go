package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/skillswap/internal/model"
	"github.com/lib/pq"
)

// meetingSelect は参加者ID配列付きでミーティングを取得するSELECT句。
const meetingSelect = `SELECT m.id, m.title, m.description, m.organizer_id, m.meeting_type, m.scheduled_at,
	m.duration_minutes, m.location, m.status, m.related_skill_id, m.created_at, m.updated_at,
	COALESCE(array_agg(mp.user_id::text) FILTER (WHERE mp.user_id IS NOT NULL), '{}')
	FROM meetings m
	LEFT JOIN meeting_participants mp ON mp.meeting_id = m.id`

// PostgresMeetingRepo はPostgreSQLを使用したミーティングリポジトリ。
type PostgresMeetingRepo struct {
	db *sql.DB
}

// NewPostgresMeetingRepo はPostgresMeetingRepoを生成する。
func NewPostgresMeetingRepo(db *sql.DB) *PostgresMeetingRepo {
	return &PostgresMeetingRepo{db: db}
}

// FindByID は参加者付きでミーティングを取得する。見つからない場合はnilを返す。
func (r *PostgresMeetingRepo) FindByID(ctx context.Context, id string) (*model.Meeting, error) {
	meeting, err := scanMeeting(r.db.QueryRowContext(ctx,
		meetingSelect+` WHERE m.id = $1 GROUP BY m.id`,
		id,
	))
	if isNoRow(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find meeting: %w", err)
	}
	return meeting, nil
}

// Create はミーティングと参加者を同一トランザクションで作成する。
func (r *PostgresMeetingRepo) Create(ctx context.Context, m *model.Meeting) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO meetings (id, title, description, organizer_id, meeting_type, scheduled_at,
		                       duration_minutes, location, status, related_skill_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		m.ID, m.Title, m.Description, m.OrganizerID, string(m.MeetingType), m.ScheduledAt,
		m.DurationMinutes, m.Location, string(m.Status), m.RelatedSkillID, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert meeting: %w", err)
	}

	if len(m.ParticipantIDs) > 0 {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO meeting_participants (meeting_id, user_id)
			 SELECT $1, unnest($2::uuid[])
			 ON CONFLICT DO NOTHING`,
			m.ID, pq.Array(m.ParticipantIDs),
		)
		if err != nil {
			return fmt.Errorf("failed to insert meeting participants: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Update はミーティングの内容を更新する。参加者は変更しない。
func (r *PostgresMeetingRepo) Update(ctx context.Context, m *model.Meeting) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE meetings
		 SET title = $2, description = $3, scheduled_at = $4, duration_minutes = $5,
		     location = $6, status = $7, updated_at = $8
		 WHERE id = $1`,
		m.ID, m.Title, m.Description, m.ScheduledAt, m.DurationMinutes, m.Location, string(m.Status), m.UpdatedAt,
	)
	if err != nil {
		if isInvalidTextRepresentation(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to update meeting: %w", err)
	}
	return requireAffected(result)
}

// UpdateStatus はミーティングの状態を更新する。
func (r *PostgresMeetingRepo) UpdateStatus(ctx context.Context, id string, status model.MeetingStatus, at time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE meetings SET status = $2, updated_at = $3 WHERE id = $1`,
		id, string(status), at,
	)
	if err != nil {
		if isInvalidTextRepresentation(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to update meeting status: %w", err)
	}
	return requireAffected(result)
}

// Delete は指定IDのミーティングを削除する。参加者と関連通知はCASCADE削除される。
func (r *PostgresMeetingRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM meetings WHERE id = $1`, id)
	if err != nil {
		if isInvalidTextRepresentation(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete meeting: %w", err)
	}
	return requireAffected(result)
}

// ListForUser は指定ユーザーが主催または参加するミーティングを開催日時順に返す。
func (r *PostgresMeetingRepo) ListForUser(ctx context.Context, userID string) ([]*model.Meeting, error) {
	return r.list(ctx,
		meetingSelect+`
		 WHERE m.organizer_id = $1
		    OR EXISTS (SELECT 1 FROM meeting_participants p WHERE p.meeting_id = m.id AND p.user_id = $1)
		 GROUP BY m.id
		 ORDER BY m.scheduled_at`,
		userID,
	)
}

// ListAll は全ミーティングを開催日時の降順で返す。
func (r *PostgresMeetingRepo) ListAll(ctx context.Context) ([]*model.Meeting, error) {
	return r.list(ctx, meetingSelect+` GROUP BY m.id ORDER BY m.scheduled_at DESC`)
}

func (r *PostgresMeetingRepo) list(ctx context.Context, query string, args ...any) ([]*model.Meeting, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list meetings: %w", err)
	}
	defer rows.Close()

	var meetings []*model.Meeting
	for rows.Next() {
		m, err := scanMeeting(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan meeting: %w", err)
		}
		meetings = append(meetings, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate meetings: %w", err)
	}
	return meetings, nil
}

func scanMeeting(row rowScanner) (*model.Meeting, error) {
	m := &model.Meeting{}
	var meetingType, status string
	var relatedSkill sql.NullString
	var participants pq.StringArray
	err := row.Scan(&m.ID, &m.Title, &m.Description, &m.OrganizerID, &meetingType, &m.ScheduledAt,
		&m.DurationMinutes, &m.Location, &status, &relatedSkill, &m.CreatedAt, &m.UpdatedAt,
		&participants)
	if err != nil {
		return nil, err
	}
	m.MeetingType = model.MeetingType(meetingType)
	m.Status = model.MeetingStatus(status)
	m.RelatedSkillID = nullStringPtr(relatedSkill)
	m.ParticipantIDs = []string(participants)
	return m, nil
}

// compile-time interface check
var _ MeetingRepository = (*PostgresMeetingRepo)(nil)
