package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// PostgresStatsRepo はPostgreSQLを使用した集計リポジトリ。
type PostgresStatsRepo struct {
	db *sql.DB
}

// NewPostgresStatsRepo はPostgresStatsRepoを生成する。
func NewPostgresStatsRepo(db *sql.DB) *PostgresStatsRepo {
	return &PostgresStatsRepo{db: db}
}

// Dashboard は管理ダッシュボードの統計を返す。
func (r *PostgresStatsRepo) Dashboard(ctx context.Context, topCategories int) (*DashboardStats, error) {
	stats := &DashboardStats{}
	err := r.db.QueryRowContext(ctx,
		`SELECT
		     (SELECT count(*) FROM users),
		     (SELECT count(*) FROM skills),
		     (SELECT count(*) FROM skill_requests),
		     (SELECT count(*) FROM skill_requests WHERE status = 'COMPLETED'),
		     COALESCE((SELECT avg(rating)::float8 FROM reviews), 0),
		     (SELECT count(*) FROM meetings)`,
	).Scan(&stats.TotalUsers, &stats.TotalSkills, &stats.TotalRequests,
		&stats.CompletedSwaps, &stats.AverageRating, &stats.TotalMeetings)
	if err != nil {
		return nil, fmt.Errorf("failed to query dashboard stats: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT category, count(*) AS cnt
		 FROM skills
		 GROUP BY category
		 ORDER BY cnt DESC, category
		 LIMIT $1`,
		topCategories,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query top categories: %w", err)
	}
	defer rows.Close()

	stats.TopCategories = []CategoryCount{}
	for rows.Next() {
		var c CategoryCount
		if err := rows.Scan(&c.Category, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan category count: %w", err)
		}
		stats.TopCategories = append(stats.TopCategories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate category counts: %w", err)
	}
	return stats, nil
}

// BadgeCounts はナビゲーションバッジ用の件数を返す。
func (r *PostgresStatsRepo) BadgeCounts(ctx context.Context, userID string, newSkillsSince time.Time) (*BadgeCounts, error) {
	c := &BadgeCounts{}
	err := r.db.QueryRowContext(ctx,
		`SELECT
		     (SELECT count(*) FROM skills WHERE created_at >= $2 AND owner_id <> $1),
		     (SELECT count(*) FROM skill_requests WHERE owner_id = $1 AND status = 'PENDING'),
		     (SELECT count(*) FROM skill_requests WHERE requester_id = $1 AND status = 'PENDING'),
		     (SELECT count(*) FROM messages WHERE to_user_id = $1 AND is_read = false),
		     (SELECT count(*) FROM notifications WHERE user_id = $1 AND is_read = false)`,
		userID, newSkillsSince,
	).Scan(&c.NewSkills, &c.PendingReceived, &c.PendingSent, &c.UnreadMessages, &c.UnreadNotifications)
	if err != nil {
		return nil, fmt.Errorf("failed to query badge counts: %w", err)
	}
	return c, nil
}

// compile-time interface check
var _ StatsRepository = (*PostgresStatsRepo)(nil)
