package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/skillswap/internal/model"
)

// PostgresReportRepo はPostgreSQLを使用した通報リポジトリ。
type PostgresReportRepo struct {
	db *sql.DB
}

// NewPostgresReportRepo はPostgresReportRepoを生成する。
func NewPostgresReportRepo(db *sql.DB) *PostgresReportRepo {
	return &PostgresReportRepo{db: db}
}

// Create は通報を作成する。
func (r *PostgresReportRepo) Create(ctx context.Context, rp *model.Report) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO reports (id, reporter_id, reported_user_id, reason, resolved, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		rp.ID, rp.ReporterID, rp.ReportedUserID, rp.Reason, rp.Resolved, rp.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	return nil
}

// ListAll は全通報を新しい順に返す。
func (r *PostgresReportRepo) ListAll(ctx context.Context) ([]ReportWithNames, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT rp.id, rp.reporter_id, rp.reported_user_id, rp.reason, rp.resolved, rp.created_at,
		        reporter.username, reported.username
		 FROM reports rp
		 JOIN users reporter ON reporter.id = rp.reporter_id
		 JOIN users reported ON reported.id = rp.reported_user_id
		 ORDER BY rp.created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	var reports []ReportWithNames
	for rows.Next() {
		var rp ReportWithNames
		err := rows.Scan(&rp.ID, &rp.ReporterID, &rp.ReportedUserID, &rp.Reason, &rp.Resolved, &rp.CreatedAt,
			&rp.ReporterUsername, &rp.ReportedUserUsername)
		if err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		reports = append(reports, rp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reports: %w", err)
	}
	return reports, nil
}

// Resolve は通報を解決済みにする。
func (r *PostgresReportRepo) Resolve(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE reports SET resolved = true WHERE id = $1`, id)
	if err != nil {
		if isInvalidTextRepresentation(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to resolve report: %w", err)
	}
	return requireAffected(result)
}

// compile-time interface check
var _ ReportRepository = (*PostgresReportRepo)(nil)
