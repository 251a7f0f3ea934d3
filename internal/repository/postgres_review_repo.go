package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/skillswap/internal/model"
)

const reviewWithNamesQuery = `SELECT rv.id, rv.skill_id, rv.reviewer_id, rv.rating, rv.comment, rv.created_at,
	s.title, u.username
	FROM reviews rv
	JOIN skills s ON s.id = rv.skill_id
	JOIN users u ON u.id = rv.reviewer_id`

// PostgresReviewRepo はPostgreSQLを使用したレビューリポジトリ。
type PostgresReviewRepo struct {
	db *sql.DB
}

// NewPostgresReviewRepo はPostgresReviewRepoを生成する。
func NewPostgresReviewRepo(db *sql.DB) *PostgresReviewRepo {
	return &PostgresReviewRepo{db: db}
}

// FindByID は指定IDのレビューを取得する。見つからない場合はnilを返す。
func (r *PostgresReviewRepo) FindByID(ctx context.Context, id string) (*model.Review, error) {
	rv := &model.Review{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, skill_id, reviewer_id, rating, comment, created_at FROM reviews WHERE id = $1`,
		id,
	).Scan(&rv.ID, &rv.SkillID, &rv.ReviewerID, &rv.Rating, &rv.Comment, &rv.CreatedAt)
	if isNoRow(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find review: %w", err)
	}
	return rv, nil
}

// Create はレビューを作成する。
func (r *PostgresReviewRepo) Create(ctx context.Context, rv *model.Review) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO reviews (id, skill_id, reviewer_id, rating, comment, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		rv.ID, rv.SkillID, rv.ReviewerID, rv.Rating, rv.Comment, rv.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create review: %w", err)
	}
	return nil
}

// Update はレビューの評価とコメントを更新する。
func (r *PostgresReviewRepo) Update(ctx context.Context, rv *model.Review) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE reviews SET rating = $2, comment = $3 WHERE id = $1`,
		rv.ID, rv.Rating, rv.Comment,
	)
	if err != nil {
		if isInvalidTextRepresentation(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to update review: %w", err)
	}
	return requireAffected(result)
}

// Delete は指定IDのレビューを削除する。
func (r *PostgresReviewRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		if isInvalidTextRepresentation(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete review: %w", err)
	}
	return requireAffected(result)
}

// ListBySkill は指定スキルのレビューを新しい順に返す。
func (r *PostgresReviewRepo) ListBySkill(ctx context.Context, skillID string) ([]ReviewWithNames, error) {
	return r.list(ctx, reviewWithNamesQuery+` WHERE rv.skill_id = $1 ORDER BY rv.created_at DESC`, skillID)
}

// ListBySkillOwner は指定ユーザーのスキルに付いたレビューを新しい順に返す。
func (r *PostgresReviewRepo) ListBySkillOwner(ctx context.Context, ownerID string) ([]ReviewWithNames, error) {
	return r.list(ctx, reviewWithNamesQuery+` WHERE s.owner_id = $1 ORDER BY rv.created_at DESC`, ownerID)
}

// ListAll は全レビューを新しい順に返す。
func (r *PostgresReviewRepo) ListAll(ctx context.Context) ([]ReviewWithNames, error) {
	return r.list(ctx, reviewWithNamesQuery+` ORDER BY rv.created_at DESC`)
}

func (r *PostgresReviewRepo) list(ctx context.Context, query string, args ...any) ([]ReviewWithNames, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	defer rows.Close()

	var reviews []ReviewWithNames
	for rows.Next() {
		var rv ReviewWithNames
		err := rows.Scan(&rv.ID, &rv.SkillID, &rv.ReviewerID, &rv.Rating, &rv.Comment, &rv.CreatedAt,
			&rv.SkillTitle, &rv.ReviewerUsername)
		if err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		reviews = append(reviews, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reviews: %w", err)
	}
	return reviews, nil
}

// compile-time interface check
var _ ReviewRepository = (*PostgresReviewRepo)(nil)
