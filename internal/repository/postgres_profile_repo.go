package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/skillswap/internal/model"
)

// PostgresProfileRepo はPostgreSQLを使用したプロフィールリポジトリ。
type PostgresProfileRepo struct {
	db *sql.DB
}

// NewPostgresProfileRepo はPostgresProfileRepoを生成する。
func NewPostgresProfileRepo(db *sql.DB) *PostgresProfileRepo {
	return &PostgresProfileRepo{db: db}
}

// FindByUserID は指定ユーザーのプロフィールを取得する。見つからない場合はnilを返す。
func (r *PostgresProfileRepo) FindByUserID(ctx context.Context, userID string) (*model.Profile, error) {
	p := &model.Profile{}
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, photo_url, bio, course, year, rating, skills_offered, skills_wanted, updated_at
		 FROM profiles WHERE user_id = $1`,
		userID,
	).Scan(&p.UserID, &p.PhotoURL, &p.Bio, &p.Course, &p.Year, &p.Rating,
		&p.SkillsOffered, &p.SkillsWanted, &p.UpdatedAt)

	if isNoRow(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find profile: %w", err)
	}
	return p, nil
}

// Update はプロフィールを更新する。ratingは集計値のため更新しない。
func (r *PostgresProfileRepo) Update(ctx context.Context, p *model.Profile) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE profiles
		 SET photo_url = $2, bio = $3, course = $4, year = $5,
		     skills_offered = $6, skills_wanted = $7, updated_at = $8
		 WHERE user_id = $1`,
		p.UserID, p.PhotoURL, p.Bio, p.Course, p.Year, p.SkillsOffered, p.SkillsWanted, p.UpdatedAt,
	)
	if err != nil {
		if isInvalidTextRepresentation(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to update profile: %w", err)
	}
	return requireAffected(result)
}

// compile-time interface check
var _ ProfileRepository = (*PostgresProfileRepo)(nil)
