package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/hitoshi/skillswap/internal/model"
)

const skillColumns = `s.id, s.owner_id, s.title, s.category, s.description, s.level, s.availability, s.created_at`

// skillSortOrders は並び順キーとORDER BY句の対応。未知のキーはrecentとして扱う。
var skillSortOrders = map[string]string{
	"recent":  "s.created_at DESC",
	"popular": "request_count DESC, s.created_at DESC",
	"rating":  "avg_rating DESC NULLS LAST, s.created_at DESC",
	"name":    "s.title ASC",
}

// PostgresSkillRepo はPostgreSQLを使用したスキルリポジトリ。
type PostgresSkillRepo struct {
	db *sql.DB
}

// NewPostgresSkillRepo はPostgresSkillRepoを生成する。
func NewPostgresSkillRepo(db *sql.DB) *PostgresSkillRepo {
	return &PostgresSkillRepo{db: db}
}

// FindByID は指定IDのスキルを取得する。見つからない場合はnilを返す。
func (r *PostgresSkillRepo) FindByID(ctx context.Context, id string) (*model.Skill, error) {
	skill, err := scanSkill(r.db.QueryRowContext(ctx,
		`SELECT `+skillColumns+` FROM skills s WHERE s.id = $1`,
		id,
	))
	if isNoRow(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find skill: %w", err)
	}
	return skill, nil
}

// Create はスキルを作成する。
func (r *PostgresSkillRepo) Create(ctx context.Context, skill *model.Skill) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO skills (id, owner_id, title, category, description, level, availability, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		skill.ID, skill.OwnerID, skill.Title, skill.Category, skill.Description,
		skill.Level, skill.Availability, skill.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create skill: %w", err)
	}
	return nil
}

// Update はスキルの内容を更新する。owner_idは更新しない。
func (r *PostgresSkillRepo) Update(ctx context.Context, skill *model.Skill) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE skills
		 SET title = $2, category = $3, description = $4, level = $5, availability = $6
		 WHERE id = $1`,
		skill.ID, skill.Title, skill.Category, skill.Description, skill.Level, skill.Availability,
	)
	if err != nil {
		if isInvalidTextRepresentation(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to update skill: %w", err)
	}
	return requireAffected(result)
}

// Delete は指定IDのスキルを削除する。関連するリクエストとレビューはCASCADE削除される。
func (r *PostgresSkillRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM skills WHERE id = $1`, id)
	if err != nil {
		if isInvalidTextRepresentation(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete skill: %w", err)
	}
	return requireAffected(result)
}

// Count は検索条件に一致するスキル数を返す。
func (r *PostgresSkillRepo) Count(ctx context.Context, filter SkillFilter) (int, error) {
	where, args := skillFilterClause(filter)

	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM skills s JOIN users u ON u.id = s.owner_id`+where,
		args...,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count skills: %w", err)
	}
	return count, nil
}

// List は検索条件に一致するスキルをオーナー名・平均評価・リクエスト数付きで返す。
func (r *PostgresSkillRepo) List(ctx context.Context, filter SkillFilter, limit, offset int) ([]SkillListItem, error) {
	where, args := skillFilterClause(filter)

	orderBy, ok := skillSortOrders[filter.Sort]
	if !ok {
		orderBy = skillSortOrders["recent"]
	}

	args = append(args, limit, offset)
	query := `SELECT ` + skillColumns + `,
		u.username, u.first_name, u.last_name,
		(SELECT avg(rv.rating)::float8 FROM reviews rv WHERE rv.skill_id = s.id) AS avg_rating,
		(SELECT count(*) FROM skill_requests sr WHERE sr.skill_id = s.id) AS request_count
		FROM skills s JOIN users u ON u.id = s.owner_id` + where + `
		ORDER BY ` + orderBy + fmt.Sprintf(` LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list skills: %w", err)
	}
	defer rows.Close()

	var items []SkillListItem
	for rows.Next() {
		var item SkillListItem
		var avg sql.NullFloat64
		err := rows.Scan(
			&item.ID, &item.OwnerID, &item.Title, &item.Category, &item.Description,
			&item.Level, &item.Availability, &item.CreatedAt,
			&item.OwnerUsername, &item.OwnerFirstName, &item.OwnerLastName,
			&avg, &item.RequestCount,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan skill: %w", err)
		}
		if avg.Valid {
			v := avg.Float64
			item.AverageRating = &v
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate skills: %w", err)
	}
	return items, nil
}

// SearchByTitle はタイトルの部分一致でスキルを検索する。
func (r *PostgresSkillRepo) SearchByTitle(ctx context.Context, query string) ([]*model.Skill, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+skillColumns+` FROM skills s WHERE s.title ILIKE $1 ORDER BY s.created_at DESC`,
		likePattern(query),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search skills: %w", err)
	}
	defer rows.Close()

	var skills []*model.Skill
	for rows.Next() {
		skill, err := scanSkill(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan skill: %w", err)
		}
		skills = append(skills, skill)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate skills: %w", err)
	}
	return skills, nil
}

// ListByOwner は指定ユーザーのスキルをリクエスト集計付きで返す。
func (r *PostgresSkillRepo) ListByOwner(ctx context.Context, ownerID string) ([]SkillWithStats, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+skillColumns+`,
		        count(sr.id),
		        count(sr.id) FILTER (WHERE sr.status = 'ACCEPTED'),
		        count(sr.id) FILTER (WHERE sr.status = 'IN_PROGRESS')
		 FROM skills s
		 LEFT JOIN skill_requests sr ON sr.skill_id = s.id
		 WHERE s.owner_id = $1
		 GROUP BY s.id
		 ORDER BY s.created_at DESC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list skills by owner: %w", err)
	}
	defer rows.Close()

	var skills []SkillWithStats
	for rows.Next() {
		var s SkillWithStats
		err := rows.Scan(
			&s.ID, &s.OwnerID, &s.Title, &s.Category, &s.Description,
			&s.Level, &s.Availability, &s.CreatedAt,
			&s.TotalRequests, &s.AcceptedRequests, &s.InProgressRequests,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan skill: %w", err)
		}
		skills = append(skills, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate skills: %w", err)
	}
	return skills, nil
}

// DistinctCategories は登録済みのカテゴリ一覧を返す。
func (r *PostgresSkillRepo) DistinctCategories(ctx context.Context) ([]string, error) {
	return r.distinct(ctx, "category")
}

// DistinctLevels は登録済みのレベル一覧を返す。
func (r *PostgresSkillRepo) DistinctLevels(ctx context.Context) ([]string, error) {
	return r.distinct(ctx, "level")
}

// distinct は指定カラムの空でない値の一覧を返す。columnは固定値のみ渡すこと。
func (r *PostgresSkillRepo) distinct(ctx context.Context, column string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT `+column+` FROM skills WHERE `+column+` <> '' ORDER BY `+column,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list distinct %s: %w", column, err)
	}
	defer rows.Close()

	values := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", column, err)
		}
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s: %w", column, err)
	}
	return values, nil
}

// skillFilterClause は検索条件からWHERE句とパラメータを組み立てる。
func skillFilterClause(filter SkillFilter) (string, []any) {
	var conds []string
	var args []any

	if q := strings.TrimSpace(filter.Query); q != "" {
		args = append(args, likePattern(q))
		n := len(args)
		conds = append(conds, fmt.Sprintf(
			`(s.title ILIKE $%[1]d OR s.description ILIKE $%[1]d OR s.category ILIKE $%[1]d
			  OR u.username ILIKE $%[1]d OR u.first_name ILIKE $%[1]d OR u.last_name ILIKE $%[1]d)`, n))
	}
	if c := strings.TrimSpace(filter.Category); c != "" {
		args = append(args, c)
		conds = append(conds, fmt.Sprintf(`lower(s.category) = lower($%d)`, len(args)))
	}
	if l := strings.TrimSpace(filter.Level); l != "" {
		args = append(args, l)
		conds = append(conds, fmt.Sprintf(`lower(s.level) = lower($%d)`, len(args)))
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func scanSkill(row rowScanner) (*model.Skill, error) {
	s := &model.Skill{}
	err := row.Scan(&s.ID, &s.OwnerID, &s.Title, &s.Category, &s.Description,
		&s.Level, &s.Availability, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// compile-time interface check
var _ SkillRepository = (*PostgresSkillRepo)(nil)
