// Package skill はスキルの登録、一覧、詳細、ダッシュボードのドメインロジックを提供する。
package skill

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/hitoshi/skillswap/internal/model"
	"github.com/hitoshi/skillswap/internal/repository"
	"github.com/hitoshi/skillswap/internal/security"
)

const (
	// PageSize は一覧の1ページあたりの件数。
	PageSize = 12
	// newSkillDays はis_newと判定する作成後の日数。
	newSkillDays = 7
)

// CreateInput はスキル登録の入力値。
type CreateInput struct {
	Title        string `json:"title" validate:"required,max=200"`
	Category     string `json:"category" validate:"max=100"`
	Description  string `json:"description" validate:"max=5000"`
	Level        string `json:"level" validate:"max=50"`
	Availability string `json:"availability" validate:"max=200"`
}

// PrepareInput は入力をサニタイズし、サニタイズ後の値を検証する。
// 文字数の上限はskillsテーブルの列長と一致する。
func PrepareInput(validate *validator.Validate, sanitizer security.ContentSanitizerService, in CreateInput) (CreateInput, error) {
	in = CreateInput{
		Title:        sanitizer.StripTags(in.Title),
		Category:     sanitizer.StripTags(in.Category),
		Description:  sanitizer.Sanitize(in.Description),
		Level:        sanitizer.StripTags(in.Level),
		Availability: sanitizer.StripTags(in.Availability),
	}
	if err := validate.Struct(in); err != nil {
		if in.Title == "" {
			return in, model.NewValidationError("タイトルは必須です。")
		}
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return in, model.NewValidationError(fmt.Sprintf("%sは%s文字以内で入力してください。", fieldLabel(fe.Field()), fe.Param()))
		}
		return in, model.NewValidationError("スキルの入力内容が正しくありません。")
	}
	return in, nil
}

func fieldLabel(field string) string {
	switch field {
	case "Title":
		return "タイトル"
	case "Category":
		return "カテゴリ"
	case "Description":
		return "説明"
	case "Level":
		return "レベル"
	case "Availability":
		return "対応可能な時間帯"
	}
	return field
}

// ListQuery はスキル一覧の検索条件。値はクエリ文字列そのまま。
type ListQuery struct {
	Query    string
	Category string
	Level    string
	Sort     string
	Page     string
}

// ListItem は一覧に表示するスキル。
type ListItem struct {
	repository.SkillListItem
	IsNew bool
}

// ListResult はスキル一覧の結果。
type ListResult struct {
	Items      []ListItem
	Page       int
	TotalPages int
	TotalCount int
	Sort       string
	Categories []string
	Levels     []string
}

// Detail はスキル詳細と統計。
type Detail struct {
	Skill              *model.Skill
	Reviews            []repository.ReviewWithNames
	TotalRequests      int
	AcceptedRequests   int
	PendingRequests    int
	InProgressRequests int
	CompletedRequests  int
	ApprovalRate       int
	ActiveSessions     []repository.SkillRequestWithNames
}

// Dashboard はユーザーのダッシュボード情報。
type Dashboard struct {
	Skills   []repository.SkillWithStats
	Made     []repository.SkillRequestWithNames
	Received []repository.SkillRequestWithNames
}

// Service はスキルのサービス層。
type Service struct {
	skills    repository.SkillRepository
	requests  repository.SkillRequestRepository
	reviews   repository.ReviewRepository
	sanitizer security.ContentSanitizerService
	validate  *validator.Validate
	now       func() time.Time
}

// NewService はServiceを生成する。
func NewService(
	skills repository.SkillRepository,
	requests repository.SkillRequestRepository,
	reviews repository.ReviewRepository,
	sanitizer security.ContentSanitizerService,
) *Service {
	return &Service{
		skills:    skills,
		requests:  requests,
		reviews:   reviews,
		sanitizer: sanitizer,
		validate:  validator.New(),
		now:       time.Now,
	}
}

// Create はactorをオーナーとしてスキルを登録する。
func (s *Service) Create(ctx context.Context, actor model.Actor, in CreateInput) (*model.Skill, error) {
	in, err := PrepareInput(s.validate, s.sanitizer, in)
	if err != nil {
		return nil, err
	}

	skill := &model.Skill{
		ID:           uuid.New().String(),
		OwnerID:      actor.UserID,
		Title:        in.Title,
		Category:     in.Category,
		Description:  in.Description,
		Level:        in.Level,
		Availability: in.Availability,
		CreatedAt:    s.now(),
	}
	if err := s.skills.Create(ctx, skill); err != nil {
		return nil, fmt.Errorf("スキルの登録に失敗しました: %w", err)
	}

	slog.Info("skill created",
		slog.String("skill_id", skill.ID),
		slog.String("owner_id", actor.UserID),
	)
	return skill, nil
}

// List は検索条件に一致するスキルを1ページ分返す。
// ページ番号が整数でない場合は1ページ目、範囲外の場合は最終ページを返す。
func (s *Service) List(ctx context.Context, q ListQuery) (*ListResult, error) {
	filter := repository.SkillFilter{
		Query:    strings.TrimSpace(q.Query),
		Category: strings.TrimSpace(q.Category),
		Level:    strings.TrimSpace(q.Level),
		Sort:     NormalizeSort(q.Sort),
	}

	total, err := s.skills.Count(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("スキル数の取得に失敗しました: %w", err)
	}

	totalPages := TotalPages(total)
	page := ClampPage(q.Page, totalPages)

	items, err := s.skills.List(ctx, filter, PageSize, (page-1)*PageSize)
	if err != nil {
		return nil, fmt.Errorf("スキル一覧の取得に失敗しました: %w", err)
	}

	now := s.now()
	result := make([]ListItem, 0, len(items))
	for _, item := range items {
		if item.AverageRating != nil {
			v := roundTo(*item.AverageRating, 1)
			item.AverageRating = &v
		}
		result = append(result, ListItem{
			SkillListItem: item,
			IsNew:         IsNew(item.CreatedAt, now),
		})
	}

	categories, err := s.skills.DistinctCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("カテゴリ一覧の取得に失敗しました: %w", err)
	}
	levels, err := s.skills.DistinctLevels(ctx)
	if err != nil {
		return nil, fmt.Errorf("レベル一覧の取得に失敗しました: %w", err)
	}

	return &ListResult{
		Items:      result,
		Page:       page,
		TotalPages: totalPages,
		TotalCount: total,
		Sort:       filter.Sort,
		Categories: nonNil(categories),
		Levels:     nonNil(levels),
	}, nil
}

// Search はタイトルの部分一致でスキルを検索する。空のクエリには空の一覧を返す。
func (s *Service) Search(ctx context.Context, query string) ([]*model.Skill, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []*model.Skill{}, nil
	}
	skills, err := s.skills.SearchByTitle(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("スキルの検索に失敗しました: %w", err)
	}
	if skills == nil {
		skills = []*model.Skill{}
	}
	return skills, nil
}

// Detail はスキル、レビュー、リクエスト統計を返す。
func (s *Service) Detail(ctx context.Context, skillID string) (*Detail, error) {
	skill, err := s.skills.FindByID(ctx, skillID)
	if err != nil {
		return nil, fmt.Errorf("スキルの取得に失敗しました: %w", err)
	}
	if skill == nil {
		return nil, model.NewSkillNotFoundError(skillID)
	}

	reviews, err := s.reviews.ListBySkill(ctx, skillID)
	if err != nil {
		return nil, fmt.Errorf("レビューの取得に失敗しました: %w", err)
	}
	counts, err := s.requests.CountByStatusForSkill(ctx, skillID)
	if err != nil {
		return nil, fmt.Errorf("リクエスト数の取得に失敗しました: %w", err)
	}
	active, err := s.requests.ListBySkillAndStatus(ctx, skillID, model.SkillRequestInProgress)
	if err != nil {
		return nil, fmt.Errorf("実施中セッションの取得に失敗しました: %w", err)
	}

	total := 0
	for _, n := range counts {
		total += n
	}
	accepted := counts[model.SkillRequestAccepted]

	if reviews == nil {
		reviews = []repository.ReviewWithNames{}
	}
	if active == nil {
		active = []repository.SkillRequestWithNames{}
	}

	return &Detail{
		Skill:              skill,
		Reviews:            reviews,
		TotalRequests:      total,
		AcceptedRequests:   accepted,
		PendingRequests:    counts[model.SkillRequestPending],
		InProgressRequests: counts[model.SkillRequestInProgress],
		CompletedRequests:  counts[model.SkillRequestCompleted],
		ApprovalRate:       ApprovalRate(accepted, total),
		ActiveSessions:     active,
	}, nil
}

// Dashboard はactorのスキルと送受信したリクエストを返す。
func (s *Service) Dashboard(ctx context.Context, actor model.Actor) (*Dashboard, error) {
	skills, err := s.skills.ListByOwner(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("スキルの取得に失敗しました: %w", err)
	}
	made, err := s.requests.ListByRequester(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("送信済みリクエストの取得に失敗しました: %w", err)
	}
	received, err := s.requests.ListByOwner(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("受信リクエストの取得に失敗しました: %w", err)
	}

	if skills == nil {
		skills = []repository.SkillWithStats{}
	}
	if made == nil {
		made = []repository.SkillRequestWithNames{}
	}
	if received == nil {
		received = []repository.SkillRequestWithNames{}
	}
	return &Dashboard{Skills: skills, Made: made, Received: received}, nil
}

// NormalizeSort は並び順キーを正規化する。未知のキーはrecentになる。
func NormalizeSort(sort string) string {
	switch sort {
	case "recent", "popular", "rating", "name":
		return sort
	}
	return "recent"
}

// TotalPages は件数からページ数を返す。0件でも1ページとする。
func TotalPages(total int) int {
	if total <= 0 {
		return 1
	}
	return (total + PageSize - 1) / PageSize
}

// ClampPage はページ番号の文字列を解釈する。
// 空または整数でない場合は1、1未満またはtotalPagesを超える場合はtotalPagesを返す。
func ClampPage(raw string, totalPages int) int {
	page, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 1
	}
	if page < 1 || page > totalPages {
		return totalPages
	}
	return page
}

// IsNew は作成から7日以内（経過日数の切り捨てで判定）かどうかを返す。
func IsNew(createdAt, now time.Time) bool {
	days := int(now.Sub(createdAt).Hours() / 24)
	return days <= newSkillDays
}

// ApprovalRate は承認率（%）を整数に丸めて返す。リクエストがない場合は0。
func ApprovalRate(accepted, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(accepted) / float64(total) * 100))
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
