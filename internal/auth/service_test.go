package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/skillswap/internal/model"
	"github.com/hitoshi/skillswap/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

// --- モック定義 ---

type mockUserRepo struct {
	findByIDFn          func(ctx context.Context, id string) (*model.User, error)
	findByUsernameFn    func(ctx context.Context, username string) (*model.User, error)
	createWithProfileFn func(ctx context.Context, user *model.User, profile *model.Profile) error
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	if m.findByUsernameFn != nil {
		return m.findByUsernameFn(ctx, username)
	}
	return nil, nil
}

func (m *mockUserRepo) CreateWithProfile(ctx context.Context, user *model.User, profile *model.Profile) error {
	if m.createWithProfileFn != nil {
		return m.createWithProfileFn(ctx, user, profile)
	}
	return nil
}

func (m *mockUserRepo) Search(_ context.Context, _, _ string, _ int) ([]*model.User, error) {
	return nil, nil
}
func (m *mockUserRepo) List(_ context.Context) ([]*model.User, error) { return nil, nil }
func (m *mockUserRepo) UpdateAccount(_ context.Context, _, _, _ string) error {
	return nil
}
func (m *mockUserRepo) SetStaff(_ context.Context, _ string, _ bool) error {
	return nil
}
func (m *mockUserRepo) DeleteByID(_ context.Context, _ string) error {
	return nil
}

type mockSessionRepo struct {
	createFn         func(ctx context.Context, session *model.Session) error
	findByIDFn       func(ctx context.Context, id string) (*model.Session, error)
	findActorFn      func(ctx context.Context, id string) (*model.Actor, error)
	deleteByIDFn     func(ctx context.Context, id string) error
	deleteByUserIDFn func(ctx context.Context, userID string) error
}

func (m *mockSessionRepo) Create(ctx context.Context, session *model.Session) error {
	if m.createFn != nil {
		return m.createFn(ctx, session)
	}
	return nil
}

func (m *mockSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockSessionRepo) FindActor(ctx context.Context, id string) (*model.Actor, error) {
	if m.findActorFn != nil {
		return m.findActorFn(ctx, id)
	}
	return nil, nil
}

func (m *mockSessionRepo) DeleteByID(ctx context.Context, id string) error {
	if m.deleteByIDFn != nil {
		return m.deleteByIDFn(ctx, id)
	}
	return nil
}

func (m *mockSessionRepo) DeleteByUserID(ctx context.Context, userID string) error {
	if m.deleteByUserIDFn != nil {
		return m.deleteByUserIDFn(ctx, userID)
	}
	return nil
}

// --- compile-time interface checks ---
var _ repository.UserRepository = (*mockUserRepo)(nil)
var _ repository.SessionRepository = (*mockSessionRepo)(nil)

var testConfig = ServiceConfig{SessionMaxAge: 86400, BcryptCost: bcrypt.MinCost}

func validInput() RegisterInput {
	return RegisterInput{
		Username:  "alice",
		FirstName: "Alice",
		LastName:  "Liddell",
		Email:     "alice@example.com",
		Password:  "wonderland",
		Password2: "wonderland",
	}
}

// --- テスト ---

func TestRegister_CreatesUserProfileAndSession(t *testing.T) {
	ctx := context.Background()

	var createdUser *model.User
	var createdProfile *model.Profile
	var createdSession *model.Session

	userRepo := &mockUserRepo{
		createWithProfileFn: func(ctx context.Context, user *model.User, profile *model.Profile) error {
			createdUser = user
			createdProfile = profile
			return nil
		},
	}
	sessionRepo := &mockSessionRepo{
		createFn: func(ctx context.Context, session *model.Session) error {
			createdSession = session
			return nil
		},
	}

	svc := NewService(userRepo, sessionRepo, testConfig)

	user, session, err := svc.Register(ctx, validInput())
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if createdUser == nil || createdProfile == nil {
		t.Fatal("expected user and profile to be created")
	}
	if createdProfile.UserID != createdUser.ID {
		t.Errorf("profile userID = %q, want %q", createdProfile.UserID, createdUser.ID)
	}
	if user.Username != "alice" || user.Email != "alice@example.com" {
		t.Errorf("user = %+v", user)
	}
	if user.IsStaff {
		t.Error("新規ユーザーはスタッフではない")
	}

	// パスワードは平文で保存されないこと
	if createdUser.PasswordHash == "wonderland" {
		t.Fatal("password must be hashed")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(createdUser.PasswordHash), []byte("wonderland")); err != nil {
		t.Errorf("password hash mismatch: %v", err)
	}

	if createdSession == nil || session.UserID != createdUser.ID {
		t.Fatal("expected session for new user")
	}
	if session.ExpiresAt.Before(time.Now()) {
		t.Error("session should not be expired")
	}
}

func TestRegister_ValidationErrors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(in *RegisterInput)
	}{
		{"username empty", func(in *RegisterInput) { in.Username = "  " }},
		{"email empty", func(in *RegisterInput) { in.Email = "" }},
		{"email malformed", func(in *RegisterInput) { in.Email = "not-an-email" }},
		{"password too short", func(in *RegisterInput) { in.Password, in.Password2 = "short", "short" }},
		{"password mismatch", func(in *RegisterInput) { in.Password2 = "different1" }},
		{"username too long", func(in *RegisterInput) { in.Username = strings.Repeat("a", 151) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			createCalled := false
			userRepo := &mockUserRepo{
				createWithProfileFn: func(ctx context.Context, user *model.User, profile *model.Profile) error {
					createCalled = true
					return nil
				},
			}
			svc := NewService(userRepo, &mockSessionRepo{}, testConfig)

			in := validInput()
			tt.modify(&in)
			_, _, err := svc.Register(context.Background(), in)
			if !model.IsKind(err, model.KindValidation) {
				t.Fatalf("err = %v, want Validation", err)
			}
			if createCalled {
				t.Error("バリデーションエラー時にユーザーを作成してはならない")
			}
		})
	}
}

func TestRegister_UsernameTaken(t *testing.T) {
	userRepo := &mockUserRepo{
		findByUsernameFn: func(ctx context.Context, username string) (*model.User, error) {
			return &model.User{ID: "existing", Username: "Alice"}, nil
		},
	}
	svc := NewService(userRepo, &mockSessionRepo{}, testConfig)

	_, _, err := svc.Register(context.Background(), validInput())
	if !model.IsKind(err, model.KindConflict) {
		t.Fatalf("err = %v, want Conflict", err)
	}
}

// 確認後の同時登録でユニーク制約に違反した場合もConflictになることを検証
func TestRegister_DuplicateOnInsert(t *testing.T) {
	userRepo := &mockUserRepo{
		createWithProfileFn: func(ctx context.Context, user *model.User, profile *model.Profile) error {
			return repository.ErrDuplicate
		},
	}
	svc := NewService(userRepo, &mockSessionRepo{}, testConfig)

	_, _, err := svc.Register(context.Background(), validInput())
	if !model.IsKind(err, model.KindConflict) {
		t.Fatalf("err = %v, want Conflict", err)
	}
}

func TestLogin(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	stored := &model.User{ID: "user-1", Username: "bob", PasswordHash: string(hash)}

	tests := []struct {
		name     string
		username string
		password string
		found    bool
		wantErr  bool
	}{
		{"success", "bob", "correct-horse", true, false},
		{"wrong password", "bob", "battery-staple", true, true},
		{"unknown user", "nobody", "correct-horse", false, true},
		{"empty password", "bob", "", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var sessionCreated bool
			userRepo := &mockUserRepo{
				findByUsernameFn: func(ctx context.Context, username string) (*model.User, error) {
					if !tt.found {
						return nil, nil
					}
					return stored, nil
				},
			}
			sessionRepo := &mockSessionRepo{
				createFn: func(ctx context.Context, session *model.Session) error {
					sessionCreated = true
					return nil
				},
			}
			svc := NewService(userRepo, sessionRepo, testConfig)

			user, session, err := svc.Login(context.Background(), tt.username, tt.password)
			if tt.wantErr {
				var apiErr *model.APIError
				if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeInvalidCredentials {
					t.Fatalf("err = %v, want INVALID_CREDENTIALS", err)
				}
				if sessionCreated {
					t.Error("認証失敗時にセッションを作成してはならない")
				}
				return
			}
			if err != nil {
				t.Fatalf("Login() error = %v", err)
			}
			if user.ID != "user-1" || session.UserID != "user-1" {
				t.Errorf("user = %+v, session = %+v", user, session)
			}
		})
	}
}

func TestLogout_DeletesSession(t *testing.T) {
	var deletedSessionID string
	sessionRepo := &mockSessionRepo{
		deleteByIDFn: func(ctx context.Context, id string) error {
			deletedSessionID = id
			return nil
		},
	}
	svc := NewService(nil, sessionRepo, testConfig)

	if err := svc.Logout(context.Background(), "session-to-delete"); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if deletedSessionID != "session-to-delete" {
		t.Errorf("deleted session ID = %q, want %q", deletedSessionID, "session-to-delete")
	}
}

func TestLogout_EmptySessionID_ReturnsError(t *testing.T) {
	svc := NewService(nil, nil, testConfig)

	if err := svc.Logout(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty session ID")
	}
}

func TestGetCurrentUser_ValidSession_ReturnsUser(t *testing.T) {
	sessionRepo := &mockSessionRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Session, error) {
			return &model.Session{ID: id, UserID: "user-1", ExpiresAt: time.Now().Add(time.Hour)}, nil
		},
	}
	userRepo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{ID: id, Username: "bob"}, nil
		},
	}
	svc := NewService(userRepo, sessionRepo, testConfig)

	user, err := svc.GetCurrentUser(context.Background(), "session-valid")
	if err != nil {
		t.Fatalf("GetCurrentUser() error = %v", err)
	}
	if user.ID != "user-1" {
		t.Errorf("user ID = %q, want %q", user.ID, "user-1")
	}
}

func TestGetCurrentUser_ExpiredSession_ReturnsUnauthorized(t *testing.T) {
	svc := NewService(&mockUserRepo{}, &mockSessionRepo{}, testConfig)

	_, err := svc.GetCurrentUser(context.Background(), "session-expired")
	if !model.IsKind(err, model.KindAuthentication) {
		t.Fatalf("err = %v, want Authentication", err)
	}
}

func TestResolveActor(t *testing.T) {
	var calls int
	sessionRepo := &mockSessionRepo{
		findActorFn: func(ctx context.Context, id string) (*model.Actor, error) {
			calls++
			if id != "staff-session" {
				return nil, nil
			}
			return &model.Actor{UserID: "staff-1", IsStaff: true}, nil
		},
	}
	svc := NewService(&mockUserRepo{}, sessionRepo, testConfig)

	actor, err := svc.ResolveActor(context.Background(), "staff-session")
	if err != nil {
		t.Fatalf("ResolveActor() error = %v", err)
	}
	if actor == nil || actor.UserID != "staff-1" || !actor.IsStaff {
		t.Errorf("actor = %+v", actor)
	}

	// 無効なセッションはエラーではなくnilを返す
	actor, err = svc.ResolveActor(context.Background(), "unknown")
	if err != nil || actor != nil {
		t.Errorf("ResolveActor(unknown) = %+v, %v", actor, err)
	}

	// 空のセッションIDはリポジトリを参照しない
	actor, err = svc.ResolveActor(context.Background(), "")
	if err != nil || actor != nil {
		t.Errorf("ResolveActor(\"\") = %+v, %v", actor, err)
	}
	if calls != 2 {
		t.Errorf("FindActor calls = %d, want 2", calls)
	}
}

func TestResolveActor_RepositoryError(t *testing.T) {
	sessionRepo := &mockSessionRepo{
		findActorFn: func(ctx context.Context, id string) (*model.Actor, error) {
			return nil, errors.New("db error")
		},
	}
	svc := NewService(&mockUserRepo{}, sessionRepo, testConfig)

	if _, err := svc.ResolveActor(context.Background(), "any"); err == nil {
		t.Fatal("expected error")
	}
}

func TestGenerateSessionID_UniqueAndHex(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id, err := generateSessionID()
		if err != nil {
			t.Fatalf("generateSessionID() error = %v", err)
		}
		if len(id) != 64 {
			t.Errorf("len(id) = %d, want 64", len(id))
		}
		if seen[id] {
			t.Fatalf("duplicate session ID: %s", id)
		}
		seen[id] = true
	}
}
