package handler

import (
	"context"

	"github.com/hitoshi/skillswap/internal/admin"
	"github.com/hitoshi/skillswap/internal/auth"
	"github.com/hitoshi/skillswap/internal/meeting"
	"github.com/hitoshi/skillswap/internal/message"
	"github.com/hitoshi/skillswap/internal/model"
	"github.com/hitoshi/skillswap/internal/notification"
	"github.com/hitoshi/skillswap/internal/repository"
	"github.com/hitoshi/skillswap/internal/review"
	"github.com/hitoshi/skillswap/internal/skill"
	"github.com/hitoshi/skillswap/internal/skillrequest"
	"github.com/hitoshi/skillswap/internal/user"
)

// --- AuthServiceInterface ---

type mockAuthService struct {
	registerFn       func(ctx context.Context, in auth.RegisterInput) (*model.User, *model.Session, error)
	loginFn          func(ctx context.Context, username, password string) (*model.User, *model.Session, error)
	logoutFn         func(ctx context.Context, sessionID string) error
	getCurrentUserFn func(ctx context.Context, sessionID string) (*model.User, error)
}

func (m *mockAuthService) Register(ctx context.Context, in auth.RegisterInput) (*model.User, *model.Session, error) {
	return m.registerFn(ctx, in)
}

func (m *mockAuthService) Login(ctx context.Context, username, password string) (*model.User, *model.Session, error) {
	return m.loginFn(ctx, username, password)
}

func (m *mockAuthService) Logout(ctx context.Context, sessionID string) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, sessionID)
	}
	return nil
}

func (m *mockAuthService) GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error) {
	return m.getCurrentUserFn(ctx, sessionID)
}

// --- UserServiceInterface ---

type mockUserService struct {
	getProfileFn    func(ctx context.Context, username string) (*user.ProfileView, error)
	updateProfileFn func(ctx context.Context, actor model.Actor, in user.ProfileInput) (*model.Profile, error)
	searchUsersFn   func(ctx context.Context, actor model.Actor, query string) ([]*model.User, error)
	deleteAccountFn func(ctx context.Context, actor model.Actor) error
}

func (m *mockUserService) GetProfile(ctx context.Context, username string) (*user.ProfileView, error) {
	return m.getProfileFn(ctx, username)
}

func (m *mockUserService) UpdateProfile(ctx context.Context, actor model.Actor, in user.ProfileInput) (*model.Profile, error) {
	return m.updateProfileFn(ctx, actor, in)
}

func (m *mockUserService) SearchUsers(ctx context.Context, actor model.Actor, query string) ([]*model.User, error) {
	return m.searchUsersFn(ctx, actor, query)
}

func (m *mockUserService) DeleteAccount(ctx context.Context, actor model.Actor) error {
	return m.deleteAccountFn(ctx, actor)
}

// --- SkillServiceInterface ---

type mockSkillService struct {
	createFn    func(ctx context.Context, actor model.Actor, in skill.CreateInput) (*model.Skill, error)
	listFn      func(ctx context.Context, q skill.ListQuery) (*skill.ListResult, error)
	searchFn    func(ctx context.Context, query string) ([]*model.Skill, error)
	detailFn    func(ctx context.Context, skillID string) (*skill.Detail, error)
	dashboardFn func(ctx context.Context, actor model.Actor) (*skill.Dashboard, error)
}

func (m *mockSkillService) Create(ctx context.Context, actor model.Actor, in skill.CreateInput) (*model.Skill, error) {
	return m.createFn(ctx, actor, in)
}

func (m *mockSkillService) List(ctx context.Context, q skill.ListQuery) (*skill.ListResult, error) {
	return m.listFn(ctx, q)
}

func (m *mockSkillService) Search(ctx context.Context, query string) ([]*model.Skill, error) {
	return m.searchFn(ctx, query)
}

func (m *mockSkillService) Detail(ctx context.Context, skillID string) (*skill.Detail, error) {
	return m.detailFn(ctx, skillID)
}

func (m *mockSkillService) Dashboard(ctx context.Context, actor model.Actor) (*skill.Dashboard, error) {
	return m.dashboardFn(ctx, actor)
}

// --- SkillRequestServiceInterface ---

type requestOp func(ctx context.Context, actor model.Actor, requestID string) (*model.SkillRequest, error)

type mockSkillRequestService struct {
	requestFn     requestOp
	acceptFn      requestOp
	rejectFn      requestOp
	startFn       requestOp
	completeFn    requestOp
	listForUserFn func(ctx context.Context, actor model.Actor) (*skillrequest.Lists, error)
}

func (m *mockSkillRequestService) Request(ctx context.Context, actor model.Actor, skillID string) (*model.SkillRequest, error) {
	return m.requestFn(ctx, actor, skillID)
}

func (m *mockSkillRequestService) Accept(ctx context.Context, actor model.Actor, requestID string) (*model.SkillRequest, error) {
	return m.acceptFn(ctx, actor, requestID)
}

func (m *mockSkillRequestService) Reject(ctx context.Context, actor model.Actor, requestID string) (*model.SkillRequest, error) {
	return m.rejectFn(ctx, actor, requestID)
}

func (m *mockSkillRequestService) Start(ctx context.Context, actor model.Actor, requestID string) (*model.SkillRequest, error) {
	return m.startFn(ctx, actor, requestID)
}

func (m *mockSkillRequestService) Complete(ctx context.Context, actor model.Actor, requestID string) (*model.SkillRequest, error) {
	return m.completeFn(ctx, actor, requestID)
}

func (m *mockSkillRequestService) ListForUser(ctx context.Context, actor model.Actor) (*skillrequest.Lists, error) {
	return m.listForUserFn(ctx, actor)
}

// --- 残りのサービスは埋め込みインターフェースで未使用メソッドを省略する ---

type mockReviewService struct {
	ReviewServiceInterface
	addFn func(ctx context.Context, actor model.Actor, skillID string, in review.Input) (*model.Review, error)
}

func (m *mockReviewService) Add(ctx context.Context, actor model.Actor, skillID string, in review.Input) (*model.Review, error) {
	return m.addFn(ctx, actor, skillID, in)
}

type mockMessageService struct {
	MessageServiceInterface
	sendFn func(ctx context.Context, actor model.Actor, in message.SendInput) (*model.Message, error)
}

func (m *mockMessageService) Send(ctx context.Context, actor model.Actor, in message.SendInput) (*model.Message, error) {
	return m.sendFn(ctx, actor, in)
}

type mockMeetingService struct {
	MeetingServiceInterface
	calendarFn func(ctx context.Context, actor model.Actor) ([]meeting.CalendarEvent, error)
}

func (m *mockMeetingService) Calendar(ctx context.Context, actor model.Actor) ([]meeting.CalendarEvent, error) {
	return m.calendarFn(ctx, actor)
}

type mockNotificationService struct {
	NotificationServiceInterface
	countsFn func(ctx context.Context, actor model.Actor) (*notification.Counts, error)
}

func (m *mockNotificationService) Counts(ctx context.Context, actor model.Actor) (*notification.Counts, error) {
	return m.countsFn(ctx, actor)
}

type mockReportService struct {
	createFn func(ctx context.Context, actor model.Actor, reportedUsername, reason string) (*model.Report, error)
}

func (m *mockReportService) Create(ctx context.Context, actor model.Actor, reportedUsername, reason string) (*model.Report, error) {
	return m.createFn(ctx, actor, reportedUsername, reason)
}

type mockAdminService struct {
	AdminServiceInterface
	dashboardFn      func(ctx context.Context, actor model.Actor) (*repository.DashboardStats, error)
	requestsFn       func(ctx context.Context, actor model.Actor, status string) ([]repository.SkillRequestWithNames, error)
	editUserFn       func(ctx context.Context, actor model.Actor, userID, username, email string) error
	approveRequestFn func(ctx context.Context, actor model.Actor, requestID string) error
	editMeetingFn    func(ctx context.Context, actor model.Actor, meetingID string, in admin.MeetingInput) (*model.Meeting, error)
}

func (m *mockAdminService) Dashboard(ctx context.Context, actor model.Actor) (*repository.DashboardStats, error) {
	return m.dashboardFn(ctx, actor)
}

func (m *mockAdminService) Requests(ctx context.Context, actor model.Actor, status string) ([]repository.SkillRequestWithNames, error) {
	return m.requestsFn(ctx, actor, status)
}

func (m *mockAdminService) EditUser(ctx context.Context, actor model.Actor, userID, username, email string) error {
	return m.editUserFn(ctx, actor, userID, username, email)
}

func (m *mockAdminService) ApproveRequest(ctx context.Context, actor model.Actor, requestID string) error {
	return m.approveRequestFn(ctx, actor, requestID)
}

func (m *mockAdminService) EditMeeting(ctx context.Context, actor model.Actor, meetingID string, in admin.MeetingInput) (*model.Meeting, error) {
	return m.editMeetingFn(ctx, actor, meetingID, in)
}
