package meeting

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/skillswap/internal/model"
	"github.com/hitoshi/skillswap/internal/repository"
	"github.com/hitoshi/skillswap/internal/security"
)

// --- モック ---

type mockMeetingRepo struct {
	repository.MeetingRepository
	meetings       map[string]*model.Meeting
	createFn       func(ctx context.Context, m *model.Meeting) error
	updatedStatus  model.MeetingStatus
	listForUserErr error
}

func newMockMeetingRepo(ms ...*model.Meeting) *mockMeetingRepo {
	repo := &mockMeetingRepo{meetings: make(map[string]*model.Meeting)}
	for _, m := range ms {
		repo.meetings[m.ID] = m
	}
	return repo
}

func (m *mockMeetingRepo) FindByID(ctx context.Context, id string) (*model.Meeting, error) {
	mt, ok := m.meetings[id]
	if !ok {
		return nil, nil
	}
	cp := *mt
	return &cp, nil
}
func (m *mockMeetingRepo) Create(ctx context.Context, mt *model.Meeting) error {
	if m.createFn != nil {
		return m.createFn(ctx, mt)
	}
	m.meetings[mt.ID] = mt
	return nil
}
func (m *mockMeetingRepo) UpdateStatus(ctx context.Context, id string, status model.MeetingStatus, at time.Time) error {
	m.updatedStatus = status
	return nil
}
func (m *mockMeetingRepo) ListForUser(ctx context.Context, userID string) ([]*model.Meeting, error) {
	var out []*model.Meeting
	for _, mt := range m.meetings {
		if mt.HasMember(userID) {
			out = append(out, mt)
		}
	}
	return out, m.listForUserErr
}

type mockUserRepo struct {
	repository.UserRepository
}

var testUsers = map[string]*model.User{
	"alice": {ID: "alice", Username: "alice", FirstName: "Alice", LastName: "Liddell"},
	"bob":   {ID: "bob", Username: "bob"},
	"carol": {ID: "carol", Username: "carol"},
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	return testUsers[id], nil
}
func (m *mockUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return testUsers[username], nil
}

type mockSkillRepo struct {
	repository.SkillRepository
}

func (m *mockSkillRepo) FindByID(ctx context.Context, id string) (*model.Skill, error) {
	if id == "skill-1" {
		return &model.Skill{ID: id}, nil
	}
	return nil, nil
}

type notifyCall struct {
	userID    string
	nType     model.NotificationType
	meetingID *string
}

type mockSink struct {
	calls []notifyCall
}

func (m *mockSink) Notify(ctx context.Context, userID string, nType model.NotificationType, message string, relatedMeetingID *string) error {
	m.calls = append(m.calls, notifyCall{userID: userID, nType: nType, meetingID: relatedMeetingID})
	return nil
}

var now = time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)

func newTestService(repo *mockMeetingRepo, sink *mockSink) *Service {
	svc := NewService(repo, &mockUserRepo{}, &mockSkillRepo{}, sink, security.NewContentSanitizer())
	svc.now = func() time.Time { return now }
	return svc
}

func strPtr(s string) *string { return &s }

// --- Schedule ---

func TestService_Schedule_DefaultsAndInvites(t *testing.T) {
	repo := newMockMeetingRepo()
	sink := &mockSink{}
	svc := newTestService(repo, sink)

	m, err := svc.Schedule(context.Background(), model.Actor{UserID: "alice"}, ScheduleInput{
		Title:          "Study group",
		ScheduledAt:    now.Add(24 * time.Hour),
		ParticipantIDs: []string{"bob", "carol", "bob", "alice"},
		RelatedSkillID: strPtr("skill-1"),
	})
	if err != nil {
		t.Fatalf("Schedule returned error: %v", err)
	}
	if m.MeetingType != model.MeetingTypeGeneral {
		t.Errorf("MeetingType = %s, want general", m.MeetingType)
	}
	if m.DurationMinutes != 60 {
		t.Errorf("DurationMinutes = %d, want 60", m.DurationMinutes)
	}
	if m.Status != model.MeetingStatusScheduled {
		t.Errorf("Status = %s, want scheduled", m.Status)
	}
	// 重複と主催者は除かれる
	if len(m.ParticipantIDs) != 2 {
		t.Errorf("ParticipantIDs = %v, want [bob carol]", m.ParticipantIDs)
	}
	if len(sink.calls) != 2 {
		t.Fatalf("通知数 = %d, want 2", len(sink.calls))
	}
	for _, c := range sink.calls {
		if c.nType != model.NotificationMeetingInvite {
			t.Errorf("type = %s, want meeting_invite", c.nType)
		}
		if c.meetingID == nil || *c.meetingID != m.ID {
			t.Errorf("meetingID = %v, want %s", c.meetingID, m.ID)
		}
		if c.userID == "alice" {
			t.Error("主催者には招待通知を送らない")
		}
	}
}

func TestService_Schedule_Validation(t *testing.T) {
	tests := []struct {
		name string
		in   ScheduleInput
	}{
		{"title required", ScheduleInput{ScheduledAt: now.Add(time.Hour)}},
		{"unknown type", ScheduleInput{Title: "x", MeetingType: "party", ScheduledAt: now.Add(time.Hour)}},
		{"duration too short", ScheduleInput{Title: "x", DurationMinutes: 10, ScheduledAt: now.Add(time.Hour)}},
		{"duration too long", ScheduleInput{Title: "x", DurationMinutes: 481, ScheduledAt: now.Add(time.Hour)}},
		{"in the past", ScheduleInput{Title: "x", ScheduledAt: now.Add(-time.Minute)}},
		{"too far ahead", ScheduleInput{Title: "x", ScheduledAt: now.Add(366 * 24 * time.Hour)}},
		{"missing date", ScheduleInput{Title: "x"}},
		{"unknown participant", ScheduleInput{Title: "x", ScheduledAt: now.Add(time.Hour), ParticipantIDs: []string{"ghost"}}},
		{"title too long", ScheduleInput{Title: strings.Repeat("t", 201), ScheduledAt: now.Add(time.Hour)}},
		{"location too long", ScheduleInput{Title: "x", Location: strings.Repeat("l", 301), ScheduledAt: now.Add(time.Hour)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMockMeetingRepo()
			svc := newTestService(repo, &mockSink{})

			_, err := svc.Schedule(context.Background(), model.Actor{UserID: "alice"}, tt.in)
			if !model.IsKind(err, model.KindValidation) {
				t.Errorf("err = %v, want Validation", err)
			}
			if len(repo.meetings) != 0 {
				t.Error("バリデーションエラー時に作成してはならない")
			}
		})
	}
}

func TestService_Schedule_RelatedSkillNotFound(t *testing.T) {
	svc := newTestService(newMockMeetingRepo(), &mockSink{})

	_, err := svc.Schedule(context.Background(), model.Actor{UserID: "alice"}, ScheduleInput{
		Title: "x", ScheduledAt: now.Add(time.Hour), RelatedSkillID: strPtr("missing"),
	})
	if !model.IsKind(err, model.KindNotFound) {
		t.Errorf("err = %v, want NotFound", err)
	}
}

func TestValidateText_Boundaries(t *testing.T) {
	tests := []struct {
		name     string
		title    string
		location string
		wantErr  bool
	}{
		{"上限ちょうど", strings.Repeat("t", MaxTitleLength), strings.Repeat("l", MaxLocationLength), false},
		{"マルチバイトで上限ちょうど", strings.Repeat("会", MaxTitleLength), strings.Repeat("室", MaxLocationLength), false},
		{"タイトル超過", strings.Repeat("t", MaxTitleLength+1), "", true},
		{"場所超過", "x", strings.Repeat("l", MaxLocationLength+1), true},
		{"タイトルなし", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateText(tt.title, tt.location)
			if tt.wantErr && !model.IsKind(err, model.KindValidation) {
				t.Errorf("err = %v, want Validation", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidateSchedule_Boundaries(t *testing.T) {
	tests := []struct {
		name     string
		at       time.Time
		duration int
		wantErr  bool
	}{
		{"now", now, 60, false},
		{"min duration", now.Add(time.Hour), 15, false},
		{"max duration", now.Add(time.Hour), 480, false},
		{"exactly 365 days", now.Add(365 * 24 * time.Hour), 60, false},
		{"past by a second", now.Add(-time.Second), 60, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSchedule(tt.at, tt.duration, now)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSchedule() err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// --- QuickSchedule ---

func TestService_QuickSchedule_AddsTarget(t *testing.T) {
	sink := &mockSink{}
	svc := newTestService(newMockMeetingRepo(), sink)

	m, err := svc.QuickSchedule(context.Background(), model.Actor{UserID: "bob"}, "alice", ScheduleInput{
		ScheduledAt: now.Add(2 * time.Hour),
	})
	if err != nil {
		t.Fatalf("QuickSchedule returned error: %v", err)
	}
	if !m.HasMember("alice") {
		t.Errorf("ParticipantIDs = %v, want alice", m.ParticipantIDs)
	}
	if m.Title != "Alice Liddell さんとのミーティング" {
		t.Errorf("Title = %q", m.Title)
	}
	if len(sink.calls) != 1 || sink.calls[0].userID != "alice" {
		t.Errorf("notifications = %+v", sink.calls)
	}
}

func TestService_QuickSchedule_Errors(t *testing.T) {
	svc := newTestService(newMockMeetingRepo(), &mockSink{})
	in := ScheduleInput{ScheduledAt: now.Add(time.Hour)}

	if _, err := svc.QuickSchedule(context.Background(), model.Actor{UserID: "bob"}, "ghost", in); !model.IsKind(err, model.KindNotFound) {
		t.Errorf("unknown user: err = %v, want NotFound", err)
	}
	if _, err := svc.QuickSchedule(context.Background(), model.Actor{UserID: "bob"}, "bob", in); !model.IsKind(err, model.KindValidation) {
		t.Errorf("self: err = %v, want Validation", err)
	}
}

// --- Detail / UpdateStatus ---

func fixtureMeeting() *model.Meeting {
	return &model.Meeting{
		ID:              "meeting-1",
		Title:           "Jam",
		OrganizerID:     "alice",
		ParticipantIDs:  []string{"bob", "carol"},
		ScheduledAt:     now.Add(time.Hour),
		DurationMinutes: 30,
		Status:          model.MeetingStatusScheduled,
	}
}

func TestService_Detail_MembersOnly(t *testing.T) {
	svc := newTestService(newMockMeetingRepo(fixtureMeeting()), &mockSink{})

	for _, uid := range []string{"alice", "bob"} {
		if _, err := svc.Detail(context.Background(), model.Actor{UserID: uid}, "meeting-1"); err != nil {
			t.Errorf("Detail by %s: %v", uid, err)
		}
	}
	if _, err := svc.Detail(context.Background(), model.Actor{UserID: "mallory"}, "meeting-1"); !model.IsKind(err, model.KindAuthorization) {
		t.Errorf("outsider: err = %v, want Authorization", err)
	}
	if _, err := svc.Detail(context.Background(), model.Actor{UserID: "alice"}, "missing"); !model.IsKind(err, model.KindNotFound) {
		t.Errorf("missing: err = %v, want NotFound", err)
	}
}

// 参加者が状態を更新すると、自分以外の主催者・参加者に通知されることを検証
func TestService_UpdateStatus_NotifiesOthers(t *testing.T) {
	repo := newMockMeetingRepo(fixtureMeeting())
	sink := &mockSink{}
	svc := newTestService(repo, sink)

	m, err := svc.UpdateStatus(context.Background(), model.Actor{UserID: "bob"}, "meeting-1", model.MeetingStatusConfirmed)
	if err != nil {
		t.Fatalf("UpdateStatus returned error: %v", err)
	}
	if m.Status != model.MeetingStatusConfirmed || repo.updatedStatus != model.MeetingStatusConfirmed {
		t.Errorf("status = %s / %s", m.Status, repo.updatedStatus)
	}

	got := map[string]bool{}
	for _, c := range sink.calls {
		if c.nType != model.NotificationMeetingUpdate {
			t.Errorf("type = %s", c.nType)
		}
		got[c.userID] = true
	}
	if len(sink.calls) != 2 || !got["alice"] || !got["carol"] || got["bob"] {
		t.Errorf("recipients = %v, want alice and carol", got)
	}
}

func TestService_UpdateStatus_Invalid(t *testing.T) {
	repo := newMockMeetingRepo(fixtureMeeting())
	sink := &mockSink{}
	svc := newTestService(repo, sink)

	if _, err := svc.UpdateStatus(context.Background(), model.Actor{UserID: "alice"}, "meeting-1", "postponed"); !model.IsKind(err, model.KindValidation) {
		t.Errorf("err = %v, want Validation", err)
	}
	if _, err := svc.UpdateStatus(context.Background(), model.Actor{UserID: "mallory"}, "meeting-1", model.MeetingStatusCancelled); !model.IsKind(err, model.KindAuthorization) {
		t.Errorf("err = %v, want Authorization", err)
	}
	if repo.updatedStatus != "" || len(sink.calls) != 0 {
		t.Error("失敗した操作で状態変更や通知をしてはならない")
	}
}

// --- MyMeetings / Calendar ---

func TestPartition(t *testing.T) {
	upcoming := &model.Meeting{ID: "up", ScheduledAt: now.Add(time.Hour), Status: model.MeetingStatusConfirmed}
	past := &model.Meeting{ID: "past", ScheduledAt: now.Add(-time.Hour), Status: model.MeetingStatusScheduled}
	completedEarly := &model.Meeting{ID: "done", ScheduledAt: now.Add(time.Hour), Status: model.MeetingStatusCompleted}
	cancelledFuture := &model.Meeting{ID: "cancelled", ScheduledAt: now.Add(time.Hour), Status: model.MeetingStatusCancelled}

	result := Partition([]*model.Meeting{upcoming, past, completedEarly, cancelledFuture}, now)

	ids := func(ms []*model.Meeting) map[string]bool {
		out := map[string]bool{}
		for _, m := range ms {
			out[m.ID] = true
		}
		return out
	}
	up, pa := ids(result.Upcoming), ids(result.Past)
	if len(up) != 1 || !up["up"] {
		t.Errorf("Upcoming = %v", up)
	}
	if len(pa) != 2 || !pa["past"] || !pa["done"] {
		t.Errorf("Past = %v", pa)
	}
}

func TestService_Calendar_Colors(t *testing.T) {
	organized := fixtureMeeting()
	joined := &model.Meeting{
		ID: "meeting-2", Title: "Review", OrganizerID: "carol", ParticipantIDs: []string{"alice"},
		ScheduledAt: now.Add(48 * time.Hour), DurationMinutes: 90,
	}
	svc := newTestService(newMockMeetingRepo(organized, joined), &mockSink{})

	events, err := svc.Calendar(context.Background(), model.Actor{UserID: "alice"})
	if err != nil {
		t.Fatalf("Calendar returned error: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("len(events) = %d, want 2", len(events))
	}
	for _, e := range events {
		switch e.ID {
		case "meeting-1":
			if e.Color != "#6366f1" {
				t.Errorf("organizer color = %s", e.Color)
			}
			if !e.End.Equal(e.Start.Add(30 * time.Minute)) {
				t.Errorf("end = %v", e.End)
			}
		case "meeting-2":
			if e.Color != "#10b981" {
				t.Errorf("participant color = %s", e.Color)
			}
			if e.URL != "/api/meetings/meeting-2" {
				t.Errorf("url = %s", e.URL)
			}
		}
	}
}
