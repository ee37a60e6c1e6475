package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Goodness5/Vortexis-Backend/internal/database/testutil"
	"github.com/Goodness5/Vortexis-Backend/internal/models"
	apperrors "github.com/Goodness5/Vortexis-Backend/pkg/errors"
)

type recordingNotifier struct {
	mu       sync.Mutex
	requests []NotificationRequest
}

func (r *recordingNotifier) Send(_ context.Context, req NotificationRequest) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, req)
}

func (r *recordingNotifier) sentTo(userID string) []NotificationRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []NotificationRequest
	for _, req := range r.requests {
		if req.UserID == userID {
			out = append(out, req)
		}
	}
	return out
}

type sentMail struct {
	to      string
	subject string
	body    string
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (r *recordingMailer) Send(_ context.Context, to, subject, body string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, sentMail{to: to, subject: subject, body: body})
	return nil
}

func (r *recordingMailer) messages() []sentMail {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]sentMail(nil), r.sent...)
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type teamFixture struct {
	db       *gorm.DB
	deps     TeamDeps
	notifier *recordingNotifier
	mailer   *recordingMailer
	clock    *testClock
}

func newTeamFixture(t *testing.T) *teamFixture {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	audit, err := NewAuditService(db)
	require.NoError(t, err)

	fx := &teamFixture{
		db:       db,
		notifier: &recordingNotifier{},
		mailer:   &recordingMailer{},
		clock:    newTestClock(),
	}
	fx.deps = TeamDeps{
		DB:          db,
		Notifier:    fx.notifier,
		Mailer:      fx.mailer,
		Audit:       audit,
		FrontendURL: "https://app.vortexis.test/",
		Clock:       fx.clock.Now,
	}
	return fx
}

func (fx *teamFixture) invitations(t *testing.T) *InvitationService {
	t.Helper()
	svc, err := NewInvitationService(fx.deps, 0)
	require.NoError(t, err)
	return svc
}

func (fx *teamFixture) membership(t *testing.T) *MembershipService {
	t.Helper()
	svc, err := NewMembershipService(fx.deps)
	require.NoError(t, err)
	return svc
}

func (fx *teamFixture) joinRequests(t *testing.T) *JoinRequestService {
	t.Helper()
	svc, err := NewJoinRequestService(fx.deps)
	require.NoError(t, err)
	return svc
}

func (fx *teamFixture) conversations(t *testing.T) *ConversationService {
	t.Helper()
	svc, err := NewConversationService(fx.deps)
	require.NoError(t, err)
	return svc
}

func (fx *teamFixture) user(t *testing.T, username string) *models.User {
	t.Helper()
	return createTestUser(t, fx.db, username, username+"@x.com")
}

func (fx *teamFixture) hackathon(t *testing.T, minSize, maxSize int) *models.Hackathon {
	t.Helper()
	owner := fx.user(t, "owner")
	org := models.Organization{Name: "Org " + owner.ID[:8], OrganizerID: owner.ID}
	require.NoError(t, fx.db.Create(&org).Error)

	hackathon := models.Hackathon{
		Title:          "Spring Hack",
		StartDate:      fx.clock.Now().Add(24 * time.Hour),
		EndDate:        fx.clock.Now().Add(72 * time.Hour),
		MinTeamSize:    minSize,
		MaxTeamSize:    maxSize,
		OrganizationID: org.ID,
	}
	require.NoError(t, fx.db.Create(&hackathon).Error)
	return &hackathon
}

func (fx *teamFixture) register(t *testing.T, hackathon *models.Hackathon, users ...*models.User) {
	t.Helper()
	for _, user := range users {
		require.NoError(t, fx.db.Create(&models.Participant{
			HackathonID:    hackathon.ID,
			UserID:         user.ID,
			LookingForTeam: true,
		}).Error)
	}
}

func (fx *teamFixture) participant(t *testing.T, hackathonID, userID string) models.Participant {
	t.Helper()
	var participant models.Participant
	require.NoError(t, fx.db.First(&participant, "hackathon_id = ? AND user_id = ?", hackathonID, userID).Error)
	return participant
}

func (fx *teamFixture) memberIDs(t *testing.T, teamID string) []string {
	t.Helper()
	members, err := teamMembers(fx.db, teamID)
	require.NoError(t, err)
	ids := make([]string, 0, len(members))
	for _, member := range members {
		ids = append(ids, member.ID)
	}
	return ids
}

// teamOf creates a team led by organizer whose other members joined through
// accepted invitations.
func (fx *teamFixture) teamOf(t *testing.T, hackathon *models.Hackathon, organizer *models.User, members ...*models.User) *models.Team {
	t.Helper()
	emails := make([]string, 0, len(members))
	for _, member := range members {
		emails = append(emails, member.Email)
	}

	svc := fx.invitations(t)
	created, err := svc.CreateTeamWithInvitations(context.Background(), organizer.ID, CreateTeamInput{
		Name:         "Team " + organizer.Username,
		HackathonID:  hackathon.ID,
		MemberEmails: emails,
	})
	require.NoError(t, err)

	for i, member := range members {
		_, err := svc.AcceptInvitation(context.Background(), created.Invitations[i].Token, member.ID)
		require.NoError(t, err)
	}
	return created.Team
}

func createTestUser(t *testing.T, db *gorm.DB, username, email string) *models.User {
	t.Helper()
	user := models.User{
		Username:      username,
		Email:         email,
		Password:      "not-a-real-hash",
		IsActive:      true,
		IsVerified:    true,
		IsParticipant: true,
	}
	require.NoError(t, db.Create(&user).Error)
	return &user
}

func requireKind(t *testing.T, err error, kind apperrors.Kind) {
	t.Helper()
	require.Error(t, err)
	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %v", err)
	require.Equal(t, kind, appErr.Kind, "unexpected error: %v", err)
}
