package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Goodness5/Vortexis-Backend/internal/models"
	apperrors "github.com/Goodness5/Vortexis-Backend/pkg/errors"
)

func TestHackathonServiceCreate(t *testing.T) {
	fx := newTeamFixture(t)
	orgs := newOrganizationService(t, fx)
	svc, err := NewHackathonService(fx.db, fx.notifier, fx.deps.Audit)
	require.NoError(t, err)
	ctx := context.Background()

	founder := fx.user(t, "founder")
	outsider := fx.user(t, "outsider")
	org, err := orgs.Create(ctx, founder.ID, CreateOrganizationInput{Name: "Hack Org"})
	require.NoError(t, err)

	start := fx.clock.Now().Add(48 * time.Hour)
	input := CreateHackathonInput{
		OrganizationID: org.ID,
		Title:          "Winter Hack",
		StartDate:      start,
		EndDate:        start.Add(48 * time.Hour),
	}

	hackathon, err := svc.Create(ctx, founder.ID, input)
	require.NoError(t, err)
	require.Equal(t, 1, hackathon.MinTeamSize)
	require.Equal(t, 4, hackathon.MaxTeamSize)
	require.Equal(t, org.ID, hackathon.Organization.ID)

	_, err = svc.Create(ctx, outsider.ID, input)
	requireKind(t, err, apperrors.KindAuthorization)

	bad := input
	bad.MinTeamSize, bad.MaxTeamSize = 5, 3
	_, err = svc.Create(ctx, founder.ID, bad)
	requireKind(t, err, apperrors.KindValidation)

	bad = input
	bad.EndDate = bad.StartDate
	_, err = svc.Create(ctx, founder.ID, bad)
	requireKind(t, err, apperrors.KindValidation)

	bad = input
	bad.OrganizationID = "missing"
	_, err = svc.Create(ctx, founder.ID, bad)
	requireKind(t, err, apperrors.KindNotFound)

	_, err = svc.Get(ctx, "missing")
	requireKind(t, err, apperrors.KindNotFound)
}

func TestHackathonServiceRegister(t *testing.T) {
	fx := newTeamFixture(t)
	svc, err := NewHackathonService(fx.db, fx.notifier, fx.deps.Audit)
	require.NoError(t, err)
	ctx := context.Background()

	hackathon := fx.hackathon(t, 1, 4)
	user := fx.user(t, "newbie")
	require.NoError(t, fx.db.Model(user).Update("is_participant", false).Error)

	participant, err := svc.Register(ctx, hackathon.ID, user.ID)
	require.NoError(t, err)
	require.True(t, participant.LookingForTeam)
	require.Nil(t, participant.TeamID)

	var reloaded models.User
	require.NoError(t, fx.db.First(&reloaded, "id = ?", user.ID).Error)
	require.True(t, reloaded.IsParticipant)

	_, err = svc.Register(ctx, hackathon.ID, user.ID)
	requireKind(t, err, apperrors.KindValidation)

	_, err = svc.Register(ctx, "missing", user.ID)
	requireKind(t, err, apperrors.KindNotFound)
}

func TestHackathonServiceAddJudge(t *testing.T) {
	fx := newTeamFixture(t)
	svc, err := NewHackathonService(fx.db, fx.notifier, fx.deps.Audit)
	require.NoError(t, err)
	ctx := context.Background()

	hackathon := fx.hackathon(t, 1, 4)
	judge := fx.user(t, "judy")
	outsider := fx.user(t, "outsider")

	var org models.Organization
	require.NoError(t, fx.db.First(&org, "id = ?", hackathon.OrganizationID).Error)

	_, err = svc.AddJudge(ctx, hackathon.ID, outsider.ID, judge.Email)
	requireKind(t, err, apperrors.KindAuthorization)

	updated, err := svc.AddJudge(ctx, hackathon.ID, org.OrganizerID, "JUDY@x.com")
	require.NoError(t, err)
	require.Len(t, updated.Judges, 1)
	require.Len(t, fx.notifier.sentTo(judge.ID), 1)

	var reloaded models.User
	require.NoError(t, fx.db.First(&reloaded, "id = ?", judge.ID).Error)
	require.True(t, reloaded.IsJudge)

	_, err = svc.AddJudge(ctx, hackathon.ID, org.OrganizerID, judge.Email)
	requireKind(t, err, apperrors.KindConflict)

	_, err = svc.AddJudge(ctx, hackathon.ID, org.OrganizerID, "nobody@x.com")
	requireKind(t, err, apperrors.KindNotFound)
}
