package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Goodness5/Vortexis-Backend/internal/models"
	apperrors "github.com/Goodness5/Vortexis-Backend/pkg/errors"
)

func TestJoinRequestApproveAddsMemberWithoutParticipantSync(t *testing.T) {
	fx := newTeamFixture(t)
	hackathon := fx.hackathon(t, 1, 4)
	alice := fx.user(t, "alice")
	bob := fx.user(t, "bob")
	fx.register(t, hackathon, alice, bob)
	team := fx.teamOf(t, hackathon, alice)

	svc := fx.joinRequests(t)
	ctx := context.Background()

	request, err := svc.Request(ctx, team.ID, bob.ID)
	require.NoError(t, err)
	require.Equal(t, models.JoinRequestPending, request.Status)
	require.NotEmpty(t, fx.notifier.sentTo(alice.ID))

	pending, err := svc.ListPending(ctx, team.ID, alice.ID)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.NotNil(t, pending[0].User)

	approved, err := svc.Approve(ctx, team.ID, alice.ID, "")
	require.NoError(t, err)
	require.Equal(t, models.JoinRequestApproved, approved.Status)
	require.NotNil(t, approved.RespondedAt)
	require.ElementsMatch(t, []string{alice.ID, bob.ID}, fx.memberIDs(t, team.ID))

	participant := fx.participant(t, hackathon.ID, bob.ID)
	require.Nil(t, participant.TeamID)
	require.True(t, participant.LookingForTeam)
}

func TestJoinRequestRequestRules(t *testing.T) {
	fx := newTeamFixture(t)
	hackathon := fx.hackathon(t, 1, 4)
	alice := fx.user(t, "alice")
	bob := fx.user(t, "bob")
	carol := fx.user(t, "carol")
	fx.register(t, hackathon, alice, bob, carol)
	team := fx.teamOf(t, hackathon, alice, bob)
	other := fx.teamOf(t, hackathon, carol)

	svc := fx.joinRequests(t)
	ctx := context.Background()

	_, err := svc.Request(ctx, team.ID, bob.ID)
	requireKind(t, err, apperrors.KindValidation)

	_, err = svc.Request(ctx, team.ID, carol.ID)
	requireKind(t, err, apperrors.KindValidation)

	dave := fx.user(t, "dave")
	_, err = svc.Request(ctx, other.ID, dave.ID)
	require.NoError(t, err)
	_, err = svc.Request(ctx, other.ID, dave.ID)
	requireKind(t, err, apperrors.KindValidation)
	require.Contains(t, err.Error(), "already sent")
}

func TestJoinRequestRejectKeepsPairBlocked(t *testing.T) {
	fx := newTeamFixture(t)
	hackathon := fx.hackathon(t, 1, 4)
	alice := fx.user(t, "alice")
	bob := fx.user(t, "bob")
	fx.register(t, hackathon, alice, bob)
	team := fx.teamOf(t, hackathon, alice)

	svc := fx.joinRequests(t)
	ctx := context.Background()

	_, err := svc.Request(ctx, team.ID, bob.ID)
	require.NoError(t, err)

	_, err = svc.Reject(ctx, team.ID, bob.ID, "")
	requireKind(t, err, apperrors.KindAuthorization)

	rejected, err := svc.Reject(ctx, team.ID, alice.ID, bob.ID)
	require.NoError(t, err)
	require.Equal(t, models.JoinRequestRejected, rejected.Status)

	var stored models.TeamJoinRequest
	require.NoError(t, fx.db.First(&stored, "id = ?", rejected.ID).Error)
	require.Equal(t, models.JoinRequestRejected, stored.Status)

	_, err = svc.Request(ctx, team.ID, bob.ID)
	requireKind(t, err, apperrors.KindValidation)

	_, err = svc.Approve(ctx, team.ID, alice.ID, bob.ID)
	requireKind(t, err, apperrors.KindNotFound)
	require.Equal(t, []string{alice.ID}, fx.memberIDs(t, team.ID))
}

func TestJoinRequestApproveSelectsRequester(t *testing.T) {
	fx := newTeamFixture(t)
	hackathon := fx.hackathon(t, 1, 4)
	alice := fx.user(t, "alice")
	bob := fx.user(t, "bob")
	carol := fx.user(t, "carol")
	fx.register(t, hackathon, alice, bob, carol)
	team := fx.teamOf(t, hackathon, alice)

	svc := fx.joinRequests(t)
	ctx := context.Background()

	_, err := svc.Request(ctx, team.ID, bob.ID)
	require.NoError(t, err)
	_, err = svc.Request(ctx, team.ID, carol.ID)
	require.NoError(t, err)

	_, err = svc.Approve(ctx, team.ID, bob.ID, carol.ID)
	requireKind(t, err, apperrors.KindAuthorization)

	approved, err := svc.Approve(ctx, team.ID, alice.ID, carol.ID)
	require.NoError(t, err)
	require.Equal(t, carol.ID, approved.UserID)

	var bobRequest models.TeamJoinRequest
	require.NoError(t, fx.db.First(&bobRequest, "team_id = ? AND user_id = ?", team.ID, bob.ID).Error)
	require.Equal(t, models.JoinRequestPending, bobRequest.Status)
}

func TestJoinRequestApproveRespectsCapacity(t *testing.T) {
	fx := newTeamFixture(t)
	hackathon := fx.hackathon(t, 1, 2)
	alice := fx.user(t, "alice")
	bob := fx.user(t, "bob")
	carol := fx.user(t, "carol")
	fx.register(t, hackathon, alice, bob, carol)
	team := fx.teamOf(t, hackathon, alice)

	svc := fx.joinRequests(t)
	ctx := context.Background()

	_, err := svc.Request(ctx, team.ID, bob.ID)
	require.NoError(t, err)
	_, err = svc.Request(ctx, team.ID, carol.ID)
	require.NoError(t, err)

	_, err = svc.Approve(ctx, team.ID, alice.ID, bob.ID)
	require.NoError(t, err)

	_, err = svc.Approve(ctx, team.ID, alice.ID, carol.ID)
	requireKind(t, err, apperrors.KindValidation)
	require.Len(t, fx.memberIDs(t, team.ID), 2)
}
