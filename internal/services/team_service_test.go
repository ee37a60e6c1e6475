package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	apperrors "github.com/Goodness5/Vortexis-Backend/pkg/errors"
)

func TestTeamServiceListAndUpdate(t *testing.T) {
	fx := newTeamFixture(t)
	svc, err := NewTeamService(fx.deps)
	require.NoError(t, err)
	ctx := context.Background()

	hackathon := fx.hackathon(t, 1, 4)
	zed, amy, bob := fx.user(t, "zed"), fx.user(t, "amy"), fx.user(t, "bob")
	fx.register(t, hackathon, zed, amy, bob)
	zedTeam := fx.teamOf(t, hackathon, zed, bob)
	fx.teamOf(t, hackathon, amy)

	teams, err := svc.ListByHackathon(ctx, hackathon.ID)
	require.NoError(t, err)
	require.Len(t, teams, 2)
	require.Equal(t, "Team amy", teams[0].Name)
	require.Len(t, teams[1].Members, 2)

	_, err = svc.ListByHackathon(ctx, "missing")
	requireKind(t, err, apperrors.KindNotFound)

	name := "Zeppelin"
	_, err = svc.Update(ctx, zedTeam.ID, bob.ID, UpdateTeamInput{Name: &name})
	requireKind(t, err, apperrors.KindAuthorization)

	taken := "Team amy"
	_, err = svc.Update(ctx, zedTeam.ID, zed.ID, UpdateTeamInput{Name: &taken})
	requireKind(t, err, apperrors.KindValidation)

	blank := "   "
	_, err = svc.Update(ctx, zedTeam.ID, zed.ID, UpdateTeamInput{Name: &blank})
	requireKind(t, err, apperrors.KindValidation)

	description := " Airships "
	updated, err := svc.Update(ctx, zedTeam.ID, zed.ID, UpdateTeamInput{Name: &name, Description: &description})
	require.NoError(t, err)
	require.Equal(t, "Zeppelin", updated.Name)
	require.Equal(t, "Airships", updated.Description)

	unchanged, err := svc.Update(ctx, zedTeam.ID, zed.ID, UpdateTeamInput{})
	require.NoError(t, err)
	require.Equal(t, "Zeppelin", unchanged.Name)

	_, err = svc.Get(ctx, "missing")
	requireKind(t, err, apperrors.KindNotFound)
}
