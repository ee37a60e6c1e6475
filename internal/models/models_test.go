package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBaseModelBeforeCreateGeneratesID(t *testing.T) {
	var base BaseModel
	require.NoError(t, base.BeforeCreate(nil))
	require.NotEmpty(t, base.ID)

	existing := BaseModel{ID: "fixed"}
	require.NoError(t, existing.BeforeCreate(nil))
	require.Equal(t, "fixed", existing.ID)
}

func TestEmbeddedModelsUseBaseBeforeCreate(t *testing.T) {
	cases := []struct {
		name  string
		model func() *BaseModel
	}{
		{"user", func() *BaseModel { return &(&User{}).BaseModel }},
		{"team", func() *BaseModel { return &(&Team{}).BaseModel }},
		{"team_invitation", func() *BaseModel { return &(&TeamInvitation{}).BaseModel }},
		{"join_request", func() *BaseModel { return &(&TeamJoinRequest{}).BaseModel }},
		{"participant", func() *BaseModel { return &(&Participant{}).BaseModel }},
		{"otp", func() *BaseModel { return &(&OneTimePassword{}).BaseModel }},
		{"conversation_participant", func() *BaseModel { return &(&ConversationParticipant{}).BaseModel }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			model := tc.model()
			require.NoError(t, model.BeforeCreate(nil))
			require.NotEmpty(t, model.ID)
		})
	}
}

func TestTeamHelpers(t *testing.T) {
	organizer := "u1"
	team := &Team{OrganizerID: &organizer, Members: []User{{BaseModel: BaseModel{ID: "u1"}}, {BaseModel: BaseModel{ID: "u2"}}}}

	require.True(t, team.IsOrganizer("u1"))
	require.False(t, team.IsOrganizer("u2"))
	require.True(t, team.HasMember("u2"))
	require.False(t, team.HasMember("u3"))

	orphan := &Team{}
	require.False(t, orphan.IsOrganizer(""))
}

func TestTeamInvitationState(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	invite := &TeamInvitation{ExpiresAt: now.Add(time.Hour)}
	require.True(t, invite.IsPending(now))
	require.False(t, invite.IsPending(now.Add(time.Hour)))

	invite.AcceptedAt = &now
	require.True(t, invite.IsAccepted())
	require.False(t, invite.IsPending(now))
}

func TestUserFullName(t *testing.T) {
	require.Equal(t, "Ada Lovelace", User{FirstName: "Ada", LastName: "Lovelace"}.FullName())
	require.Equal(t, "Ada", User{FirstName: "Ada"}.FullName())
}
