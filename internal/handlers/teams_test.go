package handlers_test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Goodness5/Vortexis-Backend/internal/handlers/testutil"
)

type notificationPayload struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	ActionURL string `json:"action_url"`
	IsRead    bool   `json:"is_read"`
}

func invitationToken(t *testing.T, env *testutil.Env, token string) string {
	t.Helper()

	resp := env.Request(http.MethodGet, "/api/notifications?unread=true", nil, token)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var notes []notificationPayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &notes)

	const marker = "/team-invitation/"
	for _, note := range notes {
		if idx := strings.Index(note.ActionURL, marker); idx >= 0 {
			return note.ActionURL[idx+len(marker):]
		}
	}
	t.Fatalf("no invitation notification in %+v", notes)
	return ""
}

func TestTeamHandler_InvitationFlow(t *testing.T) {
	env := testutil.NewEnv(t)
	host := env.CreateUser("host", "host@example.com", "Password#123")
	alice := env.CreateUser("alice", "alice@example.com", "Password#123")
	carol := env.CreateUser("carol", "carol@example.com", "Password#123")
	hackathonID := createHackathon(t, env, host, 1, 3)
	registerFor(t, env, hackathonID, alice, carol)

	aliceToken := env.Token(alice)
	carolToken := env.Token(carol)

	resp := env.Request(http.MethodPost, "/api/teams", map[string]any{
		"name":          "Rocket",
		"hackathon":     hackathonID,
		"member_emails": []string{"carol@example.com", "newcomer@example.com"},
	}, aliceToken)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	var created struct {
		Team        teamPayload `json:"team"`
		Invitations []struct {
			Email string `json:"email"`
		} `json:"invitations"`
	}
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &created)
	require.Equal(t, "Rocket", created.Team.Name)
	require.Len(t, created.Invitations, 2)
	require.NotContains(t, resp.Body.String(), "token")

	// The unregistered address gets a signup link by email.
	require.Len(t, env.Mailer.To("newcomer@example.com"), 1)
	require.Contains(t, env.Mailer.To("newcomer@example.com")[0].Body, testutil.FrontendURL+"/signup?invitation=")

	resp = env.Request(http.MethodGet, "/api/invitations", nil, carolToken)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	pending := testutil.DecodeResponse(t, resp)
	require.Equal(t, 1, pending.Meta.Total)

	token := invitationToken(t, env, carolToken)
	resp = env.Request(http.MethodPost, "/api/invitations/"+token+"/accept", nil, carolToken)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = env.Request(http.MethodPost, "/api/invitations/"+token+"/accept", nil, carolToken)
	require.Equal(t, http.StatusConflict, resp.Code)
	require.Equal(t, "TOKEN_ALREADY_CONSUMED", testutil.DecodeResponse(t, resp).Error.Code)

	resp = env.Request(http.MethodPost, "/api/invitations/not-a-token/accept", nil, carolToken)
	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.Equal(t, "TOKEN_NOT_FOUND", testutil.DecodeResponse(t, resp).Error.Code)

	resp = env.Request(http.MethodGet, "/api/teams/"+created.Team.ID, nil, carolToken)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var team teamPayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &team)
	require.ElementsMatch(t, []string{alice.ID, carol.ID}, memberIDs(team))

	resp = env.Request(http.MethodGet, "/api/hackathons/"+hackathonID+"/teams", nil, carolToken)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	require.Equal(t, 1, testutil.DecodeResponse(t, resp).Meta.Total)
}

func TestTeamHandler_MembershipRules(t *testing.T) {
	env := testutil.NewEnv(t)
	host := env.CreateUser("host", "host@example.com", "Password#123")
	alice := env.CreateUser("alice", "alice@example.com", "Password#123")
	carol := env.CreateUser("carol", "carol@example.com", "Password#123")
	hackathonID := createHackathon(t, env, host, 1, 3)
	registerFor(t, env, hackathonID, alice, carol)

	aliceToken := env.Token(alice)
	carolToken := env.Token(carol)

	resp := env.Request(http.MethodPost, "/api/teams", map[string]any{
		"name":          "Rocket",
		"hackathon":     hackathonID,
		"member_emails": []string{"carol@example.com"},
	}, aliceToken)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	var created struct {
		Team teamPayload `json:"team"`
	}
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &created)
	teamPath := "/api/teams/" + created.Team.ID

	token := invitationToken(t, env, carolToken)
	resp = env.Request(http.MethodPost, "/api/invitations/"+token+"/accept", nil, carolToken)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	// Only the organizer removes members, and never themselves.
	resp = env.Request(http.MethodDelete, teamPath+"/members", map[string]string{"email": "alice@example.com"}, carolToken)
	require.Equal(t, http.StatusForbidden, resp.Code)
	resp = env.Request(http.MethodDelete, teamPath+"/members", map[string]string{"email": "alice@example.com"}, aliceToken)
	require.Equal(t, http.StatusBadRequest, resp.Code)

	resp = env.Request(http.MethodPost, teamPath+"/leave", nil, aliceToken)
	require.Equal(t, http.StatusBadRequest, resp.Code)

	resp = env.Request(http.MethodPost, teamPath+"/leave", nil, carolToken)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = env.Request(http.MethodPatch, teamPath, map[string]string{"description": "We build rockets"}, aliceToken)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = env.Request(http.MethodDelete, teamPath, nil, carolToken)
	require.Equal(t, http.StatusForbidden, resp.Code)
	resp = env.Request(http.MethodDelete, teamPath, nil, aliceToken)
	require.Equal(t, http.StatusNoContent, resp.Code, resp.Body.String())

	resp = env.Request(http.MethodGet, teamPath, nil, aliceToken)
	require.Equal(t, http.StatusNotFound, resp.Code)
}

func TestTeamHandler_JoinRequests(t *testing.T) {
	env := testutil.NewEnv(t)
	host := env.CreateUser("host", "host@example.com", "Password#123")
	alice := env.CreateUser("alice", "alice@example.com", "Password#123")
	dave := env.CreateUser("dave", "dave@example.com", "Password#123")
	erin := env.CreateUser("erin", "erin@example.com", "Password#123")
	hackathonID := createHackathon(t, env, host, 1, 2)
	registerFor(t, env, hackathonID, alice, dave, erin)

	aliceToken := env.Token(alice)
	resp := env.Request(http.MethodPost, "/api/teams", map[string]any{
		"name":      "Solo",
		"hackathon": hackathonID,
	}, aliceToken)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	var created struct {
		Team teamPayload `json:"team"`
	}
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &created)
	teamPath := "/api/teams/" + created.Team.ID

	resp = env.Request(http.MethodPost, teamPath+"/join-requests", nil, env.Token(dave))
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	resp = env.Request(http.MethodPost, teamPath+"/join-requests", nil, env.Token(dave))
	require.Equal(t, http.StatusBadRequest, resp.Code)
	resp = env.Request(http.MethodPost, teamPath+"/join-requests", nil, env.Token(erin))
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	resp = env.Request(http.MethodGet, teamPath+"/join-requests", nil, env.Token(dave))
	require.Equal(t, http.StatusForbidden, resp.Code)
	resp = env.Request(http.MethodGet, teamPath+"/join-requests", nil, aliceToken)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	require.Equal(t, 2, testutil.DecodeResponse(t, resp).Meta.Total)

	// Without a user_id the oldest pending request is approved.
	resp = env.Request(http.MethodPost, teamPath+"/join-requests/approve", nil, aliceToken)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var decided struct {
		UserID string `json:"user_id"`
		Status string `json:"status"`
	}
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &decided)
	require.Equal(t, dave.ID, decided.UserID)
	require.Equal(t, "approved", decided.Status)

	// The team is now full.
	resp = env.Request(http.MethodPost, teamPath+"/join-requests/approve", map[string]string{"user_id": erin.ID}, aliceToken)
	require.Equal(t, http.StatusBadRequest, resp.Code)

	resp = env.Request(http.MethodPost, teamPath+"/join-requests/reject", map[string]string{"user_id": erin.ID}, aliceToken)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &decided)
	require.Equal(t, "rejected", decided.Status)
}
