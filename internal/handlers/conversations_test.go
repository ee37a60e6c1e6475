package handlers_test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Goodness5/Vortexis-Backend/internal/handlers/testutil"
)

type syncPayload struct {
	Conversation struct {
		ID   string `json:"id"`
		Type string `json:"type"`
	} `json:"conversation"`
	Created bool  `json:"created"`
	Added   int64 `json:"added"`
}

type messagePayload struct {
	ID       string `json:"id"`
	SenderID string `json:"sender_id"`
	Content  string `json:"content"`
	IsEdited bool   `json:"is_edited"`
}

func TestConversationHandler_TeamConversationAndMessages(t *testing.T) {
	env := testutil.NewEnv(t)
	host := env.CreateUser("host", "host@example.com", "Password#123")
	alice := env.CreateUser("alice", "alice@example.com", "Password#123")
	carol := env.CreateUser("carol", "carol@example.com", "Password#123")
	dave := env.CreateUser("dave", "dave@example.com", "Password#123")
	hackathonID := createHackathon(t, env, host, 1, 4)
	registerFor(t, env, hackathonID, alice, carol)

	aliceToken, carolToken, daveToken := env.Token(alice), env.Token(carol), env.Token(dave)

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
	token := invitationToken(t, env, carolToken)
	resp = env.Request(http.MethodPost, "/api/invitations/"+token+"/accept", nil, carolToken)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	teamPath := "/api/teams/" + created.Team.ID
	resp = env.Request(http.MethodPost, teamPath+"/conversation", nil, daveToken)
	require.Equal(t, http.StatusForbidden, resp.Code)

	resp = env.Request(http.MethodPost, teamPath+"/conversation", nil, carolToken)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	var synced syncPayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &synced)
	require.True(t, synced.Created)
	require.Equal(t, "team", synced.Conversation.Type)
	require.EqualValues(t, 2, synced.Added)

	resp = env.Request(http.MethodPost, teamPath+"/conversation", nil, aliceToken)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var again syncPayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &again)
	require.False(t, again.Created)
	require.EqualValues(t, 0, again.Added)
	require.Equal(t, synced.Conversation.ID, again.Conversation.ID)

	messagesPath := "/api/conversations/" + synced.Conversation.ID + "/messages"
	resp = env.Request(http.MethodPost, messagesPath, map[string]string{"content": "Kickoff at nine"}, carolToken)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	var message messagePayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &message)
	require.Equal(t, carol.ID, message.SenderID)

	resp = env.Request(http.MethodPost, messagesPath, map[string]string{"content": "   "}, carolToken)
	require.Equal(t, http.StatusBadRequest, resp.Code)

	resp = env.Request(http.MethodGet, messagesPath, nil, daveToken)
	require.Equal(t, http.StatusForbidden, resp.Code)

	resp = env.Request(http.MethodGet, messagesPath+"?limit=10", nil, aliceToken)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var messages []messagePayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &messages)
	require.Len(t, messages, 1)
	require.Equal(t, "Kickoff at nine", messages[0].Content)

	resp = env.Request(http.MethodPatch, "/api/messages/"+message.ID, map[string]string{"content": "Hijacked"}, aliceToken)
	require.Equal(t, http.StatusForbidden, resp.Code)

	resp = env.Request(http.MethodPatch, "/api/messages/"+message.ID, map[string]string{"content": "Kickoff at ten"}, carolToken)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &message)
	require.True(t, message.IsEdited)
	require.Equal(t, "Kickoff at ten", message.Content)

	resp = env.Request(http.MethodDelete, "/api/messages/"+message.ID, nil, carolToken)
	require.Equal(t, http.StatusNoContent, resp.Code, resp.Body.String())
}

func TestConversationHandler_DirectConversation(t *testing.T) {
	env := testutil.NewEnv(t)
	alice := env.CreateUser("alice", "alice@example.com", "Password#123")
	bob := env.CreateUser("bob", "bob@example.com", "Password#123")

	resp := env.Request(http.MethodPost, "/api/conversations/direct", map[string]string{"user_id": alice.ID}, env.Token(alice))
	require.Equal(t, http.StatusBadRequest, resp.Code)

	resp = env.Request(http.MethodPost, "/api/conversations/direct", map[string]string{"user_id": bob.ID}, env.Token(alice))
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	var first syncPayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &first)
	require.Equal(t, "dm", first.Conversation.Type)

	resp = env.Request(http.MethodPost, "/api/conversations/direct", map[string]string{"user_id": alice.ID}, env.Token(bob))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var second syncPayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &second)
	require.Equal(t, first.Conversation.ID, second.Conversation.ID)

	resp = env.Request(http.MethodGet, "/api/conversations", nil, env.Token(bob))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	require.Equal(t, 1, testutil.DecodeResponse(t, resp).Meta.Total)
}

func TestHackathonHandler_JudgesConversation(t *testing.T) {
	env := testutil.NewEnv(t)
	host := env.CreateUser("host", "host@example.com", "Password#123")
	judge := env.CreateUser("judy", "judy@example.com", "Password#123")
	outsider := env.CreateUser("otto", "otto@example.com", "Password#123")
	hackathonID := createHackathon(t, env, host, 1, 4)
	path := "/api/hackathons/" + hackathonID

	resp := env.Request(http.MethodPost, path+"/judges", map[string]string{"email": "judy@example.com"}, env.Token(outsider))
	require.Equal(t, http.StatusForbidden, resp.Code)

	resp = env.Request(http.MethodPost, path+"/judges", map[string]string{"email": "judy@example.com"}, env.Token(host))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = env.Request(http.MethodPost, path+"/judges", map[string]string{"email": "judy@example.com"}, env.Token(host))
	require.Equal(t, http.StatusConflict, resp.Code)

	resp = env.Request(http.MethodPost, path+"/judges-conversation", nil, env.Token(outsider))
	require.Equal(t, http.StatusForbidden, resp.Code)

	resp = env.Request(http.MethodPost, path+"/judges-conversation", nil, env.Token(judge))
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	var synced syncPayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &synced)
	require.Equal(t, "judges", synced.Conversation.Type)
	require.EqualValues(t, 2, synced.Added)
}

func TestOrganizationHandler_ModeratorInvitation(t *testing.T) {
	env := testutil.NewEnv(t)
	host := env.CreateUser("host", "host@example.com", "Password#123")
	mona := env.CreateUser("mona", "mona@example.com", "Password#123")
	hostToken, monaToken := env.Token(host), env.Token(mona)

	resp := env.Request(http.MethodPost, "/api/organizations", map[string]string{"name": "Builders"}, hostToken)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	var org idPayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &org)

	resp = env.Request(http.MethodPost, "/api/organizations", map[string]string{"name": "Builders"}, monaToken)
	require.Equal(t, http.StatusConflict, resp.Code)

	orgPath := "/api/organizations/" + org.ID
	resp = env.Request(http.MethodPost, orgPath+"/moderators/invitations", map[string]string{"email": "mona@example.com"}, monaToken)
	require.Equal(t, http.StatusForbidden, resp.Code)

	resp = env.Request(http.MethodPost, orgPath+"/moderators/invitations", map[string]string{"email": "mona@example.com"}, hostToken)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	require.NotContains(t, resp.Body.String(), "token_hash")

	resp = env.Request(http.MethodGet, "/api/notifications", nil, monaToken)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var notes []notificationPayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &notes)
	require.Len(t, notes, 1)
	const marker = "/moderator-invitation/"
	idx := strings.Index(notes[0].ActionURL, marker)
	require.GreaterOrEqual(t, idx, 0, notes[0].ActionURL)
	token := notes[0].ActionURL[idx+len(marker):]

	resp = env.Request(http.MethodPost, "/api/notifications/"+notes[0].ID+"/read", nil, monaToken)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var read notificationPayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &read)
	require.True(t, read.IsRead)

	resp = env.Request(http.MethodPost, "/api/notifications/"+notes[0].ID+"/read", nil, hostToken)
	require.Equal(t, http.StatusNotFound, resp.Code)

	resp = env.Request(http.MethodPost, "/api/organizations/moderator-invitations/"+token+"/accept", nil, monaToken)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = env.Request(http.MethodPost, "/api/organizations/moderator-invitations/"+token+"/decline", nil, monaToken)
	require.Equal(t, http.StatusConflict, resp.Code)

	resp = env.Request(http.MethodGet, "/api/organizations", nil, monaToken)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = env.Request(http.MethodDelete, orgPath+"/moderators/"+mona.ID, nil, hostToken)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
}
