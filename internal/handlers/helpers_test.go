package handlers_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Goodness5/Vortexis-Backend/internal/handlers/testutil"
	"github.com/Goodness5/Vortexis-Backend/internal/models"
)

type idPayload struct {
	ID string `json:"id"`
}

// createHackathon sets up an organization owned by organizer and a hackathon
// inside it, returning the hackathon ID.
func createHackathon(t *testing.T, env *testutil.Env, organizer *models.User, minSize, maxSize int) string {
	t.Helper()
	token := env.Token(organizer)

	resp := env.Request(http.MethodPost, "/api/organizations", map[string]string{
		"name": "Org " + organizer.Username,
	}, token)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	var org idPayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &org)

	start := time.Now().UTC().Add(24 * time.Hour).Truncate(time.Second)
	resp = env.Request(http.MethodPost, "/api/hackathons", map[string]any{
		"organization_id": org.ID,
		"title":           "Hack " + organizer.Username,
		"start_date":      start,
		"end_date":        start.Add(48 * time.Hour),
		"min_team_size":   minSize,
		"max_team_size":   maxSize,
	}, token)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	var hackathon idPayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &hackathon)
	return hackathon.ID
}

func registerFor(t *testing.T, env *testutil.Env, hackathonID string, users ...*models.User) {
	t.Helper()
	for _, user := range users {
		resp := env.Request(http.MethodPost, "/api/hackathons/"+hackathonID+"/register", nil, env.Token(user))
		require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	}
}

type teamPayload struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	OrganizerID *string     `json:"organizer_id"`
	Members     []idPayload `json:"members"`
}

func memberIDs(team teamPayload) []string {
	ids := make([]string, 0, len(team.Members))
	for _, member := range team.Members {
		ids = append(ids, member.ID)
	}
	return ids
}
