package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Goodness5/Vortexis-Backend/internal/api"
	"github.com/Goodness5/Vortexis-Backend/internal/app"
	iauth "github.com/Goodness5/Vortexis-Backend/internal/auth"
	"github.com/Goodness5/Vortexis-Backend/internal/cache"
	sharedtestutil "github.com/Goodness5/Vortexis-Backend/internal/database/testutil"
	"github.com/Goodness5/Vortexis-Backend/internal/models"
	"github.com/Goodness5/Vortexis-Backend/pkg/crypto"
	"github.com/Goodness5/Vortexis-Backend/pkg/mail"
	"github.com/Goodness5/Vortexis-Backend/pkg/response"
)

// FrontendURL is the link base used by every test environment.
const FrontendURL = "https://app.vortexis.test"

// Env encapsulates a fully-wired API instance backed by an in-memory database for handler tests.
type Env struct {
	T        *testing.T
	DB       *gorm.DB
	Router   *gin.Engine
	JWT      *iauth.JWTService
	Services *api.Services
	Mailer   *Mailbox
}

// EnvOption adjusts the configuration before the router is built.
type EnvOption func(*app.Config)

// WithRateLimit enables the credential endpoint rate limit.
func WithRateLimit(requests int, window time.Duration) EnvOption {
	return func(cfg *app.Config) {
		cfg.RateLimit = app.RateLimitConfig{Enabled: true, Requests: requests, Window: window}
	}
}

// NewEnv provisions a fresh handler test environment with migrations applied.
func NewEnv(t *testing.T, opts ...EnvOption) *Env {
	t.Helper()

	gin.SetMode(gin.TestMode)

	db := sharedtestutil.MustOpenTestDB(t, sharedtestutil.WithAutoMigrate())

	cfg := &app.Config{
		Server: app.ServerConfig{FrontendURL: FrontendURL},
		Auth: app.AuthConfig{
			JWT: app.JWTSettings{
				Secret:     "test-suite-super-secret-key-32-bytes!!",
				Issuer:     "test-suite",
				TTL:        time.Hour,
				RefreshTTL: 24 * time.Hour,
			},
		},
		Monitoring: app.MonitoringConfig{
			Prometheus: app.PrometheusConfig{Enabled: true, Endpoint: "/metrics"},
		},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	require.NoError(t, err)

	mailbox := &Mailbox{}
	deps := api.Dependencies{
		DB:     db,
		Config: cfg,
		JWT:    jwtSvc,
		Cache:  cache.NewDatabaseStore(db),
		Mailer: mailbox,
	}
	services, err := api.NewServices(deps)
	require.NoError(t, err)
	t.Cleanup(services.Notifications.Wait)

	router, err := api.NewRouter(deps, services)
	require.NoError(t, err)

	return &Env{
		T:        t,
		DB:       db,
		Router:   router,
		JWT:      jwtSvc,
		Services: services,
		Mailer:   mailbox,
	}
}

// CreateUser inserts an active, verified user with the given password.
func (e *Env) CreateUser(username, email, password string) *models.User {
	e.T.Helper()

	if username == "" {
		username = "user" + strings.ReplaceAll(uuid.NewString()[:8], "-", "")
	}
	if email == "" {
		email = username + "@example.com"
	}
	hashed, err := crypto.HashPassword(password)
	require.NoError(e.T, err)

	user := &models.User{
		Username:      username,
		Email:         email,
		Password:      hashed,
		IsActive:      true,
		IsVerified:    true,
		IsParticipant: true,
	}
	require.NoError(e.T, e.DB.Create(user).Error)
	return user
}

// TokenPair mirrors the token payload of login responses.
type TokenPair struct {
	AccessToken  string    `json:"access"`
	RefreshToken string    `json:"refresh"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// UserPayload captures the subset of user fields returned from auth endpoints.
type UserPayload struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	IsVerified bool   `json:"is_verified"`
	IsActive   bool   `json:"is_active"`
}

// LoginResult bundles the JSON response from POST /api/auth/login.
type LoginResult struct {
	User   UserPayload `json:"user"`
	Tokens TokenPair   `json:"tokens"`
}

// Login authenticates with username and password and returns the issued tokens.
func (e *Env) Login(username, password string) LoginResult {
	e.T.Helper()

	payload := map[string]string{
		"username": username,
		"password": password,
	}

	w := e.Request(http.MethodPost, "/api/auth/login", payload, "")
	require.Equal(e.T, http.StatusOK, w.Code, w.Body.String())

	resp := DecodeResponse(e.T, w)
	require.True(e.T, resp.Success, w.Body.String())

	var result LoginResult
	DecodeInto(e.T, resp.Data, &result)
	require.NotEmpty(e.T, result.Tokens.AccessToken)
	require.NotEmpty(e.T, result.Tokens.RefreshToken)
	require.Equal(e.T, username, result.User.Username)

	return result
}

// Token mints an access token for user without going through the login flow.
func (e *Env) Token(user *models.User) string {
	e.T.Helper()
	pair, err := e.JWT.GenerateTokenPair(user.ID)
	require.NoError(e.T, err)
	return pair.AccessToken
}

// APIResponse represents the canonical API envelope returned by handlers.
type APIResponse struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Error   *response.ErrorInfo `json:"error"`
	Meta    *response.Meta      `json:"meta"`
}

// DecodeResponse parses the standard API response object from a recorder.
func DecodeResponse(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// DecodeInto unmarshals the data payload into the provided destination.
func DecodeInto[T any](t *testing.T, raw json.RawMessage, dest *T) {
	t.Helper()
	if dest == nil {
		t.Fatal("destination must not be nil")
	}
	require.NoError(t, json.Unmarshal(raw, dest))
}

// Request executes an HTTP request against the test router, applying JSON encoding and auth headers automatically.
func (e *Env) Request(method, path string, body any, token string) *httptest.ResponseRecorder {
	e.T.Helper()

	var buf *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.T, err)
		buf = bytes.NewBuffer(data)
	} else {
		buf = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, path, buf)
	require.NoError(e.T, err)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}

// Mailbox records every message sent through it.
type Mailbox struct {
	mu       sync.Mutex
	messages []mail.Message
}

// Send implements mail.Mailer.
func (m *Mailbox) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	return nil
}

// To returns the messages addressed to email in send order.
func (m *Mailbox) To(email string) []mail.Message {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []mail.Message
	for _, msg := range m.messages {
		for _, to := range msg.To {
			if strings.EqualFold(to, email) {
				out = append(out, msg)
				break
			}
		}
	}
	return out
}

// Extract returns the first capture group of pattern in the newest message to
// email, failing the test when nothing matches.
func (m *Mailbox) Extract(t *testing.T, email string, pattern *regexp.Regexp) string {
	t.Helper()

	messages := m.To(email)
	for i := len(messages) - 1; i >= 0; i-- {
		if match := pattern.FindStringSubmatch(messages[i].Body); len(match) > 1 {
			return match[1]
		}
	}
	t.Fatalf("no message to %s matches %s", email, pattern)
	return ""
}
