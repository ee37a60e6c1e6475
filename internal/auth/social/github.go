package social

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

const defaultGitHubAPI = "https://api.github.com"

// GitHubOptions configures GitHubExchanger.
type GitHubOptions struct {
	ClientID     string
	ClientSecret string
	// Endpoint and APIBaseURL override github.com for tests.
	Endpoint   *oauth2.Endpoint
	APIBaseURL string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// GitHubExchanger trades an OAuth authorization code for the GitHub user behind it.
type GitHubExchanger struct {
	config     *oauth2.Config
	apiBaseURL string
	httpClient *http.Client
	timeout    time.Duration
}

type githubUser struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
}

type githubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

// NewGitHubExchanger validates options and returns an exchanger.
func NewGitHubExchanger(opts GitHubOptions) (*GitHubExchanger, error) {
	if strings.TrimSpace(opts.ClientID) == "" || strings.TrimSpace(opts.ClientSecret) == "" {
		return nil, errors.New("github: client id and secret are required")
	}

	endpoint := github.Endpoint
	if opts.Endpoint != nil {
		endpoint = *opts.Endpoint
	}
	endpoint.AuthStyle = oauth2.AuthStyleInParams

	apiBase := strings.TrimRight(strings.TrimSpace(opts.APIBaseURL), "/")
	if apiBase == "" {
		apiBase = defaultGitHubAPI
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &GitHubExchanger{
		config: &oauth2.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			Endpoint:     endpoint,
			Scopes:       []string{"read:user", "user:email"},
		},
		apiBaseURL: apiBase,
		httpClient: opts.HTTPClient,
		timeout:    timeout,
	}, nil
}

// Resolve exchanges code for an access token and loads the GitHub profile.
func (g *GitHubExchanger) Resolve(ctx context.Context, code string) (*Identity, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrInvalidCredential
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	if g.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, g.httpClient)
	}

	token, err := g.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: exchange: %v", ErrInvalidCredential, err)
	}
	client := g.config.Client(ctx, token)

	var user githubUser
	if err := g.getJSON(ctx, client, "/user", &user); err != nil {
		return nil, err
	}

	email := strings.TrimSpace(user.Email)
	verified := email != ""
	if email == "" {
		var emails []githubEmail
		if err := g.getJSON(ctx, client, "/user/emails", &emails); err != nil {
			return nil, err
		}
		for _, candidate := range emails {
			if candidate.Primary && candidate.Verified {
				email = candidate.Email
				verified = true
				break
			}
		}
	}
	if email == "" {
		return nil, fmt.Errorf("%w: github account has no verified email", ErrInvalidCredential)
	}

	display := user.Name
	if strings.TrimSpace(display) == "" {
		display = user.Login
	}
	first, last := splitName(display)

	return &Identity{
		Provider:      ProviderGitHub,
		Subject:       strconv.FormatInt(user.ID, 10),
		Email:         strings.ToLower(email),
		EmailVerified: verified,
		FirstName:     first,
		LastName:      last,
		DisplayName:   display,
		AvatarURL:     user.AvatarURL,
	}, nil
}

func (g *GitHubExchanger) getJSON(ctx context.Context, client *http.Client, path string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.apiBaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("github: build request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("github: request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: github %s returned %d", ErrInvalidCredential, path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("github: decode %s: %w", path, err)
	}
	return nil
}
