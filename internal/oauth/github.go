package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	githubOAuth "golang.org/x/oauth2/github"
)

const githubUserURL = "https://api.github.com/user"

// NewGitHubAdapter creates an adapter for GitHub logins
func NewGitHubAdapter(clientID, clientSecret string, flows FlowStore, flowTTL time.Duration) *Adapter {
	return &Adapter{
		name: "github",
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     githubOAuth.Endpoint,
		},
		flows:         flows,
		flowTTL:       flowTTL,
		fetchIdentity: fetchGitHubIdentity,
	}
}

func fetchGitHubIdentity(ctx context.Context, client *http.Client) (*Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, githubUserURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch github user: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("github user endpoint returned %d", resp.StatusCode)
	}

	var user struct {
		ID    int64  `json:"id"`
		Login string `json:"login"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("failed to decode github user: %w", err)
	}

	displayName := user.Name
	if displayName == "" {
		displayName = user.Login
	}

	// Email is absent when the user keeps it private; fall back to the
	// noreply address GitHub assigns.
	email := user.Email
	if email == "" {
		email = fmt.Sprintf("%s@users.noreply.github.com", user.Login)
	}

	return &Identity{
		ProviderUserID: fmt.Sprintf("%d", user.ID),
		Email:          email,
		DisplayName:    displayName,
	}, nil
}
