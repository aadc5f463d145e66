package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	googleOAuth "golang.org/x/oauth2/google"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// NewGoogleAdapter creates an adapter for Google logins
func NewGoogleAdapter(clientID, clientSecret string, flows FlowStore, flowTTL time.Duration) *Adapter {
	return &Adapter{
		name: "google",
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: googleOAuth.Endpoint,
		},
		flows:         flows,
		flowTTL:       flowTTL,
		fetchIdentity: fetchGoogleIdentity,
	}
}

func fetchGoogleIdentity(ctx context.Context, client *http.Client) (*Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, googleUserInfoURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch google userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google userinfo endpoint returned %d", resp.StatusCode)
	}

	var user struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("failed to decode google userinfo: %w", err)
	}

	return &Identity{
		ProviderUserID: user.ID,
		Email:          user.Email,
		DisplayName:    user.Name,
	}, nil
}
