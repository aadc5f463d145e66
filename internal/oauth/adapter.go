package oauth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// OAuth flow errors
var (
	// ErrStateMismatch is returned when a returned state value does not
	// match a live, unconsumed flow
	ErrStateMismatch = errors.New("oauth state does not match a pending flow")

	// ErrFlowExpired is returned when a flow outlived its TTL
	ErrFlowExpired = errors.New("oauth flow is expired")

	// ErrProviderRejected is returned when the upstream code exchange fails
	ErrProviderRejected = errors.New("provider rejected the authorization code")

	// ErrUnknownProvider is returned for provider names with no adapter
	ErrUnknownProvider = errors.New("unknown oauth provider")
)

// Identity is the provider-independent result of a completed login.
type Identity struct {
	Provider       string `json:"provider"`
	ProviderUserID string `json:"provider_user_id"`
	Email          string `json:"email"`
	DisplayName    string `json:"display_name"`
	// RefreshCredential is the upstream refresh token, when the provider
	// issued one. Callers must encrypt it before persisting.
	RefreshCredential string `json:"-"`
}

// identityFetcher retrieves the provider's user record using an
// authenticated HTTP client.
type identityFetcher func(ctx context.Context, client *http.Client) (*Identity, error)

// Adapter drives the authorization-code-with-PKCE exchange against one
// upstream provider. PKCE state lives in the flow store keyed by the state
// value, never in the adapter itself, so one adapter instance serves any
// number of concurrent requests.
type Adapter struct {
	name          string
	config        *oauth2.Config
	flows         FlowStore
	flowTTL       time.Duration
	fetchIdentity identityFetcher
}

// Name returns the provider key of this adapter
func (a *Adapter) Name() string {
	return a.name
}

// BeginAuthorization generates a PKCE verifier and a random state value,
// persists the pending flow, and returns the provider authorization URL.
func (a *Adapter) BeginAuthorization(ctx context.Context, redirectURI string) (string, error) {
	state, err := generateState()
	if err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}

	verifier := oauth2.GenerateVerifier()

	flow := &FlowState{
		State:       state,
		Provider:    a.name,
		Verifier:    verifier,
		RedirectURI: redirectURI,
		CreatedAt:   time.Now(),
	}
	if err := a.flows.Save(ctx, flow, a.flowTTL); err != nil {
		return "", fmt.Errorf("failed to persist flow state: %w", err)
	}

	cfg := a.configFor(redirectURI)
	return cfg.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier)), nil
}

// CompleteAuthorization redeems the returned code against the pending flow.
// The flow entry is consumed exactly once; replays fail with ErrStateMismatch.
func (a *Adapter) CompleteAuthorization(ctx context.Context, returnedState, returnedCode string) (*Identity, error) {
	flow, err := a.flows.Consume(ctx, returnedState)
	if err != nil {
		return nil, err
	}

	if flow.Provider != a.name {
		return nil, fmt.Errorf("flow belongs to provider %q: %w", flow.Provider, ErrStateMismatch)
	}

	// Wall-clock TTL check on the persisted creation timestamp; stores
	// with native expiry delete the entry first, which surfaces as a
	// state mismatch instead.
	if time.Since(flow.CreatedAt) > a.flowTTL {
		return nil, fmt.Errorf("flow created at %s: %w", flow.CreatedAt.Format(time.RFC3339), ErrFlowExpired)
	}

	cfg := a.configFor(flow.RedirectURI)
	token, err := cfg.Exchange(ctx, returnedCode, oauth2.VerifierOption(flow.Verifier))
	if err != nil {
		return nil, fmt.Errorf("code exchange failed: %w", ErrProviderRejected)
	}

	identity, err := a.fetchIdentity(ctx, cfg.Client(ctx, token))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch identity: %w", ErrProviderRejected)
	}

	identity.Provider = a.name
	identity.RefreshCredential = token.RefreshToken

	return identity, nil
}

func (a *Adapter) configFor(redirectURI string) *oauth2.Config {
	cfg := *a.config
	if redirectURI != "" {
		cfg.RedirectURL = redirectURI
	}
	return &cfg
}

func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
