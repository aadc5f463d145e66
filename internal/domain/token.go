package domain

import "time"

// TokenClass discriminates edge- from domain-scoped tokens. Every issued
// token carries exactly one class and is only accepted by the matching gate.
type TokenClass string

const (
	TokenClassEdge   TokenClass = "edge"
	TokenClassDomain TokenClass = "domain"
)

// Domain token scopes. The policy today grants the full set to every active
// account; the claim is a list so partial grants can be introduced without a
// token format change.
const (
	ScopeThreadsRead   = "threads:read"
	ScopeThreadsWrite  = "threads:write"
	ScopeMessagesRead  = "messages:read"
	ScopeMessagesWrite = "messages:write"
	ScopeModelsInvoke  = "models:invoke"
)

// DefaultDomainScopes returns the scope set granted on token exchange.
func DefaultDomainScopes() []string {
	return []string{
		ScopeThreadsRead,
		ScopeThreadsWrite,
		ScopeMessagesRead,
		ScopeMessagesWrite,
		ScopeModelsInvoke,
	}
}

// EdgeClaims are the claims of an edge token: proof that the bearer
// authenticated at the edge, plus a minimal profile.
type EdgeClaims struct {
	AccountID   string `json:"account_id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Exp         int64  `json:"exp"`
	Iat         int64  `json:"iat"`
}

// DomainClaims are the claims of a domain token: authorization to invoke
// domain-tier operations under the granted scopes.
type DomainClaims struct {
	AccountID string   `json:"account_id"`
	Scopes    []string `json:"scopes"`
	Exp       int64    `json:"exp"`
	Iat       int64    `json:"iat"`
}

// IsExpired checks if the token is expired
func (c EdgeClaims) IsExpired() bool {
	return time.Now().Unix() > c.Exp
}

// IsExpired checks if the token is expired
func (c DomainClaims) IsExpired() bool {
	return time.Now().Unix() > c.Exp
}

// HasScope reports whether the token grants the given scope.
func (c DomainClaims) HasScope(scope string) bool {
	for _, s := range c.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}
