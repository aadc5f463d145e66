package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/prperemyshlev/bridge-service/internal/domain"
)

// Token verification errors. Class checking lives here, not at call sites,
// so a leaked edge token can never pass for a domain token even if a route
// forgets to check.
var (
	// ErrTokenExpired is returned when a token is past its expiry
	ErrTokenExpired = errors.New("token is expired")

	// ErrInvalidSignature is returned when the signature does not verify
	ErrInvalidSignature = errors.New("token signature is invalid")

	// ErrWrongClass is returned when a token of the other tier is presented
	ErrWrongClass = errors.New("token class does not match the expected tier")

	// ErrMalformed is returned when the token cannot be parsed
	ErrMalformed = errors.New("token is malformed")
)

// TokenManager issues and verifies edge and domain tokens
type TokenManager struct {
	secret            []byte
	edgeTokenExpiry   time.Duration
	domainTokenExpiry time.Duration
}

// NewTokenManager creates a new token manager
func NewTokenManager(secret string, edgeTokenExpiry, domainTokenExpiry time.Duration) *TokenManager {
	return &TokenManager{
		secret:            []byte(secret),
		edgeTokenExpiry:   edgeTokenExpiry,
		domainTokenExpiry: domainTokenExpiry,
	}
}

// IssueEdgeToken issues a signed edge token for an authenticated account
func (m *TokenManager) IssueEdgeToken(accountID, email, displayName string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"account_id":   accountID,
		"email":        email,
		"display_name": displayName,
		"class":        string(domain.TokenClassEdge),
		"exp":          now.Add(m.edgeTokenExpiry).Unix(),
		"iat":          now.Unix(),
		"jti":          uuid.New().String(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign edge token: %w", err)
	}

	return tokenString, nil
}

// IssueDomainToken issues a signed domain token with the granted scopes
func (m *TokenManager) IssueDomainToken(accountID string, scopes []string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"account_id": accountID,
		"scopes":     scopes,
		"class":      string(domain.TokenClassDomain),
		"exp":        now.Add(m.domainTokenExpiry).Unix(),
		"iat":        now.Unix(),
		"jti":        uuid.New().String(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign domain token: %w", err)
	}

	return tokenString, nil
}

// VerifyEdge verifies an edge token and returns its claims
func (m *TokenManager) VerifyEdge(tokenString string) (*domain.EdgeClaims, error) {
	claims, err := m.verify(tokenString, domain.TokenClassEdge)
	if err != nil {
		return nil, err
	}

	accountID, ok := claims["account_id"].(string)
	if !ok {
		return nil, fmt.Errorf("invalid account_id in token: %w", ErrMalformed)
	}

	email, _ := claims["email"].(string)
	displayName, _ := claims["display_name"].(string)
	exp, _ := claims["exp"].(float64)
	iat, _ := claims["iat"].(float64)

	return &domain.EdgeClaims{
		AccountID:   accountID,
		Email:       email,
		DisplayName: displayName,
		Exp:         int64(exp),
		Iat:         int64(iat),
	}, nil
}

// VerifyDomain verifies a domain token and returns its claims
func (m *TokenManager) VerifyDomain(tokenString string) (*domain.DomainClaims, error) {
	claims, err := m.verify(tokenString, domain.TokenClassDomain)
	if err != nil {
		return nil, err
	}

	accountID, ok := claims["account_id"].(string)
	if !ok {
		return nil, fmt.Errorf("invalid account_id in token: %w", ErrMalformed)
	}

	var scopes []string
	if raw, ok := claims["scopes"].([]interface{}); ok {
		for _, s := range raw {
			if scope, ok := s.(string); ok {
				scopes = append(scopes, scope)
			}
		}
	}

	exp, _ := claims["exp"].(float64)
	iat, _ := claims["iat"].(float64)

	return &domain.DomainClaims{
		AccountID: accountID,
		Scopes:    scopes,
		Exp:       int64(exp),
		Iat:       int64(iat),
	}, nil
}

// GetEdgeTokenExpiry returns the edge token expiry in seconds
func (m *TokenManager) GetEdgeTokenExpiry() int {
	return int(m.edgeTokenExpiry.Seconds())
}

// GetDomainTokenExpiry returns the domain token expiry in seconds
func (m *TokenManager) GetDomainTokenExpiry() int {
	return int(m.domainTokenExpiry.Seconds())
}

// verify parses the token, checks the signature and expiry, and enforces
// the expected class.
func (m *TokenManager) verify(tokenString string, expectedClass domain.TokenClass) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, fmt.Errorf("failed to validate token: %w", ErrTokenExpired)
		case errors.Is(err, jwt.ErrSignatureInvalid):
			return nil, fmt.Errorf("failed to validate token: %w", ErrInvalidSignature)
		default:
			return nil, fmt.Errorf("failed to parse token: %w", ErrMalformed)
		}
	}

	if !token.Valid {
		return nil, fmt.Errorf("failed to validate token: %w", ErrInvalidSignature)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims: %w", ErrMalformed)
	}

	class, ok := claims["class"].(string)
	if !ok {
		return nil, fmt.Errorf("missing class claim: %w", ErrMalformed)
	}
	if class != string(expectedClass) {
		return nil, fmt.Errorf("token class is %q, expected %q: %w", class, expectedClass, ErrWrongClass)
	}

	return claims, nil
}
