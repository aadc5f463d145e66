package acceptance

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/prperemyshlev/bridge-service/internal/dto"
)

func (s *Suite) registerGuest(email, password string) dto.EdgeTokenResponse {
	body, _ := json.Marshal(dto.GuestRegisterRequest{
		Email:    email,
		Password: password,
	})

	resp, err := http.Post(s.BaseURL+"/api/v1/auth/guest/register", "application/json", bytes.NewBuffer(body))
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Require().Equal(http.StatusCreated, resp.StatusCode)

	var tokenResp dto.EdgeTokenResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&tokenResp))
	return tokenResp
}

func (s *Suite) doAuthorized(method, path, token string, body []byte) *http.Response {
	req, err := http.NewRequest(method, s.BaseURL+path, bytes.NewBuffer(body))
	s.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	return resp
}

func (s *Suite) exchangeToken(edgeToken string) dto.DomainTokenResponse {
	resp := s.doAuthorized(http.MethodPost, "/api/v1/auth/exchange", edgeToken, nil)
	defer resp.Body.Close()

	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var tokenResp dto.DomainTokenResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&tokenResp))
	return tokenResp
}

func (s *Suite) TestGuestRegister_Success() {
	tokenResp := s.registerGuest("test@example.com", "Password123")

	s.NotEmpty(tokenResp.EdgeToken)
	s.Equal("Bearer", tokenResp.TokenType)
	s.NotZero(tokenResp.ExpiresIn)
	s.Equal("test@example.com", tokenResp.Account.Email)
	s.NotEmpty(tokenResp.Account.ID)
}

func (s *Suite) TestGuestRegister_DuplicateEmail() {
	s.registerGuest("duplicate@example.com", "Password123")

	body, _ := json.Marshal(dto.GuestRegisterRequest{
		Email:    "duplicate@example.com",
		Password: "Password123",
	})
	resp, err := http.Post(s.BaseURL+"/api/v1/auth/guest/register", "application/json", bytes.NewBuffer(body))
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusConflict, resp.StatusCode)

	var errResp dto.ErrorResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&errResp))
	s.Equal("email_taken", errResp.Error.Code)
}

func (s *Suite) TestGuestLogin_Success() {
	s.registerGuest("login@example.com", "Password123")

	body, _ := json.Marshal(dto.GuestLoginRequest{
		Email:    "login@example.com",
		Password: "Password123",
	})
	resp, err := http.Post(s.BaseURL+"/api/v1/auth/guest/login", "application/json", bytes.NewBuffer(body))
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusOK, resp.StatusCode)

	var tokenResp dto.EdgeTokenResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&tokenResp))
	s.NotEmpty(tokenResp.EdgeToken)
}

func (s *Suite) TestGuestLogin_WrongPassword() {
	s.registerGuest("login2@example.com", "Password123")

	body, _ := json.Marshal(dto.GuestLoginRequest{
		Email:    "login2@example.com",
		Password: "WrongPassword",
	})
	resp, err := http.Post(s.BaseURL+"/api/v1/auth/guest/login", "application/json", bytes.NewBuffer(body))
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusUnauthorized, resp.StatusCode)

	var errResp dto.ErrorResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&errResp))
	s.Equal("unauthorized", errResp.Error.Code)
}

func (s *Suite) TestExchange_Success() {
	edge := s.registerGuest("exchange@example.com", "Password123")

	domainToken := s.exchangeToken(edge.EdgeToken)

	s.NotEmpty(domainToken.DomainToken)
	s.NotEqual(edge.EdgeToken, domainToken.DomainToken)
	s.Contains(domainToken.Scopes, "threads:read")
	s.Contains(domainToken.Scopes, "models:invoke")
}

func (s *Suite) TestExchange_RejectsDomainToken() {
	edge := s.registerGuest("exchange2@example.com", "Password123")
	domainToken := s.exchangeToken(edge.EdgeToken)

	resp := s.doAuthorized(http.MethodPost, "/api/v1/auth/exchange", domainToken.DomainToken, nil)
	defer resp.Body.Close()

	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *Suite) TestTierEnforcement() {
	edge := s.registerGuest("tiers@example.com", "Password123")
	domainToken := s.exchangeToken(edge.EdgeToken)

	// Edge token on a domain route
	resp := s.doAuthorized(http.MethodGet, "/domain/v1/threads", edge.EdgeToken, nil)
	resp.Body.Close()
	s.Equal(http.StatusUnauthorized, resp.StatusCode)

	// Domain token on an edge route
	resp = s.doAuthorized(http.MethodGet, "/api/v1/auth/me", domainToken.DomainToken, nil)
	resp.Body.Close()
	s.Equal(http.StatusUnauthorized, resp.StatusCode)

	// Right classes pass
	resp = s.doAuthorized(http.MethodGet, "/api/v1/auth/me", edge.EdgeToken, nil)
	resp.Body.Close()
	s.Equal(http.StatusOK, resp.StatusCode)

	resp = s.doAuthorized(http.MethodGet, "/domain/v1/threads", domainToken.DomainToken, nil)
	resp.Body.Close()
	s.Equal(http.StatusOK, resp.StatusCode)
}

func (s *Suite) TestMe_Profile() {
	edge := s.registerGuest("me@example.com", "Password123")

	resp := s.doAuthorized(http.MethodGet, "/api/v1/auth/me", edge.EdgeToken, nil)
	defer resp.Body.Close()

	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var profile dto.AccountResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&profile))
	s.Equal("me@example.com", profile.Email)
	s.NotNil(profile.LastLoginAt)
}

func (s *Suite) TestUpdatePreferences() {
	edge := s.registerGuest("prefs@example.com", "Password123")

	body, _ := json.Marshal(dto.UpdatePreferencesRequest{
		Preferences: json.RawMessage(`{"theme":"dark"}`),
	})
	resp := s.doAuthorized(http.MethodPatch, "/api/v1/auth/me/preferences", edge.EdgeToken, body)
	resp.Body.Close()
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	resp = s.doAuthorized(http.MethodGet, "/api/v1/auth/me", edge.EdgeToken, nil)
	defer resp.Body.Close()

	var profile dto.AccountResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&profile))
	s.JSONEq(`{"theme":"dark"}`, string(profile.Preferences))
}

func (s *Suite) TestDeactivate_BlocksExchange() {
	edge := s.registerGuest("gone@example.com", "Password123")

	resp := s.doAuthorized(http.MethodDelete, "/api/v1/auth/me", edge.EdgeToken, nil)
	resp.Body.Close()
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	// The edge token still carries a valid signature, the storage re-check
	// must refuse the exchange anyway
	resp = s.doAuthorized(http.MethodPost, "/api/v1/auth/exchange", edge.EdgeToken, nil)
	resp.Body.Close()
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *Suite) TestUnknownOAuthProvider() {
	resp, err := http.Get(s.BaseURL + "/api/v1/auth/login/unknown")
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusNotFound, resp.StatusCode)
}
