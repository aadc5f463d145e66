package acceptance

import (
	"encoding/json"
	"net/http"

	"github.com/prperemyshlev/bridge-service/internal/dto"
)

func (s *Suite) TestStoreCredential_EncryptedAtRest() {
	edge := s.registerGuest("vault@example.com", "Password123")

	body, _ := json.Marshal(dto.StoreCredentialRequest{
		APIKey: "sk-super-secret-key",
		Label:  "work",
	})
	resp := s.doAuthorized(http.MethodPut, "/api/v1/credentials/openai", edge.EdgeToken, body)
	resp.Body.Close()
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var ciphertext string
	err := s.Postgres.DB.QueryRow(
		`SELECT ciphertext FROM account_credentials WHERE account_id = $1 AND provider = $2`,
		edge.Account.ID, "openai",
	).Scan(&ciphertext)
	s.Require().NoError(err)

	s.NotEmpty(ciphertext)
	s.NotEqual("sk-super-secret-key", ciphertext)
	s.NotContains(ciphertext, "sk-super-secret")
}

func (s *Suite) TestListCredentials_MetadataOnly() {
	edge := s.registerGuest("vault2@example.com", "Password123")

	body, _ := json.Marshal(dto.StoreCredentialRequest{APIKey: "sk-secret", Label: "personal"})
	resp := s.doAuthorized(http.MethodPut, "/api/v1/credentials/anthropic", edge.EdgeToken, body)
	resp.Body.Close()
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	resp = s.doAuthorized(http.MethodGet, "/api/v1/credentials", edge.EdgeToken, nil)
	defer resp.Body.Close()
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var list []dto.CredentialResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&list))
	s.Require().Len(list, 1)
	s.Equal("anthropic", list[0].Provider)
	s.Require().NotNil(list[0].Label)
	s.Equal("personal", *list[0].Label)
}

func (s *Suite) TestStoreCredential_UnknownProvider() {
	edge := s.registerGuest("vault3@example.com", "Password123")

	body, _ := json.Marshal(dto.StoreCredentialRequest{APIKey: "sk-secret"})
	resp := s.doAuthorized(http.MethodPut, "/api/v1/credentials/mystery", edge.EdgeToken, body)
	defer resp.Body.Close()

	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *Suite) TestDeleteCredential() {
	edge := s.registerGuest("vault4@example.com", "Password123")

	body, _ := json.Marshal(dto.StoreCredentialRequest{APIKey: "sk-secret"})
	resp := s.doAuthorized(http.MethodPut, "/api/v1/credentials/openai", edge.EdgeToken, body)
	resp.Body.Close()
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	resp = s.doAuthorized(http.MethodDelete, "/api/v1/credentials/openai", edge.EdgeToken, nil)
	resp.Body.Close()
	s.Equal(http.StatusOK, resp.StatusCode)

	resp = s.doAuthorized(http.MethodDelete, "/api/v1/credentials/openai", edge.EdgeToken, nil)
	defer resp.Body.Close()
	s.Equal(http.StatusNotFound, resp.StatusCode)
}

func (s *Suite) TestCredentials_RequireEdgeToken() {
	resp := s.doAuthorized(http.MethodGet, "/api/v1/credentials", "", nil)
	defer resp.Body.Close()

	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *Suite) TestCreateThread_PersistsAcrossRequests() {
	edge := s.registerGuest("threads@example.com", "Password123")
	domainToken := s.exchangeToken(edge.EdgeToken)

	body, _ := json.Marshal(dto.CreateThreadRequest{
		Title:    "first thread",
		Provider: "openai",
		Model:    "gpt-4o",
	})
	resp := s.doAuthorized(http.MethodPost, "/domain/v1/threads", domainToken.DomainToken, body)
	resp.Body.Close()
	s.Require().Equal(http.StatusCreated, resp.StatusCode)

	resp = s.doAuthorized(http.MethodGet, "/domain/v1/threads", domainToken.DomainToken, nil)
	defer resp.Body.Close()
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var threads []map[string]any
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&threads))
	s.Require().Len(threads, 1)
	s.Equal("first thread", threads[0]["title"])
}
