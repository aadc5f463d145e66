package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/prperemyshlev/bridge-service/internal/dto"
	"github.com/prperemyshlev/bridge-service/internal/oauth"
	"github.com/prperemyshlev/bridge-service/internal/service"
)

// AuthHandler handles login, token exchange and account requests
type AuthHandler struct {
	bridge          service.BridgeService
	providers       *oauth.Registry
	redirectBaseURL string
	logger          *zap.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(bridge service.BridgeService, providers *oauth.Registry, redirectBaseURL string, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		bridge:          bridge,
		providers:       providers,
		redirectBaseURL: redirectBaseURL,
		logger:          logger,
	}
}

// Login starts an OAuth login flow
// @Summary Start OAuth login
// @Description Redirects the browser to the provider's authorization page
// @Tags auth
// @Param provider path string true "Provider name (github, google)"
// @Success 302
// @Failure 404 {object} dto.ErrorResponse
// @Router /auth/login/{provider} [get]
func (h *AuthHandler) Login(c *gin.Context) {
	provider := c.Param("provider")

	adapter, err := h.providers.Get(provider)
	if err != nil {
		c.JSON(http.StatusNotFound, dto.NewError("unknown_provider", "no such login provider"))
		return
	}

	redirectURI := fmt.Sprintf("%s/api/v1/auth/callback/%s", h.redirectBaseURL, provider)
	authURL, err := adapter.BeginAuthorization(c.Request.Context(), redirectURI)
	if err != nil {
		h.logger.Error("failed to begin oauth flow", zap.String("provider", provider), zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.NewError("internal_error", "failed to start login"))
		return
	}

	c.Redirect(http.StatusFound, authURL)
}

// Callback completes an OAuth login flow
// @Summary Complete OAuth login
// @Description Exchanges the provider callback for an edge token
// @Tags auth
// @Produce json
// @Param provider path string true "Provider name"
// @Param state query string true "Flow state"
// @Param code query string true "Authorization code"
// @Success 200 {object} dto.EdgeTokenResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /auth/callback/{provider} [get]
func (h *AuthHandler) Callback(c *gin.Context) {
	provider := c.Param("provider")

	adapter, err := h.providers.Get(provider)
	if err != nil {
		c.JSON(http.StatusNotFound, dto.NewError("unknown_provider", "no such login provider"))
		return
	}

	if errCode := c.Query("error"); errCode != "" {
		h.logger.Warn("provider returned an error callback",
			zap.String("provider", provider),
			zap.String("error", errCode),
		)
		c.JSON(http.StatusUnauthorized, dto.NewError("unauthorized", "login was not completed"))
		return
	}

	identity, err := adapter.CompleteAuthorization(c.Request.Context(), c.Query("state"), c.Query("code"))
	if err != nil {
		h.logger.Warn("oauth callback rejected",
			zap.String("provider", provider),
			zap.String("reason", callbackRejection(err)),
			zap.String("ip", c.ClientIP()),
		)
		c.JSON(http.StatusUnauthorized, dto.NewError("unauthorized", "login was not completed"))
		return
	}

	result, err := h.bridge.CompleteLogin(c.Request.Context(), identity)
	if err != nil {
		if errors.Is(err, service.ErrIdentityConflict) {
			c.JSON(http.StatusConflict, dto.NewError("identity_conflict", "account is already linked to a different identity from this provider"))
			return
		}
		h.logger.Error("failed to complete login", zap.String("provider", provider), zap.Error(err))
		c.JSON(http.StatusUnauthorized, dto.NewError("unauthorized", "login was not completed"))
		return
	}

	c.JSON(http.StatusOK, edgeTokenResponse(result))
}

// GuestRegister handles password-based registration
// @Summary Register a guest account
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.GuestRegisterRequest true "Registration request"
// @Success 201 {object} dto.EdgeTokenResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /auth/guest/register [post]
func (h *AuthHandler) GuestRegister(c *gin.Context) {
	var req dto.GuestRegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewError("validation_failed", err.Error()))
		return
	}

	result, err := h.bridge.RegisterGuest(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrEmailTaken) {
			c.JSON(http.StatusConflict, dto.NewError("email_taken", "email is already registered"))
			return
		}
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.JSON(http.StatusBadRequest, dto.NewError("validation_failed", "email is not valid"))
			return
		}
		h.logger.Error("failed to register guest", zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.NewError("internal_error", "registration failed"))
		return
	}

	c.JSON(http.StatusCreated, edgeTokenResponse(result))
}

// GuestLogin handles password-based login
// @Summary Login with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.GuestLoginRequest true "Login request"
// @Success 200 {object} dto.EdgeTokenResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /auth/guest/login [post]
func (h *AuthHandler) GuestLogin(c *gin.Context) {
	var req dto.GuestLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewError("validation_failed", err.Error()))
		return
	}

	result, err := h.bridge.LoginGuest(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, dto.NewError("unauthorized", "authentication required"))
			return
		}
		h.logger.Error("failed to login guest", zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.NewError("internal_error", "login failed"))
		return
	}

	c.JSON(http.StatusOK, edgeTokenResponse(result))
}

// Exchange trades an edge token for a domain token
// @Summary Exchange edge token for domain token
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.DomainTokenResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /auth/exchange [post]
func (h *AuthHandler) Exchange(c *gin.Context) {
	tokenString, ok := bearerToken(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, dto.NewError("unauthorized", "authentication required"))
		return
	}

	result, err := h.bridge.ExchangeForDomainToken(c.Request.Context(), tokenString)
	if err != nil {
		if errors.Is(err, service.ErrInvalidEdgeToken) || errors.Is(err, service.ErrAccountNotFound) {
			h.logger.Warn("token exchange rejected",
				zap.String("ip", c.ClientIP()),
				zap.Error(err),
			)
			c.JSON(http.StatusUnauthorized, dto.NewError("unauthorized", "authentication required"))
			return
		}
		h.logger.Error("failed to exchange token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.NewError("internal_error", "exchange failed"))
		return
	}

	c.JSON(http.StatusOK, dto.DomainTokenResponse{
		DomainToken: result.DomainToken,
		TokenType:   "Bearer",
		ExpiresIn:   result.ExpiresIn,
		Scopes:      result.Scopes,
	})
}

// Me returns the authenticated account's profile
// @Summary Get current account
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.AccountResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	accountID := c.GetString(ContextAccountID)

	profile, err := h.bridge.GetAccount(c.Request.Context(), accountID)
	if err != nil {
		if errors.Is(err, service.ErrAccountNotFound) {
			c.JSON(http.StatusNotFound, dto.NewError("not_found", "account not found"))
			return
		}
		h.logger.Error("failed to load account", zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.NewError("internal_error", "failed to load account"))
		return
	}

	c.JSON(http.StatusOK, profile)
}

// UpdatePreferences replaces the account's preference document
// @Summary Update preferences
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.UpdatePreferencesRequest true "Preferences"
// @Success 200 {object} dto.SuccessResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /auth/me/preferences [patch]
func (h *AuthHandler) UpdatePreferences(c *gin.Context) {
	var req dto.UpdatePreferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewError("validation_failed", err.Error()))
		return
	}

	accountID := c.GetString(ContextAccountID)
	if err := h.bridge.UpdatePreferences(c.Request.Context(), accountID, req.Preferences); err != nil {
		if errors.Is(err, service.ErrAccountNotFound) {
			c.JSON(http.StatusNotFound, dto.NewError("not_found", "account not found"))
			return
		}
		h.logger.Error("failed to update preferences", zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.NewError("internal_error", "failed to update preferences"))
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{Message: "preferences updated"})
}

// Deactivate soft-deletes the authenticated account
// @Summary Deactivate current account
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.SuccessResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /auth/me [delete]
func (h *AuthHandler) Deactivate(c *gin.Context) {
	accountID := c.GetString(ContextAccountID)

	if err := h.bridge.DeactivateAccount(c.Request.Context(), accountID); err != nil {
		if errors.Is(err, service.ErrAccountNotFound) {
			c.JSON(http.StatusNotFound, dto.NewError("not_found", "account not found"))
			return
		}
		h.logger.Error("failed to deactivate account", zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.NewError("internal_error", "failed to deactivate account"))
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{Message: "account deactivated"})
}

func edgeTokenResponse(result *service.LoginResult) dto.EdgeTokenResponse {
	return dto.EdgeTokenResponse{
		EdgeToken: result.EdgeToken,
		TokenType: "Bearer",
		ExpiresIn: result.ExpiresIn,
		Account: dto.AccountInfo{
			ID:          result.Account.ID,
			Email:       result.Account.Email,
			DisplayName: result.Account.DisplayName,
		},
	}
}

// callbackRejection classifies a completion error for logging
func callbackRejection(err error) string {
	switch {
	case errors.Is(err, oauth.ErrStateMismatch):
		return "state_mismatch"
	case errors.Is(err, oauth.ErrFlowExpired):
		return "flow_expired"
	case errors.Is(err, oauth.ErrProviderRejected):
		return "provider_rejected"
	default:
		return "completion_failed"
	}
}
