package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/prperemyshlev/bridge-service/internal/dto"
	"github.com/prperemyshlev/bridge-service/internal/service"
)

// CredentialHandler handles the edge-tier credential vault endpoints
type CredentialHandler struct {
	credentials service.CredentialService
	logger      *zap.Logger
}

// NewCredentialHandler creates a new credential handler
func NewCredentialHandler(credentials service.CredentialService, logger *zap.Logger) *CredentialHandler {
	return &CredentialHandler{
		credentials: credentials,
		logger:      logger,
	}
}

// Store saves an API key for the authenticated account
// @Summary Store a provider API key
// @Description Encrypts and stores an API key; a second store replaces the first
// @Tags credentials
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param provider path string true "LLM provider name (openai, anthropic)"
// @Param request body dto.StoreCredentialRequest true "API key"
// @Success 200 {object} dto.SuccessResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /credentials/{provider} [put]
func (h *CredentialHandler) Store(c *gin.Context) {
	var req dto.StoreCredentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewError("validation_failed", err.Error()))
		return
	}

	accountID := c.GetString(ContextAccountID)
	provider := c.Param("provider")

	if err := h.credentials.Store(c.Request.Context(), accountID, provider, req.APIKey, req.Label); err != nil {
		if errors.Is(err, service.ErrUnsupportedProvider) {
			c.JSON(http.StatusBadRequest, dto.NewError("unsupported_provider", "no such llm provider"))
			return
		}
		h.logger.Error("failed to store credential", zap.String("provider", provider), zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.NewError("internal_error", "failed to store credential"))
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{Message: "credential stored"})
}

// List returns metadata for the account's stored credentials
// @Summary List stored credentials
// @Description Metadata only; the key itself is never returned
// @Tags credentials
// @Produce json
// @Security BearerAuth
// @Success 200 {array} dto.CredentialResponse
// @Router /credentials [get]
func (h *CredentialHandler) List(c *gin.Context) {
	accountID := c.GetString(ContextAccountID)

	list, err := h.credentials.List(c.Request.Context(), accountID)
	if err != nil {
		h.logger.Error("failed to list credentials", zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.NewError("internal_error", "failed to list credentials"))
		return
	}

	c.JSON(http.StatusOK, list)
}

// Delete removes a stored credential
// @Summary Delete a stored credential
// @Tags credentials
// @Produce json
// @Security BearerAuth
// @Param provider path string true "LLM provider name"
// @Success 200 {object} dto.SuccessResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /credentials/{provider} [delete]
func (h *CredentialHandler) Delete(c *gin.Context) {
	accountID := c.GetString(ContextAccountID)
	provider := c.Param("provider")

	if err := h.credentials.Delete(c.Request.Context(), accountID, provider); err != nil {
		if errors.Is(err, service.ErrCredentialNotFound) {
			c.JSON(http.StatusNotFound, dto.NewError("not_found", "no credential stored for this provider"))
			return
		}
		h.logger.Error("failed to delete credential", zap.String("provider", provider), zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.NewError("internal_error", "failed to delete credential"))
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{Message: "credential deleted"})
}
