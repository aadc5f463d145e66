package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/prperemyshlev/bridge-service/internal/dto"
	"github.com/prperemyshlev/bridge-service/internal/llm"
	"github.com/prperemyshlev/bridge-service/internal/service"
)

// ChatHandler handles the domain-tier conversation endpoints
type ChatHandler struct {
	chat   service.ChatService
	logger *zap.Logger
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chat service.ChatService, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		chat:   chat,
		logger: logger,
	}
}

// CreateThread starts a new conversation
// @Summary Create a thread
// @Tags chat
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateThreadRequest true "Thread parameters"
// @Success 201 {object} domain.Thread
// @Failure 400 {object} dto.ErrorResponse
// @Router /domain/v1/threads [post]
func (h *ChatHandler) CreateThread(c *gin.Context) {
	var req dto.CreateThreadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewError("validation_failed", err.Error()))
		return
	}

	accountID := c.GetString(ContextAccountID)
	thread, err := h.chat.CreateThread(c.Request.Context(), accountID, &req)
	if err != nil {
		if errors.Is(err, service.ErrUnsupportedProvider) {
			c.JSON(http.StatusBadRequest, dto.NewError("unsupported_provider", "no such llm provider"))
			return
		}
		h.logger.Error("failed to create thread", zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.NewError("internal_error", "failed to create thread"))
		return
	}

	c.JSON(http.StatusCreated, thread)
}

// ListThreads returns the account's conversations
// @Summary List threads
// @Tags chat
// @Produce json
// @Security BearerAuth
// @Success 200 {array} domain.Thread
// @Router /domain/v1/threads [get]
func (h *ChatHandler) ListThreads(c *gin.Context) {
	accountID := c.GetString(ContextAccountID)

	threads, err := h.chat.ListThreads(c.Request.Context(), accountID)
	if err != nil {
		h.logger.Error("failed to list threads", zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.NewError("internal_error", "failed to list threads"))
		return
	}

	c.JSON(http.StatusOK, threads)
}

// ListMessages returns the message history of a thread
// @Summary List messages
// @Tags chat
// @Produce json
// @Security BearerAuth
// @Param id path string true "Thread ID"
// @Success 200 {array} domain.Message
// @Failure 404 {object} dto.ErrorResponse
// @Router /domain/v1/threads/{id}/messages [get]
func (h *ChatHandler) ListMessages(c *gin.Context) {
	accountID := c.GetString(ContextAccountID)
	threadID := c.Param("id")

	messages, err := h.chat.ListMessages(c.Request.Context(), accountID, threadID)
	if err != nil {
		if errors.Is(err, service.ErrThreadNotFound) {
			c.JSON(http.StatusNotFound, dto.NewError("not_found", "thread not found"))
			return
		}
		h.logger.Error("failed to list messages", zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.NewError("internal_error", "failed to list messages"))
		return
	}

	c.JSON(http.StatusOK, messages)
}

// PostMessage appends a message and returns the model's reply
// @Summary Post a message
// @Description Forwards the thread history to the bound provider with the account's stored key
// @Tags chat
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Thread ID"
// @Param request body dto.PostMessageRequest true "Message content"
// @Success 200 {object} domain.Message
// @Failure 404 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Router /domain/v1/threads/{id}/messages [post]
func (h *ChatHandler) PostMessage(c *gin.Context) {
	var req dto.PostMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewError("validation_failed", err.Error()))
		return
	}

	accountID := c.GetString(ContextAccountID)
	threadID := c.Param("id")

	reply, err := h.chat.PostMessage(c.Request.Context(), accountID, threadID, req.Content)
	if err != nil {
		h.respondChatError(c, err, "failed to post message")
		return
	}

	c.JSON(http.StatusOK, reply)
}

// ListModels returns the models available to the account's stored key
// @Summary List provider models
// @Tags chat
// @Produce json
// @Security BearerAuth
// @Param provider path string true "LLM provider name"
// @Success 200 {array} string
// @Failure 404 {object} dto.ErrorResponse
// @Router /domain/v1/models/{provider} [get]
func (h *ChatHandler) ListModels(c *gin.Context) {
	accountID := c.GetString(ContextAccountID)
	provider := c.Param("provider")

	models, err := h.chat.ListModels(c.Request.Context(), accountID, provider)
	if err != nil {
		h.respondChatError(c, err, "failed to list models")
		return
	}

	c.JSON(http.StatusOK, models)
}

// ValidateCredential checks the stored key against the live provider
// @Summary Validate a stored credential
// @Tags chat
// @Produce json
// @Security BearerAuth
// @Param provider path string true "LLM provider name"
// @Success 200 {object} dto.SuccessResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 422 {object} dto.ErrorResponse
// @Router /domain/v1/credentials/{provider}/validate [post]
func (h *ChatHandler) ValidateCredential(c *gin.Context) {
	accountID := c.GetString(ContextAccountID)
	provider := c.Param("provider")

	if err := h.chat.ValidateCredential(c.Request.Context(), accountID, provider); err != nil {
		if errors.Is(err, llm.ErrInvalidAPIKey) {
			c.JSON(http.StatusUnprocessableEntity, dto.NewError("invalid_api_key", "provider rejected the stored key"))
			return
		}
		h.respondChatError(c, err, "failed to validate credential")
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{Message: "credential is valid"})
}

// respondChatError maps the shared chat failure modes to HTTP statuses
func (h *ChatHandler) respondChatError(c *gin.Context, err error, logMessage string) {
	switch {
	case errors.Is(err, service.ErrThreadNotFound):
		c.JSON(http.StatusNotFound, dto.NewError("not_found", "thread not found"))
	case errors.Is(err, service.ErrCredentialNotFound):
		c.JSON(http.StatusNotFound, dto.NewError("no_credential", "no credential stored for this provider"))
	case errors.Is(err, service.ErrUnsupportedProvider):
		c.JSON(http.StatusBadRequest, dto.NewError("unsupported_provider", "no such llm provider"))
	case errors.Is(err, llm.ErrInvalidAPIKey):
		c.JSON(http.StatusUnprocessableEntity, dto.NewError("invalid_api_key", "provider rejected the stored key"))
	case errors.Is(err, llm.ErrProviderUnavailable):
		c.JSON(http.StatusBadGateway, dto.NewError("provider_unavailable", "upstream provider is unavailable"))
	default:
		h.logger.Error(logMessage, zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.NewError("internal_error", logMessage))
	}
}
