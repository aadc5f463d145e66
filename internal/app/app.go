package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/bridge-service/internal/config"
	"github.com/prperemyshlev/bridge-service/internal/domain"
	"github.com/prperemyshlev/bridge-service/internal/handler"
	"github.com/prperemyshlev/bridge-service/internal/llm"
	"github.com/prperemyshlev/bridge-service/internal/oauth"
	"github.com/prperemyshlev/bridge-service/internal/repository"
	"github.com/prperemyshlev/bridge-service/internal/service"
	"github.com/prperemyshlev/bridge-service/internal/utils"
	"github.com/prperemyshlev/bridge-service/internal/vault"
	"github.com/prperemyshlev/bridge-service/pkg/observability"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	infra  Infrastructure
	config *config.Config
	router *gin.Engine
	server *http.Server
}

func NewApp(infra Infrastructure, cfg *config.Config) (*App, error) {
	masterKey, err := cfg.Vault.Key()
	if err != nil {
		return nil, err
	}
	credentialVault, err := vault.New(masterKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault: %w", err)
	}

	repos := repository.NewRepositories(infra.Postgres())

	tokenManager := utils.NewTokenManager(
		cfg.JWT.Secret,
		cfg.JWT.EdgeTokenExpiry.Duration,
		cfg.JWT.DomainTokenExpiry.Duration,
	)

	flowStore := oauth.NewRedisFlowStore(infra.Redis())
	providers := oauth.NewRegistry(cfg.OAuth, flowStore)
	llmClients := llm.NewRegistry()

	rateLimiter := service.NewRateLimiter(infra.Redis())
	healthChecker := NewHealthChecker(infra)

	bridgeService := service.NewBridgeService(repos.Account, tokenManager, credentialVault, cfg.Security.BCryptCost)
	credentialService := service.NewCredentialService(repos.Credential, credentialVault, llmClients)
	chatService := service.NewChatService(repos.Thread, credentialService, llmClients)

	authHandler := handler.NewAuthHandler(bridgeService, providers, cfg.OAuth.RedirectBaseURL, infra.Logger())
	credentialHandler := handler.NewCredentialHandler(credentialService, infra.Logger())
	chatHandler := handler.NewChatHandler(chatService, infra.Logger())

	gate := handler.GateConfig{
		Mode:   cfg.Mode(),
		Bypass: cfg.Security.BypassAuth,
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("bridge-service"))
	router.Use(handler.LoggerMiddleware(infra.Logger()))
	router.Use(handler.CORSMiddleware(cfg.CORS.AllowedOrigins, cfg.CORS.AllowedMethods, cfg.CORS.AllowedHeaders))

	setupRoutes(router, cfg, routeDeps{
		tokens:      tokenManager,
		gate:        gate,
		auth:        authHandler,
		credentials: credentialHandler,
		chat:        chatHandler,
		rateLimiter: rateLimiter,
		health:      healthChecker,
		metrics:     infra.MetricsHandler(),
		logger:      infra.Logger(),
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout.Duration,
		WriteTimeout: cfg.Server.WriteTimeout.Duration,
	}

	return &App{
		infra:  infra,
		config: cfg,
		router: router,
		server: srv,
	}, nil
}

func (a *App) Router() *gin.Engine {
	return a.router
}

type routeDeps struct {
	tokens      *utils.TokenManager
	gate        handler.GateConfig
	auth        *handler.AuthHandler
	credentials *handler.CredentialHandler
	chat        *handler.ChatHandler
	rateLimiter *service.RateLimiter
	health      *HealthChecker
	metrics     http.Handler
	logger      *zap.Logger
}

func setupRoutes(router *gin.Engine, cfg *config.Config, deps routeDeps) {
	router.GET("/metrics", observability.PrometheusHandler(deps.metrics))
	router.GET("/health", deps.health.Handler)

	loginLimit := handler.RateLimitMiddleware(
		deps.rateLimiter,
		cfg.Security.RateLimitRequests,
		cfg.Security.RateLimitWindow.Duration,
		handler.IPBasedKey,
	)

	edgeGate := handler.EdgeAuthMiddleware(deps.tokens, deps.gate, deps.logger)
	domainGate := handler.DomainAuthMiddleware(deps.tokens, deps.logger)

	api := router.Group("/api/v1")
	{
		auth := api.Group("/auth")
		{
			auth.GET("/login/:provider", loginLimit, deps.auth.Login)
			auth.GET("/callback/:provider", loginLimit, deps.auth.Callback)
			auth.POST("/guest/register", loginLimit, deps.auth.GuestRegister)
			auth.POST("/guest/login", loginLimit, deps.auth.GuestLogin)
			auth.POST("/exchange", edgeGate, deps.auth.Exchange)
			auth.GET("/me", edgeGate, deps.auth.Me)
			auth.PATCH("/me/preferences", edgeGate, deps.auth.UpdatePreferences)
			auth.DELETE("/me", edgeGate, deps.auth.Deactivate)
		}

		credentials := api.Group("/credentials", edgeGate)
		{
			credentials.PUT("/:provider", deps.credentials.Store)
			credentials.GET("", deps.credentials.List)
			credentials.DELETE("/:provider", deps.credentials.Delete)
		}
	}

	domainAPI := router.Group("/domain/v1", domainGate)
	{
		threads := domainAPI.Group("/threads")
		{
			threads.POST("", handler.RequireScope(domain.ScopeThreadsWrite, deps.logger), deps.chat.CreateThread)
			threads.GET("", handler.RequireScope(domain.ScopeThreadsRead, deps.logger), deps.chat.ListThreads)
			threads.GET("/:id/messages", handler.RequireScope(domain.ScopeMessagesRead, deps.logger), deps.chat.ListMessages)
			threads.POST("/:id/messages", handler.RequireScope(domain.ScopeMessagesWrite, deps.logger), deps.chat.PostMessage)
		}

		domainAPI.GET("/models/:provider", handler.RequireScope(domain.ScopeModelsInvoke, deps.logger), deps.chat.ListModels)
		domainAPI.POST("/credentials/:provider/validate", handler.RequireScope(domain.ScopeModelsInvoke, deps.logger), deps.chat.ValidateCredential)
	}
}

func (a *App) Run(ctx context.Context) error {
	errChan := make(chan error, 1)

	go func() {
		a.infra.Logger().Info("Application starting",
			zap.String("host", a.config.Server.Host),
			zap.String("port", a.config.Server.Port),
			zap.String("mode", string(a.config.Mode())),
		)

		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.infra.Logger().Error("Server error", zap.Error(err))
			errChan <- err
		}
	}()

	var serverErr error
	select {
	case err := <-errChan:
		a.infra.Logger().Error("Application failed to start", zap.Error(err))
		serverErr = err
	case <-ctx.Done():
		a.infra.Logger().Info("Application stopped by context")
	}

	if err := a.Shutdown(); err != nil {
		a.infra.Logger().Error("Shutdown error", zap.Error(err))
		if serverErr != nil {
			return errors.Join(serverErr, err)
		}
		return err
	}

	return serverErr
}

func (a *App) Shutdown() error {
	a.infra.Logger().Info("Application shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	errs := make(chan error, 2)

	go func() {
		errs <- a.server.Shutdown(ctx)
	}()

	go func() {
		errs <- a.infra.Shutdown(ctx)
	}()

	err := errors.Join(<-errs, <-errs)
	if err != nil {
		a.infra.Logger().Error("Shutdown failed", zap.Error(err))
		return err
	}

	a.infra.Logger().Info("Application exited successfully")
	return nil
}
