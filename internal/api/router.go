package api

import (
	"log/slog"
	"os"
	"strings"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/payrollcheck/payrollcheck-backend/internal/api/handlers"
	"github.com/payrollcheck/payrollcheck-backend/internal/api/middleware"
	"github.com/payrollcheck/payrollcheck-backend/internal/logger"
	"github.com/payrollcheck/payrollcheck-backend/internal/mailer"
	"github.com/payrollcheck/payrollcheck-backend/internal/repository"
	"github.com/payrollcheck/payrollcheck-backend/internal/websocket"
)

// RouterConfig holds dependencies for the router
type RouterConfig struct {
	DB       *gorm.DB
	Hub      *websocket.Hub
	Mailer   mailer.Mailer
	Resolver handlers.EventResolver
	Analyzer handlers.CaseAnalyzer
	Logger   *slog.Logger
	SecLog   *logger.SecurityLogger

	// Email configuration
	WebhookSecret string // Resend webhook signing secret (empty = verification disabled)
	EmailFrom     string // Sender address for outbound email
	InboundDomain string // Domain for reply-to correlation addresses

	// Security configuration
	APIKey         string   // API key for authentication (empty = disabled)
	AllowedOrigins []string // Allowed CORS origins
	RateLimit      int      // Requests per second (0 = use env default)
	RateBurst      int      // Burst size for rate limiter
	EnableAuth     bool     // Enable API key authentication
}

// NewRouter creates and configures the Echo router with all routes
func NewRouter(cfg *RouterConfig) (*echo.Echo, error) {
	e := echo.New()
	e.HideBanner = true

	// Security Middleware (applied in correct order)
	// 1. Recover from panics
	e.Use(middleware.Recover())

	// 2. Security headers (applied to all responses)
	e.Use(middleware.SecureHeaders())

	// 3. CORS - Set environment variable if origins provided in config
	if len(cfg.AllowedOrigins) > 0 {
		os.Setenv("ALLOWED_ORIGINS", strings.Join(cfg.AllowedOrigins, ","))
	}
	e.Use(middleware.SecureCORS())

	// 4. Rate limiting - use RateLimiterWithConfig if custom values provided
	if cfg.RateLimit > 0 {
		e.Use(middleware.RateLimiterWithConfig(float64(cfg.RateLimit), cfg.RateBurst, cfg.Logger))
	} else {
		e.Use(middleware.RateLimiter(cfg.Logger))
	}

	// 5. Request logging
	if cfg.Logger != nil {
		e.Use(middleware.RequestLogger(cfg.Logger))
	}

	// Initialize repositories
	leadRepo := repository.NewLeadRepository(cfg.DB)
	convRepo := repository.NewConversationRepository(cfg.DB)
	messageRepo := repository.NewMessageRepository(cfg.DB)
	draftRepo := repository.NewDraftRepository(cfg.DB)
	stateRepo := repository.NewStateRepository(cfg.DB)
	actionRepo := repository.NewActionRepository(cfg.DB)
	unmatchedRepo := repository.NewUnmatchedRepository(cfg.DB)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(cfg.DB)
	leadHandler := handlers.NewLeadHandler(leadRepo)
	convHandler := handlers.NewConversationHandler(convRepo, messageRepo, draftRepo, leadRepo)
	emailHandler := handlers.NewEmailHandler(leadRepo, convRepo, messageRepo, cfg.Mailer, cfg.EmailFrom, cfg.InboundDomain, cfg.Logger)
	draftHandler := handlers.NewDraftHandler(draftRepo, convRepo, leadRepo, messageRepo, cfg.Mailer, cfg.EmailFrom, cfg.InboundDomain, cfg.Logger)
	aiHandler := handlers.NewAIHandler(cfg.Analyzer, stateRepo, actionRepo, leadRepo)
	unmatchedHandler := handlers.NewUnmatchedHandler(unmatchedRepo)

	webhookHandler, err := handlers.NewWebhookHandler(cfg.Resolver, cfg.WebhookSecret, cfg.SecLog, cfg.Logger)
	if err != nil {
		return nil, err
	}

	// Health routes (no auth required)
	e.GET("/health", healthHandler.Health)
	e.GET("/ready", healthHandler.Ready)

	// Inbound email webhook (signature-verified, never behind API key auth)
	e.POST("/webhooks/resend", webhookHandler.HandleResend)

	// WebSocket endpoint for real-time conversation updates
	if cfg.Hub != nil {
		upgrader := websocket.NewSecureUpgrader(cfg.Logger)
		e.GET("/ws", func(c echo.Context) error {
			conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
			if err != nil {
				return err
			}

			client := websocket.NewClient(cfg.Hub, conn, cfg.Logger)
			cfg.Hub.Register(client)

			go client.WritePump()
			go client.ReadPump()

			return nil
		})
	}

	// API routes
	api := e.Group("/api")

	// Apply API key authentication if enabled
	// Set API_KEY env var if provided in config
	if cfg.EnableAuth && cfg.APIKey != "" {
		os.Setenv("API_KEY", cfg.APIKey)
	}
	api.Use(middleware.APIKeyAuth(cfg.Logger))

	// Lead routes
	leads := api.Group("/leads")
	leads.POST("", leadHandler.Create)
	leads.GET("", leadHandler.List)
	leads.GET("/:id", leadHandler.Get)
	leads.PATCH("/:id/status", leadHandler.UpdateStatus)
	leads.PATCH("/:id/notes", leadHandler.UpdateNotes)
	leads.GET("/:id/conversations", convHandler.ListByLead)
	leads.GET("/:id/ai/state", aiHandler.GetState)
	leads.GET("/:id/ai/actions", aiHandler.ListActions)

	// Conversation routes
	conversations := api.Group("/conversations")
	conversations.GET("/:id", convHandler.Get)
	conversations.GET("/:id/messages", convHandler.ListMessages)
	conversations.GET("/:id/drafts", convHandler.ListDrafts)
	conversations.PATCH("/:id/status", convHandler.UpdateStatus)

	// Outbound email
	api.POST("/email/send", emailHandler.Send)

	// AI case assistant
	api.POST("/ai/analyze", aiHandler.Analyze)

	// Draft lifecycle
	drafts := api.Group("/drafts")
	drafts.POST("/:id/send", draftHandler.Send)
	drafts.POST("/:id/discard", draftHandler.Discard)

	// Unmatched inbound email review
	api.GET("/unmatched", unmatchedHandler.List)

	return e, nil
}
