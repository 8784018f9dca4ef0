package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/payrollcheck/payrollcheck-backend/internal/ai"
	"github.com/payrollcheck/payrollcheck-backend/internal/api"
	"github.com/payrollcheck/payrollcheck-backend/internal/config"
	"github.com/payrollcheck/payrollcheck-backend/internal/database"
	"github.com/payrollcheck/payrollcheck-backend/internal/inbound"
	seclog "github.com/payrollcheck/payrollcheck-backend/internal/logger"
	"github.com/payrollcheck/payrollcheck-backend/internal/mailer"
	"github.com/payrollcheck/payrollcheck-backend/internal/repository"
	smtpserver "github.com/payrollcheck/payrollcheck-backend/internal/smtp"
	"github.com/payrollcheck/payrollcheck-backend/internal/websocket"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.LoadWithValidation()
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)
	cfg.LogConfig(logger)

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer database.Close(db)

	if err := database.Migrate(db); err != nil {
		logger.Error("failed to run migrations", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Repositories shared between the resolver and the AI pipeline
	leadRepo := repository.NewLeadRepository(db)
	convRepo := repository.NewConversationRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	draftRepo := repository.NewDraftRepository(db)
	rulesRepo := repository.NewRulesRepository(db)
	stateRepo := repository.NewStateRepository(db)
	actionRepo := repository.NewActionRepository(db)
	unmatchedRepo := repository.NewUnmatchedRepository(db)

	hub := websocket.NewHub(logger)
	go hub.Run()

	resendMailer := mailer.NewResendMailer(cfg.ResendAPIKey, cfg.BodyFetchTimeout, logger)

	generator := ai.NewOpenAIGenerator(cfg.OpenAIAPIKey, cfg.AIModel, cfg.AITimeout)
	analyzer := ai.NewAnalyzer(&ai.AnalyzerConfig{
		Leads:     leadRepo,
		Rules:     rulesRepo,
		States:    stateRepo,
		Actions:   actionRepo,
		Drafts:    draftRepo,
		Messages:  messageRepo,
		Generator: generator,
		Notifier:  hub,
		Logger:    logger,
	})

	resolver := inbound.NewResolver(&inbound.ResolverConfig{
		Leads:         leadRepo,
		Conversations: convRepo,
		Messages:      messageRepo,
		Unmatched:     unmatchedRepo,
		Mailer:        resendMailer,
		Analyzer:      analyzer,
		Notifier:      hub,
		Logger:        logger,
	})

	e, err := api.NewRouter(&api.RouterConfig{
		DB:             db,
		Hub:            hub,
		Mailer:         resendMailer,
		Resolver:       resolver,
		Analyzer:       analyzer,
		Logger:         logger,
		SecLog:         seclog.NewSecurityLogger(),
		WebhookSecret:  cfg.ResendWebhookSecret,
		EmailFrom:      cfg.EmailFrom,
		InboundDomain:  cfg.EmailInboundDomain,
		APIKey:         cfg.APIKey,
		AllowedOrigins: splitOrigins(cfg.AllowedOrigins),
		RateLimit:      int(cfg.RateLimitRequests),
		RateBurst:      cfg.RateLimitBurst,
		EnableAuth:     cfg.APIKey != "",
	})
	if err != nil {
		logger.Error("failed to build router", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// HTTP server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.APIPort)
		logger.Info("starting HTTP server", slog.String("addr", addr))
		if err := e.Start(addr); err != nil {
			logger.Info("HTTP server stopped", slog.String("reason", err.Error()))
		}
	}()

	// Optional SMTP ingestion listener (SMTP_PORT=0 disables it)
	var smtpSrv interface{ Close() error }
	if cfg.SMTPPort != 0 {
		backend := smtpserver.NewBackend(&smtpserver.BackendConfig{
			Resolver:      resolver,
			InboundDomain: cfg.EmailInboundDomain,
			Logger:        logger,
		})

		serverCfg := smtpserver.LoadServerConfigFromEnv()
		serverCfg.Addr = fmt.Sprintf(":%d", cfg.SMTPPort)
		srv := smtpserver.NewSecureServer(backend, serverCfg)
		smtpSrv = srv

		go func() {
			logger.Info("starting SMTP server", slog.String("addr", serverCfg.Addr))
			if err := srv.ListenAndServe(); err != nil {
				logger.Info("SMTP server stopped", slog.String("reason", err.Error()))
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		logger.Error("HTTP shutdown error", slog.String("error", err.Error()))
	}
	if smtpSrv != nil {
		if err := smtpSrv.Close(); err != nil {
			logger.Error("SMTP shutdown error", slog.String("error", err.Error()))
		}
	}

	logger.Info("server stopped")
}

// newLogger builds a JSON slog logger at the configured level
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

func splitOrigins(origins string) []string {
	if origins == "" {
		return nil
	}

	parts := strings.Split(origins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
