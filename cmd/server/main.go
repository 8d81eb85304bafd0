package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/openclaw/agent-console-go/internal/config"
	"github.com/openclaw/agent-console-go/internal/database"
	"github.com/openclaw/agent-console-go/internal/gateway"
	"github.com/openclaw/agent-console-go/internal/handler"
	"github.com/openclaw/agent-console-go/internal/jobs"
	"github.com/openclaw/agent-console-go/internal/middleware"
	"github.com/openclaw/agent-console-go/internal/redis"
	"github.com/openclaw/agent-console-go/internal/repository"
	"github.com/openclaw/agent-console-go/internal/service"
	"github.com/openclaw/agent-console-go/internal/token"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

	isProduction := os.Getenv("FLY_APP_NAME") != ""
	if err := cfg.Validate(isProduction); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
	if err := db.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}
	cancel()
	log.Info().Msg("database connected")

	redisClient, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected")

	userRepo := repository.NewUserRepository(db.DB)
	agentRepo := repository.NewAgentRepository(db.DB)
	bindingRepo := repository.NewBindingRepository(db.DB)
	claimRepo := repository.NewClaimRepository(db.DB)

	var gatewayClient service.GatewayAPI
	if cfg.GatewayConfigured() {
		client, err := gateway.NewClient(cfg.GatewayURL, cfg.GatewayToken)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create gateway client")
		}
		gatewayClient = client
		log.Info().Str("url", cfg.GatewayURL).Msg("gateway client configured")
	} else {
		log.Warn().Msg("gateway not configured: provisioning demo placeholder agents")
	}

	issuer := token.NewIssuer(cfg.AuthSecret)
	agentService := service.NewAgentService(agentRepo, gatewayClient)
	claimService := service.NewClaimService(claimRepo, agentRepo, bindingRepo, gatewayClient, cfg.TelegramBotUsername)

	authMiddleware := middleware.NewAuthMiddleware(userRepo)
	rateLimitMiddleware := middleware.NewRedisRateLimitMiddleware(redisClient.Client, config.DefaultRateLimitPerMin)
	webhookSecretMiddleware := middleware.NewWebhookSecretMiddleware(cfg.TelegramWebhookSecret)
	bodyLimitMiddleware := middleware.NewBodyLimitMiddleware(0)
	securityHeadersMiddleware := middleware.NewSecurityHeadersMiddleware(isProduction)

	chatTokenHandler := handler.NewChatTokenHandler(agentService, issuer, cfg.GatewayConfigured())
	claimHandler := handler.NewClaimHandler(claimService)
	webhookHandler := handler.NewWebhookHandler(claimService)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))
	r.Use(bodyLimitMiddleware.Handler)
	r.Use(securityHeadersMiddleware.Handler)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"status":    "ok",
			"timestamp": time.Now().UnixMilli(),
		})
	})

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Handler)
			r.Use(rateLimitMiddleware.Handler)
			r.Get("/chat/token", chatTokenHandler.Issue)
			r.Post("/agents/{agentID}/telegram/claim", claimHandler.Create)
		})

		r.Group(func(r chi.Router) {
			r.Use(webhookSecretMiddleware.Handler)
			r.Post("/telegram/webhook", webhookHandler.Telegram)
		})
	})

	cleanupJob := jobs.NewCleanupJob(claimRepo, userRepo, config.CleanupJobInterval)
	cleanupJob.Start()
	defer cleanupJob.Stop()

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: 0,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
