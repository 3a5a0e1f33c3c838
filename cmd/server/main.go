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
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/quarterchat/match-server-go/internal/airtable"
	"github.com/quarterchat/match-server-go/internal/config"
	"github.com/quarterchat/match-server-go/internal/database"
	"github.com/quarterchat/match-server-go/internal/handler"
	"github.com/quarterchat/match-server-go/internal/jobs"
	"github.com/quarterchat/match-server-go/internal/middleware"
	"github.com/quarterchat/match-server-go/internal/redis"
	"github.com/quarterchat/match-server-go/internal/repository"
	"github.com/quarterchat/match-server-go/internal/service"
)

func main() {
	godotenv.Load()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

	isProduction := os.Getenv("APP_ENV") == "production"
	if err := cfg.Validate(isProduction); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	var matchRepo repository.MatchRepository
	var pgRepo *repository.PostgresMatchRepository

	if cfg.HasPostgres() {
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

		pgRepo = repository.NewPostgresMatchRepository(db.DB)
		matchRepo = pgRepo
	} else {
		client := airtable.NewClient(airtable.ClientConfig{
			Token:  cfg.AirtableToken,
			BaseID: cfg.AirtableBaseID,
			Table:  cfg.AirtableTable,
		})
		matchRepo = repository.NewAirtableMatchRepository(client)
		log.Info().Str("table", cfg.AirtableTable).Msg("using airtable record store")
	}

	streamService := service.NewStreamService(cfg.StreamKey, cfg.StreamSecret)
	if !streamService.Configured() {
		log.Warn().Msg("chat provider not configured: join works, session minting does not")
	}

	var channels service.ChannelEnsurer
	if streamService.Configured() {
		channels = streamService
	}
	matchService := service.NewMatchService(matchRepo, channels, cfg.AppOrigin)

	matchHandler := handler.NewMatchHandler(matchService)
	joinHandler := handler.NewJoinHandler(matchService)
	sessionHandler := handler.NewSessionHandler(matchService, streamService)

	bodyLimitMiddleware := middleware.NewBodyLimitMiddleware(0)
	securityHeadersMiddleware := middleware.NewSecurityHeadersMiddleware(isProduction)

	var stateRateLimit func(http.Handler) http.Handler
	if cfg.RedisURL != "" {
		redisClient, err := redis.NewClient(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisClient.Close()
		log.Info().Msg("redis connected")

		limiter := service.NewRateLimiter(redisClient.Client)
		stateRateLimit = middleware.NewIPRateLimitMiddleware(
			limiter, cfg.StateRateLimitPerMin, time.Minute, "state",
		).Handler
	}

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

	r.Get("/join/{matchID}/{key}", joinHandler.Join)
	r.Get("/join", joinHandler.JoinLegacy)
	r.Get("/chat", joinHandler.ChatLegacy)

	r.Route("/api", func(r chi.Router) {
		r.Post("/match", matchHandler.Create)
		r.Get("/join/{matchID}/{key}", joinHandler.JoinAPI)
		r.Get("/session/{matchID}/{key}", sessionHandler.CreateSession)

		r.Group(func(r chi.Router) {
			if stateRateLimit != nil {
				r.Use(stateRateLimit)
			}
			r.Get("/match/{matchID}/state", matchHandler.GetState)
			r.Post("/match/{matchID}/state", matchHandler.RecordSend)
			r.Get("/state", matchHandler.GetStateLegacy)
			r.Post("/state", matchHandler.RecordSendLegacy)
		})
	})

	if pgRepo != nil {
		purgeJob := jobs.NewPurgeJob(pgRepo, config.PurgeSweepInterval)
		purgeJob.Start()
		defer purgeJob.Stop()
	}

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: config.ServerWriteTimeout,
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
