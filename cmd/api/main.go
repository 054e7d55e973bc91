package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/galleycloud/ticket-chat-api/internal/config"
	"github.com/galleycloud/ticket-chat-api/internal/domain/attachment"
	"github.com/galleycloud/ticket-chat-api/internal/domain/chat"
	"github.com/galleycloud/ticket-chat-api/internal/domain/directory"
	"github.com/galleycloud/ticket-chat-api/internal/domain/presence"
	"github.com/galleycloud/ticket-chat-api/internal/domain/room"
	"github.com/galleycloud/ticket-chat-api/internal/domain/scheduler"
	"github.com/galleycloud/ticket-chat-api/internal/domain/ticket"
	"github.com/galleycloud/ticket-chat-api/internal/middleware"
	"github.com/galleycloud/ticket-chat-api/internal/pkg/database"
	"github.com/galleycloud/ticket-chat-api/internal/pkg/email"
	"github.com/galleycloud/ticket-chat-api/internal/pkg/jobs"
	"github.com/galleycloud/ticket-chat-api/internal/pkg/jwt"
	"github.com/galleycloud/ticket-chat-api/internal/pkg/logger"
	pkgresponse "github.com/galleycloud/ticket-chat-api/internal/pkg/response"
	"github.com/galleycloud/ticket-chat-api/internal/pkg/push"
	"github.com/galleycloud/ticket-chat-api/internal/pkg/storage"
)

func main() {
	cfg := config.Load()

	if err := logger.Init(logger.Config{
		Level:       cfg.LogLevel,
		Environment: cfg.Env,
	}); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize logger")
	}

	// ---------- Infrastructure ----------
	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	redisClient, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, running single-instance")
		redisClient = nil
	}
	if redisClient != nil {
		defer database.CloseRedis(redisClient)
	}

	jwtService := jwt.NewService(cfg.JWTSecret, cfg.JWTAccessTTL)

	emailService := email.NewService(email.BrevoConfig{
		APIKey:    cfg.BrevoAPIKey,
		FromEmail: cfg.EmailFromAddr,
		FromName:  cfg.EmailFromName,
	})
	defer emailService.Close()

	var pushSender scheduler.PushSender
	if cfg.FCMServerKey != "" {
		pushSender = push.NewFCMClient(push.FCMConfig{
			ServerKey: cfg.FCMServerKey,
			ProjectID: cfg.FCMProjectID,
		})
	}

	var objectStore storage.ObjectStorage
	if cfg.S3AccessKeyID != "" {
		s3Store, err := storage.NewS3Storage(storage.Config{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKeyID,
			AccessKeySecret: cfg.S3AccessKeySecret,
			Bucket:          cfg.S3BucketName,
			PublicURL:       cfg.S3PublicURL,
		})
		if err != nil {
			log.Warn().Err(err).Msg("Object storage unavailable, file attachments disabled")
		} else {
			objectStore = s3Store
		}
	}

	// ---------- Repositories ----------
	directoryRepo := directory.NewRepository(db)
	ticketRepo := ticket.NewRepository(db)
	roomRepo := room.NewRepository(db)
	chatRepo := chat.NewRepository(db)
	presenceRepo := presence.NewRepository(db)
	obligationRepo := scheduler.NewRepository(db)
	attachmentRepo := attachment.NewRepository(db)

	// ---------- Deferred jobs ----------
	jobStore := jobs.NewStore(db)
	jobRunner := jobs.NewRunner(jobStore, cfg.JobPollInterval)

	runnerCtx, stopRunner := context.WithCancel(context.Background())
	defer stopRunner()
	go jobRunner.Start(runnerCtx)

	// ---------- Services ----------
	presenceService := presence.NewService(presenceRepo, redisClient)

	hub := chat.NewHub(redisClient, presenceService)
	go hub.Run()
	defer hub.Shutdown()

	schedulerService := scheduler.NewService(
		obligationRepo, jobRunner, directoryRepo, emailService, pushSender,
		cfg.UnreadNotifyDelay, cfg.ChatBaseURL)

	ticketService := ticket.NewService(ticketRepo, directoryRepo, emailService, cfg.ChatBaseURL)
	roomService := room.NewService(roomRepo, ticketService)

	resolver := chat.NewResolver(roomRepo, ticketRepo, directoryRepo, presenceService)
	chatService := chat.NewService(chatRepo, roomRepo, resolver, hub, schedulerService, presenceService)

	attachmentService := attachment.NewService(attachmentRepo, objectStore)

	// ---------- Handlers ----------
	ticketHandler := ticket.NewHandler(ticketService)
	roomHandler := room.NewHandler(roomService)
	chatHandler := chat.NewHandler(chatService, hub, redisClient, cfg.AllowedOrigins)
	directoryHandler := directory.NewHandler(directoryRepo)
	attachmentHandler := attachment.NewHandler(attachmentService)
	presenceHandler := presence.NewHandler(presenceService)

	authMiddleware := middleware.Auth(jwtService)

	// ---------- Router ----------
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recover)
	r.Use(middleware.CORSHandler(cfg.AllowedOrigins))

	// WebSocket endpoint (before Compress)
	r.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token != "" {
			r.Header.Set("Authorization", "Bearer "+token)
		}
		authMiddleware(http.HandlerFunc(chatHandler.WebSocket)).ServeHTTP(w, r)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		pkgresponse.OK(w, map[string]interface{}{
			"status":                "ok",
			"version":               "1.0.0",
			"websocket_connections": hub.GetConnectionCount(),
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(chimw.Compress(5))

		r.Mount("/tickets", ticketHandler.Routes(authMiddleware))
		r.Mount("/rooms", roomHandler.Routes(authMiddleware))
		r.Mount("/chat/rooms", chatHandler.Routes(authMiddleware))
		r.Mount("/notifications", directoryHandler.Routes(authMiddleware))
		r.Mount("/attachments", attachmentHandler.Routes(authMiddleware))
		r.Mount("/presence", presenceHandler.Routes(authMiddleware))
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited properly")
}
