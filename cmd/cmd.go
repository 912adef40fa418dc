package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"greekmatch-backend/internal/config"
	"greekmatch-backend/internal/feed"
	"greekmatch-backend/internal/handlers"
	"greekmatch-backend/internal/middleware"
	"greekmatch-backend/internal/repository"
	"greekmatch-backend/internal/repository/memory"
	"greekmatch-backend/internal/services"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const defaultConfigPath = "config.yaml"

// stores groups the backing collections of one store driver
type stores struct {
	users    services.UserStore
	swipes   services.SwipeStore
	matches  services.MatchStore
	messages services.MessageStore
	creds    services.CredentialStore
	purger   services.AccountPurger
	db       *pgxpool.Pool
	close    func()
}

func Run() {
	path := os.Getenv("GREEKMATCH_CONFIG")
	if path == "" {
		path = defaultConfigPath
	}

	// Load configuration
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Setup logger
	setupLogger(cfg.Log.Level)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := openStores(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Store.Driver).Msg("Failed to open store")
	}
	defer st.close()

	revoked, closeRevoked, err := openRevocations(ctx, cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer closeRevoked()

	// Live push
	wsHub := services.NewWSHub()
	feeds := feed.NewHub(st.messages.ListByMatch)

	var publisher services.Publisher = feeds
	if cfg.Feed.PGNotify {
		// every instance republishes from LISTEN, including the one that inserted
		publisher = nil
		go repository.NewMessageListener(st.db, feeds.Publish).Run(ctx)
	}

	var images handlers.ImageUploader
	if cfg.AWS.S3Bucket != "" {
		s3Client, err := services.NewS3Client(ctx, cfg.AWS)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create S3 client")
		}
		images = services.NewImageStorage(s3Client, cfg.AWS)
	} else {
		log.Warn().Msg("aws.s3_bucket not set, image uploads disabled")
	}

	// Initialize services
	affiliations := services.NewAffiliations(cfg.Affiliations)
	authService := services.NewAuthService(st.creds, st.users, revoked, affiliations, cfg.JWT.Secret, cfg.JWT.TTL)
	profileService := services.NewProfileService(st.users, affiliations)
	candidateService := services.NewCandidateService(st.users, st.swipes)
	swipeService := services.NewSwipeService(st.swipes, st.matches, wsHub)
	matchService := services.NewMatchService(st.matches, st.messages, st.users, feeds, wsHub)
	chatService := services.NewChatService(st.messages, publisher)
	accountService := services.NewAccountService(st.users, st.swipes, st.matches, matchService, authService)
	if cfg.Account.AtomicDelete {
		if st.purger == nil {
			log.Warn().Str("driver", cfg.Store.Driver).Msg("account.atomic_delete needs the postgres driver, using step-wise deletion")
		} else {
			accountService.WithPurger(st.purger)
		}
	}

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	profileHandler := handlers.NewProfileHandler(profileService, accountService, images)
	swipeHandler := handlers.NewSwipeHandler(candidateService, swipeService)
	matchHandler := handlers.NewMatchHandler(matchService, chatService)
	wsHandler := handlers.NewWebSocketHandler(wsHub, feeds, authService, matchService, chatService)

	limiter := middleware.NewLimiterStore(cfg.RateLimit.PerMinute, cfg.RateLimit.Burst, time.Minute)
	defer limiter.Stop()

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins: cfg.Server.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}).Handler)

	// Routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(limiter))
			r.Post("/auth/register", authHandler.Register)
			r.Post("/auth/login", authHandler.Login)
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(authService))
			r.Post("/auth/logout", authHandler.Logout)

			r.Get("/me", profileHandler.GetProfile)
			r.Patch("/me", profileHandler.UpdateProfile)
			r.Delete("/me", profileHandler.DeleteAccount)
			r.Post("/me/images/upload-url", profileHandler.UploadURL)
			r.Post("/me/images", profileHandler.UploadImage)
			r.Post("/me/images/move", profileHandler.MoveImage)
			r.Put("/me/images/{index}", profileHandler.SetImage)
			r.Delete("/me/images/{index}", profileHandler.RemoveImage)

			r.Get("/candidates", swipeHandler.Candidates)
			r.Post("/swipes", swipeHandler.Swipe)

			r.Get("/matches", matchHandler.Inbox)
			r.Delete("/matches/{match_id}", matchHandler.Unmatch)
			r.Get("/matches/{match_id}/messages", matchHandler.Messages)
			r.Post("/matches/{match_id}/messages", matchHandler.SendMessage)
		})
	})

	// WebSocket routes
	r.Get("/ws", wsHandler.HandleNotifications)
	r.Get("/ws/matches/{match_id}", wsHandler.HandleFeed)

	// Create HTTP server. No WriteTimeout: it would cut off hijacked WebSockets.
	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           r,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("host", cfg.Server.Host).
			Int("port", cfg.Server.Port).
			Str("store", cfg.Store.Driver).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	cancel()

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	if cfg.Store.Driver == "memory" {
		log.Warn().Msg("Using in-memory store, data is lost on restart")
		db := memory.New()
		return &stores{
			users:    memory.NewUserRepository(db),
			swipes:   memory.NewSwipeRepository(db),
			matches:  memory.NewMatchRepository(db),
			messages: memory.NewMessageRepository(db),
			creds:    memory.NewCredentialRepository(db),
			close:    func() {},
		}, nil
	}

	// Connect to database
	db, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test database connection
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	log.Info().Msg("Database connection established")

	if cfg.Database.Migrate {
		if err := repository.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
		log.Info().Msg("Database schema applied")
	}

	return &stores{
		users:    repository.NewUserRepository(db),
		swipes:   repository.NewSwipeRepository(db),
		matches:  repository.NewMatchRepository(db),
		messages: repository.NewMessageRepository(db, cfg.Feed.PGNotify),
		creds:    repository.NewCredentialRepository(db),
		purger:   repository.NewAccountRepository(db),
		db:       db,
		close:    db.Close,
	}, nil
}

func openRevocations(ctx context.Context, cfg config.RedisConfig) (services.RevocationStore, func(), error) {
	if cfg.Addr == "" {
		log.Warn().Msg("redis.addr not set, signed-out tokens are tracked in process memory")
		return memory.NewRevocationRepository(), func() {}, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, nil, err
	}
	log.Info().Str("addr", cfg.Addr).Msg("Redis connection established")

	return repository.NewRevocationRepository(rdb), func() { rdb.Close() }, nil
}

// setupLogger configures zerolog logger
func setupLogger(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}
