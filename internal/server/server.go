package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"oracle/internal/ai"
	"oracle/internal/config"
	"oracle/internal/handler"
	authHandler "oracle/internal/handler/auth"
	"oracle/internal/history"
	"oracle/internal/pkg/cache"
	"oracle/internal/pkg/jwt"
	"oracle/internal/pkg/mongodb"
	authRepo "oracle/internal/repository/auth"
	"oracle/internal/server/middleware"
	"oracle/internal/service"
)

// Server wires the HTTP engine to the service layer.
type Server struct {
	cfg    *config.Config
	engine *gin.Engine
	mongo  *mongodb.Client
	redis  *cache.RedisCache
}

// New builds the server: connections, services, routes.
func New(ctx context.Context, cfg *config.Config) (*Server, error) {
	switch cfg.Server.Mode {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	// MongoDB holds accounts and refresh tokens; the service cannot run
	// without it.
	mongoClient, err := mongodb.New(&cfg.Mongo)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	log.Info().Str("database", cfg.Mongo.Database).Msg("connected to MongoDB")

	if err := mongodb.EnsureIndexes(mongoClient.Database()); err != nil {
		log.Warn().Err(err).Msg("failed to ensure indexes")
	}

	// Redis is optional; without it history simply starts cold after a
	// restart.
	var redisCache *cache.RedisCache
	if cfg.Redis.Addr != "" {
		rc, err := cache.NewRedisCache(&cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Msg("failed to connect to Redis, continuing without history cache")
		} else {
			redisCache = rc
			log.Info().Str("addr", cfg.Redis.Addr).Msg("connected to Redis")
		}
	}

	backend, err := ai.NewClient(ctx, &cfg.AI)
	if err != nil {
		return nil, fmt.Errorf("failed to create generation backend: %w", err)
	}
	log.Info().Str("provider", cfg.AI.Provider).Str("model", cfg.AI.Model).Msg("initialized generation backend")

	srv := &Server{
		cfg:    cfg,
		engine: engine,
		mongo:  mongoClient,
		redis:  redisCache,
	}

	srv.setupRoutes(backend)

	return srv, nil
}

func (s *Server) setupRoutes(backend ai.Invoker) {
	// Global middleware
	s.engine.Use(middleware.Recovery())
	s.engine.Use(middleware.RequestID())
	s.engine.Use(middleware.Logger())
	s.engine.Use(middleware.CORS())

	// Health checks
	healthHandler := handler.NewHealthHandler()
	s.engine.GET("/health", healthHandler.Health)
	s.engine.GET("/ready", healthHandler.Ready)

	// Swagger docs
	s.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	userRepo := authRepo.NewUserRepo(s.mongo.Database())
	refreshTokenRepo := authRepo.NewRefreshTokenRepo(s.mongo.Database())

	jwtSecret := s.cfg.Auth.JWTSecret
	if jwtSecret == "" {
		jwtSecret = "default-secret-key-change-in-production"
		log.Warn().Msg("JWT secret not configured, using default (NOT SECURE for production)")
	}

	accessTokenExpiry := s.cfg.Auth.AccessTokenExpiry
	if accessTokenExpiry == 0 {
		accessTokenExpiry = 24 * time.Hour
	}

	refreshTokenExpiry := s.cfg.Auth.RefreshTokenExpiry
	if refreshTokenExpiry == 0 {
		refreshTokenExpiry = 7 * 24 * time.Hour
	}

	authSvc := service.NewAuthService(
		userRepo,
		refreshTokenRepo,
		jwtSecret,
		accessTokenExpiry,
		refreshTokenExpiry,
	)
	authHdl := authHandler.NewHandler(authSvc)

	ledger := service.NewLedger(userRepo, s.cfg.Quota.FreeMonthlyLimit)
	pipeline := ai.NewPipeline(backend)
	var historyCache history.Cache
	if s.redis != nil {
		historyCache = s.redis
	}
	historyStore := history.NewStore(s.cfg.History.MaxTurns, historyCache, s.cfg.History.CacheTTL)
	chatSvc := service.NewChatService(ledger, pipeline, historyStore)
	chatHdl := handler.NewChatHandler(chatSvc)

	jwtUtil := jwt.NewJWT(jwtSecret, accessTokenExpiry)

	// API v1
	v1 := s.engine.Group("/api/v1")
	{
		// Public auth endpoints
		v1.POST("/auth/register", authHdl.Register)
		v1.POST("/auth/login", authHdl.Login)
		v1.POST("/auth/refresh", authHdl.Refresh)

		// Authenticated endpoints
		authed := v1.Group("")
		authed.Use(middleware.Auth(jwtUtil))
		{
			authed.POST("/auth/logout", authHdl.Logout)
			authed.GET("/auth/me", authHdl.GetMe)
			authed.POST("/chat", chatHdl.Chat)
		}
	}
}

// Run starts the HTTP server and blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.engine,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down server...")

		if err := s.mongo.Close(context.Background()); err != nil {
			log.Error().Err(err).Msg("failed to close MongoDB connection")
		}
		if s.redis != nil {
			if err := s.redis.Close(); err != nil {
				log.Error().Err(err).Msg("failed to close Redis connection")
			}
		}

		return srv.Shutdown(context.Background())
	case err := <-errCh:
		return err
	}
}

// Engine exposes the gin engine for tests.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}
