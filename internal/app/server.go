// internal/app/server.go
package app

import (
	"context"
	"fmt"
	"net/http"

	"marketlens-service/internal/config"
	"marketlens-service/internal/db"
	authHandler "marketlens-service/internal/handlers/auth"
	marketHandler "marketlens-service/internal/handlers/market"
	"marketlens-service/internal/middleware"
	"marketlens-service/internal/pkg/session"
	"marketlens-service/internal/pkg/token"
	"marketlens-service/internal/repository/postgres"
	authUsecase "marketlens-service/internal/service/auth"
	marketUsecase "marketlens-service/internal/service/market"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Server struct {
	cfg    config.AppConfig
	engine *gin.Engine
	logger *zap.Logger
	http   *http.Server
}

func NewServer() *Server {
	cfg := config.Load()
	engine := gin.New()
	return &Server{cfg: cfg, engine: engine}
}

func (s *Server) Start() error {
	ctx := context.Background()

	// ----- Logger -----
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer logger.Sync()
	s.logger = logger

	// ----- PostgreSQL -----
	if err := db.RunMigrations(s.cfg.DatabaseURL); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	pool, err := postgres.Connect(ctx, s.cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	// ----- Redis -----
	redisClient, err := db.NewRedisClient(db.RedisConfig{
		Addr:     s.cfg.RedisAddr,
		Password: s.cfg.RedisPass,
		DB:       s.cfg.RedisDB,
		PoolSize: s.cfg.RedisPoolSize,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	logger.Info("connected to Redis", zap.String("addr", s.cfg.RedisAddr))

	// ----- Token Manager -----
	tokenManager, err := token.NewManager(s.cfg.Token)
	if err != nil {
		return fmt.Errorf("failed to build token manager: %w", err)
	}

	// ----- Repositories -----
	principalRepo := postgres.NewPrincipalRepository(pool)
	sessionRepo := postgres.NewSessionRepository(pool)
	marketRepo := postgres.NewMarketRepository(pool)

	// ----- Session Cache -----
	sessionCache := session.NewCache(redisClient)

	// ----- Services (Usecases) -----
	authService := authUsecase.NewService(
		principalRepo,
		sessionRepo,
		sessionCache,
		tokenManager,
		logger,
	)
	marketService := marketUsecase.NewService(marketRepo, logger)

	// ----- Handlers -----
	authHandlerInst := authHandler.NewAuthHandler(authService, logger)
	marketHandlerInst := marketHandler.NewMarketHandler(marketService, logger)

	// ----- Middlewares -----
	authMiddleware := middleware.NewAuthMiddleware(authService)

	s.engine.Use(
		middleware.RecoveryMiddleware(logger),
		middleware.LoggingMiddleware(logger),
		middleware.MetricsMiddleware(),
		middleware.CORSMiddleware(),
	)

	// ----- Router -----
	handlers := &Handlers{
		AuthHandler:    authHandlerInst,
		MarketHandler:  marketHandlerInst,
		AuthMiddleware: authMiddleware,
	}
	SetupRouter(s.engine, logger, handlers)

	// ----- Start HTTP -----
	logger.Info("server running", zap.String("addr", s.cfg.HTTPAddr))
	s.http = &http.Server{
		Addr:    s.cfg.HTTPAddr,
		Handler: s.engine,
	}
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops accepting new requests and drains in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}
