package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"media-relay/config"
	"media-relay/internal/handler"
	"media-relay/internal/middleware"
	"media-relay/internal/services"
	"media-relay/internal/transport/httpdto"
	"media-relay/internal/websocket"
	"media-relay/pkg/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	config     *config.Config
	logger     *logger.Logger
}

var (
	ReleaseMode = "release"
	DebugMode   = "debug"
	TestMode    = "test"
)

type Handlers struct {
	Auth   *handler.AuthHandler
	Health *handler.HealthHandler
	Ingest *handler.IngestHandler
	Queue  *handler.QueueHandler
	Admin  *handler.AdminHandler
	WS     *websocket.Handler
}

func New(cfg *config.Config, l *logger.Logger) *Server {
	if cfg.AppMode == ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	} else if cfg.AppMode == TestMode {
		gin.SetMode(gin.TestMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	return &Server{
		httpServer: &http.Server{
			Addr:    fmt.Sprintf(":%s", cfg.AppPort),
			Handler: engine,
		},
		engine: engine,
		config: cfg,
		logger: l,
	}
}

func (s *Server) SetupRoutes(handlers *Handlers, authService *services.AuthService) {
	s.engine.Use(middleware.RequestIDMiddleware())
	s.engine.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Authorization", "Content-Type"},
		ExposeHeaders:   []string{"Content-Length", "X-Request-Id"},
		MaxAge:          12 * time.Hour,
	}))
	s.engine.Use(middleware.LoggingMiddleware(s.logger))
	s.engine.Use(middleware.ErrorHandler(s.logger))

	s.engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"message": "pong"}))
	})

	s.engine.GET("/health", handlers.Health.Health)

	ingest := s.engine.Group("/v1/ingest")
	ingest.Use(middleware.GatewayAuthMiddleware(s.config.GatewayToken))
	{
		ingest.POST("/media", handlers.Ingest.Ingest)
	}

	loginLimiter := middleware.NewLoginRateLimiter(s.config.FloodPerMin, s.config.FloodBurst)
	auth := s.engine.Group("/v1/auth")
	{
		auth.POST("/login", middleware.LoginRateLimitMiddleware(loginLimiter), handlers.Auth.Login)
	}

	queue := s.engine.Group("/v1/queue")
	queue.Use(middleware.AuthMiddleware(authService))
	{
		queue.GET("/status", handlers.Queue.Status)
		queue.GET("/stats", handlers.Queue.Stats)
		queue.GET("/users/:id", handlers.Queue.UserStatus)
	}

	admin := s.engine.Group("/v1/admin")
	admin.Use(middleware.AuthMiddleware(authService))
	{
		admin.GET("/users/:id/role", handlers.Admin.GetRole)
		admin.PUT("/users/:id/role", handlers.Admin.SetRole)
		admin.POST("/users/:id/suspend", handlers.Admin.Suspend)
		admin.DELETE("/users/:id/suspend", handlers.Admin.Unsuspend)
		admin.GET("/suspensions", handlers.Admin.Suspensions)
		admin.POST("/users/:id/warn", handlers.Admin.Warn)
		admin.GET("/users/:id/warnings", handlers.Admin.Warnings)
		admin.GET("/audit", handlers.Admin.Audit)
	}

	// websocket auth rides in the query string, the handler checks it
	s.engine.GET("/v1/ws", handlers.WS.Connect)
}

// Engine exposes the router for tests.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) Start() error {
	go func() {
		if s.logger != nil {
			s.logger.Infof("Starting the server on port %s...", s.config.AppPort)
		}
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if s.logger != nil {
				s.logger.Errorf("Error in starting the server: %s", err)
			}
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	if s.logger != nil {
		s.logger.Infof("Server is running on :%s", s.config.AppPort)
	}

	<-quit

	if s.logger != nil {
		s.logger.Infof("Quitting signal received.. Shutting down after 5 seconds")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		if s.logger != nil {
			s.logger.Infof("Error in the graceful shutdown of the server: %s", err)
		}
		return err
	}

	if s.logger != nil {
		s.logger.Infof("Server stopped gracefully")
	}

	return nil
}
