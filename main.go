package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"civiceye/config"
	"civiceye/database"
	"civiceye/handlers"
	"civiceye/metrics"
	"civiceye/middleware"
	"civiceye/rabbitmq"
	"civiceye/scorer"
	"civiceye/verification"
	"civiceye/version"

	"github.com/apex/log"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// Load .env if present, then configuration
	if err := godotenv.Load(); err == nil {
		log.Info("Loaded configuration from .env")
	}
	cfg := config.Load()

	// Create database connection
	db, err := database.NewDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to create database connection: %v", err)
	}
	defer db.Close()

	// Ensure schema
	ctx := context.Background()
	if err := db.EnsureReportsTable(ctx); err != nil {
		log.Fatalf("Failed to ensure reports table: %v", err)
	}
	if err := db.EnsureStatusAuditTable(ctx); err != nil {
		log.Fatalf("Failed to ensure status_audit table: %v", err)
	}
	if err := db.EnsureAuthoritiesTable(ctx); err != nil {
		log.Fatalf("Failed to ensure authorities table: %v", err)
	}

	// Register Prometheus metrics
	metrics.Register()

	// Initialize RabbitMQ publisher; the service keeps working without it
	var publisher *rabbitmq.Publisher
	if p, err := rabbitmq.NewPublisher(cfg.GetAMQPURL(), cfg.RabbitMQExchange, cfg.RabbitMQSubmittedRoutingKey); err != nil {
		log.Warnf("Failed to initialize RabbitMQ publisher, continuing without events: %v", err)
	} else {
		publisher = p
		log.Infof("RabbitMQ publisher initialized: exchange=%s", cfg.RabbitMQExchange)
	}

	// Trust scorer client; an empty URL leaves verification UNAVAILABLE
	scorerClient := scorer.NewClient(cfg.ScorerURL, cfg.ScorerTimeout)
	if cfg.ScorerURL == "" {
		log.Warn("TRUST_SCORER_URL not set, verification requests will resolve to UNAVAILABLE")
	}

	// Verification orchestrator
	var orchestratorPublisher verification.Publisher
	if publisher != nil {
		orchestratorPublisher = publisher
	}
	orchestrator := verification.NewOrchestrator(db, scorerClient, cfg.ScorerTimeout, orchestratorPublisher, cfg.RabbitMQVerifiedRoutingKey)

	// Auth service and handlers
	auth := database.NewAuthService(db, cfg.JWTSecret, cfg.TokenExpiry)
	var handlersPublisher handlers.Publisher
	if publisher != nil {
		handlersPublisher = publisher
	}
	h := handlers.NewHandlers(db, auth, orchestrator, handlersPublisher, cfg)

	router := setupRouter(cfg, h, auth)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Infof("Starting HTTP server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	if publisher != nil {
		if err := publisher.Close(); err != nil {
			log.Errorf("Failed to close RabbitMQ publisher: %v", err)
		}
	}

	log.Info("Server exited")
}

func setupRouter(cfg *config.Config, h *handlers.Handlers, auth *database.AuthService) *gin.Engine {
	router := gin.Default()
	router.SetTrustedProxies(cfg.TrustedProxies)

	router.Use(cors.New(cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		AllowOrigins:     []string{"*"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	router.Use(middleware.SecurityHeaders())

	api := router.Group("/api")
	{
		// Public: citizen submission and tracking
		api.POST("/reports", h.SubmitReport)
		api.GET("/reports/:id", h.GetReport)
		api.GET("/reports/:id/image", h.GetReportImage)

		// Authority authentication
		api.POST("/auth/login", h.Login)
		api.POST("/auth/register", h.Register)

		// Protected: dashboard and moderation
		protected := api.Group("")
		protected.Use(middleware.AuthMiddleware(auth))
		{
			protected.GET("/reports", h.ListReports)
			protected.POST("/reports/:id/verify", h.VerifyReport)
			protected.PUT("/reports/:id/status", h.UpdateStatus)
			protected.GET("/reports/:id/audit", h.GetStatusAudit)
			protected.DELETE("/reports/:id", h.DeleteReport)
		}
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "civiceye",
			"time":    time.Now().UTC().Format(time.RFC3339),
		})
	})
	router.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, version.Get("civiceye"))
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}
