package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/tradewatch/internal/config"
	"github.com/tradewatch/internal/handler"
	"github.com/tradewatch/internal/middleware"
	"github.com/tradewatch/internal/models"
	"github.com/tradewatch/internal/repository"
	"github.com/tradewatch/internal/service"
	"github.com/tradewatch/internal/upstream"
	"github.com/tradewatch/internal/worker"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Build info (injected at build time via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	// Load configuration
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize file logging
	logDir := cfg.Log.Dir
	if logDir == "" {
		logDir = "logs"
	}
	if err := middleware.InitLogger(logDir); err != nil {
		log.Printf("Warning: failed to init file logger: %v", err)
	}

	// Set Gin mode
	gin.SetMode(cfg.Server.Mode)

	// Initialize database
	db, err := initDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Initialize Redis
	rdb := initRedis(cfg)

	// Auto migrate database
	if err := autoMigrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	// Initialize repositories
	snapshotRepo := repository.NewSnapshotRepository(db)
	fillRepo := repository.NewFillRepository(db)
	closedTradeRepo := repository.NewClosedTradeRepository(db)
	signalRepo := repository.NewSignalRepository(db)
	tradeRepo := repository.NewLogicalTradeRepository(db)

	// Initialize upstream snapshot client
	botClient := upstream.NewClient(
		cfg.Upstream.BotURL,
		time.Duration(cfg.Upstream.TimeoutSeconds)*time.Second,
	)

	// Initialize services
	authService := service.NewAuthService(cfg.Auth.DashboardPassword, cfg.JWT)
	snapshotService := service.NewSnapshotService(botClient, snapshotRepo, fillRepo)
	fillService := service.NewFillService(fillRepo, closedTradeRepo)
	signalService := service.NewSignalService(signalRepo, tradeRepo)
	statsService := service.NewStatsService(tradeRepo, fillRepo, closedTradeRepo, signalRepo, snapshotRepo, rdb)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(authService)
	botHandler := handler.NewBotHandler(snapshotService, fillService, statsService, cfg.Auth.BotAPIToken)
	webhookHandler := handler.NewWebhookHandler(signalService, statsService, cfg.Auth.WebhookToken, cfg.Auth.WebhookSecret)
	dashboardHandler := handler.NewDashboardHandler(statsService)

	// Create Gin router
	router := gin.New()

	// Add request logging and panic recovery middleware
	router.Use(middleware.RequestLoggerMiddleware())
	router.Use(middleware.RecoveryMiddleware())

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		var lastIngest any
		if snap, err := snapshotRepo.GetLatest(); err == nil {
			lastIngest = snap.TS
		}
		c.JSON(http.StatusOK, gin.H{
			"status":      "ok",
			"version":     Version,
			"commit":      Commit,
			"build_time":  BuildTime,
			"time":        time.Now().Unix(),
			"last_ingest": lastIngest,
		})
	})

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Auth routes (public)
		authHandler.RegisterRoutes(v1)

		// Bot telemetry routes (token-guarded)
		botHandler.RegisterRoutes(v1)

		// Webhook routes (token-guarded)
		webhookHandler.RegisterRoutes(v1)

		// Dashboard routes (JWT-protected)
		dashboardHandler.RegisterRoutes(v1, middleware.JWTAuth(authService))
	}

	// Start the internal snapshot poller when configured
	var pollWorker *worker.PollWorker
	if cfg.Poller.IntervalSeconds > 0 && cfg.Upstream.BotURL != "" {
		pollWorker = worker.NewPollWorker(
			snapshotService,
			statsService,
			time.Duration(cfg.Poller.IntervalSeconds)*time.Second,
		)
		go pollWorker.Start()
	}

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Starting server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Stop poll worker
	if pollWorker != nil {
		pollWorker.Stop()
	}

	// Graceful shutdown with 10 second timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	// Close Redis connection
	if err := rdb.Close(); err != nil {
		log.Printf("Error closing Redis connection: %v", err)
	}

	log.Println("Server exited properly")
}

func initDatabase(cfg *config.Config) (*gorm.DB, error) {
	gormLogger := logger.Default.LogMode(logger.Info)
	if cfg.Server.Mode == "release" {
		gormLogger = logger.Default.LogMode(logger.Warn)
	}

	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, err
	}

	// Configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}

func initRedis(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

func autoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Snapshot{},
		&models.Fill{},
		&models.ClosedTrade{},
		&models.Signal{},
		&models.LogicalTrade{},
	)
}
