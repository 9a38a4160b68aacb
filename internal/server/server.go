// Package server
//
// @title DiaTrack API
// @version 1.0
// @description Diabetes risk assessment service API
// @host localhost:8080
// @BasePath /
package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/diatrack-dev/diatrack/internal/assert"
	"github.com/diatrack-dev/diatrack/internal/auth"
	"github.com/diatrack-dev/diatrack/internal/config"
	"github.com/diatrack-dev/diatrack/internal/inference"
	"github.com/diatrack-dev/diatrack/internal/models"
	"github.com/diatrack-dev/diatrack/internal/predictions"
	"github.com/diatrack-dev/diatrack/internal/rag"
	"github.com/diatrack-dev/diatrack/internal/reports"
	"github.com/diatrack-dev/diatrack/internal/risk"
	"github.com/diatrack-dev/diatrack/internal/session"
	"github.com/diatrack-dev/diatrack/internal/sysinfo"
)

// SessionStore is the slice of the session layer the server depends
// on; *session.Store implements it over Redis.
type SessionStore interface {
	Create(ctx context.Context, userID, username, role string, ttl time.Duration) (*session.Record, error)
	Get(ctx context.Context, userID, sessionID string) (*session.Record, error)
	Invalidate(ctx context.Context, userID, sessionID string) error
	InvalidateAllForUser(ctx context.Context, userID string) error
}

// TaskEnqueuer is the slice of the task queue the handlers depend on;
// *asynq.Client implements it.
type TaskEnqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

// Server represents the HTTP server
type Server struct {
	router             *gin.Engine
	db                 *gorm.DB
	config             *config.Config
	logger             zerolog.Logger
	validator          *validator.Validate
	asynqClient        TaskEnqueuer
	sessions           SessionStore
	predictionsService *predictions.Service
	reportsService     *reports.Service
	inferenceClient    *inference.Client
	ragClient          *rag.Client
	version            string
	startedAt          time.Time
}

// newValidator builds the request validator with the custom username rule.
func newValidator() *validator.Validate {
	validate := validator.New()
	validate.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		// Allow alphanumeric, hyphens, underscores and dots only
		value := fl.Field().String()
		if value == "" {
			return false
		}
		for _, char := range value {
			if !((char >= 'a' && char <= 'z') ||
				(char >= 'A' && char <= 'Z') ||
				(char >= '0' && char <= '9') ||
				char == '-' ||
				char == '_' ||
				char == '.') {
				return false
			}
		}
		return true
	})
	return validate
}

// New creates a new server instance
func New(cfg *config.Config, zlog zerolog.Logger, version string) (*Server, error) {
	// Initialize database with production settings
	db, err := initDatabase(cfg, zlog)
	if err != nil {
		return nil, err
	}

	// Run database migrations
	if err := models.AutoMigrate(db); err != nil {
		return nil, err
	}

	// Load or create the AppConfig singleton holding the session secret.
	// Registration is open, so first run needs no setup endpoint - the
	// secret is generated and persisted here.
	var appConfig models.AppConfig
	if err := db.First(&appConfig).Error; err != nil {
		if err != gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("failed to load app config: %w", err)
		}
		secretBytes := make([]byte, 32)
		if _, err := rand.Read(secretBytes); err != nil {
			return nil, fmt.Errorf("failed to generate session secret: %w", err)
		}
		appConfig = models.AppConfig{
			SessionSecret: hex.EncodeToString(secretBytes),
			StatsSchedule: "0 2 * * *",
		}
		if err := db.Create(&appConfig).Error; err != nil {
			return nil, fmt.Errorf("failed to create app config: %w", err)
		}
		zlog.Info().Msg("Generated session secret on first run")
	}
	assert.Length(appConfig.SessionSecret, 64)
	auth.InitializeSigning(appConfig.SessionSecret)

	validate := newValidator()

	// Redis backs both the session store and the task queue
	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Address,
	})
	sessions := session.NewStore(redisClient, zlog)

	// Initialize Asynq client for enqueueing tasks
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr: cfg.Redis.Address,
	})

	// Risk banding thresholds (presentation policy for model output)
	thresholds, err := risk.LoadThresholds(cfg.RiskThresholdsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load risk thresholds: %w", err)
	}

	// External collaborators
	inferenceClient := inference.New(cfg.Services.InferenceURL)
	ragClient := rag.New(cfg.Services.RAGURL)

	// Domain services
	predictionsService := predictions.NewService(db, inferenceClient, thresholds, zlog)
	reportsService := reports.NewService(db, zlog)

	// Create server
	server := &Server{
		db:                 db,
		config:             cfg,
		logger:             zlog,
		validator:          validate,
		asynqClient:        asynqClient,
		sessions:           sessions,
		predictionsService: predictionsService,
		reportsService:     reportsService,
		inferenceClient:    inferenceClient,
		ragClient:          ragClient,
		version:            version,
		startedAt:          time.Now(),
	}

	// Setup router
	server.setupRouter()

	return server, nil
}

// initDatabase initializes the database connection with production settings
func initDatabase(cfg *config.Config, zlog zerolog.Logger) (*gorm.DB, error) {
	const (
		maxOpenConns      = 8         // Reduced for SQLite efficiency
		maxIdleConns      = 4         // Reduced proportionally
		connMaxLifetime   = 300       // 5 minutes
		busyTimeout       = 5000      // 5 seconds
		cacheSize         = 10000     // 10MB
		mmapSize          = 134217728 // 128MB
		walAutocheckpoint = 1000      // WAL auto-checkpoint pages
	)

	// Open database connection
	db, err := gorm.Open(sqlite.Open(cfg.Database.URL), &gorm.Config{
		Logger: logger.New(
			log.New(os.Stdout, "\r\n", log.LstdFlags),
			logger.Config{
				LogLevel:                  logger.Error,
				IgnoreRecordNotFoundError: true,
				SlowThreshold:             200 * time.Millisecond,
			},
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Get underlying sql.DB to configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pool settings
	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(connMaxLifetime) * time.Second)

	// Test the connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Apply SQLite pragmas directly (connection string pragmas may not work with all drivers)
	// WAL mode must be set first for optimal concurrency
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		fmt.Sprintf("PRAGMA wal_autocheckpoint=%d", walAutocheckpoint),
		fmt.Sprintf("PRAGMA busy_timeout=%d", busyTimeout),
		fmt.Sprintf("PRAGMA cache_size=-%d", cacheSize),
		"PRAGMA foreign_keys=1",
		"PRAGMA temp_store=2",
		fmt.Sprintf("PRAGMA mmap_size=%d", mmapSize),
	}

	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			zlog.Warn().Str("pragma", pragma).Err(err).Msg("Failed to apply pragma")
		}
	}

	return db, nil
}

// setupRouter configures the Gin router with routes and middleware
func (s *Server) setupRouter() {
	// Set Gin mode based on environment
	gin.SetMode(gin.ReleaseMode)

	s.router = gin.New()

	// Add middleware
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())

	// CORS middleware - credentials on, the session cookie rides every request
	s.router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{s.config.FrontendOrigin},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Idempotency-Key"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check endpoint (no auth required)
	s.router.GET("/health", s.healthCheck)

	// Public auth endpoints (no auth required)
	s.router.POST("/api/register", s.register)
	s.router.POST("/api/login", s.login)
	s.router.POST("/api/logout", s.logout)
	s.router.GET("/logout", s.logout)

	// Session introspection resolves to authenticated:false rather than
	// a 401, so it stays outside the auth group
	s.router.GET("/api/session", s.getSession)

	// Authenticated API routes (session cookie or bearer token required)
	api := s.router.Group("/api")
	api.Use(SessionAuthMiddleware(s.db, s.sessions, s.config.Session.CookieName, s.logger))
	{
		// System information
		api.GET("/system/info", s.getSystemInfo)

		// Profile
		api.GET("/profile", s.getProfile)
		api.POST("/profile/update", s.updateProfile)
		api.POST("/change_password", s.changePassword)

		// Predictions
		api.POST("/predict", s.predict)
		api.GET("/user/latest_prediction", s.getLatestPrediction)
		api.GET("/user/all_predictions", s.listPredictions)
		api.GET("/user/prediction/:id", s.getPrediction)

		// Reports
		api.POST("/generate_report", s.generateReport)
		api.GET("/user/reports", s.listReports)
		api.GET("/reports/:id", s.getReport)
		api.DELETE("/reports/:id", s.deleteReport)

		// Chatbot
		api.POST("/chatbot", s.chatbotAsk)
		api.GET("/chatbot/history", s.chatbotHistory)
		api.POST("/chatbot/clear", s.chatbotClear)

		// Admin (admin only)
		adminRoutes := api.Group("/admin")
		adminRoutes.Use(AdminOnlyMiddleware(s.logger))
		{
			adminRoutes.GET("/users", s.listUsers)
			adminRoutes.GET("/stats", s.getStats)
			adminRoutes.DELETE("/users/:id", s.deleteUser)
			adminRoutes.GET("/patients", s.listPatients)
			adminRoutes.GET("/patients/:id/predictions", s.listPatientPredictions)
			adminRoutes.GET("/export", s.exportPatients)

			adminRoutes.GET("/chatbot/documents", s.listDocuments)
			adminRoutes.POST("/chatbot/upload", s.uploadDocument)
			adminRoutes.DELETE("/chatbot/documents/:id", s.deleteDocument)
		}
	}
}

// loggingMiddleware creates a custom logging middleware using zerolog
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start)

		s.logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", duration).
			Str("client_ip", c.ClientIP()).
			Msg("HTTP request")
	}
}

// @Router /health [get]
// @Success 200 {object} map[string]interface{}
func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "online",
		"timestamp": time.Now().UTC(),
		"service":   "diatrack-api",
	})
}

// @Summary System info
// @Description Service version, uptime and record counts
// @Tags system
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/system/info [get]
func (s *Server) getSystemInfo(c *gin.Context) {
	var userCount, predictionCount, documentCount int64
	s.db.Model(&models.User{}).Count(&userCount)
	s.db.Model(&models.Prediction{}).Count(&predictionCount)
	s.db.Model(&models.Document{}).Count(&documentCount)

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	response := gin.H{
		"version":           s.version,
		"uptime_seconds":    int64(time.Since(s.startedAt).Seconds()),
		"users":             userCount,
		"predictions":       predictionCount,
		"documents":         documentCount,
		"inference_healthy": s.inferenceClient.Healthy(ctx),
		"rag_healthy":       s.ragClient.Healthy(ctx),
	}

	if metrics, err := sysinfo.GetMetrics(s.config.UploadDir); err == nil {
		response["host"] = metrics
	}

	c.JSON(http.StatusOK, response)
}

// GetDB returns the database connection for use by workers
func (s *Server) GetDB() *gorm.DB {
	return s.db
}

// PredictionsService returns the predictions service for use by workers
func (s *Server) PredictionsService() *predictions.Service {
	return s.predictionsService
}

// RAGClient returns the RAG client for use by workers
func (s *Server) RAGClient() *rag.Client {
	return s.ragClient
}

// Router returns the configured gin engine (exposed for handler tests)
func (s *Server) Router() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	port := ":8080"

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Create HTTP server with production timeouts
	srv := &http.Server{
		Addr:    port,
		Handler: s.router,
		// Generous write timeout: chatbot answers can take a while
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      120 * time.Second,
		ReadHeaderTimeout: 30 * time.Second,
		IdleTimeout:       300 * time.Second,
	}

	// Start server in goroutine
	go func() {
		s.logger.Info().Str("port", port).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("HTTP server error")
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	s.logger.Info().Msg("Received shutdown signal, shutting down gracefully...")

	// Close Asynq client
	if err := s.asynqClient.Close(); err != nil {
		s.logger.Warn().Err(err).Msg("Error closing Asynq client")
	}

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	s.logger.Info().Msg("Shutting down HTTP server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error().Err(err).Msg("Error shutting down HTTP server")
		return err
	}

	s.logger.Info().Msg("Server shutdown complete")

	// Close database connection to flush WAL writes
	if sqlDB, err := s.db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			s.logger.Error().Err(err).Msg("Error closing database")
		}
	}

	return nil
}
