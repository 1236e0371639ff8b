package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/kidcanvas/api/internal/auth"
	"github.com/kidcanvas/api/internal/cache"
	"github.com/kidcanvas/api/internal/config"
	"github.com/kidcanvas/api/internal/database"
	"github.com/kidcanvas/api/internal/handler"
	"github.com/kidcanvas/api/internal/middleware"
	"github.com/kidcanvas/api/internal/scheduler"
	"github.com/kidcanvas/api/internal/storage"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Refuse to serve with a missing or placeholder signing secret.
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger := newLogger(cfg)
	defer logger.Sync()
	sugar := logger.Sugar()

	for _, warn := range cfg.Warnings() {
		sugar.Warn(warn)
	}

	codec, err := auth.NewCodec(cfg.JWTSecret)
	if err != nil {
		sugar.Fatalw("failed to construct token codec", "error", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		sugar.Fatalw("failed to connect to database", "error", err)
	}
	if err := database.Migrate(db); err != nil {
		sugar.Fatalw("failed to migrate database", "error", err)
	}

	// Redis is fail-open: no cache, no problem.
	redisCache, err := cache.NewRedisCache(cfg.RedisURL)
	if err != nil {
		sugar.Warnw("failed to connect to redis, continuing without cache", "error", err)
		redisCache = nil
	}

	var store storage.FileStore
	var localStore *storage.LocalStore
	switch cfg.StorageBackend {
	case "minio":
		store, err = storage.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			sugar.Fatalw("failed to connect to minio", "error", err)
		}
	default:
		localStore, err = storage.NewLocalStore(cfg.UploadDir)
		if err != nil {
			sugar.Fatalw("failed to prepare upload dir", "error", err)
		}
		store = localStore
	}

	var googleConfig *oauth2.Config
	if cfg.GoogleClientID != "" && cfg.GoogleClientSecret != "" {
		googleConfig = &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		}
	}

	var janitor *scheduler.Janitor
	if cfg.JanitorEnabled && localStore != nil {
		janitor = scheduler.NewJanitor(db, sugar, scheduler.JanitorConfig{
			UploadDir: localStore.BaseDir(),
			Interval:  cfg.JanitorInterval,
			Grace:     cfg.JanitorGrace,
		})
		go janitor.Start(context.Background())
	}

	authHandler := handler.NewAuthHandler(db, codec, sugar, cfg.Development(), googleConfig, cfg.FrontendURL)
	userHandler := handler.NewUserHandler(db, sugar, cfg.Development())
	drawingHandler := handler.NewDrawingHandler(db, store, sugar, cfg.Development())
	processHandler := handler.NewProcessHandler(db, redisCache, sugar, cfg.Development())
	chatHandler := handler.NewChatHandler(db, sugar, cfg.Development())
	adminHandler := handler.NewAdminHandler(db, sugar, cfg.Development())

	if !cfg.Development() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.MetricsMiddleware())

	// CORS
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", cfg.FrontendURL)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	r.GET("/health", func(c *gin.Context) {
		status := gin.H{"status": "ok"}
		if janitor != nil {
			status["janitor"] = janitor.Status()
		}
		sqlDB, err := db.DB()
		if err != nil || sqlDB.Ping() != nil {
			status["status"] = "error"
			status["database"] = "disconnected"
			c.JSON(500, status)
			return
		}
		status["database"] = "connected"
		c.JSON(200, status)
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Uploaded drawings are only served directly for the local backend;
	// the MinIO backend hands out pre-signed URLs instead.
	if localStore != nil {
		r.Static(storage.PublicPath(localStore.BaseDir()), localStore.BaseDir())
	}

	authRequired := middleware.AuthMiddleware(codec)

	api := r.Group("/api")
	{
		api.POST("/auth/register", authHandler.Register)
		api.POST("/auth/login", authHandler.Login)
		api.GET("/auth/me", authRequired, authHandler.Me)
		api.GET("/auth/google", authHandler.GoogleAuth)
		api.GET("/auth/google/callback", authHandler.GoogleCallback)

		users := api.Group("/users", authRequired)
		{
			users.GET("/me", userHandler.Me)
			users.PUT("/me", userHandler.UpdateMe)
			users.GET("/me/stats", userHandler.Stats)
		}

		drawings := api.Group("/drawings", authRequired)
		{
			drawings.POST("", drawingHandler.Upload)
			drawings.GET("", drawingHandler.List)
			drawings.GET("/:id", drawingHandler.Get)
			drawings.DELETE("/:id", drawingHandler.Delete)
		}

		processes := api.Group("/processes")
		{
			processes.GET("/types", processHandler.Types)
			processes.POST("", authRequired, processHandler.Create)
			processes.GET("", authRequired, processHandler.List)
			processes.GET("/:id", authRequired, processHandler.Get)
			processes.GET("/:id/results", authRequired, processHandler.Results)
		}

		chat := api.Group("/chat", authRequired)
		{
			chat.POST("/sessions", chatHandler.CreateSession)
			chat.GET("/sessions", chatHandler.ListSessions)
			chat.GET("/sessions/:sessionId/messages", chatHandler.Messages)
			chat.POST("/sessions/:sessionId/messages", chatHandler.SendMessage)
			chat.PATCH("/sessions/:sessionId/close", chatHandler.Close)
		}

		admin := api.Group("/admin", authRequired, middleware.RequireRole("ADMIN"))
		{
			admin.GET("/users", adminHandler.ListUsers)
			admin.GET("/stats", adminHandler.Stats)
		}
	}

	sugar.Infow("API server starting", "port", cfg.Port, "env", cfg.AppEnv, "storage", cfg.StorageBackend)
	if err := r.Run(":" + cfg.Port); err != nil {
		sugar.Fatalw("failed to start server", "error", err)
	}
}

func newLogger(cfg *config.Config) *zap.Logger {
	if cfg.Development() {
		logger, _ := zap.NewDevelopment()
		return logger
	}
	logger, _ := zap.NewProduction()
	return logger
}
