package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"transfer-appeal-api/config"
	"transfer-appeal-api/controllers"
	"transfer-appeal-api/middleware"
	"transfer-appeal-api/monitor"
	"transfer-appeal-api/routes"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 10 * time.Second
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.LoadAppConfig()
	logger, flush := config.InitLogging()
	defer flush()

	if cfg.JWTSecret == "" {
		logger.Warn("JWT_SECRET is not set, every protected route will answer 401")
	}

	// Initialize database
	config.InitDB()
	if cfg.AutoMigrate {
		if err := config.AutoMigrate(config.DB); err != nil {
			logger.Fatal("auto migration failed", zap.Error(err))
		}
	}

	if cfg.GinMode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.RequestLogger(logger.Named("http")))
	router.Use(gin.Recovery())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CORSMiddleware())

	controllers.Setup(controllers.NewDependencies(config.DB))
	monitor.Register(router, monitor.DBPinger(config.DB), cfg.LogsToken)
	routes.SetupRoutes(router)

	// Create upload directory if not exists
	if err := os.MkdirAll(cfg.UploadPath, os.ModePerm); err != nil {
		logger.Warn("failed to create upload directory", zap.String("path", cfg.UploadPath), zap.Error(err))
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		logger.Info("server starting",
			zap.String("port", cfg.Port),
			zap.String("environment", cfg.Environment),
			zap.Bool("destination_review", cfg.IncludeDestinationReview),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
}
