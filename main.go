package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/damechen/video-editing/config"
	"github.com/damechen/video-editing/handlers"
	"github.com/damechen/video-editing/middleware"
	"github.com/damechen/video-editing/utils"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	if err := setupLogging(cfg.LogDir); err != nil {
		logrus.Fatalf("Failed to initialize logging: %v", err)
	}
	logrus.Infof("Configuration loaded: %s", cfg)

	if err := os.MkdirAll(cfg.TempDir, 0755); err != nil {
		logrus.Fatalf("Failed to create temp dir: %v", err)
	}

	// Create Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logging())

	// Setup CORS (covers the preflight OPTIONS requests too)
	router.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "X-Requested-With", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Content-Length", "Content-Disposition"},
		MaxAge:        12 * time.Hour,
	}))

	// Initialize video handler over the real process runner
	videoHandler := handlers.NewVideoHandler(cfg, utils.ExecRunner{})

	// Health check endpoints
	router.GET("/", videoHandler.Health)
	router.GET("/health", videoHandler.Health)

	// Processing endpoints, rate limited
	limited := router.Group("/", middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
	{
		limited.POST("/concat-videos", videoHandler.ConcatVideos)
		limited.POST("/create-prompt-video", videoHandler.CreatePromptVideo)
	}

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	logrus.Infof("Starting server on %s", addr)
	if err := router.Run(addr); err != nil {
		logrus.Fatalf("Failed to start server: %v", err)
	}
}

// setupLogging sends logs to stdout and a size-rotated file.
func setupLogging(logDir string) error {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return err
	}

	logFile := &lumberjack.Logger{
		Filename:   filepath.Join(logDir, "app.log"),
		MaxSize:    10,
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
	}

	logrus.SetOutput(io.MultiWriter(os.Stdout, logFile))
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	return nil
}
