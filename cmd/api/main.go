package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/joshua-takyi/bashbay-client/internal/config"
	"github.com/joshua-takyi/bashbay-client/internal/connect"
	"github.com/joshua-takyi/bashbay-client/internal/container"
	"github.com/joshua-takyi/bashbay-client/internal/helpers"
	"github.com/joshua-takyi/bashbay-client/internal/messaging"
	"github.com/joshua-takyi/bashbay-client/internal/models"
	"github.com/joshua-takyi/bashbay-client/internal/routes"
	"github.com/joshua-takyi/bashbay-client/internal/services"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

func main() {
	// Load environment variables
	_ = godotenv.Load(".env.local")

	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg)
	logger.Info("Starting Bashbay client API", "environment", cfg.Environment, "backend", cfg.BackendURL)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Token refresh goes either to the backend or to Supabase
	var refresher connect.Refresher
	if cfg.AuthProvider == "supabase" {
		supaClient, err := connect.InitSupabase(cfg.SupabaseURL, cfg.SupabaseAnonKey)
		if err != nil {
			logger.Error("Failed to connect to Supabase", "error", err)
			os.Exit(1)
		}
		refresher = connect.NewSupabaseRefresher(supaClient)
		logger.Info("Connected to Supabase successfully")
	} else {
		refresher = connect.NewBackendRefresher(cfg.BackendURL, &http.Client{Timeout: cfg.RequestTimeout})
	}

	backend, err := connect.NewClient(cfg.BackendURL, cfg.RequestTimeout, refresher, logger)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	sockets, err := connect.NewSocketDialer(cfg.WebSocketURL, cfg.RequestTimeout, cfg.PingPeriod)
	if err != nil {
		logger.Error("Invalid websocket configuration", "error", err)
		os.Exit(1)
	}

	validator, err := helpers.NewTokenValidator(ctx, cfg.JWKSURL, logger)
	if err != nil {
		logger.Error("Failed to load signing keys", "error", err)
		os.Exit(1)
	}
	defer validator.Close()

	// Selection drafts live in MongoDB when configured, in memory otherwise
	var (
		mongoClient *mongo.Client
		selections  models.SelectionRepo = models.NewMemorySelectionRepo(cfg.SelectionTTL)
	)
	if cfg.MongoDBURI != "" {
		mongoClient, err = connect.MongoDBConnect(ctx, cfg.MongoDBURI, cfg.MongoDBPassword, logger)
		if err != nil {
			logger.Error("Failed to connect to MongoDB", "error", err)
			os.Exit(1)
		}
		repo := models.MongodbNewRepo(mongoClient, cfg.SelectionTTL)
		if err := repo.EnsureSelectionIndexes(ctx); err != nil {
			logger.Warn("Failed to create selection indexes", "error", err)
		}
		selections = repo
	}

	var (
		redisClient *redis.Client
		windowCache services.WindowCache
	)
	if cfg.RedisAddr != "" {
		redisClient, err = connect.RedisConnect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, logger)
		if err != nil {
			// the cache is an optimisation, run without it
			logger.Warn("Redis unavailable, availability windows will not be cached", "error", err)
		} else {
			windowCache = models.NewRedisWindowCache(redisClient, cfg.WindowCacheTTL)
		}
	}

	appContainer := container.NewContainer(container.Deps{
		Logger:         logger,
		SecureCookies:  cfg.IsProduction(),
		TokenValidator: validator,
		Backend:        backend,
		Sockets:        sockets,
		MongoDBClient:  mongoClient,
		RedisClient:    redisClient,
		Selections:     selections,
		WindowCache:    windowCache,
		Messaging: messaging.Options{
			InitialBackoff: cfg.ReconnectDelay,
			MaxBackoff:     cfg.ReconnectMaxDelay,
			MaxAttempts:    cfg.ReconnectAttempts,
			TypingTimeout:  cfg.TypingTimeout,
			TypingInterval: 2 * time.Second,
		},
	})

	router := routes.SetupRoutes(appContainer, cfg.AllowedOrigins)

	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// no WriteTimeout: event streams stay open
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		logger.Info("Server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("Server is shutting down...")

	// Close sockets first so event streams end
	appContainer.Messaging.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	if err := connect.MongoDBDisconnect(mongoClient); err != nil {
		logger.Error("Error disconnecting from MongoDB", "error", err)
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error("Error closing Redis", "error", err)
		}
	}

	logger.Info("Server exited")
}

func setupLogger(cfg *config.Config) *slog.Logger {
	var handler slog.Handler

	level := parseLevel(cfg.LogLevel)
	if cfg.IsProduction() {
		// JSON logging for production
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		// Human-readable logging for development
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

func parseLevel(value string) slog.Level {
	switch strings.ToLower(value) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
