/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the staff performance dashboard server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load environment (.env) and parse command-line flags
  2. Load and validate the compensation configuration
  3. Initialize SQLite store and, if configured, the Redis cache
  4. Create dashboard service, API handler and router
  5. Start the recalculation scheduler
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS (override environment):
  -port      HTTP server port (PORT, default: 8080)
  -db        SQLite database path (DB_PATH, default: ./data/sales.db)
             Use ":memory:" for in-memory database
  -config    Compensation JSON (CONFIG_PATH, default: built-in presets)
  -interval  Recalculation interval, 0 disables (RECALC_INTERVAL)

ENVIRONMENT:
  TIMEZONE     Calendar day boundaries (default: UTC)
  REDIS_ADDR   Shared leaderboard cache; empty uses an in-process cache
  RATE_LIMIT   Per-IP request limit, e.g. "600-M"; "off" disables

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection

SEE ALSO:
  - api/server.go: Router configuration
  - config/config.go: Environment variables
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/sales-engine/api"
	"github.com/warp/sales-engine/cache"
	"github.com/warp/sales-engine/config"
	"github.com/warp/sales-engine/dashboard"
	"github.com/warp/sales-engine/engine"
	"github.com/warp/sales-engine/factory"
	"github.com/warp/sales-engine/store/sqlite"
)

func main() {
	cfg := config.Load()

	// Flags
	port := flag.Int("port", cfg.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.DBPath, "SQLite database path")
	configPath := flag.String("config", cfg.ConfigPath, "Compensation configuration JSON")
	interval := flag.Duration("interval", cfg.RecalcInterval, "Recalculation interval (0 disables)")
	flag.Parse()

	loc := cfg.Location()

	// Compensation configuration
	engineCfg, err := loadEngineConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	eng, err := engine.NewEngine(engineCfg)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Initialize store
	store, err := sqlite.New(*dbPath, sqlite.WithLocation(loc))
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Leaderboard cache
	var leaderboardCache cache.Cache = cache.NewMemory()
	if cfg.Redis.Addr != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		rc, err := cache.NewRedis(ctx, cache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		cancel()
		if err != nil {
			log.Printf("Warning: Redis unavailable, using in-process cache: %v", err)
		} else {
			defer rc.Close()
			leaderboardCache = rc
		}
	}

	svc := dashboard.NewService(eng, store,
		dashboard.WithLocation(loc),
		dashboard.WithCache(leaderboardCache),
	)
	handler := api.NewHandler(svc)

	// Create router
	var middlewares []func(http.Handler) http.Handler
	if cfg.RateLimit != "" {
		limit, err := api.RateLimit(cfg.RateLimit)
		if err != nil {
			log.Fatalf("Invalid RATE_LIMIT: %v", err)
		}
		middlewares = append(middlewares, limit)
	}
	router := api.NewRouter(handler, middlewares...)

	// Scheduler
	scheduler := api.NewRecalcScheduler(svc)
	scheduler.Enabled = *interval > 0
	if scheduler.Enabled {
		scheduler.CheckInterval = *interval
	}
	scheduler.Start()

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("🚀 Server starting on http://localhost:%d", *port)
		log.Printf("📊 API available at http://localhost:%d/api", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

func loadEngineConfig(path string) (engine.Config, error) {
	if path == "" {
		log.Println("Using built-in compensation configuration")
		return dashboard.DefaultConfig()
	}
	log.Printf("Loading compensation configuration from %s", path)
	return factory.LoadConfigFile(path)
}
