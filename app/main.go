package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/postlens/postlens/app/api"
	"github.com/postlens/postlens/app/cfg"
	"github.com/postlens/postlens/app/database"
	"github.com/postlens/postlens/app/post"
	"github.com/postlens/postlens/app/scraper"
	"github.com/postlens/postlens/app/tasks"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Load configuration from environment variables and command-line flags
	appConfig, err := cfg.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if appConfig == nil {
		// Help was shown, exit gracefully
		return
	}

	if appConfig.Debug {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	log.Println("Starting Postlens server...")

	// Database connection
	log.Printf("Opening database at %s...", appConfig.DBPath)
	db, err := database.NewConnection(appConfig.DBPath)
	if err != nil {
		log.Fatal("Failed to open database:", err)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		log.Fatal("Failed to run migrations:", err)
	}
	log.Printf("Database ready (migration version %d, dirty: %t)", version, dirty)

	// Load source configurations
	log.Printf("Loading source configurations from %s...", appConfig.SourcesDir)
	configCache := post.NewConfigCache(appConfig.SourcesDir)
	if err := configCache.Run(); err != nil {
		log.Fatal("Failed to load configurations:", err)
	}
	log.Printf("Loaded %d source configurations", configCache.GetConfigCount())

	// Initialize repositories
	sourceRepo := database.NewSourceRepository(db)
	postRepo := database.NewPostRepository(db)

	// Initialize core components
	httpClient := &http.Client{}
	scraperClient := scraper.NewClient(httpClient, appConfig.ScraperEndpoint, appConfig.ScraperToken, appConfig.UserAgent)
	normalizer := post.NewNormalizer()

	if scraperClient.Enabled() {
		log.Printf("Scraper endpoint configured: %s", appConfig.ScraperEndpoint)
	} else {
		log.Printf("Scraper endpoint not configured, sources fall back to local archives")
	}

	// Initialize and start scheduler
	log.Printf("Starting background scheduler with %d workers...", appConfig.WorkerCount)
	scheduler := tasks.NewScheduler(configCache, sourceRepo, postRepo, scraperClient, normalizer)
	scheduler.Start()
	defer scheduler.Stop()

	// Initialize HTTP server
	log.Println("Initializing HTTP server...")
	apiHandler := api.NewHandler(configCache, sourceRepo, postRepo, normalizer, scraperClient, scheduler)
	server := api.NewServer(apiHandler, appConfig.APIAccessKey)

	// Create HTTP server with timeouts
	httpServer := &http.Server{
		Addr:         ":" + appConfig.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start HTTP server in a goroutine
	serverErrChan := make(chan error, 1)
	go func() {
		log.Printf("Starting HTTP server on port %s", appConfig.Port)
		log.Printf("Endpoints available:")
		log.Printf("  Dashboard:     http://localhost:%s/dashboards/<name>", appConfig.Port)
		log.Printf("  Posts:         http://localhost:%s/dashboards/<name>/posts", appConfig.Port)
		log.Printf("  Export:        http://localhost:%s/dashboards/<name>/export", appConfig.Port)
		log.Printf("  Health check:  http://localhost:%s/health", appConfig.Port)
		log.Printf("  Statistics:    http://localhost:%s/stats", appConfig.Port)

		if appConfig.APIAccessKey != "" {
			log.Printf("  List sources:  http://localhost:%s/api/sources (requires API key)", appConfig.Port)
			log.Printf("  Details:       http://localhost:%s/api/sources/<name>/details (requires API key)", appConfig.Port)
			log.Printf("  Refresh:       http://localhost:%s/api/sources/<name>/refresh (POST, requires API key)", appConfig.Port)
			log.Printf("  Rebuild:       http://localhost:%s/api/sources/<name>/rebuild (POST, requires API key)", appConfig.Port)
		} else {
			log.Printf("  API endpoints: DISABLED (API_ACCESS_KEY not set)")
		}

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Wait for interrupt signal or server error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	log.Println("Postlens server started successfully!")
	log.Println("Press Ctrl+C to shutdown gracefully...")

	select {
	case sig := <-sigChan:
		log.Printf("Received signal: %v", sig)
	case err := <-serverErrChan:
		log.Printf("Server error: %v", err)
	}

	// Graceful shutdown
	log.Println("Shutting down server gracefully...")

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Shutdown HTTP server
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	} else {
		log.Println("HTTP server stopped")
	}

	// Scheduler is stopped via defer
	log.Println("Background scheduler stopped")

	log.Println("Postlens server shutdown complete")
}
