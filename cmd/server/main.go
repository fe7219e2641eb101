package main

import (
	"context"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/notework/collab/internal/config"
	httpHandler "github.com/notework/collab/internal/delivery/http"
	"github.com/notework/collab/internal/delivery/ws"
	"github.com/notework/collab/internal/diagnostics"
	"github.com/notework/collab/internal/domain"
	"github.com/notework/collab/internal/middleware"
	"github.com/notework/collab/internal/preview"
	"github.com/notework/collab/internal/storage"
)

func main() {
	// Load .env file (ignore error if not exists, e.g. in production)
	_ = godotenv.Load()

	// Reload config after loading .env
	config.AppConfig = config.LoadFromEnv()
	cfg := config.AppConfig

	// Configuring Logging
	if cfg.LogLevel == "silent" || cfg.LogLevel == "off" {
		log.SetOutput(io.Discard)
	}

	// Initialize dependencies
	store := storage.NewDiskStore(cfg.BaseDir)
	hub := ws.NewHub(store)

	runner := diagnostics.NewRunner(cfg.BaseDir, cfg.TypstBin)
	if runner.Available() {
		sched := diagnostics.NewScheduler(domain.DiagnosticsDebounce,
			func(path string) []domain.Diagnostic {
				return runner.Check(context.Background(), path)
			},
			hub.PublishDiagnostics)
		defer sched.Stop()
		hub.SetDiagnostics(sched)
	} else {
		log.Println("typst not found, diagnostics and preview disabled")
	}

	var previews *preview.Manager
	if runner.Available() {
		previews = preview.NewManager(cfg.BaseDir, cfg.PreviewCacheDir, cfg.TypstBin, hub.PublishPreview)
		hub.SetPreview(previews)
	}

	go hub.Run()

	handler := httpHandler.NewHandler(hub)

	// Setup routes
	mux := http.NewServeMux()

	// Serve the editor bundle
	fs := http.FileServer(http.Dir("./static"))
	mux.Handle("/static/", http.StripPrefix("/static/", fs))

	// Document channel with rate limiting
	mux.HandleFunc("/ws/doc", middleware.RateLimitFunc(middleware.WebSocketLimiter, handler.HandleDocSocket))

	// API routes with rate limiting
	mux.HandleFunc("/api/users", middleware.RateLimitFunc(middleware.APILimiter, handler.HandleUsers))
	mux.HandleFunc("/healthz", handler.HandleHealth)

	// Apply security headers middleware to all requests
	securedHandler := middleware.SecurityHeaders(mux)

	// Create server with timeouts
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      securedHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("collab server running at http://localhost:%s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	if previews != nil {
		previews.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited gracefully")
}
