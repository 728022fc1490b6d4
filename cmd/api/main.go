package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sizefit/sizefit/internal/config"
	"github.com/sizefit/sizefit/internal/handler"
	"github.com/sizefit/sizefit/internal/middleware"
	"github.com/sizefit/sizefit/internal/worker"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Printf("Invalid configuration: %v", err)
		os.Exit(1)
	}

	pool := worker.NewPool(cfg.WorkerCount)
	pool.Start()
	defer pool.Stop()

	h := handler.New(cfg, pool)

	mux := http.NewServeMux()
	mux.HandleFunc("/compress", h.Compress)
	mux.HandleFunc("/health", h.Health)
	mux.Handle("/metrics", promhttp.Handler())

	// Apply middlewares in order (outermost first):
	// 1. Security headers (always applied)
	// 2. Rate limiting (per IP)
	// 3. Concurrency limit (global)
	// 4. Recovery (catches panics)
	// 5. Request ID (tags each request)
	// 6. Logger (logs requests)
	chained := middleware.Security(
		middleware.RateLimit(cfg.RateLimitPerSec, cfg.RateLimitBurst)(
			middleware.ConcurrencyLimit(cfg.MaxConcurrent)(
				middleware.Recovery(
					middleware.RequestID(
						middleware.Logger(mux),
					),
				),
			),
		),
	)

	// Configure server with timeouts to prevent slowloris and hanging connections
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      chained,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	log.Printf("Starting size-constrained re-encoding API on %s", server.Addr)
	log.Printf("Target: %s, Fidelity: %.2f-%.2f, Format: %s, Max upload: %dMB, Max concurrent: %d, Rate limit: %d/sec, Workers: %d",
		cfg.Target, cfg.MinFidelity, cfg.BaseFidelity, cfg.OutputFormat,
		cfg.MaxUploadMB, cfg.MaxConcurrent, cfg.RateLimitPerSec, cfg.WorkerCount)

	if err := server.ListenAndServe(); err != nil {
		log.Printf("Server error: %v", err)
		os.Exit(1)
	}
}
