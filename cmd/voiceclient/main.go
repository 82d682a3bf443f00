package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/echovision/voice-client/internal/config"
	"github.com/echovision/voice-client/internal/control"
	"github.com/echovision/voice-client/internal/observability"
	"github.com/echovision/voice-client/internal/readerapi"
	"github.com/echovision/voice-client/internal/resilience"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// Use fmt for fatal errors before logger is initialized
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	observability.InitLogger(cfg.LogLevel, cfg.LogPretty)
	logger := observability.GetLogger()

	logger.Info().
		Str("port", cfg.Port).
		Str("reader_api", cfg.ReaderAPIBaseURL).
		Str("log_level", cfg.LogLevel).
		Bool("metrics_enabled", cfg.MetricsEnabled).
		Msg("Voice client starting")

	// Create HTTP server
	mux := http.NewServeMux()

	// Control surface: the UI connects here for the full voice pipeline
	mux.HandleFunc("/control", control.Handler(cfg))

	// Health check endpoint
	mux.HandleFunc("/health", observability.HealthCheckHandler())

	// Readiness checks: the reader backend must answer, and recognition
	// availability is reported without opening a paid session
	readinessClient := readerapi.NewClient(cfg.ReaderAPIBaseURL,
		resilience.NewCircuitBreaker("tts-readiness", cfg.TTSBreakerMaxFailures,
			time.Duration(cfg.TTSBreakerResetTimeout)*time.Second))

	checks := map[string]observability.HealthCheckFunc{
		"reader_api": func(ctx context.Context) (bool, error) {
			if err := readinessClient.Ping(ctx); err != nil {
				return false, err
			}
			return true, nil
		},
		"recognition": func(ctx context.Context) (bool, error) {
			if cfg.DeepgramAPIKey == "" {
				return false, fmt.Errorf("no recognition engine configured")
			}
			return true, nil
		},
	}
	mux.HandleFunc("/ready", observability.ReadinessHandler(checks))

	// Metrics endpoint (Prometheus)
	if cfg.MetricsEnabled {
		mux.Handle("/metrics", promhttp.Handler())
		logger.Info().Msg("Prometheus metrics enabled at /metrics")
	}

	// Create HTTP server with timeouts. The control socket is long-lived,
	// so no write timeout is set on the server itself.
	server := &http.Server{
		Addr:        fmt.Sprintf(":%s", cfg.Port),
		Handler:     mux,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("endpoint", fmt.Sprintf("ws://localhost:%s/control", cfg.Port)).
			Msg("Server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Info().Msg("Server exited gracefully")
}
