// Package main is the entry point for the intake API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/rothspit/diabro-web/internal/config"
	"github.com/rothspit/diabro-web/internal/handler"
	"github.com/rothspit/diabro-web/internal/intake"
	"github.com/rothspit/diabro-web/internal/middleware"
	"github.com/rothspit/diabro-web/internal/model"
	natsclient "github.com/rothspit/diabro-web/internal/nats"
	"github.com/rothspit/diabro-web/internal/service"
	"github.com/rothspit/diabro-web/internal/store"
	"github.com/rothspit/diabro-web/pkg/logger"
	"github.com/rothspit/diabro-web/pkg/tracing"
)

// recordStore is satisfied by both the Postgres and the in-memory store.
type recordStore interface {
	InsertApplicant(ctx context.Context, a *model.Applicant) error
	InsertContact(ctx context.Context, c *model.ContactInquiry) error
	ListApplicants(ctx context.Context, limit, offset int) ([]model.Applicant, error)
	Ping(ctx context.Context) error
	Close()
}

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	var log *logger.Logger
	var err error
	if cfg.Environment == "development" {
		log, err = logger.NewDevelopment()
	} else {
		log, err = logger.New(cfg.LogLevel)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("starting intake server")

	// Initialize tracing if enabled
	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "diabro-intake", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Open the record store
	var records recordStore
	if cfg.DatabaseURL != "" {
		pg, err := store.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Error("failed to open database", zap.Error(err))
			os.Exit(1)
		}
		records = pg
	} else {
		log.Warn("DATABASE_URL not set, records are kept in memory only")
		records = store.NewMemory()
	}
	defer records.Close()

	// Connect to NATS
	var (
		natsClient  *natsclient.Client
		publisher   service.Publisher
		transcripts service.TranscriptReader
	)
	if cfg.NATSEnabled {
		natsClient, err = natsclient.Connect(ctx, natsclient.Config{
			URL:      cfg.NATSURL,
			CAFile:   cfg.NATSCAFile,
			CertFile: cfg.NATSCertFile,
			KeyFile:  cfg.NATSKeyFile,
			Token:    cfg.NATSToken,
		}, log)
		if err != nil {
			log.Error("failed to connect to NATS", zap.Error(err))
			os.Exit(1)
		}
		defer natsClient.Close()

		// Ensure JetStream stream exists
		streamManager := natsclient.NewStreamManager(natsClient)
		if err := streamManager.EnsureStream(ctx); err != nil {
			log.Error("failed to ensure stream", zap.Error(err))
			os.Exit(1)
		}
		publisher = streamManager
		transcripts = streamManager
	}

	// Initialize services
	sessionSvc, err := service.NewSessionService(intake.DefaultSteps(), records, publisher, service.SessionOptions{
		PromptDelay:   cfg.PromptDelay,
		SubmitDelay:   cfg.SubmitDelay,
		SubmitTimeout: cfg.SubmitTimeout,
		TTL:           cfg.SessionTTL,
	}, log)
	if err != nil {
		log.Error("failed to create session service", zap.Error(err))
		os.Exit(1)
	}
	contactSvc := service.NewContactService(records, publisher, cfg.SubmitTimeout, log)
	adminSvc := service.NewAdminService(records, sessionSvc, transcripts)

	janitorCtx, stopJanitor := context.WithCancel(ctx)
	defer stopJanitor()
	go sessionSvc.RunJanitor(janitorCtx, time.Minute)

	// Initialize handlers
	healthHandler := handler.NewHealthHandler(records, natsClient)
	sessionHandler := handler.NewSessionHandler(sessionSvc, log)
	streamHandler := handler.NewStreamHandler(sessionSvc, log)
	contactHandler := handler.NewContactHandler(contactSvc, log)
	adminHandler := handler.NewAdminHandler(adminSvc, log)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	// Health endpoints
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// Public chat widget and contact form
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

			r.Route("/sessions", func(r chi.Router) {
				r.Post("/", sessionHandler.Create)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", sessionHandler.Get)
					r.Post("/answers", sessionHandler.Answer)
					r.Get("/stream", streamHandler.Stream)
				})
			})

			r.Post("/contact", contactHandler.Submit)
		})

		// Staff views
		if err := cfg.ValidateAdminAuth(); err != nil {
			log.Warn("admin API disabled", zap.Error(err))
			return
		}
		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWTSecret))
			r.Use(middleware.RequireScope(middleware.ScopeApplicantsRead))
			r.Use(middleware.UserRateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

			r.Get("/applicants", adminHandler.ListApplicants)
			r.Get("/sessions/{id}/transcript", adminHandler.Transcript)
		})
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}
