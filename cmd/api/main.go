// Package main is the entry point for the API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/capitalize-ai/docchat/internal/collab"
	"github.com/capitalize-ai/docchat/internal/config"
	"github.com/capitalize-ai/docchat/internal/handler"
	natsclient "github.com/capitalize-ai/docchat/internal/nats"
	"github.com/capitalize-ai/docchat/internal/registry"
	"github.com/capitalize-ai/docchat/internal/service"
	"github.com/capitalize-ai/docchat/pkg/logger"
	"github.com/capitalize-ai/docchat/pkg/tracing"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting API server", zap.String("document_service", cfg.ServiceURL))

	// Initialize tracing if enabled
	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "docchat", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Document service client
	client, err := collab.NewClient(cfg.ServiceURL,
		collab.WithToken(cfg.ServiceToken),
		collab.WithTimeout(cfg.ServiceTimeout),
	)
	if err != nil {
		log.Fatal("invalid document service configuration", zap.Error(err))
	}

	// Event publishing is optional
	var natsClient *natsclient.Client
	var publisher *natsclient.EventPublisher
	if cfg.NATSURL != "" {
		natsClient, err = natsclient.Connect(ctx, natsclient.Config{
			URL:   cfg.NATSURL,
			Token: cfg.NATSToken,
		}, log)
		if err != nil {
			log.Fatal("failed to connect to NATS", zap.Error(err))
		}
		defer natsClient.Close()

		publisher = natsclient.NewEventPublisher(natsClient)
		if err := publisher.EnsureStream(ctx); err != nil {
			log.Fatal("failed to ensure stream", zap.Error(err))
		}
	}

	// One session per authenticated user. The user's credential is forwarded
	// to the document service.
	sessions := registry.New(cfg.SessionIdleTimeout, func(userID, token string) *service.Session {
		userClient := client
		if token != "" {
			userClient = client.WithBearer(token)
		}
		sess := service.NewSession(userClient, cfg.DocumentNameTTL, log.With(zap.String("user_id", userID)))
		if publisher != nil {
			sess.Store.Subscribe(publisher.Observer(userID))
		}
		return sess
	}, log)

	router := handler.NewRouter(handler.RouterConfig{
		Sessions:          sessions,
		NATS:              natsClient,
		JWTSecret:         cfg.JWTSecret,
		RateLimitRequests: cfg.RateLimitRequests,
		RateLimitWindow:   cfg.RateLimitWindow,
		Logger:            log,
	})

	// Create HTTP server. No write timeout: the event stream is long-lived.
	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadTimeout:       cfg.ServerReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server error", zap.Error(err))
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

	log.Info("server stopped", zap.Int("sessions", sessions.Len()))
}
