package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/guest-inbox/internal/api/http"
	"github.com/spec-kit/guest-inbox/internal/api/http/handlers"
	"github.com/spec-kit/guest-inbox/internal/app"
	"github.com/spec-kit/guest-inbox/internal/config"
	"github.com/spec-kit/guest-inbox/internal/observability"
	"github.com/spec-kit/guest-inbox/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	container, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to build application", zap.Error(err))
	}
	defer container.Close()

	worker.StartDeliveryWorker(container.Delivery)

	metrics := observability.NewMetrics()
	server := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(server, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(server, httptransport.RouteConfig{
		Health:        handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, container.Postgres, container.Redis, metrics),
		Messages:      handlers.NewMessagesHandler(container.Ingestion, container.Engine),
		Conversations: handlers.NewConversationsHandler(container.Messages, container.Replies),
		Rules:         handlers.NewRulesHandler(container.Rules),
		Analytics:     handlers.NewAnalyticsHandler(container.Aggregator),
	})

	go func() {
		if err := server.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = server.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
