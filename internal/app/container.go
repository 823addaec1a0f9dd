// Package app assembles the inbox components from configuration.
package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/guest-inbox/internal/ai"
	"github.com/spec-kit/guest-inbox/internal/analytics"
	"github.com/spec-kit/guest-inbox/internal/config"
	"github.com/spec-kit/guest-inbox/internal/events"
	"github.com/spec-kit/guest-inbox/internal/persistence"
	"github.com/spec-kit/guest-inbox/internal/repository"
	"github.com/spec-kit/guest-inbox/internal/repository/memory"
	"github.com/spec-kit/guest-inbox/internal/service"
)

// Repositories groups the four stores.
type Repositories struct {
	Conversations repository.ConversationRepository
	Messages      repository.MessageRepository
	Rules         repository.RuleRepository
	Events        repository.EventRepository
}

// Container holds every wired component.
type Container struct {
	Postgres *persistence.Postgres
	Redis    *persistence.Redis
	Repos    Repositories

	Dispatcher events.Dispatcher
	Ledger     *events.Ledger

	Messages   *service.MessageService
	Replies    *service.ReplyService
	Engine     *service.RuleEngine
	Ingestion  *service.IngestionService
	Rules      *service.RuleService
	Delivery   *service.DeliveryService
	Aggregator *analytics.Aggregator
}

// Build connects storage and wires the services. Without POSTGRES_DSN the
// stores live in memory for the lifetime of the process.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Container, error) {
	c := &Container{}

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	c.Postgres = pg

	if pool := pg.PoolHandle(); pool != nil {
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pool, cfg.Postgres.MigrationsDir, logger); err != nil {
				pg.Close()
				return nil, fmt.Errorf("run migrations: %w", err)
			}
		}
		c.Repos = Repositories{
			Conversations: repository.NewConversationRepository(pool),
			Messages:      repository.NewMessageRepository(pool),
			Rules:         repository.NewRuleRepository(pool),
			Events:        repository.NewEventRepository(pool),
		}
	} else {
		logger.Warn("using in-memory stores; data is lost on exit")
		store := memory.NewStore()
		c.Repos = Repositories{
			Conversations: store.Conversations(),
			Messages:      store.Messages(),
			Rules:         store.Rules(),
			Events:        store.Events(),
		}
	}

	var locker service.Locker
	c.Redis = persistence.NewRedis(ctx, cfg.Redis, logger)
	if c.Redis != nil {
		if cfg.Ingest.ResolutionLock {
			locker = persistence.NewRedisLocker(c.Redis, cfg.App.Name)
		}
	} else if cfg.Ingest.ResolutionLock {
		logger.Warn("INGEST_RESOLUTION_LOCK set without REDIS_ADDR; resolving without a lock")
	}

	completer, err := newCompleter(ctx, cfg.AI, logger)
	if err != nil {
		c.Close()
		return nil, err
	}

	location, err := cfg.Analytics.Location()
	if err != nil {
		c.Close()
		return nil, err
	}

	c.Dispatcher = events.NewInMemoryDispatcher()
	c.Ledger = events.NewLedger(events.LedgerDependencies{
		Events:     c.Repos.Events,
		Dispatcher: c.Dispatcher,
		Logger:     logger,
	})

	c.Messages = service.NewMessageService(service.MessageDependencies{
		ConversationRepo: c.Repos.Conversations,
		MessageRepo:      c.Repos.Messages,
		Ledger:           c.Ledger,
		Logger:           logger,
	})
	c.Replies = service.NewReplyService(service.ReplyDependencies{
		ConversationRepo: c.Repos.Conversations,
		MessageRepo:      c.Repos.Messages,
		Completer:        completer,
		Ledger:           c.Ledger,
		Logger:           logger,
		Timeout:          cfg.AI.Timeout(),
		History:          cfg.AI.SuggestionHistory,
		MockFallback:     cfg.AI.MockFallback,
	})
	c.Engine = service.NewRuleEngine(service.RuleEngineDependencies{
		RuleRepo:         c.Repos.Rules,
		ConversationRepo: c.Repos.Conversations,
		MessageRepo:      c.Repos.Messages,
		MessageService:   c.Messages,
		ReplyService:     c.Replies,
		Ledger:           c.Ledger,
		Logger:           logger,
	})
	c.Ingestion = service.NewIngestionService(service.IngestionDependencies{
		ConversationRepo: c.Repos.Conversations,
		MessageService:   c.Messages,
		RuleEngine:       c.Engine,
		Ledger:           c.Ledger,
		Locker:           locker,
		LockTTL:          cfg.Ingest.LockTTL(),
		Logger:           logger,
	})
	c.Rules = service.NewRuleService(service.RuleDependencies{RuleRepo: c.Repos.Rules, Logger: logger})
	c.Delivery = service.NewDeliveryService(c.Dispatcher, c.Repos.Conversations, c.Repos.Messages, logger, cfg.Delivery)
	c.Aggregator = analytics.NewAggregator(analytics.Dependencies{
		MessageRepo: c.Repos.Messages,
		EventRepo:   c.Repos.Events,
		RuleRepo:    c.Repos.Rules,
		Location:    location,
	})

	return c, nil
}

// Close releases storage connections.
func (c *Container) Close() {
	c.Redis.Close()
	c.Postgres.Close()
}

// newCompleter returns nil when no credential is set; the reply service
// then decides between canned replies and a configuration error.
func newCompleter(ctx context.Context, cfg config.AIConfig, logger *zap.Logger) (ai.Completer, error) {
	completer, err := ai.NewGenAICompleter(ctx, cfg.APIKey, cfg.Model, cfg.MaxOutputTokens)
	if errors.Is(err, ai.ErrNotConfigured) {
		logger.Warn("AI_API_KEY not set; reply suggestions use canned responses", zap.Bool("mock_fallback", cfg.MockFallback))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return completer, nil
}
