package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/guest-inbox/internal/ai"
	"github.com/spec-kit/guest-inbox/internal/domain"
	"github.com/spec-kit/guest-inbox/internal/events"
	"github.com/spec-kit/guest-inbox/internal/repository/memory"
)

var epoch = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

// stepClock advances one second per reading.
type stepClock struct {
	mu  sync.Mutex
	cur time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cur = c.cur.Add(time.Second)
	return c.cur
}

type harness struct {
	store      *memory.Store
	dispatcher events.Dispatcher
	ledger     *events.Ledger
	messages   *MessageService
	replies    *ReplyService
	engine     *RuleEngine
	ingest     *IngestionService
	rules      *RuleService
}

type harnessOption func(*ReplyDependencies, *IngestionDependencies)

func withCompleter(c ai.Completer) harnessOption {
	return func(r *ReplyDependencies, _ *IngestionDependencies) { r.Completer = c }
}

func withReplyTimeout(d time.Duration) harnessOption {
	return func(r *ReplyDependencies, _ *IngestionDependencies) { r.Timeout = d }
}

func withoutMockFallback() harnessOption {
	return func(r *ReplyDependencies, _ *IngestionDependencies) { r.MockFallback = false }
}

func withLocker(l Locker) harnessOption {
	return func(_ *ReplyDependencies, i *IngestionDependencies) { i.Locker = l }
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()
	clock := &stepClock{cur: epoch}
	store := memory.NewStore()
	dispatcher := events.NewInMemoryDispatcher()
	ledger := events.NewLedger(events.LedgerDependencies{Events: store.Events(), Dispatcher: dispatcher, Now: clock.Now})

	messages := NewMessageService(MessageDependencies{
		ConversationRepo: store.Conversations(),
		MessageRepo:      store.Messages(),
		Ledger:           ledger,
		Now:              clock.Now,
	})

	replyDeps := ReplyDependencies{
		ConversationRepo: store.Conversations(),
		MessageRepo:      store.Messages(),
		Ledger:           ledger,
		MockFallback:     true,
	}
	ingestDeps := IngestionDependencies{
		ConversationRepo: store.Conversations(),
		MessageService:   messages,
		Ledger:           ledger,
		Now:              clock.Now,
	}
	for _, opt := range opts {
		opt(&replyDeps, &ingestDeps)
	}
	replies := NewReplyService(replyDeps)

	engine := NewRuleEngine(RuleEngineDependencies{
		RuleRepo:         store.Rules(),
		ConversationRepo: store.Conversations(),
		MessageRepo:      store.Messages(),
		MessageService:   messages,
		ReplyService:     replies,
		Ledger:           ledger,
	})
	ingestDeps.RuleEngine = engine

	return &harness{
		store:      store,
		dispatcher: dispatcher,
		ledger:     ledger,
		messages:   messages,
		replies:    replies,
		engine:     engine,
		ingest:     NewIngestionService(ingestDeps),
		rules:      NewRuleService(RuleDependencies{RuleRepo: store.Rules(), Now: clock.Now}),
	}
}

func (h *harness) addRule(t *testing.T, name string, priority int, conditions []domain.Condition, actions ...domain.Action) *domain.Rule {
	t.Helper()
	rule, err := h.rules.Create(context.Background(), RuleInput{
		Name:       name,
		Conditions: conditions,
		Actions:    actions,
		Priority:   &priority,
	})
	require.NoError(t, err)
	return rule
}

func (h *harness) eventsOf(t *testing.T, types ...domain.EventType) []domain.Event {
	t.Helper()
	all, err := h.store.Events().List(context.Background())
	require.NoError(t, err)
	want := make(map[domain.EventType]bool, len(types))
	for _, typ := range types {
		want[typ] = true
	}
	var out []domain.Event
	for _, e := range all {
		if len(want) == 0 || want[e.Type] {
			out = append(out, e)
		}
	}
	return out
}

func keyword(v string) []domain.Condition {
	return []domain.Condition{domain.KeywordCondition{Value: v}}
}

func inbound(content, contactID string) IngestInput {
	return IngestInput{Content: content, Channel: domain.ChannelWeb, ContactID: contactID}
}
