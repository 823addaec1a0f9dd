package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/guest-inbox/internal/domain"
	"github.com/spec-kit/guest-inbox/internal/repository/memory"
)

type failingRepo struct{}

func (failingRepo) Append(context.Context, *domain.Event) error { return errors.New("disk full") }
func (failingRepo) List(context.Context) ([]domain.Event, error) { return nil, nil }

func fixedNow() time.Time { return time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC) }

func TestLedgerRecord(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	dispatcher := NewInMemoryDispatcher()

	var seen []domain.EventType
	dispatcher.Subscribe(domain.EventMessageSent, func(_ context.Context, e domain.Event) error {
		seen = append(seen, e.Type)
		return errors.New("subscriber down")
	})

	ledger := NewLedger(LedgerDependencies{Events: store.Events(), Dispatcher: dispatcher, Now: fixedNow})

	conv := &domain.Conversation{ID: "c1", ContactID: "guest-1", Channel: domain.ChannelWeb}
	msg := &domain.Message{ID: "m1", Channel: domain.ChannelWeb}
	require.NoError(t, ledger.MessageSent(ctx, conv, msg), "subscriber errors must not surface")

	events, err := store.Events().List(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.NotEmpty(t, events[0].ID)
	assert.Equal(t, fixedNow(), events[0].CreatedAt)
	assert.Equal(t, "m1", events[0].PayloadString("messageId"))
	assert.Equal(t, "WEB", events[0].PayloadString("channel"))
	assert.Equal(t, []domain.EventType{domain.EventMessageSent}, seen)
}

func TestLedgerRejectsUnknownType(t *testing.T) {
	ledger := NewLedger(LedgerDependencies{Events: memory.NewStore().Events()})
	_, err := ledger.Record(context.Background(), domain.Event{Type: "TICKET_CREATED"})
	assert.Error(t, err)
}

func TestLedgerPersistFailureIsReturned(t *testing.T) {
	published := false
	dispatcher := NewInMemoryDispatcher()
	dispatcher.Subscribe(domain.EventRuleTriggered, func(context.Context, domain.Event) error {
		published = true
		return nil
	})
	ledger := NewLedger(LedgerDependencies{Events: failingRepo{}, Dispatcher: dispatcher})

	err := ledger.RuleTriggered(context.Background(), "c1", &domain.Rule{ID: "r1", Name: "Welcome"}, "m1")
	assert.ErrorContains(t, err, "disk full")
	assert.False(t, published)
}

func TestRuleExecutedPayload(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	ledger := NewLedger(LedgerDependencies{Events: store.Events()})

	rule := &domain.Rule{ID: "r1", Name: "Urgent"}
	require.NoError(t, ledger.RuleExecuted(ctx, "c1", rule, []domain.ActionType{domain.ActionTypeTag, domain.ActionTypeEscalate}))

	events, err := store.Events().List(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.NotNil(t, events[0].RuleID)
	assert.Equal(t, "r1", *events[0].RuleID)
	assert.Equal(t, []string{"tag", "escalate"}, events[0].Payload["actionsExecuted"])
}
