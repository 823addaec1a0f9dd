package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/guest-inbox/internal/domain"
	apperrors "github.com/spec-kit/guest-inbox/pkg/util/errorutil"
)

func TestIngestWelcomeRuleEndToEnd(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.addRule(t, "Welcome", 1, keyword("hi"), domain.TemplateReplyAction{Template: "Welcome!"})

	result, err := h.ingest.Ingest(ctx, IngestInput{Content: "hi there", Channel: domain.ChannelWeb, ContactID: "c1"})
	require.NoError(t, err)

	assert.True(t, result.ConversationCreated)
	assert.Equal(t, 1, result.RulesEvaluated)
	assert.Equal(t, 1, result.RulesMatched)
	require.Len(t, result.AutoReplies, 1)
	assert.Equal(t, "Welcome!", result.AutoReplies[0].Reply)

	thread, err := h.messages.GetConversation(ctx, result.Conversation.ID)
	require.NoError(t, err)
	require.Len(t, thread.Messages, 2)
	assert.Equal(t, domain.DirectionIncoming, thread.Messages[0].Direction)
	assert.Equal(t, "hi there", thread.Messages[0].Content)
	assert.Equal(t, domain.DirectionOutgoing, thread.Messages[1].Direction)
	assert.Equal(t, "Welcome!", thread.Messages[1].Content)
	assert.Equal(t, "New web conversation", thread.Conversation.SubjectOrEmpty())

	var types []domain.EventType
	for _, e := range h.eventsOf(t) {
		types = append(types, e.Type)
	}
	assert.Equal(t, []domain.EventType{
		domain.EventConversationStarted,
		domain.EventMessageReceived,
		domain.EventRuleTriggered,
		domain.EventMessageSent,
		domain.EventRuleExecuted,
	}, types)
}

func TestIngestAppendsMessageOnceAndLast(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	first, err := h.ingest.Ingest(ctx, inbound("first", "guest-1"))
	require.NoError(t, err)
	second, err := h.ingest.Ingest(ctx, inbound("  second  ", "guest-1"))
	require.NoError(t, err)

	assert.Equal(t, first.Conversation.ID, second.Conversation.ID)
	assert.False(t, second.ConversationCreated)
	assert.Equal(t, "second", second.Message.Content)

	msgs, err := h.store.Messages().ListByConversation(ctx, first.Conversation.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, second.Message.ID, msgs[len(msgs)-1].ID)

	conv, err := h.store.Conversations().GetByID(ctx, first.Conversation.ID)
	require.NoError(t, err)
	assert.Equal(t, second.Message.CreatedAt, conv.UpdatedAt)

	started := h.eventsOf(t, domain.EventConversationStarted)
	assert.Len(t, started, 1)
	received := h.eventsOf(t, domain.EventMessageReceived)
	require.Len(t, received, 2)
	assert.Equal(t, second.Message.ID, received[1].PayloadString("messageId"))
	assert.Equal(t, "WEB", received[1].PayloadString("channel"))
}

func TestIngestDoesNotReuseClosedConversations(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	first, err := h.ingest.Ingest(ctx, inbound("hello", "guest-1"))
	require.NoError(t, err)
	_, err = h.messages.UpdateStatus(ctx, first.Conversation.ID, domain.ConversationStatusClosed)
	require.NoError(t, err)

	second, err := h.ingest.Ingest(ctx, inbound("hello again", "guest-1"))
	require.NoError(t, err)
	assert.NotEqual(t, first.Conversation.ID, second.Conversation.ID)
	assert.True(t, second.ConversationCreated)

	other, err := h.ingest.Ingest(ctx, IngestInput{Content: "hello", Channel: domain.ChannelEmail, ContactID: "guest-1"})
	require.NoError(t, err)
	assert.NotEqual(t, second.Conversation.ID, other.Conversation.ID, "channels do not share conversations")
}

func TestIngestExplicitConversation(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	first, err := h.ingest.Ingest(ctx, IngestInput{Content: "hello", Channel: domain.ChannelWhatsApp, ContactID: "+1555"})
	require.NoError(t, err)

	id := first.Conversation.ID
	// The channel on the request is ignored in favour of the conversation's.
	res, err := h.ingest.Ingest(ctx, IngestInput{Content: "follow-up", Channel: domain.ChannelWeb, ContactID: "+1555", ConversationID: &id})
	require.NoError(t, err)
	assert.Equal(t, id, res.Conversation.ID)
	assert.Equal(t, domain.ChannelWhatsApp, res.Message.Channel)

	missing := "does-not-exist"
	_, err = h.ingest.Ingest(ctx, IngestInput{Content: "x", Channel: domain.ChannelWeb, ContactID: "a", ConversationID: &missing})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestIngestValidation(t *testing.T) {
	h := newHarness(t)
	tests := []struct {
		name  string
		input IngestInput
	}{
		{"blank content", IngestInput{Content: "   ", Channel: domain.ChannelWeb, ContactID: "c1"}},
		{"missing channel", IngestInput{Content: "hi", ContactID: "c1"}},
		{"unknown channel", IngestInput{Content: "hi", Channel: "SMS", ContactID: "c1"}},
		{"missing contact", IngestInput{Content: "hi", Channel: domain.ChannelWeb}},
		{"bad direction", IngestInput{Content: "hi", Channel: domain.ChannelWeb, ContactID: "c1", Direction: "SIDEWAYS"}},
		{"unknown content type", IngestInput{Content: "hi", Channel: domain.ChannelWeb, ContactID: "c1", ContentType: "HOLOGRAM"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.ingest.Ingest(context.Background(), tc.input)
			assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation), "got %v", err)
		})
	}
	assert.Empty(t, h.eventsOf(t))
}

func TestIngestOutboundSkipsRules(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.addRule(t, "Welcome", 1, keyword("hi"), domain.TemplateReplyAction{Template: "Welcome!"})

	res, err := h.ingest.Ingest(ctx, IngestInput{Direction: domain.DirectionOutgoing, Content: "hi from staff", Channel: domain.ChannelWeb, ContactID: "c1"})
	require.NoError(t, err)
	assert.Zero(t, res.RulesEvaluated)
	assert.Empty(t, res.AutoReplies)
	assert.Empty(t, h.eventsOf(t, domain.EventRuleTriggered))
	assert.Len(t, h.eventsOf(t, domain.EventMessageSent), 1)
}

func TestIngestPriorityOrderAndCoFiring(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	low := h.addRule(t, "Welcome", 1, keyword("hi"), domain.TemplateReplyAction{Template: "Welcome!"})
	high := h.addRule(t, "Urgent", 10, keyword("urgent"), domain.TemplateReplyAction{Template: "On it."})
	h.addRule(t, "Checkout", 5, keyword("checkout"), domain.TemplateReplyAction{Template: "11 AM."})

	res, err := h.ingest.Ingest(ctx, inbound("hi, urgent help needed", "guest-9"))
	require.NoError(t, err)

	assert.Equal(t, 3, res.RulesEvaluated)
	assert.Equal(t, 2, res.RulesMatched)
	require.Len(t, res.AutoReplies, 2)
	assert.Equal(t, "On it.", res.AutoReplies[0].Reply)
	assert.Equal(t, "Welcome!", res.AutoReplies[1].Reply)

	triggered := h.eventsOf(t, domain.EventRuleTriggered)
	require.Len(t, triggered, 2)
	assert.Equal(t, high.ID, *triggered[0].RuleID)
	assert.Equal(t, low.ID, *triggered[1].RuleID)

	assert.Equal(t, "Urgent", res.Evaluations[0].RuleName)
	assert.False(t, res.Evaluations[1].Matched)
}

type countingLocker struct {
	mu       sync.Mutex
	acquired []string
	released int
	fail     error
}

func (l *countingLocker) Acquire(_ context.Context, key string, _ time.Duration) (func(context.Context) error, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fail != nil {
		return nil, l.fail
	}
	l.acquired = append(l.acquired, key)
	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.released++
		return nil
	}, nil
}

func TestIngestResolutionLock(t *testing.T) {
	ctx := context.Background()
	locker := &countingLocker{}
	h := newHarness(t, withLocker(locker))

	_, err := h.ingest.Ingest(ctx, inbound("hello", "guest-1"))
	require.NoError(t, err)
	assert.Equal(t, []string{"resolve:WEB:guest-1"}, locker.acquired)
	assert.Equal(t, 1, locker.released)

	locker.fail = errors.New("redis down")
	_, err = h.ingest.Ingest(ctx, inbound("hello", "guest-1"))
	assert.ErrorContains(t, err, "redis down")
}
