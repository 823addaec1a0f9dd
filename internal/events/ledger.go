package events

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/guest-inbox/internal/domain"
	"github.com/spec-kit/guest-inbox/internal/repository"
)

// Ledger appends events to the store and fans them out to subscribers.
type Ledger struct {
	repo       repository.EventRepository
	dispatcher Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// LedgerDependencies wires a Ledger.
type LedgerDependencies struct {
	Events     repository.EventRepository
	Dispatcher Dispatcher
	Logger     *zap.Logger
	Now        func() time.Time
}

// NewLedger builds a Ledger. Dispatcher and Now are optional.
func NewLedger(deps LedgerDependencies) *Ledger {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Ledger{repo: deps.Events, dispatcher: deps.Dispatcher, logger: logger, now: now}
}

// Record persists the event and then publishes it.
// A persist failure is returned; subscriber failures are only logged.
func (l *Ledger) Record(ctx context.Context, event domain.Event) (*domain.Event, error) {
	if !event.Type.Valid() {
		return nil, fmt.Errorf("record event: unknown type %q", event.Type)
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = l.now().UTC()
	}
	if event.Payload == nil {
		event.Payload = map[string]any{}
	}

	if err := l.repo.Append(ctx, &event); err != nil {
		return nil, fmt.Errorf("record %s: %w", event.Type, err)
	}

	if l.dispatcher != nil {
		if err := l.dispatcher.Publish(ctx, event); err != nil {
			l.logger.Warn("event subscriber failed",
				zap.String("event_id", event.ID),
				zap.String("event_type", string(event.Type)),
				zap.Error(err),
			)
		}
	}
	return &event, nil
}

// MessageReceived records an inbound message.
func (l *Ledger) MessageReceived(ctx context.Context, conv *domain.Conversation, msg *domain.Message, source string) error {
	_, err := l.Record(ctx, domain.Event{
		Type:           domain.EventMessageReceived,
		ConversationID: &conv.ID,
		Payload: map[string]any{
			"messageId": msg.ID,
			"channel":   string(msg.Channel),
			"contactId": conv.ContactID,
			"source":    source,
		},
	})
	return err
}

// MessageSent records an outgoing message.
func (l *Ledger) MessageSent(ctx context.Context, conv *domain.Conversation, msg *domain.Message) error {
	_, err := l.Record(ctx, domain.Event{
		Type:           domain.EventMessageSent,
		ConversationID: &conv.ID,
		Payload: map[string]any{
			"messageId": msg.ID,
			"channel":   string(msg.Channel),
		},
	})
	return err
}

// ConversationStarted records a newly opened conversation.
func (l *Ledger) ConversationStarted(ctx context.Context, conv *domain.Conversation, source string) error {
	_, err := l.Record(ctx, domain.Event{
		Type:           domain.EventConversationStarted,
		ConversationID: &conv.ID,
		Payload: map[string]any{
			"channel":   string(conv.Channel),
			"contactId": conv.ContactID,
			"source":    source,
		},
	})
	return err
}

// ConversationResolved records a conversation moving to CLOSED.
func (l *Ledger) ConversationResolved(ctx context.Context, conv *domain.Conversation, at time.Time) error {
	_, err := l.Record(ctx, domain.Event{
		Type:           domain.EventConversationResolved,
		ConversationID: &conv.ID,
		Payload: map[string]any{
			"resolvedAt": at.UTC().Format(time.RFC3339Nano),
		},
	})
	return err
}

// RuleTriggered records a rule whose conditions all matched.
func (l *Ledger) RuleTriggered(ctx context.Context, conversationID string, rule *domain.Rule, messageID string) error {
	_, err := l.Record(ctx, domain.Event{
		Type:           domain.EventRuleTriggered,
		ConversationID: &conversationID,
		RuleID:         &rule.ID,
		Payload: map[string]any{
			"ruleName":  rule.Name,
			"messageId": messageID,
		},
	})
	return err
}

// RuleExecuted records the actions a triggered rule completed.
func (l *Ledger) RuleExecuted(ctx context.Context, conversationID string, rule *domain.Rule, executed []domain.ActionType) error {
	names := make([]string, 0, len(executed))
	for _, t := range executed {
		names = append(names, string(t))
	}
	_, err := l.Record(ctx, domain.Event{
		Type:           domain.EventRuleExecuted,
		ConversationID: &conversationID,
		RuleID:         &rule.ID,
		Payload: map[string]any{
			"ruleName":        rule.Name,
			"actionsExecuted": names,
		},
	})
	return err
}

// AIResponseGenerated records a generated reply. ruleID is nil for manual suggestions.
func (l *Ledger) AIResponseGenerated(ctx context.Context, conversationID string, ruleID *string, source, text string, isMock bool) error {
	payload := map[string]any{
		"source": source,
		"isMock": isMock,
	}
	if source == domain.AISourceManual {
		payload["suggestion"] = text
	} else {
		payload["reply"] = text
	}
	_, err := l.Record(ctx, domain.Event{
		Type:           domain.EventAIResponseGenerated,
		ConversationID: &conversationID,
		RuleID:         ruleID,
		Payload:        payload,
	})
	return err
}

// AgentAssigned records a staff member taking a conversation.
func (l *Ledger) AgentAssigned(ctx context.Context, conversationID, agentID string) error {
	_, err := l.Record(ctx, domain.Event{
		Type:           domain.EventAgentAssigned,
		ConversationID: &conversationID,
		Payload: map[string]any{
			"agentId": agentID,
		},
	})
	return err
}
