package domain

import "time"

// EventType enumerates ledger entries. The set is closed.
type EventType string

const (
	EventMessageReceived      EventType = "MESSAGE_RECEIVED"
	EventMessageSent          EventType = "MESSAGE_SENT"
	EventConversationStarted  EventType = "CONVERSATION_STARTED"
	EventConversationResolved EventType = "CONVERSATION_RESOLVED"
	EventRuleTriggered        EventType = "RULE_TRIGGERED"
	EventRuleExecuted         EventType = "RULE_EXECUTED"
	EventAIResponseGenerated  EventType = "AI_RESPONSE_GENERATED"
	EventAgentAssigned        EventType = "AGENT_ASSIGNED"
)

// Valid reports whether t belongs to the closed set.
func (t EventType) Valid() bool {
	switch t {
	case EventMessageReceived, EventMessageSent, EventConversationStarted, EventConversationResolved,
		EventRuleTriggered, EventRuleExecuted, EventAIResponseGenerated, EventAgentAssigned:
		return true
	}
	return false
}

// AI response sources recorded in AI_RESPONSE_GENERATED payloads.
const (
	AISourceManual = "manual"
	AISourceRule   = "rule"
)

// Event is an append-only ledger record and the only input to analytics.
type Event struct {
	ID             string
	Type           EventType
	ConversationID *string
	RuleID         *string
	Payload        map[string]any
	CreatedAt      time.Time
}

// PayloadString returns payload[key] when it is a string.
func (e *Event) PayloadString(key string) string {
	if e.Payload == nil {
		return ""
	}
	if v, ok := e.Payload[key].(string); ok {
		return v
	}
	return ""
}
