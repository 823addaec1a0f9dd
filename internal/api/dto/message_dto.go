package dto

import (
	"time"

	"github.com/spec-kit/guest-inbox/internal/domain"
)

// IngestMessageRequest is the inbound webhook payload.
type IngestMessageRequest struct {
	Content        string             `json:"content"`
	Channel        domain.Channel     `json:"channel"`
	ContactID      string             `json:"contactId"`
	ConversationID *string            `json:"conversationId"`
	Subject        *string            `json:"subject"`
	Metadata       map[string]any     `json:"metadata"`
	Direction      domain.Direction   `json:"direction"`
	ContentType    domain.ContentType `json:"contentType"`
}

// IngestMessageResponse reports the stored message and automation outcome.
type IngestMessageResponse struct {
	Message             MessageResponse          `json:"message"`
	ConversationID      string                   `json:"conversationId"`
	ConversationCreated bool                     `json:"conversationCreated"`
	RulesEvaluated      int                      `json:"rulesEvaluated"`
	RulesMatched        int                      `json:"rulesMatched"`
	AutoReplies         []AutoReplyResponse      `json:"autoReplies"`
	Evaluations         []RuleEvaluationResponse `json:"evaluations"`
}

// SendMessageRequest is a staff reply.
type SendMessageRequest struct {
	Content string `json:"content"`
}

// MessageResponse renders a message.
type MessageResponse struct {
	ID             string             `json:"id"`
	ConversationID string             `json:"conversationId"`
	Channel        domain.Channel     `json:"channel"`
	Direction      domain.Direction   `json:"direction"`
	Content        string             `json:"content"`
	ContentType    domain.ContentType `json:"contentType"`
	Metadata       map[string]any     `json:"metadata"`
	CreatedAt      time.Time          `json:"createdAt"`
}

// AutoReplyResponse is one rule-generated reply.
type AutoReplyResponse struct {
	RuleID    string `json:"ruleId"`
	RuleName  string `json:"ruleName"`
	MessageID string `json:"messageId"`
	Reply     string `json:"reply"`
}

// RuleEvaluationResponse is the per-rule evaluation outcome.
type RuleEvaluationResponse struct {
	RuleID         string  `json:"ruleId"`
	RuleName       string  `json:"ruleName"`
	Matched        bool    `json:"matched"`
	GeneratedReply *string `json:"generatedReply,omitempty"`
}

// EvaluationResponse is returned by direct rule evaluation.
type EvaluationResponse struct {
	MessageID      string                   `json:"messageId"`
	ConversationID string                   `json:"conversationId"`
	RulesEvaluated int                      `json:"rulesEvaluated"`
	RulesMatched   int                      `json:"rulesMatched"`
	Results        []RuleEvaluationResponse `json:"results"`
	AutoReplies    []AutoReplyResponse      `json:"autoReplies"`
}
