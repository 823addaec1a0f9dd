package dto

import (
	"time"

	"github.com/spec-kit/guest-inbox/internal/domain"
)

// ConversationResponse renders a conversation.
type ConversationResponse struct {
	ID          string                    `json:"id"`
	ContactID   string                    `json:"contactId"`
	Channel     domain.Channel            `json:"channel"`
	Status      domain.ConversationStatus `json:"status"`
	Subject     *string                   `json:"subject"`
	Metadata    map[string]any            `json:"metadata"`
	CreatedAt   time.Time                 `json:"createdAt"`
	UpdatedAt   time.Time                 `json:"updatedAt"`
	LastMessage *MessageResponse          `json:"lastMessage,omitempty"`
}

// ConversationDetailResponse is a conversation with its thread.
type ConversationDetailResponse struct {
	ConversationResponse
	Messages []MessageResponse `json:"messages"`
}

// UpdateStatusRequest changes a conversation's status.
type UpdateStatusRequest struct {
	Status domain.ConversationStatus `json:"status"`
}

// AssignRequest hands a conversation to a staff member.
type AssignRequest struct {
	AgentID string `json:"agentId"`
}

// SuggestionResponse is a drafted reply.
type SuggestionResponse struct {
	Suggestion string `json:"suggestion"`
	IsMock     bool   `json:"isMock"`
}
