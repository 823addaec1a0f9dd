package domain

import (
	"fmt"
	"strings"
	"time"
)

// Channel is the transport a conversation runs on.
type Channel string

const (
	ChannelWeb      Channel = "WEB"
	ChannelWhatsApp Channel = "WHATSAPP"
	ChannelEmail    Channel = "EMAIL"
)

// Channels lists every supported channel in display order.
var Channels = []Channel{ChannelWeb, ChannelWhatsApp, ChannelEmail}

// Valid reports whether c is one of the supported channels.
func (c Channel) Valid() bool {
	switch c {
	case ChannelWeb, ChannelWhatsApp, ChannelEmail:
		return true
	}
	return false
}

// ConversationStatus enumerates lifecycle states for conversations.
type ConversationStatus string

const (
	ConversationStatusOpen     ConversationStatus = "OPEN"
	ConversationStatusPending  ConversationStatus = "PENDING"
	ConversationStatusClosed   ConversationStatus = "CLOSED"
	ConversationStatusArchived ConversationStatus = "ARCHIVED"
)

// Valid reports whether s is a known status.
func (s ConversationStatus) Valid() bool {
	switch s {
	case ConversationStatusOpen, ConversationStatusPending, ConversationStatusClosed, ConversationStatusArchived:
		return true
	}
	return false
}

// Active reports whether new inbound messages may be threaded into the conversation.
func (s ConversationStatus) Active() bool {
	return s == ConversationStatusOpen || s == ConversationStatusPending
}

// Conversation is the running thread with one contact on one channel.
// Channel never changes after creation.
type Conversation struct {
	ID        string
	ContactID string
	Channel   Channel
	Status    ConversationStatus
	Subject   *string
	Metadata  map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SubjectOrEmpty returns the subject, or "" when unset.
func (c *Conversation) SubjectOrEmpty() string {
	if c.Subject == nil {
		return ""
	}
	return *c.Subject
}

// DefaultSubject is the subject given to conversations opened without one.
func DefaultSubject(channel Channel) string {
	return fmt.Sprintf("New %s conversation", strings.ToLower(string(channel)))
}
