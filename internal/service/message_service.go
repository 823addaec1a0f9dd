package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/guest-inbox/internal/domain"
	"github.com/spec-kit/guest-inbox/internal/events"
	"github.com/spec-kit/guest-inbox/internal/repository"
	apperrors "github.com/spec-kit/guest-inbox/pkg/util/errorutil"
)

// Metadata keys written on conversations.
const (
	MetaTags        = "tags"
	MetaEscalated   = "escalated"
	MetaEscalatedAt = "escalatedAt"
	MetaAssignedTo  = "assignedTo"
)

// MessageService owns conversations and their message threads.
type MessageService struct {
	conversations repository.ConversationRepository
	messages      repository.MessageRepository
	ledger        *events.Ledger
	logger        *zap.Logger
	now           func() time.Time

	// metaLocks serialises metadata read-modify-write per conversation.
	metaLocks sync.Map
}

// MessageDependencies bundles repositories for the message service.
type MessageDependencies struct {
	ConversationRepo repository.ConversationRepository
	MessageRepo      repository.MessageRepository
	Ledger           *events.Ledger
	Logger           *zap.Logger
	Now              func() time.Time
}

// AppendInput describes one message added to a known conversation.
type AppendInput struct {
	Direction   domain.Direction
	Content     string
	ContentType domain.ContentType
	Metadata    map[string]any
	// Source is recorded on MESSAGE_RECEIVED, e.g. "api".
	Source string
}

// ConversationSummary is an inbox row.
type ConversationSummary struct {
	Conversation domain.Conversation
	LastMessage  *domain.Message
}

// ConversationThread is a conversation with its ordered messages.
type ConversationThread struct {
	Conversation domain.Conversation
	Messages     []domain.Message
}

// NewMessageService constructs the service.
func NewMessageService(deps MessageDependencies) *MessageService {
	return &MessageService{
		conversations: deps.ConversationRepo,
		messages:      deps.MessageRepo,
		ledger:        deps.Ledger,
		logger:        nopIfNil(deps.Logger),
		now:           clockOrDefault(deps.Now),
	}
}

// Append persists a message, bumps the conversation and records the matching event.
// The steps run in order and are not rolled back if a later one fails.
func (s *MessageService) Append(ctx context.Context, conv *domain.Conversation, input AppendInput) (*domain.Message, error) {
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, apperrors.NewValidationError("content is required", map[string]any{"field": "content"})
	}
	direction := input.Direction
	if direction == "" {
		direction = domain.DirectionIncoming
	}
	contentType := input.ContentType
	if contentType == "" {
		contentType = domain.ContentTypeText
	}

	msg := &domain.Message{
		ID:             uuid.NewString(),
		ConversationID: conv.ID,
		Channel:        conv.Channel,
		Direction:      direction,
		Content:        content,
		ContentType:    contentType,
		Metadata:       input.Metadata,
		CreatedAt:      s.now().UTC(),
	}
	if msg.Metadata == nil {
		msg.Metadata = map[string]any{}
	}

	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, err
	}
	if err := s.conversations.Touch(ctx, conv.ID, msg.CreatedAt); err != nil {
		return nil, lookupError(err, "conversation", conv.ID)
	}
	if msg.CreatedAt.After(conv.UpdatedAt) {
		conv.UpdatedAt = msg.CreatedAt
	}

	var err error
	if direction == domain.DirectionIncoming {
		err = s.ledger.MessageReceived(ctx, conv, msg, input.Source)
	} else {
		err = s.ledger.MessageSent(ctx, conv, msg)
	}
	if err != nil {
		s.logger.Error("message persisted without event",
			zap.String("message_id", msg.ID),
			zap.String("conversation_id", conv.ID),
			zap.Error(err),
		)
		return msg, err
	}
	return msg, nil
}

// SendOutbound appends a staff reply. It never triggers rule evaluation.
func (s *MessageService) SendOutbound(ctx context.Context, conversationID, content string) (*domain.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, apperrors.NewValidationError("content is required", map[string]any{"field": "content"})
	}
	conv, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return nil, lookupError(err, "conversation", conversationID)
	}
	return s.Append(ctx, conv, AppendInput{
		Direction: domain.DirectionOutgoing,
		Content:   content,
		Metadata:  map[string]any{"source": "staff"},
	})
}

// ListConversations returns inbox rows, most recently updated first.
func (s *MessageService) ListConversations(ctx context.Context, filter repository.ConversationFilter) ([]ConversationSummary, error) {
	convs, err := s.conversations.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]ConversationSummary, 0, len(convs))
	for _, conv := range convs {
		recent, err := s.messages.ListRecent(ctx, conv.ID, 1)
		if err != nil {
			return nil, err
		}
		summary := ConversationSummary{Conversation: conv}
		if len(recent) > 0 {
			last := recent[0]
			summary.LastMessage = &last
		}
		out = append(out, summary)
	}
	return out, nil
}

// GetConversation loads a conversation and its ordered messages.
func (s *MessageService) GetConversation(ctx context.Context, id string) (*ConversationThread, error) {
	conv, err := s.conversations.GetByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "conversation", id)
	}
	msgs, err := s.messages.ListByConversation(ctx, id)
	if err != nil {
		return nil, err
	}
	return &ConversationThread{Conversation: *conv, Messages: msgs}, nil
}

// UpdateStatus moves a conversation through its lifecycle.
// Closing a conversation records CONVERSATION_RESOLVED.
func (s *MessageService) UpdateStatus(ctx context.Context, id string, status domain.ConversationStatus) (*domain.Conversation, error) {
	if !status.Valid() {
		return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": status})
	}
	conv, err := s.conversations.GetByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "conversation", id)
	}
	if conv.Status == status {
		return conv, nil
	}

	at := s.now().UTC()
	if err := s.conversations.UpdateStatus(ctx, id, status, at); err != nil {
		return nil, lookupError(err, "conversation", id)
	}
	conv.Status = status
	if at.After(conv.UpdatedAt) {
		conv.UpdatedAt = at
	}

	if status == domain.ConversationStatusClosed {
		if err := s.ledger.ConversationResolved(ctx, conv, at); err != nil {
			return nil, err
		}
	}
	return conv, nil
}

// AddTag records tag in the conversation metadata. Tags are kept unique.
func (s *MessageService) AddTag(ctx context.Context, conversationID, tag string) error {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return apperrors.NewValidationError("tag name is required", nil)
	}
	return s.updateMetadata(ctx, conversationID, func(meta map[string]any) {
		tags := tagsOf(meta)
		for _, existing := range tags {
			if existing == tag {
				return
			}
		}
		meta[MetaTags] = append(tags, tag)
	})
}

// Escalate flags the conversation for staff attention.
func (s *MessageService) Escalate(ctx context.Context, conversationID string) error {
	at := s.now().UTC()
	return s.updateMetadata(ctx, conversationID, func(meta map[string]any) {
		meta[MetaEscalated] = true
		meta[MetaEscalatedAt] = at.Format(time.RFC3339Nano)
	})
}

// Assign hands the conversation to a staff member and records AGENT_ASSIGNED.
func (s *MessageService) Assign(ctx context.Context, conversationID, agentID string) error {
	agentID = strings.TrimSpace(agentID)
	if agentID == "" {
		return apperrors.NewValidationError("agentId is required", map[string]any{"field": "agentId"})
	}
	if err := s.updateMetadata(ctx, conversationID, func(meta map[string]any) {
		meta[MetaAssignedTo] = agentID
	}); err != nil {
		return err
	}
	return s.ledger.AgentAssigned(ctx, conversationID, agentID)
}

func (s *MessageService) updateMetadata(ctx context.Context, conversationID string, mutate func(map[string]any)) error {
	lock, _ := s.metaLocks.LoadOrStore(conversationID, &sync.Mutex{})
	mu := lock.(*sync.Mutex)
	mu.Lock()
	defer mu.Unlock()

	conv, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return lookupError(err, "conversation", conversationID)
	}
	meta := make(map[string]any, len(conv.Metadata)+1)
	for k, v := range conv.Metadata {
		meta[k] = v
	}
	mutate(meta)
	if err := s.conversations.UpdateMetadata(ctx, conversationID, meta, s.now().UTC()); err != nil {
		return lookupError(err, "conversation", conversationID)
	}
	return nil
}

// tagsOf reads tags from metadata, accepting both decoded JSON and native slices.
func tagsOf(meta map[string]any) []string {
	switch v := meta[MetaTags].(type) {
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
