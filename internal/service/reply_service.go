package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/guest-inbox/internal/ai"
	"github.com/spec-kit/guest-inbox/internal/domain"
	"github.com/spec-kit/guest-inbox/internal/events"
	"github.com/spec-kit/guest-inbox/internal/repository"
	apperrors "github.com/spec-kit/guest-inbox/pkg/util/errorutil"
)

const (
	defaultReplyTimeout = 30 * time.Second
	defaultReplyHistory = 10
)

// ReplyService generates reply suggestions with a bounded completion call.
type ReplyService struct {
	conversations repository.ConversationRepository
	messages      repository.MessageRepository
	completer     ai.Completer
	ledger        *events.Ledger
	logger        *zap.Logger
	timeout       time.Duration
	history       int
	mockFallback  bool
}

// ReplyDependencies wires the reply service. A nil Completer means no backend is configured.
type ReplyDependencies struct {
	ConversationRepo repository.ConversationRepository
	MessageRepo      repository.MessageRepository
	Completer        ai.Completer
	Ledger           *events.Ledger
	Logger           *zap.Logger
	Timeout          time.Duration
	History          int
	MockFallback     bool
}

// Suggestion is a generated reply.
type Suggestion struct {
	Text   string
	IsMock bool
}

// NewReplyService constructs the service.
func NewReplyService(deps ReplyDependencies) *ReplyService {
	timeout := deps.Timeout
	if timeout <= 0 {
		timeout = defaultReplyTimeout
	}
	history := deps.History
	if history <= 0 {
		history = defaultReplyHistory
	}
	return &ReplyService{
		conversations: deps.ConversationRepo,
		messages:      deps.MessageRepo,
		completer:     deps.Completer,
		ledger:        deps.Ledger,
		logger:        nopIfNil(deps.Logger),
		timeout:       timeout,
		history:       history,
		mockFallback:  deps.MockFallback,
	}
}

// Suggest drafts a reply for staff from the latest messages and records
// AI_RESPONSE_GENERATED with source "manual".
func (s *ReplyService) Suggest(ctx context.Context, conversationID string) (*Suggestion, error) {
	conv, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return nil, lookupError(err, "conversation", conversationID)
	}
	msgs, err := s.messages.ListRecent(ctx, conversationID, s.history)
	if err != nil {
		return nil, err
	}

	suggestion, err := s.Complete(ctx, conv, msgs)
	if err != nil {
		return nil, err
	}

	if err := s.ledger.AIResponseGenerated(ctx, conv.ID, nil, domain.AISourceManual, suggestion.Text, suggestion.IsMock); err != nil {
		return nil, err
	}
	return suggestion, nil
}

// Complete runs one completion over msgs. It records no event.
func (s *ReplyService) Complete(ctx context.Context, conv *domain.Conversation, msgs []domain.Message) (*Suggestion, error) {
	if len(msgs) == 0 {
		return nil, apperrors.NewValidationError("No messages in conversation", map[string]any{"conversation_id": conv.ID})
	}

	transcript := ai.Transcript(msgs)
	if s.completer == nil {
		return s.fallback(transcript, ai.ErrNotConfigured)
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	text, err := s.completer.Complete(callCtx, ai.SystemPrompt, ai.UserPrompt(conv.Channel, transcript))
	if err != nil {
		switch {
		case errors.Is(err, ai.ErrNotConfigured):
			return s.fallback(transcript, err)
		case errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded):
			s.logger.Warn("reply generation timed out", zap.String("conversation_id", conv.ID), zap.Duration("timeout", s.timeout))
			return nil, apperrors.NewTimeoutError(err)
		default:
			s.logger.Error("reply generation failed", zap.String("conversation_id", conv.ID), zap.Error(err))
			return nil, apperrors.NewUpstreamError(err)
		}
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.NewEmptyResponseError()
	}
	return &Suggestion{Text: text}, nil
}

func (s *ReplyService) fallback(transcript string, cause error) (*Suggestion, error) {
	if !s.mockFallback {
		return nil, apperrors.NewConfigurationError(cause)
	}
	return &Suggestion{Text: ai.MockSuggestion(transcript), IsMock: true}, nil
}
