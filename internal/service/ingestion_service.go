package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/guest-inbox/internal/domain"
	"github.com/spec-kit/guest-inbox/internal/events"
	"github.com/spec-kit/guest-inbox/internal/repository"
	apperrors "github.com/spec-kit/guest-inbox/pkg/util/errorutil"
)

// SourceAPI marks messages that arrived through the ingestion endpoint.
const SourceAPI = "api"

// IngestionService resolves the conversation for a message, stores it and,
// for inbound messages, runs the rule engine.
type IngestionService struct {
	conversations repository.ConversationRepository
	threads       *MessageService
	engine        *RuleEngine
	ledger        *events.Ledger
	locker        Locker
	lockTTL       time.Duration
	logger        *zap.Logger
	now           func() time.Time
}

// IngestionDependencies wires the pipeline. Locker is optional.
type IngestionDependencies struct {
	ConversationRepo repository.ConversationRepository
	MessageService   *MessageService
	RuleEngine       *RuleEngine
	Ledger           *events.Ledger
	Locker           Locker
	LockTTL          time.Duration
	Logger           *zap.Logger
	Now              func() time.Time
}

// IngestInput is one message from an external system.
type IngestInput struct {
	Direction      domain.Direction
	Content        string
	ContentType    domain.ContentType
	Channel        domain.Channel
	ContactID      string
	ConversationID *string
	Subject        *string
	Metadata       map[string]any
}

// IngestResult reports the stored message and the automation outcome.
type IngestResult struct {
	Message             *domain.Message
	Conversation        *domain.Conversation
	ConversationCreated bool
	RulesEvaluated      int
	RulesMatched        int
	Evaluations         []RuleEvaluation
	AutoReplies         []AutoReply
}

// NewIngestionService constructs the pipeline.
func NewIngestionService(deps IngestionDependencies) *IngestionService {
	ttl := deps.LockTTL
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &IngestionService{
		conversations: deps.ConversationRepo,
		threads:       deps.MessageService,
		engine:        deps.RuleEngine,
		ledger:        deps.Ledger,
		locker:        deps.Locker,
		lockTTL:       ttl,
		logger:        nopIfNil(deps.Logger),
		now:           clockOrDefault(deps.Now),
	}
}

// Ingest runs the pipeline. Steps are sequential; a failure after the message
// is stored is reported without undoing earlier steps.
func (s *IngestionService) Ingest(ctx context.Context, input IngestInput) (*IngestResult, error) {
	if err := validateIngest(&input); err != nil {
		return nil, err
	}

	conv, created, err := s.resolve(ctx, input)
	if err != nil {
		return nil, err
	}

	msg, err := s.threads.Append(ctx, conv, AppendInput{
		Direction:   input.Direction,
		Content:     input.Content,
		ContentType: input.ContentType,
		Metadata:    input.Metadata,
		Source:      SourceAPI,
	})
	if err != nil {
		return nil, err
	}

	result := &IngestResult{
		Message:             msg,
		Conversation:        conv,
		ConversationCreated: created,
	}
	if msg.Direction != domain.DirectionIncoming {
		return result, nil
	}

	eval, err := s.engine.Evaluate(ctx, msg.ID)
	if err != nil {
		return nil, fmt.Errorf("evaluate rules for message %s: %w", msg.ID, err)
	}
	result.RulesEvaluated = len(eval.Rules)
	result.RulesMatched = eval.Matched()
	result.Evaluations = eval.Rules
	result.AutoReplies = eval.AutoReplies

	s.logger.Info("message ingested",
		zap.String("message_id", msg.ID),
		zap.String("conversation_id", conv.ID),
		zap.Int("rules_matched", result.RulesMatched),
		zap.Int("auto_replies", len(result.AutoReplies)),
	)
	return result, nil
}

func validateIngest(input *IngestInput) error {
	details := map[string]any{}
	if strings.TrimSpace(input.Content) == "" {
		details["content"] = "required"
	}
	if input.Channel == "" {
		details["channel"] = "required"
	} else if !input.Channel.Valid() {
		details["channel"] = "must be one of WEB, WHATSAPP, EMAIL"
	}
	input.ContactID = strings.TrimSpace(input.ContactID)
	if input.ContactID == "" {
		details["contactId"] = "required"
	}
	if input.Direction == "" {
		input.Direction = domain.DirectionIncoming
	} else if input.Direction != domain.DirectionIncoming && input.Direction != domain.DirectionOutgoing {
		details["direction"] = "must be INCOMING or OUTGOING"
	}
	if input.ContentType != "" && !input.ContentType.Valid() {
		details["contentType"] = "must be one of TEXT, IMAGE, FILE, AUDIO, VIDEO"
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("Missing required fields: content, channel, contactId", details)
	}
	return nil
}

// resolve finds the target conversation or opens a new one.
func (s *IngestionService) resolve(ctx context.Context, input IngestInput) (*domain.Conversation, bool, error) {
	if input.ConversationID != nil && *input.ConversationID != "" {
		conv, err := s.conversations.GetByID(ctx, *input.ConversationID)
		if err != nil {
			return nil, false, lookupError(err, "conversation", *input.ConversationID)
		}
		return conv, false, nil
	}

	if s.locker != nil {
		key := fmt.Sprintf("resolve:%s:%s", input.Channel, input.ContactID)
		release, err := s.locker.Acquire(ctx, key, s.lockTTL)
		if err != nil {
			return nil, false, fmt.Errorf("lock conversation resolution: %w", err)
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				s.logger.Warn("release resolution lock", zap.String("key", key), zap.Error(err))
			}
		}()
	}

	conv, err := s.conversations.FindActive(ctx, input.ContactID, input.Channel)
	if err == nil {
		return conv, false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, false, err
	}

	now := s.now().UTC()
	subject := domain.DefaultSubject(input.Channel)
	if input.Subject != nil && strings.TrimSpace(*input.Subject) != "" {
		subject = strings.TrimSpace(*input.Subject)
	}
	conv = &domain.Conversation{
		ID:        uuid.NewString(),
		ContactID: input.ContactID,
		Channel:   input.Channel,
		Status:    domain.ConversationStatusOpen,
		Subject:   &subject,
		Metadata:  map[string]any{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.conversations.Create(ctx, conv); err != nil {
		return nil, false, err
	}
	if err := s.ledger.ConversationStarted(ctx, conv, SourceAPI); err != nil {
		return nil, false, err
	}
	return conv, true, nil
}
