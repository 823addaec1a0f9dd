package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/guest-inbox/internal/domain"
	"github.com/spec-kit/guest-inbox/internal/events"
	"github.com/spec-kit/guest-inbox/internal/repository"
	"github.com/spec-kit/guest-inbox/internal/rules"
	apperrors "github.com/spec-kit/guest-inbox/pkg/util/errorutil"
)

// RuleEngine evaluates active rules against a stored message.
type RuleEngine struct {
	rules         repository.RuleRepository
	conversations repository.ConversationRepository
	messages      repository.MessageRepository
	threads       *MessageService
	replies       *ReplyService
	ledger        *events.Ledger
	logger        *zap.Logger
}

// RuleEngineDependencies wires the engine.
type RuleEngineDependencies struct {
	RuleRepo         repository.RuleRepository
	ConversationRepo repository.ConversationRepository
	MessageRepo      repository.MessageRepository
	MessageService   *MessageService
	ReplyService     *ReplyService
	Ledger           *events.Ledger
	Logger           *zap.Logger
}

// RuleEvaluation is the outcome for one rule.
type RuleEvaluation struct {
	RuleID         string
	RuleName       string
	Matched        bool
	GeneratedReply *string
}

// AutoReply is an outgoing message produced by a rule.
type AutoReply struct {
	RuleID    string
	RuleName  string
	MessageID string
	Reply     string
}

// EvaluationResult lists every evaluated rule in priority order.
type EvaluationResult struct {
	MessageID      string
	ConversationID string
	Rules          []RuleEvaluation
	AutoReplies    []AutoReply
}

// Matched counts the rules whose conditions all held.
func (r *EvaluationResult) Matched() int {
	n := 0
	for _, eval := range r.Rules {
		if eval.Matched {
			n++
		}
	}
	return n
}

// NewRuleEngine constructs the engine.
func NewRuleEngine(deps RuleEngineDependencies) *RuleEngine {
	return &RuleEngine{
		rules:         deps.RuleRepo,
		conversations: deps.ConversationRepo,
		messages:      deps.MessageRepo,
		threads:       deps.MessageService,
		replies:       deps.ReplyService,
		ledger:        deps.Ledger,
		logger:        nopIfNil(deps.Logger),
	}
}

// Evaluate runs every active rule, highest priority first, against the message.
// All matching rules fire. A failing action only loses its own effect; a failure
// to record RULE_TRIGGERED or RULE_EXECUTED stops evaluation.
func (e *RuleEngine) Evaluate(ctx context.Context, messageID string) (*EvaluationResult, error) {
	msg, err := e.messages.GetByID(ctx, messageID)
	if err != nil {
		return nil, lookupError(err, "message", messageID)
	}
	if msg.Direction != domain.DirectionIncoming {
		return nil, apperrors.NewValidationError("only incoming messages are evaluated", map[string]any{
			"message_id": msg.ID,
			"direction":  msg.Direction,
		})
	}
	conv, err := e.conversations.GetByID(ctx, msg.ConversationID)
	if err != nil {
		return nil, lookupError(err, "conversation", msg.ConversationID)
	}
	active, err := e.rules.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("load active rules: %w", err)
	}

	result := &EvaluationResult{
		MessageID:      msg.ID,
		ConversationID: conv.ID,
		Rules:          make([]RuleEvaluation, 0, len(active)),
	}

	for i := range active {
		rule := &active[i]
		eval := RuleEvaluation{RuleID: rule.ID, RuleName: rule.Name}

		if !rules.Matches(rule, msg.Content) {
			result.Rules = append(result.Rules, eval)
			continue
		}
		eval.Matched = true

		if err := e.ledger.RuleTriggered(ctx, conv.ID, rule, msg.ID); err != nil {
			return nil, err
		}

		var executed []domain.ActionType
		for _, action := range rule.Actions {
			reply, err := e.runAction(ctx, conv, rule, action)
			if err != nil {
				e.logger.Warn("rule action failed",
					zap.String("rule_id", rule.ID),
					zap.String("action", string(action.Type())),
					zap.String("message_id", msg.ID),
					zap.Error(err),
				)
				continue
			}
			executed = append(executed, action.Type())
			if reply != nil {
				result.AutoReplies = append(result.AutoReplies, AutoReply{
					RuleID:    rule.ID,
					RuleName:  rule.Name,
					MessageID: reply.ID,
					Reply:     reply.Content,
				})
				if eval.GeneratedReply == nil {
					text := reply.Content
					eval.GeneratedReply = &text
				}
			}
		}

		if err := e.ledger.RuleExecuted(ctx, conv.ID, rule, executed); err != nil {
			return nil, err
		}
		result.Rules = append(result.Rules, eval)
	}

	return result, nil
}

// runAction applies one action. It returns the outgoing message when one was produced.
func (e *RuleEngine) runAction(ctx context.Context, conv *domain.Conversation, rule *domain.Rule, action domain.Action) (*domain.Message, error) {
	switch a := action.(type) {
	case domain.AIReplyAction:
		history, err := e.messages.ListByConversation(ctx, conv.ID)
		if err != nil {
			return nil, err
		}
		suggestion, err := e.replies.Complete(ctx, conv, history)
		if err != nil {
			return nil, err
		}
		reply, err := e.threads.Append(ctx, conv, AppendInput{
			Direction: domain.DirectionOutgoing,
			Content:   suggestion.Text,
			Metadata:  autoReplyMetadata(rule, a.Type(), suggestion.IsMock),
		})
		if err != nil {
			return nil, err
		}
		// The reply is already stored and sent, so a lost ledger entry does not undo the action.
		if err := e.ledger.AIResponseGenerated(ctx, conv.ID, &rule.ID, domain.AISourceRule, suggestion.Text, suggestion.IsMock); err != nil {
			e.logger.Error("ai reply stored without AI_RESPONSE_GENERATED",
				zap.String("rule_id", rule.ID),
				zap.String("message_id", reply.ID),
				zap.Error(err),
			)
		}
		return reply, nil

	case domain.TemplateReplyAction:
		return e.threads.Append(ctx, conv, AppendInput{
			Direction: domain.DirectionOutgoing,
			Content:   rules.Render(a.Template, conv),
			Metadata:  autoReplyMetadata(rule, a.Type(), false),
		})

	case domain.TagAction:
		return nil, e.threads.AddTag(ctx, conv.ID, a.TagName)

	case domain.EscalateAction:
		return nil, e.threads.Escalate(ctx, conv.ID)

	default:
		return nil, fmt.Errorf("unsupported action %q", action.Type())
	}
}

func autoReplyMetadata(rule *domain.Rule, action domain.ActionType, isMock bool) map[string]any {
	meta := map[string]any{
		"source": domain.AISourceRule,
		"ruleId": rule.ID,
		"action": string(action),
	}
	if isMock {
		meta["isMock"] = true
	}
	return meta
}
