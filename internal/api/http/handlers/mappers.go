package handlers

import (
	"github.com/spec-kit/guest-inbox/internal/api/dto"
	"github.com/spec-kit/guest-inbox/internal/domain"
	"github.com/spec-kit/guest-inbox/internal/service"
)

func messageResponse(m *domain.Message) dto.MessageResponse {
	meta := m.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	return dto.MessageResponse{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		Channel:        m.Channel,
		Direction:      m.Direction,
		Content:        m.Content,
		ContentType:    m.ContentType,
		Metadata:       meta,
		CreatedAt:      m.CreatedAt,
	}
}

func messageResponses(msgs []domain.Message) []dto.MessageResponse {
	out := make([]dto.MessageResponse, 0, len(msgs))
	for i := range msgs {
		out = append(out, messageResponse(&msgs[i]))
	}
	return out
}

func conversationResponse(c *domain.Conversation) dto.ConversationResponse {
	meta := c.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	return dto.ConversationResponse{
		ID:        c.ID,
		ContactID: c.ContactID,
		Channel:   c.Channel,
		Status:    c.Status,
		Subject:   c.Subject,
		Metadata:  meta,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func autoReplies(replies []service.AutoReply) []dto.AutoReplyResponse {
	out := make([]dto.AutoReplyResponse, 0, len(replies))
	for _, r := range replies {
		out = append(out, dto.AutoReplyResponse{RuleID: r.RuleID, RuleName: r.RuleName, MessageID: r.MessageID, Reply: r.Reply})
	}
	return out
}

func evaluations(evals []service.RuleEvaluation) []dto.RuleEvaluationResponse {
	out := make([]dto.RuleEvaluationResponse, 0, len(evals))
	for _, e := range evals {
		out = append(out, dto.RuleEvaluationResponse{RuleID: e.RuleID, RuleName: e.RuleName, Matched: e.Matched, GeneratedReply: e.GeneratedReply})
	}
	return out
}

func ruleResponse(r *domain.Rule) dto.RuleResponse {
	return dto.RuleResponse{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Conditions:  domain.ConditionRecords(r.Conditions),
		Actions:     domain.ActionRecords(r.Actions),
		Priority:    r.Priority,
		Active:      r.Active,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}
