package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/guest-inbox/internal/api/dto"
	"github.com/spec-kit/guest-inbox/internal/domain"
	"github.com/spec-kit/guest-inbox/internal/service"
	apperrors "github.com/spec-kit/guest-inbox/pkg/util/errorutil"
)

// MessagesHandler exposes the ingestion entry point.
type MessagesHandler struct {
	ingest *service.IngestionService
	engine *service.RuleEngine
}

// NewMessagesHandler constructs handler.
func NewMessagesHandler(ingest *service.IngestionService, engine *service.RuleEngine) *MessagesHandler {
	return &MessagesHandler{ingest: ingest, engine: engine}
}

// Ingest POST /api/messages/incoming.
func (h *MessagesHandler) Ingest(c *fiber.Ctx) error {
	var req dto.IngestMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	result, err := h.ingest.Ingest(c.UserContext(), service.IngestInput{
		Direction:      domain.Direction(strings.ToUpper(string(req.Direction))),
		Content:        req.Content,
		ContentType:    domain.ContentType(strings.ToUpper(string(req.ContentType))),
		Channel:        domain.Channel(strings.ToUpper(string(req.Channel))),
		ContactID:      req.ContactID,
		ConversationID: req.ConversationID,
		Subject:        req.Subject,
		Metadata:       req.Metadata,
	})
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.IngestMessageResponse{
		Message:             messageResponse(result.Message),
		ConversationID:      result.Conversation.ID,
		ConversationCreated: result.ConversationCreated,
		RulesEvaluated:      result.RulesEvaluated,
		RulesMatched:        result.RulesMatched,
		AutoReplies:         autoReplies(result.AutoReplies),
		Evaluations:         evaluations(result.Evaluations),
	}})
}

// Describe GET /api/messages/incoming.
func (h *MessagesHandler) Describe(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": fiber.Map{
		"endpoint": "/api/messages/incoming",
		"method":   fiber.MethodPost,
		"required": []string{"content", "channel", "contactId"},
		"optional": []string{"conversationId", "subject", "metadata", "direction", "contentType"},
		"channels": domain.Channels,
	}})
}

// Evaluate POST /api/messages/:id/evaluate.
func (h *MessagesHandler) Evaluate(c *fiber.Ctx) error {
	result, err := h.engine.Evaluate(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.EvaluationResponse{
		MessageID:      result.MessageID,
		ConversationID: result.ConversationID,
		RulesEvaluated: len(result.Rules),
		RulesMatched:   result.Matched(),
		Results:        evaluations(result.Rules),
		AutoReplies:    autoReplies(result.AutoReplies),
	}})
}
