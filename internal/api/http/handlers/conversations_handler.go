package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/guest-inbox/internal/api/dto"
	"github.com/spec-kit/guest-inbox/internal/domain"
	"github.com/spec-kit/guest-inbox/internal/repository"
	"github.com/spec-kit/guest-inbox/internal/service"
	apperrors "github.com/spec-kit/guest-inbox/pkg/util/errorutil"
)

// ConversationsHandler serves the inbox.
type ConversationsHandler struct {
	messages *service.MessageService
	replies  *service.ReplyService
}

// NewConversationsHandler constructs handler.
func NewConversationsHandler(messages *service.MessageService, replies *service.ReplyService) *ConversationsHandler {
	return &ConversationsHandler{messages: messages, replies: replies}
}

// List GET /api/conversations.
func (h *ConversationsHandler) List(c *fiber.Ctx) error {
	filter, err := parseConversationQuery(c)
	if err != nil {
		return err
	}
	rows, err := h.messages.ListConversations(c.UserContext(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.ConversationResponse, 0, len(rows))
	for i := range rows {
		item := conversationResponse(&rows[i].Conversation)
		if rows[i].LastMessage != nil {
			last := messageResponse(rows[i].LastMessage)
			item.LastMessage = &last
		}
		items = append(items, item)
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /api/conversations/:id.
func (h *ConversationsHandler) Get(c *fiber.Ctx) error {
	thread, err := h.messages.GetConversation(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.ConversationDetailResponse{
		ConversationResponse: conversationResponse(&thread.Conversation),
		Messages:             messageResponses(thread.Messages),
	}})
}

// Send POST /api/conversations/:id/messages.
func (h *ConversationsHandler) Send(c *fiber.Ctx) error {
	var req dto.SendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	msg, err := h.messages.SendOutbound(c.UserContext(), c.Params("id"), req.Content)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": messageResponse(msg)})
}

// UpdateStatus PATCH /api/conversations/:id/status.
func (h *ConversationsHandler) UpdateStatus(c *fiber.Ctx) error {
	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	status := domain.ConversationStatus(strings.ToUpper(string(req.Status)))
	conv, err := h.messages.UpdateStatus(c.UserContext(), c.Params("id"), status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": conversationResponse(conv)})
}

// Assign POST /api/conversations/:id/assign.
func (h *ConversationsHandler) Assign(c *fiber.Ctx) error {
	var req dto.AssignRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := h.messages.Assign(c.UserContext(), c.Params("id"), req.AgentID); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// SuggestReply POST /api/conversations/:id/suggest-reply.
func (h *ConversationsHandler) SuggestReply(c *fiber.Ctx) error {
	suggestion, err := h.replies.Suggest(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.SuggestionResponse{
		Suggestion: suggestion.Text,
		IsMock:     suggestion.IsMock,
	}})
}

func parseConversationQuery(c *fiber.Ctx) (repository.ConversationFilter, error) {
	filter := repository.ConversationFilter{
		Limit:  c.QueryInt("limit", 50),
		Offset: c.QueryInt("offset", 0),
	}
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			status := domain.ConversationStatus(strings.ToUpper(strings.TrimSpace(part)))
			if !status.Valid() {
				return filter, apperrors.NewValidationError("invalid status filter", map[string]any{"status": part})
			}
			filter.Statuses = append(filter.Statuses, status)
		}
	}
	if raw := strings.TrimSpace(c.Query("channel")); raw != "" {
		ch := domain.Channel(strings.ToUpper(raw))
		if !ch.Valid() {
			return filter, apperrors.NewValidationError("invalid channel filter", map[string]any{"channel": raw})
		}
		filter.Channel = &ch
	}
	if contact := strings.TrimSpace(c.Query("contactId")); contact != "" {
		filter.ContactID = &contact
	}
	return filter, nil
}
