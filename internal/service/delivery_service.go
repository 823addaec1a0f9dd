package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/guest-inbox/internal/config"
	"github.com/spec-kit/guest-inbox/internal/domain"
	"github.com/spec-kit/guest-inbox/internal/events"
	"github.com/spec-kit/guest-inbox/internal/repository"
)

// DeliveryService forwards outgoing messages to the channel gateway webhook.
type DeliveryService struct {
	dispatcher    events.Dispatcher
	conversations repository.ConversationRepository
	messages      repository.MessageRepository
	logger        *zap.Logger
	cfg           config.DeliveryConfig
}

// DeliveryPayload is the JSON body posted for each outgoing message.
type DeliveryPayload struct {
	MessageID      string `json:"messageId"`
	ConversationID string `json:"conversationId"`
	ContactID      string `json:"contactId"`
	Channel        string `json:"channel"`
	Content        string `json:"content"`
}

// NewDeliveryService creates the service.
func NewDeliveryService(dispatcher events.Dispatcher, conversations repository.ConversationRepository, messages repository.MessageRepository, logger *zap.Logger, cfg config.DeliveryConfig) *DeliveryService {
	return &DeliveryService{
		dispatcher:    dispatcher,
		conversations: conversations,
		messages:      messages,
		logger:        nopIfNil(logger),
		cfg:           cfg,
	}
}

// RegisterHandlers subscribes to events.
func (d *DeliveryService) RegisterHandlers() {
	if d.dispatcher == nil {
		return
	}
	d.dispatcher.Subscribe(domain.EventMessageSent, d.handleMessageSent)
}

func (d *DeliveryService) handleMessageSent(ctx context.Context, event domain.Event) error {
	if strings.TrimSpace(d.cfg.WebhookURL) == "" || event.ConversationID == nil {
		return nil
	}
	messageID := event.PayloadString("messageId")
	msg, err := d.messages.GetByID(ctx, messageID)
	if err != nil {
		return fmt.Errorf("delivery: load message %s: %w", messageID, err)
	}
	conv, err := d.conversations.GetByID(ctx, *event.ConversationID)
	if err != nil {
		return fmt.Errorf("delivery: load conversation %s: %w", *event.ConversationID, err)
	}
	return d.Deliver(conv, msg)
}

// Deliver posts one message to the webhook.
func (d *DeliveryService) Deliver(conv *domain.Conversation, msg *domain.Message) error {
	payload := DeliveryPayload{
		MessageID:      msg.ID,
		ConversationID: conv.ID,
		ContactID:      conv.ContactID,
		Channel:        string(msg.Channel),
		Content:        msg.Content,
	}

	code, body, errs := fiber.Post(d.cfg.WebhookURL).
		JSON(payload).
		Timeout(d.cfg.Timeout()).
		Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("delivery: post %s: %w", msg.ID, errs[0])
	}
	if code < 200 || code >= 300 {
		return fmt.Errorf("delivery: post %s: status %d: %s", msg.ID, code, strings.TrimSpace(string(body)))
	}

	d.logger.Debug("message delivered",
		zap.String("message_id", msg.ID),
		zap.String("channel", payload.Channel),
		zap.Int("status", code),
	)
	return nil
}
