package main

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spec-kit/guest-inbox/internal/app"
	"github.com/spec-kit/guest-inbox/internal/domain"
	"github.com/spec-kit/guest-inbox/internal/rules"
	"github.com/spec-kit/guest-inbox/internal/service"
)

//go:embed seed_rules.yaml
var seedRules []byte

type seedMessage struct {
	direction domain.Direction
	content   string
}

type seedConversation struct {
	contactID string
	channel   domain.Channel
	status    domain.ConversationStatus
	subject   string
	metadata  map[string]any
	messages  []seedMessage
}

var seedConversations = []seedConversation{
	{
		contactID: "contact_web_001",
		channel:   domain.ChannelWeb,
		status:    domain.ConversationStatusOpen,
		subject:   "Room inquiry",
		metadata:  map[string]any{"source": "website", "page": "/rooms"},
		messages: []seedMessage{
			{domain.DirectionIncoming, "Hi, I have a question about your suite rates."},
			{domain.DirectionOutgoing, "I'd be happy to help with rates. Which dates are you considering?"},
			{domain.DirectionIncoming, "Early May. Does the suite include breakfast?"},
		},
	},
	{
		contactID: "contact_wa_002",
		channel:   domain.ChannelWhatsApp,
		status:    domain.ConversationStatusOpen,
		metadata:  map[string]any{"phoneNumber": "+1234567890"},
		messages: []seedMessage{
			{domain.DirectionIncoming, "Is anyone there?"},
			{domain.DirectionOutgoing, "Hi there! Yes, how can I assist you today?"},
		},
	},
	{
		contactID: "contact_email_003",
		channel:   domain.ChannelEmail,
		status:    domain.ConversationStatusPending,
		subject:   "Reservation #12345",
		metadata:  map[string]any{"email": "guest@example.com"},
		messages: []seedMessage{
			{domain.DirectionIncoming, "Dear team,\n\nI reserved a room last week but haven't received a confirmation. Could you check reservation #12345?\n\nThank you,\nJohn"},
		},
	},
}

func (c *cli) seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load demo conversations and rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := c.build(cmd.Context())
			if err != nil {
				return err
			}
			defer container.Close()

			convs, msgs, err := seedThreads(cmd.Context(), container)
			if err != nil {
				return err
			}

			doc, err := rules.ParseDocument(bytes.NewReader(seedRules))
			if err != nil {
				return err
			}
			created, err := container.Rules.Import(cmd.Context(), doc)
			if err != nil {
				return err
			}

			fmt.Fprintf(c.out, "seeded %d conversations, %d messages, %d rules\n", convs, msgs, len(created))
			return nil
		},
	}
}

// seedThreads runs the demo traffic through ingestion so the ledger matches
// the stored messages. Rules are loaded afterwards and do not fire here.
func seedThreads(ctx context.Context, container *app.Container) (int, int, error) {
	messages := 0
	for _, sc := range seedConversations {
		var conv *domain.Conversation
		for i, sm := range sc.messages {
			if sm.direction == domain.DirectionOutgoing {
				if _, err := container.Messages.SendOutbound(ctx, conv.ID, sm.content); err != nil {
					return 0, 0, err
				}
				messages++
				continue
			}

			input := service.IngestInput{
				Content:   sm.content,
				Channel:   sc.channel,
				ContactID: sc.contactID,
			}
			if i == 0 {
				input.Metadata = sc.metadata
				if sc.subject != "" {
					subject := sc.subject
					input.Subject = &subject
				}
			} else {
				input.ConversationID = &conv.ID
			}
			result, err := container.Ingestion.Ingest(ctx, input)
			if err != nil {
				return 0, 0, err
			}
			conv = result.Conversation
			messages++
		}

		if sc.status != domain.ConversationStatusOpen {
			if _, err := container.Messages.UpdateStatus(ctx, conv.ID, sc.status); err != nil {
				return 0, 0, err
			}
		}
	}
	return len(seedConversations), messages, nil
}
