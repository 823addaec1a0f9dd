package ai

import (
	"fmt"
	"strings"

	"github.com/spec-kit/guest-inbox/internal/domain"
)

// SystemPrompt sets the assistant's hospitality tone.
const SystemPrompt = `You are a professional hospitality assistant helping staff respond to guest inquiries.
Your tone should be:
- Warm and welcoming
- Professional yet friendly
- Helpful and solution-oriented
- Empathetic to guest concerns

Generate a single, natural reply that a hotel or hospitality staff member would send.
Do not include any prefixes like "Staff:" or quotation marks.
Keep responses concise but complete (2-4 sentences typically).
If the guest has a complaint, acknowledge their concern and offer assistance.
If it's a general inquiry, provide helpful information.`

// Transcript renders messages as "Guest: ..." / "Staff: ..." lines.
func Transcript(msgs []domain.Message) string {
	lines := make([]string, 0, len(msgs))
	for _, m := range msgs {
		role := "Staff"
		if m.Direction == domain.DirectionIncoming {
			role = "Guest"
		}
		lines = append(lines, role+": "+m.Content)
	}
	return strings.Join(lines, "\n")
}

// UserPrompt asks for a reply to the latest guest message.
func UserPrompt(channel domain.Channel, transcript string) string {
	return fmt.Sprintf(`Here is the conversation history on the %s channel:

%s

Generate an appropriate reply to the most recent message from the guest.`, strings.ToLower(string(channel)), transcript)
}
