package rules

import (
	"strings"

	"github.com/spec-kit/guest-inbox/internal/domain"
)

// Render substitutes {{channel}}, {{contactId}} and {{subject}} from conv.
// Unknown placeholders are left untouched.
func Render(template string, conv *domain.Conversation) string {
	r := strings.NewReplacer(
		"{{channel}}", string(conv.Channel),
		"{{contactId}}", conv.ContactID,
		"{{subject}}", conv.SubjectOrEmpty(),
	)
	return r.Replace(template)
}
