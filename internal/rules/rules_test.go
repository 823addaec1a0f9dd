package rules

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/guest-inbox/internal/domain"
)

func keywordRule(conds ...domain.Condition) *domain.Rule {
	return &domain.Rule{ID: "r1", Name: "test", Conditions: conds}
}

func TestMatches(t *testing.T) {
	tests := []struct {
		name    string
		rule    *domain.Rule
		content string
		want    bool
	}{
		{"case folded by default", keywordRule(domain.KeywordCondition{Value: "urgent"}), "URGENT please help", true},
		{"case sensitive miss", keywordRule(domain.KeywordCondition{Value: "urgent", CaseSensitive: true}), "URGENT please help", false},
		{"case sensitive hit", keywordRule(domain.KeywordCondition{Value: "VIP", CaseSensitive: true}), "VIP guest", true},
		{"substring match", keywordRule(domain.KeywordCondition{Value: "hi"}), "this is fine", true},
		{"no conditions never match", keywordRule(), "anything at all", false},
		{"all conditions required", keywordRule(
			domain.KeywordCondition{Value: "late"},
			domain.KeywordCondition{Value: "checkout"},
		), "late arrival", false},
		{"all conditions present", keywordRule(
			domain.KeywordCondition{Value: "late"},
			domain.KeywordCondition{Value: "checkout"},
		), "Can I get a late checkout?", true},
		{"empty keyword never holds", keywordRule(domain.KeywordCondition{Value: ""}), "hello", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Matches(tc.rule, tc.content))
		})
	}
}

func TestRender(t *testing.T) {
	subject := "Billing"
	conv := &domain.Conversation{ContactID: "guest-1", Channel: domain.ChannelEmail, Subject: &subject}

	assert.Equal(t, "Hi guest-1, re: Billing", Render("Hi {{contactId}}, re: {{subject}}", conv))
	assert.Equal(t, "via EMAIL {{unknown}}", Render("via {{channel}} {{unknown}}", conv))

	conv.Subject = nil
	assert.Equal(t, "re: ", Render("re: {{subject}}", conv))
}

func TestParseDocument(t *testing.T) {
	src := `
rules:
  - name: Checkout Info
    priority: 5
    conditions:
      - {type: keyword, value: checkout}
    actions:
      - {type: template_reply, template: "Our standard checkout time is 11:00 AM."}
  - name: Urgent
    active: false
    conditions:
      - {type: keyword, value: URGENT, caseSensitive: true}
    actions:
      - {type: tag, tagName: urgent}
      - {type: escalate}
`
	doc, err := ParseDocument(strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, doc.Rules, 2)

	assert.Equal(t, 5, doc.Rules[0].Priority)
	assert.True(t, doc.Rules[0].IsActive())
	assert.False(t, doc.Rules[1].IsActive())
	assert.True(t, doc.Rules[1].Conditions[0].CaseSensitive)
	assert.Equal(t, "urgent", doc.Rules[1].Actions[0].TagName)

	var buf bytes.Buffer
	require.NoError(t, doc.Encode(&buf))
	assert.Contains(t, buf.String(), "tagName: urgent")
}

func TestParseDocumentRejectsUnknownVariants(t *testing.T) {
	src := `
rules:
  - name: Bad
    conditions:
      - {type: regex, value: ".*"}
    actions:
      - {type: escalate}
`
	_, err := ParseDocument(strings.NewReader(src))
	assert.ErrorContains(t, err, "unknown condition type")
}
