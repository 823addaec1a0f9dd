package ai

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/guest-inbox/internal/domain"
)

func TestTranscript(t *testing.T) {
	msgs := []domain.Message{
		{Direction: domain.DirectionIncoming, Content: "Hi! What time is checkout?"},
		{Direction: domain.DirectionOutgoing, Content: "11:00 AM."},
	}
	assert.Equal(t, "Guest: Hi! What time is checkout?\nStaff: 11:00 AM.", Transcript(msgs))
}

func TestUserPrompt(t *testing.T) {
	p := UserPrompt(domain.ChannelWhatsApp, "Guest: hello")
	assert.Contains(t, p, "on the whatsapp channel")
	assert.Contains(t, p, "Guest: hello")
}

func TestMockSuggestion(t *testing.T) {
	tests := map[string]string{
		"Guest: This is an EMERGENCY":             MockUrgentReply,
		"Guest: I want to change my reservation":  MockBookingReply,
		"Guest: urgent question about my booking": MockUrgentReply,
		"Guest: What time is checkout?":           MockCheckoutReply,
		"Guest: Is the pool heated?":              MockDefaultReply,
	}
	for transcript, want := range tests {
		assert.Equal(t, want, MockSuggestion(transcript), transcript)
	}
}

func TestNewGenAICompleterWithoutKey(t *testing.T) {
	c, err := NewGenAICompleter(context.Background(), "", "", 300)
	require.ErrorIs(t, err, ErrNotConfigured)
	assert.Nil(t, c)
}

func TestCompleterFunc(t *testing.T) {
	var c Completer = CompleterFunc(func(_ context.Context, system, prompt string) (string, error) {
		return system + "|" + prompt, nil
	})
	out, err := c.Complete(context.Background(), "s", "p")
	require.NoError(t, err)
	assert.Equal(t, "s|p", out)
}
