package ai

import "strings"

// Canned replies used when no completion backend is configured.
const (
	MockUrgentReply   = "I'm sorry to hear you need urgent help. I've flagged this with our duty manager, and a member of our team will contact you right away."
	MockBookingReply  = "Thank you for your interest in staying with us! Could you share your preferred dates and the number of guests? I'll check availability for you straight away."
	MockCheckoutReply = "Our standard checkout time is 11:00 AM. If you'd like a late checkout, let us know and we'll do our best to accommodate you."
	MockDefaultReply  = "Thank you for reaching out! We're happy to help. Could you share a few more details so we can assist you?"
)

var mockBuckets = []struct {
	keywords []string
	reply    string
}{
	{[]string{"urgent", "emergency"}, MockUrgentReply},
	{[]string{"booking", "reservation", "book"}, MockBookingReply},
	{[]string{"checkout", "check-out", "check out"}, MockCheckoutReply},
}

// MockSuggestion picks a canned reply by keyword bucket over the transcript.
// The first matching bucket wins.
func MockSuggestion(transcript string) string {
	lower := strings.ToLower(transcript)
	for _, bucket := range mockBuckets {
		for _, kw := range bucket.keywords {
			if strings.Contains(lower, kw) {
				return bucket.reply
			}
		}
	}
	return MockDefaultReply
}
