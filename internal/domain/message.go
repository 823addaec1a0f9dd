package domain

import "time"

// Direction tells whether a message came from the contact or from the business.
type Direction string

const (
	DirectionIncoming Direction = "INCOMING"
	DirectionOutgoing Direction = "OUTGOING"
)

// ContentType classifies message payloads.
type ContentType string

const (
	ContentTypeText  ContentType = "TEXT"
	ContentTypeImage ContentType = "IMAGE"
	ContentTypeFile  ContentType = "FILE"
	ContentTypeAudio ContentType = "AUDIO"
	ContentTypeVideo ContentType = "VIDEO"
)

// Valid reports whether t is a known content type.
func (t ContentType) Valid() bool {
	switch t {
	case ContentTypeText, ContentTypeImage, ContentTypeFile, ContentTypeAudio, ContentTypeVideo:
		return true
	}
	return false
}

// Message is an immutable entry in a conversation thread.
// Channel is copied from the conversation when the message is created.
type Message struct {
	ID             string
	ConversationID string
	Channel        Channel
	Direction      Direction
	Content        string
	ContentType    ContentType
	Metadata       map[string]any
	CreatedAt      time.Time
}
