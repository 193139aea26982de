package models

import "encoding/json"

// EventType enumerates every envelope type carried on the bus. Transport
// event names mirror these values exactly.
type EventType string

const (
	EventReceiveMessage   EventType = "receive_message"
	EventMessageEdited    EventType = "message_edited"
	EventMessageDeleted   EventType = "message_deleted"
	EventMessageRead      EventType = "message_read"
	EventTyping           EventType = "typing"
	EventStopTyping       EventType = "stop_typing"
	EventStartVideoCall   EventType = "start_video_call"
	EventEndVideoCall     EventType = "end_video_call"
	EventReceiveAIMessage EventType = "receive_ai_message"
	EventErrorMessage     EventType = "error_message"
)

// Envelope is the immutable unit published to the bus. Payload stays raw
// JSON so subscribers forward it to clients without re-encoding.
type Envelope struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// NewEnvelope marshals payload into an envelope of the given type.
func NewEnvelope(t EventType, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Type: t, Payload: raw}, nil
}

// Inbound payloads. Field names match the wire format the clients send.

// SendMessagePayload starts a new message in a channel.
type SendMessagePayload struct {
	ChannelID     string   `json:"channelId"`
	SenderID      string   `json:"senderId"`
	Text          string   `json:"text,omitempty"`
	File          *FileRef `json:"file,omitempty"`
	ParentMessage string   `json:"parentMessage,omitempty"`
}

// EditMessagePayload replaces the text of an existing message.
type EditMessagePayload struct {
	MessageID string `json:"messageId"`
	Text      string `json:"text"`
}

// DeleteMessagePayload removes a message permanently.
type DeleteMessagePayload struct {
	MessageID string `json:"messageId"`
}

// MessageReadPayload marks a message as read.
type MessageReadPayload struct {
	MessageID string `json:"messageId"`
	ChannelID string `json:"channelId,omitempty"`
}

// TypingPayload signals a typing indicator change.
type TypingPayload struct {
	ChannelID string `json:"channelId"`
	UserID    string `json:"userId"`
}

// CallSignalPayload starts or ends a video call in a channel.
type CallSignalPayload struct {
	ChannelID string `json:"channelId"`
}

// AIRequestPayload asks the assistant for a reply in a channel.
type AIRequestPayload struct {
	ChannelID string `json:"channelId"`
	SenderID  string `json:"senderId"`
	Text      string `json:"text"`
}

// ErrorPayload is the body of error_message envelopes.
type ErrorPayload struct {
	Message string `json:"message"`
}
