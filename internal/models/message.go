package models

import "time"

// FileRef points at an externally stored attachment.
type FileRef struct {
	URL      string `json:"url"`
	MimeType string `json:"mimeType"`
	Filename string `json:"filename"`
}

// Message is a persisted chat message. Text or File must be present.
type Message struct {
	ID        string    `json:"id"` // ULID
	ChannelID string    `json:"channelId"`
	SenderID  string    `json:"senderId"`
	Text      string    `json:"text,omitempty"`
	File      *FileRef  `json:"file,omitempty"`
	ParentID  string    `json:"parentId,omitempty"` // single-level reply threading
	IsEdited  bool      `json:"isEdited"`
	IsRead    bool      `json:"isRead"`
	CreatedAt time.Time `json:"createdAt"`
}

// UserRef is the projected sender summary embedded in message views.
type UserRef struct {
	ID         string `json:"id"`
	FullName   string `json:"fullName"`
	ProfilePic string `json:"profilePic"`
}

// ParentRef is the projected parent-message summary for replies.
type ParentRef struct {
	ID     string   `json:"id"`
	Text   string   `json:"text,omitempty"`
	Sender *UserRef `json:"sender,omitempty"`
}

// MessageView is a Message enriched with sender and parent projections.
// This is the shape carried in outbound envelopes and API responses.
type MessageView struct {
	Message
	Sender *UserRef   `json:"sender,omitempty"`
	Parent *ParentRef `json:"parentMessage,omitempty"`
}
