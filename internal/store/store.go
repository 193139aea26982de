package store

import (
	"context"

	"github.com/SAHIL7163/Talksy-backend/internal/models"
)

// MessageStore is the minimal read/write contract the conversation core
// needs from the durable store. Reads resolve sender and parent references
// into embedded projections. Absent records are (nil, nil), not errors.
// Both PostgresStore and SQLiteStore implement this interface.
type MessageStore interface {
	// Create persists a new message and returns its enriched view.
	// ID and CreatedAt are assigned if unset.
	Create(ctx context.Context, msg *models.Message) (*models.MessageView, error)

	// FindByID returns the enriched view, or nil when the id is unknown.
	FindByID(ctx context.Context, id string) (*models.MessageView, error)

	// FindByChannel returns messages in a channel ordered by creation time,
	// descending when desc is set. limit <= 0 means no limit.
	FindByChannel(ctx context.Context, channelID string, desc bool, limit int) ([]models.MessageView, error)

	// UpdateText replaces the text and sets isEdited. Returns nil when the
	// id is unknown.
	UpdateText(ctx context.Context, id, text string) (*models.MessageView, error)

	// MarkRead sets isRead. The transition is false→true only and
	// idempotent; the bool reports whether the message exists.
	MarkRead(ctx context.Context, id string) (bool, error)

	// DeleteByID hard-deletes a message. The bool reports whether a row
	// was removed; once deleted, every later operation sees not-found.
	DeleteByID(ctx context.Context, id string) (bool, error)
}

// UserStore is the slice of the user directory the core consumes: profile
// projections plus find-or-create for the assistant identity.
type UserStore interface {
	FindUserByID(ctx context.Context, id string) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) (*models.User, error)
}

// DataStore is the combined contract a storage engine provides.
type DataStore interface {
	MessageStore
	UserStore

	Close()
	Ping(ctx context.Context) error
}
