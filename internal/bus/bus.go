// Package bus is the event fan-out conduit shared by all server instances.
// Every instance publishes room-scoped envelopes and holds a single wildcard
// subscription; local relevance filtering happens downstream.
package bus

import (
	"context"

	"github.com/SAHIL7163/Talksy-backend/internal/models"
)

// RoomGlobal is the reserved room ID for broadcast-to-everyone events.
const RoomGlobal = "global"

// Handler receives each envelope arriving on the wildcard subscription
// together with the room ID extracted from its topic.
type Handler func(roomID string, env models.Envelope)

// Bus publishes typed envelopes to named channels and subscribes to all of
// them. Implementations own no state beyond the transport connection.
type Bus interface {
	// Publish sends the envelope to chat:{roomID}. Transport failures are
	// returned to the caller; they are never silently dropped.
	Publish(ctx context.Context, roomID string, env models.Envelope) error

	// Subscribe starts the wildcard subscription and invokes h for every
	// decodable envelope until ctx is cancelled. Malformed payloads are
	// logged and skipped, never fatal to the loop.
	Subscribe(ctx context.Context, h Handler) error
}
