package session

import (
	"github.com/rs/zerolog"

	"github.com/SAHIL7163/Talksy-backend/internal/bus"
	"github.com/SAHIL7163/Talksy-backend/internal/metrics"
	"github.com/SAHIL7163/Talksy-backend/internal/models"
)

// Broadcaster delivers bus envelopes to locally connected sessions. Every
// instance receives every event from the wildcard subscription; rooms with
// no local members cost one map lookup here.
type Broadcaster struct {
	registry *Registry
	logger   zerolog.Logger
}

// NewBroadcaster wires a broadcaster over the registry.
func NewBroadcaster(registry *Registry, logger zerolog.Logger) *Broadcaster {
	return &Broadcaster{
		registry: registry,
		logger:   logger.With().Str("component", "broadcast").Logger(),
	}
}

// Deliver fans an envelope out to local recipients. The global room reaches
// every connected session regardless of membership. A failed send to one
// session never prevents delivery to the rest.
func (b *Broadcaster) Deliver(roomID string, env models.Envelope) {
	var targets []*Session
	if roomID == bus.RoomGlobal {
		targets = b.registry.allSessions()
	} else {
		targets = b.registry.roomMembers(roomID)
	}
	b.send(targets, env)
}

// DeliverToUser sends an envelope to every connection the user has open on
// this instance.
func (b *Broadcaster) DeliverToUser(userID string, env models.Envelope) {
	b.send(b.registry.SessionsByUser(userID), env)
}

func (b *Broadcaster) send(targets []*Session, env models.Envelope) {
	for _, s := range targets {
		if s.TrySend(env) {
			metrics.LocalDeliveries.Inc()
			continue
		}
		metrics.DroppedDeliveries.Inc()
		b.logger.Debug().
			Str("session", s.ID).
			Str("type", string(env.Type)).
			Msg("dropped delivery to slow or closed session")
	}
}
