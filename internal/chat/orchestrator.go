// Package chat validates inbound domain events, persists what must be
// persisted, and publishes the canonical outbound envelope to the bus.
// Each event type is an independent short-lived transaction; there is no
// shared state machine and no optimistic locking — per-operation store
// atomicity resolves edit/delete races last-writer-wins.
package chat

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/SAHIL7163/Talksy-backend/internal/bus"
	"github.com/SAHIL7163/Talksy-backend/internal/genai"
	"github.com/SAHIL7163/Talksy-backend/internal/metrics"
	"github.com/SAHIL7163/Talksy-backend/internal/models"
	"github.com/SAHIL7163/Talksy-backend/internal/store"
)

// Orchestrator is the conversation core shared by the websocket and REST
// surfaces. It never bypasses the store gateway and owns no session state.
type Orchestrator struct {
	messages store.MessageStore
	users    store.UserStore
	bus      bus.Bus
	gen      genai.Generator
	logger   zerolog.Logger

	dispatch map[models.EventType]func(ctx context.Context, raw json.RawMessage) error
}

// New creates the orchestrator and its event dispatch table.
func New(messages store.MessageStore, users store.UserStore, b bus.Bus, gen genai.Generator, logger zerolog.Logger) *Orchestrator {
	o := &Orchestrator{
		messages: messages,
		users:    users,
		bus:      b,
		gen:      gen,
		logger:   logger.With().Str("component", "chat").Logger(),
	}

	o.dispatch = map[models.EventType]func(ctx context.Context, raw json.RawMessage) error{
		EventSendMessage: func(ctx context.Context, raw json.RawMessage) error {
			var p models.SendMessagePayload
			if err := json.Unmarshal(raw, &p); err != nil {
				return validationf("invalid send_message payload")
			}
			_, err := o.SendMessage(ctx, p)
			return err
		},
		EventEditMessage: func(ctx context.Context, raw json.RawMessage) error {
			var p models.EditMessagePayload
			if err := json.Unmarshal(raw, &p); err != nil {
				return validationf("invalid edit_message payload")
			}
			_, err := o.EditMessage(ctx, p)
			return err
		},
		EventDeleteMessage: func(ctx context.Context, raw json.RawMessage) error {
			var p models.DeleteMessagePayload
			if err := json.Unmarshal(raw, &p); err != nil {
				return validationf("invalid delete_message payload")
			}
			return o.DeleteMessage(ctx, p)
		},
		EventMessageRead: func(ctx context.Context, raw json.RawMessage) error {
			var p models.MessageReadPayload
			if err := json.Unmarshal(raw, &p); err != nil {
				return validationf("invalid message_read payload")
			}
			return o.MarkRead(ctx, p)
		},
		EventTyping: func(ctx context.Context, raw json.RawMessage) error {
			return o.typingEvent(ctx, raw, models.EventTyping)
		},
		EventStopTyping: func(ctx context.Context, raw json.RawMessage) error {
			return o.typingEvent(ctx, raw, models.EventStopTyping)
		},
		EventStartVideoCall: func(ctx context.Context, raw json.RawMessage) error {
			return o.callEvent(ctx, raw, models.EventStartVideoCall)
		},
		EventEndVideoCall: func(ctx context.Context, raw json.RawMessage) error {
			return o.callEvent(ctx, raw, models.EventEndVideoCall)
		},
		EventAIMessage: func(ctx context.Context, raw json.RawMessage) error {
			var p models.AIRequestPayload
			if err := json.Unmarshal(raw, &p); err != nil {
				return validationf("invalid ai_message payload")
			}
			return o.RequestAIReply(ctx, p)
		},
	}

	return o
}

// Inbound event names accepted by Dispatch. Most mirror the envelope types
// they produce; the ones below differ or have no outbound counterpart.
const (
	EventSendMessage    models.EventType = "send_message"
	EventEditMessage    models.EventType = "edit_message"
	EventDeleteMessage  models.EventType = "delete_message"
	EventMessageRead    models.EventType = "message_read"
	EventTyping         models.EventType = "typing"
	EventStopTyping     models.EventType = "stop_typing"
	EventStartVideoCall models.EventType = "start_video_call"
	EventEndVideoCall   models.EventType = "end_video_call"
	EventAIMessage      models.EventType = "ai_message"
)

// Dispatch routes one inbound event through its validate→act→publish
// function. Unknown event types are validation rejections.
func (o *Orchestrator) Dispatch(ctx context.Context, event models.EventType, raw json.RawMessage) error {
	h, ok := o.dispatch[event]
	if !ok {
		return validationf("unknown event type %q", event)
	}
	return h(ctx, raw)
}

// SendMessage persists a new message and publishes receive_message.
func (o *Orchestrator) SendMessage(ctx context.Context, p models.SendMessagePayload) (*models.MessageView, error) {
	if p.ChannelID == "" {
		return nil, validationf("channelId is required")
	}
	if p.SenderID == "" {
		return nil, validationf("senderId is required")
	}
	if p.Text == "" && p.File == nil {
		return nil, validationf("message requires text or file")
	}

	start := time.Now()
	view, err := o.messages.Create(ctx, &models.Message{
		ChannelID: p.ChannelID,
		SenderID:  p.SenderID,
		Text:      p.Text,
		File:      p.File,
		ParentID:  p.ParentMessage,
	})
	metrics.StoreLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	if err := o.publish(ctx, p.ChannelID, models.EventReceiveMessage, view); err != nil {
		return nil, err
	}
	return view, nil
}

// EditMessage updates text, flags the message edited, and publishes
// message_edited with the re-enriched view.
func (o *Orchestrator) EditMessage(ctx context.Context, p models.EditMessagePayload) (*models.MessageView, error) {
	if p.MessageID == "" {
		return nil, validationf("messageId is required")
	}
	if p.Text == "" {
		return nil, validationf("text is required")
	}

	existing, err := o.messages.FindByID(ctx, p.MessageID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, notFound("message", p.MessageID)
	}

	updated, err := o.messages.UpdateText(ctx, p.MessageID, p.Text)
	if err != nil {
		return nil, err
	}
	// Deleted between read and write: degrade to not-found.
	if updated == nil {
		return nil, notFound("message", p.MessageID)
	}

	if err := o.publish(ctx, updated.ChannelID, models.EventMessageEdited, updated); err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteMessage hard-deletes and publishes message_deleted with the id only.
func (o *Orchestrator) DeleteMessage(ctx context.Context, p models.DeleteMessagePayload) error {
	if p.MessageID == "" {
		return validationf("messageId is required")
	}

	existing, err := o.messages.FindByID(ctx, p.MessageID)
	if err != nil {
		return err
	}
	if existing == nil {
		return notFound("message", p.MessageID)
	}

	deleted, err := o.messages.DeleteByID(ctx, p.MessageID)
	if err != nil {
		return err
	}
	if !deleted {
		return notFound("message", p.MessageID)
	}

	return o.publish(ctx, existing.ChannelID, models.EventMessageDeleted,
		models.DeleteMessagePayload{MessageID: p.MessageID})
}

// MarkRead sets isRead (idempotent) and publishes message_read.
func (o *Orchestrator) MarkRead(ctx context.Context, p models.MessageReadPayload) error {
	if p.MessageID == "" {
		return validationf("messageId is required")
	}

	existing, err := o.messages.FindByID(ctx, p.MessageID)
	if err != nil {
		return err
	}
	if existing == nil {
		return notFound("message", p.MessageID)
	}

	found, err := o.messages.MarkRead(ctx, p.MessageID)
	if err != nil {
		return err
	}
	if !found {
		return notFound("message", p.MessageID)
	}

	return o.publish(ctx, existing.ChannelID, models.EventMessageRead,
		models.MessageReadPayload{MessageID: p.MessageID})
}

// ChannelMessages returns the full enriched history of a channel.
func (o *Orchestrator) ChannelMessages(ctx context.Context, channelID string) ([]models.MessageView, error) {
	if channelID == "" {
		return nil, validationf("channelId is required")
	}
	return o.messages.FindByChannel(ctx, channelID, false, 0)
}

func (o *Orchestrator) typingEvent(ctx context.Context, raw json.RawMessage, t models.EventType) error {
	var p models.TypingPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return validationf("invalid %s payload", t)
	}
	if p.ChannelID == "" || p.UserID == "" {
		return validationf("channelId and userId are required")
	}
	// No persistence: typing indicators are cheap, stateless and
	// lossy-tolerant. Payload is the bare user id.
	return o.publish(ctx, p.ChannelID, t, p.UserID)
}

func (o *Orchestrator) callEvent(ctx context.Context, raw json.RawMessage, t models.EventType) error {
	var p models.CallSignalPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return validationf("invalid %s payload", t)
	}
	if p.ChannelID == "" {
		return validationf("channelId is required")
	}
	return o.publish(ctx, p.ChannelID, t, p)
}

// publish wraps the payload into an envelope and hands it to the bus.
// Exactly one envelope per successful action.
func (o *Orchestrator) publish(ctx context.Context, roomID string, t models.EventType, payload any) error {
	env, err := models.NewEnvelope(t, payload)
	if err != nil {
		return err
	}
	if err := o.bus.Publish(ctx, roomID, env); err != nil {
		o.logger.Error().Err(err).
			Str("room", roomID).
			Str("type", string(t)).
			Msg("bus publish failed")
		return err
	}
	return nil
}
