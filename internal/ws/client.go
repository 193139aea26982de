// Package ws is the websocket transport. Frames carry the same
// {type, payload} shape as bus envelopes, so clients subscribe to event
// names that mirror envelope types exactly.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/SAHIL7163/Talksy-backend/internal/chat"
	"github.com/SAHIL7163/Talksy-backend/internal/models"
	"github.com/SAHIL7163/Talksy-backend/internal/session"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 64 * 1024
)

// Session-level event names handled by the transport itself; everything
// else goes through the orchestrator dispatch table.
const (
	eventRegister  models.EventType = "register"
	eventJoinRoom  models.EventType = "join_room"
	eventLeaveRoom models.EventType = "leave_room"
)

// Frame is one websocket message in either direction.
type Frame struct {
	Type    models.EventType `json:"type"`
	Payload json.RawMessage  `json:"payload"`
}

type registerPayload struct {
	UserID string `json:"userId"`
}

// Handler upgrades connections and runs one client per connection.
type Handler struct {
	registry *session.Registry
	orch     *chat.Orchestrator
	logger   zerolog.Logger
	upgrader websocket.Upgrader
}

// NewHandler creates the websocket handler. Origin checking is left to the
// CORS layer of the external auth edge.
func NewHandler(registry *session.Registry, orch *chat.Orchestrator, logger zerolog.Logger) *Handler {
	return &Handler{
		registry: registry,
		orch:     orch,
		logger:   logger.With().Str("component", "ws").Logger(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// ServeHTTP upgrades the connection and blocks in the read loop until the
// client disconnects.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	sess := session.NewSession(uuid.New().String())
	h.registry.Add(sess)

	c := &client{
		handler: h,
		conn:    conn,
		sess:    sess,
		logger:  h.logger.With().Str("session", sess.ID).Logger(),
	}

	go c.writePump()
	c.readPump()
}

// client is one live websocket connection.
type client struct {
	handler *Handler
	conn    *websocket.Conn
	sess    *session.Session
	logger  zerolog.Logger
}

// readPump decodes inbound frames and routes them. Malformed frames are
// logged and ignored; rejections go back as a direct error_message to this
// session only. Exits on connection error and purges the session.
func (c *client) readPump() {
	defer func() {
		c.handler.registry.Unregister(c.sess)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.logger.Debug().Err(err).Msg("connection closed")
			return
		}

		var frame Frame
		if err := json.Unmarshal(data, &frame); err != nil || frame.Type == "" {
			c.logger.Warn().Msg("ignoring malformed frame")
			continue
		}

		c.handleFrame(frame)
	}
}

func (c *client) handleFrame(frame Frame) {
	switch frame.Type {
	case eventRegister:
		var p registerPayload
		if err := json.Unmarshal(frame.Payload, &p); err != nil || p.UserID == "" {
			c.reject("userId is required")
			return
		}
		c.handler.registry.Register(c.sess, p.UserID)

	case eventJoinRoom:
		roomID, ok := roomIDFromPayload(frame.Payload)
		if !ok {
			c.reject("channelId is required")
			return
		}
		c.handler.registry.JoinRoom(c.sess, roomID)

	case eventLeaveRoom:
		roomID, ok := roomIDFromPayload(frame.Payload)
		if !ok {
			c.reject("channelId is required")
			return
		}
		c.handler.registry.LeaveRoom(c.sess, roomID)

	case chat.EventAIMessage:
		// Generation can take seconds; don't stall this connection's
		// other events. The flow is not cancelled by disconnect — a
		// late reply is still published.
		go c.dispatch(frame)

	default:
		c.dispatch(frame)
	}
}

// dispatch hands a domain event to the orchestrator. The background context
// decouples in-flight operations from the connection lifetime.
func (c *client) dispatch(frame Frame) {
	err := c.handler.orch.Dispatch(context.Background(), frame.Type, frame.Payload)
	if err == nil {
		return
	}
	if chat.IsValidation(err) || chat.IsNotFound(err) {
		c.reject(err.Error())
		return
	}
	c.logger.Error().Err(err).Str("type", string(frame.Type)).Msg("event handling failed")
	c.reject("internal error")
}

// reject sends a direct error_message to this session only.
func (c *client) reject(msg string) {
	env, err := models.NewEnvelope(models.EventErrorMessage, models.ErrorPayload{Message: msg})
	if err != nil {
		return
	}
	c.sess.TrySend(env)
}

// writePump drains the session's outbound queue onto the wire. The queue is
// closed by Registry.Unregister, which ends the loop.
func (c *client) writePump() {
	defer c.conn.Close()

	for env := range c.sess.Events() {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteJSON(Frame{Type: env.Type, Payload: env.Payload}); err != nil {
			c.logger.Debug().Err(err).Msg("write failed")
			return
		}
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// roomIDFromPayload accepts either a bare JSON string or {"channelId":...},
// matching what clients historically sent for join_room.
func roomIDFromPayload(raw json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil && s != "" {
		return s, true
	}
	var obj struct {
		ChannelID string `json:"channelId"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.ChannelID != "" {
		return obj.ChannelID, true
	}
	return "", false
}
