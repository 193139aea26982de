package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/SAHIL7163/Talksy-backend/internal/models"
)

// GetChannelMessages handles fetching the full enriched history of a channel.
func (h *Handler) GetChannelMessages(w http.ResponseWriter, r *http.Request) {
	channelID := chi.URLParam(r, "channelId")

	messages, err := h.orch.ChannelMessages(r.Context(), channelID)
	if err != nil {
		h.domainError(w, err)
		return
	}
	if messages == nil {
		messages = []models.MessageView{}
	}

	h.JSON(w, http.StatusOK, messages)
}

// EditMessageRequest represents the edit request body.
type EditMessageRequest struct {
	Text string `json:"text"`
}

// EditMessage handles updating message text. The edited message is also
// broadcast to the channel as message_edited.
func (h *Handler) EditMessage(w http.ResponseWriter, r *http.Request) {
	messageID := chi.URLParam(r, "messageId")

	var req EditMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	// Mutations are detached from the request lifetime: a caller that
	// disconnects mid-flight must not cancel between persist and publish.
	updated, err := h.orch.EditMessage(context.WithoutCancel(r.Context()), models.EditMessagePayload{
		MessageID: messageID,
		Text:      req.Text,
	})
	if err != nil {
		h.domainError(w, err)
		return
	}

	h.JSON(w, http.StatusOK, updated)
}

// DeleteMessage handles hard-deleting a message.
func (h *Handler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	messageID := chi.URLParam(r, "messageId")

	if err := h.orch.DeleteMessage(context.WithoutCancel(r.Context()), models.DeleteMessagePayload{MessageID: messageID}); err != nil {
		h.domainError(w, err)
		return
	}

	h.JSON(w, http.StatusOK, map[string]bool{"success": true})
}

// MarkRead handles flagging a message as read.
func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	messageID := chi.URLParam(r, "messageId")

	if err := h.orch.MarkRead(context.WithoutCancel(r.Context()), models.MessageReadPayload{MessageID: messageID}); err != nil {
		h.domainError(w, err)
		return
	}

	h.JSON(w, http.StatusOK, map[string]bool{"success": true})
}

// AIMessage handles an assistant reply request. The reply (or a room-visible
// error) arrives over the fan-out path; the HTTP response only acknowledges
// that the flow was accepted.
func (h *Handler) AIMessage(w http.ResponseWriter, r *http.Request) {
	var req models.AIRequestPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.ChannelID == "" || req.SenderID == "" {
		h.Error(w, http.StatusBadRequest, "channelId and senderId are required")
		return
	}

	// Generation can take seconds and must outlive the caller; once
	// accepted, the flow is never cancelled by the requester going away.
	// Failures past this point are room-visible error_message envelopes.
	ctx := context.WithoutCancel(r.Context())
	go func() {
		_ = h.orch.RequestAIReply(ctx, req)
	}()

	h.JSON(w, http.StatusAccepted, map[string]bool{"accepted": true})
}
