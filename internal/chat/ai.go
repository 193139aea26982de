package chat

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/SAHIL7163/Talksy-backend/internal/genai"
	"github.com/SAHIL7163/Talksy-backend/internal/metrics"
	"github.com/SAHIL7163/Talksy-backend/internal/models"
)

const (
	// aiEmail is the reserved identifier for the singleton assistant
	// identity, created lazily on first use.
	aiEmail    = "ai@assistant.local"
	aiFullName = "AI Assistant"

	// historyLimit bounds the conversation context sent upstream.
	historyLimit = 5

	// aiPlaceholderPrompt substitutes an empty or whitespace-only prompt.
	aiPlaceholderPrompt = "Hello"
)

// Upstream failure texts, keyed by status range. The table is ordered and
// evaluated first-match so the code path cannot drift from the mapping.
var upstreamErrorTable = []struct {
	min, max int
	text     string
}{
	{400, 400, "invalid request to AI service"},
	{401, 403, "AI service authentication failed"},
	{404, 404, "AI model not found"},
	{429, 429, "rate limit exceeded"},
	{500, 599, "AI service error, please try again later"},
}

const aiGenericFailure = "failed to generate AI reply"

// upstreamErrorText maps a generation failure to its fixed room-visible
// message.
func upstreamErrorText(err error) string {
	var statusErr *genai.StatusError
	if !errors.As(err, &statusErr) {
		return aiGenericFailure
	}
	for _, e := range upstreamErrorTable {
		if statusErr.Code >= e.min && statusErr.Code <= e.max {
			return e.text
		}
	}
	return aiGenericFailure
}

// RequestAIReply runs the assistant flow: persist the user's message,
// gather recent room history, call the generation service, then persist and
// publish the reply. Upstream failures are broadcast to the room as
// error_message — the one flow where failure is room-visible — and are
// never returned to the caller as an error. Only argument validation is a
// synchronous rejection.
func (o *Orchestrator) RequestAIReply(ctx context.Context, p models.AIRequestPayload) error {
	if p.ChannelID == "" {
		return validationf("channelId is required")
	}
	if p.SenderID == "" {
		return validationf("senderId is required")
	}

	metrics.AIRequests.Inc()

	// Faults past validation must not escape to the transport handler or
	// the bus subscriber.
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error().Interface("panic", r).Str("channel", p.ChannelID).Msg("ai flow panicked")
			o.publishAIError(ctx, p.ChannelID, aiGenericFailure, "panic")
		}
	}()

	text := strings.TrimSpace(p.Text)
	if text == "" {
		text = aiPlaceholderPrompt
	}

	// No human peer reads the prompt in a bot exchange, so it is stored
	// already read.
	userMsg, err := o.messages.Create(ctx, &models.Message{
		ChannelID: p.ChannelID,
		SenderID:  p.SenderID,
		Text:      text,
		IsRead:    true,
	})
	if err != nil {
		o.logger.Error().Err(err).Msg("persisting ai prompt failed")
		o.publishAIError(ctx, p.ChannelID, aiGenericFailure, "store")
		return nil
	}

	aiUser, err := o.ensureAIUser(ctx)
	if err != nil {
		o.logger.Error().Err(err).Msg("resolving ai identity failed")
		o.publishAIError(ctx, p.ChannelID, aiGenericFailure, "store")
		return nil
	}

	turns, err := o.conversationTurns(ctx, p.ChannelID, userMsg.ID, aiUser.ID)
	if err != nil {
		o.logger.Error().Err(err).Msg("gathering conversation history failed")
		o.publishAIError(ctx, p.ChannelID, aiGenericFailure, "store")
		return nil
	}
	turns = append(turns, genai.Turn{Role: genai.RoleUser, Text: text})

	reply, err := o.gen.Generate(ctx, turns)
	if err != nil {
		status := "unknown"
		var statusErr *genai.StatusError
		if errors.As(err, &statusErr) {
			status = strconv.Itoa(statusErr.Code)
		}
		o.logger.Warn().Err(err).Str("channel", p.ChannelID).Msg("generation failed")
		o.publishAIError(ctx, p.ChannelID, upstreamErrorText(err), status)
		return nil
	}

	replyView, err := o.messages.Create(ctx, &models.Message{
		ChannelID: p.ChannelID,
		SenderID:  aiUser.ID,
		Text:      reply,
	})
	if err != nil {
		o.logger.Error().Err(err).Msg("persisting ai reply failed")
		o.publishAIError(ctx, p.ChannelID, aiGenericFailure, "store")
		return nil
	}

	return o.publish(ctx, p.ChannelID, models.EventReceiveAIMessage, replyView)
}

// conversationTurns builds chronological context from the latest messages
// in the room, excluding the just-persisted prompt (it is appended as the
// final turn by the caller). The assistant's own messages take the model
// role; everything else is a user turn.
func (o *Orchestrator) conversationTurns(ctx context.Context, channelID, promptID, aiUserID string) ([]genai.Turn, error) {
	recent, err := o.messages.FindByChannel(ctx, channelID, true, historyLimit)
	if err != nil {
		return nil, err
	}

	// Newest-first from the store; reverse into chronological order.
	turns := make([]genai.Turn, 0, len(recent))
	for i := len(recent) - 1; i >= 0; i-- {
		msg := recent[i]
		if msg.ID == promptID || msg.Text == "" {
			continue
		}
		role := genai.RoleUser
		if msg.SenderID == aiUserID {
			role = genai.RoleModel
		}
		turns = append(turns, genai.Turn{Role: role, Text: msg.Text})
	}
	return turns, nil
}

// ensureAIUser resolves or lazily creates the singleton assistant identity.
// A concurrent create on another instance loses the unique-email race and
// re-reads.
func (o *Orchestrator) ensureAIUser(ctx context.Context) (*models.User, error) {
	user, err := o.users.FindUserByEmail(ctx, aiEmail)
	if err != nil {
		return nil, err
	}
	if user != nil {
		return user, nil
	}

	created, err := o.users.CreateUser(ctx, &models.User{
		FullName: aiFullName,
		Email:    aiEmail,
	})
	if err == nil {
		return created, nil
	}

	user, findErr := o.users.FindUserByEmail(ctx, aiEmail)
	if findErr == nil && user != nil {
		return user, nil
	}
	return nil, err
}

// publishAIError broadcasts the failure to the whole room as a system
// message. Publish failures here are logged and abandoned; there is no
// further fallback.
func (o *Orchestrator) publishAIError(ctx context.Context, channelID, text, status string) {
	metrics.AIFailures.WithLabelValues(status).Inc()
	env, err := models.NewEnvelope(models.EventErrorMessage, models.ErrorPayload{Message: text})
	if err != nil {
		return
	}
	if err := o.bus.Publish(ctx, channelID, env); err != nil {
		o.logger.Error().Err(err).Str("channel", channelID).Msg("publishing ai error failed")
	}
}
