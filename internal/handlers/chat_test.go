package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAHIL7163/Talksy-backend/internal/bus"
	"github.com/SAHIL7163/Talksy-backend/internal/chat"
	"github.com/SAHIL7163/Talksy-backend/internal/genai"
	"github.com/SAHIL7163/Talksy-backend/internal/models"
)

// recordingBus captures publishes and fails when the publishing context is
// already cancelled, so a mutation running under a dead request context
// shows up as a missing envelope.
type recordingBus struct {
	mu   sync.Mutex
	envs []models.Envelope
}

func (b *recordingBus) Publish(ctx context.Context, _ string, env models.Envelope) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.envs = append(b.envs, env)
	return nil
}

func (b *recordingBus) Subscribe(context.Context, bus.Handler) error { return nil }

func (b *recordingBus) ofType(t models.EventType) []models.Envelope {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []models.Envelope
	for _, env := range b.envs {
		if env.Type == t {
			out = append(out, env)
		}
	}
	return out
}

// ctxStore is a map-backed store that rejects any operation whose context is
// already cancelled.
type ctxStore struct {
	mu       sync.Mutex
	seq      int
	messages map[string]*models.Message
	users    map[string]*models.User
}

func newCtxStore() *ctxStore {
	return &ctxStore{
		messages: make(map[string]*models.Message),
		users:    make(map[string]*models.User),
	}
}

func (s *ctxStore) Create(ctx context.Context, msg *models.Message) (*models.MessageView, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	if msg.ID == "" {
		msg.ID = fmt.Sprintf("m%d", s.seq)
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Unix(int64(s.seq), 0)
	}
	cp := *msg
	s.messages[msg.ID] = &cp
	return s.viewLocked(msg.ID), nil
}

func (s *ctxStore) FindByID(ctx context.Context, id string) (*models.MessageView, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.messages[id]; !ok {
		return nil, nil
	}
	return s.viewLocked(id), nil
}

func (s *ctxStore) FindByChannel(ctx context.Context, channelID string, _ bool, _ int) ([]models.MessageView, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return nil, nil
}

func (s *ctxStore) UpdateText(ctx context.Context, id, text string) (*models.MessageView, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages[id]
	if !ok {
		return nil, nil
	}
	m.Text = text
	m.IsEdited = true
	return s.viewLocked(id), nil
}

func (s *ctxStore) MarkRead(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages[id]
	if !ok {
		return false, nil
	}
	m.IsRead = true
	return true, nil
}

func (s *ctxStore) DeleteByID(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.messages[id]; !ok {
		return false, nil
	}
	delete(s.messages, id)
	return true, nil
}

func (s *ctxStore) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (s *ctxStore) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *ctxStore) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	if user.ID == "" {
		user.ID = fmt.Sprintf("u%d", s.seq)
	}
	cp := *user
	s.users[user.ID] = &cp
	return &cp, nil
}

func (s *ctxStore) Close() {}

func (s *ctxStore) Ping(ctx context.Context) error { return ctx.Err() }

func (s *ctxStore) viewLocked(id string) *models.MessageView {
	m := s.messages[id]
	return &models.MessageView{Message: *m, Sender: &models.UserRef{ID: m.SenderID}}
}

// slowGenerator blocks until released, failing fast if its context is
// cancelled first.
type slowGenerator struct {
	release chan struct{}
}

func (g *slowGenerator) Generate(ctx context.Context, _ []genai.Turn) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-g.release:
		return "late reply", nil
	}
}

func newChatFixture(gen genai.Generator) (*Handler, *chat.Orchestrator, *recordingBus) {
	st := newCtxStore()
	b := &recordingBus{}
	orch := chat.New(st, st, b, gen, zerolog.Nop())
	return NewHandler(orch, st, nil), orch, b
}

func TestAIMessageOutlivesCallerDisconnect(t *testing.T) {
	gen := &slowGenerator{release: make(chan struct{})}
	h, _, b := newChatFixture(gen)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodPost, "/api/chat/ai",
		strings.NewReader(`{"channelId":"r1","senderId":"u1","text":"hi"}`)).WithContext(ctx)
	rec := httptest.NewRecorder()

	h.AIMessage(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code)

	// Caller goes away mid-generation; the late reply is still published.
	cancel()
	close(gen.release)

	require.Eventually(t, func() bool {
		return len(b.ofType(models.EventReceiveAIMessage)) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Empty(t, b.ofType(models.EventErrorMessage))
}

func TestAIMessageRejectsMissingFields(t *testing.T) {
	h, _, b := newChatFixture(&slowGenerator{release: make(chan struct{})})

	req := httptest.NewRequest(http.MethodPost, "/api/chat/ai", strings.NewReader(`{"text":"hi"}`))
	rec := httptest.NewRecorder()
	h.AIMessage(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, b.envs)
}

func TestMutationsDetachedFromRequestContext(t *testing.T) {
	h, orch, b := newChatFixture(&slowGenerator{release: make(chan struct{})})

	r := chi.NewRouter()
	r.Put("/api/chat/message/{messageId}", h.EditMessage)
	r.Put("/api/chat/message/{messageId}/read", h.MarkRead)
	r.Delete("/api/chat/message/{messageId}", h.DeleteMessage)

	sent, err := orch.SendMessage(context.Background(), models.SendMessagePayload{
		ChannelID: "r1", SenderID: "u1", Text: "typo",
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // the caller is already gone

	do := func(method, path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body)).WithContext(ctx)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	rec := do(http.MethodPut, "/api/chat/message/"+sent.ID, `{"text":"fixed"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(http.MethodPut, "/api/chat/message/"+sent.ID+"/read", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(http.MethodDelete, "/api/chat/message/"+sent.ID, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	assert.Len(t, b.ofType(models.EventMessageEdited), 1)
	assert.Len(t, b.ofType(models.EventMessageRead), 1)
	assert.Len(t, b.ofType(models.EventMessageDeleted), 1)
}
