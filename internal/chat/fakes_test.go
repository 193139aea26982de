package chat

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/SAHIL7163/Talksy-backend/internal/bus"
	"github.com/SAHIL7163/Talksy-backend/internal/genai"
	"github.com/SAHIL7163/Talksy-backend/internal/models"
)

// fakeBus records every publish.
type fakeBus struct {
	mu       sync.Mutex
	topics   []string
	envs     []models.Envelope
	failWith error
}

func (b *fakeBus) Publish(_ context.Context, roomID string, env models.Envelope) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failWith != nil {
		return b.failWith
	}
	b.topics = append(b.topics, roomID)
	b.envs = append(b.envs, env)
	return nil
}

func (b *fakeBus) Subscribe(context.Context, bus.Handler) error {
	return nil
}

func (b *fakeBus) published() []models.Envelope {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]models.Envelope(nil), b.envs...)
}

func (b *fakeBus) ofType(t models.EventType) []models.Envelope {
	var out []models.Envelope
	for _, env := range b.published() {
		if env.Type == t {
			out = append(out, env)
		}
	}
	return out
}

// memStore is an in-memory MessageStore + UserStore.
type memStore struct {
	mu       sync.Mutex
	seq      int
	messages map[string]*models.Message
	users    map[string]*models.User
}

func newMemStore() *memStore {
	return &memStore{
		messages: make(map[string]*models.Message),
		users:    make(map[string]*models.User),
	}
}

func (s *memStore) Create(_ context.Context, msg *models.Message) (*models.MessageView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	if msg.ID == "" {
		msg.ID = fmt.Sprintf("m%03d", s.seq)
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Unix(int64(s.seq), 0)
	}
	cp := *msg
	s.messages[msg.ID] = &cp
	return s.viewLocked(msg.ID), nil
}

func (s *memStore) FindByID(_ context.Context, id string) (*models.MessageView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.messages[id]; !ok {
		return nil, nil
	}
	return s.viewLocked(id), nil
}

func (s *memStore) FindByChannel(_ context.Context, channelID string, desc bool, limit int) ([]models.MessageView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for id, m := range s.messages {
		if m.ChannelID == channelID {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := s.messages[ids[i]], s.messages[ids[j]]
		if desc {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	out := make([]models.MessageView, 0, len(ids))
	for _, id := range ids {
		out = append(out, *s.viewLocked(id))
	}
	return out, nil
}

func (s *memStore) UpdateText(_ context.Context, id, text string) (*models.MessageView, error) {
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

func (s *memStore) MarkRead(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages[id]
	if !ok {
		return false, nil
	}
	m.IsRead = true
	return true, nil
}

func (s *memStore) DeleteByID(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.messages[id]; !ok {
		return false, nil
	}
	delete(s.messages, id)
	return true, nil
}

func (s *memStore) FindUserByID(_ context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (s *memStore) FindUserByEmail(_ context.Context, email string) (*models.User, error) {
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

func (s *memStore) CreateUser(_ context.Context, user *models.User) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	if user.ID == "" {
		user.ID = fmt.Sprintf("u%03d", s.seq)
	}
	cp := *user
	s.users[user.ID] = &cp
	return &cp, nil
}

func (s *memStore) addUser(id, fullName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[id] = &models.User{ID: id, FullName: fullName}
}

func (s *memStore) viewLocked(id string) *models.MessageView {
	m := s.messages[id]
	view := &models.MessageView{Message: *m}
	if u, ok := s.users[m.SenderID]; ok {
		view.Sender = u.Ref()
	} else {
		view.Sender = &models.UserRef{ID: m.SenderID}
	}
	if m.ParentID != "" {
		if p, ok := s.messages[m.ParentID]; ok {
			parent := &models.ParentRef{ID: p.ID, Text: p.Text}
			if pu, ok := s.users[p.SenderID]; ok {
				parent.Sender = pu.Ref()
			}
			view.Parent = parent
		}
	}
	return view
}

// fakeGenerator returns a canned reply or error, recording the turns.
type fakeGenerator struct {
	reply string
	err   error
	turns []genai.Turn
}

func (g *fakeGenerator) Generate(_ context.Context, turns []genai.Turn) (string, error) {
	g.turns = turns
	if g.err != nil {
		return "", g.err
	}
	return g.reply, nil
}
