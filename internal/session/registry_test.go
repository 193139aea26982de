package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAHIL7163/Talksy-backend/internal/models"
)

func newTestSession(t *testing.T, r *Registry, id string) *Session {
	t.Helper()
	s := NewSession(id)
	r.Add(s)
	return s
}

func drain(s *Session) []models.Envelope {
	var out []models.Envelope
	for {
		select {
		case env, ok := <-s.Events():
			if !ok {
				return out
			}
			out = append(out, env)
		default:
			return out
		}
	}
}

func TestRegisterBindsIdentity(t *testing.T) {
	r := NewRegistry()
	s := newTestSession(t, r, "s1")

	r.Register(s, "u1")

	userID, ok := r.UserID(s)
	require.True(t, ok)
	assert.Equal(t, "u1", userID)
	assert.Equal(t, []*Session{s}, r.SessionsByUser("u1"))
}

func TestRegisterRebindOverwritesPriorIdentity(t *testing.T) {
	r := NewRegistry()
	s := newTestSession(t, r, "s1")

	r.Register(s, "u1")
	r.Register(s, "u2")

	assert.Empty(t, r.SessionsByUser("u1"))
	assert.Len(t, r.SessionsByUser("u2"), 1)
}

func TestSessionsByUserMultiDevice(t *testing.T) {
	r := NewRegistry()
	a := newTestSession(t, r, "phone")
	b := newTestSession(t, r, "laptop")

	r.Register(a, "u1")
	r.Register(b, "u1")

	assert.Len(t, r.SessionsByUser("u1"), 2)
}

func TestJoinRoomIsIdempotent(t *testing.T) {
	r := NewRegistry()
	s := newTestSession(t, r, "s1")

	r.JoinRoom(s, "r1")
	r.JoinRoom(s, "r1")

	assert.Len(t, r.roomMembers("r1"), 1)
}

func TestLeaveRoomRemovesSingleMembership(t *testing.T) {
	r := NewRegistry()
	s := newTestSession(t, r, "s1")

	r.JoinRoom(s, "r1")
	r.JoinRoom(s, "r2")
	r.LeaveRoom(s, "r1")

	assert.Empty(t, r.roomMembers("r1"))
	assert.Len(t, r.roomMembers("r2"), 1)
}

func TestUnregisterPurgesAllState(t *testing.T) {
	r := NewRegistry()
	s := newTestSession(t, r, "s1")

	r.Register(s, "u1")
	r.JoinRoom(s, "r1")
	r.JoinRoom(s, "r2")

	r.Unregister(s)

	assert.Empty(t, r.SessionsByUser("u1"))
	assert.Empty(t, r.roomMembers("r1"))
	assert.Empty(t, r.roomMembers("r2"))
	assert.Empty(t, r.allSessions())

	_, ok := r.UserID(s)
	assert.False(t, ok)
}

func TestUnregisterTwiceIsSafe(t *testing.T) {
	r := NewRegistry()
	s := newTestSession(t, r, "s1")

	r.Unregister(s)
	assert.NotPanics(t, func() { r.Unregister(s) })
}

func TestOperationsOnUnknownSessionAreNoOps(t *testing.T) {
	r := NewRegistry()
	ghost := NewSession("ghost") // never added

	r.Register(ghost, "u1")
	r.JoinRoom(ghost, "r1")

	assert.Empty(t, r.SessionsByUser("u1"))
	assert.Empty(t, r.roomMembers("r1"))
}

func TestSendToClosedSessionIsDropped(t *testing.T) {
	r := NewRegistry()
	s := newTestSession(t, r, "s1")
	r.Unregister(s)

	env := models.Envelope{Type: models.EventTyping}
	assert.False(t, s.TrySend(env))
}
