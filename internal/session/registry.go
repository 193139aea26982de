package session

import (
	"sync"

	"github.com/SAHIL7163/Talksy-backend/internal/metrics"
)

// Registry owns session lifecycle: identity bindings, local room membership
// and the user→sessions index used for targeted notifications. All state is
// process-local and guarded by one RWMutex.
type Registry struct {
	mu sync.RWMutex

	sessions map[*Session]struct{}
	identity map[*Session]string              // session -> user ID
	byUser   map[string]map[*Session]struct{} // user ID -> sessions (multi-device)
	rooms    map[string]map[*Session]struct{} // room ID -> members
	joined   map[*Session]map[string]struct{} // session -> joined room IDs
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[*Session]struct{}),
		identity: make(map[*Session]string),
		byUser:   make(map[string]map[*Session]struct{}),
		rooms:    make(map[string]map[*Session]struct{}),
		joined:   make(map[*Session]map[string]struct{}),
	}
}

// Add tracks a freshly opened connection.
func (r *Registry) Add(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s] = struct{}{}
	metrics.ActiveSessions.Inc()
}

// Register binds a connection to a user identity, placing it into the
// private per-user room. Re-registering overwrites the prior binding.
func (r *Registry) Register(s *Session, userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[s]; !ok {
		return
	}

	if prev, ok := r.identity[s]; ok && prev != userID {
		r.dropIdentityLocked(s, prev)
	}

	r.identity[s] = userID
	if r.byUser[userID] == nil {
		r.byUser[userID] = make(map[*Session]struct{})
	}
	r.byUser[userID][s] = struct{}{}
}

// JoinRoom adds the connection to the local membership set for roomID.
// No-op if already a member.
func (r *Registry) JoinRoom(s *Session, roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[s]; !ok {
		return
	}

	if r.rooms[roomID] == nil {
		r.rooms[roomID] = make(map[*Session]struct{})
	}
	r.rooms[roomID][s] = struct{}{}

	if r.joined[s] == nil {
		r.joined[s] = make(map[string]struct{})
	}
	r.joined[s][roomID] = struct{}{}
}

// LeaveRoom removes the connection from a single room.
func (r *Registry) LeaveRoom(s *Session, roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeFromRoomLocked(s, roomID)
	if set, ok := r.joined[s]; ok {
		delete(set, roomID)
	}
}

// Unregister purges all state for a session atomically: identity binding,
// every room membership, and the session itself. Runs effectively once;
// later calls find nothing to remove. Deliveries racing with removal land
// on the closed session and are silently dropped.
func (r *Registry) Unregister(s *Session) {
	r.mu.Lock()
	if _, ok := r.sessions[s]; !ok {
		r.mu.Unlock()
		return
	}

	if userID, ok := r.identity[s]; ok {
		r.dropIdentityLocked(s, userID)
		delete(r.identity, s)
	}
	for roomID := range r.joined[s] {
		r.removeFromRoomLocked(s, roomID)
	}
	delete(r.joined, s)
	delete(r.sessions, s)
	metrics.ActiveSessions.Dec()
	r.mu.Unlock()

	s.Close()
}

// SessionsByUser returns every connection the user has open on this
// instance. Used for identity-targeted events such as friend-request
// notifications.
func (r *Registry) SessionsByUser(userID string) []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.byUser[userID]
	out := make([]*Session, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	return out
}

// UserID returns the identity bound to a session, if any.
func (r *Registry) UserID(s *Session) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.identity[s]
	return id, ok
}

// roomMembers snapshots the member set for a room.
func (r *Registry) roomMembers(roomID string) []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.rooms[roomID]
	out := make([]*Session, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	return out
}

// allSessions snapshots every connected session.
func (r *Registry) allSessions() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Session, 0, len(r.sessions))
	for s := range r.sessions {
		out = append(out, s)
	}
	return out
}

func (r *Registry) dropIdentityLocked(s *Session, userID string) {
	if set, ok := r.byUser[userID]; ok {
		delete(set, s)
		if len(set) == 0 {
			delete(r.byUser, userID)
		}
	}
}

func (r *Registry) removeFromRoomLocked(s *Session, roomID string) {
	if set, ok := r.rooms[roomID]; ok {
		delete(set, s)
		if len(set) == 0 {
			delete(r.rooms, roomID)
		}
	}
}
