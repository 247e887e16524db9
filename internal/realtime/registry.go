package realtime

import "sync"

// Session is one live socket as seen by the registry and the hub. Implemented
// by *Connection; tests substitute a recording fake.
type Session interface {
	ID() string
	Send(event string, data interface{})
}

// Registry tracks which sessions belong to which rooms. It is process-local:
// in a horizontally scaled deployment each instance holds disjoint membership,
// so fan-out only reaches sockets connected to that instance. Fixing that
// requires an external pub/sub relay behind the same interface.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]Session            // session id -> session
	rooms    map[RoomKey]map[string]Session // room -> session id -> session
	joined   map[string]map[RoomKey]struct{} // session id -> rooms, for disconnect cleanup
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]Session),
		rooms:    make(map[RoomKey]map[string]Session),
		joined:   make(map[string]map[RoomKey]struct{}),
	}
}

// Add registers a session with no room membership yet.
func (r *Registry) Add(s Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID()] = s
}

// Join adds the session to a room. Idempotent: joining a room twice is a no-op.
func (r *Registry) Join(s Session, key RoomKey) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[s.ID()] = s
	if r.rooms[key] == nil {
		r.rooms[key] = make(map[string]Session)
	}
	r.rooms[key][s.ID()] = s
	if r.joined[s.ID()] == nil {
		r.joined[s.ID()] = make(map[RoomKey]struct{})
	}
	r.joined[s.ID()][key] = struct{}{}
}

// Leave removes the session from a room. Idempotent: leaving a room the
// session never joined is a no-op.
func (r *Registry) Leave(s Session, key RoomKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeFromRoom(s.ID(), key)
}

// Remove drops the session entirely: the implicit leave-all on disconnect.
// Returns the rooms the session belonged to so the caller can rebroadcast
// study-room member counts.
func (r *Registry) Remove(s Session) []RoomKey {
	r.mu.Lock()
	defer r.mu.Unlock()

	var left []RoomKey
	for key := range r.joined[s.ID()] {
		r.removeFromRoom(s.ID(), key)
		left = append(left, key)
	}
	delete(r.joined, s.ID())
	delete(r.sessions, s.ID())
	return left
}

func (r *Registry) removeFromRoom(sessionID string, key RoomKey) {
	if members, ok := r.rooms[key]; ok {
		delete(members, sessionID)
		if len(members) == 0 {
			delete(r.rooms, key)
		}
	}
	if rooms, ok := r.joined[sessionID]; ok {
		delete(rooms, key)
	}
}

// MemberCount reports how many sessions are in the room.
func (r *Registry) MemberCount(key RoomKey) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[key])
}

// Members snapshots the sessions in a room.
func (r *Registry) Members(key RoomKey) []Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := make([]Session, 0, len(r.rooms[key]))
	for _, s := range r.rooms[key] {
		members = append(members, s)
	}
	return members
}

// All snapshots every registered session, roomed or not.
func (r *Registry) All() []Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		all = append(all, s)
	}
	return all
}
