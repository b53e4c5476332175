package chat

import "github.com/google/uuid"

// ConnID identifies one live transport session.
type ConnID string

// Membership is a connection's current binding: who it is and which room
// it sits in. RoomID is empty while the connection is anonymous.
type Membership struct {
	User   User
	RoomID string
}

// Registry maps live connections to their membership. It is plain
// bookkeeping with no lock of its own: the Router serializes all access,
// so Registry and Presence mutate in lock-step and cannot diverge.
type Registry struct {
	conns map[ConnID]Membership
}

func NewRegistry() *Registry {
	return &Registry{conns: map[ConnID]Membership{}}
}

// OnConnect allocates a fresh connection id. UUIDs are unique for the
// process lifetime, so ids are never recycled into a live reference.
func (r *Registry) OnConnect() ConnID {
	id := ConnID(uuid.NewString())
	r.conns[id] = Membership{}
	return id
}

// Known reports whether the connection is still registered.
func (r *Registry) Known(id ConnID) bool {
	_, ok := r.conns[id]
	return ok
}

// Membership returns the connection's current binding.
func (r *Registry) Membership(id ConnID) (Membership, bool) {
	m, ok := r.conns[id]
	return m, ok
}

// Bind records a room membership for the connection and returns the room
// it previously occupied, if any. The caller removes the stale presence
// entry for that prior room before adding the new one.
func (r *Registry) Bind(id ConnID, user User, roomID string) (prevRoom string, ok bool) {
	m, exists := r.conns[id]
	if !exists {
		return "", false
	}
	prevRoom = m.RoomID
	r.conns[id] = Membership{User: user, RoomID: roomID}
	return prevRoom, true
}

// Unbind clears the membership but keeps the connection registered.
func (r *Registry) Unbind(id ConnID) {
	m, exists := r.conns[id]
	if !exists {
		return
	}
	m.RoomID = ""
	r.conns[id] = m
}

// OnDisconnect removes the connection entirely and returns its last
// membership so the caller can notify the room. Idempotent: a second
// disconnect for the same id returns ok=false and changes nothing.
func (r *Registry) OnDisconnect(id ConnID) (Membership, bool) {
	m, exists := r.conns[id]
	if !exists {
		return Membership{}, false
	}
	delete(r.conns, id)
	return m, true
}

// All returns every registered connection id, in no particular order.
func (r *Registry) All() []ConnID {
	out := make([]ConnID, 0, len(r.conns))
	for id := range r.conns {
		out = append(out, id)
	}
	return out
}

func (r *Registry) Len() int { return len(r.conns) }
