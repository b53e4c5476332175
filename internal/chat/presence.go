package chat

// Presence holds the per-room view of who is online, derived from the
// Registry. Each connection counts as its own entry: a user with two tabs
// open appears twice, matching the registry's per-connection model.
// Like Registry, it carries no lock; the Router owns synchronization.
type Presence struct {
	rooms map[string]map[ConnID]User
}

func NewPresence() *Presence {
	return &Presence{rooms: map[string]map[ConnID]User{}}
}

// Add records the connection as present in the room.
func (p *Presence) Add(roomID string, id ConnID, user User) {
	members := p.rooms[roomID]
	if members == nil {
		members = map[ConnID]User{}
		p.rooms[roomID] = members
	}
	members[id] = user
}

// Remove drops the connection from the room; empty rooms are pruned.
func (p *Presence) Remove(roomID string, id ConnID) {
	members := p.rooms[roomID]
	if members == nil {
		return
	}
	delete(members, id)
	if len(members) == 0 {
		delete(p.rooms, roomID)
	}
}

// ListUsers answers "who is online in this room", one entry per
// connection, in no particular order.
func (p *Presence) ListUsers(roomID string) []User {
	members := p.rooms[roomID]
	out := make([]User, 0, len(members))
	for _, u := range members {
		out = append(out, u)
	}
	return out
}

// Connections returns the connection ids currently present in the room.
func (p *Presence) Connections(roomID string) []ConnID {
	members := p.rooms[roomID]
	out := make([]ConnID, 0, len(members))
	for id := range members {
		out = append(out, id)
	}
	return out
}
