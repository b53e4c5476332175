package chat

import (
	"context"
	"strings"
	"sync"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/osamahabib5/chatapp-espressolab-osama/pkg/metrics"
)

// Dispatcher is the transport-side collaborator that delivers one event to
// one connection. The Router computes recipient sets itself, so the
// transport never needs to know about rooms.
type Dispatcher interface {
	Send(id ConnID, e Event)
}

// MessageStore is the durable side of send_message plus the defensive
// room-existence check. Writes are fire-and-forget from the Router's
// point of view: a failed save is logged, never retracted.
type MessageStore interface {
	SaveMessage(ctx context.Context, m Message) error
	RoomExists(ctx context.Context, roomID string) (bool, error)
}

// Router owns the in-memory broadcast state: the connection registry, the
// per-room presence view, typing flags, and the room-existence cache. All
// of it sits behind one mutex; every compound update from the event table
// runs as a single critical section, and delivery + persistence happen
// after the lock is released.
type Router struct {
	log   *slog.Logger
	disp  Dispatcher
	store MessageStore

	mu       sync.Mutex
	registry *Registry
	presence *Presence
	typing   map[string]map[string]bool // roomID -> userID -> typing
	rooms    map[string]Room            // existence cache

	// Injection points for tests.
	now   func() time.Time
	newID func() string
}

func NewRouter(log *slog.Logger, disp Dispatcher, store MessageStore) *Router {
	return &Router{
		log:      log,
		disp:     disp,
		store:    store,
		registry: NewRegistry(),
		presence: NewPresence(),
		typing:   map[string]map[string]bool{},
		rooms:    map[string]Room{},
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// SeedRooms primes the room-existence cache from the durable store at
// startup so joins to pre-existing rooms don't need a DB round trip.
func (rt *Router) SeedRooms(rooms []Room) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	for _, r := range rooms {
		rt.rooms[r.ID] = r
	}
}

// OnConnect registers a new transport session and returns its id.
func (rt *Router) OnConnect() ConnID {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	id := rt.registry.OnConnect()
	metrics.WSConnections.Inc()
	return id
}

// delivery is one queued send, computed under the lock, flushed after.
type delivery struct {
	to ConnID
	ev Event
}

func (rt *Router) flush(ds []delivery) {
	for _, d := range ds {
		rt.disp.Send(d.to, d.ev)
		metrics.EventsSent.WithLabelValues(d.ev.Name).Inc()
	}
}

// Join moves the connection into a room. If it was in another room, that
// stale presence is removed first (and its members get exactly one
// user_left), so the joiner's room_users snapshot never contains a ghost.
func (rt *Router) Join(ctx context.Context, id ConnID, roomID string, user User) {
	if roomID == "" {
		rt.log.Debug("chat.join.drop", "reason", "empty room id", "conn", id)
		return
	}
	if !rt.roomKnown(ctx, roomID) {
		rt.log.Debug("chat.join.drop", "reason", "unknown room", "room", roomID, "conn", id)
		return
	}

	rt.mu.Lock()
	prev, _ := rt.registry.Membership(id)
	prevRoom, ok := rt.registry.Bind(id, user, roomID)
	if !ok {
		rt.mu.Unlock()
		return
	}

	var out []delivery
	if prevRoom != "" && prevRoom != roomID {
		rt.presence.Remove(prevRoom, id)
		rt.clearTyping(prevRoom, prev.User.ID)
		for _, member := range rt.presence.Connections(prevRoom) {
			out = append(out, delivery{member, Event{EventUserLeft, UserLeft{UserID: string(id), RoomID: prevRoom}}})
		}
	}

	rt.presence.Add(roomID, id, user)

	joined := Event{EventUserJoined, UserJoined{User: user, RoomID: roomID}}
	for _, member := range rt.presence.Connections(roomID) {
		if member == id {
			continue
		}
		out = append(out, delivery{member, joined})
	}
	out = append(out, delivery{id, Event{EventRoomUsers, rt.presence.ListUsers(roomID)}})
	rt.mu.Unlock()

	rt.flush(out)
}

// Leave removes the connection from the room it claims to be in. A leave
// for a room the connection is not in is a protocol error and is dropped.
func (rt *Router) Leave(id ConnID, roomID string) {
	rt.mu.Lock()
	m, ok := rt.registry.Membership(id)
	if !ok || m.RoomID != roomID {
		rt.mu.Unlock()
		rt.log.Debug("chat.leave.drop", "conn", id, "room", roomID)
		return
	}
	rt.registry.Unbind(id)
	rt.presence.Remove(roomID, id)
	rt.clearTyping(roomID, m.User.ID)

	var out []delivery
	left := Event{EventUserLeft, UserLeft{UserID: string(id), RoomID: roomID}}
	for _, member := range rt.presence.Connections(roomID) {
		out = append(out, delivery{member, left})
	}
	rt.mu.Unlock()

	rt.flush(out)
}

// SendMessage fans a message out to the whole room, sender included, and
// kicks off the durable write concurrently. The broadcast does not wait
// for the store: a save failure is logged and the message stays delivered.
func (rt *Router) SendMessage(ctx context.Context, id ConnID, roomID, content string, user User) {
	if strings.TrimSpace(content) == "" {
		rt.log.Debug("chat.message.drop", "reason", "empty content", "conn", id)
		return
	}

	rt.mu.Lock()
	m, ok := rt.registry.Membership(id)
	if !ok || m.RoomID != roomID {
		rt.mu.Unlock()
		rt.log.Debug("chat.message.drop", "reason", "not in room", "conn", id, "room", roomID)
		return
	}

	msg := Message{
		ID:        rt.newID(),
		RoomID:    roomID,
		UserID:    user.ID,
		Content:   content,
		Name:      user.Name,
		PhotoURL:  user.PhotoURL,
		CreatedAt: rt.now().UTC(),
	}

	var out []delivery
	ev := Event{EventNewMessage, msg}
	for _, member := range rt.presence.Connections(roomID) {
		out = append(out, delivery{member, ev})
	}
	rt.mu.Unlock()

	// Persist outside the lock; the write outlives the socket that sent it.
	go func(ctx context.Context) {
		if err := rt.store.SaveMessage(ctx, msg); err != nil {
			rt.log.Error("chat.message.save", "id", msg.ID, "room", roomID, "err", err)
			metrics.MessageSaveFailures.Inc()
			return
		}
		metrics.MessagesSaved.Inc()
	}(context.WithoutCancel(ctx))

	rt.flush(out)
}

// Typing updates the transient typing flag and tells everyone else in the
// room. The flag is dropped implicitly on leave, switch, or disconnect.
func (rt *Router) Typing(id ConnID, roomID string, user User, isTyping bool) {
	rt.mu.Lock()
	m, ok := rt.registry.Membership(id)
	if !ok || m.RoomID != roomID {
		rt.mu.Unlock()
		return
	}
	if isTyping {
		if rt.typing[roomID] == nil {
			rt.typing[roomID] = map[string]bool{}
		}
		rt.typing[roomID][user.ID] = true
	} else {
		rt.clearTyping(roomID, user.ID)
	}

	var out []delivery
	ev := Event{EventUserTyping, UserTyping{User: user, IsTyping: isTyping}}
	for _, member := range rt.presence.Connections(roomID) {
		if member == id {
			continue
		}
		out = append(out, delivery{member, ev})
	}
	rt.mu.Unlock()

	rt.flush(out)
}

// NotifyRoomCreated is called by the HTTP layer after the room row is
// committed, so the broadcast always reports an already-durable fact.
func (rt *Router) NotifyRoomCreated(room Room) {
	rt.mu.Lock()
	rt.rooms[room.ID] = room
	var out []delivery
	ev := Event{EventRoomCreated, room}
	for _, id := range rt.registry.All() {
		out = append(out, delivery{id, ev})
	}
	rt.mu.Unlock()

	rt.flush(out)
}

// NotifyRoomDeleted invalidates the cache, force-evicts every member back
// to the anonymous state, then tells all connections. Eviction and
// broadcast are one compound operation, so the signal reaches every
// connection the room's presence view ever reported.
func (rt *Router) NotifyRoomDeleted(roomID string) {
	rt.mu.Lock()
	delete(rt.rooms, roomID)
	delete(rt.typing, roomID)
	for _, member := range rt.presence.Connections(roomID) {
		rt.registry.Unbind(member)
		rt.presence.Remove(roomID, member)
	}

	var out []delivery
	ev := Event{EventRoomDeleted, RoomDeleted{RoomID: roomID}}
	for _, id := range rt.registry.All() {
		out = append(out, delivery{id, ev})
	}
	rt.mu.Unlock()

	rt.flush(out)
}

// Disconnect removes the connection; if it was in a room the remaining
// members get a user_left. Safe to call more than once per connection.
func (rt *Router) Disconnect(id ConnID) {
	rt.mu.Lock()
	m, ok := rt.registry.OnDisconnect(id)
	if !ok {
		rt.mu.Unlock()
		return
	}
	metrics.WSConnections.Dec()

	var out []delivery
	if m.RoomID != "" {
		rt.presence.Remove(m.RoomID, id)
		rt.clearTyping(m.RoomID, m.User.ID)
		left := Event{EventUserLeft, UserLeft{UserID: string(id), RoomID: m.RoomID}}
		for _, member := range rt.presence.Connections(m.RoomID) {
			out = append(out, delivery{member, left})
		}
	}
	rt.mu.Unlock()

	rt.flush(out)
}

// ListUsers exposes the presence view for a room.
func (rt *Router) ListUsers(roomID string) []User {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.presence.ListUsers(roomID)
}

// roomKnown consults the cache first and falls back to the store. The
// store check is defensive: if it errors the join proceeds, since a bogus
// room id only yields broadcasts to an empty set.
func (rt *Router) roomKnown(ctx context.Context, roomID string) bool {
	rt.mu.Lock()
	_, cached := rt.rooms[roomID]
	rt.mu.Unlock()
	if cached {
		return true
	}
	exists, err := rt.store.RoomExists(ctx, roomID)
	if err != nil {
		rt.log.Warn("chat.room.lookup", "room", roomID, "err", err)
		return true
	}
	return exists
}

// clearTyping must be called with rt.mu held.
func (rt *Router) clearTyping(roomID, userID string) {
	if flags := rt.typing[roomID]; flags != nil {
		delete(flags, userID)
		if len(flags) == 0 {
			delete(rt.typing, roomID)
		}
	}
}
