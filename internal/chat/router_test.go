package chat

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"log/slog"

	"github.com/stretchr/testify/require"
)

type sentEvent struct {
	To ConnID
	Ev Event
}

// fakeDispatcher records every delivery the router asks for.
type fakeDispatcher struct {
	sent []sentEvent
}

func (d *fakeDispatcher) Send(id ConnID, e Event) {
	d.sent = append(d.sent, sentEvent{To: id, Ev: e})
}

func (d *fakeDispatcher) eventsFor(id ConnID) []Event {
	var out []Event
	for _, s := range d.sent {
		if s.To == id {
			out = append(out, s.Ev)
		}
	}
	return out
}

func (d *fakeDispatcher) namesFor(id ConnID) []string {
	var out []string
	for _, e := range d.eventsFor(id) {
		out = append(out, e.Name)
	}
	return out
}

func (d *fakeDispatcher) reset() { d.sent = nil }

// fakeStore exposes saves on a channel so tests can wait for the async
// persistence path without sleeping.
type fakeStore struct {
	saves   chan Message
	saveErr error
	rooms   map[string]bool
	lookErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{saves: make(chan Message, 16), rooms: map[string]bool{}}
}

func (s *fakeStore) SaveMessage(_ context.Context, m Message) error {
	s.saves <- m
	return s.saveErr
}

func (s *fakeStore) RoomExists(_ context.Context, id string) (bool, error) {
	if s.lookErr != nil {
		return false, s.lookErr
	}
	return s.rooms[id], nil
}

func newTestRouter(t *testing.T) (*Router, *fakeDispatcher, *fakeStore) {
	t.Helper()
	disp := &fakeDispatcher{}
	store := newFakeStore()
	rt := NewRouter(slog.New(slog.NewTextHandler(io.Discard, nil)), disp, store)
	rt.SeedRooms([]Room{{ID: "general", Name: "general"}})
	rt.newID = func() string { return "msg-1" }
	rt.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return rt, disp, store
}

var (
	alice = User{ID: "u-alice", Name: "Alice"}
	bob   = User{ID: "u-bob", Name: "Bob", PhotoURL: "https://img/bob.png"}
)

func waitSave(t *testing.T, s *fakeStore) Message {
	t.Helper()
	select {
	case m := <-s.saves:
		return m
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message save")
		return Message{}
	}
}

func TestJoinEmptyRoom(t *testing.T) {
	req := require.New(t)
	rt, disp, _ := newTestRouter(t)
	ctx := context.Background()

	x := rt.OnConnect()
	rt.Join(ctx, x, "general", alice)

	// Joiner gets the snapshot; nobody else exists to be notified.
	evs := disp.eventsFor(x)
	req.Len(evs, 1)
	req.Equal(EventRoomUsers, evs[0].Name)
	req.ElementsMatch([]User{alice}, evs[0].Data.([]User))
	req.Len(disp.sent, 1)
}

func TestSecondJoinerNotifiesFirst(t *testing.T) {
	req := require.New(t)
	rt, disp, _ := newTestRouter(t)
	ctx := context.Background()

	x := rt.OnConnect()
	rt.Join(ctx, x, "general", alice)
	disp.reset()

	y := rt.OnConnect()
	rt.Join(ctx, y, "general", bob)

	req.Equal([]string{EventUserJoined}, disp.namesFor(x))
	joined := disp.eventsFor(x)[0].Data.(UserJoined)
	req.Equal(bob, joined.User)
	req.Equal("general", joined.RoomID)

	req.Equal([]string{EventRoomUsers}, disp.namesFor(y))
	req.ElementsMatch([]User{alice, bob}, disp.eventsFor(y)[0].Data.([]User))
}

func TestSendMessageFanout(t *testing.T) {
	req := require.New(t)
	rt, disp, store := newTestRouter(t)
	ctx := context.Background()

	x := rt.OnConnect()
	y := rt.OnConnect()
	rt.Join(ctx, x, "general", alice)
	rt.Join(ctx, y, "general", bob)
	disp.reset()

	rt.SendMessage(ctx, x, "general", "hi", alice)

	// Sender included in the fan-out.
	for _, id := range []ConnID{x, y} {
		evs := disp.eventsFor(id)
		req.Len(evs, 1)
		req.Equal(EventNewMessage, evs[0].Name)
		msg := evs[0].Data.(Message)
		req.Equal("hi", msg.Content)
		req.Equal(alice.ID, msg.UserID)
		req.Equal("msg-1", msg.ID)
		req.False(msg.CreatedAt.IsZero())
	}

	saved := waitSave(t, store)
	req.Equal("msg-1", saved.ID)
	req.Equal("general", saved.RoomID)
	req.Equal(alice.ID, saved.UserID)
	req.Equal("hi", saved.Content)
}

func TestDisconnectNotifiesRoom(t *testing.T) {
	req := require.New(t)
	rt, disp, _ := newTestRouter(t)
	ctx := context.Background()

	x := rt.OnConnect()
	y := rt.OnConnect()
	rt.Join(ctx, x, "general", alice)
	rt.Join(ctx, y, "general", bob)
	disp.reset()

	rt.Disconnect(x)

	req.Equal([]string{EventUserLeft}, disp.namesFor(y))
	left := disp.eventsFor(y)[0].Data.(UserLeft)
	req.Equal(string(x), left.UserID)
	req.Equal("general", left.RoomID)

	// The departed connection gets nothing; it is already gone.
	req.Empty(disp.eventsFor(x))
	req.ElementsMatch([]User{bob}, rt.ListUsers("general"))
}

func TestRoomDeletedEvictsMembers(t *testing.T) {
	req := require.New(t)
	rt, disp, store := newTestRouter(t)
	ctx := context.Background()

	x := rt.OnConnect()
	y := rt.OnConnect()
	rt.Join(ctx, x, "general", alice)
	rt.Join(ctx, y, "general", bob)
	disp.reset()

	rt.NotifyRoomDeleted("general")

	for _, id := range []ConnID{x, y} {
		req.Equal([]string{EventRoomDeleted}, disp.namesFor(id))
		req.Equal(RoomDeleted{RoomID: "general"}, disp.eventsFor(id)[0].Data)
	}
	req.Empty(rt.ListUsers("general"))

	m, ok := rt.registry.Membership(x)
	req.True(ok)
	req.Empty(m.RoomID)

	// A later send for the dead room id is a no-op.
	disp.reset()
	rt.SendMessage(ctx, x, "general", "anyone?", alice)
	req.Empty(disp.sent)
	req.Empty(store.saves)
}

func TestRoomSwitchEmitsSingleUserLeft(t *testing.T) {
	req := require.New(t)
	rt, disp, store := newTestRouter(t)
	store.rooms["random"] = true
	ctx := context.Background()

	x := rt.OnConnect()
	y := rt.OnConnect()
	rt.Join(ctx, x, "general", alice)
	rt.Join(ctx, y, "general", bob)
	disp.reset()

	rt.Join(ctx, x, "random", alice)

	// Exactly one user_left to the old room's remaining member.
	req.Equal([]string{EventUserLeft}, disp.namesFor(y))
	req.Equal(string(x), disp.eventsFor(y)[0].Data.(UserLeft).UserID)

	req.ElementsMatch([]User{bob}, rt.ListUsers("general"))
	req.ElementsMatch([]User{alice}, rt.ListUsers("random"))

	// Joiner's snapshot is for the new room only, no ghost of itself.
	snap := disp.eventsFor(x)
	req.Equal([]string{EventRoomUsers}, disp.namesFor(x))
	req.ElementsMatch([]User{alice}, snap[0].Data.([]User))
}

func TestTypingExcludesSelf(t *testing.T) {
	req := require.New(t)
	rt, disp, _ := newTestRouter(t)
	ctx := context.Background()

	x := rt.OnConnect()
	y := rt.OnConnect()
	rt.Join(ctx, x, "general", alice)
	rt.Join(ctx, y, "general", bob)
	disp.reset()

	rt.Typing(x, "general", alice, true)

	req.Empty(disp.eventsFor(x))
	req.Equal([]string{EventUserTyping}, disp.namesFor(y))
	req.Equal(UserTyping{User: alice, IsTyping: true}, disp.eventsFor(y)[0].Data)
	req.True(rt.typing["general"][alice.ID])

	rt.Typing(x, "general", alice, false)
	req.Empty(rt.typing["general"])
}

func TestTypingClearedOnLeave(t *testing.T) {
	req := require.New(t)
	rt, _, _ := newTestRouter(t)
	ctx := context.Background()

	x := rt.OnConnect()
	rt.Join(ctx, x, "general", alice)
	rt.Typing(x, "general", alice, true)
	require.True(t, rt.typing["general"][alice.ID])

	rt.Leave(x, "general")
	req.Empty(rt.typing["general"])
	req.Empty(rt.ListUsers("general"))
}

func TestIdempotentDisconnect(t *testing.T) {
	req := require.New(t)
	rt, disp, _ := newTestRouter(t)
	ctx := context.Background()

	x := rt.OnConnect()
	y := rt.OnConnect()
	rt.Join(ctx, x, "general", alice)
	rt.Join(ctx, y, "general", bob)
	disp.reset()

	rt.Disconnect(x)
	first := len(disp.sent)
	req.Equal(1, first)

	// Second disconnect: no events, no state change, no panic.
	rt.Disconnect(x)
	req.Len(disp.sent, first)
	req.ElementsMatch([]User{bob}, rt.ListUsers("general"))
}

func TestPresenceTracksRegistry(t *testing.T) {
	req := require.New(t)
	rt, _, store := newTestRouter(t)
	store.rooms["random"] = true
	ctx := context.Background()

	x := rt.OnConnect()
	y := rt.OnConnect()
	z := rt.OnConnect()
	rt.Join(ctx, x, "general", alice)
	rt.Join(ctx, y, "general", bob)
	rt.Join(ctx, z, "random", alice)
	rt.Join(ctx, y, "random", bob)
	rt.Leave(z, "random")
	rt.Disconnect(x)

	// Presence must mirror registry membership exactly.
	for _, room := range []string{"general", "random"} {
		var expected []User
		for _, id := range rt.registry.All() {
			if m, ok := rt.registry.Membership(id); ok && m.RoomID == room {
				expected = append(expected, m.User)
			}
		}
		req.ElementsMatch(expected, rt.ListUsers(room), "room %s", room)
	}
	req.Empty(rt.ListUsers("general"))
	req.ElementsMatch([]User{bob}, rt.ListUsers("random"))
}

func TestSameUserTwoConnectionsAppearsTwice(t *testing.T) {
	req := require.New(t)
	rt, _, _ := newTestRouter(t)
	ctx := context.Background()

	tab1 := rt.OnConnect()
	tab2 := rt.OnConnect()
	rt.Join(ctx, tab1, "general", alice)
	rt.Join(ctx, tab2, "general", alice)

	// Two tabs, two presence entries for the same account.
	req.Equal([]User{alice, alice}, rt.ListUsers("general"))
}

func TestProtocolErrorsAreDropped(t *testing.T) {
	req := require.New(t)
	rt, disp, store := newTestRouter(t)
	ctx := context.Background()

	x := rt.OnConnect()

	// Not in a room yet: everything but join is ignored.
	rt.SendMessage(ctx, x, "general", "hello", alice)
	rt.Typing(x, "general", alice, true)
	rt.Leave(x, "general")
	req.Empty(disp.sent)
	req.Empty(store.saves)

	// Empty content is ignored even for a member.
	rt.Join(ctx, x, "general", alice)
	disp.reset()
	rt.SendMessage(ctx, x, "general", "   ", alice)
	req.Empty(disp.sent)
	req.Empty(store.saves)
}

func TestJoinUnknownRoomDropped(t *testing.T) {
	req := require.New(t)
	rt, disp, _ := newTestRouter(t)
	ctx := context.Background()

	x := rt.OnConnect()
	rt.Join(ctx, x, "no-such-room", alice)

	req.Empty(disp.sent)
	req.Empty(rt.ListUsers("no-such-room"))
}

func TestJoinAllowedWhenRoomLookupFails(t *testing.T) {
	req := require.New(t)
	rt, disp, store := newTestRouter(t)
	store.lookErr = errors.New("store down")
	ctx := context.Background()

	x := rt.OnConnect()
	rt.Join(ctx, x, "uncached", alice)

	// The existence check is defensive only; a store error never blocks.
	req.Equal([]string{EventRoomUsers}, disp.namesFor(x))
}

func TestSaveFailureDoesNotRetractBroadcast(t *testing.T) {
	req := require.New(t)
	rt, disp, store := newTestRouter(t)
	store.saveErr = errors.New("write failed")
	ctx := context.Background()

	x := rt.OnConnect()
	rt.Join(ctx, x, "general", alice)
	disp.reset()

	rt.SendMessage(ctx, x, "general", "hi", alice)

	req.Equal([]string{EventNewMessage}, disp.namesFor(x))
	waitSave(t, store)
}

func TestRoomCreatedReachesAllConnections(t *testing.T) {
	req := require.New(t)
	rt, disp, _ := newTestRouter(t)
	ctx := context.Background()

	x := rt.OnConnect()
	y := rt.OnConnect()
	rt.Join(ctx, x, "general", alice)
	disp.reset()

	room := Room{ID: "r2", Name: "random", CreatedBy: bob.ID, CreatedAt: time.Now().UTC()}
	rt.NotifyRoomCreated(room)

	// Members and anonymous connections alike hear about new rooms.
	req.Equal([]string{EventRoomCreated}, disp.namesFor(x))
	req.Equal([]string{EventRoomCreated}, disp.namesFor(y))
	req.Equal(room, disp.eventsFor(y)[0].Data)

	// And the cache now answers for it without a store round trip.
	disp.reset()
	rt.Join(ctx, y, "r2", bob)
	req.Equal([]string{EventRoomUsers}, disp.namesFor(y))
}
