package ws

import (
	"context"
	"io"
	"testing"

	"log/slog"

	"github.com/stretchr/testify/require"

	"github.com/osamahabib5/chatapp-espressolab-osama/internal/chat"
	"github.com/osamahabib5/chatapp-espressolab-osama/pkg/auth"
)

type stubStore struct{}

func (stubStore) SaveMessage(context.Context, chat.Message) error { return nil }
func (stubStore) RoomExists(context.Context, string) (bool, error) {
	return false, nil
}

func newTestGateway() (*Gateway, *chat.Router) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	g := NewGateway(logger, auth.New("test-secret"))
	rt := chat.NewRouter(logger, g, stubStore{})
	rt.SeedRooms([]chat.Room{{ID: "general", Name: "general"}})
	g.Attach(rt)
	return g, rt
}

func TestDispatchJoinAndLeave(t *testing.T) {
	req := require.New(t)
	g, rt := newTestGateway()
	ctx := context.Background()

	id := rt.OnConnect()
	g.dispatch(ctx, id, []byte(`{"event":"join_room","data":{"roomId":"general","user":{"id":"u1","name":"Ann"}}}`))
	req.Len(rt.ListUsers("general"), 1)

	g.dispatch(ctx, id, []byte(`{"event":"leave_room","data":{"roomId":"general"}}`))
	req.Empty(rt.ListUsers("general"))
}

func TestDispatchIgnoresGarbage(t *testing.T) {
	req := require.New(t)
	g, rt := newTestGateway()
	ctx := context.Background()

	id := rt.OnConnect()
	frames := [][]byte{
		[]byte(`not json`),
		[]byte(`{"event":"join_room","data":"nope"}`),
		[]byte(`{"event":"no_such_event","data":{}}`),
		[]byte(`{}`),
	}
	for _, f := range frames {
		g.dispatch(ctx, id, f) // must not panic
	}
	req.Empty(rt.ListUsers("general"))
}

func TestDispatchTypingRequiresMembership(t *testing.T) {
	req := require.New(t)
	g, rt := newTestGateway()
	ctx := context.Background()

	id := rt.OnConnect()
	// Typing before joining is a protocol error and is dropped.
	g.dispatch(ctx, id, []byte(`{"event":"typing","data":{"roomId":"general","user":{"id":"u1"},"isTyping":true}}`))
	req.Empty(rt.ListUsers("general"))
}
