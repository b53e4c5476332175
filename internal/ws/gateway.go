package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"log/slog"

	"github.com/osamahabib5/chatapp-espressolab-osama/internal/chat"
	"github.com/osamahabib5/chatapp-espressolab-osama/pkg/auth"
)

// Gateway owns the websocket endpoint. It authenticates the upgrade,
// pumps inbound frames into the broadcast router, and implements
// chat.Dispatcher so the router can push events back out.
type Gateway struct {
	log    *slog.Logger
	jwt    *auth.JWT
	router *chat.Router

	mu    sync.RWMutex
	conns map[chat.ConnID]*Conn
}

func NewGateway(logger *slog.Logger, jwt *auth.JWT) *Gateway {
	return &Gateway{log: logger, jwt: jwt, conns: map[chat.ConnID]*Conn{}}
}

// Attach wires the router in after construction; the router needs the
// gateway as its dispatcher, so the two are linked in two steps.
func (g *Gateway) Attach(rt *chat.Router) { g.router = rt }

// Send implements chat.Dispatcher. Delivery is best-effort: a connection
// with a full outbound buffer drops the frame rather than stalling the
// broadcast for everyone else.
func (g *Gateway) Send(id chat.ConnID, e chat.Event) {
	g.mu.RLock()
	c := g.conns[id]
	g.mu.RUnlock()
	if c == nil {
		return
	}
	b, err := json.Marshal(e)
	if err != nil {
		g.log.Error("ws.encode", "event", e.Name, "err", err)
		return
	}
	if !c.TrySend(b) {
		g.log.Warn("ws.send.drop", "conn", id, "event", e.Name)
	}
}

// envelope is the inbound wire frame.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type joinRoomPayload struct {
	RoomID string    `json:"roomId"`
	User   chat.User `json:"user"`
}

type leaveRoomPayload struct {
	RoomID string `json:"roomId"`
}

type sendMessagePayload struct {
	RoomID  string    `json:"roomId"`
	Content string    `json:"content"`
	User    chat.User `json:"user"`
}

type typingPayload struct {
	RoomID   string    `json:"roomId"`
	User     chat.User `json:"user"`
	IsTyping bool      `json:"isTyping"`
}

// ServeWS handles a new /ws connection. The token query param must carry
// a valid JWT; the identity inside event payloads is still client
// supplied after that, matching the original protocol.
func (g *Gateway) ServeWS(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	uid, err := g.jwt.Verify(r.URL.Query().Get("token"))
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	sock, err := Accept(w, r)
	if err != nil {
		g.log.Error("ws.accept", "err", err)
		return
	}

	c := NewConn(sock)
	id := g.router.OnConnect()
	g.mu.Lock()
	g.conns[id] = c
	g.mu.Unlock()
	g.log.Debug("ws.connect", "conn", id, "user", uid)

	go c.WriteLoop(ctx)

	for {
		frame, ok := c.Read(ctx)
		if !ok {
			break
		}
		g.dispatch(ctx, id, frame)
	}

	g.mu.Lock()
	delete(g.conns, id)
	g.mu.Unlock()
	g.router.Disconnect(id)
	_ = c.Close()
	g.log.Debug("ws.disconnect", "conn", id, "user", uid)
}

// dispatch decodes one inbound frame and routes it. Malformed frames are
// logged and skipped; nothing a client sends can take the loop down.
func (g *Gateway) dispatch(ctx context.Context, id chat.ConnID, frame []byte) {
	var env envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		g.log.Debug("ws.frame.bad", "conn", id, "err", err)
		return
	}

	switch env.Event {
	case chat.EventJoinRoom:
		var p joinRoomPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			g.log.Debug("ws.frame.bad", "conn", id, "event", env.Event, "err", err)
			return
		}
		g.router.Join(ctx, id, p.RoomID, p.User)

	case chat.EventLeaveRoom:
		var p leaveRoomPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			g.log.Debug("ws.frame.bad", "conn", id, "event", env.Event, "err", err)
			return
		}
		g.router.Leave(id, p.RoomID)

	case chat.EventSendMessage:
		var p sendMessagePayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			g.log.Debug("ws.frame.bad", "conn", id, "event", env.Event, "err", err)
			return
		}
		g.router.SendMessage(ctx, id, p.RoomID, p.Content, p.User)

	case chat.EventTyping:
		var p typingPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			g.log.Debug("ws.frame.bad", "conn", id, "event", env.Event, "err", err)
			return
		}
		g.router.Typing(id, p.RoomID, p.User, p.IsTyping)

	default:
		g.log.Debug("ws.frame.unknown", "conn", id, "event", env.Event)
	}
}
