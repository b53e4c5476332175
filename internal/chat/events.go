package chat

import "time"

// Inbound event names (client -> server).
const (
	EventJoinRoom    = "join_room"
	EventLeaveRoom   = "leave_room"
	EventSendMessage = "send_message"
	EventTyping      = "typing"
)

// Outbound event names (server -> client).
const (
	EventUserJoined  = "user_joined"
	EventUserLeft    = "user_left"
	EventRoomUsers   = "room_users"
	EventNewMessage  = "new_message"
	EventUserTyping  = "user_typing"
	EventRoomCreated = "room_created"
	EventRoomDeleted = "room_deleted"
)

// User is the identity snapshot a client supplies when joining a room.
// It is trusted as-is: the socket layer authenticates the connection once
// at upgrade time but event payloads are not re-checked against the token.
type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	PhotoURL string `json:"photoUrl,omitempty"`
}

// Room is the lightweight room view the core caches for routing.
type Room struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedBy string    `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
}

// Message is the broadcast + persisted form of a chat message.
type Message struct {
	ID        string    `json:"id"`
	RoomID    string    `json:"roomId"`
	UserID    string    `json:"userId"`
	Content   string    `json:"content"`
	Name      string    `json:"name"`
	PhotoURL  string    `json:"photoUrl,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Event is one outbound frame: a name plus its payload.
// The transport encodes Data as the "data" field of the wire envelope.
type Event struct {
	Name string `json:"event"`
	Data any    `json:"data"`
}

// Outbound payload shapes, matching the client protocol.

type UserJoined struct {
	User   User   `json:"user"`
	RoomID string `json:"roomId"`
}

type UserLeft struct {
	// UserID carries the connection id, not the account id: presence is
	// per-connection, and that is the key the client tracks members by.
	UserID string `json:"userId"`
	RoomID string `json:"roomId"`
}

type UserTyping struct {
	User     User `json:"user"`
	IsTyping bool `json:"isTyping"`
}

type RoomDeleted struct {
	RoomID string `json:"roomId"`
}
