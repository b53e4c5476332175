package store

import "time"

type User struct {
	ID        string
	Email     string
	Name      string
	PhotoURL  string
	CreatedAt time.Time
}

type Room struct {
	ID        string
	Name      string
	CreatedBy string
	CreatedAt time.Time
}

// MessageRecord is a stored message joined with its author's profile,
// the shape the history endpoint returns.
type MessageRecord struct {
	ID        string
	RoomID    string
	UserID    string
	Content   string
	Name      string
	PhotoURL  string
	CreatedAt time.Time
}
