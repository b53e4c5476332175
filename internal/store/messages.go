package store

import (
	"context"

	"github.com/osamahabib5/chatapp-espressolab-osama/internal/chat"
)

// SaveMessage persists one broadcast message. The id and timestamp come
// from the broadcast core so the stored row matches what clients saw.
func (p *Postgres) SaveMessage(ctx context.Context, m chat.Message) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO messages (id, room_id, user_id, content, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, m.ID, m.RoomID, m.UserID, m.Content, m.CreatedAt)
	return err
}

// ListMessages returns a room's history, oldest first, joined with the
// author's current name and photo.
func (p *Postgres) ListMessages(ctx context.Context, roomID string) ([]MessageRecord, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT m.id, m.room_id, m.user_id, m.content, u.name, u.photo_url, m.created_at
		FROM messages m
		JOIN users u ON m.user_id = u.id
		WHERE m.room_id = $1
		ORDER BY m.created_at ASC
	`, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MessageRecord
	for rows.Next() {
		var m MessageRecord
		if err := rows.Scan(&m.ID, &m.RoomID, &m.UserID, &m.Content, &m.Name, &m.PhotoURL, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
