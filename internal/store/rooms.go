package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CreateRoom inserts a new room owned by userID
func (p *Postgres) CreateRoom(ctx context.Context, name, userID string) (Room, error) {
	if name == "" {
		return Room{}, errors.New("room name is required")
	}

	row := p.pool.QueryRow(ctx, `
		INSERT INTO rooms (id, name, created_by)
		VALUES ($1, $2, $3)
		RETURNING id, name, created_by, created_at
	`, uuid.NewString(), name, userID)

	var r Room
	if err := row.Scan(&r.ID, &r.Name, &r.CreatedBy, &r.CreatedAt); err != nil {
		return Room{}, err
	}
	return r, nil
}

// ListRooms returns rooms newest first
func (p *Postgres) ListRooms(ctx context.Context) ([]Room, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, name, created_by, created_at
		FROM rooms
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Room
	for rows.Next() {
		var r Room
		if err := rows.Scan(&r.ID, &r.Name, &r.CreatedBy, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetRoom fetches a room by ID
func (p *Postgres) GetRoom(ctx context.Context, id string) (Room, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT id, name, created_by, created_at
		FROM rooms
		WHERE id = $1
	`, id)

	var r Room
	if err := row.Scan(&r.ID, &r.Name, &r.CreatedBy, &r.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Room{}, ErrNotFound
		}
		return Room{}, err
	}
	return r, nil
}

// RoomExists is the broadcast core's defensive existence check.
func (p *Postgres) RoomExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := p.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM rooms WHERE id = $1)
	`, id).Scan(&exists)
	return exists, err
}

// DeleteRoom removes the room; messages go with it via ON DELETE CASCADE.
func (p *Postgres) DeleteRoom(ctx context.Context, id string) error {
	ct, err := p.pool.Exec(ctx, `DELETE FROM rooms WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	p.log.Info("room.deleted", "id", id)
	return nil
}
