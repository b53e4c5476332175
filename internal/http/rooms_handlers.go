package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/osamahabib5/chatapp-espressolab-osama/internal/chat"
	"github.com/osamahabib5/chatapp-espressolab-osama/internal/store"
	"github.com/osamahabib5/chatapp-espressolab-osama/pkg/auth"
)

// RoomsAPI serves room CRUD and message history. Mutations notify the
// broadcast core after the store commits, so connected clients only ever
// hear about rooms that are already durable.
type RoomsAPI struct {
	DB   *store.Postgres
	Core *chat.Router
}

type createRoomReq struct {
	Name string `json:"name"`
}

type roomResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedBy string    `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
}

type messageResponse struct {
	ID        string    `json:"id"`
	RoomID    string    `json:"roomId"`
	UserID    string    `json:"userId"`
	Content   string    `json:"content"`
	Name      string    `json:"name"`
	PhotoURL  string    `json:"photoUrl,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func roomDTO(r store.Room) roomResponse {
	return roomResponse{ID: r.ID, Name: r.Name, CreatedBy: r.CreatedBy, CreatedAt: r.CreatedAt}
}

// Create makes a new room for the authenticated user and announces it.
func (a *RoomsAPI) Create(w http.ResponseWriter, r *http.Request) {
	var req createRoomReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		http.Error(w, "room name is required", http.StatusBadRequest)
		return
	}

	uid := auth.UserID(r.Context())
	room, err := a.DB.CreateRoom(r.Context(), req.Name, uid)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	a.Core.NotifyRoomCreated(chat.Room{
		ID: room.ID, Name: room.Name, CreatedBy: room.CreatedBy, CreatedAt: room.CreatedAt,
	})
	writeJSON(w, roomDTO(room))
}

// List returns all rooms, newest first.
func (a *RoomsAPI) List(w http.ResponseWriter, r *http.Request) {
	rooms, err := a.DB.ListRooms(r.Context())
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	resp := make([]roomResponse, 0, len(rooms))
	for _, room := range rooms {
		resp = append(resp, roomDTO(room))
	}
	writeJSON(w, resp)
}

// Delete removes a room (creator only), then evicts and notifies every
// live connection through the broadcast core.
func (a *RoomsAPI) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		http.Error(w, "id required", http.StatusBadRequest)
		return
	}

	room, err := a.DB.GetRoom(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	if room.CreatedBy != auth.UserID(r.Context()) {
		http.Error(w, "only the creator can delete a room", http.StatusForbidden)
		return
	}

	if err := a.DB.DeleteRoom(r.Context(), id); err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	a.Core.NotifyRoomDeleted(id)
	writeJSON(w, map[string]string{"message": "room deleted"})
}

// Messages returns a room's history, oldest first.
func (a *RoomsAPI) Messages(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		http.Error(w, "id required", http.StatusBadRequest)
		return
	}

	msgs, err := a.DB.ListMessages(r.Context(), id)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	resp := make([]messageResponse, 0, len(msgs))
	for _, m := range msgs {
		resp = append(resp, messageResponse{
			ID: m.ID, RoomID: m.RoomID, UserID: m.UserID, Content: m.Content,
			Name: m.Name, PhotoURL: m.PhotoURL, CreatedAt: m.CreatedAt,
		})
	}
	writeJSON(w, resp)
}
