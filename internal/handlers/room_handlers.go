package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"realtime-chat/internal/chat"
)

// RoomHandlers is the REST collaborator over the room directory: list and
// explicit create. Everything else about rooms happens over the socket.
type RoomHandlers struct {
	rooms *chat.Directory
}

func NewRoomHandlers(rooms *chat.Directory) *RoomHandlers {
	return &RoomHandlers{rooms: rooms}
}

// ListRooms returns every known room name in creation order.
func (h *RoomHandlers) ListRooms(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.rooms.ListRooms())
}

type createRoomRequest struct {
	Name string `json:"name"`
}

// CreateRoom creates a room without joining anyone to it. An empty name
// is rejected; an existing name is fine and reported as such.
func (h *RoomHandlers) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		http.Error(w, "room name is required", http.StatusBadRequest)
		return
	}

	created := h.rooms.CreateRoom(name)

	w.Header().Set("Content-Type", "application/json")
	if created {
		w.WriteHeader(http.StatusCreated)
	}
	json.NewEncoder(w).Encode(map[string]any{
		"name":    name,
		"created": created,
	})
}
