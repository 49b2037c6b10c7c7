package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Coooder-Crypto/ByteChat/backend/internal/models"
)

// PresenceSource reports the live sessions of a room.
type PresenceSource interface {
	Presence(roomID string) models.RoomPresence
}

// RoomHandler contains HTTP handlers for room operations.
type RoomHandler struct {
	rooms PresenceSource
}

// NewRoomHandler creates a new RoomHandler instance.
func NewRoomHandler(rooms PresenceSource) *RoomHandler {
	return &RoomHandler{rooms: rooms}
}

// GetRoom handles GET /api/rooms/{id}
// Returns the number of live sessions and the users currently online.
func (h *RoomHandler) GetRoom(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "id")
	if roomID == "" {
		writeError(w, http.StatusBadRequest, "room ID is required")
		return
	}

	writeJSON(w, http.StatusOK, h.rooms.Presence(roomID))
}
