package models

// RoomPresence describes who is currently connected to a room.
// It is derived from the in-memory registry only and is never persisted.
type RoomPresence struct {
	// RoomID is the room identifier
	RoomID string `json:"roomId"`

	// Sessions is the number of live connections in the room
	Sessions int `json:"sessions"`

	// Users lists distinct user ids with at least one live connection
	Users []string `json:"users"`
}

// UploadResponse is returned after a media upload
type UploadResponse struct {
	URL string `json:"url"`
}
