package models

import "encoding/json"

// Message kinds understood by clients. The set is open: any non-empty
// msgType up to MaxMsgTypeLen is persisted as-is.
const (
	MsgTypeText  = "text"
	MsgTypeImage = "image"
	MsgTypeVideo = "video"

	MaxMsgTypeLen = 32
)

// Message is the unit of record.
// ID and CreatedAt are assigned by the store at persistence time.
type Message struct {
	// ID is the server-assigned identifier (ULID, sorts by creation time)
	ID string `json:"id"`

	// ClientID is the client-chosen idempotency token, unique when present
	ClientID *string `json:"clientId"`

	RoomID   string `json:"roomId"`
	SenderID string `json:"senderId"`

	// MsgType selects how Content and MediaURL are interpreted
	MsgType string `json:"msgType"`

	// Content may be empty when MediaURL is set
	Content string `json:"content"`

	// MediaURL is an opaque reference returned by the media collaborator
	MediaURL *string `json:"mediaUrl"`

	// Metadata is passed through unmodified
	Metadata json.RawMessage `json:"metadata"`

	// CreatedAt is unix milliseconds, server authoritative
	CreatedAt int64 `json:"createdAt"`
}

// Position is a point in a room's total order: newest first by
// CreatedAt, then by ID descending.
type Position struct {
	CreatedAt int64
	ID        string
}

// OlderThan reports whether m comes strictly after p in newest-first
// order, i.e. whether a page starting at p may contain m.
func (m Message) OlderThan(p Position) bool {
	if m.CreatedAt != p.CreatedAt {
		return m.CreatedAt < p.CreatedAt
	}
	return m.ID < p.ID
}

// PositionOf returns the position of m in its room's order.
func PositionOf(m Message) Position {
	return Position{CreatedAt: m.CreatedAt, ID: m.ID}
}

// HistoryPage is the response body of a history read.
type HistoryPage struct {
	Items      []Message `json:"items"`
	NextCursor *string   `json:"nextCursor"`
}
