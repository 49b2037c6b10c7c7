package models

import "encoding/json"

// Frame types exchanged over the websocket connection.
const (
	FramePing    = "ping"
	FramePong    = "pong"
	FrameMessage = "message"
	FrameAck     = "ack"
	FrameError   = "error"
)

// Stable error codes carried by error frames.
const (
	ErrCodeMessageFailed  = "message_failed"
	ErrCodeInvalidMessage = "invalid_message"
)

// InboundFrame is any frame a client may send. Only Type is required;
// the remaining fields are read for message frames.
type InboundFrame struct {
	Type     string          `json:"type"`
	ID       string          `json:"id,omitempty"`
	ClientID string          `json:"clientId,omitempty"`
	MsgType  string          `json:"msgType,omitempty"`
	Content  string          `json:"content,omitempty"`
	MediaURL string          `json:"mediaUrl,omitempty"`
	Metadata json.RawMessage `json:"metadata,omitempty"`

	// CreatedAt is the client's own clock. Kept raw because clients send
	// both numbers and ISO strings; the server never trusts it for ordering.
	CreatedAt json.RawMessage `json:"createdAt,omitempty"`
}

// Token returns the idempotency token: clientId, or id when clientId is absent.
func (f InboundFrame) Token() string {
	if f.ClientID != "" {
		return f.ClientID
	}
	return f.ID
}

// PongFrame answers an application-level ping.
type PongFrame struct {
	Type string `json:"type"`
}

// AckFrame confirms persistence to the originating session only.
type AckFrame struct {
	Type      string  `json:"type"`
	ID        *string `json:"id"`
	ServerID  string  `json:"serverId"`
	CreatedAt int64   `json:"createdAt"`
}

// MessageFrame is the broadcast form of a persisted message.
type MessageFrame struct {
	Type string `json:"type"`
	Message
}

// ErrorFrame reports a pipeline failure to the originating session only.
type ErrorFrame struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewPong builds a pong frame.
func NewPong() PongFrame { return PongFrame{Type: FramePong} }

// NewAck builds an ack for msg correlated to the client's token.
func NewAck(token *string, msg *Message) AckFrame {
	return AckFrame{Type: FrameAck, ID: token, ServerID: msg.ID, CreatedAt: msg.CreatedAt}
}

// NewMessageFrame wraps msg for broadcast.
func NewMessageFrame(msg Message) MessageFrame {
	return MessageFrame{Type: FrameMessage, Message: msg}
}

// NewError builds an error frame.
func NewError(code, message string) ErrorFrame {
	return ErrorFrame{Type: FrameError, Code: code, Message: message}
}
