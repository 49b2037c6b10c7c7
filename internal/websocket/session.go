package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/Coooder-Crypto/ByteChat/backend/internal/metrics"
	"github.com/Coooder-Crypto/ByteChat/backend/internal/models"
	"github.com/Coooder-Crypto/ByteChat/backend/internal/services"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Maximum message size allowed from peer
	maxMessageSize = 64 * 1024

	// Outbound frames buffered per session before new ones are dropped
	sendBuffer = 256

	closeGoingAway = websocket.CloseGoingAway
)

// Liveness states.
const (
	stateAlive int32 = iota
	stateProbing
	stateDead
)

// Conn is the part of *websocket.Conn a Session uses.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

// MessageHandler runs the ingest pipeline for one message frame.
type MessageHandler interface {
	Handle(ctx context.Context, origin services.Origin, frame models.InboundFrame)
}

// Session is one live connection joined to a room.
type Session struct {
	ID string

	userID string
	roomID string

	conn     Conn
	registry *Registry
	pipeline MessageHandler
	log      zerolog.Logger

	// readTimeout is a backstop for peers that vanish without the
	// supervisor running; zero disables it
	readTimeout time.Duration

	// Buffered channel of outbound frames; closed once on shutdown
	send   chan []byte
	mu     sync.Mutex
	closed bool

	state atomic.Int32
}

func newSession(conn Conn, registry *Registry, pipeline MessageHandler, userID, roomID string, readTimeout time.Duration, logger zerolog.Logger) *Session {
	id := uuid.New().String()
	return &Session{
		ID:          id,
		userID:      userID,
		roomID:      roomID,
		conn:        conn,
		registry:    registry,
		pipeline:    pipeline,
		readTimeout: readTimeout,
		send:        make(chan []byte, sendBuffer),
		log: logger.With().Str("session", id).Str("user", userID).
			Str("room", roomID).Logger(),
	}
}

// UserID returns the user this session was opened for.
func (s *Session) UserID() string { return s.userID }

// RoomID returns the room this session is joined to.
func (s *Session) RoomID() string { return s.roomID }

// Deliver queues payload without blocking. It returns false when the
// session is closed or its buffer is full.
func (s *Session) Deliver(payload []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		metrics.FramesDropped.WithLabelValues("closed").Inc()
		return false
	}
	select {
	case s.send <- payload:
		return true
	default:
		metrics.FramesDropped.WithLabelValues("backlog").Inc()
		s.log.Warn().Msg("send buffer full, frame dropped")
		return false
	}
}

func (s *Session) sendFrame(frame any) {
	payload, err := json.Marshal(frame)
	if err != nil {
		s.log.Error().Err(err).Msg("encode frame")
		return
	}
	s.Deliver(payload)
}

// markAlive records an inbound signal from the peer.
func (s *Session) markAlive() {
	if s.state.CompareAndSwap(stateProbing, stateAlive) {
		s.log.Debug().Msg("probe answered")
	}
	if s.readTimeout > 0 {
		s.conn.SetReadDeadline(time.Now().Add(s.readTimeout))
	}
}

// probe advances the liveness state by one tick. It returns false when the
// previous probe went unanswered and the session must be evicted.
func (s *Session) probe() bool {
	if s.state.CompareAndSwap(stateProbing, stateDead) {
		return false
	}
	if !s.state.CompareAndSwap(stateAlive, stateProbing) {
		return s.state.Load() != stateDead
	}
	if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
		s.log.Debug().Err(err).Msg("probe write failed")
	}
	return true
}

// shutdown stops outbound delivery and closes the send channel exactly once.
func (s *Session) shutdown() {
	s.state.Store(stateDead)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.send)
	}
}

// closeWith sends a close frame and drops the connection; the read pump
// then unwinds the session.
func (s *Session) closeWith(code int, reason string) {
	s.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(writeWait))
	s.conn.Close()
}

// ReadPump reads frames until the connection fails, then leaves the room.
// Frames are handled in arrival order on this goroutine.
func (s *Session) ReadPump(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		s.registry.Leave(s.roomID, s)
		s.shutdown()
		s.conn.Close()
	}()

	s.conn.SetReadLimit(maxMessageSize)
	if s.readTimeout > 0 {
		s.conn.SetReadDeadline(time.Now().Add(s.readTimeout))
	} else {
		s.conn.SetReadDeadline(time.Time{})
	}
	s.conn.SetPongHandler(func(string) error {
		s.markAlive()
		return nil
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				s.log.Debug().Err(err).Msg("read error")
			}
			return
		}
		s.markAlive()

		var frame models.InboundFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			metrics.FramesDropped.WithLabelValues("unparseable").Inc()
			continue
		}

		switch frame.Type {
		case models.FramePing:
			s.sendFrame(models.NewPong())
		case models.FrameMessage:
			s.pipeline.Handle(ctx, s, frame)
		case models.FramePong:
		default:
			metrics.FramesDropped.WithLabelValues("unparseable").Inc()
		}
	}
}

// WritePump writes queued frames to the connection until the send channel
// is closed or a write fails.
func (s *Session) WritePump() {
	defer s.conn.Close()

	for payload := range s.send {
		s.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			s.log.Debug().Err(err).Msg("write failed")
			return
		}
	}
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
