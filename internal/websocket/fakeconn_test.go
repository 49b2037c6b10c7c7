package websocket

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

var errFakeClosed = errors.New("fake connection closed")

// fakeConn is an in-memory Conn. Nothing answers pings unless the test
// calls the pong handler.
type fakeConn struct {
	inbound  chan []byte
	closedCh chan struct{}
	once     sync.Once

	mu      sync.Mutex
	written [][]byte
	pings   int
	pong    func(string) error
}

func newFakeConn() *fakeConn {
	return &fakeConn{inbound: make(chan []byte, 16), closedCh: make(chan struct{})}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case b := <-c.inbound:
		return websocket.TextMessage, b, nil
	case <-c.closedCh:
		return 0, nil, errFakeClosed
	}
}

func (c *fakeConn) WriteMessage(messageType int, data []byte) error {
	if c.isClosed() {
		return errFakeClosed
	}
	if messageType == websocket.TextMessage {
		c.mu.Lock()
		c.written = append(c.written, data)
		c.mu.Unlock()
	}
	return nil
}

func (c *fakeConn) WriteControl(messageType int, _ []byte, _ time.Time) error {
	if c.isClosed() {
		return errFakeClosed
	}
	if messageType == websocket.PingMessage {
		c.mu.Lock()
		c.pings++
		c.mu.Unlock()
	}
	return nil
}

func (c *fakeConn) SetReadLimit(int64)                  {}
func (c *fakeConn) SetReadDeadline(time.Time) error     { return nil }
func (c *fakeConn) SetWriteDeadline(time.Time) error    { return nil }
func (c *fakeConn) SetPongHandler(h func(string) error) { c.pong = h }

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closedCh) })
	return nil
}

func (c *fakeConn) isClosed() bool {
	select {
	case <-c.closedCh:
		return true
	default:
		return false
	}
}

func (c *fakeConn) pingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pings
}

func newFakeSession(r *Registry, userID, roomID string) (*Session, *fakeConn) {
	conn := newFakeConn()
	return newSession(conn, r, nil, userID, roomID, 0, zerolog.Nop()), conn
}
