package websocket

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/Coooder-Crypto/ByteChat/backend/internal/metrics"
)

// upgrader upgrades HTTP connections to WebSocket
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Allow connections from any origin (CORS handled by middleware)
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handler accepts WebSocket connections and turns them into sessions.
type Handler struct {
	ctx         context.Context
	registry    *Registry
	pipeline    MessageHandler
	readTimeout time.Duration
	log         zerolog.Logger
}

// NewHandler creates a new WebSocket handler. Sessions inherit ctx, which
// should live as long as the server. probeInterval sizes the read
// deadline backstop.
func NewHandler(ctx context.Context, registry *Registry, pipeline MessageHandler, probeInterval time.Duration, logger zerolog.Logger) *Handler {
	var readTimeout time.Duration
	if probeInterval > 0 {
		readTimeout = 3 * probeInterval
	}
	return &Handler{
		ctx:         ctx,
		registry:    registry,
		pipeline:    pipeline,
		readTimeout: readTimeout,
		log:         logger.With().Str("component", "ws").Logger(),
	}
}

// ServeWS handles WebSocket upgrade requests at /ws
// Query params: userId, roomId (both required)
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("upgrade failed")
		return
	}

	userID := r.URL.Query().Get("userId")
	roomID := r.URL.Query().Get("roomId")
	if userID == "" || roomID == "" {
		metrics.HandshakesRejected.Inc()
		h.log.Info().Str("remote", r.RemoteAddr).Msg("handshake rejected: missing userId or roomId")
		msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "userId and roomId are required")
		conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		conn.Close()
		return
	}

	s := newSession(conn, h.registry, h.pipeline, userID, roomID, h.readTimeout, h.log)
	h.registry.Join(roomID, s)

	// Start read/write pumps in separate goroutines
	go s.WritePump()
	go s.ReadPump(h.ctx)
}
