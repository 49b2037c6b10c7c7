package websocket

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Coooder-Crypto/ByteChat/backend/internal/metrics"
)

// Supervisor probes every session on a fixed interval and evicts sessions
// that left the previous probe unanswered, so a dead peer is gone within
// two intervals.
type Supervisor struct {
	registry *Registry
	interval time.Duration
	stopChan chan struct{}
	stopOnce sync.Once
	log      zerolog.Logger
}

// NewSupervisor creates a liveness supervisor ticking every interval.
func NewSupervisor(registry *Registry, interval time.Duration, logger zerolog.Logger) *Supervisor {
	return &Supervisor{
		registry: registry,
		interval: interval,
		stopChan: make(chan struct{}),
		log:      logger.With().Str("component", "liveness").Logger(),
	}
}

// Start runs the probe loop until Stop is called.
// This method blocks and should be called with 'go'.
func (s *Supervisor) Start() {
	s.log.Info().Dur("interval", s.interval).Msg("liveness supervisor started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Tick()
		case <-s.stopChan:
			s.log.Info().Msg("liveness supervisor stopped")
			return
		}
	}
}

// Stop ends the probe loop. It is safe to call more than once.
func (s *Supervisor) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
}

// Tick performs one sweep and returns the number of evicted sessions.
func (s *Supervisor) Tick() int {
	evicted := 0
	for _, sess := range s.registry.Sessions() {
		if sess.probe() {
			continue
		}
		evicted++
		metrics.SessionsEvicted.Inc()
		sess.log.Info().Msg("liveness probe unanswered, evicting session")

		s.registry.Leave(sess.roomID, sess)
		sess.shutdown()
		sess.conn.Close()
	}
	return evicted
}
