package websocket

import (
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Coooder-Crypto/ByteChat/backend/internal/metrics"
	"github.com/Coooder-Crypto/ByteChat/backend/internal/models"
)

// Registry maintains the set of live sessions per room.
// It is created once by main and shared by the handler and the supervisor.
type Registry struct {
	// rooms maps roomID to the sessions joined to it
	rooms map[string]map[*Session]struct{}

	mu  sync.RWMutex
	log zerolog.Logger
}

// NewRegistry creates an empty Registry.
func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{
		rooms: make(map[string]map[*Session]struct{}),
		log:   logger.With().Str("component", "registry").Logger(),
	}
}

// Join adds s to roomID, creating the room entry if needed. Joining twice is a no-op.
func (r *Registry) Join(roomID string, s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sessions := r.rooms[roomID]
	if sessions == nil {
		sessions = make(map[*Session]struct{})
		r.rooms[roomID] = sessions
	}
	if _, ok := sessions[s]; ok {
		return
	}
	sessions[s] = struct{}{}
	metrics.ActiveSessions.Inc()

	r.log.Info().Str("room", roomID).Str("user", s.userID).Str("session", s.ID).
		Int("total", len(sessions)).Msg("session joined")
}

// Leave removes s from roomID and drops the room once it is empty.
// It reports whether s was present.
func (r *Registry) Leave(roomID string, s *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	sessions, ok := r.rooms[roomID]
	if !ok {
		return false
	}
	if _, exists := sessions[s]; !exists {
		return false
	}
	delete(sessions, s)
	metrics.ActiveSessions.Dec()

	r.log.Info().Str("room", roomID).Str("user", s.userID).Str("session", s.ID).
		Int("remaining", len(sessions)).Msg("session left")

	if len(sessions) == 0 {
		delete(r.rooms, roomID)
		r.log.Debug().Str("room", roomID).Msg("room empty, removed")
	}
	return true
}

// Broadcast queues payload on every session in roomID and returns how many
// accepted it. Closed or backlogged sessions are skipped without blocking
// the others.
func (r *Registry) Broadcast(roomID string, payload []byte) int {
	r.mu.RLock()
	targets := make([]*Session, 0, len(r.rooms[roomID]))
	for s := range r.rooms[roomID] {
		targets = append(targets, s)
	}
	r.mu.RUnlock()

	sent := 0
	for _, s := range targets {
		if s.Deliver(payload) {
			sent++
		}
	}
	return sent
}

// Contains reports whether s is joined to roomID.
func (r *Registry) Contains(roomID string, s *Session) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rooms[roomID][s]
	return ok
}

// Sessions returns a snapshot of every live session.
func (r *Registry) Sessions() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var all []*Session
	for _, sessions := range r.rooms {
		for s := range sessions {
			all = append(all, s)
		}
	}
	return all
}

// Presence describes the live sessions of roomID.
func (r *Registry) Presence(roomID string) models.RoomPresence {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sessions := r.rooms[roomID]
	seen := make(map[string]struct{}, len(sessions))
	users := []string{}
	for s := range sessions {
		if _, ok := seen[s.userID]; ok {
			continue
		}
		seen[s.userID] = struct{}{}
		users = append(users, s.userID)
	}
	sort.Strings(users)

	return models.RoomPresence{RoomID: roomID, Sessions: len(sessions), Users: users}
}

// CloseAll disconnects every session with a going-away close frame.
func (r *Registry) CloseAll(reason string) {
	for _, s := range r.Sessions() {
		s.closeWith(closeGoingAway, reason)
	}
}
