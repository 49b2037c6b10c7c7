package websocket

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestRegistryJoinIsIdempotent(t *testing.T) {
	r := NewRegistry(zerolog.Nop())
	s, _ := newFakeSession(r, "u1", "lobby")

	r.Join("lobby", s)
	r.Join("lobby", s)

	if p := r.Presence("lobby"); p.Sessions != 1 {
		t.Fatalf("expected 1 session, got %d", p.Sessions)
	}
}

func TestRegistryLeaveDropsEmptyRoom(t *testing.T) {
	r := NewRegistry(zerolog.Nop())
	s1, _ := newFakeSession(r, "u1", "lobby")
	s2, _ := newFakeSession(r, "u2", "lobby")
	r.Join("lobby", s1)
	r.Join("lobby", s2)

	if !r.Leave("lobby", s1) {
		t.Fatalf("leave should report removal")
	}
	if r.Leave("lobby", s1) {
		t.Fatalf("second leave should be a no-op")
	}
	if !r.Contains("lobby", s2) {
		t.Fatalf("other session was removed")
	}

	r.Leave("lobby", s2)
	r.mu.RLock()
	_, exists := r.rooms["lobby"]
	r.mu.RUnlock()
	if exists {
		t.Fatalf("empty room entry was not dropped")
	}
}

func TestBroadcastSkipsClosedAndBackloggedSessions(t *testing.T) {
	r := NewRegistry(zerolog.Nop())
	live, _ := newFakeSession(r, "u1", "lobby")
	closed, _ := newFakeSession(r, "u2", "lobby")
	full, _ := newFakeSession(r, "u3", "lobby")
	other, _ := newFakeSession(r, "u4", "elsewhere")
	for _, s := range []*Session{live, closed, full} {
		r.Join("lobby", s)
	}
	r.Join("elsewhere", other)

	closed.shutdown()
	for i := 0; i < sendBuffer; i++ {
		if !full.Deliver([]byte("x")) {
			t.Fatalf("buffer filled early at %d", i)
		}
	}

	if n := r.Broadcast("lobby", []byte(`{"type":"message"}`)); n != 1 {
		t.Fatalf("expected 1 recipient, got %d", n)
	}
	select {
	case got := <-live.send:
		if string(got) != `{"type":"message"}` {
			t.Fatalf("unexpected payload %s", got)
		}
	default:
		t.Fatalf("live session did not receive the broadcast")
	}
	if len(other.send) != 0 {
		t.Fatalf("broadcast leaked into another room")
	}
}

func TestPresenceListsDistinctUsers(t *testing.T) {
	r := NewRegistry(zerolog.Nop())
	a, _ := newFakeSession(r, "u2", "lobby")
	b, _ := newFakeSession(r, "u1", "lobby")
	c, _ := newFakeSession(r, "u1", "lobby")
	for _, s := range []*Session{a, b, c} {
		r.Join("lobby", s)
	}

	p := r.Presence("lobby")
	if p.Sessions != 3 || len(p.Users) != 2 || p.Users[0] != "u1" || p.Users[1] != "u2" {
		t.Fatalf("unexpected presence %+v", p)
	}

	if empty := r.Presence("nowhere"); empty.Sessions != 0 || empty.Users == nil {
		t.Fatalf("unexpected presence for empty room %+v", empty)
	}
}
