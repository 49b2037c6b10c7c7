package websocket

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestSupervisorEvictsAfterUnansweredProbe(t *testing.T) {
	r := NewRegistry(zerolog.Nop())
	sup := NewSupervisor(r, time.Hour, zerolog.Nop())
	s, conn := newFakeSession(r, "u2", "lobby")
	r.Join("lobby", s)

	if n := sup.Tick(); n != 0 {
		t.Fatalf("first tick evicted %d sessions", n)
	}
	if conn.pingCount() != 1 {
		t.Fatalf("expected one probe, got %d", conn.pingCount())
	}
	if got := s.state.Load(); got != stateProbing {
		t.Fatalf("expected probing state, got %d", got)
	}

	if n := sup.Tick(); n != 1 {
		t.Fatalf("second tick evicted %d sessions", n)
	}
	if r.Contains("lobby", s) {
		t.Fatalf("evicted session is still registered")
	}
	if !conn.isClosed() {
		t.Fatalf("evicted connection was not closed")
	}
	if s.Deliver([]byte("x")) {
		t.Fatalf("evicted session accepted a frame")
	}
}

func TestSupervisorKeepsResponsiveSessions(t *testing.T) {
	r := NewRegistry(zerolog.Nop())
	sup := NewSupervisor(r, time.Hour, zerolog.Nop())
	s, conn := newFakeSession(r, "u1", "lobby")
	r.Join("lobby", s)

	for i := 0; i < 3; i++ {
		if n := sup.Tick(); n != 0 {
			t.Fatalf("tick %d evicted a responsive session", i)
		}
		s.markAlive()
	}
	if conn.pingCount() != 3 {
		t.Fatalf("expected 3 probes, got %d", conn.pingCount())
	}
	if !r.Contains("lobby", s) {
		t.Fatalf("responsive session was removed")
	}
}

func TestSupervisorStartStop(t *testing.T) {
	r := NewRegistry(zerolog.Nop())
	sup := NewSupervisor(r, 10*time.Millisecond, zerolog.Nop())
	s, _ := newFakeSession(r, "u2", "lobby")
	r.Join("lobby", s)

	done := make(chan struct{})
	go func() {
		sup.Start()
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for r.Contains("lobby", s) {
		if time.Now().After(deadline) {
			t.Fatalf("silent session was not evicted by the running supervisor")
		}
		time.Sleep(5 * time.Millisecond)
	}

	sup.Stop()
	sup.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("supervisor did not stop")
	}
}
