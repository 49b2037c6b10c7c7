package store

import (
	"context"
	"time"

	"github.com/Coooder-Crypto/ByteChat/backend/internal/metrics"
	"github.com/Coooder-Crypto/ByteChat/backend/internal/models"
)

// instrumented bounds every call with a timeout and records latency.
type instrumented struct {
	inner   Store
	timeout time.Duration
}

// Instrument wraps s with a per-operation timeout and Prometheus metrics.
// A non-positive timeout disables the deadline.
func Instrument(s Store, timeout time.Duration) Store {
	return &instrumented{inner: s, timeout: timeout}
}

func (s *instrumented) begin(ctx context.Context) (context.Context, context.CancelFunc, time.Time) {
	start := time.Now()
	if s.timeout <= 0 {
		return ctx, func() {}, start
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	return ctx, cancel, start
}

func observe(op string, start time.Time, err error) {
	metrics.StoreLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.StoreErrors.WithLabelValues(op).Inc()
	}
}

func (s *instrumented) Close() { s.inner.Close() }

func (s *instrumented) Ping(ctx context.Context) error {
	ctx, cancel, start := s.begin(ctx)
	defer cancel()
	err := s.inner.Ping(ctx)
	observe("ping", start, err)
	return err
}

func (s *instrumented) EnsureUserAndRoom(ctx context.Context, userID, roomID string) error {
	ctx, cancel, start := s.begin(ctx)
	defer cancel()
	err := s.inner.EnsureUserAndRoom(ctx, userID, roomID)
	observe("ensure_user_room", start, err)
	return err
}

func (s *instrumented) InsertMessage(ctx context.Context, msg *models.Message) (*models.Message, bool, error) {
	ctx, cancel, start := s.begin(ctx)
	defer cancel()
	stored, created, err := s.inner.InsertMessage(ctx, msg)
	observe("insert_message", start, err)
	return stored, created, err
}

func (s *instrumented) ListMessages(ctx context.Context, roomID string, before *models.Position, limit int) ([]models.Message, error) {
	ctx, cancel, start := s.begin(ctx)
	defer cancel()
	messages, err := s.inner.ListMessages(ctx, roomID, before, limit)
	observe("list_messages", start, err)
	return messages, err
}
