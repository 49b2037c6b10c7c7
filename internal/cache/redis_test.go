package cache

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/Coooder-Crypto/ByteChat/backend/internal/models"
)

func newTestCache(t *testing.T) *RedisPageCache {
	t.Helper()
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("set TEST_REDIS_URL to run redis-backed cache tests")
	}
	c, err := NewRedisPageCache(context.Background(), url, time.Minute)
	if err != nil {
		t.Fatalf("redis cache: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestPageCacheStoreLoadAndInvalidate(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	room := fmt.Sprintf("room-%d", time.Now().UnixNano())

	v0, err := c.Version(ctx, room)
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	next := "1700000000000_01ARZ3NDEKTSV4RRFFQ69G5FAV"
	page := &models.HistoryPage{
		Items:      []models.Message{{ID: "01ARZ3NDEKTSV4RRFFQ69G5FAV", RoomID: room, SenderID: "u1", MsgType: "text", Content: "hi", CreatedAt: 1700000000000}},
		NextCursor: &next,
	}
	if err := c.Set(ctx, room, v0, "head:20", page); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, ok := c.Get(ctx, room, v0, "head:20")
	if !ok {
		t.Fatalf("expected cache hit")
	}
	if len(got.Items) != 1 || got.Items[0].Content != "hi" || got.NextCursor == nil || *got.NextCursor != next {
		t.Fatalf("cached page mismatch: %+v", got)
	}

	if err := c.Invalidate(ctx, room); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	v1, err := c.Version(ctx, room)
	if err != nil {
		t.Fatalf("version after invalidate: %v", err)
	}
	if v1 == v0 {
		t.Fatalf("version did not advance")
	}
	if _, ok := c.Get(ctx, room, v1, "head:20"); ok {
		t.Fatalf("expected miss after invalidation")
	}
}
