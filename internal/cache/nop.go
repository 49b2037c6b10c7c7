package cache

import (
	"context"

	"github.com/Coooder-Crypto/ByteChat/backend/internal/models"
)

// Nop is used when no Redis is configured. Every lookup misses.
type Nop struct{}

func (Nop) Version(context.Context, string) (int64, error) { return 0, nil }

func (Nop) Get(context.Context, string, int64, string) (*models.HistoryPage, bool) {
	return nil, false
}

func (Nop) Set(context.Context, string, int64, string, *models.HistoryPage) error { return nil }

func (Nop) Invalidate(context.Context, string) error { return nil }

func (Nop) Ping(context.Context) error { return nil }

func (Nop) Close() error { return nil }
