package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Coooder-Crypto/ByteChat/backend/internal/cache"
	"github.com/Coooder-Crypto/ByteChat/backend/internal/metrics"
	"github.com/Coooder-Crypto/ByteChat/backend/internal/models"
	"github.com/Coooder-Crypto/ByteChat/backend/internal/store"
)

const (
	// DefaultPageLimit is used when the caller gives no usable limit.
	DefaultPageLimit = 20

	// DefaultMaxPageLimit caps a page when no other maximum is configured.
	DefaultMaxPageLimit = 100
)

// PageCache stores rendered history pages. Pages are keyed by the room's
// version at read time so Invalidate makes every older page unreachable.
type PageCache interface {
	Version(ctx context.Context, roomID string) (int64, error)
	Get(ctx context.Context, roomID string, version int64, key string) (*models.HistoryPage, bool)
	Set(ctx context.Context, roomID string, version int64, key string, page *models.HistoryPage) error
	Invalidate(ctx context.Context, roomID string) error
}

// HistoryService serves a room's log newest first. It only reads the store
// and never touches live sessions.
type HistoryService struct {
	store    store.Store
	cache    PageCache
	maxLimit int
	log      zerolog.Logger
}

// NewHistoryService creates a new HistoryService instance.
func NewHistoryService(st store.Store, pc PageCache, maxLimit int, logger zerolog.Logger) *HistoryService {
	if pc == nil {
		pc = cache.Nop{}
	}
	if maxLimit <= 0 {
		maxLimit = DefaultMaxPageLimit
	}
	return &HistoryService{
		store:    st,
		cache:    pc,
		maxLimit: maxLimit,
		log:      logger.With().Str("component", "history").Logger(),
	}
}

// ClampLimit maps a requested page size into [1, max]. Zero or negative
// requests get DefaultPageLimit.
func ClampLimit(limit, max int) int {
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > max {
		limit = max
	}
	return limit
}

// EncodeCursor renders p as "<createdAtMillis>_<id>".
func EncodeCursor(p models.Position) string {
	return fmt.Sprintf("%d_%s", p.CreatedAt, p.ID)
}

// DecodeCursor parses a cursor produced by EncodeCursor.
func DecodeCursor(cursor string) (models.Position, bool) {
	ms, id, found := strings.Cut(cursor, "_")
	if !found || id == "" {
		return models.Position{}, false
	}
	createdAt, err := strconv.ParseInt(ms, 10, 64)
	if err != nil || createdAt < 0 {
		return models.Position{}, false
	}
	return models.Position{CreatedAt: createdAt, ID: id}, true
}

// FetchPage returns up to limit messages of roomID strictly older than
// cursor. An empty or malformed cursor starts from the newest message.
// NextCursor is nil only when the page is empty.
func (s *HistoryService) FetchPage(ctx context.Context, roomID, cursor string, limit int) (*models.HistoryPage, error) {
	limit = ClampLimit(limit, s.maxLimit)

	var before *models.Position
	if cursor != "" {
		if p, ok := DecodeCursor(cursor); ok {
			before = &p
		} else {
			s.log.Debug().Str("room", roomID).Str("cursor", cursor).Msg("malformed cursor, starting from newest")
		}
	}

	key := "head"
	if before != nil {
		key = EncodeCursor(*before)
	}
	key = fmt.Sprintf("%s:%d", key, limit)

	version, verr := s.cache.Version(ctx, roomID)
	if verr != nil {
		s.log.Warn().Err(verr).Str("room", roomID).Msg("history cache unavailable")
	} else if page, ok := s.cache.Get(ctx, roomID, version, key); ok {
		metrics.HistoryPages.WithLabelValues("cache").Inc()
		return page, nil
	}

	items, err := s.store.ListMessages(ctx, roomID, before, limit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	page := &models.HistoryPage{Items: items}
	if page.Items == nil {
		page.Items = []models.Message{}
	}
	if n := len(page.Items); n > 0 {
		next := EncodeCursor(models.PositionOf(page.Items[n-1]))
		page.NextCursor = &next
	}
	metrics.HistoryPages.WithLabelValues("store").Inc()

	if verr == nil {
		if err := s.cache.Set(ctx, roomID, version, key, page); err != nil {
			s.log.Warn().Err(err).Str("room", roomID).Msg("history cache write failed")
		}
	}
	return page, nil
}
