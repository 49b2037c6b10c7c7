package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/Coooder-Crypto/ByteChat/backend/internal/models"
)

// ErrNotPersisted is returned when an insert was skipped as a duplicate but
// the conflicting row could not be read back.
var ErrNotPersisted = errors.New("message not persisted")

// Store is the relational store of record.
// PostgresStore and SQLStore (sqlite3, mysql) implement it.
type Store interface {
	// Connection management
	Close()
	Ping(ctx context.Context) error

	// EnsureUserAndRoom creates the user, the room and the membership edge
	// between them if absent. It never fails on duplicates.
	EnsureUserAndRoom(ctx context.Context, userID, roomID string) error

	// InsertMessage persists msg, assigning ID and CreatedAt. When msg.ClientID
	// is set and a row with that token already exists, nothing is written and
	// the existing row is returned with created=false.
	InsertMessage(ctx context.Context, msg *models.Message) (stored *models.Message, created bool, err error)

	// ListMessages returns up to limit messages of a room strictly older than
	// before (newest first). A nil before starts from the newest message.
	ListMessages(ctx context.Context, roomID string, before *models.Position, limit int) ([]models.Message, error)
}

// Clock returns the current time. Stores use it to stamp new rows.
type Clock func() time.Time

// newIdentity assigns a fresh id and creation time in unix milliseconds.
// ULIDs share the millisecond with createdAt and are monotonic within it, so
// (createdAt, id) follows insertion order inside one process.
func newIdentity(now time.Time) (string, int64, error) {
	id, err := ulid.New(ulid.Timestamp(now), ulid.DefaultEntropy())
	if err != nil {
		return "", 0, fmt.Errorf("generate message id: %w", err)
	}
	return id.String(), now.UnixMilli(), nil
}

// messageColumns is the select list shared by every dialect; metadata is
// always read back as text.
const messageColumns = `id, client_id, room_id, sender_id, msg_type, content, media_url, metadata, created_at`

// scanMessage reads one row selected with messageColumns. It accepts both
// database/sql and pgx scanners.
func scanMessage(scan func(dest ...any) error) (models.Message, error) {
	var (
		msg      models.Message
		clientID *string
		mediaURL *string
		metadata *string
	)
	err := scan(
		&msg.ID,
		&clientID,
		&msg.RoomID,
		&msg.SenderID,
		&msg.MsgType,
		&msg.Content,
		&mediaURL,
		&metadata,
		&msg.CreatedAt,
	)
	if err != nil {
		return models.Message{}, err
	}
	msg.ClientID = clientID
	msg.MediaURL = mediaURL
	if metadata != nil {
		msg.Metadata = json.RawMessage(*metadata)
	}
	return msg, nil
}

// metadataParam converts opaque metadata into a nullable text parameter.
func metadataParam(raw json.RawMessage) *string {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	s := string(raw)
	return &s
}

// Open connects to the store selected by driver and bootstraps its schema.
func Open(ctx context.Context, driver, url string, clock Clock) (Store, error) {
	switch driver {
	case "postgres", "postgresql", "pgx":
		return NewPostgresStore(ctx, url, clock)
	case "sqlite", "sqlite3", "mysql":
		return NewSQLStore(ctx, driver, url, clock)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}
}
