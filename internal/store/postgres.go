package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Coooder-Crypto/ByteChat/backend/internal/models"
)

// PostgresStore handles PostgreSQL database operations.
type PostgresStore struct {
	pool *pgxpool.Pool
	now  Clock
}

// NewPostgresStore creates a new PostgreSQL store with a connection pool
// and bootstraps the schema.
func NewPostgresStore(ctx context.Context, databaseURL string, clock Clock) (*PostgresStore, error) {
	if clock == nil {
		clock = time.Now
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	for _, stmt := range postgresSchema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate (postgres): %w", err)
		}
	}

	return &PostgresStore{pool: pool, now: clock}, nil
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// EnsureUserAndRoom creates the user, room and membership edge if absent.
func (s *PostgresStore) EnsureUserAndRoom(ctx context.Context, userID, roomID string) error {
	now := s.now().UnixMilli()

	batch := &pgx.Batch{}
	batch.Queue(`INSERT INTO users (id, created_at) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`, userID, now)
	batch.Queue(`INSERT INTO rooms (id, created_at) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`, roomID, now)
	batch.Queue(`INSERT INTO room_members (room_id, user_id, joined_at) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`, roomID, userID, now)

	if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("ensure user and room: %w", err)
	}
	return nil
}

// InsertMessage persists msg or returns the row already holding its client id.
// ON CONFLICT DO NOTHING waits for a concurrent insert of the same token to
// commit, so the follow-up read always finds the winner's row.
func (s *PostgresStore) InsertMessage(ctx context.Context, msg *models.Message) (*models.Message, bool, error) {
	id, createdAt, err := newIdentity(s.now())
	if err != nil {
		return nil, false, err
	}
	row := *msg
	row.ID = id
	row.CreatedAt = createdAt

	var insertedID string
	err = s.pool.QueryRow(ctx, `
		INSERT INTO messages (`+messageColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::json, $9)
		ON CONFLICT (client_id) DO NOTHING
		RETURNING id
	`,
		row.ID,
		row.ClientID,
		row.RoomID,
		row.SenderID,
		row.MsgType,
		row.Content,
		row.MediaURL,
		metadataParam(row.Metadata),
		row.CreatedAt,
	).Scan(&insertedID)
	if err == nil {
		return &row, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("insert message: %w", err)
	}

	if row.ClientID == nil {
		return nil, false, ErrNotPersisted
	}
	existing, err := scanMessage(s.pool.QueryRow(ctx, `
		SELECT id, client_id, room_id, sender_id, msg_type, content, media_url, metadata::text, created_at
		FROM messages WHERE client_id = $1
	`, *row.ClientID).Scan)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, ErrNotPersisted
		}
		return nil, false, fmt.Errorf("fetch message by client id: %w", err)
	}
	return &existing, false, nil
}

// ListMessages returns a newest-first page of a room's messages.
func (s *PostgresStore) ListMessages(ctx context.Context, roomID string, before *models.Position, limit int) ([]models.Message, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if before == nil {
		rows, err = s.pool.Query(ctx, `
			SELECT id, client_id, room_id, sender_id, msg_type, content, media_url, metadata::text, created_at
			FROM messages
			WHERE room_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2
		`, roomID, limit)
	} else {
		rows, err = s.pool.Query(ctx, `
			SELECT id, client_id, room_id, sender_id, msg_type, content, media_url, metadata::text, created_at
			FROM messages
			WHERE room_id = $1
			  AND (created_at < $2 OR (created_at = $2 AND id < $3))
			ORDER BY created_at DESC, id DESC
			LIMIT $4
		`, roomID, before.CreatedAt, before.ID, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	messages := make([]models.Message, 0, limit)
	for rows.Next() {
		msg, err := scanMessage(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return messages, nil
}
