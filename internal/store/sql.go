package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"

	"github.com/Coooder-Crypto/ByteChat/backend/internal/models"
)

// dialect holds the statements that differ between database/sql drivers.
type dialect struct {
	driver        string
	schema        []string
	insertUser    string
	insertRoom    string
	insertMember  string
	insertMessage string
}

var sqliteDialect = dialect{
	driver:       "sqlite3",
	schema:       sqliteSchema,
	insertUser:   `INSERT OR IGNORE INTO users (id, created_at) VALUES (?, ?)`,
	insertRoom:   `INSERT OR IGNORE INTO rooms (id, created_at) VALUES (?, ?)`,
	insertMember: `INSERT OR IGNORE INTO room_members (room_id, user_id, joined_at) VALUES (?, ?, ?)`,
	insertMessage: `INSERT INTO messages (` + messageColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (client_id) DO NOTHING`,
}

// MySQL has no targeted DO NOTHING; a no-op update reports zero affected
// rows for an existing row, while INSERT IGNORE would also swallow foreign
// key and truncation errors.
var mysqlDialect = dialect{
	driver:       "mysql",
	schema:       mysqlSchema,
	insertUser:   `INSERT INTO users (id, created_at) VALUES (?, ?) ON DUPLICATE KEY UPDATE id = id`,
	insertRoom:   `INSERT INTO rooms (id, created_at) VALUES (?, ?) ON DUPLICATE KEY UPDATE id = id`,
	insertMember: `INSERT INTO room_members (room_id, user_id, joined_at) VALUES (?, ?, ?) ON DUPLICATE KEY UPDATE room_id = room_id`,
	insertMessage: `INSERT INTO messages (` + messageColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE id = id`,
}

// SQLStore implements Store on database/sql for SQLite and MySQL.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
	now     Clock
}

// NewSQLStore opens a SQLite or MySQL database and initializes the schema.
// For sqlite3, dsn is a file path (":memory:" for an in-process database).
func NewSQLStore(ctx context.Context, driver, dsn string, clock Clock) (*SQLStore, error) {
	if clock == nil {
		clock = time.Now
	}

	var d dialect
	switch strings.ToLower(driver) {
	case "sqlite", "sqlite3":
		d = sqliteDialect
		if dsn == "" {
			dsn = "./data/bytechat.db"
		}
		if !strings.HasPrefix(dsn, ":memory:") && !strings.HasPrefix(dsn, "file:") {
			if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
				return nil, fmt.Errorf("create sqlite directory: %w", err)
			}
		}
		if !strings.Contains(dsn, "?") {
			dsn += "?_foreign_keys=on&_busy_timeout=5000"
		}
	case "mysql":
		d = mysqlDialect
		if dsn == "" {
			return nil, fmt.Errorf("mysql dsn must be provided")
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", d.driver, err)
	}
	if d.driver == "sqlite3" {
		// One connection serializes writers and keeps :memory: databases alive.
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s database: %w", d.driver, err)
	}

	s := &SQLStore{db: db, dialect: d, now: clock}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) migrate(ctx context.Context) error {
	for _, stmt := range s.dialect.schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate (%s): %w", s.dialect.driver, err)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLStore) Close() {
	s.db.Close()
}

// Ping checks the database connection.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// EnsureUserAndRoom creates the user, room and membership edge if absent.
func (s *SQLStore) EnsureUserAndRoom(ctx context.Context, userID, roomID string) error {
	now := s.now().UnixMilli()
	if _, err := s.db.ExecContext(ctx, s.dialect.insertUser, userID, now); err != nil {
		return fmt.Errorf("ensure user: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, s.dialect.insertRoom, roomID, now); err != nil {
		return fmt.Errorf("ensure room: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, s.dialect.insertMember, roomID, userID, now); err != nil {
		return fmt.Errorf("ensure membership: %w", err)
	}
	return nil
}

// InsertMessage persists msg or returns the row already holding its client id.
func (s *SQLStore) InsertMessage(ctx context.Context, msg *models.Message) (*models.Message, bool, error) {
	id, createdAt, err := newIdentity(s.now())
	if err != nil {
		return nil, false, err
	}
	row := *msg
	row.ID = id
	row.CreatedAt = createdAt

	res, err := s.db.ExecContext(ctx, s.dialect.insertMessage,
		row.ID,
		row.ClientID,
		row.RoomID,
		row.SenderID,
		row.MsgType,
		row.Content,
		row.MediaURL,
		metadataParam(row.Metadata),
		row.CreatedAt,
	)
	if err != nil {
		return nil, false, fmt.Errorf("insert message: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("insert message: %w", err)
	}
	if affected == 1 {
		return &row, true, nil
	}

	if row.ClientID == nil {
		return nil, false, ErrNotPersisted
	}
	existing, err := s.messageByClientID(ctx, *row.ClientID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (s *SQLStore) messageByClientID(ctx context.Context, clientID string) (*models.Message, error) {
	msg, err := scanMessage(s.db.QueryRowContext(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE client_id = ?`, clientID).Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotPersisted
		}
		return nil, fmt.Errorf("fetch message by client id: %w", err)
	}
	return &msg, nil
}

// ListMessages returns a newest-first page of a room's messages.
func (s *SQLStore) ListMessages(ctx context.Context, roomID string, before *models.Position, limit int) ([]models.Message, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if before == nil {
		rows, err = s.db.QueryContext(ctx, `
			SELECT `+messageColumns+`
			FROM messages
			WHERE room_id = ?
			ORDER BY created_at DESC, id DESC
			LIMIT ?
		`, roomID, limit)
	} else {
		rows, err = s.db.QueryContext(ctx, `
			SELECT `+messageColumns+`
			FROM messages
			WHERE room_id = ?
			  AND (created_at < ? OR (created_at = ? AND id < ?))
			ORDER BY created_at DESC, id DESC
			LIMIT ?
		`, roomID, before.CreatedAt, before.CreatedAt, before.ID, limit)
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
