package store

// Schemas are idempotent and run on every start. Timestamps are unix
// milliseconds in BIGINT columns so every dialect compares them exactly.
// Message ids must compare byte-wise for the cursor tie-break.

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		created_at INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS rooms (
		id TEXT PRIMARY KEY,
		created_at INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS room_members (
		room_id TEXT NOT NULL REFERENCES rooms(id),
		user_id TEXT NOT NULL REFERENCES users(id),
		joined_at INTEGER NOT NULL,
		PRIMARY KEY (room_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		client_id TEXT UNIQUE,
		room_id TEXT NOT NULL REFERENCES rooms(id),
		sender_id TEXT NOT NULL REFERENCES users(id),
		msg_type TEXT NOT NULL DEFAULT 'text',
		content TEXT NOT NULL DEFAULT '',
		media_url TEXT,
		metadata TEXT,
		created_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_room_order ON messages(room_id, created_at DESC, id DESC)`,
}

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id VARCHAR(191) NOT NULL,
		created_at BIGINT NOT NULL,
		PRIMARY KEY (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS rooms (
		id VARCHAR(191) NOT NULL,
		created_at BIGINT NOT NULL,
		PRIMARY KEY (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS room_members (
		room_id VARCHAR(191) NOT NULL,
		user_id VARCHAR(191) NOT NULL,
		joined_at BIGINT NOT NULL,
		PRIMARY KEY (room_id, user_id),
		CONSTRAINT fk_members_room FOREIGN KEY (room_id) REFERENCES rooms(id),
		CONSTRAINT fk_members_user FOREIGN KEY (user_id) REFERENCES users(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS messages (
		id CHAR(26) CHARACTER SET ascii COLLATE ascii_bin NOT NULL,
		client_id VARCHAR(191) NULL,
		room_id VARCHAR(191) NOT NULL,
		sender_id VARCHAR(191) NOT NULL,
		msg_type VARCHAR(32) NOT NULL DEFAULT 'text',
		content MEDIUMTEXT NOT NULL,
		media_url TEXT NULL,
		metadata MEDIUMTEXT NULL,
		created_at BIGINT NOT NULL,
		PRIMARY KEY (id),
		UNIQUE KEY uniq_messages_client (client_id),
		INDEX idx_messages_room_order (room_id, created_at, id),
		CONSTRAINT fk_messages_room FOREIGN KEY (room_id) REFERENCES rooms(id),
		CONSTRAINT fk_messages_sender FOREIGN KEY (sender_id) REFERENCES users(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		created_at BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS rooms (
		id TEXT PRIMARY KEY,
		created_at BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS room_members (
		room_id TEXT NOT NULL REFERENCES rooms(id),
		user_id TEXT NOT NULL REFERENCES users(id),
		joined_at BIGINT NOT NULL,
		PRIMARY KEY (room_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS messages (
		id TEXT COLLATE "C" PRIMARY KEY,
		client_id TEXT UNIQUE,
		room_id TEXT NOT NULL REFERENCES rooms(id),
		sender_id TEXT NOT NULL REFERENCES users(id),
		msg_type TEXT NOT NULL DEFAULT 'text',
		content TEXT NOT NULL DEFAULT '',
		media_url TEXT,
		metadata JSON,
		created_at BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_room_order ON messages (room_id, created_at DESC, id DESC)`,
}
