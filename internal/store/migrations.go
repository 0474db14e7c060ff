package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	reserved_name TEXT UNIQUE NOT NULL,
	email TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS rooms (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	code TEXT UNIQUE NOT NULL,
	name TEXT NOT NULL,
	host_id UUID REFERENCES users(id),
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	last_active_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	message_count BIGINT NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS messages (
	id TEXT PRIMARY KEY,
	room_id UUID NOT NULL REFERENCES rooms(id),
	author_name TEXT NOT NULL,
	author_id UUID REFERENCES users(id),
	reply_to_id TEXT REFERENCES messages(id),
	content TEXT NOT NULL,
	voice_url TEXT,
	voice_duration DOUBLE PRECISION,
	voice_waveform INTEGER[],
	pinned BOOLEAN NOT NULL DEFAULT FALSE,
	pin_expires_at TIMESTAMPTZ,
	pin_amount DOUBLE PRECISION NOT NULL DEFAULT 0,
	deleted BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_messages_room_created
	ON messages (room_id, created_at DESC);

CREATE TABLE IF NOT EXISTS reactions (
	message_id TEXT NOT NULL REFERENCES messages(id),
	user_id UUID NOT NULL REFERENCES users(id),
	emoji TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (message_id, user_id, emoji)
);

CREATE TABLE IF NOT EXISTS blocks (
	user_id UUID NOT NULL REFERENCES users(id),
	username TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (user_id, username)
);
`

// RunMigrations applies the schema. Statements are idempotent so this
// is safe to run on every startup.
func RunMigrations(databaseURL string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	conn, err := pgx.Connect(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)

	_, err = conn.Exec(ctx, schema)
	return err
}
