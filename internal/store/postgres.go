package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"

	"github.com/robertddewey/ChatPop-sub000/internal/models"
)

// PostgresStore handles PostgreSQL database operations.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL store with a connection pool.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// GetUser retrieves a user by ID.
func (s *PostgresStore) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user := &models.User{}
	var email *string
	err := s.pool.QueryRow(ctx, `
		SELECT id, reserved_name, email, created_at FROM users WHERE id = $1
	`, id).Scan(&user.ID, &user.ReservedName, &email, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if email != nil {
		user.Email = *email
	}
	return user, nil
}

// CreateRoom creates a new room.
func (s *PostgresStore) CreateRoom(ctx context.Context, code, name string, hostID *uuid.UUID) (*models.Room, error) {
	room := &models.Room{}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO rooms (code, name, host_id)
		VALUES ($1, $2, $3)
		RETURNING id, code, name, host_id, created_at, last_active_at, message_count
	`, code, name, hostID).Scan(
		&room.ID,
		&room.Code,
		&room.Name,
		&room.HostID,
		&room.CreatedAt,
		&room.LastActiveAt,
		&room.MessageCount,
	)
	if err != nil {
		return nil, err
	}
	return room, nil
}

// GetRoom retrieves a room by ID.
func (s *PostgresStore) GetRoom(ctx context.Context, id uuid.UUID) (*models.Room, error) {
	room := &models.Room{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, code, name, host_id, created_at, last_active_at, message_count
		FROM rooms WHERE id = $1
	`, id).Scan(
		&room.ID,
		&room.Code,
		&room.Name,
		&room.HostID,
		&room.CreatedAt,
		&room.LastActiveAt,
		&room.MessageCount,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return room, nil
}

// IncrementMessageCount increments the message count and updates activity.
func (s *PostgresStore) IncrementMessageCount(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE rooms
		SET message_count = message_count + 1, last_active_at = NOW()
		WHERE id = $1
	`, id)
	return err
}

// PersistMessage inserts a message as the authoritative record. A ULID
// and creation timestamp are assigned if not already set; the cache
// write path runs only after this succeeds.
func (s *PostgresStore) PersistMessage(ctx context.Context, msg *models.Message) error {
	if msg.ID == "" {
		msg.ID = ulid.Make().String()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}

	var voiceURL *string
	var voiceDuration *float64
	var waveform []int32
	if msg.Voice != nil {
		voiceURL = &msg.Voice.URL
		voiceDuration = &msg.Voice.Duration
		waveform = make([]int32, len(msg.Voice.Waveform))
		for i, v := range msg.Voice.Waveform {
			waveform[i] = int32(v)
		}
	}

	var replyToID *string
	if msg.ReplyToID != "" {
		replyToID = &msg.ReplyToID
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO messages (
			id, room_id, author_name, author_id, reply_to_id, content,
			voice_url, voice_duration, voice_waveform,
			pinned, pin_expires_at, pin_amount, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, msg.ID, msg.RoomID, msg.AuthorName, msg.AuthorID, replyToID, msg.Content,
		voiceURL, voiceDuration, waveform,
		msg.Pinned, msg.PinExpiresAt, msg.PinAmount, msg.CreatedAt)
	return err
}

// messageSelect is the shared projection for message reads, joining the
// author account, the room host and the one-hop reply target.
const messageSelect = `
	SELECT m.id, m.room_id, m.author_name, m.author_id, m.reply_to_id, m.content,
	       m.voice_url, m.voice_duration, m.voice_waveform,
	       m.pinned, m.pin_expires_at, m.pin_amount, m.deleted, m.created_at,
	       (m.author_id IS NOT NULL AND m.author_id = rm.host_id),
	       u.id, u.reserved_name,
	       p.id, p.author_name, p.content,
	       (p.author_id IS NOT NULL AND p.author_id = rm.host_id)
	FROM messages m
	JOIN rooms rm ON rm.id = m.room_id
	LEFT JOIN users u ON u.id = m.author_id
	LEFT JOIN messages p ON p.id = m.reply_to_id
`

// scanMessage scans one row of messageSelect.
func scanMessage(row pgx.Row) (*models.Message, error) {
	msg := &models.Message{}
	var replyToID, voiceURL *string
	var voiceDuration *float64
	var waveform []int32
	var authorUserID *uuid.UUID
	var reservedName *string
	var parentID, parentAuthor, parentContent *string
	var parentIsHost *bool

	err := row.Scan(
		&msg.ID, &msg.RoomID, &msg.AuthorName, &msg.AuthorID, &replyToID, &msg.Content,
		&voiceURL, &voiceDuration, &waveform,
		&msg.Pinned, &msg.PinExpiresAt, &msg.PinAmount, &msg.Deleted, &msg.CreatedAt,
		&msg.IsHost,
		&authorUserID, &reservedName,
		&parentID, &parentAuthor, &parentContent,
		&parentIsHost,
	)
	if err != nil {
		return nil, err
	}

	if replyToID != nil {
		msg.ReplyToID = *replyToID
	}
	if voiceURL != nil {
		voice := &models.VoiceAttachment{URL: *voiceURL}
		if voiceDuration != nil {
			voice.Duration = *voiceDuration
		}
		if len(waveform) > 0 {
			voice.Waveform = make([]int, len(waveform))
			for i, v := range waveform {
				voice.Waveform[i] = int(v)
			}
		}
		msg.Voice = voice
	}
	if authorUserID != nil {
		msg.Author = &models.User{ID: *authorUserID}
		if reservedName != nil {
			msg.Author.ReservedName = *reservedName
		}
	}
	if parentID != nil {
		parent := &models.Message{ID: *parentID}
		if parentAuthor != nil {
			parent.AuthorName = *parentAuthor
		}
		if parentContent != nil {
			parent.Content = *parentContent
		}
		if parentIsHost != nil {
			parent.IsHost = *parentIsHost
		}
		msg.ReplyTo = parent
	}
	return msg, nil
}

// GetMessage retrieves one message by room and identifier.
func (s *PostgresStore) GetMessage(ctx context.Context, roomID uuid.UUID, msgID string) (*models.Message, error) {
	msg, err := scanMessage(s.pool.QueryRow(ctx,
		messageSelect+`WHERE m.room_id = $1 AND m.id = $2`, roomID, msgID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return msg, nil
}

// FetchMessagesPage returns up to limit non-deleted messages created
// strictly before the given timestamp, newest first. This is the
// authoritative read used on cache miss and partial-hit backfill.
func (s *PostgresStore) FetchMessagesPage(ctx context.Context, roomID uuid.UUID, before time.Time, limit int) ([]models.Message, error) {
	rows, err := s.pool.Query(ctx,
		messageSelect+`
		WHERE m.room_id = $1 AND m.deleted = FALSE AND m.created_at < $2
		ORDER BY m.created_at DESC
		LIMIT $3
	`, roomID, before, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, *msg)
	}
	return messages, rows.Err()
}

// MarkMessageDeleted soft-deletes a message. The row survives because
// replies may still reference it.
func (s *PostgresStore) MarkMessageDeleted(ctx context.Context, roomID uuid.UUID, msgID string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE messages SET deleted = TRUE WHERE room_id = $1 AND id = $2
	`, roomID, msgID)
	return err
}

// SetMessagePin records a paid pin on a message.
func (s *PostgresStore) SetMessagePin(ctx context.Context, roomID uuid.UUID, msgID string, amount float64, expiresAt time.Time) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE messages
		SET pinned = TRUE, pin_amount = $3, pin_expires_at = $4
		WHERE room_id = $1 AND id = $2
	`, roomID, msgID, amount, expiresAt)
	return err
}

// ClearMessagePin removes a message's pin state.
func (s *PostgresStore) ClearMessagePin(ctx context.Context, roomID uuid.UUID, msgID string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE messages
		SET pinned = FALSE, pin_amount = 0, pin_expires_at = NULL
		WHERE room_id = $1 AND id = $2
	`, roomID, msgID)
	return err
}

// AddReaction inserts one user's reaction row, idempotently.
func (s *PostgresStore) AddReaction(ctx context.Context, msgID string, userID uuid.UUID, emoji string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO reactions (message_id, user_id, emoji)
		VALUES ($1, $2, $3)
		ON CONFLICT DO NOTHING
	`, msgID, userID, emoji)
	return err
}

// RemoveReaction deletes one user's reaction row.
func (s *PostgresStore) RemoveReaction(ctx context.Context, msgID string, userID uuid.UUID, emoji string) error {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM reactions WHERE message_id = $1 AND user_id = $2 AND emoji = $3
	`, msgID, userID, emoji)
	return err
}

// FetchReactionCounts aggregates per-user reaction rows into summaries.
// The reaction cache is rebuilt from this result on every mutation.
func (s *PostgresStore) FetchReactionCounts(ctx context.Context, msgID string) ([]models.ReactionSummary, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT emoji, COUNT(*)
		FROM reactions
		WHERE message_id = $1
		GROUP BY emoji
		ORDER BY COUNT(*) DESC, emoji ASC
	`, msgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []models.ReactionSummary
	for rows.Next() {
		var s models.ReactionSummary
		if err := rows.Scan(&s.Emoji, &s.Count); err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// FetchBlocksForUser returns the authoritative block list, lowercased.
func (s *PostgresStore) FetchBlocksForUser(ctx context.Context, userID uuid.UUID) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT username FROM blocks WHERE user_id = $1
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var usernames []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		usernames = append(usernames, strings.ToLower(name))
	}
	return usernames, rows.Err()
}

// PersistBlock records a block, idempotently.
func (s *PostgresStore) PersistBlock(ctx context.Context, userID uuid.UUID, username string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO blocks (user_id, username)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, userID, strings.ToLower(username))
	return err
}

// DeleteBlock removes a block.
func (s *PostgresStore) DeleteBlock(ctx context.Context, userID uuid.UUID, username string) error {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM blocks WHERE user_id = $1 AND username = $2
	`, userID, strings.ToLower(username))
	return err
}
