package models

import (
	"time"

	"github.com/google/uuid"
)

// VoiceAttachment describes an optional voice recording on a message.
type VoiceAttachment struct {
	URL      string  `json:"url"`
	Duration float64 `json:"duration"` // seconds
	Waveform []int   `json:"waveform,omitempty"`
}

// Message is the durable, authoritative record of a chat message.
// Created once by the write path; mutated only for pin changes and
// soft deletes. Never hard-deleted while referenced by replies.
type Message struct {
	ID           string           `json:"id"` // ULID, ordered by creation time
	RoomID       uuid.UUID        `json:"room_id"`
	AuthorName   string           `json:"author_name"`
	AuthorID     *uuid.UUID       `json:"author_id,omitempty"` // nil for anonymous senders
	ReplyToID    string           `json:"reply_to_id,omitempty"`
	Content      string           `json:"content"`
	Voice        *VoiceAttachment `json:"voice,omitempty"`
	Pinned       bool             `json:"pinned"`
	PinExpiresAt *time.Time       `json:"pin_expires_at,omitempty"`
	PinAmount    float64          `json:"pin_amount"`
	Deleted      bool             `json:"deleted"`
	CreatedAt    time.Time        `json:"created_at"`

	// Populated by the durable store via joins, not columns of the
	// messages table itself.
	Author  *User    `json:"author,omitempty"`
	ReplyTo *Message `json:"reply_to,omitempty"`
	IsHost  bool     `json:"is_host"` // author is the room's host
}

// PinExpired reports whether the message's pin window has passed.
func (m *Message) PinExpired(now time.Time) bool {
	return m.PinExpiresAt != nil && !m.PinExpiresAt.After(now)
}
