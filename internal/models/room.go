package models

import (
	"time"

	"github.com/google/uuid"
)

// Room represents a chat room. The durable UUID, not the human-readable
// short code, keys all cache structures: short codes can be reused by
// distinct rooms over time.
type Room struct {
	ID           uuid.UUID  `json:"id"`
	Code         string     `json:"code"` // short shareable code
	Name         string     `json:"name"`
	HostID       *uuid.UUID `json:"host_id,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	LastActiveAt time.Time  `json:"last_active_at"`
	MessageCount int64      `json:"message_count"`
}
