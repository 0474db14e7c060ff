package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a registered account.
type User struct {
	ID           uuid.UUID `json:"id"`
	ReservedName string    `json:"reserved_name"` // permanently reserved display name
	Email        string    `json:"email,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
