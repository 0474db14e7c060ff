package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/robertddewey/ChatPop-sub000/internal/models"
)

// DataStore defines the interface for the durable system of record.
// The cache layer is always secondary to it: every cache entry can be
// reconstructed from these operations.
type DataStore interface {
	// Connection management
	Close()
	Ping(ctx context.Context) error

	// User operations
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)

	// Room operations
	CreateRoom(ctx context.Context, code, name string, hostID *uuid.UUID) (*models.Room, error)
	GetRoom(ctx context.Context, id uuid.UUID) (*models.Room, error)
	IncrementMessageCount(ctx context.Context, id uuid.UUID) error

	// Message operations
	PersistMessage(ctx context.Context, msg *models.Message) error
	GetMessage(ctx context.Context, roomID uuid.UUID, msgID string) (*models.Message, error)
	FetchMessagesPage(ctx context.Context, roomID uuid.UUID, before time.Time, limit int) ([]models.Message, error)
	MarkMessageDeleted(ctx context.Context, roomID uuid.UUID, msgID string) error
	SetMessagePin(ctx context.Context, roomID uuid.UUID, msgID string, amount float64, expiresAt time.Time) error
	ClearMessagePin(ctx context.Context, roomID uuid.UUID, msgID string) error

	// Reaction operations (per-user rows; counts are derived)
	AddReaction(ctx context.Context, msgID string, userID uuid.UUID, emoji string) error
	RemoveReaction(ctx context.Context, msgID string, userID uuid.UUID, emoji string) error
	FetchReactionCounts(ctx context.Context, msgID string) ([]models.ReactionSummary, error)

	// Block operations
	FetchBlocksForUser(ctx context.Context, userID uuid.UUID) ([]string, error)
	PersistBlock(ctx context.Context, userID uuid.UUID, username string) error
	DeleteBlock(ctx context.Context, userID uuid.UUID, username string) error
}
