// Package cache implements the hybrid message, reaction, pin and block
// cache layer between Redis and the durable store. Redis is never
// authoritative: every public method catches fast-store errors at its
// boundary and returns the documented degraded value instead of
// propagating, leaving correctness to the durable-store fallback at the
// call site.
package cache

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/robertddewey/ChatPop-sub000/internal/monitor"
)

// BlockSource is the durable system of record for user block lists,
// consulted on cache miss and during resync.
type BlockSource interface {
	FetchBlocksForUser(ctx context.Context, userID uuid.UUID) ([]string, error)
}

// Config holds cache tuning knobs.
type Config struct {
	MaxMessagesPerRoom int           // sorted-set cap per room
	MessageTTL         time.Duration // sliding retention window, refreshed on every write
	BlockTTL           time.Duration // 0 = never expire
	PinnedTTL          time.Duration // safety TTL on pin structures
}

const (
	defaultMaxMessagesPerRoom = 500
	defaultMessageTTL         = 24 * time.Hour
	defaultPinnedTTL          = 7 * 24 * time.Hour
)

// Cache is the engine over all fast-store structures. All methods are
// safe for concurrent use; rooms are independent partitions and
// serialize naturally at the Redis key level.
type Cache struct {
	client *redis.Client
	db     BlockSource
	mon    *monitor.Monitor
	cfg    Config
	logger zerolog.Logger
}

// New creates a Cache over the given Redis client. db backs the block
// cache's read-through path; mon receives operation telemetry.
func New(client *redis.Client, db BlockSource, mon *monitor.Monitor, cfg Config, logger zerolog.Logger) *Cache {
	if cfg.MaxMessagesPerRoom <= 0 {
		cfg.MaxMessagesPerRoom = defaultMaxMessagesPerRoom
	}
	if cfg.MessageTTL <= 0 {
		cfg.MessageTTL = defaultMessageTTL
	}
	if cfg.PinnedTTL <= 0 {
		cfg.PinnedTTL = defaultPinnedTTL
	}
	return &Cache{
		client: client,
		db:     db,
		mon:    mon,
		cfg:    cfg,
		logger: logger,
	}
}

// Client exposes the underlying Redis client for collaborators that
// share the connection, such as the rate limiter.
func (c *Cache) Client() *redis.Client {
	return c.client
}

// Ping checks the Redis connection.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (c *Cache) Close() error {
	return c.client.Close()
}
