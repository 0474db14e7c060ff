package cache

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/robertddewey/ChatPop-sub000/internal/metrics"
)

// GetBlockedUsernames returns a user's blocked usernames as a set of
// lowercase names. The Redis set is a read-through mirror: on a miss it
// is rebuilt from the durable store, and on any Redis error the durable
// store is queried directly, so callers always get the authoritative
// answer or an empty set.
//
// An empty cached set is indistinguishable from "never populated", so
// every call for a genuinely block-free user costs one durable-store
// round trip. Accepted trade-off.
func (c *Cache) GetBlockedUsernames(ctx context.Context, userID uuid.UUID) map[string]bool {
	start := time.Now()
	key := blockedKey(userID.String())

	members, err := c.client.SMembers(ctx, key).Result()
	if err != nil {
		c.logger.Warn().Err(err).Str("user", userID.String()).Msg("block cache read failed, using database directly")
		return c.blocksFromDatabase(ctx, userID)
	}
	if len(members) > 0 {
		metrics.CacheHits.WithLabelValues("blocks").Inc()
		c.mon.LogCacheRead(userID.String(), true, len(members), time.Since(start))
		return toBlockSet(members)
	}

	// Miss: rebuild from the durable store and populate the cache for
	// the next call.
	metrics.CacheMisses.WithLabelValues("blocks").Inc()
	blocked := c.blocksFromDatabase(ctx, userID)
	if len(blocked) > 0 {
		members := make([]interface{}, 0, len(blocked))
		for name := range blocked {
			members = append(members, name)
		}
		pipe := c.client.Pipeline()
		pipe.SAdd(ctx, key, members...)
		if c.cfg.BlockTTL > 0 {
			pipe.Expire(ctx, key, c.cfg.BlockTTL)
		}
		if _, err := pipe.Exec(ctx); err != nil {
			c.logger.Warn().Err(err).Str("user", userID.String()).Msg("block cache populate failed")
		}
	}
	return blocked
}

// AddBlockedUsername mirrors a new block into the cache. Called after
// the durable write has succeeded; a Redis failure is swallowed because
// the next cache-miss read self-heals from the durable store.
func (c *Cache) AddBlockedUsername(ctx context.Context, userID uuid.UUID, username string) {
	key := blockedKey(userID.String())
	pipe := c.client.Pipeline()
	pipe.SAdd(ctx, key, strings.ToLower(username))
	if c.cfg.BlockTTL > 0 {
		pipe.Expire(ctx, key, c.cfg.BlockTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Warn().Err(err).Str("user", userID.String()).Msg("block cache add failed")
	}
}

// RemoveBlockedUsername mirrors a block removal into the cache. Same
// failure policy as AddBlockedUsername.
func (c *Cache) RemoveBlockedUsername(ctx context.Context, userID uuid.UUID, username string) {
	if err := c.client.SRem(ctx, blockedKey(userID.String()), strings.ToLower(username)).Err(); err != nil {
		c.logger.Warn().Err(err).Str("user", userID.String()).Msg("block cache remove failed")
	}
}

// SyncBlocksFromDatabase unconditionally rebuilds one user's cached
// block set from the durable store, clearing any existing set first.
// Used for manual invalidation and post-incident recovery.
func (c *Cache) SyncBlocksFromDatabase(ctx context.Context, userID uuid.UUID) error {
	blocked, err := c.db.FetchBlocksForUser(ctx, userID)
	if err != nil {
		return err
	}

	key := blockedKey(userID.String())
	pipe := c.client.TxPipeline()
	pipe.Del(ctx, key)
	if len(blocked) > 0 {
		members := make([]interface{}, len(blocked))
		for i, name := range blocked {
			members[i] = strings.ToLower(name)
		}
		pipe.SAdd(ctx, key, members...)
		if c.cfg.BlockTTL > 0 {
			pipe.Expire(ctx, key, c.cfg.BlockTTL)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Warn().Err(err).Str("user", userID.String()).Msg("block cache resync failed")
		return err
	}
	return nil
}

// blocksFromDatabase fetches the authoritative block list, degrading to
// an empty set if the durable store is also unreachable.
func (c *Cache) blocksFromDatabase(ctx context.Context, userID uuid.UUID) map[string]bool {
	start := time.Now()
	rows, err := c.db.FetchBlocksForUser(ctx, userID)
	c.mon.LogDBRead(userID.String(), len(rows), time.Since(start))
	if err != nil {
		c.logger.Error().Err(err).Str("user", userID.String()).Msg("block list database read failed")
		return map[string]bool{}
	}
	return toBlockSet(rows)
}

func toBlockSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, name := range names {
		set[strings.ToLower(name)] = true
	}
	return set
}
