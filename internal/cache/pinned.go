package cache

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/robertddewey/ChatPop-sub000/internal/models"
)

// AddPinnedMessage upserts a pinned message into both pin structures:
// the per-message record and its amount-paid score in the room's
// pin-order sorted set. Both writes go through one transaction so a
// partial failure can never leave one structure stale relative to the
// other.
func (c *Cache) AddPinnedMessage(ctx context.Context, msg *models.Message) bool {
	start := time.Now()
	room := msg.RoomID.String()

	cm := NewCachedMessage(msg)
	data, err := json.Marshal(cm)
	if err != nil {
		c.logger.Error().Err(err).Str("message", msg.ID).Msg("pinned message serialization failed")
		return false
	}

	pipe := c.client.TxPipeline()
	pipe.Set(ctx, pinnedKey(room, msg.ID), data, c.cfg.PinnedTTL)
	pipe.ZAdd(ctx, pinnedOrderKey(room), redis.Z{Score: msg.PinAmount, Member: msg.ID})
	pipe.Expire(ctx, pinnedOrderKey(room), c.cfg.PinnedTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Warn().Err(err).Str("room", room).Msg("pin cache write failed")
		return false
	}

	c.mon.LogCacheWrite(room, 1, time.Since(start))
	return true
}

// GetPinnedMessages returns a room's active pins, highest amount paid
// first. Records whose pin expiry has passed are never returned; they
// are purged from both structures inline, in one transaction, so expiry
// is eventually consistent without a background sweep.
func (c *Cache) GetPinnedMessages(ctx context.Context, roomID uuid.UUID) []models.CachedMessage {
	start := time.Now()
	room := roomID.String()
	orderKey := pinnedOrderKey(room)

	ids, err := c.client.ZRevRange(ctx, orderKey, 0, -1).Result()
	if err != nil {
		c.logger.Warn().Err(err).Str("room", room).Msg("pin cache read failed")
		c.mon.LogCacheRead(room, false, 0, time.Since(start))
		return nil
	}
	if len(ids) == 0 {
		c.mon.LogCacheRead(room, false, 0, time.Since(start))
		return nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = pinnedKey(room, id)
	}
	vals, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		c.logger.Warn().Err(err).Str("room", room).Msg("pin cache read failed")
		c.mon.LogCacheRead(room, false, 0, time.Since(start))
		return nil
	}

	now := timeScore(time.Now())
	pins := make([]models.CachedMessage, 0, len(ids))
	var expired []string
	for i, v := range vals {
		raw, ok := v.(string)
		if !ok {
			// Record key already gone (safety TTL); drop the orphaned
			// order entry.
			expired = append(expired, ids[i])
			continue
		}
		var cm models.CachedMessage
		if err := json.Unmarshal([]byte(raw), &cm); err != nil {
			expired = append(expired, ids[i])
			continue
		}
		if cm.PinExpiresAt > 0 && cm.PinExpiresAt <= now {
			expired = append(expired, ids[i])
			continue
		}
		pins = append(pins, cm)
	}

	if len(expired) > 0 {
		pipe := c.client.TxPipeline()
		members := make([]interface{}, len(expired))
		for i, id := range expired {
			pipe.Del(ctx, pinnedKey(room, id))
			members[i] = id
		}
		pipe.ZRem(ctx, orderKey, members...)
		if _, err := pipe.Exec(ctx); err != nil {
			c.logger.Warn().Err(err).Str("room", room).Msg("expired pin purge failed")
		}
	}

	c.mon.LogCacheRead(room, len(pins) > 0, len(pins), time.Since(start))
	return pins
}

// GetTopPinnedMessage returns the highest-paid active pin, or nil.
func (c *Cache) GetTopPinnedMessage(ctx context.Context, roomID uuid.UUID) *models.CachedMessage {
	pins := c.GetPinnedMessages(ctx, roomID)
	if len(pins) == 0 {
		return nil
	}
	return &pins[0]
}

// GetCurrentPinFloorCents returns the top pin's amount in minor
// currency units, the minimum bid needed to outrank it. Zero when the
// room has no active pin.
func (c *Cache) GetCurrentPinFloorCents(ctx context.Context, roomID uuid.UUID) int {
	top := c.GetTopPinnedMessage(ctx, roomID)
	if top == nil {
		return 0
	}
	return int(math.Round(top.PinAmount * 100))
}

// RemovePinnedMessage deletes a pin from both structures in one
// transaction and reports whether anything was actually removed.
func (c *Cache) RemovePinnedMessage(ctx context.Context, roomID uuid.UUID, msgID string) bool {
	room := roomID.String()

	pipe := c.client.TxPipeline()
	delCmd := pipe.Del(ctx, pinnedKey(room, msgID))
	remCmd := pipe.ZRem(ctx, pinnedOrderKey(room), msgID)
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Warn().Err(err).Str("room", room).Str("message", msgID).Msg("pin cache remove failed")
		return false
	}
	return delCmd.Val() > 0 || remCmd.Val() > 0
}
