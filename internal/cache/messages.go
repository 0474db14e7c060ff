package cache

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/robertddewey/ChatPop-sub000/internal/metrics"
	"github.com/robertddewey/ChatPop-sub000/internal/models"
)

// replyExcerptLen bounds the inlined reply preview.
const replyExcerptLen = 80

// timeScore converts a creation timestamp to a sorted-set score in
// fractional unix seconds.
func timeScore(t time.Time) float64 {
	return float64(t.UnixMicro()) / 1e6
}

// NewCachedMessage projects a durable Message into its cached form,
// computing the reserved-username badge and inlining a one-hop reply
// preview.
func NewCachedMessage(msg *models.Message) models.CachedMessage {
	cm := models.CachedMessage{
		ID:        msg.ID,
		RoomID:    msg.RoomID.String(),
		Author:    msg.AuthorName,
		ReplyToID: msg.ReplyToID,
		Content:   msg.Content,
		Voice:     msg.Voice,
		Pinned:    msg.Pinned,
		PinAmount: msg.PinAmount,
		CreatedAt: timeScore(msg.CreatedAt),
	}
	if msg.PinExpiresAt != nil {
		cm.PinExpiresAt = timeScore(*msg.PinExpiresAt)
	}
	if msg.Author != nil {
		cm.AuthorID = msg.Author.ID.String()
		cm.UsernameIsReserved = strings.EqualFold(msg.AuthorName, msg.Author.ReservedName)
	} else if msg.AuthorID != nil {
		cm.AuthorID = msg.AuthorID.String()
	}
	if msg.ReplyTo != nil {
		excerpt := msg.ReplyTo.Content
		if runes := []rune(excerpt); len(runes) > replyExcerptLen {
			excerpt = string(runes[:replyExcerptLen])
		}
		cm.ReplyPreview = &models.ReplyPreview{
			Author:  msg.ReplyTo.AuthorName,
			Excerpt: excerpt,
			IsHost:  msg.ReplyTo.IsHost,
		}
	}
	return cm
}

// RecordMessage mirrors a fully-persisted message into the room's
// sorted set, trims the set to the configured cap (oldest first) and
// refreshes the key's TTL. The durable write has already succeeded by
// the time this runs; failures here are best-effort and reported only
// through the return value.
func (c *Cache) RecordMessage(ctx context.Context, msg *models.Message) bool {
	start := time.Now()
	roomID := msg.RoomID.String()

	cm := NewCachedMessage(msg)
	data, err := json.Marshal(cm)
	if err != nil {
		c.logger.Error().Err(err).Str("room", roomID).Str("message", msg.ID).Msg("message serialization failed")
		return false
	}

	key := messagesKey(roomID)
	if err := c.client.ZAdd(ctx, key, redis.Z{Score: cm.CreatedAt, Member: string(data)}).Err(); err != nil {
		c.logger.Warn().Err(err).Str("room", roomID).Msg("cache write failed, durable store remains authoritative")
		return false
	}

	// Trim oldest entries beyond the cap. Not atomic with the insert; a
	// transient overshoot under concurrent writers is acceptable.
	if card, err := c.client.ZCard(ctx, key).Result(); err == nil && card > int64(c.cfg.MaxMessagesPerRoom) {
		c.client.ZRemRangeByRank(ctx, key, 0, card-int64(c.cfg.MaxMessagesPerRoom)-1)
	}
	c.client.Expire(ctx, key, c.cfg.MessageTTL)

	elapsed := time.Since(start)
	metrics.RedisLatency.Observe(elapsed.Seconds())
	c.mon.LogCacheWrite(roomID, 1, elapsed)
	return true
}

// UpdateMessage re-serializes an already-cached message in place,
// preserving its score so edits never change feed ordering. Falls back
// to RecordMessage when the message is not cached.
func (c *Cache) UpdateMessage(ctx context.Context, msg *models.Message) bool {
	start := time.Now()
	roomID := msg.RoomID.String()
	key := messagesKey(roomID)

	members, err := c.client.ZRangeWithScores(ctx, key, 0, -1).Result()
	if err != nil {
		c.logger.Warn().Err(err).Str("room", roomID).Msg("cache update failed")
		return false
	}

	for _, z := range members {
		raw, ok := z.Member.(string)
		if !ok {
			continue
		}
		var cm models.CachedMessage
		if err := json.Unmarshal([]byte(raw), &cm); err != nil {
			continue
		}
		if cm.ID != msg.ID {
			continue
		}

		fresh := NewCachedMessage(msg)
		fresh.CreatedAt = z.Score
		data, err := json.Marshal(fresh)
		if err != nil {
			c.logger.Error().Err(err).Str("message", msg.ID).Msg("message serialization failed")
			return false
		}

		pipe := c.client.TxPipeline()
		pipe.ZRem(ctx, key, raw)
		pipe.ZAdd(ctx, key, redis.Z{Score: z.Score, Member: string(data)})
		pipe.Expire(ctx, key, c.cfg.MessageTTL)
		if _, err := pipe.Exec(ctx); err != nil {
			c.logger.Warn().Err(err).Str("room", roomID).Msg("cache update failed")
			return false
		}

		c.mon.LogCacheWrite(roomID, 1, time.Since(start))
		return true
	}

	// Not cached: treat as a fresh insert.
	return c.RecordMessage(ctx, msg)
}

// GetMessages returns the most recent limit entries for a room in
// ascending chronological order, ready for feed rendering. On any
// fast-store error it returns nil and the caller falls back to the
// durable store.
func (c *Cache) GetMessages(ctx context.Context, roomID uuid.UUID, limit int) []models.CachedMessage {
	if limit <= 0 {
		return nil
	}
	start := time.Now()
	room := roomID.String()

	results, err := c.client.ZRevRange(ctx, messagesKey(room), 0, int64(limit)-1).Result()
	if err != nil {
		c.logger.Warn().Err(err).Str("room", room).Msg("cache read failed")
		metrics.CacheMisses.WithLabelValues("messages").Inc()
		c.mon.LogCacheRead(room, false, 0, time.Since(start))
		return nil
	}

	msgs := decodeReversed(results)

	elapsed := time.Since(start)
	metrics.RedisLatency.Observe(elapsed.Seconds())
	if len(msgs) > 0 {
		metrics.CacheHits.WithLabelValues("messages").Inc()
	} else {
		metrics.CacheMisses.WithLabelValues("messages").Inc()
	}
	c.mon.LogCacheRead(room, len(msgs) > 0, len(msgs), elapsed)
	return msgs
}

// GetMessagesBefore returns up to limit entries with creation time
// strictly less than beforeTS (fractional unix seconds), in ascending
// chronological order. The most-recent entries before the bound win,
// not the oldest ever cached.
func (c *Cache) GetMessagesBefore(ctx context.Context, roomID uuid.UUID, beforeTS float64, limit int) []models.CachedMessage {
	if limit <= 0 {
		return nil
	}
	start := time.Now()
	room := roomID.String()

	results, err := c.client.ZRevRangeByScore(ctx, messagesKey(room), &redis.ZRangeBy{
		Min:   "-inf",
		Max:   "(" + strconv.FormatFloat(beforeTS, 'f', -1, 64),
		Count: int64(limit),
	}).Result()
	if err != nil {
		c.logger.Warn().Err(err).Str("room", room).Msg("cache read failed")
		c.mon.LogCacheRead(room, false, 0, time.Since(start))
		return nil
	}

	msgs := decodeReversed(results)
	c.mon.LogCacheRead(room, len(msgs) > 0, len(msgs), time.Since(start))
	return msgs
}

// decodeReversed deserializes sorted-set members fetched in descending
// score order into ascending chronological order. Corrupt entries are
// skipped, never fatal to the whole read.
func decodeReversed(results []string) []models.CachedMessage {
	msgs := make([]models.CachedMessage, 0, len(results))
	for i := len(results) - 1; i >= 0; i-- {
		var cm models.CachedMessage
		if err := json.Unmarshal([]byte(results[i]), &cm); err != nil {
			continue
		}
		msgs = append(msgs, cm)
	}
	return msgs
}

// RemoveMessage drops a message from the room's sorted set and cascades
// removal through the pinned cache and the reaction hash, so soft
// deletes disappear immediately instead of waiting out the TTL.
func (c *Cache) RemoveMessage(ctx context.Context, roomID uuid.UUID, msgID string) bool {
	start := time.Now()
	room := roomID.String()
	key := messagesKey(room)

	members, err := c.client.ZRange(ctx, key, 0, -1).Result()
	if err != nil {
		c.logger.Warn().Err(err).Str("room", room).Msg("cache remove failed")
		return false
	}

	removed := false
	for _, raw := range members {
		var cm models.CachedMessage
		if err := json.Unmarshal([]byte(raw), &cm); err != nil {
			continue
		}
		if cm.ID != msgID {
			continue
		}
		if err := c.client.ZRem(ctx, key, raw).Err(); err != nil {
			c.logger.Warn().Err(err).Str("room", room).Msg("cache remove failed")
			return false
		}
		removed = true
		break
	}

	c.RemovePinnedMessage(ctx, roomID, msgID)
	if err := c.client.Del(ctx, reactionsKey(room, msgID)).Err(); err != nil {
		c.logger.Warn().Err(err).Str("room", room).Str("message", msgID).Msg("reaction hash delete failed")
	}

	c.mon.LogCacheWrite(room, 1, time.Since(start))
	return removed
}
