package cache

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/robertddewey/ChatPop-sub000/internal/metrics"
	"github.com/robertddewey/ChatPop-sub000/internal/models"
)

// SetMessageReactions replaces a message's entire emoji-count hash.
// Counts are never incremented in place; the durable store's per-user
// reaction rows are the source and the hash is rebuilt wholesale on
// every mutation to avoid drift. An empty summary list deletes the hash
// outright, since absence is the miss signal.
func (c *Cache) SetMessageReactions(ctx context.Context, roomID uuid.UUID, msgID string, summaries []models.ReactionSummary) bool {
	start := time.Now()
	room := roomID.String()
	key := reactionsKey(room, msgID)

	if len(summaries) == 0 {
		if err := c.client.Del(ctx, key).Err(); err != nil {
			c.logger.Warn().Err(err).Str("room", room).Str("message", msgID).Msg("reaction cache delete failed")
			return false
		}
		c.mon.LogCacheWrite(room, 0, time.Since(start))
		return true
	}

	fields := make(map[string]interface{}, len(summaries))
	for _, s := range summaries {
		fields[s.Emoji] = s.Count
	}

	pipe := c.client.TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, c.cfg.MessageTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Warn().Err(err).Str("room", room).Str("message", msgID).Msg("reaction cache write failed")
		return false
	}

	c.mon.LogCacheWrite(room, len(summaries), time.Since(start))
	return true
}

// GetMessageReactions reads one message's cached reaction summaries,
// highest count first. An empty result is indistinguishable from "not
// cached" and tells the caller to rebuild from the durable store's
// per-reaction rows.
func (c *Cache) GetMessageReactions(ctx context.Context, roomID uuid.UUID, msgID string) []models.ReactionSummary {
	start := time.Now()
	room := roomID.String()

	fields, err := c.client.HGetAll(ctx, reactionsKey(room, msgID)).Result()
	if err != nil {
		c.logger.Warn().Err(err).Str("room", room).Str("message", msgID).Msg("reaction cache read failed")
		metrics.CacheMisses.WithLabelValues("reactions").Inc()
		c.mon.LogCacheRead(room, false, 0, time.Since(start))
		return []models.ReactionSummary{}
	}

	summaries := parseReactionHash(fields)
	if len(summaries) > 0 {
		metrics.CacheHits.WithLabelValues("reactions").Inc()
	} else {
		metrics.CacheMisses.WithLabelValues("reactions").Inc()
	}
	c.mon.LogCacheRead(room, len(summaries) > 0, len(summaries), time.Since(start))
	return summaries
}

// BatchGetReactions fetches reaction hashes for many messages in a
// single pipelined round trip. The result maps every requested message
// identifier to its summaries, an empty list for any message with no
// cached hash.
func (c *Cache) BatchGetReactions(ctx context.Context, roomID uuid.UUID, msgIDs []string) map[string][]models.ReactionSummary {
	start := time.Now()
	room := roomID.String()

	out := make(map[string][]models.ReactionSummary, len(msgIDs))
	for _, id := range msgIDs {
		out[id] = []models.ReactionSummary{}
	}
	if len(msgIDs) == 0 {
		return out
	}

	pipe := c.client.Pipeline()
	cmds := make(map[string]*redis.MapStringStringCmd, len(msgIDs))
	for _, id := range msgIDs {
		cmds[id] = pipe.HGetAll(ctx, reactionsKey(room, id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Warn().Err(err).Str("room", room).Int("messages", len(msgIDs)).Msg("batch reaction read failed")
		c.mon.LogCacheRead(room, false, 0, time.Since(start))
		return out
	}

	hits := 0
	for id, cmd := range cmds {
		summaries := parseReactionHash(cmd.Val())
		out[id] = summaries
		if len(summaries) > 0 {
			hits++
		}
	}

	c.mon.LogCacheRead(room, hits > 0, hits, time.Since(start))
	return out
}

// parseReactionHash converts a raw emoji→count hash into summaries
// ordered by count descending, emoji ascending on ties.
func parseReactionHash(fields map[string]string) []models.ReactionSummary {
	summaries := make([]models.ReactionSummary, 0, len(fields))
	for emoji, raw := range fields {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		summaries = append(summaries, models.ReactionSummary{Emoji: emoji, Count: n})
	}
	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].Count != summaries[j].Count {
			return summaries[i].Count > summaries[j].Count
		}
		return summaries[i].Emoji < summaries[j].Emoji
	})
	return summaries
}
