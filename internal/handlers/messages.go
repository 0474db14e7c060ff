package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/robertddewey/ChatPop-sub000/internal/cache"
	"github.com/robertddewey/ChatPop-sub000/internal/metrics"
	"github.com/robertddewey/ChatPop-sub000/internal/models"
)

// CreateRoomRequest represents the room creation request.
type CreateRoomRequest struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	HostID string `json:"host_id,omitempty"`
}

// RoomMessagesResponse represents the message list response.
type RoomMessagesResponse struct {
	RoomID   string                 `json:"room_id"`
	Messages []models.CachedMessage `json:"messages"`
}

// PostMessageRequest represents the post message request.
type PostMessageRequest struct {
	Username  string                  `json:"username"`
	UserID    string                  `json:"user_id,omitempty"`
	Content   string                  `json:"content"`
	ReplyToID string                  `json:"reply_to_id,omitempty"`
	Voice     *models.VoiceAttachment `json:"voice,omitempty"`
}

// PostMessageResponse represents the post message response.
type PostMessageResponse struct {
	ID        string  `json:"id"`
	Timestamp float64 `json:"ts"`
}

// CreateRoom handles room creation.
func (h *Handler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var req CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	req.Name = sanitizeName(req.Name)
	if req.Code == "" || req.Name == "" {
		h.Error(w, http.StatusBadRequest, "code and name are required")
		return
	}

	var hostID *uuid.UUID
	if req.HostID != "" {
		id, err := uuid.Parse(req.HostID)
		if err != nil {
			h.Error(w, http.StatusBadRequest, "invalid host ID format")
			return
		}
		hostID = &id
	}

	room, err := h.pg.CreateRoom(r.Context(), req.Code, req.Name, hostID)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to create room")
		return
	}

	h.JSON(w, http.StatusCreated, room)
}

// GetRoomMessages serves the message feed, cache-first. On a partial
// hit the shortfall is fetched from the durable store and written back
// into the cache, so a second identical request becomes a full hit.
func (h *Handler) GetRoomMessages(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	roomID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid room ID format")
		return
	}

	room, err := h.pg.GetRoom(ctx, roomID)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "database error")
		return
	}
	if room == nil {
		h.Error(w, http.StatusNotFound, "room not found")
		return
	}

	limit := 50
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 {
		limit = l
	}
	if limit > 200 {
		limit = 200
	}

	var before float64
	if b, err := strconv.ParseFloat(r.URL.Query().Get("before"), 64); err == nil && b > 0 {
		before = b
	}

	var cached []models.CachedMessage
	if before > 0 {
		cached = h.cache.GetMessagesBefore(ctx, roomID, before, limit)
	} else {
		cached = h.cache.GetMessages(ctx, roomID, limit)
	}

	merged := cached
	dbCount := 0
	if len(cached) < limit {
		merged, dbCount = h.backfill(r, roomID, cached, before, limit)
	}

	h.mon.LogHybridQuery(roomID.String(), len(cached), dbCount, time.Since(start))

	h.JSON(w, http.StatusOK, RoomMessagesResponse{
		RoomID:   roomID.String(),
		Messages: merged,
	})
}

// backfill fetches the shortfall of a partial hit (or full miss) from
// the durable store, mirrors each fetched message into the cache and
// returns the merged feed in ascending chronological order. Re-caching
// an already-cached message is harmless: identical score, and the merge
// dedups by message identifier.
func (h *Handler) backfill(r *http.Request, roomID uuid.UUID, cached []models.CachedMessage, before float64, limit int) ([]models.CachedMessage, int) {
	ctx := r.Context()

	bound := time.Now()
	if len(cached) > 0 {
		// Oldest cached entry is the exclusive bound for older rows.
		bound = time.UnixMicro(int64(cached[0].CreatedAt * 1e6))
	} else if before > 0 {
		bound = time.UnixMicro(int64(before * 1e6))
	}

	dbStart := time.Now()
	older, err := h.pg.FetchMessagesPage(ctx, roomID, bound, limit-len(cached))
	h.mon.LogDBRead(roomID.String(), len(older), time.Since(dbStart))
	metrics.PostgresLatency.Observe(time.Since(dbStart).Seconds())
	if err != nil {
		h.logger.Error().Err(err).Str("room", roomID.String()).Msg("durable message fetch failed")
		return cached, 0
	}

	seen := make(map[string]bool, len(cached))
	for _, cm := range cached {
		seen[cm.ID] = true
	}

	// FetchMessagesPage returns newest-first; walk backwards to build
	// ascending order ahead of the cached tail.
	merged := make([]models.CachedMessage, 0, len(older)+len(cached))
	for i := len(older) - 1; i >= 0; i-- {
		msg := &older[i]
		if seen[msg.ID] {
			continue
		}
		seen[msg.ID] = true
		if h.cache.RecordMessage(ctx, msg) {
			metrics.CacheBackfills.Inc()
		}
		merged = append(merged, cache.NewCachedMessage(msg))
	}
	return append(merged, cached...), len(older)
}

// PostMessage handles posting a message to a room: the durable write is
// authoritative and happens first, the cache mirror is best-effort.
func (h *Handler) PostMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	roomID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid room ID format")
		return
	}

	room, err := h.pg.GetRoom(ctx, roomID)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "database error")
		return
	}
	if room == nil {
		h.Error(w, http.StatusNotFound, "room not found")
		return
	}

	var req PostMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	req.Username = sanitizeName(req.Username)
	if req.Username == "" {
		h.Error(w, http.StatusBadRequest, "username is required")
		return
	}
	if req.Content == "" && req.Voice == nil {
		h.Error(w, http.StatusBadRequest, "content is required")
		return
	}
	if len(req.Content) > 4096 {
		h.Error(w, http.StatusUnprocessableEntity, "content too long (max 4096 bytes)")
		return
	}

	msg := &models.Message{
		RoomID:     roomID,
		AuthorName: req.Username,
		Content:    req.Content,
		Voice:      req.Voice,
		ReplyToID:  req.ReplyToID,
	}

	if req.UserID != "" {
		userID, err := uuid.Parse(req.UserID)
		if err != nil {
			h.Error(w, http.StatusBadRequest, "invalid user ID format")
			return
		}
		user, err := h.pg.GetUser(ctx, userID)
		if err != nil {
			h.Error(w, http.StatusInternalServerError, "database error")
			return
		}
		if user == nil {
			h.Error(w, http.StatusUnprocessableEntity, "unknown user")
			return
		}
		msg.AuthorID = &user.ID
		msg.Author = user
		msg.IsHost = room.HostID != nil && *room.HostID == user.ID
	}

	if req.ReplyToID != "" {
		parent, err := h.pg.GetMessage(ctx, roomID, req.ReplyToID)
		if err != nil {
			h.Error(w, http.StatusInternalServerError, "database error")
			return
		}
		if parent == nil {
			h.Error(w, http.StatusUnprocessableEntity, "reply target not found in this room")
			return
		}
		msg.ReplyTo = parent
	}

	dbStart := time.Now()
	if err := h.pg.PersistMessage(ctx, msg); err != nil {
		h.logger.Error().Err(err).Str("room", roomID.String()).Msg("message persist failed")
		h.Error(w, http.StatusInternalServerError, "failed to store message")
		return
	}
	h.mon.LogDBWrite(roomID.String(), 1, time.Since(dbStart))
	metrics.PostgresLatency.Observe(time.Since(dbStart).Seconds())
	metrics.MessagesPosted.Inc()

	// Mirror into the cache; a failure here is invisible to the sender.
	h.cache.RecordMessage(ctx, msg)

	if err := h.pg.IncrementMessageCount(ctx, roomID); err != nil {
		h.logger.Warn().Err(err).Str("room", roomID.String()).Msg("message count update failed")
	}

	h.JSON(w, http.StatusCreated, PostMessageResponse{
		ID:        msg.ID,
		Timestamp: float64(msg.CreatedAt.UnixMicro()) / 1e6,
	})
}

// DeleteMessage soft-deletes a message and evicts it from the cache so
// it disappears immediately instead of waiting out the TTL.
func (h *Handler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	roomID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid room ID format")
		return
	}
	msgID := chi.URLParam(r, "msgID")

	if err := h.pg.MarkMessageDeleted(ctx, roomID, msgID); err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to delete message")
		return
	}
	h.cache.RemoveMessage(ctx, roomID, msgID)

	w.WriteHeader(http.StatusNoContent)
}
