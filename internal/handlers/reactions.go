package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/robertddewey/ChatPop-sub000/internal/models"
)

// ReactionRequest represents one user's reaction mutation.
type ReactionRequest struct {
	UserID string `json:"user_id"`
	Emoji  string `json:"emoji"`
}

// ReactionsResponse represents one message's reaction summaries.
type ReactionsResponse struct {
	MessageID string                   `json:"message_id"`
	Reactions []models.ReactionSummary `json:"reactions"`
}

// AddReaction records a reaction row durably, then rebuilds the cached
// counts wholesale from the durable rows. The hash is never incremented
// in place, so cache and database can not drift.
func (h *Handler) AddReaction(w http.ResponseWriter, r *http.Request) {
	h.mutateReaction(w, r, h.pg.AddReaction)
}

// RemoveReaction removes a reaction row and rebuilds the cached counts.
func (h *Handler) RemoveReaction(w http.ResponseWriter, r *http.Request) {
	h.mutateReaction(w, r, h.pg.RemoveReaction)
}

func (h *Handler) mutateReaction(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, msgID string, userID uuid.UUID, emoji string) error) {
	ctx := r.Context()

	roomID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid room ID format")
		return
	}
	msgID := chi.URLParam(r, "msgID")

	var req ReactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid user ID format")
		return
	}
	if req.Emoji == "" {
		h.Error(w, http.StatusBadRequest, "emoji is required")
		return
	}

	if err := op(ctx, msgID, userID, req.Emoji); err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to update reaction")
		return
	}

	summaries, err := h.pg.FetchReactionCounts(ctx, msgID)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to rebuild reaction counts")
		return
	}
	h.cache.SetMessageReactions(ctx, roomID, msgID, summaries)

	h.JSON(w, http.StatusOK, ReactionsResponse{MessageID: msgID, Reactions: summaries})
}

// GetReactions returns one message's summaries, cache-first with a
// durable rebuild on miss.
func (h *Handler) GetReactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	roomID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid room ID format")
		return
	}
	msgID := chi.URLParam(r, "msgID")

	summaries := h.cache.GetMessageReactions(ctx, roomID, msgID)
	if len(summaries) == 0 {
		// Absence is the miss signal; rebuild from the durable rows.
		rebuilt, err := h.pg.FetchReactionCounts(ctx, msgID)
		if err != nil {
			h.Error(w, http.StatusInternalServerError, "failed to fetch reactions")
			return
		}
		if len(rebuilt) > 0 {
			h.cache.SetMessageReactions(ctx, roomID, msgID, rebuilt)
			summaries = rebuilt
		}
	}

	h.JSON(w, http.StatusOK, ReactionsResponse{MessageID: msgID, Reactions: summaries})
}

// BatchGetReactions serves reaction summaries for many messages in one
// pipelined fast-store round trip.
func (h *Handler) BatchGetReactions(w http.ResponseWriter, r *http.Request) {
	roomID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid room ID format")
		return
	}

	idsParam := r.URL.Query().Get("ids")
	if idsParam == "" {
		h.Error(w, http.StatusBadRequest, "ids query parameter is required")
		return
	}
	ids := strings.Split(idsParam, ",")
	if len(ids) > 200 {
		h.Error(w, http.StatusBadRequest, "too many message ids (max 200)")
		return
	}

	h.JSON(w, http.StatusOK, h.cache.BatchGetReactions(r.Context(), roomID, ids))
}
