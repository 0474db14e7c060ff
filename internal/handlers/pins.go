package handlers

import (
	"encoding/json"
	"math"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/robertddewey/ChatPop-sub000/internal/metrics"
	"github.com/robertddewey/ChatPop-sub000/internal/models"
)

// PinMessageRequest represents a paid pin purchase.
type PinMessageRequest struct {
	Amount float64 `json:"amount"` // major currency units
	Hours  int     `json:"hours,omitempty"`
}

// PinnedMessagesResponse represents the pin list response.
type PinnedMessagesResponse struct {
	RoomID string                 `json:"room_id"`
	Pins   []models.CachedMessage `json:"pins"`
}

// PinFloorResponse carries the minimum bid to outrank the current pin.
type PinFloorResponse struct {
	FloorCents int `json:"floor_cents"`
}

// PinMessage records a paid pin: durable pin state first, then both pin
// cache structures and the in-place feed entry.
func (h *Handler) PinMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	roomID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid room ID format")
		return
	}
	msgID := chi.URLParam(r, "msgID")

	var req PinMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Amount <= 0 {
		h.Error(w, http.StatusBadRequest, "amount must be positive")
		return
	}

	// Compare in integer cents; truncating the float product would
	// reject bids exactly one cent above the floor.
	floor := h.cache.GetCurrentPinFloorCents(ctx, roomID)
	if int(math.Round(req.Amount*100)) <= floor && floor > 0 {
		h.Error(w, http.StatusConflict, "amount does not outrank the current pin")
		return
	}

	hours := req.Hours
	if hours <= 0 {
		hours = 1
	}
	expiresAt := time.Now().Add(time.Duration(hours) * time.Hour)

	if err := h.pg.SetMessagePin(ctx, roomID, msgID, req.Amount, expiresAt); err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to pin message")
		return
	}

	msg, err := h.pg.GetMessage(ctx, roomID, msgID)
	if err != nil || msg == nil {
		h.Error(w, http.StatusNotFound, "message not found")
		return
	}

	// The feed entry keeps its chronological position; only the pin
	// structures order by amount.
	h.cache.UpdateMessage(ctx, msg)
	h.cache.AddPinnedMessage(ctx, msg)
	metrics.MessagesPinned.Inc()

	h.JSON(w, http.StatusOK, msg)
}

// UnpinMessage clears pin state durably and in both cache structures.
func (h *Handler) UnpinMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	roomID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid room ID format")
		return
	}
	msgID := chi.URLParam(r, "msgID")

	if err := h.pg.ClearMessagePin(ctx, roomID, msgID); err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to unpin message")
		return
	}

	h.cache.RemovePinnedMessage(ctx, roomID, msgID)
	if msg, err := h.pg.GetMessage(ctx, roomID, msgID); err == nil && msg != nil {
		h.cache.UpdateMessage(ctx, msg)
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetPinnedMessages returns a room's active pins, highest bid first.
func (h *Handler) GetPinnedMessages(w http.ResponseWriter, r *http.Request) {
	roomID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid room ID format")
		return
	}

	pins := h.cache.GetPinnedMessages(r.Context(), roomID)
	if pins == nil {
		pins = []models.CachedMessage{}
	}

	h.JSON(w, http.StatusOK, PinnedMessagesResponse{
		RoomID: roomID.String(),
		Pins:   pins,
	})
}

// GetPinFloor returns the current pin price floor in minor currency
// units, consumed by the payment layer to price the next bid.
func (h *Handler) GetPinFloor(w http.ResponseWriter, r *http.Request) {
	roomID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid room ID format")
		return
	}

	h.JSON(w, http.StatusOK, PinFloorResponse{
		FloorCents: h.cache.GetCurrentPinFloorCents(r.Context(), roomID),
	})
}
