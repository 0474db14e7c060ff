package handlers

import (
	"encoding/json"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// BlockRequest represents a block mutation.
type BlockRequest struct {
	Username string `json:"username"`
}

// BlocksResponse represents a user's block list.
type BlocksResponse struct {
	UserID  string   `json:"user_id"`
	Blocked []string `json:"blocked"`
}

// GetBlocks returns a user's blocked usernames via the read-through
// cache.
func (h *Handler) GetBlocks(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid user ID format")
		return
	}

	set := h.cache.GetBlockedUsernames(r.Context(), userID)
	blocked := make([]string, 0, len(set))
	for name := range set {
		blocked = append(blocked, name)
	}
	sort.Strings(blocked)

	h.JSON(w, http.StatusOK, BlocksResponse{UserID: userID.String(), Blocked: blocked})
}

// AddBlock records a block durably, then mirrors it into the cache.
func (h *Handler) AddBlock(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid user ID format")
		return
	}

	var req BlockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req.Username = strings.ToLower(sanitizeName(req.Username))
	if req.Username == "" {
		h.Error(w, http.StatusBadRequest, "username is required")
		return
	}

	if err := h.pg.PersistBlock(ctx, userID, req.Username); err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to store block")
		return
	}
	h.cache.AddBlockedUsername(ctx, userID, req.Username)

	w.WriteHeader(http.StatusNoContent)
}

// RemoveBlock removes a block durably, then from the cache.
func (h *Handler) RemoveBlock(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid user ID format")
		return
	}
	username := strings.ToLower(chi.URLParam(r, "username"))
	if username == "" {
		h.Error(w, http.StatusBadRequest, "username is required")
		return
	}

	if err := h.pg.DeleteBlock(ctx, userID, username); err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to delete block")
		return
	}
	h.cache.RemoveBlockedUsername(ctx, userID, username)

	w.WriteHeader(http.StatusNoContent)
}

// SyncBlocks rebuilds a user's cached block set from the durable store.
// Manual invalidation hook for operators.
func (h *Handler) SyncBlocks(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid user ID format")
		return
	}

	if err := h.cache.SyncBlocksFromDatabase(r.Context(), userID); err != nil {
		h.Error(w, http.StatusInternalServerError, "block resync failed")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
