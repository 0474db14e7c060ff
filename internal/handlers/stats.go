package handlers

import (
	"net/http"
	"strconv"

	"github.com/robertddewey/ChatPop-sub000/internal/monitor"
)

// MonitorEventsResponse represents the recent-events snapshot.
type MonitorEventsResponse struct {
	Events []monitor.Event `json:"events"`
}

// GetMonitorEvents returns sampled cache/database events, newest first,
// optionally filtered by room.
func (h *Handler) GetMonitorEvents(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 && l <= 1000 {
		limit = l
	}
	room := r.URL.Query().Get("room")

	events := h.mon.GetRecentEvents(limit, room)
	if events == nil {
		events = []monitor.Event{}
	}

	h.JSON(w, http.StatusOK, MonitorEventsResponse{Events: events})
}

// GetMonitorSummary returns the running operation counters.
func (h *Handler) GetMonitorSummary(w http.ResponseWriter, r *http.Request) {
	h.JSON(w, http.StatusOK, h.mon.GetMetricsSummary())
}

// GetMonitorMode returns the monitor's current adaptive sampling mode.
func (h *Handler) GetMonitorMode(w http.ResponseWriter, r *http.Request) {
	h.JSON(w, http.StatusOK, h.mon.GetCurrentMode())
}
