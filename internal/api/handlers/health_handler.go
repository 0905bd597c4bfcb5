package handlers

import (
	"net/http"
	"time"

	"github.com/isdelr/taskflow-be/internal/models"
)

// StatsSource provides the latest system sample.
type StatsSource interface {
	Latest() models.SystemStats
}

// OnlineCounter reports connected real-time clients.
type OnlineCounter interface {
	OnlineCount() int
}

// HealthHandler reports liveness and a few runtime figures.
type HealthHandler struct {
	stats   StatsSource
	online  OnlineCounter
	started time.Time
}

// NewHealthHandler creates a new HealthHandler. stats may be nil.
func NewHealthHandler(stats StatsSource, online OnlineCounter) *HealthHandler {
	return &HealthHandler{stats: stats, online: online, started: time.Now()}
}

// Get handles GET /api/health.
func (h *HealthHandler) Get(w http.ResponseWriter, r *http.Request) {
	body := map[string]interface{}{
		"status":      "ok",
		"uptime":      time.Since(h.started).Round(time.Second).String(),
		"onlineUsers": h.online.OnlineCount(),
	}
	if h.stats != nil {
		body["system"] = h.stats.Latest()
	}
	writeJSON(w, http.StatusOK, body)
}
