package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mindful-app/realtime-service/internal/model"
)

// ConnectionStats is read by the health endpoints.
type ConnectionStats interface {
	ConnectionCount() int
	ActiveRooms() []string
}

// HealthHandler handles health, ready and stats checks.
type HealthHandler struct {
	stats ConnectionStats
}

// NewHealthHandler creates a health handler.
func NewHealthHandler(stats ConnectionStats) *HealthHandler {
	return &HealthHandler{stats: stats}
}

// Health responds to GET /health.
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"service":     "realtime-service",
		"time":        time.Now().Unix(),
		"connections": h.stats.ConnectionCount(),
	})
}

// Ready responds to GET /ready.
func (h *HealthHandler) Ready(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// Stats responds to GET /stats with the connection count and active room names.
func (h *HealthHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, model.StatsResponse{
		Connections: h.stats.ConnectionCount(),
		Rooms:       h.stats.ActiveRooms(),
	})
}
