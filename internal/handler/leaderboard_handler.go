package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mindful-app/realtime-service/internal/model"
	"github.com/mindful-app/realtime-service/internal/service"
	"go.uber.org/zap"
)

// LeaderboardHandler serves the leaderboard over REST.
type LeaderboardHandler struct {
	board  service.Leaderboard
	logger *zap.Logger
}

// NewLeaderboardHandler creates a leaderboard handler.
func NewLeaderboardHandler(board service.Leaderboard, logger *zap.Logger) *LeaderboardHandler {
	return &LeaderboardHandler{board: board, logger: logger}
}

// GetLeaderboard godoc
// GET /api/leaderboard
func (h *LeaderboardHandler) GetLeaderboard(c *gin.Context) {
	entries, err := h.board.Snapshot(c.Request.Context())
	if err != nil {
		h.logger.Warn("leaderboard snapshot failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load leaderboard"})
		return
	}
	c.JSON(http.StatusOK, model.LeaderboardResponse{Entries: entries})
}
