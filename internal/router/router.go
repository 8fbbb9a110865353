package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mindful-app/realtime-service/internal/handler"
	"github.com/mindful-app/realtime-service/pkg/constants"
)

// New builds the HTTP router.
func New(
	sessionHandler *handler.SessionHandler,
	socket *handler.SocketHandler,
	health *handler.HealthHandler,
	leaderboard *handler.LeaderboardHandler,
	requireAuth gin.HandlerFunc,
) http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET(constants.PathHealth, health.Health)
	r.GET(constants.PathReady, health.Ready)
	r.GET(constants.PathStats, health.Stats)

	// WebSocket: /ws?token=...
	r.GET(constants.PathSocket, socket.ServeWS)

	api := r.Group("/api")
	{
		api.GET("/leaderboard", leaderboard.GetLeaderboard)

		sessions := api.Group("/sessions", requireAuth)
		{
			sessions.POST("", sessionHandler.CreateSession)
			sessions.GET("/:id", sessionHandler.GetSession)
			sessions.DELETE("/:id", sessionHandler.FinishSession)
		}
	}

	return r
}
