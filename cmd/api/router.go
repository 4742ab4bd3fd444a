package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, handler *Handler) {
	api := r.Group("/api")
	{
		// Health check (no auth required)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		// FCM token routes
		fcm := api.Group("/fcm")
		{
			fcm.POST("/register", handler.RegisterToken)
			fcm.DELETE("/:token", handler.UnregisterToken)
		}

		// Notification routes
		notifications := api.Group("/notifications")
		{
			notifications.POST("/push", handler.QueuePush)
			notifications.GET("/stats", handler.QueueStats)
		}
	}
}
