package approuters

import (
	"github.com/gin-gonic/gin"

	"github.com/OxyHQ/mention-api/internal/configuration"
	"github.com/OxyHQ/mention-api/internal/handler"
)

func NotificationRouters(router *gin.Engine, container *configuration.Container) {
	notificationRoute := router.Group("/api/notifications")
	notificationRoute.Use(handler.RequireAuth(container.Verifier))
	{
		notificationRoute.GET("", container.NotificationHandler.ListNotifications)
		notificationRoute.POST("", container.NotificationHandler.CreateNotification)
		notificationRoute.PUT("/read-all", container.NotificationHandler.MarkAllRead)
		notificationRoute.PUT("/:id/read", container.NotificationHandler.MarkRead)
		notificationRoute.DELETE("/:id", container.NotificationHandler.DeleteNotification)
	}
}
