package approuters

import (
	"github.com/gin-gonic/gin"

	"github.com/OxyHQ/mention-api/internal/configuration"
	"github.com/OxyHQ/mention-api/internal/handler"
)

func PresenceRouters(router *gin.Engine, container *configuration.Container) {
	presenceRoute := router.Group("/api/users")
	presenceRoute.Use(handler.RequireAuth(container.Verifier))
	{
		presenceRoute.GET("/:userId/presence", container.PresenceHandler.GetPresence)
	}
}
