package approuters

import (
	"github.com/gin-gonic/gin"

	"github.com/OxyHQ/mention-api/internal/configuration"
	"github.com/OxyHQ/mention-api/internal/handler"
)

func InteractionRouters(router *gin.Engine, container *configuration.Container) {
	postRoute := router.Group("/api/posts")
	postRoute.Use(handler.RequireAuth(container.Verifier))
	{
		postRoute.POST("/:id/like", container.InteractionHandler.LikePost)
		postRoute.DELETE("/:id/like", container.InteractionHandler.UnlikePost)
		postRoute.POST("/:id/bookmark", container.InteractionHandler.BookmarkPost)
		postRoute.DELETE("/:id/bookmark", container.InteractionHandler.UnbookmarkPost)
		postRoute.GET("/:id/interactions", container.InteractionHandler.GetStatus)
	}
}
