package approuters

import (
	"github.com/gin-gonic/gin"

	"github.com/OxyHQ/mention-api/internal/configuration"
	"github.com/OxyHQ/mention-api/internal/handler"
)

func ConversationRouters(router *gin.Engine, container *configuration.Container) {
	conversationRoute := router.Group("/api/conversations")
	conversationRoute.Use(handler.RequireAuth(container.Verifier))
	{
		conversationRoute.GET("", container.ConversationHandler.ListConversations)
		conversationRoute.GET("/:conversationId/messages", container.ConversationHandler.GetMessages)
	}
}
