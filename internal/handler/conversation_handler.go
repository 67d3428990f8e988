package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/OxyHQ/mention-api/internal/service"
)

type ConversationHandler interface {
	ListConversations(c *gin.Context)
	GetMessages(c *gin.Context)
}

type conversationHandler struct {
	chat *service.ChatService
}

func NewConversationHandler(chat *service.ChatService) ConversationHandler {
	return &conversationHandler{chat: chat}
}

func (h *conversationHandler) ListConversations(c *gin.Context) {
	convs, err := h.chat.ListConversations(c.Request.Context(), identityOf(c).UserID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": convs})
}

func (h *conversationHandler) GetMessages(c *gin.Context) {
	page, err := strconv.ParseInt(c.DefaultQuery("page", "1"), 10, 64)
	if err != nil || page < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid page number"})
		return
	}

	result, err := h.chat.ListMessages(c.Request.Context(), identityOf(c).UserID, c.Param("conversationId"), page)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"messages":   result.Data,
		"page":       result.Page,
		"totalPages": result.TotalPages,
	})
}
