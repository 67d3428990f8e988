package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/OxyHQ/mention-api/internal/model"
	"github.com/OxyHQ/mention-api/internal/service"
)

type NotificationHandler interface {
	ListNotifications(c *gin.Context)
	CreateNotification(c *gin.Context)
	MarkRead(c *gin.Context)
	MarkAllRead(c *gin.Context)
	DeleteNotification(c *gin.Context)
}

type createNotificationRequest struct {
	RecipientID string `json:"recipientId" binding:"required"`
	Type        string `json:"type" binding:"required"`
	EntityID    string `json:"entityId"`
	EntityType  string `json:"entityType"`
}

type notificationHandler struct {
	notifier *service.NotificationService
}

func NewNotificationHandler(notifier *service.NotificationService) NotificationHandler {
	return &notificationHandler{notifier: notifier}
}

func (h *notificationHandler) ListNotifications(c *gin.Context) {
	page, err := strconv.ParseInt(c.DefaultQuery("page", "1"), 10, 64)
	if err != nil || page < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid page number"})
		return
	}
	pageSize, err := strconv.ParseInt(c.DefaultQuery("limit", "20"), 10, 64)
	if err != nil || pageSize < 1 || pageSize > 100 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}

	result, err := h.notifier.ListPaged(c.Request.Context(), identityOf(c).UserID, page, pageSize)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// CreateNotification is the ingest path for services that detect events
// outside this process (mentions, follows, welcome). The authenticated
// caller is the actor; self-notifications still collapse to a no-op for
// every type but welcome.
func (h *notificationHandler) CreateNotification(c *gin.Context) {
	var req createNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid notification payload"})
		return
	}
	switch req.Type {
	case model.NotificationReply, model.NotificationMention, model.NotificationLike,
		model.NotificationFollow, model.NotificationWelcome:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown notification type"})
		return
	}

	n, err := h.notifier.Notify(c.Request.Context(), req.RecipientID, identityOf(c).UserID, req.Type, req.EntityID, req.EntityType)
	if err != nil {
		respondErr(c, err)
		return
	}
	if n == nil {
		c.JSON(http.StatusOK, gin.H{"skipped": true})
		return
	}
	c.JSON(http.StatusCreated, n)
}

func (h *notificationHandler) MarkRead(c *gin.Context) {
	n, err := h.notifier.MarkRead(c.Request.Context(), c.Param("id"), identityOf(c).UserID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, n)
}

func (h *notificationHandler) MarkAllRead(c *gin.Context) {
	count, err := h.notifier.MarkAllRead(c.Request.Context(), identityOf(c).UserID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": count})
}

func (h *notificationHandler) DeleteNotification(c *gin.Context) {
	if err := h.notifier.Delete(c.Request.Context(), c.Param("id"), identityOf(c).UserID); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}
