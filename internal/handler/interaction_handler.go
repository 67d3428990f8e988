package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/OxyHQ/mention-api/internal/errs"
	"github.com/OxyHQ/mention-api/internal/service"
)

type InteractionHandler interface {
	LikePost(c *gin.Context)
	UnlikePost(c *gin.Context)
	BookmarkPost(c *gin.Context)
	UnbookmarkPost(c *gin.Context)
	GetStatus(c *gin.Context)
}

type interactionHandler struct {
	counters *service.CounterService
}

func NewInteractionHandler(counters *service.CounterService) InteractionHandler {
	return &interactionHandler{counters: counters}
}

func (h *interactionHandler) LikePost(c *gin.Context) {
	payload, err := h.counters.Like(c.Request.Context(), identityOf(c).UserID, c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, payload)
}

// UnlikePost removes the caller's like. When there was nothing to remove
// the response is 404 but still carries the recomputed counters, so clients
// can correct an optimistic decrement.
func (h *interactionHandler) UnlikePost(c *gin.Context) {
	payload, err := h.counters.Unlike(c.Request.Context(), identityOf(c).UserID, c.Param("id"))
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) && payload != nil {
			c.JSON(http.StatusNotFound, payload)
			return
		}
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, payload)
}

func (h *interactionHandler) BookmarkPost(c *gin.Context) {
	payload, err := h.counters.Bookmark(c.Request.Context(), identityOf(c).UserID, c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, payload)
}

func (h *interactionHandler) UnbookmarkPost(c *gin.Context) {
	payload, err := h.counters.Unbookmark(c.Request.Context(), identityOf(c).UserID, c.Param("id"))
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) && payload != nil {
			c.JSON(http.StatusNotFound, payload)
			return
		}
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, payload)
}

func (h *interactionHandler) GetStatus(c *gin.Context) {
	payload, err := h.counters.Status(c.Request.Context(), identityOf(c).UserID, c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, payload)
}
