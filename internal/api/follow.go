package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/forkfeed/backend/internal/service"
)

type FollowHandler struct {
	followService *service.FollowService
}

func NewFollowHandler(followService *service.FollowService) *FollowHandler {
	return &FollowHandler{followService: followService}
}

func (h *FollowHandler) Subscribe(c *gin.Context) {
	authorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	sub, err := h.followService.Follow(c.Request.Context(), *viewerID(c), authorID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newSubscriptionResponse(*sub))
}

func (h *FollowHandler) Unsubscribe(c *gin.Context) {
	authorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	if err := h.followService.Unfollow(c.Request.Context(), *viewerID(c), authorID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusNoContent, nil)
}

// Subscriptions lists followed authors with their recipe counts; the
// recipes_limit query parameter caps the per-author recipe list.
func (h *FollowHandler) Subscriptions(c *gin.Context) {
	recipesLimit := 0
	if raw := c.Query("recipes_limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid recipes_limit"})
			return
		}
		recipesLimit = n
	}

	subs, err := h.followService.Subscriptions(c.Request.Context(), *viewerID(c), recipesLimit)
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]SubscriptionResponse, len(subs))
	for i, sub := range subs {
		out[i] = newSubscriptionResponse(sub)
	}
	c.JSON(http.StatusOK, gin.H{"subscriptions": out})
}
