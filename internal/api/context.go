package api

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// viewerID returns the authenticated user's id, or nil for an anonymous
// request. The middleware stores the id under "user_id" when a valid token
// is presented.
func viewerID(c *gin.Context) *uuid.UUID {
	v, exists := c.Get("user_id")
	if !exists {
		return nil
	}
	id, ok := v.(uuid.UUID)
	if !ok {
		return nil
	}
	return &id
}
