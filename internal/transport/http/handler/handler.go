package handler

import (
	"github.com/gin-gonic/gin"

	"documind/internal/transport/http/middleware"
)

func getUserIDFromContext(c *gin.Context) (string, bool) {
	v, exists := c.Get(middleware.ContextUserIDKey)
	if !exists {
		return "", false
	}
	uid, ok := v.(string)
	if !ok || uid == "" {
		return "", false
	}
	return uid, true
}
