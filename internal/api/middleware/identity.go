package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// UserIDHeader carries the caller identity resolved by the upstream
	// authenticator. This service trusts it as-is.
	UserIDHeader = "X-User-ID"

	// UserIDKey is the key used to store the caller's user ID in the context
	UserIDKey = "user_id"
)

// Identity middleware requires a valid user ID on every request and rejects
// anything without one before it reaches a handler.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(UserIDHeader)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":    "UNAUTHORIZED",
					"message": "missing " + UserIDHeader + " header",
				},
			})
			return
		}

		userID, err := uuid.Parse(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":    "UNAUTHORIZED",
					"message": "invalid " + UserIDHeader + " header",
				},
			})
			return
		}

		c.Set(UserIDKey, userID)
		c.Next()
	}
}

// GetUserID retrieves the caller's user ID from the gin context.
func GetUserID(c *gin.Context) (uuid.UUID, bool) {
	if v, exists := c.Get(UserIDKey); exists {
		if id, ok := v.(uuid.UUID); ok {
			return id, true
		}
	}
	return uuid.Nil, false
}
