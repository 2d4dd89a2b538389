package httpapi

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dmoliveira/docbox/internal/server/auth"
)

// userIDKey is the gin context key the auth middleware stores the
// authenticated user id under.
const userIDKey = "userID"

// authRequired resolves the requester identity from a bearer JWT. Absence
// or invalidity of the token is an authorization failure: the request is
// rejected before any core logic runs.
func authRequired(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
			return
		}

		userID, err := auth.GetUserIDFromToken(token, secret)
		if err != nil || userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
			return
		}

		c.Set(userIDKey, userID)
		c.Next()
	}
}

func currentUserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}
