package middleware

import (
	"net/http"
	"strings"

	"researchpal-backend/pkg/errutil"

	"github.com/gin-gonic/gin"
)

// The session layer in front of this service authenticates the caller and
// forwards the resolved identity. Handlers never see raw credentials.
const (
	HeaderUserID   = "X-User-ID"
	contextUserKey = "auth.user_id"
)

// RequireUser rejects requests that arrive without a resolved user identity.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := strings.TrimSpace(c.GetHeader(HeaderUserID))
		if uid == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errutil.BaseError{
				Code:    errutil.StatusUnauthorized,
				Message: "authentication required",
			}.JSON())
			return
		}

		c.Set(contextUserKey, uid)
		c.Next()
	}
}

// UserID returns the authenticated user id set by RequireUser.
func UserID(c *gin.Context) string {
	return c.GetString(contextUserKey)
}
