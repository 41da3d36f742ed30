package middleware

import (
	"net/http"
	"strings"

	"github.com/LovationAdmin/trackit-api/models"
	"github.com/LovationAdmin/trackit-api/utils"
	"github.com/gin-gonic/gin"
)

const userIDKey = "user_id"

func unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, models.Envelope{Success: false, Message: msg})
}

// AuthMiddleware requires a valid "Authorization: Bearer <jwt>" header and
// stores the caller's id in the context.
func AuthMiddleware(tokens *utils.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			unauthorized(c, "Authorization header required")
			return
		}

		scheme, token, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			unauthorized(c, "Invalid authorization format")
			return
		}

		claims, err := tokens.Parse(strings.TrimSpace(token))
		if err != nil {
			unauthorized(c, "Invalid or expired token")
			return
		}

		c.Set(userIDKey, claims.UserID)
		c.Set("email", claims.Email)
		c.Next()
	}
}

// GetUserID returns the id stored by AuthMiddleware, or "".
func GetUserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}
