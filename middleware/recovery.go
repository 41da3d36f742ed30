package middleware

import (
	"net/http"

	"github.com/LovationAdmin/trackit-api/models"
	"github.com/LovationAdmin/trackit-api/utils"
	"github.com/gin-gonic/gin"
)

// Recovery turns panics into the standard 500 envelope.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		utils.SafeError("panic recovered on %s %s: %v", c.Request.Method, c.Request.URL.Path, recovered)
		c.AbortWithStatusJSON(http.StatusInternalServerError, models.Envelope{
			Success: false,
			Message: "Internal server error",
		})
	})
}

// NotFound answers unknown routes with the standard envelope.
func NotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, models.Envelope{Success: false, Message: "Route not found"})
}
