package middleware

import (
	"time"

	"github.com/LovationAdmin/trackit-api/utils"
	"github.com/gin-gonic/gin"
)

// RequestLogger logs every request through the masking logger once the
// handler chain has finished.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		utils.LogAPIRequest(c.Request.Method, path, GetUserID(c), c.Writer.Status(),
			time.Since(start).Round(time.Microsecond).String())
	}
}
