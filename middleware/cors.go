package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

func Cors(frontendOrigin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch {
		case strings.HasPrefix(c.Request.URL.Path, "/webhook"):
			// Public webhook: allow any origin, no credentials
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		case strings.HasPrefix(c.Request.URL.Path, "/sse"):
			c.Writer.Header().Set("Access-Control-Allow-Origin", frontendOrigin)
		default:
			c.Writer.Header().Set("Access-Control-Allow-Origin", frontendOrigin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		}

		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS, PUT, DELETE")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
