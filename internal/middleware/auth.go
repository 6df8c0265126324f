package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/solovoro/solovoro-api/pkg/jwt"
	"github.com/solovoro/solovoro-api/pkg/logger"
	"go.uber.org/zap"
)

// RevalidateTokenHeader authenticates manual revalidation requests.
const RevalidateTokenHeader = "x-revalidate-token"

// RevalidateTokenMiddleware guards the manual revalidation endpoint. With no
// token configured the endpoint is disabled and answers 404.
func RevalidateTokenMiddleware(validToken string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if validToken == "" {
			c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
			c.Abort()
			return
		}

		token := c.GetHeader(RevalidateTokenHeader)

		if token == "" || !jwt.TimingSafeCompare(token, validToken) {
			logger.Warn("Invalid revalidate token",
				zap.String("path", c.Request.URL.Path),
				zap.String("client_ip", c.ClientIP()),
				zap.Bool("token_present", token != ""),
			)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or missing revalidate token"})
			c.Abort()
			return
		}

		c.Next()
	}
}
