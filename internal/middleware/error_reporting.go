package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	honeybadger "github.com/honeybadger-io/honeybadger-go"
	"github.com/solovoro/solovoro-api/pkg/logger"
	"go.uber.org/zap"
)

// ErrorReportingMiddleware sends panics and 5xx responses to Honeybadger.
// With no API key it is a pass-through. Panics are re-raised so gin.Recovery
// still writes the response.
func ErrorReportingMiddleware(apiKey, env string) gin.HandlerFunc {
	if apiKey == "" {
		logger.Info("Honeybadger is not active, set HONEYBADGER_API_KEY to enable error reporting")
		return func(c *gin.Context) {
			c.Next()
		}
	}

	honeybadger.Configure(honeybadger.Configuration{
		APIKey: apiKey,
		Env:    env,
	})
	logger.Info("Honeybadger error reporting is enabled")

	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				_, _ = honeybadger.Notify(fmt.Sprintf("Panic: %s %s", c.Request.Method, c.FullPath()),
					c.Request,
					honeybadger.Context{"stack": string(debug.Stack()), "request_id": GetRequestID(c)},
					honeybadger.Tags{"panic", "http"})
				panic(rec)
			}
		}()

		c.Next()

		status := c.Writer.Status()
		if status < 500 {
			return
		}

		reason := fmt.Sprintf("HTTP %d: %s %s", status, c.Request.Method, c.FullPath())
		if len(c.Errors) > 0 {
			reason += ": " + c.Errors.Last().Error()
		}
		if _, err := honeybadger.Notify(reason,
			c.Request,
			honeybadger.Context{"request_id": GetRequestID(c)},
			honeybadger.Tags{"5XX", "http"}); err != nil {
			logger.Warn("Failed to notify Honeybadger", zap.Error(err))
		}
	}
}
