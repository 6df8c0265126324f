package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const healthPingTimeout = 2 * time.Second

type HealthHandler struct {
	catalogReady func() bool
	contentPing  func(ctx context.Context) error
}

// NewHealthHandler creates a health handler. contentPing may be nil for
// stores that have nothing to ping.
func NewHealthHandler(catalogReady func() bool, contentPing func(ctx context.Context) error) *HealthHandler {
	return &HealthHandler{
		catalogReady: catalogReady,
		contentPing:  contentPing,
	}
}

func (h *HealthHandler) Healthcheck(c *gin.Context) {
	c.Header("Cache-Control", "no-cache, no-store, max-age=0, must-revalidate")

	if !h.catalogReady() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unavailable",
			"reason": "provider catalog not loaded",
		})
		return
	}

	if h.contentPing != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthPingTimeout)
		defer cancel()
		if err := h.contentPing(ctx); err != nil {
			attachError(c, err)
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unavailable",
				"reason": "content store unreachable",
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}
