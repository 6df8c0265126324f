package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/solovoro/solovoro-api/internal/services"
)

// discoverCacheControl lets the CDN hold the catalog for an hour and keep
// serving it for another while it refetches.
const discoverCacheControl = "public, s-maxage=3600, stale-while-revalidate=3600"

type DiscoverHandler struct {
	service services.DiscoverServiceInterface
}

func NewDiscoverHandler(service services.DiscoverServiceInterface) *DiscoverHandler {
	return &DiscoverHandler{service: service}
}

func (h *DiscoverHandler) Discover(c *gin.Context) {
	resp, err := h.service.Discover(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusServiceUnavailable, "Provider catalog unavailable", err)
		return
	}

	c.Header("Cache-Control", discoverCacheControl)
	c.JSON(http.StatusOK, resp)
}
