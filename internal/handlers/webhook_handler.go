package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/solovoro/solovoro-api/internal/middleware"
	"github.com/solovoro/solovoro-api/internal/models"
	"github.com/solovoro/solovoro-api/internal/services"
	"github.com/solovoro/solovoro-api/pkg/logger"
	"github.com/solovoro/solovoro-api/pkg/signature"
	"go.uber.org/zap"
)

type WebhookHandler struct {
	service services.WebhookServiceInterface
}

func NewWebhookHandler(service services.WebhookServiceInterface) *WebhookHandler {
	return &WebhookHandler{service: service}
}

// HandleContentWebhook processes a signed content change notification.
// Every response is plain text.
func (h *WebhookHandler) HandleContentWebhook(c *gin.Context) {
	deliveryID := middleware.GetRequestID(c)

	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("Panic while handling content webhook",
				zap.String("delivery_id", deliveryID),
				zap.Any("panic", rec))
			respondText(c, http.StatusInternalServerError, panicMessage(rec), fmt.Errorf("panic: %v", rec))
		}
	}()

	// The signature covers the exact bytes on the wire, so the body is read
	// raw and never re-encoded.
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondText(c, http.StatusRequestEntityTooLarge, textBodyTooLarge, err)
			return
		}
		respondText(c, http.StatusBadRequest, textInvalidBody, err)
		return
	}

	header := signature.FirstValue(c.Request.Header.Values(signature.HeaderName))

	result, err := h.service.HandleContentWebhook(c.Request.Context(), deliveryID, body, header)
	if err != nil {
		status, text := webhookErrorResponse(err)
		respondText(c, status, text, err)
		return
	}

	respondText(c, http.StatusOK, textUpdatedRoutes+strings.Join(result.Routes, ", "), nil)
}

// RevalidateManual resolves and revalidates on behalf of an operator.
// Authentication is done by middleware.RevalidateTokenMiddleware.
func (h *WebhookHandler) RevalidateManual(c *gin.Context) {
	var req models.ManualRevalidationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if details := ParseValidationErrors(err); len(details) > 0 {
			respondErrorWithDetails(c, http.StatusBadRequest, "Validation failed", details, err)
			return
		}
		respondError(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	result, err := h.service.RevalidateManual(c.Request.Context(), middleware.GetRequestID(c), &req)
	if err != nil {
		respondError(c, jsonErrorStatus(err), err.Error(), err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// panicMessage returns the recovered value's message, if it carries one.
func panicMessage(rec any) string {
	switch v := rec.(type) {
	case error:
		if msg := v.Error(); msg != "" {
			return msg
		}
	case string:
		if v != "" {
			return v
		}
	}
	return textInternalError
}
