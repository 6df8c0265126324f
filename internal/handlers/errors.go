package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/solovoro/solovoro-api/pkg/errors"
)

// Plain-text bodies returned by the webhook endpoint. The CMS shows them
// verbatim in its delivery log.
const (
	textInvalidSignature = "Invalid signature"
	textInvalidID        = "Invalid _id"
	textUpdatedRoutes    = "Updated routes: "
	textInternalError    = "Internal error"
	textBodyTooLarge     = "Payload too large"
	textInvalidBody      = "Invalid body"
)

// attachError attaches err to the gin context so the observability middleware
// can include the reason in the request log. c.Error() returns *gin.Error (not
// the error interface), so we suppress errcheck here intentionally.
func attachError(c *gin.Context, err error) {
	if err != nil {
		_ = c.Error(err) //nolint:errcheck
	}
}

// respondError sends an error JSON response and attaches the error to the gin context
// so the observability middleware can include the reason in the request log.
func respondError(c *gin.Context, status int, message string, err error) {
	attachError(c, err)
	c.JSON(status, gin.H{"error": message})
}

// respondErrorWithDetails sends an error response with an additional details field.
func respondErrorWithDetails(c *gin.Context, status int, message string, details any, err error) { //nolint:unparam
	attachError(c, err)
	c.JSON(status, gin.H{"error": message, "details": details})
}

// respondText sends a plain-text response and attaches err, if any.
func respondText(c *gin.Context, status int, body string, err error) {
	attachError(c, err)
	c.String(status, body)
}

// webhookErrorResponse maps a webhook processing error to its status and body.
// Anything outside the known taxonomy surfaces its message as a 500.
func webhookErrorResponse(err error) (int, string) {
	switch {
	case apperrors.Is(err, apperrors.ErrSignatureMissing), apperrors.Is(err, apperrors.ErrSignatureInvalid):
		return http.StatusUnauthorized, textInvalidSignature
	case apperrors.Is(err, apperrors.ErrMalformedRequest):
		return http.StatusBadRequest, textInvalidID
	default:
		return http.StatusInternalServerError, err.Error()
	}
}

// jsonErrorStatus maps errors on the JSON endpoints.
func jsonErrorStatus(err error) int {
	switch {
	case apperrors.Is(err, apperrors.ErrMalformedRequest), apperrors.Is(err, apperrors.ErrInvalidInput):
		return http.StatusBadRequest
	case apperrors.Is(err, apperrors.ErrUpstreamQuery), apperrors.Is(err, apperrors.ErrRevalidation):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
