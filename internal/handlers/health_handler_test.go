package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/solovoro/solovoro-api/pkg/logger"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)

	_ = logger.Initialize(logger.Config{
		Level:       "debug",
		Environment: "development",
	})
}

func TestHealthHandler_Healthcheck(t *testing.T) {
	tests := []struct {
		name         string
		catalogReady bool
		ping         func(context.Context) error
		wantStatus   int
		wantBody     string
	}{
		{
			name:         "healthy",
			catalogReady: true,
			ping:         func(context.Context) error { return nil },
			wantStatus:   http.StatusOK,
			wantBody:     `{"status":"ok"}`,
		},
		{
			name:         "no ping configured",
			catalogReady: true,
			wantStatus:   http.StatusOK,
			wantBody:     `{"status":"ok"}`,
		},
		{
			name:         "catalog not loaded",
			catalogReady: false,
			wantStatus:   http.StatusServiceUnavailable,
			wantBody:     `{"status":"unavailable","reason":"provider catalog not loaded"}`,
		},
		{
			name:         "content store down",
			catalogReady: true,
			ping:         func(context.Context) error { return errors.New("dial tcp: refused") },
			wantStatus:   http.StatusServiceUnavailable,
			wantBody:     `{"status":"unavailable","reason":"content store unreachable"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewHealthHandler(func() bool { return tt.catalogReady }, tt.ping)
			router := gin.New()
			router.GET("/healthcheck", handler.Healthcheck)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthcheck", http.NoBody))

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, "no-cache, no-store, max-age=0, must-revalidate", w.Header().Get("Cache-Control"))
			assert.JSONEq(t, tt.wantBody, w.Body.String())
		})
	}
}
