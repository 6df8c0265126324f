package revalidate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	apperrors "github.com/solovoro/solovoro-api/pkg/errors"
	"github.com/solovoro/solovoro-api/pkg/jwt"
	"github.com/solovoro/solovoro-api/pkg/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "frontend-secret"

func newTestRevalidator(t *testing.T, handler http.HandlerFunc) *HTTPRevalidator {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	r, err := NewHTTPRevalidator(Config{
		BaseURL: srv.URL,
		Path:    "/api/revalidate-path",
		Secret:  testSecret,
	}, nil)
	require.NoError(t, err)
	r.retryConfig = retry.Config{
		MaxRetries:      2,
		InitialDelay:    time.Millisecond,
		MaxDelay:        time.Millisecond,
		Multiplier:      1,
		RetryableErrors: retry.IsRetryable,
	}
	return r
}

func TestRevalidate_OneAuthorizedCallPerPath(t *testing.T) {
	tokens := jwt.NewTokenManager(testSecret, "solovoro-api", time.Minute)

	var mu sync.Mutex
	var got []string
	r := newTestRevalidator(t, func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "/api/revalidate-path", req.URL.Path)

		claims, err := tokens.ValidateToken(strings.TrimPrefix(req.Header.Get("Authorization"), "Bearer "))
		require.NoError(t, err)

		var body revalidateRequest
		require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
		assert.Equal(t, claims.Path, body.Path)
		assert.Equal(t, "delivery-1", claims.DeliveryID)

		mu.Lock()
		got = append(got, body.Path)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})

	paths := []string{"/", "/posts/a", "/posts/b"}
	require.NoError(t, r.Revalidate(context.Background(), "delivery-1", paths))

	sort.Strings(got)
	assert.Equal(t, paths, got)
}

func TestRevalidate_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	r := newTestRevalidator(t, func(w http.ResponseWriter, req *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, r.Revalidate(context.Background(), "d", []string{"/"}))
	assert.Equal(t, int32(2), calls.Load())
}

func TestRevalidate_ClientErrorsAreNotRetried(t *testing.T) {
	var calls atomic.Int32
	r := newTestRevalidator(t, func(w http.ResponseWriter, req *http.Request) {
		calls.Add(1)
		if req.Header.Get("Authorization") != "" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte("bad token"))
		}
	})

	err := r.Revalidate(context.Background(), "d", []string{"/posts/a"})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrRevalidation))
	assert.Contains(t, err.Error(), "/posts/a")
	assert.Contains(t, err.Error(), "401")
	assert.Equal(t, int32(1), calls.Load())
}

func TestRevalidate_AllCallsFinishBeforeError(t *testing.T) {
	var calls atomic.Int32
	r := newTestRevalidator(t, func(w http.ResponseWriter, req *http.Request) {
		calls.Add(1)
		var body revalidateRequest
		_ = json.NewDecoder(req.Body).Decode(&body)
		if body.Path == "/" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	err := r.Revalidate(context.Background(), "d", []string{"/", "/posts/a", "/posts/b"})
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestRevalidate_EmptyPaths(t *testing.T) {
	r := newTestRevalidator(t, func(w http.ResponseWriter, req *http.Request) {
		t.Fatal("no call expected")
	})
	assert.NoError(t, r.Revalidate(context.Background(), "d", nil))
}

func TestNewHTTPRevalidator_Validation(t *testing.T) {
	_, err := NewHTTPRevalidator(Config{Secret: "s"}, nil)
	assert.Error(t, err)
	_, err = NewHTTPRevalidator(Config{BaseURL: "http://frontend"}, nil)
	assert.Error(t, err)
}

func TestNoop(t *testing.T) {
	var r Revalidator = Noop{}
	assert.NoError(t, r.Revalidate(context.Background(), "d", []string{"/"}))
}
