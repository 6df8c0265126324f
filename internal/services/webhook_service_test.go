package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/solovoro/solovoro-api/internal/models"
	"github.com/solovoro/solovoro-api/internal/repository"
	"github.com/solovoro/solovoro-api/internal/services"
	apperrors "github.com/solovoro/solovoro-api/pkg/errors"
	"github.com/solovoro/solovoro-api/pkg/signature"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testSecret = "whsec-test"

func signed(body string) ([]byte, string) {
	raw := []byte(body)
	return raw, signature.Sign(raw, testSecret, time.UnixMilli(1700000000000))
}

func TestWebhookService_HandleContentWebhook(t *testing.T) {
	resolver := new(MockResolver)
	revalidator := new(MockRevalidator)
	service := services.NewWebhookService(resolver, revalidator, services.WebhookConfig{Secret: testSecret})

	routes := models.NewStaleRouteSet(models.HomeRoute(), models.PostRoute("a"))
	expected := models.ChangeNotification{DocumentType: models.DocumentTypePost, DocumentID: "post-a", Slug: "a"}

	resolver.On("Resolve", mock.Anything, expected).Return(routes, nil).Once()
	revalidator.On("Revalidate", mock.Anything, "dlv-1", []string{"/", "/posts/a"}).Return(nil).Once()

	body, header := signed(`{"_type":"post","_id":"post-a","slug":{"current":"a"}}`)
	result, err := service.HandleContentWebhook(context.Background(), "dlv-1", body, header)

	require.NoError(t, err)
	assert.Equal(t, "dlv-1", result.DeliveryID)
	assert.Equal(t, []string{"/", "/posts/a"}, result.Routes)
	resolver.AssertExpectations(t)
	revalidator.AssertExpectations(t)
}

func TestWebhookService_InvalidSignatureSkipsResolver(t *testing.T) {
	resolver := new(MockResolver)
	revalidator := new(MockRevalidator)
	service := services.NewWebhookService(resolver, revalidator, services.WebhookConfig{Secret: testSecret})

	body, _ := signed(`{"_type":"post","_id":"post-a"}`)
	tampered := signature.Sign(body, "another-secret", time.UnixMilli(1700000000000))

	_, err := service.HandleContentWebhook(context.Background(), "dlv-1", body, tampered)

	assert.ErrorIs(t, err, apperrors.ErrSignatureInvalid)
	resolver.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything)
	revalidator.AssertNotCalled(t, "Revalidate", mock.Anything, mock.Anything, mock.Anything)
}

func TestWebhookService_MissingSignature(t *testing.T) {
	tests := []struct {
		name   string
		secret string
		header string
	}{
		{name: "no header", secret: testSecret, header: ""},
		{name: "no secret configured", secret: "", header: "t=1,v1=abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver := new(MockResolver)
			service := services.NewWebhookService(resolver, nil, services.WebhookConfig{Secret: tt.secret})

			_, err := service.HandleContentWebhook(context.Background(), "dlv-1", []byte(`{"_id":"x"}`), tt.header)

			assert.ErrorIs(t, err, apperrors.ErrSignatureMissing)
			resolver.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything)
		})
	}
}

func TestWebhookService_MalformedBody(t *testing.T) {
	for name, body := range map[string]string{
		"empty":        ``,
		"invalid json": `{"_type":`,
		"missing id":   `{"_type":"post"}`,
	} {
		t.Run(name, func(t *testing.T) {
			resolver := new(MockResolver)
			service := services.NewWebhookService(resolver, nil, services.WebhookConfig{Secret: testSecret})

			raw, header := signed(body)
			_, err := service.HandleContentWebhook(context.Background(), "dlv-1", raw, header)

			assert.ErrorIs(t, err, apperrors.ErrMalformedRequest)
			resolver.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything)
		})
	}
}

func TestWebhookService_UnknownTypeIssuesNoRevalidation(t *testing.T) {
	revalidator := new(MockRevalidator)
	resolver := services.NewStaleRouteResolver(repository.NewMemoryContentRepository())
	service := services.NewWebhookService(resolver, revalidator, services.WebhookConfig{Secret: testSecret})

	body, header := signed(`{"_type":"widget","_id":"w-1"}`)
	_, err := service.HandleContentWebhook(context.Background(), "dlv-1", body, header)

	require.Error(t, err)
	assert.EqualError(t, err, "Unknown type: widget")
	revalidator.AssertNotCalled(t, "Revalidate", mock.Anything, mock.Anything, mock.Anything)
}

func TestWebhookService_RevalidationFailure(t *testing.T) {
	resolver := new(MockResolver)
	revalidator := new(MockRevalidator)
	service := services.NewWebhookService(resolver, revalidator, services.WebhookConfig{Secret: testSecret})

	failure := errors.New("frontend returned 500 for /")
	resolver.On("Resolve", mock.Anything, mock.Anything).Return(models.NewStaleRouteSet(models.HomeRoute()), nil).Once()
	revalidator.On("Revalidate", mock.Anything, "dlv-1", []string{"/"}).Return(failure).Once()

	body, header := signed(`{"_type":"settings","_id":"settings"}`)
	result, err := service.HandleContentWebhook(context.Background(), "dlv-1", body, header)

	assert.Nil(t, result)
	assert.Equal(t, failure, err)
}

func TestWebhookService_EmptyRouteSet(t *testing.T) {
	resolver := new(MockResolver)
	revalidator := new(MockRevalidator)
	service := services.NewWebhookService(resolver, revalidator, services.WebhookConfig{Secret: testSecret})

	resolver.On("Resolve", mock.Anything, mock.Anything).Return(models.StaleRouteSet{}, nil).Once()
	revalidator.On("Revalidate", mock.Anything, "dlv-1", []string{}).Return(nil).Once()

	body, header := signed(`{"_type":"author","_id":"author-x"}`)
	result, err := service.HandleContentWebhook(context.Background(), "dlv-1", body, header)

	require.NoError(t, err)
	assert.Empty(t, result.Routes)
}

func TestWebhookService_ConsistencyDelayHonorsContext(t *testing.T) {
	resolver := new(MockResolver)
	service := services.NewWebhookService(resolver, nil, services.WebhookConfig{
		Secret:           testSecret,
		ConsistencyDelay: time.Minute,
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	body, header := signed(`{"_type":"settings","_id":"settings"}`)
	_, err := service.HandleContentWebhook(ctx, "dlv-1", body, header)

	assert.ErrorIs(t, err, context.Canceled)
	resolver.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything)
}

func TestWebhookService_ConsistencyDelayWaits(t *testing.T) {
	resolver := new(MockResolver)
	resolver.On("Resolve", mock.Anything, mock.Anything).Return(models.NewStaleRouteSet(models.HomeRoute()), nil).Once()
	service := services.NewWebhookService(resolver, nil, services.WebhookConfig{
		Secret:           testSecret,
		ConsistencyDelay: 30 * time.Millisecond,
	})

	body, header := signed(`{"_type":"settings","_id":"settings"}`)
	start := time.Now()
	_, err := service.HandleContentWebhook(context.Background(), "dlv-1", body, header)

	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestWebhookService_RevalidateManual(t *testing.T) {
	resolver := new(MockResolver)
	revalidator := new(MockRevalidator)
	service := services.NewWebhookService(resolver, revalidator, services.WebhookConfig{})

	expected := models.ChangeNotification{DocumentType: models.DocumentTypeSettings, DocumentID: "settings"}
	resolver.On("Resolve", mock.Anything, expected).Return(models.NewStaleRouteSet(models.HomeRoute()), nil).Once()
	revalidator.On("Revalidate", mock.Anything, "manual-1", []string{"/"}).Return(nil).Once()

	result, err := service.RevalidateManual(context.Background(), "manual-1", &models.ManualRevalidationRequest{Type: "settings"})

	require.NoError(t, err)
	assert.Equal(t, []string{"/"}, result.Routes)
	resolver.AssertExpectations(t)
	revalidator.AssertExpectations(t)
}

func TestWebhookService_RejectionSkipsConsistencyDelay(t *testing.T) {
	service := services.NewWebhookService(new(MockResolver), nil, services.WebhookConfig{
		Secret:           "",
		ConsistencyDelay: time.Minute,
	})

	body, header := signed(`{"_type":"settings","_id":"settings"}`)
	start := time.Now()
	_, err := service.HandleContentWebhook(context.Background(), "dlv-1", body, header)

	assert.ErrorIs(t, err, apperrors.ErrSignatureMissing)
	assert.Less(t, time.Since(start), time.Second)
}
