package webhook_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-boxoffice/internal/domain"
	"github.com/feral-file/ff-boxoffice/internal/webhook"
)

func testEvent() webhook.WebhookEvent {
	return webhook.WebhookEvent{
		EventID:   "01JG8XAMPLE1234567890123456",
		EventType: "purchase_completed",
		Timestamp: time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
		Data:      map[string]any{"sold_unit_id": float64(1)},
	}
}

func TestDeliver(t *testing.T) {
	ctx := context.Background()

	t.Run("posts a signed request", func(t *testing.T) {
		var gotBody []byte
		var gotHeader http.Header
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotHeader = r.Header.Clone()
			gotBody, _ = io.ReadAll(r.Body)
			w.WriteHeader(http.StatusOK)
			fmt.Fprint(w, "ok")
		}))
		defer server.Close()

		endpoint := &domain.WebhookEndpoint{
			ID:     "endpoint-1",
			URL:    server.URL,
			Secret: "test-secret",
		}
		event := testEvent()

		sender := webhook.NewSender(5 * time.Second)
		result, err := sender.Deliver(ctx, endpoint, event)
		require.NoError(t, err)
		assert.True(t, result.Success)
		assert.Equal(t, http.StatusOK, result.StatusCode)
		assert.Equal(t, "ok", result.Body)

		assert.Equal(t, "application/json", gotHeader.Get("Content-Type"))
		assert.Equal(t, event.EventID, gotHeader.Get("X-Webhook-Event-ID"))
		assert.Equal(t, event.EventType, gotHeader.Get("X-Webhook-Event-Type"))
		assert.Equal(t, "BoxOffice-Webhook/1.0", gotHeader.Get("User-Agent"))
		assert.NotEmpty(t, gotHeader.Get("X-Webhook-Timestamp"))

		// The signature verifies against the delivered body.
		signaturePayload := fmt.Sprintf("%s.%s.%s",
			gotHeader.Get("X-Webhook-Timestamp"), event.EventID, string(gotBody))
		h := hmac.New(sha256.New, []byte(endpoint.Secret))
		h.Write([]byte(signaturePayload))
		expected := "sha256=" + hex.EncodeToString(h.Sum(nil))
		assert.Equal(t, expected, gotHeader.Get("X-Webhook-Signature"))
	})

	t.Run("non-2xx response is an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, "backend down")
		}))
		defer server.Close()

		sender := webhook.NewSender(5 * time.Second)
		result, err := sender.Deliver(ctx, &domain.WebhookEndpoint{URL: server.URL, Secret: "s"}, testEvent())
		require.Error(t, err)
		assert.False(t, result.Success)
		assert.Equal(t, http.StatusInternalServerError, result.StatusCode)
		assert.Equal(t, "backend down", result.Body)
	})

	t.Run("unreachable endpoint is an error", func(t *testing.T) {
		sender := webhook.NewSender(time.Second)
		result, err := sender.Deliver(ctx, &domain.WebhookEndpoint{URL: "http://127.0.0.1:1", Secret: "s"}, testEvent())
		require.Error(t, err)
		assert.False(t, result.Success)
		assert.NotEmpty(t, result.Error)
	})

	t.Run("response body is capped at 4KB", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			for range 100 {
				fmt.Fprint(w, string(make([]byte, 1024)))
			}
		}))
		defer server.Close()

		sender := webhook.NewSender(5 * time.Second)
		result, err := sender.Deliver(ctx, &domain.WebhookEndpoint{URL: server.URL, Secret: "s"}, testEvent())
		require.NoError(t, err)
		assert.Len(t, result.Body, 4*1024)
	})
}
