package webhook

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/feral-file/ff-boxoffice/internal/domain"
	"github.com/feral-file/ff-boxoffice/internal/logger"
)

// Sender performs the HTTP delivery of signed webhook events. Retry policy
// belongs to the caller; a single Deliver call makes exactly one attempt.
type Sender struct {
	client *http.Client
}

// NewSender creates a webhook sender with the given per-request timeout.
func NewSender(timeout time.Duration) *Sender {
	return &Sender{client: &http.Client{Timeout: timeout}}
}

// Deliver posts the signed event to one endpoint. A non-2xx response is an
// error so the caller can retry.
func (s *Sender) Deliver(ctx context.Context, endpoint *domain.WebhookEndpoint, event WebhookEvent) (DeliveryResult, error) {
	payload, signature, timestamp, err := GenerateSignedPayload(endpoint.Secret, event)
	if err != nil {
		return DeliveryResult{Success: false, Error: err.Error()}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.URL, bytes.NewReader(payload))
	if err != nil {
		return DeliveryResult{Success: false, Error: err.Error()}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Signature", signature)
	req.Header.Set("X-Webhook-Event-ID", event.EventID)
	req.Header.Set("X-Webhook-Event-Type", event.EventType)
	req.Header.Set("X-Webhook-Timestamp", fmt.Sprintf("%d", timestamp))
	req.Header.Set("User-Agent", "BoxOffice-Webhook/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return DeliveryResult{Success: false, Error: err.Error()}, fmt.Errorf("failed to post webhook: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.WarnCtx(ctx, "failed to close response body", zap.Error(err), zap.String("url", endpoint.URL))
		}
	}()

	// Read response body with a size limit to prevent memory exhaustion
	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
	if err != nil {
		respBody = []byte{}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := fmt.Errorf("HTTP %d", resp.StatusCode)
		return DeliveryResult{Success: false, StatusCode: resp.StatusCode, Body: string(respBody)}, err
	}

	return DeliveryResult{Success: true, StatusCode: resp.StatusCode, Body: string(respBody)}, nil
}
