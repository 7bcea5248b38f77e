package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	defaultWebhookTimeout = 10 * time.Second
	transientRetryDelay   = 500 * time.Millisecond
)

// WebhookNotifier posts batch summaries to a fixed HTTP endpoint. A transient
// failure is retried once; permanent failures are surfaced as-is so the
// caller can log and move on.
type WebhookNotifier struct {
	client   *resty.Client
	endpoint string
}

func NewWebhookNotifier(endpoint string) (*WebhookNotifier, error) {
	client := resty.New()
	client.SetTimeout(defaultWebhookTimeout)
	client.SetRetryCount(0)

	return NewWebhookNotifierWithClient(endpoint, client)
}

func NewWebhookNotifierWithClient(endpoint string, client *resty.Client) (*WebhookNotifier, error) {
	trimmedEndpoint := strings.TrimSpace(endpoint)
	if trimmedEndpoint == "" {
		return nil, fmt.Errorf("callback endpoint is required")
	}
	if _, err := url.ParseRequestURI(trimmedEndpoint); err != nil {
		return nil, fmt.Errorf("invalid callback endpoint: %w", err)
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultWebhookTimeout)
	}
	client.SetRetryCount(0)

	return &WebhookNotifier{
		client:   client,
		endpoint: trimmedEndpoint,
	}, nil
}

func (n *WebhookNotifier) NotifyBatchFinished(ctx context.Context, summary BatchSummary) error {
	if n == nil || n.client == nil {
		return fmt.Errorf("notifier is not initialized")
	}
	if strings.TrimSpace(summary.BatchID) == "" {
		return fmt.Errorf("batch id is required")
	}

	err := n.deliver(ctx, summary)
	if err == nil || !IsTransient(err) {
		return err
	}

	select {
	case <-ctx.Done():
		return err
	case <-time.After(transientRetryDelay):
	}

	return n.deliver(ctx, summary)
}

func (n *WebhookNotifier) deliver(ctx context.Context, summary BatchSummary) error {
	response, err := n.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(summary).
		Post(n.endpoint)
	if err != nil {
		return &DeliveryError{
			Message:   "callback request failed",
			Transient: !errors.Is(err, context.Canceled),
			Cause:     err,
		}
	}
	if response == nil {
		return &DeliveryError{
			Message:   "callback returned empty response",
			Transient: true,
		}
	}

	statusCode := response.StatusCode()
	if statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices {
		return nil
	}

	return &DeliveryError{
		StatusCode: statusCode,
		Message:    deliveryErrorMessage(statusCode, strings.TrimSpace(response.String())),
		Transient:  isTransientHTTPStatus(statusCode),
	}
}

func isTransientHTTPStatus(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || (statusCode >= http.StatusInternalServerError && statusCode <= 599)
}

func deliveryErrorMessage(statusCode int, body string) string {
	base := fmt.Sprintf("callback returned status %d", statusCode)
	if body == "" {
		return base
	}
	return fmt.Sprintf("%s: %s", base, body)
}
