package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/streambill/streambill/internal/config"
	ierr "github.com/streambill/streambill/internal/errors"
	"github.com/streambill/streambill/internal/httpclient"
)

// ChatSink posts operator alerts to a chat webhook.
type ChatSink struct {
	client httpclient.Client
	cfg    config.ChatConfig
}

func NewChatSink(client httpclient.Client, cfg config.ChatConfig) *ChatSink {
	return &ChatSink{client: client, cfg: cfg}
}

// Customer-facing events are summarised for operators too.
func (s *ChatSink) ServiceActivated(ctx context.Context, event ServiceEvent) error {
	return s.post(ctx, fmt.Sprintf("Service activated: %s on %s for %s",
		event.ProductName, event.PanelName, event.CustomerEmail))
}

func (s *ChatSink) ServiceRenewed(ctx context.Context, event ServiceEvent) error {
	return s.post(ctx, fmt.Sprintf("Service renewed: %s on %s for %s",
		event.ProductName, event.PanelName, event.CustomerEmail))
}

func (s *ChatSink) ExpiryWarning(context.Context, ServiceEvent) error {
	// Expiry warnings go to customers only; they would flood the channel.
	return nil
}

func (s *ChatSink) ProvisioningFailed(ctx context.Context, event FailureEvent) error {
	return s.post(ctx, fmt.Sprintf("PROVISIONING FAILED: order %s, product %s, panel %s: %s",
		event.OrderNumber, event.ProductName, event.PanelName, event.Reason))
}

func (s *ChatSink) post(ctx context.Context, text string) error {
	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return ierr.WithError(err).Mark(ierr.ErrInternal)
	}

	req := &httpclient.Request{
		Method: http.MethodPost,
		URL:    s.cfg.WebhookURL,
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
		Body: payload,
	}
	if _, err := s.client.Send(ctx, req); err != nil {
		return err
	}
	return nil
}
