package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// MessagingGatewayProvider dispatches email and WhatsApp messages through the
// shared messaging gateway. When the gateway is not configured it reports
// itself unavailable and callers fall back to a structured not-configured
// result instead of failing the surrounding flow.
type MessagingGatewayProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewMessagingGatewayProvider(baseURL, apiKey string, client *http.Client) *MessagingGatewayProvider {
	return &MessagingGatewayProvider{baseURL: baseURL, apiKey: apiKey, client: client}
}

func (p *MessagingGatewayProvider) Name() string { return "MESSAGING_GATEWAY" }

func (p *MessagingGatewayProvider) Available(_ context.Context) bool {
	return p.baseURL != "" && p.apiKey != ""
}

type gatewayDispatchResponse struct {
	MessageID string `json:"message_id"`
	Accepted  bool   `json:"accepted"`
}

func (p *MessagingGatewayProvider) SendEmail(ctx context.Context, msg EmailMessage) (*SendResult, error) {
	return p.dispatch(ctx, "/v1/email", map[string]any{
		"to":      msg.To,
		"subject": msg.Subject,
		"body":    msg.Body,
	})
}

func (p *MessagingGatewayProvider) SendWhatsApp(ctx context.Context, msg WhatsAppMessage) (*SendResult, error) {
	return p.dispatch(ctx, "/v1/whatsapp", map[string]any{
		"to":       msg.To,
		"template": msg.Template,
		"params":   msg.Params,
	})
}

func (p *MessagingGatewayProvider) dispatch(ctx context.Context, path string, payload map[string]any) (*SendResult, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, NewProviderError(ErrorInternal, p.Name(), "marshal payload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return nil, NewProviderError(ErrorInternal, p.Name(), "build request", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, NewProviderError(ErrorProviderOutage, p.Name(), "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return nil, NewProviderError(ErrorProviderOutage, p.Name(),
			fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}

	var body gatewayDispatchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, NewProviderError(ErrorBadData, p.Name(), "decode response", err)
	}

	return &SendResult{
		Provider:  p.Name(),
		MessageID: body.MessageID,
		Accepted:  body.Accepted,
	}, nil
}
