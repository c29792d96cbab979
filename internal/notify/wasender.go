package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spec-kit/guestlist-service/internal/config"
)

// WhatsAppSender delivers an image message with a caption.
type WhatsAppSender interface {
	SendImage(ctx context.Context, to, imageURL, caption string) error
}

// WaSenderClient talks to the WaSender message API. The provider's
// deployments disagree on auth header and payload shape, so both the
// Authorization Bearer and x-api-key headers are tried, and both known
// payload variants.
type WaSenderClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewWaSenderClient builds the client from configuration.
func NewWaSenderClient(cfg config.WhatsAppConfig) *WaSenderClient {
	return &WaSenderClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Enabled reports whether the provider is configured.
func (c *WaSenderClient) Enabled() bool {
	return c.apiKey != ""
}

// SendImage posts the image message. Payload variant A ({to, imageUrl,
// text}) is tried first, then variant B ({to, type, url, caption}).
func (c *WaSenderClient) SendImage(ctx context.Context, to, imageURL, caption string) error {
	if !c.Enabled() {
		return &ProviderError{Provider: "wasender", StatusCode: 500, Body: "missing WASENDER_API_KEY"}
	}

	variantA := map[string]any{"to": to, "imageUrl": imageURL, "text": caption}
	variantB := map[string]any{"to": to, "type": "image", "url": imageURL, "caption": caption}

	if err := c.send(ctx, variantA); err == nil {
		return nil
	}
	// Surface the last attempt's failure when neither variant lands.
	return c.send(ctx, variantB)
}

func (c *WaSenderClient) send(ctx context.Context, payload map[string]any) error {
	var lastErr error
	for _, header := range []string{"bearer", "x-api-key"} {
		status, body, err := c.post(ctx, header, payload)
		if err != nil {
			lastErr = &ProviderError{Provider: "wasender", StatusCode: 502, Body: err.Error()}
			continue
		}
		if status >= 200 && status < 300 && !responseReportsFailure(body) {
			return nil
		}
		lastErr = &ProviderError{Provider: "wasender", StatusCode: status, Body: body}
	}
	return lastErr
}

func (c *WaSenderClient) post(ctx context.Context, header string, payload map[string]any) (int, string, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return 0, "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/send-message", bytes.NewReader(encoded))
	if err != nil {
		return 0, "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if header == "bearer" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))
	} else {
		req.Header.Set("x-api-key", c.apiKey)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return res.StatusCode, "", err
	}
	return res.StatusCode, string(body), nil
}

// responseReportsFailure catches 200-with-{"success":false} responses.
func responseReportsFailure(body string) bool {
	var parsed struct {
		Success *bool `json:"success"`
	}
	if err := json.Unmarshal([]byte(body), &parsed); err != nil {
		return false
	}
	return parsed.Success != nil && !*parsed.Success
}
