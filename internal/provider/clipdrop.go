package provider

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// ClipdropClient calls the Clipdrop text-to-image endpoint. The response body
// is an encoded image and is kept as raw bytes.
type ClipdropClient struct {
	apiKey string
	url    string
	client *http.Client
}

func NewClipdropClient(apiKey, url string, timeout time.Duration) *ClipdropClient {
	return &ClipdropClient{
		apiKey: apiKey,
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

func (c *ClipdropClient) Synthesize(ctx context.Context, prompt string) ([]byte, error) {
	if c.apiKey == "" {
		return nil, errors.New("CLIPDROP_API_KEY is missing")
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if err := w.WriteField("prompt", prompt); err != nil {
		return nil, fmt.Errorf("write prompt field: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, &body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("AI Service Error (%d): %s", resp.StatusCode, upstreamMessage(data))
	}
	if len(data) == 0 {
		return nil, errors.New("AI Service Error: empty image")
	}
	return data, nil
}

// upstreamMessage pulls the "error" field out of a JSON error body and falls
// back to the raw text.
func upstreamMessage(body []byte) string {
	if gjson.ValidBytes(body) {
		if msg := gjson.GetBytes(body, "error"); msg.Exists() {
			return msg.String()
		}
	}
	return strings.TrimSpace(string(body))
}
