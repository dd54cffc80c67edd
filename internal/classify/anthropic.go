package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

const anthropicDefaultBaseURL = "https://api.anthropic.com"

// anthropicBackend classifies through the Anthropic messages API directly.
type anthropicBackend struct {
	model      string
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func newAnthropicBackend(cfg Config) *anthropicBackend {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = anthropicDefaultBaseURL
	}
	return &anthropicBackend{
		model:      cfg.Model,
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

func (a *anthropicBackend) name() string { return "anthropic" }

func (a *anthropicBackend) complete(ctx context.Context, imagePath string) (string, error) {
	imageData, mediaType, err := encodeImage(imagePath)
	if err != nil {
		return "", fmt.Errorf("encode image: %w", err)
	}

	body := map[string]any{
		"model":      a.model,
		"max_tokens": 1024,
		"messages": []map[string]any{
			{
				"role": "user",
				"content": []map[string]any{
					{
						"type": "image",
						"source": map[string]any{
							"type":       "base64",
							"media_type": mediaType,
							"data":       imageData,
						},
					},
					{
						"type": "text",
						"text": classificationPrompt,
					},
				},
			},
		},
	}

	endpoint := strings.TrimRight(a.baseURL, "/") + "/v1/messages"
	raw, err := postJSON(ctx, a.httpClient, endpoint, body, map[string]string{
		"x-api-key":         a.apiKey,
		"anthropic-version": "2023-06-01",
	})
	if err != nil {
		return "", err
	}

	var msg struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(raw, &msg); err != nil {
		return "", fmt.Errorf("decode anthropic response: %w", err)
	}
	for _, block := range msg.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("no text content in anthropic response")
}

func postJSON(ctx context.Context, client *http.Client, url string, body map[string]any, headers map[string]string) ([]byte, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vision api http error: %w", err)
	}
	defer func(body io.ReadCloser) {
		if cerr := body.Close(); cerr != nil {
			slog.Warn("vision api response body close error", "error", cerr)
		}
	}(resp.Body)

	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("vision api status %d: %s", resp.StatusCode, buf.String())
	}
	return buf.Bytes(), nil
}
