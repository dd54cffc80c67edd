package classify

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

const openaiDefaultBaseURL = "https://api.openai.com/v1"

// openaiBackend classifies through the OpenAI chat/completions vision API.
type openaiBackend struct {
	model      string
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func newOpenAIBackend(cfg Config) *openaiBackend {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = openaiDefaultBaseURL
	}
	model := cfg.Model
	if model == "" || strings.HasPrefix(model, "claude") {
		model = "gpt-4o"
	}
	return &openaiBackend{
		model:      model,
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

func (o *openaiBackend) name() string { return "openai" }

func (o *openaiBackend) complete(ctx context.Context, imagePath string) (string, error) {
	imageData, mediaType, err := encodeImage(imagePath)
	if err != nil {
		return "", fmt.Errorf("encode image: %w", err)
	}

	body := map[string]any{
		"model":      o.model,
		"max_tokens": 1024,
		"messages": []map[string]any{
			{
				"role": "user",
				"content": []map[string]any{
					{
						"type": "text",
						"text": classificationPrompt,
					},
					{
						"type": "image_url",
						"image_url": map[string]any{
							"url": fmt.Sprintf("data:%s;base64,%s", mediaType, imageData),
						},
					},
				},
			},
		},
	}

	endpoint := strings.TrimRight(o.baseURL, "/") + "/chat/completions"
	raw, err := postJSON(ctx, o.httpClient, endpoint, body, map[string]string{
		"Authorization": "Bearer " + o.apiKey,
	})
	if err != nil {
		return "", err
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		return "", fmt.Errorf("decode openai response: %w", err)
	}
	if len(cc.Choices) == 0 {
		return "", fmt.Errorf("no choices in openai response")
	}
	return cc.Choices[0].Message.Content, nil
}

// encodeImage reads an image file as base64 and resolves its media type.
func encodeImage(path string) (data, mediaType string, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", "", err
	}
	ext := strings.ToLower(filepath.Ext(path))
	mediaType = mime.TypeByExtension(ext)
	if mediaType == "" {
		switch strings.TrimPrefix(ext, ".") {
		case "jpg", "jpeg":
			mediaType = "image/jpeg"
		case "gif":
			mediaType = "image/gif"
		case "webp":
			mediaType = "image/webp"
		default:
			mediaType = "image/png"
		}
	}
	return base64.StdEncoding.EncodeToString(b), mediaType, nil
}
