package claude

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/lehigh-university-libraries/ocrweb/pkg/providers"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "claude-sonnet-4-5-20250514"

// Provider implements OCR through the Anthropic Messages API
type Provider struct{}

type imageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type contentBlock struct {
	Type   string       `json:"type"`
	Text   string       `json:"text,omitempty"`
	Source *imageSource `json:"source,omitempty"`
}

type message struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type request struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	Messages    []message `json:"messages"`
	Temperature *float64  `json:"temperature,omitempty"`
}

// Response represents a Claude API response
type Response struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// New creates a new Claude provider
func New() *Provider {
	return &Provider{}
}

// Name returns the provider name
func (p *Provider) Name() string {
	return "claude"
}

// ValidateConfig validates the Claude configuration
func (p *Provider) ValidateConfig(config providers.Config) error {
	if os.Getenv("ANTHROPIC_API_KEY") == "" {
		return fmt.Errorf("ANTHROPIC_API_KEY environment variable not set")
	}
	return nil
}

// ExtractText extracts text from an image using Claude's vision API
func (p *Provider) ExtractText(ctx context.Context, config providers.Config, img providers.Image) (string, error) {
	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		return "", fmt.Errorf("ANTHROPIC_API_KEY environment variable not set")
	}

	model := config.Model
	if model == "" {
		model = DefaultModel
	}
	prompt := config.Prompt
	if prompt == "" {
		prompt = providers.DefaultPrompt
	}
	mediaType := img.MimeType
	if mediaType == "" {
		mediaType = "image/png"
	}

	body := request{
		Model:     model,
		MaxTokens: 4096,
		Messages: []message{{
			Role: "user",
			Content: []contentBlock{
				{Type: "image", Source: &imageSource{Type: "base64", MediaType: mediaType, Data: img.Base64()}},
				{Type: "text", Text: prompt},
			},
		}},
	}
	if config.Temperature > 0 {
		body.Temperature = &config.Temperature
	}

	requestJSON, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := providers.BaseURL("ANTHROPIC_BASE_URL", "https://api.anthropic.com/v1") + "/messages"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(requestJSON))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	client := &http.Client{Timeout: providers.Timeout(config, 120*time.Second)}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("claude API error: %d - %s", resp.StatusCode, providers.TruncateBody(respBody))
	}

	var claudeResp Response
	if err := json.Unmarshal(respBody, &claudeResp); err != nil {
		return "", fmt.Errorf("failed to parse JSON response: %w", err)
	}

	for _, block := range claudeResp.Content {
		if block.Type == "text" && block.Text != "" {
			return providers.ProcessResponse(p, block.Text), nil
		}
	}

	return "", fmt.Errorf("no text content in Claude response")
}
