package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/lehigh-university-libraries/ocrweb/pkg/providers"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "llava"

// Provider implements OCR through a local Ollama vision model
type Provider struct{}

type generateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Images  []string       `json:"images"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options"`
}

type generateResponse struct {
	Response *string `json:"response"`
}

// New creates a new Ollama provider
func New() *Provider {
	return &Provider{}
}

// Name returns the provider name
func (p *Provider) Name() string {
	return "ollama"
}

// ValidateConfig validates the Ollama configuration. A local server needs no credentials.
func (p *Provider) ValidateConfig(config providers.Config) error {
	return nil
}

// ExtractText sends the image to Ollama's generate endpoint
func (p *Provider) ExtractText(ctx context.Context, config providers.Config, img providers.Image) (string, error) {
	ollamaURL := providers.BaseURL("OLLAMA_URL", "http://localhost:11434")

	model := config.Model
	if model == "" {
		model = DefaultModel
	}
	prompt := config.Prompt
	if prompt == "" {
		prompt = providers.DefaultPrompt
	}

	requestJSON, err := json.Marshal(generateRequest{
		Model:  model,
		Prompt: prompt,
		Images: []string{img.Base64()},
		Stream: false,
		Options: map[string]any{
			"temperature": config.Temperature,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ollamaURL+"/api/generate", bytes.NewReader(requestJSON))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	// local inference is slow
	client := &http.Client{Timeout: providers.Timeout(config, 300*time.Second)}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama API error: %d - %s", resp.StatusCode, providers.TruncateBody(body))
	}

	var ollamaResp generateResponse
	if err := json.Unmarshal(body, &ollamaResp); err != nil {
		return "", fmt.Errorf("failed to parse JSON response: %w", err)
	}
	if ollamaResp.Response == nil {
		return "", fmt.Errorf("no response from Ollama")
	}

	return providers.ProcessResponse(p, *ollamaResp.Response), nil
}
