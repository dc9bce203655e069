package gemini

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
const DefaultModel = "gemini-1.5-flash"

// Provider implements OCR through the Google Gemini generateContent API
type Provider struct{}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type content struct {
	Parts []part `json:"parts"`
}

type request struct {
	Contents         []content      `json:"contents"`
	GenerationConfig map[string]any `json:"generationConfig"`
}

type response struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// New creates a new Gemini provider
func New() *Provider {
	return &Provider{}
}

// Name returns the provider name
func (p *Provider) Name() string {
	return "gemini"
}

// ValidateConfig validates the Gemini configuration
func (p *Provider) ValidateConfig(config providers.Config) error {
	if os.Getenv("GEMINI_API_KEY") == "" {
		return fmt.Errorf("GEMINI_API_KEY environment variable not set")
	}
	return nil
}

// ExtractText extracts text from an image using the Gemini API
func (p *Provider) ExtractText(ctx context.Context, config providers.Config, img providers.Image) (string, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return "", fmt.Errorf("GEMINI_API_KEY environment variable not set")
	}

	model := config.Model
	if model == "" {
		model = DefaultModel
	}
	prompt := config.Prompt
	if prompt == "" {
		prompt = providers.DefaultPrompt
	}
	mimeType := img.MimeType
	if mimeType == "" {
		mimeType = "image/png"
	}

	requestJSON, err := json.Marshal(request{
		Contents: []content{{
			Parts: []part{
				{Text: prompt},
				{InlineData: &inlineData{MimeType: mimeType, Data: img.Base64()}},
			},
		}},
		GenerationConfig: map[string]any{
			"temperature": config.Temperature,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	// the key travels in the query string; errors are masked before logging
	base := providers.BaseURL("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta")
	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", base, model, apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(requestJSON))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: providers.Timeout(config, 60*time.Second)}
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
		return "", fmt.Errorf("gemini API error: %d - %s", resp.StatusCode, providers.TruncateBody(body))
	}

	var geminiResp response
	if err := json.Unmarshal(body, &geminiResp); err != nil {
		return "", fmt.Errorf("failed to parse JSON response: %w", err)
	}

	if len(geminiResp.Candidates) == 0 {
		return "", fmt.Errorf("no response from Gemini")
	}
	parts := geminiResp.Candidates[0].Content.Parts
	if len(parts) == 0 || parts[0].Text == "" {
		return "", fmt.Errorf("no text in Gemini response")
	}

	return providers.ProcessResponse(p, parts[0].Text), nil
}
