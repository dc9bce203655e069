package azure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/ocrweb/pkg/providers"
)

const maxPollAttempts = 30

// Provider implements OCR through the Azure Computer Vision Read API
type Provider struct {
	pollInterval time.Duration
}

type readLine struct {
	Text    string `json:"text"`
	Content string `json:"content"`
}

type readOperation struct {
	Status        string `json:"status"`
	AnalyzeResult struct {
		// v3.2
		ReadResults []struct {
			Lines []readLine `json:"lines"`
		} `json:"readResults"`
		// v4.0
		Pages []struct {
			Lines []readLine `json:"lines"`
		} `json:"pages"`
	} `json:"analyzeResult"`
}

// New creates a new Azure provider
func New() *Provider {
	return &Provider{pollInterval: time.Second}
}

// Name returns the provider name
func (p *Provider) Name() string {
	return "azure"
}

// ValidateConfig validates the Azure configuration
func (p *Provider) ValidateConfig(config providers.Config) error {
	if os.Getenv("AZURE_OCR_ENDPOINT") == "" || os.Getenv("AZURE_OCR_API_KEY") == "" {
		return fmt.Errorf("AZURE_OCR_ENDPOINT and AZURE_OCR_API_KEY environment variables must be set")
	}
	return nil
}

// ExtractText submits the image to the Read API and polls for the result
func (p *Provider) ExtractText(ctx context.Context, config providers.Config, img providers.Image) (string, error) {
	if err := p.ValidateConfig(config); err != nil {
		return "", err
	}
	endpoint := strings.TrimSuffix(os.Getenv("AZURE_OCR_ENDPOINT"), "/")
	apiKey := os.Getenv("AZURE_OCR_API_KEY")

	readURL := endpoint + "/vision/v3.2/read/analyze"
	if lang := readLanguage(config.Languages); lang != "" {
		readURL += "?language=" + lang
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, readURL, bytes.NewReader(img.Data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", apiKey)
	req.Header.Set("Content-Type", "application/octet-stream")

	client := &http.Client{Timeout: providers.Timeout(config, 60*time.Second)}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("azure OCR API error: %d - %s", resp.StatusCode, providers.TruncateBody(body))
	}

	operationURL := resp.Header.Get("Operation-Location")
	if operationURL == "" {
		return "", fmt.Errorf("no operation location returned from Azure OCR")
	}

	for attempts := 0; attempts < maxPollAttempts; attempts++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(p.pollInterval):
		}

		op, err := p.poll(ctx, client, operationURL, apiKey)
		if err != nil {
			return "", err
		}
		if op == nil {
			continue
		}

		switch op.Status {
		case "succeeded":
			return op.text(), nil
		case "failed":
			return "", fmt.Errorf("azure OCR analysis failed")
		}
	}

	return "", fmt.Errorf("azure OCR operation timed out")
}

// poll returns nil, nil when the operation is not ready to be read yet.
func (p *Provider) poll(ctx context.Context, client *http.Client, operationURL, apiKey string) (*readOperation, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, operationURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", apiKey)

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil
	}

	var op readOperation
	if err := json.NewDecoder(resp.Body).Decode(&op); err != nil {
		return nil, fmt.Errorf("invalid response format from Azure OCR: %w", err)
	}
	return &op, nil
}

func (op *readOperation) text() string {
	var texts []string
	for _, r := range op.AnalyzeResult.ReadResults {
		for _, l := range r.Lines {
			texts = append(texts, l.Text)
		}
	}
	if len(texts) == 0 {
		for _, page := range op.AnalyzeResult.Pages {
			for _, l := range page.Lines {
				texts = append(texts, l.Content)
			}
		}
	}
	return strings.Join(texts, "\n")
}

// readLanguage maps a single Tesseract hint to the Read API language
// parameter. Mixed-language requests are left to auto-detection.
func readLanguage(langs []string) string {
	if len(langs) != 1 {
		return ""
	}
	switch langs[0] {
	case "eng":
		return "en"
	case "hin":
		return "hi"
	}
	return ""
}
