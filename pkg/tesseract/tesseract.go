//go:build cgo && ocr

package tesseract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lehigh-university-libraries/ocrweb/pkg/providers"
	"github.com/otiai10/gosseract/v2"
)

// Provider recognizes text with a local Tesseract installation
type Provider struct{}

// New creates a new Tesseract provider
func New() *Provider {
	return &Provider{}
}

// Name returns the provider name
func (p *Provider) Name() string {
	return Name
}

// ValidateConfig checks that trained data exists for every requested
// language. When no tessdata directory can be found the check is left to
// Tesseract itself.
func (p *Provider) ValidateConfig(config providers.Config) error {
	dir := tessdataDir()
	if dir == "" {
		return nil
	}
	for _, lang := range languages(config) {
		if _, err := os.Stat(filepath.Join(dir, lang+".traineddata")); err != nil {
			return fmt.Errorf("no trained data for language %q in %s", lang, dir)
		}
	}
	return nil
}

// ExtractText runs Tesseract over the encoded image. A fresh client is used
// per call; gosseract clients are not safe for concurrent use.
func (p *Provider) ExtractText(ctx context.Context, config providers.Config, img providers.Image) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(languages(config)...); err != nil {
		return "", fmt.Errorf("failed to set language: %w", err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_AUTO); err != nil {
		return "", fmt.Errorf("failed to set page segmentation mode: %w", err)
	}
	if err := client.SetImageFromBytes(img.Data); err != nil {
		return "", fmt.Errorf("failed to set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("OCR failed: %w", err)
	}
	return text, nil
}

var tessdataCandidates = []string{
	"/usr/share/tesseract-ocr/5/tessdata",
	"/usr/share/tesseract-ocr/4.00/tessdata",
	"/usr/share/tessdata",
	"/usr/local/share/tessdata",
	"/opt/homebrew/share/tessdata",
}

func tessdataDir() string {
	if prefix := os.Getenv("TESSDATA_PREFIX"); prefix != "" {
		return prefix
	}
	for _, dir := range tessdataCandidates {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir
		}
	}
	return ""
}

func languages(config providers.Config) []string {
	if len(config.Languages) == 0 {
		return providers.DefaultLanguages
	}
	return config.Languages
}
