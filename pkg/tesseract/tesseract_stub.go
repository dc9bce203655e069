//go:build !cgo || !ocr

package tesseract

import (
	"context"

	"github.com/lehigh-university-libraries/ocrweb/pkg/providers"
)

// Provider is a stub for builds without Tesseract support
type Provider struct{}

// New creates the stub provider
func New() *Provider {
	return &Provider{}
}

// Name returns the provider name
func (p *Provider) Name() string {
	return Name
}

// ValidateConfig always reports that Tesseract is unavailable
func (p *Provider) ValidateConfig(config providers.Config) error {
	return ErrNotCompiled
}

// ExtractText always fails with ErrNotCompiled
func (p *Provider) ExtractText(ctx context.Context, config providers.Config, img providers.Image) (string, error) {
	return "", ErrNotCompiled
}
