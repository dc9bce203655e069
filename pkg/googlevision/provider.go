package googlevision

import (
	"context"
	"fmt"
	"os"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/lehigh-university-libraries/ocrweb/pkg/providers"
	"google.golang.org/api/option"
)

// Provider implements OCR through Google Cloud Vision document text detection
type Provider struct{}

// New creates a new Google Cloud Vision provider
func New() *Provider {
	return &Provider{}
}

// Name returns the provider name
func (p *Provider) Name() string {
	return "google"
}

// ValidateConfig validates the Google Cloud Vision configuration
func (p *Provider) ValidateConfig(config providers.Config) error {
	if os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") == "" {
		return fmt.Errorf("GOOGLE_APPLICATION_CREDENTIALS environment variable not set")
	}
	return nil
}

// ExtractText runs DOCUMENT_TEXT_DETECTION over the image
func (p *Provider) ExtractText(ctx context.Context, config providers.Config, img providers.Image) (string, error) {
	if config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, config.Timeout)
		defer cancel()
	}

	var opts []option.ClientOption
	if endpoint := os.Getenv("GOOGLE_VISION_ENDPOINT"); endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}

	client, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		return "", fmt.Errorf("failed to create vision client: %w", err)
	}
	defer client.Close()

	resp, err := client.BatchAnnotateImages(ctx, buildRequest(config, img))
	if err != nil {
		return "", fmt.Errorf("google vision request failed: %w", err)
	}
	return responseText(resp)
}

func buildRequest(config providers.Config, img providers.Image) *visionpb.BatchAnnotateImagesRequest {
	return &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{{
			Image: &visionpb.Image{Content: img.Data},
			Features: []*visionpb.Feature{{
				Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION,
			}},
			ImageContext: &visionpb.ImageContext{
				LanguageHints: languageHints(config.Languages),
			},
		}},
	}
}

func responseText(resp *visionpb.BatchAnnotateImagesResponse) (string, error) {
	if len(resp.GetResponses()) == 0 {
		return "", fmt.Errorf("no response from Google Vision")
	}
	r := resp.GetResponses()[0]
	if r.GetError() != nil && r.GetError().GetCode() != 0 {
		return "", fmt.Errorf("google vision error: %s", r.GetError().GetMessage())
	}
	return r.GetFullTextAnnotation().GetText(), nil
}

// languageHints converts Tesseract codes to the BCP-47 hints Vision expects.
func languageHints(langs []string) []string {
	if len(langs) == 0 {
		langs = providers.DefaultLanguages
	}
	hints := make([]string, 0, len(langs))
	for _, lang := range langs {
		switch lang {
		case "eng":
			hints = append(hints, "en")
		case "hin":
			hints = append(hints, "hi")
		default:
			hints = append(hints, lang)
		}
	}
	return hints
}
