package providers

import (
	"context"
	"encoding/base64"
	"os"
	"regexp"
	"strings"
	"time"
)

// DefaultPrompt is sent to vision-model engines that take an instruction.
const DefaultPrompt = "Extract all Hindi (Devanagari) and English text from this image. " +
	"Return only the text exactly as it appears, preserving line breaks. Do not translate."

// DefaultLanguages are the Tesseract language codes for English and Hindi.
var DefaultLanguages = []string{"eng", "hin"}

// Config represents the configuration for an OCR engine call
type Config struct {
	Provider    string
	Model       string
	Prompt      string
	Temperature float64
	Timeout     time.Duration
	// Languages holds Tesseract-style language hints ("eng", "hin").
	Languages []string
}

// Image is an encoded image handed to an engine.
type Image struct {
	Data     []byte
	MimeType string
}

// Base64 returns the image payload as standard base64.
func (i Image) Base64() string {
	return base64.StdEncoding.EncodeToString(i.Data)
}

// Provider interface that all OCR engines must implement
type Provider interface {
	// ExtractText recognizes the text in img using the engine
	ExtractText(ctx context.Context, config Config, img Image) (string, error)
	// Name returns the provider's name
	Name() string
	// ValidateConfig reports whether the engine is usable with config
	ValidateConfig(config Config) error
}

// CleanResponseProvider is an optional interface that providers can implement
// to provide custom response cleaning logic
type CleanResponseProvider interface {
	CleanResponse(response string) string
}

var prefixPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(the\s+)?text\s+in\s+(the\s+)?image\s+(is|says|reads):?\s*`),
	regexp.MustCompile(`(?i)^(the\s+)?image\s+contains\s+(the\s+following\s+)?text:?\s*`),
	regexp.MustCompile(`(?i)^here'?s?\s+(the\s+)?text\s+(extracted\s+)?from\s+(the\s+)?image:?\s*`),
	regexp.MustCompile(`(?i)^(i\s+can\s+see\s+)?text\s+(that\s+says|reading):?\s*`),
	regexp.MustCompile(`(?i)^certainly!\s+here'?s?\s+(the\s+)?text\s+(extracted\s+)?from\s+(the\s+)?image:?\s*`),
	regexp.MustCompile(`(?i)^here'?s?\s+the\s+extracted\s+text\s+from\s+(the\s+)?image:?\s*`),
}

// CleanResponse strips the chatter vision models wrap around transcriptions
func CleanResponse(response string) string {
	response = strings.TrimSpace(response)

	for _, re := range prefixPatterns {
		response = re.ReplaceAllString(response, "")
		response = strings.TrimSpace(response)
	}

	response = strings.Trim(response, `"'`)

	if strings.HasPrefix(response, "```") && strings.HasSuffix(response, "```") {
		response = strings.TrimPrefix(response, "```")
		response = strings.TrimSuffix(response, "```")
		response = strings.TrimSpace(response)
	}

	return response
}

// ProcessResponse cleans a response using the provider's custom cleaner if available,
// otherwise uses the general CleanResponse function
func ProcessResponse(provider Provider, response string) string {
	if cleaner, ok := provider.(CleanResponseProvider); ok {
		return cleaner.CleanResponse(response)
	}
	return CleanResponse(response)
}

// TruncateBody truncates a response body to a maximum length for error messages.
// Default maxLen is 500 if not specified.
func TruncateBody(body []byte, maxLen ...int) string {
	limit := 500
	if len(maxLen) > 0 && maxLen[0] > 0 {
		limit = maxLen[0]
	}
	s := string(body)
	if len(s) > limit {
		return s[:limit] + "... (truncated)"
	}
	return s
}

// Timeout returns config.Timeout, or fallback when it is unset.
func Timeout(config Config, fallback time.Duration) time.Duration {
	if config.Timeout > 0 {
		return config.Timeout
	}
	return fallback
}

// BaseURL returns the value of env with any trailing slash removed, or fallback.
func BaseURL(env, fallback string) string {
	if v := os.Getenv(env); v != "" {
		return strings.TrimSuffix(v, "/")
	}
	return fallback
}
