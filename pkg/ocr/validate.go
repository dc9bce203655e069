package ocr

import (
	"strings"
	"unicode"

	"github.com/lehigh-university-libraries/ocrweb/internal/utils"
)

// supportedScripts covers Basic Latin letters and the Devanagari block.
var supportedScripts = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 'A', Hi: 'Z', Stride: 1},
		{Lo: 'a', Hi: 'z', Stride: 1},
		{Lo: 0x0900, Hi: 0x097F, Stride: 1},
	},
	LatinOffset: 2,
}

// ExtractionResult is the validated outcome of one OCR run.
type ExtractionResult struct {
	Text      string
	WordCount int
	Succeeded bool
	Err       error
}

// FailureReason is the user-facing message for a failed result. Engine
// credentials that end up in error text (URLs, headers) are masked.
func (r ExtractionResult) FailureReason() string {
	if r.Err == nil {
		return ""
	}
	return utils.MaskSensitiveData(r.Err.Error())
}

// Validate decides whether raw engine output is usable. The language check
// passes if any single Latin or Devanagari letter appears anywhere in raw.
func Validate(raw string) ExtractionResult {
	if strings.TrimSpace(raw) == "" {
		return failed(ErrEmptyText)
	}
	if strings.IndexFunc(raw, isSupported) < 0 {
		return failed(ErrUnsupportedLanguage)
	}
	return ExtractionResult{
		Text:      raw,
		WordCount: len(strings.Fields(raw)),
		Succeeded: true,
	}
}

func isSupported(r rune) bool {
	return unicode.Is(supportedScripts, r)
}

func failed(err error) ExtractionResult {
	return ExtractionResult{Err: err}
}
