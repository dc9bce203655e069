package ocr

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/lehigh-university-libraries/ocrweb/internal/utils"
	"github.com/lehigh-university-libraries/ocrweb/pkg/providers"
	"github.com/lehigh-university-libraries/ocrweb/pkg/raster"
)

// Outcome labels reported to a Recorder.
const (
	OutcomeSuccess             = "success"
	OutcomeEmptyText           = "empty_text"
	OutcomeUnsupportedLanguage = "unsupported_language"
	OutcomeEngineError         = "engine_error"
)

// Recorder observes finished pipeline runs.
type Recorder interface {
	ObserveExtraction(engine, outcome string, duration time.Duration)
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithMaxResolution downscales images whose longest edge exceeds px before
// they reach the engine. Zero disables downscaling.
func WithMaxResolution(px int) Option {
	return func(p *Pipeline) {
		p.maxResolution = px
	}
}

// WithMaxPixels rejects uploads declaring more than n pixels before they are
// decoded. Zero uses raster.DefaultMaxPixels.
func WithMaxPixels(n int) Option {
	return func(p *Pipeline) {
		p.maxPixels = n
	}
}

// WithRecorder reports every run to r.
func WithRecorder(r Recorder) Option {
	return func(p *Pipeline) {
		p.recorder = r
	}
}

// Pipeline sequences decode, recognition, validation, and history
// bookkeeping for one upload.
type Pipeline struct {
	provider      providers.Provider
	config        providers.Config
	maxResolution int
	maxPixels     int
	recorder      Recorder
}

// NewPipeline creates a pipeline around an OCR engine.
func NewPipeline(provider providers.Provider, config providers.Config, opts ...Option) *Pipeline {
	if len(config.Languages) == 0 {
		config.Languages = providers.DefaultLanguages
	}
	p := &Pipeline{
		provider: provider,
		config:   config,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Engine returns the name of the OCR engine in use.
func (p *Pipeline) Engine() string {
	return p.provider.Name()
}

// Run OCRs upload and, on success, records it in sess and makes it the
// active extraction. Failures never escape as errors: they come back as a
// failed result whose FailureReason is meant for the user.
func (p *Pipeline) Run(ctx context.Context, sess *Session, upload []byte) ExtractionResult {
	start := time.Now()
	engine := p.provider.Name()

	result, image := p.extract(ctx, upload)
	outcome := outcomeOf(result)

	if p.recorder != nil {
		p.recorder.ObserveExtraction(engine, outcome, time.Since(start))
	}

	if !result.Succeeded {
		slog.Warn("OCR extraction failed", "engine", engine, "outcome", outcome, "err", utils.MaskSensitiveError(result.Err))
		return result
	}

	sess.History.Append(image, result.Text)
	sess.SetActive(result)

	slog.Info("OCR extraction completed", "engine", engine, "words", result.WordCount, "history", sess.History.Len(), "duration", time.Since(start))
	return result
}

func (p *Pipeline) extract(ctx context.Context, upload []byte) (ExtractionResult, []byte) {
	engine := p.provider.Name()

	img, err := raster.DecodeLimit(upload, p.maxPixels)
	if err != nil {
		return failed(&EngineError{Engine: engine, Err: err}), nil
	}
	encoded, err := raster.EncodePNG(raster.Fit(img, p.maxResolution))
	if err != nil {
		return failed(&EngineError{Engine: engine, Err: err}), nil
	}

	text, err := p.provider.ExtractText(ctx, p.config, providers.Image{Data: encoded, MimeType: raster.PNGMimeType})
	if err != nil {
		return failed(&EngineError{Engine: engine, Err: err}), nil
	}

	return Validate(text), encoded
}

func outcomeOf(r ExtractionResult) string {
	switch {
	case r.Succeeded:
		return OutcomeSuccess
	case errors.Is(r.Err, ErrEmptyText):
		return OutcomeEmptyText
	case errors.Is(r.Err, ErrUnsupportedLanguage):
		return OutcomeUnsupportedLanguage
	default:
		return OutcomeEngineError
	}
}
