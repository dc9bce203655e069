package ocr

import "errors"

var (
	// ErrEmptyText means the engine produced nothing but whitespace.
	ErrEmptyText = errors.New("no text detected in the image")
	// ErrUnsupportedLanguage means no Latin or Devanagari letter was found.
	ErrUnsupportedLanguage = errors.New("text in other languages detected; only Hindi and English are supported")
)

// EngineError wraps a failure of the OCR call itself, including failures to
// decode the uploaded image before the engine is reached.
type EngineError struct {
	Engine string
	Err    error
}

func (e *EngineError) Error() string {
	if e.Engine == "" {
		return e.Err.Error()
	}
	return e.Engine + ": " + e.Err.Error()
}

func (e *EngineError) Unwrap() error {
	return e.Err
}
