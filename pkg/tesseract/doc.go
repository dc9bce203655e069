// Package tesseract runs OCR locally through the Tesseract engine via
// gosseract.
//
// Tesseract support needs cgo, the Tesseract/Leptonica headers, and the
// "ocr" build tag:
//
//	apt-get install libtesseract-dev tesseract-ocr-hin
//	go build -tags ocr
//
// Without the tag the provider is still registered but ExtractText returns
// ErrNotCompiled.
package tesseract

import "errors"

// ErrNotCompiled is returned when the binary was built without Tesseract support.
var ErrNotCompiled = errors.New("tesseract support not compiled in; rebuild with -tags ocr")

// Name is the registry name of the engine.
const Name = "tesseract"
