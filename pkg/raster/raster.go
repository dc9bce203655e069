// Package raster decodes uploaded images into RGB rasters and re-encodes
// them for OCR engines and history storage.
package raster

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"

	"golang.org/x/image/draw"
)

// ErrUnsupportedFormat is returned for anything other than JPEG or PNG.
var ErrUnsupportedFormat = errors.New("unsupported image format; upload a JPEG or PNG")

// ErrImageTooLarge is returned when an image declares more pixels than the
// decode limit allows.
var ErrImageTooLarge = errors.New("image dimensions too large")

// PNGMimeType is the content type of every encoded raster.
const PNGMimeType = "image/png"

// DefaultMaxPixels bounds decoded images to about 160 MB of RGBA.
const DefaultMaxPixels = 40_000_000

type codec struct {
	decode       func(io.Reader) (image.Image, error)
	decodeConfig func(io.Reader) (image.Config, error)
}

var codecs = map[string]codec{
	"jpeg": {decode: jpeg.Decode, decodeConfig: jpeg.DecodeConfig},
	"png":  {decode: png.Decode, decodeConfig: png.DecodeConfig},
}

// Format sniffs the encoded format of data ("jpeg" or "png").
func Format(data []byte) (string, error) {
	switch {
	case bytes.HasPrefix(data, []byte("\xff\xd8\xff")):
		return "jpeg", nil
	case bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")):
		return "png", nil
	}
	return "", ErrUnsupportedFormat
}

// Decode is DecodeLimit with DefaultMaxPixels.
func Decode(data []byte) (*image.RGBA, error) {
	return DecodeLimit(data, DefaultMaxPixels)
}

// DecodeLimit decodes a JPEG or PNG into an opaque RGB raster. Alpha is
// composited onto white so transparent backgrounds OCR as paper. The header
// is checked first: images with more than maxPixels pixels are rejected
// with ErrImageTooLarge before any pixel data is decoded. maxPixels <= 0
// means DefaultMaxPixels.
func DecodeLimit(data []byte, maxPixels int) (*image.RGBA, error) {
	format, err := Format(data)
	if err != nil {
		return nil, err
	}
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	c := codecs[format]

	cfg, err := c.decodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", format, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width > maxPixels/cfg.Height {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrImageTooLarge, cfg.Width, cfg.Height, maxPixels)
	}

	src, err := c.decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", format, err)
	}

	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Over)
	return dst, nil
}

// Fit downscales img so its longest edge is at most maxEdge pixels,
// preserving aspect ratio. maxEdge <= 0 or a small enough image returns img.
func Fit(img image.Image, maxEdge int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxEdge <= 0 || (w <= maxEdge && h <= maxEdge) {
		return img
	}

	targetW, targetH := maxEdge, maxEdge
	if w >= h {
		targetH = max(1, h*maxEdge/w)
	} else {
		targetW = max(1, w*maxEdge/h)
	}

	dst := image.NewRGBA(image.Rect(0, 0, targetW, targetH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

// EncodePNG encodes img as PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}
