// Package imageprocessor validates plant photos and turns them into the
// inline form sent to the vision classifier.
package imageprocessor

import (
	"bytes"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"strings"

	"github.com/disintegration/imaging"
)

var (
	// ErrUnsupportedMediaType is returned for anything but JPEG, PNG or GIF.
	ErrUnsupportedMediaType = errors.New("unsupported media type")
	// ErrEmptyImage is returned when no image bytes were supplied.
	ErrEmptyImage = errors.New("empty image")
	// ErrInvalidDataURL is returned for malformed data: URLs.
	ErrInvalidDataURL = errors.New("invalid data url")
	// ErrTooManyPixels is returned for images whose decoded size exceeds the
	// pixel limit.
	ErrTooManyPixels = errors.New("image dimensions too large")
)

// DefaultMaxPixels bounds width*height when no limit is configured.
const DefaultMaxPixels = 40_000_000

var formats = map[string]imaging.Format{
	"image/jpeg": imaging.JPEG,
	"image/png":  imaging.PNG,
	"image/gif":  imaging.GIF,
}

// Image is a validated image ready to be sent to a classifier.
type Image struct {
	Data     []byte
	MIMEType string
	Width    int
	Height   int
	// SHA1 is the hex digest of the bytes as received, before any resizing.
	SHA1 string
}

// Base64 returns the standard base64 encoding of the image bytes.
func (i Image) Base64() string {
	return base64.StdEncoding.EncodeToString(i.Data)
}

// Preparer exposes the subset of functionality used by the health check flow.
type Preparer interface {
	Prepare(raw []byte) (Image, error)
}

// Processor sniffs, validates and downscales images.
type Processor struct {
	maxEdge   int
	maxPixels int64
}

// New returns a Processor that shrinks images whose longest edge exceeds
// maxEdge and rejects images larger than maxPixels. A maxEdge of zero
// disables resizing; a non-positive maxPixels selects DefaultMaxPixels.
func New(maxEdge int, maxPixels int64) *Processor {
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	return &Processor{maxEdge: maxEdge, maxPixels: maxPixels}
}

// DetectMIMEType sniffs the content type of raw image bytes.
func DetectMIMEType(raw []byte) string {
	ct := http.DetectContentType(raw)
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return ct
}

// Supported reports whether the MIME type is accepted for analysis.
func Supported(mimeType string) bool {
	_, ok := formats[mimeType]
	return ok
}

// Prepare validates raw and returns it, resized when needed.
func (p *Processor) Prepare(raw []byte) (Image, error) {
	if len(raw) == 0 {
		return Image{}, ErrEmptyImage
	}

	mimeType := DetectMIMEType(raw)
	format, ok := formats[mimeType]
	if !ok {
		return Image{}, fmt.Errorf("%w: %s", ErrUnsupportedMediaType, mimeType)
	}

	sum := sha1.Sum(raw)
	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return Image{}, fmt.Errorf("%w: cannot decode %s: %v", ErrUnsupportedMediaType, mimeType, err)
	}
	// Checked before decoding: compressed size says nothing about the
	// decoded buffer.
	if int64(cfg.Width)*int64(cfg.Height) > p.maxPixels {
		return Image{}, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrTooManyPixels, cfg.Width, cfg.Height, p.maxPixels)
	}

	img := Image{
		Data:     raw,
		MIMEType: mimeType,
		Width:    cfg.Width,
		Height:   cfg.Height,
		SHA1:     hex.EncodeToString(sum[:]),
	}

	if p.maxEdge <= 0 || (cfg.Width <= p.maxEdge && cfg.Height <= p.maxEdge) {
		return img, nil
	}

	decoded, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
	if err != nil {
		return Image{}, fmt.Errorf("decode image: %w", err)
	}
	resized := imaging.Fit(decoded, p.maxEdge, p.maxEdge, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, format, imaging.JPEGQuality(85)); err != nil {
		return Image{}, fmt.Errorf("encode resized image: %w", err)
	}

	bounds := resized.Bounds()
	img.Data = buf.Bytes()
	img.Width = bounds.Dx()
	img.Height = bounds.Dy()
	return img, nil
}

// ParseDataURL decodes a base64 data: URL such as the frames produced by a
// browser webcam capture.
func ParseDataURL(s string) ([]byte, string, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(s), "data:")
	if !ok {
		return nil, "", ErrInvalidDataURL
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", ErrInvalidDataURL
	}
	mediaType, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 {
		return nil, "", fmt.Errorf("%w: only base64 payloads are supported", ErrInvalidDataURL)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidDataURL, err)
	}
	return data, mediaType, nil
}
