// Package transcode normalizes arbitrary input images to a target encoding
// before upload. Pure and deterministic; no network I/O.
package transcode

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/kursadbilgin/media-dispatch/internal/domain"

	// Registers WEBP decoding for image.Decode; encoding is not available
	// from this package, see Transcode.
	_ "golang.org/x/image/webp"
)

// Result carries the normalized bytes and the mime type to report upstream.
// Fallback is true when the original bytes were passed through unchanged;
// the mime type still names the requested format in that case, so callers
// must treat the result as best-effort normalization, not a guarantee.
type Result struct {
	Data     []byte
	MimeType string
	Fallback bool
}

// Transcode converts data to the target format, optionally resizing to fit
// dims first. Decode or encode failures fall back to the original bytes.
// WEBP output always falls back: no encoder is wired (x/image decodes only),
// so WEBP input stays WEBP and other inputs keep their source encoding.
func Transcode(data []byte, format domain.ImageFormat, dims *domain.Dimensions) Result {
	fallback := Result{Data: data, MimeType: format.MimeType(), Fallback: true}

	if len(data) == 0 || !format.IsValid() {
		return fallback
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return fallback
	}

	if dims != nil && !dims.IsZero() {
		img = resizeToFit(img, *dims)
	}

	encoded, err := encode(img, format)
	if err != nil {
		return fallback
	}

	return Result{Data: encoded, MimeType: format.MimeType()}
}

func resizeToFit(img image.Image, dims domain.Dimensions) image.Image {
	width := dims.Width
	height := dims.Height
	if width <= 0 && height <= 0 {
		return img
	}
	// One-sided targets preserve aspect ratio via a zero dimension.
	if width <= 0 || height <= 0 {
		return imaging.Resize(img, max(width, 0), max(height, 0), imaging.Lanczos)
	}
	return imaging.Fit(img, width, height, imaging.Lanczos)
}

func encode(img image.Image, format domain.ImageFormat) ([]byte, error) {
	var buf bytes.Buffer
	switch format {
	case domain.FormatPNG:
		if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
			return nil, err
		}
	case domain.FormatJPEG:
		if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(90)); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("no encoder for format %s", format)
	}
	return buf.Bytes(), nil
}
