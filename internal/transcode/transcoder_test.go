package transcode

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/kursadbilgin/media-dispatch/internal/domain"
)

func pngFixture(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 100, A: 255})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode fixture: %v", err)
	}
	return buf.Bytes()
}

func TestTranscodePNGToJPEG(t *testing.T) {
	t.Parallel()

	src := pngFixture(t, 8, 8)
	result := Transcode(src, domain.FormatJPEG, nil)

	if result.Fallback {
		t.Fatal("png -> jpeg should not fall back")
	}
	if result.MimeType != "image/jpeg" {
		t.Fatalf("MimeType = %s, want image/jpeg", result.MimeType)
	}
	if _, err := jpeg.Decode(bytes.NewReader(result.Data)); err != nil {
		t.Fatalf("output is not decodable jpeg: %v", err)
	}
}

func TestTranscodeResizesToFit(t *testing.T) {
	t.Parallel()

	src := pngFixture(t, 40, 20)
	result := Transcode(src, domain.FormatPNG, &domain.Dimensions{Width: 10, Height: 10})

	if result.Fallback {
		t.Fatal("resize should not fall back")
	}

	img, err := png.Decode(bytes.NewReader(result.Data))
	if err != nil {
		t.Fatalf("output not decodable: %v", err)
	}
	bounds := img.Bounds()
	// Fit preserves aspect ratio within the box.
	if bounds.Dx() != 10 || bounds.Dy() != 5 {
		t.Fatalf("resized to %dx%d, want 10x5", bounds.Dx(), bounds.Dy())
	}
}

func TestTranscodeInvalidInputFallsBack(t *testing.T) {
	t.Parallel()

	src := []byte("not an image at all")
	result := Transcode(src, domain.FormatPNG, nil)

	if !result.Fallback {
		t.Fatal("undecodable input must fall back")
	}
	if !bytes.Equal(result.Data, src) {
		t.Fatal("fallback must pass original bytes through unchanged")
	}
	if result.MimeType != "image/png" {
		t.Fatalf("fallback must still report requested mime, got %s", result.MimeType)
	}
}

func TestTranscodeWEBPTargetFallsBack(t *testing.T) {
	t.Parallel()

	src := pngFixture(t, 4, 4)
	result := Transcode(src, domain.FormatWEBP, nil)

	if !result.Fallback {
		t.Fatal("webp target has no encoder and must fall back")
	}
	if !bytes.Equal(result.Data, src) {
		t.Fatal("fallback must pass original bytes through")
	}
	if result.MimeType != "image/webp" {
		t.Fatalf("MimeType = %s, want image/webp", result.MimeType)
	}
}

func TestTranscodeDeterministic(t *testing.T) {
	t.Parallel()

	src := pngFixture(t, 16, 16)
	first := Transcode(src, domain.FormatJPEG, &domain.Dimensions{Width: 8, Height: 8})
	second := Transcode(src, domain.FormatJPEG, &domain.Dimensions{Width: 8, Height: 8})

	if !bytes.Equal(first.Data, second.Data) {
		t.Fatal("same input must produce identical output")
	}
}
