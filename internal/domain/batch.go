package domain

import (
	"fmt"
	"strings"
	"time"
)

// MaxBatchSize is the hard cap on product codes accepted in one batch.
const MaxBatchSize = 30

// BatchStatus represents the processing state of an image batch.
type BatchStatus string

const (
	BatchStatusPending    BatchStatus = "PENDING"
	BatchStatusProcessing BatchStatus = "PROCESSING"
	BatchStatusCompleted  BatchStatus = "COMPLETED"
	BatchStatusError      BatchStatus = "ERROR"
)

func (s BatchStatus) String() string { return string(s) }

func (s BatchStatus) IsValid() bool {
	switch s {
	case BatchStatusPending, BatchStatusProcessing, BatchStatusCompleted, BatchStatusError:
		return true
	}
	return false
}

// IsTerminal reports whether a batch in this status will never change again.
func (s BatchStatus) IsTerminal() bool {
	return s == BatchStatusCompleted || s == BatchStatusError
}

// OperationType selects between replacing a product's image and adding one.
type OperationType string

const (
	OperationReplace OperationType = "REPLACE"
	OperationAdd     OperationType = "ADD"
)

func (o OperationType) String() string { return string(o) }

func (o OperationType) IsValid() bool {
	return o == OperationReplace || o == OperationAdd
}

func ParseOperationTypeFromString(s string) (OperationType, error) {
	op := OperationType(strings.ToUpper(strings.TrimSpace(s)))
	if !op.IsValid() {
		return "", fmt.Errorf("%w: invalid operation type %q", ErrValidation, s)
	}
	return op, nil
}

// ResolutionMode describes how submitted files map onto product codes.
type ResolutionMode string

const (
	// ModeSingle applies one uploaded image to every code in the batch.
	ModeSingle ResolutionMode = "SINGLE"
	// ModeArchive extracts a ZIP archive and matches entries to codes by filename.
	ModeArchive ResolutionMode = "ARCHIVE"
	// ModePerCode matches individually uploaded files to codes by filename.
	ModePerCode ResolutionMode = "PER_CODE"
)

func (m ResolutionMode) String() string { return string(m) }

func (m ResolutionMode) IsValid() bool {
	switch m {
	case ModeSingle, ModeArchive, ModePerCode:
		return true
	}
	return false
}

func ParseResolutionModeFromString(s string) (ResolutionMode, error) {
	m := ResolutionMode(strings.ToUpper(strings.TrimSpace(s)))
	if !m.IsValid() {
		return "", fmt.Errorf("%w: invalid resolution mode %q", ErrValidation, s)
	}
	return m, nil
}

// ImageFormat is a target encoding for uploaded images.
type ImageFormat string

const (
	FormatPNG  ImageFormat = "PNG"
	FormatJPEG ImageFormat = "JPEG"
	FormatWEBP ImageFormat = "WEBP"
)

func (f ImageFormat) String() string { return string(f) }

func (f ImageFormat) IsValid() bool {
	switch f {
	case FormatPNG, FormatJPEG, FormatWEBP:
		return true
	}
	return false
}

func (f ImageFormat) MimeType() string {
	switch f {
	case FormatPNG:
		return "image/png"
	case FormatJPEG:
		return "image/jpeg"
	case FormatWEBP:
		return "image/webp"
	}
	return "application/octet-stream"
}

// Extension returns the filename extension for the format, without the dot.
func (f ImageFormat) Extension() string {
	switch f {
	case FormatPNG:
		return "png"
	case FormatJPEG:
		return "jpg"
	case FormatWEBP:
		return "webp"
	}
	return "bin"
}

func ParseImageFormatFromString(s string) (ImageFormat, error) {
	normalized := strings.ToUpper(strings.TrimSpace(s))
	if normalized == "JPG" {
		normalized = "JPEG"
	}
	f := ImageFormat(normalized)
	if !f.IsValid() {
		return "", fmt.Errorf("%w: invalid image format %q", ErrValidation, s)
	}
	return f, nil
}

// Dimensions is an optional resize target applied before upload.
type Dimensions struct {
	Width  int
	Height int
}

func (d Dimensions) IsZero() bool { return d.Width == 0 && d.Height == 0 }

// ImageBatch tracks aggregate progress for one bulk image submission.
// CompletedItems counts every code that finished processing, success or not;
// FailedItems is the failed subset. Written only by the owning orchestrator,
// read by polling clients.
type ImageBatch struct {
	ID             string        `gorm:"type:uuid;primaryKey"`
	OperationType  OperationType `gorm:"type:varchar(10);not null"`
	TotalItems     int           `gorm:"not null"`
	CompletedItems int           `gorm:"not null;default:0"`
	FailedItems    int           `gorm:"not null;default:0"`
	Status         BatchStatus   `gorm:"type:varchar(20);not null"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NormalizeCodes trims, drops empties, and deduplicates codes preserving the
// submitted order. Comparison is exact: codes differing only in case are
// distinct products.
func NormalizeCodes(codes []string) []string {
	seen := make(map[string]struct{}, len(codes))
	out := make([]string, 0, len(codes))
	for _, code := range codes {
		trimmed := strings.TrimSpace(code)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}

// ValidateCodes enforces the batch size window after normalization.
func ValidateCodes(codes []string) error {
	if len(codes) == 0 {
		return fmt.Errorf("%w: at least one product code is required", ErrValidation)
	}
	if len(codes) > MaxBatchSize {
		return fmt.Errorf("%w: batch size exceeds %d codes (got %d)", ErrValidation, MaxBatchSize, len(codes))
	}
	return nil
}

// ResolvedImageSet maps product codes to the raw image bytes selected for
// them. Codes missing from the map are recorded as "no image provided"
// failures during orchestration, never silently skipped.
type ResolvedImageSet map[string][]byte
