// Package archive unpacks uploaded ZIP archives into image entries and
// builds dry-run preview reports against a code list.
package archive

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/kursadbilgin/media-dispatch/internal/matcher"
)

// ErrInvalidArchive reports bytes that are not a readable ZIP archive.
var ErrInvalidArchive = errors.New("invalid archive")

// MaxEntrySize caps a single decompressed entry. Product photos beyond this
// are almost certainly not what the operator meant to upload.
const MaxEntrySize = 32 << 20

var imageExtensions = map[string]struct{}{
	"jpg":  {},
	"jpeg": {},
	"png":  {},
	"webp": {},
}

// Entry is one image file extracted from an archive.
type Entry struct {
	Filename  string
	Basename  string
	Extension string
	Content   []byte
}

// Extract unpacks data, keeping only recognized image entries. Directory
// entries, unsupported extensions, and macOS resource-fork noise are skipped
// silently; matching against codes is the caller's concern.
func Extract(data []byte) ([]Entry, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArchive, err)
	}

	entries := make([]Entry, 0, len(reader.File))
	for _, file := range reader.File {
		if file.FileInfo().IsDir() {
			continue
		}

		name := file.Name
		base := path.Base(name)
		if strings.HasPrefix(name, "__MACOSX/") || strings.HasPrefix(base, ".") {
			continue
		}

		ext := strings.ToLower(strings.TrimPrefix(path.Ext(base), "."))
		if _, ok := imageExtensions[ext]; !ok {
			continue
		}
		if file.UncompressedSize64 > MaxEntrySize {
			return nil, fmt.Errorf("%w: entry %q exceeds %d bytes", ErrInvalidArchive, name, int64(MaxEntrySize))
		}

		content, err := readEntry(file)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read entry %q: %v", ErrInvalidArchive, name, err)
		}

		entries = append(entries, Entry{
			Filename:  name,
			Basename:  strings.TrimSuffix(base, path.Ext(base)),
			Extension: ext,
			Content:   content,
		})
	}

	return entries, nil
}

func readEntry(file *zip.File) ([]byte, error) {
	rc, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	content, err := io.ReadAll(io.LimitReader(rc, MaxEntrySize+1))
	if err != nil {
		return nil, err
	}
	if len(content) > MaxEntrySize {
		return nil, fmt.Errorf("entry exceeds %d bytes", int64(MaxEntrySize))
	}
	return content, nil
}

// PreviewEntry classifies one extracted file against the code list.
type PreviewEntry struct {
	Filename    string `json:"filename"`
	Matched     bool   `json:"matched"`
	MatchedCode string `json:"matchedCode,omitempty"`
}

// PreviewReport summarizes an extraction + matching dry run.
type PreviewReport struct {
	Entries        []PreviewEntry `json:"entries"`
	TotalImages    int            `json:"totalImages"`
	MatchedCount   int            `json:"matchedCount"`
	UnmatchedCount int            `json:"unmatchedCount"`
	MatchedCodes   []string       `json:"matchedCodes"`
	UnmatchedCodes []string       `json:"unmatchedCodes"`
}

// Preview runs extraction and matching without any remote calls. It uses the
// same resolver as batch execution, so the classification here equals the set
// of codes that would receive images.
func Preview(data []byte, codes []string) (*PreviewReport, error) {
	entries, err := Extract(data)
	if err != nil {
		return nil, err
	}
	return buildReport(entries, codes), nil
}

func buildReport(entries []Entry, codes []string) *PreviewReport {
	candidates := make([]matcher.Candidate, 0, len(entries))
	for _, entry := range entries {
		candidates = append(candidates, matcher.Candidate{
			Filename: entry.Filename,
			Basename: entry.Basename,
		})
	}

	assignments := matcher.Resolve(codes, candidates)
	byFilename := make(map[string]string, len(assignments))
	claimed := make(map[string]bool, len(assignments))
	for _, a := range assignments {
		byFilename[a.Filename] = a.Code
		claimed[a.Code] = true
	}

	report := &PreviewReport{
		Entries:     make([]PreviewEntry, 0, len(entries)),
		TotalImages: len(entries),
	}
	for _, entry := range entries {
		code, matched := byFilename[entry.Filename]
		if matched {
			report.MatchedCount++
		} else {
			report.UnmatchedCount++
		}
		report.Entries = append(report.Entries, PreviewEntry{
			Filename:    entry.Filename,
			Matched:     matched,
			MatchedCode: code,
		})
	}

	for _, code := range codes {
		if claimed[code] {
			report.MatchedCodes = append(report.MatchedCodes, code)
		} else {
			report.UnmatchedCodes = append(report.UnmatchedCodes, code)
		}
	}

	return report
}
