// Package extract turns uploaded resume files into plain text.
package extract

import (
	"bytes"
	"fmt"
	stderrors "errors"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"resumegenius/internal/errors"
)

// DefaultMaxFileSize caps uploads when no limit is configured
const DefaultMaxFileSize int64 = 10 << 20

// MaxTextBytes caps the text a single file may expand into. Compressed
// formats are checked against it while they are decoded.
const MaxTextBytes = 4 << 20

// errTextTooLarge is returned by decoders that hit MaxTextBytes
var errTextTooLarge = stderrors.New("decoded text exceeds limit")

// decoder turns raw file bytes into text
type decoder func(data []byte) (string, error)

var decoders = map[string]decoder{
	".txt":  decodeText,
	".pdf":  decodePDF,
	".docx": decodeDOCX,
}

// SupportedExtensions lists the file types Extract accepts
func SupportedExtensions() []string {
	return []string{".txt", ".pdf", ".docx"}
}

// IsSupported reports whether filename has an accepted extension
func IsSupported(filename string) bool {
	_, ok := decoders[Extension(filename)]
	return ok
}

// Extension returns the lowercased extension of filename, dot included
func Extension(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}

// FormatSize renders a byte count with a binary unit, e.g. "1.5 MB"
func FormatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}

// Extractor extracts text with a size limit
type Extractor struct {
	maxFileSize int64
}

// New creates an extractor; a non-positive limit falls back to the default
func New(maxFileSize int64) *Extractor {
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}
	return &Extractor{maxFileSize: maxFileSize}
}

// MaxFileSize returns the configured upload limit in bytes
func (e *Extractor) MaxFileSize() int64 {
	return e.maxFileSize
}

// Extract dispatches on the file extension. Unsupported types fail
// closed and never return partial text.
func (e *Extractor) Extract(filename string, data []byte) (string, error) {
	ext := Extension(filename)
	decode, ok := decoders[ext]
	if !ok {
		return "", errors.NewValidationError(errors.ErrCodeUnsupportedFileType,
			fmt.Sprintf("Unsupported file type %q, expected one of %s", ext, strings.Join(SupportedExtensions(), ", ")), nil).
			WithContext("filename", filename)
	}

	if int64(len(data)) > e.maxFileSize {
		return "", errors.NewValidationError(errors.ErrCodeFileTooLarge,
			fmt.Sprintf("File is %s, limit is %s", FormatSize(int64(len(data))), FormatSize(e.maxFileSize)), nil).
			WithContext("filename", filename)
	}

	text, err := decode(data)
	if stderrors.Is(err, errTextTooLarge) {
		return "", errors.NewValidationError(errors.ErrCodeFileTooLarge,
			fmt.Sprintf("%s expands past the %s text limit", filename, FormatSize(MaxTextBytes)), err).
			WithContext("filename", filename)
	}
	if err != nil {
		return "", errors.NewIOError(errors.ErrCodeExtractionFailed,
			fmt.Sprintf("Failed to extract text from %s", filename), err).
			WithContext("extension", ext)
	}

	text = normalizeWhitespace(text)
	if text == "" {
		return "", errors.NewValidationError(errors.ErrCodeEmptyInput,
			fmt.Sprintf("No text could be extracted from %s", filename), nil)
	}
	return text, nil
}

// Extract uses an extractor with the default size limit
func Extract(filename string, data []byte) (string, error) {
	return New(DefaultMaxFileSize).Extract(filename, data)
}

func decodeText(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(data) {
		return "", fmt.Errorf("text file is not valid UTF-8")
	}
	return string(data), nil
}

func decodePDF(data []byte) (text string, err error) {
	// the pdf reader panics on some malformed cross-reference tables
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("copy pdf text: %w", err)
	}
	return buf.String(), nil
}

// normalizeWhitespace trims trailing space on each line and collapses
// runs of blank lines into one.
func normalizeWhitespace(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.TrimRight(line, " \t ")
		if strings.TrimSpace(line) == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
