package extract

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"

	"resumegenius/internal/errors"
)

func buildDOCX(t *testing.T, documentXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("create entry: %v", err)
	}
	if _, err := w.Write([]byte(documentXML)); err != nil {
		t.Fatalf("write entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

const sampleDocument = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>Jane Doe</w:t></w:r></w:p>
    <w:p><w:r><w:t>Engineer</w:t></w:r><w:r><w:tab/><w:t xml:space="preserve">Acme </w:t></w:r><w:r><w:t>Corp</w:t></w:r></w:p>
    <w:p></w:p>
    <w:p><w:r><w:t>Go &amp; SQL</w:t></w:r></w:p>
  </w:body>
</w:document>`

func TestExtractDOCX(t *testing.T) {
	text, err := Extract("resume.DOCX", buildDOCX(t, sampleDocument))
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}

	want := "Jane Doe\nEngineer\tAcme Corp\n\nGo & SQL"
	if text != want {
		t.Errorf("Extract() = %q, want %q", text, want)
	}
}

func TestExtractDOCXMissingBody(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	if _, err := zw.Create("word/styles.xml"); err != nil {
		t.Fatalf("create entry: %v", err)
	}
	_ = zw.Close()

	_, err := Extract("resume.docx", buf.Bytes())
	if !errors.HasCode(err, errors.ErrCodeExtractionFailed) {
		t.Errorf("expected EXTRACTION_FAILED, got %v", err)
	}
}

func TestExtractText(t *testing.T) {
	input := "\xef\xbb\xbfJane Doe   \r\n\r\n\r\n\r\nExperience\r\n"
	text, err := Extract("cv.txt", []byte(input))
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if text != "Jane Doe\n\nExperience" {
		t.Errorf("Extract() = %q", text)
	}
}

func TestExtractRejectsInvalidUTF8(t *testing.T) {
	_, err := Extract("cv.txt", []byte{0xff, 0xfe, 0x00})
	if !errors.HasCode(err, errors.ErrCodeExtractionFailed) {
		t.Errorf("expected EXTRACTION_FAILED, got %v", err)
	}
}

func TestExtractFailsClosed(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		data     []byte
		code     string
	}{
		{"rtf", "resume.rtf", []byte("{\\rtf1 Jane}"), errors.ErrCodeUnsupportedFileType},
		{"legacy doc", "resume.doc", []byte("Jane"), errors.ErrCodeUnsupportedFileType},
		{"no extension", "resume", []byte("Jane"), errors.ErrCodeUnsupportedFileType},
		{"empty text", "resume.txt", []byte("  \n\t "), errors.ErrCodeEmptyInput},
		{"broken pdf", "resume.pdf", []byte("%PDF-1.4 truncated"), errors.ErrCodeExtractionFailed},
		{"broken docx", "resume.docx", []byte("not a zip"), errors.ErrCodeExtractionFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, err := Extract(tt.filename, tt.data)
			if text != "" {
				t.Errorf("expected no partial text, got %q", text)
			}
			if !errors.HasCode(err, tt.code) {
				t.Errorf("expected %s, got %v", tt.code, err)
			}
		})
	}
}

func TestExtractSizeLimit(t *testing.T) {
	ex := New(16)
	_, err := ex.Extract("cv.txt", []byte(strings.Repeat("a", 17)))
	if !errors.HasCode(err, errors.ErrCodeFileTooLarge) {
		t.Errorf("expected FILE_TOO_LARGE, got %v", err)
	}

	if New(0).MaxFileSize() != DefaultMaxFileSize {
		t.Errorf("non-positive limit should fall back to the default")
	}
}

func TestIsSupported(t *testing.T) {
	for _, name := range []string{"a.txt", "b.PDF", "c.docx"} {
		if !IsSupported(name) {
			t.Errorf("%s should be supported", name)
		}
	}
	for _, name := range []string{"a.doc", "b.odt", "c"} {
		if IsSupported(name) {
			t.Errorf("%s should not be supported", name)
		}
	}
}

func TestExtractDOCXInflationLimit(t *testing.T) {
	t.Run("text past limit", func(t *testing.T) {
		doc := `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body><w:p><w:r><w:t>` +
			strings.Repeat("a", MaxTextBytes+1) +
			`</w:t></w:r></w:p></w:body></w:document>`
		data := buildDOCX(t, doc)
		if int64(len(data)) > DefaultMaxFileSize {
			t.Fatalf("archive should compress under the upload limit, got %d bytes", len(data))
		}

		text, err := Extract("bomb.docx", data)
		if text != "" {
			t.Errorf("expected no partial text, got %d bytes", len(text))
		}
		if !errors.HasCode(err, errors.ErrCodeFileTooLarge) {
			t.Errorf("expected FILE_TOO_LARGE, got %v", err)
		}
	})

	t.Run("declared size past limit", func(t *testing.T) {
		var buf bytes.Buffer
		zw := zip.NewWriter(&buf)
		payload := []byte("<w:document/>")
		w, err := zw.CreateRaw(&zip.FileHeader{
			Name:               docxBody,
			Method:             zip.Store,
			CompressedSize64:   uint64(len(payload)),
			UncompressedSize64: maxDocxBodyBytes + 1,
		})
		if err != nil {
			t.Fatalf("create raw entry: %v", err)
		}
		if _, err := w.Write(payload); err != nil {
			t.Fatalf("write entry: %v", err)
		}
		if err := zw.Close(); err != nil {
			t.Fatalf("close zip: %v", err)
		}

		_, err = Extract("bomb.docx", buf.Bytes())
		if !errors.HasCode(err, errors.ErrCodeFileTooLarge) {
			t.Errorf("expected FILE_TOO_LARGE, got %v", err)
		}
	})
}

func TestExtension(t *testing.T) {
	tests := map[string]string{
		"resume.PDF":       ".pdf",
		"my.resume.docx":   ".docx",
		"noext":            "",
		"/tmp/dir.d/a.Txt": ".txt",
	}
	for in, want := range tests {
		if got := Extension(in); got != want {
			t.Errorf("Extension(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		size int64
		want string
	}{
		{512, "512 B"},
		{1024, "1.0 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
		{1536 * 1024 * 1024, "1.5 GB"},
	}
	for _, tt := range tests {
		if got := FormatSize(tt.size); got != tt.want {
			t.Errorf("FormatSize(%d) = %q, want %q", tt.size, got, tt.want)
		}
	}
}
