package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

const docxBody = "word/document.xml"

// maxDocxBodyBytes bounds the inflated size of the WordprocessingML body.
// Markup runs several times larger than the text it carries.
const maxDocxBodyBytes = 8 * MaxTextBytes

// decodeDOCX walks the WordprocessingML body. Paragraphs and breaks
// become newlines, tabs stay tabs, everything else is dropped.
func decodeDOCX(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open docx archive: %w", err)
	}

	var body *zip.File
	for _, f := range zr.File {
		if f.Name == docxBody {
			body = f
			break
		}
	}
	if body == nil {
		return "", fmt.Errorf("docx archive has no %s", docxBody)
	}

	if body.UncompressedSize64 > maxDocxBodyBytes {
		return "", fmt.Errorf("%s declares %d bytes: %w", docxBody, body.UncompressedSize64, errTextTooLarge)
	}

	rc, err := body.Open()
	if err != nil {
		return "", fmt.Errorf("open %s: %w", docxBody, err)
	}
	defer func() { _ = rc.Close() }()

	// the declared size comes from the archive and may lie
	lr := &io.LimitedReader{R: rc, N: maxDocxBodyBytes + 1}
	text, err := documentText(lr)
	if lr.N <= 0 {
		return "", fmt.Errorf("%s inflates past %d bytes: %w", docxBody, maxDocxBodyBytes, errTextTooLarge)
	}
	return text, err
}

func documentText(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	var sb strings.Builder
	inText := false

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse %s: %w", docxBody, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				sb.WriteByte('\t')
			case "br", "cr":
				sb.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				sb.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
		if sb.Len() > MaxTextBytes {
			return "", errTextTooLarge
		}
	}
	return sb.String(), nil
}
