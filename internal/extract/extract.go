package extract

import (
	"archive/zip"
	"bytes"
	"context"
	_ "embed"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/Megamind2600/resumerocketpro/internal/shared/telemetry"
)

const (
	MimePDF  = "application/pdf"
	MimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

	// MinTextLength is the shortest extraction accepted before falling back to the sample text.
	MinTextLength = 50
)

// ErrUnsupportedType is returned for files that are neither PDF nor DOCX.
var ErrUnsupportedType = errors.New("unsupported file type")

//go:embed sample_resume.txt
var sampleResume string

// Result is the outcome of an extraction.
type Result struct {
	Text     string
	FileName string
	FileSize int64
	MimeType string
	Fallback bool
}

// Extractor turns uploaded documents into plain text.
type Extractor struct {
	fallbackText string
}

// New returns an Extractor that substitutes the bundled sample resume when a
// document cannot be read.
func New() *Extractor {
	return &Extractor{fallbackText: strings.TrimSpace(sampleResume)}
}

// MimeTypeFor maps a file name to its accepted MIME type by extension.
func MimeTypeFor(fileName string) (string, error) {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".pdf":
		return MimePDF, nil
	case ".docx":
		return MimeDOCX, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, filepath.Ext(fileName))
	}
}

// Extract reads text from a PDF or DOCX payload. Parse failures and texts
// shorter than MinTextLength are absorbed by returning the fallback text.
func (e *Extractor) Extract(ctx context.Context, data []byte, fileName string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	mimeType, err := MimeTypeFor(fileName)
	if err != nil {
		return Result{}, err
	}
	res := Result{FileName: fileName, FileSize: int64(len(data)), MimeType: mimeType}

	var text string
	switch mimeType {
	case MimePDF:
		text, err = extractPDF(data)
	case MimeDOCX:
		text, err = extractDOCX(data)
	}
	text = cleanText(text)

	if err != nil || len([]rune(text)) < MinTextLength {
		fields := map[string]any{
			"file_name": fileName,
			"mime_type": mimeType,
			"chars":     len([]rune(text)),
		}
		if err != nil {
			fields["error"] = err
		}
		telemetry.Warn("extract.fallback", fields)
		res.Text = e.fallbackText
		res.Fallback = true
		return res, nil
	}
	res.Text = text
	return res, nil
}

func extractPDF(data []byte) (text string, err error) {
	// The pdf reader panics on some malformed inputs.
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("pdf parse panic: %v", rec)
		}
	}()
	reader := bytes.NewReader(data)
	pdfReader, err := pdf.NewReader(reader, int64(len(data)))
	if err != nil {
		return "", err
	}
	plain, err := pdfReader.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func extractDOCX(data []byte) (string, error) {
	if len(data) == 0 {
		return "", errors.New("empty docx data")
	}
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		// Some writers omit the relationships part the docx reader requires.
		raw, zipErr := readDocumentXML(data)
		if zipErr != nil {
			return "", fmt.Errorf("parse docx: %w", err)
		}
		return stripDocxXML(raw), nil
	}
	defer doc.Close()
	return stripDocxXML(doc.Editable().GetContent()), nil
}

func readDocumentXML(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	for _, f := range zr.File {
		if strings.ReplaceAll(f.Name, "\\", "/") != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", err
		}
		defer rc.Close()
		raw, err := io.ReadAll(rc)
		if err != nil {
			return "", err
		}
		return string(raw), nil
	}
	return "", errors.New("document.xml file not found")
}

func stripDocxXML(raw string) string {
	decoder := xml.NewDecoder(strings.NewReader(raw))
	var buf strings.Builder
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return raw
		}
		switch t := tok.(type) {
		case xml.CharData:
			buf.WriteString(string(t))
		case xml.StartElement:
			if t.Name.Local == "tab" {
				buf.WriteString("\t")
			}
		case xml.EndElement:
			if t.Name.Local == "p" || t.Name.Local == "br" {
				if buf.Len() > 0 {
					buf.WriteString("\n")
				}
			}
		}
	}
	return strings.TrimSpace(buf.String())
}

var dropControls = runes.Remove(runes.Predicate(func(r rune) bool {
	return unicode.IsControl(r) && r != '\n' && r != '\t'
}))

// cleanText folds compatibility characters such as ligatures, drops control
// characters and collapses blank runs.
func cleanText(raw string) string {
	if raw == "" {
		return ""
	}
	folded, _, err := transform.String(transform.Chain(norm.NFKC, dropControls), raw)
	if err != nil {
		folded = raw
	}
	lines := strings.Split(strings.ReplaceAll(folded, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
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
