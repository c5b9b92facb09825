package render

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"html/template"
	"strings"
)

// Kind is the document type being rendered.
type Kind string

const (
	KindResume      Kind = "resume"
	KindCoverLetter Kind = "cover-letter"
)

// WatermarkText is overlaid on unpaid previews.
const WatermarkText = "DEMO – Pay to Download"

// Valid reports whether k is a known document type.
func (k Kind) Valid() bool {
	return k == KindResume || k == KindCoverLetter
}

// Document is the text to render.
type Document struct {
	Kind  Kind
	Title string
	Body  string
}

// Options control rendering.
type Options struct {
	Watermark bool
}

// Renderer turns a document into PDF bytes.
type Renderer interface {
	Render(ctx context.Context, doc Document, opts Options) ([]byte, error)
}

//go:embed templates/document.html
var documentTemplate string

var documentTmpl = template.Must(template.New("document").Parse(documentTemplate))

type templateData struct {
	Title         string
	Body          string
	Letter        bool
	Watermark     bool
	WatermarkText string
}

// HTML renders the printable page for doc. Body text is escaped.
func HTML(doc Document, opts Options) (string, error) {
	if !doc.Kind.Valid() {
		return "", fmt.Errorf("render: unknown document kind %q", doc.Kind)
	}
	if strings.TrimSpace(doc.Body) == "" {
		return "", fmt.Errorf("render: empty %s", doc.Kind)
	}
	title := strings.TrimSpace(doc.Title)
	if title == "" {
		title = defaultTitle(doc.Kind)
	}
	var buf bytes.Buffer
	err := documentTmpl.Execute(&buf, templateData{
		Title:         title,
		Body:          strings.TrimSpace(doc.Body),
		Letter:        doc.Kind == KindCoverLetter,
		Watermark:     opts.Watermark,
		WatermarkText: WatermarkText,
	})
	if err != nil {
		return "", fmt.Errorf("render template: %w", err)
	}
	return buf.String(), nil
}

func defaultTitle(kind Kind) string {
	if kind == KindCoverLetter {
		return "Cover Letter"
	}
	return "Optimized Resume"
}
