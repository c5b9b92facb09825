package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Megamind2600/resumerocketpro/internal/render"
	"github.com/Megamind2600/resumerocketpro/internal/shared/config"
)

// renderdemo prints a text file to PDF the same way the download and preview
// routes do, so layout and watermark changes can be checked locally.
func main() {
	cfg := config.Load()

	inPath := flag.String("in", "", "Path to a plain text resume or cover letter")
	outPath := flag.String("out", "./out/document.pdf", "Output PDF path")
	kind := flag.String("type", string(render.KindResume), "Document type (resume or cover-letter)")
	title := flag.String("title", "", "Document title")
	watermark := flag.Bool("watermark", true, "Render the preview watermark")
	htmlOnly := flag.Bool("html", false, "Write the HTML instead of printing a PDF")
	flag.Parse()

	docKind := render.Kind(*kind)
	if !docKind.Valid() {
		exitErr(fmt.Sprintf("unsupported type %q", *kind))
	}
	if strings.TrimSpace(*inPath) == "" {
		exitErr("-in is required")
	}
	body, err := os.ReadFile(*inPath)
	if err != nil {
		exitErr(fmt.Sprintf("read input: %v", err))
	}

	doc := render.Document{Kind: docKind, Title: *title, Body: string(body)}
	opts := render.Options{Watermark: *watermark}

	var out []byte
	if *htmlOnly {
		html, err := render.HTML(doc, opts)
		if err != nil {
			exitErr(fmt.Sprintf("render html: %v", err))
		}
		out = []byte(html)
	} else {
		r := render.NewChromedpRenderer(cfg.ChromePath, cfg.CollaboratorTimeout)
		out, err = r.Render(context.Background(), doc, opts)
		if err != nil {
			exitErr(fmt.Sprintf("render pdf: %v", err))
		}
	}

	if err := os.MkdirAll(filepath.Dir(*outPath), 0o755); err != nil {
		exitErr(fmt.Sprintf("create output dir: %v", err))
	}
	if err := os.WriteFile(*outPath, out, 0o644); err != nil {
		exitErr(fmt.Sprintf("write output: %v", err))
	}
	fmt.Printf("OK: wrote %s (%d bytes)\n", *outPath, len(out))
}

func exitErr(msg string) {
	_, _ = fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
