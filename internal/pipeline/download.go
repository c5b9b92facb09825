package pipeline

import (
	"context"

	"github.com/Megamind2600/resumerocketpro/internal/records"
	"github.com/Megamind2600/resumerocketpro/internal/render"
	"github.com/Megamind2600/resumerocketpro/internal/shared/metrics"
	"github.com/Megamind2600/resumerocketpro/internal/shared/telemetry"
)

// ContentTypePDF is the content type of rendered documents.
const ContentTypePDF = "application/pdf"

// File is a rendered document ready to send.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Download renders a paid document without watermark. The payment check runs
// on every call against the stored Payment rows.
func (s *Service) Download(ctx context.Context, optimizationID int64, kind render.Kind) (out File, err error) {
	done := s.track(StepDownload)
	defer func() { done(err) }()

	opt, err := s.loadForRender(ctx, optimizationID, kind)
	if err != nil {
		return File{}, err
	}
	paid, err := records.HasSucceededPayment(ctx, s.store, opt.ID)
	if err != nil {
		return File{}, err
	}
	if !paid {
		metrics.IncDownloadDenied()
		telemetry.Warn("pipeline.download_denied", map[string]any{
			"optimization_id": opt.ID,
			"type":            string(kind),
		})
		return File{}, ErrPaymentRequired
	}

	data, err := s.render(ctx, StepDownload, opt, kind, render.Options{Watermark: false})
	if err != nil {
		return File{}, err
	}
	return File{Name: fileName(kind, false), ContentType: ContentTypePDF, Data: data}, nil
}

// Preview renders a document with the watermark. It never consults the payment gate.
func (s *Service) Preview(ctx context.Context, optimizationID int64, kind render.Kind) (out File, err error) {
	done := s.track(StepPreview)
	defer func() { done(err) }()

	opt, err := s.loadForRender(ctx, optimizationID, kind)
	if err != nil {
		return File{}, err
	}
	data, err := s.render(ctx, StepPreview, opt, kind, render.Options{Watermark: true})
	if err != nil {
		return File{}, err
	}
	return File{Name: fileName(kind, true), ContentType: ContentTypePDF, Data: data}, nil
}

func (s *Service) loadForRender(ctx context.Context, optimizationID int64, kind render.Kind) (records.JobOptimization, error) {
	if !kind.Valid() {
		return records.JobOptimization{}, validationError("type must be resume or cover-letter")
	}
	if optimizationID <= 0 {
		return records.JobOptimization{}, validationError("optimizationId must be positive")
	}
	return s.store.GetJobOptimization(ctx, optimizationID)
}

func (s *Service) render(ctx context.Context, step string, opt records.JobOptimization, kind render.Kind, opts render.Options) ([]byte, error) {
	doc := render.Document{Kind: kind, Body: opt.OptimizedResume, Title: "Optimized Resume"}
	if kind == render.KindCoverLetter {
		doc.Body = opt.CoverLetter
		doc.Title = "Cover Letter"
	}
	if opt.JobTitle != "" {
		doc.Title += " - " + opt.JobTitle
	}

	callCtx, cancel := s.callTimeout(ctx)
	defer cancel()
	data, err := s.renderer.Render(callCtx, doc, opts)
	if err != nil {
		return nil, collaboratorError(step, "render", err)
	}
	return data, nil
}

func fileName(kind render.Kind, preview bool) string {
	name := "optimized-resume.pdf"
	if kind == render.KindCoverLetter {
		name = "cover-letter.pdf"
	}
	if preview {
		return "preview-" + name
	}
	return name
}
