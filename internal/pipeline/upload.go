package pipeline

import (
	"context"
	"errors"
	"strings"

	"github.com/Megamind2600/resumerocketpro/internal/events"
	"github.com/Megamind2600/resumerocketpro/internal/extract"
	"github.com/Megamind2600/resumerocketpro/internal/llm"
	"github.com/Megamind2600/resumerocketpro/internal/records"
	"github.com/Megamind2600/resumerocketpro/internal/shared/storage/object"
	"github.com/Megamind2600/resumerocketpro/internal/shared/telemetry"
	"github.com/Megamind2600/resumerocketpro/internal/shared/util"
)

// MaxUploadSize is the largest accepted resume file.
const MaxUploadSize = 10 << 20

// UploadInput is one resume upload.
type UploadInput struct {
	Email    string
	FileName string
	Data     []byte
}

// UploadResult is what the upload step persisted.
type UploadResult struct {
	Resume   records.Resume
	Analysis records.ResumeAnalysis
	// Fallback is set when the file could not be read and sample text was analysed instead.
	Fallback bool
}

func (in UploadInput) validate() (email, fileName string, err error) {
	email = records.NormalizeEmail(in.Email)
	if email == "" {
		return "", "", validationError("email is required")
	}
	if err := records.ValidateEmail(email); err != nil {
		return "", "", validationError("email is invalid")
	}
	fileName, err = util.SanitizeFileName(in.FileName)
	if err != nil {
		return "", "", validationError("file name is invalid")
	}
	if _, err := extract.MimeTypeFor(fileName); err != nil {
		return "", "", ErrUnsupportedFile
	}
	if len(in.Data) == 0 {
		return "", "", validationError("file is empty")
	}
	if len(in.Data) > MaxUploadSize {
		return "", "", ErrFileTooLarge
	}
	return email, fileName, nil
}

// UploadResume extracts the resume text, runs role analysis and stores the
// user, resume and analysis together. Nothing is stored when analysis fails.
func (s *Service) UploadResume(ctx context.Context, in UploadInput) (out UploadResult, err error) {
	done := s.track(StepUpload)
	defer func() { done(err) }()

	email, fileName, err := in.validate()
	if err != nil {
		return UploadResult{}, err
	}

	extracted, err := s.extractor.Extract(ctx, in.Data, fileName)
	if err != nil {
		if errors.Is(err, extract.ErrUnsupportedType) {
			return UploadResult{}, ErrUnsupportedFile
		}
		return UploadResult{}, collaboratorError(StepUpload, "extract", err)
	}
	if strings.TrimSpace(extracted.Text) == "" {
		return UploadResult{}, collaboratorError(StepUpload, "extract", errors.New("no text extracted"))
	}

	analysis, err := s.analyzeRoles(ctx, extracted.Text)
	if err != nil {
		return UploadResult{}, err
	}

	storageKey := ""
	if s.objects != nil {
		storageKey, err = s.archive(ctx, object.Object{
			Owner:       email,
			FileName:    fileName,
			ContentType: extracted.MimeType,
			Data:        in.Data,
		})
		if err != nil {
			return UploadResult{}, err
		}
	}

	err = s.store.InTx(ctx, func(tx records.Store) error {
		user, err := records.GetOrCreateUser(ctx, tx, email)
		if err != nil {
			return err
		}
		out.Resume, err = tx.CreateResume(ctx, records.Resume{
			UserID:        &user.ID,
			FileName:      fileName,
			FileSize:      int64(len(in.Data)),
			MimeType:      extracted.MimeType,
			ExtractedText: extracted.Text,
			StorageKey:    storageKey,
		})
		if err != nil {
			return err
		}
		out.Analysis, err = tx.CreateResumeAnalysis(ctx, records.ResumeAnalysis{
			ResumeID:        out.Resume.ID,
			Roles:           analysis.Roles,
			Skills:          analysis.Skills,
			ExperienceLevel: analysis.ExperienceLevel,
			Location:        analysis.Location,
			Industries:      analysis.Industries,
			Explanation:     analysis.Explanation,
		})
		return err
	})
	if err != nil {
		s.discardArchive(storageKey)
		return UploadResult{}, err
	}
	out.Fallback = extracted.Fallback

	telemetry.Info("pipeline.resume_uploaded", map[string]any{
		"resume_id":  out.Resume.ID,
		"mime_type":  out.Resume.MimeType,
		"file_size":  out.Resume.FileSize,
		"fallback":   out.Fallback,
		"role_count": len(out.Analysis.Roles),
	})
	s.publish(ctx, events.Event{
		Type:     events.ResumeAnalyzed,
		ResumeID: out.Resume.ID,
		Data:     map[string]any{"analysisId": out.Analysis.ID, "fallback": out.Fallback},
	})
	return out, nil
}

// GetResumeAnalysis returns the latest analysis stored for a resume.
func (s *Service) GetResumeAnalysis(ctx context.Context, resumeID int64) (out records.ResumeAnalysis, err error) {
	done := s.track(StepGetAnalysis)
	defer func() { done(err) }()

	if resumeID <= 0 {
		return records.ResumeAnalysis{}, validationError("resumeId must be positive")
	}
	if _, err := s.store.GetResume(ctx, resumeID); err != nil {
		return records.ResumeAnalysis{}, err
	}
	return s.store.LatestAnalysisForResume(ctx, resumeID)
}

func (s *Service) analyzeRoles(ctx context.Context, text string) (llm.RoleAnalysis, error) {
	callCtx, cancel := s.callTimeout(ctx)
	defer cancel()
	analysis, err := s.analyzer.AnalyzeRoles(callCtx, text)
	if err != nil {
		return llm.RoleAnalysis{}, collaboratorError(StepUpload, "role_analysis", err)
	}
	return analysis, nil
}

func (s *Service) archive(ctx context.Context, obj object.Object) (string, error) {
	callCtx, cancel := s.callTimeout(ctx)
	defer cancel()
	key, err := s.objects.Put(callCtx, obj)
	if err != nil {
		return "", collaboratorError(StepUpload, "object_store", err)
	}
	return key, nil
}

// discardArchive removes an original whose records were never committed.
func (s *Service) discardArchive(key string) {
	if key == "" || s.objects == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.objects.Delete(ctx, key); err != nil {
		telemetry.Warn("pipeline.archive_cleanup_failed", map[string]any{"storage_key": key, "error": err})
	}
}
