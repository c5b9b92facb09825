package pipeline

import (
	"time"

	"github.com/Megamind2600/resumerocketpro/internal/records"
)

// AnalysisResponse is the role analysis shown after upload.
type AnalysisResponse struct {
	Roles           []records.SuggestedRole `json:"roles"`
	Skills          []string                `json:"skills"`
	ExperienceLevel string                  `json:"experienceLevel"`
	Location        string                  `json:"location"`
	Industries      []string                `json:"industries"`
	Explanation     string                  `json:"explanation,omitempty"`
}

// UploadResponse is returned by POST /upload-resume.
type UploadResponse struct {
	ResumeID int64            `json:"resumeId"`
	Analysis AnalysisResponse `json:"analysis"`
}

type jobLinksRequest struct {
	ResumeID      int64    `json:"resumeId" binding:"required,gt=0"`
	SelectedRoles []string `json:"selectedRoles" binding:"required,min=1,max=10"`
}

// JobLinksResponse is returned by POST /generate-job-links.
type JobLinksResponse struct {
	JobLinks []JobLink `json:"jobLinks"`
}

type optimizeRequest struct {
	ResumeID       int64  `json:"resumeId" binding:"required,gt=0"`
	JobDescription string `json:"jobDescription" binding:"required"`
	CompanyName    string `json:"companyName" binding:"max=200"`
	JobTitle       string `json:"jobTitle" binding:"max=200"`
}

// OptimizeResponse is returned by POST /optimize-resume.
type OptimizeResponse struct {
	OptimizationID  int64    `json:"optimizationId"`
	MatchScore      int      `json:"matchScore"`
	MissingSkills   []string `json:"missingSkills"`
	Recommendations []string `json:"recommendations"`
	OptimizedResume string   `json:"optimizedResume"`
	CoverLetter     string   `json:"coverLetter"`
}

type paymentIntentRequest struct {
	OptimizationID int64 `json:"optimizationId" binding:"required,gt=0"`
}

// PaymentIntentResponse is returned by POST /create-payment-intent.
type PaymentIntentResponse struct {
	ClientSecret string `json:"clientSecret"`
	PaymentID    int64  `json:"paymentId"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
}

// PaymentStatusResponse is returned by GET /payment-status/:optimizationId.
type PaymentStatusResponse struct {
	Status       records.PaymentStatus `json:"status"`
	IntentStatus string                `json:"intentStatus"`
	CanDownload  bool                  `json:"canDownload"`
	UpdatedAt    time.Time             `json:"updatedAt"`
}

// ResumeAnalysisResponse is returned by GET /resume/:id/analysis.
type ResumeAnalysisResponse struct {
	ResumeID int64            `json:"resumeId"`
	Analysis AnalysisResponse `json:"analysis"`
}

func toAnalysisResponse(a records.ResumeAnalysis) AnalysisResponse {
	return AnalysisResponse{
		Roles:           records.NonNil(a.Roles),
		Skills:          records.NonNil(a.Skills),
		ExperienceLevel: a.ExperienceLevel,
		Location:        a.Location,
		Industries:      records.NonNil(a.Industries),
		Explanation:     a.Explanation,
	}
}

func toOptimizeResponse(o records.JobOptimization) OptimizeResponse {
	return OptimizeResponse{
		OptimizationID:  o.ID,
		MatchScore:      o.MatchScore,
		MissingSkills:   records.NonNil(o.MissingSkills),
		Recommendations: records.NonNil(o.Recommendations),
		OptimizedResume: o.OptimizedResume,
		CoverLetter:     o.CoverLetter,
	}
}
