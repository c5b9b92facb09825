package records

import "time"

// PaymentStatus is the lifecycle state of a Payment.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentSucceeded PaymentStatus = "succeeded"
	PaymentFailed    PaymentStatus = "failed"
)

// Valid reports whether s is a known status.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentSucceeded, PaymentFailed:
		return true
	}
	return false
}

// Terminal reports whether s can no longer change.
func (s PaymentStatus) Terminal() bool {
	return s == PaymentSucceeded || s == PaymentFailed
}

// User owns uploaded resumes. Email is unique.
type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// Resume is an uploaded document and its extracted text.
type Resume struct {
	ID            int64     `json:"id"`
	UserID        *int64    `json:"userId"`
	FileName      string    `json:"fileName"`
	FileSize      int64     `json:"fileSize"`
	MimeType      string    `json:"mimeType"`
	ExtractedText string    `json:"extractedText"`
	StorageKey    string    `json:"-"`
	CreatedAt     time.Time `json:"createdAt"`
}

// SuggestedRole is one role the analysis proposes for a resume.
type SuggestedRole struct {
	Title       string `json:"title"`
	Match       int    `json:"match"`
	Industry    string `json:"industry"`
	SalaryRange string `json:"salaryRange"`
}

// ResumeAnalysis holds the role analysis for a resume. The latest one wins.
type ResumeAnalysis struct {
	ID              int64           `json:"id"`
	ResumeID        int64           `json:"resumeId"`
	SuggestedRoles  []string        `json:"suggestedRoles"`
	Roles           []SuggestedRole `json:"roles"`
	Skills          []string        `json:"skills"`
	ExperienceLevel string          `json:"experienceLevel"`
	Location        string          `json:"location"`
	Industries      []string        `json:"industries"`
	Explanation     string          `json:"explanation"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// JobOptimization is the match result and generated documents for one job.
type JobOptimization struct {
	ID              int64     `json:"id"`
	ResumeID        int64     `json:"resumeId"`
	JobDescription  string    `json:"jobDescription"`
	CompanyName     string    `json:"companyName"`
	JobTitle        string    `json:"jobTitle"`
	MatchScore      int       `json:"matchScore"`
	MissingSkills   []string  `json:"missingSkills"`
	Recommendations []string  `json:"recommendations"`
	OptimizedResume string    `json:"optimizedResume"`
	CoverLetter     string    `json:"coverLetter"`
	CreatedAt       time.Time `json:"createdAt"`
}

// Payment tracks one payment intent for an optimization.
type Payment struct {
	ID                      int64         `json:"id"`
	OptimizationID          int64         `json:"optimizationId"`
	ExternalPaymentIntentID string        `json:"externalPaymentIntentId"`
	Amount                  int64         `json:"amount"`
	Currency                string        `json:"currency"`
	Status                  PaymentStatus `json:"status"`
	CreatedAt               time.Time     `json:"createdAt"`
	UpdatedAt               time.Time     `json:"updatedAt"`
}
