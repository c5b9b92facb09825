package records

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// NormalizeEmail lower-cases and trims an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail checks the address shape.
func ValidateEmail(email string) error {
	if err := validate.Var(email, "required,email,max=254"); err != nil {
		return invalid("email %q", email)
	}
	return nil
}

// ClampScore bounds a match score to [0,100].
func ClampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// NonNil returns an empty slice in place of nil.
func NonNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}

func cloneSlice[T any](in []T) []T {
	out := make([]T, len(in))
	copy(out, in)
	return out
}

func (r Resume) validate() error {
	if strings.TrimSpace(r.ExtractedText) == "" {
		return invalid("resume extracted text is empty")
	}
	if strings.TrimSpace(r.FileName) == "" {
		return invalid("resume file name is empty")
	}
	if r.FileSize < 0 {
		return invalid("resume file size %d", r.FileSize)
	}
	return nil
}

func (a ResumeAnalysis) normalized() ResumeAnalysis {
	a.SuggestedRoles = cloneSlice(NonNil(a.SuggestedRoles))
	a.Roles = cloneSlice(NonNil(a.Roles))
	a.Skills = cloneSlice(NonNil(a.Skills))
	a.Industries = cloneSlice(NonNil(a.Industries))
	if len(a.SuggestedRoles) == 0 && len(a.Roles) > 0 {
		for _, role := range a.Roles {
			a.SuggestedRoles = append(a.SuggestedRoles, role.Title)
		}
	}
	return a
}

func (o JobOptimization) normalized() JobOptimization {
	o.MissingSkills = cloneSlice(NonNil(o.MissingSkills))
	o.Recommendations = cloneSlice(NonNil(o.Recommendations))
	return o
}

func (o JobOptimization) validate() error {
	if o.MatchScore < 0 || o.MatchScore > 100 {
		return invalid("match score %d out of range", o.MatchScore)
	}
	if strings.TrimSpace(o.OptimizedResume) == "" {
		return invalid("optimized resume is empty")
	}
	if strings.TrimSpace(o.CoverLetter) == "" {
		return invalid("cover letter is empty")
	}
	if strings.TrimSpace(o.JobDescription) == "" {
		return invalid("job description is empty")
	}
	return nil
}

func (p Payment) validate() error {
	if p.Amount <= 0 {
		return invalid("payment amount %d", p.Amount)
	}
	if strings.TrimSpace(p.ExternalPaymentIntentID) == "" {
		return invalid("payment intent id is empty")
	}
	if strings.TrimSpace(p.Currency) == "" {
		return invalid("payment currency is empty")
	}
	if !p.Status.Valid() {
		return invalid("payment status %q", p.Status)
	}
	return nil
}

// statusChange reports whether moving from current to next changes the row.
// Re-applying the current status is a no-op; only pending may move to a terminal status.
func statusChange(current, next PaymentStatus) (bool, error) {
	if !next.Valid() {
		return false, invalid("payment status %q", next)
	}
	if current == next {
		return false, nil
	}
	if current == PaymentPending && next.Terminal() {
		return true, nil
	}
	return false, ErrInvalidTransition
}
