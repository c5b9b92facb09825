package pipeline

import (
	"context"
	"net/url"
	"strings"
)

// JobLink is a search URL on one job board.
type JobLink struct {
	Platform string `json:"platform"`
	URL      string `json:"url"`
}

// Job boards, in the order links are produced for each role.
const (
	PlatformGoogleJobs = "Google Jobs"
	PlatformLinkedIn   = "LinkedIn"
	PlatformIndeed     = "Indeed"
)

// BuildJobLinks returns one link per platform for every role. Blank roles are skipped.
func BuildJobLinks(roles []string, location string) []JobLink {
	loc := encodeComponent(strings.TrimSpace(location))
	links := make([]JobLink, 0, len(roles)*3)
	for _, role := range roles {
		role = strings.TrimSpace(role)
		if role == "" {
			continue
		}
		r := encodeComponent(role)
		links = append(links,
			JobLink{Platform: PlatformGoogleJobs, URL: "https://www.google.com/search?q=" + r + "+" + loc + "+jobs&ibp=htl;jobs"},
			JobLink{Platform: PlatformLinkedIn, URL: "https://www.linkedin.com/jobs/search/?keywords=" + r + "&location=" + loc},
			JobLink{Platform: PlatformIndeed, URL: "https://www.indeed.com/jobs?q=" + r + "&l=" + loc},
		)
	}
	return links
}

// componentMarks undoes QueryEscape where URI components leave a byte as is.
// A literal plus is already %2B, so every remaining + was a space.
var componentMarks = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// encodeComponent escapes a query value the way browsers encode a URI component.
func encodeComponent(s string) string {
	return componentMarks.Replace(url.QueryEscape(s))
}

// GenerateJobLinks derives search links for the selected roles using the
// location from the resume's latest analysis. Nothing is stored.
func (s *Service) GenerateJobLinks(ctx context.Context, resumeID int64, selectedRoles []string) (out []JobLink, err error) {
	done := s.track(StepJobLinks)
	defer func() { done(err) }()

	if resumeID <= 0 {
		return nil, validationError("resumeId must be positive")
	}
	hasRole := false
	for _, role := range selectedRoles {
		if strings.TrimSpace(role) != "" {
			hasRole = true
			break
		}
	}
	if !hasRole {
		return nil, validationError("selectedRoles must contain at least one role")
	}

	if _, err := s.store.GetResume(ctx, resumeID); err != nil {
		return nil, err
	}
	analysis, err := s.store.LatestAnalysisForResume(ctx, resumeID)
	if err != nil {
		return nil, err
	}
	return BuildJobLinks(selectedRoles, analysis.Location), nil
}
