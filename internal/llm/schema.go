package llm

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const roleAnalysisSchema = `{
  "type": "object",
  "required": ["roles", "skills", "experienceLevel", "location", "industries"],
  "properties": {
    "roles": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["title"],
        "properties": {
          "title": {"type": "string"},
          "match": {"type": "number"},
          "industry": {"type": "string"},
          "salaryRange": {"type": "string"}
        }
      }
    },
    "skills": {"type": ["array", "null"], "items": {"type": "string"}},
    "experienceLevel": {"type": "string"},
    "location": {"type": "string"},
    "industries": {"type": ["array", "null"], "items": {"type": "string"}},
    "explanation": {"type": "string"}
  }
}`

const jobMatchSchema = `{
  "type": "object",
  "required": ["matchScore", "missingSkills", "recommendations", "optimizedSections"],
  "properties": {
    "matchScore": {"type": "number"},
    "missingSkills": {"type": ["array", "null"], "items": {"type": "string"}},
    "recommendations": {"type": ["array", "null"], "items": {"type": "string"}},
    "optimizedSections": {
      "type": "object",
      "properties": {
        "summary": {"type": "string"},
        "skills": {"type": ["array", "null"], "items": {"type": "string"}},
        "experience": {"type": ["array", "null"], "items": {"type": "string"}}
      }
    }
  }
}`

var (
	roleAnalysisLoader = gojsonschema.NewStringLoader(roleAnalysisSchema)
	jobMatchLoader     = gojsonschema.NewStringLoader(jobMatchSchema)
)

// validateJSON checks doc against schema and wraps the first few violations in ErrInvalidOutput.
func validateJSON(schema gojsonschema.JSONLoader, doc string) error {
	res, err := gojsonschema.Validate(schema, gojsonschema.NewStringLoader(doc))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOutput, err)
	}
	if res.Valid() {
		return nil
	}
	var msgs []string
	for i, e := range res.Errors() {
		if i == 3 {
			break
		}
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("%w: %s", ErrInvalidOutput, strings.Join(msgs, "; "))
}
